package metrics

import (
	"io"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRegistersOnGivenRegistry(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.SearchQueriesTotal.WithLabelValues(ResultHit).Inc()
	m.SearchTermErrors.WithLabelValues("truncated").Add(2)
	m.IndexTermsLoaded.Set(42)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.SearchQueriesTotal.WithLabelValues(ResultHit)))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.SearchTermErrors.WithLabelValues("truncated")))

	n, err := testutil.GatherAndCount(reg, "index_terms_loaded")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestNewTwiceDoesNotPanic(t *testing.T) {
	assert.NotPanics(t, func() {
		New(nil)
		New(nil)
	})
}

func TestHandlerServesRegistry(t *testing.T) {
	m := New(prometheus.NewRegistry())
	m.PostingsReadBytes.Add(64)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "postings_read_bytes_total 64")
}
