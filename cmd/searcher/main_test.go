package main

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"os"
	"strconv"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/Ranked-Retrieval-Engine/internal/index"
	"github.com/Adithya-Monish-Kumar-K/Ranked-Retrieval-Engine/internal/indextest"
	"github.com/Adithya-Monish-Kumar-K/Ranked-Retrieval-Engine/internal/searcher"
	rrerrors "github.com/Adithya-Monish-Kumar-K/Ranked-Retrieval-Engine/pkg/errors"
)

func setupIndex(t *testing.T) indextest.Paths {
	t.Helper()
	paths := indextest.MustWrite(t, indextest.Fixture{
		DocIDs: []uint32{1, 3, 5, 7, 9},
		Terms: []indextest.Term{
			{Term: "economi", Postings: index.PostingList{{DocID: 3, TermFreq: 2}, {DocID: 7, TermFreq: 1}}},
		},
		Lengths: map[uint32]float64{1: 1, 3: 4, 5: 1, 7: 1, 9: 1},
	})
	t.Setenv("RR_INDEX_DICTIONARY", paths.Dictionary)
	t.Setenv("RR_INDEX_POSTINGS", paths.Postings)
	t.Setenv("RR_INDEX_LENGTHS", paths.Lengths)
	return paths
}

func freePort(t *testing.T) int {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	port := ln.Addr().(*net.TCPAddr).Port
	require.NoError(t, ln.Close())
	return port
}

func TestRunStopsOnCancelledContext(t *testing.T) {
	setupIndex(t)
	t.Setenv("RR_SERVER_PORT", strconv.Itoa(freePort(t)))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	code := run(ctx, nil, io.Discard, prometheus.NewRegistry())
	assert.Equal(t, rrerrors.ExitOK, code)
}

func TestRunServesUntilShutdown(t *testing.T) {
	setupIndex(t)
	port := freePort(t)
	t.Setenv("RR_SERVER_PORT", strconv.Itoa(port))
	base := "http://127.0.0.1:" + strconv.Itoa(port)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan int, 1)
	go func() { done <- run(ctx, nil, io.Discard, prometheus.NewRegistry()) }()

	require.Eventually(t, func() bool {
		resp, err := http.Get(base + "/health/live")
		if err != nil {
			return false
		}
		resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 5*time.Second, 20*time.Millisecond)

	resp, err := http.Get(base + "/api/v1/search?q=economies")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var res searcher.Result
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&res))
	assert.Equal(t, uint32(7), res.Hits[0].DocID)

	cancel()
	select {
	case code := <-done:
		assert.Equal(t, rrerrors.ExitOK, code)
	case <-time.After(10 * time.Second):
		t.Fatal("run did not return after shutdown")
	}
}

func TestRunExitCodes(t *testing.T) {
	paths := setupIndex(t)

	var stderr bytes.Buffer
	code := run(context.Background(), []string{"-config", paths.Dir + "/missing.yaml"}, &stderr, prometheus.NewRegistry())
	assert.Equal(t, rrerrors.ExitUsage, code)
	assert.Contains(t, stderr.String(), "failed to load config")

	require.NoError(t, os.WriteFile(paths.Dictionary, []byte("ids: 1,3,\ncat one 0\n"), 0o644))
	code = run(context.Background(), nil, io.Discard, prometheus.NewRegistry())
	assert.Equal(t, rrerrors.ExitFormat, code)
}
