package errors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTypedErrorsUnwrapToSentinels(t *testing.T) {
	fe := &FormatError{File: "dict.txt", Line: 3, Column: 7, Msg: "bad df"}
	assert.ErrorIs(t, fe, ErrFormat)
	assert.Equal(t, "dict.txt:3:7: bad df", fe.Error())

	noCol := &FormatError{Line: 1, Msg: "empty"}
	assert.Equal(t, "<input>:1: empty", noCol.Error())

	pe := &PostingsError{Kind: ErrTruncatedPostings, File: "postings", Offset: 16, Count: 2, Size: 20}
	assert.ErrorIs(t, pe, ErrTruncatedPostings)
	assert.NotErrorIs(t, pe, ErrInvalidOffset)
	assert.Contains(t, pe.Error(), "offset=16")

	me := &MissingVectorLengthError{DocID: 42}
	assert.ErrorIs(t, me, ErrMissingVectorLength)
	assert.Equal(t, "missing vector length for doc 42", me.Error())
}

func TestIsTermScoped(t *testing.T) {
	wrapped := fmt.Errorf("reading term %q: %w", "cat",
		&PostingsError{Kind: ErrInvalidOffset, File: "p", Offset: 99})
	assert.True(t, IsTermScoped(wrapped))
	assert.False(t, IsTermScoped(&MissingVectorLengthError{DocID: 1}))
	assert.False(t, IsTermScoped(errors.New("disk on fire")))
}

func TestHTTPStatusCode(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{New(ErrInvalidInput, http.StatusTeapot, "custom"), http.StatusTeapot},
		{fmt.Errorf("limit: %w", ErrInvalidInput), http.StatusBadRequest},
		{ErrTimeout, http.StatusServiceUnavailable},
		{&MissingVectorLengthError{DocID: 3}, http.StatusInternalServerError},
		{errors.New("other"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, HTTPStatusCode(tt.err), tt.err.Error())
	}
}

func TestExitCode(t *testing.T) {
	assert.Equal(t, ExitOK, ExitCode(nil))
	assert.Equal(t, ExitUsage, ExitCode(Newf(ErrInvalidInput, 0, "missing -d")))
	assert.Equal(t, ExitFormat, ExitCode(&FormatError{Line: 1, Msg: "x"}))
	assert.Equal(t, ExitFormat, ExitCode(fmt.Errorf("load: %w", ErrEmptyIndex)))
	assert.Equal(t, ExitRuntime, ExitCode(&MissingVectorLengthError{DocID: 9}))
}
