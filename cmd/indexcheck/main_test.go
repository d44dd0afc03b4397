package main

import (
	"bytes"
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/Ranked-Retrieval-Engine/internal/index"
	"github.com/Adithya-Monish-Kumar-K/Ranked-Retrieval-Engine/internal/indextest"
	rrerrors "github.com/Adithya-Monish-Kumar-K/Ranked-Retrieval-Engine/pkg/errors"
)

func write(t *testing.T) indextest.Paths {
	return indextest.MustWrite(t, indextest.Fixture{
		DocIDs: []uint32{1, 2, 3},
		Terms: []indextest.Term{
			{Term: "cat", Postings: index.PostingList{{DocID: 1, TermFreq: 2}, {DocID: 2, TermFreq: 1}}},
			{Term: "dog", Postings: index.PostingList{{DocID: 3, TermFreq: 1}}},
		},
	})
}

func TestRunConformingIndex(t *testing.T) {
	paths := write(t)
	var stdout, stderr bytes.Buffer
	code := run(context.Background(), []string{"-d", paths.Dictionary, "-p", paths.Postings, "-l", paths.Lengths}, &stdout, &stderr)
	assert.Equal(t, rrerrors.ExitOK, code, stderr.String())
	assert.Equal(t, "terms=2 documents=3 postings=3 violations=0\n", stdout.String())
}

func TestRunReportsViolations(t *testing.T) {
	paths := write(t)
	require.NoError(t, os.WriteFile(paths.Lengths, []byte("1 1\n3 1\n"), 0o644))

	var stdout, stderr bytes.Buffer
	code := run(context.Background(), []string{"-d", paths.Dictionary, "-p", paths.Postings, "-l", paths.Lengths}, &stdout, &stderr)
	assert.Equal(t, rrerrors.ExitFormat, code)
	assert.Contains(t, stdout.String(), "doc 2 has postings but no vector length")

	stdout.Reset()
	code = run(context.Background(), []string{"-d", paths.Dictionary, "-p", paths.Postings, "-l", paths.Lengths, "-skip-lengths"}, &stdout, &stderr)
	assert.Equal(t, rrerrors.ExitOK, code)
}

func TestRunUsage(t *testing.T) {
	var stdout, stderr bytes.Buffer
	assert.Equal(t, rrerrors.ExitUsage, run(context.Background(), nil, &stdout, &stderr))
	assert.Contains(t, stderr.String(), "usage: indexcheck")
}
