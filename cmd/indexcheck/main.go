// Command indexcheck verifies that a dictionary, postings file and vector
// length table agree with each other before they are served.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/Adithya-Monish-Kumar-K/Ranked-Retrieval-Engine/internal/index"
	"github.com/Adithya-Monish-Kumar-K/Ranked-Retrieval-Engine/internal/searcher"
	"github.com/Adithya-Monish-Kumar-K/Ranked-Retrieval-Engine/pkg/config"
	rrerrors "github.com/Adithya-Monish-Kumar-K/Ranked-Retrieval-Engine/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/Ranked-Retrieval-Engine/pkg/logger"
)

func main() {
	os.Exit(run(context.Background(), os.Args[1:], os.Stdout, os.Stderr))
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("indexcheck", flag.ContinueOnError)
	fs.SetOutput(stderr)
	configPath := fs.String("config", "", "path to config file")
	dictionary := fs.String("d", "", "dictionary file (overrides config)")
	postings := fs.String("p", "", "postings file (overrides config)")
	lengthsPath := fs.String("l", "", "vector lengths file (overrides config)")
	skipLengths := fs.Bool("skip-lengths", false, "do not check vector length coverage")
	if err := fs.Parse(args); err != nil {
		return rrerrors.ExitUsage
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(stderr, "failed to load config: %v\n", err)
		return rrerrors.ExitUsage
	}
	if *dictionary != "" {
		cfg.Index.DictionaryPath = *dictionary
	}
	if *postings != "" {
		cfg.Index.PostingsPath = *postings
	}
	if *lengthsPath != "" {
		cfg.Index.LengthsPath = *lengthsPath
	}
	if cfg.Index.DictionaryPath == "" || cfg.Index.PostingsPath == "" {
		fmt.Fprintln(stderr, "usage: indexcheck -d dictionary-file -p postings-file [-l vector-lengths-file] [-config file] [-skip-lengths]")
		return rrerrors.ExitUsage
	}
	logger.Setup(stderr, cfg.Logging.Level, cfg.Logging.Format)

	ix, err := searcher.LoadIndex(ctx, cfg)
	if err != nil {
		slog.Error("failed to load index", "error", err)
		return rrerrors.ExitCode(err)
	}
	defer ix.Close()

	var lookup index.LengthLookup
	if !*skipLengths {
		lookup = ix.Lengths
	}
	report := index.Verify(ix.Dictionary, ix.Postings, lookup)

	fmt.Fprintf(stdout, "terms=%d documents=%d postings=%d violations=%d\n",
		report.Terms, report.Documents, report.Postings, len(report.Violations)+report.Dropped)
	for _, v := range report.Violations {
		fmt.Fprintln(stdout, v.String())
	}
	if report.Dropped > 0 {
		fmt.Fprintf(stdout, "... %d more\n", report.Dropped)
	}
	if !report.OK() {
		return rrerrors.ExitFormat
	}
	return rrerrors.ExitOK
}
