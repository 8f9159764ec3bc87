package main

import (
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/japaniel/vocabloom/pkg/extract"
	"github.com/japaniel/vocabloom/pkg/ingest"
	"github.com/japaniel/vocabloom/pkg/srs"
)

// pageFlags selects the page a command reads.
type pageFlags struct {
	url  string
	file string
}

func (p *pageFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&p.url, "url", "", "page to fetch")
	cmd.Flags().StringVar(&p.file, "file", "", "local HTML file to read")
	cmd.MarkFlagsMutuallyExclusive("url", "file")
	cmd.MarkFlagsOneRequired("url", "file")
}

// page is a loaded document with its candidates already ingested.
type page struct {
	doc            *extract.Document
	candidates     []extract.Candidate
	sourceLanguage string
	report         ingest.Report
}

func loadPage(cmd *cobra.Command, a *app, pf pageFlags) (*page, error) {
	ctx := cmd.Context()

	var doc *extract.Document
	var err error
	if pf.url != "" {
		a.log.WithField("url", pf.url).Debug("fetching page")
		doc, err = extract.FetchDocument(ctx, &http.Client{Timeout: 30 * time.Second}, pf.url)
	} else {
		doc, err = readFile(pf.file)
	}
	if err != nil {
		return nil, err
	}
	if doc.Lang == "" {
		doc.Lang = a.sourceLanguage
	}

	ex, err := extract.New(a.cfg.ExtractorOptions(), a.log)
	if err != nil {
		return nil, err
	}
	if ex.Denied(doc.Host()) {
		return nil, fmt.Errorf("%s is on the denylist; nothing was extracted", doc.Host())
	}
	p := &page{
		doc:            doc,
		candidates:     ex.Extract(doc),
		sourceLanguage: srs.NormalizeLanguage(ex.Language(doc)),
	}

	ig := ingest.NewIngester(a.conn, a.gate, a.sched, a.log)
	if a.cfg.Ingest.Workers > 0 {
		ig.Workers = a.cfg.Ingest.Workers
	}
	if a.cfg.Ingest.BatchSize > 0 {
		ig.BatchSize = a.cfg.Ingest.BatchSize
	}
	p.report, err = ig.Ingest(ctx, doc, p.candidates, a.language, p.sourceLanguage)
	if err != nil {
		return nil, fmt.Errorf("ingest: %w", err)
	}
	return p, nil
}

func readFile(path string) (*extract.Document, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}
	doc, err := extract.Parse(f, "file://"+filepath.ToSlash(abs))
	if errors.Is(err, extract.ErrTooLarge) {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return doc, err
}

func newScanCmd(opts *rootOptions) *cobra.Command {
	var pf pageFlags
	cmd := &cobra.Command{
		Use:   "scan",
		Short: "Extract candidate words from a page and record them",
		Args:  cobra.NoArgs,
		RunE: withApp(opts, func(cmd *cobra.Command, args []string, a *app) error {
			p, err := loadPage(cmd, a, pf)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if p.doc.Title != "" {
				fmt.Fprintf(out, "Title: %s\n", p.doc.Title)
			}
			for _, c := range p.candidates {
				tr := c.Translation
				if tr == "" {
					tr = "?"
				}
				fmt.Fprintf(out, "%-20s %-20s %s\n", c.Word, tr, c.Sentence)
			}
			fmt.Fprintf(out, "Scan complete: %d candidates, %d words (%d new), %d translated.\n",
				len(p.candidates), p.report.Words, p.report.NewWords, p.report.Translated)
			return nil
		}),
	}
	pf.register(cmd)
	return cmd
}
