package parser

import (
	"context"
	"runtime"
	"strings"

	"golang.org/x/sync/errgroup"
)

// SplitLines turns extracted text into physical lines. Form feeds (page breaks
// from pdftotext) are treated as line breaks.
func SplitLines(text string) []string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\f", "\n")
	return strings.Split(text, "\n")
}

// SplitPages splits extracted text on form feeds, one line slice per page.
// A trailing form feed does not create an empty page.
func SplitPages(text string) [][]string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.TrimRight(text, "\f")
	raw := strings.Split(text, "\f")
	pages := make([][]string, len(raw))
	for i, page := range raw {
		pages[i] = strings.Split(page, "\n")
	}
	return pages
}

// ParsePages parses each page on its own goroutine and concatenates the results
// in page order. Continuation lines never cross a page boundary, so this is only
// equivalent to Parse when the document never wraps an entry across pages.
func (p *Parser) ParsePages(ctx context.Context, pages [][]string) (Result, error) {
	results := make([]Result, len(pages))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.GOMAXPROCS(0))
	for i := range pages {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			results[i] = p.Parse(pages[i])
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return Result{}, err
	}

	merged := Result{Discards: make(map[DiscardReason]int)}
	offset := 0
	for i, r := range results {
		for _, c := range r.Candidates {
			c.Line += offset
			merged.Candidates = append(merged.Candidates, c)
		}
		for reason, n := range r.Discards {
			merged.Discards[reason] += n
		}
		merged.Lines += r.Lines
		offset += len(pages[i])
	}
	return merged, nil
}
