package extractor

import (
	"context"
	"fmt"
	"html"
	"io"
	"net/http"
	"strings"
	"unicode"
)

const maxPageBytes = 10 << 20

func (d *Dispatcher) extractURL(ctx context.Context, pageURL string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return "", fmt.Errorf("create page request: %w", err)
	}
	req.Header.Set("User-Agent", "knowledge-base/1.0")

	resp, err := d.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("fetch page: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return "", fmt.Errorf("fetch page status: %s", resp.Status)
	}

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxPageBytes))
	if err != nil {
		return "", fmt.Errorf("read page: %w", err)
	}
	return stripHTML(string(raw)), nil
}

// stripHTML drops script and style blocks, removes the remaining tags
// and collapses whitespace. It is deliberately crude; boilerplate
// removal is not worth a DOM dependency for a single-user corpus.
func stripHTML(page string) string {
	page = cutBlocks(page, "script")
	page = cutBlocks(page, "style")

	var b strings.Builder
	inTag := false
	for _, r := range page {
		switch {
		case r == '<':
			inTag = true
			b.WriteRune(' ')
		case r == '>':
			inTag = false
		case !inTag:
			b.WriteRune(r)
		}
	}

	return collapseSpace(html.UnescapeString(b.String()))
}

func cutBlocks(page, tag string) string {
	lower := strings.ToLower(page)
	opening := "<" + tag
	closing := "</" + tag + ">"

	var b strings.Builder
	for {
		start := strings.Index(lower, opening)
		if start < 0 {
			b.WriteString(page)
			return b.String()
		}
		end := strings.Index(lower[start:], closing)
		if end < 0 {
			b.WriteString(page[:start])
			return b.String()
		}
		end = start + end + len(closing)
		b.WriteString(page[:start])
		page = page[end:]
		lower = lower[end:]
	}
}

func collapseSpace(s string) string {
	var b strings.Builder
	lastSpace := true
	for _, r := range s {
		if unicode.IsSpace(r) {
			if !lastSpace {
				b.WriteRune(' ')
				lastSpace = true
			}
			continue
		}
		b.WriteRune(r)
		lastSpace = false
	}
	return strings.TrimSpace(b.String())
}
