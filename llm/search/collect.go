package search

import (
	"context"
	"fmt"
	"html"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"askdoc/llm"

	md "github.com/JohannesKaufmann/html-to-markdown"
	"github.com/PuerkitoBio/goquery"
)

// maxPageSize caps how much of a result page is read (5MB).
const maxPageSize = int64(5 * 1024 * 1024)

// PageFormat selects how fetched pages are rendered for the model.
type PageFormat string

const (
	// FormatText extracts plain article text (default).
	FormatText PageFormat = "text"
	// FormatMarkdown converts the article HTML to markdown.
	FormatMarkdown PageFormat = "markdown"
)

// Collector fetches search result pages and assembles their main text into
// a single context block. It never returns an error: pages that cannot be
// fetched or extracted are skipped, and the worst case is an empty string,
// which callers must treat as "no new information found".
type Collector struct {
	client       *http.Client
	format       PageFormat
	fetchTimeout time.Duration
}

// NewCollector creates a collector. An empty format defaults to plain text.
func NewCollector(format PageFormat) *Collector {
	if format != FormatMarkdown {
		format = FormatText
	}
	return &Collector{
		client:       &http.Client{Timeout: RequestTimeout},
		format:       format,
		fetchTimeout: RequestTimeout,
	}
}

// CollectForModel fetches every usable result page concurrently and joins
// the successfully extracted ones as "Источник: <url>" blocks. A hung or
// failing fetch affects only its own item: each fetch runs under its own
// timeout, and item order in the output follows the search response.
func (c *Collector) CollectForModel(ctx context.Context, resp *Response) string {
	if resp == nil || len(resp.Items) == 0 {
		return ""
	}

	blocks := make([]string, len(resp.Items))
	var wg sync.WaitGroup

	for i, item := range resp.Items {
		if item.Link == "" {
			continue
		}
		wg.Add(1)
		go func(i int, link string) {
			defer wg.Done()

			fetchCtx, cancel := context.WithTimeout(ctx, c.fetchTimeout)
			defer cancel()

			page, err := c.fetchPage(fetchCtx, link)
			if err != nil {
				return
			}
			text := c.renderPage(page)
			if text == "" {
				return
			}
			blocks[i] = fmt.Sprintf("Источник: %s\n%s", link, text)
		}(i, item.Link)
	}
	wg.Wait()

	var nonEmpty []string
	for _, b := range blocks {
		if b != "" {
			nonEmpty = append(nonEmpty, b)
		}
	}
	return strings.Join(nonEmpty, llm.ContextSeparator)
}

// fetchPage downloads one result page, bounded in time and size.
func (c *Collector) fetchPage(ctx context.Context, link string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, link, nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("User-Agent", "Mozilla/5.0")

	resp, err := c.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("page fetch returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxPageSize))
	if err != nil {
		return "", err
	}
	return string(body), nil
}

// renderPage extracts the main article content in the configured format.
// Extraction failures yield "" so the item gets skipped, never aborting
// the batch.
func (c *Collector) renderPage(pageHTML string) string {
	if c.format == FormatMarkdown {
		if out, err := articleMarkdown(pageHTML); err == nil {
			return out
		}
		return ""
	}

	text, err := extractMainText(pageHTML)
	if err != nil {
		return ""
	}
	return text
}

// extractMainText pulls the main article text out of an HTML page: boiler-
// plate containers are stripped, then the first of article/main/body that
// has content wins.
func extractMainText(pageHTML string) (string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(pageHTML))
	if err != nil {
		return "", err
	}

	doc.Find("script, style, noscript, nav, header, footer, aside, form").Remove()

	for _, selector := range []string{"article", "main", "body"} {
		if text := normalizeText(doc.Find(selector).First().Text()); text != "" {
			return text, nil
		}
	}
	return "", nil
}

// articleMarkdown converts the page body to markdown, dropping blank lines.
func articleMarkdown(pageHTML string) (string, error) {
	converter := md.NewConverter("", true, nil)
	markdown, err := converter.ConvertString(pageHTML)
	if err != nil {
		return "", err
	}

	var lines []string
	for _, line := range strings.Split(markdown, "\n") {
		if trimmed := strings.TrimSpace(line); trimmed != "" {
			lines = append(lines, trimmed)
		}
	}
	return strings.Join(lines, "\n"), nil
}

// normalizeText resolves HTML entities and collapses runs of whitespace.
func normalizeText(text string) string {
	text = html.UnescapeString(text)
	return strings.Join(strings.Fields(text), " ")
}
