package search

import (
	"context"
	"fmt"
	"io"
	"math/rand/v2"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"askdoc/llm"

	"golang.org/x/net/html"
)

// minSearchInterval is the minimum gap between DuckDuckGo requests.
const minSearchInterval = 500 * time.Millisecond

var userAgents = []string{
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/131.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/131.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64; rv:133.0) Gecko/20100101 Firefox/133.0",
}

// DuckDuckGoProvider scrapes DuckDuckGo Lite. It needs no API key and acts
// as the fallback when Custom Search credentials are not configured.
type DuckDuckGoProvider struct {
	endpoint string
	client   *http.Client

	mu             sync.Mutex
	lastSearchTime time.Time
}

// NewDuckDuckGoProvider creates a DuckDuckGo Lite provider.
func NewDuckDuckGoProvider() *DuckDuckGoProvider {
	return &DuckDuckGoProvider{
		endpoint: "https://lite.duckduckgo.com/lite/",
		client:   &http.Client{Timeout: RequestTimeout},
	}
}

// Search implements Provider.
func (p *DuckDuckGoProvider) Search(ctx context.Context, query string) (*Response, error) {
	if query == "" {
		return nil, fmt.Errorf("%w: search query must not be empty", llm.ErrInvalidArgument)
	}

	p.maybeDelay()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.endpoint+"?q="+url.QueryEscape(query), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create search request: %w", err)
	}
	setRandomizedHeaders(req)

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: search request failed: %v", llm.ErrExternalService, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: search returned status %d", llm.ErrExternalService, resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read search response: %v", llm.ErrExternalService, err)
	}

	items, err := parseLiteResults(string(body), ResultCount)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to parse search results: %v", llm.ErrExternalService, err)
	}
	return &Response{Items: items}, nil
}

// maybeDelay enforces a minimum randomized interval between searches.
func (p *DuckDuckGoProvider) maybeDelay() {
	p.mu.Lock()
	defer p.mu.Unlock()

	minGap := minSearchInterval + time.Duration(rand.IntN(1500))*time.Millisecond
	if elapsed := time.Since(p.lastSearchTime); elapsed < minGap {
		time.Sleep(minGap - elapsed)
	}
	p.lastSearchTime = time.Now()
}

// setRandomizedHeaders sets headers that mimic a real browser.
func setRandomizedHeaders(req *http.Request) {
	req.Header.Set("User-Agent", userAgents[rand.IntN(len(userAgents))])
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Connection", "keep-alive")
}

// parseLiteResults extracts results from the DuckDuckGo Lite HTML page.
// Result links carry the "result-link" class; the following
// "result-snippet" cell belongs to the same result.
func parseLiteResults(htmlContent string, maxResults int) ([]Item, error) {
	doc, err := html.Parse(strings.NewReader(htmlContent))
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML: %w", err)
	}

	var items []Item
	var current *Item

	var traverse func(*html.Node)
	traverse = func(n *html.Node) {
		if n.Type == html.ElementNode {
			if n.Data == "a" && hasClass(n, "result-link") {
				if current != nil && current.Link != "" {
					items = append(items, *current)
					if len(items) >= maxResults {
						return
					}
				}
				current = &Item{Title: textContent(n)}
				for _, attr := range n.Attr {
					if attr.Key == "href" {
						current.Link = cleanRedirectURL(attr.Val)
						break
					}
				}
			}
			if n.Data == "td" && hasClass(n, "result-snippet") && current != nil {
				current.Snippet = textContent(n)
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if len(items) >= maxResults {
				return
			}
			traverse(c)
		}
	}
	traverse(doc)

	if current != nil && current.Link != "" && len(items) < maxResults {
		items = append(items, *current)
	}
	return items, nil
}

// cleanRedirectURL unwraps DuckDuckGo's uddg redirect links.
func cleanRedirectURL(rawURL string) string {
	if idx := strings.Index(rawURL, "uddg="); idx != -1 {
		encoded := rawURL[idx+5:]
		if ampIdx := strings.IndexByte(encoded, '&'); ampIdx != -1 {
			encoded = encoded[:ampIdx]
		}
		if decoded, err := url.QueryUnescape(encoded); err == nil {
			return decoded
		}
	}
	return rawURL
}

// hasClass checks whether an HTML node carries a CSS class.
func hasClass(n *html.Node, class string) bool {
	for _, attr := range n.Attr {
		if attr.Key == "class" {
			for _, c := range strings.Fields(attr.Val) {
				if c == class {
					return true
				}
			}
		}
	}
	return false
}

// textContent recursively collects the text below a node.
func textContent(n *html.Node) string {
	var text strings.Builder
	var traverse func(*html.Node)
	traverse = func(node *html.Node) {
		if node.Type == html.TextNode {
			text.WriteString(node.Data)
		}
		for c := node.FirstChild; c != nil; c = c.NextSibling {
			traverse(c)
		}
	}
	traverse(n)
	return strings.TrimSpace(text.String())
}
