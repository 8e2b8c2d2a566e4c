package search

import "context"

// Bridge couples a search provider with a page collector. It is the single
// entry point the agent uses for its web-search escalation.
type Bridge struct {
	provider  Provider
	collector *Collector
}

// NewBridge creates a bridge over the given provider and collector.
func NewBridge(provider Provider, collector *Collector) *Bridge {
	return &Bridge{provider: provider, collector: collector}
}

// SearchAndCollect runs one search and distills the result pages into a
// context block. Search failures propagate; collection never fails, so an
// unreachable result page only shrinks the output.
func (b *Bridge) SearchAndCollect(ctx context.Context, query string) (string, error) {
	resp, err := b.provider.Search(ctx, query)
	if err != nil {
		return "", err
	}
	return b.collector.CollectForModel(ctx, resp), nil
}
