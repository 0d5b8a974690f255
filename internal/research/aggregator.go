// Package research builds a best-effort context block from web-search
// providers before a prompt is sent for completion. Provider failures are
// logged and swallowed: research never fails a turn.
package research

import (
	"context"
	"log/slog"

	"golang.org/x/sync/errgroup"
)

// KeySource supplies the effective search credentials at call time, so a
// vault update takes effect on the next turn without rewiring.
type KeySource interface {
	SerperKey() string
	TavilyKey() string
}

// Aggregator fans a query out to every configured contributor concurrently
// and joins their blocks in a fixed order.
type Aggregator struct {
	keys   KeySource
	serper *SerperClient
	tavily *TavilyClient
	pages  *PageFetcher
}

// New creates an Aggregator over the given key source and contributors.
func New(keys KeySource, serper *SerperClient, tavily *TavilyClient, pages *PageFetcher) *Aggregator {
	return &Aggregator{
		keys:   keys,
		serper: serper,
		tavily: tavily,
		pages:  pages,
	}
}

// Research returns the concatenated context blocks for the query. With no
// search credential configured it returns an empty string immediately and
// issues zero network calls. Contributors run concurrently; a failing
// contributor yields an empty block and never affects its siblings.
func (a *Aggregator) Research(ctx context.Context, query string) string {
	serperKey := a.keys.SerperKey()
	tavilyKey := a.keys.TavilyKey()
	if serperKey == "" && tavilyKey == "" {
		return ""
	}

	var serperBlock, tavilyBlock, pageBlock string

	// Plain errgroup, no shared cancel: one contributor's failure must not
	// cancel the others, so every task swallows its own error.
	var g errgroup.Group

	if serperKey != "" {
		g.Go(func() error {
			block, err := a.serper.Search(ctx, serperKey, query)
			if err != nil {
				slog.Warn("web search failed", "provider", "serper", "error", err)
				return nil
			}
			serperBlock = block
			return nil
		})
	}

	if tavilyKey != "" {
		g.Go(func() error {
			block, err := a.tavily.Search(ctx, tavilyKey, query)
			if err != nil {
				slog.Warn("web search failed", "provider", "tavily", "error", err)
				return nil
			}
			tavilyBlock = block
			return nil
		})
	}

	if a.pages != nil {
		g.Go(func() error {
			block, err := a.pages.Fetch(ctx, query)
			if err != nil {
				slog.Warn("page fetch failed", "error", err)
				return nil
			}
			pageBlock = block
			return nil
		})
	}

	g.Wait()

	return serperBlock + tavilyBlock + pageBlock
}
