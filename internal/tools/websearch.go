package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/chrispangg/deepagentsdk-sub002/internal/events"
	"github.com/chrispangg/deepagentsdk-sub002/internal/llm"
)

// SearchResult is one hit returned by a SearchProvider.
type SearchResult struct {
	Title      string `json:"title"`
	URL        string `json:"url"`
	Snippet    string `json:"snippet"`
	RawContent string `json:"raw_content,omitempty"`
}

// SearchProvider is the pluggable vendor search backend web_search calls
// into. No concrete vendor API is wired (out of scope); nilProvider below
// is the zero-configuration default.
type SearchProvider interface {
	Search(ctx context.Context, query string, maxResults int, topic string, includeRawContent bool) ([]SearchResult, error)
}

type nilProvider struct{}

func (nilProvider) Search(ctx context.Context, query string, maxResults int, topic string, includeRawContent bool) ([]SearchResult, error) {
	return nil, fmt.Errorf("web search not configured")
}

// NilSearchProvider is a SearchProvider that always reports it isn't
// configured, the default when AgentConfig wires no real provider.
var NilSearchProvider SearchProvider = nilProvider{}

// NewWebSearch builds the web_search tool: results are formatted as
// numbered markdown sections, grounded on the result-formatting convention
// internal/discovery/sdk uses for its external search results.
func NewWebSearch(provider SearchProvider, emitter events.Emitter) Tool {
	if provider == nil {
		provider = NilSearchProvider
	}
	return Tool{
		Def: llm.ToolDef{
			Name:        "web_search",
			Description: "Search the web and return numbered results with titles, URLs, and snippets.",
			InputSchema: schema(map[string]interface{}{
				"query":              map[string]interface{}{"type": "string"},
				"max_results":        map[string]interface{}{"type": "integer", "description": "default 5"},
				"topic":              map[string]interface{}{"type": "string"},
				"include_raw_content": map[string]interface{}{"type": "boolean"},
			}, "query"),
		},
		Execute: func(ctx context.Context, args json.RawMessage) (string, error) {
			var in struct {
				Query             string `json:"query"`
				MaxResults        int    `json:"max_results"`
				Topic             string `json:"topic"`
				IncludeRawContent bool   `json:"include_raw_content"`
			}
			if err := mustUnmarshal(args, &in); err != nil {
				return fmt.Sprintf("invalid web_search input: %v", err), nil
			}
			maxResults := in.MaxResults
			if maxResults <= 0 {
				maxResults = 5
			}
			emit(emitter, events.New(events.TypeWebSearchStart, map[string]interface{}{"query": in.Query}))
			results, err := provider.Search(ctx, in.Query, maxResults, in.Topic, in.IncludeRawContent)
			if err != nil {
				emit(emitter, events.New(events.TypeWebSearchFinish, map[string]interface{}{"query": in.Query, "error": err.Error()}))
				return err.Error(), nil
			}
			emit(emitter, events.New(events.TypeWebSearchFinish, map[string]interface{}{"query": in.Query, "count": len(results)}))
			return formatSearchResults(results), nil
		},
	}
}

func formatSearchResults(results []SearchResult) string {
	if len(results) == 0 {
		return "No results."
	}
	var b strings.Builder
	for i, r := range results {
		fmt.Fprintf(&b, "%d. **%s**\n   %s\n   %s\n", i+1, r.Title, r.URL, r.Snippet)
		if r.RawContent != "" {
			fmt.Fprintf(&b, "\n%s\n", r.RawContent)
		}
		if i < len(results)-1 {
			b.WriteString("\n")
		}
	}
	return b.String()
}
