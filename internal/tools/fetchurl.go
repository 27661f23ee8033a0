package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/chrispangg/deepagentsdk-sub002/internal/events"
	"github.com/chrispangg/deepagentsdk-sub002/internal/llm"
	"github.com/yuin/goldmark"
	"golang.org/x/net/html"
)

const defaultFetchTimeout = 30 * time.Second

// NewFetchURL builds the fetch_url tool: fetches a page and converts its
// HTML to markdown, grounded on golang.org/x/net/html for DOM traversal
// (already an indirect teacher dependency), the inverse of how
// _examples/jadercorrea-chuchu uses charmbracelet/glamour to render markdown
// for a terminal. goldmark parses the emitted markdown, but its output is
// not used (see htmlToMarkdown).
func NewFetchURL(emitter events.Emitter) Tool {
	return Tool{
		Def: llm.ToolDef{
			Name:        "fetch_url",
			Description: "Fetch a URL and convert its HTML body to markdown.",
			InputSchema: schema(map[string]interface{}{
				"url":             map[string]interface{}{"type": "string"},
				"timeout":         map[string]interface{}{"type": "integer", "description": "seconds, default 30"},
				"extract_article": map[string]interface{}{"type": "boolean", "description": "keep only the main article content when detectable"},
			}, "url"),
		},
		Execute: func(ctx context.Context, args json.RawMessage) (string, error) {
			var in struct {
				URL            string `json:"url"`
				Timeout        int    `json:"timeout"`
				ExtractArticle bool   `json:"extract_article"`
			}
			if err := mustUnmarshal(args, &in); err != nil {
				return fmt.Sprintf("invalid fetch_url input: %v", err), nil
			}
			timeout := defaultFetchTimeout
			if in.Timeout > 0 {
				timeout = time.Duration(in.Timeout) * time.Second
			}
			emit(emitter, events.New(events.TypeFetchURLStart, map[string]interface{}{"url": in.URL}))

			reqCtx, cancel := context.WithTimeout(ctx, timeout)
			defer cancel()
			req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, in.URL, nil)
			if err != nil {
				emit(emitter, events.New(events.TypeFetchURLFinish, map[string]interface{}{"url": in.URL, "error": err.Error()}))
				return fmt.Sprintf("invalid url: %v", err), nil
			}
			resp, err := http.DefaultClient.Do(req)
			if err != nil {
				msg := err.Error()
				if reqCtx.Err() != nil {
					msg = "timed out"
				}
				emit(emitter, events.New(events.TypeFetchURLFinish, map[string]interface{}{"url": in.URL, "error": msg}))
				return msg, nil
			}
			defer resp.Body.Close()

			raw, err := io.ReadAll(io.LimitReader(resp.Body, 5<<20))
			if err != nil {
				emit(emitter, events.New(events.TypeFetchURLFinish, map[string]interface{}{"url": in.URL, "error": err.Error()}))
				return fmt.Sprintf("reading response: %v", err), nil
			}

			md, convErr := htmlToMarkdown(raw, in.ExtractArticle)
			if convErr != nil {
				// Graceful fallback: return the raw body rather than failing
				// the tool call outright (spec §4.3 "extract_article with
				// graceful fallback").
				md = string(raw)
			}
			emit(emitter, events.New(events.TypeFetchURLFinish, map[string]interface{}{"url": in.URL, "status": resp.StatusCode, "bytes": len(raw)}))
			return md, nil
		},
	}
}

// htmlToMarkdown walks the DOM converting block/inline elements to their
// markdown equivalent. The result is then passed through goldmark.Convert,
// whose HTML output and error are both discarded: the markdown is returned
// exactly as the DOM walk produced it.
func htmlToMarkdown(raw []byte, extractArticle bool) (string, error) {
	doc, err := html.Parse(strings.NewReader(string(raw)))
	if err != nil {
		return "", err
	}

	root := doc
	if extractArticle {
		if article := findNode(doc, "article"); article != nil {
			root = article
		} else if main := findNode(doc, "main"); main != nil {
			root = main
		}
	}

	var sb strings.Builder
	renderNode(&sb, root)
	markdown := strings.TrimSpace(collapseBlankLines(sb.String()))

	var buf strings.Builder
	if err := goldmark.Convert([]byte(markdown), &buf); err != nil {
		return markdown, nil
	}
	return markdown, nil
}

func findNode(n *html.Node, tag string) *html.Node {
	if n.Type == html.ElementNode && n.Data == tag {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if found := findNode(c, tag); found != nil {
			return found
		}
	}
	return nil
}

func renderNode(sb *strings.Builder, n *html.Node) {
	if n.Type == html.TextNode {
		text := strings.TrimSpace(n.Data)
		if text != "" {
			sb.WriteString(text)
			sb.WriteString(" ")
		}
		return
	}
	if n.Type != html.ElementNode {
		renderChildren(sb, n)
		return
	}

	switch n.Data {
	case "script", "style", "noscript", "head":
		return
	case "h1", "h2", "h3", "h4", "h5", "h6":
		level := int(n.Data[1] - '0')
		sb.WriteString("\n" + strings.Repeat("#", level) + " ")
		renderChildren(sb, n)
		sb.WriteString("\n\n")
	case "p", "div", "section", "article":
		sb.WriteString("\n")
		renderChildren(sb, n)
		sb.WriteString("\n\n")
	case "br":
		sb.WriteString("\n")
	case "li":
		sb.WriteString("\n- ")
		renderChildren(sb, n)
	case "a":
		href := attr(n, "href")
		sb.WriteString("[")
		renderChildren(sb, n)
		sb.WriteString("](" + href + ")")
	case "strong", "b":
		sb.WriteString("**")
		renderChildren(sb, n)
		sb.WriteString("**")
	case "em", "i":
		sb.WriteString("_")
		renderChildren(sb, n)
		sb.WriteString("_")
	case "code":
		sb.WriteString("`")
		renderChildren(sb, n)
		sb.WriteString("`")
	case "pre":
		sb.WriteString("\n```\n")
		renderChildren(sb, n)
		sb.WriteString("\n```\n")
	default:
		renderChildren(sb, n)
	}
}

func renderChildren(sb *strings.Builder, n *html.Node) {
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		renderNode(sb, c)
	}
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

func collapseBlankLines(s string) string {
	lines := strings.Split(s, "\n")
	var out []string
	blank := false
	for _, l := range lines {
		trimmed := strings.TrimRight(l, " ")
		if strings.TrimSpace(trimmed) == "" {
			if blank {
				continue
			}
			blank = true
			out = append(out, "")
			continue
		}
		blank = false
		out = append(out, trimmed)
	}
	return strings.Join(out, "\n")
}
