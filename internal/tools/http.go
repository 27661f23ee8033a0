package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/chrispangg/deepagentsdk-sub002/internal/events"
	"github.com/chrispangg/deepagentsdk-sub002/internal/llm"
)

const defaultHTTPTimeout = 30 * time.Second

// NewHTTPRequest builds the http_request tool: a generic HTTP client. A
// non-2xx response is not a Go error (spec §4.3) — the status code and
// body are simply returned to the model to act on.
func NewHTTPRequest(emitter events.Emitter) Tool {
	return Tool{
		Def: llm.ToolDef{
			Name:        "http_request",
			Description: "Make an HTTP request and return its status, headers, and body. Does not throw on 4xx/5xx responses.",
			InputSchema: schema(map[string]interface{}{
				"url":     map[string]interface{}{"type": "string"},
				"method":  map[string]interface{}{"type": "string", "description": "default GET"},
				"headers": map[string]interface{}{"type": "object"},
				"body":    map[string]interface{}{"type": "string"},
				"params":  map[string]interface{}{"type": "object", "description": "appended to the URL's query string"},
				"timeout": map[string]interface{}{"type": "integer", "description": "seconds, default 30"},
			}, "url"),
		},
		Execute: func(ctx context.Context, args json.RawMessage) (string, error) {
			var in struct {
				URL     string            `json:"url"`
				Method  string            `json:"method"`
				Headers map[string]string `json:"headers"`
				Body    string            `json:"body"`
				Params  map[string]string `json:"params"`
				Timeout int               `json:"timeout"`
			}
			if err := mustUnmarshal(args, &in); err != nil {
				return fmt.Sprintf("invalid http_request input: %v", err), nil
			}
			method := in.Method
			if method == "" {
				method = http.MethodGet
			}
			reqURL, err := buildRequestURL(in.URL, in.Params)
			if err != nil {
				return fmt.Sprintf("invalid url: %v", err), nil
			}
			timeout := defaultHTTPTimeout
			if in.Timeout > 0 {
				timeout = time.Duration(in.Timeout) * time.Second
			}
			reqCtx, cancel := context.WithTimeout(ctx, timeout)
			defer cancel()

			var bodyReader io.Reader
			if in.Body != "" {
				bodyReader = strings.NewReader(in.Body)
			}
			req, err := http.NewRequestWithContext(reqCtx, method, reqURL, bodyReader)
			if err != nil {
				return fmt.Sprintf("invalid request: %v", err), nil
			}
			for k, v := range in.Headers {
				req.Header.Set(k, v)
			}

			emit(emitter, events.New(events.TypeHTTPRequestStart, map[string]interface{}{"url": reqURL, "method": method}))
			resp, err := http.DefaultClient.Do(req)
			if err != nil {
				emit(emitter, events.New(events.TypeHTTPRequestFinish, map[string]interface{}{"url": reqURL, "error": err.Error()}))
				return fmt.Sprintf("request failed: %v", err), nil
			}
			defer resp.Body.Close()

			raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
			if err != nil {
				return fmt.Sprintf("reading response: %v", err), nil
			}
			emit(emitter, events.New(events.TypeHTTPRequestFinish, map[string]interface{}{"url": reqURL, "status": resp.StatusCode}))
			return formatHTTPResponse(resp, raw), nil
		},
	}
}

func buildRequestURL(rawURL string, params map[string]string) (string, error) {
	if len(params) == 0 {
		return rawURL, nil
	}
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return "", err
	}
	q := parsed.Query()
	for k, v := range params {
		q.Set(k, v)
	}
	parsed.RawQuery = q.Encode()
	return parsed.String(), nil
}

func formatHTTPResponse(resp *http.Response, raw []byte) string {
	contentType := resp.Header.Get("Content-Type")
	body := string(raw)
	if strings.Contains(contentType, "application/json") {
		var pretty interface{}
		if err := json.Unmarshal(raw, &pretty); err == nil {
			if out, err := json.MarshalIndent(pretty, "", "  "); err == nil {
				body = string(out)
			}
		}
	}
	return fmt.Sprintf("HTTP %d\n\n%s", resp.StatusCode, body)
}
