// Package httprequest provides the HTTP request node for workflow graph execution.
package httprequest

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/docuflow/docuflow/pkg/models"
	"github.com/docuflow/docuflow/pkg/nodes"
	"github.com/docuflow/docuflow/pkg/template"
)

const NodeType = "http_request"

const defaultTimeout = 30 * time.Second

// Config defines the configuration for HTTP request nodes.
type Config struct {
	URL     string
	Method  string
	Headers map[string]string
	Timeout time.Duration
}

// New creates an HTTP request node. Transport and HTTP-level failures are
// reported in the output map with status_code 0 instead of failing the node.
func New(id string, config map[string]any, client *http.Client) (*nodes.Action, error) {
	if client == nil {
		client = http.DefaultClient
	}

	rawURL, _ := config["url"].(string)
	if rawURL == "" {
		return nil, errors.New("missing required config 'url'")
	}

	cfg := Config{
		URL:     rawURL,
		Method:  http.MethodGet,
		Headers: make(map[string]string),
		Timeout: defaultTimeout,
	}

	if method, ok := config["method"].(string); ok && method != "" {
		cfg.Method = strings.ToUpper(method)
	}

	if headers, ok := config["headers"].(map[string]any); ok {
		for k, v := range headers {
			if s, ok := v.(string); ok {
				cfg.Headers[k] = s
			}
		}
	}

	switch timeout := config["timeout"].(type) {
	case float64:
		cfg.Timeout = time.Duration(timeout * float64(time.Second))
	case int:
		cfg.Timeout = time.Duration(timeout) * time.Second
	}

	node := &nodes.Action{
		Base: nodes.NewBase(NodeType, id, config, map[string]nodes.InputSpec{
			"data":   {Type: nodes.TypeAny, Description: "Request body", Required: false},
			"params": {Type: nodes.TypeDict, Description: "URL query parameters", Required: false},
		}, map[string]nodes.OutputSpec{
			"response_data": {Type: nodes.TypeAny, Description: "Response body, JSON-decoded when possible"},
			"status_code":   {Type: nodes.TypeNumber, Description: "HTTP status code, 0 on transport error"},
			"headers":       {Type: nodes.TypeDict, Description: "Response headers"},
		}),
	}

	node.Perform = func(ctx context.Context, input map[string]any, ec *models.ExecutionContext) (map[string]any, error) {
		return doRequest(ctx, node, cfg, client, input, ec)
	}

	return node, nil
}

func errorOutput(err error) map[string]any {
	return map[string]any{
		"response_data": nil,
		"status_code":   0,
		"headers":       map[string]any{},
		"error":         err.Error(),
	}
}

// doRequest renders the URL template, issues the request and decodes the response.
func doRequest(ctx context.Context, node *nodes.Action, cfg Config, client *http.Client, input map[string]any, ec *models.ExecutionContext) (map[string]any, error) {
	requestURL := cfg.URL

	if strings.Contains(requestURL, "{{") {
		rendered, err := template.RenderWithContext(requestURL, ec)
		if err != nil {
			return errorOutput(fmt.Errorf("failed to render URL template: %w", err)), nil
		}

		s, ok := rendered.(string)
		if !ok {
			return errorOutput(errors.New("URL template must render to string")), nil
		}

		requestURL = s
	}

	if params, ok := input["params"].(map[string]any); ok && len(params) > 0 {
		parsed, err := url.Parse(requestURL)
		if err != nil {
			return errorOutput(err), nil
		}

		query := parsed.Query()
		for k, v := range params {
			query.Set(k, fmt.Sprint(v))
		}

		parsed.RawQuery = query.Encode()
		requestURL = parsed.String()
	}

	var body io.Reader

	contentType := ""

	if data, ok := input["data"]; ok && data != nil && allowsBody(cfg.Method) {
		switch payload := data.(type) {
		case string:
			body = strings.NewReader(payload)
		default:
			encoded, err := json.Marshal(payload)
			if err != nil {
				return errorOutput(err), nil
			}

			body = bytes.NewReader(encoded)
			contentType = "application/json"
		}
	}

	reqCtx, cancel := context.WithTimeout(ctx, cfg.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, cfg.Method, requestURL, body)
	if err != nil {
		return errorOutput(err), nil
	}

	for k, v := range cfg.Headers {
		req.Header.Set(k, v)
	}

	if contentType != "" && req.Header.Get("Content-Type") == "" {
		req.Header.Set("Content-Type", contentType)
	}

	resp, err := client.Do(req)
	if err != nil {
		node.Logger.Error("http request failed", "url", requestURL, "error", err)

		return errorOutput(err), nil
	}

	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return errorOutput(err), nil
	}

	var responseData any
	if err := json.Unmarshal(raw, &responseData); err != nil {
		responseData = string(raw)
	}

	headers := make(map[string]any, len(resp.Header))
	for k := range resp.Header {
		headers[k] = resp.Header.Get(k)
	}

	return map[string]any{
		"response_data": responseData,
		"status_code":   resp.StatusCode,
		"headers":       headers,
	}, nil
}

func allowsBody(method string) bool {
	switch method {
	case http.MethodPost, http.MethodPut, http.MethodPatch:
		return true
	default:
		return false
	}
}

// Factory registers the http_request node type.
type Factory struct {
	client *http.Client
}

func NewFactory(client *http.Client) *Factory {
	return &Factory{client: client}
}

func (f *Factory) Type() string { return NodeType }

func (f *Factory) Create(_ context.Context, id string, config map[string]any) (nodes.Node, error) {
	return New(id, config, f.client)
}

func (f *Factory) Schema() *models.NodeSchema {
	return &models.NodeSchema{
		Type:        NodeType,
		Name:        "HTTP Request",
		Description: "Issues an HTTP request and returns the decoded response.",
		Inputs: map[string]models.PortSpec{
			"data":   {Type: "any", Description: "Request body"},
			"params": {Type: "dict", Description: "URL query parameters"},
		},
		Outputs: map[string]models.PortSpec{
			"response_data": {Type: "any", Description: "Response body, JSON-decoded when possible"},
			"status_code":   {Type: "number", Description: "HTTP status code, 0 on transport error"},
			"headers":       {Type: "dict", Description: "Response headers"},
		},
		ConfigSchema: &models.JSONSchema{
			Type: "object",
			Properties: map[string]*models.Property{
				"url":     {Type: "string", Description: "Request URL; may carry template expressions"},
				"method":  {Type: "string", Enum: []any{"GET", "POST", "PUT", "DELETE", "PATCH"}, Default: "GET"},
				"headers": {Type: "object", Description: "Request headers"},
				"timeout": {Type: "number", Default: 30, Description: "Timeout in seconds"},
			},
			Required: []string{"url"},
		},
	}
}
