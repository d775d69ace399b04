// Package http_request provides the "http_request" node kind. Per row it
// sends one HTTP request whose URL, headers and body are templates over the
// row values and inputs, e.g. to notify a results service.
package http_request

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/vk/sweepgrid/internal/config"
	"github.com/vk/sweepgrid/internal/ctxlog"
	"github.com/vk/sweepgrid/internal/node"
	"github.com/vk/sweepgrid/internal/registry"
	"github.com/vk/sweepgrid/internal/statetable"
	"github.com/vk/sweepgrid/internal/tmpl"
)

// Kind is the node kind handled by this module.
const Kind = "http_request"

// Outputs.
const (
	StatusCodeOutput = "status_code"
	BodyOutput       = "body"
)

// Module implements the registry.Module interface for this package.
type Module struct{}

// Register registers the node kind.
func (m *Module) Register(r *registry.Registry) {
	r.RegisterKind(Kind, New)
}

// Settings are the attributes of an http_request node block.
type Settings struct {
	URL     string            `hcl:"url"`
	Method  string            `hcl:"method,optional"`
	Headers map[string]string `hcl:"headers,optional"`
	Body    string            `hcl:"body,optional"`
	Timeout string            `hcl:"timeout,optional"`
	// FailOnError fails the node on a non-2xx status.
	FailOnError bool `hcl:"fail_on_error,optional"`
}

// New is the registry factory.
func New(ctx context.Context, decl *config.Node, conv config.Converter) (node.Node, error) {
	var s Settings
	if err := conv.DecodeBody(ctx, decl.Body, &s); err != nil {
		return nil, err
	}
	return NewNode(decl.Name, s, nil)
}

type request struct {
	URL     string
	Headers map[string]string
	Body    string
}

// Node sends one request per row.
type Node struct {
	node.Base
	node.State[request]

	settings Settings
	client   *resty.Client
}

// NewNode returns an http_request node. A nil client gets a new one.
func NewNode(label string, s Settings, client *resty.Client) (*Node, error) {
	if s.URL == "" {
		return nil, fmt.Errorf("url must not be empty")
	}
	s.Method = strings.ToUpper(s.Method)
	if s.Method == "" {
		s.Method = http.MethodGet
	}
	if client == nil {
		client = resty.New()
	}
	if s.Timeout != "" {
		d, err := time.ParseDuration(s.Timeout)
		if err != nil {
			return nil, fmt.Errorf("invalid timeout: %w", err)
		}
		client.SetTimeout(d)
	}
	return &Node{Base: node.NewBase(Kind, label), settings: s, client: client}, nil
}

// Initialize renders the request.
func (n *Node) Initialize(_ context.Context, row statetable.Row) error {
	data := n.TemplateData(row)
	url, err := tmpl.Render(n.settings.URL, data)
	if err != nil {
		return fmt.Errorf("url: %w", err)
	}
	body, err := tmpl.Render(n.settings.Body, data)
	if err != nil {
		return fmt.Errorf("body: %w", err)
	}
	headers := make(map[string]string, len(n.settings.Headers))
	for k, v := range n.settings.Headers {
		h, err := tmpl.Render(v, data)
		if err != nil {
			return fmt.Errorf("header %q: %w", k, err)
		}
		headers[k] = h
	}
	n.Cur = request{URL: url, Headers: headers, Body: body}
	return nil
}

func (n *Node) Run(ctx context.Context) error {
	logger := ctxlog.FromContext(ctx).With("node", n.Name())
	logger.Info("Making HTTP request", "method", n.settings.Method, "url", n.Cur.URL)

	req := n.client.R().SetContext(ctx)
	if len(n.Cur.Headers) > 0 {
		req = req.SetHeaders(n.Cur.Headers)
	}
	if n.Cur.Body != "" {
		req = req.SetBody([]byte(n.Cur.Body))
	}
	resp, err := req.Execute(n.settings.Method, n.Cur.URL)
	if err != nil {
		return fmt.Errorf("failed to execute request: %w", err)
	}
	logger.Info("Received HTTP response", "status", resp.Status())

	if n.settings.FailOnError && resp.IsError() {
		return fmt.Errorf("%s %s: %s", n.settings.Method, n.Cur.URL, resp.Status())
	}
	n.SetOutput(StatusCodeOutput, resp.StatusCode())
	n.SetOutput(BodyOutput, resp.String())
	return nil
}

// StateVariables lists the columns the templates read.
func (n *Node) StateVariables(row statetable.Row) []string {
	texts := []string{n.settings.URL, n.settings.Body}
	for _, v := range n.settings.Headers {
		texts = append(texts, v)
	}
	seen := make(map[string]bool)
	var vars []string
	for _, text := range texts {
		fields, err := tmpl.TextFields(text)
		if err != nil {
			continue
		}
		for _, f := range fields {
			if row.Has(f) && !seen[f] {
				seen[f] = true
				vars = append(vars, f)
			}
		}
	}
	return vars
}
