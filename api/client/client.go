// Package client is a small HTTP client for the pitch API, used by the CLI
// commands that talk to a running server.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/papercomputeco/pitch/api"
	apisearch "github.com/papercomputeco/pitch/api/search"
	"github.com/papercomputeco/pitch/pkg/chunk"
	"github.com/papercomputeco/pitch/pkg/insights"
)

const defaultTimeout = 2 * time.Minute

// StatusError is a non-2xx response from the server.
type StatusError struct {
	StatusCode int
	Message    string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("pitch API returned %d: %s", e.StatusCode, e.Message)
}

// IsNotFound reports whether err is a 404 from the server.
func IsNotFound(err error) bool {
	var se *StatusError
	return errors.As(err, &se) && se.StatusCode == http.StatusNotFound
}

// Client calls a pitch API server.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// New returns a Client for the server at target, e.g. "http://localhost:8080".
func New(target string, opts ...Option) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(target, "/"))
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid API target %q", target)
	}

	c := &Client{
		baseURL:    u.String(),
		httpClient: &http.Client{Timeout: defaultTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Ping checks that the server is reachable.
func (c *Client) Ping(ctx context.Context) error {
	var out string
	return c.do(ctx, http.MethodGet, "/ping", nil, &out)
}

// NewSession opens a conversation.
func (c *Client) NewSession(ctx context.Context) (*api.SessionResponse, error) {
	out := &api.SessionResponse{}
	if err := c.do(ctx, http.MethodPost, "/v1/sessions", nil, out); err != nil {
		return nil, err
	}
	return out, nil
}

// ResetSession clears a conversation's memory.
func (c *Client) ResetSession(ctx context.Context, sessionID string) (*api.SessionResponse, error) {
	out := &api.SessionResponse{}
	if err := c.do(ctx, http.MethodDelete, "/v1/sessions/"+url.PathEscape(sessionID), nil, out); err != nil {
		return nil, err
	}
	return out, nil
}

// Ask sends query on sessionID.
func (c *Client) Ask(ctx context.Context, sessionID, query string) (*api.AnswerResponse, error) {
	out := &api.AnswerResponse{}
	path := "/v1/sessions/" + url.PathEscape(sessionID) + "/answer"
	if err := c.do(ctx, http.MethodPost, path, api.AnswerRequest{Query: query}, out); err != nil {
		return nil, err
	}
	return out, nil
}

// History returns the session's conversation window.
func (c *Client) History(ctx context.Context, sessionID string) (*api.HistoryResponse, error) {
	out := &api.HistoryResponse{}
	path := "/v1/sessions/" + url.PathEscape(sessionID) + "/history"
	if err := c.do(ctx, http.MethodGet, path, nil, out); err != nil {
		return nil, err
	}
	return out, nil
}

// Ingest sends already parsed rows.
func (c *Client) Ingest(ctx context.Context, sessionID, source string, rows []chunk.Row) (*api.IngestResponse, error) {
	out := &api.IngestResponse{}
	path := "/v1/sessions/" + url.PathEscape(sessionID) + "/ingest"
	err := c.do(ctx, http.MethodPost, path, api.IngestRequest{Source: source, Rows: rows}, out)
	return ingestResult(out, err)
}

// Upload sends a CSV or XLSX file for server-side parsing and ingestion.
func (c *Client) Upload(ctx context.Context, sessionID, path string) (*api.IngestResponse, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("file", filepath.Base(path))
	if err != nil {
		return nil, fmt.Errorf("creating form file: %w", err)
	}
	if _, err := io.Copy(part, f); err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("closing form: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/v1/sessions/"+url.PathEscape(sessionID)+"/upload", &body)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	out := &api.IngestResponse{}
	return ingestResult(out, c.send(req, out))
}

// AddNote stores a free-text knowledge note.
func (c *Client) AddNote(ctx context.Context, text string) (*api.NoteResponse, error) {
	out := &api.NoteResponse{}
	if err := c.do(ctx, http.MethodPost, "/v1/knowledge", api.NoteRequest{Text: text}, out); err != nil {
		return nil, err
	}
	return out, nil
}

// Search returns the records closest to query.
func (c *Client) Search(ctx context.Context, query string, topK int) (*apisearch.SearchOutput, error) {
	q := url.Values{}
	q.Set("query", query)
	if topK > 0 {
		q.Set("top_k", strconv.Itoa(topK))
	}

	out := &apisearch.SearchOutput{}
	if err := c.do(ctx, http.MethodGet, "/v1/search?"+q.Encode(), nil, out); err != nil {
		return nil, err
	}
	return out, nil
}

// Insight runs a canned sales question. sessionID may be empty.
func (c *Client) Insight(ctx context.Context, kind insights.Kind, customer, sessionID string) (*api.InsightResponse, error) {
	q := url.Values{}
	if customer != "" {
		q.Set("customer", customer)
	}
	if sessionID != "" {
		q.Set("session_id", sessionID)
	}

	path := "/v1/insights/" + url.PathEscape(string(kind))
	if len(q) > 0 {
		path += "?" + q.Encode()
	}

	out := &api.InsightResponse{}
	if err := c.do(ctx, http.MethodGet, path, nil, out); err != nil {
		return nil, err
	}
	return out, nil
}

// Exchanges lists recorded exchanges for sessionID (all sessions when empty).
func (c *Client) Exchanges(ctx context.Context, sessionID string, limit int) (*api.ExchangesResponse, error) {
	q := url.Values{}
	if sessionID != "" {
		q.Set("session_id", sessionID)
	}
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}

	path := "/v1/exchanges"
	if len(q) > 0 {
		path += "?" + q.Encode()
	}

	out := &api.ExchangesResponse{}
	if err := c.do(ctx, http.MethodGet, path, nil, out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encoding request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	return c.send(req, out)
}

// send executes req and decodes the body into out. Error responses are
// decoded into out as well when they carry one (a partial ingest does).
func (c *Client) send(req *http.Request, out any) error {
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("calling pitch API: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("reading response: %w", err)
	}

	if resp.StatusCode >= http.StatusBadRequest {
		var er api.ErrorResponse
		if json.Unmarshal(data, &er) != nil || er.Error == "" {
			er.Error = strings.TrimSpace(string(data))
		}
		if out != nil {
			_ = json.Unmarshal(data, out)
		}
		return &StatusError{StatusCode: resp.StatusCode, Message: er.Error}
	}

	if out == nil || len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	return nil
}

// ingestResult keeps the outcome of a partially failed ingest alongside the
// error so callers can still report per-row failures.
func ingestResult(out *api.IngestResponse, err error) (*api.IngestResponse, error) {
	if err != nil && out.IngestOutcome == nil {
		return nil, err
	}
	return out, err
}
