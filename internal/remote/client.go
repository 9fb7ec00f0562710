// Package remote provides an HTTP client for an Olog log service.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/wesm/ologbrowse/internal/logbook"
	"github.com/wesm/ologbrowse/internal/search"
)

// Client talks to the log service REST API.
type Client struct {
	baseURL    string
	username   string
	password   string
	httpClient *http.Client
}

var _ logbook.Client = (*Client)(nil)

// Config holds configuration for creating a Client.
type Config struct {
	URL           string // service root, e.g. https://olog.example.org/Olog
	Username      string
	Password      string
	AllowInsecure bool
	Timeout       time.Duration
}

// New creates a new Client.
func New(cfg Config) (*Client, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("service URL is required")
	}

	parsedURL, err := url.Parse(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("invalid URL: %w", err)
	}

	// Enforce HTTPS unless AllowInsecure is set
	if parsedURL.Scheme == "http" && !cfg.AllowInsecure {
		return nil, fmt.Errorf("HTTPS required for the log service\n\n" +
			"Options:\n" +
			"  1. Use HTTPS: [service] url = \"https://olog:8181/Olog\"\n" +
			"  2. For trusted networks: add 'allow_insecure = true' to [service] in config.toml")
	}

	if parsedURL.Scheme != "http" && parsedURL.Scheme != "https" {
		return nil, fmt.Errorf("URL scheme must be http or https, got: %s", parsedURL.Scheme)
	}

	if parsedURL.Host == "" {
		return nil, fmt.Errorf("service URL must include a host (e.g., https://olog:8181/Olog)")
	}

	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}

	return &Client{
		baseURL:  strings.TrimSuffix(cfg.URL, "/"),
		username: cfg.Username,
		password: cfg.Password,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}, nil
}

// BaseURL returns the service root the client talks to.
func (c *Client) BaseURL() string { return c.baseURL }

// doRequest performs an HTTP GET with optional basic auth.
func (c *Client) doRequest(ctx context.Context, path string, query url.Values) (*http.Response, error) {
	reqURL := c.baseURL + path
	if len(query) > 0 {
		reqURL += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	if c.username != "" {
		req.SetBasicAuth(c.username, c.password)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}

	return resp, nil
}

// apiError is the JSON error body some service versions return.
type apiError struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// handleErrorResponse reads an error response and returns a *logbook.ServiceError.
func handleErrorResponse(resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))

	var apiErr apiError
	if err := json.Unmarshal(body, &apiErr); err == nil && apiErr.Message != "" {
		return &logbook.ServiceError{StatusCode: resp.StatusCode, Message: apiErr.Message}
	}

	msg := strings.TrimSpace(string(body))
	if msg == "" {
		msg = http.StatusText(resp.StatusCode)
	}
	return &logbook.ServiceError{StatusCode: resp.StatusCode, Message: msg}
}

// getJSON fetches path and decodes a 200 response into out.
func (c *Client) getJSON(ctx context.Context, path string, query url.Values, out any) error {
	resp, err := c.doRequest(ctx, path, query)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return handleErrorResponse(resp)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// searchQuery builds the /logs/search query parameters.
func searchQuery(criteria search.Criteria, page search.PageParams) url.Values {
	q := url.Values{}
	for _, kv := range criteria.Params() {
		q.Set(kv[0], kv[1])
	}
	q.Set(search.KeySort, page.Sort.String())
	q.Set(search.KeyFrom, strconv.Itoa(page.From))
	q.Set(search.KeySize, strconv.Itoa(page.Size))
	return q
}

// SearchLogs runs a paginated search.
func (c *Client) SearchLogs(ctx context.Context, criteria search.Criteria, page search.PageParams) (*logbook.SearchResult, error) {
	var sr searchResponse
	if err := c.getJSON(ctx, "/logs/search", searchQuery(criteria, page), &sr); err != nil {
		return nil, fmt.Errorf("search logs: %w", err)
	}

	entries := make([]logbook.LogEntry, 0, len(sr.Logs))
	for _, lj := range sr.Logs {
		entries = append(entries, lj.toEntry())
	}
	return &logbook.SearchResult{Entries: entries, TotalCount: sr.HitCount}, nil
}

// GetEntry fetches one entry. A 404 wraps logbook.ErrNotFound.
func (c *Client) GetEntry(ctx context.Context, id string) (*logbook.LogEntry, error) {
	resp, err := c.doRequest(ctx, "/logs/"+url.PathEscape(id), nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, fmt.Errorf("log entry %s: %w", id, logbook.ErrNotFound)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, handleErrorResponse(resp)
	}

	var lj logJSON
	if err := json.NewDecoder(resp.Body).Decode(&lj); err != nil {
		return nil, fmt.Errorf("decode log entry: %w", err)
	}
	e := lj.toEntry()
	return &e, nil
}

// ListLogbooks returns logbook names, sorted.
func (c *Client) ListLogbooks(ctx context.Context) ([]string, error) {
	var named []namedJSON
	if err := c.getJSON(ctx, "/logbooks", nil, &named); err != nil {
		return nil, fmt.Errorf("list logbooks: %w", err)
	}
	return sortedNames(named), nil
}

// ListTags returns tag names, sorted.
func (c *Client) ListTags(ctx context.Context) ([]string, error) {
	var named []namedJSON
	if err := c.getJSON(ctx, "/tags", nil, &named); err != nil {
		return nil, fmt.Errorf("list tags: %w", err)
	}
	return sortedNames(named), nil
}

func sortedNames(named []namedJSON) []string {
	names := make([]string, 0, len(named))
	for _, n := range named {
		if n.Name != "" {
			names = append(names, n.Name)
		}
	}
	sort.Strings(names)
	return names
}

// searchResponse matches the /logs/search response format.
type searchResponse struct {
	HitCount int64     `json:"hitCount"`
	Logs     []logJSON `json:"logs"`
}

// logJSON matches the service's log entry format. Dates are epoch millis.
type logJSON struct {
	ID          flexibleID       `json:"id"`
	Owner       string           `json:"owner"`
	Title       string           `json:"title"`
	Description string           `json:"description"`
	Source      string           `json:"source"`
	Level       string           `json:"level"`
	State       string           `json:"state"`
	CreatedDate *int64           `json:"createdDate"`
	ModifyDate  *int64           `json:"modifyDate"`
	Logbooks    []namedJSON      `json:"logbooks"`
	Tags        []namedJSON      `json:"tags"`
	Properties  []propertyJSON   `json:"properties"`
	Attachments []attachmentJSON `json:"attachments"`
}

// namedJSON matches logbook and tag objects; only the name is used.
type namedJSON struct {
	Name string `json:"name"`
}

type propertyJSON struct {
	Name       string          `json:"name"`
	Attributes []attributeJSON `json:"attributes"`
}

type attributeJSON struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

type attachmentJSON struct {
	ID       flexibleID `json:"id"`
	Filename string     `json:"filename"`
	FileType string     `json:"fileMetadataDescription"`
}

// flexibleID accepts both numeric and string ids.
type flexibleID string

func (f *flexibleID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*f = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*f = flexibleID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("id: %w", err)
	}
	*f = flexibleID(n.String())
	return nil
}

func millisToTime(ms *int64) time.Time {
	if ms == nil {
		return time.Time{}
	}
	return time.UnixMilli(*ms).UTC()
}

func (lj logJSON) toEntry() logbook.LogEntry {
	e := logbook.LogEntry{
		ID:          string(lj.ID),
		Owner:       lj.Owner,
		Title:       lj.Title,
		Description: lj.Description,
		Level:       lj.Level,
		State:       lj.State,
		CreatedDate: millisToTime(lj.CreatedDate),
	}
	if e.Description == "" {
		e.Description = lj.Source
	}
	if lj.ModifyDate != nil {
		t := millisToTime(lj.ModifyDate)
		e.ModifyDate = &t
	}
	for _, lb := range lj.Logbooks {
		e.Logbooks = append(e.Logbooks, lb.Name)
	}
	for _, tag := range lj.Tags {
		e.Tags = append(e.Tags, tag.Name)
	}
	for _, pj := range lj.Properties {
		p := logbook.Property{Name: pj.Name}
		for _, aj := range pj.Attributes {
			p.Attributes = append(p.Attributes, logbook.Attribute{Name: aj.Name, Value: aj.Value})
		}
		e.Properties = append(e.Properties, p)
	}
	for _, aj := range lj.Attachments {
		e.Attachments = append(e.Attachments, logbook.Attachment{
			ID:          string(aj.ID),
			Filename:    aj.Filename,
			ContentType: aj.FileType,
		})
	}
	return e
}
