package graph

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// sessionHeader carries the workbook session token on every call that takes
// part in a session-scoped read-modify-write.
const sessionHeader = "Workbook-Session-Id"

// Client issues authenticated requests against the Graph API for one
// workbook. Drive and item identifiers are resolved lazily and cached on the
// instance, so independent clients (parallel tests, multiple workbooks) never
// share state.
//
// Client is safe for concurrent use.
type Client struct {
	httpc    *http.Client
	baseURL  string
	siteURL  string
	fileName string
	tokens   TokenSource
	log      zerolog.Logger

	mu      sync.Mutex
	siteID  string
	driveID string
	itemID  string
}

// Options configures a Client.
type Options struct {
	// BaseURL is the Graph endpoint root, e.g. "https://graph.microsoft.com/v1.0".
	BaseURL string
	// SiteURL identifies the SharePoint site, e.g. "contoso.sharepoint.com:/sites/repairs".
	SiteURL string
	// FileName is the workbook file name searched for in the site drive.
	FileName string
	// HTTPTimeout bounds each request. Zero means 30s.
	HTTPTimeout time.Duration
	// Logger receives request-level debug logs. Zero value is fine.
	Logger zerolog.Logger
}

// NewClient constructs a Client for one workbook with its own resolution cache.
func NewClient(opts Options, tokens TokenSource) *Client {
	timeout := opts.HTTPTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		httpc:    &http.Client{Timeout: timeout},
		baseURL:  opts.BaseURL,
		siteURL:  opts.SiteURL,
		fileName: opts.FileName,
		tokens:   tokens,
		log:      opts.Logger,
	}
}

// Do performs one Graph request. path is appended to the base URL unless it
// is already absolute. A non-empty sessionID is attached via the workbook
// session header. The response body is returned raw; 204 and empty bodies
// yield nil. Non-2xx responses become *APIError (see package doc).
func (c *Client) Do(ctx context.Context, method, path string, body any, sessionID string) (json.RawMessage, error) {
	u := path
	if len(path) > 0 && path[0] == '/' {
		u = c.baseURL + path
	}

	var reqBody io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("graph: marshal request body: %w", err)
		}
		reqBody = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, reqBody)
	if err != nil {
		return nil, fmt.Errorf("graph: build request: %w", err)
	}

	token, err := c.tokens.Token(ctx)
	if err != nil {
		return nil, fmt.Errorf("graph: acquire token: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if sessionID != "" {
		req.Header.Set(sessionHeader, sessionID)
	}

	resp, err := c.httpc.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, newTransportError(err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, newTransportError(err)
	}

	c.log.Debug().
		Str("method", method).
		Str("path", path).
		Int("status", resp.StatusCode).
		Msg("graph request")

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, newAPIError(resp.StatusCode, data)
	}
	if resp.StatusCode == http.StatusNoContent || len(data) == 0 {
		return nil, nil
	}
	return json.RawMessage(data), nil
}

// idOnly captures responses where only the resource id matters.
type idOnly struct {
	ID string `json:"id"`
}

// resolve looks up the site, drive, and workbook item IDs. It caches the
// result for the lifetime of the Client; only identifiers immune to row
// mutations are cached (never row positions).
func (c *Client) resolve(ctx context.Context) (siteID, driveID, itemID string, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.itemID != "" {
		return c.siteID, c.driveID, c.itemID, nil
	}

	raw, err := c.Do(ctx, http.MethodGet, "/sites/"+c.siteURL, nil, "")
	if err != nil {
		return "", "", "", err
	}
	var site idOnly
	if err := json.Unmarshal(raw, &site); err != nil || site.ID == "" {
		return "", "", "", fmt.Errorf("graph: resolve site %q: unexpected response", c.siteURL)
	}

	raw, err = c.Do(ctx, http.MethodGet, "/sites/"+site.ID+"/drive", nil, "")
	if err != nil {
		return "", "", "", err
	}
	var drive idOnly
	if err := json.Unmarshal(raw, &drive); err != nil || drive.ID == "" {
		return "", "", "", fmt.Errorf("graph: resolve drive for site %q: unexpected response", c.siteURL)
	}

	raw, err = c.Do(ctx, http.MethodGet,
		"/sites/"+site.ID+"/drive/root/search(q='"+url.PathEscape(c.fileName)+"')", nil, "")
	if err != nil {
		return "", "", "", err
	}
	var found struct {
		Value []struct {
			ID   string `json:"id"`
			Name string `json:"name"`
		} `json:"value"`
	}
	if err := json.Unmarshal(raw, &found); err != nil {
		return "", "", "", fmt.Errorf("graph: search workbook %q: unexpected response", c.fileName)
	}
	for _, f := range found.Value {
		if f.Name == c.fileName {
			c.siteID, c.driveID, c.itemID = site.ID, drive.ID, f.ID
			return c.siteID, c.driveID, c.itemID, nil
		}
	}
	return "", "", "", &APIError{
		StatusCode: http.StatusNotFound,
		Code:       "itemNotFound",
		Message:    fmt.Sprintf("workbook %q not found in site drive", c.fileName),
		Retryable:  false,
	}
}

// workbookPath returns the API path prefix for workbook operations.
func (c *Client) workbookPath(ctx context.Context) (string, error) {
	siteID, driveID, itemID, err := c.resolve(ctx)
	if err != nil {
		return "", err
	}
	return "/sites/" + siteID + "/drives/" + driveID + "/items/" + itemID + "/workbook", nil
}

// CreateSession opens a workbook session with persisted changes and returns
// its opaque token.
func (c *Client) CreateSession(ctx context.Context) (string, error) {
	wb, err := c.workbookPath(ctx)
	if err != nil {
		return "", err
	}
	raw, err := c.Do(ctx, http.MethodPost, wb+"/createSession",
		map[string]any{"persistChanges": true}, "")
	if err != nil {
		return "", err
	}
	var s idOnly
	if err := json.Unmarshal(raw, &s); err != nil || s.ID == "" {
		return "", fmt.Errorf("graph: createSession: unexpected response")
	}
	return s.ID, nil
}

// CloseSession releases a workbook session. The server expires unclosed
// sessions on its own, so callers may treat failures as non-fatal.
func (c *Client) CloseSession(ctx context.Context, sessionID string) error {
	wb, err := c.workbookPath(ctx)
	if err != nil {
		return err
	}
	_, err = c.Do(ctx, http.MethodPost, wb+"/closeSession", nil, sessionID)
	return err
}

// TableRow is one row of a workbook table: its current positional index and
// a single-row 2D cell grid, as the rows API transmits it.
type TableRow struct {
	Index  int     `json:"index"`
	Values [][]any `json:"values"`
}

// ListRows returns all rows of a named table in positional order.
func (c *Client) ListRows(ctx context.Context, table, sessionID string) ([]TableRow, error) {
	wb, err := c.workbookPath(ctx)
	if err != nil {
		return nil, err
	}
	raw, err := c.Do(ctx, http.MethodGet, wb+"/tables/"+url.PathEscape(table)+"/rows", nil, sessionID)
	if err != nil {
		return nil, err
	}
	var list struct {
		Value []TableRow `json:"value"`
	}
	if err := json.Unmarshal(raw, &list); err != nil {
		return nil, fmt.Errorf("graph: list rows of %q: unexpected response", table)
	}
	return list.Value, nil
}

// AddRow appends one row to a named table.
func (c *Client) AddRow(ctx context.Context, table string, values []any, sessionID string) error {
	wb, err := c.workbookPath(ctx)
	if err != nil {
		return err
	}
	_, err = c.Do(ctx, http.MethodPost, wb+"/tables/"+url.PathEscape(table)+"/rows/add",
		map[string]any{"values": [][]any{values}}, sessionID)
	return err
}

// UpdateRow overwrites the row at a positional index. The index must have
// been resolved inside the same session; positions shift on delete.
func (c *Client) UpdateRow(ctx context.Context, table string, index int, values []any, sessionID string) error {
	wb, err := c.workbookPath(ctx)
	if err != nil {
		return err
	}
	_, err = c.Do(ctx, http.MethodPatch,
		fmt.Sprintf("%s/tables/%s/rows/itemAt(index=%d)", wb, url.PathEscape(table), index),
		map[string]any{"values": [][]any{values}}, sessionID)
	return err
}

// DeleteRow removes the row at a positional index. All subsequent rows shift
// up by one.
func (c *Client) DeleteRow(ctx context.Context, table string, index int, sessionID string) error {
	wb, err := c.workbookPath(ctx)
	if err != nil {
		return err
	}
	_, err = c.Do(ctx, http.MethodDelete,
		fmt.Sprintf("%s/tables/%s/rows/itemAt(index=%d)", wb, url.PathEscape(table), index),
		nil, sessionID)
	return err
}

// FileMetadata fetches the workbook item's metadata. Used as a read-only
// connectivity probe; it has no workbook side effects.
func (c *Client) FileMetadata(ctx context.Context) (json.RawMessage, error) {
	siteID, driveID, itemID, err := c.resolve(ctx)
	if err != nil {
		return nil, err
	}
	return c.Do(ctx, http.MethodGet,
		"/sites/"+siteID+"/drives/"+driveID+"/items/"+itemID+"?$select=id,name,lastModifiedDateTime", nil, "")
}

// Event is a calendar event to be created in the signed-in user's calendar.
type Event struct {
	Subject string
	Body    string
	Start   time.Time
	End     time.Time
}

// CreateCalendarEvent creates an event in the user's default calendar.
// Used by the reminder dispatcher; failures are the caller's to swallow.
func (c *Client) CreateCalendarEvent(ctx context.Context, ev Event) error {
	payload := map[string]any{
		"subject": ev.Subject,
		"body": map[string]any{
			"contentType": "text",
			"content":     ev.Body,
		},
		"start": map[string]any{
			"dateTime": ev.Start.UTC().Format("2006-01-02T15:04:05"),
			"timeZone": "UTC",
		},
		"end": map[string]any{
			"dateTime": ev.End.UTC().Format("2006-01-02T15:04:05"),
			"timeZone": "UTC",
		},
	}
	_, err := c.Do(ctx, http.MethodPost, "/me/events", payload, "")
	return err
}
