package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"fieldlog/internal/config"
	"fieldlog/internal/fieldlog"
	"fieldlog/internal/model"
)

// Table names exposed by the remote store.
const (
	tableTimePeriods    = "time_periods"
	tableBreaks         = "time_period_breaks"
	tableUsedFleet      = "time_period_used_fleet"
	tableMobilisedFleet = "time_period_mobilised_fleet"
	tableRevisions      = "time_period_revisions"
)

// Client implements fieldlog.RemoteStore against a PostgREST-style REST API:
// one endpoint per table under /rest/v1, filters as query parameters
// (col=eq.value), writes as JSON bodies.
type Client struct {
	baseURL    string
	apiKey     string
	token      string
	httpClient *http.Client
	logger     fieldlog.Logger
}

var _ fieldlog.RemoteStore = (*Client)(nil)

// NewClient creates a remote store client from configuration.
func NewClient(cfg config.RemoteConfig, logger fieldlog.Logger) *Client {
	timeout := time.Duration(cfg.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		baseURL:    cfg.BaseURL,
		apiKey:     cfg.APIKey,
		token:      cfg.AccessToken,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
	}
}

// do performs one request against a table endpoint. Transport errors and 5xx
// responses map to TransientError (retried by a later drain); other non-2xx
// responses map to RemoteError (permanent).
func (c *Client) do(ctx context.Context, method, table string, query url.Values, prefer string, body any, out any) error {
	op := method + " " + table

	endpoint := c.baseURL + "/rest/v1/" + table
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("%s: encoding request: %w", op, err)
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reqBody)
	if err != nil {
		return fmt.Errorf("%s: building request: %w", op, err)
	}
	req.Header.Set("apikey", c.apiKey)
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if prefer != "" {
		req.Header.Set("Prefer", prefer)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &fieldlog.TransientError{Op: op, Err: err}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return &fieldlog.TransientError{Op: op, Err: err}
	}

	switch {
	case resp.StatusCode >= 500:
		return &fieldlog.TransientError{Op: op, Err: fmt.Errorf("remote store returned %d: %s", resp.StatusCode, respBody)}
	case resp.StatusCode >= 400:
		return &fieldlog.RemoteError{Op: op, Status: resp.StatusCode, Body: string(respBody)}
	}

	if out != nil {
		if err := json.Unmarshal(respBody, out); err != nil {
			return fmt.Errorf("%s: decoding response: %w", op, err)
		}
	}
	return nil
}

// CreateTimePeriod commits a new parent record. The period's client key is
// sent with the row; a unique-violation response means an earlier attempt
// already committed (e.g. a drain interrupted between commit and local
// removal), so the existing row is fetched by client key and returned with
// existed set.
func (c *Client) CreateTimePeriod(ctx context.Context, period *model.TimePeriod) (*model.TimePeriod, bool, error) {
	var rows []model.TimePeriod
	err := c.do(ctx, http.MethodPost, tableTimePeriods, nil, "return=representation", period, &rows)
	if err != nil {
		var re *fieldlog.RemoteError
		if errors.As(err, &re) && re.Status == http.StatusConflict && period.ClientKey != "" {
			existing, lookupErr := c.getByClientKey(ctx, period.ClientKey)
			if lookupErr == nil && existing != nil {
				c.logger.Info("create deduplicated by client key", "client_key", period.ClientKey, "period", existing.ID)
				return existing, true, nil
			}
		}
		return nil, false, err
	}
	if len(rows) == 0 {
		return nil, false, &fieldlog.RemoteError{Op: "POST " + tableTimePeriods, Status: http.StatusOK, Body: "empty representation"}
	}
	return &rows[0], false, nil
}

func (c *Client) getByClientKey(ctx context.Context, clientKey string) (*model.TimePeriod, error) {
	query := url.Values{"client_key": {"eq." + clientKey}}
	var rows []model.TimePeriod
	if err := c.do(ctx, http.MethodGet, tableTimePeriods, query, "", nil, &rows); err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return &rows[0], nil
}

// UpdateTimePeriod overwrites the mutable fields of an existing record.
func (c *Client) UpdateTimePeriod(ctx context.Context, period *model.TimePeriod) error {
	query := url.Values{"id": {"eq." + period.ID}}
	return c.do(ctx, http.MethodPatch, tableTimePeriods, query, "", period, nil)
}

// GetTimePeriod returns a record by id, or nil if it does not exist.
func (c *Client) GetTimePeriod(ctx context.Context, id string) (*model.TimePeriod, error) {
	query := url.Values{"id": {"eq." + id}}
	var rows []model.TimePeriod
	if err := c.do(ctx, http.MethodGet, tableTimePeriods, query, "", nil, &rows); err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return &rows[0], nil
}

// ListTimePeriods returns all committed periods for a user on a work date.
func (c *Client) ListTimePeriods(ctx context.Context, userID, workDate string) ([]model.TimePeriod, error) {
	query := url.Values{
		"user_id":   {"eq." + userID},
		"work_date": {"eq." + workDate},
		"order":     {"start_time.asc"},
	}
	var rows []model.TimePeriod
	if err := c.do(ctx, http.MethodGet, tableTimePeriods, query, "", nil, &rows); err != nil {
		return nil, err
	}
	return rows, nil
}

// replaceChildren deletes a parent's child rows and inserts the new set.
func (c *Client) replaceChildren(ctx context.Context, table, periodID string, rows any, count int) error {
	query := url.Values{"time_period_id": {"eq." + periodID}}
	if err := c.do(ctx, http.MethodDelete, table, query, "", nil, nil); err != nil {
		return err
	}
	if count == 0 {
		return nil
	}
	return c.do(ctx, http.MethodPost, table, nil, "", rows, nil)
}

func (c *Client) ReplaceBreaks(ctx context.Context, periodID string, breaks []model.Break) error {
	return c.replaceChildren(ctx, tableBreaks, periodID, breaks, len(breaks))
}

func (c *Client) ReplaceUsedFleet(ctx context.Context, periodID string, entries []model.UsedFleetEntry) error {
	return c.replaceChildren(ctx, tableUsedFleet, periodID, entries, len(entries))
}

func (c *Client) ReplaceMobilisedFleet(ctx context.Context, periodID string, entries []model.MobilisedFleetEntry) error {
	return c.replaceChildren(ctx, tableMobilisedFleet, periodID, entries, len(entries))
}

// InsertRevisions appends audit-trail rows.
func (c *Client) InsertRevisions(ctx context.Context, records []model.RevisionRecord) error {
	if len(records) == 0 {
		return nil
	}
	return c.do(ctx, http.MethodPost, tableRevisions, nil, "", records, nil)
}

// ListRevisions returns the audit trail for a period.
func (c *Client) ListRevisions(ctx context.Context, periodID string) ([]model.RevisionRecord, error) {
	query := url.Values{
		"time_period_id": {"eq." + periodID},
		"order":          {"revision_number.asc,field_name.asc"},
	}
	var rows []model.RevisionRecord
	if err := c.do(ctx, http.MethodGet, tableRevisions, query, "", nil, &rows); err != nil {
		return nil, err
	}
	return rows, nil
}
