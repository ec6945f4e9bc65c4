// Package remote talks to the shared cloud store: a Firebase-RTDB-style
// JSON REST API. Collections are flat maps keyed by server-generated push
// keys; cross-record references are those string keys.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/sethvargo/go-retry"

	"github.com/avelar/hometask/internal/model"
)

const defaultTimeout = 10 * time.Second

// HouseholdRecord is the remote wire format for a household. Credentials
// travel as hash+salt so any device can verify a login offline of the
// device that registered.
type HouseholdRecord struct {
	Name         string `json:"name"`
	Email        string `json:"email"`
	PasswordHash string `json:"passwordHash"`
	Salt         string `json:"salt"`
}

type PersonRecord struct {
	Name        string `json:"name"`
	HouseholdID string `json:"householdId"`
}

type TaskRecord struct {
	Title             string `json:"title"`
	Description       string `json:"description"`
	DueMillis         *int64 `json:"dueDateMillis,omitempty"`
	Priority          string `json:"priority"`
	AssigneeID        string `json:"assigneeId,omitempty"`
	IsRecurring       bool   `json:"isRecurring"`
	RecurringInterval string `json:"recurringInterval,omitempty"`
	HouseholdID       string `json:"householdId"`
	Status            string `json:"status"`
}

type Config struct {
	BaseURL string
	Timeout time.Duration
}

type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger
}

func NewClient(cfg Config, logger *slog.Logger) *Client {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = defaultTimeout
	}
	return &Client{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
	}
}

// --- households ---

func (c *Client) PushHousehold(ctx context.Context, rec HouseholdRecord) (string, error) {
	return c.push(ctx, "households", rec)
}

func (c *Client) SetHousehold(ctx context.Context, key string, rec HouseholdRecord) error {
	return c.set(ctx, "households/"+key, rec)
}

func (c *Client) HouseholdsByName(ctx context.Context, name string) (map[string]HouseholdRecord, error) {
	var out map[string]HouseholdRecord
	if err := c.query(ctx, "households", "name", name, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// --- people ---

func (c *Client) PushPerson(ctx context.Context, rec PersonRecord) (string, error) {
	return c.push(ctx, "people", rec)
}

func (c *Client) SetPerson(ctx context.Context, key string, rec PersonRecord) error {
	return c.set(ctx, "people/"+key, rec)
}

func (c *Client) DeletePerson(ctx context.Context, key string) error {
	return c.delete(ctx, "people/"+key)
}

func (c *Client) PeopleByHousehold(ctx context.Context, householdKey string) (map[string]PersonRecord, error) {
	var out map[string]PersonRecord
	if err := c.query(ctx, "people", "householdId", householdKey, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// --- tasks ---

func (c *Client) PushTask(ctx context.Context, rec TaskRecord) (string, error) {
	return c.push(ctx, "tasks", rec)
}

func (c *Client) SetTask(ctx context.Context, key string, rec TaskRecord) error {
	return c.set(ctx, "tasks/"+key, rec)
}

func (c *Client) DeleteTask(ctx context.Context, key string) error {
	return c.delete(ctx, "tasks/"+key)
}

func (c *Client) TasksByHousehold(ctx context.Context, householdKey string) (map[string]TaskRecord, error) {
	var out map[string]TaskRecord
	if err := c.query(ctx, "tasks", "householdId", householdKey, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// --- feed ---

// PushFeedEvent appends an event under the household's feed path.
func (c *Client) PushFeedEvent(ctx context.Context, householdKey string, ev model.FeedEvent) error {
	_, err := c.push(ctx, "feeds/"+householdKey, ev)
	return err
}

// FeedEvents returns the household's feed sorted newest first.
func (c *Client) FeedEvents(ctx context.Context, householdKey string) ([]model.FeedEvent, error) {
	var raw map[string]model.FeedEvent
	if err := c.getJSON(ctx, c.baseURL+"/feeds/"+householdKey+".json", &raw); err != nil {
		return nil, err
	}

	events := make([]model.FeedEvent, 0, len(raw))
	for _, ev := range raw {
		events = append(events, ev)
	}
	sort.Slice(events, func(i, j int) bool {
		return events[i].Timestamp > events[j].Timestamp
	})
	return events, nil
}

// --- transport ---

// push POSTs a record and returns the server-generated key.
// Writes are single-shot: a failed push is dropped and the row is
// reconciled by a later pull, so retrying here would only risk duplicates.
func (c *Client) push(ctx context.Context, path string, v any) (string, error) {
	body, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("marshal record: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/"+path+".json", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("push %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("push %s: remote returned %d", path, resp.StatusCode)
	}

	var out struct {
		Name string `json:"name"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("decode push key: %w", err)
	}
	if out.Name == "" {
		return "", fmt.Errorf("push %s: remote returned empty key", path)
	}
	return out.Name, nil
}

func (c *Client) set(ctx context.Context, path string, v any) error {
	body, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal record: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, c.baseURL+"/"+path+".json", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("set %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("set %s: remote returned %d", path, resp.StatusCode)
	}
	return nil
}

func (c *Client) delete(ctx context.Context, path string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, c.baseURL+"/"+path+".json", nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("delete %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("delete %s: remote returned %d", path, resp.StatusCode)
	}
	return nil
}

// query runs a filtered scan: GET /<coll>.json?orderBy="field"&equalTo="value".
func (c *Client) query(ctx context.Context, collection, field, value string, out any) error {
	params := url.Values{}
	params.Set("orderBy", strconv.Quote(field))
	params.Set("equalTo", strconv.Quote(value))
	return c.getJSON(ctx, c.baseURL+"/"+collection+".json?"+params.Encode(), out)
}

// getJSON GETs and decodes, retrying transient failures with backoff.
// Reads are safe to retry; a missing path decodes JSON null and leaves
// out untouched.
func (c *Client) getJSON(ctx context.Context, rawURL string, out any) error {
	backoff := retry.WithMaxRetries(3, retry.NewFibonacci(200*time.Millisecond))
	return retry.Do(ctx, backoff, func(ctx context.Context) error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
		if err != nil {
			return fmt.Errorf("build request: %w", err)
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			c.logger.Debug("remote read failed, will retry", "url", rawURL, "error", err)
			return retry.RetryableError(fmt.Errorf("get: %w", err))
		}
		defer resp.Body.Close()

		if resp.StatusCode >= 500 {
			c.logger.Debug("remote read failed, will retry", "url", rawURL, "status", resp.StatusCode)
			return retry.RetryableError(fmt.Errorf("remote returned %d", resp.StatusCode))
		}
		if resp.StatusCode != http.StatusOK {
			return fmt.Errorf("remote returned %d", resp.StatusCode)
		}

		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
		return nil
	})
}
