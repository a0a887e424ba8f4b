// Package timesheet integrates with the external timesheet system: the keyed
// hour upsert the lifecycle service records through, and the catalog
// endpoints the syncer mirrors from.
package timesheet

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// ErrAPIFailure indicates the API answered with a failure status.
var ErrAPIFailure = errors.New("timesheet API failure")

// Config holds the client configuration.
type Config struct {
	// URL is the API endpoint. All functions multiplex over it via the fct
	// parameter.
	URL string
	// GUID authenticates every call.
	GUID string
	// Timeout bounds each HTTP request; zero means 15 seconds.
	Timeout time.Duration
}

// Client talks to the external timesheet API. The API is a single endpoint
// taking form/query parameters and answering JSON envelopes with a status
// field and an uppercase-keyed results array.
type Client struct {
	cfg    Config
	http   *http.Client
	logger *slog.Logger
}

// NewClient creates a timesheet client.
func NewClient(cfg Config, logger *slog.Logger) (*Client, error) {
	if cfg.URL == "" {
		return nil, errors.New("timesheet URL required")
	}
	if cfg.GUID == "" {
		return nil, errors.New("timesheet GUID required")
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 15 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		cfg:    cfg,
		http:   &http.Client{Timeout: cfg.Timeout},
		logger: logger,
	}, nil
}

type envelope struct {
	Status  string           `json:"status"`
	Results []map[string]any `json:"results"`
}

// SaveTimeItemHours upserts hours on a timesheet line for one weekday.
// day follows the API's convention: Sunday=1 through Saturday=7.
func (c *Client) SaveTimeItemHours(ctx context.Context, lineItemRef string, day int, hours float64) error {
	if day < 1 || day > 7 {
		return fmt.Errorf("day of week %d out of range [1,7]", day)
	}

	form := url.Values{
		"fct":             {"savetimeitemhours"},
		"guid":            {c.cfg.GUID},
		"timesheetlineid": {lineItemRef},
		"day":             {strconv.Itoa(day)},
		"nbhours":         {strconv.FormatFloat(hours, 'f', -1, 64)},
		"format":          {"json"},
	}

	env, err := c.post(ctx, form)
	if err != nil {
		return err
	}
	if err := checkFailure(env); err != nil {
		return err
	}

	c.logger.Debug("recorded time entry", "line", lineItemRef, "day", day, "hours", hours)
	return nil
}

// UserRecord is one user row from the catalog.
type UserRecord struct {
	ID       string
	Username string
	Role     string
}

// GetUsers fetches the user catalog.
func (c *Client) GetUsers(ctx context.Context) ([]UserRecord, error) {
	env, err := c.get(ctx, "getusers", nil)
	if err != nil {
		return nil, err
	}
	if env.Status != "ok" {
		return nil, nil
	}

	var users []UserRecord
	for _, row := range env.Results {
		user := UserRecord{
			ID:       firstField(row, "USER_ID", "ACE_USER_ID", "ID_USER"),
			Username: firstField(row, "USERNAME", "EMAIL"),
			Role:     firstField(row, "ROLE", "USER_ROLE"),
		}
		if user.ID == "" || user.Username == "" {
			continue
		}
		users = append(users, user)
	}
	return users, nil
}

// ProjectRecord is one project row from the catalog.
type ProjectRecord struct {
	ID           string
	Name         string
	Description  string
	SupervisorID string
}

// GetProjects fetches the project catalog.
func (c *Client) GetProjects(ctx context.Context) ([]ProjectRecord, error) {
	env, err := c.get(ctx, "getprojects", nil)
	if err != nil {
		return nil, err
	}

	var projects []ProjectRecord
	for _, row := range env.Results {
		proj := ProjectRecord{
			ID:           firstField(row, "PROJECT_ID"),
			Name:         firstField(row, "PROJECT_NAME"),
			Description:  firstField(row, "PROJECT_DESC"),
			SupervisorID: firstField(row, "PROJECT_CREATOR_ID"),
		}
		if proj.ID == "" {
			continue
		}
		projects = append(projects, proj)
	}
	return projects, nil
}

// TaskRecord is one task row from the catalog, carrying the comma-separated
// assignee list the API embeds in the task row.
type TaskRecord struct {
	ID          string
	ProjectID   string
	Title       string
	Description string
	AssigneeIDs []string
	CreatedAt   string
}

// GetTasks fetches the task catalog.
func (c *Client) GetTasks(ctx context.Context) ([]TaskRecord, error) {
	env, err := c.get(ctx, "gettasks", nil)
	if err != nil {
		return nil, err
	}
	if env.Status != "ok" {
		return nil, nil
	}

	var tasks []TaskRecord
	for _, row := range env.Results {
		task := TaskRecord{
			ID:          firstField(row, "TASK_ID"),
			ProjectID:   firstField(row, "PROJECT_ID"),
			Title:       firstField(row, "TASK_RESUME"),
			Description: firstField(row, "TASK_DESC_CREATOR"),
			AssigneeIDs: splitIDs(firstField(row, "ASSIGNED_ID")),
			CreatedAt:   firstField(row, "DATE_TASK_CREATED"),
		}
		if task.ID == "" {
			continue
		}
		tasks = append(tasks, task)
	}
	return tasks, nil
}

// SaveWorkItem creates a weekly work item for an assignment and returns the
// timesheet line reference subsequent hour upserts key on.
func (c *Client) SaveWorkItem(ctx context.Context, userID, projectID, taskID, weekStart, comments string) (string, error) {
	env, err := c.get(ctx, "saveworkitem", url.Values{
		"userid":     {userID},
		"projectid":  {projectID},
		"taskid":     {taskID},
		"timetypeid": {"1"},
		"weekstart":  {weekStart},
		"comments":   {comments},
	})
	if err != nil {
		return "", err
	}
	if err := checkFailure(env); err != nil {
		return "", err
	}
	if env.Status != "ok" || len(env.Results) == 0 {
		return "", fmt.Errorf("%w: no work item in response", ErrAPIFailure)
	}

	lineID := firstField(env.Results[0], "TIMESHEET_LINE_ID")
	if lineID == "" {
		return "", fmt.Errorf("%w: missing timesheet line id", ErrAPIFailure)
	}
	return lineID, nil
}

// DeleteWorkItem removes a work item by its timesheet line reference.
func (c *Client) DeleteWorkItem(ctx context.Context, lineItemRef string) error {
	env, err := c.get(ctx, "deleteworkitem", url.Values{
		"timesheetlineid": {lineItemRef},
	})
	if err != nil {
		return err
	}
	return checkFailure(env)
}

func (c *Client) get(ctx context.Context, fct string, extra url.Values) (*envelope, error) {
	params := url.Values{
		"fct":    {fct},
		"guid":   {c.cfg.GUID},
		"format": {"json"},
	}
	for k, vs := range extra {
		params[k] = vs
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.URL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("building request: %w", err)
	}
	return c.do(req)
}

func (c *Client) post(ctx context.Context, form url.Values) (*envelope, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.URL, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return c.do(req)
}

func (c *Client) do(req *http.Request) (*envelope, error) {
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("calling timesheet API: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: HTTP %d", ErrAPIFailure, resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response: %w", err)
	}

	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, fmt.Errorf("decoding response: %w", err)
	}
	return &env, nil
}

// checkFailure surfaces the API's error description on a fail status.
func checkFailure(env *envelope) error {
	if env.Status != "fail" {
		return nil
	}
	desc := "unknown error"
	if len(env.Results) > 0 {
		if d := firstField(env.Results[0], "ERRORDESCRIPTION"); d != "" {
			desc = d
		}
	}
	return fmt.Errorf("%w: %s", ErrAPIFailure, desc)
}

// firstField returns the first present key rendered as a string. The API is
// loose about numeric versus string values.
func firstField(row map[string]any, keys ...string) string {
	for _, key := range keys {
		switch v := row[key].(type) {
		case string:
			if v != "" {
				return v
			}
		case float64:
			return strconv.FormatFloat(v, 'f', -1, 64)
		}
	}
	return ""
}

func splitIDs(raw string) []string {
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	var ids []string
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			ids = append(ids, trimmed)
		}
	}
	return ids
}
