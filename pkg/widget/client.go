package widget

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"
)

// Error codes surfaced by the client. Server-sent codes pass through
// unchanged; transport failures are folded into ErrCodeServer.
const (
	ErrCodeValidation  = "VALIDATION_ERROR"
	ErrCodeRateLimited = "RATE_LIMITED"
	ErrCodeNotFound    = "NOT_FOUND"
	ErrCodeServer      = "SERVER_ERROR"
)

// Category and priority values accepted by the backend, checked locally so
// submissions with typos never cost a network round trip.
var (
	validCategories = map[string]bool{
		"bug": true, "feature": true, "improvement": true, "question": true, "other": true,
	}
	validPriorities = map[string]bool{
		"low": true, "medium": true, "high": true, "critical": true,
	}
)

// Error is the structured failure type returned by all client operations.
type Error struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Error implements the error interface.
func (e *Error) Error() string { return e.Code + ": " + e.Message }

// InitConfig is the per-project configuration returned by /widget/init.
type InitConfig struct {
	ProjectID        string       `json:"projectId"`
	Position         string       `json:"position"`
	PrimaryColor     string       `json:"primaryColor"`
	ButtonText       string       `json:"buttonText"`
	ShowBranding     bool         `json:"showBranding"`
	Categories       []string     `json:"categories"`
	CollectEmail     string       `json:"collectEmail"`
	AllowScreenshots bool         `json:"allowScreenshots"`
	AllowReplays     bool         `json:"allowReplays"`
	URLPatterns      []URLPattern `json:"urlPatterns"`
	Tier             string       `json:"tier"`
}

// Submission is one feedback report.
type Submission struct {
	Category   string                 `json:"category"`
	Message    string                 `json:"message"`
	Email      string                 `json:"email,omitempty"`
	Priority   string                 `json:"priority,omitempty"`
	Screenshot string                 `json:"screenshot,omitempty"`
	Metadata   map[string]interface{} `json:"metadata,omitempty"`
}

// Receipt is the server acknowledgement for a stored report.
type Receipt struct {
	ID        string    `json:"id"`
	Category  string    `json:"category"`
	Message   string    `json:"message"`
	Priority  string    `json:"priority"`
	CreatedAt time.Time `json:"createdAt"`
}

// Config configures a Client.
type Config struct {
	// BaseURL is the backend origin, e.g. "https://api.snapback.dev".
	BaseURL string
	// ProjectID identifies the project; required.
	ProjectID string
	// HTTPClient overrides the transport; a 10s-timeout client by default.
	HTTPClient *http.Client
	// OnSubmit is invoked after every successful submission.
	OnSubmit func(Receipt)
	// OnError is invoked with every *Error the client produces.
	OnError func(*Error)
}

// Client talks to the widget surface of a Snapback backend. Safe for
// concurrent use.
type Client struct {
	cfg  Config
	http *http.Client

	mu   sync.Mutex
	init *InitConfig
}

// envelope mirrors the server's uniform response shape.
type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *Error          `json:"error"`
}

// New constructs a Client. Submissions fail with a validation error until a
// project id is set.
func New(cfg Config) *Client {
	hc := cfg.HTTPClient
	if hc == nil {
		hc = &http.Client{Timeout: 10 * time.Second}
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	return &Client{cfg: cfg, http: hc}
}

// Init fetches the widget configuration. The first successful fetch is
// cached; later calls return the cached value without touching the network.
// Any failure means the widget must not render, so Init never half-succeeds:
// callers get either a usable config or an *Error.
func (c *Client) Init(ctx context.Context) (*InitConfig, error) {
	c.mu.Lock()
	if c.init != nil {
		cfg := *c.init
		c.mu.Unlock()
		return &cfg, nil
	}
	c.mu.Unlock()

	if c.cfg.ProjectID == "" {
		return nil, c.fail(&Error{Code: ErrCodeValidation, Message: "project id is required"})
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		c.cfg.BaseURL+"/widget/init?projectId="+c.cfg.ProjectID, nil)
	if err != nil {
		return nil, c.fail(&Error{Code: ErrCodeServer, Message: err.Error()})
	}

	var out InitConfig
	if werr := c.do(req, &out); werr != nil {
		return nil, c.fail(werr)
	}

	c.mu.Lock()
	c.init = &out
	cfg := out
	c.mu.Unlock()
	return &cfg, nil
}

// VisibleOn reports whether the widget should render on pageURL. It is false
// until Init has succeeded: no configuration means no widget.
func (c *Client) VisibleOn(pageURL string) bool {
	c.mu.Lock()
	init := c.init
	c.mu.Unlock()
	if init == nil {
		return false
	}
	return Visible(pageURL, init.URLPatterns)
}

// Submit validates the report locally, then posts it. Validation failures
// never reach the network. The client does not retry: a RATE_LIMITED or
// SERVER_ERROR result leaves retrying to the caller.
func (c *Client) Submit(ctx context.Context, sub Submission) (*Receipt, error) {
	if strings.TrimSpace(sub.Message) == "" {
		return nil, c.fail(&Error{Code: ErrCodeValidation, Message: "message is required"})
	}
	if c.cfg.ProjectID == "" {
		return nil, c.fail(&Error{Code: ErrCodeValidation, Message: "project id is required"})
	}
	if !validCategories[sub.Category] {
		return nil, c.fail(&Error{Code: ErrCodeValidation, Message: "unknown category " + strconv.Quote(sub.Category)})
	}
	if sub.Priority == "" {
		sub.Priority = "medium"
	}
	if !validPriorities[sub.Priority] {
		return nil, c.fail(&Error{Code: ErrCodeValidation, Message: "unknown priority " + strconv.Quote(sub.Priority)})
	}

	payload := struct {
		ProjectID string `json:"projectId"`
		Submission
	}{ProjectID: c.cfg.ProjectID, Submission: sub}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, c.fail(&Error{Code: ErrCodeValidation, Message: err.Error()})
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.cfg.BaseURL+"/widget/submit?projectId="+c.cfg.ProjectID, bytes.NewReader(body))
	if err != nil {
		return nil, c.fail(&Error{Code: ErrCodeServer, Message: err.Error()})
	}
	req.Header.Set("Content-Type", "application/json")

	var out Receipt
	if werr := c.do(req, &out); werr != nil {
		return nil, c.fail(werr)
	}
	if c.cfg.OnSubmit != nil {
		c.cfg.OnSubmit(out)
	}
	return &out, nil
}

// do executes the request and decodes the envelope into v.
func (c *Client) do(req *http.Request, v interface{}) *Error {
	resp, err := c.http.Do(req)
	if err != nil {
		// Timeouts and transport errors all land here; the caller cannot
		// distinguish them from a crashed backend anyway.
		if errors.Is(err, context.Canceled) {
			return &Error{Code: ErrCodeServer, Message: "request canceled"}
		}
		return &Error{Code: ErrCodeServer, Message: err.Error()}
	}
	defer resp.Body.Close()

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		if resp.StatusCode == http.StatusTooManyRequests {
			return &Error{Code: ErrCodeRateLimited, Message: "rate limited"}
		}
		return &Error{Code: ErrCodeServer, Message: "malformed response"}
	}
	if !env.Success || env.Error != nil {
		if env.Error != nil && env.Error.Code != "" {
			return env.Error
		}
		return &Error{Code: ErrCodeServer, Message: "request failed"}
	}
	if v != nil && len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, v); err != nil {
			return &Error{Code: ErrCodeServer, Message: "malformed response payload"}
		}
	}
	return nil
}

// fail routes an error through the OnError hook before returning it.
func (c *Client) fail(e *Error) *Error {
	if c.cfg.OnError != nil {
		c.cfg.OnError(e)
	}
	return e
}
