// Package client is the REST client for the tickora backend.
package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/google/uuid"

	"github.com/tickora-io/tickora/internal/apierrors"
	"github.com/tickora-io/tickora/internal/metrics"
	"github.com/tickora-io/tickora/internal/session"
	"github.com/tickora-io/tickora/internal/types"
)

// DefaultBaseURL is the backend used when none is configured.
const DefaultBaseURL = "http://localhost:8000/api"

// HeaderRequestID correlates client requests with backend logs.
const HeaderRequestID = "X-Request-ID"

const refreshPath = "/auth/token/refresh/"

// Client represents the tickora API client
type Client struct {
	httpClient *resty.Client
	authClient *resty.Client
	baseURL    string
	session    *session.Session
	metrics    *metrics.Metrics
	logger     *log.Logger
	refreshMu  sync.Mutex

	// Service clients
	Tickets    *TicketsService
	TimeLogs   *TimeLogsService
	Auth       *AuthService
	Users      *UsersService
	Projects   *ProjectsService
	Comments   *CommentsService
	Activity   *ActivityService
	Attendance *AttendanceService
	Leave      *LeaveService
	Calendar   *CalendarService
	Todos      *TodosService
	Roles      *DepartmentRolesService
	Dashboard  *DashboardService
}

// Config represents client configuration
type Config struct {
	BaseURL    string
	Session    *session.Session
	Metrics    *metrics.Metrics
	Logger     *log.Logger
	UserAgent  string
	Timeout    time.Duration
	RetryCount int
	Debug      bool
	// Transport overrides the HTTP transport, mainly for tests.
	Transport http.RoundTripper
}

// New creates a new tickora API client. GET requests are retried RetryCount times on
// connectivity failures, 429 and 5xx; mutations are never retried.
func New(config *Config) *Client {
	if config == nil {
		config = &Config{}
	}
	if config.BaseURL == "" {
		config.BaseURL = DefaultBaseURL
	}
	if config.UserAgent == "" {
		config.UserAgent = "tickora-cli"
	}
	if config.Timeout == 0 {
		config.Timeout = 30 * time.Second
	}
	if config.RetryCount < 0 {
		config.RetryCount = 0
	}
	if config.Logger == nil {
		config.Logger = log.Default()
	}
	if config.Session == nil {
		config.Session = session.New(nil)
	}
	baseURL := strings.TrimRight(config.BaseURL, "/")

	httpClient := newResty(baseURL, config).
		SetRetryCount(config.RetryCount).
		SetRetryWaitTime(200 * time.Millisecond).
		SetRetryMaxWaitTime(2 * time.Second).
		AddRetryCondition(retryIdempotent)
	authClient := newResty(baseURL, config)

	client := &Client{
		httpClient: httpClient,
		authClient: authClient,
		baseURL:    baseURL,
		session:    config.Session,
		metrics:    config.Metrics,
		logger:     config.Logger,
	}

	// Initialize service clients
	client.Tickets = &TicketsService{client: client}
	client.TimeLogs = &TimeLogsService{client: client}
	client.Auth = &AuthService{client: client}
	client.Users = &UsersService{client: client}
	client.Projects = &ProjectsService{client: client}
	client.Comments = &CommentsService{client: client}
	client.Activity = &ActivityService{client: client}
	client.Attendance = &AttendanceService{client: client}
	client.Leave = &LeaveService{client: client}
	client.Calendar = &CalendarService{client: client}
	client.Todos = &TodosService{client: client}
	client.Roles = &DepartmentRolesService{client: client}
	client.Dashboard = &DashboardService{client: client}

	httpClient.OnBeforeRequest(func(c *resty.Client, req *resty.Request) error {
		return client.setAuth(req)
	})
	for _, rc := range []*resty.Client{httpClient, authClient} {
		rc.OnBeforeRequest(func(c *resty.Client, req *resty.Request) error {
			if req.Header.Get(HeaderRequestID) == "" {
				req.SetHeader(HeaderRequestID, uuid.NewString())
			}
			return nil
		})
		rc.OnAfterResponse(func(c *resty.Client, resp *resty.Response) error {
			client.metrics.ObserveRequest(resp.Request.Method, resp.StatusCode(), resp.Time())
			return nil
		})
		rc.OnError(func(req *resty.Request, err error) {
			client.metrics.ObserveRequest(req.Method, 0, 0)
		})
	}

	return client
}

func newResty(baseURL string, config *Config) *resty.Client {
	rc := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(config.Timeout).
		SetHeader("User-Agent", config.UserAgent).
		SetHeader("Accept", "application/json").
		SetHeader("Content-Type", "application/json").
		SetLogger(restyLogger{config.Logger})
	if config.Transport != nil {
		rc.SetTransport(config.Transport)
	}
	if config.Debug {
		rc.SetDebug(true)
	}
	return rc
}

func retryIdempotent(resp *resty.Response, err error) bool {
	if resp == nil || resp.Request == nil || resp.Request.Method != http.MethodGet {
		return false
	}
	if err != nil {
		return true
	}
	code := resp.StatusCode()
	return code == http.StatusTooManyRequests || code >= http.StatusInternalServerError
}

// Session returns the session the client authenticates with.
func (c *Client) Session() *session.Session {
	return c.session
}

// BaseURL returns the API root.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// setAuth sets authentication headers on requests
func (c *Client) setAuth(req *resty.Request) error {
	if c.session.NeedsRefresh() {
		if err := c.refresh(req.Context(), c.session.AccessToken()); err != nil {
			c.logger.Printf("client: proactive token refresh failed: %v", err)
		}
	}
	if header := c.session.AuthHeader(); header != "" {
		req.SetHeader("Authorization", header)
	}
	return nil
}

// refresh exchanges the refresh token for a new pair. Concurrent callers that observed
// the same stale access token share one exchange.
func (c *Client) refresh(ctx context.Context, stale string) error {
	c.refreshMu.Lock()
	defer c.refreshMu.Unlock()

	if current := c.session.AccessToken(); current != "" && current != stale {
		return nil
	}
	refreshToken := c.session.RefreshToken()
	if refreshToken == "" {
		return apierrors.ErrNotAuthenticated
	}

	var result types.RefreshResponse
	resp, err := c.authClient.R().
		SetContext(ctx).
		SetBody(types.RefreshRequest{Refresh: refreshToken}).
		SetResult(&result).
		Post(refreshPath)
	if err != nil {
		c.metrics.TokenRefresh(false)
		return &apierrors.NetworkError{Operation: http.MethodPost, URL: c.baseURL + refreshPath, Err: err}
	}
	if resp.IsError() {
		c.metrics.TokenRefresh(false)
		return toAPIError(resp)
	}
	if result.Access == "" {
		c.metrics.TokenRefresh(false)
		return apierrors.NewAPIError(resp.StatusCode(), "token refresh returned no access token", string(resp.Body()))
	}
	c.metrics.TokenRefresh(true)
	return c.session.UpdateTokens(ctx, result.Access, result.Refresh)
}

// expire clears a session whose refresh token was rejected.
func (c *Client) expire(ctx context.Context) error {
	if err := c.session.Logout(ctx); err != nil {
		c.logger.Printf("client: clearing expired session: %v", err)
	}
	return apierrors.ErrSessionExpired
}

// do sends one request, refreshing the access token once on 401.
func (c *Client) do(ctx context.Context, method, path string, body, result interface{}) (*resty.Response, error) {
	sentWith := c.session.AccessToken()
	resp, err := c.send(ctx, method, path, body, result)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode() == http.StatusUnauthorized && sentWith != "" && c.session.RefreshToken() != "" {
		if rerr := c.refresh(ctx, sentWith); rerr != nil {
			if apierrors.IsNetwork(rerr) {
				return nil, rerr
			}
			return nil, c.expire(ctx)
		}
		resp, err = c.send(ctx, method, path, body, result)
		if err != nil {
			return nil, err
		}
		if resp.StatusCode() == http.StatusUnauthorized {
			return nil, c.expire(ctx)
		}
	}

	if resp.IsError() {
		return resp, toAPIError(resp)
	}
	return resp, nil
}

func (c *Client) send(ctx context.Context, method, path string, body, result interface{}) (*resty.Response, error) {
	req := c.httpClient.R().SetContext(ctx)
	if body != nil {
		req.SetBody(body)
	}
	if result != nil {
		req.SetResult(result)
	}
	resp, err := req.Execute(method, path)
	if err != nil {
		return nil, &apierrors.NetworkError{Operation: method, URL: c.baseURL + path, Err: err}
	}
	return resp, nil
}

// toAPIError builds the typed error for a non-2xx response.
func toAPIError(resp *resty.Response) *apierrors.APIError {
	raw := resp.Body()
	var body types.ErrorResponse
	reason := ""
	if err := json.Unmarshal(raw, &body); err == nil {
		reason = body.Reason()
	}
	apiErr := apierrors.NewAPIError(resp.StatusCode(), reason, string(raw))
	apiErr.RetryAfter = resp.Header().Get("Retry-After")
	return apiErr
}

// Get performs a GET request
func (c *Client) Get(ctx context.Context, path string, result interface{}) error {
	_, err := c.do(ctx, http.MethodGet, path, nil, result)
	return err
}

// Post performs a POST request
func (c *Client) Post(ctx context.Context, path string, body interface{}, result interface{}) error {
	_, err := c.do(ctx, http.MethodPost, path, body, result)
	return err
}

// Put performs a PUT request
func (c *Client) Put(ctx context.Context, path string, body interface{}, result interface{}) error {
	_, err := c.do(ctx, http.MethodPut, path, body, result)
	return err
}

// Patch performs a PATCH request
func (c *Client) Patch(ctx context.Context, path string, body interface{}, result interface{}) error {
	_, err := c.do(ctx, http.MethodPatch, path, body, result)
	return err
}

// Delete performs a DELETE request
func (c *Client) Delete(ctx context.Context, path string) error {
	_, err := c.do(ctx, http.MethodDelete, path, nil, nil)
	return err
}

// getList fetches a collection that the backend returns either as a bare array or as a
// paginated {"results": [...]} envelope.
func getList[T any](ctx context.Context, c *Client, path string) ([]T, error) {
	resp, err := c.do(ctx, http.MethodGet, path, nil, nil)
	if err != nil {
		return nil, err
	}
	return decodeList[T](resp.Body())
}

func decodeList[T any](raw []byte) ([]T, error) {
	trimmed := strings.TrimSpace(string(raw))
	if trimmed == "" || trimmed == "null" {
		return []T{}, nil
	}
	if strings.HasPrefix(trimmed, "[") {
		var items []T
		if err := json.Unmarshal(raw, &items); err != nil {
			return nil, fmt.Errorf("decode list: %w", err)
		}
		return items, nil
	}
	var page struct {
		Results []T `json:"results"`
	}
	if err := json.Unmarshal(raw, &page); err != nil {
		return nil, fmt.Errorf("decode paginated list: %w", err)
	}
	if page.Results == nil {
		return []T{}, nil
	}
	return page.Results, nil
}

// Ping checks if the API is reachable and the session is accepted.
func (c *Client) Ping(ctx context.Context) error {
	if c.session.State() == session.StateAnonymous {
		return apierrors.ErrNotAuthenticated
	}
	var user types.User
	if err := c.Get(ctx, profilePath, &user); err != nil {
		if errors.Is(err, apierrors.ErrSessionExpired) {
			return err
		}
		return fmt.Errorf("health check failed: %w", err)
	}
	return nil
}

// restyLogger routes resty's debug and warning output to the client logger.
type restyLogger struct {
	l *log.Logger
}

func (r restyLogger) Errorf(format string, v ...interface{}) { r.l.Printf("ERROR resty: "+format, v...) }
func (r restyLogger) Warnf(format string, v ...interface{})  { r.l.Printf("WARN resty: "+format, v...) }
func (r restyLogger) Debugf(format string, v ...interface{}) { r.l.Printf("DEBUG resty: "+format, v...) }
