package client

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"

	"github.com/feral-file/ff-drug-registry/internal/adapter"
	"github.com/feral-file/ff-drug-registry/internal/api/shared/dto"
	apierrors "github.com/feral-file/ff-drug-registry/internal/api/shared/errors"
	"github.com/feral-file/ff-drug-registry/internal/domain"
	"github.com/feral-file/ff-drug-registry/internal/logger"
	"github.com/feral-file/ff-drug-registry/internal/registry"
)

const apiPrefix = "/api/v1"

// Config holds registry client configuration
type Config struct {
	BaseURL              string
	MaxRetries           uint64
	RetryInitialInterval time.Duration
}

// Error is a non-2xx response from the registry.
// It unwraps to the matching domain error kind so callers can use domain.IsConflict and friends.
type Error struct {
	StatusCode int
	API        *apierrors.APIError
}

func (e *Error) Error() string {
	if e.API == nil {
		return fmt.Sprintf("registry responded %d", e.StatusCode)
	}
	if e.API.Details != "" {
		return fmt.Sprintf("registry responded %d: %s: %s", e.StatusCode, e.API.Message, e.API.Details)
	}
	return fmt.Sprintf("registry responded %d: %s", e.StatusCode, e.API.Message)
}

func (e *Error) Unwrap() error {
	if e.API == nil {
		return nil
	}
	switch e.API.Code {
	case apierrors.ErrCodeValidationFailed:
		return domain.ErrValidation
	case apierrors.ErrCodeConflict:
		return domain.ErrConflict
	case apierrors.ErrCodeNotFound:
		return domain.ErrNotFound
	default:
		return nil
	}
}

// Client talks to the registry REST API.
// Only GETs are retried; a registration is never replayed.
type Client struct {
	cfg           Config
	http          adapter.HTTPClient
	json          adapter.JSON
	authorization string
}

// New creates a registry client
func New(cfg Config, httpClient adapter.HTTPClient, json adapter.JSON) *Client {
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if cfg.RetryInitialInterval <= 0 {
		cfg.RetryInitialInterval = 250 * time.Millisecond
	}
	return &Client{cfg: cfg, http: httpClient, json: json}
}

// WithAuthorization returns a copy of the client sending the given Authorization header value
func (c *Client) WithAuthorization(value string) *Client {
	cp := *c
	cp.authorization = value
	return &cp
}

// RegisterDrug registers a drug as the authenticated caller and returns its id
func (c *Client) RegisterDrug(ctx context.Context, req dto.RegisterDrugRequest) (string, error) {
	body, err := c.json.Marshal(req)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq := c.newRequest(http.MethodPost, "/drugs", nil)
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Body = body

	resp, err := c.http.Do(ctx, httpReq)
	if err != nil {
		return "", err
	}

	var out dto.RegisterDrugResponse
	if err := c.decode(resp, &out); err != nil {
		return "", err
	}
	return out.ID, nil
}

// GetDrug returns a drug with its expiry evaluated by the registry
func (c *Client) GetDrug(ctx context.Context, id string) (*dto.DrugResponse, error) {
	var out dto.DrugResponse
	if err := c.get(ctx, "/drugs/"+url.PathEscape(id), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Exists reports whether id is registered
func (c *Client) Exists(ctx context.Context, id string) (bool, error) {
	var out dto.ExistsResponse
	if err := c.get(ctx, "/drugs/"+url.PathEscape(id)+"/exists", nil, &out); err != nil {
		return false, err
	}
	return out.Exists, nil
}

// IsExpired reports whether a registered drug has expired
func (c *Client) IsExpired(ctx context.Context, id string) (*dto.ExpiredResponse, error) {
	var out dto.ExpiredResponse
	if err := c.get(ctx, "/drugs/"+url.PathEscape(id)+"/expired", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ListByOwner returns an owner's drug ids in registration order
func (c *Client) ListByOwner(ctx context.Context, owner string) (*dto.OwnerDrugsResponse, error) {
	var out dto.OwnerDrugsResponse
	if err := c.get(ctx, "/owners/"+url.PathEscape(owner)+"/drugs", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// CountByOwner returns how many drugs an owner registered
func (c *Client) CountByOwner(ctx context.Context, owner string) (uint64, error) {
	var out dto.OwnerCountResponse
	if err := c.get(ctx, "/owners/"+url.PathEscape(owner)+"/drugs/count", nil, &out); err != nil {
		return 0, err
	}
	return out.Count, nil
}

// Total returns the number of registered drugs
func (c *Client) Total(ctx context.Context) (uint64, error) {
	var out dto.StatsResponse
	if err := c.get(ctx, "/stats", nil, &out); err != nil {
		return 0, err
	}
	return out.Total, nil
}

// Events returns one page of the registration journal after filter.Anchor
func (c *Client) Events(ctx context.Context, filter domain.EventFilter) (*dto.EventsResponse, error) {
	query := url.Values{}
	query.Set("anchor", strconv.FormatUint(filter.Anchor, 10))
	if filter.Limit > 0 {
		query.Set("limit", strconv.Itoa(filter.Limit))
	}
	if filter.Owner != nil {
		query.Set("owner", string(*filter.Owner))
	}

	var out dto.EventsResponse
	if err := c.get(ctx, "/events", query, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// VerifyLedger asks the registry to walk and verify its journal
func (c *Client) VerifyLedger(ctx context.Context) (*registry.LedgerReport, error) {
	var out registry.LedgerReport
	if err := c.get(ctx, "/ledger/verify", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) newRequest(method, path string, query url.Values) adapter.HTTPRequest {
	u := c.cfg.BaseURL + apiPrefix + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	header := http.Header{"Accept": []string{"application/json"}}
	if c.authorization != "" {
		header.Set("Authorization", c.authorization)
	}
	return adapter.HTTPRequest{Method: method, URL: u, Header: header}
}

// get performs an idempotent GET, retrying network errors, 429 and 5xx with exponential backoff
func (c *Client) get(ctx context.Context, path string, query url.Values, out any) error {
	req := c.newRequest(http.MethodGet, path, query)

	attempts := 0
	var resp *adapter.HTTPResponse
	operation := func() error {
		attempts++
		resp = nil
		r, err := c.http.Do(ctx, req)
		if err != nil {
			return err
		}
		resp = r
		if adapter.IsRetryableStatus(r.StatusCode) {
			return fmt.Errorf("registry responded %d", r.StatusCode)
		}
		return nil
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = c.cfg.RetryInitialInterval
	err := backoff.RetryNotify(operation, backoff.WithContext(backoff.WithMaxRetries(b, c.cfg.MaxRetries), ctx),
		func(err error, wait time.Duration) {
			logger.DebugCtx(ctx, "Retrying registry request",
				zap.String("url", req.URL),
				zap.Int("attempt", attempts),
				zap.Duration("wait", wait),
				zap.Error(err))
		})
	if err != nil {
		// Retries exhausted on a retryable status: surface the registry's error body
		if resp != nil && ctx.Err() == nil {
			return c.decode(resp, out)
		}
		return fmt.Errorf("failed to call registry after %d attempts: %w", attempts, err)
	}

	return c.decode(resp, out)
}

func (c *Client) decode(resp *adapter.HTTPResponse, out any) error {
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var envelope apierrors.ErrorResponse
		if err := c.json.Unmarshal(resp.Body, &envelope); err != nil || envelope.Error == nil {
			return &Error{StatusCode: resp.StatusCode}
		}
		return &Error{StatusCode: resp.StatusCode, API: envelope.Error}
	}

	if err := c.json.Unmarshal(resp.Body, out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// IsUnauthorized reports whether err is a 401 from the registry
func IsUnauthorized(err error) bool {
	var clientErr *Error
	return errors.As(err, &clientErr) && clientErr.StatusCode == http.StatusUnauthorized
}
