// Package partner is the raw HTTP client for the partner's operator API.
//
// It speaks the partner's wire format and classifies every failure into a
// Category. Pagination, pacing and roster resolution live in the gateway.
package partner

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// PageSize is the largest page the partner serves for session listings.
const PageSize = 150

// Keys holds the partner API keys; each endpoint family has its own.
type Keys struct {
	SessionList     string
	SessionDetail   string
	EnrollmentWrite string
}

// ListOptions selects a page of a structure's sessions.
// From and To are calendar dates already expressed in the structure's timezone.
type ListOptions struct {
	From string
	To   string
	Page int
}

// HTTPClient calls the partner operator API over HTTP/JSON.
type HTTPClient struct {
	baseURL    string
	keys       Keys
	operator   string
	httpClient *http.Client
}

// HTTPClientOption configures the HTTPClient.
type HTTPClientOption func(*HTTPClient)

// WithHTTPClient sets a custom HTTP client (for testing).
func WithHTTPClient(client *http.Client) HTTPClientOption {
	return func(c *HTTPClient) {
		c.httpClient = client
	}
}

// WithOperator overrides the operator header sent with every call.
func WithOperator(operator string) HTTPClientOption {
	return func(c *HTTPClient) {
		c.operator = operator
	}
}

// NewHTTPClient creates a partner client rooted at baseURL.
func NewHTTPClient(baseURL string, keys Keys, timeout time.Duration, opts ...HTTPClientOption) *HTTPClient {
	c := &HTTPClient{
		baseURL:  strings.TrimRight(baseURL, "/"),
		keys:     keys,
		operator: "APPLICATION_CEJ",
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// ListSessions fetches one page of the sessions hosted by a structure.
func (c *HTTPClient) ListSessions(ctx context.Context, token, structureID string, opts ListOptions) (*SessionPage, error) {
	params := url.Values{}
	params.Set("taillePage", strconv.Itoa(PageSize))
	params.Set("rechercheInscrits", "true")
	if opts.From != "" {
		params.Set("dateDebutRecherche", opts.From)
	}
	if opts.To != "" {
		params.Set("dateFinRecherche", opts.To)
	}
	if opts.Page > 1 {
		params.Set("page", strconv.Itoa(opts.Page))
	}

	var page SessionPage
	path := fmt.Sprintf("structures/%s/sessions", url.PathEscape(structureID))
	if err := c.getJSON(ctx, "list_sessions", path, params, c.keys.SessionList, token, &page); err != nil {
		return nil, err
	}
	return &page, nil
}

// GetSession fetches one session with its offer.
func (c *HTTPClient) GetSession(ctx context.Context, token, sessionID string) (*SessionDetailDTO, error) {
	var detail SessionDetailDTO
	path := fmt.Sprintf("sessions/%s", url.PathEscape(sessionID))
	if err := c.getJSON(ctx, "get_session", path, nil, c.keys.SessionDetail, token, &detail); err != nil {
		return nil, err
	}
	return &detail, nil
}

// ListEnrollments fetches the roster of a session.
func (c *HTTPClient) ListEnrollments(ctx context.Context, token, sessionID string) ([]EnrolleeDTO, error) {
	var roster []EnrolleeDTO
	path := fmt.Sprintf("sessions/%s/inscrits", url.PathEscape(sessionID))
	if err := c.getJSON(ctx, "list_enrollments", path, nil, c.keys.SessionDetail, token, &roster); err != nil {
		return nil, err
	}
	return roster, nil
}

// CreateEnrollment enrolls one dossier into a session.
func (c *HTTPClient) CreateEnrollment(ctx context.Context, token, sessionID, dossierID string) error {
	path := fmt.Sprintf("dossiers/%s/instances-session", url.PathEscape(dossierID))
	body, err := json.Marshal(sessionID)
	if err != nil {
		return newError(CategoryInternal, "create_enrollment", 0, "failed to marshal request", err)
	}
	return c.send(ctx, "create_enrollment", http.MethodPost, path, body, token)
}

// UpdateEnrollment changes the status of one enrollment.
func (c *HTTPClient) UpdateEnrollment(ctx context.Context, token string, update EnrollmentUpdate) error {
	path := fmt.Sprintf("dossiers/%s/instances-session/%s",
		url.PathEscape(update.DossierID), url.PathEscape(update.SessionInstanceID))
	body, err := json.Marshal(enrollmentUpdateBody{
		Status:          update.Status,
		Comment:         update.Comment,
		ActualStartDate: update.ActualStartDate,
	})
	if err != nil {
		return newError(CategoryInternal, "update_enrollment", 0, "failed to marshal request", err)
	}
	return c.send(ctx, "update_enrollment", http.MethodPut, path, body, token)
}

// DeleteEnrollment removes one enrollment.
func (c *HTTPClient) DeleteEnrollment(ctx context.Context, token string, ref EnrollmentRef) error {
	path := fmt.Sprintf("dossiers/%s/instances-session/%s",
		url.PathEscape(ref.DossierID), url.PathEscape(ref.SessionInstanceID))
	return c.send(ctx, "delete_enrollment", http.MethodDelete, path, nil, token)
}

func (c *HTTPClient) getJSON(ctx context.Context, endpoint, path string, params url.Values, apiKey, token string, out any) error {
	target := c.url(path)
	if len(params) > 0 {
		target += "?" + params.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return newError(CategoryInternal, endpoint, 0, "failed to create request", err)
	}
	c.setHeaders(req, apiKey, token)

	body, err := c.do(ctx, endpoint, req)
	if err != nil {
		return err
	}
	if len(bytes.TrimSpace(body)) == 0 {
		return newError(CategoryNotFound, endpoint, http.StatusOK, "empty response body", nil)
	}
	if err := json.Unmarshal(body, out); err != nil {
		return newError(CategoryContractMismatch, endpoint, http.StatusOK, "failed to parse response", err)
	}
	return nil
}

func (c *HTTPClient) send(ctx context.Context, endpoint, method, path string, payload []byte, token string) error {
	var reader io.Reader
	if payload != nil {
		reader = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.url(path), reader)
	if err != nil {
		return newError(CategoryInternal, endpoint, 0, "failed to create request", err)
	}
	c.setHeaders(req, c.keys.EnrollmentWrite, token)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	_, err = c.do(ctx, endpoint, req)
	return err
}

// do executes the request and classifies the outcome. It returns the body of 2xx answers.
func (c *HTTPClient) do(ctx context.Context, endpoint string, req *http.Request) ([]byte, error) {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		if errors.Is(ctx.Err(), context.Canceled) {
			return nil, newError(CategoryInternal, endpoint, 0, "request canceled", err)
		}
		// Timeouts and transport failures both mean the partner could not answer.
		return nil, newError(CategoryUnavailable, endpoint, 0, "failed to execute request", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, newError(CategoryUnavailable, endpoint, resp.StatusCode, "failed to read response body", err)
	}

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return body, nil
	case resp.StatusCode == http.StatusNotFound:
		return nil, newError(CategoryNotFound, endpoint, resp.StatusCode, partnerMessage(body, "resource not found"), nil)
	case resp.StatusCode >= 500:
		return nil, newError(CategoryUnavailable, endpoint, resp.StatusCode, "partner unavailable", nil)
	case resp.StatusCode >= 400:
		return nil, newError(CategoryRejected, endpoint, resp.StatusCode, partnerMessage(body, http.StatusText(resp.StatusCode)), nil)
	default:
		return nil, newError(CategoryContractMismatch, endpoint, resp.StatusCode,
			fmt.Sprintf("unexpected status code: %d", resp.StatusCode), nil)
	}
}

func (c *HTTPClient) setHeaders(req *http.Request, apiKey, token string) {
	req.Header.Set("X-Gravitee-Api-Key", apiKey)
	req.Header.Set("operateur", c.operator)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
}

func (c *HTTPClient) url(path string) string {
	return c.baseURL + "/operateurs/" + path
}

// partnerMessage extracts the partner's explanation from an error body, or falls back.
func partnerMessage(body []byte, fallback string) string {
	var eb errorBody
	if json.Unmarshal(body, &eb) == nil && eb.Message != "" {
		return eb.Message
	}
	return fallback
}
