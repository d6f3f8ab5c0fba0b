// Ledgerline - Retail Back-Office Alerts and Reporting
// Copyright 2026 Ledgerline Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/ledgerline/ledgerline

/*
client.go - Hormuud SMS Gateway Client

This file provides the core HTTP client for the Hormuud SMS vendor API.

Client Features:
  - Bearer token auth with short-lived token caching (vendor tokens
    expire fast; cached for the configured TTL)
  - Basic auth fallback endpoint for single sends
  - Bulk sends batched to the vendor's per-request limit
  - Balance checks
  - Vendor response-code mapping with operator action hints

Resilience Mechanisms:
  - Circuit Breaker: sony/gobreaker opens after a 60% failure rate
  - Rate Limiting: x/time/rate token bucket on outbound requests
  - Retries: capped exponential backoff (1s, 2s, 4s, capped at 5s);
    an HTTP 200 with an invalid body is returned as-is rather than
    retried, so a send is never duplicated on a garbled response
  - Context: all methods accept context for cancellation
*/
package sms

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/goccy/go-json"
	gobreaker "github.com/sony/gobreaker/v2"
	"golang.org/x/time/rate"

	"github.com/ledgerline/ledgerline/internal/config"
	"github.com/ledgerline/ledgerline/internal/logging"
	"github.com/ledgerline/ledgerline/internal/metrics"
)

// maxErrorBodySize limits how much of a response body is read for error
// reporting.
const maxErrorBodySize = 64 * 1024 // 64KB

// maxRetryWait caps the exponential backoff between retry attempts.
const maxRetryWait = 5 * time.Second

// ErrDisabled is returned when the gateway is not configured.
var ErrDisabled = errors.New("sms: gateway disabled")

// ErrInvalidBody marks an HTTP 200 response whose body could not be
// parsed. Such responses are never retried: the vendor may already have
// accepted the message.
var ErrInvalidBody = errors.New("sms: unparseable gateway response")

// vendorResponse is the common wrapper all Hormuud endpoints return.
type vendorResponse struct {
	ResponseCode    string  `json:"ResponseCode"`
	ResponseMessage string  `json:"ResponseMessage"`
	MessageID       string  `json:"MessageID,omitempty"`
	Balance         float64 `json:"Balance,omitempty"`
	Raw             string  `json:"-"`
}

// tokenResponse is the /token grant response.
type tokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int    `json:"expires_in"`
}

// bulkMessage is one entry of a SendBulkSMS payload.
type bulkMessage struct {
	RefID       string `json:"refid"`
	Mobile      string `json:"mobile"`
	Message     string `json:"message"`
	SenderID    string `json:"senderid"`
	MType       int    `json:"mType"`
	EType       int    `json:"eType"`
	Validity    int    `json:"validity"`
	Delivery    int    `json:"delivery"`
	UDH         string `json:"UDH"`
	RequestDate string `json:"RequestDate"`
}

// Client handles communication with the Hormuud SMS HTTP API.
//
// Thread Safety: safe for concurrent use. The token cache is guarded by
// a mutex; each request creates its own HTTP request.
type Client struct {
	cfg    *config.SMSConfig
	client *http.Client

	breaker *gobreaker.CircuitBreaker[*vendorResponse]
	limiter *rate.Limiter

	tokenMu     sync.Mutex
	token       string
	tokenExpiry time.Time

	// now is swappable for token-cache tests.
	now func() time.Time
}

// NewClient creates a gateway client from configuration.
func NewClient(cfg *config.SMSConfig) *Client {
	breaker := gobreaker.NewCircuitBreaker[*vendorResponse](gobreaker.Settings{
		Name:        "hormuud-sms",
		MaxRequests: 3,
		Interval:    time.Minute,
		Timeout:     2 * time.Minute,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < 10 {
				return false
			}
			return float64(counts.TotalFailures)/float64(counts.Requests) >= 0.6
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logging.Info().
				Str("breaker", name).
				Str("from", from.String()).
				Str("to", to.String()).
				Msg("sms circuit breaker state transition")
			metrics.SetBreakerOpen(to == gobreaker.StateOpen)
		},
	})

	perSecond := cfg.RatePerSecond
	if perSecond <= 0 {
		perSecond = 10
	}

	return &Client{
		cfg:     cfg,
		client:  &http.Client{Timeout: cfg.Timeout},
		breaker: breaker,
		limiter: rate.NewLimiter(rate.Limit(perSecond), perSecond),
		now:     time.Now,
	}
}

// SendSMS sends a single message over the bearer-token endpoint.
func (c *Client) SendSMS(ctx context.Context, mobile, message string) (*SendResult, error) {
	if err := ValidateMessage(message, c.cfg.CharLimit); err != nil {
		return nil, err
	}

	token, err := c.validToken(ctx)
	if err != nil {
		return nil, err
	}

	payload := map[string]interface{}{
		"senderid": c.cfg.SenderID,
		"refid":    "0",
		"mobile":   NormalizeMobile(mobile),
		"message":  message,
		"validity": 0,
	}
	headers := map[string]string{
		"Authorization": "Bearer " + token,
		"Content-Type":  "application/json",
	}

	resp, err := c.post(ctx, "/api/SendSMS", headers, payload)
	if err != nil {
		return nil, err
	}
	return resultFromVendor(resp), nil
}

// SendSMSBasicAuth sends a single message over the basic-auth endpoint.
func (c *Client) SendSMSBasicAuth(ctx context.Context, mobile, message string) (*SendResult, error) {
	if err := ValidateMessage(message, c.cfg.CharLimit); err != nil {
		return nil, err
	}

	payload := map[string]interface{}{
		"refid":    "0",
		"mobile":   NormalizeMobile(mobile),
		"message":  message,
		"senderid": c.cfg.SenderID,
		"validity": 0,
		"delivery": 0,
	}
	headers := map[string]string{
		"Content-Type": "application/json",
	}

	req := func(r *http.Request) {
		r.SetBasicAuth(c.cfg.Username, c.cfg.Password)
	}
	resp, err := c.postWith(ctx, "/api/sms/Send", headers, payload, req)
	if err != nil {
		return nil, err
	}
	return resultFromVendor(resp), nil
}

// SendBulk sends one message to many recipients, batching requests to
// the vendor's per-call limit. Each chunk result is returned in order;
// a failed chunk does not abort the remaining chunks.
func (c *Client) SendBulk(ctx context.Context, mobiles []string, message string) ([]*SendResult, error) {
	if err := ValidateMessage(message, c.cfg.CharLimit); err != nil {
		return nil, err
	}
	if len(mobiles) == 0 {
		return nil, errors.New("sms: no recipients")
	}

	token, err := c.validToken(ctx)
	if err != nil {
		return nil, err
	}
	headers := map[string]string{
		"Authorization": "Bearer " + token,
		"Content-Type":  "application/json",
	}

	chunkSize := c.cfg.BulkChunkSize
	if chunkSize <= 0 {
		chunkSize = 20
	}

	now := c.now().UTC().Format(time.RFC3339)
	var results []*SendResult
	for start := 0; start < len(mobiles); start += chunkSize {
		end := start + chunkSize
		if end > len(mobiles) {
			end = len(mobiles)
		}

		payload := make([]bulkMessage, 0, end-start)
		for _, mobile := range mobiles[start:end] {
			payload = append(payload, bulkMessage{
				RefID:       "bulk-ref",
				Mobile:      NormalizeMobile(mobile),
				Message:     message,
				SenderID:    c.cfg.SenderID,
				RequestDate: now,
			})
		}

		resp, err := c.post(ctx, "/api/Outbound/SendBulkSMS", headers, payload)
		if err != nil {
			logging.Error().Err(err).Int("chunk_size", end-start).Msg("bulk sms chunk failed")
			results = append(results, &SendResult{
				Success:   false,
				Error:     err.Error(),
				Requested: end - start,
			})
			continue
		}

		r := resultFromVendor(resp)
		r.Requested = end - start
		if r.Success {
			r.Sent = end - start
		}
		results = append(results, r)
	}
	return results, nil
}

// CheckBalance queries the prepaid account balance.
func (c *Client) CheckBalance(ctx context.Context) (*BalanceResult, error) {
	token, err := c.validToken(ctx)
	if err != nil {
		return nil, err
	}

	headers := map[string]string{
		"Authorization": "Bearer " + token,
		"Content-Type":  "application/json",
	}
	payload := map[string]string{"service": "smsapi"}

	resp, err := c.post(ctx, "/api/checkbalance", headers, payload)
	if err != nil {
		return nil, err
	}

	r := resultFromVendor(resp)
	return &BalanceResult{
		Success: r.Success,
		Balance: resp.Balance,
		Raw:     resp.Raw,
		Error:   r.Error,
	}, nil
}

// validToken returns a cached bearer token, fetching a fresh one when
// the cache is empty or expired.
func (c *Client) validToken(ctx context.Context) (string, error) {
	c.tokenMu.Lock()
	defer c.tokenMu.Unlock()

	if c.token != "" && c.now().Before(c.tokenExpiry) {
		return c.token, nil
	}

	token, err := c.fetchToken(ctx)
	if err != nil {
		return "", err
	}
	c.token = token
	c.tokenExpiry = c.now().Add(c.cfg.TokenTTL)
	return token, nil
}

// fetchToken requests a bearer token with the password grant.
func (c *Client) fetchToken(ctx context.Context) (string, error) {
	form := url.Values{}
	form.Set("grant_type", "password")
	form.Set("username", c.cfg.Username)
	form.Set("password", c.cfg.Password)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.cfg.BaseURL+"/token", strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("sms: create token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	if err := c.limiter.Wait(ctx); err != nil {
		return "", err
	}

	resp, err := c.client.Do(req)
	if err != nil {
		metrics.RecordSMSRequest("token", "error")
		return "", fmt.Errorf("sms: token request failed: %w", err)
	}
	defer closeQuietly(resp.Body)

	if resp.StatusCode != http.StatusOK {
		metrics.RecordSMSRequest("token", "error")
		body := readBodyForError(resp.Body)
		return "", fmt.Errorf("sms: token request returned status %d: %s", resp.StatusCode, string(body))
	}

	var tr tokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&tr); err != nil {
		metrics.RecordSMSRequest("token", "error")
		return "", fmt.Errorf("sms: decode token response: %w", err)
	}
	if tr.AccessToken == "" {
		metrics.RecordSMSRequest("token", "error")
		return "", errors.New("sms: token response missing access_token")
	}

	metrics.RecordSMSRequest("token", "success")
	return tr.AccessToken, nil
}

// post sends a JSON payload through the breaker with retries.
func (c *Client) post(ctx context.Context, path string, headers map[string]string, payload interface{}) (*vendorResponse, error) {
	return c.postWith(ctx, path, headers, payload, nil)
}

// postWith is post with an extra request mutator (used for basic auth).
//
// Retry policy: network errors and non-200 statuses are retried with
// capped exponential backoff. An HTTP 200 whose body does not parse as
// a vendor response is returned immediately with ErrInvalidBody wrapped
// into the response, because retrying could double-send the message.
func (c *Client) postWith(ctx context.Context, path string, headers map[string]string, payload interface{}, mutate func(*http.Request)) (*vendorResponse, error) {
	endpoint := endpointLabel(path)

	resp, err := c.breaker.Execute(func() (*vendorResponse, error) {
		body, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("sms: encode payload: %w", err)
		}

		attempts := c.cfg.RetryAttempts
		if attempts < 1 {
			attempts = 1
		}

		var lastErr error
		for attempt := 0; attempt < attempts; attempt++ {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			if err := c.limiter.Wait(ctx); err != nil {
				return nil, err
			}

			vr, retryable, err := c.doOnce(ctx, path, headers, body, mutate)
			if err == nil {
				metrics.RecordSMSRequest(endpoint, "success")
				return vr, nil
			}
			if !retryable {
				metrics.RecordSMSRequest(endpoint, "invalid_body")
				return vr, nil
			}

			lastErr = err
			logging.Warn().Err(err).Int("attempt", attempt+1).Str("path", path).Msg("sms request attempt failed")

			if attempt == attempts-1 {
				break
			}
			wait := time.Duration(1<<uint(attempt)) * time.Second
			if wait > maxRetryWait {
				wait = maxRetryWait
			}
			select {
			case <-time.After(wait):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}

		metrics.RecordSMSRequest(endpoint, "error")
		return nil, fmt.Errorf("sms: POST %s failed after %d attempts: %w", path, attempts, lastErr)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			metrics.RecordSMSRequest(endpoint, "rejected")
			logging.Warn().Err(err).Str("path", path).Msg("sms request rejected by circuit breaker")
		}
		return nil, err
	}
	return resp, nil
}

// doOnce performs a single HTTP attempt. The second return value
// reports whether the failure is retryable.
func (c *Client) doOnce(ctx context.Context, path string, headers map[string]string, body []byte, mutate func(*http.Request)) (*vendorResponse, bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+path, bytes.NewReader(body))
	if err != nil {
		return nil, false, fmt.Errorf("sms: create request: %w", err)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	if mutate != nil {
		mutate(req)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, true, fmt.Errorf("sms: request failed: %w", err)
	}
	defer closeQuietly(resp.Body)

	if resp.StatusCode != http.StatusOK {
		b := readBodyForError(resp.Body)
		return nil, true, fmt.Errorf("sms: gateway returned status %d: %s", resp.StatusCode, string(b))
	}

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodySize))
	if err != nil {
		return nil, true, fmt.Errorf("sms: read response: %w", err)
	}

	var vr vendorResponse
	if err := json.Unmarshal(raw, &vr); err != nil || (vr.ResponseCode == "" && vr.MessageID == "") {
		// HTTP 200 with an unparseable or codeless body: the vendor may
		// have accepted the message, so surface it without retrying.
		logging.Warn().Str("path", path).Str("body", string(raw)).Msg("sms gateway returned invalid response body")
		vr.Raw = string(raw)
		vr.ResponseMessage = ErrInvalidBody.Error()
		return &vr, false, ErrInvalidBody
	}
	vr.Raw = string(raw)
	return &vr, true, nil
}

// endpointLabel reduces a request path to a low-cardinality metric label.
func endpointLabel(path string) string {
	switch path {
	case "/api/SendSMS":
		return "send"
	case "/api/sms/Send":
		return "send_basic"
	case "/api/Outbound/SendBulkSMS":
		return "send_bulk"
	case "/api/checkbalance":
		return "balance"
	default:
		return "other"
	}
}

// readBodyForError reads at most maxErrorBodySize bytes for diagnostics.
func readBodyForError(r io.Reader) []byte {
	body, err := io.ReadAll(io.LimitReader(r, maxErrorBodySize))
	if err != nil {
		return []byte("(failed to read response body)")
	}
	if len(body) == maxErrorBodySize {
		return append(body, []byte("\n... (truncated)")...)
	}
	return body
}

func closeQuietly(c io.Closer) {
	_ = c.Close()
}
