// Ledgerline - Retail Back-Office Alerts and Reporting
// Copyright 2026 Ledgerline Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/ledgerline/ledgerline

package sms

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/goccy/go-json"

	"github.com/ledgerline/ledgerline/internal/config"
	"github.com/ledgerline/ledgerline/internal/logging"
)

//nolint:gochecknoinits // init ensures consistent logging for tests
func init() {
	logging.Init(logging.Config{Level: "error", Format: "console", Output: io.Discard})
}

func testConfig(baseURL string) *config.SMSConfig {
	return &config.SMSConfig{
		Enabled:       true,
		BaseURL:       baseURL,
		Username:      "acct",
		Password:      "secret",
		SenderID:      "LEDGERLINE",
		Timeout:       5 * time.Second,
		RetryAttempts: 1,
		TokenTTL:      50 * time.Second,
		BulkChunkSize: 20,
		RatePerSecond: 100,
		CharLimit:     612,
	}
}

// gatewayStub is a configurable fake Hormuud backend.
type gatewayStub struct {
	tokenCalls atomic.Int32
	sendCalls  atomic.Int32
	sendBody   func(w http.ResponseWriter, r *http.Request)
}

func (g *gatewayStub) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/token", func(w http.ResponseWriter, r *http.Request) {
		g.tokenCalls.Add(1)
		if err := r.ParseForm(); err != nil || r.PostForm.Get("grant_type") != "password" {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"access_token": "tok-1", "token_type": "bearer", "expires_in": 3599,
		})
	})
	mux.HandleFunc("/api/SendSMS", func(w http.ResponseWriter, r *http.Request) {
		g.sendCalls.Add(1)
		if r.Header.Get("Authorization") != "Bearer tok-1" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		g.sendBody(w, r)
	})
	mux.HandleFunc("/api/Outbound/SendBulkSMS", func(w http.ResponseWriter, r *http.Request) {
		g.sendCalls.Add(1)
		g.sendBody(w, r)
	})
	mux.HandleFunc("/api/checkbalance", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"ResponseCode": "200", "Balance": 42.5,
		})
	})
	return mux
}

func vendorOK(w http.ResponseWriter, _ *http.Request) {
	_ = json.NewEncoder(w).Encode(map[string]interface{}{
		"ResponseCode": "200", "ResponseMessage": "OK", "MessageID": "m-1",
	})
}

func TestClientSendSMS(t *testing.T) {
	stub := &gatewayStub{sendBody: vendorOK}
	srv := httptest.NewServer(stub.handler())
	defer srv.Close()

	c := NewClient(testConfig(srv.URL))
	result, err := c.SendSMS(context.Background(), "0615551234", "hello")
	if err != nil {
		t.Fatalf("SendSMS() error = %v", err)
	}
	if !result.Success {
		t.Errorf("SendSMS() result = %+v, want success", result)
	}
	if result.MessageID != "m-1" {
		t.Errorf("MessageID = %q, want m-1", result.MessageID)
	}
}

func TestClientTokenCaching(t *testing.T) {
	stub := &gatewayStub{sendBody: vendorOK}
	srv := httptest.NewServer(stub.handler())
	defer srv.Close()

	c := NewClient(testConfig(srv.URL))
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if _, err := c.SendSMS(ctx, "0615551234", "hello"); err != nil {
			t.Fatalf("SendSMS() #%d error = %v", i, err)
		}
	}
	if got := stub.tokenCalls.Load(); got != 1 {
		t.Errorf("token endpoint hit %d times, want 1 (cached)", got)
	}

	// Expire the cache and confirm a refresh happens.
	c.now = func() time.Time { return time.Now().Add(time.Minute) }
	if _, err := c.SendSMS(ctx, "0615551234", "hello"); err != nil {
		t.Fatalf("SendSMS() after expiry error = %v", err)
	}
	if got := stub.tokenCalls.Load(); got != 2 {
		t.Errorf("token endpoint hit %d times after expiry, want 2", got)
	}
}

func TestClientVendorErrorCode(t *testing.T) {
	stub := &gatewayStub{sendBody: func(w http.ResponseWriter, _ *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"ResponseCode": "205", "ResponseMessage": "balance too low",
		})
	}}
	srv := httptest.NewServer(stub.handler())
	defer srv.Close()

	c := NewClient(testConfig(srv.URL))
	result, err := c.SendSMS(context.Background(), "0615551234", "hello")
	if err != nil {
		t.Fatalf("SendSMS() error = %v", err)
	}
	if result.Success {
		t.Error("expected failure for code 205")
	}
	if result.ActionRequired != "Please recharge your SMS account" {
		t.Errorf("ActionRequired = %q", result.ActionRequired)
	}
}

func TestClientInvalidBodyNotRetried(t *testing.T) {
	stub := &gatewayStub{sendBody: func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("<html>gateway glitch</html>"))
	}}
	srv := httptest.NewServer(stub.handler())
	defer srv.Close()

	cfg := testConfig(srv.URL)
	cfg.RetryAttempts = 3
	c := NewClient(cfg)

	result, err := c.SendSMS(context.Background(), "0615551234", "hello")
	if err != nil {
		t.Fatalf("SendSMS() error = %v", err)
	}
	if result.Success {
		t.Error("expected failure for invalid body")
	}
	// An HTTP 200 with a garbled body must not be retried into a
	// duplicate send.
	if got := stub.sendCalls.Load(); got != 1 {
		t.Errorf("send endpoint hit %d times, want 1", got)
	}
}

func TestClientRetriesServerError(t *testing.T) {
	var failures atomic.Int32
	failures.Store(1)
	stub := &gatewayStub{sendBody: func(w http.ResponseWriter, r *http.Request) {
		if failures.Add(-1) >= 0 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		vendorOK(w, r)
	}}
	srv := httptest.NewServer(stub.handler())
	defer srv.Close()

	cfg := testConfig(srv.URL)
	cfg.RetryAttempts = 2
	c := NewClient(cfg)

	result, err := c.SendSMS(context.Background(), "0615551234", "hello")
	if err != nil {
		t.Fatalf("SendSMS() error = %v", err)
	}
	if !result.Success {
		t.Errorf("result = %+v, want success after retry", result)
	}
	if got := stub.sendCalls.Load(); got != 2 {
		t.Errorf("send endpoint hit %d times, want 2", got)
	}
}

func TestClientSendBulkChunks(t *testing.T) {
	var batchSizes []int
	stub := &gatewayStub{}
	stub.sendBody = func(w http.ResponseWriter, r *http.Request) {
		var batch []bulkMessage
		if err := json.NewDecoder(r.Body).Decode(&batch); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		batchSizes = append(batchSizes, len(batch))
		vendorOK(w, r)
	}
	srv := httptest.NewServer(stub.handler())
	defer srv.Close()

	cfg := testConfig(srv.URL)
	cfg.BulkChunkSize = 20
	c := NewClient(cfg)

	mobiles := make([]string, 45)
	for i := range mobiles {
		mobiles[i] = "61555" + string(rune('0'+i%10)) + "000"
	}

	results, err := c.SendBulk(context.Background(), mobiles, "promo")
	if err != nil {
		t.Fatalf("SendBulk() error = %v", err)
	}
	if len(results) != 3 {
		t.Fatalf("got %d chunk results, want 3", len(results))
	}
	want := []int{20, 20, 5}
	for i, size := range batchSizes {
		if size != want[i] {
			t.Errorf("chunk %d size = %d, want %d", i, size, want[i])
		}
	}
	totalSent := 0
	for _, r := range results {
		totalSent += r.Sent
	}
	if totalSent != 45 {
		t.Errorf("total sent = %d, want 45", totalSent)
	}
}

func TestClientCheckBalance(t *testing.T) {
	stub := &gatewayStub{sendBody: vendorOK}
	srv := httptest.NewServer(stub.handler())
	defer srv.Close()

	c := NewClient(testConfig(srv.URL))
	result, err := c.CheckBalance(context.Background())
	if err != nil {
		t.Fatalf("CheckBalance() error = %v", err)
	}
	if !result.Success || result.Balance != 42.5 {
		t.Errorf("CheckBalance() = %+v, want success with balance 42.5", result)
	}
}

func TestClientMessageValidation(t *testing.T) {
	c := NewClient(testConfig("http://unused"))
	if _, err := c.SendSMS(context.Background(), "0615551234", ""); err == nil {
		t.Error("expected error for empty message")
	}
}
