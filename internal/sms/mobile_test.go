// Ledgerline - Retail Back-Office Alerts and Reporting
// Copyright 2026 Ledgerline Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/ledgerline/ledgerline

package sms

import (
	"strings"
	"testing"
)

func TestNormalizeMobile(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"already international", "252615551234", "252615551234"},
		{"plus prefix", "+252615551234", "252615551234"},
		{"local leading zero", "0615551234", "252615551234"},
		{"bare nine digits", "615551234", "252615551234"},
		{"spaces and dashes", "061-555 1234", "252615551234"},
		{"unknown shape passed through", "4475512345678", "4475512345678"},
		{"empty", "", ""},
		{"no digits", "abc", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := NormalizeMobile(tt.in); got != tt.want {
				t.Errorf("NormalizeMobile(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestValidateMessage(t *testing.T) {
	tests := []struct {
		name    string
		message string
		limit   int
		wantErr bool
	}{
		{"valid", "Invoice SINV-001 is overdue", 160, false},
		{"empty", "", 160, true},
		{"whitespace only", "   ", 160, true},
		{"over limit", strings.Repeat("x", 161), 160, true},
		{"at limit", strings.Repeat("x", 160), 160, false},
		{"limit disabled", strings.Repeat("x", 2000), 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateMessage(tt.message, tt.limit)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateMessage() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestResultFromVendor(t *testing.T) {
	tests := []struct {
		name       string
		resp       vendorResponse
		wantOK     bool
		wantAction string
	}{
		{"success", vendorResponse{ResponseCode: "200", ResponseMessage: "OK"}, true, ""},
		{"auth failed", vendorResponse{ResponseCode: "201"}, false, "Check your API credentials"},
		{"invalid sender", vendorResponse{ResponseCode: "203"}, false, "Check your sender ID configuration"},
		{"zero balance", vendorResponse{ResponseCode: "204"}, false, "Please recharge your SMS account"},
		{"insufficient balance", vendorResponse{ResponseCode: "205"}, false, "Please recharge your SMS account"},
		{"parts exceeded", vendorResponse{ResponseCode: "206"}, false, ""},
		{"wrong mobile", vendorResponse{ResponseCode: "207"}, false, "Verify the mobile number format"},
		{"unknown error", vendorResponse{ResponseCode: "500"}, false, ""},
		{"unmapped code", vendorResponse{ResponseCode: "999"}, false, ""},
		{"codeless with message id", vendorResponse{MessageID: "abc-123"}, true, ""},
		{"codeless without message id", vendorResponse{}, false, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := resultFromVendor(&tt.resp)
			if got.Success != tt.wantOK {
				t.Errorf("Success = %v, want %v", got.Success, tt.wantOK)
			}
			if got.ActionRequired != tt.wantAction {
				t.Errorf("ActionRequired = %q, want %q", got.ActionRequired, tt.wantAction)
			}
			if !tt.wantOK && tt.resp.ResponseCode != "" && got.Error == "" {
				t.Error("expected error message for failure code")
			}
		})
	}
}
