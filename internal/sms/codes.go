// Ledgerline - Retail Back-Office Alerts and Reporting
// Copyright 2026 Ledgerline Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/ledgerline/ledgerline

package sms

// Vendor response codes returned by the Hormuud gateway.
const (
	CodeSuccess             = "200"
	CodeAuthFailed          = "201"
	CodeInvalidSenderID     = "203"
	CodeZeroBalance         = "204"
	CodeInsufficientBalance = "205"
	CodePartsExceeded       = "206"
	CodeWrongMobile         = "207"
	CodeUnknown             = "500"
)

// responseCodeMessages maps vendor codes to human-readable status text.
var responseCodeMessages = map[string]string{
	CodeSuccess:             "SUCCESS",
	CodeAuthFailed:          "Authentication Failed",
	CodeInvalidSenderID:     "Invalid Sender ID",
	CodeZeroBalance:         "Zero Balance (Prepaid Account)",
	CodeInsufficientBalance: "Insufficient Balance (Prepaid Account)",
	CodePartsExceeded:       "The allowed message parts are exceeded",
	CodeWrongMobile:         "Wrong mobile number",
	CodeUnknown:             "Unknown Error",
}

// responseCodeActions maps error codes to operator action hints.
var responseCodeActions = map[string]string{
	CodeAuthFailed:          "Check your API credentials",
	CodeInvalidSenderID:     "Check your sender ID configuration",
	CodeZeroBalance:         "Please recharge your SMS account",
	CodeInsufficientBalance: "Please recharge your SMS account",
	CodeWrongMobile:         "Verify the mobile number format",
}

// SendResult is the structured outcome of one gateway call.
type SendResult struct {
	Success        bool   `json:"success"`
	ResponseCode   string `json:"response_code,omitempty"`
	StatusMessage  string `json:"status_message,omitempty"`
	VendorMessage  string `json:"vendor_message,omitempty"`
	MessageID      string `json:"message_id,omitempty"`
	ActionRequired string `json:"action_required,omitempty"`
	Error          string `json:"error,omitempty"`
	Raw            string `json:"raw_response,omitempty"`
	Requested      int    `json:"requested,omitempty"`
	Sent           int    `json:"sent,omitempty"`
}

// BalanceResult is the outcome of a balance check.
type BalanceResult struct {
	Success bool    `json:"success"`
	Balance float64 `json:"balance"`
	Error   string  `json:"error,omitempty"`
	Raw     string  `json:"raw_response,omitempty"`
}

// resultFromVendor maps the raw vendor wrapper to a SendResult.
func resultFromVendor(vr *vendorResponse) *SendResult {
	r := &SendResult{
		ResponseCode:  vr.ResponseCode,
		VendorMessage: vr.ResponseMessage,
		MessageID:     vr.MessageID,
		Raw:           vr.Raw,
	}

	// Some endpoints return a MessageID without a code on success.
	if vr.ResponseCode == "" {
		r.Success = vr.MessageID != ""
		if !r.Success {
			r.Error = "unknown response format from gateway"
		}
		return r
	}

	status, ok := responseCodeMessages[vr.ResponseCode]
	if !ok {
		status = "Unknown Status Code"
	}
	r.StatusMessage = status

	if vr.ResponseCode == CodeSuccess {
		r.Success = true
		return r
	}

	r.Error = status
	r.ActionRequired = responseCodeActions[vr.ResponseCode]
	return r
}
