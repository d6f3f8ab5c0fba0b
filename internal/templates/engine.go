// Ledgerline - Retail Back-Office Alerts and Reporting
// Copyright 2026 Ledgerline Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/ledgerline/ledgerline

// Package templates renders notification subjects and message bodies.
//
// engine.go - Notification Template Engine
//
// This file implements the template rendering engine for notification
// rules:
//   - Go template-based rendering with message and subject support
//   - Built-in functions for formatting currency, dates, and numbers
//   - A document context exposing current fields, pre-save values, and
//     per-field old_<name> shortcuts
//
// Rule authors reference document fields directly ({{.customer}}) and
// prior values through {{.doc_before_save.status}} or {{.old_status}}.
package templates

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"
	"text/template"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ledgerline/ledgerline/internal/models"
)

// Engine handles notification template rendering.
type Engine struct {
	// currencySymbol prefixes formatCurrency output.
	currencySymbol string

	// funcMap provides custom template functions.
	funcMap template.FuncMap
}

// NewEngine creates a new template engine with standard functions.
func NewEngine(currencySymbol string) *Engine {
	e := &Engine{currencySymbol: currencySymbol}
	e.funcMap = e.buildFuncMap()
	return e
}

// buildFuncMap creates the template function map.
func (e *Engine) buildFuncMap() template.FuncMap {
	return template.FuncMap{
		// Currency and number formatting
		"formatCurrency": func(v interface{}) string {
			return e.currencySymbol + " " + formatWithCommas(toFloat(v))
		},
		"formatNumber": func(v interface{}) string {
			return formatWithCommas(toFloat(v))
		},
		"formatFloat": func(v interface{}, precision int) string {
			return fmt.Sprintf("%.*f", precision, toFloat(v))
		},
		"formatPercent": func(v interface{}) string {
			return fmt.Sprintf("%.1f%%", toFloat(v))
		},

		// Date/time formatting
		"formatDate": func(v interface{}) string {
			t, ok := toTime(v)
			if !ok {
				return fmt.Sprint(v)
			}
			return t.Format("2006-01-02")
		},
		"formatDateLong": func(v interface{}) string {
			t, ok := toTime(v)
			if !ok {
				return fmt.Sprint(v)
			}
			return t.Format("January 2, 2006")
		},
		"formatDateTime": func(v interface{}) string {
			t, ok := toTime(v)
			if !ok {
				return fmt.Sprint(v)
			}
			return t.Format("2006-01-02 15:04")
		},
		"now": time.Now,

		// String manipulation
		"truncate": func(s string, maxLen int) string {
			if len(s) <= maxLen {
				return s
			}
			if maxLen <= 3 {
				return s[:maxLen]
			}
			return s[:maxLen-3] + "..."
		},
		"toLowerCase": strings.ToLower,
		"toUpperCase": strings.ToUpper,
		"trim":        strings.TrimSpace,
		"replace":     strings.ReplaceAll,
		"join":        strings.Join,
		"contains":    strings.Contains,

		// Conditional helpers
		"default": func(def, val interface{}) interface{} {
			if val == nil || val == "" {
				return def
			}
			return val
		},
		"ifelse": func(cond bool, trueVal, falseVal interface{}) interface{} {
			if cond {
				return trueVal
			}
			return falseVal
		},

		// Math helpers operating on document field values
		"add": func(a, b interface{}) float64 {
			return toFloat(a) + toFloat(b)
		},
		"sub": func(a, b interface{}) float64 {
			return toFloat(a) - toFloat(b)
		},
		"mul": func(a, b interface{}) float64 {
			return toFloat(a) * toFloat(b)
		},
		"div": func(a, b interface{}) float64 {
			d := toFloat(b)
			if d == 0 {
				return 0
			}
			return toFloat(a) / d
		},
	}
}

// BuildContext assembles the rendering context for a document event.
//
// The returned map contains every current field keyed by its fieldname,
// the reserved keys doctype, name, event, and docstatus, the full
// pre-save snapshot under doc_before_save, and an old_<field> entry for
// each field whose value changed.
func BuildContext(evt *models.DocumentEvent) map[string]interface{} {
	ctx := make(map[string]interface{}, len(evt.Fields)+len(evt.Previous)+4)
	for k, v := range evt.Fields {
		ctx[k] = v
	}
	ctx["doctype"] = evt.Doctype
	ctx["name"] = evt.Name
	ctx["event"] = evt.Event
	ctx["docstatus"] = evt.Docstatus

	before := make(map[string]interface{}, len(evt.Previous))
	for k, v := range evt.Previous {
		before[k] = v
		if cur, ok := evt.Fields[k]; !ok || fmt.Sprint(cur) != fmt.Sprint(v) {
			ctx["old_"+k] = v
		}
	}
	ctx["doc_before_save"] = before
	return ctx
}

// RenderSubject renders a subject line with variable substitution.
func (e *Engine) RenderSubject(subjectTemplate string, data map[string]interface{}) (string, error) {
	tmpl, err := template.New("subject").Funcs(e.funcMap).Option("missingkey=zero").Parse(subjectTemplate)
	if err != nil {
		return "", fmt.Errorf("failed to parse subject template: %w", err)
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("failed to execute subject template: %w", err)
	}

	return strings.TrimSpace(stripNoValue(buf.String())), nil
}

// RenderMessage renders a message body with variable substitution.
func (e *Engine) RenderMessage(messageTemplate string, data map[string]interface{}) (string, error) {
	tmpl, err := template.New("message").Funcs(e.funcMap).Option("missingkey=zero").Parse(messageTemplate)
	if err != nil {
		return "", fmt.Errorf("failed to parse message template: %w", err)
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("failed to execute message template: %w", err)
	}

	return stripNoValue(buf.String()), nil
}

// Validate checks if a template is syntactically valid.
func (e *Engine) Validate(templateContent string) error {
	_, err := template.New("validate").Funcs(e.funcMap).Parse(templateContent)
	if err != nil {
		return fmt.Errorf("invalid template syntax: %w", err)
	}
	return nil
}

// stripNoValue replaces the text/template placeholder for missing map
// keys with an empty string so rule output stays readable.
func stripNoValue(s string) string {
	return strings.ReplaceAll(s, "<no value>", "")
}

// toFloat coerces document field values into float64 for formatting.
func toFloat(v interface{}) float64 {
	switch n := v.(type) {
	case float64:
		return n
	case float32:
		return float64(n)
	case int:
		return float64(n)
	case int64:
		return float64(n)
	case decimal.Decimal:
		f, _ := n.Float64()
		return f
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		if err != nil {
			return 0
		}
		return f
	case nil:
		return 0
	default:
		return 0
	}
}

// toTime coerces document field values into time.Time. Date fields
// arrive as strings in either date or datetime layout.
func toTime(v interface{}) (time.Time, bool) {
	switch t := v.(type) {
	case time.Time:
		return t, true
	case string:
		for _, layout := range []string{"2006-01-02", "2006-01-02 15:04:05", time.RFC3339} {
			if parsed, err := time.Parse(layout, t); err == nil {
				return parsed, true
			}
		}
	}
	return time.Time{}, false
}

// formatWithCommas renders a float with thousands separators and two
// decimal places.
func formatWithCommas(f float64) string {
	neg := f < 0
	if neg {
		f = -f
	}
	s := strconv.FormatFloat(f, 'f', 2, 64)
	intPart, fracPart, _ := strings.Cut(s, ".")

	var b strings.Builder
	if neg {
		b.WriteByte('-')
	}
	for i, r := range intPart {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(r)
	}
	b.WriteByte('.')
	b.WriteString(fracPart)
	return b.String()
}
