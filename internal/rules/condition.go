// Ledgerline - Retail Back-Office Alerts and Reporting
// Copyright 2026 Ledgerline Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/ledgerline/ledgerline

/*
condition.go - Rule Condition Evaluation

A rule condition comes in three shapes:

  - empty: always true
  - a JSON object: each key is a document field and each value is either
    an expected value (equality) or an operator map such as
    {">": 1000, "!=": "doc.credit_limit"}. String values prefixed with
    "doc." are resolved against the document before comparing.
  - anything else: a boolean expression evaluated with the document
    bound to "doc", e.g. `doc.grand_total > 1000 && doc.status == "Paid"`.

Evaluation errors never fire a rule; the caller logs them and moves on.
*/

package rules

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/PaesslerAG/gval"
	json "github.com/goccy/go-json"
)

// EvaluateCondition reports whether a rule condition holds for a
// document's field map.
func EvaluateCondition(condition string, fields map[string]interface{}) (bool, error) {
	condition = strings.TrimSpace(condition)
	if condition == "" {
		return true, nil
	}
	if strings.HasPrefix(condition, "{") {
		return evaluateDictCondition(condition, fields)
	}
	return evaluateExpression(condition, fields)
}

func evaluateDictCondition(condition string, fields map[string]interface{}) (bool, error) {
	var clauses map[string]interface{}
	if err := json.Unmarshal([]byte(condition), &clauses); err != nil {
		return false, fmt.Errorf("invalid condition JSON: %w", err)
	}

	for field, expected := range clauses {
		actual := fields[field]
		ops, isOpMap := expected.(map[string]interface{})
		if !isOpMap {
			if !looseEqual(actual, resolveDocRef(expected, fields)) {
				return false, nil
			}
			continue
		}
		for op, operand := range ops {
			ok, err := compare(op, actual, resolveDocRef(operand, fields))
			if err != nil {
				return false, fmt.Errorf("field %s: %w", field, err)
			}
			if !ok {
				return false, nil
			}
		}
	}
	return true, nil
}

func evaluateExpression(expr string, fields map[string]interface{}) (bool, error) {
	result, err := gval.Evaluate(expr, map[string]interface{}{"doc": fields})
	if err != nil {
		return false, fmt.Errorf("expression evaluation failed: %w", err)
	}
	return truthy(result), nil
}

// resolveDocRef replaces "doc.<field>" string operands with the
// document's value for that field.
func resolveDocRef(v interface{}, fields map[string]interface{}) interface{} {
	if s, ok := v.(string); ok && strings.HasPrefix(s, "doc.") {
		return fields[strings.TrimPrefix(s, "doc.")]
	}
	return v
}

func compare(op string, actual, expected interface{}) (bool, error) {
	switch op {
	case "==":
		return looseEqual(actual, expected), nil
	case "!=":
		return !looseEqual(actual, expected), nil
	case ">", ">=", "<", "<=":
		a, aok := toNumber(actual)
		b, bok := toNumber(expected)
		if !aok || !bok {
			return false, fmt.Errorf("operator %q needs numeric operands, got %v and %v", op, actual, expected)
		}
		switch op {
		case ">":
			return a > b, nil
		case ">=":
			return a >= b, nil
		case "<":
			return a < b, nil
		default:
			return a <= b, nil
		}
	case "in":
		return contains(expected, actual)
	case "not in":
		ok, err := contains(expected, actual)
		return !ok, err
	default:
		return false, fmt.Errorf("unknown operator %q", op)
	}
}

// contains handles both list membership and substring matching.
func contains(container, item interface{}) (bool, error) {
	switch c := container.(type) {
	case []interface{}:
		for _, v := range c {
			if looseEqual(item, v) {
				return true, nil
			}
		}
		return false, nil
	case string:
		return strings.Contains(c, fmt.Sprint(item)), nil
	default:
		return false, fmt.Errorf("operator \"in\" needs a list or string, got %T", container)
	}
}

// looseEqual compares numerically when both sides coerce to numbers,
// otherwise by string form. Ledger field maps round-trip through JSON,
// so 1 and 1.0 must compare equal.
func looseEqual(a, b interface{}) bool {
	if a == nil && b == nil {
		return true
	}
	if x, xok := toNumber(a); xok {
		if y, yok := toNumber(b); yok {
			return x == y
		}
	}
	return fmt.Sprint(a) == fmt.Sprint(b)
}

func toNumber(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint64:
		return float64(n), true
	case bool:
		if n {
			return 1, true
		}
		return 0, true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		return f, err == nil
	default:
		return 0, false
	}
}

func truthy(v interface{}) bool {
	switch t := v.(type) {
	case bool:
		return t
	case string:
		return t != ""
	case nil:
		return false
	default:
		if n, ok := toNumber(v); ok {
			return n != 0
		}
		return true
	}
}
