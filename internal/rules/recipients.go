// Ledgerline - Retail Back-Office Alerts and Reporting
// Copyright 2026 Ledgerline Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/ledgerline/ledgerline

package rules

import (
	"context"
	"errors"
	"sort"

	"github.com/ledgerline/ledgerline/internal/database"
	"github.com/ledgerline/ledgerline/internal/models"
)

// resolveRecipients expands a rule's recipient entries into the set of
// enabled users, deduplicated and ordered by username. Unknown or
// disabled users are skipped, not treated as errors.
func (e *Engine) resolveRecipients(ctx context.Context, recipients []models.RecipientRule) ([]models.User, error) {
	seen := make(map[string]bool)
	var users []models.User

	add := func(u models.User) {
		if !u.Enabled || seen[u.Username] {
			return
		}
		seen[u.Username] = true
		users = append(users, u)
	}

	for _, r := range recipients {
		switch r.Type {
		case models.RecipientUser:
			user, err := e.db.GetUser(ctx, r.Value)
			if errors.Is(err, database.ErrNotFound) {
				e.log.Warn().Str("user", r.Value).Msg("Recipient user does not exist, skipping")
				continue
			}
			if err != nil {
				return nil, err
			}
			add(*user)
		case models.RecipientRole:
			roleUsers, err := e.db.GetEnabledUsersByRole(ctx, r.Value)
			if err != nil {
				return nil, err
			}
			for _, u := range roleUsers {
				add(u)
			}
		default:
			e.log.Warn().Str("type", r.Type).Msg("Unknown recipient type, skipping")
		}
	}

	sort.Slice(users, func(i, j int) bool { return users[i].Username < users[j].Username })
	return users, nil
}
