// Qualisight - Manufacturing Quality Analytics
// Copyright 2026 Qualisight Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/qualisight/qualisight

package cache

import (
	"strings"
	"time"
)

// DefaultTTL is the lifetime assigned to queries that match no category rule.
const DefaultTTL = 5 * time.Minute

// ttlRule assigns a lifetime class to query identifiers containing any of its
// substrings (matched case-insensitively).
type ttlRule struct {
	category   string
	substrings []string
	ttl        time.Duration
}

// ttlRules is evaluated top-down; the first rule with a matching substring
// wins. The order below is the contract: "realtime_user_count" is realtime,
// not user or aggregation.
var ttlRules = []ttlRule{
	{category: "realtime", substrings: []string{"realtime"}, ttl: 30 * time.Second},
	{category: "list", substrings: []string{"list"}, ttl: 2 * time.Minute},
	{category: "statistics", substrings: []string{"statistics", "analytics", "dashboard"}, ttl: 10 * time.Minute},
	{category: "config", substrings: []string{"config", "settings"}, ttl: 15 * time.Minute},
	{category: "user", substrings: []string{"user", "auth"}, ttl: 1 * time.Minute},
	{category: "aggregation", substrings: []string{"count", "sum", "avg"}, ttl: 5 * time.Minute},
}

// ResolveTTL returns the default lifetime for a query identifier based on the
// ordered category rule table, falling back to DefaultTTL.
func ResolveTTL(queryID string) time.Duration {
	lower := strings.ToLower(queryID)
	for _, rule := range ttlRules {
		for _, sub := range rule.substrings {
			if strings.Contains(lower, sub) {
				return rule.ttl
			}
		}
	}
	return DefaultTTL
}

// ResolveCategory returns the TTL category name a query identifier falls
// into, or "default" when no rule matches. Used for logging and metrics.
func ResolveCategory(queryID string) string {
	lower := strings.ToLower(queryID)
	for _, rule := range ttlRules {
		for _, sub := range rule.substrings {
			if strings.Contains(lower, sub) {
				return rule.category
			}
		}
	}
	return "default"
}
