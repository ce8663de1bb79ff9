// Qualisight - Manufacturing Quality Analytics
// Copyright 2026 Qualisight Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/qualisight/qualisight

package cache

import (
	"testing"
	"time"
)

func TestResolveTTL_Tiers(t *testing.T) {
	tests := []struct {
		queryID string
		want    time.Duration
	}{
		{"realtime_metrics", 30 * time.Second},
		{"product_list", 2 * time.Minute},
		{"defect_statistics", 10 * time.Minute},
		{"oee_analytics", 10 * time.Minute},
		{"dashboard_summary", 10 * time.Minute},
		{"device_config", 15 * time.Minute},
		{"alert_settings", 15 * time.Minute},
		{"user_profile", time.Minute},
		{"auth_state", time.Minute},
		{"defect_count", 5 * time.Minute},
		{"yield_sum", 5 * time.Minute},
		{"cycle_avg", 5 * time.Minute},
		{"golden_sample", DefaultTTL},
	}
	for _, tt := range tests {
		if got := ResolveTTL(tt.queryID); got != tt.want {
			t.Errorf("ResolveTTL(%q) = %v, want %v", tt.queryID, got, tt.want)
		}
	}
}

func TestResolveTTL_CaseInsensitive(t *testing.T) {
	if got := ResolveTTL("Dashboard_Summary"); got != 10*time.Minute {
		t.Errorf("Expected 10m for mixed-case dashboard query, got %v", got)
	}
}

// The rule table is evaluated top-down and the first match wins; a query id
// matching several categories must resolve to the earliest declared rule.
func TestResolveTTL_FirstMatchWins(t *testing.T) {
	// "realtime" (30s) is declared before "user" (1m) and "count" (5m).
	if got := ResolveTTL("realtime_user_count"); got != 30*time.Second {
		t.Errorf("Expected realtime tier to win, got %v", got)
	}
	// "list" (2m) is declared before "user" (1m).
	if got := ResolveTTL("user_list"); got != 2*time.Minute {
		t.Errorf("Expected list tier to win over user, got %v", got)
	}
}

func TestResolveCategory(t *testing.T) {
	tests := []struct {
		queryID string
		want    string
	}{
		{"dashboard_summary", "statistics"},
		{"machine_type_config", "config"},
		{"golden_sample", "default"},
		{"realtime_user_count", "realtime"},
	}
	for _, tt := range tests {
		if got := ResolveCategory(tt.queryID); got != tt.want {
			t.Errorf("ResolveCategory(%q) = %q, want %q", tt.queryID, got, tt.want)
		}
	}
}
