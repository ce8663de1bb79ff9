// Qualisight - Manufacturing Quality Analytics
// Copyright 2026 Qualisight Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/qualisight/qualisight

package cache

import (
	"fmt"

	"github.com/goccy/go-json"
)

// GenerateKey derives a deterministic cache key from a query identifier and
// its parameters.
//
// Nil parameter values are stripped before serialization, so a parameter that
// was "present but unset" produces the same key as one that was never passed.
// An empty (or fully stripped) parameter set yields the query identifier
// verbatim. Otherwise the key is "queryID:{json}" where the JSON object is
// serialized with sorted keys, making the result independent of parameter
// insertion order.
func GenerateKey(queryID string, params map[string]any) string {
	if len(params) == 0 {
		return queryID
	}

	filtered := make(map[string]any, len(params))
	for k, v := range params {
		if v == nil {
			continue
		}
		filtered[k] = v
	}
	if len(filtered) == 0 {
		return queryID
	}

	// go-json serializes map keys in sorted order, which gives us the
	// insertion-order independence the key contract requires.
	data, err := json.Marshal(filtered)
	if err != nil {
		// Non-serializable parameter values should not happen for query
		// parameters, but a stable fallback beats a panic.
		return fmt.Sprintf("%s:%v", queryID, filtered)
	}

	return queryID + ":" + string(data)
}

// queryIDOf returns the query-identifier portion of a cache key, i.e.
// everything before the first ':' separator.
func queryIDOf(key string) string {
	for i := 0; i < len(key); i++ {
		if key[i] == ':' {
			return key[:i]
		}
	}
	return key
}

// categoryOf returns the statistics grouping for a cache key: the portion of
// the key before the first ':' or '_'. Keys with neither separator group
// under themselves.
func categoryOf(key string) string {
	for i := 0; i < len(key); i++ {
		if key[i] == ':' || key[i] == '_' {
			return key[:i]
		}
	}
	return key
}
