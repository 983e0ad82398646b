package event

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Filter selects events for delivery or counting. Zero-value fields are
// unset; all set criteria must match (logical AND). A list of filters on
// a subscription is matched with logical OR by the relay.
type Filter struct {
	IDs     []string
	Authors []string
	Kinds   []int
	Since   *int64
	Until   *int64
	Limit   int

	// Tags holds "#<name>" criteria keyed by tag name (without the '#').
	Tags map[string][]string
}

// Matches reports whether the event satisfies every set criterion.
// Unrecognized wire keys were dropped at parse time and therefore pass.
func (f Filter) Matches(e *Event) bool {
	if len(f.IDs) > 0 && !containsString(f.IDs, e.ID) {
		return false
	}
	if len(f.Authors) > 0 && !containsString(f.Authors, e.PubKey) {
		return false
	}
	if len(f.Kinds) > 0 && !containsInt(f.Kinds, e.Kind) {
		return false
	}
	if f.Since != nil && e.CreatedAt < *f.Since {
		return false
	}
	if f.Until != nil && e.CreatedAt > *f.Until {
		return false
	}
	for name, accepted := range f.Tags {
		if !matchesTag(e, name, accepted) {
			return false
		}
	}
	return true
}

// MatchesAny reports whether any filter in the list matches the event.
// An empty list matches nothing.
func MatchesAny(filters []Filter, e *Event) bool {
	for _, f := range filters {
		if f.Matches(e) {
			return true
		}
	}
	return false
}

func matchesTag(e *Event, name string, accepted []string) bool {
	for _, v := range e.TagValues(name) {
		if containsString(accepted, v) {
			return true
		}
	}
	return false
}

// filterWire is the fixed-key part of the wire form.
type filterWire struct {
	IDs     []string `json:"ids,omitempty"`
	Authors []string `json:"authors,omitempty"`
	Kinds   []int    `json:"kinds,omitempty"`
	Since   *int64   `json:"since,omitempty"`
	Until   *int64   `json:"until,omitempty"`
	Limit   int      `json:"limit,omitempty"`
}

// UnmarshalJSON decodes the wire object, collecting "#<tag>" keys into
// Tags and silently ignoring unrecognized keys.
func (f *Filter) UnmarshalJSON(data []byte) error {
	var wire filterWire
	if err := json.Unmarshal(data, &wire); err != nil {
		return fmt.Errorf("parse filter: %w", err)
	}
	f.IDs = wire.IDs
	f.Authors = wire.Authors
	f.Kinds = wire.Kinds
	f.Since = wire.Since
	f.Until = wire.Until
	f.Limit = wire.Limit
	f.Tags = nil

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("parse filter: %w", err)
	}
	for key, val := range raw {
		if !strings.HasPrefix(key, "#") || len(key) < 2 {
			continue
		}
		var values []string
		if err := json.Unmarshal(val, &values); err != nil {
			return fmt.Errorf("parse filter tag %q: %w", key, err)
		}
		if f.Tags == nil {
			f.Tags = make(map[string][]string)
		}
		f.Tags[key[1:]] = values
	}
	return nil
}

// MarshalJSON renders the wire form, emitting Tags as "#<name>" keys.
func (f Filter) MarshalJSON() ([]byte, error) {
	out := make(map[string]any)
	if len(f.IDs) > 0 {
		out["ids"] = f.IDs
	}
	if len(f.Authors) > 0 {
		out["authors"] = f.Authors
	}
	if len(f.Kinds) > 0 {
		out["kinds"] = f.Kinds
	}
	if f.Since != nil {
		out["since"] = *f.Since
	}
	if f.Until != nil {
		out["until"] = *f.Until
	}
	if f.Limit > 0 {
		out["limit"] = f.Limit
	}
	for name, values := range f.Tags {
		out["#"+name] = values
	}
	return json.Marshal(out)
}

func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

func containsInt(list []int, n int) bool {
	for _, v := range list {
		if v == n {
			return true
		}
	}
	return false
}
