package nostr

import (
	"fmt"
	"strings"

	json "github.com/goccy/go-json"
)

// Filter selects events on a subscription. Tag filters are keyed by the bare
// tag name and serialized with the "#" prefix the relay protocol expects.
type Filter struct {
	IDs     []string
	Authors []string
	Kinds   []int
	Tags    map[string][]string
	Since   int64
	Until   int64
	Limit   int
}

func (f Filter) MarshalJSON() ([]byte, error) {
	m := make(map[string]interface{})
	if len(f.IDs) > 0 {
		m["ids"] = f.IDs
	}
	if len(f.Authors) > 0 {
		m["authors"] = f.Authors
	}
	if len(f.Kinds) > 0 {
		m["kinds"] = f.Kinds
	}
	for name, values := range f.Tags {
		m["#"+name] = values
	}
	if f.Since > 0 {
		m["since"] = f.Since
	}
	if f.Until > 0 {
		m["until"] = f.Until
	}
	if f.Limit > 0 {
		m["limit"] = f.Limit
	}
	return json.Marshal(m)
}

func (f *Filter) UnmarshalJSON(data []byte) error {
	var m map[string]json.RawMessage
	if err := json.Unmarshal(data, &m); err != nil {
		return err
	}
	for key, raw := range m {
		var err error
		switch {
		case key == "ids":
			err = json.Unmarshal(raw, &f.IDs)
		case key == "authors":
			err = json.Unmarshal(raw, &f.Authors)
		case key == "kinds":
			err = json.Unmarshal(raw, &f.Kinds)
		case key == "since":
			err = json.Unmarshal(raw, &f.Since)
		case key == "until":
			err = json.Unmarshal(raw, &f.Until)
		case key == "limit":
			err = json.Unmarshal(raw, &f.Limit)
		case strings.HasPrefix(key, "#"):
			if f.Tags == nil {
				f.Tags = make(map[string][]string)
			}
			var values []string
			if err = json.Unmarshal(raw, &values); err == nil {
				f.Tags[key[1:]] = values
			}
		}
		if err != nil {
			return fmt.Errorf("filter field %q: %w", key, err)
		}
	}
	return nil
}

// Matches reports whether the event satisfies the filter.
func (f Filter) Matches(e *Event) bool {
	if len(f.IDs) > 0 && !contains(f.IDs, e.ID) {
		return false
	}
	if len(f.Authors) > 0 && !contains(f.Authors, e.PubKey) {
		return false
	}
	if len(f.Kinds) > 0 && !containsInt(f.Kinds, e.Kind) {
		return false
	}
	if f.Since > 0 && e.CreatedAt < f.Since {
		return false
	}
	if f.Until > 0 && e.CreatedAt > f.Until {
		return false
	}
	for name, wanted := range f.Tags {
		matched := false
		for _, tag := range e.Tags {
			if len(tag) >= 2 && tag[0] == name && contains(wanted, tag[1]) {
				matched = true
				break
			}
		}
		if !matched {
			return false
		}
	}
	return true
}

func contains(values []string, v string) bool {
	for _, x := range values {
		if x == v {
			return true
		}
	}
	return false
}

func containsInt(values []int, v int) bool {
	for _, x := range values {
		if x == v {
			return true
		}
	}
	return false
}
