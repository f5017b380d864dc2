package odoo

import (
	"fmt"
	"strings"
	"time"
)

// Odoo returns false for empty scalars and [id, display_name] pairs for
// many2one fields. The helpers below fold those shapes into Go values.

const (
	serverDatetime = "2006-01-02 15:04:05"
	serverDate     = "2006-01-02"
)

type record map[string]any

func (r record) str(key string) string {
	switch v := r[key].(type) {
	case string:
		return v
	case map[string]any:
		// translatable fields read through search_read on older hosts
		if s, ok := v["en_US"].(string); ok {
			return s
		}
	}
	return ""
}

func (r record) boolean(key string) bool {
	b, _ := r[key].(bool)
	return b
}

func (r record) float(key string) float64 {
	switch v := r[key].(type) {
	case float64:
		return v
	case int64:
		return float64(v)
	case int:
		return float64(v)
	}
	return 0
}

func (r record) int64(key string) int64 {
	switch v := r[key].(type) {
	case int64:
		return v
	case int:
		return int64(v)
	case float64:
		return int64(v)
	}
	return 0
}

// many2one returns the id and display name of a relational value.
func (r record) many2one(key string) (*int64, string) {
	pair, ok := r[key].([]any)
	if !ok || len(pair) == 0 {
		return nil, ""
	}
	id := record{"id": pair[0]}.int64("id")
	if id == 0 {
		return nil, ""
	}
	var name string
	if len(pair) > 1 {
		name, _ = pair[1].(string)
	}
	return &id, name
}

func (r record) date(key string) (*time.Time, error) {
	switch v := r[key].(type) {
	case time.Time:
		return &v, nil
	case string:
		v = strings.TrimSpace(v)
		layout := serverDate
		if len(v) > len(serverDate) {
			layout = serverDatetime
		}
		t, err := time.ParseInLocation(layout, v, time.UTC)
		if err != nil {
			return nil, fmt.Errorf("odoo: field %s: %w", key, err)
		}
		return &t, nil
	}
	return nil, nil
}

// records converts a search_read reply into records.
func records(reply any) ([]record, error) {
	items, ok := reply.([]any)
	if !ok {
		if reply == nil {
			return nil, nil
		}
		return nil, fmt.Errorf("odoo: unexpected reply %T", reply)
	}
	out := make([]record, 0, len(items))
	for _, item := range items {
		m, ok := item.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("odoo: unexpected record %T", item)
		}
		out = append(out, record(m))
	}
	return out, nil
}
