package dataapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
)

// Record is an entity in normalized form: {"id": ..., <attributes>...} with relations flattened the same way.
type Record map[string]any

// ID returns the entity id or 0.
func (r Record) ID() int64 {
	return toInt64(r["id"])
}

// Decode converts the record into out through its JSON form.
func (r Record) Decode(out any) error {
	b, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("marshal record: %w", err)
	}
	if err := json.Unmarshal(b, out); err != nil {
		return fmt.Errorf("unmarshal record: %w", err)
	}

	return nil
}

func recordFrom(raw any) (Record, error) {
	m, ok := normalize(raw).(map[string]any)
	if !ok {
		return nil, errors.New("unexpected response shape: expected a single entity")
	}

	return Record(m), nil
}

func recordsFrom(raw any) ([]Record, error) {
	list, ok := normalize(raw).([]any)
	if !ok {
		return nil, errors.New("unexpected response shape: expected a list")
	}
	out := make([]Record, 0, len(list))
	for _, item := range list {
		m, ok := item.(map[string]any)
		if !ok {
			return nil, errors.New("unexpected response shape: list item is not an entity")
		}
		out = append(out, Record(m))
	}

	return out, nil
}

// normalize strips the data/attributes envelope at every level:
//
//	{"data": {"id": 1, "attributes": {"code": "X", "route": {"data": {"id": 2, "attributes": {...}}}}}}
//
// becomes {"id": 1, "code": "X", "route": {"id": 2, ...}}. An empty relation ({"data": null}) becomes nil.
func normalize(v any) any {
	switch t := v.(type) {
	case map[string]any:
		if data, ok := t["data"]; ok && isEnvelope(t) {
			return normalize(data)
		}
		if attrs, ok := t["attributes"].(map[string]any); ok {
			out := make(map[string]any, len(attrs)+1)
			for k, val := range attrs {
				out[k] = normalize(val)
			}
			if id, ok := t["id"]; ok {
				out["id"] = id
			}

			return out
		}
		out := make(map[string]any, len(t))
		for k, val := range t {
			out[k] = normalize(val)
		}

		return out
	case []any:
		out := make([]any, len(t))
		for i, item := range t {
			out[i] = normalize(item)
		}

		return out
	default:
		return v
	}
}

func isEnvelope(m map[string]any) bool {
	for k := range m {
		if k != "data" && k != "meta" {
			return false
		}
	}

	return true
}

func toInt64(v any) int64 {
	switch n := v.(type) {
	case json.Number:
		i, err := n.Int64()
		if err != nil {
			return 0
		}
		return i
	case float64:
		return int64(n)
	case int64:
		return n
	case int:
		return int64(n)
	case string:
		i, _ := strconv.ParseInt(n, 10, 64)
		return i
	}

	return 0
}

// Relation is the normalized read shape of a populated relation.
type Relation struct {
	ID int64 `json:"id"`
}

// RelationID returns the id of r or 0 when the relation is empty.
func RelationID(r *Relation) int64 {
	if r == nil {
		return 0
	}

	return r.ID
}
