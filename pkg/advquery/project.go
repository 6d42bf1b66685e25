package advquery

import (
	"bytes"
	"encoding/json"
)

// Project reduces each item to the selected keys plus keep.
// With no selection the items are returned untouched. The result is never nil
// so an empty page encodes as [] rather than null.
func Project[T any](items []T, fields []string, keep ...string) (any, error) {
	if len(fields) == 0 {
		if items == nil {
			return []T{}, nil
		}
		return items, nil
	}

	wanted := make(map[string]struct{}, len(fields)+len(keep))
	for _, f := range fields {
		wanted[f] = struct{}{}
	}
	for _, k := range keep {
		wanted[k] = struct{}{}
	}

	out := make([]map[string]any, 0, len(items))
	for _, item := range items {
		doc, err := toDocument(item)
		if err != nil {
			return nil, err
		}
		projected := make(map[string]any, len(wanted))
		for k := range wanted {
			if v, ok := doc[k]; ok {
				projected[k] = v
			}
		}
		out = append(out, projected)
	}
	return out, nil
}

func toDocument(item any) (map[string]any, error) {
	if doc, ok := item.(map[string]any); ok {
		return doc, nil
	}
	raw, err := json.Marshal(item)
	if err != nil {
		return nil, err
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var doc map[string]any
	if err := dec.Decode(&doc); err != nil {
		return nil, err
	}
	return doc, nil
}
