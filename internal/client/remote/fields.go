package remote

import (
	"encoding/json"
	"fmt"
	"strings"
)

const sep = "."

// Flatten turns nested objects into dotted paths. Arrays and scalars are
// leaves. Empty objects vanish.
func Flatten(nested map[string]any) Fields {
	out := Fields{}
	flattenInto(out, "", nested)
	return out
}

func flattenInto(dst Fields, prefix string, m map[string]any) {
	for k, v := range m {
		key := k
		if prefix != "" {
			key = prefix + sep + k
		}
		if child, ok := v.(map[string]any); ok {
			flattenInto(dst, key, child)
			continue
		}
		dst[key] = v
	}
}

// Unflatten is the inverse of Flatten. A path that collides with a leaf
// (both "a" and "a.b" present) is an error.
func Unflatten(f Fields) (map[string]any, error) {
	out := map[string]any{}
	for path, v := range f {
		parts := strings.Split(path, sep)
		cur := out
		for _, p := range parts[:len(parts)-1] {
			next, ok := cur[p]
			if !ok {
				child := map[string]any{}
				cur[p] = child
				cur = child
				continue
			}
			child, ok := next.(map[string]any)
			if !ok {
				return nil, fmt.Errorf("field %q conflicts with leaf %q", path, p)
			}
			cur = child
		}
		leaf := parts[len(parts)-1]
		if _, isGroup := cur[leaf].(map[string]any); isGroup {
			return nil, fmt.Errorf("field %q conflicts with group", path)
		}
		cur[leaf] = v
	}
	return out, nil
}

// Encode converts a JSON-tagged value, typically a models patch, into flat
// fields. Fields omitted by the value's JSON encoding are not named.
func Encode(v any) (Fields, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode fields: %w", err)
	}
	var nested map[string]any
	if err := json.Unmarshal(raw, &nested); err != nil {
		return nil, fmt.Errorf("encode fields: %w", err)
	}
	return Flatten(nested), nil
}

// Decode fills v from flat fields through its JSON encoding.
func Decode(f Fields, v any) error {
	nested, err := Unflatten(f)
	if err != nil {
		return fmt.Errorf("decode fields: %w", err)
	}
	raw, err := json.Marshal(nested)
	if err != nil {
		return fmt.Errorf("decode fields: %w", err)
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("decode fields: %w", err)
	}
	return nil
}

// MarshalValues encodes each field value as JSON, for backends that store
// one string per field.
func MarshalValues(f Fields) (map[string]string, error) {
	out := make(map[string]string, len(f))
	for k, v := range f {
		raw, err := json.Marshal(v)
		if err != nil {
			return nil, fmt.Errorf("marshal field %q: %w", k, err)
		}
		out[k] = string(raw)
	}
	return out, nil
}

// UnmarshalValues is the inverse of MarshalValues.
func UnmarshalValues(m map[string]string) (Fields, error) {
	out := make(Fields, len(m))
	for k, s := range m {
		var v any
		if err := json.Unmarshal([]byte(s), &v); err != nil {
			return nil, fmt.Errorf("unmarshal field %q: %w", k, err)
		}
		out[k] = v
	}
	return out, nil
}
