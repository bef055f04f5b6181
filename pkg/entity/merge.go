package entity

import (
	"encoding/json"
	"fmt"
	"maps"
)

// DeepMerge merges src into dst recursively: nested objects merge key by key,
// every other value in src replaces the one in dst. dst is modified in place.
func DeepMerge(dst, src map[string]any) map[string]any {
	if dst == nil {
		dst = make(map[string]any, len(src))
	}
	for k, sv := range src {
		srcMap, srcIsMap := sv.(map[string]any)
		dstMap, dstIsMap := dst[k].(map[string]any)
		if srcIsMap && dstIsMap {
			dst[k] = DeepMerge(dstMap, srcMap)
			continue
		}
		if srcIsMap {
			dst[k] = DeepMerge(nil, srcMap)
			continue
		}
		dst[k] = sv
	}
	return dst
}

// ToMap converts an entity to its generic JSON object form.
func ToMap(e *Entity) (map[string]any, error) {
	data, err := json.Marshal(e)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal entity: %w", err)
	}
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("failed to unmarshal entity map: %w", err)
	}
	return m, nil
}

// FromMap converts a generic JSON object back into an entity.
func FromMap(m map[string]any) (*Entity, error) {
	data, err := json.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal entity map: %w", err)
	}
	var e Entity
	if err := json.Unmarshal(data, &e); err != nil {
		return nil, fmt.Errorf("failed to unmarshal entity: %w", err)
	}
	return &e, nil
}

// Patch returns a copy of base with patch deep-merged into it. base is not
// modified.
func Patch(base *Entity, patch map[string]any) (*Entity, error) {
	m, err := ToMap(base)
	if err != nil {
		return nil, err
	}
	return FromMap(DeepMerge(m, maps.Clone(patch)))
}

// Merge returns a copy of base with every field set on overlay merged in.
func Merge(base, overlay *Entity) (*Entity, error) {
	patch, err := ToMap(overlay)
	if err != nil {
		return nil, err
	}
	return Patch(base, patch)
}
