package store

import (
	"strings"

	"github.com/jwebster45206/encounter-engine/pkg/entity"
)

type idSet map[string]struct{}

// index holds the secondary lookups. Every method assumes the store lock is
// held.
type index struct {
	byType map[entity.Type]idSet
	byTier map[entity.Tier]idSet
	byName map[string]idSet
}

func newIndex() *index {
	return &index{
		byType: make(map[entity.Type]idSet),
		byTier: make(map[entity.Tier]idSet),
		byName: make(map[string]idSet),
	}
}

// nameKeys returns the normalized names an entity is reachable under: its
// full name and, for generated names like "Pedro Rivas (Shopkeeper)", the
// name without the archetype suffix.
func nameKeys(e *entity.Entity) []string {
	full := entity.NormalizeName(e.Name)
	if full == "" {
		return nil
	}
	keys := []string{full}
	if base := entity.NormalizeName(BaseName(e.Name)); base != "" && base != full {
		keys = append(keys, base)
	}
	return keys
}

// BaseName strips a trailing parenthetical archetype from a display name.
func BaseName(name string) string {
	name = strings.TrimSpace(name)
	if strings.HasSuffix(name, ")") {
		if i := strings.LastIndex(name, " ("); i > 0 {
			return name[:i]
		}
	}
	return name
}

func (x *index) add(e *entity.Entity) {
	addTo(x.byType, e.Type, e.ID)
	addTo(x.byTier, e.Tier, e.ID)
	for _, k := range nameKeys(e) {
		addTo(x.byName, k, e.ID)
	}
}

func (x *index) remove(e *entity.Entity) {
	removeFrom(x.byType, e.Type, e.ID)
	removeFrom(x.byTier, e.Tier, e.ID)
	for _, k := range nameKeys(e) {
		removeFrom(x.byName, k, e.ID)
	}
}

func addTo[K comparable](m map[K]idSet, k K, id string) {
	set, ok := m[k]
	if !ok {
		set = make(idSet)
		m[k] = set
	}
	set[id] = struct{}{}
}

func removeFrom[K comparable](m map[K]idSet, k K, id string) {
	if set, ok := m[k]; ok {
		delete(set, id)
		if len(set) == 0 {
			delete(m, k)
		}
	}
}

var templateKey = entity.NormalizeName(entity.TemplateSentinel)

// lookupName resolves a normalized name. An exact match wins; otherwise the
// shortest name containing the query (or contained in it as whole words)
// wins, then the lexically smaller name, then registration order.
func (x *index) lookupName(q string, order []string) (string, bool) {
	if q == "" {
		return "", false
	}
	if set, ok := x.byName[q]; ok {
		return firstInOrder(set, order)
	}

	best := ""
	padded := " " + q + " "
	for key := range x.byName {
		if strings.Contains(key, templateKey) {
			continue
		}
		if !strings.Contains(key, q) && !strings.Contains(padded, " "+key+" ") {
			continue
		}
		if best == "" || len(key) < len(best) || (len(key) == len(best) && key < best) {
			best = key
		}
	}
	if best == "" {
		return "", false
	}
	return firstInOrder(x.byName[best], order)
}

func firstInOrder(set idSet, order []string) (string, bool) {
	for _, id := range order {
		if _, ok := set[id]; ok {
			return id, true
		}
	}
	return "", false
}
