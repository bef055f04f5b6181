package entity

import (
	"fmt"
	"strings"
	"time"
)

// MaxInteractionHistory is the number of interactions kept verbatim on a
// relationship; older entries are folded into the archive summary.
const MaxInteractionHistory = 10

// Relationship is a directed edge from the owning entity to another entity.
type Relationship struct {
	Affinity int           `json:"affinity"`
	Status   string        `json:"status,omitempty"`
	Debt     float64       `json:"debt,omitempty"`
	History  []Interaction `json:"history,omitempty"`
	Archive  string        `json:"archive,omitempty"`
}

type Interaction struct {
	Turn  int       `json:"turn,omitempty"`
	Note  string    `json:"note"`
	Delta int       `json:"delta,omitempty"`
	At    time.Time `json:"at,omitzero"`
}

// NewRelationship returns a neutral relationship.
func NewRelationship() *Relationship {
	return &Relationship{Affinity: 50, Status: StatusForAffinity(50)}
}

// StatusForAffinity maps an affinity score to its qualitative band.
func StatusForAffinity(affinity int) string {
	switch {
	case affinity < 20:
		return "hostile"
	case affinity < 40:
		return "wary"
	case affinity < 60:
		return "neutral"
	case affinity < 80:
		return "friendly"
	default:
		return "devoted"
	}
}

// Record applies an interaction: affinity moves by its delta (clamped to
// 0-100), the status is re-derived, and history beyond the limit is archived.
func (r *Relationship) Record(i Interaction) {
	r.Affinity = clamp(r.Affinity+i.Delta, 0, 100)
	r.Status = StatusForAffinity(r.Affinity)
	r.History = append(r.History, i)
	if over := len(r.History) - MaxInteractionHistory; over > 0 {
		var lines []string
		if r.Archive != "" {
			lines = append(lines, r.Archive)
		}
		for _, old := range r.History[:over] {
			lines = append(lines, summarize(old))
		}
		r.Archive = strings.Join(lines, "; ")
		r.History = append([]Interaction(nil), r.History[over:]...)
	}
}

func summarize(i Interaction) string {
	if i.Turn > 0 {
		return fmt.Sprintf("turn %d: %s (%+d)", i.Turn, i.Note, i.Delta)
	}
	return fmt.Sprintf("%s (%+d)", i.Note, i.Delta)
}

func clamp(v, lo, hi int) int {
	return max(lo, min(v, hi))
}
