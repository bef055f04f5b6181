package entity

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRelationship_RecordClampsAndDerivesStatus(t *testing.T) {
	r := NewRelationship()
	assert.Equal(t, "neutral", r.Status)

	r.Record(Interaction{Note: "paid debt", Delta: 45})
	assert.Equal(t, 95, r.Affinity)
	assert.Equal(t, "devoted", r.Status)

	r.Record(Interaction{Note: "insult", Delta: 30})
	assert.Equal(t, 100, r.Affinity)

	r.Record(Interaction{Note: "betrayal", Delta: -150})
	assert.Equal(t, 0, r.Affinity)
	assert.Equal(t, "hostile", r.Status)
}

func TestRelationship_HistoryIsBounded(t *testing.T) {
	r := NewRelationship()
	for i := 1; i <= 13; i++ {
		r.Record(Interaction{Turn: i, Note: fmt.Sprintf("visit %d", i), Delta: 1})
	}

	assert.Len(t, r.History, MaxInteractionHistory)
	assert.Equal(t, 4, r.History[0].Turn)
	assert.Equal(t, 13, r.History[len(r.History)-1].Turn)
	assert.Equal(t, "turn 1: visit 1 (+1); turn 2: visit 2 (+1); turn 3: visit 3 (+1)", r.Archive)
}

func TestStatusForAffinity(t *testing.T) {
	cases := map[int]string{0: "hostile", 19: "hostile", 20: "wary", 45: "neutral", 60: "friendly", 80: "devoted"}
	for affinity, want := range cases {
		assert.Equal(t, want, StatusForAffinity(affinity), "affinity %d", affinity)
	}
}
