package enrich

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/jwebster45206/encounter-engine/pkg/entity"
)

func TestDeriveTemperament(t *testing.T) {
	tests := []struct {
		name          string
		extraversion  int
		neuroticism   int
		wantPrimary   entity.Humor
		wantSecondary entity.Humor
	}{
		{"outgoing and calm", 90, 10, entity.HumorSanguine, ""},
		{"outgoing and volatile", 90, 90, entity.HumorCholeric, ""},
		{"withdrawn and anxious", 10, 90, entity.HumorMelancholic, ""},
		{"withdrawn and calm", 10, 10, entity.HumorPhlegmatic, ""},
		{"mildly sanguine", 60, 40, entity.HumorSanguine, entity.HumorCholeric},
		{"balanced", 50, 50, entity.HumorSanguine, entity.HumorCholeric},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			temp := DeriveTemperament(entity.BigFive{Extraversion: tt.extraversion, Neuroticism: tt.neuroticism})
			assert.Equal(t, tt.wantPrimary, temp.Primary)
			assert.Equal(t, tt.wantSecondary, temp.Secondary)

			var sum float64
			for _, v := range temp.Scores {
				sum += v
			}
			assert.InDelta(t, 100, sum, 1e-9)
		})
	}
}

func TestDeriveTemperament_Scores(t *testing.T) {
	temp := DeriveTemperament(entity.BigFive{Extraversion: 90, Neuroticism: 10})
	assert.InDelta(t, 45, temp.Scores[entity.HumorSanguine], 1e-9)
	assert.InDelta(t, 25, temp.Scores[entity.HumorCholeric], 1e-9)
	assert.InDelta(t, 5, temp.Scores[entity.HumorMelancholic], 1e-9)
	assert.InDelta(t, 25, temp.Scores[entity.HumorPhlegmatic], 1e-9)
}
