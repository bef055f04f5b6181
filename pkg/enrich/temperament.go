package enrich

import (
	"github.com/jwebster45206/encounter-engine/pkg/entity"
)

// SecondaryThreshold is the fraction of the primary humor's score the
// runner-up must reach to be reported as a secondary temperament.
const SecondaryThreshold = 0.6

var humorOrder = []entity.Humor{
	entity.HumorSanguine,
	entity.HumorCholeric,
	entity.HumorMelancholic,
	entity.HumorPhlegmatic,
}

// DeriveTemperament maps extraversion and neuroticism onto the four humors,
// normalized to sum to 100.
func DeriveTemperament(b entity.BigFive) entity.Temperament {
	e := float64(b.Extraversion)
	n := float64(b.Neuroticism)
	raw := map[entity.Humor]float64{
		entity.HumorSanguine:    (e + (100 - n)) / 2,
		entity.HumorCholeric:    (e + n) / 2,
		entity.HumorMelancholic: ((100 - e) + n) / 2,
		entity.HumorPhlegmatic:  ((100 - e) + (100 - n)) / 2,
	}

	var total float64
	for _, v := range raw {
		total += v
	}
	scores := make(map[entity.Humor]float64, len(raw))
	for h, v := range raw {
		if total > 0 {
			scores[h] = v / total * 100
		}
	}

	// Ties resolve in humorOrder.
	primary, secondary := humorOrder[0], entity.Humor("")
	for _, h := range humorOrder[1:] {
		if scores[h] > scores[primary] {
			primary = h
		}
	}
	for _, h := range humorOrder {
		if h == primary {
			continue
		}
		if secondary == "" || scores[h] > scores[secondary] {
			secondary = h
		}
	}

	t := entity.Temperament{Primary: primary, Scores: scores}
	if secondary != "" && scores[secondary] >= scores[primary]*SecondaryThreshold {
		t.Secondary = secondary
	}
	return t
}
