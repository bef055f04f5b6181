package selection

import "github.com/jwebster45206/encounter-engine/pkg/conditions"

// FactionTier multiplies a candidate's weight when the player's standing
// with its faction is at least Min (or below Below when Below is set).
type FactionTier struct {
	Min    *int    `yaml:"min,omitempty" json:"min,omitempty"`
	Below  *int    `yaml:"below,omitempty" json:"below,omitempty"`
	Weight float64 `yaml:"weight" json:"weight"`
}

func (f FactionTier) matches(standing int) bool {
	if f.Min != nil && standing < *f.Min {
		return false
	}
	if f.Below != nil && standing >= *f.Below {
		return false
	}
	return f.Min != nil || f.Below != nil
}

// Tuning holds the scenario-adjustable constants of the selection model.
type Tuning struct {
	BaseProbability      float64 `yaml:"base_probability" json:"base_probability"`
	EncounterProbability float64 `yaml:"encounter_probability" json:"encounter_probability"`
	AvoidProbability     float64 `yaml:"avoid_probability" json:"avoid_probability"`

	EncounterKeywords []string `yaml:"encounter_keywords" json:"encounter_keywords"`
	AvoidKeywords     []string `yaml:"avoid_keywords" json:"avoid_keywords"`
	WorkplaceKeywords []string `yaml:"workplace_keywords" json:"workplace_keywords"`

	BusinessHours  conditions.Window `yaml:"business_hours" json:"business_hours"`
	PatientMorning conditions.Window `yaml:"patient_morning" json:"patient_morning"`
	EveningFrom    int               `yaml:"evening_from" json:"evening_from"`

	RecencyFactor      float64 `yaml:"recency_factor" json:"recency_factor"`
	PatientAtWorkplace float64 `yaml:"patient_at_workplace" json:"patient_at_workplace"`
	PatientMorningBias float64 `yaml:"patient_morning_bias" json:"patient_morning_bias"`
	EveningAntagonist  float64 `yaml:"evening_antagonist" json:"evening_antagonist"`

	// FactionTiers are checked in order; the first match applies.
	FactionTiers []FactionTier `yaml:"faction_tiers" json:"faction_tiers"`

	EliteReputation  int     `yaml:"elite_reputation" json:"elite_reputation"`
	CommonReputation int     `yaml:"common_reputation" json:"common_reputation"`
	ClassFavour      float64 `yaml:"class_favour" json:"class_favour"`
	ClassDisfavour   float64 `yaml:"class_disfavour" json:"class_disfavour"`

	LowWealth        int     `yaml:"low_wealth" json:"low_wealth"`
	LowWealthVillain float64 `yaml:"low_wealth_villain" json:"low_wealth_villain"`

	DebtCollectorTags []string `yaml:"debt_collector_tags" json:"debt_collector_tags"`
}

func ip(i int) *int { return &i }

// DefaultTuning returns the stock selection constants.
func DefaultTuning() Tuning {
	return Tuning{
		BaseProbability:      0.30,
		EncounterProbability: 0.85,
		AvoidProbability:     0.05,
		EncounterKeywords: []string{
			"greet", "approach", "visit", "knock", "talk", "speak", "call",
			"welcome", "open", "answer", "invite", "look for", "seek", "wait",
			"saludar", "hablar", "visitar",
		},
		AvoidKeywords: []string{
			"ignore", "hide", "dismiss", "avoid", "close", "lock", "sleep",
			"leave", "flee", "evade", "ignorar", "esconder",
		},
		WorkplaceKeywords: []string{"botica", "apothecary", "shop", "tienda", "pharmacy", "farmacia"},
		BusinessHours:     conditions.Window{From: 8, To: 20},
		PatientMorning:    conditions.Window{From: 8, To: 12},
		EveningFrom:       18,

		RecencyFactor:      0.1,
		PatientAtWorkplace: 2.0,
		PatientMorningBias: 1.5,
		EveningAntagonist:  1.5,

		FactionTiers: []FactionTier{
			{Min: ip(70), Weight: 1.8},
			{Min: ip(60), Weight: 1.4},
			{Below: ip(20), Weight: 0.3},
			{Below: ip(30), Weight: 0.6},
		},

		EliteReputation:  70,
		CommonReputation: 40,
		ClassFavour:      1.5,
		ClassDisfavour:   0.5,

		LowWealth:        20,
		LowWealthVillain: 1.5,

		DebtCollectorTags: []string{"debt-collector", "debt_collector", "moneylender"},
	}
}
