package selection

import (
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwebster45206/encounter-engine/pkg/conditions"
	"github.com/jwebster45206/encounter-engine/pkg/dice"
	"github.com/jwebster45206/encounter-engine/pkg/entity"
)

type slicePool []*entity.Entity

func (p slicePool) ByType(types ...entity.Type) []*entity.Entity {
	var out []*entity.Entity
	for _, e := range p {
		if slices.Contains(types, e.Type) {
			out = append(out, e)
		}
	}
	return out
}

func alwaysEncounter() Tuning {
	t := DefaultTuning()
	t.BaseProbability = 1
	t.AvoidProbability = 1
	return t
}

func shopTurn() TurnContext {
	return TurnContext{
		State:  conditions.State{Date: "1791-03-01", Time: "14:00", Location: "La Botica"},
		Action: "wait at the counter",
	}
}

func TestSelectEntity_PatientExclusivity(t *testing.T) {
	pool := slicePool{
		{ID: "patient_a", Type: entity.TypePatient, Name: "Ana"},
		{ID: "patient_b", Type: entity.TypePatient, Name: "Beto"},
		{ID: "npc_c", Type: entity.TypeNPC, Name: "Carlos"},
		{ID: "npc_d", Type: entity.TypeNPC, Name: "Dolores"},
	}
	sel := New(pool, nil, dice.New(7), WithTuning(alwaysEncounter()))

	tc := shopTurn()
	tc.ActivePatient = true
	for range 500 {
		out := sel.SelectEntity(tc)
		require.NotNil(t, out.Entity)
		assert.NotEqual(t, entity.TypePatient, out.Entity.Type)
	}
}

func TestWeigh_PatientHardFilters(t *testing.T) {
	pool := slicePool{{ID: "patient_a", Type: entity.TypePatient, Name: "Ana"}}
	sel := New(pool, nil, dice.Fixed(0))
	open, closed := true, false

	tests := []struct {
		name   string
		mutate func(*TurnContext)
		kept   bool
	}{
		{"eligible", func(*TurnContext) {}, true},
		{"active patient", func(tc *TurnContext) { tc.ActivePatient = true }, false},
		{"away from workplace", func(tc *TurnContext) { tc.Location = "Plaza Mayor" }, false},
		{"english workplace keyword", func(tc *TurnContext) { tc.Location = "the apothecary" }, true},
		{"before opening", func(tc *TurnContext) { tc.Time = "07:59" }, false},
		{"at closing", func(tc *TurnContext) { tc.Time = "20:00" }, false},
		{"unparseable time is noon", func(tc *TurnContext) { tc.Time = "vespers" }, true},
		{"sign closed", func(tc *TurnContext) { tc.ShopOpen = &closed }, false},
		{"sign open", func(tc *TurnContext) { tc.ShopOpen = &open }, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tc := shopTurn()
			tt.mutate(&tc)
			got := sel.Weigh(tc, pool)
			assert.Equal(t, tt.kept, len(got) == 1)
		})
	}
}

func TestWeigh_SoftWeights(t *testing.T) {
	sel := New(nil, nil, dice.Fixed(0))

	tests := []struct {
		name   string
		e      *entity.Entity
		mutate func(*TurnContext)
		want   float64
	}{
		{"plain npc", &entity.Entity{Type: entity.TypeNPC, Name: "A"}, nil, 1.0},
		{"recently seen", &entity.Entity{Type: entity.TypeNPC, Name: "Pedro Rivas (Shopkeeper)"},
			func(tc *TurnContext) { tc.RecentlySeen = []string{"pedro rivas"} }, 0.1},
		{"patient at work in the afternoon", &entity.Entity{Type: entity.TypePatient, Name: "P"}, nil, 2.0},
		{"patient at work in the morning", &entity.Entity{Type: entity.TypePatient, Name: "P"},
			func(tc *TurnContext) { tc.Time = "09:00" }, 3.0},
		{"faction loved", &entity.Entity{Type: entity.TypeNPC, Name: "F", Faction: "church"},
			func(tc *TurnContext) { tc.Reputation.Factions = map[string]int{"church": 70} }, 1.8},
		{"faction liked", &entity.Entity{Type: entity.TypeNPC, Name: "F", Faction: "church"},
			func(tc *TurnContext) { tc.Reputation.Factions = map[string]int{"church": 65} }, 1.4},
		{"faction neutral", &entity.Entity{Type: entity.TypeNPC, Name: "F", Faction: "church"},
			func(tc *TurnContext) { tc.Reputation.Factions = map[string]int{"church": 45} }, 1.0},
		{"faction disliked", &entity.Entity{Type: entity.TypeNPC, Name: "F", Faction: "church"},
			func(tc *TurnContext) { tc.Reputation.Factions = map[string]int{"church": 25} }, 0.6},
		{"faction hated", &entity.Entity{Type: entity.TypeNPC, Name: "F", Faction: "church"},
			func(tc *TurnContext) { tc.Reputation.Factions = map[string]int{"church": 10} }, 0.3},
		{"elite with high reputation", &entity.Entity{Type: entity.TypeNPC, Name: "E", Social: &entity.SocialStanding{Class: entity.ClassElite}},
			func(tc *TurnContext) { tc.Reputation.Overall = 75 }, 1.5},
		{"elite with low reputation", &entity.Entity{Type: entity.TypeNPC, Name: "E", Social: &entity.SocialStanding{Class: entity.ClassElite}},
			func(tc *TurnContext) { tc.Reputation.Overall = 30 }, 0.5},
		{"common with low reputation", &entity.Entity{Type: entity.TypeNPC, Name: "C", Social: &entity.SocialStanding{Class: entity.ClassCommon}},
			func(tc *TurnContext) { tc.Reputation.Overall = 30 }, 1.5},
		{"antagonist when poor", &entity.Entity{Type: entity.TypeAntagonist, Name: "V"},
			func(tc *TurnContext) { tc.Wealth = 5; tc.Reputation.Overall = 50 }, 1.5},
		{"antagonist poor at night", &entity.Entity{Type: entity.TypeAntagonist, Name: "V"},
			func(tc *TurnContext) { tc.Wealth = 5; tc.Reputation.Overall = 50; tc.Time = "19:30" }, 2.25},
		{"debt collector in the evening", &entity.Entity{Type: entity.TypeNPC, Name: "D", Tags: []string{"debt-collector"}},
			func(tc *TurnContext) { tc.Time = "18:00"; tc.Wealth = 50; tc.Reputation.Overall = 50 }, 1.5},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tc := shopTurn()
			tc.Wealth = 50
			tc.Reputation.Overall = 50
			if tt.mutate != nil {
				tt.mutate(&tc)
			}
			got := sel.Weigh(tc, []*entity.Entity{tt.e})
			require.Len(t, got, 1)
			assert.InDelta(t, tt.want, got[0].Weight, 1e-9)
		})
	}
}

func TestWeigh_RulesFilterAndWeight(t *testing.T) {
	rules, err := conditions.New([]conditions.Rule{
		{Name: "Late Arrival", MinTurn: 5},
		{Name: "Favoured", Modifiers: []conditions.Modifier{{When: conditions.When{MinTurn: intPtr(0)}, Weight: 3, Reason: "always"}}},
	}, nil)
	require.NoError(t, err)

	pool := slicePool{
		{Type: entity.TypeNPC, Name: "Late Arrival"},
		{Type: entity.TypeNPC, Name: "Favoured"},
		{Type: entity.TypeNPC, Name: entity.TemplateName("Late Arrival")},
	}
	sel := New(pool, rules, dice.Fixed(0))
	tc := shopTurn()
	tc.Turn = 1
	tc.Wealth = 50
	tc.Reputation.Overall = 50

	got := sel.Weigh(tc, pool)
	require.Len(t, got, 2)
	assert.Equal(t, "Favoured", got[0].Entity.Name)
	assert.InDelta(t, 3.0, got[0].Weight, 1e-9)
	assert.Contains(t, got[0].Reasons, "always")
	assert.True(t, got[1].Entity.IsTemplate(), "templates skip name rules")
}

func TestDraw_IsProportional(t *testing.T) {
	candidates := []Candidate{
		{Entity: &entity.Entity{ID: "a"}, Weight: 1},
		{Entity: &entity.Entity{ID: "b"}, Weight: 2},
		{Entity: &entity.Entity{ID: "zero"}, Weight: 0},
		{Entity: &entity.Entity{ID: "c"}, Weight: 3},
		{Entity: &entity.Entity{ID: "d"}, Weight: 4},
	}
	src := dice.New(42)
	const n = 40000
	counts := map[string]int{}
	for range n {
		c := Draw(src, candidates)
		require.NotNil(t, c)
		counts[c.Entity.ID]++
	}

	assert.Zero(t, counts["zero"])
	for id, w := range map[string]float64{"a": 1, "b": 2, "c": 3, "d": 4} {
		assert.InDelta(t, w/10, float64(counts[id])/n, 0.015, id)
	}
}

func TestDraw_Edges(t *testing.T) {
	assert.Nil(t, Draw(dice.Fixed(0.5), nil))
	assert.Nil(t, Draw(dice.Fixed(0.5), []Candidate{{Weight: 0}, {Weight: -1}}))

	cands := []Candidate{
		{Entity: &entity.Entity{ID: "a"}, Weight: 1},
		{Entity: &entity.Entity{ID: "b"}, Weight: 1},
	}
	assert.Equal(t, "a", Draw(dice.Fixed(0), cands).Entity.ID)
	assert.Equal(t, "a", Draw(dice.Fixed(0.5), cands).Entity.ID, "remainder reaching exactly zero stops")
	assert.Equal(t, "b", Draw(dice.Fixed(0.51), cands).Entity.ID)
	assert.Equal(t, "b", Draw(dice.Fixed(0.999), cands).Entity.ID)
}

func TestSelectEntity_EncounterGating(t *testing.T) {
	pool := slicePool{{ID: "npc_a", Type: entity.TypeNPC, Name: "A"}}

	tests := []struct {
		name    string
		action  string
		roll    float64
		appears bool
		prob    float64
	}{
		{"knock below threshold", "I knock on the door", 0.5, true, 0.85},
		{"knock just below", "knocking loudly", 0.849, true, 0.85},
		{"knock above threshold", "knock", 0.9, false, 0.85},
		{"ignore above threshold", "ignore the bell", 0.06, false, 0.05},
		{"ignore wins over knock", "ignore the knock", 0.5, false, 0.05},
		{"ignore below threshold", "ignore them", 0.01, true, 0.05},
		{"neutral action", "grind herbs", 0.29, true, 0.30},
		{"neutral action miss", "grind herbs", 0.31, false, 0.30},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sel := New(pool, nil, dice.Fixed(tt.roll))
			tc := shopTurn()
			tc.Action = tt.action
			out := sel.SelectEntity(tc)
			assert.Equal(t, tt.appears, out.Entity != nil)
			assert.InDelta(t, tt.prob, out.Probability, 1e-9)
		})
	}
}

func TestSelectEntity_GateDoesNotConsumeDraw(t *testing.T) {
	pool := slicePool{
		{ID: "npc_a", Type: entity.TypeNPC, Name: "A"},
		{ID: "npc_b", Type: entity.TypeNPC, Name: "B"},
	}
	seq := dice.NewSequence(0.9, 0.1, 0.99)
	sel := New(pool, nil, seq)

	tc := shopTurn()
	tc.Action = "greet whoever is there"
	assert.Nil(t, sel.SelectEntity(tc).Entity)

	out := sel.SelectEntity(tc)
	require.NotNil(t, out.Entity)
	assert.Equal(t, "npc_b", out.Entity.ID, "second turn uses 0.1 for the gate and 0.99 for the draw")
}

func TestSelectEntity_CriticalOverride(t *testing.T) {
	rules, err := conditions.New(
		[]conditions.Rule{{Name: "Don Luis", Exclude: []conditions.Gate{{
			When:   conditions.When{Location: "botica"},
			Reason: "never enters the shop",
		}}}},
		[]conditions.Deadline{{Name: "Don Luis", At: "1791-03-20 18:00", Reason: "the debt is due"}},
	)
	require.NoError(t, err)

	pool := slicePool{
		{ID: "npc_a", Type: entity.TypeNPC, Name: "A"},
		{ID: "antagonist_don_luis", Type: entity.TypeAntagonist, Name: "Don Luis de Vargas", Faction: "merchants"},
	}
	sel := New(pool, rules, dice.Fixed(0.99))

	tc := shopTurn()
	tc.Action = "hide in the back room"
	tc.Reputation.Factions = map[string]int{"merchants": 5}

	before := tc
	before.Date, before.Time = "1791-03-20", "17:59"
	out := sel.SelectEntity(before)
	assert.Nil(t, out.Entity)
	assert.False(t, out.Critical)

	at := tc
	at.Date, at.Time = "1791-03-20", "18:00"
	out = sel.SelectEntity(at)
	require.NotNil(t, out.Entity)
	assert.Equal(t, "antagonist_don_luis", out.Entity.ID)
	assert.True(t, out.Critical)
	assert.Equal(t, "the debt is due", out.Reason)

	weights := sel.Weigh(at, pool)
	for _, c := range weights {
		assert.NotEqual(t, "antagonist_don_luis", c.Entity.ID, "soft weighting alone would never pick him")
	}
}

func TestSelectEntity_CriticalMissingFallsThrough(t *testing.T) {
	rules, err := conditions.New(nil, []conditions.Deadline{{Name: "Ghost", At: "1791-01-01"}})
	require.NoError(t, err)
	pool := slicePool{{ID: "npc_a", Type: entity.TypeNPC, Name: "A"}}
	sel := New(pool, rules, dice.Fixed(0))

	out := sel.SelectEntity(shopTurn())
	require.NotNil(t, out.Entity)
	assert.Equal(t, "npc_a", out.Entity.ID)
	assert.False(t, out.Critical)
}

func TestSelectEntity_TemplateReturnedUnresolved(t *testing.T) {
	pool := slicePool{{ID: "npc_t", Type: entity.TypeNPC, Name: entity.TemplateName("Aguador")}}
	out := New(pool, nil, dice.Fixed(0)).SelectEntity(shopTurn())
	require.NotNil(t, out.Entity)
	assert.True(t, out.Entity.IsTemplate())
}

func TestSelectEntity_NoCandidates(t *testing.T) {
	pool := slicePool{{ID: "item_x", Type: entity.TypeItem, Name: "Mortar"}}
	out := New(pool, nil, dice.Fixed(0)).SelectEntity(shopTurn())
	assert.Nil(t, out.Entity)
	assert.Equal(t, "no eligible candidates", out.Reason)
}

func TestMatchesKeyword(t *testing.T) {
	kws := []string{"knock", "look for"}
	tests := []struct {
		text string
		want bool
	}{
		{"I knock twice", true},
		{"Knocking, I wait", true},
		{"the door was knocked down", true},
		{"she knocks", true},
		{"unknock", false},
		{"a knockout", false},
		{"I look for the priest", true},
		{"Looking for Fray Tomás", true},
		{"I look at the jar", false},
		{"", false},
	}
	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			assert.Equal(t, tt.want, MatchesKeyword(tt.text, kws))
		})
	}
}

func TestMatchesKeyword_DefaultVocabulary(t *testing.T) {
	tun := DefaultTuning()
	tests := []struct {
		text      string
		encounter bool
		avoid     bool
	}{
		{"I polish the silver locket", false, false},
		{"the waiter brings chocolate", false, false},
		{"a hideous smell drifts in", false, false},
		{"I am hiding in the back room", false, true},
		{"the shutters are closed", false, true},
		{"she approaches the counter", true, false},
		{"I stopped to greet him", true, false},
		{"waiting at the door", true, false},
	}
	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			assert.Equal(t, tt.encounter, MatchesKeyword(tt.text, tun.EncounterKeywords), "encounter")
			assert.Equal(t, tt.avoid, MatchesKeyword(tt.text, tun.AvoidKeywords), "avoid")
		})
	}
}

func intPtr(i int) *int { return &i }
