package conditions

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func intPtr(i int) *int    { return &i }
func boolPtr(b bool) *bool { return &b }

func TestParseClock(t *testing.T) {
	tests := []struct {
		in     string
		hour   int
		minute int
		parsed bool
	}{
		{"14:30", 14, 30, true},
		{"08:05:10", 8, 5, true},
		{"3:15 pm", 15, 15, true},
		{"9 AM", 9, 0, true},
		{"11PM", 23, 0, true},
		{"", NoonHour, 0, false},
		{"dusk", NoonHour, 0, false},
		{"25:00", NoonHour, 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			h, m, ok := ParseClock(tt.in)
			assert.Equal(t, tt.hour, h)
			assert.Equal(t, tt.minute, m)
			assert.Equal(t, tt.parsed, ok)
		})
	}
}

func TestParseMoment(t *testing.T) {
	at, ok := ParseMoment("1791-03-20 18:30")
	require.True(t, ok)
	assert.Equal(t, 18, at.Hour())
	assert.Equal(t, 30, at.Minute())

	at, ok = ParseMoment("1791-03-20")
	require.True(t, ok)
	assert.Equal(t, NoonHour, at.Hour())

	_, ok = ParseMoment("March 20")
	assert.False(t, ok)
}

func TestWindowContains(t *testing.T) {
	day := Window{From: 8, To: 20}
	assert.True(t, day.Contains(8))
	assert.True(t, day.Contains(19))
	assert.False(t, day.Contains(20))
	assert.False(t, day.Contains(3))

	night := Window{From: 22, To: 5}
	assert.True(t, night.Contains(23))
	assert.True(t, night.Contains(2))
	assert.False(t, night.Contains(12))
}

func TestWhenMatches(t *testing.T) {
	state := State{
		Time:       "19:00",
		Location:   "La Botica de San Miguel",
		Turn:       7,
		Wealth:     15,
		Reputation: Reputation{Overall: 65, Factions: map[string]int{"church": 80}},
		ShopOpen:   boolPtr(false),
		Vars:       map[string]string{"debt_paid": "false"},
	}

	tests := []struct {
		name string
		when When
		want bool
	}{
		{"empty never matches", When{}, false},
		{"location substring", When{Location: "botica"}, true},
		{"location accent insensitive", When{Location: "San Miguél"}, true},
		{"location miss", When{Location: "plaza"}, false},
		{"hours", When{Hours: &Window{From: 18, To: 23}}, true},
		{"hours miss", When{Hours: &Window{From: 8, To: 12}}, false},
		{"min turn", When{MinTurn: intPtr(7)}, true},
		{"min turn miss", When{MinTurn: intPtr(8)}, false},
		{"reputation band", When{MinReputation: intPtr(60), MaxReputation: intPtr(70)}, true},
		{"faction", When{Faction: "church", MinFaction: intPtr(70)}, true},
		{"unknown faction", When{Faction: "guild", MinFaction: intPtr(0)}, false},
		{"poor", When{MaxWealth: intPtr(20)}, true},
		{"shop closed", When{ShopClosed: boolPtr(true)}, true},
		{"vars", When{Vars: map[string]string{"debt_paid": "false"}}, true},
		{"vars mismatch", When{Vars: map[string]string{"debt_paid": "true"}}, false},
		{"conjunction fails on one", When{Location: "botica", MinTurn: intPtr(99)}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.when.Matches(state))
		})
	}
}

func TestRuleEvaluate(t *testing.T) {
	rule := Rule{
		Name:    "Fray Tomás",
		MinTurn: 3,
		Hours:   &Window{From: 6, To: 21},
		Exclude: []Gate{{When: When{Vars: map[string]string{"fray_angry": "true"}}, Reason: "refuses to visit"}},
		Modifiers: []Modifier{
			{When: When{Faction: "church", MinFaction: intPtr(70)}, Weight: 2.0, Reason: "church favour"},
			{When: When{Location: "chapel"}, Weight: 1.5, Reason: "near the chapel"},
		},
	}

	tests := []struct {
		name      string
		state     State
		available bool
		weight    float64
		reason    string
	}{
		{"before min turn", State{Turn: 1, Time: "10:00"}, false, 0, "not before turn 3"},
		{"outside hours", State{Turn: 5, Time: "22:00"}, false, 0, "only between 06:00 and 21:00"},
		{"excluded", State{Turn: 5, Time: "10:00", Vars: map[string]string{"fray_angry": "true"}}, false, 0, "refuses to visit"},
		{"plain", State{Turn: 5, Time: "10:00"}, true, 1.0, ""},
		{
			"stacked modifiers",
			State{Turn: 5, Time: "10:00", Location: "chapel street", Reputation: Reputation{Factions: map[string]int{"church": 75}}},
			true, 3.0, "church favour; near the chapel",
		},
		{"unparseable time is noon", State{Turn: 5, Time: "evening"}, true, 1.0, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := rule.Evaluate(tt.state)
			assert.Equal(t, tt.available, got.Available)
			assert.InDelta(t, tt.weight, got.Weight, 1e-9)
			assert.Equal(t, tt.reason, got.Reason)
		})
	}
}

func TestRuleLocations(t *testing.T) {
	rule := Rule{Name: "Aguador", Locations: []string{"plaza", "fountain"}}
	assert.True(t, rule.Evaluate(State{Location: "Plaza Mayor"}).Available)
	assert.False(t, rule.Evaluate(State{Location: "botica"}).Available)
}

func TestCheckConditions(t *testing.T) {
	e, err := New([]Rule{
		{Name: "Don Luis", Modifiers: []Modifier{{When: When{MaxWealth: intPtr(20)}, Weight: 2, Reason: "smells weakness"}}},
		{Name: "La Curandera", MinTurn: 10},
	}, nil)
	require.NoError(t, err)

	e.Register("don luis", func(s State) Result {
		if s.Reputation.Overall >= 80 {
			return Result{Weight: 0.5, Available: true, Reason: "wary of the respected"}
		}
		return Result{Available: true, Weight: 1}
	})
	e.Register("Sor Juana", func(State) Result {
		return Result{Available: false, Reason: "cloistered"}
	})

	got := e.CheckConditions("DON LUIS", State{Wealth: 5, Reputation: Reputation{Overall: 90}})
	assert.True(t, got.Available)
	assert.InDelta(t, 1.0, got.Weight, 1e-9)
	assert.Equal(t, "smells weakness; wary of the respected", got.Reason)

	got = e.CheckConditions("Curandera", State{Turn: 2})
	assert.False(t, got.Available, "leading articles are ignored")
	assert.Equal(t, "not before turn 10", got.Reason)

	got = e.CheckConditions("la curandera", State{Turn: 2})
	assert.False(t, got.Available)

	got = e.CheckConditions("Sor Juana", State{})
	assert.False(t, got.Available)
	assert.Equal(t, "cloistered", got.Reason)

	got = e.CheckConditions("Nobody", State{})
	assert.Equal(t, Result{Available: true, Weight: 1}, got)

	var nilEngine *Engine
	assert.True(t, nilEngine.CheckConditions("x", State{}).Available)
}

func TestNew_Errors(t *testing.T) {
	_, err := New([]Rule{{Name: ""}}, nil)
	assert.Error(t, err)

	_, err = New(nil, []Deadline{{Name: "Don Luis", At: "soon"}})
	assert.Error(t, err)
}

func TestGetCriticalNPC_DebtDeadline(t *testing.T) {
	e, err := New(nil, []Deadline{
		{Name: "Don Luis", At: "1791-03-20 18:00", Reason: "the debt is due", Unless: map[string]string{"debt_paid": "true"}},
		{Name: "Alguacil", At: "1791-03-25"},
	})
	require.NoError(t, err)

	tests := []struct {
		name   string
		state  State
		want   string
		reason string
		fired  bool
	}{
		{"day before", State{Date: "1791-03-19", Time: "23:59"}, "", "", false},
		{"same day earlier", State{Date: "1791-03-20", Time: "17:59"}, "", "", false},
		{"exactly at deadline", State{Date: "1791-03-20", Time: "18:00"}, "Don Luis", "the debt is due", true},
		{"after deadline", State{Date: "1791-03-21", Time: "08:00"}, "Don Luis", "the debt is due", true},
		{"noon fallback before", State{Date: "1791-03-20", Time: "???"}, "", "", false},
		{"earliest of several", State{Date: "1791-03-26", Time: "09:00"}, "Don Luis", "the debt is due", true},
		{"waived by vars", State{Date: "1791-03-21", Vars: map[string]string{"debt_paid": "true"}}, "", "", false},
		{"waived then next", State{Date: "1791-03-26", Vars: map[string]string{"debt_paid": "true"}}, "Alguacil", "deadline 1791-03-25 passed", true},
		{"bad date", State{Date: "yesterday", Time: "18:00"}, "", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := e.GetCriticalNPC(tt.state)
			assert.Equal(t, tt.fired, ok)
			assert.Equal(t, tt.want, got.Name)
			assert.Equal(t, tt.reason, got.Reason)
		})
	}
}
