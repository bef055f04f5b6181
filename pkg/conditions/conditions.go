package conditions

import (
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"

	"github.com/jwebster45206/encounter-engine/pkg/entity"
)

// Reputation holds the player's standing overall and per faction, each 0-100.
type Reputation struct {
	Overall  int            `json:"overall" yaml:"overall"`
	Factions map[string]int `json:"factions,omitempty" yaml:"factions,omitempty"`
}

// Faction returns the standing with faction and whether it is known.
func (r Reputation) Faction(faction string) (int, bool) {
	v, ok := r.Factions[faction]
	return v, ok
}

// State is the slice of turn context the rules are evaluated against.
type State struct {
	Date       string            `json:"date"`
	Time       string            `json:"time"`
	Location   string            `json:"location"`
	Turn       int               `json:"turn"`
	Wealth     int               `json:"wealth"`
	Reputation Reputation        `json:"reputation"`
	ShopOpen   *bool             `json:"shop_open,omitempty"`
	Vars       map[string]string `json:"vars,omitempty"`
}

// ShopClosed reports whether the shop sign is explicitly set to closed.
func (s State) ShopClosed() bool {
	return s.ShopOpen != nil && !*s.ShopOpen
}

// Result is the outcome of evaluating the rules for one name.
type Result struct {
	Available bool    `json:"available"`
	Weight    float64 `json:"weight"`
	Reason    string  `json:"reason,omitempty"`
}

// When is a conjunction of conditions over State. An empty When never
// matches.
type When struct {
	Vars          map[string]string `yaml:"vars,omitempty" json:"vars,omitempty"`
	Location      string            `yaml:"location,omitempty" json:"location,omitempty"`
	Hours         *Window           `yaml:"hours,omitempty" json:"hours,omitempty"`
	MinTurn       *int              `yaml:"min_turn,omitempty" json:"min_turn,omitempty"`
	MinReputation *int              `yaml:"min_reputation,omitempty" json:"min_reputation,omitempty"`
	MaxReputation *int              `yaml:"max_reputation,omitempty" json:"max_reputation,omitempty"`
	Faction       string            `yaml:"faction,omitempty" json:"faction,omitempty"`
	MinFaction    *int              `yaml:"min_faction,omitempty" json:"min_faction,omitempty"`
	MaxFaction    *int              `yaml:"max_faction,omitempty" json:"max_faction,omitempty"`
	MinWealth     *int              `yaml:"min_wealth,omitempty" json:"min_wealth,omitempty"`
	MaxWealth     *int              `yaml:"max_wealth,omitempty" json:"max_wealth,omitempty"`
	ShopClosed    *bool             `yaml:"shop_closed,omitempty" json:"shop_closed,omitempty"`
}

func (w When) empty() bool {
	return len(w.Vars) == 0 && w.Location == "" && w.Hours == nil &&
		w.MinTurn == nil && w.MinReputation == nil && w.MaxReputation == nil &&
		w.MinFaction == nil && w.MaxFaction == nil &&
		w.MinWealth == nil && w.MaxWealth == nil && w.ShopClosed == nil
}

// Matches reports whether every condition in w holds for s.
func (w When) Matches(s State) bool {
	if w.empty() {
		return false
	}
	for k, want := range w.Vars {
		if got, ok := s.Vars[k]; !ok || got != want {
			return false
		}
	}
	if w.Location != "" && !LocationMatches(s.Location, w.Location) {
		return false
	}
	if w.Hours != nil && !w.Hours.Contains(s.Hour()) {
		return false
	}
	if w.MinTurn != nil && s.Turn < *w.MinTurn {
		return false
	}
	if w.MinReputation != nil && s.Reputation.Overall < *w.MinReputation {
		return false
	}
	if w.MaxReputation != nil && s.Reputation.Overall >= *w.MaxReputation {
		return false
	}
	if w.MinFaction != nil || w.MaxFaction != nil {
		v, ok := s.Reputation.Faction(w.Faction)
		if !ok {
			return false
		}
		if w.MinFaction != nil && v < *w.MinFaction {
			return false
		}
		if w.MaxFaction != nil && v >= *w.MaxFaction {
			return false
		}
	}
	if w.MinWealth != nil && s.Wealth < *w.MinWealth {
		return false
	}
	if w.MaxWealth != nil && s.Wealth >= *w.MaxWealth {
		return false
	}
	if w.ShopClosed != nil && s.ShopClosed() != *w.ShopClosed {
		return false
	}
	return true
}

// LocationMatches reports whether the normalized location contains the
// normalized keyword.
func LocationMatches(location, keyword string) bool {
	loc := entity.NormalizeName(location)
	kw := entity.NormalizeName(keyword)
	return kw != "" && strings.Contains(loc, kw)
}

// Gate makes a name unavailable while When matches.
type Gate struct {
	When   When   `yaml:"when" json:"when"`
	Reason string `yaml:"reason" json:"reason"`
}

// Modifier multiplies a name's weight while When matches.
type Modifier struct {
	When   When    `yaml:"when" json:"when"`
	Weight float64 `yaml:"weight" json:"weight"`
	Reason string  `yaml:"reason" json:"reason"`
}

// Rule is the declarative availability and weighting entry for one name.
type Rule struct {
	Name string `yaml:"name" json:"name"`
	// MinTurn keeps the name out of play before this turn.
	MinTurn int `yaml:"min_turn,omitempty" json:"min_turn,omitempty"`
	// Hours, when set, restricts availability to a time window.
	Hours     *Window    `yaml:"hours,omitempty" json:"hours,omitempty"`
	Locations []string   `yaml:"locations,omitempty" json:"locations,omitempty"`
	Exclude   []Gate     `yaml:"exclude,omitempty" json:"exclude,omitempty"`
	Modifiers []Modifier `yaml:"modifiers,omitempty" json:"modifiers,omitempty"`
}

// Evaluate applies the rule to s.
func (r Rule) Evaluate(s State) Result {
	res := Result{Available: true, Weight: 1.0}
	var reasons []string

	if r.MinTurn > 0 && s.Turn < r.MinTurn {
		return Result{Weight: 0, Reason: fmt.Sprintf("not before turn %d", r.MinTurn)}
	}
	if r.Hours != nil && !r.Hours.Contains(s.Hour()) {
		return Result{Weight: 0, Reason: fmt.Sprintf("only between %02d:00 and %02d:00", r.Hours.From, r.Hours.To)}
	}
	if len(r.Locations) > 0 && !slices.ContainsFunc(r.Locations, func(l string) bool {
		return LocationMatches(s.Location, l)
	}) {
		return Result{Weight: 0, Reason: "not at " + strings.Join(r.Locations, ", ")}
	}
	for _, g := range r.Exclude {
		if g.When.Matches(s) {
			return Result{Weight: 0, Reason: g.Reason}
		}
	}
	for _, m := range r.Modifiers {
		if m.When.Matches(s) {
			res.Weight *= m.Weight
			if m.Reason != "" {
				reasons = append(reasons, m.Reason)
			}
		}
	}
	res.Reason = strings.Join(reasons, "; ")
	return res
}

// RuleFunc is a rule registered in code for logic the table cannot express.
type RuleFunc func(State) Result

// Deadline forces Name into play once the simulated moment reaches At,
// unless every var in Unless is set.
type Deadline struct {
	Name   string            `yaml:"name" json:"name"`
	At     string            `yaml:"at" json:"at"`
	Reason string            `yaml:"reason,omitempty" json:"reason,omitempty"`
	Unless map[string]string `yaml:"unless,omitempty" json:"unless,omitempty"`
}

// Critical names the entity a deadline forces into play.
type Critical struct {
	Name   string
	Reason string
}

// Engine evaluates the rule table and critical deadlines.
type Engine struct {
	mu        sync.RWMutex
	rules     map[string]Rule
	funcs     map[string][]RuleFunc
	deadlines []Deadline
	log       *slog.Logger
}

type Option func(*Engine)

func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.log = l
		}
	}
}

// New builds an engine. Rules are keyed by normalized name; a later rule for
// the same name replaces an earlier one. Deadlines that do not parse are
// returned as an error.
func New(rules []Rule, deadlines []Deadline, opts ...Option) (*Engine, error) {
	e := &Engine{
		rules: make(map[string]Rule, len(rules)),
		funcs: make(map[string][]RuleFunc),
		log:   slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	for _, r := range rules {
		key := entity.NormalizeName(r.Name)
		if key == "" {
			return nil, fmt.Errorf("rule has no name")
		}
		e.rules[key] = r
	}
	for _, d := range deadlines {
		if _, ok := ParseMoment(d.At); !ok {
			return nil, fmt.Errorf("deadline for %q has invalid time %q", d.Name, d.At)
		}
		e.deadlines = append(e.deadlines, d)
	}
	return e, nil
}

// Register adds a code rule for name, evaluated after the table rule.
func (e *Engine) Register(name string, fn RuleFunc) {
	e.mu.Lock()
	defer e.mu.Unlock()
	key := entity.NormalizeName(name)
	e.funcs[key] = append(e.funcs[key], fn)
}

// CheckConditions evaluates every rule registered for name. Names without
// rules are available at weight 1.
func (e *Engine) CheckConditions(name string, s State) Result {
	if e == nil {
		return Result{Available: true, Weight: 1.0}
	}
	e.mu.RLock()
	defer e.mu.RUnlock()

	if _, _, ok := ParseClock(s.Time); !ok && s.Time != "" {
		e.log.Debug("Unparseable simulated time, assuming noon", "time", s.Time)
	}

	key := entity.NormalizeName(name)
	res := Result{Available: true, Weight: 1.0}
	var reasons []string
	if r, ok := e.rules[key]; ok {
		res = r.Evaluate(s)
		if res.Reason != "" {
			reasons = append(reasons, res.Reason)
		}
	}
	for _, fn := range e.funcs[key] {
		if !res.Available {
			break
		}
		out := fn(s)
		if !out.Available {
			return out
		}
		res.Weight *= out.Weight
		if out.Reason != "" {
			reasons = append(reasons, out.Reason)
		}
	}
	if res.Available {
		res.Reason = strings.Join(reasons, "; ")
	}
	return res
}

// GetCriticalNPC returns the entity a passed deadline forces into play. When
// several deadlines have passed, the earliest wins.
func (e *Engine) GetCriticalNPC(s State) (Critical, bool) {
	if e == nil {
		return Critical{}, false
	}
	now, ok := s.Moment()
	if !ok {
		return Critical{}, false
	}
	e.mu.RLock()
	defer e.mu.RUnlock()

	var best *Deadline
	var bestAt int64
	for i := range e.deadlines {
		d := &e.deadlines[i]
		at, _ := ParseMoment(d.At)
		if now.Before(at) || waived(d.Unless, s.Vars) {
			continue
		}
		if best == nil || at.Unix() < bestAt {
			best, bestAt = d, at.Unix()
		}
	}
	if best == nil {
		return Critical{}, false
	}
	reason := best.Reason
	if reason == "" {
		reason = "deadline " + best.At + " passed"
	}
	return Critical{Name: best.Name, Reason: reason}, true
}

func waived(unless, vars map[string]string) bool {
	if len(unless) == 0 {
		return false
	}
	for k, want := range unless {
		if vars[k] != want {
			return false
		}
	}
	return true
}
