// Package encounter wires the store, condition engine, selector and
// narrative extraction into the per-turn flow the orchestrator drives:
// select, enrich, hand off, then ingest whatever the narrative introduced.
package encounter

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jwebster45206/encounter-engine/internal/logger"
	"github.com/jwebster45206/encounter-engine/internal/observe"
	"github.com/jwebster45206/encounter-engine/pkg/actor"
	"github.com/jwebster45206/encounter-engine/pkg/conditions"
	"github.com/jwebster45206/encounter-engine/pkg/dice"
	"github.com/jwebster45206/encounter-engine/pkg/enrich"
	"github.com/jwebster45206/encounter-engine/pkg/entity"
	"github.com/jwebster45206/encounter-engine/pkg/extract"
	"github.com/jwebster45206/encounter-engine/pkg/identity"
	"github.com/jwebster45206/encounter-engine/pkg/scenario"
	"github.com/jwebster45206/encounter-engine/pkg/selection"
	"github.com/jwebster45206/encounter-engine/pkg/store"
)

// Result is what the orchestrator receives for a turn. Entity is the
// enriched profile, or nil when nobody appears.
type Result struct {
	Entity      *entity.Entity `json:"entity"`
	Reason      string         `json:"reason"`
	Critical    bool           `json:"critical"`
	Probability float64        `json:"probability"`
	Roll        float64        `json:"roll"`
	Candidates  int            `json:"candidates"`
}

// Engine runs encounter turns for one scenario session.
type Engine struct {
	scenario  *scenario.Scenario
	src       dice.Source
	store     *store.Store
	rules     *conditions.Engine
	selector  *selection.Selector
	extractor *extract.Materializer
	ids       *identity.Generator

	log     *slog.Logger
	events  *logger.EventLogger
	metrics *observe.Metrics
}

type Option func(*Engine)

func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.log = l
		}
	}
}

// WithEventLogger sets the rate-limited logger shared by every component.
func WithEventLogger(l *logger.EventLogger) Option {
	return func(e *Engine) { e.events = l }
}

func WithMetrics(m *observe.Metrics) Option {
	return func(e *Engine) { e.metrics = m }
}

// New builds an engine for sc and seeds the store with its static entities.
// Entities that fail to register are logged and skipped.
func New(sc *scenario.Scenario, src dice.Source, opts ...Option) (*Engine, error) {
	if sc == nil {
		sc = scenario.New()
	}
	e := &Engine{scenario: sc, src: src, log: slog.Default()}
	for _, opt := range opts {
		opt(e)
	}
	if e.events == nil {
		e.events = logger.NewEventLogger(e.log, 0)
	}

	rules, err := sc.Conditions(conditions.WithLogger(e.log))
	if err != nil {
		return nil, fmt.Errorf("failed to build conditions: %w", err)
	}
	e.rules = rules
	e.ids = identity.New(src)
	pipeline := enrich.New(e.ids, src, enrich.WithLogger(e.log))
	e.store = store.New(pipeline, store.WithEventLogger(e.events))
	e.selector = selection.New(e.store, rules, src,
		selection.WithTuning(sc.Tuning),
		selection.WithEventLogger(e.events))
	e.extractor = extract.NewMaterializer(e.store, extract.NewRegexExtractor(sc.Extraction),
		extract.WithProtagonist(sc.Protagonist),
		extract.WithEventLogger(e.events))

	n, err := sc.Populate(e.store)
	if err != nil {
		e.log.Warn("Some scenario entities were not registered", "error", err)
	}
	e.log.Info("Encounter engine ready", "scenario", sc.ID, "entities", n)

	if e.metrics != nil {
		if err := e.metrics.ObserveEntityCount(e.store.Count); err != nil {
			return nil, fmt.Errorf("failed to register entity gauge: %w", err)
		}
	}
	return e, nil
}

// Store exposes the entity store for persistence wiring and direct queries.
func (e *Engine) Store() *store.Store { return e.store }

// Scenario returns the scenario the engine was built from.
func (e *Engine) Scenario() *scenario.Scenario { return e.scenario }

// Identities returns the identity generator backing enrichment.
func (e *Engine) Identities() *identity.Generator { return e.ids }

// Rules returns the condition engine so callers can register extra rule
// functions.
func (e *Engine) Rules() *conditions.Engine { return e.rules }

// Turn selects at most one entity for tc and returns its enriched view.
func (e *Engine) Turn(ctx context.Context, tc selection.TurnContext) (Result, error) {
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}
	start := time.Now()
	out := e.selector.SelectEntity(tc)
	res := Result{
		Reason:      out.Reason,
		Critical:    out.Critical,
		Probability: out.Probability,
		Roll:        out.Roll,
		Candidates:  out.Candidates,
	}

	outcome := observe.OutcomeNone
	var id, typ string
	if out.Entity != nil {
		enriched, ok := e.store.GetByID(out.Entity.ID)
		if !ok {
			return res, fmt.Errorf("%w: %s vanished during selection", store.ErrNotFound, out.Entity.ID)
		}
		res.Entity = enriched
		id, typ = enriched.ID, string(enriched.Type)
		outcome = observe.OutcomeEncounter
		if out.Critical {
			outcome = observe.OutcomeCritical
		}
		e.log.DebugContext(ctx, "Entity selected", "id", id, "name", enriched.Name, "critical", out.Critical, "reason", out.Reason)
	} else {
		e.log.DebugContext(ctx, "No encounter", "reason", out.Reason, "candidates", out.Candidates)
	}

	if e.metrics != nil {
		e.metrics.RecordTurn(ctx, outcome, id, typ, time.Since(start).Seconds())
	}
	return res, nil
}

// IngestNarrative registers the entities a turn's prose introduced. It
// returns every entity it registered even when some candidates failed.
func (e *Engine) IngestNarrative(ctx context.Context, prose string, mentions []extract.Mention) ([]*entity.Entity, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	created, err := e.extractor.Ingest(prose, mentions)
	if e.metrics != nil {
		e.metrics.RecordExtraction(ctx, "registered", len(created))
		e.metrics.RecordExtraction(ctx, "error", countErrors(err))
		for _, c := range created {
			e.metrics.RecordRegistration(ctx, string(c.Metadata.DataSource))
		}
	}
	if err != nil {
		e.log.WarnContext(ctx, "Narrative ingestion had failures", "registered", len(created), "error", err)
	}
	return created, err
}

// Register adds or merges an externally supplied entity.
func (e *Engine) Register(ctx context.Context, in *entity.Entity) (*entity.Entity, error) {
	out, err := e.store.Register(in)
	if err != nil {
		return nil, err
	}
	if e.metrics != nil {
		e.metrics.RecordRegistration(ctx, string(out.Metadata.DataSource))
	}
	return out, nil
}

// SkillCheck rolls a skill check for the entity with the given id.
func (e *Engine) SkillCheck(ctx context.Context, id, skill string, dc int) (actor.CheckResult, error) {
	if err := ctx.Err(); err != nil {
		return actor.CheckResult{}, err
	}
	ent, ok := e.store.GetByID(id)
	if !ok {
		return actor.CheckResult{}, fmt.Errorf("%w: %s", store.ErrNotFound, id)
	}
	if !ent.Type.IsPerson() {
		return actor.CheckResult{}, fmt.Errorf("%s is a %s and cannot make skill checks", id, ent.Type)
	}
	npc, err := actor.NewNPCActor(ent)
	if err != nil {
		return actor.CheckResult{}, err
	}
	res := npc.Check(e.src, skill, dc)
	e.log.DebugContext(ctx, "Skill check", "id", id, "skill", res.Skill, "total", res.Total, "dc", dc, "success", res.Success)
	return res, nil
}

func countErrors(err error) int {
	if err == nil {
		return 0
	}
	if j, ok := err.(interface{ Unwrap() []error }); ok {
		return len(j.Unwrap())
	}
	return 1
}
