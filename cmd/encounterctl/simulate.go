package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/jwebster45206/encounter-engine/pkg/conditions"
	"github.com/jwebster45206/encounter-engine/pkg/dice"
	"github.com/jwebster45206/encounter-engine/pkg/encounter"
	"github.com/jwebster45206/encounter-engine/pkg/scenario"
	"github.com/jwebster45206/encounter-engine/pkg/selection"
)

type simulateFlags struct {
	scenario   string
	turns      int
	seed       uint64
	action     string
	step       time.Duration
	wealth     int
	reputation int
	patient    bool
	format     string
	snapshot   string
}

func newSimulateCmd() *cobra.Command {
	var flags simulateFlags

	cmd := &cobra.Command{
		Use:   "simulate",
		Short: "Run encounter selection over a number of turns",
		Long: `Seeds a store from the scenario and runs selection turn after turn,
advancing the clock from the scenario's start date and time.

Examples:
  encounterctl simulate --turns 20 --seed 7
  encounterctl simulate --action "I knock on the door" --format json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSimulate(cmd, flags)
		},
	}

	cmd.Flags().StringVarP(&flags.scenario, "scenario", "s", "data/scenarios/botica.yaml", "Scenario file")
	cmd.Flags().IntVarP(&flags.turns, "turns", "n", 10, "Number of turns")
	cmd.Flags().Uint64Var(&flags.seed, "seed", 1, "Random seed")
	cmd.Flags().StringVar(&flags.action, "action", "I open the shop and greet whoever comes in", "Player action for every turn")
	cmd.Flags().DurationVar(&flags.step, "step", time.Hour, "Simulated time between turns")
	cmd.Flags().IntVar(&flags.wealth, "wealth", 50, "Player wealth")
	cmd.Flags().IntVar(&flags.reputation, "reputation", 50, "Overall reputation")
	cmd.Flags().BoolVar(&flags.patient, "active-patient", false, "Treat a patient as already active")
	cmd.Flags().StringVar(&flags.format, "format", "table", "Output format: table, json")
	cmd.Flags().StringVar(&flags.snapshot, "snapshot", "", "Write the final snapshot to this file")

	return cmd
}

// TurnRecord is one simulated turn.
type TurnRecord struct {
	Turn     int    `json:"turn"`
	Date     string `json:"date"`
	Time     string `json:"time"`
	EntityID string `json:"entity_id,omitempty"`
	Name     string `json:"name,omitempty"`
	Critical bool   `json:"critical,omitempty"`
	Reason   string `json:"reason"`
}

func runSimulate(cmd *cobra.Command, flags simulateFlags) error {
	if flags.turns < 1 {
		return errors.New("turns must be at least 1")
	}
	if flags.format != "table" && flags.format != "json" {
		return fmt.Errorf("invalid format: %s (valid: table, json)", flags.format)
	}

	sc, err := scenario.Load(flags.scenario)
	if err != nil {
		return err
	}
	engine, err := encounter.New(sc, dice.New(flags.seed), encounter.WithLogger(quiet()))
	if err != nil {
		return err
	}

	records, err := simulate(cmd, engine, flags)
	if err != nil {
		return err
	}

	if flags.snapshot != "" {
		data, err := json.MarshalIndent(engine.Store().Snapshot(), "", "  ")
		if err != nil {
			return fmt.Errorf("marshalling snapshot: %w", err)
		}
		if err := os.WriteFile(flags.snapshot, data, 0o644); err != nil {
			return fmt.Errorf("writing snapshot: %w", err)
		}
	}

	if flags.format == "json" {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(records)
	}
	printTurns(cmd.OutOrStdout(), records)
	return nil
}

func simulate(cmd *cobra.Command, engine *encounter.Engine, flags simulateFlags) ([]TurnRecord, error) {
	sc := engine.Scenario()
	clock, ok := conditions.ParseMoment(sc.StartDate + " " + sc.StartTime)
	if !ok {
		clock = time.Date(1791, 1, 1, conditions.NoonHour, 0, 0, 0, time.UTC)
	}

	var (
		records []TurnRecord
		recent  []string
	)
	for turn := 1; turn <= flags.turns; turn++ {
		tc := selection.TurnContext{
			State: conditions.State{
				Date:       clock.Format(conditions.DateLayout),
				Time:       clock.Format("15:04"),
				Location:   sc.StartLocation,
				Turn:       turn,
				Wealth:     flags.wealth,
				Reputation: conditions.Reputation{Overall: flags.reputation},
			},
			ScenarioID:    sc.ID,
			Action:        flags.action,
			RecentlySeen:  recent,
			ActivePatient: flags.patient,
		}
		res, err := engine.Turn(cmd.Context(), tc)
		if err != nil {
			return records, fmt.Errorf("turn %d: %w", turn, err)
		}

		rec := TurnRecord{Turn: turn, Date: tc.Date, Time: tc.Time, Reason: res.Reason, Critical: res.Critical}
		if res.Entity != nil {
			rec.EntityID, rec.Name = res.Entity.ID, res.Entity.Name
			recent = append(recent, res.Entity.Name)
			if len(recent) > 3 {
				recent = recent[1:]
			}
		}
		records = append(records, rec)
		clock = clock.Add(flags.step)
	}
	return records, nil
}

func printTurns(w io.Writer, records []TurnRecord) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "TURN\tWHEN\tENTITY\tREASON")
	met := 0
	for _, r := range records {
		who := "-"
		if r.Name != "" {
			who = r.Name
			met++
		}
		if r.Critical {
			who += " (!)"
		}
		fmt.Fprintf(tw, "%d\t%s %s\t%s\t%s\n", r.Turn, r.Date, r.Time, who, r.Reason)
	}
	_ = tw.Flush()
	fmt.Fprintf(w, "\n%d encounters in %d turns\n", met, len(records))
}
