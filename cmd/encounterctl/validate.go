package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jwebster45206/encounter-engine/pkg/entity"
	"github.com/jwebster45206/encounter-engine/pkg/scenario"
)

func newValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate <scenario>",
		Short: "Check a scenario file for structural problems",
		Long:  "Loads a YAML or JSON scenario, reports every problem found, and prints a summary when it is valid.",
		Args:  cobra.ExactArgs(1),
		RunE:  runValidate,
	}
}

func runValidate(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Validating %s...\n", args[0])

	sc, err := scenario.Load(args[0])
	if err != nil {
		return err
	}
	if err := sc.Validate(); err != nil {
		return err
	}

	counts := map[entity.Type]int{}
	for _, e := range sc.Entities {
		counts[e.Type]++
	}
	fmt.Fprintf(out, "%s (%s): %d entities, %d rules, %d deadlines\n",
		sc.Name, sc.ID, len(sc.Entities), len(sc.Rules), len(sc.Deadlines))
	for _, t := range []entity.Type{entity.TypeNPC, entity.TypePatient, entity.TypeAntagonist, entity.TypeState, entity.TypeItem, entity.TypeLocation, entity.TypeQuest} {
		if counts[t] > 0 {
			fmt.Fprintf(out, "  %-10s %d\n", t, counts[t])
		}
	}
	fmt.Fprintln(out, "Scenario file is valid!")
	return nil
}
