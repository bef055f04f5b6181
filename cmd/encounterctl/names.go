package main

import (
	"fmt"
	"slices"

	"github.com/spf13/cobra"

	"github.com/jwebster45206/encounter-engine/pkg/dice"
	"github.com/jwebster45206/encounter-engine/pkg/entity"
	"github.com/jwebster45206/encounter-engine/pkg/identity"
)

type namesFlags struct {
	gender    string
	casta     string
	archetype string
	count     int
	seed      uint64
}

func newNamesCmd() *cobra.Command {
	var flags namesFlags

	cmd := &cobra.Command{
		Use:   "names",
		Short: "Generate identities from the name tables",
		Long: `Draws identities the way template entities are resolved.

Examples:
  encounterctl names --count 5
  encounterctl names --gender female --casta mestizo --archetype Lavandera`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runNames(cmd, flags)
		},
	}

	cmd.Flags().StringVarP(&flags.gender, "gender", "g", "", "male or female (default: inferred or random)")
	cmd.Flags().StringVarP(&flags.casta, "casta", "c", "", "Casta to draw names for (default: random)")
	cmd.Flags().StringVarP(&flags.archetype, "archetype", "a", "", "Archetype appended to the name")
	cmd.Flags().IntVarP(&flags.count, "count", "n", 1, "Number of identities")
	cmd.Flags().Uint64Var(&flags.seed, "seed", 1, "Random seed")

	return cmd
}

func runNames(cmd *cobra.Command, flags namesFlags) error {
	if flags.count < 1 {
		return fmt.Errorf("count must be at least 1")
	}
	req := identity.Request{
		Gender:    entity.Gender(flags.gender),
		Casta:     entity.Casta(flags.casta),
		Archetype: flags.archetype,
	}
	if req.Gender != "" && req.Gender != entity.GenderMale && req.Gender != entity.GenderFemale {
		return fmt.Errorf("invalid gender %q (valid: male, female)", flags.gender)
	}
	if req.Casta != "" && !slices.Contains(entity.Castas, req.Casta) {
		return fmt.Errorf("invalid casta %q (valid: %v)", flags.casta, entity.Castas)
	}

	gen := identity.New(dice.New(flags.seed))
	out := cmd.OutOrStdout()
	for range flags.count {
		id := gen.Generate(req)
		fmt.Fprintf(out, "%-40s %-7s %s\n", id.FullName, id.Gender, id.Casta)
	}
	return nil
}
