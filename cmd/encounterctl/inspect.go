package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/jwebster45206/encounter-engine/internal/storage"
	"github.com/jwebster45206/encounter-engine/pkg/entity"
	"github.com/jwebster45206/encounter-engine/pkg/store"
)

type inspectFlags struct {
	sqlite  string
	session string
}

func newInspectCmd() *cobra.Command {
	var flags inspectFlags

	cmd := &cobra.Command{
		Use:   "inspect [snapshot.json]",
		Short: "Summarise a saved snapshot",
		Long: `Reads a snapshot from a JSON file, or from a SQLite snapshot database
together with its version history.

Examples:
  encounterctl inspect final.json
  encounterctl inspect --sqlite data/snapshots.db --session <uuid>`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInspect(cmd, args, flags)
		},
	}

	cmd.Flags().StringVar(&flags.sqlite, "sqlite", "", "SQLite snapshot database")
	cmd.Flags().StringVar(&flags.session, "session", "", "Session id inside the database")

	return cmd
}

func runInspect(cmd *cobra.Command, args []string, flags inspectFlags) error {
	out := cmd.OutOrStdout()

	if flags.sqlite == "" {
		if len(args) != 1 {
			return fmt.Errorf("give a snapshot file or --sqlite")
		}
		data, err := os.ReadFile(args[0])
		if err != nil {
			return fmt.Errorf("reading snapshot: %w", err)
		}
		var snap store.Snapshot
		if err := json.Unmarshal(data, &snap); err != nil {
			return fmt.Errorf("parsing snapshot: %w", err)
		}
		summarise(out, &snap)
		return nil
	}

	db, err := storage.NewSQLiteStorage(flags.sqlite, quiet())
	if err != nil {
		return err
	}
	defer db.Close()
	ctx := cmd.Context()
	if err := db.EnsureSchema(ctx); err != nil {
		return err
	}

	if flags.session == "" {
		sessions, err := db.ListSessions(ctx)
		if err != nil {
			return err
		}
		if len(sessions) == 0 {
			fmt.Fprintln(out, "No sessions found.")
			return nil
		}
		for _, s := range sessions {
			fmt.Fprintln(out, s)
		}
		return nil
	}

	session, err := uuid.Parse(flags.session)
	if err != nil {
		return fmt.Errorf("invalid session id: %w", err)
	}
	snap, err := db.LoadSnapshot(ctx, session)
	if err != nil {
		return err
	}
	if snap == nil {
		return fmt.Errorf("no snapshot for session %s", session)
	}
	summarise(out, snap)

	history, err := db.History(ctx, session)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "\nHistory (%d versions):\n", len(history))
	for _, h := range history {
		fmt.Fprintf(out, "  v%-6d %3d entities  %s\n", h.Version, h.Entities, h.CreatedAt.Format("2006-01-02 15:04:05"))
	}
	return nil
}

func summarise(w io.Writer, snap *store.Snapshot) {
	byType := map[entity.Type]int{}
	bySource := map[entity.DataSource]int{}
	templates := 0
	for _, e := range snap.Entities {
		byType[e.Type]++
		bySource[e.Metadata.DataSource]++
		if e.IsTemplate() {
			templates++
		}
	}
	fmt.Fprintf(w, "Version %d, %d entities (%d unresolved templates)\n", snap.Version, len(snap.Entities), templates)
	printCounts(w, "By type", byType)
	printCounts(w, "By source", bySource)
}

func printCounts[K ~string](w io.Writer, title string, m map[K]int) {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, string(k))
	}
	sort.Strings(keys)
	fmt.Fprintf(w, "%s:\n", title)
	for _, k := range keys {
		fmt.Fprintf(w, "  %-12s %d\n", k, m[K(k)])
	}
}
