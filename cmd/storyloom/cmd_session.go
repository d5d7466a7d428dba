package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"github.com/user/storyloom/internal/types"
)

func init() {
	rootCmd.AddCommand(sessionCmd)
	sessionCmd.AddCommand(sessionListCmd, sessionShowCmd, sessionDeleteCmd)
}

var sessionCmd = &cobra.Command{
	Use:   "session",
	Short: "Manage saved story sessions",
}

var sessionListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all saved sessions",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := loadConfig()
		setupLogging(cfg)
		st, closeStore, err := openStore(cfg)
		if err != nil {
			return err
		}
		defer closeStore()

		summaries, err := st.List(context.Background())
		if err != nil {
			return fmt.Errorf("list sessions: %w", err)
		}
		if len(summaries) == 0 {
			fmt.Println("No sessions found.")
			return nil
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tTITLE\tCHARACTERS\tEVENTS\tUPDATED")
		for _, s := range summaries {
			fmt.Fprintf(w, "%s\t%s\t%d\t%d\t%s\n",
				s.ID, s.Title, s.Characters, s.HistoryLen,
				s.LastUpdated.Format("2006-01-02 15:04:05"))
		}
		return w.Flush()
	},
}

var sessionShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show a session's world state",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := loadConfig()
		setupLogging(cfg)
		st, closeStore, err := openStore(cfg)
		if err != nil {
			return err
		}
		defer closeStore()

		session, err := st.Load(context.Background(), types.SessionID(args[0]))
		if err != nil {
			return fmt.Errorf("load session: %w", err)
		}

		world := session.World
		fmt.Printf("Premise:  %s\n", world.Premise)
		fmt.Printf("Setting:  %s\n", world.Setting)
		fmt.Printf("Conflicts: %s\n", strings.Join(world.Conflicts, "; "))
		fmt.Printf("Scene:    %s (%s)\n", world.CurrentScene.Location, world.CurrentScene.Atmosphere)
		fmt.Printf("Characters (%d):\n", len(world.Characters))
		for name, ch := range world.Characters {
			fmt.Printf("  %s - %s\n", name, ch.Description)
		}
		fmt.Printf("History (%d entries, last 10):\n", len(world.History))
		for _, entry := range world.RecentHistory(10) {
			fmt.Printf("  %s\n", entry)
		}
		return nil
	},
}

var sessionDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete a saved session",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := loadConfig()
		setupLogging(cfg)
		st, closeStore, err := openStore(cfg)
		if err != nil {
			return err
		}
		defer closeStore()

		if err := st.Delete(context.Background(), types.SessionID(args[0])); err != nil {
			return fmt.Errorf("delete session: %w", err)
		}
		fmt.Printf("Session %s deleted.\n", args[0])
		return nil
	},
}
