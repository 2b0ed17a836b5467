package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var syncConcurrency int

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Mirror every card to its community forum",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := buildApp()
		if err != nil {
			return err
		}
		defer a.Close()

		if err := a.Provider.Init(cmd.Context()); err != nil {
			return err
		}
		if syncConcurrency > 0 {
			a.Engine.Concurrency = syncConcurrency
		}

		result, err := a.Engine.SyncAll(cmd.Context())
		if err != nil {
			return err
		}

		s := result.Stats
		fmt.Printf("%s created %d, updated %d, moved %d, archived %d, unarchived %d, skipped %d, errors %d\n",
			okStyle.Render("Sync complete:"),
			s.Created, s.Updated, s.Moved, s.Archived, s.Unarchived, s.Skipped, s.Errors)
		for _, w := range result.Warnings {
			fmt.Println(warnStyle.Render("  " + w))
		}
		if s.Errors > 0 {
			return fmt.Errorf("%d cards failed to sync", s.Errors)
		}
		return nil
	},
}

var resyncCmd = &cobra.Command{
	Use:   "resync <card-id>",
	Short: "Re-mirror a single card from its current tracker state",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := buildApp()
		if err != nil {
			return err
		}
		defer a.Close()

		if err := a.Provider.Init(cmd.Context()); err != nil {
			return err
		}

		resp, err := a.Handler.Resync(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		if !resp.Success {
			return fmt.Errorf("%s", resp.Message)
		}
		fmt.Println(okStyle.Render(fmt.Sprintf("Resynced %s (%s)", resp.Card.ID, resp.Card.Title)))
		return nil
	},
}

func init() {
	syncCmd.Flags().IntVar(&syncConcurrency, "concurrency", 0, "Parallel card syncs (default from config)")
}
