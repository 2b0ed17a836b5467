// Package main provides the roadsync CLI: it mirrors roadmap cards from an
// issue tracker into per-column community discussion forums.
package main

import (
	"fmt"
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
)

// Global flags
var (
	configPath  string
	communityID string
	verbose     bool
)

// Styles for output
var (
	okStyle = lipgloss.NewStyle().Foreground(lipgloss.AdaptiveColor{
		Light: "#86b300",
		Dark:  "#c2d94c",
	})
	warnStyle = lipgloss.NewStyle().Foreground(lipgloss.AdaptiveColor{
		Light: "#f2ae49",
		Dark:  "#ffb454",
	})
	failStyle = lipgloss.NewStyle().Foreground(lipgloss.AdaptiveColor{
		Light: "#f07171",
		Dark:  "#f07178",
	})
	boldStyle = lipgloss.NewStyle().Bold(true)
)

var rootCmd = &cobra.Command{
	Use:   "roadsync",
	Short: "Mirror roadmap cards into community discussion forums",
	Long: `roadsync keeps a community's roadmap forums in lockstep with an issue
tracker. Each roadmap column maps to a forum channel; every card is
mirrored as a thread that follows the card through column changes,
archival, and label edits.

Examples:
  roadsync validate                    # Check provider configuration
  roadsync sync                        # Full sync of every card
  roadsync card create --title "..."   # Create and mirror a card
  roadsync resync PROJ-42              # Re-mirror a single card`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to roadsync.yaml (default ./roadsync.yaml)")
	rootCmd.PersistentFlags().StringVar(&communityID, "community", "", "Community ID (overrides config)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output")

	rootCmd.AddCommand(syncCmd)
	rootCmd.AddCommand(cardCmd)
	rootCmd.AddCommand(resyncCmd)
	rootCmd.AddCommand(validateCmd)
	rootCmd.AddCommand(infoCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, failStyle.Render("Error: "+err.Error()))
		os.Exit(1)
	}
}
