package main

import (
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cobra"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Check provider configuration and connectivity",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := buildApp()
		if err != nil {
			return err
		}
		defer a.Close()

		if !a.Provider.ValidateConfig() {
			return fmt.Errorf("provider configuration is incomplete")
		}
		fmt.Println(okStyle.Render("✓ Configuration is complete"))

		if err := a.Provider.Init(cmd.Context()); err != nil {
			return fmt.Errorf("connectivity check failed: %w", err)
		}
		fmt.Println(okStyle.Render("✓ Credentials accepted"))
		return nil
	},
}

var infoCmd = &cobra.Command{
	Use:   "info",
	Short: "Show provider details and capabilities",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := buildApp()
		if err != nil {
			return err
		}
		defer a.Close()

		inf := a.Provider.Info()
		fmt.Println(boldStyle.Render(inf.Name) + " " + inf.Version)
		if len(inf.Capabilities) > 0 {
			fmt.Println("Capabilities: " + strings.Join(inf.Capabilities, ", "))
		}

		keys := make([]string, 0, len(inf.Metadata))
		for k := range inf.Metadata {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			fmt.Printf("  %s: %s\n", k, inf.Metadata[k])
		}

		columns, err := a.Provider.GetColumns(cmd.Context())
		if err == nil && len(columns) > 0 {
			names := make([]string, len(columns))
			for i, c := range columns {
				names[i] = c.Name
				if c.Archived {
					names[i] += " (archived)"
				}
			}
			fmt.Println("Columns: " + strings.Join(names, ", "))
		}
		return nil
	},
}
