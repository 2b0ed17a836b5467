package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/campfirehq/roadsync/internal/card"
)

var (
	cardTitle       string
	cardDescription string
	cardColumn      string
	cardType        string
	cardLabels      string
)

var cardCmd = &cobra.Command{
	Use:   "card",
	Short: "Create or edit roadmap cards",
}

var cardCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create a card and mirror it immediately",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := buildApp()
		if err != nil {
			return err
		}
		defer a.Close()

		if err := a.Provider.Init(cmd.Context()); err != nil {
			return err
		}

		resp, err := a.Handler.CreateCard(cmd.Context(), card.CreateInput{
			Title:       cardTitle,
			Description: cardDescription,
			Column:      cardColumn,
			IssueType:   cardType,
			Labels:      splitLabels(cardLabels),
		})
		if err != nil {
			return err
		}
		printCardResponse(resp.Success, resp.Message, resp.UnknownLabels, resp.Card)
		if !resp.Success {
			return fmt.Errorf("card creation failed")
		}
		return nil
	},
}

var cardEditCmd = &cobra.Command{
	Use:   "edit <card-id>",
	Short: "Edit a card; only the supplied flags change",
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

		var in card.UpdateInput
		if cmd.Flags().Changed("title") {
			in.Title = &cardTitle
		}
		if cmd.Flags().Changed("description") {
			in.Description = &cardDescription
		}
		if cmd.Flags().Changed("column") {
			in.Column = &cardColumn
		}
		if cmd.Flags().Changed("type") {
			in.IssueType = &cardType
		}
		if cmd.Flags().Changed("labels") {
			labels := splitLabels(cardLabels)
			if labels == nil {
				labels = []string{}
			}
			in.Labels = &labels
		}

		resp, err := a.Handler.EditCard(cmd.Context(), args[0], in)
		if err != nil {
			return err
		}
		printCardResponse(resp.Success, resp.Message, resp.UnknownLabels, resp.Card)
		if !resp.Success {
			return fmt.Errorf("card edit failed")
		}
		return nil
	},
}

func printCardResponse(success bool, message string, unknownLabels []string, c card.Card) {
	if success {
		fmt.Println(okStyle.Render(fmt.Sprintf("%s %s", c.ID, c.Title)))
		if c.URL != "" {
			fmt.Println("  " + c.URL)
		}
	}
	if message != "" {
		style := warnStyle
		if !success {
			style = failStyle
		}
		fmt.Println(style.Render(message))
	}
	if len(unknownLabels) > 0 {
		fmt.Println(warnStyle.Render("Unknown labels (applied anyway): " + strings.Join(unknownLabels, ", ")))
	}
}

func splitLabels(csv string) []string {
	if strings.TrimSpace(csv) == "" {
		return nil
	}
	parts := strings.Split(csv, ",")
	var labels []string
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			labels = append(labels, trimmed)
		}
	}
	return labels
}

func init() {
	for _, c := range []*cobra.Command{cardCreateCmd, cardEditCmd} {
		c.Flags().StringVar(&cardTitle, "title", "", "Card title")
		c.Flags().StringVar(&cardDescription, "description", "", "Card description")
		c.Flags().StringVar(&cardColumn, "column", "", "Roadmap column")
		c.Flags().StringVar(&cardType, "type", "", "Issue type (e.g. Task, Bug)")
		c.Flags().StringVar(&cardLabels, "labels", "", "Comma-separated labels")
	}
	cardCmd.AddCommand(cardCreateCmd)
	cardCmd.AddCommand(cardEditCmd)
}
