package main

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"
)

func newHistoryCmd(g *globalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show or clear recent captions",
	}
	cmd.AddCommand(newHistoryListCmd(g), newHistoryClearCmd(g))
	return cmd
}

func newHistoryListCmd(g *globalFlags) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List recent captions, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(g)
			if err != nil {
				return err
			}
			history, closer, err := openHistory(cfg)
			if err != nil {
				return err
			}
			defer closer.Close()

			entries := history.Load()
			out := cmd.OutOrStdout()

			if asJSON {
				type item struct {
					Caption string `json:"caption"`
					Tone    string `json:"tone"`
				}
				items := make([]item, 0, len(entries))
				for _, e := range entries {
					items = append(items, item{Caption: e.Caption, Tone: string(e.Tone)})
				}
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(items)
			}

			if len(entries) == 0 {
				printInfo(cmd.ErrOrStderr(), "No captions yet.")
				return nil
			}
			fmt.Fprintln(out, titleStyle.Render("Recent Captions"))
			for i, e := range entries {
				text := strings.ReplaceAll(e.Caption, "\n", " ")
				fmt.Fprintf(out, "%2d. %s %-12s %s\n", i+1, e.Tone.Emoji(), e.Tone.Label(), text)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "print history as JSON")
	return cmd
}

func newHistoryClearCmd(g *globalFlags) *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Delete all saved captions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(g)
			if err != nil {
				return err
			}

			if !yes {
				if !isInteractive() {
					return fmt.Errorf("refusing to clear history without --yes")
				}
				var proceed bool
				err := huh.NewForm(huh.NewGroup(
					huh.NewConfirm().
						Title("Clear all saved captions?").
						Affirmative("Yes, clear").
						Negative("No, keep them").
						Value(&proceed),
				)).WithTheme(huh.ThemeCatppuccin()).Run()
				if err != nil || !proceed {
					printInfo(cmd.ErrOrStderr(), "History kept.")
					return nil
				}
			}

			history, closer, err := openHistory(cfg)
			if err != nil {
				return err
			}
			defer closer.Close()

			if err := history.Clear(); err != nil {
				return fmt.Errorf("clearing history: %w", err)
			}
			printSuccess(cmd.ErrOrStderr(), "History cleared")
			return nil
		},
	}

	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "skip the confirmation prompt")
	return cmd
}
