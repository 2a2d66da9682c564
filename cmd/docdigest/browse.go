package main

import (
	"path/filepath"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"docdigest/internal/tui"
)

func browseCmd(flags *rootFlags) *cobra.Command {
	var lang string
	cmd := &cobra.Command{
		Use:   "browse FILE",
		Short: "Stream chunk summaries into an interactive viewer",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, svc, err := flags.setup(cmd)
			if err != nil {
				return err
			}
			if lang == "" {
				lang = cfg.Language
			}
			items, total, err := svc.Stream(cmd.Context(), args[0], lang)
			if err != nil {
				return err
			}
			m := tui.New(svc, items, total, filepath.Base(args[0]), lang)
			_, err = tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(cmd.Context())).Run()
			return err
		},
	}
	cmd.Flags().StringVar(&lang, "lang", "", "Output language (default from config)")
	return cmd
}
