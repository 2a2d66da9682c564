package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"docdigest/internal/domain"
)

func contextCmd(flags *rootFlags) *cobra.Command {
	var (
		lang   string
		task   string
		asJSON bool
	)
	cmd := &cobra.Command{
		Use:   "context FILE",
		Short: "Build a token-bounded context window for a task",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, svc, err := flags.setup(cmd)
			if err != nil {
				return err
			}
			w, err := svc.Context(cmd.Context(), args[0], domain.Task(task), lang)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(w)
			}
			fmt.Fprintf(out, "%s window: %d chunks, %d/%d tokens\n", w.Priority, len(w.Chunks), w.TotalTokens, w.MaxTokens)
			for _, c := range w.Chunks {
				fmt.Fprintf(out, "\n#%d %s\n%s\n", c.Index()+1, c.Title, c.Core())
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&lang, "lang", "", "Language for token estimates (default from config)")
	cmd.Flags().StringVar(&task, "task", string(domain.TaskSummarize), "Task: summarize, qa, analysis, translation")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the window as JSON")
	return cmd
}
