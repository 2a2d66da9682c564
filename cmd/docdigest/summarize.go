package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"docdigest/internal/orchestrator"
)

func summarizeCmd(flags *rootFlags) *cobra.Command {
	var (
		lang    string
		asJSON  bool
		showAll bool
	)
	cmd := &cobra.Command{
		Use:   "summarize FILE",
		Short: "Summarize every chunk of a document and print the hierarchy",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, svc, err := flags.setup(cmd)
			if err != nil {
				return err
			}
			res, err := svc.Summarize(cmd.Context(), args[0], lang)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(res)
			}
			printResult(out, res, showAll)
			return nil
		},
	}
	cmd.Flags().StringVar(&lang, "lang", "", "Output language (default from config)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the full result as JSON")
	cmd.Flags().BoolVar(&showAll, "chunks", false, "Also print every chunk summary")
	return cmd
}

var (
	headingStyle = lipgloss.NewStyle().Bold(true)
	dimStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
)

func printResult(w io.Writer, res *orchestrator.Result, showAll bool) {
	h := res.Hierarchy
	fmt.Fprintln(w, headingStyle.Render(h.Title))
	fmt.Fprintln(w, plain(h.OverallSummary))
	fmt.Fprintln(w)
	if len(h.KeyPoints) > 0 {
		fmt.Fprintln(w, headingStyle.Render("Key points"))
		for _, kp := range h.KeyPoints {
			fmt.Fprintf(w, "  [%s] %s\n", kp.Importance, kp.Point)
		}
		fmt.Fprintln(w)
	}
	if len(h.Sections) > 0 {
		fmt.Fprintln(w, headingStyle.Render("Sections"))
		for _, s := range h.Sections {
			pages := ""
			if len(s.PageNumbers) > 0 {
				pages = dimStyle.Render(fmt.Sprintf(" (pages %v)", s.PageNumbers))
			}
			fmt.Fprintf(w, "  %s%s\n", s.Title, pages)
		}
		fmt.Fprintln(w)
	}
	if showAll {
		for _, c := range res.Chunks {
			fmt.Fprintf(w, "%s %s\n%s\n\n", dimStyle.Render(fmt.Sprintf("#%d", c.Index()+1)), headingStyle.Render(c.Title), plain(c.Summary))
		}
	}
	fmt.Fprintln(w, dimStyle.Render(fmt.Sprintf("%d chunks, %d fallbacks, provider %s, level %s",
		h.Stats.TotalChunks, h.Stats.FallbackChunks, h.Stats.Provider, h.Stats.Level)))
}

var htmlReplacer = strings.NewReplacer("<li>", "\n  - ", "</p>", "\n", "<br>", "\n")

// plain renders the small HTML subset providers emit as terminal text.
func plain(s string) string {
	s = htmlReplacer.Replace(s)
	var b strings.Builder
	inTag := false
	for _, r := range s {
		switch {
		case r == '<':
			inTag = true
		case r == '>':
			inTag = false
		case !inTag:
			b.WriteRune(r)
		}
	}
	return strings.TrimSpace(b.String())
}
