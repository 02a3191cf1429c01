package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/spf13/cobra"

	codolio "github.com/RavensCloud/codolio-gofun"
)

func newFetchCommand(a *app) *cobra.Command {
	var (
		output string
		mode   string
	)
	cmd := &cobra.Command{
		Use:   "fetch <username>",
		Short: "Fetch one profile and print it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if mode != "" {
				a.cfg.Scraper.RenderMode = mode
			}
			scraper, err := a.cfg.Scraper.NewScraper()
			if err != nil {
				return err
			}
			scraper = scraper.WithLogger(a.logger.Named("scraper"))

			profile, err := scraper.FetchProfile(cmd.Context(), args[0])
			if err != nil {
				return fmt.Errorf("fetch %s: %w", args[0], err)
			}

			switch output {
			case "json":
				enc := json.NewEncoder(os.Stdout)
				enc.SetIndent("", "  ")
				return enc.Encode(profile)
			case "text":
				printProfile(os.Stdout, args[0], profile)
				return nil
			default:
				return fmt.Errorf("unknown output %q (json, text)", output)
			}
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "text", "output format (json, text)")
	cmd.Flags().StringVar(&mode, "mode", "", "render mode (browser, http); overrides scraper.render_mode")
	return cmd
}

func printProfile(w io.Writer, username string, p *codolio.Profile) {
	fmt.Fprintf(w, "User: %s\n\n", username)

	fmt.Fprintln(w, "Basic stats:")
	for _, k := range codolio.BasicStatKeys {
		fmt.Fprintf(w, "  %-18s %s\n", k, p.BasicStats[k])
	}

	fmt.Fprintln(w, "\nProblems solved:")
	for _, k := range codolio.ProblemKeys {
		fmt.Fprintf(w, "  %-24s %s\n", k, p.ProblemsSolved[k])
	}

	fmt.Fprintln(w, "\nContest ratings:")
	for _, site := range codolio.ContestSites {
		fmt.Fprintf(w, "  %-12s %s\n", site, p.ContestRankings[site].Rating)
	}

	active, total := 0, 0
	for _, c := range p.Heatmap {
		if c.Submissions > 0 {
			active++
		}
		total += c.Submissions
	}
	fmt.Fprintf(w, "\nHeatmap: %d days, %d active, %d submissions\n", len(p.Heatmap), active, total)

	if len(p.DSATopics) == 0 {
		return
	}
	topics := make([]string, 0, len(p.DSATopics))
	for name := range p.DSATopics {
		topics = append(topics, name)
	}
	sort.Strings(topics)
	fmt.Fprintln(w, "\nDSA topics:")
	for _, name := range topics {
		fmt.Fprintf(w, "  %-28s %s\n", name, p.DSATopics[name])
	}
}
