package cmd

import (
	"errors"
	"fmt"
	"strings"

	"github.com/AlecAivazis/survey/v2"
	"github.com/spf13/cobra"
	"github.com/streambinder/hymnal/aggregate"
	"github.com/streambinder/hymnal/entity"
	"github.com/streambinder/hymnal/util"
)

func init() {
	cmdRoot.AddCommand(cmdSearch())
}

func cmdSearch() *cobra.Command {
	cmd := &cobra.Command{
		Use:          "search <query>...",
		Short:        "Search songs and optionally download a selection of them",
		SilenceUsage: true,
		Args:         cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var (
				dir        = destination(cmd)
				start      = util.ErrWrap(1)(cmd.Flags().GetInt("start"))
				pick       = util.ErrWrap(false)(cmd.Flags().GetBool("pick"))
				filter     = util.ErrWrap("")(cmd.Flags().GetString("filter"))
				accumulate = util.ErrWrap(false)(cmd.Flags().GetBool("accumulate"))
				set        = aggregate.New()
			)

			idx := openIndex()
			defer closeIndex(idx)

			orchestrator, err := orchestrate(idx, "search")
			if err != nil {
				return err
			}

			// every query replaces the results of the previous one, unless accumulating
			mode := aggregate.Replace
			if accumulate {
				mode = aggregate.Accumulate
			}
			for _, q := range args {
				tui.Lot("search").Printf("%s", q)
				hits, err := orchestrator.Search(cmd.Context(), q)
				if errors.Is(err, entity.ErrNoSources) {
					return err
				} else if err != nil {
					tui.AnchorPrintf("%s: %s", q, entity.Reason(err))
					continue
				}
				set = aggregate.Merge(set, hits, mode)
			}
			if len(filter) > 0 {
				set = set.Filter(filter)
			}
			tui.Lot("search").Close(fmt.Sprintf("%d hits", set.Len()))

			if !pick {
				for i, hit := range set.Hits() {
					tui.Printf("%2d. [%s] %s\n    %s", i+1, hit.Source, hit.Title, hit.URL)
				}
				return nil
			}
			if set.Len() == 0 {
				return nil
			}

			selected, err := choose(set, orchestrator.Queue().Free())
			if err != nil || len(selected) == 0 {
				return err
			}

			queued := orchestrator.Queue()
			if _, duplicates, err := queued.Add(selected...); err != nil {
				tui.AnchorPrintf("%s", err)
			} else if duplicates > 0 {
				tui.Printf("%d duplicates ignored", duplicates)
			}

			ctx, stop := orchestrator.Cooperative(cmd.Context())
			defer stop()
			report := orchestrator.RunQueue(ctx, queued.Items(), dir, start)
			queued.Clear()
			tui.Lot("search").Close(fmt.Sprintf("%d songs", report.Success))
			return printReport(cmd.OutOrStdout(), report, false)
		},
	}
	cmd.Flags().StringP("output", "o", "", "Output directory (defaults to the configured one)")
	cmd.Flags().IntP("start", "s", 1, "Sequence number of the first file")
	cmd.Flags().BoolP("pick", "p", false, "Pick the hits to download")
	cmd.Flags().StringP("filter", "f", "", "Narrow results down with a fuzzy pattern")
	cmd.Flags().BoolP("accumulate", "a", false, "Accumulate the results of every query")
	return cmd
}

// choose prompts for the hits to download, up to free of them
func choose(set aggregate.ResultSet, free int) ([]entity.Hit, error) {
	options := make([]string, set.Len())
	for i, hit := range set.Hits() {
		options[i] = fmt.Sprintf("%2d. [%s] %s", i+1, hit.Source, strings.TrimSpace(hit.Title))
	}

	var picked []int
	if err := survey.AskOne(&survey.MultiSelect{
		Message:  fmt.Sprintf("Select up to %d songs to download:", free),
		Options:  options,
		PageSize: 10,
	}, &picked); err != nil {
		return nil, err
	}

	selected := make([]entity.Hit, len(picked))
	for i, n := range picked {
		selected[i] = set.At(n)
	}
	return selected, nil
}
