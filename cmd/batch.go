package cmd

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"github.com/streambinder/hymnal/query"
	"github.com/streambinder/hymnal/util"
)

func init() {
	cmdRoot.AddCommand(cmdBatch())
}

func cmdBatch() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "batch <numbers|queries>...",
		Short: "Download a batch of songs, one after the other",
		Long: `Download a batch of songs, one after the other.

Numbers may be listed and ranged, e.g. "28, 29, 30" or "28-32".
Anything that is not a number list is searched as typed.`,
		SilenceUsage: true,
		Args:         cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var (
				dir        = destination(cmd)
				start      = util.ErrWrap(1)(cmd.Flags().GetInt("start"))
				searchOnly = util.ErrWrap(false)(cmd.Flags().GetBool("search-only"))
				asYAML     = util.ErrWrap(false)(cmd.Flags().GetBool("yaml"))
				queries    = batchQueries(args)
			)
			if len(queries) == 0 {
				return errors.New("nothing to download")
			}

			idx := openIndex()
			defer closeIndex(idx)

			orchestrator, err := orchestrate(idx, "batch")
			if err != nil {
				return err
			}

			// interrupts let the song in progress complete
			ctx, stop := orchestrator.Cooperative(cmd.Context())
			defer stop()

			if searchOnly {
				numbers := make([]int, 0, len(queries))
				for _, q := range queries {
					if n, err := strconv.Atoi(q); err == nil {
						numbers = append(numbers, n)
					}
				}
				set, err := orchestrator.BatchSearch(ctx, numbers)
				if err != nil {
					return err
				}
				tui.Lot("batch").Close(fmt.Sprintf("%d hits", set.Len()))
				for _, hit := range set.Hits() {
					tui.Printf("[%s] %s\n  %s", hit.Source, hit.Title, hit.URL)
				}
				return nil
			}

			report, err := orchestrator.RunBatch(ctx, queries, dir, start)
			if err != nil {
				return err
			}
			tui.Lot("batch").Close(fmt.Sprintf("%d songs", report.Success))
			return printReport(cmd.OutOrStdout(), report, asYAML)
		},
	}
	cmd.Flags().StringP("output", "o", "", "Output directory (defaults to the configured one)")
	cmd.Flags().IntP("start", "s", 1, "Sequence number of the first file")
	cmd.Flags().Bool("search-only", false, "Only list the best hit of every source, per number")
	cmd.Flags().Bool("yaml", false, "Print the report as yaml")
	return cmd
}

// batchQueries expands number lists and ranges,
// any other argument is kept as a query on its own
func batchQueries(args []string) []string {
	var queries []string
	for _, arg := range args {
		if numbers := query.Numbers(arg); len(numbers) > 0 && numberList(arg) {
			for _, n := range numbers {
				queries = append(queries, strconv.Itoa(n))
			}
			continue
		}
		if arg = strings.TrimSpace(arg); len(arg) > 0 {
			queries = append(queries, arg)
		}
	}
	return queries
}

// numberList reports whether text holds nothing but numbers, units and separators
func numberList(text string) bool {
	return len(strings.Trim(text, "0123456789,-()[]{} \t"+cfg.Sources.Unit)) == 0
}
