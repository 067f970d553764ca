package cmd

import (
	"errors"

	"github.com/spf13/cobra"
	"github.com/streambinder/hymnal/index"
	"github.com/streambinder/hymnal/util"
)

func init() {
	cmdRoot.AddCommand(cmdHistory())
}

func cmdHistory() *cobra.Command {
	cmd := &cobra.Command{
		Use:          "history [query]",
		Short:        "List the songs downloaded so far",
		SilenceUsage: true,
		Args:         cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			limit := util.ErrWrap(20)(cmd.Flags().GetInt("limit"))

			idx := openIndex()
			if idx == nil {
				return errors.New("index disabled")
			}
			defer closeIndex(idx)

			if len(args) > 0 {
				record, ok := idx.Lookup(args[0])
				if !ok {
					return errors.New("never downloaded")
				}
				printRecord(record)
				return nil
			}

			records, err := idx.Records()
			if err != nil {
				return err
			}
			tui.Printf("%d songs indexed", idx.Size())
			for i, record := range records {
				if limit > 0 && i == limit {
					break
				}
				printRecord(record)
			}
			return nil
		},
	}
	cmd.Flags().IntP("limit", "n", 20, "Number of records to list (all if 0)")
	return cmd
}

func printRecord(record index.Record) {
	tui.Printf("%s  %s [%s]\n    %s", record.FetchedAt.Format("2006-01-02 15:04"), record.Title, record.Source, record.Path)
}
