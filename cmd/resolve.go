package cmd

import (
	"github.com/spf13/cobra"
	"github.com/streambinder/hymnal/downloader"
	"github.com/streambinder/hymnal/resolver"
	"github.com/streambinder/hymnal/util"
)

func init() {
	cmdRoot.AddCommand(cmdResolve())
}

func cmdResolve() *cobra.Command {
	cmd := &cobra.Command{
		Use:          "resolve <url>",
		Short:        "Resolve a landing page into its slide deck",
		SilenceUsage: true,
		Args:         cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var (
				dir   = destination(cmd)
				fetch = util.ErrWrap(false)(cmd.Flags().GetBool("fetch"))
				seq   = util.ErrWrap(1)(cmd.Flags().GetInt("start"))
			)

			tui.Lot("resolve").Printf("%s", args[0])
			asset, err := resolver.FromConfig(cfg, logger).Resolve(cmd.Context(), args[0])
			if err != nil {
				tui.Lot("resolve").Close("failed")
				return err
			}
			tui.Lot("resolve").Close()
			tui.Printf("title: %s", asset.PageTitle)
			tui.Printf("name:  %s", asset.Name(args[0]))
			tui.Printf("url:   %s", asset.DownloadURL)
			if !fetch {
				return nil
			}

			path := asset.Path(dir, seq).Final(asset.PageTitle)
			status, err := downloader.FromConfig(cfg, logger).Download(cmd.Context(), asset.DownloadURL, path, func(percent int) {
				tui.Lot("download").Printf("%3d%%", percent)
			})
			if err != nil {
				tui.Lot("download").Close("failed")
				return err
			}
			if status == downloader.Satisfied {
				tui.Lot("download").Close("already there:", path)
			} else {
				tui.Lot("download").Close(path)
			}
			return nil
		},
	}
	cmd.Flags().StringP("output", "o", "", "Output directory (defaults to the configured one)")
	cmd.Flags().BoolP("fetch", "f", false, "Also download the slide deck")
	cmd.Flags().IntP("start", "s", 1, "Sequence number of the file")
	return cmd
}
