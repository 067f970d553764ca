package cmd

import (
	"errors"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/streambinder/hymnal/config"
	"github.com/streambinder/hymnal/util"
)

func init() {
	cmdRoot.AddCommand(cmdInit())
}

func cmdInit() *cobra.Command {
	cmd := &cobra.Command{
		Use:          "init",
		Short:        "Write the current configuration to file",
		SilenceUsage: true,
		Args:         cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var (
				dir   = util.ErrWrap(config.Path())(cmd.Flags().GetString("config"))
				force = util.ErrWrap(false)(cmd.Flags().GetBool("force"))
			)
			if len(dir) == 0 {
				dir = config.Path()
			}

			if util.FileExists(filepath.Join(dir, "config.yaml")) && !force {
				if answer := tui.Reads("configuration already there, overwrite it? [y/N]"); !strings.EqualFold(answer, "y") {
					return errors.New("configuration left untouched")
				}
			}

			path, err := config.Save(cfg, dir)
			if err != nil {
				return err
			}
			tui.Printf("configuration written to %s", path)
			return nil
		},
	}
	cmd.Flags().Bool("force", false, "Overwrite an existing configuration")
	return cmd
}
