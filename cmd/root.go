package cmd

import (
	"context"
	"log/slog"
	"os"
	"strings"

	"github.com/charmbracelet/fang"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/streambinder/hymnal/config"
	"github.com/streambinder/hymnal/index"
	"github.com/streambinder/hymnal/queue"
	"github.com/streambinder/hymnal/util"
	"github.com/streambinder/hymnal/util/anchor"
)

var (
	cfg     = config.DefaultConfig()
	logger  = config.NullLogger()
	tui     = anchor.New(anchor.Red)
	cmdRoot = &cobra.Command{
		Use:   "hymnal",
		Short: "Search, resolve and download hymn slide decks",
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			_ = godotenv.Load()
			if util.ErrWrap(false)(cmd.Flags().GetBool("plain")) {
				tui = anchor.Plain(cmd.OutOrStdout(), cmd.InOrStdin())
			}

			var (
				configDir = util.ErrWrap("")(cmd.Flags().GetString("config"))
				sources   = util.ErrWrap([]string{})(cmd.Flags().GetStringSlice("source"))
				paths     []string
			)
			if len(configDir) > 0 {
				paths = append(paths, configDir)
			}

			loaded, err := config.Load(paths...)
			if err != nil {
				return err
			}
			cfg = loaded

			// explicitly set flags override configuration
			cmd.Flags().Visit(func(flag *pflag.Flag) {
				switch flag.Name {
				case "source":
					cfg.Sources.Enabled = sources
				case "log-file":
					cfg.Logging.File = flag.Value.String()
				case "log-level":
					cfg.Logging.Level = strings.ToUpper(flag.Value.String())
				}
			})

			if logger, err = config.SetupLogger(cfg.Logging); err != nil {
				return err
			}
			slog.SetDefault(logger)
			return nil
		},
	}
)

func init() {
	cmdRoot.PersistentFlags().String("config", "", "Configuration directory (defaults to "+config.Path()+")")
	cmdRoot.PersistentFlags().StringSlice("source", nil, "Sources to search (getwater, cwy0675)")
	cmdRoot.PersistentFlags().String("log-file", "", `Log file, "-" for stderr`)
	cmdRoot.PersistentFlags().String("log-level", "", "Log level (debug, info, warn, error)")
	cmdRoot.PersistentFlags().Bool("plain", false, "Plain output, no colors nor status lines")
}

func Execute(ctx context.Context, version string) error {
	return fang.Execute(ctx, cmdRoot,
		fang.WithVersion(version),
		fang.WithNotifySignal(os.Interrupt),
	)
}

// openIndex opens the configured index, nil when disabled or unusable
func openIndex() *index.Index {
	if !cfg.Index.Enabled {
		return nil
	}
	idx, err := index.Open(cfg.Index.File)
	if err != nil {
		logger.Warn("index unavailable", "file", cfg.Index.File, "error", err)
		return nil
	}
	return idx
}

// orchestrate builds an orchestrator reporting through tui
func orchestrate(idx *index.Index, lot string) (*queue.Orchestrator, error) {
	var status string
	return queue.FromConfig(cfg, idx, queue.Hooks{
		Status: func(message string) {
			status = message
			tui.Lot(lot).Print(status)
		},
		Progress: func(fraction float64) {
			tui.Lot(lot).Printf("%s %3.0f%%", status, fraction*100)
		},
	}, logger)
}

// destination returns the output flag, or the configured directory
func destination(cmd *cobra.Command) string {
	if output := util.ErrWrap("")(cmd.Flags().GetString("output")); len(output) > 0 {
		return output
	}
	return cfg.Download.Directory
}

func closeIndex(idx *index.Index) {
	if idx != nil {
		util.ErrSuppress(idx.Close())
	}
}
