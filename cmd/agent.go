package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/AlecAivazis/survey/v2"
	"github.com/spf13/cobra"
	"github.com/streambinder/hymnal/agent"
	"github.com/streambinder/hymnal/entity"
	"github.com/streambinder/hymnal/queue"
	"github.com/streambinder/hymnal/util"
)

const skipOption = "skip this song"

func init() {
	cmdRoot.AddCommand(cmdAgent())
}

func cmdAgent() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "agent [file]",
		Short: "Prepare the songs of a service order",
		Long: `Prepare the songs of a service order, read from file or standard input:

  수요기도회
  예배전 찬양 : 434장, 실로암
  성경 본문 : 요한복음 13장 15절
  제목 : 예수 닮아가기
  설교후 찬송 : 289장

Numbers are downloaded right away, titles ask for a pick.`,
		SilenceUsage: true,
		Args:         cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var (
				dir     = destination(cmd)
				service = util.ErrWrap(cfg.Agent.Service)(cmd.Flags().GetString("service"))
				manual  = util.ErrWrap(false)(cmd.Flags().GetBool("manual"))
			)

			text, err := readOrder(cmd, args)
			if err != nil {
				return err
			}

			parser := agent.NewParser(cfg.Sources.Unit, service)
			command := parser.Parse(text)
			if command.Empty() {
				return agent.ErrNothingToDo
			}
			printCommand(command)

			idx := openIndex()
			defer closeIndex(idx)

			orchestrator, err := orchestrate(idx, "agent")
			if err != nil {
				return err
			}

			ctx, cancel := context.WithCancel(cmd.Context())
			defer cancel()

			var (
				loop    = agent.NewLoop()
				prompts = &surface{ctx: ctx, loop: loop, orchestrator: orchestrator, directory: dir}
			)
			scheduler := agent.NewScheduler(ctx, agent.Options{
				Loop:     loop,
				Resolver: agent.Retriever{Orchestrator: orchestrator, Directory: dir},
				Surface:  prompts,
				Unit:     cfg.Sources.Unit,
				Auto:     cfg.Agent.Auto && !manual,
				Hooks:    agent.Hooks{Item: printItem, Idle: loop.Stop},
				Logger:   logger,
			})
			prompts.scheduler = scheduler

			var startErr error
			loop.Post(func() {
				if startErr = scheduler.Start(command); startErr != nil {
					loop.Stop()
				}
			})
			if err := loop.Run(ctx); err != nil && !errors.Is(err, agent.ErrLoopStopped) {
				return err
			}
			if startErr != nil {
				return startErr
			}

			tui.Lot("agent").Close()
			buckets := scheduler.Buckets()
			tui.Printf("before the sermon:")
			for _, file := range buckets[entity.TargetBefore] {
				tui.Printf("  %s", file)
			}
			tui.Printf("after the sermon:")
			for _, file := range buckets[entity.TargetAfter] {
				tui.Printf("  %s", file)
			}
			return nil
		},
	}
	cmd.Flags().StringP("output", "o", "", "Output directory (defaults to the configured one)")
	cmd.Flags().String("service", "", "Service assumed when the order names none (수요, 금요)")
	cmd.Flags().BoolP("manual", "m", false, "Ask for a pick on every song, numbers included")
	return cmd
}

func readOrder(cmd *cobra.Command, args []string) (string, error) {
	var (
		data []byte
		err  error
	)
	if len(args) == 0 || args[0] == "-" {
		data, err = io.ReadAll(cmd.InOrStdin())
	} else {
		data, err = os.ReadFile(args[0])
	}
	return string(data), err
}

func printCommand(command agent.Command) {
	if len(command.Service.Name) > 0 {
		tui.Printf("%s기도회, %s", command.Service.Name, command.Date())
	}
	if len(command.BibleRange) > 0 {
		tui.Printf("본문: %s", command.BibleRange)
	}
	if len(command.SermonTitle) > 0 {
		tui.Printf("제목: %s", command.SermonTitle)
	}
	tui.Printf("songs: %s | %s", strings.Join(command.Before, ", "), strings.Join(command.After, ", "))
}

func printItem(item entity.WorkItem) {
	switch {
	case !item.State.Finished():
		tui.Lot("agent").Printf("[%s] %s: %s", item.Target, item.Query, item.State)
	case item.State == entity.StateDone:
		tui.Printf("[%s] %s: %s", item.Target, item.Query, item.File)
	default:
		tui.AnchorPrintf("[%s] %s: %s", item.Target, item.Query, item.Reason)
	}
}

// surface asks for a pick among the hits of a query, on a worker
// goroutine, and reports back to the scheduler through the loop
type surface struct {
	ctx          context.Context
	loop         *agent.Loop
	orchestrator *queue.Orchestrator
	directory    string
	scheduler    *agent.Scheduler
}

func (surface *surface) Confirm(item entity.WorkItem, reason string) {
	go surface.confirm(item, reason, surface.scheduler.Reserve())
}

func (surface *surface) confirm(item entity.WorkItem, reason string, seq int) {
	scheduler := surface.scheduler
	tui.Lot("agent").Wipe()
	if reason == agent.ReasonFallback {
		tui.AnchorPrintf("%s could not be settled automatically (%s)", item.Query, item.Reason)
	}

	hits, err := surface.orchestrator.Search(surface.ctx, item.Query)
	if err != nil {
		failure := entity.Failure{Query: item.Query, Reason: entity.Reason(err)}
		surface.loop.Post(func() {
			scheduler.Release(seq)
			scheduler.DownloadComplete(0, []entity.Failure{failure}, nil)
		})
		return
	}

	options := []string{skipOption}
	for _, hit := range hits {
		options = append(options, fmt.Sprintf("[%s] %s", hit.Source, strings.TrimSpace(hit.Title)))
	}
	var (
		picked int
		state  agent.State
	)
	if !surface.loop.Call(func() { state = scheduler.Snapshot() }) {
		return
	}
	if err := survey.AskOne(&survey.Select{
		Message:  fmt.Sprintf("[%s] %s (%d more to go):", item.Target, item.Query, len(state.Queue)),
		Options:  options,
		Default:  1,
		PageSize: 10,
	}, &picked); err != nil || picked == 0 {
		surface.loop.Post(func() {
			scheduler.Release(seq)
			scheduler.Skip()
		})
		return
	}

	report := surface.orchestrator.Transfer(surface.ctx, hits[picked-1:picked], surface.directory, seq, nil)
	surface.loop.Post(func() { scheduler.DownloadComplete(report.Success, report.Failed, report.Files) })
}
