package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/sweetpotato0/ai-research/report"
)

func newRunCmd(a *app) *cobra.Command {
	var quiet bool
	cmd := &cobra.Command{
		Use:   "run <query>",
		Short: "Research one query and print the report",
		Long: `Run researches a single query. The markdown report is written to stdout
and the stage trace to stderr; the finished run is then emitted to the
configured sink.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			observer := printTrace(cmd.ErrOrStderr())
			if quiet {
				observer = nil
			}
			s, err := build(ctx, a.cfg, observer)
			if err != nil {
				return err
			}
			defer s.Close()

			resp, err := s.pipeline.Run(ctx, strings.Join(args, " "))
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), resp.State.Report)

			if err := s.sink.Emit(ctx, report.FromResponse(resp, time.Now())); err != nil {
				return fmt.Errorf("emit report: %w", err)
			}
			return nil
		},
	}
	cmd.Flags().BoolVarP(&quiet, "quiet", "q", false, "do not print the stage trace")
	return cmd
}
