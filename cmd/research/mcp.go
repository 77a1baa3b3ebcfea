package main

import (
	"github.com/spf13/cobra"

	"github.com/sweetpotato0/ai-research/mcp"
	"github.com/sweetpotato0/ai-research/runner"
)

func newMCPCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "mcp",
		Short: "Serve the research tool over MCP stdio",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			s, err := build(ctx, a.cfg, nil)
			if err != nil {
				return err
			}
			defer s.Close()

			r := runner.New(s.pipeline, a.cfg.Runner.MaxConcurrency)
			srv, err := mcp.NewServer("research", r, mcp.WithSink(s.sink))
			if err != nil {
				return err
			}
			return srv.Run(ctx)
		},
	}
}
