package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/spf13/cobra"

	"github.com/sweetpotato0/ai-research/pkg/logging"
	"github.com/sweetpotato0/ai-research/report"
	"github.com/sweetpotato0/ai-research/runner"
)

func newBatchCmd(a *app) *cobra.Command {
	var (
		file        string
		concurrency int
	)
	cmd := &cobra.Command{
		Use:   "batch",
		Short: "Research every query in a file",
		Long: `Batch reads one query per line (blank lines and lines starting with # are
skipped) and researches them concurrently. Each finished run is emitted to
the configured sink; a summary line per query is printed to stdout.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			queries, err := readQueries(cmd.InOrStdin(), file)
			if err != nil {
				return err
			}
			if len(queries) == 0 {
				return fmt.Errorf("no queries in %s", file)
			}
			if concurrency <= 0 {
				concurrency = a.cfg.Runner.MaxConcurrency
			}

			ctx := cmd.Context()
			s, err := build(ctx, a.cfg, nil)
			if err != nil {
				return err
			}
			defer s.Close()

			logger := logging.WithComponent("batch")
			var (
				mu     sync.Mutex
				failed int
			)
			out := cmd.OutOrStdout()
			r := runner.New(s.pipeline, concurrency, runner.WithResultHandler(func(ctx context.Context, res *runner.Result) {
				mu.Lock()
				defer mu.Unlock()
				if res.Error != nil {
					failed++
					fmt.Fprintf(out, "%s\tFAILED\t%s\t%v\n", res.TaskID, res.Query, res.Error)
					return
				}
				art := report.FromResponse(res.Response, time.Now())
				if err := s.sink.Emit(ctx, art); err != nil {
					logger.Warn("emit report failed", "run_id", art.RunID, "error", err)
				}
				fmt.Fprintf(out, "%s\t%s\t%s\tsources=%d llm_generated=%t\n",
					res.TaskID, art.RunID, res.Query, len(art.Sources), art.IsLLMGenerated)
			}))

			r.RunAll(ctx, runner.Tasks(queries))
			if failed > 0 {
				return fmt.Errorf("%d of %d queries failed", failed, len(queries))
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "-", "file with one query per line, - for stdin")
	cmd.Flags().IntVarP(&concurrency, "concurrency", "c", 0, "runs in flight (default runner.max_concurrency)")
	return cmd
}

func readQueries(stdin io.Reader, path string) ([]string, error) {
	src := stdin
	if path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		src = f
	}

	var queries []string
	sc := bufio.NewScanner(src)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		queries = append(queries, line)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read queries: %w", err)
	}
	return queries, nil
}
