package report

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/sweetpotato0/ai-research/pkg/logging"
)

var reSlug = regexp.MustCompile(`[^a-z0-9]+`)

// FileSink writes each report as markdown with a JSON sidecar holding the
// full artifact.
type FileSink struct {
	dir    string
	logger *slog.Logger
}

// NewFileSink creates dir if needed and returns a sink writing into it.
func NewFileSink(dir string) (*FileSink, error) {
	if dir == "" {
		return nil, fmt.Errorf("output directory is required")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create output directory: %w", err)
	}
	return &FileSink{dir: dir, logger: logging.WithComponent("report")}, nil
}

// Emit implements Sink.
func (s *FileSink) Emit(ctx context.Context, a Artifact) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	base := filepath.Join(s.dir, FileName(a))

	if err := os.WriteFile(base+".md", []byte(a.Report), 0o644); err != nil {
		return fmt.Errorf("write report: %w", err)
	}
	sidecar, err := json.MarshalIndent(a, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal artifact: %w", err)
	}
	if err := os.WriteFile(base+".json", sidecar, 0o644); err != nil {
		return fmt.Errorf("write artifact: %w", err)
	}
	s.logger.Info("report written", "run_id", a.RunID, "path", base+".md")
	return nil
}

// FileName is the extension-less name of an artifact:
// <timestamp>-<query slug>-<run id prefix>.
func FileName(a Artifact) string {
	slug := slugify(a.Query, 48)
	if slug == "" {
		slug = "report"
	}
	id := a.RunID
	if len(id) > 8 {
		id = id[:8]
	}
	name := a.CreatedAt.UTC().Format("20060102T150405Z") + "-" + slug
	if id != "" {
		name += "-" + id
	}
	return name
}

func slugify(s string, max int) string {
	slug := strings.Trim(reSlug.ReplaceAllString(strings.ToLower(s), "-"), "-")
	if len(slug) > max {
		slug = strings.TrimRight(slug[:max], "-")
	}
	return slug
}
