// Package exiftool invokes the external exiftool binary to rename media
// files from their embedded timestamps. The tool decides the destination
// name and performs the move; we only learn the outcome by parsing its
// verbose output.
package exiftool

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"strings"

	"medio/src/features/config"
	"medio/src/media"
)

// renameLine matches exiftool's verbose report of a performed rename:
// '<source>' --> '<destination>'. Any change to this shape in a future
// exiftool release breaks the destination parsing.
var renameLine = regexp.MustCompile(`'(\S+)'\s+-->\s+'(\S+)'`)

// Runner shells out to exiftool for each rename.
type Runner struct {
	cfg *config.Manager
}

// NewRunner creates a Runner reading its settings from cfg at call time,
// so config updates apply to the next invocation.
func NewRunner(cfg *config.Manager) *Runner {
	return &Runner{cfg: cfg}
}

// Rename invokes exiftool against the source path. The destination name
// is derived from the first available of file-modify time, embedded
// creation time, and original-capture time, formatted with the configured
// template. The call is synchronous and has no timeout beyond ctx; a hung
// exiftool stalls exactly one worker.
func (r *Runner) Rename(ctx context.Context, source string) (media.RenameResult, error) {
	cfg := r.cfg.Get()
	destFormat := filepath.Join(cfg.DestinationPath, cfg.Rename.Format)

	tool := cfg.Rename.ExiftoolPath
	if tool == "" {
		tool = "exiftool"
	}

	cmd := exec.CommandContext(ctx, tool,
		"-v", "-r", "-d", destFormat,
		"-filename<filemodifydate",
		"-filename<createdate",
		"-filename<datetimeoriginal",
		source,
	)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	cmd.Env = os.Environ()
	if cfg.Rename.Locale != "" {
		cmd.Env = append(cmd.Env, "LC_ALL="+cfg.Rename.Locale)
	}

	if err := cmd.Run(); err != nil {
		return media.RenameResult{}, fmt.Errorf("exiftool failed for %s: %w: %s",
			source, err, strings.ReplaceAll(strings.TrimSpace(stderr.String()), "\n", " "))
	}

	result := media.RenameResult{Source: source}
	if destination, ok := parseDestination(stdout.String(), source); ok {
		result.Destination = destination
		result.Renamed = true
	}
	return result, nil
}

// parseDestination scans verbose output for the rename line whose source
// matches the file we asked about. exiftool -r may report other files; we
// only trust an exact source match.
func parseDestination(output, source string) (string, bool) {
	for _, line := range strings.Split(output, "\n") {
		m := renameLine.FindStringSubmatch(line)
		if m != nil && m[1] == source {
			return m[2], true
		}
	}
	return "", false
}
