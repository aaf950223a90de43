// Package extproc invokes external tooling with bounded timeouts: git for
// SDK revision metadata and the vendor CLI for device hard reset. Both are
// opaque, best-effort calls; neither is on the request hot path.
package extproc

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"opcalcd/pkg/types"
)

const (
	gitTimeout   = 5 * time.Second
	resetTimeout = 30 * time.Second
)

// GitInfo runs `git log -1 --format=%H|%h|%cr|%s` in dir and parses the
// single pipe-separated line.
func GitInfo(ctx context.Context, dir string) (types.GitInfo, error) {
	if dir == "" {
		return types.GitInfo{}, fmt.Errorf("no SDK checkout configured")
	}
	ctx, cancel := context.WithTimeout(ctx, gitTimeout)
	defer cancel()
	cmd := exec.CommandContext(ctx, "git", "log", "-1", "--format=%H|%h|%cr|%s")
	cmd.Dir = dir
	var out bytes.Buffer
	cmd.Stdout = &out
	if err := cmd.Run(); err != nil {
		return types.GitInfo{}, fmt.Errorf("git log: %w", err)
	}
	return ParseGitLine(out.String())
}

// ParseGitLine parses one `%H|%h|%cr|%s` line. The subject may itself
// contain pipes, so only the first three separators split.
func ParseGitLine(line string) (types.GitInfo, error) {
	parts := strings.SplitN(strings.TrimSpace(line), "|", 4)
	if len(parts) < 4 {
		return types.GitInfo{}, fmt.Errorf("unexpected git output %q", strings.TrimSpace(line))
	}
	return types.GitInfo{
		Success:   true,
		FullHash:  parts[0],
		ShortHash: parts[1],
		TimeAgo:   parts[2],
		Message:   parts[3],
	}, nil
}

// ResetDevice runs `<tool> -r <id>` to hard-reset the accelerator. The
// outcome is reported in the response; a non-zero exit or timeout maps to
// success=false, never a panic or a hung handler.
func ResetDevice(ctx context.Context, tool string, id int) types.ResetResponse {
	ctx, cancel := context.WithTimeout(ctx, resetTimeout)
	defer cancel()
	cmd := exec.CommandContext(ctx, tool, "-r", fmt.Sprintf("%d", id))
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	err := cmd.Run()
	if ctx.Err() == context.DeadlineExceeded {
		return types.ResetResponse{Error: "reset command timed out"}
	}
	if err != nil {
		return types.ResetResponse{Error: fmt.Sprintf("reset failed: %s", firstNonEmpty(stderr.String(), err.Error()))}
	}
	return types.ResetResponse{
		Success: true,
		Message: "device reset successfully",
		Output:  stdout.String(),
	}
}

func firstNonEmpty(a, b string) string {
	if strings.TrimSpace(a) != "" {
		return strings.TrimSpace(a)
	}
	return b
}
