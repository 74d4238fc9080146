package git

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
)

// Info is the repository state attached to a deployment.
type Info struct {
	Dirty         bool   `json:"dirty"`
	Branch        string `json:"branch"`
	CommitHash    string `json:"commitHash"`
	CommitMessage string `json:"commitMessage"`
}

// Collect reads git metadata for dir. Outside a work tree it returns a zero Info.
func Collect(ctx context.Context, dir string) Info {
	var info Info
	if _, err := run(ctx, dir, "rev-parse", "--is-inside-work-tree"); err != nil {
		return info
	}

	if out, err := run(ctx, dir, "status", "--porcelain"); err == nil {
		info.Dirty = out != ""
	}
	if out, err := run(ctx, dir, "branch", "--show-current"); err == nil {
		info.Branch = out
	}
	if out, err := run(ctx, dir, "rev-parse", "HEAD"); err == nil {
		info.CommitHash = out
	}
	if info.CommitHash != "" {
		if out, err := run(ctx, dir, "show", "-s", "--format=%B", info.CommitHash); err == nil {
			info.CommitMessage = out
		}
	}
	return info
}

func run(ctx context.Context, dir string, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Dir = dir

	var out bytes.Buffer
	cmd.Stdout = &out

	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("git %s failed: %w", args[0], err)
	}
	return strings.TrimSpace(out.String()), nil
}
