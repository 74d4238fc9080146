package build

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/exec"
	"path/filepath"

	"nuxthub/shared"
)

var buildlogger = shared.PackageLogger("build", "🧱 BUILD")

// HubModule must be installed for the build to emit hub.config.json.
const HubModule = "@nuxthub/core"

// OutputDir is where nuxi writes the deployable build.
const OutputDir = "dist"

type packageJSON struct {
	Dependencies    map[string]string `json:"dependencies"`
	DevDependencies map[string]string `json:"devDependencies"`
}

// CheckHubModule verifies the project at dir depends on the hub module.
func CheckHubModule(dir string) error {
	p := filepath.Join(dir, "package.json")
	data, err := os.ReadFile(p)
	if errors.Is(err, fs.ErrNotExist) {
		return &shared.NotFoundError{Path: p, Hint: "please make sure that you are inside a Nuxt project"}
	}
	if err != nil {
		return fmt.Errorf("read package.json: %w", err)
	}

	var pkg packageJSON
	if err := json.Unmarshal(data, &pkg); err != nil {
		return fmt.Errorf("parse package.json: %w", err)
	}
	if _, ok := pkg.Dependencies[HubModule]; ok {
		return nil
	}
	if _, ok := pkg.DevDependencies[HubModule]; ok {
		return nil
	}
	return fmt.Errorf("`%s` is not installed, make sure to install it with `npx nuxt module add hub`", HubModule)
}

// Args returns the nuxi command line for a build.
func Args(dotenv string) []string {
	args := []string{"build"}
	if dotenv != "" {
		args = append(args, "--dotenv="+dotenv)
	}
	return args
}

// Nuxi runs `nuxi build` in dir with inherited stdio, preferring the project's local binary.
func Nuxi(ctx context.Context, dir, dotenv string) error {
	if err := CheckHubModule(dir); err != nil {
		return err
	}

	bin := filepath.Join(dir, "node_modules", ".bin", "nuxi")
	if _, err := os.Stat(bin); err != nil {
		bin = "nuxi"
	}
	buildlogger.Info("Building the Nuxt project...")
	buildlogger.Debug("Running %s %v in %s", bin, Args(dotenv), dir)

	cmd := exec.CommandContext(ctx, bin, Args(dotenv)...)
	cmd.Dir = dir
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		if errors.Is(err, exec.ErrNotFound) {
			return &shared.NotFoundError{Path: "nuxi", Hint: "please make sure that you are inside a Nuxt project"}
		}
		return fmt.Errorf("nuxi build: %w", err)
	}
	buildlogger.Success("Build complete")
	return nil
}
