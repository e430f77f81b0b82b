package hooks

import (
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"

	"github.com/thatjpcsguy/fleetctl/internal/api"
)

// HookType represents the type of hook
type HookType string

const (
	PostCreate  HookType = "post-create"
	PostRelease HookType = "post-release"
)

// DefaultDir is where file-based hooks live, relative to the working directory
var DefaultDir = filepath.Join(".fleetctl", "hooks")

// Runner executes hooks
type Runner struct {
	// Dir holds <hook-type>.sh files
	Dir    string
	Stdout io.Writer
	Stderr io.Writer
}

// NewRunner creates a runner using DefaultDir and the process's stdio
func NewRunner() *Runner {
	return &Runner{Dir: DefaultDir, Stdout: os.Stdout, Stderr: os.Stderr}
}

// Execute runs a hook if it exists and reports whether one ran.
// Priority: file-based hook > script from config
func (r *Runner) Execute(hookType HookType, scriptFromConfig string, env map[string]string) (bool, error) {
	hookPath := filepath.Join(r.Dir, string(hookType)+".sh")
	if _, err := os.Stat(hookPath); err == nil {
		_, _ = fmt.Fprintf(r.Stdout, "🪝 Running %s hook (file-based)...\n", hookType)
		if err := r.run(env, "bash", hookPath); err != nil {
			return true, fmt.Errorf("hook failed: %w", err)
		}
		return true, nil
	}

	if scriptFromConfig != "" {
		_, _ = fmt.Fprintf(r.Stdout, "🪝 Running %s script (from config)...\n", hookType)
		if err := r.run(env, "bash", "-c", scriptFromConfig); err != nil {
			return true, fmt.Errorf("hook script failed: %w", err)
		}
		return true, nil
	}

	// No hook defined
	return false, nil
}

func (r *Runner) run(env map[string]string, name string, args ...string) error {
	cmd := exec.Command(name, args...)
	cmd.Stdout = r.Stdout
	cmd.Stderr = r.Stderr

	cmd.Env = os.Environ()
	for k, v := range env {
		cmd.Env = append(cmd.Env, fmt.Sprintf("%s=%s", k, v))
	}

	return cmd.Run()
}

// AllocationEnv describes an allocation to a hook
func AllocationEnv(alloc api.Allocation) map[string]string {
	env := map[string]string{
		"ALLOCATION_ID":     strconv.FormatInt(alloc.ID, 10),
		"AGENT_ID":          strconv.FormatInt(alloc.AgentID, 10),
		"SERVICE":           alloc.Service,
		"REMOTE_PORT":       strconv.Itoa(alloc.RemotePort),
		"ALLOCATION_STATUS": string(alloc.Status),
		"ACCESS_URL":        "",
	}
	if alloc.AccessURL != nil {
		env["ACCESS_URL"] = *alloc.AccessURL
	}
	return env
}
