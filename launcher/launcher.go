package launcher

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"sort"

	"github.com/Mmx233/rvlink/client"
	"github.com/Mmx233/rvlink/config"
	"github.com/rs/zerolog"
)

// Environment variables describing the pipeline context of a launch
const (
	EnvProject = "AYON_PROJECT_NAME"
	EnvFolder  = "AYON_FOLDER_PATH"
	EnvTask    = "AYON_TASK_NAME"
)

// ErrNotConfigured is returned when no executable is set.
var ErrNotConfigured = errors.New("review application executable not configured, set launcher.executable and pass -network in launcher.args")

// Exec starts the review application as a detached process.
type Exec struct {
	cfg    config.Launcher
	logger zerolog.Logger
}

// New creates an Exec launcher. cfg should have defaults applied.
func New(cfg config.Launcher, logger zerolog.Logger) *Exec {
	return &Exec{
		cfg:    cfg,
		logger: logger.With().Str("com", "launcher").Str("executable", cfg.Executable).Logger(),
	}
}

// Launch starts the process and returns once it is running. The process is
// not tied to ctx and outlives the caller.
func (e *Exec) Launch(ctx context.Context, lc client.LaunchContext) error {
	if !e.cfg.Enabled() {
		return ErrNotConfigured
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	cmd := exec.Command(e.cfg.Executable, e.cfg.Args...)
	cmd.Env = e.environ(lc)
	cmd.SysProcAttr = detached()

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("start %s: %w", e.cfg.Executable, err)
	}
	pid := cmd.Process.Pid
	if err := cmd.Process.Release(); err != nil {
		e.logger.Debug().Err(err).Msg("release process handle failed")
	}

	e.logger.Info().
		Int("pid", pid).
		Strs("args", e.cfg.Args).
		Str("project", lc.Project).
		Str("folder", lc.Folder).
		Str("task", lc.Task).
		Msg("review application started")
	return nil
}

// environ returns the parent environment, the configured extras and the
// launch context, later entries overriding earlier ones.
func (e *Exec) environ(lc client.LaunchContext) []string {
	env := os.Environ()

	keys := make([]string, 0, len(e.cfg.Env))
	for k := range e.cfg.Env {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		env = append(env, k+"="+e.cfg.Env[k])
	}

	env = append(env, EnvProject+"="+lc.Project, EnvFolder+"="+lc.Folder)
	if lc.Task != "" {
		env = append(env, EnvTask+"="+lc.Task)
	}
	return env
}
