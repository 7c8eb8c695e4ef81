package workspace

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"dsbench/internal/logging"
	"dsbench/internal/security"
)

// Observation prefixes produced by RunScript.
const (
	ScriptFailedPrefix   = "Error: Script execution failed\n"
	ScriptNotFoundPrefix = "Error: Script file not found: "
	ScriptStartPrefix    = "Error executing script: "
	TimeoutMarker        = "TimeoutError: "
)

// waitDelay bounds how long Wait blocks on pipes held open by grandchildren
// after the script itself has been killed.
const waitDelay = 2 * time.Second

// RunScript executes name with the configured interpreter, working directory
// set to the script's directory. A failing script is a normal observation:
// exit code 0 yields stdout, anything else yields ScriptFailedPrefix followed
// by stderr. Only a containment violation is returned as an error.
func (f *FS) RunScript(ctx context.Context, name string) (string, error) {
	abs, err := f.Resolve(name)
	if err != nil {
		return "", err
	}
	if _, err := os.Stat(abs); err != nil {
		logging.Warn("script not found", "script", name)
		return ScriptNotFoundPrefix + name, nil
	}

	execCtx := ctx
	if f.opts.ExecTimeout > 0 {
		var cancel context.CancelFunc
		execCtx, cancel = context.WithTimeout(ctx, f.opts.ExecTimeout)
		defer cancel()
	}

	args := append(append([]string{}, f.opts.InterpreterArgs...), abs)
	cmd := exec.CommandContext(execCtx, f.opts.Interpreter, args...)
	security.Sandbox(cmd, filepath.Dir(abs), security.SandboxConfig{PassEnv: f.opts.PassEnv})
	cmd.WaitDelay = waitDelay

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	logging.Debug("executing script", "interpreter", f.opts.Interpreter, "script", name, "dir", cmd.Dir)
	start := time.Now()
	err = cmd.Run()
	duration := time.Since(start)

	if err == nil {
		logging.Debug("script finished", "script", name, "duration", duration, "stdout_bytes", stdout.Len())
		return stdout.String(), nil
	}

	if errors.Is(execCtx.Err(), context.DeadlineExceeded) && ctx.Err() == nil {
		logging.Warn("script killed (timeout)", "script", name, "timeout", f.opts.ExecTimeout)
		return ScriptFailedPrefix + withNewline(stderr.String()) +
			fmt.Sprintf("%sscript exceeded %s", TimeoutMarker, f.opts.ExecTimeout), nil
	}
	if ctx.Err() != nil {
		return ScriptStartPrefix + ctx.Err().Error(), nil
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		logging.Debug("script exited non-zero", "script", name, "exit_code", exitErr.ExitCode())
		return ScriptFailedPrefix + stderr.String(), nil
	}

	logging.Error("script could not be started", "script", name, "error", err)
	return ScriptStartPrefix + err.Error(), nil
}

func withNewline(s string) string {
	if s == "" || strings.HasSuffix(s, "\n") {
		return s
	}
	return s + "\n"
}
