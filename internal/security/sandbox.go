package security

import (
	"os"
	"os/exec"
	"slices"
)

// DefaultPassEnv lists the host variables every script inherits. Anything
// else, API keys included, is withheld.
var DefaultPassEnv = []string{
	"PATH", "HOME", "USER", "LANG", "LC_ALL", "TZ",
	"PYTHONPATH", "VIRTUAL_ENV", "CONDA_PREFIX", "CONDA_DEFAULT_ENV",
	"LD_LIBRARY_PATH", "CUDA_VISIBLE_DEVICES", "SYSTEMROOT",
}

// SandboxConfig controls how script processes are started.
type SandboxConfig struct {
	// PassEnv names extra host variables scripts may see.
	PassEnv []string
}

// ScriptEnvironment builds the environment of a script running in workDir.
func ScriptEnvironment(workDir string, cfg SandboxConfig) []string {
	names := append(slices.Clone(DefaultPassEnv), cfg.PassEnv...)
	env := make([]string, 0, len(names)+2)
	seen := make(map[string]bool, len(names))
	for _, name := range names {
		if name == "" || seen[name] {
			continue
		}
		seen[name] = true
		if v, ok := os.LookupEnv(name); ok {
			env = append(env, name+"="+v)
		}
	}
	return append(env, "PWD="+workDir, "PYTHONUNBUFFERED=1")
}

// Sandbox prepares cmd to run as a script in workDir: reduced environment,
// and on platforms that support it its own process group, killed as a whole
// when the command's context ends.
func Sandbox(cmd *exec.Cmd, workDir string, cfg SandboxConfig) {
	cmd.Dir = workDir
	cmd.Env = ScriptEnvironment(workDir, cfg)
	applySandbox(cmd)
}

