package terminal

import (
	"os"
	"os/exec"
	"runtime"
	"strings"
)

// Shell profile names understood by the resolver.
const (
	ProfileDefault    = "default"
	ProfilePowerShell = "pwsh"
	ProfileCmd        = "cmd"
	ProfileGitBash    = "git-bash"
	ProfileWSL        = "wsl"
)

const (
	gitBashPath       = `C:\Program Files\Git\bin\bash.exe`
	legacyPowerShell  = "powershell.exe"
	fallbackPosixPath = "/bin/sh"
	termCapability    = "TERM=xterm-256color"
)

// ExecutableSpec is a fully resolved shell command.
type ExecutableSpec struct {
	Profile string   `json:"profile"`
	Path    string   `json:"path"`
	Args    []string `json:"args,omitempty"`
	Env     []string `json:"env,omitempty"`
	Dir     string   `json:"dir,omitempty"`
}

// String returns the command line for logging.
func (s ExecutableSpec) String() string {
	if len(s.Args) == 0 {
		return s.Path
	}
	return s.Path + " " + strings.Join(s.Args, " ")
}

// Resolver maps shell profile names to executables for one platform.
//
// Resolution never fails: unknown profiles on Windows are treated as a
// literal executable path, and probe failures count as absence.
type Resolver struct {
	goos         string
	defaultShell string
	lookPath     func(string) (string, error)
	stat         func(string) (os.FileInfo, error)
}

// ResolverOption configures a Resolver.
type ResolverOption func(*Resolver)

// WithPlatform overrides the host platform (a runtime.GOOS value).
func WithPlatform(goos string) ResolverOption {
	return func(r *Resolver) { r.goos = goos }
}

// WithDefaultShell sets the POSIX shell. Empty means bash, or /bin/sh when
// bash is not on PATH.
func WithDefaultShell(path string) ResolverOption {
	return func(r *Resolver) { r.defaultShell = path }
}

// WithLookPath replaces the PATH probe.
func WithLookPath(fn func(string) (string, error)) ResolverOption {
	return func(r *Resolver) { r.lookPath = fn }
}

// WithStat replaces the filesystem probe.
func WithStat(fn func(string) (os.FileInfo, error)) ResolverOption {
	return func(r *Resolver) { r.stat = fn }
}

// NewResolver creates a resolver for the host platform.
func NewResolver(opts ...ResolverOption) *Resolver {
	r := &Resolver{
		goos:     runtime.GOOS,
		lookPath: exec.LookPath,
		stat:     os.Stat,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Platform returns the GOOS value the resolver applies policy for.
func (r *Resolver) Platform() string {
	return r.goos
}

// Profiles lists the preset profile names for the resolver's platform.
func (r *Resolver) Profiles() []string {
	if r.goos == "windows" {
		return []string{ProfilePowerShell, ProfileCmd, ProfileGitBash, ProfileWSL}
	}
	return []string{ProfileDefault}
}

// Resolve maps a profile name to an executable.
func (r *Resolver) Resolve(profile string) ExecutableSpec {
	if r.goos == "windows" {
		return r.resolveWindows(profile)
	}
	return ExecutableSpec{
		Profile: profile,
		Path:    r.posixShell(),
		Env:     []string{termCapability},
	}
}

func (r *Resolver) resolveWindows(profile string) ExecutableSpec {
	spec := ExecutableSpec{Profile: profile}

	switch profile {
	case ProfilePowerShell:
		spec.Path = legacyPowerShell
		if r.onPath("pwsh.exe") {
			spec.Path = "pwsh.exe"
		}
	case ProfileCmd:
		spec.Path = "cmd.exe"
	case ProfileGitBash:
		spec.Path = legacyPowerShell
		if r.exists(gitBashPath) {
			spec.Path = gitBashPath
		}
	case ProfileWSL:
		spec.Path = "wsl.exe"
	default:
		// User-configured shell path
		spec.Path = profile
	}

	return spec
}

func (r *Resolver) posixShell() string {
	if r.defaultShell != "" {
		return r.defaultShell
	}
	if r.onPath("bash") {
		return "bash"
	}
	return fallbackPosixPath
}

func (r *Resolver) onPath(name string) bool {
	if r.lookPath == nil {
		return false
	}
	_, err := r.lookPath(name)
	return err == nil
}

func (r *Resolver) exists(path string) bool {
	if r.stat == nil {
		return false
	}
	_, err := r.stat(path)
	return err == nil
}
