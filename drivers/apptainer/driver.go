// Package apptainer launches interactive sessions inside the EL7 CMSSW
// container image, driving the apptainer (or singularity) binary directly.
package apptainer

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"regexp"
	"sort"
	"strings"

	"github.com/hashicorp/go-hclog"
	version "github.com/hashicorp/go-version"
)

const (
	// DefaultImage is the unpacked EL7 CMSSW userland on CVMFS. The tag pins
	// the image content; updating it is a deliberate change, not a pull.
	DefaultImage = "/cvmfs/unpacked.cern.ch/registry.hub.docker.com/cmssw/el7:x86_64"

	// DefaultSetupScript bootstraps the CMSSW environment inside the image.
	DefaultSetupScript = "/cvmfs/cms.cern.ch/cmsset_default.sh"

	// DefaultShell is handed control once the session environment is set.
	DefaultShell = "/bin/bash"
)

// Names under which the legacy HTCondor client tooling expects the schedd
// host. All three carry the same value.
const (
	envScheddHost = "_condor_SCHEDD_HOST"
	envScheddName = "_condor_SCHEDD_NAME"
	envCreddHost  = "_condor_CREDD_HOST"
)

// SessionConfig carries everything a container session needs. Settings are
// placed on the child process environment only; the caller's process env is
// never mutated.
type SessionConfig struct {
	// Image is the container image path, typically an unpacked directory
	// on CVMFS.
	Image string

	// Binds are the host paths made visible inside the container.
	Binds BindMounts

	// ScheddHost is the resolved job-submission endpoint, exported inside
	// the session under the three _condor_* names.
	ScheddHost string

	// SetupScript is sourced before control passes to the shell.
	SetupScript string

	// Shell is the program the inner command execs into.
	Shell string

	// ExtraEnv holds additional variables exported inside the session,
	// in sorted key order.
	ExtraEnv map[string]string
}

func DefaultSessionConfig() *SessionConfig {
	return &SessionConfig{
		Image:       DefaultImage,
		Binds:       DefaultBinds(),
		SetupScript: DefaultSetupScript,
		Shell:       DefaultShell,
	}
}

// ShellCommand assembles the command executed inside the container: source
// the setup script, export the schedd under the names the legacy condor
// tooling reads, then exec the interactive shell.
func (c *SessionConfig) ShellCommand() string {
	var parts []string
	parts = append(parts, fmt.Sprintf("source %s", c.SetupScript))
	parts = append(parts,
		fmt.Sprintf("export %s=%s", envScheddHost, c.ScheddHost),
		fmt.Sprintf("export %s=%s", envScheddName, c.ScheddHost),
		fmt.Sprintf("export %s=%s", envCreddHost, c.ScheddHost),
	)

	keys := make([]string, 0, len(c.ExtraEnv))
	for k := range c.ExtraEnv {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("export %s=%s", k, quoteEnvValue(c.ExtraEnv[k])))
	}

	parts = append(parts, "exec "+c.Shell)
	return strings.Join(parts, " && ")
}

// envValueSafe matches values that can ride in the bash -c string unquoted.
var envValueSafe = regexp.MustCompile(`^[A-Za-z0-9_@%+=:,./-]*$`)

// quoteEnvValue single-quotes an extra env value when it carries shell
// metacharacters, so an env-file entry cannot break the assembled command.
// The condor exports are hostnames and stay unquoted.
func quoteEnvValue(v string) string {
	if envValueSafe.MatchString(v) {
		return v
	}
	return "'" + strings.ReplaceAll(v, "'", `'\''`) + "'"
}

// CmdArgs returns the argument vector for the container runtime binary.
func (c *SessionConfig) CmdArgs() []string {
	return []string{"exec", c.Image, c.Shell, "-c", c.ShellCommand()}
}

// BindEnv renders the bind specification for the child environment under
// both prefixes: apptainer reads APPTAINER_BINDPATH, while the singularity
// 3.x compatibility binary only scans SINGULARITY_ variables.
func (c *SessionConfig) BindEnv() []string {
	spec := c.Binds.Spec()
	return []string{
		"APPTAINER_BINDPATH=" + spec,
		"SINGULARITY_BINDPATH=" + spec,
	}
}

// Driver runs container sessions via the runtime CLI.
type Driver struct {
	bin    string
	ver    *version.Version
	logger hclog.Logger
}

// NewDriver fingerprints the container runtime and returns a driver bound
// to it.
func NewDriver(logger hclog.Logger) (*Driver, error) {
	bin, ver, err := fingerprint()
	if err != nil {
		return nil, err
	}

	logger = logger.Named("apptainer")
	logger.Debug("fingerprinted container runtime", "bin", bin, "version", ver)

	return &Driver{bin: bin, ver: ver, logger: logger}, nil
}

// Runtime returns the fingerprinted binary name and version.
func (d *Driver) Runtime() (string, *version.Version) {
	return d.bin, d.ver
}

// Exec starts the container session with the caller's stdio attached and
// blocks until the inner shell exits. The bind specification travels on the
// child environment, not the driver's own process env.
func (d *Driver) Exec(ctx context.Context, cfg *SessionConfig, stdin io.Reader, stdout, stderr io.Writer) error {
	cmd := exec.CommandContext(ctx, d.bin, cfg.CmdArgs()...)
	cmd.Stdin = stdin
	cmd.Stdout = stdout
	cmd.Stderr = stderr
	cmd.Env = append(os.Environ(), cfg.BindEnv()...)

	d.logger.Debug("starting container session",
		"image", cfg.Image, "schedd", cfg.ScheddHost, "binds", cfg.Binds.Spec())

	return cmd.Run()
}

// ExitCode extracts the session exit code from an Exec error; the session's
// status is passed through to the invoking terminal unchanged.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	if exitErr, ok := err.(*exec.ExitError); ok {
		return exitErr.ExitCode()
	}
	return 1
}
