package apptainer

import (
	"errors"
	"strings"
	"testing"

	"github.com/cmstools/crabbox/ci"
	"github.com/shoenig/test/must"
	"github.com/stretchr/testify/require"
)

func TestSessionConfig_ShellCommand(t *testing.T) {
	ci.Parallel(t)

	cfg := DefaultSessionConfig()
	cfg.ScheddHost = "schedd01.example.org"

	cmd := cfg.ShellCommand()

	// all three condor variables carry the identical resolved value
	must.StrContains(t, cmd, "export _condor_SCHEDD_HOST=schedd01.example.org")
	must.StrContains(t, cmd, "export _condor_SCHEDD_NAME=schedd01.example.org")
	must.StrContains(t, cmd, "export _condor_CREDD_HOST=schedd01.example.org")

	// no quotes around the substituted value, no trailing whitespace
	must.False(t, strings.Contains(cmd, `"`))
	must.Eq(t, cmd, strings.TrimSpace(cmd))

	// setup script runs before the exports, shell exec comes last
	must.StrContains(t, cmd, "source /cvmfs/cms.cern.ch/cmsset_default.sh && export")
	must.True(t, strings.HasSuffix(cmd, "exec /bin/bash"))
}

func TestSessionConfig_ShellCommand_extraEnv(t *testing.T) {
	ci.Parallel(t)

	cfg := DefaultSessionConfig()
	cfg.ScheddHost = "bigbird12.cern.ch"
	cfg.ExtraEnv = map[string]string{
		"X509_USER_PROXY": "/tmp/x509up_u1000",
		"CMS_PATH":        "/cvmfs/cms.cern.ch",
	}

	cmd := cfg.ShellCommand()

	// extra variables export in sorted key order, after the condor set
	cmsIdx := strings.Index(cmd, "export CMS_PATH=/cvmfs/cms.cern.ch")
	proxyIdx := strings.Index(cmd, "export X509_USER_PROXY=/tmp/x509up_u1000")
	condorIdx := strings.Index(cmd, "export _condor_SCHEDD_HOST=")
	require.NotEqual(t, -1, cmsIdx)
	require.NotEqual(t, -1, proxyIdx)
	require.Less(t, condorIdx, cmsIdx)
	require.Less(t, cmsIdx, proxyIdx)
}

func TestSessionConfig_ShellCommand_quotesUnsafeValues(t *testing.T) {
	ci.Parallel(t)

	cfg := DefaultSessionConfig()
	cfg.ScheddHost = "bigbird12.cern.ch"
	cfg.ExtraEnv = map[string]string{
		"GREETING": "hello world",
		"CHAIN":    "a && rm -rf b",
		"QUOTED":   "it's",
	}

	cmd := cfg.ShellCommand()
	must.StrContains(t, cmd, "export CHAIN='a && rm -rf b'")
	must.StrContains(t, cmd, "export GREETING='hello world'")
	must.StrContains(t, cmd, `export QUOTED='it'\''s'`)

	// the condor exports stay unquoted
	must.StrContains(t, cmd, "export _condor_SCHEDD_HOST=bigbird12.cern.ch")
}

func TestSessionConfig_BindEnv(t *testing.T) {
	ci.Parallel(t)

	cfg := DefaultSessionConfig()
	env := cfg.BindEnv()
	must.Len(t, 2, env)

	// the spec is set under both prefixes; singularity 3.x ignores
	// APPTAINER_ variables
	spec := cfg.Binds.Spec()
	must.Eq(t, "APPTAINER_BINDPATH="+spec, env[0])
	must.Eq(t, "SINGULARITY_BINDPATH="+spec, env[1])
}

func TestSessionConfig_CmdArgs(t *testing.T) {
	ci.Parallel(t)

	cfg := DefaultSessionConfig()
	cfg.ScheddHost = "bigbird23.cern.ch"

	args := cfg.CmdArgs()
	must.Len(t, 5, args)
	must.Eq(t, "exec", args[0])
	must.Eq(t, DefaultImage, args[1])
	must.Eq(t, "/bin/bash", args[2])
	must.Eq(t, "-c", args[3])
	must.Eq(t, cfg.ShellCommand(), args[4])
}

func TestExitCode(t *testing.T) {
	ci.Parallel(t)

	must.Zero(t, ExitCode(nil))
	must.Eq(t, 1, ExitCode(errors.New("runtime missing")))
}
