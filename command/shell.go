package command

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/cmstools/crabbox/drivers/apptainer"
	"github.com/cmstools/crabbox/schedd"
	"github.com/hashicorp/go-envparse"
	"github.com/moby/term"
	"github.com/posener/complete"
)

type ShellCommand struct {
	Meta
}

func (c *ShellCommand) Name() string { return "shell" }

func (c *ShellCommand) Synopsis() string {
	return "Open an EL7 container shell wired for CMSSW and HTCondor"
}

func (c *ShellCommand) Help() string {
	helpText := `
Usage: crabbox shell [options]

  Opens an interactive shell inside the EL7 CMSSW container with the CMS
  bind mounts in place. The currently assigned HTCondor schedd is resolved
  via myschedd and exported inside the session as _condor_SCHEDD_HOST,
  _condor_SCHEDD_NAME and _condor_CREDD_HOST so that job submission keeps
  working from the legacy userland.

  The command exits with the exit code of the inner shell.

Shell Options:

  -image <path>
    Container image to use. Defaults to the pinned EL7 CMSSW image on CVMFS.

  -schedd <host>
    Skip discovery and use the given schedd host.

  -env-file <path>
    File with KEY=VALUE pairs exported inside the session in addition to the
    condor variables.

  -dry-run
    Print the assembled container command and bind specification without
    launching anything.

  -verbose
    Enable debug logging.
`
	return strings.TrimSpace(helpText)
}

func (c *ShellCommand) AutocompleteFlags() complete.Flags {
	return mergeAutocompleteFlags(c.Meta.AutocompleteFlags(),
		complete.Flags{
			"-image":    complete.PredictFiles("*"),
			"-schedd":   complete.PredictAnything,
			"-env-file": complete.PredictFiles("*"),
			"-dry-run":  complete.PredictNothing,
		})
}

func (c *ShellCommand) AutocompleteArgs() complete.Predictor {
	return complete.PredictNothing
}

func (c *ShellCommand) Run(args []string) int {
	var image, scheddHost, envFile string
	var dryRun bool

	flags := c.Meta.FlagSet(c.Name())
	flags.Usage = func() { c.Ui.Output(c.Help()) }
	flags.StringVar(&image, "image", apptainer.DefaultImage, "")
	flags.StringVar(&scheddHost, "schedd", "", "")
	flags.StringVar(&envFile, "env-file", "", "")
	flags.BoolVar(&dryRun, "dry-run", false, "")

	if err := flags.Parse(args); err != nil {
		return 1
	}

	if len(flags.Args()) != 0 {
		c.Ui.Error("This command takes no arguments")
		c.Ui.Error(commandErrorText(c))
		return 1
	}

	cfg := apptainer.DefaultSessionConfig()
	cfg.Image = image

	if envFile != "" {
		f, err := os.Open(envFile)
		if err != nil {
			c.Ui.Error(fmt.Sprintf("Error opening env file: %s", err))
			return 1
		}
		extra, err := envparse.Parse(f)
		f.Close()
		if err != nil {
			c.Ui.Error(fmt.Sprintf("Error parsing env file: %s", err))
			return 1
		}
		cfg.ExtraEnv = extra
	}

	ctx := context.Background()

	if scheddHost == "" {
		host, err := schedd.NewResolver(c.Logger("crabbox")).Resolve(ctx)
		if err != nil {
			c.Ui.Error(fmt.Sprintf("Error resolving schedd: %s", err))
			c.Ui.Error(wrapAtLength("The myschedd discovery helper must be reachable "+
				"from this host; check the assignment with 'myschedd show', or pass "+
				"-schedd to use a known schedd without discovery."))
			return 1
		}
		scheddHost = host
	}
	cfg.ScheddHost = scheddHost

	if dryRun {
		for _, env := range cfg.BindEnv() {
			c.Ui.Output(env)
		}
		c.Ui.Output(fmt.Sprintf("apptainer %s", strings.Join(cfg.CmdArgs(), " ")))
		return 0
	}

	if !term.IsTerminal(os.Stdin.Fd()) {
		c.Ui.Error("The shell command requires an interactive terminal")
		return 1
	}

	driver, err := apptainer.NewDriver(c.Logger("crabbox"))
	if err != nil {
		c.Ui.Error(fmt.Sprintf("Error locating container runtime: %s", err))
		return 1
	}

	c.Ui.Info(fmt.Sprintf("Opening EL7 session (schedd %s)", scheddHost))

	err = driver.Exec(ctx, cfg, os.Stdin, os.Stdout, os.Stderr)
	return apptainer.ExitCode(err)
}
