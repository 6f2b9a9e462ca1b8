package command

import (
	"flag"
	"os"

	"github.com/hashicorp/go-hclog"
	colorable "github.com/mattn/go-colorable"
	"github.com/mitchellh/cli"
	"github.com/mitchellh/colorstring"
	"github.com/posener/complete"
	"golang.org/x/crypto/ssh/terminal"
)

const (
	// EnvCrabboxCLINoColor is an env var that toggles colored UI output.
	EnvCrabboxCLINoColor = `CRABBOX_CLI_NO_COLOR`

	// EnvCrabboxCLIForceColor is an env var that forces colored UI output.
	EnvCrabboxCLIForceColor = `CRABBOX_CLI_FORCE_COLOR`
)

// Meta contains the meta-options and functionality that nearly every
// crabbox command inherits.
type Meta struct {
	Ui cli.Ui

	// Whether to not-colorize output
	noColor bool

	// Whether to force colorized output
	forceColor bool

	// verbose raises the log level to debug
	verbose bool
}

// FlagSet returns a FlagSet with the common flags that every command
// implements.
func (m *Meta) FlagSet(n string) *flag.FlagSet {
	f := flag.NewFlagSet(n, flag.ContinueOnError)
	f.BoolVar(&m.noColor, "no-color", false, "")
	f.BoolVar(&m.forceColor, "force-color", false, "")
	f.BoolVar(&m.verbose, "verbose", false, "")
	f.SetOutput(&uiErrorWriter{ui: m.Ui})
	return f
}

// AutocompleteFlags returns the flag completions shared by every command.
func (m *Meta) AutocompleteFlags() complete.Flags {
	return complete.Flags{
		"-no-color":    complete.PredictNothing,
		"-force-color": complete.PredictNothing,
		"-verbose":     complete.PredictNothing,
	}
}

// Logger builds the hclog logger handed to the domain packages. Quiet by
// default so the interactive flow stays clean; -verbose opens it up.
func (m *Meta) Logger(name string) hclog.Logger {
	level := hclog.Warn
	if m.verbose {
		level = hclog.Debug
	}
	return hclog.New(&hclog.LoggerOptions{
		Name:   name,
		Level:  level,
		Output: os.Stderr,
	})
}

func (m *Meta) Colorize() *colorstring.Colorize {
	_, coloredUi := m.Ui.(*cli.ColoredUi)

	return &colorstring.Colorize{
		Colors:  colorstring.DefaultColors,
		Disable: !coloredUi,
		Reset:   true,
	}
}

func (m *Meta) SetupUi(args []string) {
	noColor := os.Getenv(EnvCrabboxCLINoColor) != ""
	forceColor := os.Getenv(EnvCrabboxCLIForceColor) != ""

	for _, arg := range args {
		// Check if color is set
		if arg == "-no-color" || arg == "--no-color" {
			noColor = true
		} else if arg == "-force-color" || arg == "--force-color" {
			forceColor = true
		}
	}

	m.Ui = &cli.BasicUi{
		Reader:      os.Stdin,
		Writer:      colorable.NewColorableStdout(),
		ErrorWriter: colorable.NewColorableStderr(),
	}

	// Only use colored UI if not disabled and stdout is a tty or colors are
	// forced.
	isTerminal := terminal.IsTerminal(int(os.Stdout.Fd()))
	useColor := !noColor && (isTerminal || forceColor)
	if useColor {
		m.Ui = &cli.ColoredUi{
			ErrorColor: cli.UiColorRed,
			WarnColor:  cli.UiColorYellow,
			InfoColor:  cli.UiColorGreen,
			Ui:         m.Ui,
		}
	}
}
