package command

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/cmstools/crabbox/schedd"
	"github.com/posener/complete"
)

type ScheddCommand struct {
	Meta

	// statusFn is swapped out in tests.
	statusFn func(context.Context) (*schedd.Status, error)
}

func (c *ScheddCommand) Name() string { return "schedd" }

func (c *ScheddCommand) Synopsis() string {
	return "Show the currently assigned HTCondor schedd"
}

func (c *ScheddCommand) Help() string {
	helpText := `
Usage: crabbox schedd [options]

  Queries the myschedd discovery helper and prints the schedd host currently
  assigned for job submission, along with the pool it belongs to.

Schedd Options:

  -json
    Output the scheduler status in JSON format.
`
	return strings.TrimSpace(helpText)
}

func (c *ScheddCommand) AutocompleteFlags() complete.Flags {
	return mergeAutocompleteFlags(c.Meta.AutocompleteFlags(),
		complete.Flags{
			"-json": complete.PredictNothing,
		})
}

func (c *ScheddCommand) AutocompleteArgs() complete.Predictor {
	return complete.PredictNothing
}

func (c *ScheddCommand) Run(args []string) int {
	var jsonOut bool

	flags := c.Meta.FlagSet(c.Name())
	flags.Usage = func() { c.Ui.Output(c.Help()) }
	flags.BoolVar(&jsonOut, "json", false, "")

	if err := flags.Parse(args); err != nil {
		return 1
	}

	if len(flags.Args()) != 0 {
		c.Ui.Error("This command takes no arguments")
		c.Ui.Error(commandErrorText(c))
		return 1
	}

	statusFn := c.statusFn
	if statusFn == nil {
		statusFn = schedd.NewResolver(c.Logger("crabbox")).Status
	}

	status, err := statusFn(context.Background())
	if err != nil {
		c.Ui.Error(fmt.Sprintf("Error querying schedd: %s", err))
		return 1
	}

	if status.CurrentSchedd == "" {
		c.Ui.Error("No schedd assigned; run myschedd bump and retry")
		return 1
	}

	if jsonOut {
		out, err := json.MarshalIndent(status, "", "    ")
		if err != nil {
			c.Ui.Error(fmt.Sprintf("Error formatting output: %s", err))
			return 1
		}
		c.Ui.Output(string(out))
		return 0
	}

	c.Ui.Output(formatKV([]string{
		fmt.Sprintf("Schedd|%s", status.CurrentSchedd),
		fmt.Sprintf("Pool|%s", status.CurrentPool),
	}))
	return 0
}
