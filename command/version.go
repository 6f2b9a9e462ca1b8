package command

import (
	"github.com/cmstools/crabbox/version"
	"github.com/posener/complete"
)

type VersionCommand struct {
	Meta
}

func (c *VersionCommand) Name() string { return "version" }

func (c *VersionCommand) Synopsis() string {
	return "Prints the crabbox version"
}

func (c *VersionCommand) Help() string {
	return "Usage: crabbox version"
}

func (c *VersionCommand) AutocompleteFlags() complete.Flags {
	return nil
}

func (c *VersionCommand) AutocompleteArgs() complete.Predictor {
	return complete.PredictNothing
}

func (c *VersionCommand) Run(_ []string) int {
	c.Ui.Output(version.GetVersion().FullVersionNumber(true))
	return 0
}
