package command

import (
	"testing"

	"github.com/cmstools/crabbox/ci"
	"github.com/mitchellh/cli"
	"github.com/shoenig/test/must"
)

func TestVersionCommand_Implements(t *testing.T) {
	ci.Parallel(t)
	var _ cli.Command = &VersionCommand{}
}

func TestVersionCommand_Run(t *testing.T) {
	ci.Parallel(t)

	ui := cli.NewMockUi()
	cmd := &VersionCommand{Meta: Meta{Ui: ui}}

	must.Zero(t, cmd.Run(nil))
	must.StrContains(t, ui.OutputWriter.String(), "crabbox v")
}
