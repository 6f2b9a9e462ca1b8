package command

import (
	"context"
	"errors"
	"testing"

	"github.com/cmstools/crabbox/ci"
	"github.com/cmstools/crabbox/schedd"
	"github.com/mitchellh/cli"
	"github.com/shoenig/test/must"
)

func TestScheddCommand_Implements(t *testing.T) {
	ci.Parallel(t)
	var _ cli.Command = &ScheddCommand{}
}

func TestScheddCommand_Run(t *testing.T) {
	ci.Parallel(t)

	ui := cli.NewMockUi()
	cmd := &ScheddCommand{
		Meta: Meta{Ui: ui},
		statusFn: func(context.Context) (*schedd.Status, error) {
			return &schedd.Status{CurrentSchedd: "bigbird12.cern.ch", CurrentPool: "share"}, nil
		},
	}

	code := cmd.Run([]string{})
	must.Zero(t, code)
	must.StrContains(t, ui.OutputWriter.String(), "bigbird12.cern.ch")
	must.StrContains(t, ui.OutputWriter.String(), "share")
}

func TestScheddCommand_Run_json(t *testing.T) {
	ci.Parallel(t)

	ui := cli.NewMockUi()
	cmd := &ScheddCommand{
		Meta: Meta{Ui: ui},
		statusFn: func(context.Context) (*schedd.Status, error) {
			return &schedd.Status{CurrentSchedd: "bigbird23.cern.ch"}, nil
		},
	}

	code := cmd.Run([]string{"-json"})
	must.Zero(t, code)
	must.StrContains(t, ui.OutputWriter.String(), `"currentschedd": "bigbird23.cern.ch"`)
}

func TestScheddCommand_Run_noAssignment(t *testing.T) {
	ci.Parallel(t)

	ui := cli.NewMockUi()
	cmd := &ScheddCommand{
		Meta: Meta{Ui: ui},
		statusFn: func(context.Context) (*schedd.Status, error) {
			return &schedd.Status{}, nil
		},
	}

	code := cmd.Run([]string{})
	must.One(t, code)
	must.StrContains(t, ui.ErrorWriter.String(), "No schedd assigned")
}

func TestScheddCommand_Run_helperError(t *testing.T) {
	ci.Parallel(t)

	ui := cli.NewMockUi()
	cmd := &ScheddCommand{
		Meta: Meta{Ui: ui},
		statusFn: func(context.Context) (*schedd.Status, error) {
			return nil, errors.New("myschedd: command not found")
		},
	}

	code := cmd.Run([]string{})
	must.One(t, code)
	must.StrContains(t, ui.ErrorWriter.String(), "Error querying schedd")
}
