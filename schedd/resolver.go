// Package schedd resolves the HTCondor schedd currently assigned to the
// user by querying the site's scheduler-discovery helper.
package schedd

import (
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"strings"

	"github.com/hashicorp/go-hclog"
	"github.com/pkg/errors"
)

// DefaultHelperBin is the discovery helper installed on lxplus submit hosts.
const DefaultHelperBin = "myschedd"

// ErrNoSchedd is returned when the helper output carries no usable
// currentschedd value.
var ErrNoSchedd = fmt.Errorf("discovery helper reported no assigned schedd")

// Status mirrors the JSON document emitted by `myschedd show -json`.
type Status struct {
	CurrentSchedd string `json:"currentschedd"`
	CurrentPool   string `json:"currentpool"`
}

// runnerFn executes the helper and returns its stdout. Swapped out in tests.
type runnerFn func(ctx context.Context, bin string, args ...string) ([]byte, error)

func defaultRunner(ctx context.Context, bin string, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, bin, args...).Output()
}

// Resolver queries the discovery helper for the assigned schedd.
type Resolver struct {
	bin    string
	run    runnerFn
	logger hclog.Logger
}

func NewResolver(logger hclog.Logger) *Resolver {
	return &Resolver{
		bin:    DefaultHelperBin,
		run:    defaultRunner,
		logger: logger.Named("schedd"),
	}
}

// Status runs the discovery helper and decodes its full JSON document.
func (r *Resolver) Status(ctx context.Context) (*Status, error) {
	out, err := r.run(ctx, r.bin, "show", "-json")
	if err != nil {
		return nil, errors.Wrapf(err, "failed to run %q", r.bin+" show -json")
	}

	var status Status
	if err := json.Unmarshal(out, &status); err != nil {
		return nil, errors.Wrapf(err, "failed to decode %q output", r.bin)
	}

	status.CurrentSchedd = cleanValue(status.CurrentSchedd)
	status.CurrentPool = cleanValue(status.CurrentPool)

	r.logger.Debug("resolved scheduler status",
		"schedd", status.CurrentSchedd, "pool", status.CurrentPool)
	return &status, nil
}

// Resolve returns the hostname of the currently assigned schedd. A helper
// failure or an absent currentschedd field is an error; callers are expected
// to abort rather than launch a session against an empty endpoint.
func (r *Resolver) Resolve(ctx context.Context) (string, error) {
	status, err := r.Status(ctx)
	if err != nil {
		return "", err
	}
	if status.CurrentSchedd == "" {
		return "", ErrNoSchedd
	}
	return status.CurrentSchedd, nil
}

// cleanValue strips surrounding whitespace and any enclosing quote characters
// left over by helpers that pre-quote their field values.
func cleanValue(s string) string {
	s = strings.TrimSpace(s)
	s = strings.Trim(s, `"`)
	return strings.TrimSpace(s)
}
