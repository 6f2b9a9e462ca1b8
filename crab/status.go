// Package crab monitors CRAB production tasks: it discovers task directories
// under a simpack tree, drives each task's bundled status script, parses the
// output, and renders a status page.
package crab

import (
	"strings"

	"github.com/hashicorp/go-set/v3"
)

// jobsStatusPrefix introduces the job state summary in crab status output.
// Additional states continue on indented follow-up lines.
const jobsStatusPrefix = "Jobs status:"

// grafanaPrefix introduces the monitoring dashboard link.
const grafanaPrefix = "Dashboard monitoring URL"

// schedulerStatusPrefix introduces the scheduler-side task state.
const schedulerStatusPrefix = "Status on the scheduler"

// knownStates is the job state vocabulary crab reports.
var knownStates = set.From([]string{
	"finished",
	"running",
	"transferring",
	"failed",
	"killed",
	"idle",
	"unsubmitted",
	"toRetry",
})

// TaskStatus is the parsed result of one crab status invocation.
type TaskStatus struct {
	// Fractions maps job state to the reported percentage string,
	// e.g. "finished" -> "73.3%".
	Fractions map[string]string

	// GrafanaURL is the monitoring dashboard link, if reported.
	GrafanaURL string

	// SchedulerCompleted is set when the scheduler reports the task
	// as COMPLETED.
	SchedulerCompleted bool
}

// HasFailed reports whether any jobs are in the failed state.
func (s *TaskStatus) HasFailed() bool {
	_, ok := s.Fractions["failed"]
	return ok
}

// Fraction returns the percentage string for a state, or "" when absent.
func (s *TaskStatus) Fraction(state string) string {
	return s.Fractions[state]
}

// HasStatusLine reports whether the output carries exactly one job status
// summary line; anything else means the status command failed part-way.
func HasStatusLine(lines []string) bool {
	n := 0
	for _, line := range lines {
		if strings.HasPrefix(line, jobsStatusPrefix) {
			n++
		}
	}
	return n == 1
}

// ParseStatusOutput extracts the job state fractions, the dashboard link,
// and the scheduler-side completion state from crab status output lines.
// Unknown states are ignored.
func ParseStatusOutput(lines []string) *TaskStatus {
	status := &TaskStatus{Fractions: make(map[string]string)}

	for _, line := range lines {
		line = strings.Replace(line, jobsStatusPrefix, "", 1)
		words := strings.Fields(line)
		if len(words) == 0 {
			continue
		}

		for _, state := range knownStates.Slice() {
			if !strings.Contains(words[0], state) {
				continue
			}
			frac := "<none>"
			if len(words) > 1 {
				frac = words[1]
			}
			status.Fractions[state] = frac
		}

		if strings.HasPrefix(line, grafanaPrefix) {
			if len(words) > 3 {
				status.GrafanaURL = words[3]
			}
		}

		if strings.Contains(line, schedulerStatusPrefix) && strings.Contains(line, "COMPLETED") {
			status.SchedulerCompleted = true
		}
	}

	return status
}
