package command

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/cmstools/crabbox/crab"
	"github.com/dustin/go-humanize"
	multierror "github.com/hashicorp/go-multierror"
	homedir "github.com/mitchellh/go-homedir"
	"github.com/posener/complete"
)

// testModeTasks bounds the number of tasks processed with -test.
const testModeTasks = 3

type MonitorCommand struct {
	Meta
}

func (c *MonitorCommand) Name() string { return "monitor" }

func (c *MonitorCommand) Synopsis() string {
	return "Monitor CRAB tasks and render a status page"
}

func (c *MonitorCommand) Help() string {
	helpText := `
Usage: crabbox monitor [options]

  Scans a simpack directory for CRAB task logs, queries the status of every
  task through its bundled crab_status.sh wrapper, and renders an HTML
  summary page with per-task progress bars and Grafana links.

  Tasks whose status cannot be retrieved are marked as failed on the page;
  they do not abort the run.

Monitor Options:

  -simpack-dir <path>
    Directory holding the simpack submissions to monitor. Required.

  -resubmit
    Resubmit the failed jobs of any task that reports failures.

  -proxy <path>
    X509 proxy exported to the status and resubmit commands.

  -web-dir <path>
    Directory the index.html page is written to. Defaults to
    ./monitor_crab_jobs.

  -test
    Process only the first few tasks.

  -force
    Overwrite the page even when a task status looks irretrievable.

  -verbose
    Enable debug logging.
`
	return strings.TrimSpace(helpText)
}

func (c *MonitorCommand) AutocompleteFlags() complete.Flags {
	return mergeAutocompleteFlags(c.Meta.AutocompleteFlags(),
		complete.Flags{
			"-simpack-dir": complete.PredictDirs("*"),
			"-resubmit":    complete.PredictNothing,
			"-proxy":       complete.PredictFiles("*"),
			"-web-dir":     complete.PredictDirs("*"),
			"-test":        complete.PredictNothing,
			"-force":       complete.PredictNothing,
		})
}

func (c *MonitorCommand) AutocompleteArgs() complete.Predictor {
	return complete.PredictNothing
}

func (c *MonitorCommand) Run(args []string) int {
	var simpackDir, proxy, webDir string
	var resubmit, testMode, force bool

	flags := c.Meta.FlagSet(c.Name())
	flags.Usage = func() { c.Ui.Output(c.Help()) }
	flags.StringVar(&simpackDir, "simpack-dir", "", "")
	flags.BoolVar(&resubmit, "resubmit", false, "")
	flags.StringVar(&proxy, "proxy", "", "")
	flags.StringVar(&webDir, "web-dir", "monitor_crab_jobs", "")
	flags.BoolVar(&testMode, "test", false, "")
	flags.BoolVar(&force, "force", false, "")

	if err := flags.Parse(args); err != nil {
		return 1
	}

	if len(flags.Args()) != 0 {
		c.Ui.Error("This command takes no arguments")
		c.Ui.Error(commandErrorText(c))
		return 1
	}

	if simpackDir == "" {
		c.Ui.Error("The -simpack-dir flag is required")
		c.Ui.Error(commandErrorText(c))
		return 1
	}

	simpackDir, proxy, webDir, err := expandPaths(simpackDir, proxy, webDir)
	if err != nil {
		c.Ui.Error(fmt.Sprintf("Error expanding paths: %s", err))
		return 1
	}

	if info, err := os.Stat(simpackDir); err != nil || !info.IsDir() {
		c.Ui.Error(fmt.Sprintf("Simpack directory %s does not exist", simpackDir))
		return 1
	}
	if proxy != "" {
		if _, err := os.Stat(proxy); err != nil {
			c.Ui.Error(fmt.Sprintf("Provided proxy %s does not exist", proxy))
			return 1
		}
	}

	tasks, err := crab.FindTasks(simpackDir)
	if err != nil {
		c.Ui.Error(fmt.Sprintf("Error scanning simpack directory: %s", err))
		return 1
	}
	if len(tasks) == 0 {
		c.Ui.Error(fmt.Sprintf("No tasks found in %s", simpackDir))
		c.Ui.Error(wrapAtLength("Tasks are directories inside a crab_logs folder "+
			"somewhere under the simpack directory; nothing matching was found."))
		return 1
	}

	if testMode && len(tasks) > testModeTasks {
		c.Ui.Warn(fmt.Sprintf("Test mode: processing only %d out of %d tasks",
			testModeTasks, len(tasks)))
		tasks = tasks[:testModeTasks]
	}

	ctx := context.Background()
	runner := crab.NewRunner(c.Logger("crabbox"), proxy)
	start := time.Now()

	report := &crab.Report{
		Title:       "Status of ntuple production",
		GeneratedAt: start,
		Meta: []crab.MetaEntry{
			{Key: "simpack directory", Value: simpackDir},
			{Key: "generated by", Value: "crabbox monitor"},
		},
	}

	var mErr *multierror.Error
	for i, task := range tasks {
		c.Ui.Output(fmt.Sprintf("==> Task %d/%d: %s", i+1, len(tasks), task.Name))

		status, err := runner.Status(ctx, task)
		if err != nil {
			c.Ui.Warn(fmt.Sprintf("    Status unavailable, marking as failed: %s", err))
			mErr = multierror.Append(mErr, err)
			status = &crab.TaskStatus{Fractions: map[string]string{"crab status": "failed"}}
		} else {
			if status.HasFailed() && resubmit {
				c.Ui.Output("    Found failed jobs, resubmitting")
				if err := runner.Resubmit(ctx, task); err != nil {
					mErr = multierror.Append(mErr, err)
				}
			}
			if status.SchedulerCompleted && !task.HasResults() {
				c.Ui.Output("    Task completed on the scheduler, results not retrieved yet")
			}
		}

		report.Samples = append(report.Samples, &crab.SampleRow{
			Name:       task.Name,
			Status:     status,
			GrafanaURL: status.GrafanaURL,
		})
	}

	pagePath, err := crab.WriteReport(webDir, report, force)
	if err != nil {
		c.Ui.Error(fmt.Sprintf("Error writing status page: %s", err))
		return 1
	}

	c.Ui.Output("")
	c.Ui.Output(formatSampleSummary(report.Samples))
	c.Ui.Output("")
	c.Ui.Output(c.Colorize().Color(fmt.Sprintf(
		"[bold][green]Processed %d tasks in %s[reset]",
		len(tasks), strings.TrimSpace(humanize.RelTime(start, time.Now(), "", "")))))
	c.Ui.Output(fmt.Sprintf("Status page written to %s", pagePath))
	c.Ui.Output(scpHint(pagePath))

	if err := mErr.ErrorOrNil(); err != nil {
		c.Ui.Error(fmt.Sprintf("\n%d task(s) had problems:\n%s", len(mErr.Errors), err))
		return 1
	}
	return 0
}

func expandPaths(simpackDir, proxy, webDir string) (string, string, string, error) {
	var err error
	if simpackDir, err = homedir.Expand(simpackDir); err != nil {
		return "", "", "", err
	}
	if proxy != "" {
		if proxy, err = homedir.Expand(proxy); err != nil {
			return "", "", "", err
		}
	}
	if webDir, err = homedir.Expand(webDir); err != nil {
		return "", "", "", err
	}
	return simpackDir, proxy, webDir, nil
}

// formatSampleSummary renders the per-task terminal table.
func formatSampleSummary(samples []*crab.SampleRow) string {
	out := make([]string, 0, len(samples)+1)
	out = append(out, "Task|Finished|Running|Failed|Dashboard")
	for _, row := range samples {
		out = append(out, fmt.Sprintf("%s|%s|%s|%s|%s",
			row.ShortName(),
			row.Status.Fraction("finished"),
			row.Status.Fraction("running"),
			row.Status.Fraction("failed"),
			row.GrafanaURL))
	}
	return formatList(out)
}

// scpHint prints the command for pulling the page off the submit host.
func scpHint(pagePath string) string {
	abs, err := filepath.Abs(pagePath)
	if err != nil {
		abs = pagePath
	}
	host, err := os.Hostname()
	if err != nil {
		host = "lxplus.cern.ch"
	}
	return fmt.Sprintf("Use 'scp -r %s@%s:%s .' to download the results",
		os.Getenv("USER"), host, abs)
}
