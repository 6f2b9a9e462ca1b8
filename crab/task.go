package crab

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
)

const (
	// logsDirName is the directory crab creates per submission; each child
	// directory is one task.
	logsDirName = "crab_logs"

	// statusScript must sit in the task workdir. The stock crab client does
	// not work on the host OS, so submissions bundle a wrapper that runs
	// status queries inside the proper container.
	statusScript = "crab_status.sh"

	// commandScript is the bundled wrapper for other crab subcommands,
	// resubmit in particular.
	commandScript = "crab_command.sh"
)

// Task is one CRAB task directory discovered under a simpack tree.
type Task struct {
	// Name is the task directory basename, typically
	// crab_<campaign>_<sample>.
	Name string

	// Dir is the absolute task directory (inside crab_logs).
	Dir string

	// WorkDir is the submission directory holding crab_logs and the
	// wrapper scripts. Status commands must run from here.
	WorkDir string
}

// StatusScript returns the absolute path of the task's status wrapper.
func (t *Task) StatusScript() string {
	return filepath.Join(t.WorkDir, statusScript)
}

// HasResults reports whether the task's processed-lumis record exists, the
// marker crab writes once results have been retrieved.
func (t *Task) HasResults() bool {
	_, err := os.Stat(filepath.Join(t.Dir, "results", "processedLumis.json"))
	return err == nil
}

// FindTasks walks the simpack directory and returns every task directory
// found inside a crab_logs directory, sorted by path. A task whose workdir
// lacks the status wrapper script is an error.
func FindTasks(simpackDir string) ([]*Task, error) {
	var tasks []*Task

	err := filepath.WalkDir(simpackDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() || d.Name() != logsDirName {
			return nil
		}

		workDir := filepath.Dir(path)
		entries, err := os.ReadDir(path)
		if err != nil {
			return err
		}

		for _, entry := range entries {
			if !entry.IsDir() {
				continue
			}
			task := &Task{
				Name:    entry.Name(),
				Dir:     filepath.Join(path, entry.Name()),
				WorkDir: workDir,
			}
			if _, err := os.Stat(task.StatusScript()); err != nil {
				return fmt.Errorf("no %s script for task %s in %s",
					statusScript, task.Name, workDir)
			}
			tasks = append(tasks, task)
		}
		return filepath.SkipDir
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(tasks, func(i, j int) bool { return tasks[i].Dir < tasks[j].Dir })
	return tasks, nil
}
