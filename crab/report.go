package crab

import (
	_ "embed"
	"fmt"
	"html/template"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
)

//go:embed report.gohtml
var reportTemplate string

// barColors orders the progress bar segments; states without a color render
// in the overlay text only.
var barColors = []struct{ state, color string }{
	{"finished", "lightgreen"},
	{"transferring", "turquoise"},
	{"running", "deepskyblue"},
	{"failed", "crimson"},
}

// MetaEntry is one key/value row in the report header.
type MetaEntry struct {
	Key   string
	Value string
}

// BarSegment is one colored span of a sample's progress bar. Left and Width
// are CSS percentages.
type BarSegment struct {
	Color string
	Left  float64
	Width float64
}

// SampleRow is one task row on the status page.
type SampleRow struct {
	Name       string
	Status     *TaskStatus
	GrafanaURL string
}

// Report is the full data set behind one rendering of the status page.
type Report struct {
	Title       string
	GeneratedAt time.Time
	Meta        []MetaEntry
	Samples     []*SampleRow
}

// ShortName condenses a production/sample/version task name to the leading
// sample token; plain names pass through.
func (r *SampleRow) ShortName() string {
	if parts := strings.Split(r.Name, "/"); len(parts) == 3 {
		return strings.SplitN(parts[1], "_", 2)[0]
	}
	return r.Name
}

// ShortVersion condenses the version component of a task name.
func (r *SampleRow) ShortVersion() string {
	if parts := strings.Split(r.Name, "/"); len(parts) == 3 {
		version := strings.TrimPrefix(parts[2], "crab_")
		return strings.SplitN(version, "-", 2)[0]
	}
	return "-"
}

// StatusText is the overlay text on the progress bar.
func (r *SampleRow) StatusText() string {
	states := make([]string, 0, len(r.Status.Fractions))
	for state := range r.Status.Fractions {
		states = append(states, state)
	}
	sort.Strings(states)

	parts := make([]string, len(states))
	for i, state := range states {
		parts[i] = fmt.Sprintf("%s: %s", state, r.Status.Fractions[state])
	}
	return strings.Join(parts, ", ")
}

// Bar lays out the colored segments with cumulative offsets.
func (r *SampleRow) Bar() []BarSegment {
	var segments []BarSegment
	cumul := 0.0
	for _, bc := range barColors {
		frac, ok := r.Status.Fractions[bc.state]
		if !ok {
			continue
		}
		width, err := parsePercent(frac)
		if err != nil {
			continue
		}
		segments = append(segments, BarSegment{Color: bc.color, Left: cumul, Width: width})
		cumul += width
	}
	return segments
}

// irretrievable reports a status that collapsed to only finished: 0%, the
// signature of a submission too old for the backend to answer about.
func (r *SampleRow) irretrievable() bool {
	if len(r.Status.Fractions) != 1 {
		return false
	}
	frac, ok := r.Status.Fractions["finished"]
	if !ok {
		return false
	}
	pct, err := parsePercent(frac)
	return err == nil && pct == 0
}

func parsePercent(s string) (float64, error) {
	return strconv.ParseFloat(strings.TrimSuffix(s, "%"), 64)
}

// LastUpdate renders the generation time plus a relative form.
func (r *Report) LastUpdate() string {
	return fmt.Sprintf("%s (%s)",
		r.GeneratedAt.Format("02/01/2006 15:04:05"),
		humanize.Time(r.GeneratedAt))
}

// SortSamples orders rows case-insensitively by name.
func (r *Report) SortSamples() {
	sort.Slice(r.Samples, func(i, j int) bool {
		return strings.ToLower(r.Samples[i].Name) < strings.ToLower(r.Samples[j].Name)
	})
}

// WriteReport renders the report to index.html inside webDir, creating the
// directory if needed. Unless force is set, a sample with an irretrievable
// status aborts the write so a useful page is not overwritten with zeros.
func WriteReport(webDir string, report *Report, force bool) (string, error) {
	if !force {
		for _, row := range report.Samples {
			if row.irretrievable() {
				return "", fmt.Errorf("status for sample %s seems irretrievable "+
					"(submission too old?); refusing to overwrite the page, "+
					"use force to override", row.Name)
			}
		}
	}

	tmpl, err := template.New("report").Parse(reportTemplate)
	if err != nil {
		return "", err
	}

	if err := os.MkdirAll(webDir, 0755); err != nil {
		return "", err
	}

	report.SortSamples()

	path := filepath.Join(webDir, "index.html")
	f, err := os.Create(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	if err := tmpl.Execute(f, report); err != nil {
		return "", err
	}
	return path, nil
}
