package crab

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/cmstools/crabbox/ci"
	"github.com/shoenig/test/must"
	"github.com/stretchr/testify/require"
)

func testReport() *Report {
	return &Report{
		Title:       "Status of ntuple production",
		GeneratedAt: time.Now(),
		Meta: []MetaEntry{
			{Key: "simpack directory", Value: "/afs/cern.ch/work/u/user/simpack"},
		},
		Samples: []*SampleRow{
			{
				Name: "sl_MC_2017/WWG_TuneCP5_13TeV/crab_RunIISummer20UL17-v2",
				Status: &TaskStatus{Fractions: map[string]string{
					"finished": "73.3%",
					"running":  "13.3%",
					"failed":   "10.0%",
				}},
				GrafanaURL: "https://monit-grafana.cern.ch/d/task",
			},
			{
				Name:   "crab_ZZ_v2",
				Status: &TaskStatus{Fractions: map[string]string{"finished": "100.0%"}},
			},
		},
	}
}

func TestWriteReport(t *testing.T) {
	ci.Parallel(t)

	webDir := filepath.Join(t.TempDir(), "monitor_crab_jobs")
	path, err := WriteReport(webDir, testReport(), false)
	must.NoError(t, err)
	must.Eq(t, filepath.Join(webDir, "index.html"), path)

	page, err := os.ReadFile(path)
	must.NoError(t, err)
	html := string(page)

	// one row per task, short names condensed
	must.StrContains(t, html, "<td style=\"width:20%\">WWG</td>")
	must.StrContains(t, html, "<td style=\"width:20%\">RunIISummer20UL17</td>")
	must.StrContains(t, html, "<td style=\"width:20%\">crab_ZZ_v2</td>")

	// progress bars with cumulative offsets
	must.StrContains(t, html, "left: 0%; width: 73.3%; background-color: lightgreen")
	must.StrContains(t, html, "left: 73.3%; width: 13.3%; background-color: deepskyblue")
	must.StrContains(t, html, "left: 86.6")
	must.StrContains(t, html, "background-color: crimson")

	// overlay text and dashboard link
	must.StrContains(t, html, "failed: 10.0%, finished: 73.3%, running: 13.3%")
	must.StrContains(t, html, `href="https://monit-grafana.cern.ch/d/task"`)
	must.StrContains(t, html, "simpack directory")
}

func TestWriteReport_sortsSamples(t *testing.T) {
	ci.Parallel(t)

	report := testReport()
	report.Samples[0].Name = "zz_last"
	report.Samples[1].Name = "AA_first"

	path, err := WriteReport(t.TempDir(), report, false)
	must.NoError(t, err)

	page, err := os.ReadFile(path)
	must.NoError(t, err)

	// case-insensitive ordering
	first := strings.Index(string(page), "AA_first")
	last := strings.Index(string(page), "zz_last")
	require.NotEqual(t, -1, first)
	require.NotEqual(t, -1, last)
	require.Less(t, first, last)
}

func TestWriteReport_irretrievableGuard(t *testing.T) {
	ci.Parallel(t)

	report := testReport()
	report.Samples[1].Status = &TaskStatus{Fractions: map[string]string{"finished": "0%"}}

	_, err := WriteReport(t.TempDir(), report, false)
	require.Error(t, err)
	require.Contains(t, err.Error(), "irretrievable")

	// force overrides the guard
	_, err = WriteReport(t.TempDir(), report, true)
	require.NoError(t, err)
}

func TestSampleRow_shortNames(t *testing.T) {
	ci.Parallel(t)

	row := &SampleRow{Name: "prod/WWG_TuneCP5_13TeV-amcatnlo/crab_RunIISummer20UL17-v2"}
	must.Eq(t, "WWG", row.ShortName())
	must.Eq(t, "RunIISummer20UL17", row.ShortVersion())

	plain := &SampleRow{Name: "crab_task"}
	must.Eq(t, "crab_task", plain.ShortName())
	must.Eq(t, "-", plain.ShortVersion())
}

