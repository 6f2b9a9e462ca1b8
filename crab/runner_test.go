package crab

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/cmstools/crabbox/ci"
	"github.com/hashicorp/go-hclog"
	"github.com/shoenig/test/must"
	"github.com/stretchr/testify/require"
)

func testRunner(t *testing.T) (*Runner, *[]time.Duration) {
	t.Helper()

	var gaps []time.Duration
	r := NewRunner(hclog.NewNullLogger(), "")
	r.sleep = func(d time.Duration) { gaps = append(gaps, d) }
	return r, &gaps
}

func TestRunner_Status(t *testing.T) {
	ci.Parallel(t)

	task := writeTaskDir(t, t.TempDir(), "sample", "crab_task", statusFixture)
	r, gaps := testRunner(t)

	status, err := r.Status(context.Background(), task)
	must.NoError(t, err)
	must.Eq(t, "73.3%", status.Fraction("finished"))
	must.Len(t, 0, *gaps)
}

func TestRunner_Status_retriesThenSucceeds(t *testing.T) {
	ci.Parallel(t)

	task := writeTaskDir(t, t.TempDir(), "sample", "crab_task", "unused")

	// fail twice before producing a summary
	script := `#!/bin/bash
count=$(cat attempts 2>/dev/null || echo 0)
count=$((count+1))
echo $count > attempts
if [ $count -lt 3 ]; then
  echo "Could not contact the CRAB server"
  exit 1
fi
echo "Jobs status: finished 100.0% (10/10)"
`
	require.NoError(t, os.WriteFile(task.StatusScript(), []byte(script), 0755))

	r, gaps := testRunner(t)
	status, err := r.Status(context.Background(), task)
	must.NoError(t, err)
	must.Eq(t, "100.0%", status.Fraction("finished"))

	// doubling gap between attempts
	must.Eq(t, []time.Duration{statusInitialGap, 2 * statusInitialGap}, *gaps)
}

func TestRunner_Status_exhaustsAttempts(t *testing.T) {
	ci.Parallel(t)

	task := writeTaskDir(t, t.TempDir(), "sample", "crab_task", "unused")
	script := "#!/bin/bash\necho 'Could not contact the CRAB server'\nexit 1\n"
	require.NoError(t, os.WriteFile(task.StatusScript(), []byte(script), 0755))

	r, gaps := testRunner(t)
	_, err := r.Status(context.Background(), task)
	require.ErrorIs(t, err, ErrStatusUnavailable)
	must.Len(t, statusMaxAttempts-1, *gaps)
}

func TestRunner_Status_proxyOnChildEnv(t *testing.T) {
	ci.Parallel(t)

	task := writeTaskDir(t, t.TempDir(), "sample", "crab_task", "unused")
	script := "#!/bin/bash\necho \"Jobs status: finished 100.0%\"\necho \"$X509_USER_PROXY\" > proxy.out\n"
	require.NoError(t, os.WriteFile(task.StatusScript(), []byte(script), 0755))

	r, _ := testRunner(t)
	r.proxy = "/tmp/x509up_u1000"

	_, err := r.Status(context.Background(), task)
	must.NoError(t, err)

	out, err := os.ReadFile(filepath.Join(task.WorkDir, "proxy.out"))
	must.NoError(t, err)
	must.Eq(t, "/tmp/x509up_u1000\n", string(out))
}

func TestRunner_Resubmit(t *testing.T) {
	ci.Parallel(t)

	task := writeTaskDir(t, t.TempDir(), "sample", "crab_task", "unused")

	r, _ := testRunner(t)
	must.NoError(t, r.Resubmit(context.Background(), task))

	out, err := os.ReadFile(filepath.Join(task.WorkDir, "resubmit.log"))
	must.NoError(t, err)
	must.StrContains(t, string(out), "resubmitted resubmit "+task.Dir)
}
