package apptainer

import (
	"fmt"
	"os/exec"
	"regexp"
	"strings"

	version "github.com/hashicorp/go-version"
)

// minVersion is the oldest runtime known to handle the unpacked CVMFS image
// directories used for the EL7 userland.
var minVersion = version.Must(version.NewVersion("1.1.0"))

// runtimeBins are tried in order. Older EL hosts ship the singularity
// compatibility binary instead of apptainer.
var runtimeBins = []string{"apptainer", "singularity"}

var reRuntimeVersion = regexp.MustCompile(`(?:apptainer|singularity)(?:-ce)? version ([\d.]+)`)

// fingerprint locates a usable container runtime binary and verifies its
// version. Returns the binary name and parsed version.
func fingerprint() (string, *version.Version, error) {
	for _, bin := range runtimeBins {
		path, err := exec.LookPath(bin)
		if err != nil {
			continue
		}

		outBytes, err := exec.Command(path, "--version").Output()
		if err != nil {
			continue
		}
		out := strings.TrimSpace(string(outBytes))

		matches := reRuntimeVersion.FindStringSubmatch(out)
		if len(matches) != 2 {
			return "", nil, fmt.Errorf("unable to parse %s version string: %q", bin, out)
		}

		ver, err := version.NewVersion(matches[1])
		if err != nil {
			return "", nil, fmt.Errorf("illegal %s version %q: %v", bin, matches[1], err)
		}

		if ver.LessThan(minVersion) {
			return "", nil, fmt.Errorf("%s v%s is below the minimum supported v%s",
				bin, ver, minVersion)
		}

		return bin, ver, nil
	}

	return "", nil, fmt.Errorf("no container runtime found, tried: %s",
		strings.Join(runtimeBins, ", "))
}
