package apptainer

import "strings"

// BindMount maps a host path to a path inside the container. An empty
// ContainerPath mounts the host path at the same location.
type BindMount struct {
	HostPath      string
	ContainerPath string
}

// Spec renders the mount in APPTAINER_BINDPATH syntax.
func (b BindMount) Spec() string {
	if b.ContainerPath == "" || b.ContainerPath == b.HostPath {
		return b.HostPath
	}
	return b.HostPath + ":" + b.ContainerPath
}

// BindMounts is an ordered list of bind mounts.
type BindMounts []BindMount

// Spec renders the comma-joined APPTAINER_BINDPATH value, preserving order.
func (bs BindMounts) Spec() string {
	specs := make([]string, len(bs))
	for i, b := range bs {
		specs[i] = b.Spec()
	}
	return strings.Join(specs, ",")
}

// DefaultBinds returns the mounts a CMS session on lxplus needs: user and
// experiment storage, CVMFS, and the grid trust anchors. The grid-security
// directory is taken from CVMFS rather than the (EL9) host.
func DefaultBinds() BindMounts {
	return BindMounts{
		{HostPath: "/afs"},
		{HostPath: "/cvmfs"},
		{HostPath: "/cvmfs/grid.cern.ch/etc/grid-security", ContainerPath: "/etc/grid-security"},
		{HostPath: "/eos"},
		{HostPath: "/etc/pki/ca-trust"},
		{HostPath: "/run/user"},
		{HostPath: "/var/run/user"},
	}
}
