// Package mounts enumerates the host's mounted filesystems.
package mounts

import (
	"fmt"
	"io"
	"sort"

	"github.com/moby/sys/mountinfo"
)

// DefaultExcludedFSTypes lists kernel pseudo filesystems that are never
// backed by storage and therefore not worth probing. It is the default for
// the exclude-fstypes setting.
var DefaultExcludedFSTypes = []string{
	"autofs",
	"binfmt_misc",
	"bpf",
	"cgroup",
	"cgroup2",
	"configfs",
	"debugfs",
	"devpts",
	"devtmpfs",
	"fusectl",
	"hugetlbfs",
	"mqueue",
	"nsfs",
	"proc",
	"pstore",
	"rpc_pipefs",
	"securityfs",
	"selinuxfs",
	"sysfs",
	"tracefs",
}

// Lister enumerates mountpoint paths from the kernel's mount table,
// skipping excluded filesystem types.
type Lister struct {
	excluded map[string]bool
}

// NewLister creates a Lister that skips mounts whose filesystem type is in
// excludeFSTypes.
func NewLister(excludeFSTypes []string) *Lister {
	excluded := make(map[string]bool, len(excludeFSTypes))
	for _, t := range excludeFSTypes {
		excluded[t] = true
	}
	return &Lister{excluded: excluded}
}

// List returns the paths of all currently mounted, non-excluded
// filesystems, sorted for stable iteration and logging.
func (l *Lister) List() ([]string, error) {
	infos, err := mountinfo.GetMounts(l.filter)
	if err != nil {
		return nil, fmt.Errorf("reading mount table: %w", err)
	}
	return l.paths(infos), nil
}

// ListFrom is List reading from an explicit mountinfo document (such as
// /proc/1/mountinfo for another mount namespace).
func (l *Lister) ListFrom(r io.Reader) ([]string, error) {
	infos, err := mountinfo.GetMountsFromReader(r, l.filter)
	if err != nil {
		return nil, fmt.Errorf("reading mount table: %w", err)
	}
	return l.paths(infos), nil
}

func (l *Lister) filter(i *mountinfo.Info) (skip, stop bool) {
	return l.excluded[i.FSType], false
}

func (l *Lister) paths(infos []*mountinfo.Info) []string {
	paths := make([]string, 0, len(infos))
	for _, info := range infos {
		paths = append(paths, info.Mountpoint)
	}
	sort.Strings(paths)
	return paths
}
