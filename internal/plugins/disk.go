package plugins

import (
	"context"
	"strings"

	"github.com/shirou/gopsutil/v3/disk"
	"go.uber.org/zap"

	"github.com/Guliveer/hostmon/internal/host"
	"github.com/Guliveer/hostmon/internal/monitor"
)

// skippedFSTypes are virtual, in-memory or remote filesystems. Instance
// storage on a compute host is always local.
var skippedFSTypes = map[string]bool{
	"autofs": true, "bpf": true, "cgroup": true, "cgroup2": true,
	"configfs": true, "debugfs": true, "devfs": true, "devtmpfs": true,
	"efivarfs": true, "fusectl": true, "hugetlbfs": true, "mqueue": true,
	"nsfs": true, "overlay": true, "proc": true, "pstore": true,
	"ramfs": true, "securityfs": true, "squashfs": true, "sysfs": true,
	"tmpfs": true, "tracefs": true, "fuse.snapfuse": true,

	"nfs": true, "nfs4": true, "cifs": true, "smbfs": true, "9p": true,
	"ceph": true, "fuse.ceph": true, "glusterfs": true, "lustre": true,
	"gpfs": true, "fuse.sshfs": true, "fuse.s3fs": true,
}

// HostDisk reports usage of each local mount point.
type HostDisk struct {
	partitions func(ctx context.Context, all bool) ([]disk.PartitionStat, error)
	usage      func(ctx context.Context, path string) (*disk.UsageStat, error)
	logger     *zap.Logger
}

// NewHostDisk creates the disk.host monitor.
func NewHostDisk(h *host.Host) (monitor.Measurer, error) {
	return &HostDisk{
		partitions: disk.PartitionsWithContext,
		usage:      disk.UsageWithContext,
		logger:     h.Logger(),
	}, nil
}

// Measure emits disk.<mount>.total|used|free in bytes. Partitions that
// cannot be read or report zero size are skipped.
func (m *HostDisk) Measure(ctx context.Context) (map[string]interface{}, error) {
	parts, err := m.partitions(ctx, false)
	if err != nil {
		return nil, monitor.Extractionf("partitions: %v", err)
	}

	out := make(map[string]interface{})
	for _, p := range parts {
		if skippedFSTypes[p.Fstype] {
			continue
		}
		u, err := m.usage(ctx, p.Mountpoint)
		if err != nil {
			m.logger.Debug("Skipping unreadable mount",
				zap.String("mount", p.Mountpoint),
				zap.Error(err))
			continue
		}
		if u.Total == 0 {
			continue
		}
		key := "disk." + mountKey(p.Mountpoint)
		out[key+".total"] = u.Total
		out[key+".used"] = u.Used
		out[key+".free"] = u.Free
	}
	return out, nil
}

// mountKey makes a mount point safe to embed in a dotted metric name:
// "/" becomes "root" and "/var/lib/libvirt" becomes "var_lib_libvirt".
func mountKey(mount string) string {
	trimmed := strings.Trim(mount, `/\`)
	if trimmed == "" {
		return "root"
	}
	return strings.NewReplacer("/", "_", `\`, "_", ".", "_", ":", "").Replace(trimmed)
}
