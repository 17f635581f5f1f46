//go:build !linux

package plugins

import (
	"fmt"
	"runtime"

	"github.com/Guliveer/hostmon/internal/host"
	"github.com/Guliveer/hostmon/internal/monitor"
)

// NewSysinfoMemory fails outside Linux; enable mem.host instead.
func NewSysinfoMemory(*host.Host) (monitor.Measurer, error) {
	return nil, fmt.Errorf("sysinfo(2) is not available on %s", runtime.GOOS)
}
