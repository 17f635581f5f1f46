//go:build !(linux && cgo)

package plugins

import (
	"fmt"

	"github.com/Guliveer/hostmon/internal/host"
	"github.com/Guliveer/hostmon/internal/monitor"
)

// NewNVML fails on builds without cgo or outside Linux.
func NewNVML(*host.Host) (monitor.Measurer, error) {
	return nil, fmt.Errorf("NVML support requires linux with cgo")
}
