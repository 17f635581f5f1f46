// Package plugins holds every monitor implementation hostmon ships and the
// static catalog the registry evaluates at startup.
package plugins

import (
	"github.com/Guliveer/hostmon/internal/monitor"
)

// Root prefixes every catalog namespace.
const Root = "hostmon.compute.monitors"

// Catalog returns the built-in candidates in discovery order. Within a
// category the virt driver variant comes first, so it wins whenever the
// category is enabled without naming a variant. The order is part of the
// configuration contract and must not be sorted.
func Catalog() []monitor.Descriptor {
	return []monitor.Descriptor{
		{
			Name:        "virt_driver",
			Namespace:   Root + ".cpu.virt_driver",
			Description: "Host CPU times and utilisation from the libvirt driver",
			Factory:     NewVirtDriverCPU,
		},
		{
			Name:        "host",
			Namespace:   Root + ".cpu.host",
			Description: "Host CPU times and utilisation from the operating system",
			Factory:     NewHostCPU,
		},
		{
			Name:        "virt_driver",
			Namespace:   Root + ".numa_mem_bw.virt_driver",
			Description: "Per NUMA cell memory from the libvirt driver",
			Factory:     NewVirtDriverNUMA,
		},
		{
			Name:        "host",
			Namespace:   Root + ".mem.host",
			Description: "Host memory usage from the operating system",
			Factory:     NewHostMemory,
		},
		{
			Name:        "sysinfo",
			Namespace:   Root + ".mem.sysinfo",
			Description: "Host memory usage from sysinfo(2)",
			Factory:     NewSysinfoMemory,
		},
		{
			Name:        "host",
			Namespace:   Root + ".disk.host",
			Description: "Usage of local filesystems",
			Factory:     NewHostDisk,
		},
		{
			Name:        "host",
			Namespace:   Root + ".net.host",
			Description: "Bytes received and sent since the previous measurement",
			Factory:     NewHostNetwork,
		},
		{
			Name:        "host",
			Namespace:   Root + ".uptime.host",
			Description: "Host uptime and boot time",
			Factory:     NewHostUptime,
		},
		{
			Name:        "host",
			Namespace:   Root + ".thermal.host",
			Description: "Hottest CPU and GPU sensor readings",
			Factory:     NewHostThermal,
		},
		{
			Name:        "lsblk",
			Namespace:   Root + ".ssd.lsblk",
			Description: "Solid state classification of block devices via lsblk",
			Factory:     NewSSD,
		},
		{
			Name:        "nvml",
			Namespace:   Root + ".gpu.nvml",
			Description: "NVIDIA GPU utilisation, memory and temperature via NVML",
			Factory:     NewNVML,
		},
	}
}
