//go:build linux

package plugins

import (
	"context"
	"testing"

	"golang.org/x/sys/unix"
)

func TestSysinfoMemory_ScalesByUnit(t *testing.T) {
	m := &SysinfoMemory{sysinfo: func(info *unix.Sysinfo_t) error {
		info.Unit = 4096
		info.Totalram = 100
		info.Freeram = 30
		info.Bufferram = 10
		return nil
	}}
	got, err := m.Measure(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if got["mem.total"] != uint64(409600) {
		t.Errorf("mem.total = %v, want 409600", got["mem.total"])
	}
	if got["mem.free"] != uint64(163840) {
		t.Errorf("mem.free = %v, want 163840", got["mem.free"])
	}
	if got["mem.used"] != uint64(245760) {
		t.Errorf("mem.used = %v, want 245760", got["mem.used"])
	}
}
