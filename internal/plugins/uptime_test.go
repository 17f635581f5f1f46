package plugins

import (
	"context"
	"testing"
	"time"

	"github.com/cockroachdb/errors"

	"github.com/Guliveer/hostmon/internal/monitor"
)

func TestHostUptime_Measure(t *testing.T) {
	boot := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	m := &HostUptime{
		bootTime: func(context.Context) (uint64, error) { return uint64(boot.Unix()), nil },
		now:      func() time.Time { return boot.Add(90 * time.Minute) },
	}
	got, err := m.Measure(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if got["host.uptime.seconds"] != uint64(5400) {
		t.Errorf("host.uptime.seconds = %v, want 5400", got["host.uptime.seconds"])
	}
	if got["host.boot.time"] != "2026-03-01T12:00:00Z" {
		t.Errorf("host.boot.time = %v", got["host.boot.time"])
	}
}

func TestHostUptime_ZeroBootTime(t *testing.T) {
	m := &HostUptime{
		bootTime: func(context.Context) (uint64, error) { return 0, nil },
		now:      time.Now,
	}
	if _, err := m.Measure(context.Background()); !errors.Is(err, monitor.ErrInvalidShape) {
		t.Fatalf("err = %v, want ErrInvalidShape", err)
	}
}
