package plugins

import (
	"context"

	"github.com/cockroachdb/errors"

	"github.com/Guliveer/hostmon/internal/host"
)

type runResult struct {
	stdout, stderr string
	err            error
}

// fakeRunner answers commands from a table keyed by command name.
type fakeRunner struct {
	results map[string]runResult
	calls   [][]string
}

func (r *fakeRunner) Execute(_ context.Context, name string, args ...string) (string, string, error) {
	r.calls = append(r.calls, append([]string{name}, args...))
	res, ok := r.results[name]
	if !ok {
		return "", "", errors.New("executable file not found")
	}
	return res.stdout, res.stderr, res.err
}

type fakeHypervisor struct {
	info     host.NodeInfo
	infoErr  error
	cpu      []map[string]uint64
	cpuCalls int
	cells    map[int32]map[string]uint64
}

func (h *fakeHypervisor) NodeInfo(context.Context) (host.NodeInfo, error) {
	return h.info, h.infoErr
}

func (h *fakeHypervisor) CPUStats(context.Context) (map[string]uint64, error) {
	if len(h.cpu) == 0 {
		return nil, errors.New("no stats")
	}
	i := h.cpuCalls
	if i >= len(h.cpu) {
		i = len(h.cpu) - 1
	}
	h.cpuCalls++
	return h.cpu[i], nil
}

func (h *fakeHypervisor) MemoryStats(_ context.Context, cell int32) (map[string]uint64, error) {
	stats, ok := h.cells[cell]
	if !ok {
		return nil, errors.New("no such cell")
	}
	return stats, nil
}

func (h *fakeHypervisor) Close() error { return nil }

func newTestHost(r host.Runner, hv host.Hypervisor) *host.Host {
	return host.New(host.Config{ComputeDriver: "fake.FakeDriver"}, nil,
		host.WithRunner(r), host.WithHypervisor(hv))
}
