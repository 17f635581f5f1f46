//go:build !windows

package service

import (
	"context"
	"testing"

	"github.com/cockroachdb/errors"
)

func TestRunContext_PassesContextAndError(t *testing.T) {
	want := errors.New("boom")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var got context.Context
	s := New(nil, func(c context.Context) error {
		got = c
		return want
	})
	if err := s.RunContext(ctx); !errors.Is(err, want) {
		t.Errorf("err = %v, want %v", err, want)
	}
	if got != ctx {
		t.Error("run function did not receive the caller's context")
	}
	if IsWindowsService() {
		t.Error("IsWindowsService() = true outside Windows")
	}
}
