package vkres_test

import (
	"io"
	"testing"

	"golang.org/x/exp/slog"

	"github.com/celer/vkres"
	"github.com/celer/vkres/internal/fakedriver"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestContext(t *testing.T, opts ...fakedriver.Option) (*vkres.Context, *fakedriver.Driver) {
	t.Helper()
	drv := fakedriver.New(opts...)
	ctx, err := vkres.NewContext(drv, vkres.Queue{FamilyIndex: 0}, vkres.Options{Logger: quietLogger()})
	if err != nil {
		t.Fatalf("NewContext: %v", err)
	}
	return ctx, drv
}

// finish destroys ctx and fails the test on any misuse or leak the fake device
// observed.
func finish(t *testing.T, ctx *vkres.Context, drv *fakedriver.Driver) {
	t.Helper()
	ctx.Destroy()
	for _, v := range drv.Violations() {
		t.Errorf("violation: %s", v)
	}
	if n := drv.Live(); n != 0 {
		t.Errorf("%d objects leaked: %v", n, drv.LiveKinds())
	}
}

func indexOf(list []string, s string) int {
	for i, v := range list {
		if v == s {
			return i
		}
	}
	return -1
}
