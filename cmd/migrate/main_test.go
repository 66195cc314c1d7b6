package main

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
)

type fakeMigrator struct {
	err   error
	calls int
}

func (f *fakeMigrator) Migrate(ctx context.Context) error {
	f.calls++
	return f.err
}

func TestApply(t *testing.T) {
	m := &fakeMigrator{}
	out := &bytes.Buffer{}
	if err := apply(context.Background(), m, out); err != nil {
		t.Fatalf("apply failed: %v", err)
	}
	if m.calls != 1 || !strings.Contains(out.String(), "schema applied") {
		t.Errorf("unexpected result: calls=%d out=%q", m.calls, out.String())
	}

	m = &fakeMigrator{err: errors.New("permission denied")}
	if err := apply(context.Background(), m, out); err == nil {
		t.Error("expected error")
	}
}
