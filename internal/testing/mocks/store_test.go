package mocks_test

import (
	"context"
	"errors"
	"testing"

	testhelpers "github.com/dl-alexandre/medialib/internal/testing"
	"github.com/dl-alexandre/medialib/internal/testing/mocks"
	"github.com/dl-alexandre/medialib/internal/tracker/status"
)

func TestStoreDefaults(t *testing.T) {
	m := &mocks.Store{}
	ctx := testhelpers.TestContext()

	outcome, err := m.UpdateDirectoryDigest(ctx, "c", "a/", status.Digest{1})
	testhelpers.AssertNoError(t, err)
	testhelpers.AssertEqual(t, outcome, status.OutcomeInserted, "default outcome")

	_, err = m.LoadMediaSourceByPath(ctx, "c", "a/x.mp3")
	if !errors.Is(err, status.ErrNotFound) {
		t.Fatalf("LoadMediaSourceByPath error = %v, want ErrNotFound", err)
	}
	testhelpers.AssertEqual(t, m.Calls["UpdateDirectoryDigest"], 1, "call count")
}

func TestStoreFuncOverride(t *testing.T) {
	m := &mocks.Store{
		ConfirmDirectoryFunc: func(_ context.Context, _, path string, _ status.Digest) (bool, error) {
			return path == "ok/", nil
		},
	}
	ctx := testhelpers.TestContext()

	tests := []struct {
		path string
		want bool
	}{
		{"ok/", true},
		{"stale/", false},
	}
	for _, tt := range tests {
		got, err := m.ConfirmDirectory(ctx, "c", tt.path, status.Digest{})
		testhelpers.AssertNoError(t, err)
		if got != tt.want {
			t.Errorf("ConfirmDirectory(%q) = %v, want %v", tt.path, got, tt.want)
		}
	}
	testhelpers.AssertEqual(t, m.Calls["ConfirmDirectory"], 2, "call count")
}
