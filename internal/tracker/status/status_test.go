package status

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"testing"
)

func TestNormalizeDirPath(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{"", "", false},
		{"/", "", false},
		{".", "", false},
		{"jazz", "jazz/", false},
		{"/jazz/", "jazz/", false},
		{`jazz\miles`, "jazz/miles/", false},
		{"jazz//miles/./", "jazz/miles/", false},
		{"../etc", "", true},
		{"jazz/../../etc", "", true},
		{"a..b", "a..b/", false},
	}
	for _, tt := range tests {
		got, err := NormalizeDirPath(tt.in)
		if tt.wantErr {
			if !errors.Is(err, ErrInvalidPath) {
				t.Errorf("NormalizeDirPath(%q) error = %v, want ErrInvalidPath", tt.in, err)
			}
			continue
		}
		if err != nil || got != tt.want {
			t.Errorf("NormalizeDirPath(%q) = %q, %v; want %q", tt.in, got, err, tt.want)
		}
	}
}

func TestPathHelpers(t *testing.T) {
	if got := JoinDir("jazz/", "miles"); got != "jazz/miles/" {
		t.Errorf("JoinDir = %q", got)
	}
	if got := DirOfFile("jazz/miles/so-what.flac"); got != "jazz/miles/" {
		t.Errorf("DirOfFile = %q", got)
	}
	if got := DirOfFile("root.mp3"); got != "" {
		t.Errorf("DirOfFile of a root file = %q", got)
	}
	if !HasPrefix("jazz/miles/", "jazz/") || HasPrefix("jazzfunk/", "jazz/") {
		t.Error("HasPrefix must respect directory boundaries")
	}
}

func TestParseDigest(t *testing.T) {
	var d Digest
	d[0], d[31] = 0xab, 0x01
	parsed, err := ParseDigest(strings.ToUpper(d.String()))
	if err != nil || parsed != d {
		t.Fatalf("ParseDigest(%s) = %v, %v", d, parsed, err)
	}
	if _, err := ParseDigest("abcd"); err == nil {
		t.Error("short digest should fail")
	}
	if !(Digest{}).IsZero() || d.IsZero() {
		t.Error("IsZero mismatch")
	}
}

func TestStatusRequiresConfirmation(t *testing.T) {
	for _, st := range []Status{Current, Outdated, Added, Modified, Orphaned} {
		want := st == Added || st == Modified
		if st.RequiresConfirmation() != want {
			t.Errorf("%s.RequiresConfirmation() = %v", st, !want)
		}
		parsed, err := ParseStatus(st.String())
		if err != nil || parsed != st {
			t.Errorf("ParseStatus(%q) = %v, %v", st.String(), parsed, err)
		}
	}
}

func TestKindOf(t *testing.T) {
	_, statErr := os.Stat("/no/such/dir")
	tests := []struct {
		err  error
		want ErrorKind
	}{
		{nil, KindOther},
		{fmt.Errorf("walk: %w", context.Canceled), KindAborted},
		{ErrAborted, KindAborted},
		{fmt.Errorf("update: %w", ErrStorageConflict), KindStorageConflict},
		{statErr, KindIo},
		{errors.New("disk on fire"), KindOther},
	}
	for _, tt := range tests {
		if got := KindOf(tt.err); got != tt.want {
			t.Errorf("KindOf(%v) = %s, want %s", tt.err, got, tt.want)
		}
	}
}

func TestDirectoriesStatus(t *testing.T) {
	var s DirectoriesStatus
	s.Add(Current, 2)
	s.Add(Orphaned, 1)
	if s.Total() != 3 || !s.IsPending() {
		t.Errorf("unexpected counts: %+v", s)
	}
}
