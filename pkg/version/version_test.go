package version

import (
	"runtime/debug"
	"strings"
	"testing"
)

func TestFillFromBuildInfo(t *testing.T) {
	info := &Info{Version: "dev", GitCommit: "unknown", BuildTime: "unknown"}
	fillFromBuildInfo(info, &debug.BuildInfo{
		Main: debug.Module{Version: "v1.4.0"},
		Settings: []debug.BuildSetting{
			{Key: "vcs.revision", Value: "0123456789abcdef0123"},
			{Key: "vcs.time", Value: "2026-03-01T10:00:00Z"},
		},
	})
	if info.Version != "v1.4.0" {
		t.Errorf("Version = %q", info.Version)
	}
	if info.GitCommit != "0123456789ab" {
		t.Errorf("GitCommit = %q", info.GitCommit)
	}
	if info.BuildTime != "2026-03-01T10:00:00Z" {
		t.Errorf("BuildTime = %q", info.BuildTime)
	}
}

func TestLdflagsWinOverBuildInfo(t *testing.T) {
	info := &Info{Version: "v2.0.0", GitCommit: "abc", BuildTime: "today"}
	fillFromBuildInfo(info, &debug.BuildInfo{
		Main:     debug.Module{Version: "(devel)"},
		Settings: []debug.BuildSetting{{Key: "vcs.revision", Value: "fff"}},
	})
	if info.Version != "v2.0.0" || info.GitCommit != "abc" {
		t.Errorf("ldflags values were overwritten: %+v", info)
	}
}

func TestString(t *testing.T) {
	s := (&Info{Version: "v1", GitCommit: "c", BuildTime: "t"}).String()
	if !strings.HasPrefix(s, "medialib v1") {
		t.Errorf("String() = %q", s)
	}
}
