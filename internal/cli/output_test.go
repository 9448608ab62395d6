package cli

import (
	"bytes"
	"strings"
	"testing"

	"github.com/dl-alexandre/medialib/internal/tracker/status"
	"github.com/dl-alexandre/medialib/internal/types"
	"github.com/dl-alexandre/medialib/internal/utils"
)

func newTestWriter(format types.OutputFormat) (*OutputWriter, *bytes.Buffer, *bytes.Buffer) {
	var stdout, stderr bytes.Buffer
	return &OutputWriter{
		format:   format,
		traceID:  "trace-1",
		stdout:   &stdout,
		stderr:   &stderr,
		logger:   GetLogger(),
		warnings: []types.CLIWarning{},
	}, &stdout, &stderr
}

func TestTableOutput(t *testing.T) {
	w, stdout, stderr := newTestWriter(types.OutputFormatTable)
	w.AddWarning(utils.WarnSweepIncomplete, "2 entries could not be read", utils.SeverityWarning)

	dirs := types.DirectoryList{
		{Path: "", Status: status.Added},
		{Path: "jazz/", Status: status.Modified},
	}
	if err := w.WriteSuccess("pending", dirs); err != nil {
		t.Fatal(err)
	}
	out := stdout.String()
	for _, want := range []string{"PATH", "STATUS", "/", "jazz/", "modified"} {
		if !strings.Contains(out, want) {
			t.Errorf("table output missing %q:\n%s", want, out)
		}
	}
	if !strings.Contains(stderr.String(), "Warning [SWEEP_INCOMPLETE]") {
		t.Errorf("warnings should go to stderr, got %q", stderr.String())
	}
}

func TestTableOutputEmpty(t *testing.T) {
	w, stdout, _ := newTestWriter(types.OutputFormatTable)
	if err := w.WriteSuccess("pending", types.DirectoryList{}); err != nil {
		t.Fatal(err)
	}
	if got := strings.TrimSpace(stdout.String()); got != "No directories pending" {
		t.Errorf("empty output = %q", got)
	}
}

func TestJSONEnvelope(t *testing.T) {
	w, stdout, _ := newTestWriter(types.OutputFormatJSON)
	if err := w.WriteSuccess("status", map[string]interface{}{"inSync": true}); err != nil {
		t.Fatal(err)
	}
	out := stdout.String()
	for _, want := range []string{`"schemaVersion": "1.0"`, `"traceId": "trace-1"`, `"command": "status"`, `"errors": []`} {
		if !strings.Contains(out, want) {
			t.Errorf("JSON output missing %s:\n%s", want, out)
		}
	}
}
