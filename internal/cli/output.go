package cli

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	clierrors "github.com/dl-alexandre/medialib/internal/errors"
	"github.com/dl-alexandre/medialib/internal/logging"
	"github.com/dl-alexandre/medialib/internal/types"
	"github.com/dl-alexandre/medialib/internal/utils"
)

// OutputWriter handles CLI output formatting
type OutputWriter struct {
	format   types.OutputFormat
	quiet    bool
	verbose  bool
	traceID  string
	stdout   io.Writer
	stderr   io.Writer
	logger   logging.Logger
	warnings []types.CLIWarning
}

// NewOutputWriter creates a new output writer bound to the command's streams
func NewOutputWriter(cmd *cobra.Command) *OutputWriter {
	flags := GetGlobalFlags()
	return &OutputWriter{
		format:   flags.OutputFormat,
		quiet:    flags.Quiet,
		verbose:  flags.Verbose,
		traceID:  traceID,
		stdout:   cmd.OutOrStdout(),
		stderr:   cmd.ErrOrStderr(),
		logger:   GetLogger(),
		warnings: []types.CLIWarning{},
	}
}

// AddWarning adds a warning to the output
func (w *OutputWriter) AddWarning(code, message, severity string) {
	w.warnings = append(w.warnings, types.CLIWarning{
		Code:     code,
		Message:  message,
		Severity: severity,
	})
}

// WriteSuccess writes a successful result
func (w *OutputWriter) WriteSuccess(command string, data interface{}) error {
	if w.format == types.OutputFormatJSON {
		return w.writeJSON(types.CLIOutput{
			SchemaVersion: utils.SchemaVersion,
			TraceID:       w.traceID,
			Command:       command,
			Data:          data,
			Warnings:      w.warnings,
			Errors:        []types.CLIError{},
		})
	}
	return w.writeTable(data)
}

// WriteError writes an error result. Errors are always JSON.
func (w *OutputWriter) WriteError(command string, cliErr types.CLIError) error {
	return w.writeJSON(types.CLIOutput{
		SchemaVersion: utils.SchemaVersion,
		TraceID:       w.traceID,
		Command:       command,
		Data:          nil,
		Warnings:      w.warnings,
		Errors:        []types.CLIError{cliErr},
	})
}

// Fail classifies err, writes it and returns the AppError whose code becomes
// the process exit status.
func (w *OutputWriter) Fail(command string, err error) error {
	appErr := clierrors.ClassifyTrackerError(command, err, w.logger)
	if werr := w.WriteError(command, appErr.CLIError); werr != nil {
		return werr
	}
	return appErr
}

// Invalid is Fail for argument errors detected before any work starts.
func (w *OutputWriter) Invalid(command, format string, args ...interface{}) error {
	return w.Fail(command, utils.NewAppError(
		utils.NewCLIError(utils.ErrCodeInvalidArgument, fmt.Sprintf(format, args...)).Build()))
}

func (w *OutputWriter) writeJSON(output types.CLIOutput) error {
	encoder := json.NewEncoder(w.stdout)
	encoder.SetIndent("", "  ")
	return encoder.Encode(output)
}

func (w *OutputWriter) writeTable(data interface{}) error {
	if len(w.warnings) > 0 && !w.quiet {
		for _, warning := range w.warnings {
			fmt.Fprintf(w.stderr, "Warning [%s]: %s\n", warning.Code, warning.Message)
		}
		fmt.Fprintln(w.stderr)
	}

	if renderable, ok := data.(types.TableRenderable); ok {
		return w.renderTable(renderable.AsTableRenderer())
	}
	if renderer, ok := data.(types.TableRenderer); ok {
		return w.renderTable(renderer)
	}
	switch v := data.(type) {
	case map[string]interface{}:
		return w.writeKeyValueTable(v)
	default:
		// Fallback to JSON for unknown types
		enc := json.NewEncoder(w.stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(data)
	}
}

func (w *OutputWriter) newTable(headers []string) *tablewriter.Table {
	table := tablewriter.NewWriter(w.stdout)
	table.SetHeader(headers)
	table.SetBorder(false)
	table.SetAutoWrapText(false)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetCenterSeparator("")
	table.SetColumnSeparator("")
	table.SetRowSeparator("")
	table.SetHeaderLine(false)
	table.SetTablePadding("\t")
	table.SetNoWhiteSpace(true)
	return table
}

func (w *OutputWriter) renderTable(renderer types.TableRenderer) error {
	rows := renderer.Rows()
	if len(rows) == 0 {
		if !w.quiet && renderer.EmptyMessage() != "" {
			fmt.Fprintln(w.stdout, renderer.EmptyMessage())
		}
		return nil
	}

	table := w.newTable(renderer.Headers())
	table.AppendBulk(rows)
	table.Render()
	return nil
}

func (w *OutputWriter) writeKeyValueTable(data map[string]interface{}) error {
	table := w.newTable([]string{"Key", "Value"})
	for _, key := range sortedKeys(data) {
		table.Append([]string{key, fmt.Sprintf("%v", data[key])})
	}
	table.Render()
	return nil
}

// Log writes to stderr if not quiet
func (w *OutputWriter) Log(format string, args ...interface{}) {
	if !w.quiet {
		fmt.Fprintf(w.stderr, format+"\n", args...)
	}
}

// Verbose writes to stderr if verbose is enabled
func (w *OutputWriter) Verbose(format string, args ...interface{}) {
	if w.verbose {
		fmt.Fprintf(w.stderr, "[VERBOSE] "+format+"\n", args...)
	}
}
