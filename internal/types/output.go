package types

// OutputFormat selects how command results are printed.
type OutputFormat string

const (
	OutputFormatJSON  OutputFormat = "json"
	OutputFormatTable OutputFormat = "table"
)

// GlobalFlags are the persistent flags shared by every command.
type GlobalFlags struct {
	OutputFormat   OutputFormat
	JSON           bool
	Quiet          bool
	Verbose        bool
	Debug          bool
	Config         string
	LogFile        string
	LogFormat      string
	// DatabaseDriver and DatabaseDSN override the configured index location.
	DatabaseDriver string
	DatabaseDSN    string
}

// CLIOutput is the envelope of every JSON result.
type CLIOutput struct {
	SchemaVersion string       `json:"schemaVersion"`
	TraceID       string       `json:"traceId,omitempty"`
	Command       string       `json:"command"`
	Data          interface{}  `json:"data"`
	Warnings      []CLIWarning `json:"warnings"`
	Errors        []CLIError   `json:"errors"`
}

type CLIError struct {
	Code      string                 `json:"code"`
	Message   string                 `json:"message"`
	Retryable bool                   `json:"retryable"`
	Context   map[string]interface{} `json:"context,omitempty"`
}

type CLIWarning struct {
	Code     string `json:"code"`
	Message  string `json:"message"`
	Severity string `json:"severity"`
}

type TableRenderer interface {
	Headers() []string
	Rows() [][]string
	EmptyMessage() string
}

type TableRenderable interface {
	AsTableRenderer() TableRenderer
}
