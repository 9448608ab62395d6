package utils

import "time"

// Schema version of the JSON output envelope
const SchemaVersion = "1.0"

// Defaults shared by the config layer and the commands
const (
	DefaultDatabaseFile       = "medialib.db"
	DefaultProgressIntervalMs = 250
	DefaultPageSize           = 100
	DefaultWatchIntervalSec   = 300
	DefaultMetricsAddr        = ":9464"
)

// Warning codes
const (
	WarnSweepIncomplete  = "SWEEP_INCOMPLETE"
	WarnSweepRejected    = "SWEEP_REJECTED"
	WarnImportRejected   = "IMPORT_REJECTED"
	WarnDanglingSources  = "DANGLING_SOURCES"
	WarnConfirmRejected  = "CONFIRM_REJECTED"
	WarnUntrackedAborted = "UNTRACKED_INCOMPLETE"
)

// Warning severities
const (
	SeverityInfo    = "info"
	SeverityWarning = "warning"
)

// ProgressInterval converts a millisecond setting into a duration.
func ProgressInterval(ms int) time.Duration {
	if ms <= 0 {
		return DefaultProgressIntervalMs * time.Millisecond
	}
	return time.Duration(ms) * time.Millisecond
}
