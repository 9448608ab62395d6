package status

import (
	"encoding/hex"
	"fmt"
	"strings"
	"time"
)

// DigestSize is the length in bytes of a directory or file digest.
const DigestSize = 32

// Digest is a fixed-size fingerprint of filesystem metadata.
type Digest [DigestSize]byte

// String returns the lowercase hex encoding of the digest.
func (d Digest) String() string {
	return hex.EncodeToString(d[:])
}

// IsZero reports whether the digest has never been computed.
func (d Digest) IsZero() bool {
	return d == Digest{}
}

// MarshalText implements encoding.TextMarshaler so digests render as hex in JSON output.
func (d Digest) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Digest) UnmarshalText(text []byte) error {
	parsed, err := ParseDigest(string(text))
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// ParseDigest decodes a hex encoded digest.
func ParseDigest(s string) (Digest, error) {
	var d Digest
	raw, err := hex.DecodeString(strings.TrimSpace(s))
	if err != nil {
		return d, fmt.Errorf("decode digest: %w", err)
	}
	if len(raw) != DigestSize {
		return d, fmt.Errorf("decode digest: expected %d bytes, got %d", DigestSize, len(raw))
	}
	copy(d[:], raw)
	return d, nil
}

// DigestFromBytes copies a stored digest column into a Digest.
func DigestFromBytes(raw []byte) (Digest, error) {
	var d Digest
	if len(raw) != DigestSize {
		return d, fmt.Errorf("stored digest has %d bytes, expected %d", len(raw), DigestSize)
	}
	copy(d[:], raw)
	return d, nil
}

// Status is the tracking status of a directory.
type Status int

const (
	Current Status = iota
	Outdated
	Added
	Modified
	Orphaned
)

var statusNames = map[Status]string{
	Current:  "current",
	Outdated: "outdated",
	Added:    "added",
	Modified: "modified",
	Orphaned: "orphaned",
}

func (s Status) String() string {
	if name, ok := statusNames[s]; ok {
		return name
	}
	return fmt.Sprintf("status(%d)", int(s))
}

// Valid reports whether s is one of the five known statuses.
func (s Status) Valid() bool {
	_, ok := statusNames[s]
	return ok
}

// RequiresConfirmation reports whether an importer still has to confirm the directory.
func (s Status) RequiresConfirmation() bool {
	return s == Added || s == Modified
}

// MarshalText implements encoding.TextMarshaler.
func (s Status) MarshalText() ([]byte, error) {
	if !s.Valid() {
		return nil, fmt.Errorf("invalid tracking status %d", int(s))
	}
	return []byte(s.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *Status) UnmarshalText(text []byte) error {
	parsed, err := ParseStatus(string(text))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// ParseStatus parses the lowercase status name.
func ParseStatus(value string) (Status, error) {
	value = strings.ToLower(strings.TrimSpace(value))
	for s, name := range statusNames {
		if name == value {
			return s, nil
		}
	}
	return 0, fmt.Errorf("unknown tracking status %q", value)
}

// TrackedDirectory is the persisted tracking record of one directory in a collection.
type TrackedDirectory struct {
	Path      string    `json:"path"`
	Status    Status    `json:"status"`
	Digest    Digest    `json:"digest"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// UpdateOutcome is the result of a digest compare-and-set.
type UpdateOutcome int

const (
	// OutcomeCurrent: digest unchanged and status moved from Outdated (or Orphaned) to Current.
	OutcomeCurrent UpdateOutcome = iota
	// OutcomeInserted: first visit, a new record with status Added.
	OutcomeInserted
	// OutcomeUpdated: digest changed, status Modified.
	OutcomeUpdated
	// OutcomeSkipped: digest unchanged but the record was not Outdated.
	OutcomeSkipped
)

func (o UpdateOutcome) String() string {
	switch o {
	case OutcomeCurrent:
		return "current"
	case OutcomeInserted:
		return "inserted"
	case OutcomeUpdated:
		return "updated"
	case OutcomeSkipped:
		return "skipped"
	default:
		return fmt.Sprintf("outcome(%d)", int(o))
	}
}

// DirectoriesStatus counts directories per tracking status.
type DirectoriesStatus struct {
	Current  uint64 `json:"current"`
	Outdated uint64 `json:"outdated"`
	Added    uint64 `json:"added"`
	Modified uint64 `json:"modified"`
	Orphaned uint64 `json:"orphaned"`
}

// Total returns the number of tracked directories.
func (s DirectoriesStatus) Total() uint64 {
	return s.Current + s.Outdated + s.Added + s.Modified + s.Orphaned
}

// IsPending reports whether any directory still awaits import or a sweep.
func (s DirectoriesStatus) IsPending() bool {
	return s.Outdated+s.Added+s.Modified+s.Orphaned > 0
}

// Add increments the counter for st.
func (s *DirectoriesStatus) Add(st Status, n uint64) {
	switch st {
	case Current:
		s.Current += n
	case Outdated:
		s.Outdated += n
	case Added:
		s.Added += n
	case Modified:
		s.Modified += n
	case Orphaned:
		s.Orphaned += n
	}
}

// Pagination bounds a listing. A zero Limit means unlimited.
type Pagination struct {
	Limit  int
	Offset int
}

// SourceID identifies a registered media source.
type SourceID int64

// MediaSource is an imported media file.
type MediaSource struct {
	ID           SourceID  `json:"id"`
	ContentPath  string    `json:"contentPath"`
	DirPath      string    `json:"dirPath"`
	Fingerprint  Digest    `json:"fingerprint"`
	RegisteredAt time.Time `json:"registeredAt"`
}

// TrackUserData is per-track data entered by the user that must survive relinking.
type TrackUserData struct {
	Rating    *int  `json:"rating,omitempty"`
	PlayCount int64 `json:"playCount"`
}

// Collection is a tracked media root.
type Collection struct {
	ID              string    `json:"id"`
	Title           string    `json:"title"`
	RootPath        string    `json:"rootPath"`
	RootURL         string    `json:"rootUrl"`
	ExcludePatterns []string  `json:"excludePatterns"`
	MaxDepth        int       `json:"maxDepth"`
	CreatedAt       time.Time `json:"createdAt"`
	LastSweepAt     time.Time `json:"lastSweepAt,omitempty"`
}
