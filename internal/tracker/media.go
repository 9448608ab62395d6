package tracker

import (
	"path"
	"strings"
)

var mediaExtensions = map[string]struct{}{
	".mp3": {}, ".flac": {}, ".m4a": {}, ".mp4": {}, ".aac": {}, ".ogg": {},
	".oga": {}, ".opus": {}, ".wav": {}, ".aif": {}, ".aiff": {}, ".wma": {},
	".alac": {}, ".ape": {}, ".wv": {}, ".dsf": {},
}

// IsMediaFile reports whether name has an audio extension the importer registers.
func IsMediaFile(name string) bool {
	_, ok := mediaExtensions[strings.ToLower(path.Ext(name))]
	return ok
}
