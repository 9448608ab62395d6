package exclude

import (
	"path"
	"strings"
)

// Matcher decides which collection-relative paths a walk must skip.
type Matcher struct {
	patterns []string
}

// DefaultPatterns are metadata and scratch files that media players, NAS
// indexers and sync tools leave inside music folders.
func DefaultPatterns() []string {
	return []string{
		".git/",
		".stfolder/",
		".stversions/",
		"@eaDir/",
		"#recycle/",
		".DS_Store",
		"._*",
		"Thumbs.db",
		"desktop.ini",
		"*.part",
		"*.tmp",
		"*.crdownload",
	}
}

func New(patterns []string) *Matcher {
	return NewWithSubPaths(patterns, nil)
}

// NewWithSubPaths merges the defaults, patterns and explicit sub-paths. Each
// sub-path excludes that directory and everything beneath it.
func NewWithSubPaths(patterns []string, subPaths []string) *Matcher {
	merged := append([]string{}, DefaultPatterns()...)
	for _, p := range patterns {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		merged = append(merged, p)
	}
	for _, sp := range subPaths {
		sp = strings.Trim(strings.TrimSpace(strings.ReplaceAll(sp, "\\", "/")), "/")
		if sp == "" {
			continue
		}
		merged = append(merged, sp+"/")
	}
	return &Matcher{patterns: merged}
}

// Patterns returns the effective pattern list.
func (m *Matcher) Patterns() []string {
	if m == nil {
		return nil
	}
	return append([]string{}, m.patterns...)
}

func (m *Matcher) IsExcluded(relPath string, isDir bool) bool {
	if m == nil {
		return false
	}
	relPath = strings.TrimSuffix(strings.TrimPrefix(relPath, "./"), "/")
	for _, p := range m.patterns {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		if strings.HasSuffix(p, "/") {
			dirPattern := strings.TrimSuffix(p, "/")
			if !strings.Contains(dirPattern, "/") {
				// bare directory names match at any depth
				if isDir && path.Base(relPath) == dirPattern {
					return true
				}
				if strings.HasPrefix(relPath, dirPattern+"/") || strings.Contains(relPath, "/"+dirPattern+"/") {
					return true
				}
			}
			if relPath == dirPattern || strings.HasPrefix(relPath, dirPattern+"/") {
				return true
			}
			continue
		}
		if strings.ContainsAny(p, "*?[]") {
			if ok, _ := path.Match(p, relPath); ok {
				return true
			}
			base := path.Base(relPath)
			if ok, _ := path.Match(p, base); ok {
				return true
			}
			continue
		}
		if relPath == p || strings.HasPrefix(relPath, p+"/") {
			return true
		}
		if !isDir && path.Base(relPath) == p {
			return true
		}
	}
	return false
}
