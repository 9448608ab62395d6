package status

import (
	"fmt"
	"path"
	"strings"
)

// NormalizeDirPath turns a collection-relative directory path into its stored
// form: slash separated, no leading slash, trailing slash, "" for the root.
func NormalizeDirPath(p string) (string, error) {
	p = strings.ReplaceAll(p, "\\", "/")
	p = strings.TrimSpace(p)
	if p == "" || p == "/" || p == "." || p == "./" {
		return "", nil
	}
	cleaned := path.Clean("/" + p)
	if cleaned == "/" {
		return "", nil
	}
	if strings.Contains(p, "..") {
		for _, segment := range strings.Split(p, "/") {
			if segment == ".." {
				return "", fmt.Errorf("%w: %q escapes the collection root", ErrInvalidPath, p)
			}
		}
	}
	return strings.TrimPrefix(cleaned, "/") + "/", nil
}

// NormalizePrefix is NormalizeDirPath for prefixes.
func NormalizePrefix(prefix string) (string, error) {
	return NormalizeDirPath(prefix)
}

// HasPrefix reports whether the directory path dir lies under prefix.
func HasPrefix(dir, prefix string) bool {
	return strings.HasPrefix(dir, prefix)
}

// JoinDir appends a child directory name to a stored directory path.
func JoinDir(parent, name string) string {
	return parent + name + "/"
}

// JoinFile appends a file name to a stored directory path.
func JoinFile(dir, name string) string {
	return dir + name
}

// DirOfFile returns the stored directory path of a collection-relative file path.
func DirOfFile(contentPath string) string {
	idx := strings.LastIndex(contentPath, "/")
	if idx < 0 {
		return ""
	}
	return contentPath[:idx+1]
}
