// Package source maps collection-relative paths to file:// locators and back.
package source

import (
	"fmt"
	"net/url"
	"path"
	"path/filepath"
	"strings"

	"github.com/dl-alexandre/medialib/internal/tracker/status"
)

// Resolver is bound to one collection root. Relative paths are slash
// separated; directory paths keep their trailing slash through a round trip.
type Resolver struct {
	rootPath string
	baseURL  url.URL
}

// NewResolver builds a resolver for an absolute root directory.
func NewResolver(rootPath string) (*Resolver, error) {
	if !filepath.IsAbs(rootPath) {
		return nil, fmt.Errorf("%w: collection root %q is not absolute", status.ErrInvalidPath, rootPath)
	}
	root := filepath.Clean(rootPath)
	urlPath := filepath.ToSlash(root)
	if !strings.HasPrefix(urlPath, "/") {
		urlPath = "/" + urlPath
	}
	if !strings.HasSuffix(urlPath, "/") {
		urlPath += "/"
	}
	return &Resolver{
		rootPath: root,
		baseURL:  url.URL{Scheme: "file", Path: urlPath},
	}, nil
}

// NewResolverFromURL builds a resolver from a stored base URL.
func NewResolverFromURL(rawURL string) (*Resolver, error) {
	u, err := parseFileURL(rawURL)
	if err != nil {
		return nil, err
	}
	p := u.Path
	if len(p) >= 3 && p[0] == '/' && p[2] == ':' {
		// file:///C:/Music
		p = p[1:]
	}
	return NewResolver(filepath.FromSlash(p))
}

func (r *Resolver) RootPath() string { return r.rootPath }

// BaseURL returns the file:// URL of the root, with a trailing slash.
func (r *Resolver) BaseURL() string { return r.baseURL.String() }

func normalizeRelative(rel string) (string, error) {
	rel = strings.ReplaceAll(rel, "\\", "/")
	if strings.HasPrefix(rel, "/") {
		return "", fmt.Errorf("%w: %q is not relative", status.ErrInvalidPath, rel)
	}
	isDir := rel == "" || strings.HasSuffix(rel, "/")
	for _, segment := range strings.Split(rel, "/") {
		if segment == ".." {
			return "", fmt.Errorf("%w: %q escapes the collection root", status.ErrInvalidPath, rel)
		}
	}
	cleaned := path.Clean("/" + rel)
	cleaned = strings.TrimPrefix(cleaned, "/")
	if cleaned == "" {
		return "", nil
	}
	if isDir {
		cleaned += "/"
	}
	return cleaned, nil
}

// ResolveURLFromPath maps a collection-relative path to its locator.
func (r *Resolver) ResolveURLFromPath(rel string) (string, error) {
	normalized, err := normalizeRelative(rel)
	if err != nil {
		return "", err
	}
	u := r.baseURL
	u.Path = r.baseURL.Path + normalized
	return u.String(), nil
}

// ResolvePathFromURL maps a locator below the root back to its relative path.
func (r *Resolver) ResolvePathFromURL(rawURL string) (string, error) {
	u, err := parseFileURL(rawURL)
	if err != nil {
		return "", err
	}
	if !strings.HasPrefix(u.Path, r.baseURL.Path) {
		if u.Path+"/" == r.baseURL.Path {
			return "", nil
		}
		return "", fmt.Errorf("%w: %q is outside %s", status.ErrInvalidURL, rawURL, r.BaseURL())
	}
	rel, err := normalizeRelative(strings.TrimPrefix(u.Path, r.baseURL.Path))
	if err != nil {
		return "", fmt.Errorf("%w: %v", status.ErrInvalidURL, err)
	}
	return rel, nil
}

// AbsPath joins a relative path onto the root.
func (r *Resolver) AbsPath(rel string) (string, error) {
	normalized, err := normalizeRelative(rel)
	if err != nil {
		return "", err
	}
	return filepath.Join(r.rootPath, filepath.FromSlash(strings.TrimSuffix(normalized, "/"))), nil
}

// RelPath converts an absolute path below the root into a relative one.
// isDir appends the trailing slash used for directory records.
func (r *Resolver) RelPath(abs string, isDir bool) (string, error) {
	if !filepath.IsAbs(abs) {
		return "", fmt.Errorf("%w: %q is not absolute", status.ErrInvalidPath, abs)
	}
	rel, err := filepath.Rel(r.rootPath, filepath.Clean(abs))
	if err != nil {
		return "", fmt.Errorf("%w: %v", status.ErrInvalidPath, err)
	}
	rel = filepath.ToSlash(rel)
	if rel == "." {
		return "", nil
	}
	if rel == ".." || strings.HasPrefix(rel, "../") {
		return "", fmt.Errorf("%w: %q is outside %s", status.ErrInvalidPath, abs, r.rootPath)
	}
	if isDir {
		rel += "/"
	}
	return rel, nil
}

func parseFileURL(rawURL string) (*url.URL, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", status.ErrInvalidURL, err)
	}
	if u.Scheme != "file" {
		return nil, fmt.Errorf("%w: %q is not a file URL", status.ErrInvalidURL, rawURL)
	}
	if u.Host != "" && u.Host != "localhost" {
		return nil, fmt.Errorf("%w: remote host %q", status.ErrInvalidURL, u.Host)
	}
	if u.Path == "" {
		return nil, fmt.Errorf("%w: %q has no path", status.ErrInvalidURL, rawURL)
	}
	return u, nil
}
