package server

import (
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"
)

// ErrPathEscape is returned for client paths that resolve outside the root.
var ErrPathEscape = errors.New("path escapes server root")

// Resolver maps client-visible, slash-separated paths onto the server root.
type Resolver struct {
	// Root is an absolute directory.
	Root string
}

// NewResolver makes root absolute. An empty root means the current
// working directory.
func NewResolver(root string) (*Resolver, error) {
	if root == "" {
		wd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("resolve root: %w", err)
		}
		root = wd
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolve root %s: %w", root, err)
	}
	return &Resolver{Root: abs}, nil
}

// Resolve returns the filesystem path for rel. Leading slashes are
// ignored, so "/a/b" and "a/b" name the same file. Paths that clean to
// the root itself or climb above it are rejected.
func (r *Resolver) Resolve(rel string) (string, error) {
	slashed := strings.ReplaceAll(rel, `\`, "/")
	if strings.ContainsRune(rel, 0) || escapes(slashed) {
		return "", fmt.Errorf("%w: %q", ErrPathEscape, rel)
	}
	cleaned := path.Clean("/" + slashed)
	if cleaned == "/" {
		return "", fmt.Errorf("%w: %q names the root", ErrPathEscape, rel)
	}

	full := filepath.Join(r.Root, filepath.FromSlash(cleaned))
	within, err := filepath.Rel(r.Root, full)
	if err != nil || within == ".." || strings.HasPrefix(within, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%w: %q", ErrPathEscape, rel)
	}
	return full, nil
}

// escapes reports whether walking p segment by segment ever rises above
// its starting directory.
func escapes(p string) bool {
	depth := 0
	for _, seg := range strings.Split(strings.TrimLeft(p, "/"), "/") {
		switch seg {
		case "", ".":
		case "..":
			depth--
			if depth < 0 {
				return true
			}
		default:
			depth++
		}
	}
	return false
}
