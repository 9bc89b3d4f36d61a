// Package fsx holds the filesystem primitives used by both transfer ends.
//
// Every write opens, appends and closes the file; no handle survives a
// chunk, so a destination is always in a coherent state between requests.
package fsx

import (
	"errors"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/pithecene-io/tfc/iox"
)

const (
	dirPerm  = 0o755
	filePerm = 0o644
)

// Info is the subset of file metadata the protocol cares about.
type Info struct {
	Size int64
	// Mtime is the modification time in unix seconds.
	Mtime   int64
	Regular bool
}

// Stat returns metadata for path. Missing files return an error wrapping
// fs.ErrNotExist.
func Stat(path string) (Info, error) {
	fi, err := os.Stat(path)
	if err != nil {
		return Info{}, Wrap(err, "stat", path)
	}
	return Info{
		Size:    fi.Size(),
		Mtime:   fi.ModTime().Unix(),
		Regular: fi.Mode().IsRegular(),
	}, nil
}

// Exists reports whether path exists.
func Exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// Length returns the size of path, or 0 if it does not exist.
func Length(path string) (int64, error) {
	fi, err := os.Stat(path)
	if errors.Is(err, fs.ErrNotExist) {
		return 0, nil
	}
	if err != nil {
		return 0, Wrap(err, "stat", path)
	}
	return fi.Size(), nil
}

// EnsureParent creates the parent directories of path.
func EnsureParent(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, dirPerm); err != nil {
		return Wrap(err, "mkdir", dir)
	}
	return nil
}

// Append writes data to the end of path, creating it if needed.
func Append(path string, data []byte) error {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_APPEND|os.O_CREATE, filePerm)
	if err != nil {
		return Wrap(err, "open", path)
	}
	if _, err := f.Write(data); err != nil {
		iox.DiscardClose(f)
		return Wrap(err, "write", path)
	}
	if err := f.Close(); err != nil {
		return Wrap(err, "close", path)
	}
	return nil
}

// CreateEmpty creates path as an empty file, truncating any existing one.
func CreateEmpty(path string) error {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, filePerm)
	if err != nil {
		return Wrap(err, "create", path)
	}
	if err := f.Close(); err != nil {
		return Wrap(err, "close", path)
	}
	return nil
}

// ReadChunk reads up to n bytes of path starting at offset.
// A short or empty result at end of file is not an error.
func ReadChunk(path string, offset int64, n int) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, Wrap(err, "open", path)
	}
	defer iox.DiscardClose(f)

	buf := make([]byte, n)
	read, err := f.ReadAt(buf, offset)
	if err != nil && !errors.Is(err, io.EOF) {
		return nil, Wrap(err, "read", path)
	}
	return buf[:read], nil
}

// Remove deletes path. Missing files return an error wrapping fs.ErrNotExist.
func Remove(path string) error {
	if err := os.Remove(path); err != nil {
		return Wrap(err, "remove", path)
	}
	return nil
}

// RemoveIfExists deletes path and reports whether it existed.
func RemoveIfExists(path string) (bool, error) {
	err := os.Remove(path)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, fs.ErrNotExist):
		return false, nil
	default:
		return false, Wrap(err, "remove", path)
	}
}

// SetMtime sets the modification time of path to unix seconds, leaving
// the access time untouched.
func SetMtime(path string, unixSec int64) error {
	if err := os.Chtimes(path, time.Time{}, time.Unix(unixSec, 0)); err != nil {
		return Wrap(err, "chtimes", path)
	}
	return nil
}
