package fsx

import (
	"errors"
	"fmt"
	"io/fs"
	"syscall"
)

// Sentinel errors for filesystem failure classification.
// Use errors.Is(err, ErrXxx) for typed assertions.
var (
	// ErrNotFound indicates the path does not exist (ENOENT).
	ErrNotFound = errors.New("not found")

	// ErrPermissionDenied indicates a permission failure (EACCES, EPERM).
	ErrPermissionDenied = errors.New("permission denied")

	// ErrDiskFull indicates storage is out of space (ENOSPC, EDQUOT).
	ErrDiskFull = errors.New("no space left on device")

	// ErrIsDir indicates a directory where a file was expected.
	ErrIsDir = errors.New("is a directory")

	// ErrOther is the kind for unclassified failures.
	ErrOther = errors.New("filesystem error")
)

// Error wraps an underlying filesystem error with a classification.
type Error struct {
	// Kind is the sentinel for classification (e.g. ErrNotFound).
	Kind error
	// Op is the failing operation ("open", "write", "chtimes", ...).
	Op string
	// Path is the path involved.
	Path string
	// Err is the underlying error.
	Err error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
}

// Unwrap returns the underlying error for errors.Is/As chain traversal.
func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether the error matches the target sentinel.
func (e *Error) Is(target error) bool {
	return errors.Is(e.Kind, target)
}

// Wrap classifies err and wraps it. Returns nil if err is nil.
func Wrap(err error, op, path string) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: Classify(err), Op: op, Path: path, Err: err}
}

// Classify maps err onto one of the sentinel kinds.
func Classify(err error) error {
	var fsErr *Error
	if errors.As(err, &fsErr) {
		return fsErr.Kind
	}

	switch {
	case errors.Is(err, fs.ErrNotExist):
		return ErrNotFound
	case errors.Is(err, fs.ErrPermission):
		return ErrPermissionDenied
	case errors.Is(err, syscall.ENOSPC), errors.Is(err, syscall.EDQUOT):
		return ErrDiskFull
	case errors.Is(err, syscall.EISDIR):
		return ErrIsDir
	default:
		return ErrOther
	}
}

// KindName returns a stable label for err's classification, for metrics.
func KindName(err error) string {
	switch Classify(err) {
	case ErrNotFound:
		return "not_found"
	case ErrPermissionDenied:
		return "permission_denied"
	case ErrDiskFull:
		return "disk_full"
	case ErrIsDir:
		return "is_dir"
	default:
		return "other"
	}
}
