package executor

import (
	"context"
	"errors"
	"io/fs"
	"syscall"
)

var (
	errNotRegular    = errors.New("not a regular file")
	errUnknownAction = errors.New("unknown action")
)

var permanentErrnos = []syscall.Errno{
	syscall.ENOSPC,
	syscall.EROFS,
	syscall.EISDIR,
	syscall.ENOTDIR,
	syscall.EXDEV,
}

var transientErrnos = []syscall.Errno{
	syscall.EBUSY,
	syscall.ETXTBSY,
}

// isTransient reports whether err is worth retrying. Permission problems,
// missing paths and full or read-only filesystems will not fix themselves
// within a retry window.
func isTransient(err error) bool {
	if errors.Is(err, errNotRegular) || errors.Is(err, errUnknownAction) ||
		errors.Is(err, fs.ErrPermission) || errors.Is(err, fs.ErrNotExist) ||
		errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	for _, errno := range permanentErrnos {
		if errors.Is(err, errno) {
			return false
		}
	}
	for _, errno := range transientErrnos {
		if errors.Is(err, errno) {
			return true
		}
	}

	var errno syscall.Errno
	if errors.As(err, &errno) {
		return errno.Temporary()
	}

	return true
}
