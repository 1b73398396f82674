// Errno codes used by the engine. They mirror the POSIX names so that callers
// translating to a C-style interface can map them one-to-one, but the numeric
// values are our own and must not be compared against syscall.Errno.

package errors

import (
	"fmt"
)

type Errno int

const (
	EOK Errno = iota
	ENOENT
	EIO
	EBADF
	EBUSY
	EEXIST
	EISDIR
	EINVAL
	ENFILE
	EFBIG
	ENOSPC
	ENAMETOOLONG
	ENOSYS
	EALREADY
	EUCLEAN
	ENODEV
	ERANGE
)

var errorMessagesByCode = map[Errno]string{
	EOK:          "Success",
	ENOENT:       "No such file or directory",
	EIO:          "Input/output error",
	EBADF:        "Bad file descriptor",
	EBUSY:        "Device or resource busy",
	EEXIST:       "File exists",
	EISDIR:       "Is a directory",
	EINVAL:       "Invalid argument",
	ENFILE:       "Too many open files in system",
	EFBIG:        "File too large",
	ENOSPC:       "No space left on device",
	ENAMETOOLONG: "File name too long",
	ENOSYS:       "Function not implemented",
	EALREADY:     "Operation already in progress",
	EUCLEAN:      "Structure needs cleaning",
	ENODEV:       "No such device",
	ERANGE:       "Numerical result out of range",
}

// StrError returns the default message for an error code.
func StrError(code Errno) string {
	message, ok := errorMessagesByCode[code]
	if ok {
		return message
	}
	return fmt.Sprintf("error %d not recognized.", int(code))
}
