package errors

// Error kinds reported by the engine. Compare with [errors.Is]; the messages
// attached at the failure site don't affect matching.
var (
	ErrInvalidPath        = New(EINVAL)
	ErrOutOfRange         = New(ERANGE)
	ErrNotFound           = New(ENOENT)
	ErrExists             = New(EEXIST)
	ErrNoSpaceOnDevice    = New(ENOSPC)
	ErrTooManyOpenFiles   = New(ENFILE)
	ErrInvalidBlock       = New(EUCLEAN)
	ErrAlreadyInitialized = New(EALREADY)
	ErrNotInitialized     = New(ENODEV)
	ErrNameTooLong        = New(ENAMETOOLONG)
	ErrFileTooLarge       = New(EFBIG)
	ErrBusy               = New(EBUSY)
	ErrIsADirectory       = New(EISDIR)
	ErrIOFailed           = New(EIO)
	ErrNotImplemented     = New(ENOSYS)
)
