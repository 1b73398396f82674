package tfs

// IOFlags is the set of options accepted when opening a file.
type IOFlags int

const (
	// O_CREATE creates the file if it doesn't exist.
	O_CREATE IOFlags = 1 << iota
	// O_TRUNC discards the file's contents when it's opened.
	O_TRUNC
	// O_APPEND starts the cursor at the end of the file instead of the
	// beginning.
	O_APPEND
)

const O_NONE IOFlags = 0

func (flags IOFlags) Create() bool {
	return flags&O_CREATE != 0
}

func (flags IOFlags) Truncate() bool {
	return flags&O_TRUNC != 0
}

func (flags IOFlags) Append() bool {
	return flags&O_APPEND != 0
}

// String gives a human-readable form of the flags, e.g. "O_CREATE|O_TRUNC".
func (flags IOFlags) String() string {
	if flags == O_NONE {
		return "O_NONE"
	}

	result := ""
	names := []struct {
		flag IOFlags
		name string
	}{
		{O_CREATE, "O_CREATE"},
		{O_TRUNC, "O_TRUNC"},
		{O_APPEND, "O_APPEND"},
	}
	for _, n := range names {
		if flags&n.flag == 0 {
			continue
		}
		if result != "" {
			result += "|"
		}
		result += n.name
	}
	return result
}
