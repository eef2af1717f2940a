package macro

import "strings"

// ErrorCode classifies the outcome of a single command or a whole run.
type ErrorCode int

const (
	ErrOK ErrorCode = iota
	ErrMissingParameter
	ErrInvalidParameter
	ErrSyntax
	ErrUnknownCommand
	ErrElementNotFound
	ErrFrameNotFound
	ErrPageTimeout
	ErrFileNotFound
	ErrFileAccessDenied
	ErrFile
	ErrScript
)

// String returns the stable name used in logs and protocol payloads.
func (c ErrorCode) String() string {
	switch c {
	case ErrOK:
		return "OK"
	case ErrMissingParameter:
		return "MISSING_PARAMETER"
	case ErrInvalidParameter:
		return "INVALID_PARAMETER"
	case ErrSyntax:
		return "SYNTAX_ERROR"
	case ErrUnknownCommand:
		return "UNKNOWN_COMMAND"
	case ErrElementNotFound:
		return "ELEMENT_NOT_FOUND"
	case ErrFrameNotFound:
		return "FRAME_NOT_FOUND"
	case ErrPageTimeout:
		return "PAGE_TIMEOUT"
	case ErrFileNotFound:
		return "FILE_NOT_FOUND"
	case ErrFileAccessDenied:
		return "FILE_ACCESS_DENIED"
	case ErrFile:
		return "FILE_ERROR"
	default:
		return "SCRIPT_ERROR"
	}
}

// ClassifyFileError maps a file-bridge error message onto the error
// taxonomy by inspecting the message text. Bridges report plain strings,
// so the mapping is a substring match rather than typed errors.
func ClassifyFileError(msg string) ErrorCode {
	lower := strings.ToLower(msg)
	switch {
	case strings.Contains(lower, "not found"),
		strings.Contains(lower, "no such file"),
		strings.Contains(lower, "enoent"):
		return ErrFileNotFound
	case strings.Contains(lower, "permission"),
		strings.Contains(lower, "access denied"):
		return ErrFileAccessDenied
	default:
		return ErrFile
	}
}
