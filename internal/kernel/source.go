package kernel

import (
	"bytes"
	"errors"
	"fmt"
	"strings"

	"hvxhost/internal/common/fsutil"
)

// CodeMode selects how the code argument of Load is interpreted.
type CodeMode int

const (
	// CodeModePath treats the bytes as a filesystem path to the image.
	CodeModePath CodeMode = iota
	// CodeModeBytes treats the bytes as the image itself and stages them
	// to a fixed path before opening.
	CodeModeBytes
)

// DefaultStagePath is where raw images are written in CodeModeBytes.
const DefaultStagePath = "/data/hvx_kernels.so"

func (m CodeMode) String() string {
	if m == CodeModeBytes {
		return "bytes"
	}
	return "path"
}

// ParseCodeMode accepts "", "path" and "bytes".
func ParseCodeMode(s string) (CodeMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "path":
		return CodeModePath, nil
	case "bytes":
		return CodeModeBytes, nil
	default:
		return CodeModePath, fmt.Errorf("unknown code mode %q", s)
	}
}

var errEmptyCode = errors.New("empty code reference")

// resolveCode turns the code argument into a path the opener can load.
func resolveCode(mode CodeMode, stagePath string, code []byte) (string, error) {
	switch mode {
	case CodeModeBytes:
		if len(code) == 0 {
			return "", errEmptyCode
		}
		if stagePath == "" {
			stagePath = DefaultStagePath
		}
		// A rename leaves images that are already mapped untouched.
		if err := fsutil.WriteFileAtomic(stagePath, code, 0o755); err != nil {
			return "", fmt.Errorf("stage image: %w", err)
		}
		return stagePath, nil
	default:
		if i := bytes.IndexByte(code, 0); i >= 0 {
			code = code[:i]
		}
		if len(code) == 0 {
			return "", errEmptyCode
		}
		return string(code), nil
	}
}
