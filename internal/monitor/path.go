package monitor

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"strings"

	"github.com/bioboy/slowkicker/internal/glftpd"
)

var (
	// ErrPathGone is returned when the session's directory no longer exists
	ErrPathGone = errors.New("path no longer exists")
	// ErrMalformedStatus is returned when the status carries no file name
	ErrMalformedStatus = errors.New("malformed status")
	// ErrPathOutsideRoot is returned when ".." components climb above the glftpd root
	ErrPathOutsideRoot = errors.New("path escapes the glftpd root")
)

// ResolvePath returns the path, relative to the glftpd root, of the file a
// session is uploading. glftpd reports the directory the user is in and the
// file name in the status; when the reported directory is itself a file it
// is used as is. The result is cleaned and never leaves root.
func ResolvePath(root string, s glftpd.Session) (string, error) {
	if !insideRoot(s.CurrentDir) {
		return "", fmt.Errorf("%w: %q", ErrPathOutsideRoot, s.CurrentDir)
	}

	info, err := os.Stat(root + s.CurrentDir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", ErrPathGone
		}
		return "", fmt.Errorf("unable to stat path: %s: %w", s.CurrentDir, err)
	}

	if !info.IsDir() {
		return path.Clean("/" + s.CurrentDir), nil
	}

	filename := TrimNonPrintable(glftpd.StatusArgument(s.Status))
	if filename == "" {
		return "", fmt.Errorf("%w: %q", ErrMalformedStatus, s.Status)
	}

	full := s.CurrentDir + "/" + filename
	if !insideRoot(full) {
		return "", fmt.Errorf("%w: %q", ErrPathOutsideRoot, full)
	}
	return path.Clean("/" + full), nil
}

// insideRoot reports whether p never climbs above "/" while its ".."
// components are applied left to right.
func insideRoot(p string) bool {
	depth := 0
	for _, part := range strings.Split(p, "/") {
		switch part {
		case "", ".":
		case "..":
			depth--
			if depth < 0 {
				return false
			}
		default:
			depth++
		}
	}
	return true
}

// TrimNonPrintable drops trailing bytes outside printable ASCII, such as the
// CR/LF glftpd keeps at the end of the command in the status field.
func TrimNonPrintable(s string) string {
	end := len(s)
	for end > 0 && !isPrint(s[end-1]) {
		end--
	}
	return s[:end]
}

func isPrint(b byte) bool {
	return b >= 0x20 && b <= 0x7e
}
