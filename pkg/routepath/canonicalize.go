// Package routepath canonicalizes request paths before dispatch.
//
// A canonical path starts with "/", has no empty, "." or ".." segments and
// no trailing slash (except the root). Paths that cannot be made canonical
// safely are rejected.
package routepath

import (
	"errors"
	"strings"
)

// Canonicalization errors.
var (
	ErrBackslash     = errors.New("routepath: path contains backslash")
	ErrNullByte      = errors.New("routepath: path contains null byte")
	ErrPercentEscape = errors.New("routepath: invalid percent escape")
	ErrEscapesRoot   = errors.New("routepath: path escapes root via ..")
)

// Canonicalize normalizes an escaped URL path (no query string). It
// reports whether the result differs from the input.
func Canonicalize(escaped string) (string, bool, error) {
	if escaped == "" {
		return "/", true, nil
	}
	if strings.Contains(escaped, `\`) {
		return "", false, ErrBackslash
	}
	if strings.Contains(escaped, "\x00") || strings.Contains(strings.ToUpper(escaped), "%00") {
		return "", false, ErrNullByte
	}
	if err := checkEscapes(escaped); err != nil {
		return "", false, err
	}

	segments := make([]string, 0, strings.Count(escaped, "/"))
	for _, seg := range strings.Split(escaped, "/") {
		switch seg {
		case "", ".":
		case "..":
			if len(segments) == 0 {
				return "", false, ErrEscapesRoot
			}
			segments = segments[:len(segments)-1]
		default:
			segments = append(segments, seg)
		}
	}

	clean := "/" + strings.Join(segments, "/")
	return clean, clean != escaped, nil
}

// checkEscapes verifies every "%" starts a two-digit hex escape.
func checkEscapes(path string) error {
	for i := 0; i < len(path); i++ {
		if path[i] != '%' {
			continue
		}
		if i+2 >= len(path) || !isHex(path[i+1]) || !isHex(path[i+2]) {
			return ErrPercentEscape
		}
		i += 2
	}
	return nil
}

func isHex(c byte) bool {
	return (c >= '0' && c <= '9') || (c >= 'a' && c <= 'f') || (c >= 'A' && c <= 'F')
}
