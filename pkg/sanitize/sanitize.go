// Copyright (c) 2026 Tosho. All rights reserved.
// Author: tai.buivan.jp@gmail.com

// Package sanitize produces filesystem-safe names from untrusted input.
//
// # Usage
//
// Upload filenames come straight from the client and series titles come from
// archive metadata; both end up as path components under the library tree.
// This package strips anything that could escape or mangle a path before a
// single byte touches disk.
package sanitize

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var (
	// unsafeChars matches any run of characters outside the filename allow-list:
	// word characters, dot, dash, parentheses, and space.
	unsafeChars = regexp.MustCompile(`[^\w.\-() ]+`)
	// multiSpace collapses runs of whitespace.
	multiSpace = regexp.MustCompile(`\s+`)
)

// FileName scrubs an uploaded filename down to the allow-list, substituting
// disallowed runs with a single underscore.
//
// The base name is taken first, so a crafted "../../etc/passwd" collapses to
// a harmless flat name.
func FileName(name string) string {
	// Never trust client-supplied directory components.
	if idx := strings.LastIndexAny(name, `/\`); idx >= 0 {
		name = name[idx+1:]
	}

	cleaned := unsafeChars.ReplaceAllString(name, "_")
	cleaned = strings.TrimSpace(cleaned)

	// A name that scrubbed down to separators and substitution marks carries
	// no information; fall back to a fixed stem.
	if strings.Trim(cleaned, "_.-() ") == "" {
		return "upload"
	}
	return cleaned
}

// FolderName converts a series title into a safe directory name.
//
// # Transformation Pipeline
//
// 1. Normalizes to NFD (decomposes accented chars: é → e + combining acute).
// 2. Removes combining marks (accents).
// 3. Applies the filename allow-list.
// 4. Collapses whitespace and trims leading/trailing dots and spaces.
func FolderName(title string) string {
	// 1. Normalize and remove accents
	t := transform.Chain(norm.NFD, transform.RemoveFunc(isMn))
	result, _, _ := transform.String(t, title)

	// 2. Allow-list scrub
	result = unsafeChars.ReplaceAllString(result, "_")

	// 3. Whitespace and edge cleanup
	result = multiSpace.ReplaceAllString(result, " ")
	result = strings.Trim(result, " .")

	if result == "" {
		return "Unknown"
	}
	return result
}

// isMn reports whether r is a Unicode non-spacing mark (e.g., accents).
func isMn(r rune) bool {
	return unicode.Is(unicode.Mn, r)
}
