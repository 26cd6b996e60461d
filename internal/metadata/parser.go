// Copyright (c) 2026 Tosho. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package metadata turns uploaded file names and container-internal documents
into resolved media metadata.

Architecture:

  - Parse: a pure, total cascade of filename heuristics. Always yields a
    result, never errors.
  - Extractor: best-effort readers for ComicInfo.xml, EPUB OPF packages and
    PDF document-info dictionaries. Failures count as "no contribution".
  - Resolver: merges internal, heuristic and AI-derived fields under a fixed
    precedence, calling the AI assistant only for low-confidence results.
*/
package metadata

import (
	"regexp"
	"strconv"
	"strings"
)

// # Parsed Shape

// UnknownTitle is the sentinel used when no title survives the cascade.
const UnknownTitle = "Unknown Title"

// Parsed is the result of the filename heuristic cascade.
//
// Number is always set (one-shots get 1). Volume and Year stay nil when the
// filename carries no such information, which the resolver distinguishes
// from a legitimate zero.
type Parsed struct {
	Title     string
	Number    float64
	Volume    *float64
	Year      *int
	IsOneShot bool
}

// # Cascade Stages

var (
	bracketPattern     = regexp.MustCompile(`\[[^\]]*\]|\{[^}]*\}`)
	whitespacePattern  = regexp.MustCompile(`\s+`)
	parenYearPattern   = regexp.MustCompile(`\((\d{4})\)`)
	parenGroupPattern  = regexp.MustCompile(`\([^)]*\)`)
	volumePattern      = regexp.MustCompile(`(?i)\b(?:v|vol|volume|livro|book|tome)\.?\s*(\d+(?:[.,]\d+)?)`)
	chapterTagPattern  = regexp.MustCompile(`(?i)(?:\b(?:c|ch|cap|chapter|chap|no|num|numero)\.?\s*|#\s*)(\d+(?:[.,]\d+)?)`)
	chapterOfPattern   = regexp.MustCompile(`(?i)\b(\d+(?:[.,]\d+)?)\s+(?:of|de)\s+\d+`)
	chapterSpanPattern = regexp.MustCompile(`\b(\d+(?:[.,]\d+)?)\s*-\s*\d+`)
	bareNumberPattern  = regexp.MustCompile(`\d+(?:[.,]\d+)?`)
	extensionPattern   = regexp.MustCompile(`\.[A-Za-z0-9]+$`)
)

// Bare numbers inside this inclusive band read as release years, not
// chapter numbers.
const (
	yearBandLow  = 1900
	yearBandHigh = 2100
)

/*
Parse extracts title, chapter number, volume and year from a file name by a
strictly ordered rewrite cascade.

Description: Each stage consumes the span it recognized so later stages see
a progressively smaller remainder. A filename with no usable chapter number,
or whose only bare number looks like a year, is classified as a one-shot
with number 1. The function is total: every input yields a result.

Parameters:
  - filename: string (Original upload name; any path prefix is ignored)

Returns:
  - Parsed: Extracted fields; Title falls back to [UnknownTitle]
*/
func Parse(filename string) Parsed {
	remainder := extensionPattern.ReplaceAllString(filename, "")

	// Stage 1: drop bracketed annotations, normalize separators.
	remainder = bracketPattern.ReplaceAllString(remainder, " ")
	remainder = strings.ReplaceAll(remainder, "_", " ")
	remainder = collapse(remainder)

	var parsed Parsed

	// Stage 2: a parenthesized 4-digit group is the release year.
	if match := parenYearPattern.FindStringSubmatchIndex(remainder); match != nil {
		if year, err := strconv.Atoi(remainder[match[2]:match[3]]); err == nil {
			parsed.Year = &year
		}
		remainder = cutSpan(remainder, match[0], match[1])
	}
	remainder = parenGroupPattern.ReplaceAllString(remainder, " ")

	// Stage 3: volume designators.
	if match := volumePattern.FindStringSubmatchIndex(remainder); match != nil {
		if volume, ok := parseDecimal(remainder[match[2]:match[3]]); ok {
			parsed.Volume = &volume
		}
		remainder = cutSpan(remainder, match[0], match[1])
	}

	// Stage 4: chapter number, first matching strategy wins.
	numberFound := false
	for _, pattern := range []*regexp.Regexp{chapterTagPattern, chapterOfPattern, chapterSpanPattern} {
		match := pattern.FindStringSubmatchIndex(remainder)
		if match == nil {
			continue
		}
		if number, ok := parseDecimal(remainder[match[2]:match[3]]); ok {
			parsed.Number = number
			numberFound = true
			remainder = cutSpan(remainder, match[0], match[1])
		}
		break
	}

	// Stage 5: last bare number, with the year-band one-shot guard.
	if !numberFound {
		matches := bareNumberPattern.FindAllStringIndex(remainder, -1)
		if len(matches) == 0 {
			parsed.IsOneShot = true
			parsed.Number = 1
		} else {
			last := matches[len(matches)-1]
			number, ok := parseDecimal(remainder[last[0]:last[1]])
			switch {
			case !ok:
				parsed.IsOneShot = true
				parsed.Number = 1
			case number >= yearBandLow && number <= yearBandHigh:
				parsed.IsOneShot = true
				parsed.Number = 1
				if parsed.Year == nil && number == float64(int(number)) {
					year := int(number)
					parsed.Year = &year
				}
				remainder = cutSpan(remainder, last[0], last[1])
			default:
				parsed.Number = number
				remainder = cutSpan(remainder, last[0], last[1])
			}
		}
	}

	// Stage 6: whatever precedes the first " - " separator is the title.
	// Dots act as word separators in release-style names.
	title := remainder
	if index := strings.Index(title, " - "); index >= 0 {
		title = title[:index]
	}
	title = strings.ReplaceAll(title, ".", " ")
	title = collapse(strings.Trim(title, " _#-"))
	if title == "" {
		title = UnknownTitle
	}
	parsed.Title = title

	return parsed
}

// parseDecimal parses a number that may use either "." or "," as its
// decimal separator.
func parseDecimal(raw string) (float64, bool) {
	value, err := strconv.ParseFloat(strings.ReplaceAll(raw, ",", "."), 64)
	if err != nil {
		return 0, false
	}
	return value, true
}

// cutSpan removes [from,to) and keeps the halves separated by one space.
func cutSpan(s string, from int, to int) string {
	return collapse(s[:from] + " " + s[to:])
}

// collapse squeezes runs of whitespace into single spaces and trims ends.
func collapse(s string) string {
	return strings.TrimSpace(whitespacePattern.ReplaceAllString(s, " "))
}
