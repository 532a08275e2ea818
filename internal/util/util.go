// Package util provides common string helpers for bridge argument cleanup.
package util

import "strings"

// TrimQuotes removes one pair of surrounding double quotes from a string.
// Only one pair: a doubled quote at the edge of the payload belongs to the
// payload ("say ""go""" carries a quoted word at the end).
func TrimQuotes(s string) string {
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		return s[1 : len(s)-1]
	}
	return s
}

// FixEscapeQuotes replaces escaped double quotes ("") with single double quotes (").
func FixEscapeQuotes(s string) string {
	return strings.ReplaceAll(s, `""`, `"`)
}

// CleanArg applies the standard bridge argument fixup.
func CleanArg(s string) string {
	return FixEscapeQuotes(TrimQuotes(s))
}

// CleanArgs applies CleanArg to every element in place and returns the slice.
func CleanArgs(args []string) []string {
	for i, v := range args {
		args[i] = CleanArg(v)
	}
	return args
}

// TrimBrackets removes one pair of surrounding square brackets if present.
func TrimBrackets(s string) string {
	s = strings.TrimSpace(s)
	if len(s) >= 2 && s[0] == '[' && s[len(s)-1] == ']' {
		return s[1 : len(s)-1]
	}
	return s
}

// Contains reports whether str is present in slice.
func Contains(slice []string, str string) bool {
	for _, v := range slice {
		if v == str {
			return true
		}
	}
	return false
}
