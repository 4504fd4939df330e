package imap

import "strings"

// IMAP mirrors back commands in whatever case they were sent, so every
// protocol token comparison goes through these case-insensitive helpers.

// hasPrefixFold reports whether s starts with prefix, ignoring case.
func hasPrefixFold(s, prefix string) bool {
	return len(s) >= len(prefix) && strings.EqualFold(s[:len(prefix)], prefix)
}

// containsFold reports whether substr is present in s, ignoring case.
func containsFold(s, substr string) bool {
	return strings.Contains(strings.ToUpper(s), strings.ToUpper(substr))
}

// between returns the content between the first occurrence of first and the
// next occurrence of last. When last is missing the remainder of the string
// is returned, which matches untagged lines whose closing bracket was already
// stripped.
func between(s string, first, last byte) string {
	start := strings.IndexByte(s, first)
	if start < 0 {
		return ""
	}
	end := strings.IndexByte(s[start+1:], last)
	if end < 0 {
		return s[start+1:]
	}
	return s[start+1 : start+1+end]
}

// list returns the balanced parenthesised list starting at the first '(',
// surrounding parens included.
func list(s string) string {
	start := strings.IndexByte(s, '(')
	if start < 0 {
		return ""
	}
	depth := 0
	for i := start; i < len(s); i++ {
		switch s[i] {
		case '(':
			depth++
		case ')':
			depth--
		}
		if depth == 0 {
			return s[start : i+1]
		}
	}
	return s[start:]
}

// untaggedNumber returns the number following the '*' marker of an untagged
// line, e.g. "172" from "* 172 EXISTS".
func untaggedNumber(s string) string {
	i := 1
	for i < len(s) && s[i] == ' ' {
		i++
	}
	j := i
	for j < len(s) && s[j] != ' ' {
		j++
	}
	return s[i:j]
}

// digits returns the leading run of decimal digits.
func digits(s string) string {
	i := 0
	for i < len(s) && s[i] >= '0' && s[i] <= '9' {
		i++
	}
	return s[:i]
}

// trimQuotes strips one pair of surrounding double quotes.
func trimQuotes(s string) string {
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		return s[1 : len(s)-1]
	}
	return s
}
