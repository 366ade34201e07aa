package install

import (
	"regexp"
	"runtime"
	"strings"
)

var nativeEOL = func() string {
	if runtime.GOOS == "windows" {
		return "\r\n"
	}
	return "\n"
}()

// eolTranslate rewrites every line ending in data to the given style.
// An empty style means no translation (the file is treated as binary or
// left exactly as stored). "native" means the platform's own line
// ending; the other three styles ("LF", "CR", "CRLF") are explicit.
func eolTranslate(data []byte, style string) []byte {
	if style == "" {
		return data
	}
	normalized := normalizeToLF(data)
	var target string
	switch style {
	case "CRLF":
		target = "\r\n"
	case "CR":
		target = "\r"
	case "native":
		target = nativeEOL
	default: // "LF" and anything unrecognized
		target = "\n"
	}
	if target == "\n" {
		return normalized
	}
	return []byte(strings.ReplaceAll(string(normalized), "\n", target))
}

// eolDetranslate reverses eolTranslate, always producing LF-normalized
// (repository-normal) content regardless of the working style.
func eolDetranslate(data []byte, style string) []byte {
	if style == "" {
		return data
	}
	return normalizeToLF(data)
}

func normalizeToLF(data []byte) []byte {
	s := string(data)
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = strings.ReplaceAll(s, "\r", "\n")
	return []byte(s)
}

var keywordPattern = regexp.MustCompile(`\$(Id|Revision|Rev|Date|Author|URL|HeadURL|LastChangedBy|LastChangedDate|LastChangedRevision)(:[^$\r\n]*)?\$`)

// expandKeywords rewrites `$Keyword$` and already-expanded
// `$Keyword: ... $` markers to carry the current values in values,
// leaving unrecognized keyword names and unmatched text untouched.
func expandKeywords(data []byte, values map[string]string) []byte {
	if len(values) == 0 {
		return data
	}
	return keywordPattern.ReplaceAllFunc(data, func(match []byte) []byte {
		sub := keywordPattern.FindSubmatch(match)
		name := string(sub[1])
		val, ok := values[name]
		if !ok {
			return match
		}
		return []byte("$" + name + ": " + val + " $")
	})
}

// contractKeywords rewrites any expanded `$Keyword: ... $` marker back
// to its bare `$Keyword$` form, the repository-normal representation
// stored as the pristine text-base.
func contractKeywords(data []byte, names []string) []byte {
	if len(names) == 0 {
		return data
	}
	set := make(map[string]bool, len(names))
	for _, n := range names {
		set[n] = true
	}
	return keywordPattern.ReplaceAllFunc(data, func(match []byte) []byte {
		sub := keywordPattern.FindSubmatch(match)
		name := string(sub[1])
		if !set[name] {
			return match
		}
		return []byte("$" + name + "$")
	})
}
