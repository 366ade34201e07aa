package wclog

import (
	"fmt"
	"strconv"
	"strings"
)

// parse scans the fixed <wc-log>...</wc-log> grammar Write produces,
// returning the commands in file order. It is a hand-rolled linear
// scanner rather than encoding/xml.Decoder: the grammar is flat
// (wc-log wrapper plus a run of self-closing child tags, no nesting,
// no text nodes, no namespaces) and a direct scan keeps this package's
// read path legible without pulling in general-purpose XML semantics it
// does not need.
func parse(data []byte) ([]Command, error) {
	s := string(data)
	pos := 0
	var commands []Command

	for {
		pos = skipSpace(s, pos)
		if pos >= len(s) {
			break
		}
		if s[pos] != '<' {
			return nil, fmt.Errorf("expected '<' at byte %d", pos)
		}
		tagStart := pos
		pos++
		if pos < len(s) && s[pos] == '/' {
			// closing tag, e.g. </wc-log>; skip to '>'.
			end := strings.IndexByte(s[pos:], '>')
			if end < 0 {
				return nil, fmt.Errorf("unterminated closing tag at byte %d", tagStart)
			}
			pos += end + 1
			continue
		}

		nameStart := pos
		for pos < len(s) && !isNameBoundary(s[pos]) {
			pos++
		}
		name := s[nameStart:pos]

		if name == "wc-log" {
			end := strings.IndexByte(s[pos:], '>')
			if end < 0 {
				return nil, fmt.Errorf("unterminated <wc-log> tag")
			}
			pos += end + 1
			continue
		}

		attrs := map[string]string{}
		for {
			pos = skipSpace(s, pos)
			if pos >= len(s) {
				return nil, fmt.Errorf("unterminated tag %q", name)
			}
			if s[pos] == '/' && pos+1 < len(s) && s[pos+1] == '>' {
				pos += 2
				break
			}
			if s[pos] == '>' {
				// Non-self-closing child tag is not part of this grammar.
				return nil, fmt.Errorf("tag %q not self-closing", name)
			}
			keyStart := pos
			for pos < len(s) && s[pos] != '=' && !isSpace(s[pos]) {
				pos++
			}
			key := s[keyStart:pos]
			pos = skipSpace(s, pos)
			if pos >= len(s) || s[pos] != '=' {
				return nil, fmt.Errorf("expected '=' after attribute %q in tag %q", key, name)
			}
			pos++
			pos = skipSpace(s, pos)
			if pos >= len(s) || s[pos] != '"' {
				return nil, fmt.Errorf("expected '\"' after '=' for attribute %q in tag %q", key, name)
			}
			pos++
			valStart := pos
			for pos < len(s) && s[pos] != '"' {
				pos++
			}
			if pos >= len(s) {
				return nil, fmt.Errorf("unterminated attribute value for %q in tag %q", key, name)
			}
			raw := s[valStart:pos]
			pos++ // closing quote
			attrs[key] = unescape(raw)
		}

		commands = append(commands, Command{Name: name, Attrs: attrs})
	}

	return commands, nil
}

func isSpace(b byte) bool {
	return b == ' ' || b == '\t' || b == '\n' || b == '\r'
}

func isNameBoundary(b byte) bool {
	return isSpace(b) || b == '/' || b == '>'
}

func skipSpace(s string, pos int) int {
	for pos < len(s) && isSpace(s[pos]) {
		pos++
	}
	return pos
}

// unescape reverses the escaping encoding/xml.EscapeText applies to
// attribute values: the named entities it emits plus decimal/hex
// numeric character references.
func unescape(s string) string {
	if !strings.ContainsRune(s, '&') {
		return s
	}
	var b strings.Builder
	for i := 0; i < len(s); {
		if s[i] != '&' {
			b.WriteByte(s[i])
			i++
			continue
		}
		end := strings.IndexByte(s[i:], ';')
		if end < 0 {
			b.WriteByte(s[i])
			i++
			continue
		}
		entity := s[i+1 : i+end]
		i += end + 1
		switch entity {
		case "lt":
			b.WriteByte('<')
		case "gt":
			b.WriteByte('>')
		case "amp":
			b.WriteByte('&')
		case "apos":
			b.WriteByte('\'')
		case "quot":
			b.WriteByte('"')
		default:
			if strings.HasPrefix(entity, "#x") || strings.HasPrefix(entity, "#X") {
				if v, err := strconv.ParseInt(entity[2:], 16, 32); err == nil {
					b.WriteRune(rune(v))
					continue
				}
			} else if strings.HasPrefix(entity, "#") {
				if v, err := strconv.ParseInt(entity[1:], 10, 32); err == nil {
					b.WriteRune(rune(v))
					continue
				}
			}
			// Unrecognized entity; keep it verbatim.
			b.WriteByte('&')
			b.WriteString(entity)
			b.WriteByte(';')
		}
	}
	return b.String()
}
