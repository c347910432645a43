package resolver

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidPath is returned by Parse for malformed path text.
var ErrInvalidPath = errors.New("invalid path")

// Segment is a single step of a Path.
type Segment struct {
	Name    string // Member name
	Indexed bool   // Written as ['name'] instead of .name
}

// Path identifies a value reachable from a root scope, e.g. calc.Parser or lib['fib'].
type Path []Segment

// Parse converts path text into a Path.
// Accepted forms are dotted names (a.b.c) and quoted indexes (a['b'] or a["b"]);
// inside an index a backslash escapes the next character (a['it\'s']).
// The first segment is always a plain name.
func Parse(text string) (Path, error) {
	var path Path
	rest := text

	name, rest := splitName(rest)
	if name == "" {
		return nil, fmt.Errorf("%w %q: missing leading name", ErrInvalidPath, text)
	}
	path = append(path, Segment{Name: name})

	for rest != "" {
		switch rest[0] {
		case '.':
			name, rest = splitName(rest[1:])
			if name == "" {
				return nil, fmt.Errorf("%w %q: empty name after '.'", ErrInvalidPath, text)
			}
			path = append(path, Segment{Name: name})
		case '[':
			if len(rest) < 2 || (rest[1] != '\'' && rest[1] != '"') {
				return nil, fmt.Errorf("%w %q: index must be quoted", ErrInvalidPath, text)
			}
			name, n, ok := scanIndex(rest[2:], rest[1])
			if !ok {
				return nil, fmt.Errorf("%w %q: unterminated index", ErrInvalidPath, text)
			}
			path = append(path, Segment{Name: name, Indexed: true})
			rest = rest[2+n:]
		default:
			return nil, fmt.Errorf("%w %q: unexpected %q", ErrInvalidPath, text, rest[0])
		}
	}

	return path, nil
}

// MustParse is like Parse but panics on error.
func MustParse(text string) Path {
	path, err := Parse(text)
	if err != nil {
		panic(err)
	}
	return path
}

// scanIndex reads a quoted index body up to the closing quote and ']'.
// A backslash takes the next byte literally. It returns the name and the
// number of bytes consumed, closing "]" included.
func scanIndex(s string, quote byte) (string, int, bool) {
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		switch c := s[i]; {
		case c == '\\':
			if i+1 >= len(s) {
				return "", 0, false
			}
			i++
			b.WriteByte(s[i])
		case c == quote:
			if i+1 >= len(s) || s[i+1] != ']' {
				return "", 0, false
			}
			return b.String(), i + 2, true
		default:
			b.WriteByte(c)
		}
	}
	return "", 0, false
}

// splitName returns the leading plain name of s and the remainder.
func splitName(s string) (string, string) {
	i := strings.IndexAny(s, ".[")
	if i < 0 {
		return s, ""
	}
	return s[:i], s[i:]
}

// String returns the canonical text of the path. Inside an index, the quote
// character and backslashes are escaped with a backslash.
// Parse(p.String()) yields p for every path built by Parse, Field or Index.
func (p Path) String() string {
	var b strings.Builder
	for i, seg := range p {
		switch {
		case seg.Indexed:
			quote := byte('\'')
			if strings.IndexByte(seg.Name, '\'') >= 0 && strings.IndexByte(seg.Name, '"') < 0 {
				quote = '"'
			}
			b.WriteByte('[')
			b.WriteByte(quote)
			for j := 0; j < len(seg.Name); j++ {
				if c := seg.Name[j]; c == quote || c == '\\' {
					b.WriteByte('\\')
				}
				b.WriteByte(seg.Name[j])
			}
			b.WriteByte(quote)
			b.WriteByte(']')
		case i > 0:
			b.WriteByte('.')
			b.WriteString(seg.Name)
		default:
			b.WriteString(seg.Name)
		}
	}
	return b.String()
}

// Field returns a copy of p extended with a dotted segment.
func (p Path) Field(name string) Path {
	return p.extend(Segment{Name: name})
}

// Index returns a copy of p extended with an indexed segment.
func (p Path) Index(name string) Path {
	return p.extend(Segment{Name: name, Indexed: true})
}

func (p Path) extend(seg Segment) Path {
	out := make(Path, len(p), len(p)+1)
	copy(out, p)
	return append(out, seg)
}
