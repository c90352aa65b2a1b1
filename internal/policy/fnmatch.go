package policy

import (
	"fmt"
	"sort"
	"strings"
)

// maxRangeWidth bounds a bracket range such as [a-z] once expanded to runes.
const maxRangeWidth = 1 << 16

// posixClasses are the character classes fnmatch(3) accepts inside brackets,
// evaluated in the C locale.
var posixClasses = map[string]func(r rune) bool{
	"alnum":  func(r rune) bool { return isAlpha(r) || isDigit(r) },
	"alpha":  isAlpha,
	"blank":  func(r rune) bool { return r == ' ' || r == '\t' },
	"cntrl":  func(r rune) bool { return r < 0x20 || r == 0x7f },
	"digit":  isDigit,
	"graph":  func(r rune) bool { return r > 0x20 && r < 0x7f },
	"lower":  func(r rune) bool { return r >= 'a' && r <= 'z' },
	"print":  func(r rune) bool { return r >= 0x20 && r < 0x7f },
	"punct":  func(r rune) bool { return r > 0x20 && r < 0x7f && !isAlpha(r) && !isDigit(r) },
	"space":  func(r rune) bool { return r == ' ' || (r >= '\t' && r <= '\r') },
	"upper":  func(r rune) bool { return r >= 'A' && r <= 'Z' },
	"xdigit": func(r rune) bool { return isDigit(r) || (r >= 'a' && r <= 'f') || (r >= 'A' && r <= 'F') },
}

func isAlpha(r rune) bool { return (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') }

func isDigit(r rune) bool { return r >= '0' && r <= '9' }

// translateMask rewrites an fnmatch(3) pattern (flags 0) into glob syntax.
// Braces and commas are plain characters in fnmatch, '^' negates a bracket
// like '!', POSIX classes and mixed ranges are expanded to explicit lists,
// and an unterminated '[' matches itself.
func translateMask(mask string) (string, error) {
	p := []rune(mask)
	var sb strings.Builder

	for i := 0; i < len(p); {
		switch c := p[i]; c {
		case '*', '?':
			sb.WriteRune(c)
			i++
		case '\\':
			if i+1 < len(p) {
				writeEscaped(&sb, p[i+1])
				i += 2
			} else {
				writeEscaped(&sb, c)
				i++
			}
		case '[':
			b, next, ok, err := parseBracket(p, i+1)
			if err != nil {
				return "", err
			}
			if !ok {
				writeEscaped(&sb, c)
				i++
				continue
			}
			sb.WriteString(b.glob())
			i = next
		case '{', '}', ',', ']':
			writeEscaped(&sb, c)
			i++
		default:
			sb.WriteRune(c)
			i++
		}
	}

	return sb.String(), nil
}

func writeEscaped(sb *strings.Builder, r rune) {
	sb.WriteByte('\\')
	sb.WriteRune(r)
}

// bracket is a parsed bracket expression
type bracket struct {
	negated bool
	set     map[rune]struct{}
}

func (b *bracket) add(r rune) {
	if r != 0 {
		b.set[r] = struct{}{}
	}
}

// parseBracket parses the expression starting after '[' at p[i]. ok is false
// when the bracket is never closed.
func parseBracket(p []rune, i int) (b bracket, next int, ok bool, err error) {
	b.set = make(map[rune]struct{})
	j := i
	if j < len(p) && (p[j] == '!' || p[j] == '^') {
		b.negated = true
		j++
	}

	for first := true; j < len(p); first = false {
		c := p[j]
		if c == ']' && !first {
			if len(b.set) == 0 {
				return b, 0, false, fmt.Errorf("empty bracket expression")
			}
			return b, j + 1, true, nil
		}

		if c == '[' && j+1 < len(p) {
			switch p[j+1] {
			case ':':
				if end := indexFrom(p, j+2, ":]"); end >= 0 {
					name := string(p[j+2 : end])
					pred, known := posixClasses[name]
					if !known {
						return b, 0, false, fmt.Errorf("unknown character class [:%s:]", name)
					}
					for r := rune(1); r < 0x80; r++ {
						if pred(r) {
							b.add(r)
						}
					}
					j = end + 2
					continue
				}
			case '.', '=':
				return b, 0, false, fmt.Errorf("collating elements and equivalence classes are not supported")
			}
		}

		lo := c
		if c == '\\' && j+1 < len(p) {
			j++
			lo = p[j]
		}
		j++

		if j+1 < len(p) && p[j] == '-' && p[j+1] != ']' {
			hi := p[j+1]
			j += 2
			if hi == '\\' && j < len(p) {
				hi = p[j]
				j++
			}
			if hi < lo {
				return b, 0, false, fmt.Errorf("invalid range %c-%c", lo, hi)
			}
			if hi-lo >= maxRangeWidth {
				return b, 0, false, fmt.Errorf("range %c-%c is too wide", lo, hi)
			}
			for r := lo; r <= hi; r++ {
				b.add(r)
			}
			continue
		}

		b.add(lo)
	}

	return b, 0, false, nil
}

// glob renders the set as a glob list. Every member is escaped; '-' is
// never placed first so the list cannot be read as a range.
func (b bracket) glob() string {
	runes := make([]rune, 0, len(b.set))
	for r := range b.set {
		runes = append(runes, r)
	}
	sort.Slice(runes, func(x, y int) bool { return runes[x] < runes[y] })

	var sb strings.Builder
	sb.WriteByte('[')
	if b.negated {
		sb.WriteByte('!')
	}

	if len(runes) == 1 && runes[0] == '-' {
		sb.WriteString("---]")
		return sb.String()
	}
	if runes[0] == '-' {
		runes[0], runes[1] = runes[1], runes[0]
	}
	for _, r := range runes {
		writeEscaped(&sb, r)
	}
	sb.WriteByte(']')
	return sb.String()
}

func indexFrom(p []rune, from int, sub string) int {
	want := []rune(sub)
	for k := from; k+len(want) <= len(p); k++ {
		if string(p[k:k+len(want)]) == sub {
			return k
		}
	}
	return -1
}
