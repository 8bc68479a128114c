package kyanite

import "strings"

// Expand applies the template to one record and returns the resulting
// argument vector. Literal text tokenizes on unescaped spaces and tabs;
// expanded values join the current token verbatim, so an expansion
// containing a space stays a single argument. Expansion cannot fail: a
// capture whose regex does not match expands to the empty string, and a
// substitution whose regex does not match leaves the record unchanged.
func (t *Template) Expand(line string, split Splitter) []string {
	var fields []string
	if t.needFields {
		fields = split.Split(line)
	}

	var argv []string
	var tok strings.Builder
	flush := func() {
		if tok.Len() > 0 {
			argv = append(argv, tok.String())
			tok.Reset()
		}
	}

	for _, seg := range t.segs {
		if seg.kind != segLiteral {
			tok.WriteString(seg.expand(line, fields, split))
			continue
		}
		for i := 0; i < len(seg.text); i++ {
			c := seg.text[i]
			switch {
			case c == '\\' && i+1 < len(seg.text) && isEscapable(seg.text[i+1]):
				tok.WriteByte(seg.text[i+1])
				i++
			case c == ' ' || c == '\t':
				flush()
			default:
				tok.WriteByte(c)
			}
		}
	}
	flush()
	return argv
}

func isEscapable(c byte) bool { return c == ' ' || c == '\t' || c == '\\' }

func (s *segment) expand(line string, fields []string, split Splitter) string {
	switch s.kind {
	case segWhole:
		return line

	case segField:
		if s.n <= len(fields) {
			return fields[s.n-1]
		}
		return ""

	case segFieldFrom:
		if s.n <= len(fields) {
			return split.Join(fields[s.n-1:])
		}
		return ""

	case segFieldTo:
		return split.Join(fields[:min(s.n, len(fields))])

	case segSubst:
		if s.global {
			return s.re.ReplaceAllString(line, s.repl)
		}
		m := s.re.FindStringSubmatchIndex(line)
		if m == nil {
			return line
		}
		out := s.re.ExpandString(nil, s.repl, line, m)
		return line[:m[0]] + string(out) + line[m[1]:]

	case segCapture:
		m := s.re.FindStringSubmatch(line)
		if m == nil {
			return ""
		}
		return m[s.n]
	}
	return ""
}
