package kyanite

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// CompileError reports an invalid template, identifying the offending
// expression and its byte offset within the template string.
type CompileError struct {
	Offset  int    // byte offset of the expression's opening delimiter
	Expr    string // expression text without delimiters, if one was found
	Message string
}

func (e *CompileError) Error() string {
	if e.Expr == "" {
		return fmt.Sprintf("template: offset %d: %s", e.Offset, e.Message)
	}
	return fmt.Sprintf("template: offset %d: %q: %s", e.Offset, e.Expr, e.Message)
}

type segKind int

const (
	segLiteral segKind = iota
	segWhole
	segField
	segFieldFrom
	segFieldTo
	segSubst
	segCapture
)

// A segment is one piece of a compiled template: literal text or a
// single placeholder expression. Regexes are compiled here, once, and
// shared read-only by every worker.
type segment struct {
	kind   segKind
	text   string         // segLiteral
	n      int            // field index, or capture group
	re     *regexp.Regexp // segSubst, segCapture
	repl   string         // segSubst replacement, in Go template syntax
	global bool           // segSubst
}

// A Template is a compiled command-line template. It is immutable and
// safe for concurrent use.
type Template struct {
	segs       []segment
	needFields bool
}

// Compile parses a template string into a Template. The placeholder
// must be non-empty; "{}" selects bracket-pair delimiters, any other
// value is used verbatim as both the opening and closing sentinel.
func Compile(template, placeholder string) (*Template, error) {
	if placeholder == "" {
		return nil, &CompileError{Message: "empty placeholder"}
	}
	t := &Template{}
	if placeholder == "{}" {
		if err := t.compileBrackets(template); err != nil {
			return nil, err
		}
	} else {
		if err := t.compileSentinel(template, placeholder); err != nil {
			return nil, err
		}
	}
	for _, s := range t.segs {
		switch s.kind {
		case segField, segFieldFrom, segFieldTo:
			t.needFields = true
		}
	}
	return t, nil
}

// compileBrackets scans for { ... } expressions, counting nesting depth
// so that expressions like {s/a{2}/b/} keep their inner braces.
func (t *Template) compileBrackets(template string) error {
	var lit strings.Builder
	for i := 0; i < len(template); i++ {
		c := template[i]
		if c != '{' {
			lit.WriteByte(c)
			continue
		}
		depth := 1
		j := i + 1
		for ; j < len(template); j++ {
			switch template[j] {
			case '{':
				depth++
			case '}':
				depth--
			}
			if depth == 0 {
				break
			}
		}
		if depth != 0 {
			return &CompileError{Offset: i, Message: "unterminated expression"}
		}
		t.flushLiteral(&lit)
		seg, err := parseExpr(template[i+1:j], i)
		if err != nil {
			return err
		}
		t.segs = append(t.segs, seg)
		i = j
	}
	t.flushLiteral(&lit)
	return nil
}

// compileSentinel scans for expressions delimited by two consecutive
// occurrences of the placeholder string.
func (t *Template) compileSentinel(template, placeholder string) error {
	var lit strings.Builder
	for i := 0; i < len(template); {
		rel := strings.Index(template[i:], placeholder)
		if rel < 0 {
			lit.WriteString(template[i:])
			break
		}
		lit.WriteString(template[i : i+rel])
		open := i + rel
		inner := open + len(placeholder)
		rel = strings.Index(template[inner:], placeholder)
		if rel < 0 {
			return &CompileError{Offset: open, Message: "unterminated expression"}
		}
		t.flushLiteral(&lit)
		seg, err := parseExpr(template[inner:inner+rel], open)
		if err != nil {
			return err
		}
		t.segs = append(t.segs, seg)
		i = inner + rel + len(placeholder)
	}
	t.flushLiteral(&lit)
	return nil
}

func (t *Template) flushLiteral(lit *strings.Builder) {
	if lit.Len() == 0 {
		return
	}
	t.segs = append(t.segs, segment{kind: segLiteral, text: lit.String()})
	lit.Reset()
}

// parseExpr parses the inner text of one placeholder expression.
// The offset is carried only for error reporting.
func parseExpr(expr string, off int) (segment, error) {
	fail := func(format string, args ...any) (segment, error) {
		return segment{}, &CompileError{Offset: off, Expr: expr, Message: fmt.Sprintf(format, args...)}
	}

	switch {
	case expr == "":
		return segment{kind: segWhole}, nil

	case expr[0] >= '0' && expr[0] <= '9':
		kind := segField
		num := expr
		switch expr[len(expr)-1] {
		case '+':
			kind, num = segFieldFrom, expr[:len(expr)-1]
		case '-':
			kind, num = segFieldTo, expr[:len(expr)-1]
		}
		n, err := strconv.Atoi(num)
		if err != nil {
			return fail("malformed field index %q", num)
		}
		if n < 1 {
			return fail("field index must be positive")
		}
		return segment{kind: kind, n: n}, nil

	case expr[0] == 's':
		return parseSubst(expr, fail)

	case expr[0] == '/':
		return parseCapture(expr, fail)
	}
	return fail("unknown expression form")
}

// parseSubst parses s<sep>pattern<sep>replacement<sep>flags. The
// separator may be escaped inside the pattern and replacement with a
// backslash. Replacement backreferences \1..\9 are rewritten to Go's
// ${n} syntax.
func parseSubst(expr string, fail func(string, ...any) (segment, error)) (segment, error) {
	if len(expr) < 2 {
		return fail("substitution requires a separator after s")
	}
	sep := expr[1]
	parts := splitEscaped(expr[2:], sep)
	if len(parts) < 3 {
		return fail("substitution requires three %q separators", string(sep))
	}
	if len(parts) > 3 {
		return fail("unescaped %q in substitution flags", string(sep))
	}
	pat, rep, flags := parts[0], parts[1], parts[2]

	var global, insensitive bool
	for _, f := range flags {
		switch f {
		case 'g':
			global = true
		case 'i':
			insensitive = true
		default:
			return fail("unknown substitution flag %q", string(f))
		}
	}

	if insensitive {
		pat = "(?i)" + pat
	}
	re, err := regexp.Compile(pat)
	if err != nil {
		return fail("invalid regex: %v", err)
	}

	repl, err := compileReplacement(rep, re.NumSubexp())
	if err != nil {
		return fail("%v", err)
	}
	return segment{kind: segSubst, re: re, repl: repl, global: global}, nil
}

// compileReplacement converts a sed-style replacement into Go's regexp
// template syntax: \1..\9 become ${n}, backslash escapes resolve, and
// literal dollars are doubled.
func compileReplacement(rep string, groups int) (string, error) {
	var b strings.Builder
	for i := 0; i < len(rep); i++ {
		switch {
		case rep[i] == '\\' && i+1 < len(rep):
			c := rep[i+1]
			if c >= '1' && c <= '9' {
				g := int(c - '0')
				if g > groups {
					return "", fmt.Errorf("replacement references group %d; pattern defines %d", g, groups)
				}
				fmt.Fprintf(&b, "${%d}", g)
			} else {
				b.WriteByte(c)
			}
			i++
		case rep[i] == '$':
			b.WriteString("$$")
		default:
			b.WriteByte(rep[i])
		}
	}
	return b.String(), nil
}

// parseCapture parses /pattern/group. The group index follows the last
// separator so the pattern itself may contain slashes.
func parseCapture(expr string, fail func(string, ...any) (segment, error)) (segment, error) {
	end := strings.LastIndexByte(expr, '/')
	if end == 0 {
		return fail("capture requires /pattern/group")
	}
	pat, num := expr[1:end], expr[end+1:]

	n, err := strconv.Atoi(num)
	if err != nil {
		return fail("malformed capture group %q", num)
	}
	if n < 0 || n > 9 {
		return fail("capture group must be 0 through 9")
	}
	re, err := regexp.Compile(pat)
	if err != nil {
		return fail("invalid regex: %v", err)
	}
	if n > re.NumSubexp() {
		return fail("capture group %d unreferenced by the pattern", n)
	}
	return segment{kind: segCapture, re: re, n: n}, nil
}

// splitEscaped splits s on an unescaped delimiter byte. A backslash
// before the delimiter yields a literal delimiter.
func splitEscaped(s string, delim byte) []string {
	var parts []string
	var cur strings.Builder
	for i := 0; i < len(s); i++ {
		switch {
		case s[i] == '\\' && i+1 < len(s) && s[i+1] == delim:
			cur.WriteByte(delim)
			i++
		case s[i] == delim:
			parts = append(parts, cur.String())
			cur.Reset()
		default:
			cur.WriteByte(s[i])
		}
	}
	parts = append(parts, cur.String())
	return parts
}
