package ifc

import (
	"fmt"
	"strconv"
	"strings"
)

// stepArg is one parsed argument of a STEP entity instance.
type stepArg struct {
	kind     argKind
	str      string    // kindString, kindEnum
	ref      int       // kindRef
	num      float64   // kindNumber
	list     []stepArg // kindList
	typeName string    // kindTyped, e.g. IFCLABEL
	inner    *stepArg  // kindTyped
}

type argKind int

const (
	kindNull argKind = iota // $
	kindStar                // *
	kindString
	kindRef
	kindEnum
	kindNumber
	kindList
	kindTyped
)

// parseArgs parses a comma-separated STEP argument list (the text between
// the outermost parentheses of an entity instance).
func parseArgs(s string) ([]stepArg, error) {
	p := &argParser{src: s}
	args, err := p.parseList()
	if err != nil {
		return nil, err
	}
	p.skipSpace()
	if p.pos != len(p.src) {
		return nil, fmt.Errorf("trailing input at %d", p.pos)
	}
	return args, nil
}

type argParser struct {
	src string
	pos int
}

func (p *argParser) parseList() ([]stepArg, error) {
	var args []stepArg
	p.skipSpace()
	if p.pos >= len(p.src) {
		return args, nil
	}
	for {
		arg, err := p.parseArg()
		if err != nil {
			return nil, err
		}
		args = append(args, arg)
		p.skipSpace()
		if p.pos >= len(p.src) || p.src[p.pos] != ',' {
			return args, nil
		}
		p.pos++ // consume comma
	}
}

func (p *argParser) parseArg() (stepArg, error) {
	p.skipSpace()
	if p.pos >= len(p.src) {
		return stepArg{}, fmt.Errorf("unexpected end of arguments")
	}

	switch c := p.src[p.pos]; {
	case c == '$':
		p.pos++
		return stepArg{kind: kindNull}, nil
	case c == '*':
		p.pos++
		return stepArg{kind: kindStar}, nil
	case c == '\'':
		return p.parseString()
	case c == '#':
		return p.parseRef()
	case c == '.':
		return p.parseEnum()
	case c == '(':
		return p.parseNested()
	case c == '-' || c == '+' || (c >= '0' && c <= '9'):
		return p.parseNumber()
	case (c >= 'A' && c <= 'Z') || (c >= 'a' && c <= 'z'):
		return p.parseTyped()
	default:
		return stepArg{}, fmt.Errorf("unexpected character %q at %d", c, p.pos)
	}
}

func (p *argParser) parseString() (stepArg, error) {
	p.pos++ // opening quote
	var sb strings.Builder
	for p.pos < len(p.src) {
		c := p.src[p.pos]
		if c == '\'' {
			if p.pos+1 < len(p.src) && p.src[p.pos+1] == '\'' {
				sb.WriteByte('\'')
				p.pos += 2
				continue
			}
			p.pos++
			return stepArg{kind: kindString, str: sb.String()}, nil
		}
		sb.WriteByte(c)
		p.pos++
	}
	return stepArg{}, fmt.Errorf("unterminated string")
}

func (p *argParser) parseRef() (stepArg, error) {
	p.pos++ // '#'
	start := p.pos
	for p.pos < len(p.src) && p.src[p.pos] >= '0' && p.src[p.pos] <= '9' {
		p.pos++
	}
	if p.pos == start {
		return stepArg{}, fmt.Errorf("empty reference at %d", start)
	}
	id, err := strconv.Atoi(p.src[start:p.pos])
	if err != nil {
		return stepArg{}, err
	}
	return stepArg{kind: kindRef, ref: id}, nil
}

func (p *argParser) parseEnum() (stepArg, error) {
	p.pos++ // '.'
	start := p.pos
	for p.pos < len(p.src) && p.src[p.pos] != '.' {
		p.pos++
	}
	if p.pos >= len(p.src) {
		return stepArg{}, fmt.Errorf("unterminated enum at %d", start)
	}
	name := p.src[start:p.pos]
	p.pos++ // closing '.'
	return stepArg{kind: kindEnum, str: name}, nil
}

func (p *argParser) parseNested() (stepArg, error) {
	p.pos++ // '('
	list, err := p.parseList()
	if err != nil {
		return stepArg{}, err
	}
	p.skipSpace()
	if p.pos >= len(p.src) || p.src[p.pos] != ')' {
		return stepArg{}, fmt.Errorf("unterminated list")
	}
	p.pos++
	return stepArg{kind: kindList, list: list}, nil
}

func (p *argParser) parseNumber() (stepArg, error) {
	start := p.pos
	p.pos++
	for p.pos < len(p.src) {
		c := p.src[p.pos]
		if (c >= '0' && c <= '9') || c == '.' || c == 'e' || c == 'E' || c == '-' || c == '+' {
			p.pos++
			continue
		}
		break
	}
	f, err := strconv.ParseFloat(strings.TrimSuffix(p.src[start:p.pos], "."), 64)
	if err != nil {
		return stepArg{}, fmt.Errorf("bad number %q: %w", p.src[start:p.pos], err)
	}
	return stepArg{kind: kindNumber, num: f}, nil
}

// parseTyped parses a typed parameter value such as IFCLABEL('T30') or
// IFCBOOLEAN(.F.).
func (p *argParser) parseTyped() (stepArg, error) {
	start := p.pos
	for p.pos < len(p.src) {
		c := p.src[p.pos]
		if (c >= 'A' && c <= 'Z') || (c >= 'a' && c <= 'z') || (c >= '0' && c <= '9') || c == '_' {
			p.pos++
			continue
		}
		break
	}
	name := strings.ToUpper(p.src[start:p.pos])
	p.skipSpace()
	if p.pos >= len(p.src) || p.src[p.pos] != '(' {
		return stepArg{}, fmt.Errorf("expected ( after %s", name)
	}
	p.pos++
	inner, err := p.parseArg()
	if err != nil {
		return stepArg{}, err
	}
	p.skipSpace()
	if p.pos >= len(p.src) || p.src[p.pos] != ')' {
		return stepArg{}, fmt.Errorf("unterminated typed value %s", name)
	}
	p.pos++
	return stepArg{kind: kindTyped, typeName: name, inner: &inner}, nil
}

func (p *argParser) skipSpace() {
	for p.pos < len(p.src) {
		switch p.src[p.pos] {
		case ' ', '\t', '\r', '\n':
			p.pos++
		default:
			return
		}
	}
}

// Positional accessors. Out-of-range or wrong-kind arguments yield zero
// values; the collector treats incomplete records as malformed and skips
// them rather than failing the document.

func argString(args []stepArg, i int) string {
	if i < len(args) && args[i].kind == kindString {
		return args[i].str
	}
	return ""
}

func argRef(args []stepArg, i int) int {
	if i < len(args) && args[i].kind == kindRef {
		return args[i].ref
	}
	return 0
}

func argRefs(args []stepArg, i int) []int {
	if i >= len(args) || args[i].kind != kindList {
		return nil
	}
	var refs []int
	for _, a := range args[i].list {
		if a.kind == kindRef {
			refs = append(refs, a.ref)
		}
	}
	return refs
}

func argValue(args []stepArg, i int) *Value {
	if i >= len(args) {
		return nil
	}
	return valueFromArg(args[i])
}

func valueFromArg(a stepArg) *Value {
	switch a.kind {
	case kindString:
		v := NewLabel(a.str)
		return &v
	case kindNumber:
		v := NewReal(a.num)
		return &v
	case kindEnum:
		v := NewBool(strings.EqualFold(a.str, "T") || strings.EqualFold(a.str, "TRUE"))
		return &v
	case kindTyped:
		if a.inner == nil {
			return nil
		}
		inner := valueFromArg(*a.inner)
		if inner == nil {
			return nil
		}
		switch {
		case strings.Contains(a.typeName, "BOOLEAN"), strings.Contains(a.typeName, "LOGICAL"):
			v := NewBool(inner.Kind == Boolean && inner.Bool)
			return &v
		case inner.Kind == Real:
			return inner
		case inner.Kind == Boolean:
			return inner
		default:
			return inner
		}
	default:
		return nil
	}
}
