package ifc

import (
	"fmt"
	"strconv"
	"strings"
	"unicode/utf16"

	"github.com/buildscope/bimgraph/pkg/logger"
)

type parser struct {
	data []byte
	pos  int
	line int
}

func newParser(data []byte) *parser {
	return &parser{data: data, line: 1}
}

func (p *parser) parse() (*Model, error) {
	m := &Model{
		entities: make(map[int64]*Entity),
		byType:   make(map[string][]*Entity),
	}

	p.skipSpace()
	if !p.consumeKeyword("ISO-10303-21") {
		return nil, fmt.Errorf("not a STEP physical file: missing ISO-10303-21 marker")
	}
	if err := p.expect(';'); err != nil {
		return nil, err
	}

	for {
		p.skipSpace()
		if p.eof() {
			return nil, fmt.Errorf("unexpected end of file: missing END-ISO-10303-21")
		}
		if p.consumeKeyword("END-ISO-10303-21") {
			p.skipSpace()
			p.consume(';')
			break
		}
		if p.consumeKeyword("HEADER") {
			if err := p.expect(';'); err != nil {
				return nil, err
			}
			if err := p.parseHeader(&m.Header); err != nil {
				return nil, err
			}
			continue
		}
		if p.consumeKeyword("DATA") {
			if err := p.expect(';'); err != nil {
				return nil, err
			}
			if err := p.parseData(m); err != nil {
				return nil, err
			}
			continue
		}
		return nil, fmt.Errorf("line %d: unexpected content outside HEADER/DATA section", p.line)
	}

	return m, nil
}

func (p *parser) parseHeader(h *Header) error {
	for {
		p.skipSpace()
		if p.consumeKeyword("ENDSEC") {
			return p.expect(';')
		}

		name, err := p.readIdent()
		if err != nil {
			return fmt.Errorf("line %d: malformed header entry: %w", p.line, err)
		}
		val, err := p.parseValue()
		if err != nil {
			return fmt.Errorf("line %d: malformed header entry %s: %w", p.line, name, err)
		}
		if err := p.expect(';'); err != nil {
			return err
		}

		args := val.AsList()
		switch name {
		case "FILE_DESCRIPTION":
			if len(args) > 0 {
				for _, d := range args[0].AsList() {
					h.Description = append(h.Description, d.AsString())
				}
			}
		case "FILE_NAME":
			if len(args) > 0 {
				h.FileName = args[0].AsString()
			}
		case "FILE_SCHEMA":
			if len(args) > 0 {
				schemas := args[0].AsList()
				if len(schemas) > 0 {
					h.RawSchema = schemas[0].AsString()
					h.Schema = parseSchemaVersion(h.RawSchema)
				}
			}
		}
	}
}

func (p *parser) parseData(m *Model) error {
	for {
		p.skipSpace()
		if p.consumeKeyword("ENDSEC") {
			return p.expect(';')
		}
		if p.eof() {
			return fmt.Errorf("unexpected end of file inside DATA section")
		}

		e, err := p.parseInstance()
		if err != nil {
			if p.eof() {
				return fmt.Errorf("unexpected end of file inside DATA section")
			}
			// A malformed record fails only that record; resync at the
			// next ';' and keep going.
			logger.Warn("skipping malformed instance", "line", p.line, "error", err.Error())
			p.skipRecord()
			continue
		}

		if _, dup := m.entities[e.ID]; dup {
			return fmt.Errorf("line %d: duplicate instance id #%d", p.line, e.ID)
		}
		m.entities[e.ID] = e
		m.byType[e.Type] = append(m.byType[e.Type], e)
		m.order = append(m.order, e.ID)
	}
}

func (p *parser) parseInstance() (*Entity, error) {
	if err := p.expect('#'); err != nil {
		return nil, err
	}
	id, err := p.readInt()
	if err != nil {
		return nil, fmt.Errorf("line %d: malformed instance id: %w", p.line, err)
	}
	p.skipSpace()
	if err := p.expect('='); err != nil {
		return nil, err
	}
	p.skipSpace()

	typ, err := p.readIdent()
	if err != nil {
		return nil, fmt.Errorf("line %d: malformed instance #%d: %w", p.line, id, err)
	}
	args, err := p.parseValue()
	if err != nil {
		return nil, fmt.Errorf("line %d: malformed instance #%d (%s): %w", p.line, id, typ, err)
	}
	if err := p.expect(';'); err != nil {
		return nil, err
	}

	return &Entity{ID: id, Type: typ, Attrs: args.AsList()}, nil
}

// skipRecord advances past the terminating ';' of the current record.
// Strings and comments are stepped over whole, so a ';' inside them
// does not end the skip early.
func (p *parser) skipRecord() {
	for !p.eof() {
		switch c := p.data[p.pos]; {
		case c == ';':
			p.pos++
			return
		case c == '\'':
			if _, err := p.readString(); err != nil {
				return
			}
		case c == '\n':
			p.line++
			p.pos++
		case c == '/' && p.pos+1 < len(p.data) && p.data[p.pos+1] == '*':
			p.skipSpace()
		default:
			p.pos++
		}
	}
}

// parseValue parses one attribute value: string, enum, number, reference,
// aggregate, typed wrapper, `$` or `*`.
func (p *parser) parseValue() (Value, error) {
	p.skipSpace()
	if p.eof() {
		return Value{}, fmt.Errorf("unexpected end of file in value")
	}

	switch c := p.data[p.pos]; {
	case c == '$':
		p.pos++
		return Value{Kind: KindNull}, nil
	case c == '*':
		p.pos++
		return Value{Kind: KindDerived}, nil
	case c == '#':
		p.pos++
		id, err := p.readInt()
		if err != nil {
			return Value{}, err
		}
		return Value{Kind: KindRef, Ref: id}, nil
	case c == '\'':
		s, err := p.readString()
		if err != nil {
			return Value{}, err
		}
		return Value{Kind: KindString, Str: s}, nil
	case c == '.':
		s, err := p.readEnum()
		if err != nil {
			return Value{}, err
		}
		return Value{Kind: KindEnum, Str: s}, nil
	case c == '(':
		return p.parseAggregate()
	case c == '-' || c == '+' || (c >= '0' && c <= '9'):
		return p.readNumber()
	case isIdentStart(c):
		// Typed simple value, e.g. IFCLABEL('Roof') or boolean-ish tokens.
		name, err := p.readIdent()
		if err != nil {
			return Value{}, err
		}
		p.skipSpace()
		if !p.eof() && p.data[p.pos] == '(' {
			inner, err := p.parseAggregate()
			if err != nil {
				return Value{}, err
			}
			return Value{Kind: KindTyped, Str: name, List: inner.List}, nil
		}
		return Value{Kind: KindEnum, Str: name}, nil
	default:
		return Value{}, fmt.Errorf("unexpected character %q", string(c))
	}
}

func (p *parser) parseAggregate() (Value, error) {
	if err := p.expect('('); err != nil {
		return Value{}, err
	}
	var list []Value
	for {
		p.skipSpace()
		if p.eof() {
			return Value{}, fmt.Errorf("unterminated aggregate")
		}
		if p.data[p.pos] == ')' {
			p.pos++
			return Value{Kind: KindList, List: list}, nil
		}
		v, err := p.parseValue()
		if err != nil {
			return Value{}, err
		}
		list = append(list, v)
		p.skipSpace()
		if !p.eof() && p.data[p.pos] == ',' {
			p.pos++
		}
	}
}

func (p *parser) readString() (string, error) {
	if err := p.expect('\''); err != nil {
		return "", err
	}
	var b strings.Builder
	for {
		if p.eof() {
			return "", fmt.Errorf("unterminated string")
		}
		c := p.data[p.pos]
		if c == '\'' {
			// '' is an escaped quote.
			if p.pos+1 < len(p.data) && p.data[p.pos+1] == '\'' {
				b.WriteByte('\'')
				p.pos += 2
				continue
			}
			p.pos++
			return decodeStepString(b.String()), nil
		}
		if c == '\n' {
			p.line++
		}
		b.WriteByte(c)
		p.pos++
	}
}

func (p *parser) readEnum() (string, error) {
	if err := p.expect('.'); err != nil {
		return "", err
	}
	start := p.pos
	for !p.eof() && p.data[p.pos] != '.' {
		p.pos++
	}
	if p.eof() {
		return "", fmt.Errorf("unterminated enumeration literal")
	}
	s := string(p.data[start:p.pos])
	p.pos++
	return s, nil
}

func (p *parser) readNumber() (Value, error) {
	start := p.pos
	if p.data[p.pos] == '-' || p.data[p.pos] == '+' {
		p.pos++
	}
	for !p.eof() {
		c := p.data[p.pos]
		if (c >= '0' && c <= '9') || c == '.' || c == 'e' || c == 'E' {
			p.pos++
			continue
		}
		if (c == '-' || c == '+') && p.pos > start {
			prev := p.data[p.pos-1]
			if prev == 'e' || prev == 'E' {
				p.pos++
				continue
			}
		}
		break
	}
	text := string(p.data[start:p.pos])
	n, err := strconv.ParseFloat(text, 64)
	if err != nil {
		return Value{}, fmt.Errorf("malformed number %q: %w", text, err)
	}
	return Value{Kind: KindNumber, Num: n}, nil
}

func (p *parser) readInt() (int64, error) {
	start := p.pos
	for !p.eof() && p.data[p.pos] >= '0' && p.data[p.pos] <= '9' {
		p.pos++
	}
	if p.pos == start {
		return 0, fmt.Errorf("expected digits")
	}
	return strconv.ParseInt(string(p.data[start:p.pos]), 10, 64)
}

func (p *parser) readIdent() (string, error) {
	p.skipSpace()
	start := p.pos
	for !p.eof() && isIdentPart(p.data[p.pos]) {
		p.pos++
	}
	if p.pos == start {
		return "", fmt.Errorf("expected identifier")
	}
	return strings.ToUpper(string(p.data[start:p.pos])), nil
}

func (p *parser) consumeKeyword(kw string) bool {
	p.skipSpace()
	if p.pos+len(kw) > len(p.data) {
		return false
	}
	if !strings.EqualFold(string(p.data[p.pos:p.pos+len(kw)]), kw) {
		return false
	}
	// Keyword must not continue as a longer identifier.
	if p.pos+len(kw) < len(p.data) && isIdentPart(p.data[p.pos+len(kw)]) {
		return false
	}
	p.pos += len(kw)
	return true
}

func (p *parser) consume(c byte) bool {
	p.skipSpace()
	if !p.eof() && p.data[p.pos] == c {
		p.pos++
		return true
	}
	return false
}

func (p *parser) expect(c byte) error {
	if p.consume(c) {
		return nil
	}
	if p.eof() {
		return fmt.Errorf("line %d: expected %q, found end of file", p.line, string(c))
	}
	return fmt.Errorf("line %d: expected %q, found %q", p.line, string(c), string(p.data[p.pos]))
}

func (p *parser) skipSpace() {
	for !p.eof() {
		c := p.data[p.pos]
		switch {
		case c == ' ' || c == '\t' || c == '\r':
			p.pos++
		case c == '\n':
			p.line++
			p.pos++
		case c == '/' && p.pos+1 < len(p.data) && p.data[p.pos+1] == '*':
			p.pos += 2
			for p.pos+1 < len(p.data) && !(p.data[p.pos] == '*' && p.data[p.pos+1] == '/') {
				if p.data[p.pos] == '\n' {
					p.line++
				}
				p.pos++
			}
			p.pos += 2
		default:
			return
		}
	}
}

func (p *parser) eof() bool {
	return p.pos >= len(p.data)
}

func isIdentStart(c byte) bool {
	return (c >= 'A' && c <= 'Z') || (c >= 'a' && c <= 'z') || c == '_' || c == '-'
}

func isIdentPart(c byte) bool {
	return isIdentStart(c) || (c >= '0' && c <= '9')
}

// decodeStepString resolves the ISO 10303-21 string escapes: \\ for a
// backslash, \S\c for a code-page character, \X\hh for a single byte and
// \X2\…\X0\ / \X4\…\X0\ for UTF-16/UTF-32 sequences. Quote escaping ('')
// is handled by the lexer before this runs.
func decodeStepString(s string) string {
	if !strings.Contains(s, "\\") {
		return s
	}

	var b strings.Builder
	i := 0
	for i < len(s) {
		if s[i] != '\\' {
			b.WriteByte(s[i])
			i++
			continue
		}

		rest := s[i+1:]
		switch {
		case strings.HasPrefix(rest, "\\"):
			b.WriteByte('\\')
			i += 2
		case len(rest) >= 3 && (rest[0] == 'S' || rest[0] == 's') && rest[1] == '\\':
			// \S\c : character in the upper half of the current code page.
			b.WriteRune(rune(rest[2]) + 128)
			i += 4
		case len(rest) >= 4 && (rest[0] == 'X' || rest[0] == 'x') && rest[1] == '\\':
			if v, err := strconv.ParseUint(rest[2:4], 16, 8); err == nil {
				b.WriteRune(rune(v))
			}
			i += 5
		case strings.HasPrefix(rest, "X2\\") || strings.HasPrefix(rest, "x2\\"):
			end := strings.Index(rest[3:], "\\X0\\")
			if end < 0 {
				b.WriteByte(s[i])
				i++
				continue
			}
			hex := rest[3 : 3+end]
			var units []uint16
			for j := 0; j+4 <= len(hex); j += 4 {
				if v, err := strconv.ParseUint(hex[j:j+4], 16, 16); err == nil {
					units = append(units, uint16(v))
				}
			}
			b.WriteString(string(utf16.Decode(units)))
			i += 1 + 3 + end + 4
		case strings.HasPrefix(rest, "X4\\") || strings.HasPrefix(rest, "x4\\"):
			end := strings.Index(rest[3:], "\\X0\\")
			if end < 0 {
				b.WriteByte(s[i])
				i++
				continue
			}
			hex := rest[3 : 3+end]
			for j := 0; j+8 <= len(hex); j += 8 {
				if v, err := strconv.ParseUint(hex[j:j+8], 16, 32); err == nil {
					b.WriteRune(rune(v))
				}
			}
			i += 1 + 3 + end + 4
		default:
			b.WriteByte(s[i])
			i++
		}
	}
	return b.String()
}
