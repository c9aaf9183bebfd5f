package vm

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"
)

const bom = "\ufeff"

// Decode turns source text into a Program in a single pass. On failure
// it returns a *SyntaxError and no Program.
func Decode(src string) (*Program, error) {
	d := &decoder{src: src, line: 1, col: 1}
	if strings.HasPrefix(src, bom) {
		d.pos = len(bom)
	}

	var code []Instruction
	for {
		d.skipSpace()
		if d.pos >= len(d.src) {
			break
		}
		inst, err := d.next()
		if err != nil {
			return nil, err
		}
		code = append(code, inst)
	}
	return &Program{code: code}, nil
}

// DecodeReader reads all of r and decodes it.
func DecodeReader(r io.Reader) (*Program, error) {
	b, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("decode: read source: %w", err)
	}
	if !utf8.Valid(b) {
		return nil, &SyntaxError{Line: 1, Column: 1, Msg: "source is not valid UTF-8"}
	}
	return Decode(string(b))
}

type decoder struct {
	src  string
	pos  int
	line int
	col  int
}

func (d *decoder) errorf(start, line, col int, text, format string, args ...any) *SyntaxError {
	return &SyntaxError{
		Offset: start,
		Line:   line,
		Column: col,
		Text:   text,
		Msg:    fmt.Sprintf(format, args...),
	}
}

// advance moves past n bytes that contain no newline.
func (d *decoder) advance(n int) {
	d.col += utf8.RuneCountInString(d.src[d.pos : d.pos+n])
	d.pos += n
}

func (d *decoder) skipSpace() {
	for d.pos < len(d.src) {
		r, size := utf8.DecodeRuneInString(d.src[d.pos:])
		if !unicode.IsSpace(r) {
			return
		}
		d.pos += size
		if r == '\n' {
			d.line++
			d.col = 1
		} else {
			d.col++
		}
	}
}

func (d *decoder) marker() (Opcode, bool) {
	rest := d.src[d.pos:]
	for _, op := range opcodes {
		if strings.HasPrefix(rest, op.Marker()) {
			return op, true
		}
	}
	return 0, false
}

func (d *decoder) next() (Instruction, error) {
	start, line, col := d.pos, d.line, d.col

	op, ok := d.marker()
	if !ok {
		r, size := utf8.DecodeRuneInString(d.src[d.pos:])
		if r == utf8.RuneError && size <= 1 {
			return Instruction{}, d.errorf(start, line, col, "", "invalid UTF-8")
		}
		return Instruction{}, d.errorf(start, line, col, string(r), "unknown symbol")
	}
	d.advance(len(op.Marker()))

	numStart, numCol := d.pos, d.col
	end := d.pos
	if end < len(d.src) && (d.src[end] == '-' || d.src[end] == '+') {
		end++
	}
	digits := end
	for end < len(d.src) && d.src[end] >= '0' && d.src[end] <= '9' {
		end++
	}
	if end == digits {
		return Instruction{}, d.errorf(numStart, line, numCol, d.src[start:end],
			"missing operand for %s", op)
	}
	lit := d.src[numStart:end]
	d.advance(end - numStart)

	n, err := strconv.ParseInt(lit, 10, 64)
	if err != nil {
		return Instruction{}, d.errorf(numStart, line, numCol, lit,
			"operand out of range for %s", op)
	}
	inst := Instruction{Op: op, N: n}
	if inst.N < 0 && !op.Signed() {
		return Instruction{}, d.errorf(numStart, line, numCol, lit,
			"operand out of range for %s", op)
	}
	return inst, nil
}
