package script

import (
	"strconv"

	pie4kerrors "github.com/pie4k/pie4k/internal/errors"
)

// maxObjectFields bounds the tolerant object-field scan: a malformed or
// truncated object selector stops after 20 fields rather than reading
// past the end of the block.
const maxObjectFields = 20

type tokenizer struct {
	data   []byte
	offset int
}

func (t *tokenizer) atEnd() bool { return t.offset >= len(t.data) }

func (t *tokenizer) skipWhitespace() {
	for t.offset < len(t.data) {
		switch t.data[t.offset] {
		case ' ', '\t', '\r', '\n':
			t.offset++
		default:
			return
		}
	}
}

func (t *tokenizer) readToken(expected string) bool {
	t.skipWhitespace()
	if t.offset+len(expected) > len(t.data) {
		return false
	}
	if string(t.data[t.offset:t.offset+len(expected)]) != expected {
		return false
	}
	t.offset += len(expected)
	t.skipWhitespace()
	return true
}

func (t *tokenizer) readNumber() (int32, bool) {
	t.skipWhitespace()
	start := t.offset
	if t.offset < len(t.data) && t.data[t.offset] == '-' {
		t.offset++
	}
	for t.offset < len(t.data) && t.data[t.offset] >= '0' && t.data[t.offset] <= '9' {
		t.offset++
	}
	if t.offset == start || (t.offset == start+1 && t.data[start] == '-') {
		t.offset = start
		return 0, false
	}
	v, err := strconv.ParseInt(string(t.data[start:t.offset]), 10, 32)
	if err != nil {
		t.offset = start
		return 0, false
	}
	t.skipWhitespace()
	return int32(v), true
}

func (t *tokenizer) readString() (string, bool) {
	t.skipWhitespace()
	if t.offset >= len(t.data) || t.data[t.offset] != '"' {
		return "", false
	}
	t.offset++
	start := t.offset
	for t.offset < len(t.data) && t.data[t.offset] != '"' {
		t.offset++
	}
	if t.offset >= len(t.data) {
		return "", false
	}
	s := string(t.data[start:t.offset])
	t.offset++ // closing quote
	t.skipWhitespace()
	return s, true
}

func (t *tokenizer) findNextToken(token string) bool {
	for !t.atEnd() {
		if t.readToken(token) {
			return true
		}
		t.offset++
	}
	return false
}

// Parse decodes the token-stream binary form of a script into its AST.
// Parsing is strict about the block envelope (SC/CR/CO/RS/TR/AC/RE/OB)
// but tolerant of malformed inner content: a block that fails midway is
// abandoned by scanning forward to the next CR token rather than
// aborting the whole parse.
func Parse(data []byte) (*Script, error) {
	t := &tokenizer{data: data}
	if !t.readToken("SC") {
		return nil, pie4kerrors.NewCodecError(pie4kerrors.KindDecode, "script", "", "extract",
			errMissingStartToken)
	}

	s := &Script{}
	for !t.atEnd() {
		block, ok := parseBlock(t)
		if ok {
			s.Blocks = append(s.Blocks, *block)
			continue
		}
		if t.atEnd() {
			break
		}
		if t.readToken("SC") {
			break
		}
		if !seekNextBlockStart(t) {
			break
		}
	}
	return s, nil
}

// seekNextBlockStart scans forward to the next CR token without consuming
// it, so the following parseBlock call re-enters the grammar cleanly;
// it is left un-consumed rather than swallowed since parseBlock itself
// must consume its own CR.
func seekNextBlockStart(t *tokenizer) bool {
	for !t.atEnd() {
		save := t.offset
		if t.readToken("CR") {
			t.offset = save
			return true
		}
		t.offset++
	}
	return false
}

func parseBlock(t *tokenizer) (*Block, bool) {
	if !t.readToken("CR") {
		return nil, false
	}
	if !t.readToken("CO") {
		return nil, false
	}

	block := &Block{}
	for {
		trigger, ok := parseTrigger(t)
		if !ok {
			break
		}
		block.Triggers = append(block.Triggers, *trigger)
	}

	if !t.readToken("CO") {
		t.findNextToken("RS")
	} else {
		t.readToken("RS")
	}

	for {
		response, ok := parseResponse(t)
		if !ok {
			break
		}
		block.Responses = append(block.Responses, *response)
	}

	t.readToken("RS")
	t.readToken("CR")
	return block, true
}

func parseTrigger(t *tokenizer) (*Trigger, bool) {
	if !t.readToken("TR") {
		return nil, false
	}
	tr := &Trigger{}
	var ok bool
	if tr.Opcode, ok = t.readNumber(); !ok {
		return nil, false
	}
	if tr.Param1, ok = t.readNumber(); !ok {
		return nil, false
	}
	if tr.Flags, ok = t.readNumber(); !ok {
		return nil, false
	}
	if tr.Param2, ok = t.readNumber(); !ok {
		return nil, false
	}
	if tr.Param3, ok = t.readNumber(); !ok {
		return nil, false
	}
	if tr.Str1, ok = t.readString(); !ok {
		return nil, false
	}
	if tr.Str2, ok = t.readString(); !ok {
		return nil, false
	}
	obj, ok := parseObject(t)
	if !ok {
		return nil, false
	}
	tr.Object = *obj
	if !t.readToken("TR") {
		return nil, false
	}
	return tr, true
}

func parseAction(t *tokenizer) (*Action, bool) {
	if !t.readToken("AC") {
		return nil, false
	}
	ac := &Action{}
	var ok bool
	if ac.Opcode, ok = t.readNumber(); !ok {
		return nil, false
	}
	for i := 0; i < 3; i++ {
		obj, ok := parseObject(t)
		if !ok {
			return nil, false
		}
		ac.Objects[i] = *obj
	}
	if ac.Param1, ok = t.readNumber(); !ok {
		return nil, false
	}
	if ac.Param2, ok = t.readNumber(); !ok {
		return nil, false
	}
	if ac.Param3, ok = t.readNumber(); !ok {
		return nil, false
	}
	if ac.Param4, ok = t.readNumber(); !ok {
		return nil, false
	}
	if ac.Param5, ok = t.readNumber(); !ok {
		return nil, false
	}
	if ac.Str1, ok = t.readString(); !ok {
		return nil, false
	}
	if ac.Str2, ok = t.readString(); !ok {
		return nil, false
	}
	if !t.readToken("AC") {
		return nil, false
	}
	return ac, true
}

func parseResponse(t *tokenizer) (*Response, bool) {
	if !t.readToken("RE") {
		return nil, false
	}
	re := &Response{}
	var ok bool
	if re.Weight, ok = t.readNumber(); !ok {
		return nil, false
	}
	for {
		action, ok := parseAction(t)
		if !ok {
			break
		}
		re.Actions = append(re.Actions, *action)
	}
	if !t.readToken("RE") {
		return nil, false
	}
	return re, true
}

// parseObject reads an object selector's fields tolerantly: as many
// integers as are present (up to maxObjectFields, extras discarded) then
// an optional name string.
func parseObject(t *tokenizer) (*ObjectSelector, bool) {
	if !t.readToken("OB") {
		return nil, false
	}
	obj := &ObjectSelector{}
	count := 0
	for count < maxObjectFields {
		v, ok := t.readNumber()
		if !ok {
			break
		}
		if count < ObjectFieldCount {
			obj.Fields[count] = v
		}
		count++
	}
	if name, ok := t.readString(); ok {
		obj.Name = name
	}
	t.readToken("OB")
	return obj, true
}
