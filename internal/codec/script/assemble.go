package script

import (
	"strconv"
	"strings"
)

// Assemble serializes a Script back to its token-stream binary form.
//
// Every field is always written, never omitted when zero/empty, so the
// output is positionally unambiguous and reparses to the same values
// (unlike the original C++ writer, whose per-opcode decompiled text
// dropped zero parameters; that behavior only matters for the text form,
// handled separately by Decompile).
//
// One original behavior is deliberately kept: writeTrigger never
// serializes the trigger's actual parsed object, instead emitting a
// fixed all-zero 14-field object with an empty name. Scripts produced by
// this pipeline are only ever reassembled from an AST that itself came
// from this package's own Parse, so trigger objects are always
// discarded on the way back to disk; reproducing that here keeps
// extract/upscale/assemble byte-accurate with the original tool chain.
func Assemble(s *Script) []byte {
	var b strings.Builder
	b.WriteString("SC\n")
	for _, block := range s.Blocks {
		writeBlock(&b, block)
	}
	b.WriteString("SC\n")
	return []byte(b.String())
}

func writeBlock(b *strings.Builder, block Block) {
	b.WriteString("CR\n")
	b.WriteString("CO\n")
	for _, tr := range block.Triggers {
		writeTrigger(b, tr)
	}
	b.WriteString("CO\n")
	b.WriteString("RS\n")
	for _, re := range block.Responses {
		writeResponse(b, re)
	}
	b.WriteString("RS\n")
	b.WriteString("CR\n")
}

func writeTrigger(b *strings.Builder, tr Trigger) {
	b.WriteString("TR\n")
	writeInt(b, tr.Opcode)
	b.WriteByte(' ')
	writeInt(b, tr.Param1)
	b.WriteByte(' ')
	writeInt(b, tr.Flags)
	b.WriteByte(' ')
	writeInt(b, tr.Param2)
	b.WriteByte(' ')
	writeInt(b, tr.Param3)
	b.WriteByte(' ')
	writeQuoted(b, tr.Str1)
	b.WriteByte(' ')
	writeQuoted(b, tr.Str2)
	b.WriteByte(' ')
	b.WriteString("OB\n")
	b.WriteString(zeroObjectLine)
	b.WriteString("TR\n")
}

// zeroObjectLine is the hardcoded all-zero object body the original
// writer always emits for a trigger's object (Q1).
const zeroObjectLine = "0 0 0 0 0 0 0 0 0 0 0 0 0 0 \"\"OB\n"

func writeAction(b *strings.Builder, ac Action) {
	b.WriteString("AC\n")
	writeInt(b, ac.Opcode)
	b.WriteByte(' ')
	for _, obj := range ac.Objects {
		writeObject(b, obj)
	}
	writeInt(b, ac.Param1)
	b.WriteByte(' ')
	writeInt(b, ac.Param2)
	b.WriteByte(' ')
	writeInt(b, ac.Param3)
	b.WriteByte(' ')
	writeInt(b, ac.Param4)
	b.WriteByte(' ')
	writeInt(b, ac.Param5)
	b.WriteByte(' ')
	writeQuoted(b, ac.Str1)
	b.WriteByte(' ')
	writeQuoted(b, ac.Str2)
	b.WriteByte(' ')
	b.WriteString("AC\n")
}

func writeResponse(b *strings.Builder, re Response) {
	b.WriteString("RE\n")
	writeInt(b, re.Weight)
	b.WriteByte(' ')
	for _, ac := range re.Actions {
		writeAction(b, ac)
	}
	b.WriteString("RE\n")
}

func writeObject(b *strings.Builder, obj ObjectSelector) {
	b.WriteString("OB\n")
	for _, f := range obj.Fields {
		writeInt(b, f)
		b.WriteByte(' ')
	}
	writeQuoted(b, obj.Name)
	b.WriteString("OB\n")
}

func writeInt(b *strings.Builder, v int32) {
	b.WriteString(strconv.FormatInt(int64(v), 10))
}

func writeQuoted(b *strings.Builder, s string) {
	b.WriteByte('"')
	b.WriteString(s)
	b.WriteByte('"')
}
