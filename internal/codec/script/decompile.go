package script

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// coordinateBracket matches a "[x.y]" coordinate literal.
var coordinateBracket = regexp.MustCompile(`\[(-?\d+)\.(-?\d+)\]`)

// Decompile renders a Script as editable text: one IF/THEN/END block per
// Block, one RESPONSE per Response. Coordinate-carrying opcodes
// (49/254/272) print their point as a "[x.y]" literal so a human editor
// (or the upscale step) can see and adjust it directly; every other
// opcode prints its full parameter list so nothing is lost (the original
// decompiler only printed non-zero parameters per opcode, which loses
// information this pipeline needs to round-trip).
func Decompile(s *Script, ids *IDSTables) string {
	var b strings.Builder
	for i, block := range s.Blocks {
		fmt.Fprintf(&b, "// Block %d\n", i+1)
		b.WriteString("IF\n")
		for _, tr := range block.Triggers {
			b.WriteString("  ")
			b.WriteString(decompileTrigger(tr, ids))
			b.WriteByte('\n')
		}
		b.WriteString("THEN\n")
		for _, re := range block.Responses {
			fmt.Fprintf(&b, "  RESPONSE #%d\n", re.Weight)
			for _, ac := range re.Actions {
				b.WriteString("    ")
				b.WriteString(decompileAction(ac, ids))
				b.WriteByte('\n')
			}
		}
		b.WriteString("END\n\n")
	}
	return b.String()
}

func decompileTrigger(tr Trigger, ids *IDSTables) string {
	name := ids.Name("trigger", tr.Opcode)
	if tr.Flags&1 != 0 {
		name = "NOT(" + name + ")"
	}
	return fmt.Sprintf("%s(%d,%d,%d,%q,%q)", name, tr.Param1, tr.Param2, tr.Param3, tr.Str1, tr.Str2)
}

func decompileAction(ac Action, ids *IDSTables) string {
	name := ids.Name("action", ac.Opcode)
	if IsCoordinateOpcode(ac.Opcode) {
		bracket := fmt.Sprintf("[%d.%d]", ac.Param2, ac.Param3)
		if ac.Opcode == 272 {
			return fmt.Sprintf("%s(%q,%s)", name, ac.Str1, bracket)
		}
		return fmt.Sprintf("%s(%s,%d)", name, bracket, ac.Param1)
	}
	return fmt.Sprintf("%s(%d,%d,%d,%d,%d,%q,%q)", name,
		ac.Param1, ac.Param2, ac.Param3, ac.Param4, ac.Param5, ac.Str1, ac.Str2)
}

// UpscaleText rewrites every "[x.y]" coordinate literal in text to
// "[x*k.y*k]", leaving everything else untouched.
func UpscaleText(text string, k int) string {
	return coordinateBracket.ReplaceAllStringFunc(text, func(match string) string {
		groups := coordinateBracket.FindStringSubmatch(match)
		x, _ := strconv.Atoi(groups[1])
		y, _ := strconv.Atoi(groups[2])
		return fmt.Sprintf("[%d.%d]", x*k, y*k)
	})
}

// ApplyUpscaledCoordinates overlays coordinates read back from text onto
// the resident AST's coordinate-opcode actions, in the order they
// appear. Only Param2/Param3 of those actions are touched; every other
// field of the script (including the trigger objects Assemble discards)
// is left exactly as Parse produced it, so Assemble reproduces the
// original binary structure except for the upscaled points.
func ApplyUpscaledCoordinates(s *Script, text string) {
	matches := coordinateBracket.FindAllStringSubmatch(text, -1)
	idx := 0
	for bi := range s.Blocks {
		block := &s.Blocks[bi]
		for ri := range block.Responses {
			response := &block.Responses[ri]
			for ai := range response.Actions {
				action := &response.Actions[ai]
				if !IsCoordinateOpcode(action.Opcode) {
					continue
				}
				if idx >= len(matches) {
					return
				}
				x, _ := strconv.Atoi(matches[idx][1])
				y, _ := strconv.Atoi(matches[idx][2])
				action.Param2 = int32(x)
				action.Param3 = int32(y)
				idx++
			}
		}
	}
}
