// Package restype is the fixed enumeration mapping a resource's integer
// type tag to its filename extension and back. It imports nothing from
// the archive package, so both the archive reader and the loose-file
// indexers can import it without an import cycle through the resource
// coordinator.
package restype

import (
	"sort"
	"strings"
)

// Type is the small integer tag drawn from the fixed enumeration.
// Values follow the documented Infinity Engine KEY resource type
// codes; PVRZ is pipeline-internal (texture pages are written directly by
// the numbering service, never looked up by name through the archive).
type Type uint16

const (
	BMP   Type = 0x0001
	MVE   Type = 0x0002
	WAV   Type = 0x0004
	WFX   Type = 0x0005
	PLT   Type = 0x0006
	BAM   Type = 0x03E8
	WED   Type = 0x03E9
	CHU   Type = 0x03EA
	TIS   Type = 0x03EB
	MOS   Type = 0x03EC
	ITM   Type = 0x03ED
	SPL   Type = 0x03EE
	BCS   Type = 0x03EF
	IDS   Type = 0x03F0
	CRE   Type = 0x03F1
	ARE   Type = 0x03F2
	DLG   Type = 0x03F3
	TwoDA Type = 0x03F4
	GAM   Type = 0x03F5
	STO   Type = 0x03F6
	EFF   Type = 0x03F8
	PVRZ  Type = 0x0999
)

var extByType = map[Type]string{
	BMP: "bmp", MVE: "mve", WAV: "wav", WFX: "wfx", PLT: "plt",
	BAM: "bam", WED: "wed", CHU: "chu", TIS: "tis", MOS: "mos",
	ITM: "itm", SPL: "spl", BCS: "bcs", IDS: "ids", CRE: "cre",
	ARE: "are", DLG: "dlg", TwoDA: "2da", GAM: "gam", STO: "sto",
	EFF: "eff", PVRZ: "pvrz",
}

var typeByExt map[string]Type

func init() {
	typeByExt = make(map[string]Type, len(extByType))
	for t, ext := range extByType {
		typeByExt[ext] = t
	}
}

// All returns every known Type, ordered by numeric value, so callers
// that iterate "every resource type this run drives" (the pipeline
// orchestrator's default Types list) get a deterministic order.
func All() []Type {
	out := make([]Type, 0, len(extByType))
	for t := range extByType {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Ext returns the lower-case extension for t, or "" if t is unknown.
func Ext(t Type) string {
	return extByType[t]
}

// ForExtension returns the Type for a (case-insensitive) extension and
// whether it is recognized. Unknown extensions are silently ignored by
// the loose-file indexers.
func ForExtension(ext string) (Type, bool) {
	t, ok := typeByExt[strings.ToLower(strings.TrimPrefix(ext, "."))]
	return t, ok
}

// String renders the type the way rule files and the CLI name it
// (upper-case extension, e.g. "2DA", "BCS").
func (t Type) String() string {
	if ext, ok := extByType[t]; ok {
		return strings.ToUpper(ext)
	}
	return "UNKNOWN"
}

// ParseName returns the Type whose upper-cased string form equals name,
// case-insensitively (used when a rule file or CLI flag names a type by
// its extension, e.g. "2da" or "BCS").
func ParseName(name string) (Type, bool) {
	upper := strings.ToUpper(name)
	for t, ext := range extByType {
		if strings.ToUpper(ext) == upper {
			return t, true
		}
	}
	return 0, false
}
