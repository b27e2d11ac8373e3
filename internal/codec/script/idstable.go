package script

import (
	"bufio"
	"strconv"
	"strings"
	"sync"
)

// IDSLoader fetches the raw bytes of an IDS resource by name (typically
// the resource coordinator's GetResourceData for type IDS), returning
// ok=false when the table does not exist. It is supplied by the caller so
// this package has no dependency on the resource coordinator.
type IDSLoader func(tableName string) (data []byte, ok bool)

// IDSTables resolves opcode->name lookups, loading each named table
// lazily and caching it for the lifetime of the value.
type IDSTables struct {
	mu     sync.Mutex
	loader IDSLoader
	cache  map[string]map[int32]string
}

// NewIDSTables creates a table resolver backed by loader.
func NewIDSTables(loader IDSLoader) *IDSTables {
	return &IDSTables{loader: loader, cache: make(map[string]map[int32]string)}
}

// Name resolves opcode within table, loading the table on first use.
// Falls back to "<table>_<opcode>" when the table or entry is absent.
func (t *IDSTables) Name(table string, opcode int32) string {
	entries := t.entries(table)
	if name, ok := entries[opcode]; ok {
		return name
	}
	return table + "_" + strconv.Itoa(int(opcode))
}

func (t *IDSTables) entries(table string) map[int32]string {
	t.mu.Lock()
	defer t.mu.Unlock()
	if e, ok := t.cache[table]; ok {
		return e
	}
	entries := make(map[int32]string)
	if t.loader != nil {
		if data, ok := t.loader(table); ok {
			entries = parseIDSContent(data)
		}
	}
	t.cache[table] = entries
	return entries
}

// parseIDSContent parses one IDS file's "<id> <name>(<params>)" lines,
// accepting decimal or 0x-prefixed hex ids, and ignoring comments/blank
// lines.
func parseIDSContent(data []byte) map[int32]string {
	out := make(map[int32]string)
	scanner := bufio.NewScanner(strings.NewReader(string(data)))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") || strings.HasPrefix(line, "/") {
			continue
		}
		sp := strings.IndexByte(line, ' ')
		if sp < 0 {
			continue
		}
		idStr := strings.TrimSpace(line[:sp])
		rest := strings.TrimSpace(line[sp+1:])
		if paren := strings.IndexByte(rest, '('); paren >= 0 {
			rest = rest[:paren]
		}
		name := strings.TrimSpace(rest)

		var opcode int64
		var err error
		if strings.HasPrefix(idStr, "0x") || strings.HasPrefix(idStr, "0X") {
			opcode, err = strconv.ParseInt(idStr[2:], 16, 32)
		} else {
			opcode, err = strconv.ParseInt(idStr, 10, 32)
		}
		if err != nil {
			continue
		}
		out[int32(opcode)] = name
	}
	return out
}
