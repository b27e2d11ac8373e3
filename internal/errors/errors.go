// Package errors defines the typed failure kinds produced by the resource
// coordinator, format codecs, rules engine and operations tracker.
package errors

import (
	"fmt"
	"time"
)

// Kind classifies a failure the way callers need to branch on it.
type Kind string

const (
	KindNotInitialized Kind = "not_initialized"
	KindNotFound       Kind = "not_found"
	KindCorruptIndex   Kind = "corrupt_index"
	KindCorruptArchive Kind = "corrupt_archive"
	KindArchiveMissing Kind = "archive_missing"
	KindDecode         Kind = "decode_error"
	KindEncode         Kind = "encode_error"
	KindIO             Kind = "io_error"
	KindRulesParse     Kind = "rules_parse_error"
	KindLedgerWrite    Kind = "ledger_write_error"
)

// ResourceError is returned by the archive reader and resource coordinator.
type ResourceError struct {
	Kind       Kind
	Name       string
	Type       string
	Operation  string
	Underlying error
	Timestamp  time.Time
}

// NewResourceError creates a ResourceError, stamping the current time.
func NewResourceError(kind Kind, op, name, typ string, err error) *ResourceError {
	return &ResourceError{
		Kind:       kind,
		Name:       name,
		Type:       typ,
		Operation:  op,
		Underlying: err,
		Timestamp:  time.Now(),
	}
}

func (e *ResourceError) Error() string {
	if e.Name != "" {
		return fmt.Sprintf("%s: %s %s(%s.%s): %v", e.Kind, e.Operation, e.Name, e.Name, e.Type, e.Underlying)
	}
	return fmt.Sprintf("%s: %s: %v", e.Kind, e.Operation, e.Underlying)
}

func (e *ResourceError) Unwrap() error { return e.Underlying }

// CodecError is returned by a format codec's extract/upscale/assemble step.
type CodecError struct {
	Kind       Kind // KindDecode or KindEncode
	Codec      string
	Resource   string
	Stage      string // "extract", "upscale", "assemble"
	Underlying error
	Timestamp  time.Time
}

func NewCodecError(kind Kind, codec, resource, stage string, err error) *CodecError {
	return &CodecError{
		Kind:       kind,
		Codec:      codec,
		Resource:   resource,
		Stage:      stage,
		Underlying: err,
		Timestamp:  time.Now(),
	}
}

func (e *CodecError) Error() string {
	return fmt.Sprintf("%s codec %s failed for %s during %s: %v", e.Kind, e.Codec, e.Resource, e.Stage, e.Underlying)
}

func (e *CodecError) Unwrap() error { return e.Underlying }

// IOError wraps a filesystem failure with the path that triggered it.
type IOError struct {
	Op         string
	Path       string
	Underlying error
	Timestamp  time.Time
}

func NewIOError(op, path string, err error) *IOError {
	return &IOError{Op: op, Path: path, Underlying: err, Timestamp: time.Now()}
}

func (e *IOError) Error() string {
	return fmt.Sprintf("io_error: %s %s: %v", e.Op, e.Path, e.Underlying)
}

func (e *IOError) Unwrap() error { return e.Underlying }

// RulesParseError wraps a malformed rules JSON file; rules loading is
// fail-open, so this is logged and the file is skipped, never fatal.
type RulesParseError struct {
	Path       string
	Underlying error
	Timestamp  time.Time
}

func NewRulesParseError(path string, err error) *RulesParseError {
	return &RulesParseError{Path: path, Underlying: err, Timestamp: time.Now()}
}

func (e *RulesParseError) Error() string {
	return fmt.Sprintf("rules_parse_error: %s: %v", e.Path, e.Underlying)
}

func (e *RulesParseError) Unwrap() error { return e.Underlying }

// LedgerWriteError wraps a failure to open or append to the operations
// ledger. Logged once; the tracker keeps operating without cached skips.
type LedgerWriteError struct {
	Path       string
	Underlying error
	Timestamp  time.Time
}

func NewLedgerWriteError(path string, err error) *LedgerWriteError {
	return &LedgerWriteError{Path: path, Underlying: err, Timestamp: time.Now()}
}

func (e *LedgerWriteError) Error() string {
	return fmt.Sprintf("ledger_write_error: %s: %v", e.Path, e.Underlying)
}

func (e *LedgerWriteError) Unwrap() error { return e.Underlying }

// NotInitializedError marks use of a service before its lifecycle start.
type NotInitializedError struct {
	Service string
}

func NewNotInitializedError(service string) *NotInitializedError {
	return &NotInitializedError{Service: service}
}

func (e *NotInitializedError) Error() string {
	return fmt.Sprintf("not_initialized: %s used before initialization", e.Service)
}
