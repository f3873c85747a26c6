/*
Package ferrors defines the error kinds shared by the font toolkit's
sub-packages: container decoding, font record parsing and registry
operations all surface (or swallow) one of these.

License

Governed by a 3-Clause BSD license. License file may be found in the root
folder of this module.
*/
package ferrors

import "fmt"

// UnsupportedContainer is returned when the magic bytes at the start of a
// buffer do not match any known font container format.
type UnsupportedContainer struct {
	Magic [4]byte
}

func (e *UnsupportedContainer) Error() string {
	return fmt.Sprintf("unsupported font container, magic = %q", e.Magic[:])
}

// CorruptContainer is returned when a container's internal structure
// (offsets, lengths, checksums) is inconsistent.
type CorruptContainer struct {
	Reason string
}

func (e *CorruptContainer) Error() string {
	return fmt.Sprintf("corrupt font container: %s", e.Reason)
}

// ParseError is returned when an individual OpenType table fails to parse.
type ParseError struct {
	Table string
	Cause error
}

func (e *ParseError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("parse error in table %q: %v", e.Table, e.Cause)
	}
	return fmt.Sprintf("parse error in table %q", e.Table)
}

func (e *ParseError) Unwrap() error { return e.Cause }

// MissingTable is returned when a required OpenType table is absent.
type MissingTable struct {
	Table string
}

func (e *MissingTable) Error() string {
	return fmt.Sprintf("missing required table %q", e.Table)
}

// IoError wraps a filesystem access failure encountered during directory
// search or cache spill/reload.
type IoError struct {
	Path  string
	Cause error
}

func (e *IoError) Error() string {
	return fmt.Sprintf("io error at %q: %v", e.Path, e.Cause)
}

func (e *IoError) Unwrap() error { return e.Cause }

// NotFound is returned when a registered font's evicted data has neither a
// spill file nor a source path to reload from.
type NotFound struct {
	Family string
}

func (e *NotFound) Error() string {
	if e.Family == "" {
		return "no matching font found"
	}
	return fmt.Sprintf("no matching font found for family %q", e.Family)
}
