// Package msgproto implements the wire message format grammar shared by
// the firmware and the host: how a format string like "move x=%u f=%c"
// decomposes into typed parameters, and how large its encoded form can
// get on the wire.
package msgproto

import (
	"fmt"
	"strings"
)

// Wire protocol geometry. These values are part of the host/firmware
// contract and must not change between builds.
const (
	MessageMin         = 5  // smallest valid message block (header + trailer)
	MessageMax         = 64 // largest message block on the wire
	MessageHeaderSize  = 2
	MessageTrailerSize = 3
)

// ParamType describes one wire parameter type.
type ParamType struct {
	Name      string // firmware-side enum spelling, e.g. "PT_uint32"
	MaxLength int    // worst-case encoded size in bytes
	ExtraArg  bool   // buffer types pass an implicit length argument
}

// Parameter types, keyed below by their printf-style conversion.
// Integers use a variable-length encoding, so the max length exceeds
// the nominal type width by one byte per started 7-bit group.
var (
	PTUint32        = &ParamType{Name: "PT_uint32", MaxLength: 5}
	PTInt32         = &ParamType{Name: "PT_int32", MaxLength: 5}
	PTUint16        = &ParamType{Name: "PT_uint16", MaxLength: 3}
	PTInt16         = &ParamType{Name: "PT_int16", MaxLength: 3}
	PTByte          = &ParamType{Name: "PT_byte", MaxLength: 2}
	PTString        = &ParamType{Name: "PT_string", MaxLength: MessageMax}
	PTProgmemBuffer = &ParamType{Name: "PT_progmem_buffer", MaxLength: MessageMax, ExtraArg: true}
	PTBuffer        = &ParamType{Name: "PT_buffer", MaxLength: MessageMax, ExtraArg: true}
)

var conversions = map[string]*ParamType{
	"%u":   PTUint32,
	"%i":   PTInt32,
	"%hu":  PTUint16,
	"%hi":  PTInt16,
	"%c":   PTByte,
	"%s":   PTString,
	"%.*s": PTProgmemBuffer,
	"%*s":  PTBuffer,
}

// longest conversion is "%.*s"
const maxConversionLen = 4

// MessageFormat is one parsed message: its name, the raw format string,
// the assigned numeric identifier and the ordered parameter types.
type MessageFormat struct {
	Name       string
	Format     string
	ID         int
	ParamTypes []*ParamType
}

// ParseFormat parses a named message format of the form
// "name param=%u other=%c".
func ParseFormat(id int, format string) (*MessageFormat, error) {
	fields := strings.Fields(format)
	if len(fields) == 0 {
		return nil, fmt.Errorf("empty message format")
	}
	m := &MessageFormat{
		Name:   fields[0],
		Format: format,
		ID:     id,
	}
	for _, f := range fields[1:] {
		name, conv, ok := strings.Cut(f, "=")
		if !ok || name == "" {
			return nil, fmt.Errorf("message %q: malformed parameter %q", m.Name, f)
		}
		t, ok := conversions[conv]
		if !ok {
			return nil, fmt.Errorf("message %q: unknown conversion %q", m.Name, conv)
		}
		m.ParamTypes = append(m.ParamTypes, t)
	}
	return m, nil
}

// OutputName is the pseudo message name shared by all anonymous debug
// output formats.
const OutputName = "#output"

// ParseOutput parses an anonymous output format, where conversions are
// embedded in free text, e.g. "shutdown reason %hu at %u". "%%" is a
// literal percent sign.
func ParseOutput(id int, format string) (*MessageFormat, error) {
	m := &MessageFormat{
		Name:   OutputName,
		Format: format,
		ID:     id,
	}
	rest := format
	for {
		pos := strings.IndexByte(rest, '%')
		if pos < 0 {
			break
		}
		if pos+1 < len(rest) && rest[pos+1] == '%' {
			rest = rest[pos+2:]
			continue
		}
		t := matchConversion(rest[pos:])
		if t == nil {
			return nil, fmt.Errorf("output %q: unknown conversion at %q", format, rest[pos:])
		}
		m.ParamTypes = append(m.ParamTypes, t)
		rest = rest[pos+1:]
	}
	return m, nil
}

// matchConversion finds the longest conversion at the start of s.
func matchConversion(s string) *ParamType {
	end := maxConversionLen
	if end > len(s) {
		end = len(s)
	}
	for n := end; n >= 2; n-- {
		if t, ok := conversions[s[:n]]; ok {
			return t
		}
	}
	return nil
}

// NumParams returns the wire parameter count.
func (m *MessageFormat) NumParams() int {
	return len(m.ParamTypes)
}

// NumArgs returns the handler argument slot count. Buffer parameters
// occupy two slots: one for the length, one for the data pointer.
func (m *MessageFormat) NumArgs() int {
	n := len(m.ParamTypes)
	for _, t := range m.ParamTypes {
		if t.ExtraArg {
			n++
		}
	}
	return n
}

// MaxEncodedSize returns the largest possible encoded size of this
// message on the wire, capped at the protocol block limit.
func (m *MessageFormat) MaxEncodedSize() int {
	size := MessageMin + 1
	for _, t := range m.ParamTypes {
		size += t.MaxLength
	}
	if size > MessageMax {
		return MessageMax
	}
	return size
}
