// Package codegen emits the generated C source for the firmware: the
// shared parameter type tables, the encoder and output lookup
// functions, and the dense command dispatch table.
package codegen

import (
	"fmt"
	"sort"
	"strings"

	"github.com/benspawn/klipper/internal/msgproto"
	"github.com/benspawn/klipper/internal/registry"
)

// FileHeader opens every generated source file.
const FileHeader = `
/* DO NOT EDIT!  This is an autogenerated file.  See scripts/buildcommands.py. */

#include "board/irq.h"
#include "board/pgm.h"
#include "command.h"
#include "compiler.h"
`

// MaxCommandID is the largest identifier the dispatch table can index;
// the table size is stored in a uint8_t on the firmware side.
const MaxCommandID = 255

// CapacityError reports a table exceeding its representable bounds.
type CapacityError struct {
	What  string
	Limit int
	Got   int
}

func (e *CapacityError) Error() string {
	return fmt.Sprintf("%s %d exceeds limit %d", e.What, e.Got, e.Limit)
}

// Tables emits C source from a finalized registry. Parameter type
// signatures are interned into the shared type table as messages are
// emitted.
type Tables struct {
	reg   *registry.Registry
	types *registry.TypeTable
}

func NewTables(reg *registry.Registry, types *registry.TypeTable) *Tables {
	return &Tables{reg: reg, types: types}
}

// UpdateSchema delegates to the registry.
func (t *Tables) UpdateSchema(doc map[string]any) error {
	return t.reg.UpdateSchema(doc)
}

// GenerateCode emits the parameter tables, the response section and the
// command section, in that order so parameter tables are declared
// before use.
func (t *Tables) GenerateCode() (string, error) {
	responses, err := t.generateResponses()
	if err != nil {
		return "", err
	}
	commands, err := t.generateCommands()
	if err != nil {
		return "", err
	}
	// Params last: emission above populates the intern table.
	return t.generateParams() + responses + commands, nil
}

// fieldEntry renders the shared metadata fields of a command or encoder
// table entry.
func (t *Tables) fieldEntry(m *msgproto.MessageFormat, isCmd bool) string {
	comment := m.Format
	if m.Name == msgproto.OutputName {
		comment = "Output: " + m.Format
	}
	params := "0"
	if len(m.ParamTypes) > 0 {
		params = fmt.Sprintf("command_parameters%d", t.types.Intern(m.ParamTypes))
	}
	out := fmt.Sprintf("\n    // %s\n    .msg_id=%d,\n    .num_params=%d,\n    .param_types = %s,\n",
		comment, m.ID, m.NumParams(), params)
	if isCmd {
		out += fmt.Sprintf("    .num_args=%d,", m.NumArgs())
	} else {
		out += fmt.Sprintf("    .max_size=%d,", m.MaxEncodedSize())
	}
	return out
}

// generateResponses emits one command_encoder struct per unique
// response identifier plus the two disjoint string-compare lookup
// chains, one for named encoders and one for anonymous outputs.
func (t *Tables) generateResponses() (string, error) {
	var defs, encoderChain, outputChain []string
	emitted := make(map[int]bool)
	for _, e := range t.reg.Encoders() {
		id, ok := t.reg.MessageID(e.Format)
		if !ok {
			return "", fmt.Errorf("no identifier for format %q", e.Format)
		}
		if emitted[id] {
			continue
		}
		emitted[id] = true

		var m *msgproto.MessageFormat
		var err error
		lookup := fmt.Sprintf("    if (__builtin_strcmp(str, \"%s\") == 0)\n"+
			"        return &command_encoder_%d;\n", e.Format, id)
		if e.Name == "" {
			m, err = msgproto.ParseOutput(id, e.Format)
			outputChain = append(outputChain, lookup)
		} else {
			m, err = msgproto.ParseFormat(id, e.Format)
			encoderChain = append(encoderChain, lookup)
		}
		if err != nil {
			return "", err
		}
		defs = append(defs, fmt.Sprintf(
			"const struct command_encoder command_encoder_%d PROGMEM = {    %s\n};\n",
			id, t.fieldEntry(m, false)))
	}
	code := fmt.Sprintf(`
%s

const __always_inline struct command_encoder *
ctr_lookup_encoder(const char *str)
{
    %s
    return NULL;
}

const __always_inline struct command_encoder *
ctr_lookup_output(const char *str)
{
    %s
    return NULL;
}
`,
		strings.TrimSpace(strings.Join(defs, "")),
		strings.TrimSpace(strings.Join(encoderChain, "")),
		strings.TrimSpace(strings.Join(outputChain, "")))
	return code, nil
}

// generateCommands emits the extern handler declarations and the dense
// dispatch table indexed by command identifier. Unused identifier slots
// get empty placeholder entries so the firmware can index the table
// directly.
func (t *Tables) generateCommands() (string, error) {
	cmdByID := make(map[int]registry.Command)
	maxID := -1
	for _, cmd := range t.reg.Commands() {
		format, ok := t.reg.Format(cmd.MsgName)
		if !ok {
			return "", fmt.Errorf("no format for command %q", cmd.MsgName)
		}
		id, ok := t.reg.MessageID(format)
		if !ok {
			return "", fmt.Errorf("no identifier for command %q", cmd.MsgName)
		}
		if prev, ok := cmdByID[id]; ok && prev.Handler != cmd.Handler {
			return "", &registry.ConflictError{What: "command", Name: cmd.MsgName}
		}
		cmdByID[id] = cmd
		if id > maxID {
			maxID = id
		}
	}
	if maxID > MaxCommandID {
		return "", &CapacityError{What: "command identifier", Limit: MaxCommandID, Got: maxID}
	}

	var index strings.Builder
	externs := make(map[string]bool)
	for id := 0; id <= maxID; id++ {
		cmd, ok := cmdByID[id]
		if !ok {
			index.WriteString(" {\n},")
			continue
		}
		externs[cmd.Handler] = true
		format, _ := t.reg.Format(cmd.MsgName)
		m, err := msgproto.ParseFormat(id, format)
		if err != nil {
			return "", err
		}
		index.WriteString(fmt.Sprintf(" {%s\n    .flags=%s,\n    .func=%s\n},",
			t.fieldEntry(m, true), cmd.Flags, cmd.Handler))
	}

	names := make([]string, 0, len(externs))
	for name := range externs {
		names = append(names, name)
	}
	sort.Strings(names)
	var decls []string
	for _, name := range names {
		decls = append(decls, fmt.Sprintf("extern void %s(uint32_t*);", name))
	}

	code := fmt.Sprintf(`
%s

const struct command_parser command_index[] PROGMEM = {
%s
};

const uint8_t command_index_size PROGMEM = ARRAY_SIZE(command_index);
`,
		strings.Join(decls, "\n"), strings.TrimSpace(index.String()))
	return code, nil
}

// generateParams emits one static byte array per interned parameter
// type signature, in index order.
func (t *Tables) generateParams() string {
	lines := []string{""}
	for i, sig := range t.types.Signatures() {
		names := make([]string, len(sig))
		for j, pt := range sig {
			names[j] = pt.Name
		}
		lines = append(lines, fmt.Sprintf(
			"static const uint8_t command_parameters%d[] PROGMEM = {\n    %s };",
			i, strings.Join(names, ", ")))
	}
	lines = append(lines, "")
	return strings.Join(lines, "\n")
}
