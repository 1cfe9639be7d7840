// Package registry collects the wire protocol declarations of a build:
// commands the firmware dispatches, encoders it transmits with, and
// anonymous debug output formats. It enforces that every message name
// is bound to exactly one format string and assigns each distinct
// format a stable numeric identifier.
package registry

import (
	"fmt"
	"sort"
	"strings"
)

// ConflictError reports two declarations that disagree about the same
// name. Any conflict aborts the build; an ambiguous protocol must never
// reach a firmware image.
type ConflictError struct {
	What string // "command", "message", "constant"
	Name string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("conflicting definition for %s %q", e.What, e.Name)
}

// Command is a message the firmware receives and dispatches to a
// handler function.
type Command struct {
	Handler string
	Flags   string
	MsgName string
}

// Encoder is a message the firmware transmits: either a named encoder
// or an anonymous output format (Name empty).
type Encoder struct {
	Name   string
	Format string
}

// Registry accumulates declarations during the single replay pass and
// is finalized exactly once by AssignIdentifiers. Nothing is mutated
// after finalization.
type Registry struct {
	commands       map[string]Command
	encoders       []Encoder
	outputSeen     map[string]bool
	messagesByName map[string]string // message name -> format string
	msgToID        map[string]int    // format string -> identifier
	assigned       bool
}

// New creates a registry seeded with the baseline message set. Baseline
// identifiers are immutable; they are never reassigned even if the
// message is not referenced by this build.
func New(baseline map[int]string) *Registry {
	r := &Registry{
		commands:       make(map[string]Command),
		outputSeen:     make(map[string]bool),
		messagesByName: make(map[string]string),
		msgToID:        make(map[string]int, len(baseline)),
	}
	for id, format := range baseline {
		r.msgToID[format] = id
		if fields := strings.Fields(format); len(fields) > 0 {
			r.messagesByName[fields[0]] = format
		}
	}
	return r
}

// DeclareCommand registers a dispatchable command. Redeclaring the same
// command identically is a no-op; differing handler, flags or format is
// a conflict.
func (r *Registry) DeclareCommand(handler, flags, msgName, format string) error {
	if prev, ok := r.commands[msgName]; ok {
		if prev.Handler != handler || prev.Flags != flags {
			return &ConflictError{What: "command", Name: msgName}
		}
	}
	if prev, ok := r.messagesByName[msgName]; ok && prev != format {
		return &ConflictError{What: "command", Name: msgName}
	}
	r.commands[msgName] = Command{Handler: handler, Flags: flags, MsgName: msgName}
	r.messagesByName[msgName] = format
	return nil
}

// DeclareEncoder registers a named response message. The message name
// is the first token of the format string.
func (r *Registry) DeclareEncoder(format string) error {
	fields := strings.Fields(format)
	if len(fields) == 0 {
		return fmt.Errorf("empty encoder format")
	}
	name := fields[0]
	if prev, ok := r.messagesByName[name]; ok && prev != format {
		return &ConflictError{What: "message", Name: name}
	}
	r.messagesByName[name] = format
	r.encoders = append(r.encoders, Encoder{Name: name, Format: format})
	return nil
}

// DeclareOutput registers an anonymous debug output format, keyed by
// the literal format string. Duplicates collapse to one entry.
func (r *Registry) DeclareOutput(format string) error {
	if format == "" {
		return fmt.Errorf("empty output format")
	}
	if r.outputSeen[format] {
		return nil
	}
	r.outputSeen[format] = true
	r.encoders = append(r.encoders, Encoder{Format: format})
	return nil
}

// formatFor resolves a referenced name to its format string. Anonymous
// outputs are keyed by their own format.
func (r *Registry) formatFor(name string) string {
	if format, ok := r.messagesByName[name]; ok {
		return format
	}
	return name
}

// AssignIdentifiers allocates identifiers for every message referenced
// by a command, encoder or output whose format is not already in the
// baseline mapping. Names are visited in lexical order so identical
// inputs always produce identical identifiers regardless of the replay
// order of unordered declarations.
func (r *Registry) AssignIdentifiers() {
	if r.assigned {
		return
	}
	names := make([]string, 0, len(r.commands)+len(r.encoders))
	for name := range r.commands {
		names = append(names, name)
	}
	for _, e := range r.encoders {
		if e.Name != "" {
			names = append(names, e.Name)
		} else {
			names = append(names, e.Format)
		}
	}
	sort.Strings(names)

	nextID := 0
	for _, id := range r.msgToID {
		if id >= nextID {
			nextID = id + 1
		}
	}
	for _, name := range names {
		format := r.formatFor(name)
		if _, ok := r.msgToID[format]; !ok {
			r.msgToID[format] = nextID
			nextID++
		}
	}
	r.assigned = true
}

// MessageID returns the identifier assigned to a format string. Only
// valid after AssignIdentifiers.
func (r *Registry) MessageID(format string) (int, bool) {
	id, ok := r.msgToID[format]
	return id, ok
}

// Commands returns the declared commands sorted by message name.
func (r *Registry) Commands() []Command {
	cmds := make([]Command, 0, len(r.commands))
	for _, c := range r.commands {
		cmds = append(cmds, c)
	}
	sort.Slice(cmds, func(i, j int) bool { return cmds[i].MsgName < cmds[j].MsgName })
	return cmds
}

// Encoders returns the declared encoders and outputs in declaration
// order.
func (r *Registry) Encoders() []Encoder {
	return r.encoders
}

// Format returns the format string bound to a message name.
func (r *Registry) Format(msgName string) (string, bool) {
	format, ok := r.messagesByName[msgName]
	return format, ok
}

// CommandIDs returns the sorted identifiers classified as commands.
func (r *Registry) CommandIDs() []int {
	var ids []int
	seen := make(map[int]bool)
	for name := range r.commands {
		id := r.msgToID[r.formatFor(name)]
		if !seen[id] {
			seen[id] = true
			ids = append(ids, id)
		}
	}
	sort.Ints(ids)
	return ids
}

// ResponseIDs returns the sorted identifiers classified as responses:
// every known named message that is not a command, plus the anonymous
// output formats. Disjoint from CommandIDs by construction.
func (r *Registry) ResponseIDs() []int {
	var ids []int
	seen := make(map[int]bool)
	add := func(format string) {
		id := r.msgToID[format]
		if !seen[id] {
			seen[id] = true
			ids = append(ids, id)
		}
	}
	for name, format := range r.messagesByName {
		if _, ok := r.commands[name]; ok {
			continue
		}
		add(format)
	}
	for _, e := range r.encoders {
		if e.Name == "" {
			add(e.Format)
		}
	}
	sort.Ints(ids)
	return ids
}

// UpdateSchema contributes the message identifier mapping and the
// command/response partition to the protocol dictionary.
func (r *Registry) UpdateSchema(doc map[string]any) error {
	if !r.assigned {
		return fmt.Errorf("registry not finalized")
	}
	messages := make(map[int]string, len(r.msgToID))
	for format, id := range r.msgToID {
		messages[id] = format
	}
	doc["messages"] = messages
	doc["commands"] = r.CommandIDs()
	doc["responses"] = r.ResponseIDs()
	return nil
}
