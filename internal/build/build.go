// Package build runs one generation pass: it replays the build request
// stream into the accumulators, finalizes identifier assignment and
// assembles the generated source and the protocol dictionary.
package build

import (
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/benspawn/klipper/internal/accum"
	"github.com/benspawn/klipper/internal/codegen"
	"github.com/benspawn/klipper/internal/identify"
	"github.com/benspawn/klipper/internal/registry"
	"github.com/benspawn/klipper/internal/request"
)

// UnknownDirectiveError reports a record kind with no registered
// handler, usually a version mismatch between the firmware source and
// this tool.
type UnknownDirectiveError struct {
	Directive string
}

func (e *UnknownDirectiveError) Error() string {
	return fmt.Sprintf("unknown build time command %q", e.Directive)
}

// generator is one slice of the output: it contributes dictionary
// fields and a section of the generated source.
type generator interface {
	UpdateSchema(doc map[string]any) error
	GenerateCode() (string, error)
}

// Pipeline owns the accumulators for one build invocation and the
// directive dispatch table built over them. A pipeline is used once:
// replay the records, then generate.
type Pipeline struct {
	reg        *registry.Registry
	tables     *codegen.Tables
	callLists  *accum.CallLists
	statics    *accum.StaticStrings
	constants  *accum.Constants
	generators []generator
	dispatch   map[string]func(request.Record) error
}

// New creates a pipeline seeded with the baseline message set.
func New(baseline map[int]string) *Pipeline {
	reg := registry.New(baseline)
	p := &Pipeline{
		reg:       reg,
		tables:    codegen.NewTables(reg, registry.NewTypeTable()),
		callLists: accum.NewCallLists(),
		statics:   accum.NewStaticStrings(),
		constants: accum.NewConstants(),
	}
	// Section order in the generated file follows this list.
	p.generators = []generator{p.callLists, p.statics, p.constants, p.tables}
	p.dispatch = map[string]func(request.Record) error{
		"_DECL_CALLLIST":   p.callLists.Declare,
		"_DECL_STATIC_STR": p.statics.Declare,
		"_DECL_CONSTANT":   p.constants.Declare,
		"_DECL_COMMAND":    p.declCommand,
		"_DECL_ENCODER":    p.declEncoder,
		"_DECL_OUTPUT":     p.declOutput,
	}
	return p
}

// declCommand handles "_DECL_COMMAND funcname flags msgname param=%u ...".
// The message format starts at the message name token.
func (p *Pipeline) declCommand(r request.Record) error {
	fields, format, err := r.Split(2)
	if err != nil {
		return err
	}
	handler, flags := fields[0], fields[1]
	nameFields := strings.Fields(format)
	if len(nameFields) == 0 {
		return fmt.Errorf("%s: missing message name", r.Kind)
	}
	return p.reg.DeclareCommand(handler, flags, nameFields[0], format)
}

func (p *Pipeline) declEncoder(r request.Record) error {
	return p.reg.DeclareEncoder(r.Text())
}

func (p *Pipeline) declOutput(r request.Record) error {
	return p.reg.DeclareOutput(r.Text())
}

// Run replays the record stream strictly sequentially. Any error is
// fatal; a partially replayed registry is never used.
func (p *Pipeline) Run(records []request.Record) error {
	for _, r := range records {
		fn, ok := p.dispatch[r.Kind]
		if !ok {
			return &UnknownDirectiveError{Directive: r.Kind}
		}
		if err := fn(r); err != nil {
			return err
		}
	}
	return nil
}

// Generate finalizes identifier assignment and produces the full
// generated source plus the protocol dictionary. Nothing is written to
// disk here; callers write the assembled artifacts atomically.
func (p *Pipeline) Generate(version, toolVersions string) (string, *identify.Blob, error) {
	p.reg.AssignIdentifiers()

	sections := make([]string, 0, len(p.generators)+2)
	sections = append(sections, codegen.FileHeader)
	for _, g := range p.generators {
		code, err := g.GenerateCode()
		if err != nil {
			return "", nil, err
		}
		sections = append(sections, code)
	}

	contributors := make([]identify.SchemaUpdater, 0, len(p.generators))
	for _, g := range p.generators {
		contributors = append(contributors, g)
	}
	blob, err := identify.Build(contributors, version, toolVersions)
	if err != nil {
		return "", nil, err
	}
	log.Debug().Int("compressed", len(blob.Compressed)).Int("raw", len(blob.Raw)).
		Msg("dictionary assembled")
	icode, err := blob.GenerateCode()
	if err != nil {
		return "", nil, err
	}
	sections = append(sections, icode)

	return strings.Join(sections, ""), blob, nil
}
