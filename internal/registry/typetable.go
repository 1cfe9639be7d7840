package registry

import (
	"strings"

	"github.com/benspawn/klipper/internal/msgproto"
)

// TypeTable interns parameter type signatures so messages sharing the
// same ordered type sequence share one emitted parameter table. Indices
// are assigned in first-seen order, counting from zero.
type TypeTable struct {
	index map[string]int
	sigs  [][]*msgproto.ParamType
}

func NewTypeTable() *TypeTable {
	return &TypeTable{index: make(map[string]int)}
}

// Intern returns the table index for the given ordered signature,
// allocating a new slot on first sight. Signatures compare
// structurally, by type name sequence.
func (t *TypeTable) Intern(types []*msgproto.ParamType) int {
	names := make([]string, len(types))
	for i, pt := range types {
		names[i] = pt.Name
	}
	key := strings.Join(names, ",")
	if idx, ok := t.index[key]; ok {
		return idx
	}
	idx := len(t.sigs)
	t.index[key] = idx
	t.sigs = append(t.sigs, types)
	return idx
}

// Signatures returns the interned signatures in index order.
func (t *TypeTable) Signatures() [][]*msgproto.ParamType {
	return t.sigs
}
