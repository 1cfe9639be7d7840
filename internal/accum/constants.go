package accum

import (
	"strings"

	"github.com/benspawn/klipper/internal/registry"
	"github.com/benspawn/klipper/internal/request"
)

// Constants collects named build-time constants for the protocol
// dictionary. Constants generate no firmware code; they only describe
// the build to the host.
type Constants struct {
	values map[string]string
}

func NewConstants() *Constants {
	return &Constants{values: make(map[string]string)}
}

// Declare handles a "_DECL_CONSTANT name value" record. Surrounding
// double quotes on the value are stripped. Redefining a constant with a
// different value is a conflict.
func (c *Constants) Declare(r request.Record) error {
	fields, _, err := r.Split(2)
	if err != nil {
		return err
	}
	name, value := fields[0], fields[1]
	if strings.HasPrefix(value, "\"") && strings.HasSuffix(value, "\"") && len(value) >= 2 {
		value = value[1 : len(value)-1]
	}
	if prev, ok := c.values[name]; ok && prev != value {
		return &registry.ConflictError{What: "constant", Name: name}
	}
	c.values[name] = value
	return nil
}

// UpdateSchema contributes the constants under the dictionary's
// "config" key.
func (c *Constants) UpdateSchema(doc map[string]any) error {
	doc["config"] = c.values
	return nil
}

// GenerateCode emits nothing; constants live only in the dictionary.
func (c *Constants) GenerateCode() (string, error) {
	return "", nil
}
