// Package accum holds the flat build request accumulators: call lists,
// static strings and build-time constants. Each collects declarations
// during the replay pass, contributes fields to the protocol dictionary
// and emits its slice of the generated C source.
package accum

import (
	"fmt"
	"strings"

	"github.com/benspawn/klipper/internal/request"
)

// CallLists aggregates callback registrations into generated C
// functions that invoke each registered callee in turn.
type CallLists struct {
	lists map[string][]string
	order []string
}

func NewCallLists() *CallLists {
	// ctr_run_initfuncs always exists, even with no registrations
	return &CallLists{
		lists: map[string][]string{"ctr_run_initfuncs": nil},
		order: []string{"ctr_run_initfuncs"},
	}
}

// Declare handles a "_DECL_CALLLIST funcname callname" record.
func (c *CallLists) Declare(r request.Record) error {
	fields, _, err := r.Split(2)
	if err != nil {
		return err
	}
	funcName, callName := fields[0], fields[1]
	if _, ok := c.lists[funcName]; !ok {
		c.order = append(c.order, funcName)
	}
	c.lists[funcName] = append(c.lists[funcName], callName)
	return nil
}

// UpdateSchema contributes nothing; call lists are firmware-internal.
func (c *CallLists) UpdateSchema(doc map[string]any) error {
	return nil
}

// GenerateCode emits one void C function per call list. Task list
// entries poll for interrupts between callees.
func (c *CallLists) GenerateCode() (string, error) {
	var out strings.Builder
	for _, funcName := range c.order {
		var body []string
		for _, callee := range c.lists[funcName] {
			call := fmt.Sprintf("    extern void %s(void);\n    %s();", callee, callee)
			if funcName == "ctr_run_taskfuncs" {
				call = "    irq_poll();\n" + call
			}
			body = append(body, call)
		}
		out.WriteString(fmt.Sprintf("\nvoid\n%s(void)\n{\n    %s\n}\n",
			funcName, strings.TrimSpace(strings.Join(body, "\n"))))
	}
	return out.String(), nil
}
