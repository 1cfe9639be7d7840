package accum

import (
	"fmt"
	"strings"

	"github.com/benspawn/klipper/internal/request"
)

// StaticStringMin is the first static string identifier; 0 and 1 are
// reserved by the lookup's miss path and the empty string.
const StaticStringMin = 2

// StaticStrings maps frequently transmitted strings to small integer
// identifiers, in declaration order.
type StaticStrings struct {
	strings []string
}

func NewStaticStrings() *StaticStrings {
	return &StaticStrings{}
}

// Declare handles a "_DECL_STATIC_STR text" record. The text may
// contain spaces.
func (s *StaticStrings) Declare(r request.Record) error {
	text := r.Text()
	if text == "" {
		return fmt.Errorf("%s: empty static string", r.Kind)
	}
	s.strings = append(s.strings, text)
	return nil
}

// UpdateSchema contributes the identifier-to-string mapping so the host
// can render static string references.
func (s *StaticStrings) UpdateSchema(doc map[string]any) error {
	table := make(map[int]string, len(s.strings))
	for i, str := range s.strings {
		table[i+StaticStringMin] = str
	}
	doc["static_strings"] = table
	return nil
}

// GenerateCode emits ctr_lookup_static_string, a string compare chain
// returning 0xff when the string is not in the table.
func (s *StaticStrings) GenerateCode() (string, error) {
	var chain strings.Builder
	for i, str := range s.strings {
		chain.WriteString(fmt.Sprintf("    if (__builtin_strcmp(str, \"%s\") == 0)\n"+
			"        return %d;\n", str, i+StaticStringMin))
	}
	code := fmt.Sprintf("\nuint8_t __always_inline\n"+
		"ctr_lookup_static_string(const char *str)\n"+
		"{\n    %s\n    return 0xff;\n}\n", strings.TrimSpace(chain.String()))
	return code, nil
}
