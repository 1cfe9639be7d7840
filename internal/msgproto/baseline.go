package msgproto

import (
	"fmt"
	"strconv"

	"github.com/BurntSushi/toml"
)

// DefaultMessages are the identifier assignments every build starts
// from. Hosts built against older firmware rely on these, so an
// identifier listed here is never reassigned.
var DefaultMessages = map[int]string{
	0: "identify_response offset=%u data=%.*s",
	1: "identify offset=%u count=%c",
}

type baselineFile struct {
	Messages map[string]string `toml:"messages"`
}

// LoadBaseline reads a baseline message set from a TOML file of the form
//
//	[messages]
//	0 = "identify_response offset=%u data=%.*s"
//	1 = "identify offset=%u count=%c"
//
// replacing the compiled-in default set.
func LoadBaseline(path string) (map[int]string, error) {
	var f baselineFile
	if _, err := toml.DecodeFile(path, &f); err != nil {
		return nil, fmt.Errorf("baseline %s: %w", path, err)
	}
	if len(f.Messages) == 0 {
		return nil, fmt.Errorf("baseline %s: no [messages] table", path)
	}
	baseline := make(map[int]string, len(f.Messages))
	for key, format := range f.Messages {
		id, err := strconv.Atoi(key)
		if err != nil || id < 0 {
			return nil, fmt.Errorf("baseline %s: invalid message id %q", path, key)
		}
		if _, err := ParseFormat(id, format); err != nil {
			return nil, fmt.Errorf("baseline %s: %w", path, err)
		}
		baseline[id] = format
	}
	return baseline, nil
}
