package msgproto

import (
	"os"
	"path/filepath"
	"testing"
)

func writeBaseline(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "baseline.toml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadBaseline(t *testing.T) {
	path := writeBaseline(t, `
[messages]
0 = "identify_response offset=%u data=%.*s"
1 = "identify offset=%u count=%c"
5 = "ping"
`)

	baseline, err := LoadBaseline(path)
	if err != nil {
		t.Fatalf("LoadBaseline() error: %v", err)
	}

	want := map[int]string{
		0: "identify_response offset=%u data=%.*s",
		1: "identify offset=%u count=%c",
		5: "ping",
	}
	if len(baseline) != len(want) {
		t.Fatalf("got %d messages, want %d", len(baseline), len(want))
	}
	for id, format := range want {
		if baseline[id] != format {
			t.Errorf("baseline[%d] = %q, want %q", id, baseline[id], format)
		}
	}
}

func TestLoadBaselineErrors(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"no messages table", `other = 1`},
		{"non numeric id", "[messages]\nabc = \"ping\""},
		{"negative id", "[messages]\n\"-1\" = \"ping\""},
		{"bad format", "[messages]\n0 = \"cmd x=%q\""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeBaseline(t, tt.content)
			if _, err := LoadBaseline(path); err == nil {
				t.Errorf("LoadBaseline() expected error for %s", tt.name)
			}
		})
	}
}

func TestDefaultMessagesParse(t *testing.T) {
	for id, format := range DefaultMessages {
		if _, err := ParseFormat(id, format); err != nil {
			t.Errorf("default message %d %q does not parse: %v", id, format, err)
		}
	}
}
