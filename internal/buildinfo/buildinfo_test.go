package buildinfo

import (
	"strings"
	"testing"
)

func TestReduceToolVersions(t *testing.T) {
	tests := []struct {
		name      string
		lines     []string
		wantClean bool
		wantStr   string
	}{
		{
			"clean gcc and binutils",
			[]string{
				"avr-gcc (GCC) 9.4.0",
				"GNU as (GNU Binutils) 2.34",
				"GNU ld (GNU Binutils) 2.34",
			},
			true,
			"gcc: (GCC) 9.4.0 binutils: (GNU Binutils) 2.34",
		},
		{
			"mixed binutils versions",
			[]string{
				"avr-gcc (GCC) 9.4.0",
				"GNU as (GNU Binutils) 2.34",
				"GNU ld (GNU Binutils) 2.36",
			},
			false,
			"gcc: (GCC) 9.4.0 binutils: mixed",
		},
		{
			"failed probe degrades without aborting",
			[]string{
				"avr-gcc (GCC) 9.4.0",
				"",
			},
			false,
			"gcc: (GCC) 9.4.0 binutils: ",
		},
		{
			"no probes",
			nil,
			false,
			"gcc:  binutils: ",
		},
		{
			"version without program name skipped",
			[]string{"noversionhere"},
			false,
			"gcc:  binutils: ",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clean, str := reduceToolVersions(tt.lines)
			if clean != tt.wantClean {
				t.Errorf("clean = %v, want %v", clean, tt.wantClean)
			}
			if str != tt.wantStr {
				t.Errorf("versions = %q, want %q", str, tt.wantStr)
			}
		})
	}
}

func TestBuildVersionShape(t *testing.T) {
	version := BuildVersion("-custom")
	if !strings.HasSuffix(version, "-custom") {
		t.Errorf("version %q missing extra suffix", version)
	}
	// <source>-<timestamp>-<hostname><extra>
	if parts := strings.Split(version, "-"); len(parts) < 3 {
		t.Errorf("version %q has too few components", version)
	}
}
