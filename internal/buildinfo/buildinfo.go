// Package buildinfo derives the version metadata embedded in the
// protocol dictionary: the source control version, a per-build version
// string and a fingerprint of the compiler toolchain. All probes are
// advisory; a failed probe degrades the version string instead of
// failing the build.
package buildinfo

import (
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
)

// checkOutput runs a command line and returns its stdout, or the empty
// string on any failure.
func checkOutput(cmdline string) string {
	log.Debug().Str("cmd", cmdline).Msg("running probe")
	args := strings.Fields(cmdline)
	if len(args) == 0 {
		return ""
	}
	out, err := exec.Command(args[0], args[1:]...).Output()
	if err != nil {
		log.Debug().Err(err).Str("cmd", cmdline).Msg("probe failed")
		return ""
	}
	log.Debug().Str("cmd", cmdline).Str("output", string(out)).Msg("probe output")
	return string(out)
}

// GitVersion returns "git describe" output for the working directory,
// or the empty string outside a git checkout.
func GitVersion() string {
	if _, err := os.Stat(".git"); err != nil {
		log.Debug().Msg("no .git file/directory found")
		return ""
	}
	ver := strings.TrimSpace(checkOutput("git describe --always --tags --long --dirty"))
	log.Debug().Str("version", ver).Msg("git version")
	return ver
}

// BuildVersion composes the per-build version string:
// <git>-<timestamp>-<hostname><extra>.
func BuildVersion(extra string) string {
	version := GitVersion()
	if version == "" {
		version = "?"
	}
	btime := time.Now().Format("20060102_150405")
	hostname, err := os.Hostname()
	if err != nil {
		hostname = "?"
	}
	return version + "-" + btime + "-" + hostname + extra
}

// ToolVersions probes each semicolon-separated tool for its version and
// reduces the results into a gcc/binutils fingerprint. The boolean
// reports whether every probe succeeded with consistent versions.
func ToolVersions(tools string) (bool, string) {
	var lines []string
	for _, tool := range strings.Split(tools, ";") {
		tool = strings.TrimSpace(tool)
		if tool == "" {
			continue
		}
		verstr := checkOutput(tool + " --version")
		line, _, _ := strings.Cut(verstr, "\n")
		lines = append(lines, line)
	}
	return reduceToolVersions(lines)
}

// reduceToolVersions classifies each "--version" first line as compiler
// or binutils and folds the versions together, degrading to "mixed" on
// disagreement.
func reduceToolVersions(lines []string) (bool, string) {
	versions := []string{"", ""}
	success := 0
	for _, verstr := range lines {
		isBinutils := 0
		if strings.HasPrefix(verstr, "GNU ") {
			isBinutils = 1
			verstr = verstr[4:]
		}
		prog, ver, ok := strings.Cut(verstr, " ")
		if !ok || prog == "" || ver == "" {
			continue
		}
		if versions[isBinutils] != "" && versions[isBinutils] != ver {
			log.Debug().Str("have", versions[isBinutils]).Str("got", ver).
				Msg("mixed tool version")
			versions[isBinutils] = "mixed"
			continue
		}
		versions[isBinutils] = ver
		success++
	}
	cleanBuild := versions[0] != "" && versions[1] != "" && success == len(lines)
	return cleanBuild, "gcc: " + versions[0] + " binutils: " + versions[1]
}
