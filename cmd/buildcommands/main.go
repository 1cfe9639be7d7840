// buildcommands turns the build request records collected from compiled
// firmware objects into generated C source (command dispatch and
// encoder tables) and the compressed protocol dictionary embedded in
// the image.
package main

import (
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/benspawn/klipper/internal/build"
	"github.com/benspawn/klipper/internal/buildinfo"
	"github.com/benspawn/klipper/internal/msgproto"
	"github.com/benspawn/klipper/internal/request"
)

var (
	extra        string
	dictPath     string
	tools        string
	baselinePath string
	verbose      bool
)

var rootCmd = &cobra.Command{
	Use:   "buildcommands <request-file> <output.c>",
	Short: "Generate firmware command tables and the protocol dictionary",
	Long: `buildcommands reads the null-delimited build request records emitted
by a first compilation pass, assigns wire identifiers to every declared
message, and writes the generated C source: parameter type tables,
encoder lookups, the command dispatch table and the compressed protocol
dictionary.`,
	Args:          cobra.ExactArgs(2),
	RunE:          run,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.Flags().StringVarP(&extra, "extra", "e", "", "extra version string to append to version")
	rootCmd.Flags().StringVarP(&dictPath, "dict", "d", "", "file to write the mcu protocol dictionary")
	rootCmd.Flags().StringVarP(&tools, "tools", "t", "", "semicolon separated build programs to extract versions from")
	rootCmd.Flags().StringVar(&baselinePath, "baseline", "", "TOML file overriding the baseline message set")
	rootCmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "enable debug messages")
}

func run(cmd *cobra.Command, args []string) error {
	level := zerolog.WarnLevel
	if verbose {
		level = zerolog.DebugLevel
	}
	log.Logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).
		Level(level).With().Timestamp().Logger()

	baseline := msgproto.DefaultMessages
	if baselinePath != "" {
		var err error
		baseline, err = msgproto.LoadBaseline(baselinePath)
		if err != nil {
			return err
		}
	}

	data, err := os.ReadFile(args[0])
	if err != nil {
		return err
	}
	pipeline := build.New(baseline)
	if err := pipeline.Run(request.Parse(data)); err != nil {
		return err
	}

	_, toolVersions := buildinfo.ToolVersions(tools)
	version := buildinfo.BuildVersion(extra)
	fmt.Printf("Version: %s\n", version)

	source, blob, err := pipeline.Generate(version, toolVersions)
	if err != nil {
		return err
	}

	// Write only after the full artifacts are assembled; a fatal error
	// must not leave a half-written output file behind.
	if err := os.WriteFile(args[1], []byte(source), 0o644); err != nil {
		return err
	}
	if dictPath != "" {
		if err := os.WriteFile(dictPath, blob.Raw, 0o644); err != nil {
			return err
		}
	}
	return nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
