package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/invopop/jsonschema"

	"github.com/theimaginaryfoundation/chat-distill/transcript"
	"github.com/theimaginaryfoundation/chat-distill/transcript/fileutils"
	"github.com/theimaginaryfoundation/chat-distill/transcript/provider"
)

func main() {
	cfg, err := parseFlags(flag.CommandLine, os.Args[1:])
	if err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(2)
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(2)
	}

	if err := run(cfg, os.Stdout); err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(1)
	}
}

func parseFlags(fs *flag.FlagSet, args []string) (Config, error) {
	cfg := defaultConfig()
	fs.SetOutput(os.Stderr)

	fs.StringVar(&cfg.Kind, "type", cfg.Kind, "Output file to describe: "+strings.Join(recordKinds, "|"))
	fs.StringVar(&cfg.OutputPath, "out", cfg.OutputPath, "Write the schema to this path instead of stdout")

	fs.Usage = func() {
		fmt.Fprintf(fs.Output(), "Usage:\n  %s [flags]\n\nFlags:\n", filepath.Base(os.Args[0]))
		fs.PrintDefaults()
		fmt.Fprintln(fs.Output(), "\nExample:")
		fmt.Fprintln(fs.Output(), "  go run ./cmd/output-schema -type pair -out schemas/pairs.schema.json")
	}

	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}
	cfg.Kind = strings.ToLower(strings.TrimSpace(cfg.Kind))
	if cfg.OutputPath != "" {
		cfg.OutputPath = filepath.Clean(cfg.OutputPath)
	}
	return cfg, nil
}

// schemaFor describes the top-level array each output file holds.
func schemaFor(kind string) (*jsonschema.Schema, error) {
	var s *jsonschema.Schema
	switch kind {
	case "result":
		s = provider.Reflect[[]transcript.ExtractionResult]()
		s.Title = "Extraction results"
	case "pair":
		s = provider.Reflect[[]transcript.TrainingPair]()
		s.Title = "Training pairs"
	case "message":
		s = provider.Reflect[[]transcript.Message]()
		s.Title = "Messages"
	default:
		return nil, fmt.Errorf("unknown record type %q", kind)
	}
	return s, nil
}

func run(cfg Config, stdout io.Writer) error {
	s, err := schemaFor(cfg.Kind)
	if err != nil {
		return err
	}
	if cfg.OutputPath != "" {
		if err := fileutils.WriteJSONFileAtomic(cfg.OutputPath, s, true); err != nil {
			return err
		}
		fmt.Fprintf(stdout, "type=%s out=%s\n", cfg.Kind, cfg.OutputPath)
		return nil
	}
	b, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal schema: %w", err)
	}
	_, err = fmt.Fprintln(stdout, string(b))
	return err
}
