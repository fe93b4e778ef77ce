package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/theimaginaryfoundation/chat-distill/transcript"
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

	if _, err := run(cfg, os.Stdout, os.Stderr); err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(1)
	}
}

func parseFlags(fs *flag.FlagSet, args []string) (Config, error) {
	cfg := defaultConfig()
	fs.SetOutput(os.Stderr)

	fs.StringVar(&cfg.InputPath, "in", cfg.InputPath, "Extraction result JSON array, or a bare [{role, content}] message array")
	fs.StringVar(&cfg.OutputPath, "out", cfg.OutputPath, "Path to write instruction/input/output pairs")
	fs.BoolVar(&cfg.History, "history", false, "Fold earlier turns into each pair as context")
	fs.BoolVar(&cfg.Permissive, "permissive", false, "Drop system turns and advance one message per step")
	fs.StringVar(&cfg.Instruction, "instruction", cfg.Instruction, "Instruction used in -history mode")
	fs.BoolVar(&cfg.Pretty, "pretty", false, "Pretty-print output JSON")

	fs.Usage = func() {
		fmt.Fprintf(fs.Output(), "Usage:\n  %s [flags]\n\nFlags:\n", filepath.Base(os.Args[0]))
		fs.PrintDefaults()
		fmt.Fprintln(fs.Output(), "\nExample:")
		fmt.Fprintln(fs.Output(), "  go run ./cmd/pair-builder -in result.json -out data/train.json -history")
	}

	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}
	cfg.InputPath = filepath.Clean(cfg.InputPath)
	cfg.OutputPath = filepath.Clean(cfg.OutputPath)
	return cfg, nil
}

type buildSummary struct {
	Results  int
	Messages int
	Pairs    int
}

// run pairs each result on its own so no pair spans two source documents.
func run(cfg Config, stdout, stderr io.Writer) (buildSummary, error) {
	results, _, err := transcript.LoadResults(cfg.InputPath)
	if err != nil {
		return buildSummary{}, err
	}

	opts := transcript.PairOptions{
		Permissive:  cfg.Permissive,
		History:     cfg.History,
		Instruction: cfg.Instruction,
	}
	sum := buildSummary{Results: len(results)}
	pairs := []transcript.TrainingPair{}
	for _, r := range results {
		sum.Messages += len(r.Messages)
		pairs = append(pairs, transcript.BuildPairs(r.Messages, opts)...)
	}
	sum.Pairs = len(pairs)

	if err := transcript.WritePairs(cfg.OutputPath, pairs, cfg.Pretty); err != nil {
		return sum, err
	}

	fmt.Fprintf(stdout, "results=%d messages=%d pairs=%d out=%s\n", sum.Results, sum.Messages, sum.Pairs, cfg.OutputPath)
	if sum.Pairs == 0 {
		fmt.Fprintf(stderr, "WARNING: no user->assistant pairs found in %s; %s is an empty array\n", cfg.InputPath, cfg.OutputPath)
	}
	return sum, nil
}
