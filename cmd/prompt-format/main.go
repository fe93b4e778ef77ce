package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/theimaginaryfoundation/chat-distill/transcript"
	"github.com/theimaginaryfoundation/chat-distill/transcript/fileutils"
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

	if _, err := run(cfg, os.Stdout); err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(1)
	}
}

func parseFlags(fs *flag.FlagSet, args []string) (Config, error) {
	cfg := defaultConfig()
	fs.SetOutput(os.Stderr)

	fs.StringVar(&cfg.InputPath, "in", cfg.InputPath, "Training pair JSON array")
	fs.StringVar(&cfg.OutputPath, "out", cfg.OutputPath, "Path to write the formatted text")
	fs.StringVar(&cfg.SystemPrompt, "system", cfg.SystemPrompt, "System turn text (default \""+transcript.DefaultSystemPrompt+"\")")
	fs.BoolVar(&cfg.SingleLine, "single-line", false, "Escape newlines so every record is exactly one line")

	fs.Usage = func() {
		fmt.Fprintf(fs.Output(), "Usage:\n  %s [flags]\n\nFlags:\n", filepath.Base(os.Args[0]))
		fs.PrintDefaults()
		fmt.Fprintln(fs.Output(), "\nExample:")
		fmt.Fprintln(fs.Output(), "  go run ./cmd/prompt-format -in data/train.json -out data/train.txt")
	}

	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}
	cfg.InputPath = filepath.Clean(cfg.InputPath)
	cfg.OutputPath = filepath.Clean(cfg.OutputPath)
	return cfg, nil
}

// formatPairs renders one Llama 3 record per pair, each terminated by a newline.
func formatPairs(pairs []transcript.TrainingPair, system string, singleLine bool) string {
	var sb strings.Builder
	for _, p := range pairs {
		rec := transcript.FormatLlama3(p, system)
		if singleLine {
			rec = fileutils.EscapeNewlines(rec)
		}
		sb.WriteString(rec)
		sb.WriteByte('\n')
	}
	return sb.String()
}

func run(cfg Config, stdout io.Writer) (int, error) {
	pairs, err := transcript.LoadPairs(cfg.InputPath)
	if err != nil {
		return 0, err
	}
	text := formatPairs(pairs, cfg.SystemPrompt, cfg.SingleLine)
	if err := fileutils.WriteFileAtomicSameDir(cfg.OutputPath, []byte(text), 0o644); err != nil {
		return 0, fmt.Errorf("write %s: %w", cfg.OutputPath, err)
	}
	fmt.Fprintf(stdout, "pairs=%d bytes_written=%d out=%s\n", len(pairs), len(text), cfg.OutputPath)
	return len(pairs), nil
}
