package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/theimaginaryfoundation/chat-distill/transcript"
	"github.com/theimaginaryfoundation/chat-distill/transcript/logger"
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

	log, err := logger.New(cfg.LogMode, cfg.LogLevel)
	if err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(2)
	}
	defer func() { _ = log.Sync() }()

	rules, err := transcript.LoadRules(cfg.RulesPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(2)
	}

	if _, err := run(cfg, rules, log, os.Stdout); err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(1)
	}
}

func parseFlags(fs *flag.FlagSet, args []string) (Config, error) {
	cfg := defaultConfig()
	fs.SetOutput(os.Stderr)

	fs.StringVar(&cfg.InputPath, "in", cfg.InputPath, "Extraction result JSON array, or a bare [{role, content}] message array")
	fs.StringVar(&cfg.OutputPath, "out", cfg.OutputPath, "Path to write the cleaned array (same shape as -in)")
	fs.StringVar(&cfg.RulesPath, "rules", cfg.RulesPath, "Optional YAML file extending noise lines and caps")
	fs.BoolVar(&cfg.Pretty, "pretty", false, "Pretty-print output JSON")
	fs.StringVar(&cfg.LogMode, "log", cfg.LogMode, "Log format: dev, prod or off")
	fs.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "Log level: debug, info, warn or error")

	fs.Usage = func() {
		fmt.Fprintf(fs.Output(), "Usage:\n  %s [flags]\n\nFlags:\n", filepath.Base(os.Args[0]))
		fs.PrintDefaults()
		fmt.Fprintln(fs.Output(), "\nExample:")
		fmt.Fprintln(fs.Output(), "  go run ./cmd/dataset-clean -in data/chat_safe_clean.json -out data/chat_final_clean.json")
	}

	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}
	cfg.InputPath = filepath.Clean(cfg.InputPath)
	cfg.OutputPath = filepath.Clean(cfg.OutputPath)
	return cfg, nil
}

type cleanSummary struct {
	Results  int
	Messages int
	Kept     int
	Stats    transcript.CleanStats
}

// run cleans each result independently, so dedupe never crosses documents.
func run(cfg Config, rules transcript.Rules, log *zap.Logger, stdout io.Writer) (cleanSummary, error) {
	results, bare, err := transcript.LoadResults(cfg.InputPath)
	if err != nil {
		return cleanSummary{}, err
	}

	cleaner := transcript.NewCleaner(rules, log)
	sum := cleanSummary{Results: len(results)}
	for i := range results {
		sum.Messages += len(results[i].Messages)
		kept, st := cleaner.Clean(results[i].Messages)
		results[i].Messages = kept
		sum.Kept += len(kept)
		sum.Stats.Repaired += st.Repaired
		sum.Stats.Unrepaired += st.Unrepaired
		sum.Stats.NoiseDropped += st.NoiseDropped
		sum.Stats.LowConfidence += st.LowConfidence
		sum.Stats.Duplicates += st.Duplicates
	}

	if bare {
		var msgs []transcript.Message
		if len(results) > 0 {
			msgs = results[0].Messages
		}
		err = transcript.WriteMessages(cfg.OutputPath, msgs, cfg.Pretty)
	} else {
		err = transcript.WriteResults(cfg.OutputPath, results, cfg.Pretty)
	}
	if err != nil {
		return sum, err
	}

	fmt.Fprintf(stdout, "results=%d messages=%d kept=%d repaired=%d unrepaired=%d noise_dropped=%d low_confidence=%d duplicates=%d out=%s\n",
		sum.Results, sum.Messages, sum.Kept, sum.Stats.Repaired, sum.Stats.Unrepaired,
		sum.Stats.NoiseDropped, sum.Stats.LowConfidence, sum.Stats.Duplicates, cfg.OutputPath)
	return sum, nil
}
