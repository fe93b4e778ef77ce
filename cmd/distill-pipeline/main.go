package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/exec"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

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

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	paths := newStagePaths(cfg.BaseDir)
	for _, stage := range selectStages(cfg) {
		if !cfg.Overwrite && stage != "stats" && fileutils.FileExists(paths.output(stage)) {
			fmt.Fprintf(os.Stdout, "skip %s: %s already exists\n", stage, paths.output(stage))
			continue
		}
		args, err := stageArgs(cfg, stage, paths)
		if err != nil {
			fmt.Fprintln(os.Stderr, err.Error())
			os.Exit(2)
		}
		if err := runGo(ctx, args...); err != nil {
			os.Exit(1)
		}

		// Keep the rules next to the outputs they produced.
		if stage == "extract" && cfg.RulesPath != "" {
			dst := filepath.Join(cfg.BaseDir, "rules.yaml")
			copied, err := fileutils.CopyFileIfExists(cfg.RulesPath, dst, true)
			if err != nil {
				fmt.Fprintln(os.Stderr, "failed copying rules:", err.Error())
				os.Exit(1)
			}
			if copied {
				fmt.Fprintln(os.Stdout, "copied rules:", dst)
			}
		}
	}
}

func parseFlags(fs *flag.FlagSet, args []string) (Config, error) {
	cfg := defaultConfig()
	fs.SetOutput(os.Stderr)

	fs.StringVar(&cfg.BaseDir, "base-dir", cfg.BaseDir, "Directory for result.json, result.clean.json, pairs.json and train.txt")
	fs.StringVar(&cfg.RulesPath, "rules", cfg.RulesPath, "Optional YAML rules file for the extract and clean stages")
	fs.BoolVar(&cfg.Render, "render", false, "Fetch URL sources with headless Chrome")
	fs.BoolVar(&cfg.NoFollow, "no-follow", false, "Do not fetch share links found inside JSON sources")
	fs.BoolVar(&cfg.LLMFallback, "llm-fallback", false, "Segment marker-less text with an OpenAI model (uses OPENAI_API_KEY)")
	fs.StringVar(&cfg.Model, "model", cfg.Model, "OpenAI model for -llm-fallback")
	fs.BoolVar(&cfg.History, "history", false, "Fold earlier turns into each pair as context")
	fs.BoolVar(&cfg.Permissive, "permissive", false, "Drop system turns and advance one message per step when pairing")
	fs.BoolVar(&cfg.SingleLine, "single-line", false, "Escape newlines in train.txt so each record is one line")
	fs.StringVar(&cfg.FromStage, "from-stage", "", "Start at stage: "+strings.Join(allStages, "|"))
	fs.StringVar(&cfg.OnlyStage, "only-stage", "", "Run only one stage: "+strings.Join(allStages, "|"))
	fs.BoolVar(&cfg.Pretty, "pretty", cfg.Pretty, "Pretty-print JSON outputs")
	fs.BoolVar(&cfg.Overwrite, "overwrite", cfg.Overwrite, "Rerun stages whose output already exists")
	fs.StringVar(&cfg.LogMode, "log", cfg.LogMode, "Log format for the stages: dev, prod or off")

	fs.Usage = func() {
		fmt.Fprintf(fs.Output(), "Usage:\n  %s [flags] <source>...\n\nFlags:\n", filepath.Base(os.Args[0]))
		fs.PrintDefaults()
		fmt.Fprintln(fs.Output(), "\nExamples:")
		fmt.Fprintln(fs.Output(), "  go run ./cmd/distill-pipeline -base-dir data/distill exports/")
		fmt.Fprintln(fs.Output(), "  go run ./cmd/distill-pipeline -base-dir data/distill -from-stage pair -history -overwrite")
	}

	rest := args
	for {
		if err := fs.Parse(rest); err != nil {
			return Config{}, err
		}
		rest = fs.Args()
		if len(rest) == 0 {
			break
		}
		cfg.Sources = append(cfg.Sources, rest[0])
		rest = rest[1:]
	}

	cfg.BaseDir = filepath.Clean(cfg.BaseDir)
	cfg.FromStage = strings.ToLower(strings.TrimSpace(cfg.FromStage))
	cfg.OnlyStage = strings.ToLower(strings.TrimSpace(cfg.OnlyStage))
	if cfg.RulesPath != "" {
		cfg.RulesPath = filepath.Clean(cfg.RulesPath)
	}
	return cfg, nil
}

type stagePaths struct {
	Results string
	Cleaned string
	Pairs   string
	Text    string
}

func newStagePaths(base string) stagePaths {
	return stagePaths{
		Results: filepath.Join(base, "result.json"),
		Cleaned: filepath.Join(base, "result.clean.json"),
		Pairs:   filepath.Join(base, "pairs.json"),
		Text:    filepath.Join(base, "train.txt"),
	}
}

func (p stagePaths) output(stage string) string {
	switch stage {
	case "extract":
		return p.Results
	case "clean":
		return p.Cleaned
	case "pair":
		return p.Pairs
	case "format":
		return p.Text
	}
	return ""
}

func selectStages(cfg Config) []string {
	if cfg.OnlyStage != "" {
		return []string{cfg.OnlyStage}
	}
	if cfg.FromStage != "" {
		return stagesFrom(allStages, cfg.FromStage)
	}
	return allStages
}

func runsStage(cfg Config, stage string) bool {
	for _, s := range selectStages(cfg) {
		if s == stage {
			return true
		}
	}
	return false
}

// stageArgs returns the `go run` arguments for one stage.
func stageArgs(cfg Config, stage string, p stagePaths) ([]string, error) {
	var args []string
	switch stage {
	case "extract":
		args = []string{"run", "./cmd/chat-extract", "-out", p.Results, "-log", cfg.LogMode}
		if cfg.RulesPath != "" {
			args = append(args, "-rules", cfg.RulesPath)
		}
		if cfg.Render {
			args = append(args, "-render")
		}
		if cfg.NoFollow {
			args = append(args, "-no-follow")
		}
		if cfg.LLMFallback {
			args = append(args, "-llm-fallback", "-model", cfg.Model)
		}
		if cfg.Pretty {
			args = append(args, "-pretty")
		}
		args = append(args, cfg.Sources...)
	case "clean":
		args = []string{"run", "./cmd/dataset-clean", "-in", p.Results, "-out", p.Cleaned, "-log", cfg.LogMode}
		if cfg.RulesPath != "" {
			args = append(args, "-rules", cfg.RulesPath)
		}
		if cfg.Pretty {
			args = append(args, "-pretty")
		}
	case "pair":
		args = []string{"run", "./cmd/pair-builder", "-in", p.Cleaned, "-out", p.Pairs}
		if cfg.History {
			args = append(args, "-history")
		}
		if cfg.Permissive {
			args = append(args, "-permissive")
		}
		if cfg.Pretty {
			args = append(args, "-pretty")
		}
	case "format":
		args = []string{"run", "./cmd/prompt-format", "-in", p.Pairs, "-out", p.Text}
		if cfg.SingleLine {
			args = append(args, "-single-line")
		}
	case "stats":
		args = []string{"run", "./cmd/dataset-stats", "-in", p.Cleaned}
	default:
		return nil, fmt.Errorf("unknown stage: %s", stage)
	}
	return args, nil
}

func runGo(ctx context.Context, args ...string) error {
	cmd := exec.CommandContext(ctx, "go", args...)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	cmd.Env = os.Environ()

	start := time.Now()
	err := cmd.Run()
	if err != nil {
		fmt.Fprintln(os.Stderr, "command failed:", "go "+strings.Join(args, " "))
		fmt.Fprintln(os.Stderr, "error:", err.Error())
		return err
	}
	fmt.Fprintln(os.Stdout, "ok:", "go "+strings.Join(args, " "), "(", time.Since(start).Round(time.Millisecond).String()+")")
	return nil
}

func stagesFrom(stages []string, from string) []string {
	from = strings.ToLower(strings.TrimSpace(from))
	for i, s := range stages {
		if s == from {
			return stages[i:]
		}
	}
	return stages
}
