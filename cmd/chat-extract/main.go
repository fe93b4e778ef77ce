package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"go.uber.org/zap"

	"github.com/theimaginaryfoundation/chat-distill/transcript"
	"github.com/theimaginaryfoundation/chat-distill/transcript/logger"
	"github.com/theimaginaryfoundation/chat-distill/transcript/provider"
	"github.com/theimaginaryfoundation/chat-distill/transcript/render"
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
	if cfg.FlushChars > 0 {
		rules.FlushChars = cfg.FlushChars
	}

	var fallback transcript.FallbackSegmenter
	if cfg.LLMFallback {
		apiKey := cfg.APIKey
		if apiKey == "" {
			apiKey = os.Getenv("OPENAI_API_KEY")
		}
		if apiKey == "" {
			fmt.Fprintln(os.Stderr, "missing OPENAI_API_KEY (or pass -api-key)")
			os.Exit(2)
		}
		client := openai.NewClient(option.WithAPIKey(apiKey))
		fallback = openAISegmenter{api: provider.NewResponsesAPI(&client), model: cfg.Model}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	p := transcript.New(transcript.Config{
		Rules:       rules,
		Fetcher:     newFetcher(cfg, log),
		FollowLinks: !cfg.NoFollow,
		PairOptions: transcript.PairOptions{
			Permissive:  cfg.Permissive,
			History:     cfg.History,
			Instruction: cfg.Instruction,
		},
		Fallback: fallback,
		Logger:   log,
	})

	sum, err := run(ctx, cfg, p, log, os.Stdout, os.Stderr)
	if err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(1)
	}
	if sum.Extracted == 0 {
		os.Exit(1)
	}
}

func parseFlags(fs *flag.FlagSet, args []string) (Config, error) {
	cfg := defaultConfig()
	fs.SetOutput(os.Stderr)

	fs.StringVar(&cfg.OutputPath, "out", cfg.OutputPath, "Path to write the extraction result JSON array")
	fs.StringVar(&cfg.PairsOut, "pairs-out", cfg.PairsOut, "Optional path to also write instruction/input/output training pairs")
	fs.BoolVar(&cfg.History, "history", false, "Fold earlier turns into each pair as context")
	fs.BoolVar(&cfg.Permissive, "permissive", false, "Drop system turns and advance one message per step when pairing")
	fs.StringVar(&cfg.Instruction, "instruction", cfg.Instruction, "Instruction used for pairs in -history mode")
	fs.StringVar(&cfg.RulesPath, "rules", cfg.RulesPath, "Optional YAML file extending markers, header words and noise lines")
	fs.IntVar(&cfg.FlushChars, "flush-chars", cfg.FlushChars, "Flush a turn early once its buffer passes this many characters and ends a sentence (0 disables)")
	fs.BoolVar(&cfg.Render, "render", false, "Fetch URLs with headless Chrome and wait for the network to go quiet")
	fs.DurationVar(&cfg.RenderTimeout, "render-timeout", cfg.RenderTimeout, "Upper bound on page load plus quiescence wait with -render")
	fs.StringVar(&cfg.Proxy, "proxy", cfg.Proxy, "Proxy server for -render (e.g. http://127.0.0.1:8080)")
	fs.DurationVar(&cfg.FetchTimeout, "fetch-timeout", cfg.FetchTimeout, "HTTP timeout for plain URL fetches")
	fs.BoolVar(&cfg.NoFollow, "no-follow", false, "Do not fetch share links found inside JSON sources")
	fs.BoolVar(&cfg.LLMFallback, "llm-fallback", false, "Ask an OpenAI model to segment text that has no role markers")
	fs.StringVar(&cfg.Model, "model", cfg.Model, "OpenAI model used by -llm-fallback")
	fs.StringVar(&cfg.APIKey, "api-key", "", "OpenAI API key (overrides OPENAI_API_KEY env var)")
	fs.BoolVar(&cfg.Pretty, "pretty", false, "Pretty-print output JSON")
	fs.StringVar(&cfg.LogMode, "log", cfg.LogMode, "Log format: dev, prod or off")
	fs.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "Log level: debug, info, warn or error")

	fs.Usage = func() {
		fmt.Fprintf(fs.Output(), "Usage:\n  %s [flags] <source>...\n\nSources are file paths, directories of .json/.html/.txt/.md files, or http(s) URLs.\n\nFlags:\n", filepath.Base(os.Args[0]))
		fs.PrintDefaults()
		fmt.Fprintln(fs.Output(), "\nExamples:")
		fmt.Fprintln(fs.Output(), "  go run ./cmd/chat-extract -out result.json exports/chat.json")
		fmt.Fprintln(fs.Output(), "  go run ./cmd/chat-extract -render -pairs-out pairs.json https://example.com/share/abc")
	}

	// Sources may be interleaved with flags.
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

	cfg.OutputPath = filepath.Clean(cfg.OutputPath)
	if cfg.PairsOut != "" {
		cfg.PairsOut = filepath.Clean(cfg.PairsOut)
	}
	return cfg, nil
}

func newFetcher(cfg Config, log *zap.Logger) transcript.Fetcher {
	if cfg.Render {
		return &render.Renderer{
			Proxy:   cfg.Proxy,
			Timeout: cfg.RenderTimeout,
			Logger:  log,
		}
	}
	return transcript.NewHTTPFetcher(cfg.FetchTimeout)
}

type runSummary struct {
	Sources    int
	Extracted  int
	Messages   int
	Pairs      int
	Duplicates int
	Dropped    int
	Undetected int
	NeedsFetch int
	Unreadable int
	Failed     int
}

// run processes every source, writes the outputs and prints the counts line. Per-source
// failures are logged and counted; only output write failures are returned.
func run(ctx context.Context, cfg Config, p *transcript.Pipeline, log *zap.Logger, stdout, stderr io.Writer) (runSummary, error) {
	if log == nil {
		log = zap.NewNop()
	}
	sources, err := expandSources(cfg.Sources)
	if err != nil {
		return runSummary{}, err
	}
	sum := runSummary{Sources: len(sources)}
	results := make([]transcript.ExtractionResult, 0, len(sources))
	pairs := []transcript.TrainingPair{}

	for _, src := range sources {
		if err := ctx.Err(); err != nil {
			return sum, err
		}
		rep, err := p.Run(ctx, src)
		if err != nil {
			switch {
			case errors.Is(err, transcript.ErrSourceUnreadable):
				sum.Unreadable++
				log.Error("source unreadable", zap.String("source", src), zap.Error(err))
			case errors.Is(err, transcript.ErrNeedsFetch):
				sum.NeedsFetch++
				log.Warn("source is a link; rerun without -no-follow", zap.String("source", src), zap.Error(err))
			case errors.Is(err, transcript.ErrFormatUndetected):
				sum.Undetected++
				log.Warn("no conversation structure found", zap.String("source", src), zap.Error(err))
			default:
				sum.Failed++
				log.Error("extraction failed", zap.String("source", src), zap.Error(err))
			}
			continue
		}

		sum.Extracted++
		sum.Messages += len(rep.Result.Messages)
		sum.Pairs += len(rep.Pairs)
		sum.Duplicates += rep.Clean.Duplicates
		sum.Dropped += rep.Clean.NoiseDropped + rep.Clean.LowConfidence
		results = append(results, rep.Result)
		pairs = append(pairs, rep.Pairs...)

		log.Info("extracted",
			zap.String("source", src),
			zap.Stringer("kind", rep.Kind),
			zap.String("via", rep.Via),
			zap.Int("messages", len(rep.Result.Messages)),
			zap.Int("pairs", len(rep.Pairs)),
		)
	}

	if err := transcript.WriteResults(cfg.OutputPath, results, cfg.Pretty); err != nil {
		return sum, err
	}
	if cfg.PairsOut != "" {
		if err := transcript.WritePairs(cfg.PairsOut, pairs, cfg.Pretty); err != nil {
			return sum, err
		}
	}

	fmt.Fprintf(stdout, "sources=%d extracted=%d messages=%d pairs=%d duplicates=%d dropped=%d undetected=%d needs_fetch=%d unreadable=%d failed=%d out=%s\n",
		sum.Sources, sum.Extracted, sum.Messages, sum.Pairs, sum.Duplicates, sum.Dropped,
		sum.Undetected, sum.NeedsFetch, sum.Unreadable, sum.Failed, cfg.OutputPath)
	if cfg.PairsOut != "" {
		fmt.Fprintf(stdout, "pairs_out=%s\n", cfg.PairsOut)
	}
	if sum.Messages == 0 {
		fmt.Fprintf(stderr, "WARNING: no messages extracted from %d source(s); %s is an empty array\n", sum.Sources, cfg.OutputPath)
	} else if cfg.PairsOut != "" && sum.Pairs == 0 {
		fmt.Fprintf(stderr, "WARNING: no user->assistant pairs found; %s is an empty array\n", cfg.PairsOut)
	}
	return sum, nil
}
