package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"

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

	if err := run(cfg, os.Stdout); err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(1)
	}
}

func parseFlags(fs *flag.FlagSet, args []string) (Config, error) {
	cfg := defaultConfig()
	fs.SetOutput(os.Stderr)

	fs.StringVar(&cfg.InputPath, "in", cfg.InputPath, "Extraction result JSON array, or a bare [{role, content}] message array")
	fs.IntVar(&cfg.PreviewChars, "preview", cfg.PreviewChars, "Characters of the longest message to preview per file (0 disables)")
	fs.BoolVar(&cfg.JSON, "json", false, "Print the stats as a JSON array instead of key=value lines")

	fs.Usage = func() {
		fmt.Fprintf(fs.Output(), "Usage:\n  %s [flags]\n\nFlags:\n", filepath.Base(os.Args[0]))
		fs.PrintDefaults()
		fmt.Fprintln(fs.Output(), "\nExample:")
		fmt.Fprintln(fs.Output(), "  go run ./cmd/dataset-stats -in result.json -preview 200")
	}

	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}
	cfg.InputPath = filepath.Clean(cfg.InputPath)
	return cfg, nil
}

func run(cfg Config, stdout io.Writer) error {
	results, _, err := transcript.LoadResults(cfg.InputPath)
	if err != nil {
		return err
	}
	stats := make([]transcript.ResultStats, 0, len(results))
	for _, r := range results {
		stats = append(stats, transcript.Stats(r))
	}

	if cfg.JSON {
		enc := json.NewEncoder(stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(stats)
	}
	writeStats(stdout, stats, cfg.PreviewChars)
	return nil
}

func writeStats(w io.Writer, stats []transcript.ResultStats, preview int) {
	var turns, chars int
	for _, st := range stats {
		turns += st.Turns
		chars += st.Chars
		fmt.Fprintf(w, "file=%s turns=%d user_turns=%d assistant_turns=%d chars=%d estimated_tokens=%d\n",
			st.File, st.Turns, st.UserTurns, st.AssistantTurns, st.Chars, st.EstimatedTokens)
		if preview > 0 && st.Longest != "" {
			fmt.Fprintf(w, "  longest role=%s chars=%d preview=%s\n",
				st.LongestRole, st.LongestChars, fileutils.EscapeNewlines(fileutils.Preview(st.Longest, preview)))
		}
	}
	fmt.Fprintf(w, "files=%d turns=%d chars=%d estimated_tokens=%d\n", len(stats), turns, chars, transcript.EstimateTokens(chars))
}
