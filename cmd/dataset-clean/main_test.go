package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/theimaginaryfoundation/chat-distill/transcript"
)

func TestParseFlags_Overrides(t *testing.T) {
	t.Parallel()

	fs := flag.NewFlagSet("dataset-clean", flag.ContinueOnError)
	cfg, err := parseFlags(fs, []string{
		"-in", "data/in.json",
		"-out", "data/out.json",
		"-rules", "rules.yaml",
		"-pretty",
		"-log", "off",
	})
	if err != nil {
		t.Fatalf("parseFlags: %v", err)
	}
	if cfg.InputPath != "data/in.json" || cfg.OutputPath != "data/out.json" || cfg.RulesPath != "rules.yaml" {
		t.Fatalf("cfg=%+v", cfg)
	}
	if !cfg.Pretty || cfg.LogMode != "off" {
		t.Fatalf("Pretty=%v LogMode=%q", cfg.Pretty, cfg.LogMode)
	}
}

func TestConfig_Validate(t *testing.T) {
	t.Parallel()

	if err := (Config{}).Validate(); err == nil {
		t.Fatalf("expected error")
	}
	if err := defaultConfig().Validate(); err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
}

func TestRun_BareArrayKeepsShape(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	in := filepath.Join(dir, "chat.json")
	msgs := []transcript.Message{
		{Role: transcript.RoleUser, Content: `prompts/abc",[["x"],["What is Go?",null,[1]]]`},
		{Role: transcript.RoleAssistant, Content: "A language."},
		{Role: transcript.RoleAssistant, Content: "Copy"},
		{Role: transcript.RoleUser, Content: "What is Go?"},
	}
	b, err := json.Marshal(msgs)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if err := os.WriteFile(in, b, 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	cfg := Config{InputPath: in, OutputPath: filepath.Join(dir, "clean.json")}
	var stdout bytes.Buffer
	sum, err := run(cfg, transcript.DefaultRules(), nil, &stdout)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	want := transcript.CleanStats{Repaired: 1, NoiseDropped: 1, Duplicates: 1}
	if sum.Stats != want {
		t.Fatalf("stats=%+v, want %+v", sum.Stats, want)
	}
	if sum.Messages != 4 || sum.Kept != 2 {
		t.Fatalf("messages=%d kept=%d, want 4 and 2", sum.Messages, sum.Kept)
	}
	if !strings.Contains(stdout.String(), "kept=2 repaired=1") {
		t.Fatalf("stdout=%q", stdout.String())
	}

	out, err := os.ReadFile(cfg.OutputPath)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	var got []transcript.Message
	if err := json.Unmarshal(out, &got); err != nil {
		t.Fatalf("output is not a message array: %v", err)
	}
	if len(got) != 2 || got[0].Content != "What is Go?" || got[1].Content != "A language." {
		t.Fatalf("got=%+v", got)
	}
}

func TestRun_ResultsShape(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	in := filepath.Join(dir, "result.json")
	results := []transcript.ExtractionResult{
		{File: "a", Messages: []transcript.Message{{Role: transcript.RoleUser, Content: "same"}}},
		{File: "b", Messages: []transcript.Message{{Role: transcript.RoleUser, Content: "same"}}},
	}
	if err := transcript.WriteResults(in, results, false); err != nil {
		t.Fatalf("WriteResults: %v", err)
	}

	cfg := Config{InputPath: in, OutputPath: filepath.Join(dir, "clean.json")}
	var stdout bytes.Buffer
	sum, err := run(cfg, transcript.DefaultRules(), nil, &stdout)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if sum.Kept != 2 || sum.Stats.Duplicates != 0 {
		t.Fatalf("kept=%d duplicates=%d, want 2 and 0", sum.Kept, sum.Stats.Duplicates)
	}
	got, bare, err := transcript.LoadResults(cfg.OutputPath)
	if err != nil {
		t.Fatalf("LoadResults: %v", err)
	}
	if bare || len(got) != 2 || got[1].File != "b" {
		t.Fatalf("bare=%v got=%+v", bare, got)
	}
}
