package main

import (
	"errors"
	"fmt"
	"path/filepath"
)

var allStages = []string{"extract", "clean", "pair", "format", "stats"}

type Config struct {
	Sources []string
	BaseDir string

	RulesPath   string
	Render      bool
	NoFollow    bool
	LLMFallback bool
	Model       string

	History    bool
	Permissive bool
	SingleLine bool

	FromStage string
	OnlyStage string

	Pretty    bool
	Overwrite bool
	LogMode   string
}

func (c Config) Validate() error {
	if c.BaseDir == "" {
		return errors.New("missing -base-dir")
	}
	if c.OnlyStage != "" && c.FromStage != "" {
		return errors.New("use only one of -only-stage or -from-stage")
	}
	for _, s := range []string{c.OnlyStage, c.FromStage} {
		if s != "" && !isStage(s) {
			return fmt.Errorf("unknown stage %q", s)
		}
	}
	if runsStage(c, "extract") && len(c.Sources) == 0 {
		return errors.New("missing source (file path, directory or URL)")
	}
	if c.LLMFallback && c.Model == "" {
		return errors.New("missing -model")
	}
	return nil
}

func defaultConfig() Config {
	return Config{
		BaseDir: filepath.FromSlash("data/distill"),
		Model:   "gpt-5-mini",
		LogMode: "dev",
	}
}

func isStage(s string) bool {
	for _, st := range allStages {
		if st == s {
			return true
		}
	}
	return false
}
