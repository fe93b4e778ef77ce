package main

import (
	"errors"
	"time"
)

type Config struct {
	Sources    []string
	OutputPath string
	PairsOut   string

	History     bool
	Permissive  bool
	Instruction string

	RulesPath  string
	FlushChars int

	Render        bool
	RenderTimeout time.Duration
	Proxy         string
	FetchTimeout  time.Duration
	NoFollow      bool

	LLMFallback bool
	Model       string
	APIKey      string

	Pretty   bool
	LogMode  string
	LogLevel string
}

func (c Config) Validate() error {
	if len(c.Sources) == 0 {
		return errors.New("missing source (file path or URL)")
	}
	if c.OutputPath == "" {
		return errors.New("missing -out")
	}
	if c.FlushChars < 0 {
		return errors.New("-flush-chars must be >= 0")
	}
	if c.RenderTimeout <= 0 {
		return errors.New("-render-timeout must be > 0")
	}
	if c.FetchTimeout <= 0 {
		return errors.New("-fetch-timeout must be > 0")
	}
	if c.LLMFallback && c.Model == "" {
		return errors.New("missing -model")
	}
	return nil
}

func defaultConfig() Config {
	return Config{
		OutputPath:    "result.json",
		RenderTimeout: 15 * time.Second,
		FetchTimeout:  30 * time.Second,
		Model:         "gpt-5-mini",
		LogMode:       "dev",
		LogLevel:      "info",
	}
}
