package main

import (
	"errors"
)

type Config struct {
	InputPath    string
	PreviewChars int
	JSON         bool
}

func (c Config) Validate() error {
	if c.InputPath == "" {
		return errors.New("missing -in")
	}
	if c.PreviewChars < 0 {
		return errors.New("-preview must be >= 0")
	}
	return nil
}

func defaultConfig() Config {
	return Config{
		InputPath:    "result.json",
		PreviewChars: 500,
	}
}
