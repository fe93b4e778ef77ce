package main

import (
	"errors"
)

type Config struct {
	InputPath    string
	OutputPath   string
	SystemPrompt string
	SingleLine   bool
}

func (c Config) Validate() error {
	if c.InputPath == "" {
		return errors.New("missing -in")
	}
	if c.OutputPath == "" {
		return errors.New("missing -out")
	}
	return nil
}

func defaultConfig() Config {
	return Config{
		InputPath:  "pairs.json",
		OutputPath: "train.txt",
	}
}
