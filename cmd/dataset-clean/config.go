package main

import (
	"errors"
)

type Config struct {
	InputPath  string
	OutputPath string
	RulesPath  string
	Pretty     bool
	LogMode    string
	LogLevel   string
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
		InputPath:  "result.json",
		OutputPath: "result.clean.json",
		LogMode:    "dev",
		LogLevel:   "warn",
	}
}
