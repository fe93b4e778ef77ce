package main

import (
	"errors"
)

type Config struct {
	InputPath   string
	OutputPath  string
	History     bool
	Permissive  bool
	Instruction string
	Pretty      bool
}

func (c Config) Validate() error {
	if c.InputPath == "" {
		return errors.New("missing -in")
	}
	if c.OutputPath == "" {
		return errors.New("missing -out")
	}
	if c.InputPath == c.OutputPath {
		return errors.New("-in and -out must differ")
	}
	return nil
}

func defaultConfig() Config {
	return Config{
		InputPath:  "result.json",
		OutputPath: "pairs.json",
	}
}
