package main

import (
	"fmt"
	"strings"
)

var recordKinds = []string{"result", "pair", "message"}

type Config struct {
	Kind       string
	OutputPath string
}

func (c Config) Validate() error {
	for _, k := range recordKinds {
		if c.Kind == k {
			return nil
		}
	}
	return fmt.Errorf("-type must be one of %s", strings.Join(recordKinds, "|"))
}

func defaultConfig() Config {
	return Config{Kind: "result"}
}
