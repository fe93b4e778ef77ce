package main

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/theimaginaryfoundation/chat-distill/transcript"
)

var sourceExts = map[string]bool{
	".json": true,
	".html": true,
	".htm":  true,
	".txt":  true,
	".md":   true,
}

// expandSources replaces each directory with the source files directly inside it, sorted.
// URLs and missing paths are passed through so the pipeline reports them.
func expandSources(sources []string) ([]string, error) {
	var out []string
	for _, src := range sources {
		if transcript.IsURL(src) {
			out = append(out, src)
			continue
		}
		fi, err := os.Stat(src)
		if err != nil || !fi.IsDir() {
			out = append(out, src)
			continue
		}

		entries, err := os.ReadDir(src)
		if err != nil {
			return nil, fmt.Errorf("read source dir: %w", err)
		}
		var files []string
		for _, e := range entries {
			if e.IsDir() {
				continue
			}
			name := e.Name()
			if !sourceExts[strings.ToLower(filepath.Ext(name))] {
				continue
			}
			info, err := e.Info()
			if err != nil {
				return nil, fmt.Errorf("read dir entry info %s: %w", name, err)
			}
			if info.Mode()&fs.ModeType != 0 {
				continue
			}
			files = append(files, filepath.Join(src, name))
		}
		sort.Strings(files)
		out = append(out, files...)
	}
	return out, nil
}
