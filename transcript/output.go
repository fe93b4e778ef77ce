package transcript

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/theimaginaryfoundation/chat-distill/transcript/fileutils"
)

// WriteResults writes the extraction result array. An empty set is written as [].
func WriteResults(path string, results []ExtractionResult, pretty bool) error {
	if results == nil {
		results = []ExtractionResult{}
	}
	for i := range results {
		if results[i].Messages == nil {
			results[i].Messages = []Message{}
		}
	}
	if err := fileutils.WriteJSONFileAtomic(path, results, pretty); err != nil {
		return fmt.Errorf("WriteResults: %w", err)
	}
	return nil
}

// WritePairs writes the training pair array. An empty set is written as [].
func WritePairs(path string, pairs []TrainingPair, pretty bool) error {
	if pairs == nil {
		pairs = []TrainingPair{}
	}
	if err := fileutils.WriteJSONFileAtomic(path, pairs, pretty); err != nil {
		return fmt.Errorf("WritePairs: %w", err)
	}
	return nil
}

// WriteMessages writes a bare message array.
func WriteMessages(path string, msgs []Message, pretty bool) error {
	if msgs == nil {
		msgs = []Message{}
	}
	if err := fileutils.WriteJSONFileAtomic(path, msgs, pretty); err != nil {
		return fmt.Errorf("WriteMessages: %w", err)
	}
	return nil
}

// LoadResults reads an extraction result array. A bare message array is accepted too and
// comes back as one result named after the file.
func LoadResults(path string) ([]ExtractionResult, bool, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, false, fmt.Errorf("LoadResults: %w", err)
	}
	results, bare, err := decodeResults(b, filepath.Base(path))
	if err != nil {
		return nil, false, fmt.Errorf("LoadResults: %s: %w", path, err)
	}
	return results, bare, nil
}

func decodeResults(b []byte, name string) ([]ExtractionResult, bool, error) {
	var raw []json.RawMessage
	if err := json.Unmarshal(b, &raw); err != nil {
		return nil, false, err
	}
	if len(raw) == 0 {
		return []ExtractionResult{}, false, nil
	}

	var first map[string]json.RawMessage
	if err := json.Unmarshal(raw[0], &first); err != nil {
		return nil, false, fmt.Errorf("first element is not an object: %w", err)
	}
	if _, ok := first["messages"]; ok {
		var results []ExtractionResult
		if err := json.Unmarshal(b, &results); err != nil {
			return nil, false, err
		}
		return results, false, nil
	}
	if _, ok := first["role"]; ok {
		var msgs []Message
		if err := json.Unmarshal(b, &msgs); err != nil {
			return nil, false, err
		}
		return []ExtractionResult{{File: name, Messages: msgs}}, true, nil
	}
	return nil, false, errors.New("array holds neither extraction results nor messages")
}

// LoadPairs reads a training pair array.
func LoadPairs(path string) ([]TrainingPair, error) {
	pairs, err := fileutils.ReadJSONFile[[]TrainingPair](path)
	if err != nil {
		return nil, fmt.Errorf("LoadPairs: %w", err)
	}
	if pairs == nil {
		pairs = []TrainingPair{}
	}
	return pairs, nil
}
