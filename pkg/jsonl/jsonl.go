// Package jsonl reads and writes newline-delimited JSON, one value per line,
// in the shape expected by data-warehouse bulk loaders such as BigQuery.
//
// Objects may nest other objects. Bulk loaders reject arrays inside records,
// but this package does not validate content.
package jsonl

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	json "github.com/goccy/go-json"
)

// Record is the default decoded shape of a JSONL line.
type Record = map[string]any

// ParseError reports a line that is not valid JSON.
type ParseError struct {
	Line int
	Err  error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("jsonl: line %d: %v", e.Line, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// EncodeError reports an item that could not be encoded.
type EncodeError struct {
	Index int
	Err   error
}

func (e *EncodeError) Error() string {
	return fmt.Sprintf("jsonl: item %d: %v", e.Index, e.Err)
}

func (e *EncodeError) Unwrap() error { return e.Err }

var errEmptyPath = errors.New("jsonl: path is empty")

// Marshal encodes items as JSON lines joined by "\n", preserving order.
// The result carries no trailing newline.
func Marshal[T any](items []T) (string, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	for i, item := range items {
		mark := buf.Len()
		if err := enc.Encode(item); err != nil {
			buf.Truncate(mark)
			return "", &EncodeError{Index: i, Err: err}
		}
	}
	// Encode terminates every value with a newline; the last one is dropped.
	return strings.TrimSuffix(buf.String(), "\n"), nil
}

// Unmarshal decodes every line of data in order. A single trailing line
// terminator is ignored and the empty string yields no items. Any other
// line that is not valid JSON fails the whole call with a *ParseError.
func Unmarshal[T any](data string) ([]T, error) {
	lines := splitLines(data)
	out := make([]T, 0, len(lines))
	for i, line := range lines {
		var item T
		if err := json.Unmarshal([]byte(line), &item); err != nil {
			return nil, &ParseError{Line: i + 1, Err: err}
		}
		out = append(out, item)
	}
	return out, nil
}

// Parse decodes data into generic records.
func Parse(data string) ([]Record, error) {
	return Unmarshal[Record](data)
}

// ReadFile reads the whole file at path and decodes it.
func ReadFile[T any](path string) ([]T, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errEmptyPath
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	items, err := Unmarshal[T](string(data))
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	return items, nil
}

// WriteFile encodes items and writes them to path, creating missing parent
// directories and replacing any existing content.
func WriteFile[T any](path string, items []T) error {
	if strings.TrimSpace(path) == "" {
		return errEmptyPath
	}
	payload, err := Marshal(items)
	if err != nil {
		return err
	}
	if err := ensureParent(path); err != nil {
		return fmt.Errorf("create directory for %s: %w", path, err)
	}
	if err := os.WriteFile(path, []byte(payload), 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

func ensureParent(path string) error {
	dir := filepath.Dir(path)
	if dir == "" || dir == "." {
		return nil
	}
	return os.MkdirAll(dir, 0o755)
}

func splitLines(data string) []string {
	if data == "" {
		return nil
	}
	data = strings.TrimSuffix(data, "\n")
	lines := strings.Split(data, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimSuffix(line, "\r")
	}
	return lines
}
