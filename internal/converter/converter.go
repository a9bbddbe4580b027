package converter

import (
	"bytes"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	json "github.com/goccy/go-json"
	"gopkg.in/yaml.v3"

	"jsonlkit/pkg/jsonl"
)

// Format enumerates supported record collection encodings.
type Format string

const (
	FormatJSON  Format = "json"
	FormatJSONL Format = "jsonl"
	FormatYAML  Format = "yaml"
)

var (
	errEmptySource = errors.New("source payload is empty")

	formatAliases = map[string]Format{
		"json":   FormatJSON,
		"jsonl":  FormatJSONL,
		"ndjson": FormatJSONL,
		"yaml":   FormatYAML,
		"yml":    FormatYAML,
	}
	formatContentType = map[Format]string{
		FormatJSON:  "application/json",
		FormatJSONL: "application/x-ndjson",
		FormatYAML:  "application/yaml",
	}
)

// ParseFormat resolves a format name such as "ndjson" or "yml".
func ParseFormat(raw string) (Format, error) {
	format, ok := formatAliases[strings.ToLower(strings.TrimSpace(raw))]
	if !ok {
		return "", fmt.Errorf("unsupported format %q", raw)
	}
	return format, nil
}

// FormatFromPath derives the format from a file extension.
func FormatFromPath(path string) (Format, error) {
	ext := strings.TrimPrefix(filepath.Ext(path), ".")
	if ext == "" {
		return "", fmt.Errorf("cannot infer format of %q without an extension", path)
	}
	return ParseFormat(ext)
}

// ContentType returns the media type used when serving format.
func ContentType(format Format) string {
	if ct, ok := formatContentType[format]; ok {
		return ct
	}
	return "application/octet-stream"
}

// Options describe a conversion request.
type Options struct {
	From   Format
	To     Format
	Indent bool
}

// Converter transforms record collections between encodings.
type Converter struct{}

// New creates a new Converter instance.
func New() *Converter {
	return &Converter{}
}

// Convert decodes source in opts.From and re-encodes it in opts.To.
func (c *Converter) Convert(source []byte, opts Options) ([]byte, error) {
	records, err := c.Decode(source, opts.From)
	if err != nil {
		return nil, err
	}
	return c.Encode(records, opts.To, opts.Indent)
}

// Decode parses source into records. JSON input is either an array of
// records or a single value. YAML input must be a sequence.
func (c *Converter) Decode(source []byte, format Format) ([]any, error) {
	if len(bytes.TrimSpace(source)) == 0 {
		return nil, errEmptySource
	}
	switch format {
	case FormatJSON:
		return decodeJSON(source)
	case FormatJSONL:
		records, err := jsonl.Unmarshal[any](string(source))
		if err != nil {
			return nil, fmt.Errorf("decode jsonl: %w", err)
		}
		return records, nil
	case FormatYAML:
		return decodeYAML(source)
	default:
		return nil, fmt.Errorf("unsupported format %q", format)
	}
}

// Encode renders records in format. Indent only affects JSON output.
func (c *Converter) Encode(records []any, format Format, indent bool) ([]byte, error) {
	if records == nil {
		records = []any{}
	}
	switch format {
	case FormatJSON:
		out, err := encodeJSON(records, indent)
		if err != nil {
			return nil, fmt.Errorf("encode json: %w", err)
		}
		return out, nil
	case FormatJSONL:
		out, err := jsonl.Marshal(records)
		if err != nil {
			return nil, fmt.Errorf("encode jsonl: %w", err)
		}
		return []byte(out), nil
	case FormatYAML:
		out, err := yaml.Marshal(records)
		if err != nil {
			return nil, fmt.Errorf("encode yaml: %w", err)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("unsupported format %q", format)
	}
}

func encodeJSON(records []any, indent bool) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if indent {
		enc.SetIndent("", "  ")
	}
	if err := enc.Encode(records); err != nil {
		return nil, err
	}
	return bytes.TrimSuffix(buf.Bytes(), []byte("\n")), nil
}

func decodeJSON(source []byte) ([]any, error) {
	var value any
	if err := json.Unmarshal(source, &value); err != nil {
		return nil, fmt.Errorf("decode json: %w", err)
	}
	if records, ok := value.([]any); ok {
		return records, nil
	}
	return []any{value}, nil
}

// decodeYAML normalizes the document through JSON so numbers and maps have
// the same shape as records decoded from JSON or JSONL.
func decodeYAML(source []byte) ([]any, error) {
	var doc any
	if err := yaml.Unmarshal(source, &doc); err != nil {
		return nil, fmt.Errorf("decode yaml: %w", err)
	}
	if _, ok := doc.([]any); !ok {
		return nil, fmt.Errorf("decode yaml: top-level document must be a sequence, got %T", doc)
	}
	normalized, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("decode yaml: %w", err)
	}
	var records []any
	if err := json.Unmarshal(normalized, &records); err != nil {
		return nil, fmt.Errorf("decode yaml: %w", err)
	}
	return records, nil
}
