package config

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/tidwall/jsonc"
	"gopkg.in/yaml.v3"
)

func parseFile(path string, data []byte) (*File, error) {
	var file File
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".toml":
		meta, err := toml.Decode(string(data), &file)
		if err != nil {
			return nil, err
		}
		if undecoded := meta.Undecoded(); len(undecoded) > 0 {
			if key := firstUnknownKey(undecoded); key != "" {
				return nil, &ValidationError{Path: key, Message: "unknown field"}
			}
		}
	case ".yaml", ".yml":
		decoder := yaml.NewDecoder(bytes.NewReader(data))
		decoder.KnownFields(true)
		if err := decoder.Decode(&file); err != nil && !errors.Is(err, io.EOF) {
			return nil, err
		}
	case ".json", ".jsonc":
		decoder := json.NewDecoder(bytes.NewReader(jsonc.ToJSON(data)))
		decoder.DisallowUnknownFields()
		if err := decoder.Decode(&file); err != nil && !errors.Is(err, io.EOF) {
			return nil, jsonPosition(data, err)
		}
	default:
		return nil, fmt.Errorf("unsupported config extension %q", ext)
	}
	return &file, nil
}

// jsonPosition prefixes syntax and type errors with their line. Comments
// are blanked in place by jsonc, so offsets still point into data.
func jsonPosition(data []byte, err error) error {
	var offset int64
	var syntaxErr *json.SyntaxError
	var typeErr *json.UnmarshalTypeError
	switch {
	case errors.As(err, &syntaxErr):
		offset = syntaxErr.Offset
	case errors.As(err, &typeErr):
		offset = typeErr.Offset
	default:
		return err
	}
	if offset > int64(len(data)) {
		offset = int64(len(data))
	}
	line := bytes.Count(data[:offset], []byte("\n")) + 1
	return fmt.Errorf("line %d: %w", line, err)
}

// firstUnknownKey skips keys nested under free-form plugin options.
func firstUnknownKey(keys []toml.Key) string {
	for _, key := range keys {
		if len(key) >= 2 && key[0] == "plugin" && key[1] == "options" {
			continue
		}
		return key.String()
	}
	return ""
}

func formatParseError(path string, err error) error {
	if err == nil {
		return nil
	}
	var parseErr toml.ParseError
	if errors.As(err, &parseErr) {
		return fmt.Errorf("parse config file %s: %s", path, parseErr.ErrorWithPosition())
	}
	var vErr *ValidationError
	if errors.As(err, &vErr) {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}
	var typeErr *yaml.TypeError
	if errors.As(err, &typeErr) {
		return fmt.Errorf("parse config file %s: %s", path, strings.Join(typeErr.Errors, "; "))
	}
	return fmt.Errorf("parse config file %s: %w", path, err)
}

func formatValidationError(path string, data []byte, err error) error {
	location := filepath.Base(path)
	var vErr *ValidationError
	if !errors.As(err, &vErr) {
		return fmt.Errorf("%s: %w", location, err)
	}
	if line := lineForKey(data, vErr.Key, vErr.Value); line > 0 {
		location = fmt.Sprintf("%s:%d", location, line)
	}
	return fmt.Errorf("%s: %w", location, err)
}

// lineForKey returns the first line assigning key, preferring one that also
// mentions value, or 0.
func lineForKey(data []byte, key, value string) int {
	key = strings.TrimSpace(key)
	if key == "" {
		return 0
	}
	scanner := bufio.NewScanner(bytes.NewReader(data))
	line := 0
	first := 0
	for scanner.Scan() {
		line++
		text := strings.TrimSpace(scanner.Text())
		text = strings.TrimPrefix(text, "- ")
		text = strings.TrimPrefix(text, "{")
		text = strings.TrimPrefix(strings.TrimSpace(text), `"`)
		if text == "" || strings.HasPrefix(text, "#") || strings.HasPrefix(text, "//") {
			continue
		}
		if !strings.HasPrefix(text, key) || !(strings.Contains(text, "=") || strings.Contains(text, ":")) {
			continue
		}
		if value == "" || strings.Contains(text, value) {
			return line
		}
		if first == 0 {
			first = line
		}
	}
	return first
}
