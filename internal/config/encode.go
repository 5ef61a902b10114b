package config

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// Formats lists the serializations Encode supports.
var Formats = []string{"json", "toml", "yaml"}

// Marshal serializes the config in the given format.
func (c *Config) Marshal(format string) ([]byte, error) {
	switch strings.ToLower(format) {
	case "json", "":
		data, err := json.MarshalIndent(c, "", "  ")
		if err != nil {
			return nil, err
		}
		return append(data, '\n'), nil
	case "toml":
		return toml.Marshal(c)
	case "yaml", "yml":
		return yaml.Marshal(c)
	default:
		return nil, &ConfigError{Field: "format", Message: fmt.Sprintf("unsupported format %q (want one of %s)", format, strings.Join(Formats, ", "))}
	}
}

// Encode writes the config to w in the given format.
func (c *Config) Encode(w io.Writer, format string) error {
	data, err := c.Marshal(format)
	if err != nil {
		return err
	}
	_, err = w.Write(data)
	return err
}

// Save writes the configuration to path, choosing the format from its
// extension.
func (c *Config) Save(path string) error {
	format := strings.TrimPrefix(filepath.Ext(path), ".")
	data, err := c.Marshal(format)
	if err != nil {
		return err
	}
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return err
		}
	}
	return os.WriteFile(path, data, 0644)
}
