package render

import (
	"bytes"
	"fmt"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

// Front matter delimiters. A document opening with "+++" carries TOML, one
// opening with "---" carries YAML. The closing delimiter must match.
const (
	tomlDelim = "+++"
	yamlDelim = "---"
)

// SplitFrontMatter separates a leading front matter block from the document
// body. Documents without one are returned unchanged with a nil map.
func SplitFrontMatter(src []byte) (map[string]any, []byte, error) {
	first, rest, ok := cutLine(src)
	if !ok {
		return nil, src, nil
	}
	delim := string(bytes.TrimRight(first, " \t\r"))
	if delim != tomlDelim && delim != yamlDelim {
		return nil, src, nil
	}

	var block []byte
	body := rest
	closed := false
	for len(body) > 0 {
		line, next, _ := cutLine(body)
		if string(bytes.TrimRight(line, " \t\r")) == delim {
			block = rest[:len(rest)-len(body)]
			body = next
			closed = true
			break
		}
		body = next
	}
	if !closed {
		return nil, src, nil
	}

	meta := map[string]any{}
	switch delim {
	case tomlDelim:
		if err := toml.Unmarshal(block, &meta); err != nil {
			return nil, nil, fmt.Errorf("toml front matter: %w", err)
		}
	case yamlDelim:
		if err := yaml.Unmarshal(block, &meta); err != nil {
			return nil, nil, fmt.Errorf("yaml front matter: %w", err)
		}
	}
	return meta, body, nil
}

// cutLine splits off the first line, excluding its '\n'. ok is false when src
// is empty.
func cutLine(src []byte) (line, rest []byte, ok bool) {
	if len(src) == 0 {
		return nil, nil, false
	}
	if i := bytes.IndexByte(src, '\n'); i >= 0 {
		return src[:i], src[i+1:], true
	}
	return src, nil, true
}
