package notes

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// ErrNoFrontmatter indicates a markdown file without a leading ---
// frontmatter block.
var ErrNoFrontmatter = errors.New("no frontmatter block")

// ParseFrontmatter reads a markdown note and decodes the YAML block
// between the leading --- fences. The note body after the closing fence
// is returned verbatim.
func ParseFrontmatter(path string) (map[string]any, string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, "", fmt.Errorf("failed to read note %s: %w", path, err)
	}

	content := strings.ReplaceAll(string(data), "\r\n", "\n")
	if !strings.HasPrefix(content, "---\n") {
		return nil, "", fmt.Errorf("%w: %s", ErrNoFrontmatter, path)
	}

	rest := content[len("---\n"):]
	end := strings.Index(rest, "\n---")
	if end < 0 {
		return nil, "", fmt.Errorf("%w: unterminated block in %s", ErrNoFrontmatter, path)
	}

	var fm map[string]any
	if err := yaml.Unmarshal([]byte(rest[:end]), &fm); err != nil {
		return nil, "", fmt.Errorf("failed to decode frontmatter in %s: %w", path, err)
	}

	body := rest[end+len("\n---"):]
	body = strings.TrimPrefix(body, "\n")
	return fm, body, nil
}
