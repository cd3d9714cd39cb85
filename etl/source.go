// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package etl

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
	"unicode"
)

// SourceMetadata captures provenance for a loaded data source.
type SourceMetadata struct {
	SourceType string
	Path       string
	Extension  string
	Size       int64
	ModTime    time.Time
}

// LoadSource reads a text data source from disk. Only plain-text formats
// are handled here; binary document formats are the concern of upstream
// tooling.
func LoadSource(path string) (string, *SourceMetadata, error) {
	info, err := os.Stat(path)
	if err != nil {
		return "", nil, fmt.Errorf("failed to stat source %s: %w", path, err)
	}

	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(path), "."))
	switch ext {
	case "txt", "md", "markdown":
	default:
		return "", nil, fmt.Errorf("%w: .%s", ErrUnsupportedSource, ext)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return "", nil, fmt.Errorf("failed to read source %s: %w", path, err)
	}

	return string(data), &SourceMetadata{
		SourceType: "file",
		Path:       path,
		Extension:  ext,
		Size:       info.Size(),
		ModTime:    info.ModTime(),
	}, nil
}

// Normalize prepares raw text for extraction: runs of whitespace collapse
// to a single space, NUL bytes are dropped, and the result is trimmed.
// Chunking and cache fingerprints both operate on the normalized form.
func Normalize(text string) string {
	var b strings.Builder
	b.Grow(len(text))

	inSpace := false
	for _, r := range text {
		if r == 0 {
			continue
		}
		if unicode.IsSpace(r) {
			inSpace = true
			continue
		}
		if inSpace && b.Len() > 0 {
			b.WriteByte(' ')
		}
		inSpace = false
		b.WriteRune(r)
	}
	return b.String()
}
