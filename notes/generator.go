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


package notes

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
	"unicode"

	"gopkg.in/yaml.v3"

	"github.com/poiesic/hypha/core"
	"github.com/poiesic/hypha/etl"
)

// ErrVaultRequired is returned when a generator is created without a
// vault directory.
var ErrVaultRequired = errors.New("vault directory required")

const maxFilenameRunes = 100

// Generator writes entities as markdown notes under a vault directory.
// It implements etl.Renderer.
type Generator struct {
	vaultDir  string
	flat      bool // all notes in the vault root instead of per-type folders
	overwrite bool
	logger    *slog.Logger
}

// Option configures a Generator.
type Option func(*Generator)

// WithFlatLayout puts every note in the vault root. The default is a
// folder per entity type.
func WithFlatLayout() Option {
	return func(g *Generator) {
		g.flat = true
	}
}

// WithOverwrite makes the generator replace existing notes instead of
// skipping them.
func WithOverwrite() Option {
	return func(g *Generator) {
		g.overwrite = true
	}
}

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) Option {
	return func(g *Generator) {
		if logger != nil {
			g.logger = logger
		}
	}
}

// NewGenerator creates a note generator rooted at vaultDir.
func NewGenerator(vaultDir string, opts ...Option) (*Generator, error) {
	if vaultDir == "" {
		return nil, ErrVaultRequired
	}
	g := &Generator{
		vaultDir: vaultDir,
		logger:   slog.Default().With("component", "note-generator"),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g, nil
}

// ProcessEntities renders one note per entity. An entity that fails to
// render or save is reported in the result's error list without stopping
// the rest of the batch.
func (g *Generator) ProcessEntities(entities []core.Entity, meta etl.RunMetadata) (*etl.RenderResult, error) {
	result := &etl.RenderResult{}

	for _, entity := range entities {
		path := g.notePath(&entity)
		content := g.renderNote(&entity, meta)

		saved, err := g.save(path, content)
		if err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("entity %q: %v", entity.Name(), err))
			continue
		}
		if !saved {
			result.Skipped = append(result.Skipped, path)
			continue
		}
		result.Generated = append(result.Generated, path)
	}

	g.logger.Info("notes rendered",
		"generated", len(result.Generated),
		"skipped", len(result.Skipped),
		"errors", len(result.Errors))
	return result, nil
}

// CreateIndex writes an index note grouping entities by type, each entry a
// wikilink to its note. Returns the written path.
func (g *Generator) CreateIndex(entities []core.Entity, meta etl.RunMetadata) (string, error) {
	byType := make(map[string][]string)
	for _, entity := range entities {
		byType[entity.Type] = append(byType[entity.Type], entity.Name())
	}

	var b strings.Builder
	b.WriteString("# Extraction Index\n\n")
	fmt.Fprintf(&b, "Source: %s\n", meta.Source)
	fmt.Fprintf(&b, "Generated: %s\n", meta.ExtractedAt.Format(time.RFC3339))
	fmt.Fprintf(&b, "Total entities: %d\n", len(entities))

	types := make([]string, 0, len(byType))
	for entityType := range byType {
		types = append(types, entityType)
	}
	sort.Strings(types)

	for _, entityType := range types {
		names := byType[entityType]
		sort.Strings(names)

		fmt.Fprintf(&b, "\n## %s (%d)\n\n", entityType, len(names))
		for _, name := range names {
			fmt.Fprintf(&b, "- %s\n", core.Reference{Name: name}.String())
		}
	}

	filename := fmt.Sprintf("extraction_index_%s.md", meta.ExtractedAt.Format("20060102_150405"))
	path := filepath.Join(g.vaultDir, filename)
	if err := os.MkdirAll(g.vaultDir, 0755); err != nil {
		return "", err
	}
	if err := os.WriteFile(path, []byte(b.String()), 0644); err != nil {
		return "", err
	}
	return path, nil
}

func (g *Generator) notePath(entity *core.Entity) string {
	filename := SanitizeFilename(entity.Name()) + ".md"
	if g.flat {
		return filepath.Join(g.vaultDir, filename)
	}
	return filepath.Join(g.vaultDir, strings.ToLower(entity.Type), filename)
}

// save writes content to path, creating parent directories. Returns false
// without error when the note exists and overwriting is disabled.
func (g *Generator) save(path, content string) (bool, error) {
	if !g.overwrite {
		if _, err := os.Stat(path); err == nil {
			g.logger.Debug("note exists, skipping", "path", path)
			return false, nil
		}
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return false, err
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		return false, err
	}
	return true, nil
}

// renderNote produces the full note: YAML frontmatter between --- fences,
// then the markdown body.
func (g *Generator) renderNote(entity *core.Entity, meta etl.RunMetadata) string {
	var b strings.Builder
	b.WriteString("---\n")
	b.WriteString(g.renderFrontmatter(entity, meta))
	b.WriteString("---\n\n")
	b.WriteString(g.renderBody(entity, meta))
	return b.String()
}

func (g *Generator) renderFrontmatter(entity *core.Entity, meta etl.RunMetadata) string {
	fm := map[string]any{
		"type":            entity.Type,
		"source":          meta.Source,
		"schema_version":  meta.SchemaVersion,
		"extraction_date": meta.ExtractedAt.Format(time.RFC3339),
		"tags":            []string{strings.ToLower(entity.Type), "hypha-extracted"},
	}
	for name, value := range entity.Properties {
		fm[name] = value
	}
	for name, targets := range entity.Relationships {
		fm[name] = targets
	}
	if entity.Confidence != nil {
		fm["extraction_confidence"] = *entity.Confidence
	}

	// yaml.v3 renders map keys in sorted order, so the output is stable.
	rendered, err := yaml.Marshal(fm)
	if err != nil {
		g.logger.Warn("frontmatter marshal failed", "entity", entity.Name(), "err", err)
		return fmt.Sprintf("type: %s\n", entity.Type)
	}
	return string(rendered)
}

func (g *Generator) renderBody(entity *core.Entity, meta etl.RunMetadata) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n", entity.Name())

	if description, ok := entity.Properties["description"].(string); ok && description != "" {
		fmt.Fprintf(&b, "\n%s\n", description)
	}

	if entity.SourceContext != "" {
		fmt.Fprintf(&b, "\n## Source Context\n\n> %s\n", entity.SourceContext)
	}

	extra := make([]string, 0, len(entity.Properties))
	for name := range entity.Properties {
		if name == "name" || name == "description" {
			continue
		}
		extra = append(extra, name)
	}
	if len(extra) > 0 {
		sort.Strings(extra)
		b.WriteString("\n## Properties\n\n")
		for _, name := range extra {
			fmt.Fprintf(&b, "- **%s**: %s\n", titleWords(name), formatValue(entity.Properties[name]))
		}
	}

	if len(entity.Relationships) > 0 {
		names := make([]string, 0, len(entity.Relationships))
		for name := range entity.Relationships {
			names = append(names, name)
		}
		sort.Strings(names)

		b.WriteString("\n## Relationships\n\n")
		for _, name := range names {
			fmt.Fprintf(&b, "- **%s**: %s\n", titleWords(name), strings.Join(entity.Relationships[name], ", "))
		}
	}

	b.WriteString("\n## Metadata\n\n")
	fmt.Fprintf(&b, "- **Extracted**: %s\n", meta.ExtractedAt.Format(time.RFC3339))
	fmt.Fprintf(&b, "- **Source**: %s\n", meta.Source)
	if entity.Confidence != nil {
		fmt.Fprintf(&b, "- **Confidence**: %.2f\n", *entity.Confidence)
	}

	return b.String()
}

func formatValue(value any) string {
	if list, ok := value.([]any); ok {
		parts := make([]string, len(list))
		for i, item := range list {
			parts[i] = fmt.Sprint(item)
		}
		return strings.Join(parts, ", ")
	}
	return fmt.Sprint(value)
}

// titleWords renders a camelCase or snake_case member name as a heading:
// "worksFor" becomes "Works For", "activity_status" becomes "Activity Status".
func titleWords(name string) string {
	var b strings.Builder
	prevLower := false
	for _, r := range name {
		switch {
		case r == '_':
			b.WriteRune(' ')
			prevLower = false
			continue
		case unicode.IsUpper(r) && prevLower:
			b.WriteRune(' ')
		case b.Len() == 0 || b.String()[b.Len()-1] == ' ':
			r = unicode.ToUpper(r)
		}
		prevLower = unicode.IsLower(r)
		b.WriteRune(r)
	}
	return b.String()
}

// SanitizeFilename strips characters that are hostile to common
// filesystems, drops control characters, and bounds the length. An empty
// result falls back to a placeholder so a note is always writable.
func SanitizeFilename(name string) string {
	var b strings.Builder
	for _, r := range name {
		if strings.ContainsRune(`<>:"/\|?*`, r) || r < 0x20 || r == 0x7f {
			continue
		}
		b.WriteRune(r)
	}
	cleaned := strings.TrimSpace(b.String())

	runes := []rune(cleaned)
	if len(runes) > maxFilenameRunes {
		cleaned = strings.TrimSpace(string(runes[:maxFilenameRunes]))
	}
	if cleaned == "" {
		return "unnamed entity"
	}
	return cleaned
}
