package convert

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/poiesic/hypha/notes"
	"github.com/poiesic/hypha/schema"
)

// Cypher accumulates notes and renders them as MERGE statements for a
// property graph database. Entity labels are the schema's entity types;
// relationship types are the schema's relationship names uppercased.
// Not safe for concurrent use.
type Cypher struct {
	def    *schema.Definition
	iri    *JSONLD // reused for IRI generation and wikilink resolution
	nodes  []cypherNode
	rels   []cypherRel
	logger *slog.Logger
}

type cypherNode struct {
	iri        string
	entityType string
	props      map[string]any
}

// cypherRel keeps the target as a name, not an IRI. The target's note may
// be converted after the referencing one, so resolution waits until
// Statements.
type cypherRel struct {
	source     string
	targetName string
	relType    string
}

// NewCypher creates a converter for the given schema. baseIRI may be
// empty, in which case DefaultBaseIRI is used.
func NewCypher(def *schema.Definition, baseIRI string) *Cypher {
	return &Cypher{
		def:    def,
		iri:    NewJSONLD(def, baseIRI),
		logger: slog.Default().With("component", "cypher-converter"),
	}
}

// AddNote accumulates one note's frontmatter. Notes without a usable type
// are skipped and reported as false.
func (c *Cypher) AddNote(frontmatter map[string]any, filename string) bool {
	entityType, _ := frontmatter["type"].(string)
	if entityType == "" || c.def.Entity(entityType) == nil {
		c.logger.Warn("skipping note with unusable type", "file", filename, "type", entityType)
		return false
	}
	entityDef := c.def.Entity(entityType)

	name, _ := frontmatter["name"].(string)
	if name == "" {
		name = strings.TrimSuffix(filepath.Base(filename), filepath.Ext(filename))
	}
	iri := c.iri.entityIRI(name, entityType)
	c.iri.iris[name] = iri

	props := map[string]any{"name": name}
	for key, value := range frontmatter {
		if metadataKeys[key] || key == "name" {
			continue
		}
		switch {
		case entityDef.Relationships[key] != nil:
			for _, target := range targetNames(value) {
				c.rels = append(c.rels, cypherRel{
					source:     iri,
					targetName: strings.TrimSuffix(strings.TrimPrefix(target, "[["), "]]"),
					relType:    strings.ToUpper(key),
				})
			}
		case entityDef.Properties[key] != nil:
			props[key] = c.iri.convertProperty(value, entityDef.Properties[key])
		default:
			props[key] = value
		}
	}

	c.nodes = append(c.nodes, cypherNode{iri: iri, entityType: entityType, props: props})
	return true
}

// ConvertDirectory walks a vault and accumulates every markdown note with
// frontmatter.
func (c *Cypher) ConvertDirectory(dir string) (int, error) {
	added := 0
	err := filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || filepath.Ext(path) != ".md" {
			return nil
		}
		frontmatter, _, err := notes.ParseFrontmatter(path)
		if err != nil {
			c.logger.Debug("skipping note", "path", path, "err", err)
			return nil
		}
		if c.AddNote(frontmatter, path) {
			added++
		}
		return nil
	})
	if err != nil {
		return added, fmt.Errorf("failed to walk vault %s: %w", dir, err)
	}
	return added, nil
}

// Statements renders the accumulated graph as Cypher. Nodes come first,
// then placeholder nodes for referenced-but-absent targets, then
// relationships. MERGE keeps the script idempotent under re-import.
func (c *Cypher) Statements() string {
	var b strings.Builder
	fmt.Fprintf(&b, "// Knowledge graph import\n// Schema: %s\n\n", c.def.Name)

	labels := make(map[string]bool)
	for _, node := range c.nodes {
		labels[node.entityType] = true
	}
	labelList := make([]string, 0, len(labels))
	for label := range labels {
		labelList = append(labelList, label)
	}
	sort.Strings(labelList)
	for _, label := range labelList {
		fmt.Fprintf(&b, "CREATE INDEX IF NOT EXISTS FOR (n:%s) ON (n.iri);\n", label)
	}
	b.WriteString("\n// Entities\n")

	for _, node := range c.nodes {
		keys := make([]string, 0, len(node.props))
		for key := range node.props {
			keys = append(keys, key)
		}
		sort.Strings(keys)

		parts := make([]string, 0, len(keys)+1)
		parts = append(parts, fmt.Sprintf("iri: %s", cypherValue(node.iri)))
		for _, key := range keys {
			parts = append(parts, fmt.Sprintf("%s: %s", key, cypherValue(node.props[key])))
		}
		fmt.Fprintf(&b, "MERGE (:%s {%s});\n", node.entityType, strings.Join(parts, ", "))
	}

	if missing := c.missingTargets(); len(missing) > 0 {
		b.WriteString("\n// Placeholder nodes for referenced entities\n")
		for _, name := range missing {
			fmt.Fprintf(&b, "MERGE (:Entity {iri: %s, name: %s});\n",
				cypherValue(c.targetIRI(name)), cypherValue(name))
		}
	}

	if len(c.rels) > 0 {
		b.WriteString("\n// Relationships\n")
		for _, rel := range c.rels {
			fmt.Fprintf(&b, "MATCH (a {iri: %s}), (b {iri: %s}) MERGE (a)-[:%s]->(b);\n",
				cypherValue(rel.source), cypherValue(c.targetIRI(rel.targetName)), rel.relType)
		}
	}
	return b.String()
}

// targetIRI resolves a referenced name to its converted node's IRI, or to
// a plain resource IRI when no note for it was seen.
func (c *Cypher) targetIRI(name string) string {
	if iri, ok := c.iri.iris[name]; ok {
		return iri
	}
	return c.iri.nameIRI(name)
}

// Export writes the statements to a file.
func (c *Cypher) Export(path string) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return err
		}
	}
	return os.WriteFile(path, []byte(c.Statements()), 0644)
}

// missingTargets lists referenced names that have no converted node,
// sorted for stable output.
func (c *Cypher) missingTargets() []string {
	existing := make(map[string]bool, len(c.nodes))
	for _, node := range c.nodes {
		existing[node.iri] = true
	}

	missing := make(map[string]bool)
	for _, rel := range c.rels {
		if !existing[c.targetIRI(rel.targetName)] {
			missing[rel.targetName] = true
		}
	}

	names := make([]string, 0, len(missing))
	for name := range missing {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func targetNames(value any) []string {
	switch v := value.(type) {
	case string:
		return []string{v}
	case []any:
		targets := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok {
				targets = append(targets, s)
			}
		}
		return targets
	default:
		return nil
	}
}

func cypherValue(value any) string {
	switch v := value.(type) {
	case string:
		escaped := strings.ReplaceAll(v, `\`, `\\`)
		escaped = strings.ReplaceAll(escaped, `"`, `\"`)
		return `"` + escaped + `"`
	case bool:
		return fmt.Sprintf("%t", v)
	case nil:
		return "null"
	case []any:
		parts := make([]string, len(v))
		for i, item := range v {
			parts[i] = cypherValue(item)
		}
		return "[" + strings.Join(parts, ", ") + "]"
	default:
		return fmt.Sprint(v)
	}
}
