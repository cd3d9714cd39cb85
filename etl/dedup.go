package etl

import (
	"log/slog"

	"github.com/poiesic/hypha/core"
)

// Deduplicate removes entities that share a (type, name) key, keeping the
// first occurrence. Input order is preserved, so for a document processed
// in chunk order the surviving entity is the earliest mention.
func Deduplicate(entities []core.Entity, logger *slog.Logger) []core.Entity {
	seen := make(map[core.EntityKey]struct{}, len(entities))
	unique := make([]core.Entity, 0, len(entities))

	for _, entity := range entities {
		key := entity.Key()
		if _, ok := seen[key]; ok {
			if logger != nil {
				logger.Debug("dropping duplicate entity",
					"type", key.Type,
					"name", key.Name)
			}
			continue
		}
		seen[key] = struct{}{}
		unique = append(unique, entity)
	}
	return unique
}
