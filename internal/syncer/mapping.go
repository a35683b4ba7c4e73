package syncer

import (
	"sort"

	"github.com/tbrandt/othala/internal/frontmatter"
)

// Record is one external domain entity to mirror into the vault. Identity
// is (Type, ID); the ID is stored in the note's frontmatter so repeated
// syncs find the same note.
type Record struct {
	Type   string            `json:"type"`
	ID     string            `json:"id"`
	Name   string            `json:"name"`
	Fields map[string]string `json:"fields,omitempty"`
}

// LinkRule inserts a wikilink to a related note: Field names the record
// field carrying the related external id, TargetType the entity type it
// refers to.
type LinkRule struct {
	Field      string
	TargetType string
}

// Mapping is the per-entity-type rule set: where notes land, which template
// renders them, how record attributes become frontmatter, and which
// relations turn into wikilinks.
type Mapping struct {
	Type     string
	Folder   string
	Template string
	// SubfolderBy, when set, names a record field whose resolved note
	// title becomes a subfolder (projects group under their client).
	SubfolderBy string
	MapFields   func(Record) *frontmatter.Map
	AutoLinks   []LinkRule
}

// mapFieldsDefault stores type and id first, then the record name as
// title, then the remaining fields in sorted order for determinism.
func mapFieldsDefault(rec Record) *frontmatter.Map {
	fm := frontmatter.NewMap()
	fm.Set("type", frontmatter.String(rec.Type))
	fm.Set("id", frontmatter.String(rec.ID))
	if rec.Name != "" {
		fm.Set("title", frontmatter.String(rec.Name))
	}
	keys := make([]string, 0, len(rec.Fields))
	for k := range rec.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fm.Set(k, frontmatter.String(rec.Fields[k]))
	}
	return fm
}

// DefaultMappings covers the four synced entity types.
func DefaultMappings() map[string]Mapping {
	return map[string]Mapping{
		"client": {
			Type:      "client",
			Folder:    "Clients",
			Template:  "Client",
			MapFields: mapFieldsDefault,
		},
		"project": {
			Type:        "project",
			Folder:      "Projects",
			Template:    "Project",
			SubfolderBy: "clientId",
			MapFields:   mapFieldsDefault,
			AutoLinks: []LinkRule{
				{Field: "clientId", TargetType: "client"},
			},
		},
		"meeting": {
			Type:      "meeting",
			Folder:    "Meetings",
			Template:  "Meeting Notes Template",
			MapFields: mapFieldsDefault,
			AutoLinks: []LinkRule{
				{Field: "clientId", TargetType: "client"},
				{Field: "projectId", TargetType: "project"},
			},
		},
		"insight": {
			Type:      "insight",
			Folder:    "Insights",
			Template:  "Insight",
			MapFields: mapFieldsDefault,
			AutoLinks: []LinkRule{
				{Field: "projectId", TargetType: "project"},
			},
		},
	}
}
