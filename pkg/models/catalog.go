package models

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Entity names understood by the migrator.
const (
	EntityPeople        = "people"
	EntityTasks         = "tasks"
	EntityOpportunities = "opportunities"
	EntityLeads         = "leads"
)

// EntityOrder is the order in which entity types are migrated.
var EntityOrder = []string{EntityPeople, EntityTasks, EntityOpportunities, EntityLeads}

// MigrationTask binds one entity type to its source collection and destination table.
type MigrationTask struct {
	Entity           string `json:"entity"`
	SourceCollection string `json:"sourceCollection"`
	DestTable        string `json:"destTable"`
}

// Catalog represents the root of the JSON catalog file.
type Catalog struct {
	Version string          `json:"version"`
	Tasks   []MigrationTask `json:"tasks"`
}

// DefaultCatalog returns the Copper collections and the tables they land in.
func DefaultCatalog() *Catalog {
	return &Catalog{
		Version: "1",
		Tasks: []MigrationTask{
			{Entity: EntityPeople, SourceCollection: "copper_people", DestTable: "people"},
			{Entity: EntityTasks, SourceCollection: "copper_tasks", DestTable: "tasks"},
			{Entity: EntityOpportunities, SourceCollection: "copper_opportunities", DestTable: "opportunities"},
			{Entity: EntityLeads, SourceCollection: "copper_leads", DestTable: "leads"},
		},
	}
}

// ParseCatalog parses catalog JSON and lays it over the defaults. Entries only
// need to name the entity and the fields they change.
func ParseCatalog(data []byte) (*Catalog, error) {
	var overrides Catalog
	if err := json.Unmarshal(data, &overrides); err != nil {
		return nil, err
	}

	c := DefaultCatalog()
	if overrides.Version != "" {
		c.Version = overrides.Version
	}
	for _, o := range overrides.Tasks {
		t := c.find(o.Entity)
		if t == nil {
			return nil, fmt.Errorf("unknown entity %q", o.Entity)
		}
		if o.SourceCollection != "" {
			t.SourceCollection = o.SourceCollection
		}
		if o.DestTable != "" {
			t.DestTable = o.DestTable
		}
	}
	return c, nil
}

// Task returns the task for an entity name.
func (c *Catalog) Task(entity string) (MigrationTask, bool) {
	if t := c.find(entity); t != nil {
		return *t, true
	}
	return MigrationTask{}, false
}

// Select returns the tasks for the given entity names in migration order.
// An empty selection means every entity.
func (c *Catalog) Select(entities []string) ([]MigrationTask, error) {
	want := make(map[string]bool, len(entities))
	for _, e := range entities {
		e = strings.ToLower(strings.TrimSpace(e))
		if e == "" {
			continue
		}
		if c.find(e) == nil {
			return nil, fmt.Errorf("unknown entity %q (expected one of %s)", e, strings.Join(EntityOrder, ", "))
		}
		want[e] = true
	}

	var out []MigrationTask
	for _, name := range EntityOrder {
		if len(want) > 0 && !want[name] {
			continue
		}
		if t := c.find(name); t != nil {
			out = append(out, *t)
		}
	}
	return out, nil
}

func (c *Catalog) find(entity string) *MigrationTask {
	for i := range c.Tasks {
		if c.Tasks[i].Entity == entity {
			return &c.Tasks[i]
		}
	}
	return nil
}
