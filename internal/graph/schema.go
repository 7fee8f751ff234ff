package graph

import (
	"context"
	"fmt"
	"sort"
	"strings"
)

// Schema introspection statements. They are fixed and read-only, so they
// bypass the validator.
const (
	nodePropertiesQuery = `CALL db.schema.nodeTypeProperties()
YIELD nodeType, propertyName, propertyTypes
RETURN nodeType, propertyName, propertyTypes`
	relPropertiesQuery = `CALL db.schema.relTypeProperties()
YIELD relType, propertyName, propertyTypes
RETURN relType, propertyName, propertyTypes`
	relPatternsQuery = `MATCH (a)-[r]->(b)
WITH labels(a) AS source, type(r) AS rel, labels(b) AS target
RETURN DISTINCT source, rel, target
LIMIT 200`
)

// Property is one typed property of a label or relationship type.
type Property struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

// PropertySet lists the properties of one label or relationship type.
type PropertySet struct {
	Name       string     `json:"name"`
	Properties []Property `json:"properties"`
}

// Schema describes labels, relationship types and how they connect.
type Schema struct {
	Nodes         []PropertySet `json:"nodes"`
	Relationships []PropertySet `json:"relationships"`
	Patterns      []string      `json:"patterns"`
}

// Schema returns the textual schema description used in prompts.
func (c *Client) Schema(ctx context.Context) (string, error) {
	s, err := c.Describe(ctx)
	if err != nil {
		return "", err
	}
	return s.String(), nil
}

// Describe introspects the database.
func (c *Client) Describe(ctx context.Context) (*Schema, error) {
	nodes, err := c.read(ctx, nodePropertiesQuery, nil)
	if err != nil {
		return nil, fmt.Errorf("reading node properties: %w", err)
	}
	rels, err := c.read(ctx, relPropertiesQuery, nil)
	if err != nil {
		return nil, fmt.Errorf("reading relationship properties: %w", err)
	}
	patterns, err := c.read(ctx, relPatternsQuery, nil)
	if err != nil {
		return nil, fmt.Errorf("reading relationship patterns: %w", err)
	}

	s := &Schema{
		Nodes:         propertySets(nodes.Rows, "nodeType"),
		Relationships: propertySets(rels.Rows, "relType"),
		Patterns:      relationshipPatterns(patterns.Rows),
	}
	c.logger.Info("Schema loaded",
		"labels", len(s.Nodes),
		"relationship_types", len(s.Relationships),
		"patterns", len(s.Patterns))
	return s, nil
}

// String renders the schema in the layout the prompts expect.
func (s *Schema) String() string {
	var b strings.Builder

	b.WriteString("Node properties:\n")
	writeSets(&b, s.Nodes)

	b.WriteString("Relationship properties:\n")
	writeSets(&b, s.Relationships)

	b.WriteString("The relationships:\n")
	if len(s.Patterns) == 0 {
		b.WriteString("(none)\n")
	}
	for _, p := range s.Patterns {
		b.WriteString(p)
		b.WriteString("\n")
	}

	return b.String()
}

func writeSets(b *strings.Builder, sets []PropertySet) {
	if len(sets) == 0 {
		b.WriteString("(none)\n")
		return
	}
	for _, set := range sets {
		props := make([]string, len(set.Properties))
		for i, p := range set.Properties {
			props[i] = fmt.Sprintf("%s: %s", p.Name, p.Type)
		}
		fmt.Fprintf(b, "%s {%s}\n", set.Name, strings.Join(props, ", "))
	}
}

// propertySets groups db.schema.*TypeProperties rows by type name.
func propertySets(rows []map[string]any, typeKey string) []PropertySet {
	byName := map[string]*PropertySet{}
	for _, row := range rows {
		name := cleanTypeName(fmt.Sprint(row[typeKey]))
		if name == "" {
			continue
		}
		set, ok := byName[name]
		if !ok {
			set = &PropertySet{Name: name}
			byName[name] = set
		}

		prop, _ := row["propertyName"].(string)
		if prop == "" {
			continue
		}
		set.Properties = append(set.Properties, Property{
			Name: prop,
			Type: propertyType(row["propertyTypes"]),
		})
	}

	sets := make([]PropertySet, 0, len(byName))
	for _, set := range byName {
		sort.Slice(set.Properties, func(i, j int) bool {
			return set.Properties[i].Name < set.Properties[j].Name
		})
		sets = append(sets, *set)
	}
	sort.Slice(sets, func(i, j int) bool { return sets[i].Name < sets[j].Name })
	return sets
}

// cleanTypeName turns ":`Book`:`Edition`" into "Book:Edition".
func cleanTypeName(raw string) string {
	raw = strings.TrimPrefix(raw, ":")
	raw = strings.ReplaceAll(raw, "`", "")
	if raw == "<nil>" {
		return ""
	}
	return raw
}

// propertyType maps Neo4j type names ("String", "Long") to the upper-case
// names the model is used to seeing.
func propertyType(v any) string {
	types, ok := v.([]any)
	if !ok || len(types) == 0 {
		return "ANY"
	}
	name := strings.ToUpper(fmt.Sprint(types[0]))
	switch name {
	case "LONG":
		return "INTEGER"
	case "DOUBLE":
		return "FLOAT"
	default:
		return name
	}
}

func relationshipPatterns(rows []map[string]any) []string {
	seen := map[string]bool{}
	var patterns []string
	for _, row := range rows {
		rel, _ := row["rel"].(string)
		if rel == "" {
			continue
		}
		p := fmt.Sprintf("(:%s)-[:%s]->(:%s)", joinLabels(row["source"]), rel, joinLabels(row["target"]))
		if !seen[p] {
			seen[p] = true
			patterns = append(patterns, p)
		}
	}
	sort.Strings(patterns)
	return patterns
}

func joinLabels(v any) string {
	labels, _ := v.([]any)
	parts := make([]string, 0, len(labels))
	for _, l := range labels {
		parts = append(parts, fmt.Sprint(l))
	}
	return strings.Join(parts, ":")
}
