package graph

import (
	"fmt"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
)

// normalizeRecord turns a driver record into a plain row map.
func normalizeRecord(record *neo4j.Record) map[string]any {
	row := make(map[string]any, len(record.Keys))
	for i, key := range record.Keys {
		row[key] = normalizeValue(record.Values[i])
	}
	return row
}

// normalizeValue maps driver graph and temporal types to JSON-friendly
// values. Nodes become their property maps; relationships also carry their
// type under "_type".
func normalizeValue(v any) any {
	switch val := v.(type) {
	case nil:
		return nil
	case neo4j.Node:
		return normalizeMap(val.Props)
	case neo4j.Relationship:
		props := normalizeMap(val.Props)
		props["_type"] = val.Type
		return props
	case neo4j.Path:
		nodes := make([]any, len(val.Nodes))
		for i, n := range val.Nodes {
			nodes[i] = normalizeMap(n.Props)
		}
		return nodes
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = normalizeValue(item)
		}
		return out
	case map[string]any:
		return normalizeMap(val)
	case time.Time:
		return val.Format(time.RFC3339)
	case fmt.Stringer:
		// dates, durations and points
		return val.String()
	default:
		return val
	}
}

func normalizeMap(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = normalizeValue(v)
	}
	return out
}
