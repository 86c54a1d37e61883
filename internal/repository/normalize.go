package repository

import (
	"fmt"
	"reflect"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"yescity/internal/model"
)

// NormalizeDocument converts a raw BSON document into a JSON-safe catalog record.
// ObjectIDs become hex strings, timestamps become RFC 3339 strings, and nested
// documents and arrays are converted recursively. A container that appears again
// inside itself is replaced with a placeholder string instead of being walked.
func NormalizeDocument(doc bson.M) model.CatalogRecord {
	n := normalizer{onPath: make(map[uintptr]bool)}
	out := make(model.CatalogRecord, len(doc))
	if id := containerID(doc); id != 0 {
		n.onPath[id] = true
	}
	for k, v := range doc {
		out[k] = n.value(v)
	}
	if _, ok := out["_id"].(string); !ok && out["_id"] != nil {
		out["_id"] = fmt.Sprint(out["_id"])
	}
	return out
}

type normalizer struct {
	onPath map[uintptr]bool
}

func (n normalizer) value(v any) any {
	switch t := v.(type) {
	case nil:
		return nil
	case primitive.ObjectID:
		return t.Hex()
	case primitive.DateTime:
		return t.Time().UTC().Format(time.RFC3339Nano)
	case time.Time:
		return t.UTC().Format(time.RFC3339Nano)
	case primitive.Timestamp:
		return time.Unix(int64(t.T), 0).UTC().Format(time.RFC3339)
	case primitive.Decimal128:
		return t.String()
	case primitive.Null, primitive.Undefined:
		return nil
	case bson.M:
		return n.enter(t, func() any {
			out := make(map[string]any, len(t))
			for k, child := range t {
				out[k] = n.value(child)
			}
			return out
		})
	case map[string]any:
		return n.enter(t, func() any {
			out := make(map[string]any, len(t))
			for k, child := range t {
				out[k] = n.value(child)
			}
			return out
		})
	case bson.D:
		return n.enter(t, func() any {
			out := make(map[string]any, len(t))
			for _, e := range t {
				out[e.Key] = n.value(e.Value)
			}
			return out
		})
	case bson.A:
		return n.enter(t, func() any {
			out := make([]any, len(t))
			for i, child := range t {
				out[i] = n.value(child)
			}
			return out
		})
	case []any:
		return n.enter(t, func() any {
			out := make([]any, len(t))
			for i, child := range t {
				out[i] = n.value(child)
			}
			return out
		})
	default:
		return v
	}
}

// enter walks a container unless it is already on the current path.
func (n normalizer) enter(container any, walk func() any) any {
	id := containerID(container)
	if id == 0 {
		return walk()
	}
	if n.onPath[id] {
		return fmt.Sprintf("<cycle %T>", container)
	}
	n.onPath[id] = true
	defer delete(n.onPath, id)
	return walk()
}

// containerID identifies a map or non-empty slice by its backing storage.
func containerID(container any) uintptr {
	rv := reflect.ValueOf(container)
	switch rv.Kind() {
	case reflect.Map:
		if rv.IsNil() {
			return 0
		}
		return rv.Pointer()
	case reflect.Slice:
		if rv.Len() == 0 {
			return 0
		}
		return rv.Pointer()
	default:
		return 0
	}
}
