package models

import (
	"fmt"
	"strconv"
	"strings"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// IDField is the source store's document identifier field.
const IDField = "_id"

// Document is one loosely-typed record read from the source store. Seq is its
// zero-based position in the read sequence.
type Document struct {
	Seq    int
	Fields map[string]interface{}
}

// ID returns the document identifier as a string. ok is false when the
// identifier is absent, empty or of a type that cannot name a record.
func (d Document) ID() (id string, ok bool) {
	return IDString(d.Fields[IDField])
}

// Key identifies the document in logs and errors, falling back to its
// position when it has no usable identifier.
func (d Document) Key() string {
	if id, ok := d.ID(); ok {
		return id
	}
	return fmt.Sprintf("#%d", d.Seq)
}

// IDString renders a source identifier value.
func IDString(v interface{}) (string, bool) {
	switch id := v.(type) {
	case string:
		id = strings.TrimSpace(id)
		return id, id != ""
	case primitive.ObjectID:
		if id.IsZero() {
			return "", false
		}
		return id.Hex(), true
	case int32:
		return strconv.FormatInt(int64(id), 10), true
	case int64:
		return strconv.FormatInt(id, 10), true
	case int:
		return strconv.Itoa(id), true
	default:
		return "", false
	}
}
