package etl

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/BartekS5/crmmigrate/pkg/models"
	"github.com/BartekS5/crmmigrate/pkg/utils"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

// docReader reads typed values out of a loose document. Every accessor takes
// the alias keys of a field in priority order; nil and empty strings count as
// absent. Conversion problems are collected instead of returned so that one
// pass reports every bad field of a document.
type docReader struct {
	doc  models.Document
	id   string
	errs []error
}

func newDocReader(doc models.Document) *docReader {
	return &docReader{doc: doc, id: doc.Key()}
}

// lookup returns the first present value among keys and the key it was found under.
func (r *docReader) lookup(keys ...string) (interface{}, string, bool) {
	for _, k := range keys {
		v, ok := r.doc.Fields[k]
		if !ok || v == nil {
			continue
		}
		if s, isStr := v.(string); isStr && strings.TrimSpace(s) == "" {
			continue
		}
		return v, k, true
	}
	return nil, "", false
}

func (r *docReader) fail(field, reason string) {
	r.errs = append(r.errs, &FieldMappingError{DocumentID: r.id, Field: field, Reason: reason})
}

// err returns every collected problem, or nil.
func (r *docReader) err() error {
	return errors.Join(r.errs...)
}

// requireID returns the document identifier or records it as missing.
func (r *docReader) requireID() string {
	v, present := r.doc.Fields[models.IDField]
	if !present || v == nil {
		r.fail(models.IDField, "required field is missing")
		return ""
	}
	id, ok := models.IDString(v)
	if !ok {
		r.fail(models.IDField, fmt.Sprintf("unusable identifier of type %T", v))
		return ""
	}
	return id
}

// requiredString reads a field that must be present. field names it in errors.
func (r *docReader) requiredString(field string, keys ...string) string {
	if s := r.str(keys...); s != nil {
		return *s
	}
	if _, _, ok := r.lookup(keys...); !ok {
		r.fail(field, "required field is missing")
	}
	return ""
}

func (r *docReader) str(keys ...string) *string {
	v, key, ok := r.lookup(keys...)
	if !ok {
		return nil
	}
	s, err := utils.ToString(v)
	if err != nil {
		r.fail(key, err.Error())
		return nil
	}
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}

// strOr is str with a fallback for absent values.
func (r *docReader) strOr(def string, keys ...string) string {
	if s := r.str(keys...); s != nil {
		return *s
	}
	return def
}

func (r *docReader) int64(keys ...string) *int64 {
	v, key, ok := r.lookup(keys...)
	if !ok {
		return nil
	}
	n, err := utils.ToInt64(v)
	if err != nil {
		r.fail(key, err.Error())
		return nil
	}
	return &n
}

func (r *docReader) int(keys ...string) *int {
	v, key, ok := r.lookup(keys...)
	if !ok {
		return nil
	}
	n, err := utils.ToInt(v)
	if err != nil {
		r.fail(key, err.Error())
		return nil
	}
	return &n
}

// count reads a counter column that defaults to zero.
func (r *docReader) count(keys ...string) int {
	if n := r.int(keys...); n != nil {
		return *n
	}
	return 0
}

func (r *docReader) percent(keys ...string) *int {
	v, key, ok := r.lookup(keys...)
	if !ok {
		return nil
	}
	n, err := utils.ToPercent(v)
	if err != nil {
		r.fail(key, err.Error())
		return nil
	}
	return &n
}

func (r *docReader) money(keys ...string) decimal.NullDecimal {
	v, key, ok := r.lookup(keys...)
	if !ok {
		return decimal.NullDecimal{}
	}
	d, err := utils.ToDecimal(v)
	if err != nil {
		r.fail(key, err.Error())
		return decimal.NullDecimal{}
	}
	return decimal.NewNullDecimal(d)
}

func (r *docReader) time(keys ...string) *time.Time {
	v, key, ok := r.lookup(keys...)
	if !ok {
		return nil
	}
	t, err := utils.ToTime(v)
	if err != nil {
		r.fail(key, err.Error())
		return nil
	}
	t = t.UTC()
	return &t
}

// option reads a dropdown custom field. Option ids are replaced by their
// label; labels and unknown ids are kept as text.
func (r *docReader) option(set models.OptionSet, keys ...string) *string {
	v, key, ok := r.lookup(keys...)
	if !ok {
		return nil
	}
	switch x := v.(type) {
	case int, int32, int64, float64:
		id, err := utils.ToInt64(x)
		if err != nil {
			r.fail(key, err.Error())
			return nil
		}
		if label, found := set.Label(id); found {
			return &label
		}
		s := strconv.FormatInt(id, 10)
		return &s
	case string:
		s := strings.TrimSpace(x)
		if id, err := strconv.ParseInt(s, 10, 64); err == nil {
			if label, found := set.Label(id); found {
				return &label
			}
		}
		return &s
	default:
		r.fail(key, fmt.Sprintf("cannot convert %T to option", v))
		return nil
	}
}

// list reads an array-like field as a JSON column. def is stored when the
// field is absent; nil stores SQL NULL.
func (r *docReader) list(def datatypes.JSON, keys ...string) datatypes.JSON {
	v, key, ok := r.lookup(keys...)
	if !ok {
		return def
	}
	b, err := utils.ToJSON(v)
	if err != nil {
		r.fail(key, err.Error())
		return def
	}
	return datatypes.JSON(b)
}
