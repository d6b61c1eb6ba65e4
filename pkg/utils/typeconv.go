package utils

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// unixMillisCutoff separates unix seconds from unix milliseconds. Second
// timestamps stay below it until the year 33658.
const unixMillisCutoff = 1e12

// ToString renders scalar values as text. Documents and arrays are rejected.
func ToString(val interface{}) (string, error) {
	switch v := val.(type) {
	case string:
		return v, nil
	case []byte:
		return string(v), nil
	case int, int32, int64:
		return fmt.Sprintf("%d", v), nil
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64), nil
	case bool:
		return strconv.FormatBool(v), nil
	case primitive.ObjectID:
		return v.Hex(), nil
	case primitive.Decimal128:
		return v.String(), nil
	default:
		return "", fmt.Errorf("cannot convert %T to string", val)
	}
}

// ToInt64 converts integral numbers and numeric strings.
func ToInt64(val interface{}) (int64, error) {
	switch v := val.(type) {
	case int:
		return int64(v), nil
	case int32:
		return int64(v), nil
	case int64:
		return v, nil
	case float64:
		if math.IsNaN(v) || math.IsInf(v, 0) || v != math.Trunc(v) {
			return 0, fmt.Errorf("%v is not an integer", v)
		}
		return int64(v), nil
	case string:
		n, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64)
		if err != nil {
			return 0, fmt.Errorf("cannot parse %q as integer", v)
		}
		return n, nil
	case []byte:
		return ToInt64(string(v))
	default:
		return 0, fmt.Errorf("cannot convert %T to int", val)
	}
}

// ToInt is ToInt64 for values that fit an int.
func ToInt(val interface{}) (int, error) {
	n, err := ToInt64(val)
	if err != nil {
		return 0, err
	}
	return int(n), nil
}

// ToDecimal converts numbers and money-like strings ("$1,200.50").
func ToDecimal(val interface{}) (decimal.Decimal, error) {
	switch v := val.(type) {
	case int:
		return decimal.NewFromInt(int64(v)), nil
	case int32:
		return decimal.NewFromInt(int64(v)), nil
	case int64:
		return decimal.NewFromInt(v), nil
	case float64:
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return decimal.Decimal{}, fmt.Errorf("%v is not a finite number", v)
		}
		return decimal.NewFromFloat(v), nil
	case primitive.Decimal128:
		return decimal.NewFromString(v.String())
	case string:
		s := strings.NewReplacer("$", "", ",", "", " ", "").Replace(v)
		d, err := decimal.NewFromString(s)
		if err != nil {
			return decimal.Decimal{}, fmt.Errorf("cannot parse %q as number", v)
		}
		return d, nil
	default:
		return decimal.Decimal{}, fmt.Errorf("cannot convert %T to number", val)
	}
}

// ToPercent converts "75%", "75" or 75 to 75.
func ToPercent(val interface{}) (int, error) {
	if s, ok := val.(string); ok {
		val = strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(s), "%"))
	}
	d, err := ToDecimal(val)
	if err != nil {
		return 0, err
	}
	return int(d.Round(0).IntPart()), nil
}

// ToTime converts BSON datetimes, date strings and unix timestamps in seconds
// or milliseconds.
func ToTime(val interface{}) (time.Time, error) {
	switch v := val.(type) {
	case time.Time:
		return v, nil
	case primitive.DateTime:
		return v.Time(), nil
	case primitive.Timestamp:
		return time.Unix(int64(v.T), 0).UTC(), nil
	case string:
		formats := []string{
			time.RFC3339Nano,
			time.RFC3339,
			"2006-01-02T15:04:05",
			"2006-01-02 15:04:05",
			"2006-01-02",
			"01/02/2006",
		}
		s := strings.TrimSpace(v)
		for _, f := range formats {
			if t, err := time.Parse(f, s); err == nil {
				return t, nil
			}
		}
		if n, err := strconv.ParseInt(s, 10, 64); err == nil {
			return unixTime(n), nil
		}
		return time.Time{}, fmt.Errorf("unable to parse datetime: %s", v)
	case []byte:
		return ToTime(string(v))
	case int, int32, int64, float64:
		n, err := ToInt64(v)
		if err != nil {
			return time.Time{}, err
		}
		return unixTime(n), nil
	default:
		return time.Time{}, fmt.Errorf("cannot convert %T to datetime", val)
	}
}

func unixTime(n int64) time.Time {
	if n >= unixMillisCutoff || n <= -unixMillisCutoff {
		return time.UnixMilli(n).UTC()
	}
	return time.Unix(n, 0).UTC()
}

// ToJSON encodes a document value as JSON, turning BSON containers into plain
// maps and arrays first.
func ToJSON(val interface{}) ([]byte, error) {
	return json.Marshal(Plain(val))
}

// Plain converts BSON container types into maps and slices the json package
// understands.
func Plain(val interface{}) interface{} {
	switch v := val.(type) {
	case primitive.D:
		m := make(map[string]interface{}, len(v))
		for _, e := range v {
			m[e.Key] = Plain(e.Value)
		}
		return m
	case primitive.M:
		return plainMap(v)
	case map[string]interface{}:
		return plainMap(v)
	case primitive.A:
		return plainSlice(v)
	case []interface{}:
		return plainSlice(v)
	case primitive.DateTime:
		return v.Time().UTC()
	case primitive.ObjectID:
		return v.Hex()
	case primitive.Decimal128:
		return v.String()
	default:
		return val
	}
}

func plainMap(m map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(m))
	for k, v := range m {
		out[k] = Plain(v)
	}
	return out
}

func plainSlice(s []interface{}) []interface{} {
	out := make([]interface{}, len(s))
	for i, v := range s {
		out[i] = Plain(v)
	}
	return out
}
