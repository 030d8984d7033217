package sqlite

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"math"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/mesh-intelligence/lookup/pkg/types"
)

// timeLayout is the storage format of datetime values. It is fixed width
// and UTC so that text comparison orders values chronologically.
const timeLayout = "2006-01-02 15:04:05.000000000"

// parseLayouts are tried in order when reading datetime text.
var parseLayouts = []string{
	timeLayout,
	"2006-01-02 15:04:05.999999999",
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999999-07:00",
	"2006-01-02T15:04:05",
	"2006-01-02",
}

// sqlTypes maps column types to SQLite declared types.
var sqlTypes = map[types.ColumnType]string{
	types.TypeInteger:  "INTEGER",
	types.TypeString:   "VARCHAR",
	types.TypeText:     "TEXT",
	types.TypeFloat:    "REAL",
	types.TypeBoolean:  "BOOLEAN",
	types.TypeDatetime: "DATETIME",
	types.TypeBlob:     "BLOB",
}

// bindValue converts a Go value into the form stored by SQLite.
func bindValue(v any) any {
	switch x := v.(type) {
	case time.Time:
		return x.UTC().Format(timeLayout)
	case *time.Time:
		if x == nil {
			return nil
		}
		return x.UTC().Format(timeLayout)
	case bool:
		if x {
			return int64(1)
		}
		return int64(0)
	default:
		return v
	}
}

// bindValues applies bindValue to each element.
func bindValues(vs []any) []any {
	out := make([]any, len(vs))
	for i, v := range vs {
		out[i] = bindValue(v)
	}
	return out
}

// scanValue converts a value read from SQLite according to the column type.
// Values that do not fit the declared type are returned as read, matching
// SQLite's own leniency.
func scanValue(col types.Column, raw any) any {
	if raw == nil {
		return nil
	}
	switch col.Type {
	case types.TypeInteger:
		if f, ok := raw.(float64); ok && isIntegral(f) {
			return int64(f)
		}
	case types.TypeFloat:
		if i, ok := raw.(int64); ok {
			return float64(i)
		}
	case types.TypeBoolean:
		switch x := raw.(type) {
		case int64:
			return x != 0
		case bool:
			return x
		}
	case types.TypeDatetime:
		switch x := raw.(type) {
		case time.Time:
			return x.UTC()
		case string:
			if t, ok := parseTime(x); ok {
				return t
			}
		case []byte:
			if t, ok := parseTime(string(x)); ok {
				return t
			}
		}
	case types.TypeString, types.TypeText:
		if b, ok := raw.([]byte); ok {
			return string(b)
		}
	case types.TypeBlob:
		if s, ok := raw.(string); ok {
			return []byte(s)
		}
	}
	return raw
}

// normalize converts a caller-supplied value to the Go type a read of the
// column returns, so a created record matches its reloaded form.
func normalize(col types.Column, v any) any {
	if v == nil {
		return nil
	}
	rv := reflect.ValueOf(v)
	switch col.Type {
	case types.TypeInteger:
		switch rv.Kind() {
		case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
			return rv.Int()
		case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
			return int64(rv.Uint())
		case reflect.Float32, reflect.Float64:
			if f := rv.Float(); isIntegral(f) {
				return int64(f)
			}
		}
	case types.TypeFloat:
		switch rv.Kind() {
		case reflect.Float32, reflect.Float64:
			return rv.Float()
		case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
			return float64(rv.Int())
		}
	case types.TypeDatetime:
		switch x := v.(type) {
		case time.Time:
			return x.Round(0).UTC()
		case *time.Time:
			if x == nil {
				return nil
			}
			return x.Round(0).UTC()
		}
	}
	return v
}

// keyValue converts a caller-supplied key component to the value SQLite
// compares against col. Numeric text is parsed for integer and float
// columns, as column affinity does, so "01", " 1" and "1.0" address id 1.
func keyValue(col types.Column, v any) any {
	if str, ok := v.(string); ok && (col.Type == types.TypeInteger || col.Type == types.TypeFloat) {
		text := strings.TrimSpace(str)
		if i, err := strconv.ParseInt(text, 10, 64); err == nil {
			v = i
		} else if f, err := strconv.ParseFloat(text, 64); err == nil && !math.IsNaN(f) && !math.IsInf(f, 0) {
			v = f
		}
	}
	return normalize(col, v)
}

func isIntegral(f float64) bool {
	return !math.IsInf(f, 0) && f == math.Trunc(f) && f >= math.MinInt64 && f < math.MaxInt64
}

func parseTime(s string) (time.Time, bool) {
	for _, layout := range parseLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), true
		}
	}
	return time.Time{}, false
}

// jsonValue converts a value decoded from JSON (with UseNumber) into the Go
// type of the column. Used when loading JSONL fixtures.
func jsonValue(col types.Column, v any) (any, error) {
	if v == nil {
		return nil, nil
	}
	switch col.Type {
	case types.TypeInteger:
		if n, ok := v.(json.Number); ok {
			return n.Int64()
		}
	case types.TypeFloat:
		if n, ok := v.(json.Number); ok {
			return n.Float64()
		}
	case types.TypeBoolean:
		if b, ok := v.(bool); ok {
			return b, nil
		}
	case types.TypeDatetime:
		if s, ok := v.(string); ok {
			if t, ok := parseTime(s); ok {
				return t, nil
			}
		}
	case types.TypeString, types.TypeText:
		if s, ok := v.(string); ok {
			return s, nil
		}
		if n, ok := v.(json.Number); ok {
			return n.String(), nil
		}
	case types.TypeBlob:
		if s, ok := v.(string); ok {
			return base64.StdEncoding.DecodeString(s)
		}
	}
	return nil, fmt.Errorf("%w: column %s (%s) cannot hold %v", types.ErrInvalidData, col.Name, col.Type, v)
}

// sequence returns the elements of v when v is a slice or array other than
// []byte, which is a scalar blob value.
func sequence(v any) ([]any, bool) {
	if v == nil {
		return nil, false
	}
	if items, ok := v.([]any); ok {
		return items, true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Slice, reflect.Array:
		if rv.Type().Elem().Kind() == reflect.Uint8 {
			return nil, false
		}
		out := make([]any, rv.Len())
		for i := range out {
			out[i] = rv.Index(i).Interface()
		}
		return out, true
	default:
		return nil, false
	}
}

// keyString renders key values so that equal keys compare equal across the
// Go types a caller may pass ("1" and 1 match an integer key).
func keyString(vals []any) string {
	s := ""
	for i, v := range vals {
		if i > 0 {
			s += "\x1f"
		}
		switch x := bindValue(v).(type) {
		case string:
			s += x
		case int64:
			s += strconv.FormatInt(x, 10)
		default:
			s += fmt.Sprint(x)
		}
	}
	return s
}
