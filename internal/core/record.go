package core

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/Jeffail/gabs"
)

var (
	ErrNotAnObject        = errors.New("record is not a JSON object")
	ErrMalformedTimestamp = errors.New("malformed timestamp")
)

const (
	FieldID         = "id"
	FieldAuthor     = "author"
	FieldCreatedUTC = "created_utc"
	FieldScore      = "score"
)

// RawRecord is a submission or comment exactly as returned by a remote API. It is read-only.
type RawRecord struct {
	c *gabs.Container
}

func ParseRawRecord(data []byte) (RawRecord, error) {
	c, err := gabs.ParseJSON(data)
	if err != nil {
		return RawRecord{}, err
	}

	if _, ok := c.Data().(map[string]interface{}); !ok {
		return RawRecord{}, ErrNotAnObject
	}

	return RawRecord{c: c}, nil
}

// NewRawRecord wraps an already decoded object. The map must not be modified afterwards.
func NewRawRecord(fields map[string]any) RawRecord {
	c, err := gabs.Consume(fields)
	if err != nil {
		return RawRecord{}
	}
	return RawRecord{c: c}
}

func (r RawRecord) value(key string) any {
	if r.c == nil || !r.c.Exists(key) {
		return nil
	}
	return r.c.Search(key).Data()
}

func (r RawRecord) Has(key string) bool {
	return r.value(key) != nil
}

func (r RawRecord) ID() string {
	return r.Text(FieldID)
}

func (r RawRecord) Author() string {
	return r.Text(FieldAuthor)
}

func (r RawRecord) Score() int {
	n, _ := number(r.value(FieldScore))
	return int(n)
}

// Created returns the creation time in unix seconds.
func (r RawRecord) Created() (int64, error) {
	raw := r.value(FieldCreatedUTC)

	n, ok := number(raw)
	if !ok {
		return 0, fmt.Errorf("%w: %s=%v (id %s)", ErrMalformedTimestamp, FieldCreatedUTC, raw, r.ID())
	}

	return int64(n), nil
}

func (r RawRecord) Text(key string) string {
	s, _ := r.value(key).(string)
	return s
}

func (r RawRecord) Bool(key string) bool {
	b, _ := r.value(key).(bool)
	return b
}

// Cell renders a field for tabular output. Absent and null fields render as "".
func (r RawRecord) Cell(key string) string {
	switch v := r.value(key).(type) {
	case nil:
		return ""
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(v)
	default:
		b, err := json.Marshal(v)
		if err != nil {
			return fmt.Sprint(v)
		}
		return string(b)
	}
}

func (r RawRecord) MarshalJSON() ([]byte, error) {
	if r.c == nil {
		return []byte("null"), nil
	}
	return r.c.Bytes(), nil
}

func (r *RawRecord) UnmarshalJSON(data []byte) error {
	parsed, err := ParseRawRecord(data)
	if err != nil {
		return err
	}
	*r = parsed
	return nil
}

func (r RawRecord) String() string {
	if r.c == nil {
		return "{}"
	}
	return r.c.String()
}

func number(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		if math.IsNaN(n) || math.IsInf(n, 0) {
			return 0, false
		}
		return n, true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		return f, err == nil
	default:
		return 0, false
	}
}

// StripKind removes the "t1_"/"t3_" style type prefix from a fullname.
func StripKind(fullname string) string {
	if i := strings.LastIndexByte(fullname, '_'); i >= 0 {
		return fullname[i+1:]
	}
	return fullname
}
