package models

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"
)

// Point is one line-protocol sample.
type Point struct {
	Measurement string
	Tags        map[string]string
	Fields      map[string]any
	Time        time.Time
}

// NewPoint creates an empty point stamped with ts.
func NewPoint(measurement string, ts time.Time) *Point {
	return &Point{
		Measurement: measurement,
		Tags:        map[string]string{},
		Fields:      map[string]any{},
		Time:        ts,
	}
}

// Tag sets a tag and returns p for chaining.
func (p *Point) Tag(key, value string) *Point {
	p.Tags[key] = value
	return p
}

// Field sets a field and returns p for chaining.
func (p *Point) Field(key string, value any) *Point {
	p.Fields[key] = value
	return p
}

// UnixNano returns the timestamp in nanoseconds, truncated to the millisecond.
func (p *Point) UnixNano() int64 {
	return p.Time.UnixMilli() * int64(time.Millisecond)
}

var (
	measurementEscaper = strings.NewReplacer(`,`, `\,`, ` `, `\ `)
	keyEscaper         = strings.NewReplacer(`,`, `\,`, `=`, `\=`, ` `, `\ `)
	stringEscaper      = strings.NewReplacer(`\`, `\\`, `"`, `\"`)
)

// Line renders p as `measurement,tag=v field=v ts`. Tags and fields are
// sorted by key; empty tag values are dropped.
func (p *Point) Line() (string, error) {
	if len(p.Fields) == 0 {
		return "", fmt.Errorf("point %s has no fields", p.Measurement)
	}

	var b strings.Builder
	b.WriteString(measurementEscaper.Replace(p.Measurement))

	for _, k := range sortedKeys(p.Tags) {
		v := p.Tags[k]
		if v == "" {
			continue
		}
		b.WriteByte(',')
		b.WriteString(keyEscaper.Replace(k))
		b.WriteByte('=')
		b.WriteString(keyEscaper.Replace(v))
	}

	b.WriteByte(' ')
	for i, k := range sortedKeys(p.Fields) {
		if i > 0 {
			b.WriteByte(',')
		}
		value, err := formatField(p.Fields[k])
		if err != nil {
			return "", fmt.Errorf("field %s of %s: %w", k, p.Measurement, err)
		}
		b.WriteString(keyEscaper.Replace(k))
		b.WriteByte('=')
		b.WriteString(value)
	}

	b.WriteByte(' ')
	b.WriteString(strconv.FormatInt(p.UnixNano(), 10))
	return b.String(), nil
}

func formatField(v any) (string, error) {
	switch x := v.(type) {
	case int:
		return strconv.FormatInt(int64(x), 10) + "i", nil
	case int32:
		return strconv.FormatInt(int64(x), 10) + "i", nil
	case int64:
		return strconv.FormatInt(x, 10) + "i", nil
	case uint:
		return strconv.FormatUint(uint64(x), 10) + "i", nil
	case uint16:
		return strconv.FormatUint(uint64(x), 10) + "i", nil
	case uint32:
		return strconv.FormatUint(uint64(x), 10) + "i", nil
	case uint64:
		return strconv.FormatUint(x, 10) + "i", nil
	case float32:
		return strconv.FormatFloat(float64(x), 'f', -1, 32), nil
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64), nil
	case bool:
		return strconv.FormatBool(x), nil
	case string:
		return `"` + stringEscaper.Replace(x) + `"`, nil
	default:
		return "", fmt.Errorf("unsupported field type %T", v)
	}
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Batch renders points as newline-terminated lines. Points that cannot be
// rendered are returned in errs and left out.
func Batch(points []*Point) (string, []error) {
	var (
		b    strings.Builder
		errs []error
	)
	for _, p := range points {
		line, err := p.Line()
		if err != nil {
			errs = append(errs, err)
			continue
		}
		b.WriteString(line)
		b.WriteByte('\n')
	}
	return b.String(), errs
}
