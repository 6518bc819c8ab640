package users

import (
	"sort"
	"unicode/utf8"
)

// KeyFunc extracts a group key from a row
type KeyFunc func(u User) string

// Group is a transient partition of user rows keyed by a column value.
// It is a snapshot: mutations of the store after grouping are not reflected.
type Group struct {
	By        string
	FirstChar bool

	buckets map[string][]User
}

// GroupByExact partitions rows by the exact value of field
func GroupByExact(rows []User, field string) (*Group, error) {
	if !KnownFields[field] {
		return nil, NewUnknownFieldError(field)
	}
	g := partition(rows, func(u User) string { return u.value(field) })
	g.By = field
	return g, nil
}

// GroupByFirstChar partitions rows by the leading character of field.
// Keys are case-sensitive; "alice" and "Alice" land in different buckets.
func GroupByFirstChar(rows []User, field string) (*Group, error) {
	if !KnownFields[field] {
		return nil, NewUnknownFieldError(field)
	}
	g := partition(rows, func(u User) string { return firstChar(u.value(field)) })
	g.By = field
	g.FirstChar = true
	return g, nil
}

func partition(rows []User, key KeyFunc) *Group {
	g := &Group{buckets: make(map[string][]User)}
	for _, row := range rows {
		k := key(row)
		g.buckets[k] = append(g.buckets[k], row)
	}
	return g
}

func firstChar(s string) string {
	if s == "" {
		return ""
	}
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError && size <= 1 {
		return s[:1]
	}
	return string(r)
}

// Keys returns the group keys in ascending order
func (g *Group) Keys() []string {
	keys := make([]string, 0, len(g.buckets))
	for k := range g.buckets {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Rows returns the rows of one bucket
func (g *Group) Rows(key string) []User {
	return g.buckets[key]
}

// Len returns the number of buckets
func (g *Group) Len() int {
	return len(g.buckets)
}

// Mean computes the arithmetic mean of field within each bucket.
// An empty group yields an empty, non-nil mapping.
func (g *Group) Mean(field string) (map[string]float64, error) {
	if !KnownFields[field] {
		return nil, NewUnknownAggregationFieldError(field)
	}
	if _, ok := (User{}).numeric(field); !ok {
		return nil, NewNonNumericFieldError(field)
	}

	means := make(map[string]float64, len(g.buckets))
	for key, rows := range g.buckets {
		var sum float64
		for _, row := range rows {
			v, _ := row.numeric(field)
			sum += v
		}
		means[key] = sum / float64(len(rows))
	}
	return means, nil
}
