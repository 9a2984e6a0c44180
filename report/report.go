// Package report defines the ordered audit record and its two renderings:
// a JSON object whose keys keep insertion order, and an indented plain-text
// document. Field order is part of the report format, so the record is a
// slice of named fields rather than a map.
package report

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// NotFound is the sentinel value for fields whose data is absent from the
// page. Every recognized field is always present in the report; it is never
// omitted, only degraded to this sentinel or a zero count.
const NotFound = "Not Found"

// Kind discriminates the variants a field value can hold.
type Kind int

const (
	KindString Kind = iota
	KindInt
	KindStringMap
	KindCountMap
	KindGroupMap
	KindLinks
	KindJSON
)

// Link is one classified hyperlink: absolute URL plus its anchor text.
type Link struct {
	URL    string `json:"url"`
	Anchor string `json:"anchor"`
}

// StringItem is one entry of an ordered string-to-string mapping.
type StringItem struct {
	Key   string
	Value string
}

// StringMap is an insertion-ordered string-to-string mapping.
type StringMap []StringItem

// CountItem is one entry of an ordered string-to-count mapping.
type CountItem struct {
	Key   string
	Count int
}

// CountMap is an insertion-ordered string-to-count mapping.
type CountMap []CountItem

// GroupItem is one entry of an ordered string-to-list mapping.
type GroupItem struct {
	Key     string
	Members []string
}

// GroupMap is an insertion-ordered string-to-list mapping.
type GroupMap []GroupItem

// Value is the tagged variant held by a report field.
type Value struct {
	kind    Kind
	str     string
	num     int
	strings StringMap
	counts  CountMap
	groups  GroupMap
	links   []Link
	raw     any
}

// String wraps a string value.
func String(s string) Value { return Value{kind: KindString, str: s} }

// Int wraps an integer value.
func Int(n int) Value { return Value{kind: KindInt, num: n} }

// Strings wraps an ordered string mapping.
func Strings(m StringMap) Value { return Value{kind: KindStringMap, strings: m} }

// Counts wraps an ordered count mapping.
func Counts(m CountMap) Value { return Value{kind: KindCountMap, counts: m} }

// Groups wraps an ordered group mapping.
func Groups(m GroupMap) Value { return Value{kind: KindGroupMap, groups: m} }

// Links wraps a list of classified links.
func Links(ls []Link) Value {
	if ls == nil {
		ls = []Link{}
	}
	return Value{kind: KindLinks, links: ls}
}

// JSON wraps already-parsed JSON data (schema markup blocks).
func JSON(v any) Value { return Value{kind: KindJSON, raw: v} }

// Kind reports which variant the value holds.
func (v Value) Kind() Kind { return v.kind }

// Str returns the string variant ("" for other kinds).
func (v Value) Str() string { return v.str }

// Num returns the integer variant (0 for other kinds).
func (v Value) Num() int { return v.num }

// StringMap returns the ordered string mapping variant.
func (v Value) StringMap() StringMap { return v.strings }

// CountMap returns the ordered count mapping variant.
func (v Value) CountMap() CountMap { return v.counts }

// GroupMap returns the ordered group mapping variant.
func (v Value) GroupMap() GroupMap { return v.groups }

// LinkList returns the link list variant.
func (v Value) LinkList() []Link { return v.links }

// Raw returns the parsed-JSON variant.
func (v Value) Raw() any { return v.raw }

// MarshalJSON renders the variant, preserving insertion order for the
// mapping kinds by writing the object bytes directly.
func (v Value) MarshalJSON() ([]byte, error) {
	switch v.kind {
	case KindString:
		return json.Marshal(v.str)
	case KindInt:
		return json.Marshal(v.num)
	case KindStringMap:
		var buf bytes.Buffer
		buf.WriteByte('{')
		for i, it := range v.strings {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := writePair(&buf, it.Key, it.Value); err != nil {
				return nil, err
			}
		}
		buf.WriteByte('}')
		return buf.Bytes(), nil
	case KindCountMap:
		var buf bytes.Buffer
		buf.WriteByte('{')
		for i, it := range v.counts {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := writePair(&buf, it.Key, it.Count); err != nil {
				return nil, err
			}
		}
		buf.WriteByte('}')
		return buf.Bytes(), nil
	case KindGroupMap:
		var buf bytes.Buffer
		buf.WriteByte('{')
		for i, it := range v.groups {
			if i > 0 {
				buf.WriteByte(',')
			}
			members := it.Members
			if members == nil {
				members = []string{}
			}
			if err := writePair(&buf, it.Key, members); err != nil {
				return nil, err
			}
		}
		buf.WriteByte('}')
		return buf.Bytes(), nil
	case KindLinks:
		return json.Marshal(v.links)
	case KindJSON:
		return json.Marshal(v.raw)
	default:
		return nil, fmt.Errorf("report: unknown value kind %d", v.kind)
	}
}

func writePair(buf *bytes.Buffer, key string, val any) error {
	k, err := json.Marshal(key)
	if err != nil {
		return err
	}
	v, err := json.Marshal(val)
	if err != nil {
		return err
	}
	buf.Write(k)
	buf.WriteByte(':')
	buf.Write(v)
	return nil
}

// Field is one named entry of the report.
type Field struct {
	Name  string
	Value Value
}

// Report is the ordered audit record. Fields render in the order they were
// added, both in JSON and in the plain-text document.
type Report struct {
	fields []Field
}

// New returns an empty report.
func New() *Report { return &Report{} }

// Add appends a field. Adding a name twice replaces the earlier value while
// keeping its original position.
func (r *Report) Add(name string, v Value) {
	for i := range r.fields {
		if r.fields[i].Name == name {
			r.fields[i].Value = v
			return
		}
	}
	r.fields = append(r.fields, Field{Name: name, Value: v})
}

// Get looks a field up by name.
func (r *Report) Get(name string) (Value, bool) {
	for _, f := range r.fields {
		if f.Name == name {
			return f.Value, true
		}
	}
	return Value{}, false
}

// Fields returns the fields in insertion order.
func (r *Report) Fields() []Field { return r.fields }

// MarshalJSON renders the report as a JSON object in field order.
func (r *Report) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, f := range r.fields {
		if i > 0 {
			buf.WriteByte(',')
		}
		name, err := json.Marshal(f.Name)
		if err != nil {
			return nil, err
		}
		val, err := f.Value.MarshalJSON()
		if err != nil {
			return nil, err
		}
		buf.Write(name)
		buf.WriteByte(':')
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}
