// Package llsd implements the LLSD structured-document format used on the
// capability channel. Values map to Go types as: undef → nil, boolean → bool,
// integer → int, real → float64, string → string, uuid → uuid.UUID,
// date → time.Time, binary → []byte, array → []any, map → *Map.
//
// Maps preserve key order, which encoding/xml struct tags cannot express, so
// the codec walks the token stream directly.
package llsd

import (
	"bytes"
	"encoding/base64"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ContentType is the media type served for LLSD/XML bodies.
const ContentType = "application/llsd+xml"

// ErrNotDocument is returned when input is not a well-formed LLSD document at
// all (as opposed to a valid document with an unexpected top-level shape).
var ErrNotDocument = errors.New("llsd: input is not an llsd document")

// Map is an LLSD map: string keys to values, preserving insertion order.
type Map struct {
	keys   []string
	values map[string]any
}

// NewMap creates an empty map.
func NewMap() *Map {
	return &Map{values: make(map[string]any)}
}

// Set stores a value under key. An existing key keeps its position.
func (m *Map) Set(key string, v any) {
	if _, exists := m.values[key]; !exists {
		m.keys = append(m.keys, key)
	}
	m.values[key] = v
}

// Get returns the value stored under key.
func (m *Map) Get(key string) (any, bool) {
	v, ok := m.values[key]
	return v, ok
}

// Has reports whether key is present.
func (m *Map) Has(key string) bool {
	_, ok := m.values[key]
	return ok
}

// Keys returns the map's keys in insertion order.
func (m *Map) Keys() []string {
	return m.keys
}

// Len returns the number of keys.
func (m *Map) Len() int {
	return len(m.keys)
}

// String returns the string stored under key, if there is one.
func (m *Map) String(key string) (string, bool) {
	s, ok := m.values[key].(string)
	return s, ok
}

// Int returns the integer stored under key, if there is one.
func (m *Map) Int(key string) (int, bool) {
	n, ok := m.values[key].(int)
	return n, ok
}

// Bool returns the boolean stored under key, if there is one.
func (m *Map) Bool(key string) (bool, bool) {
	b, ok := m.values[key].(bool)
	return b, ok
}

// UUID returns the UUID stored under key. A string value that parses as a
// UUID is accepted too; viewers are not consistent about which they send.
func (m *Map) UUID(key string) (uuid.UUID, bool) {
	switch v := m.values[key].(type) {
	case uuid.UUID:
		return v, true
	case string:
		id, err := uuid.Parse(v)
		if err != nil {
			return uuid.Nil, false
		}
		return id, true
	default:
		return uuid.Nil, false
	}
}

// Marshal serializes a value into an LLSD/XML document.
func Marshal(v any) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteString(`<?xml version="1.0" encoding="UTF-8"?>`)
	buf.WriteString("<llsd>")
	if err := encodeValue(&buf, v); err != nil {
		return nil, err
	}
	buf.WriteString("</llsd>")
	return buf.Bytes(), nil
}

func encodeValue(buf *bytes.Buffer, v any) error {
	switch val := v.(type) {
	case nil:
		buf.WriteString("<undef/>")
	case bool:
		if val {
			buf.WriteString("<boolean>true</boolean>")
		} else {
			buf.WriteString("<boolean>false</boolean>")
		}
	case int:
		fmt.Fprintf(buf, "<integer>%d</integer>", val)
	case int64:
		fmt.Fprintf(buf, "<integer>%d</integer>", val)
	case uint32:
		fmt.Fprintf(buf, "<integer>%d</integer>", val)
	case float64:
		fmt.Fprintf(buf, "<real>%g</real>", val)
	case string:
		buf.WriteString("<string>")
		xml.EscapeText(buf, []byte(val))
		buf.WriteString("</string>")
	case uuid.UUID:
		fmt.Fprintf(buf, "<uuid>%s</uuid>", val.String())
	case time.Time:
		fmt.Fprintf(buf, "<date>%s</date>", val.UTC().Format("2006-01-02T15:04:05Z"))
	case []byte:
		buf.WriteString(`<binary encoding="base64">`)
		buf.WriteString(base64.StdEncoding.EncodeToString(val))
		buf.WriteString("</binary>")
	case []any:
		buf.WriteString("<array>")
		for _, item := range val {
			if err := encodeValue(buf, item); err != nil {
				return err
			}
		}
		buf.WriteString("</array>")
	case *Map:
		buf.WriteString("<map>")
		for _, key := range val.keys {
			buf.WriteString("<key>")
			xml.EscapeText(buf, []byte(key))
			buf.WriteString("</key>")
			if err := encodeValue(buf, val.values[key]); err != nil {
				return err
			}
		}
		buf.WriteString("</map>")
	default:
		return fmt.Errorf("llsd: unsupported type %T", v)
	}
	return nil
}

// Unmarshal parses an LLSD/XML document and returns its top-level value.
// Malformed input is reported as ErrNotDocument; callers that require a
// specific top-level shape (usually *Map) check the returned value's type.
func Unmarshal(data []byte) (any, error) {
	dec := xml.NewDecoder(bytes.NewReader(data))
	root, err := nextStartElement(dec)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNotDocument, err)
	}
	if root.Name.Local != "llsd" {
		return nil, fmt.Errorf("%w: root element is <%s>", ErrNotDocument, root.Name.Local)
	}

	start, err := nextStartElement(dec)
	if err != nil {
		return nil, fmt.Errorf("%w: missing value element", ErrNotDocument)
	}
	value, err := decodeValue(dec, start)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNotDocument, err)
	}
	return value, nil
}

func nextStartElement(dec *xml.Decoder) (xml.StartElement, error) {
	for {
		tok, err := dec.Token()
		if err != nil {
			return xml.StartElement{}, err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			return t, nil
		case xml.EndElement:
			return xml.StartElement{}, io.EOF
		}
	}
}

func decodeValue(dec *xml.Decoder, start xml.StartElement) (any, error) {
	switch start.Name.Local {
	case "undef":
		return nil, dec.Skip()
	case "boolean":
		text, err := elementText(dec)
		if err != nil {
			return nil, err
		}
		return text == "true" || text == "1", nil
	case "integer":
		text, err := elementText(dec)
		if err != nil {
			return nil, err
		}
		if text == "" {
			return 0, nil
		}
		n, err := strconv.Atoi(text)
		if err != nil {
			return nil, fmt.Errorf("bad integer %q", text)
		}
		return n, nil
	case "real":
		text, err := elementText(dec)
		if err != nil {
			return nil, err
		}
		if text == "" {
			return 0.0, nil
		}
		f, err := strconv.ParseFloat(text, 64)
		if err != nil {
			return nil, fmt.Errorf("bad real %q", text)
		}
		return f, nil
	case "string":
		return elementText(dec)
	case "uuid":
		text, err := elementText(dec)
		if err != nil {
			return nil, err
		}
		if text == "" {
			return uuid.Nil, nil
		}
		id, err := uuid.Parse(text)
		if err != nil {
			return nil, fmt.Errorf("bad uuid %q", text)
		}
		return id, nil
	case "date":
		text, err := elementText(dec)
		if err != nil {
			return nil, err
		}
		if text == "" {
			return time.Time{}, nil
		}
		ts, err := time.Parse(time.RFC3339, text)
		if err != nil {
			return nil, fmt.Errorf("bad date %q", text)
		}
		return ts, nil
	case "binary":
		text, err := elementText(dec)
		if err != nil {
			return nil, err
		}
		raw, err := base64.StdEncoding.DecodeString(strings.TrimSpace(text))
		if err != nil {
			return nil, fmt.Errorf("bad binary payload: %v", err)
		}
		return raw, nil
	case "array":
		var items []any
		for {
			child, err := nextStartElement(dec)
			if err == io.EOF {
				return items, nil
			}
			if err != nil {
				return nil, err
			}
			item, err := decodeValue(dec, child)
			if err != nil {
				return nil, err
			}
			items = append(items, item)
		}
	case "map":
		m := NewMap()
		for {
			child, err := nextStartElement(dec)
			if err == io.EOF {
				return m, nil
			}
			if err != nil {
				return nil, err
			}
			if child.Name.Local != "key" {
				return nil, fmt.Errorf("expected <key>, got <%s>", child.Name.Local)
			}
			key, err := elementText(dec)
			if err != nil {
				return nil, err
			}
			valueStart, err := nextStartElement(dec)
			if err != nil {
				return nil, fmt.Errorf("map key %q has no value", key)
			}
			value, err := decodeValue(dec, valueStart)
			if err != nil {
				return nil, err
			}
			m.Set(key, value)
		}
	default:
		return nil, fmt.Errorf("unknown element <%s>", start.Name.Local)
	}
}

// elementText consumes tokens up to the current element's end tag and returns
// the concatenated character data.
func elementText(dec *xml.Decoder) (string, error) {
	var sb strings.Builder
	depth := 0
	for {
		tok, err := dec.Token()
		if err != nil {
			return "", err
		}
		switch t := tok.(type) {
		case xml.CharData:
			if depth == 0 {
				sb.Write(t)
			}
		case xml.StartElement:
			depth++
		case xml.EndElement:
			if depth == 0 {
				return sb.String(), nil
			}
			depth--
		}
	}
}
