// ABOUTME: Typed custom field values and ordered field collections
// ABOUTME: Handles the tagged value union, JSON codec, and position ordering
package models

import (
	"encoding/json"
	"sort"
	"strconv"
	"strings"
	"time"
)

// FieldType enumerates the supported custom field kinds.
type FieldType string

const (
	FieldText     FieldType = "text"
	FieldNumber   FieldType = "number"
	FieldDate     FieldType = "date"
	FieldSelect   FieldType = "select"
	FieldTextarea FieldType = "textarea"
	FieldEmail    FieldType = "email"
	FieldPhone    FieldType = "phone"
	FieldURL      FieldType = "url"
	FieldCheckbox FieldType = "checkbox"
	FieldFile     FieldType = "file"
)

// Valid reports whether t is one of the supported field kinds.
func (t FieldType) Valid() bool {
	switch t {
	case FieldText, FieldNumber, FieldDate, FieldSelect, FieldTextarea,
		FieldEmail, FieldPhone, FieldURL, FieldCheckbox, FieldFile:
		return true
	}
	return false
}

// FileValue is the payload of a file-typed custom field.
type FileValue struct {
	Name string `json:"name"`
	URL  string `json:"url"`
	Size int64  `json:"size"`
}

// FieldValue is a variant record. Only the member matching the owning
// field's type is meaningful; the rest stay at their zero values.
type FieldValue struct {
	Text    string
	Number  float64
	Checked bool
	File    *FileValue
}

func TextValue(s string) FieldValue    { return FieldValue{Text: s} }
func NumberValue(n float64) FieldValue { return FieldValue{Number: n} }
func CheckboxValue(b bool) FieldValue  { return FieldValue{Checked: b} }
func FileFieldValue(f FileValue) FieldValue {
	return FieldValue{File: &f}
}

// DefaultValue returns the value a freshly created field of the given
// type starts with: false for checkboxes, 0 for numbers, today for dates,
// empty string for everything else.
func DefaultValue(t FieldType, now time.Time) FieldValue {
	switch t {
	case FieldCheckbox:
		return CheckboxValue(false)
	case FieldNumber:
		return NumberValue(0)
	case FieldDate:
		return TextValue(now.Format("2006-01-02"))
	default:
		return TextValue("")
	}
}

// GlobalFieldDef is one entry of the shared deal field schema.
type GlobalFieldDef struct {
	Type         FieldType  `json:"type"`
	DefaultValue FieldValue `json:"default_value"`
}

func (d GlobalFieldDef) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Type         FieldType       `json:"type"`
		DefaultValue json.RawMessage `json:"default_value"`
	}{d.Type, marshalValue(d.Type, d.DefaultValue)})
}

func (d *GlobalFieldDef) UnmarshalJSON(data []byte) error {
	var raw struct {
		Type         FieldType       `json:"type"`
		DefaultValue json.RawMessage `json:"default_value"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	d.Type = raw.Type
	v, err := unmarshalValue(raw.Type, raw.DefaultValue)
	if err != nil {
		return err
	}
	d.DefaultValue = v
	return nil
}

// CustomField is one named field instance on a lead or deal. Position is
// a dense 0..n-1 index used for stable display and storage ordering.
type CustomField struct {
	Type     FieldType
	Value    FieldValue
	Position int
}

func (f CustomField) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Value    json.RawMessage `json:"value"`
		Type     FieldType       `json:"type"`
		Position int             `json:"position"`
	}{marshalValue(f.Type, f.Value), f.Type, f.Position})
}

func (f *CustomField) UnmarshalJSON(data []byte) error {
	var raw struct {
		Value    json.RawMessage `json:"value"`
		Type     FieldType       `json:"type"`
		Position int             `json:"position"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	f.Type = raw.Type
	f.Position = raw.Position
	v, err := unmarshalValue(raw.Type, raw.Value)
	if err != nil {
		return err
	}
	f.Value = v
	return nil
}

func marshalValue(t FieldType, v FieldValue) json.RawMessage {
	var data []byte
	switch t {
	case FieldCheckbox:
		data, _ = json.Marshal(v.Checked)
	case FieldNumber:
		data, _ = json.Marshal(v.Number)
	case FieldFile:
		data, _ = json.Marshal(v.File)
	default:
		data, _ = json.Marshal(v.Text)
	}
	return data
}

func unmarshalValue(t FieldType, data json.RawMessage) (FieldValue, error) {
	var v FieldValue
	if len(data) == 0 || string(data) == "null" {
		return v, nil
	}
	var err error
	switch t {
	case FieldCheckbox:
		err = json.Unmarshal(data, &v.Checked)
	case FieldNumber:
		err = json.Unmarshal(data, &v.Number)
	case FieldFile:
		err = json.Unmarshal(data, &v.File)
	default:
		err = json.Unmarshal(data, &v.Text)
	}
	return v, err
}

// String renders the value the way the client displays it.
func (f CustomField) String() string {
	switch f.Type {
	case FieldCheckbox:
		return strconv.FormatBool(f.Value.Checked)
	case FieldNumber:
		return strconv.FormatFloat(f.Value.Number, 'f', -1, 64)
	case FieldFile:
		if f.Value.File == nil {
			return ""
		}
		return f.Value.File.Name
	default:
		return f.Value.Text
	}
}

// IsEmpty reports whether the field counts as unfilled. Checkboxes and
// numbers always render to a non-empty string and so are never empty,
// matching how the client treats them.
func (f CustomField) IsEmpty() bool {
	return strings.TrimSpace(f.String()) == ""
}

// CustomFields is an ordered name->field mapping.
type CustomFields map[string]CustomField

// Ordered returns field names sorted by position, name breaking ties.
func (cf CustomFields) Ordered() []string {
	names := make([]string, 0, len(cf))
	for name := range cf {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool {
		a, b := cf[names[i]], cf[names[j]]
		if a.Position != b.Position {
			return a.Position < b.Position
		}
		return names[i] < names[j]
	})
	return names
}

// Normalize rewrites positions to a dense 0..n-1 sequence preserving the
// current order.
func (cf CustomFields) Normalize() {
	for i, name := range cf.Ordered() {
		f := cf[name]
		f.Position = i
		cf[name] = f
	}
}

// Set adds or replaces a field. New fields land at the end of the order.
func (cf CustomFields) Set(name string, f CustomField) {
	if _, ok := cf[name]; !ok {
		f.Position = len(cf)
	}
	cf[name] = f
	cf.Normalize()
}

// MoveUp swaps the field with its predecessor. Returns false if the field
// is missing or already first.
func (cf CustomFields) MoveUp(name string) bool {
	return cf.move(name, -1)
}

// MoveDown swaps the field with its successor. Returns false if the field
// is missing or already last.
func (cf CustomFields) MoveDown(name string) bool {
	return cf.move(name, +1)
}

func (cf CustomFields) move(name string, delta int) bool {
	cf.Normalize()
	order := cf.Ordered()
	at := -1
	for i, n := range order {
		if n == name {
			at = i
			break
		}
	}
	if at < 0 || at+delta < 0 || at+delta >= len(order) {
		return false
	}
	other := order[at+delta]
	a, b := cf[name], cf[other]
	a.Position, b.Position = b.Position, a.Position
	cf[name] = a
	cf[other] = b
	return true
}

// Clone returns an independent copy of the mapping.
func (cf CustomFields) Clone() CustomFields {
	if cf == nil {
		return nil
	}
	out := make(CustomFields, len(cf))
	for name, f := range cf {
		out[name] = f
	}
	return out
}
