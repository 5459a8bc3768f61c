package model

import (
	"encoding/json"
	"strings"
)

type InputType string

const (
	InputSelect   InputType = "select"
	InputRadio    InputType = "radio"
	InputCheckbox InputType = "checkbox"
	InputText     InputType = "text"
)

func (t InputType) Valid() bool {
	switch t {
	case InputSelect, InputRadio, InputCheckbox, InputText:
		return true
	}
	return false
}

// Selectable reports whether the group takes part in variant selection.
func (t InputType) Selectable() bool {
	return t != InputText
}

// OptionGroup is one axis of configuration, e.g. "Memory".
type OptionGroup struct {
	ID         string        `json:"id"`
	Name       string        `json:"name"`
	InputType  InputType     `json:"input_type"`
	Required   bool          `json:"required"`
	AllowEmpty bool          `json:"allow_empty"`
	Values     []OptionValue `json:"values"`
}

type OptionValue struct {
	ID    string `json:"id"`
	Label string `json:"label"`
}

// UnmarshalJSON accepts either {"id","label"} or a bare label string.
// A value without an id uses its label as id.
func (v *OptionValue) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		v.ID, v.Label = s, s
		return nil
	}

	type plain OptionValue
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	if strings.TrimSpace(p.ID) == "" {
		p.ID = p.Label
	}
	*v = OptionValue(p)
	return nil
}

// Choice is the value a variant holds for one group: a single value id
// (select/radio/text, "" meaning no selection) or a set of ids (checkbox).
type Choice struct {
	Value string
	Set   []string
	Multi bool
}

func One(value string) Choice {
	return Choice{Value: value}
}

func Many(values ...string) Choice {
	return Choice{Set: append([]string{}, values...), Multi: true}
}

// IsEmpty reports whether the choice carries no value.
func (c Choice) IsEmpty() bool {
	if c.Multi {
		for _, v := range c.Set {
			if strings.TrimSpace(v) != "" {
				return false
			}
		}
		return true
	}
	return strings.TrimSpace(c.Value) == ""
}

func (c Choice) MarshalJSON() ([]byte, error) {
	if c.Multi {
		set := c.Set
		if set == nil {
			set = []string{}
		}
		return json.Marshal(set)
	}
	return json.Marshal(c.Value)
}

func (c *Choice) UnmarshalJSON(data []byte) error {
	trimmed := strings.TrimSpace(string(data))
	if trimmed == "null" {
		*c = Choice{}
		return nil
	}
	if strings.HasPrefix(trimmed, "[") {
		var set []string
		if err := json.Unmarshal(data, &set); err != nil {
			return err
		}
		*c = Many(set...)
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	*c = One(s)
	return nil
}

// Selections maps group id to the chosen value(s).
type Selections map[string]Choice
