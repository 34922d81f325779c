package classifier

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"monzo-manager/src/apperrors"
	"monzo-manager/src/models"

	"gopkg.in/yaml.v3"
)

type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

type ruleDefinition struct {
	Operator string `json:"operator" yaml:"operator"`
	Value    any    `json:"value" yaml:"value"`
}

type classDefinition struct {
	Rules          map[string]ruleDefinition `json:"rules" yaml:"rules"`
	Actions        any                       `json:"actions" yaml:"actions"`
	OnMissingField string                    `json:"on_missing_field" yaml:"on_missing_field"`
}

// Class is a named set of rules a transaction must satisfy to be a member.
type Class struct {
	Name           string             `json:"name"`
	Rules          []Rule             `json:"rules"`
	Actions        any                `json:"actions,omitempty"`
	OnMissingField MissingFieldPolicy `json:"-"`
}

// IsMember reports whether no rule of the class fails for tx.
func (c Class) IsMember(tx models.Transaction) bool {
	flat := Flatten(tx)
	for _, rule := range c.Rules {
		value, ok := flat[rule.Field]
		if !ok {
			if c.OnMissingField == MissingFieldFail {
				return false
			}
			continue
		}
		if !rule.Matches(value) {
			return false
		}
	}
	return true
}

// Classifier holds class definitions loaded once at startup.
type Classifier struct {
	classes []Class
}

// Load reads class definitions from path. Files ending in .yaml or .yml are YAML, anything else JSON.
func Load(path string, defaultPolicy MissingFieldPolicy) (*Classifier, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, apperrors.Configuration("reading transaction classes: %v", err)
	}
	format := FormatJSON
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		format = FormatYAML
	}
	c, err := Parse(data, format, defaultPolicy)
	if err != nil {
		return nil, fmt.Errorf("loading %s: %w", path, err)
	}
	return c, nil
}

func Parse(data []byte, format Format, defaultPolicy MissingFieldPolicy) (*Classifier, error) {
	var defs map[string]classDefinition
	var err error
	if format == FormatYAML {
		err = yaml.Unmarshal(data, &defs)
	} else {
		err = json.Unmarshal(data, &defs)
	}
	if err != nil {
		return nil, apperrors.Configuration("parsing transaction classes: %v", err)
	}

	classes := make([]Class, 0, len(defs))
	for name, def := range defs {
		class, err := compileClass(name, def, defaultPolicy)
		if err != nil {
			return nil, err
		}
		classes = append(classes, class)
	}
	sort.Slice(classes, func(i, j int) bool { return classes[i].Name < classes[j].Name })
	return &Classifier{classes: classes}, nil
}

func compileClass(name string, def classDefinition, defaultPolicy MissingFieldPolicy) (Class, error) {
	class := Class{Name: name, Actions: def.Actions, OnMissingField: defaultPolicy}
	if def.OnMissingField != "" {
		policy, ok := ParseMissingFieldPolicy(def.OnMissingField)
		if !ok {
			return Class{}, apperrors.Configuration("class %q: unknown on_missing_field %q", name, def.OnMissingField)
		}
		class.OnMissingField = policy
	}

	fields := make([]string, 0, len(def.Rules))
	for field := range def.Rules {
		fields = append(fields, field)
	}
	sort.Strings(fields)

	for _, field := range fields {
		rd := def.Rules[field]
		op, err := ParseOperator(rd.Operator)
		if err != nil {
			return Class{}, fmt.Errorf("class %q rule %q: %w", name, field, err)
		}
		class.Rules = append(class.Rules, Rule{Field: field, Operator: op, Value: rd.Value})
	}
	return class, nil
}

// Classify returns the names of every class tx belongs to, in name order.
func (c *Classifier) Classify(tx models.Transaction) []string {
	matches := []string{}
	for _, class := range c.classes {
		if class.IsMember(tx) {
			matches = append(matches, class.Name)
		}
	}
	return matches
}

// Classes returns a copy of the loaded classes.
func (c *Classifier) Classes() []Class {
	out := make([]Class, len(c.classes))
	copy(out, c.classes)
	return out
}

func Contains(classes []string, name string) bool {
	for _, c := range classes {
		if c == name {
			return true
		}
	}
	return false
}
