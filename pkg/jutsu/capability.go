package jutsu

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

// Definition describes a capability as it appears in a catalog
type Definition struct {
	ID          string `json:"id" yaml:"id" mapstructure:"id"`
	Title       string `json:"title" yaml:"title" mapstructure:"title"`
	Description string `json:"description" yaml:"description" mapstructure:"description"`
	Category    string `json:"category" yaml:"category" mapstructure:"category"`
	Template    string `json:"template" yaml:"template" mapstructure:"template"`
}

// Capability is a compiled, validated capability definition
type Capability struct {
	def      Definition
	template *Template
	schema   *gojsonschema.Schema
}

// Info is the public description of a capability
type Info struct {
	Name        string   `json:"name"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Category    string   `json:"category"`
	Params      []string `json:"params"`
}

// Compile parses the template of def and builds the argument schema from
// its placeholders.
func Compile(def Definition) (*Capability, error) {
	if def.ID == "" {
		return nil, fmt.Errorf("capability id is required")
	}
	if !isIdentifier(def.ID) {
		return nil, fmt.Errorf("invalid capability id: %s", def.ID)
	}
	if strings.TrimSpace(def.Template) == "" {
		return nil, fmt.Errorf("capability %s: template is required", def.ID)
	}
	if def.Category == "" {
		def.Category = "neutral"
	}
	if def.Title == "" {
		def.Title = def.ID
	}

	tmpl, err := ParseTemplate(def.Template)
	if err != nil {
		return nil, fmt.Errorf("capability %s: %w", def.ID, err)
	}

	schema, err := gojsonschema.NewSchema(gojsonschema.NewGoLoader(argumentSchema(tmpl.Params())))
	if err != nil {
		return nil, fmt.Errorf("capability %s: failed to build argument schema: %w", def.ID, err)
	}

	return &Capability{def: def, template: tmpl, schema: schema}, nil
}

// MustCompile is like Compile but panics on error.
func MustCompile(def Definition) *Capability {
	c, err := Compile(def)
	if err != nil {
		panic(err)
	}
	return c
}

func argumentSchema(params []string) map[string]interface{} {
	properties := make(map[string]interface{}, len(params))
	required := make([]interface{}, 0, len(params))
	for _, p := range params {
		properties[p] = map[string]interface{}{
			"type": []interface{}{"string", "number", "boolean"},
		}
		required = append(required, p)
	}

	schema := map[string]interface{}{
		"type":       "object",
		"properties": properties,
	}
	if len(required) > 0 {
		schema["required"] = required
	}
	return schema
}

func (c *Capability) ID() string          { return c.def.ID }
func (c *Capability) Title() string       { return c.def.Title }
func (c *Capability) Description() string { return c.def.Description }
func (c *Capability) Category() string    { return c.def.Category }
func (c *Capability) Params() []string    { return c.template.Params() }

// Definition returns the source definition.
func (c *Capability) Definition() Definition { return c.def }

// Info returns the public description.
func (c *Capability) Info() Info {
	return Info{
		Name:        c.def.ID,
		Title:       c.def.Title,
		Description: c.def.Description,
		Category:    c.def.Category,
		Params:      c.template.Params(),
	}
}

// Validate checks args against the capability's argument schema.
func (c *Capability) Validate(args map[string]interface{}) error {
	if args == nil {
		args = map[string]interface{}{}
	}
	result, err := c.schema.Validate(gojsonschema.NewGoLoader(args))
	if err != nil {
		return fmt.Errorf("failed to validate arguments: %w", err)
	}
	if !result.Valid() {
		msgs := make([]string, 0, len(result.Errors()))
		for _, e := range result.Errors() {
			msgs = append(msgs, e.String())
		}
		return fmt.Errorf("invalid arguments for %s: %s", c.def.ID, strings.Join(msgs, "; "))
	}
	return nil
}

// Render validates args and fills the prompt template. Extra arguments are
// ignored.
func (c *Capability) Render(args map[string]interface{}) (string, error) {
	if err := c.Validate(args); err != nil {
		return "", err
	}

	values := make(map[string]string, len(args))
	for k, v := range args {
		values[k] = formatValue(v)
	}
	return c.template.Execute(values)
}

func formatValue(v interface{}) string {
	switch val := v.(type) {
	case string:
		return val
	case json.Number:
		return val.String()
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(val), 'f', -1, 32)
	case int:
		return strconv.Itoa(val)
	case int64:
		return strconv.FormatInt(val, 10)
	case bool:
		return strconv.FormatBool(val)
	default:
		return fmt.Sprint(val)
	}
}
