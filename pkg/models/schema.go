package models

// JSONSchema represents a JSON Schema for node configuration validation.
type JSONSchema struct {
	Type        string               `json:"type"`
	Properties  map[string]*Property `json:"properties,omitempty"`
	Required    []string             `json:"required,omitempty"`
	Title       string               `json:"title,omitempty"`
	Description string               `json:"description,omitempty"`
}

// Property represents a JSON Schema property.
type Property struct {
	Type        string               `json:"type"`
	Description string               `json:"description,omitempty"`
	Enum        []any                `json:"enum,omitempty"`
	Default     any                  `json:"default,omitempty"`
	Format      string               `json:"format,omitempty"`
	MinLength   *int                 `json:"minLength,omitempty"`
	MaxLength   *int                 `json:"maxLength,omitempty"`
	Pattern     string               `json:"pattern,omitempty"`
	Items       *Property            `json:"items,omitempty"`
	Properties  map[string]*Property `json:"properties,omitempty"`
	Required    []string             `json:"required,omitempty"`
}

// PortSpec is the language-neutral descriptor of one declared node input or
// output, exposed through the registry schema catalog for UI and tooling.
type PortSpec struct {
	Type        string `json:"type"`
	Description string `json:"description,omitempty"`
	Required    bool   `json:"required,omitempty"`
	Default     any    `json:"default,omitempty"`
}

// NodeSchema describes a registered node type: declared inputs, outputs and
// the JSON schema of its config block.
type NodeSchema struct {
	Type         string              `json:"type"`
	Name         string              `json:"name"`
	Description  string              `json:"description"`
	Inputs       map[string]PortSpec `json:"inputs"`
	Outputs      map[string]PortSpec `json:"outputs"`
	ConfigSchema *JSONSchema         `json:"config_schema,omitempty"`
}
