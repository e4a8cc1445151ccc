package models

import "time"

// VariableScope is the precedence tier a workflow variable belongs to.
// Resolution order is global -> template -> execution, later tiers winning.
type VariableScope string

const (
	ScopeGlobal    VariableScope = "global"
	ScopeTemplate  VariableScope = "template"
	ScopeExecution VariableScope = "execution"
)

// VariableType describes the declared value type of a variable.
type VariableType string

const (
	VariableTypeString  VariableType = "string"
	VariableTypeNumber  VariableType = "number"
	VariableTypeBoolean VariableType = "boolean"
	VariableTypeJSON    VariableType = "json"
)

// WorkflowVariable is a typed, scoped key/value resolved when a node input
// references `$name`. Encrypted variables hold a sealed ciphertext in Value
// and are opened only at resolution time.
type WorkflowVariable struct {
	ID          string        `json:"id"`
	Name        string        `json:"name"      validate:"required,min=1"`
	Description string        `json:"description"`
	Scope       VariableScope `json:"scope"     validate:"required,oneof=global template execution"`
	Type        VariableType  `json:"type"`
	Value       any           `json:"value"`

	// Scope anchors; only the one matching Scope is set.
	TemplateID  string `json:"template_id,omitempty"`
	ExecutionID string `json:"execution_id,omitempty"`

	Encrypted bool `json:"encrypted"`

	CreatedBy string    `json:"created_by"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
