// Package fileop provides the file operation node (read, write, append,
// delete, copy, move).
package fileop

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/docuflow/docuflow/pkg/models"
	"github.com/docuflow/docuflow/pkg/nodes"
)

const NodeType = "file_operation"

const defaultFileMode = 0o644

var operations = map[string]bool{
	"read":   true,
	"write":  true,
	"append": true,
	"delete": true,
	"copy":   true,
	"move":   true,
}

// New creates a file operation node. I/O failures are reported through the
// success output so downstream branches can react instead of aborting the run.
func New(id string, config map[string]any) (*nodes.Action, error) {
	operation, _ := config["operation"].(string)
	if !operations[operation] {
		return nil, fmt.Errorf("unsupported operation %q", operation)
	}

	path, _ := config["file_path"].(string)
	if path == "" {
		return nil, errors.New("missing required config 'file_path'")
	}

	node := &nodes.Action{
		Base: nodes.NewBase(NodeType, id, config, map[string]nodes.InputSpec{
			"content":     {Type: nodes.TypeString, Description: "Content for write and append", Required: false},
			"target_path": {Type: nodes.TypeString, Description: "Destination for copy and move", Required: false},
		}, map[string]nodes.OutputSpec{
			"success": {Type: nodes.TypeBoolean, Description: "Whether the operation succeeded"},
			"content": {Type: nodes.TypeString, Description: "File content for read"},
		}),
	}

	node.Perform = func(_ context.Context, input map[string]any, _ *models.ExecutionContext) (map[string]any, error) {
		content, err := apply(operation, path, input)
		if err != nil {
			node.Logger.Error("file operation failed", "operation", operation, "path", path, "error", err)

			return map[string]any{
				"success": false,
				"content": "",
				"error":   err.Error(),
			}, nil
		}

		return map[string]any{
			"success": true,
			"content": content,
		}, nil
	}

	return node, nil
}

func apply(operation, path string, input map[string]any) (string, error) {
	switch operation {
	case "read":
		raw, err := os.ReadFile(path)
		if err != nil {
			return "", err
		}

		return string(raw), nil

	case "write":
		content, _ := input["content"].(string)

		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return "", err
		}

		return "", os.WriteFile(path, []byte(content), defaultFileMode)

	case "append":
		content, _ := input["content"].(string)

		f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, defaultFileMode)
		if err != nil {
			return "", err
		}

		defer func() { _ = f.Close() }()

		_, err = f.WriteString(content)

		return "", err

	case "delete":
		return "", os.Remove(path)

	case "copy":
		target, _ := input["target_path"].(string)
		if target == "" {
			return "", errors.New("copy requires target_path")
		}

		return "", copyFile(path, target)

	case "move":
		target, _ := input["target_path"].(string)
		if target == "" {
			return "", errors.New("move requires target_path")
		}

		return "", os.Rename(path, target)
	}

	return "", fmt.Errorf("unsupported operation %q", operation)
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}

	defer func() { _ = in.Close() }()

	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return err
	}

	out, err := os.Create(dst)
	if err != nil {
		return err
	}

	if _, err := io.Copy(out, in); err != nil {
		_ = out.Close()

		return err
	}

	return out.Close()
}

// Factory registers the file_operation node type.
type Factory struct{}

func NewFactory() *Factory { return &Factory{} }

func (f *Factory) Type() string { return NodeType }

func (f *Factory) Create(_ context.Context, id string, config map[string]any) (nodes.Node, error) {
	return New(id, config)
}

func (f *Factory) Schema() *models.NodeSchema {
	return &models.NodeSchema{
		Type:        NodeType,
		Name:        "File Operation",
		Description: "Reads, writes, appends, deletes, copies or moves a file.",
		Inputs: map[string]models.PortSpec{
			"content":     {Type: "string", Description: "Content for write and append"},
			"target_path": {Type: "string", Description: "Destination for copy and move"},
		},
		Outputs: map[string]models.PortSpec{
			"success": {Type: "boolean", Description: "Whether the operation succeeded"},
			"content": {Type: "string", Description: "File content for read"},
		},
		ConfigSchema: &models.JSONSchema{
			Type: "object",
			Properties: map[string]*models.Property{
				"operation": {Type: "string", Enum: []any{"read", "write", "append", "delete", "copy", "move"}},
				"file_path": {Type: "string", Description: "Path the operation applies to"},
			},
			Required: []string{"operation", "file_path"},
		},
	}
}
