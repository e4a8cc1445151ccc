// Package script provides the script execution node running python or shell
// snippets in a subprocess with safety checks and a wall-clock timeout.
package script

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os/exec"
	"strings"
	"time"

	"github.com/docuflow/docuflow/pkg/models"
	"github.com/docuflow/docuflow/pkg/nodes"
)

const NodeType = "script"

const (
	// maxScriptLength caps script content size.
	maxScriptLength = 10 * 1024

	// scriptTimeout is the fixed wall-clock limit for one script run.
	scriptTimeout = 5 * time.Minute
)

// dangerousCommands is the deny-list applied to shell scripts before they run.
var dangerousCommands = []string{
	"rm -rf", "del /f", "format", "fdisk", "mkfs",
	"dd if=", "shutdown", "reboot", "halt",
	"passwd", "su ", "sudo ", "chmod 777",
	"wget http", "curl http", "nc ", "netcat",
	">/dev/", "cat /etc/passwd", "cat /etc/shadow",
}

// New creates a script node. Script failures (rejection, non-zero exit,
// timeout) are captured in the output map; the node only returns an error
// when config["fail_on_error"] is true.
func New(id string, config map[string]any) (*nodes.Action, error) {
	scriptType, _ := config["script_type"].(string)
	if scriptType == "" {
		scriptType = "python"
	}

	if scriptType != "python" && scriptType != "shell" {
		return nil, errors.New("unsupported script_type: " + scriptType)
	}

	content, _ := config["script_content"].(string)
	if content == "" {
		return nil, errors.New("missing required config 'script_content'")
	}

	failOnError, _ := config["fail_on_error"].(bool)

	node := &nodes.Action{
		Base: nodes.NewBase(NodeType, id, config, map[string]nodes.InputSpec{
			"input_data": {Type: nodes.TypeAny, Description: "Data bound into the script environment", Required: false},
		}, map[string]nodes.OutputSpec{
			"output_data": {Type: nodes.TypeAny, Description: "Script standard output"},
			"exit_code":   {Type: nodes.TypeNumber, Description: "Process exit code"},
			"success":     {Type: nodes.TypeBoolean, Description: "Whether the script ran and exited zero"},
		}),
	}

	node.Perform = func(ctx context.Context, input map[string]any, _ *models.ExecutionContext) (map[string]any, error) {
		output := run(ctx, node, scriptType, content, input["input_data"])

		if failOnError {
			if errMsg, ok := output["error"].(string); ok && errMsg != "" {
				return output, errors.New(errMsg)
			}
		}

		return output, nil
	}

	return node, nil
}

func run(ctx context.Context, node *nodes.Action, scriptType, content string, inputData any) map[string]any {
	if err := checkSafety(scriptType, content); err != nil {
		node.Logger.Error("script rejected", "error", err)

		return map[string]any{
			"output_data": nil,
			"exit_code":   -1,
			"success":     false,
			"error":       err.Error(),
		}
	}

	runCtx, cancel := context.WithTimeout(ctx, scriptTimeout)
	defer cancel()

	var cmd *exec.Cmd

	switch scriptType {
	case "python":
		cmd = exec.CommandContext(runCtx, "python3", "-c", content)
	default:
		cmd = exec.CommandContext(runCtx, "sh", "-c", content)
	}

	if inputData != nil {
		if encoded, err := json.Marshal(inputData); err == nil {
			cmd.Env = append(cmd.Environ(), "INPUT_DATA="+string(encoded))
		}
	}

	var stdout, stderr bytes.Buffer

	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()

	if errors.Is(runCtx.Err(), context.DeadlineExceeded) {
		return map[string]any{
			"output_data": nil,
			"exit_code":   -1,
			"success":     false,
			"error":       "script execution timed out",
		}
	}

	exitCode := 0

	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			exitCode = exitErr.ExitCode()
		} else {
			return map[string]any{
				"output_data": nil,
				"exit_code":   -1,
				"success":     false,
				"error":       err.Error(),
			}
		}
	}

	output := map[string]any{
		"output_data": strings.TrimRight(stdout.String(), "\n"),
		"exit_code":   exitCode,
		"success":     exitCode == 0,
	}

	if stderr.Len() > 0 {
		output["stderr"] = stderr.String()
	}

	if exitCode != 0 {
		output["error"] = "script exited with code " + strings.TrimSpace(stderr.String())
	}

	return output
}

// checkSafety enforces the deny-list and length cap on shell scripts.
func checkSafety(scriptType, content string) error {
	if len(content) > maxScriptLength {
		return errors.New("script content exceeds size limit")
	}

	if scriptType != "shell" {
		return nil
	}

	lowered := strings.ToLower(content)
	for _, cmd := range dangerousCommands {
		if strings.Contains(lowered, cmd) {
			return errors.New("script contains forbidden command: " + cmd)
		}
	}

	return nil
}

// Factory registers the script node type.
type Factory struct{}

func NewFactory() *Factory { return &Factory{} }

func (f *Factory) Type() string { return NodeType }

func (f *Factory) Create(_ context.Context, id string, config map[string]any) (nodes.Node, error) {
	return New(id, config)
}

func (f *Factory) Schema() *models.NodeSchema {
	return &models.NodeSchema{
		Type:        NodeType,
		Name:        "Script",
		Description: "Runs a python or shell snippet in a subprocess with a fixed timeout.",
		Inputs: map[string]models.PortSpec{
			"input_data": {Type: "any", Description: "Data bound into the script environment"},
		},
		Outputs: map[string]models.PortSpec{
			"output_data": {Type: "any", Description: "Script standard output"},
			"exit_code":   {Type: "number", Description: "Process exit code"},
			"success":     {Type: "boolean", Description: "Whether the script ran and exited zero"},
		},
		ConfigSchema: &models.JSONSchema{
			Type: "object",
			Properties: map[string]*models.Property{
				"script_type":    {Type: "string", Enum: []any{"python", "shell"}, Default: "python"},
				"script_content": {Type: "string", Description: "Script body"},
				"fail_on_error":  {Type: "boolean", Default: false, Description: "Fail the node when the script fails"},
			},
			Required: []string{"script_content"},
		},
	}
}
