package transform

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/docuflow/docuflow/pkg/models"
)

func TestNew_RequiresScript(t *testing.T) {
	_, err := New("shape", map[string]any{})
	assert.ErrorContains(t, err, "transform_script")
}

func TestExecute_RendersTemplate(t *testing.T) {
	node, err := New("shape", map[string]any{
		"transform_script": `{"document": "{{ .input.name }}", "bucket": "{{ .vars.bucket }}"}`,
	})
	require.NoError(t, err)

	ec := models.NewExecutionContext("exec-1", "tpl-1", nil, map[string]any{"bucket": "archive"})

	output, err := node.Execute(context.Background(), map[string]any{
		"input_data": map[string]any{"name": "invoice.pdf"},
	}, ec)
	require.NoError(t, err)

	transformed, ok := output["transformed_data"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "invoice.pdf", transformed["document"])
	assert.Equal(t, "archive", transformed["bucket"])
}

func TestExecute_LiteralScript(t *testing.T) {
	node, err := New("shape", map[string]any{"transform_script": "branch-a"})
	require.NoError(t, err)

	ec := models.NewExecutionContext("exec-1", "tpl-1", nil, nil)

	output, err := node.Execute(context.Background(), map[string]any{"input_data": "whatever"}, ec)
	require.NoError(t, err)
	assert.Equal(t, "branch-a", output["transformed_data"])
}

func TestExecute_RenderFailurePassesDataThrough(t *testing.T) {
	node, err := New("shape", map[string]any{
		"transform_script": `{{ call .input }}`,
	})
	require.NoError(t, err)

	ec := models.NewExecutionContext("exec-1", "tpl-1", nil, nil)

	output, err := node.Execute(context.Background(), map[string]any{"input_data": "original"}, ec)
	require.NoError(t, err)
	assert.Equal(t, "original", output["transformed_data"])
	assert.NotEmpty(t, output["error"])
}
