package start

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/docuflow/docuflow/pkg/models"
)

func TestExecute_ExposesWorkflowInput(t *testing.T) {
	node := New("begin", nil)

	input := map[string]any{"document": "invoice.pdf"}
	ec := models.NewExecutionContext("exec-1", "tpl-1", input, nil)

	output, err := node.Execute(context.Background(), nil, ec)
	require.NoError(t, err)
	assert.Equal(t, input, output["workflow_data"])
}

func TestNameOverride(t *testing.T) {
	node := New("begin", map[string]any{"name": "Intake"})
	assert.Equal(t, "begin", node.ID())
	assert.Equal(t, "Intake", node.Name())
	assert.Equal(t, NodeType, node.Type())
}
