package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestWorkflowExecution_IsFinished(t *testing.T) {
	finished := []ExecutionStatus{ExecutionStatusCompleted, ExecutionStatusFailed, ExecutionStatusCancelled}
	for _, status := range finished {
		assert.True(t, (&WorkflowExecution{Status: status}).IsFinished(), string(status))
	}

	live := []ExecutionStatus{ExecutionStatusPending, ExecutionStatusRunning, ExecutionStatusPaused}
	for _, status := range live {
		assert.False(t, (&WorkflowExecution{Status: status}).IsFinished(), string(status))
	}
}

func TestWorkflowExecution_CanRetry(t *testing.T) {
	execution := &WorkflowExecution{Status: ExecutionStatusFailed, RetryCount: 0, MaxRetries: 3}
	assert.True(t, execution.CanRetry())

	execution.RetryCount = 3
	assert.False(t, execution.CanRetry())

	execution.RetryCount = 0
	execution.Status = ExecutionStatusCompleted
	assert.False(t, execution.CanRetry())
}

func TestWorkflowExecution_Duration(t *testing.T) {
	execution := &WorkflowExecution{}
	assert.Equal(t, time.Duration(0), execution.Duration())

	started := time.Now().Add(-2 * time.Second)
	completed := started.Add(1500 * time.Millisecond)
	execution.StartedAt = &started
	execution.CompletedAt = &completed

	assert.Equal(t, 1500*time.Millisecond, execution.Duration())
}

func TestWorkflowTemplate_SuccessRate(t *testing.T) {
	template := &WorkflowTemplate{}
	assert.Equal(t, 0.0, template.SuccessRate())

	template.ExecutionCount = 4
	template.SuccessCount = 3
	assert.Equal(t, 75.0, template.SuccessRate())
}

func TestWorkflowTemplate_IsExecutable(t *testing.T) {
	assert.True(t, (&WorkflowTemplate{Status: TemplateStatusActive}).IsExecutable())
	assert.False(t, (&WorkflowTemplate{Status: TemplateStatusDraft}).IsExecutable())
	assert.False(t, (&WorkflowTemplate{Status: TemplateStatusArchived}).IsExecutable())
}
