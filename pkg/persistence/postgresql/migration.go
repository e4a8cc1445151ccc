package postgresql

func migrations() map[int]string {
	return map[int]string{
		1: `
			CREATE TABLE workflow_templates (
				id UUID PRIMARY KEY,
				name VARCHAR(255) NOT NULL,
				description TEXT NOT NULL DEFAULT '',
				version VARCHAR(50) NOT NULL DEFAULT '1',
				status VARCHAR(50) NOT NULL CHECK (status IN ('draft', 'active', 'archived')),
				definition JSONB NOT NULL DEFAULT '{}',
				created_by VARCHAR(255),
				created_at TIMESTAMP WITH TIME ZONE NOT NULL,
				updated_at TIMESTAMP WITH TIME ZONE NOT NULL,
				execution_count INT NOT NULL DEFAULT 0,
				success_count INT NOT NULL DEFAULT 0
			);

			CREATE INDEX idx_workflow_templates_status ON workflow_templates(status);
			CREATE INDEX idx_workflow_templates_created_by ON workflow_templates(created_by);
			CREATE INDEX idx_workflow_templates_created_at ON workflow_templates(created_at);

			CREATE TABLE workflow_executions (
				id UUID PRIMARY KEY,
				template_id UUID NOT NULL REFERENCES workflow_templates(id) ON DELETE CASCADE,
				status VARCHAR(50) NOT NULL CHECK (status IN ('pending', 'running', 'paused', 'completed', 'failed', 'cancelled')),
				priority VARCHAR(50) NOT NULL DEFAULT 'normal',
				input_data JSONB,
				output_data JSONB,
				context JSONB,
				created_by VARCHAR(255),
				created_at TIMESTAMP WITH TIME ZONE NOT NULL,
				started_at TIMESTAMP WITH TIME ZONE,
				completed_at TIMESTAMP WITH TIME ZONE,
				error_message TEXT NOT NULL DEFAULT '',
				retry_count INT NOT NULL DEFAULT 0,
				max_retries INT NOT NULL DEFAULT 3
			);

			CREATE INDEX idx_workflow_executions_template_id ON workflow_executions(template_id);
			CREATE INDEX idx_workflow_executions_status ON workflow_executions(status);
			CREATE INDEX idx_workflow_executions_created_at ON workflow_executions(created_at);

			CREATE TABLE node_executions (
				id UUID PRIMARY KEY,
				execution_id UUID NOT NULL REFERENCES workflow_executions(id) ON DELETE CASCADE,
				node_id VARCHAR(255) NOT NULL,
				node_type VARCHAR(255) NOT NULL,
				node_name VARCHAR(255) NOT NULL DEFAULT '',
				status VARCHAR(50) NOT NULL CHECK (status IN ('pending', 'running', 'completed', 'failed', 'skipped')),
				input_data JSONB,
				output_data JSONB,
				started_at TIMESTAMP WITH TIME ZONE,
				completed_at TIMESTAMP WITH TIME ZONE,
				error_message TEXT NOT NULL DEFAULT ''
			);

			CREATE INDEX idx_node_executions_execution_id ON node_executions(execution_id);
			CREATE INDEX idx_node_executions_node_id ON node_executions(node_id);

			CREATE TABLE workflow_variables (
				id UUID PRIMARY KEY,
				name VARCHAR(255) NOT NULL,
				description TEXT NOT NULL DEFAULT '',
				scope VARCHAR(50) NOT NULL CHECK (scope IN ('global', 'template', 'execution')),
				type VARCHAR(50) NOT NULL DEFAULT 'string',
				value JSONB,
				template_id UUID,
				execution_id UUID,
				encrypted BOOLEAN NOT NULL DEFAULT false,
				created_by VARCHAR(255),
				created_at TIMESTAMP WITH TIME ZONE NOT NULL,
				updated_at TIMESTAMP WITH TIME ZONE NOT NULL
			);

			CREATE INDEX idx_workflow_variables_scope ON workflow_variables(scope);
			CREATE INDEX idx_workflow_variables_template_id ON workflow_variables(template_id);
			CREATE INDEX idx_workflow_variables_execution_id ON workflow_variables(execution_id);
			CREATE UNIQUE INDEX idx_workflow_variables_scoped_name
				ON workflow_variables(scope, name, COALESCE(template_id::text, ''), COALESCE(execution_id::text, ''));
		`,
	}
}
