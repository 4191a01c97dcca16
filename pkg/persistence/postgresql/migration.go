package postgresql

func migrations() map[int]string {
	return map[int]string{
		1: `
			-- Workflow definitions, immutable per version
			CREATE TABLE workflows (
				id VARCHAR(255) NOT NULL,
				tenant_id VARCHAR(255) NOT NULL,
				name VARCHAR(255) NOT NULL,
				description TEXT,
				version INT NOT NULL DEFAULT 1,
				status VARCHAR(50) NOT NULL CHECK (status IN ('draft', 'active', 'inactive', 'deprecated')),
				activities JSONB NOT NULL DEFAULT '[]',
				timeout_ns BIGINT NOT NULL DEFAULT 0,
				metadata JSONB,
				created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
				updated_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
				PRIMARY KEY (tenant_id, id)
			);

			CREATE INDEX idx_workflows_status ON workflows(status);
			CREATE INDEX idx_workflows_tenant ON workflows(tenant_id);
		`,
		2: `
			-- Workflow executions, saved after every state transition.
			-- The version column guards against lost updates: saves are
			-- conditional on the expected prior value.
			CREATE TABLE executions (
				id VARCHAR(255) PRIMARY KEY,
				tenant_id VARCHAR(255) NOT NULL,
				workflow_id VARCHAR(255) NOT NULL,
				workflow_version INT NOT NULL,
				status VARCHAR(50) NOT NULL CHECK (status IN ('running', 'waiting', 'completed', 'failed', 'cancelled')),
				data JSONB NOT NULL DEFAULT '{}',
				activities JSONB NOT NULL DEFAULT '[]',
				context JSONB NOT NULL DEFAULT '{}',
				trigger_info JSONB NOT NULL DEFAULT '{}',
				error_message TEXT,
				started_at TIMESTAMP WITH TIME ZONE NOT NULL,
				last_activity_at TIMESTAMP WITH TIME ZONE NOT NULL,
				completed_at TIMESTAMP WITH TIME ZONE,
				version BIGINT NOT NULL DEFAULT 0
			);

			CREATE INDEX idx_executions_tenant ON executions(tenant_id);
			CREATE INDEX idx_executions_workflow ON executions(tenant_id, workflow_id);
			CREATE INDEX idx_executions_status ON executions(status);
			CREATE INDEX idx_executions_started_at ON executions(started_at);
		`,
	}
}
