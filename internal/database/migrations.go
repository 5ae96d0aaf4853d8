package database

import (
	"context"
	"fmt"
)

var migrations = []string{
	`CREATE EXTENSION IF NOT EXISTS "uuid-ossp"`,

	`CREATE TABLE IF NOT EXISTS users (
		id UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
		email VARCHAR(255) UNIQUE NOT NULL,
		password_hash TEXT NOT NULL,
		role VARCHAR(40) NOT NULL DEFAULT 'view',
		created_at TIMESTAMP WITH TIME ZONE DEFAULT NOW(),
		updated_at TIMESTAMP WITH TIME ZONE DEFAULT NOW()
	)`,

	`CREATE TABLE IF NOT EXISTS sessions (
		id UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
		user_id UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		token_hash VARCHAR(64) UNIQUE NOT NULL,
		expires_at TIMESTAMP WITH TIME ZONE NOT NULL,
		created_at TIMESTAMP WITH TIME ZONE DEFAULT NOW()
	)`,

	`CREATE INDEX IF NOT EXISTS idx_sessions_user_id ON sessions(user_id)`,
	`CREATE INDEX IF NOT EXISTS idx_sessions_expires_at ON sessions(expires_at)`,

	`CREATE TABLE IF NOT EXISTS snapshots (
		id UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
		owner_user_id UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		name VARCHAR(255) NOT NULL,
		schema_version VARCHAR(20) NOT NULL,
		payload JSONB NOT NULL DEFAULT '{}',
		created_at TIMESTAMP WITH TIME ZONE DEFAULT NOW(),
		updated_at TIMESTAMP WITH TIME ZONE DEFAULT NOW()
	)`,

	`CREATE INDEX IF NOT EXISTS idx_snapshots_owner ON snapshots(owner_user_id)`,

	`CREATE TABLE IF NOT EXISTS snapshot_shares (
		id UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
		snapshot_id UUID NOT NULL REFERENCES snapshots(id) ON DELETE CASCADE,
		user_id UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		role VARCHAR(20) NOT NULL,
		created_at TIMESTAMP WITH TIME ZONE DEFAULT NOW(),
		updated_at TIMESTAMP WITH TIME ZONE DEFAULT NOW(),
		UNIQUE(snapshot_id, user_id)
	)`,

	`CREATE INDEX IF NOT EXISTS idx_snapshot_shares_user ON snapshot_shares(user_id)`,

	// template, mapping, report and settings blobs share one table keyed by kind
	`CREATE TABLE IF NOT EXISTS user_configs (
		id UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
		owner_user_id UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		kind VARCHAR(20) NOT NULL,
		name VARCHAR(255) NOT NULL,
		data JSONB NOT NULL DEFAULT '{}',
		created_at TIMESTAMP WITH TIME ZONE DEFAULT NOW(),
		updated_at TIMESTAMP WITH TIME ZONE DEFAULT NOW(),
		UNIQUE(owner_user_id, kind)
	)`,

	`CREATE TABLE IF NOT EXISTS imports (
		id UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
		owner_user_id UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		name VARCHAR(255) NOT NULL,
		kind VARCHAR(20) NOT NULL,
		status VARCHAR(30) NOT NULL,
		metadata JSONB NOT NULL DEFAULT '{}',
		created_at TIMESTAMP WITH TIME ZONE DEFAULT NOW(),
		updated_at TIMESTAMP WITH TIME ZONE DEFAULT NOW()
	)`,

	`CREATE INDEX IF NOT EXISTS idx_imports_owner ON imports(owner_user_id)`,

	// line_item_id and hash use '' for "absent" so the unique key treats them as equal
	`CREATE TABLE IF NOT EXISTS txn_overrides (
		id UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
		tenant_id UUID NOT NULL,
		user_id UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		source VARCHAR(40) NOT NULL,
		document_id VARCHAR(255) NOT NULL,
		line_item_id VARCHAR(255) NOT NULL DEFAULT '',
		hash VARCHAR(64) NOT NULL DEFAULT '',
		treatment VARCHAR(20) NOT NULL DEFAULT 'OPERATING',
		deferral_start_month VARCHAR(7),
		deferral_months INTEGER,
		deferral_include_in_operating_kpis BOOLEAN,
		created_at TIMESTAMP WITH TIME ZONE DEFAULT NOW(),
		updated_at TIMESTAMP WITH TIME ZONE DEFAULT NOW(),
		UNIQUE(tenant_id, user_id, source, document_id, line_item_id, hash)
	)`,

	`CREATE TABLE IF NOT EXISTS doctor_rules (
		id UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
		tenant_id UUID NOT NULL,
		user_id UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		contact_id VARCHAR(255) NOT NULL,
		default_treatment VARCHAR(20) NOT NULL DEFAULT 'OPERATING',
		deferral_start_month VARCHAR(7),
		deferral_months INTEGER,
		deferral_include_in_operating_kpis BOOLEAN,
		enabled BOOLEAN NOT NULL DEFAULT TRUE,
		created_at TIMESTAMP WITH TIME ZONE DEFAULT NOW(),
		updated_at TIMESTAMP WITH TIME ZONE DEFAULT NOW(),
		UNIQUE(tenant_id, user_id, contact_id)
	)`,

	`CREATE TABLE IF NOT EXISTS user_preferences (
		id UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
		tenant_id UUID NOT NULL,
		user_id UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		key VARCHAR(100) NOT NULL,
		value_json JSONB NOT NULL,
		created_at TIMESTAMP WITH TIME ZONE DEFAULT NOW(),
		updated_at TIMESTAMP WITH TIME ZONE DEFAULT NOW(),
		UNIQUE(tenant_id, user_id, key)
	)`,

	`CREATE TABLE IF NOT EXISTS xero_connections (
		id UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
		user_id UUID UNIQUE NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		access_token TEXT NOT NULL,
		refresh_token TEXT NOT NULL,
		expires_at TIMESTAMP WITH TIME ZONE NOT NULL,
		tenant_id VARCHAR(64),
		created_at TIMESTAMP WITH TIME ZONE DEFAULT NOW(),
		updated_at TIMESTAMP WITH TIME ZONE DEFAULT NOW()
	)`,

	`CREATE TABLE IF NOT EXISTS xero_oauth_states (
		id UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
		user_id UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		state VARCHAR(128) UNIQUE NOT NULL,
		created_at TIMESTAMP WITH TIME ZONE DEFAULT NOW()
	)`,

	// Older deployments stored viewer/editor; the canonical names are view/edit.
	`UPDATE users SET role = 'view' WHERE role = 'viewer'`,
	`UPDATE users SET role = 'edit' WHERE role = 'editor'`,
}

func (db *DB) Migrate(ctx context.Context) error {
	for i, migration := range migrations {
		if _, err := db.Pool.Exec(ctx, migration); err != nil {
			return fmt.Errorf("migration %d failed: %w", i+1, err)
		}
	}
	return nil
}
