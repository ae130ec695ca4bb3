// internal/store/schema.go
//
// Table bootstrap.
//
// Context
// -------
// Five tables back the tool.  Only request, response, and namespace are
// touched by normal operation; version and script exist so later releases
// can migrate into them without a schema change.
//
//	apibot_version    (version, created_at, deleted_at)
//	apibot_namespace  (name, description, created_at, deleted_at)
//	apibot_request    (id PK, namespace, method, version, url, header, body,
//	                   body_encoding, created_at, updated_at, deleted_at)
//	apibot_response   (id PK, namespace, request_id, status_code, header,
//	                   body, body_encoding, received_at, deleted_at)
//	apibot_script     (id PK, namespace, path, created_at, updated_at,
//	                   deleted_at)
//
// Workflow
// --------
//  1. Every statement is CREATE TABLE IF NOT EXISTS, so Bootstrap runs on
//     every invocation.
//  2. The `default` namespace row (and the configured one, if different) is
//     inserted when missing.
//
// Notes
// -----
//   - sqlite and mysql differ only in the id column and the body column
//     type; the rest of the DDL is shared.
//   - Timestamps are TEXT in clock.Layout so ORDER BY works on both engines.
package store

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/yanizio/apibot/internal/database"
)

// DefaultNamespace is the partition every install starts with.
const DefaultNamespace = "default"

const defaultNamespaceDescription = "the default group of apibot"

type dialect struct {
	id   string // primary key column definition
	blob string // column type for bodies
}

var (
	sqliteDialect = dialect{id: "id INTEGER PRIMARY KEY", blob: "TEXT"}
	mysqlDialect  = dialect{id: "id BIGINT AUTO_INCREMENT PRIMARY KEY", blob: "LONGTEXT"}
)

func dialectFor(driver string) dialect {
	if driver == database.DriverMySQL {
		return mysqlDialect
	}
	return sqliteDialect
}

func (d dialect) ddl() []string {
	return []string{
		`CREATE TABLE IF NOT EXISTS apibot_version (
		    version    VARCHAR(32) NOT NULL,
		    created_at VARCHAR(32) NOT NULL,
		    deleted_at VARCHAR(32) NULL
		)`,
		`CREATE TABLE IF NOT EXISTS apibot_namespace (
		    name        VARCHAR(128) NOT NULL,
		    description TEXT         NULL,
		    created_at  VARCHAR(32)  NOT NULL,
		    deleted_at  VARCHAR(32)  NULL
		)`,
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS apibot_request (
		    %s,
		    namespace     VARCHAR(128) NOT NULL,
		    method        VARCHAR(32)  NOT NULL,
		    version       VARCHAR(8)   NOT NULL,
		    url           TEXT         NOT NULL,
		    header        TEXT         NOT NULL,
		    body          %s           NOT NULL,
		    body_encoding VARCHAR(16)  NOT NULL,
		    created_at    VARCHAR(32)  NOT NULL,
		    updated_at    VARCHAR(32)  NULL,
		    deleted_at    VARCHAR(32)  NULL
		)`, d.id, d.blob),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS apibot_response (
		    %s,
		    namespace     VARCHAR(128) NOT NULL,
		    request_id    BIGINT       NOT NULL,
		    status_code   INTEGER      NOT NULL,
		    header        TEXT         NOT NULL,
		    body          %s           NOT NULL,
		    body_encoding VARCHAR(16)  NOT NULL,
		    received_at   VARCHAR(32)  NOT NULL,
		    deleted_at    VARCHAR(32)  NULL
		)`, d.id, d.blob),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS apibot_script (
		    %s,
		    namespace  VARCHAR(128) NOT NULL,
		    path       TEXT         NOT NULL,
		    created_at VARCHAR(32)  NOT NULL,
		    updated_at VARCHAR(32)  NOT NULL,
		    deleted_at VARCHAR(32)  NULL
		)`, d.id),
	}
}

// Bootstrap creates missing tables and seeds namespace rows.  namespace is
// the configured partition; now stamps any row it inserts.
func (s *Store) Bootstrap(ctx context.Context, namespace, now string) error {
	for _, stmt := range dialectFor(s.db.DriverName()).ddl() {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("bootstrap: %w: %w", ErrStorageUnavailable, err)
		}
	}

	if err := s.seedNamespace(ctx, DefaultNamespace, defaultNamespaceDescription, now); err != nil {
		return err
	}
	if namespace != "" && namespace != DefaultNamespace {
		if err := s.seedNamespace(ctx, namespace, "", now); err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) seedNamespace(ctx context.Context, name, description, now string) error {
	const qCount = `SELECT COUNT(*) FROM apibot_namespace WHERE name = ?`
	const qInsert = `INSERT INTO apibot_namespace (name, description, created_at) VALUES (?, ?, ?)`

	var n int
	if err := s.db.GetContext(ctx, &n, qCount, name); err != nil {
		return fmt.Errorf("bootstrap: %w: %w", ErrStorageUnavailable, err)
	}
	if n > 0 {
		return nil
	}
	if _, err := s.db.ExecContext(ctx, qInsert, name, description, now); err != nil {
		return fmt.Errorf("bootstrap: %w: %w", ErrStorageUnavailable, err)
	}
	zap.L().Info("namespace seeded", zap.String("namespace", name))
	return nil
}
