package driver

import (
	"context"
	"fmt"
)

// schema is written in the subset of DDL shared by mysql, postgres and sqlite
var schema = []string{
	`CREATE TABLE IF NOT EXISTS app_user (
		id          VARCHAR(64)  NOT NULL PRIMARY KEY,
		username    VARCHAR(64)  NOT NULL UNIQUE,
		password    VARCHAR(128) NOT NULL,
		email       VARCHAR(128) NOT NULL UNIQUE,
		login_retry INT          NOT NULL DEFAULT 0,
		last_login  BIGINT       NOT NULL DEFAULT 0
	)`,
	`CREATE TABLE IF NOT EXISTS course (
		id    VARCHAR(64)  NOT NULL PRIMARY KEY,
		title VARCHAR(255) NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS course_module (
		id         VARCHAR(64)  NOT NULL PRIMARY KEY,
		course_id  VARCHAR(64)  NOT NULL REFERENCES course (id),
		name       VARCHAR(255) NOT NULL,
		sort_index INT          NOT NULL DEFAULT 0
	)`,
	`CREATE TABLE IF NOT EXISTS lesson (
		id         VARCHAR(64)  NOT NULL PRIMARY KEY,
		module_id  VARCHAR(64)  NOT NULL REFERENCES course_module (id),
		title      VARCHAR(255) NOT NULL,
		video_ref  VARCHAR(512) NOT NULL DEFAULT '',
		duration   INT          NULL,
		sort_index INT          NOT NULL DEFAULT 0
	)`,
	`CREATE TABLE IF NOT EXISTS lesson_progress (
		user_id      VARCHAR(64)      NOT NULL,
		lesson_id    VARCHAR(64)      NOT NULL REFERENCES lesson (id),
		position     INT              NOT NULL DEFAULT 0,
		percent      DOUBLE PRECISION NOT NULL DEFAULT 0,
		completed    BOOLEAN          NOT NULL DEFAULT FALSE,
		completed_at BIGINT           NULL,
		favorite     BOOLEAN          NOT NULL DEFAULT FALSE,
		updated_at   BIGINT           NOT NULL DEFAULT 0,
		PRIMARY KEY (user_id, lesson_id)
	)`,
}

// Migrate create every table the service needs, it is safe to run repeatedly
func Migrate(ctx context.Context, conn ITransactionalDB) error {
	for i, ddl := range schema {
		if _, err := conn.ExecContext(ctx, ddl); err != nil {
			return fmt.Errorf("failed to apply schema statement #%d: %w", i+1, err)
		}
	}
	return nil
}
