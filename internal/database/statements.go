package database

import (
	"database/sql"
	"fmt"
)

func (s *MySql) prepareStmt(name, query string) (*sql.Stmt, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if stmt, ok := s.statements[name]; ok {
		return stmt, nil
	}

	stmt, err := s.db.Prepare(query)
	if err != nil {
		return nil, fmt.Errorf("prepare statement [%s]: %w", name, err)
	}

	s.statements[name] = stmt
	return stmt, nil
}

func (s *MySql) closeStmt() {
	s.mu.Lock()
	defer s.mu.Unlock()

	for name, stmt := range s.statements {
		_ = stmt.Close()
		delete(s.statements, name)
	}
}

func (s *MySql) stmtSelectCode() (*sql.Stmt, error) {
	query := fmt.Sprintf(
		`SELECT used, project_id, project_name, project_data, chat_history,
                current_step, created_at, activated_at
           FROM %ssession_codes WHERE code = ?`,
		s.prefix,
	)
	return s.prepareStmt("selectCode", query)
}

// createTableIfNotExists bootstraps the codes table. Codes themselves are
// seeded out of band; the service never inserts rows.
func (s *MySql) createTableIfNotExists() error {
	query := fmt.Sprintf(
		`CREATE TABLE IF NOT EXISTS %ssession_codes (
            code VARCHAR(32) NOT NULL PRIMARY KEY,
            used TINYINT(1) NOT NULL DEFAULT 0,
            project_id VARCHAR(64) NULL,
            project_name VARCHAR(255) NULL,
            project_data JSON NULL,
            chat_history JSON NULL,
            current_step INT NOT NULL DEFAULT 0,
            created_at VARCHAR(32) NULL,
            activated_at VARCHAR(32) NULL
        )`,
		s.prefix,
	)
	if _, err := s.db.Exec(query); err != nil {
		return fmt.Errorf("create session_codes table: %w", err)
	}
	return nil
}
