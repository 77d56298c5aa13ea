package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	_ "github.com/go-sql-driver/mysql" // MySQL driver

	"ideaforge/entity"
	"ideaforge/internal/codestore"
	"ideaforge/internal/config"
	"ideaforge/lib/clock"
	"ideaforge/lib/sl"
)

var _ codestore.Store = (*MySql)(nil)

// MySql implements the code store on a relational table with the code as
// primary key. Mutations run in a transaction with SELECT ... FOR UPDATE,
// so two concurrent purchases can never claim the same unused code.
type MySql struct {
	db         *sql.DB
	prefix     string
	statements map[string]*sql.Stmt
	log        *slog.Logger
	mu         sync.Mutex
}

func NewSQLClient(conf *config.Config, log *slog.Logger) (*MySql, error) {
	if !conf.MySQL.Enabled {
		return nil, fmt.Errorf("mysql store is disabled in configuration")
	}
	connectionURI := fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?parseTime=true",
		conf.MySQL.User, conf.MySQL.Password, conf.MySQL.Host, conf.MySQL.Port, conf.MySQL.Database)
	db, err := sql.Open("mysql", connectionURI)
	if err != nil {
		return nil, fmt.Errorf("sql connect: %w", err)
	}

	// wait for a database to start
	for i := 0; i < 3; i++ {
		if err = db.Ping(); err == nil {
			break
		}
		if i == 2 {
			return nil, fmt.Errorf("ping database: %w", err)
		}
		time.Sleep(30 * time.Second)
	}

	db.SetMaxOpenConns(50)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(time.Hour)

	sdb := &MySql{
		db:         db,
		prefix:     conf.MySQL.Prefix,
		statements: make(map[string]*sql.Stmt),
		log:        log.With(sl.Module("codestore.mysql")),
	}

	if err = sdb.createTableIfNotExists(); err != nil {
		return nil, err
	}

	return sdb, nil
}

func (s *MySql) Close() {
	s.closeStmt()
	_ = s.db.Close()
}

func (s *MySql) Allocate(ctx context.Context) (string, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("begin tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	query := fmt.Sprintf(
		`SELECT code FROM %ssession_codes WHERE used = 0 ORDER BY code LIMIT 1 FOR UPDATE`,
		s.prefix,
	)
	var code string
	err = tx.QueryRowContext(ctx, query).Scan(&code)
	if errors.Is(err, sql.ErrNoRows) {
		return "", codestore.ErrNoneAvailable
	}
	if err != nil {
		return "", fmt.Errorf("select unused code: %w", err)
	}

	update := fmt.Sprintf(`UPDATE %ssession_codes SET created_at = ? WHERE code = ?`, s.prefix)
	if _, err = tx.ExecContext(ctx, update, clock.Now(), code); err != nil {
		return "", fmt.Errorf("reserve code: %w", err)
	}
	if err = tx.Commit(); err != nil {
		return "", fmt.Errorf("commit: %w", err)
	}

	s.log.With(
		slog.String("code", code),
	).Info("code reserved for a new payment")
	return code, nil
}

func (s *MySql) SaveSession(ctx context.Context, state *entity.SessionState) (*entity.CodeRecord, error) {
	state.Code = entity.NormalizeCode(state.Code)
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	query := fmt.Sprintf(
		`SELECT used, project_id, project_name, project_data, chat_history,
                current_step, created_at, activated_at
           FROM %ssession_codes WHERE code = ? FOR UPDATE`,
		s.prefix,
	)
	rec, err := scanRecord(tx.QueryRowContext(ctx, query, state.Code))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, codestore.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("select code: %w", err)
	}

	rec.ApplySession(state, clock.Now())

	history, err := json.Marshal(rec.ChatHistory)
	if err != nil {
		return nil, fmt.Errorf("marshal chat history: %w", err)
	}
	var projectData []byte
	if len(rec.ProjectData) > 0 {
		projectData = rec.ProjectData
	}

	update := fmt.Sprintf(
		`UPDATE %ssession_codes SET
                used = ?, project_id = ?, project_name = ?, project_data = ?,
                chat_history = ?, current_step = ?, created_at = ?, activated_at = ?
          WHERE code = ?`,
		s.prefix,
	)
	_, err = tx.ExecContext(ctx, update,
		rec.Used, rec.ProjectId, rec.ProjectName, projectData,
		history, rec.CurrentStep, rec.CreatedAt, rec.ActivatedAt,
		state.Code,
	)
	if err != nil {
		return nil, fmt.Errorf("update code: %w", err)
	}
	if err = tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}

	s.log.With(
		slog.String("code", state.Code),
		slog.Int("step", rec.CurrentStep),
	).Info("session saved")
	return rec, nil
}

func (s *MySql) Resolve(ctx context.Context, code string) (*entity.CodeRecord, error) {
	stmt, err := s.stmtSelectCode()
	if err != nil {
		return nil, err
	}
	rec, err := scanRecord(stmt.QueryRowContext(ctx, entity.NormalizeCode(code)))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, codestore.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("select code: %w", err)
	}
	return rec, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanRecord(row rowScanner) (*entity.CodeRecord, error) {
	var rec entity.CodeRecord
	var projectData, chatHistory []byte
	err := row.Scan(
		&rec.Used,
		&rec.ProjectId,
		&rec.ProjectName,
		&projectData,
		&chatHistory,
		&rec.CurrentStep,
		&rec.CreatedAt,
		&rec.ActivatedAt,
	)
	if err != nil {
		return nil, err
	}
	if len(projectData) > 0 {
		rec.ProjectData = projectData
	}
	rec.ChatHistory = []json.RawMessage{}
	if len(chatHistory) > 0 {
		if err = json.Unmarshal(chatHistory, &rec.ChatHistory); err != nil {
			return nil, fmt.Errorf("unmarshal chat history: %w", err)
		}
	}
	return &rec, nil
}
