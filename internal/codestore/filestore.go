package codestore

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"ideaforge/entity"
	"ideaforge/lib/clock"
	"ideaforge/lib/sl"
)

var _ Store = (*FileStore)(nil)

// FileStore keeps the whole mapping in one JSON document on disk. Every
// operation re-reads current on-disk state; a process-wide mutex serializes
// the read-modify-write cycle and the document is replaced atomically via
// temp-file-and-rename, so readers never observe a partial write.
type FileStore struct {
	path string
	log  *slog.Logger
	mu   sync.Mutex
}

func NewFileStore(path string, log *slog.Logger) *FileStore {
	return &FileStore{
		path: path,
		log:  log.With(sl.Module("codestore.file")),
	}
}

func (s *FileStore) Allocate(_ context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	codes := s.loadAll()

	keys := make([]string, 0, len(codes))
	for code := range codes {
		keys = append(keys, code)
	}
	sort.Strings(keys)

	for _, code := range keys {
		if codes[code].Used {
			continue
		}
		codes[code].Reserve(clock.Now())
		if err := s.saveAll(codes); err != nil {
			return "", err
		}
		s.log.With(
			slog.String("code", code),
		).Info("code reserved for a new payment")
		return code, nil
	}
	return "", ErrNoneAvailable
}

func (s *FileStore) SaveSession(_ context.Context, state *entity.SessionState) (*entity.CodeRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	state.Code = entity.NormalizeCode(state.Code)
	codes := s.loadAll()
	rec, ok := codes[state.Code]
	if !ok {
		return nil, ErrNotFound
	}
	rec.ApplySession(state, clock.Now())
	if err := s.saveAll(codes); err != nil {
		return nil, err
	}
	s.log.With(
		slog.String("code", state.Code),
		slog.Int("step", rec.CurrentStep),
	).Info("session saved")
	return rec, nil
}

func (s *FileStore) Resolve(_ context.Context, code string) (*entity.CodeRecord, error) {
	// lock-free read: the rename in saveAll keeps the document whole
	rec, ok := s.loadAll()[entity.NormalizeCode(code)]
	if !ok {
		return nil, ErrNotFound
	}
	return rec, nil
}

// loadAll reads the persisted mapping. A missing or unreadable document
// degrades to an empty mapping so allocation reports "none available"
// instead of failing outright; the condition is still logged because it
// usually means data loss risk.
func (s *FileStore) loadAll() map[string]*entity.CodeRecord {
	codes := make(map[string]*entity.CodeRecord)
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			s.log.With(
				slog.String("path", s.path),
			).Warn("codes file does not exist, treating store as empty")
		} else {
			s.log.With(
				slog.String("path", s.path),
				sl.Err(err),
			).Error("read codes file")
		}
		return codes
	}
	if err = json.Unmarshal(data, &codes); err != nil {
		s.log.With(
			slog.String("path", s.path),
			sl.Err(err),
		).Error("parse codes file, treating store as empty")
		return make(map[string]*entity.CodeRecord)
	}
	return codes
}

// saveAll replaces the document. Write failures always propagate to the
// caller; a mutation that did not durably complete must not look successful.
func (s *FileStore) saveAll(codes map[string]*entity.CodeRecord) error {
	data, err := json.MarshalIndent(codes, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal codes: %w", err)
	}

	dir := filepath.Dir(s.path)
	tmp, err := os.CreateTemp(dir, ".codes-*.json")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err = tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write temp file: %w", err)
	}
	if err = tmp.Sync(); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("sync temp file: %w", err)
	}
	if err = tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	if err = os.Rename(tmp.Name(), s.path); err != nil {
		return fmt.Errorf("replace codes file: %w", err)
	}
	return nil
}
