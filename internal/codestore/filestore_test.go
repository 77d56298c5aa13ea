package codestore

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"ideaforge/entity"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestStore(t *testing.T, codes map[string]*entity.CodeRecord) *FileStore {
	t.Helper()
	path := filepath.Join(t.TempDir(), "codes.json")
	if codes != nil {
		data, err := json.Marshal(codes)
		if err != nil {
			t.Fatalf("marshal seed: %v", err)
		}
		if err = os.WriteFile(path, data, 0644); err != nil {
			t.Fatalf("write seed: %v", err)
		}
	}
	return NewFileStore(path, testLogger())
}

func unusedRecord() *entity.CodeRecord {
	return &entity.CodeRecord{ChatHistory: []json.RawMessage{}}
}

func sessionState(code string, projectData string, name string, history []string, step int) *entity.SessionState {
	state := &entity.SessionState{
		Code:        entity.NormalizeCode(code),
		ProjectName: name,
		CurrentStep: step,
	}
	if projectData != "" {
		state.ProjectData = json.RawMessage(projectData)
	}
	for _, msg := range history {
		state.ChatHistory = append(state.ChatHistory, json.RawMessage(msg))
	}
	return state
}

func TestAllocateOrderAndReservation(t *testing.T) {
	store := newTestStore(t, map[string]*entity.CodeRecord{
		"DEV-C3": unusedRecord(),
		"DEV-A1": unusedRecord(),
		"DEV-B2": unusedRecord(),
	})

	code, err := store.Allocate(context.Background())
	if err != nil {
		t.Fatalf("allocate: %v", err)
	}
	if code != "DEV-A1" {
		t.Errorf("expected first code in ascending order, got %q", code)
	}

	rec, err := store.Resolve(context.Background(), code)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if rec.CreatedAt == nil {
		t.Error("reservation must stamp createdAt")
	}
	if rec.Used {
		t.Error("reservation must not consume the code")
	}
	if rec.ProjectId != nil || rec.ProjectName != nil || len(rec.ProjectData) != 0 || len(rec.ChatHistory) != 0 {
		t.Error("unused record must carry no project state")
	}
}

func TestAllocateSkipsUsedCodes(t *testing.T) {
	used := unusedRecord()
	used.Used = true
	store := newTestStore(t, map[string]*entity.CodeRecord{
		"AAAA": used,
		"BBBB": unusedRecord(),
	})

	code, err := store.Allocate(context.Background())
	if err != nil {
		t.Fatalf("allocate: %v", err)
	}
	if code != "BBBB" {
		t.Errorf("expected BBBB, got %q", code)
	}
}

func TestAllocateNoneAvailable(t *testing.T) {
	used := unusedRecord()
	used.Used = true
	store := newTestStore(t, map[string]*entity.CodeRecord{"AAAA": used})

	if _, err := store.Allocate(context.Background()); !errors.Is(err, ErrNoneAvailable) {
		t.Fatalf("expected ErrNoneAvailable, got %v", err)
	}
}

func TestAllocateThenResolveHasNoProject(t *testing.T) {
	store := newTestStore(t, map[string]*entity.CodeRecord{"ABCD1234": unusedRecord()})

	code, err := store.Allocate(context.Background())
	if err != nil {
		t.Fatalf("allocate: %v", err)
	}
	rec, err := store.Resolve(context.Background(), code)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	view := entity.NewSessionView(rec)
	if !view.Valid || view.HasProject {
		t.Errorf("expected valid session without project, got %+v", view)
	}
}

func TestSaveSessionRoundTrip(t *testing.T) {
	store := newTestStore(t, map[string]*entity.CodeRecord{"ABCD1234": unusedRecord()})

	history := []string{
		`{"role":"user","content":"hi"}`,
		`{"role":"assistant","content":"hello"}`,
	}
	state := sessionState("abcd1234", `{"id":"p1","stack":"go"}`, "My App", history, 3)

	rec, err := store.SaveSession(context.Background(), state)
	if err != nil {
		t.Fatalf("save session: %v", err)
	}
	if !rec.Used {
		t.Error("saved record must be used")
	}
	if rec.ProjectId == nil || *rec.ProjectId != "p1" {
		t.Errorf("projectId not derived from project data: %v", rec.ProjectId)
	}

	got, err := store.Resolve(context.Background(), "ABCD1234")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if got.ProjectName == nil || *got.ProjectName != "My App" {
		t.Errorf("project name lost: %v", got.ProjectName)
	}
	if string(got.ProjectData) != `{"id":"p1","stack":"go"}` {
		t.Errorf("project data not stored verbatim: %s", got.ProjectData)
	}
	if len(got.ChatHistory) != 2 {
		t.Fatalf("expected 2 chat messages, got %d", len(got.ChatHistory))
	}
	if string(got.ChatHistory[0]) != history[0] || string(got.ChatHistory[1]) != history[1] {
		t.Error("chat history order or content lost")
	}
	if got.CurrentStep != 3 {
		t.Errorf("expected step 3, got %d", got.CurrentStep)
	}
	if got.ActivatedAt == nil {
		t.Error("first save must stamp activatedAt")
	}
}

func TestActivationTimeIsMonotonic(t *testing.T) {
	store := newTestStore(t, map[string]*entity.CodeRecord{"ABCD1234": unusedRecord()})

	first, err := store.SaveSession(context.Background(), sessionState("ABCD1234", `{"id":"p1"}`, "My App", nil, 0))
	if err != nil {
		t.Fatalf("first save: %v", err)
	}
	activated := *first.ActivatedAt

	second, err := store.SaveSession(context.Background(), sessionState("ABCD1234", `{"id":"p1"}`, "My App", []string{`{"role":"user","content":"hi"}`}, 1))
	if err != nil {
		t.Fatalf("second save: %v", err)
	}
	if *second.ActivatedAt != activated {
		t.Errorf("activatedAt changed on re-save: %s -> %s", activated, *second.ActivatedAt)
	}
	if second.CurrentStep != 1 || len(second.ChatHistory) != 1 {
		t.Error("mutable fields must still update on re-save")
	}
}

func TestUnknownCode(t *testing.T) {
	store := newTestStore(t, map[string]*entity.CodeRecord{"ABCD1234": unusedRecord()})

	if _, err := store.Resolve(context.Background(), "ZZZZ-NOPE"); !errors.Is(err, ErrNotFound) {
		t.Errorf("resolve unknown: expected ErrNotFound, got %v", err)
	}
	if _, err := store.SaveSession(context.Background(), sessionState("ZZZZ-NOPE", "", "Nope", nil, 0)); !errors.Is(err, ErrNotFound) {
		t.Errorf("save unknown: expected ErrNotFound, got %v", err)
	}
}

func TestCaseNormalization(t *testing.T) {
	store := newTestStore(t, map[string]*entity.CodeRecord{"DEV-A7K9": unusedRecord()})

	lower, err := store.Resolve(context.Background(), " dev-a7k9 ")
	if err != nil {
		t.Fatalf("resolve lower: %v", err)
	}
	upper, err := store.Resolve(context.Background(), "DEV-A7K9")
	if err != nil {
		t.Fatalf("resolve upper: %v", err)
	}
	if lower.Used != upper.Used || lower.CurrentStep != upper.CurrentStep {
		t.Error("case variants must resolve to the same record")
	}
}

func TestMissingAndCorruptFileDegradeToEmpty(t *testing.T) {
	store := newTestStore(t, nil)
	if _, err := store.Allocate(context.Background()); !errors.Is(err, ErrNoneAvailable) {
		t.Errorf("missing file: expected ErrNoneAvailable, got %v", err)
	}

	path := filepath.Join(t.TempDir(), "codes.json")
	if err := os.WriteFile(path, []byte("{not json"), 0644); err != nil {
		t.Fatalf("write corrupt file: %v", err)
	}
	corrupt := NewFileStore(path, testLogger())
	if _, err := corrupt.Resolve(context.Background(), "ABCD1234"); !errors.Is(err, ErrNotFound) {
		t.Errorf("corrupt file: expected ErrNotFound, got %v", err)
	}
}

func TestConcurrentSavesDistinctCodes(t *testing.T) {
	const workers = 8
	seed := make(map[string]*entity.CodeRecord, workers)
	statesByCode := make(map[string]*entity.SessionState, workers)
	for i := 0; i < workers; i++ {
		code := string(rune('A'+i)) + "CODE"
		seed[code] = unusedRecord()
		statesByCode[code] = sessionState(code, `{"id":"`+code+`"}`, "Project "+code, []string{`{"role":"user","content":"` + code + `"}`}, i)
	}
	store := newTestStore(t, seed)

	var wg sync.WaitGroup
	errs := make(chan error, workers)
	for _, state := range statesByCode {
		wg.Add(1)
		go func(s *entity.SessionState) {
			defer wg.Done()
			if _, err := store.SaveSession(context.Background(), s); err != nil {
				errs <- err
			}
		}(state)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Fatalf("concurrent save: %v", err)
	}

	for code := range seed {
		rec, err := store.Resolve(context.Background(), code)
		if err != nil {
			t.Fatalf("resolve %s: %v", code, err)
		}
		want := statesByCode[code]
		if !rec.Used {
			t.Errorf("%s: lost update, record not used", code)
		}
		if rec.ProjectId == nil || *rec.ProjectId != code {
			t.Errorf("%s: cross-contaminated projectId %v", code, rec.ProjectId)
		}
		if rec.CurrentStep != want.CurrentStep {
			t.Errorf("%s: step %d, want %d", code, rec.CurrentStep, want.CurrentStep)
		}
		if len(rec.ChatHistory) != 1 || string(rec.ChatHistory[0]) != string(want.ChatHistory[0]) {
			t.Errorf("%s: chat history corrupted", code)
		}
	}
}

func TestAllocateRepeatableUntilClaimed(t *testing.T) {
	used := unusedRecord()
	used.Used = true
	store := newTestStore(t, map[string]*entity.CodeRecord{
		"AAAA": used,
		"BBBB": unusedRecord(),
	})

	first, err := store.Allocate(context.Background())
	if err != nil {
		t.Fatalf("first allocate: %v", err)
	}
	// reservation does not consume the code, an abandoned checkout
	// leaves it available for the next purchase
	second, err := store.Allocate(context.Background())
	if err != nil {
		t.Fatalf("second allocate: %v", err)
	}
	if first != "BBBB" || second != "BBBB" {
		t.Errorf("expected BBBB twice, got %q and %q", first, second)
	}

	if _, err = store.SaveSession(context.Background(), sessionState("BBBB", `{"id":"x"}`, "X", nil, 0)); err != nil {
		t.Fatalf("claim: %v", err)
	}
	if _, err = store.Allocate(context.Background()); !errors.Is(err, ErrNoneAvailable) {
		t.Errorf("expected ErrNoneAvailable after claim, got %v", err)
	}
}
