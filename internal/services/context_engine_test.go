package services

import (
	"encoding/json"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/parley-ai/parley/internal/domain"
	"github.com/parley-ai/parley/internal/nlp"
	"github.com/parley-ai/parley/internal/pkg/logger"
)

func newTestEngine(t *testing.T) (*ContextEngine, *stubPrefStore, *stubSessionStore, *stubUsageStore) {
	t.Helper()
	prefs := &stubPrefStore{data: map[string]json.RawMessage{}}
	sessions := &stubSessionStore{}
	usage := &stubUsageStore{}
	engine := NewContextEngine(
		nlp.NewParser(nlp.DefaultPatternTable()),
		prefs, sessions, usage,
		logger.NewStd(false),
	)
	return engine, prefs, sessions, usage
}

func newTestSession(userID string) *domain.Session {
	return &domain.Session{ID: "s-test", UserID: userID, StartTime: time.Now()}
}

func recordWithEntity(intentType string, entity domain.Entity) domain.CommandRecord {
	return domain.CommandRecord{
		Command: domain.Command{
			ID:     "c-" + intentType,
			Intent: domain.Intent{Type: intentType, Entities: []domain.Entity{entity}, Confidence: 0.8},
		},
		Result:    domain.CommandResult{Success: true},
		Timestamp: time.Now(),
	}
}

func TestProcessCommandParsesPlainText(t *testing.T) {
	engine, _, _, _ := newTestEngine(t)
	session := newTestSession("alice")

	intent, err := engine.ProcessCommand("open Chrome", session)
	if err != nil {
		t.Fatalf("ProcessCommand() error = %v", err)
	}
	if intent.Type != "launch_app" {
		t.Errorf("Type = %q, want launch_app", intent.Type)
	}
}

func TestLearnCorrectionThenProcessMatchesCorrectedText(t *testing.T) {
	engine, prefs, _, _ := newTestEngine(t)
	session := newTestSession("alice")

	if err := engine.LearnCorrection("open crome", "open chrome", session); err != nil {
		t.Fatalf("LearnCorrection() error = %v", err)
	}

	got, err := engine.ProcessCommand("open crome", session)
	if err != nil {
		t.Fatalf("ProcessCommand() error = %v", err)
	}
	want, err := engine.ProcessCommand("open chrome", session)
	if err != nil {
		t.Fatalf("ProcessCommand() error = %v", err)
	}
	if got.Type != want.Type {
		t.Errorf("corrected parse type = %q, direct parse type = %q", got.Type, want.Type)
	}
	if diff := cmp.Diff(want.Entities, got.Entities); diff != "" {
		t.Errorf("entities mismatch (-direct +corrected):\n%s", diff)
	}

	// The full list is persisted under the fixed key.
	raw, ok := prefs.data[prefKey(domain.PrefKeyCorrections, "alice")]
	if !ok {
		t.Fatal("corrections were not persisted")
	}
	var pairs []domain.CorrectionPair
	if err := json.Unmarshal(raw, &pairs); err != nil {
		t.Fatalf("persisted corrections do not decode: %v", err)
	}
	wantPairs := []domain.CorrectionPair{{Original: "open crome", Corrected: "open chrome"}}
	if diff := cmp.Diff(wantPairs, pairs); diff != "" {
		t.Errorf("persisted pairs mismatch (-want +got):\n%s", diff)
	}
}

func TestCorrectionsHydrateFromStoreOnFirstUse(t *testing.T) {
	engine, prefs, sessions, usage := newTestEngine(t)
	session := newTestSession("alice")

	if err := engine.LearnCorrection("open crome", "open chrome", session); err != nil {
		t.Fatalf("LearnCorrection() error = %v", err)
	}

	// A fresh engine over the same store must pick the correction up.
	fresh := NewContextEngine(
		nlp.NewParser(nlp.DefaultPatternTable()),
		prefs, sessions, usage,
		logger.NewStd(false),
	)
	intent, err := fresh.ProcessCommand("open crome", session)
	if err != nil {
		t.Fatalf("ProcessCommand() error = %v", err)
	}
	if intent.Type != "launch_app" {
		t.Errorf("Type = %q, want launch_app", intent.Type)
	}
	if len(intent.Entities) != 1 || intent.Entities[0].Value != "chrome" {
		t.Errorf("entities = %+v, want one chrome application", intent.Entities)
	}
}

func TestLearnCorrectionCapsAtOneHundred(t *testing.T) {
	engine, _, _, _ := newTestEngine(t)
	session := newTestSession("alice")

	for i := 0; i < domain.MaxCorrections+5; i++ {
		orig := fmt.Sprintf("typo-%03d", i)
		if err := engine.LearnCorrection(orig, "fixed", session); err != nil {
			t.Fatalf("LearnCorrection() error = %v", err)
		}
	}

	pairs := engine.corrections["alice"]
	if len(pairs) != domain.MaxCorrections {
		t.Fatalf("len(corrections) = %d, want %d", len(pairs), domain.MaxCorrections)
	}
	if pairs[0].Original != "typo-005" {
		t.Errorf("oldest surviving pair = %q, want typo-005", pairs[0].Original)
	}
}

func TestProcessCommandRewritesReferences(t *testing.T) {
	engine, _, _, _ := newTestEngine(t)
	session := newTestSession("alice")
	session.History = append(session.History, recordWithEntity("search_files", domain.Entity{
		Type: domain.EntityFilePath, Value: "/tmp/report.txt", Confidence: 0.85,
	}))

	intent, err := engine.ProcessCommand("delete it", session)
	if err != nil {
		t.Fatalf("ProcessCommand() error = %v", err)
	}
	if intent.Type != "delete_file" {
		t.Fatalf("Type = %q, want delete_file", intent.Type)
	}
	if len(intent.Entities) != 1 || intent.Entities[0].Value != "/tmp/report.txt" {
		t.Errorf("entities = %+v, want the resolved path", intent.Entities)
	}
}

func TestResolveReferenceRecency(t *testing.T) {
	engine, _, _, _ := newTestEngine(t)
	session := newTestSession("alice")
	for _, app := range []string{"Chrome", "Firefox", "Edge"} {
		session.History = append(session.History, recordWithEntity("launch_app", domain.Entity{
			Type: domain.EntityApplication, Value: app, Confidence: 0.9,
		}))
	}

	entity, ok := engine.ResolveReference("it", session)
	if !ok {
		t.Fatal("expected a resolved entity")
	}
	if entity.Value != "Edge" {
		t.Errorf("resolved %v, want the most recent (Edge)", entity.Value)
	}
}

func TestResolveReferencePreviousPhrases(t *testing.T) {
	engine, _, _, _ := newTestEngine(t)
	session := newTestSession("alice")
	session.History = append(session.History, recordWithEntity("launch_app", domain.Entity{
		Type: domain.EntityApplication, Value: "Chrome", Confidence: 0.9,
	}))

	for _, ref := range []string{"that", "the previous one", "the last one", "previous", "last"} {
		entity, ok := engine.ResolveReference(ref, session)
		if !ok {
			t.Errorf("ResolveReference(%q) found nothing", ref)
			continue
		}
		if entity.Value != "Chrome" {
			t.Errorf("ResolveReference(%q) = %v, want Chrome", ref, entity.Value)
		}
	}
}

func TestResolveReferenceIgnoresNonReferences(t *testing.T) {
	engine, _, _, _ := newTestEngine(t)
	session := newTestSession("alice")
	session.History = append(session.History, recordWithEntity("launch_app", domain.Entity{
		Type: domain.EntityApplication, Value: "Chrome", Confidence: 0.9,
	}))

	if _, ok := engine.ResolveReference("banana", session); ok {
		t.Error("expected no resolution for a non-reference word")
	}
}

func TestResolveReferenceSkipsLowConfidenceEntities(t *testing.T) {
	engine, _, _, _ := newTestEngine(t)
	session := newTestSession("alice")
	session.History = append(session.History, recordWithEntity("launch_app", domain.Entity{
		Type: domain.EntityApplication, Value: "Firefox", Confidence: 0.9,
	}))
	// Most recent record only carries an untrustworthy entity and a failed
	// result, so resolution must reach the older record.
	session.History = append(session.History, domain.CommandRecord{
		Command: domain.Command{Intent: domain.Intent{
			Type:     "launch_app",
			Entities: []domain.Entity{{Type: domain.EntityApplication, Value: "Chrmoe", Confidence: 0.3}},
		}},
		Result: domain.CommandResult{Success: false},
	})

	entity, ok := engine.ResolveReference("it", session)
	if !ok {
		t.Fatal("expected a resolved entity")
	}
	if entity.Value != "Firefox" {
		t.Errorf("resolved %v, want Firefox", entity.Value)
	}
}

func TestResolveReferenceSynthesizesFromOutput(t *testing.T) {
	engine, _, _, _ := newTestEngine(t)
	session := newTestSession("alice")
	session.History = append(session.History, domain.CommandRecord{
		Command: domain.Command{Intent: domain.Intent{Type: "list_processes", Confidence: 0.7}},
		Result:  domain.CommandResult{Success: true, Output: "Chrome launched\n"},
	})

	entity, ok := engine.ResolveReference("that", session)
	if !ok {
		t.Fatal("expected a synthesized entity")
	}
	want := domain.Entity{Type: domain.EntityReferencedOutput, Value: "Chrome launched", Confidence: 0.7}
	if diff := cmp.Diff(want, entity); diff != "" {
		t.Errorf("entity mismatch (-want +got):\n%s", diff)
	}
}

func TestResolveReferenceSkipsLongOutput(t *testing.T) {
	engine, _, _, _ := newTestEngine(t)
	session := newTestSession("alice")
	long := make([]byte, domain.MaxReferencedOutputLen+50)
	for i := range long {
		long[i] = 'x'
	}
	session.History = append(session.History, domain.CommandRecord{
		Command: domain.Command{Intent: domain.Intent{Type: "read_screen", Confidence: 0.7}},
		Result:  domain.CommandResult{Success: true, Output: string(long)},
	})

	if _, ok := engine.ResolveReference("it", session); ok {
		t.Error("expected no resolution from oversized output")
	}
}

func TestResolveReferenceEmptyHistory(t *testing.T) {
	engine, _, _, _ := newTestEngine(t)
	if _, ok := engine.ResolveReference("it", newTestSession("alice")); ok {
		t.Error("expected no resolution from empty history")
	}
}

func TestConfidenceBoostFromRecentHistory(t *testing.T) {
	engine, _, _, _ := newTestEngine(t)
	session := newTestSession("alice")
	session.History = append(session.History, recordWithEntity("adjust_volume", domain.Entity{
		Type: domain.EntityNumber, Value: 40, Confidence: 0.9,
	}))

	// "sound please" parses as adjust_volume at 0.5 via keyword fallback;
	// the matching recent history entry lifts it to 0.7.
	intent, err := engine.ProcessCommand("sound please", session)
	if err != nil {
		t.Fatalf("ProcessCommand() error = %v", err)
	}
	if intent.Type != "adjust_volume" {
		t.Fatalf("Type = %q, want adjust_volume", intent.Type)
	}
	if diff := intent.Confidence - 0.7; diff > 1e-9 || diff < -1e-9 {
		t.Errorf("Confidence = %v, want 0.7", intent.Confidence)
	}
}

func TestNoBoostWithoutMatchingHistory(t *testing.T) {
	engine, _, _, _ := newTestEngine(t)
	session := newTestSession("alice")
	session.History = append(session.History, recordWithEntity("launch_app", domain.Entity{
		Type: domain.EntityApplication, Value: "Chrome", Confidence: 0.9,
	}))

	intent, err := engine.ProcessCommand("sound please", session)
	if err != nil {
		t.Fatalf("ProcessCommand() error = %v", err)
	}
	if diff := intent.Confidence - 0.5; diff > 1e-9 || diff < -1e-9 {
		t.Errorf("Confidence = %v, want unboosted 0.5", intent.Confidence)
	}
}

func TestAddToHistoryAppendsAndPersists(t *testing.T) {
	engine, _, sessions, _ := newTestEngine(t)
	session := newTestSession("alice")

	command := domain.Command{ID: "c1", Intent: domain.Intent{Type: "launch_app", Confidence: 0.7}}
	result := domain.CommandResult{CommandID: "c1", Success: true, Output: "ok"}
	if err := engine.AddToHistory(command, result, session); err != nil {
		t.Fatalf("AddToHistory() error = %v", err)
	}

	if len(session.History) != 1 {
		t.Fatalf("history length = %d, want 1", len(session.History))
	}
	if sessions.saves != 1 {
		t.Errorf("session store saves = %d, want 1", sessions.saves)
	}
	if buffer := engine.typeBuffer["alice"]; len(buffer) != 1 || buffer[0].Intent != "launch_app" {
		t.Errorf("type buffer = %+v, want one launch_app entry", buffer)
	}
}

func TestAddToHistoryPropagatesStoreError(t *testing.T) {
	engine, _, sessions, _ := newTestEngine(t)
	sessions.err = errors.New("disk full")
	session := newTestSession("alice")

	err := engine.AddToHistory(domain.Command{}, domain.CommandResult{}, session)
	if err == nil || !errors.Is(err, sessions.err) {
		t.Fatalf("AddToHistory() error = %v, want wrapped disk full", err)
	}
}

func TestTypeBufferCappedAtFifty(t *testing.T) {
	engine, _, _, _ := newTestEngine(t)
	session := newTestSession("alice")

	for i := 0; i < domain.TypeBufferSize+5; i++ {
		command := domain.Command{Intent: domain.Intent{Type: "launch_app"}}
		if err := engine.AddToHistory(command, domain.CommandResult{Success: true}, session); err != nil {
			t.Fatalf("AddToHistory() error = %v", err)
		}
	}

	if got := len(engine.typeBuffer["alice"]); got != domain.TypeBufferSize {
		t.Errorf("type buffer length = %d, want %d", got, domain.TypeBufferSize)
	}
}

func TestDetectRepetitionTwoCycle(t *testing.T) {
	engine, _, _, _ := newTestEngine(t)
	session := newTestSession("alice")

	for i := 0; i < 4; i++ {
		for _, intentType := range []string{"launch_app", "search_files"} {
			command := domain.Command{Intent: domain.Intent{Type: intentType}}
			if err := engine.AddToHistory(command, domain.CommandResult{Success: true}, session); err != nil {
				t.Fatalf("AddToHistory() error = %v", err)
			}
		}
	}

	pattern, ok := engine.DetectRepetition(session)
	if !ok {
		t.Fatal("expected a detected pattern")
	}
	if pattern.Frequency < domain.RepeatThreshold {
		t.Errorf("Frequency = %d, want >= %d", pattern.Frequency, domain.RepeatThreshold)
	}
	wantCommands := []string{"launch_app", "search_files"}
	if diff := cmp.Diff(wantCommands, pattern.Commands); diff != "" {
		t.Errorf("Commands mismatch (-want +got):\n%s", diff)
	}
	if pattern.Description != "launch_app → search_files" {
		t.Errorf("Description = %q", pattern.Description)
	}
	if pattern.Type != domain.PatternCommandSequence {
		t.Errorf("Type = %q, want %q", pattern.Type, domain.PatternCommandSequence)
	}
}

func TestDetectRepetitionDistinctCategories(t *testing.T) {
	engine, _, _, _ := newTestEngine(t)
	session := newTestSession("alice")

	for _, intentType := range []string{
		"launch_app", "search_files", "adjust_volume",
		"create_note", "delete_file", "read_screen",
	} {
		command := domain.Command{Intent: domain.Intent{Type: intentType}}
		if err := engine.AddToHistory(command, domain.CommandResult{Success: true}, session); err != nil {
			t.Fatalf("AddToHistory() error = %v", err)
		}
	}

	if _, ok := engine.DetectRepetition(session); ok {
		t.Error("expected no pattern across six distinct categories")
	}
}

func TestDetectRepetitionNeedsSixEntries(t *testing.T) {
	engine, _, _, _ := newTestEngine(t)
	session := newTestSession("alice")

	for i := 0; i < domain.MinBufferForDetection-1; i++ {
		command := domain.Command{Intent: domain.Intent{Type: "launch_app"}}
		if err := engine.AddToHistory(command, domain.CommandResult{Success: true}, session); err != nil {
			t.Fatalf("AddToHistory() error = %v", err)
		}
	}

	if _, ok := engine.DetectRepetition(session); ok {
		t.Error("expected no pattern below the minimum buffer size")
	}
}

func TestNewSessionAndEndSession(t *testing.T) {
	engine, _, sessions, _ := newTestEngine(t)

	session := engine.NewSession("alice")
	if session.ID == "" || session.UserID != "alice" {
		t.Fatalf("NewSession() = %+v", session)
	}
	if session.EndTime != nil {
		t.Fatal("fresh session must not have an end time")
	}

	if err := engine.EndSession(session); err != nil {
		t.Fatalf("EndSession() error = %v", err)
	}
	if session.EndTime == nil {
		t.Error("EndSession() did not stamp an end time")
	}
	if sessions.saves != 1 {
		t.Errorf("session store saves = %d, want 1", sessions.saves)
	}
}

// ---- stubs ----

func prefKey(key, userID string) string {
	return userID + "/" + key
}

type stubPrefStore struct {
	data   map[string]json.RawMessage
	getErr error
	setErr error
}

func (s *stubPrefStore) Get(key, userID string) (json.RawMessage, bool, error) {
	if s.getErr != nil {
		return nil, false, s.getErr
	}
	raw, ok := s.data[prefKey(key, userID)]
	return raw, ok, nil
}

func (s *stubPrefStore) Set(key string, value any, userID string) error {
	if s.setErr != nil {
		return s.setErr
	}
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	s.data[prefKey(key, userID)] = raw
	return nil
}

type stubSessionStore struct {
	saves int
	err   error
}

func (s *stubSessionStore) Save(session *domain.Session) error {
	if s.err != nil {
		return s.err
	}
	s.saves++
	return nil
}

func (s *stubSessionStore) Load(sessionID string) (*domain.Session, error) {
	return nil, errors.New("not implemented")
}

type stubUsageStore struct {
	usage []domain.ApplicationUsage
	err   error
}

func (s *stubUsageStore) AllUsage(userID string) ([]domain.ApplicationUsage, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.usage, nil
}
