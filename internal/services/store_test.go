package services

import (
	"encoding/json"
	"errors"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"github.com/MrMnky/ai-primer-live-server-sub000/internal/models"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
)

func testDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "test.db")), &gorm.Config{})
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	if err := db.AutoMigrate(&models.Presenter{}, &models.Session{}, &models.Interaction{}); err != nil {
		t.Fatalf("migrate test db: %v", err)
	}
	return db
}

func TestCreateAndGetSession(t *testing.T) {
	store := NewSessionStore(testDB(t))

	created, err := store.CreateSession(1, "Intro to AI", "Alex", 24)
	if err != nil {
		t.Fatalf("CreateSession: %v", err)
	}
	if len(created.Code) != codeLength {
		t.Errorf("code %q has length %d, want %d", created.Code, len(created.Code), codeLength)
	}
	if created.Status != models.SessionStatusActive {
		t.Errorf("status = %q, want %q", created.Status, models.SessionStatusActive)
	}

	got, err := store.GetSession(created.Code)
	if err != nil {
		t.Fatalf("GetSession: %v", err)
	}
	if got.Title != "Intro to AI" || got.SlideCount != 24 || got.CurrentSlide != 0 {
		t.Errorf("unexpected session: %+v", got)
	}

	if _, err := store.GetSession("ZZZZZ"); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("unknown code: got %v, want ErrSessionNotFound", err)
	}
}

func TestCreateSessionSurfacesPersistenceFailure(t *testing.T) {
	db := testDB(t)
	store := NewSessionStore(db)

	// Dropping the table makes the synchronous durable insert fail.
	if err := db.Migrator().DropTable(&models.Session{}); err != nil {
		t.Fatalf("drop table: %v", err)
	}

	if _, err := store.CreateSession(1, "Doomed", "Alex", 3); err == nil {
		t.Fatal("CreateSession should fail when the durable insert fails")
	}
}

func TestUpdateStatusLifecycle(t *testing.T) {
	store := NewSessionStore(testDB(t))
	created, err := store.CreateSession(1, "Lifecycle", "Alex", 5)
	if err != nil {
		t.Fatalf("CreateSession: %v", err)
	}
	code := created.Code

	if err := store.UpdateStatus(code, models.SessionStatusStarted); err != nil {
		t.Fatalf("start: %v", err)
	}
	got, _ := store.GetSession(code)
	if got.Status != models.SessionStatusStarted {
		t.Errorf("status = %q, want started", got.Status)
	}
	if got.StartedAt == nil {
		t.Error("StartedAt should be set on first start")
	}

	if err := store.UpdateStatus(code, models.SessionStatusEnded); err != nil {
		t.Fatalf("end: %v", err)
	}

	// ended is terminal: the session leaves live memory and further
	// mutations fail.
	if _, err := store.GetSession(code); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("ended session still live: %v", err)
	}
	if err := store.UpdateCurrentSlide(code, 2); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("slide update after end: got %v, want ErrSessionNotFound", err)
	}
}

func TestRosterIsPresenceOnly(t *testing.T) {
	store := NewSessionStore(testDB(t))
	created, _ := store.CreateSession(1, "Roster", "Alex", 5)
	code := created.Code

	joined := time.Now().Add(-time.Minute)
	if _, err := store.AddParticipant(code, models.Participant{ID: "p1", Name: "Ann", JoinedAt: joined}); err != nil {
		t.Fatalf("AddParticipant: %v", err)
	}
	store.AddParticipant(code, models.Participant{ID: "p2", Name: "Ben", JoinedAt: time.Now()})

	if err := store.AppendResponse(models.Response{
		SessionCode:   code,
		SlideIndex:    1,
		Type:          models.ResponseTypePoll,
		Data:          models.ResponseData{Option: intPtr(0)},
		ParticipantID: "p1",
	}); err != nil {
		t.Fatalf("AppendResponse: %v", err)
	}

	// Reconnecting with the same id keeps the original join time.
	roster, _ := store.AddParticipant(code, models.Participant{ID: "p1", Name: "Ann", JoinedAt: time.Now()})
	if len(roster) != 2 {
		t.Fatalf("roster size = %d, want 2", len(roster))
	}
	if !roster[0].JoinedAt.Equal(joined) {
		t.Errorf("reconnect reset JoinedAt")
	}

	roster, err := store.RemoveParticipant(code, "p1")
	if err != nil {
		t.Fatalf("RemoveParticipant: %v", err)
	}
	if len(roster) != 1 || roster[0].ID != "p2" {
		t.Errorf("roster after leave = %+v", roster)
	}

	// Leaving never deletes recorded responses.
	if got := store.Responses(code, 1); len(got) != 1 {
		t.Errorf("responses after leave = %d, want 1", len(got))
	}
}

func TestResponsesFilteredBySlide(t *testing.T) {
	store := NewSessionStore(testDB(t))
	created, _ := store.CreateSession(1, "Slides", "Alex", 5)
	code := created.Code

	for slide, option := range []int{0, 1, 1} {
		store.AppendResponse(models.Response{
			SessionCode:   code,
			SlideIndex:    slide,
			Type:          models.ResponseTypePoll,
			Data:          models.ResponseData{Option: intPtr(option)},
			ParticipantID: "p1",
		})
	}

	if got := store.Responses(code, 1); len(got) != 1 {
		t.Errorf("slide 1 responses = %d, want 1", len(got))
	}
	if got := store.Responses(code, 9); len(got) != 0 {
		t.Errorf("slide 9 responses = %d, want 0", len(got))
	}
}

func TestRehydrationIsIdempotent(t *testing.T) {
	db := testDB(t)

	seed := models.Session{
		Code:          "AB3KQ",
		Title:         "Restarted",
		PresenterName: "Alex",
		SlideCount:    10,
		CurrentSlide:  4,
		Status:        models.SessionStatusStarted,
	}
	if err := db.Create(&seed).Error; err != nil {
		t.Fatalf("seed session: %v", err)
	}
	ended := models.Session{Code: "GONE2", Title: "Over", Status: models.SessionStatusEnded}
	if err := db.Create(&ended).Error; err != nil {
		t.Fatalf("seed ended session: %v", err)
	}

	base := time.Now().Add(-time.Hour)
	rows := []models.Interaction{
		{SessionCode: "AB3KQ", EventType: models.ResponseTypePoll, ParticipantID: "p1", SlideIndex: 4, EventData: `{"option":1}`, CreatedAt: base},
		{SessionCode: "AB3KQ", EventType: models.ResponseTypePoll, ParticipantID: "p2", SlideIndex: 4, EventData: `{"option":0}`, CreatedAt: base.Add(time.Second)},
		{SessionCode: "AB3KQ", EventType: models.ResponseTypeText, ParticipantID: "p1", ParticipantName: "Ann", SlideIndex: 5, EventData: `{"text":"love this"}`, CreatedAt: base.Add(2 * time.Second)},
		// Non-response events must not become responses.
		{SessionCode: "AB3KQ", EventType: "slide-change", SlideIndex: 4, EventData: `{"slideIndex":4}`, CreatedAt: base.Add(3 * time.Second)},
	}
	for i := range rows {
		if err := db.Create(&rows[i]).Error; err != nil {
			t.Fatalf("seed interaction: %v", err)
		}
	}

	first := NewSessionStore(db)
	second := NewSessionStore(db)
	for _, store := range []*SessionStore{first, second} {
		if err := store.LoadActiveSessions(); err != nil {
			t.Fatalf("LoadActiveSessions: %v", err)
		}
	}

	for _, store := range []*SessionStore{first, second} {
		got, err := store.GetSession("AB3KQ")
		if err != nil {
			t.Fatalf("rehydrated session missing: %v", err)
		}
		if got.CurrentSlide != 4 || got.Status != models.SessionStatusStarted {
			t.Errorf("rehydrated session = %+v", got)
		}
		if _, err := store.GetSession("GONE2"); !errors.Is(err, ErrSessionNotFound) {
			t.Error("ended session should not be rehydrated")
		}
	}

	firstAgg := AggregateChoices(first.Responses("AB3KQ", 4))
	secondAgg := AggregateChoices(second.Responses("AB3KQ", 4))
	if !reflect.DeepEqual(firstAgg, secondAgg) {
		t.Errorf("aggregates diverge: %+v vs %+v", firstAgg, secondAgg)
	}
	if firstAgg.Total != 2 || !reflect.DeepEqual(firstAgg.Options, []int{1, 1}) {
		t.Errorf("poll aggregate after rehydration = %+v", firstAgg)
	}

	text := AggregateText(first.Responses("AB3KQ", 5))
	if text.Total != 1 || len(text.Texts) != 1 || text.Texts[0].Name != "Ann" {
		t.Errorf("text aggregate after rehydration = %+v", text)
	}
}

func TestJournalRecordAndHistory(t *testing.T) {
	db := testDB(t)
	journal := NewLogWriter(db, 16)

	journal.Record(models.Interaction{SessionCode: "AB3KQ", EventType: "slide-change", SlideIndex: 1, EventData: `{"slideIndex":1}`})
	journal.Record(models.Interaction{SessionCode: "AB3KQ", EventType: models.ResponseTypePoll, ParticipantID: "p1", SlideIndex: 1, EventData: `{"option":0}`})
	journal.Record(models.Interaction{SessionCode: "OTHER", EventType: models.ResponseTypePoll, ParticipantID: "p2", SlideIndex: 0, EventData: `{"option":1}`})

	// Close drains the queue, so everything recorded is durable.
	journal.Close()

	reader := NewLogWriter(db, 1)
	defer reader.Close()

	all, err := reader.History("AB3KQ", nil, -1)
	if err != nil {
		t.Fatalf("History: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("history rows = %d, want 2", len(all))
	}

	polls, err := reader.History("AB3KQ", []string{models.ResponseTypePoll}, 1)
	if err != nil {
		t.Fatalf("History filtered: %v", err)
	}
	if len(polls) != 1 || polls[0].ParticipantID != "p1" {
		t.Errorf("filtered history = %+v", polls)
	}

	var data models.ResponseData
	if err := json.Unmarshal([]byte(polls[0].EventData), &data); err != nil || data.Option == nil || *data.Option != 0 {
		t.Errorf("event data round-trip failed: %s", polls[0].EventData)
	}
}
