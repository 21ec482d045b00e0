package app_test

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/amahmoodi1379-glitch/psynex-exambot/internal/app"
	"github.com/amahmoodi1379-glitch/psynex-exambot/internal/domain"
	"github.com/amahmoodi1379-glitch/psynex-exambot/internal/infra/memory"
	"github.com/amahmoodi1379-glitch/psynex-exambot/internal/ref"
)

type fixture struct {
	service   *app.RoomService
	store     *memory.RoomStore
	messenger *recordingMessenger
	scheduler *recordingScheduler
	clock     *fakeClock
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

type sentMessage struct {
	chatID   int64
	text     string
	keyboard [][]ref.Button
}

type recordingMessenger struct {
	mu        sync.Mutex
	sent      []sentMessage
	edits     int
	nextID    int64
	failSends bool
}

func (m *recordingMessenger) SendMessage(_ context.Context, chatID int64, text string, keyboard [][]ref.Button) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failSends {
		return 0, errors.New("transport down")
	}
	m.sent = append(m.sent, sentMessage{chatID: chatID, text: text, keyboard: keyboard})
	m.nextID++
	return m.nextID, nil
}

func (m *recordingMessenger) setFail(fail bool) {
	m.mu.Lock()
	m.failSends = fail
	m.mu.Unlock()
}

func (m *recordingMessenger) EditReplyMarkup(_ context.Context, _ int64, _ int64, _ [][]ref.Button) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.edits++
	return nil
}

func (m *recordingMessenger) sentCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sent)
}

type recordingScheduler struct {
	mu        sync.Mutex
	schedules []time.Time
}

func (s *recordingScheduler) Schedule(_ string, at time.Time) {
	s.mu.Lock()
	s.schedules = append(s.schedules, at)
	s.mu.Unlock()
}

func (s *recordingScheduler) Cancel(string) {}

func (s *recordingScheduler) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.schedules)
}

// bank returns n all-option-zero questions so any "answer 0" is correct.
func bank(n int) []domain.Question {
	questions := make([]domain.Question, 0, n)
	for i := 0; i < n; i++ {
		questions = append(questions, domain.Question{
			ID:      fmt.Sprintf("q%d", i+1),
			Prompt:  fmt.Sprintf("Prompt %d", i+1),
			Options: []string{"a", "b", "c", "d"},
			Correct: 0,
		})
	}
	return questions
}

func newFixture(t *testing.T, pool []domain.Question) *fixture {
	t.Helper()
	clock := &fakeClock{now: time.Date(2025, 8, 1, 12, 0, 0, 0, time.UTC)}
	store := memory.NewRoomStore()
	messenger := &recordingMessenger{}
	scheduler := &recordingScheduler{}
	questions := memory.NewStaticQuestionSource(map[memory.PoolKey][]domain.Question{
		{CourseID: "algebra", Template: domain.TemplateKonkoori}: pool,
	})
	refs := ref.NewService(memory.NewAliasStore())
	service := app.NewRoomService(store, questions, messenger, scheduler, refs).
		WithClock(clock.Now)
	return &fixture{service: service, store: store, messenger: messenger, scheduler: scheduler, clock: clock}
}

// setupRoom creates a room, joins the given users, and configures it.
func (f *fixture) setupRoom(t *testing.T, mode int, users ...string) string {
	t.Helper()
	ctx := context.Background()
	roomID, err := f.service.Create(ctx, app.CreateRequest{ChatID: -100123, OwnerID: "owner", OwnerName: "Owner"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	for _, u := range users {
		if _, err := f.service.Join(ctx, roomID, u, strings.ToUpper(u)); err != nil {
			t.Fatalf("join %s: %v", u, err)
		}
	}
	if _, err := f.service.SetMode(ctx, roomID, "owner", mode); err != nil {
		t.Fatalf("set mode: %v", err)
	}
	if _, err := f.service.SetCourse(ctx, roomID, "owner", "algebra"); err != nil {
		t.Fatalf("set course: %v", err)
	}
	if _, err := f.service.SetTemplate(ctx, roomID, "owner", domain.TemplateKonkoori); err != nil {
		t.Fatalf("set template: %v", err)
	}
	return roomID
}

func TestStartFreezesRosterAndPostsFirstQuestion(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, bank(6))
	roomID := f.setupRoom(t, 5, "u1", "u2")

	if err := f.service.Start(ctx, roomID, "owner"); err != nil {
		t.Fatalf("start: %v", err)
	}

	room, err := f.store.Get(ctx, roomID)
	if err != nil {
		t.Fatalf("load room: %v", err)
	}
	if room.State != domain.StateActive {
		t.Fatalf("expected active, got %s", room.State)
	}
	if len(room.Roster) != 2 || room.Roster[0] != "u1" || room.Roster[1] != "u2" {
		t.Fatalf("expected roster in join order, got %v", room.Roster)
	}
	if len(room.Questions) != 5 {
		t.Fatalf("expected 5 questions, got %d", len(room.Questions))
	}
	if room.CurrentIndex != 0 {
		t.Fatalf("expected first question posted, index=%d", room.CurrentIndex)
	}
	if f.scheduler.count() != 1 {
		t.Fatalf("expected 1 scheduled wake, got %d", f.scheduler.count())
	}
	// start announcement + question message
	if f.messenger.sentCount() != 2 {
		t.Fatalf("expected 2 outbound messages, got %d", f.messenger.sentCount())
	}
}

func TestStartPreconditionOrder(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, bank(6))
	roomID, err := f.service.Create(ctx, app.CreateRequest{ChatID: 1, OwnerID: "owner"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := f.service.Join(ctx, roomID, "u1", "Alice"); err != nil {
		t.Fatalf("join: %v", err)
	}

	if err := f.service.Start(ctx, roomID, "u1"); !errors.Is(err, domain.ErrOnlyOwner) {
		t.Fatalf("expected only-owner, got %v", err)
	}
	if err := f.service.Start(ctx, roomID, "owner"); !errors.Is(err, domain.ErrModeNotSet) {
		t.Fatalf("expected mode-not-set, got %v", err)
	}
	if _, err := f.service.SetMode(ctx, roomID, "owner", 5); err != nil {
		t.Fatalf("set mode: %v", err)
	}
	if err := f.service.Start(ctx, roomID, "owner"); !errors.Is(err, domain.ErrCourseNotSet) {
		t.Fatalf("expected course-not-set, got %v", err)
	}
	if _, err := f.service.SetCourse(ctx, roomID, "owner", "algebra"); err != nil {
		t.Fatalf("set course: %v", err)
	}
	if err := f.service.Start(ctx, roomID, "owner"); !errors.Is(err, domain.ErrTemplateNotSet) {
		t.Fatalf("expected template-not-set, got %v", err)
	}
	if _, err := f.service.SetTemplate(ctx, roomID, "owner", domain.TemplateKonkoori); err != nil {
		t.Fatalf("set template: %v", err)
	}
	if err := f.service.Start(ctx, roomID, "owner"); err != nil {
		t.Fatalf("start after full setup: %v", err)
	}
}

func TestStartFailsWithShortBank(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, bank(6))
	roomID := f.setupRoom(t, 10, "u1")

	if err := f.service.Start(ctx, roomID, "owner"); !errors.Is(err, domain.ErrNoQuestions) {
		t.Fatalf("expected no-questions, got %v", err)
	}
	room, err := f.store.Get(ctx, roomID)
	if err != nil {
		t.Fatalf("load room: %v", err)
	}
	if room.State != domain.StateSetup {
		t.Fatalf("room should stay in setup, got %s", room.State)
	}
	if len(room.Questions) != 0 || room.Roster != nil {
		t.Fatalf("no questions or roster should be persisted, got %d questions, roster %v",
			len(room.Questions), room.Roster)
	}
}

func TestSetupMutatorsRequireOwnerAndSetupPhase(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, bank(6))
	roomID := f.setupRoom(t, 5, "u1")

	if _, err := f.service.SetMode(ctx, roomID, "u1", 5); !errors.Is(err, domain.ErrOnlyOwner) {
		t.Fatalf("expected only-owner, got %v", err)
	}
	if _, err := f.service.SetMode(ctx, roomID, "owner", 7); !errors.Is(err, domain.ErrInvalidMode) {
		t.Fatalf("expected invalid-mode, got %v", err)
	}
	if _, err := f.service.SetCourse(ctx, roomID, "owner", "  "); !errors.Is(err, domain.ErrInvalidCourse) {
		t.Fatalf("expected invalid-course, got %v", err)
	}
	if _, err := f.service.SetTemplate(ctx, roomID, "owner", "essay"); !errors.Is(err, domain.ErrInvalidTemplate) {
		t.Fatalf("expected invalid-template, got %v", err)
	}

	if err := f.service.Start(ctx, roomID, "owner"); err != nil {
		t.Fatalf("start: %v", err)
	}
	if _, err := f.service.SetMode(ctx, roomID, "owner", 5); !errors.Is(err, domain.ErrAlreadyStarted) {
		t.Fatalf("expected already-started, got %v", err)
	}
	if _, err := f.service.Join(ctx, roomID, "late", "Late"); !errors.Is(err, domain.ErrAlreadyStarted) {
		t.Fatalf("expected already-started join, got %v", err)
	}
}

func TestAnswerIdempotent(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, bank(6))
	roomID := f.setupRoom(t, 5, "u1", "u2")
	if err := f.service.Start(ctx, roomID, "owner"); err != nil {
		t.Fatalf("start: %v", err)
	}

	f.clock.Advance(3 * time.Second)
	duplicate, err := f.service.Answer(ctx, roomID, "u1", 0, 2)
	if err != nil || duplicate {
		t.Fatalf("first answer: dup=%v err=%v", duplicate, err)
	}

	f.clock.Advance(5 * time.Second)
	duplicate, err = f.service.Answer(ctx, roomID, "u1", 0, 0)
	if err != nil {
		t.Fatalf("second answer: %v", err)
	}
	if !duplicate {
		t.Fatalf("expected duplicate=true on re-delivery")
	}

	room, _ := f.store.Get(ctx, roomID)
	a := room.Participants["u1"].AnswerAt(0)
	if a == nil || a.Option != 2 || a.ResponseTimeMs != 3000 {
		t.Fatalf("first answer must be unchanged, got %+v", a)
	}
	if room.Participants["u1"].TimeMs != 3000 {
		t.Fatalf("duplicate must not accumulate time, got %d", room.Participants["u1"].TimeMs)
	}
}

func TestLateJoinerNeverEligible(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, bank(6))
	roomID := f.setupRoom(t, 5, "u1")
	if err := f.service.Start(ctx, roomID, "owner"); err != nil {
		t.Fatalf("start: %v", err)
	}

	if _, err := f.service.Join(ctx, roomID, "late", "Late"); !errors.Is(err, domain.ErrAlreadyStarted) {
		t.Fatalf("expected already-started, got %v", err)
	}
	if _, err := f.service.Answer(ctx, roomID, "late", 0, 0); !errors.Is(err, domain.ErrNotEligible) {
		t.Fatalf("expected not-eligible, got %v", err)
	}
}

func TestEarlyCompletionAdvancesExactlyOnce(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, bank(6))
	roomID := f.setupRoom(t, 5, "u1", "u2")
	if err := f.service.Start(ctx, roomID, "owner"); err != nil {
		t.Fatalf("start: %v", err)
	}

	if _, err := f.service.Answer(ctx, roomID, "u1", 0, 0); err != nil {
		t.Fatalf("u1 answer: %v", err)
	}
	room, _ := f.store.Get(ctx, roomID)
	if room.CurrentIndex != 0 {
		t.Fatalf("one answer must not advance, index=%d", room.CurrentIndex)
	}

	if _, err := f.service.Answer(ctx, roomID, "u2", 0, 1); err != nil {
		t.Fatalf("u2 answer: %v", err)
	}
	room, _ = f.store.Get(ctx, roomID)
	if room.CurrentIndex != 1 {
		t.Fatalf("all answered must advance once, index=%d", room.CurrentIndex)
	}

	// Stale timer for the previous question is a no-op: deadline is fresh.
	f.service.OnTimer(ctx, roomID)
	room, _ = f.store.Get(ctx, roomID)
	if room.CurrentIndex != 1 {
		t.Fatalf("stale timer must not advance, index=%d", room.CurrentIndex)
	}
}

func TestDeadlineEnforced(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, bank(6))
	roomID := f.setupRoom(t, 5, "u1", "u2")
	if err := f.service.Start(ctx, roomID, "owner"); err != nil {
		t.Fatalf("start: %v", err)
	}

	f.clock.Advance(61 * time.Second)
	if _, err := f.service.Answer(ctx, roomID, "u1", 0, 0); !errors.Is(err, domain.ErrTooLate) {
		t.Fatalf("expected too-late, got %v", err)
	}
}

func TestTimerAdvancesAfterDeadline(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, bank(6))
	roomID := f.setupRoom(t, 5, "u1")
	if err := f.service.Start(ctx, roomID, "owner"); err != nil {
		t.Fatalf("start: %v", err)
	}

	f.clock.Advance(60 * time.Second)
	f.service.OnTimer(ctx, roomID)
	room, _ := f.store.Get(ctx, roomID)
	if room.CurrentIndex != 1 {
		t.Fatalf("timer should advance, index=%d", room.CurrentIndex)
	}
}

func TestStaleAnswerRejected(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, bank(6))
	roomID := f.setupRoom(t, 5, "u1")
	if err := f.service.Start(ctx, roomID, "owner"); err != nil {
		t.Fatalf("start: %v", err)
	}
	f.clock.Advance(60 * time.Second)
	f.service.OnTimer(ctx, roomID)

	if _, err := f.service.Answer(ctx, roomID, "u1", 0, 0); !errors.Is(err, domain.ErrStaleQuestion) {
		t.Fatalf("expected stale-question, got %v", err)
	}
}

func TestFullGameRankingAndReview(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, bank(5))
	roomID := f.setupRoom(t, 5, "ua", "ub")
	if err := f.service.Start(ctx, roomID, "owner"); err != nil {
		t.Fatalf("start: %v", err)
	}

	// Both answer every question correctly; ua is faster each round.
	for i := 0; i < 5; i++ {
		f.clock.Advance(2 * time.Second)
		if _, err := f.service.Answer(ctx, roomID, "ua", i, 0); err != nil {
			t.Fatalf("ua answer %d: %v", i, err)
		}
		f.clock.Advance(3 * time.Second)
		if _, err := f.service.Answer(ctx, roomID, "ub", i, 0); err != nil {
			t.Fatalf("ub answer %d: %v", i, err)
		}
	}

	room, _ := f.store.Get(ctx, roomID)
	if room.State != domain.StateConcluded || !room.ResultsPosted {
		t.Fatalf("expected concluded room with results, got state=%s posted=%v", room.State, room.ResultsPosted)
	}

	standings := app.Rank(room)
	if len(standings) != 2 {
		t.Fatalf("expected 2 standings, got %d", len(standings))
	}
	if standings[0].UserID != "ua" || standings[1].UserID != "ub" {
		t.Fatalf("expected [ua ub], got [%s %s]", standings[0].UserID, standings[1].UserID)
	}
	if standings[0].Correct != 5 || standings[1].Correct != 5 {
		t.Fatalf("expected both fully correct, got %d and %d", standings[0].Correct, standings[1].Correct)
	}

	text, err := f.service.Review(ctx, roomID, "ua")
	if err != nil {
		t.Fatalf("review: %v", err)
	}
	if !strings.Contains(text, "Question 1: correct") {
		t.Fatalf("review missing verdict: %q", text)
	}
	if _, err := f.service.Review(ctx, roomID, "ghost"); !errors.Is(err, domain.ErrNotParticipant) {
		t.Fatalf("expected not-participant, got %v", err)
	}

	group, err := f.service.GroupReview(ctx, roomID)
	if err != nil {
		t.Fatalf("group review: %v", err)
	}
	if !strings.Contains(group, "Question 5: option 1") {
		t.Fatalf("group review missing answer key: %q", group)
	}
}

func TestReviewBeforeConclusion(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, bank(6))
	roomID := f.setupRoom(t, 5, "u1")
	if err := f.service.Start(ctx, roomID, "owner"); err != nil {
		t.Fatalf("start: %v", err)
	}
	if _, err := f.service.Review(ctx, roomID, "u1"); !errors.Is(err, domain.ErrNotEnded) {
		t.Fatalf("expected not-ended, got %v", err)
	}
	if _, err := f.service.GroupReview(ctx, roomID); !errors.Is(err, domain.ErrNotEnded) {
		t.Fatalf("expected not-ended, got %v", err)
	}
}

func TestQuestionPostFailureDoesNotStallRoom(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, bank(6))
	roomID := f.setupRoom(t, 5, "u1")
	if err := f.service.Start(ctx, roomID, "owner"); err != nil {
		t.Fatalf("start: %v", err)
	}

	// Transport goes down before the second question is posted; the game
	// clock must keep running anyway.
	f.messenger.setFail(true)
	f.clock.Advance(60 * time.Second)
	f.service.OnTimer(ctx, roomID)

	room, err := f.store.Get(ctx, roomID)
	if err != nil {
		t.Fatalf("load room: %v", err)
	}
	if room.State != domain.StateActive || room.CurrentIndex != 1 {
		t.Fatalf("lost post must not stall the game: state=%s index=%d", room.State, room.CurrentIndex)
	}
	if !room.QuestionDeadline.After(f.clock.Now()) {
		t.Fatalf("expected a fresh deadline, got %v at %v", room.QuestionDeadline, f.clock.Now())
	}
	if f.scheduler.count() != 2 {
		t.Fatalf("wake must be scheduled despite the failed post, got %d", f.scheduler.count())
	}

	// Transport recovers; the round proceeds and concludes normally.
	f.messenger.setFail(false)
	f.clock.Advance(2 * time.Second)
	if _, err := f.service.Answer(ctx, roomID, "u1", 1, 0); err != nil {
		t.Fatalf("answer after recovery: %v", err)
	}
	room, _ = f.store.Get(ctx, roomID)
	if room.CurrentIndex != 2 {
		t.Fatalf("room should advance after recovery, index=%d", room.CurrentIndex)
	}
}

func TestAnswerBeforeStartAndUnknownRoom(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, bank(6))
	roomID := f.setupRoom(t, 5, "u1")

	if _, err := f.service.Answer(ctx, roomID, "u1", 0, 0); !errors.Is(err, domain.ErrNotActive) {
		t.Fatalf("expected not-active, got %v", err)
	}
	if _, err := f.service.Answer(ctx, "nope", "u1", 0, 0); !errors.Is(err, domain.ErrNoRoom) {
		t.Fatalf("expected no-room, got %v", err)
	}
}
