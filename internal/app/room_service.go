package app

import (
	"context"
	"log/slog"
	"math/rand"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/amahmoodi1379-glitch/psynex-exambot/internal/domain"
	"github.com/amahmoodi1379-glitch/psynex-exambot/internal/ref"
)

// RoomStore persists one durable record per room, keyed by room id.
// Get returns domain.ErrNoRoom when the id has no state yet.
type RoomStore interface {
	Get(ctx context.Context, roomID string) (*domain.Room, error)
	Put(ctx context.Context, room *domain.Room) error
}

// QuestionSource yields exactly count sampled, normalized questions for a
// (course, template) pair, or domain.ErrNoQuestions when the bank is short.
type QuestionSource interface {
	LoadQuestions(ctx context.Context, courseID string, kind domain.TemplateKind, count int) ([]domain.Question, error)
}

// Scheduler wakes a room at a wall-clock instant. Scheduling again for the
// same room replaces any pending wake-up.
type Scheduler interface {
	Schedule(roomID string, at time.Time)
	Cancel(roomID string)
}

// DefaultQuestionDuration is the per-question answer window.
const DefaultQuestionDuration = 60 * time.Second

// RoomService owns every room's lifecycle. All operations for one room are
// serialized through a per-room lock, so a room's state is never touched by
// two goroutines at once; distinct rooms proceed in parallel.
type RoomService struct {
	store     RoomStore
	questions QuestionSource
	messenger Messenger
	scheduler Scheduler
	refs      *ref.Service

	logger           *slog.Logger
	now              func() time.Time
	questionDuration time.Duration
	botUsername      string

	mu    sync.Mutex
	rooms map[string]*roomEntry
}

// roomEntry carries the per-room serialization lock, the single-flight
// advance guard, and the event subscribers. concluded flags the entry for
// removal once the room's final write has landed.
type roomEntry struct {
	mu        sync.Mutex
	advancing atomic.Bool
	concluded atomic.Bool

	subMu       sync.Mutex
	subscribers map[chan RoomEvent]struct{}
}

func NewRoomService(store RoomStore, questions QuestionSource, messenger Messenger, scheduler Scheduler, refs *ref.Service) *RoomService {
	return &RoomService{
		store:            store,
		questions:        questions,
		messenger:        messenger,
		scheduler:        scheduler,
		refs:             refs,
		logger:           slog.Default(),
		now:              time.Now,
		questionDuration: DefaultQuestionDuration,
		rooms:            make(map[string]*roomEntry),
	}
}

// WithClock overrides the time source for deterministic tests.
func (s *RoomService) WithClock(now func() time.Time) *RoomService {
	s.now = now
	return s
}

// WithQuestionDuration overrides the per-question answer window.
func (s *RoomService) WithQuestionDuration(d time.Duration) *RoomService {
	if d > 0 {
		s.questionDuration = d
	}
	return s
}

// WithLogger overrides the default logger.
func (s *RoomService) WithLogger(logger *slog.Logger) *RoomService {
	if logger != nil {
		s.logger = logger
	}
	return s
}

// WithBotUsername enables the private review deep link on final scoreboards.
func (s *RoomService) WithBotUsername(name string) *RoomService {
	s.botUsername = name
	return s
}

func (s *RoomService) entry(roomID string) *roomEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.rooms[roomID]
	if !ok {
		e = &roomEntry{subscribers: make(map[chan RoomEvent]struct{})}
		s.rooms[roomID] = e
	}
	return e
}

// markConcluded flags the entry for removal and prunes it if idle. Per-room
// serialization is moot once the final write has landed; post-game reads
// recreate the entry and release it again.
func (s *RoomService) markConcluded(roomID string, e *roomEntry) {
	e.concluded.Store(true)
	s.prune(roomID, e)
}

// prune drops a concluded room's entry once the last subscriber is gone, so
// finished rooms do not accumulate locks for the process lifetime.
func (s *RoomService) prune(roomID string, e *roomEntry) {
	if !e.concluded.Load() {
		return
	}
	e.subMu.Lock()
	idle := len(e.subscribers) == 0
	e.subMu.Unlock()
	if !idle {
		return
	}
	s.mu.Lock()
	if s.rooms[roomID] == e {
		delete(s.rooms, roomID)
	}
	s.mu.Unlock()
}

// NewRoomID builds a short room key: trailing base36 millis plus two random
// base36 characters, matching the id shape callers embed in payloads.
func NewRoomID(now time.Time) string {
	ts := strconv.FormatInt(now.UnixMilli(), 36)
	if len(ts) > 6 {
		ts = ts[len(ts)-6:]
	}
	suffix := strconv.FormatInt(rand.Int63n(36*36), 36)
	for len(suffix) < 2 {
		suffix = "0" + suffix
	}
	return ts + suffix
}

// CreateRequest carries the chat context a new room is bound to.
type CreateRequest struct {
	RoomID    string
	ChatID    int64
	OwnerID   string
	OwnerName string
}

// Create initializes a room in Setup. A missing RoomID is generated.
func (s *RoomService) Create(ctx context.Context, req CreateRequest) (string, error) {
	roomID := req.RoomID
	if roomID == "" {
		roomID = NewRoomID(s.now())
	}
	e := s.entry(roomID)
	e.mu.Lock()
	defer e.mu.Unlock()

	room := domain.NewRoom(roomID, req.ChatID, req.OwnerID, req.OwnerName, s.now())
	if err := s.store.Put(ctx, room); err != nil {
		return "", err
	}
	return roomID, nil
}

// SetMode picks the question count; owner-only, Setup-only.
func (s *RoomService) SetMode(ctx context.Context, roomID, callerID string, count int) (int, error) {
	e := s.entry(roomID)
	e.mu.Lock()
	defer e.mu.Unlock()

	room, err := s.store.Get(ctx, roomID)
	if err != nil {
		return 0, err
	}
	if room.State != domain.StateSetup {
		return 0, domain.ErrAlreadyStarted
	}
	if callerID != room.OwnerID {
		return 0, domain.ErrOnlyOwner
	}
	if !domain.ValidModeCount(count) {
		return 0, domain.ErrInvalidMode
	}
	room.Mode = count
	if err := s.store.Put(ctx, room); err != nil {
		return 0, err
	}
	return count, nil
}

// SetCourse picks the course the question bank is queried for.
func (s *RoomService) SetCourse(ctx context.Context, roomID, callerID, courseID string) (string, error) {
	e := s.entry(roomID)
	e.mu.Lock()
	defer e.mu.Unlock()

	room, err := s.store.Get(ctx, roomID)
	if err != nil {
		return "", err
	}
	if room.State != domain.StateSetup {
		return "", domain.ErrAlreadyStarted
	}
	if callerID != room.OwnerID {
		return "", domain.ErrOnlyOwner
	}
	courseID = strings.TrimSpace(courseID)
	if courseID == "" {
		return "", domain.ErrInvalidCourse
	}
	room.CourseID = courseID
	if err := s.store.Put(ctx, room); err != nil {
		return "", err
	}
	return courseID, nil
}

// SetTemplate picks the question pool kind.
func (s *RoomService) SetTemplate(ctx context.Context, roomID, callerID string, kind domain.TemplateKind) (domain.TemplateKind, error) {
	e := s.entry(roomID)
	e.mu.Lock()
	defer e.mu.Unlock()

	room, err := s.store.Get(ctx, roomID)
	if err != nil {
		return "", err
	}
	if room.State != domain.StateSetup {
		return "", domain.ErrAlreadyStarted
	}
	if callerID != room.OwnerID {
		return "", domain.ErrOnlyOwner
	}
	if !domain.KnownTemplate(kind) {
		return "", domain.ErrInvalidTemplate
	}
	room.Template = kind
	if err := s.store.Put(ctx, room); err != nil {
		return "", err
	}
	return kind, nil
}

// Join marks a user ready. Re-joining is idempotent and refreshes the name.
func (s *RoomService) Join(ctx context.Context, roomID, userID, name string) (int, error) {
	e := s.entry(roomID)
	e.mu.Lock()
	defer e.mu.Unlock()

	room, err := s.store.Get(ctx, roomID)
	if err != nil {
		return 0, err
	}
	if room.State != domain.StateSetup {
		return 0, domain.ErrAlreadyStarted
	}
	p, ok := room.Participants[userID]
	if !ok {
		p = &domain.Participant{ID: userID, DisplayName: name}
		room.Participants[userID] = p
		room.JoinOrder = append(room.JoinOrder, userID)
	}
	p.Ready = true
	if name != "" {
		p.DisplayName = name
	}
	if err := s.store.Put(ctx, room); err != nil {
		return 0, err
	}
	return len(room.ReadyParticipants()), nil
}

// Start freezes the roster, samples the question sequence, and moves the
// room to Active. Preconditions are checked in a fixed order and nothing is
// persisted until all of them pass.
func (s *RoomService) Start(ctx context.Context, roomID, callerID string) error {
	e := s.entry(roomID)
	e.mu.Lock()
	defer e.mu.Unlock()

	room, err := s.store.Get(ctx, roomID)
	if err != nil {
		return err
	}
	if callerID != room.OwnerID {
		return domain.ErrOnlyOwner
	}
	if room.State != domain.StateSetup {
		return domain.ErrAlreadyStarted
	}
	if room.Mode == 0 {
		return domain.ErrModeNotSet
	}
	if room.CourseID == "" {
		return domain.ErrCourseNotSet
	}
	if room.Template == "" {
		return domain.ErrTemplateNotSet
	}
	ready := room.ReadyParticipants()
	if len(ready) == 0 {
		return domain.ErrNoParticipants
	}
	questions, err := s.questions.LoadQuestions(ctx, room.CourseID, room.Template, room.Mode)
	if err != nil {
		return err
	}
	if len(questions) < room.Mode {
		return domain.ErrNoQuestions
	}

	room.Roster = ready
	room.Questions = questions[:room.Mode]
	room.CurrentIndex = -1
	room.State = domain.StateActive
	if err := s.store.Put(ctx, room); err != nil {
		return err
	}

	s.logger.Info("room started",
		"room", room.ID, "course", room.CourseID,
		"template", string(room.Template), "count", room.Mode,
		"participants", len(ready))

	if _, err := s.messenger.SendMessage(ctx, room.ChatID, startAnnouncement(room), nil); err != nil {
		s.logger.Error("start announcement failed", "room", room.ID, "err", err)
	}
	return s.advance(ctx, e, room)
}
