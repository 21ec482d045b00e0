package app

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/amahmoodi1379-glitch/psynex-exambot/internal/domain"
	"github.com/amahmoodi1379-glitch/psynex-exambot/internal/ref"
)

// advanceRetryDelay is the wake delay after an advance that could not take
// effect (controls not registered, state not persisted). The retry re-runs
// the advance from persisted state, so a room is never left without a
// pending trigger.
const advanceRetryDelay = 5 * time.Second

// advance closes the previous question's controls and either posts the next
// question or concludes the room. Callers must hold the room entry lock.
// The advancing flag is defense-in-depth: the per-room lock already
// serializes triggers, the flag stops a re-entrant call within one turn
// (timer firing while the last answer is still advancing).
func (s *RoomService) advance(ctx context.Context, e *roomEntry, room *domain.Room) error {
	if !e.advancing.CompareAndSwap(false, true) {
		return nil
	}
	defer e.advancing.Store(false)

	if room.State != domain.StateActive {
		return nil
	}

	if room.QuestionMessageID != 0 {
		if err := s.messenger.EditReplyMarkup(ctx, room.ChatID, room.QuestionMessageID, [][]ref.Button{}); err != nil {
			s.logger.Error("clear question controls failed", "room", room.ID, "err", err)
		}
	}

	room.CurrentIndex++
	if room.CurrentIndex >= len(room.Questions) {
		room.State = domain.StateConcluded
		return s.finish(ctx, e, room)
	}

	question := room.Questions[room.CurrentIndex]
	keyboard, err := s.answerKeyboard(ctx, room.ID, room.CurrentIndex)
	if err != nil {
		// Controls could not be registered. Stored state is untouched, so
		// the retry wake re-runs this advance.
		s.scheduler.Schedule(room.ID, s.now().Add(advanceRetryDelay))
		return err
	}

	now := s.now()
	deadline := now.Add(s.questionDuration)
	messageID, err := s.messenger.SendMessage(ctx, room.ChatID, renderQuestion(room, question), keyboard)
	if err != nil {
		// A lost chat post never stops the game clock: the window opens,
		// the deadline timer runs, and the round concludes on schedule.
		s.logger.Error("post question failed", "room", room.ID, "index", room.CurrentIndex, "err", err)
		messageID = 0
	}

	room.QuestionMessageID = messageID
	room.QuestionDeadline = deadline
	room.QuestionStartedAt = now
	if err := s.store.Put(ctx, room); err != nil {
		s.scheduler.Schedule(room.ID, now.Add(advanceRetryDelay))
		return err
	}

	s.scheduler.Schedule(room.ID, deadline)
	s.publish(e, RoomEvent{
		Type:   EventQuestion,
		RoomID: room.ID,
		Index:  room.CurrentIndex,
		Text:   question.Prompt,
	})
	return nil
}

// answerKeyboard builds one row of four option controls. The room id is the
// nominated compactable part; everything else is a one or two digit number.
func (s *RoomService) answerKeyboard(ctx context.Context, roomID string, index int) ([][]ref.Button, error) {
	row := make([]ref.Button, 0, domain.OptionCount)
	for opt := 0; opt < domain.OptionCount; opt++ {
		parts := []string{"a", roomID, strconv.Itoa(index), strconv.Itoa(opt)}
		data, err := s.refs.BuildPayload(ctx, parts, 1, ref.ControlDataLimit)
		if err != nil {
			return nil, err
		}
		row = append(row, ref.Button{Text: strconv.Itoa(opt + 1), Data: data})
	}
	keyboard := [][]ref.Button{row}
	if err := ref.ValidateKeyboard(keyboard); err != nil {
		return nil, err
	}
	return keyboard, nil
}

// Answer records a participant's pick for the current question. Duplicate
// deliveries of an already-recorded answer succeed with duplicate=true and
// change nothing; webhooks get retried by the transport and must be safe to
// replay.
func (s *RoomService) Answer(ctx context.Context, roomID, userID string, questionIndex, option int) (bool, error) {
	e := s.entry(roomID)
	e.mu.Lock()
	defer e.mu.Unlock()

	room, err := s.store.Get(ctx, roomID)
	if err != nil {
		return false, err
	}
	if room.State != domain.StateActive {
		if room.State == domain.StateConcluded {
			s.markConcluded(roomID, e)
		}
		return false, domain.ErrNotActive
	}
	if questionIndex != room.CurrentIndex {
		return false, domain.ErrStaleQuestion
	}
	now := s.now()
	if now.After(room.QuestionDeadline) {
		return false, domain.ErrTooLate
	}
	if !room.Eligible(userID) {
		return false, domain.ErrNotEligible
	}
	p, ok := room.Participants[userID]
	if !ok {
		return false, domain.ErrNotEligible
	}
	if option < 0 || option >= domain.OptionCount {
		return false, fmt.Errorf("option %d out of range", option)
	}

	if p.AnswerAt(questionIndex) != nil {
		return true, nil
	}

	question := room.Questions[questionIndex]
	elapsed := now.Sub(room.QuestionStartedAt).Milliseconds()
	if elapsed < 0 {
		elapsed = 0
	}
	p.SetAnswer(questionIndex, &domain.Answer{
		Option:         option,
		Correct:        option == question.Correct,
		ResponseTimeMs: elapsed,
	})
	p.TimeMs += elapsed
	if err := s.store.Put(ctx, room); err != nil {
		return false, err
	}

	// The all-answered check runs against the state after this write, so
	// the final answerer deterministically triggers the early advance.
	if room.AllAnswered(questionIndex) {
		if err := s.advance(ctx, e, room); err != nil {
			s.logger.Error("early-completion advance failed", "room", room.ID, "err", err)
		}
	}
	return false, nil
}

// OnTimer is the scheduler wake callback for a room's question deadline.
// Stale triggers (room concluded, or early completion already moved the
// deadline forward) no-op silently; both are expected races.
func (s *RoomService) OnTimer(ctx context.Context, roomID string) {
	e := s.entry(roomID)
	e.mu.Lock()
	defer e.mu.Unlock()

	room, err := s.store.Get(ctx, roomID)
	if err != nil {
		s.logger.Debug("timer for unknown room", "room", roomID)
		return
	}
	if room.State != domain.StateActive {
		if room.State == domain.StateConcluded {
			s.markConcluded(roomID, e)
		}
		return
	}
	// A retry wake may arrive before the deadline when the failed advance
	// was triggered by early completion; all-answered lets it through.
	if s.now().Before(room.QuestionDeadline) && !room.AllAnswered(room.CurrentIndex) {
		return
	}
	if err := s.advance(ctx, e, room); err != nil {
		s.logger.Error("timer advance failed", "room", roomID, "err", err)
	}
}

// finish posts the final scoreboard with the group-review control and marks
// results as published. Callers must hold the room entry lock.
func (s *RoomService) finish(ctx context.Context, e *roomEntry, room *domain.Room) error {
	if room.ResultsPosted {
		return nil
	}

	standings := Rank(room)
	text := BuildScoreboard(room, standings, s.reviewLink(room))

	data, err := s.refs.BuildPayload(ctx, []string{"gr", room.ID}, 1, ref.ControlDataLimit)
	if err != nil {
		s.scheduler.Schedule(room.ID, s.now().Add(advanceRetryDelay))
		return err
	}
	keyboard := [][]ref.Button{{{Text: "Group review", Data: data}}}
	if err := ref.ValidateKeyboard(keyboard); err != nil {
		s.scheduler.Schedule(room.ID, s.now().Add(advanceRetryDelay))
		return err
	}

	if _, err := s.messenger.SendMessage(ctx, room.ChatID, text, keyboard); err != nil {
		s.logger.Error("scoreboard post failed", "room", room.ID, "err", err)
	}

	room.ResultsPosted = true
	room.QuestionMessageID = 0
	if err := s.store.Put(ctx, room); err != nil {
		s.scheduler.Schedule(room.ID, s.now().Add(advanceRetryDelay))
		return err
	}
	s.scheduler.Cancel(room.ID)
	s.publish(e, RoomEvent{Type: EventScoreboard, RoomID: room.ID, Text: text})
	s.logger.Info("room concluded", "room", room.ID, "participants", len(standings))
	s.markConcluded(room.ID, e)
	return nil
}

// reviewLink builds the private review deep link, when a bot username is
// configured. The chat id travels sign-tagged base36 so the whole start
// parameter stays short.
func (s *RoomService) reviewLink(room *domain.Room) string {
	if s.botUsername == "" {
		return ""
	}
	return fmt.Sprintf("https://t.me/%s?start=rv:%s:%s", s.botUsername, ref.EncodeSigned(room.ChatID), room.ID)
}
