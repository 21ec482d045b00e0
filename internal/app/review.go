package app

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/amahmoodi1379-glitch/psynex-exambot/internal/domain"
)

// Standing is one ranked row of the final scoreboard.
type Standing struct {
	UserID      string `json:"userId"`
	DisplayName string `json:"displayName"`
	Correct     int    `json:"correct"`
	TimeMs      int64  `json:"timeMs"`
}

// Rank folds the answer ledger into the final ordering: correct answers
// descending, cumulative response time ascending. The sort is stable, so
// full ties keep roster (join) order.
func Rank(room *domain.Room) []Standing {
	standings := make([]Standing, 0, len(room.Roster))
	for _, userID := range room.Roster {
		p, ok := room.Participants[userID]
		if !ok {
			continue
		}
		correct := 0
		for _, a := range p.Answers {
			if a != nil && a.Correct {
				correct++
			}
		}
		standings = append(standings, Standing{
			UserID:      p.ID,
			DisplayName: p.DisplayName,
			Correct:     correct,
			TimeMs:      p.TimeMs,
		})
	}
	sort.SliceStable(standings, func(i, j int) bool {
		if standings[i].Correct != standings[j].Correct {
			return standings[i].Correct > standings[j].Correct
		}
		return standings[i].TimeMs < standings[j].TimeMs
	})
	return standings
}

// BuildScoreboard renders the final results message.
func BuildScoreboard(room *domain.Room, standings []Standing, reviewLink string) string {
	var b strings.Builder
	b.WriteString("Final results:\n")
	for i, st := range standings {
		name := st.DisplayName
		if name == "" {
			name = "User " + st.UserID
		}
		fmt.Fprintf(&b, "%d. %s — %d correct | %ds\n", i+1, name, st.Correct, st.TimeMs/1000)
	}
	if reviewLink != "" {
		b.WriteString("\nPrivate answer review:\n")
		b.WriteString(reviewLink)
	}
	return b.String()
}

// Review builds the per-participant answer review for a concluded room.
func (s *RoomService) Review(ctx context.Context, roomID, userID string) (string, error) {
	e := s.entry(roomID)
	e.mu.Lock()
	defer e.mu.Unlock()

	room, err := s.store.Get(ctx, roomID)
	if err != nil {
		return "", err
	}
	if !room.ResultsPosted {
		return "", domain.ErrNotEnded
	}
	s.markConcluded(roomID, e)
	p, ok := room.Participants[userID]
	if !ok {
		return "", domain.ErrNotParticipant
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Your answers — room %s\n\n", room.ID)
	for i, q := range room.Questions {
		a := p.AnswerAt(i)
		if a == nil {
			fmt.Fprintf(&b, "Question %d: no answer\n", i+1)
			continue
		}
		verdict := "wrong"
		if a.Correct {
			verdict = "correct"
		}
		fmt.Fprintf(&b, "Question %d: %s — yours: %d, right: %d\n", i+1, verdict, a.Option+1, q.Correct+1)
		if q.Explanation != "" {
			fmt.Fprintf(&b, "  note: %s\n", q.Explanation)
		}
	}
	return b.String(), nil
}

// GroupReview builds the shared answer key for a concluded room.
func (s *RoomService) GroupReview(ctx context.Context, roomID string) (string, error) {
	e := s.entry(roomID)
	e.mu.Lock()
	defer e.mu.Unlock()

	room, err := s.store.Get(ctx, roomID)
	if err != nil {
		return "", err
	}
	if !room.ResultsPosted {
		return "", domain.ErrNotEnded
	}
	s.markConcluded(roomID, e)
	if len(room.Questions) == 0 {
		return "", domain.ErrNoQuestions
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Group review — room %s\n\n", room.ID)
	for i, q := range room.Questions {
		fmt.Fprintf(&b, "Question %d: option %d\n", i+1, q.Correct+1)
	}
	return b.String(), nil
}

func renderQuestion(room *domain.Room, q domain.Question) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Question %d/%d\n\n%s\n\n", room.CurrentIndex+1, len(room.Questions), q.Prompt)
	for i, opt := range q.Options {
		fmt.Fprintf(&b, "%d) %s\n", i+1, opt)
	}
	return b.String()
}

func startAnnouncement(room *domain.Room) string {
	return fmt.Sprintf("Game on!\nCourse: %s • Template: %s • Questions: %d\n60 seconds per question.",
		room.CourseID, room.Template, room.Mode)
}
