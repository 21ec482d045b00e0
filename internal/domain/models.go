package domain

import "time"

// TemplateKind selects which question pool(s) a room draws from.
type TemplateKind string

const (
	TemplateKonkoori TemplateKind = "konkoori"
	TemplateTaalifi  TemplateKind = "taalifi"
	TemplateMix      TemplateKind = "mix"
)

// KnownTemplate reports whether kind is one of the recognized pool kinds.
func KnownTemplate(kind TemplateKind) bool {
	switch kind {
	case TemplateKonkoori, TemplateTaalifi, TemplateMix:
		return true
	}
	return false
}

// Pools returns the sub-pool kinds a template draws from.
func (k TemplateKind) Pools() []TemplateKind {
	if k == TemplateMix {
		return []TemplateKind{TemplateKonkoori, TemplateTaalifi}
	}
	return []TemplateKind{k}
}

// Lifecycle is the room state machine phase.
type Lifecycle string

const (
	StateSetup     Lifecycle = "setup"
	StateActive    Lifecycle = "active"
	StateConcluded Lifecycle = "concluded"
)

// ValidModeCounts are the supported question counts per room.
var ValidModeCounts = []int{5, 10}

// ValidModeCount reports whether count is a supported room size.
func ValidModeCount(count int) bool {
	for _, c := range ValidModeCounts {
		if c == count {
			return true
		}
	}
	return false
}

// Question is immutable once copied into a room at start.
type Question struct {
	ID          string   `json:"id"`
	Prompt      string   `json:"prompt"`
	Options     []string `json:"options"`
	Correct     int      `json:"correct"`
	Explanation string   `json:"explanation,omitempty"`
}

// Answer is the write-once record of one participant's pick for one question.
type Answer struct {
	Option         int   `json:"option"`
	Correct        bool  `json:"correct"`
	ResponseTimeMs int64 `json:"responseTimeMs"`
}

// Participant is a member of a room. Answers is sparse, indexed by question
// position; a nil slot means no answer yet.
type Participant struct {
	ID          string    `json:"id"`
	DisplayName string    `json:"displayName"`
	Ready       bool      `json:"ready"`
	Answers     []*Answer `json:"answers"`
	TimeMs      int64     `json:"timeMs"`
}

// AnswerAt returns the recorded answer at index, or nil.
func (p *Participant) AnswerAt(index int) *Answer {
	if index < 0 || index >= len(p.Answers) {
		return nil
	}
	return p.Answers[index]
}

// SetAnswer stores an answer at index, growing the sparse slice as needed.
// It refuses to overwrite an existing slot.
func (p *Participant) SetAnswer(index int, a *Answer) bool {
	if index < 0 {
		return false
	}
	for len(p.Answers) <= index {
		p.Answers = append(p.Answers, nil)
	}
	if p.Answers[index] != nil {
		return false
	}
	p.Answers[index] = a
	return true
}

// RoomSchemaVersion is bumped whenever the persisted room shape changes.
const RoomSchemaVersion = 1

// Room is one quiz session. It is persisted as a single JSON blob keyed by
// ID and only ever mutated by its owning actor.
type Room struct {
	SchemaVersion int   `json:"schemaVersion"`
	ID            string `json:"id"`
	ChatID        int64  `json:"chatId"`
	OwnerID       string `json:"ownerId"`
	OwnerName     string `json:"ownerName"`

	State    Lifecycle    `json:"state"`
	CourseID string       `json:"courseId"`
	Template TemplateKind `json:"template"`
	Mode     int          `json:"mode"` // question count; 0 until set

	Participants map[string]*Participant `json:"participants"`
	JoinOrder    []string                `json:"joinOrder"`
	Roster       []string                `json:"roster"` // frozen at start, nil before

	Questions         []Question `json:"questions"`
	CurrentIndex      int        `json:"currentIndex"`
	QuestionDeadline  time.Time  `json:"questionDeadline"`
	QuestionStartedAt time.Time  `json:"questionStartedAt"`
	QuestionMessageID int64      `json:"questionMessageId"`
	ResultsPosted     bool       `json:"resultsPosted"`

	CreatedAt time.Time `json:"createdAt"`
}

// NewRoom returns a room in Setup with the owner recorded but not joined.
func NewRoom(id string, chatID int64, ownerID, ownerName string, now time.Time) *Room {
	return &Room{
		SchemaVersion: RoomSchemaVersion,
		ID:            id,
		ChatID:        chatID,
		OwnerID:       ownerID,
		OwnerName:     ownerName,
		State:         StateSetup,
		Participants:  make(map[string]*Participant),
		CurrentIndex:  -1,
		CreatedAt:     now,
	}
}

// Eligible reports whether userID is in the frozen roster.
func (r *Room) Eligible(userID string) bool {
	for _, id := range r.Roster {
		if id == userID {
			return true
		}
	}
	return false
}

// ReadyParticipants returns ready participant ids in join order.
func (r *Room) ReadyParticipants() []string {
	ready := make([]string, 0, len(r.JoinOrder))
	for _, id := range r.JoinOrder {
		if p, ok := r.Participants[id]; ok && p.Ready {
			ready = append(ready, id)
		}
	}
	return ready
}

// AllAnswered reports whether every frozen-roster member has an answer at index.
func (r *Room) AllAnswered(index int) bool {
	if len(r.Roster) == 0 {
		return false
	}
	for _, id := range r.Roster {
		p, ok := r.Participants[id]
		if !ok || p.AnswerAt(index) == nil {
			return false
		}
	}
	return true
}
