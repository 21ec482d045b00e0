package domain

import "errors"

var (
	// ErrNoRoom is returned when a room id has no state yet.
	ErrNoRoom = errors.New("room not found")
	// ErrOnlyOwner is returned when a non-owner calls a configuration mutator.
	ErrOnlyOwner = errors.New("only the room owner may do that")
	// ErrAlreadyStarted is returned for setup mutators after the room went active.
	ErrAlreadyStarted = errors.New("room already started")
	// ErrInvalidMode is returned for unsupported question counts.
	ErrInvalidMode = errors.New("invalid mode count")
	// ErrInvalidCourse is returned for an empty or malformed course id.
	ErrInvalidCourse = errors.New("invalid course id")
	// ErrInvalidTemplate is returned for an unknown template kind.
	ErrInvalidTemplate = errors.New("invalid template kind")

	ErrModeNotSet     = errors.New("mode not set")
	ErrCourseNotSet   = errors.New("course not set")
	ErrTemplateNotSet = errors.New("template not set")
	ErrNoParticipants = errors.New("no ready participants")
	// ErrNoQuestions signals the bank has fewer valid questions than requested.
	ErrNoQuestions = errors.New("not enough questions")

	// ErrNotActive is returned for answers outside the active phase.
	ErrNotActive = errors.New("room is not active")
	// ErrStaleQuestion is returned for answers targeting a past question.
	ErrStaleQuestion = errors.New("question is no longer current")
	// ErrTooLate is returned for answers past the question deadline.
	ErrTooLate = errors.New("answer arrived after the deadline")
	// ErrNotEligible is returned for users outside the frozen roster.
	ErrNotEligible = errors.New("user is not in the room roster")

	ErrNotEnded       = errors.New("room has not concluded")
	ErrNotParticipant = errors.New("user did not take part in this room")

	// ErrAliasCollision means two different long values mapped to one alias.
	ErrAliasCollision = errors.New("alias already bound to a different value")
	// ErrAliasNotFound means no mapping exists for the alias.
	ErrAliasNotFound = errors.New("alias not found")

	// ErrTokenNotFound means no callback payload is stored under the token.
	ErrTokenNotFound = errors.New("callback token not found")
	// ErrTokenExpired means the stored payload outlived its TTL.
	ErrTokenExpired = errors.New("callback token expired")
)

var errorCodes = []struct {
	err  error
	code string
}{
	{ErrNoRoom, "no-room"},
	{ErrOnlyOwner, "only-owner"},
	{ErrAlreadyStarted, "already-started"},
	{ErrInvalidMode, "invalid-mode"},
	{ErrInvalidCourse, "invalid-course"},
	{ErrInvalidTemplate, "invalid-template"},
	{ErrModeNotSet, "mode-not-set"},
	{ErrCourseNotSet, "course-not-set"},
	{ErrTemplateNotSet, "template-not-set"},
	{ErrNoParticipants, "no-participants"},
	{ErrNoQuestions, "no-questions"},
	{ErrNotActive, "not-active"},
	{ErrStaleQuestion, "stale-question"},
	{ErrTooLate, "too-late"},
	{ErrNotEligible, "not-eligible"},
	{ErrNotEnded, "not-ended"},
	{ErrNotParticipant, "not-participant"},
	{ErrAliasCollision, "alias-collision"},
	{ErrAliasNotFound, "alias-not-found"},
	{ErrTokenNotFound, "token-not-found"},
	{ErrTokenExpired, "token-expired"},
}

// ErrorCode maps a domain error to the stable wire code reported to callers.
// Unknown errors map to "internal".
func ErrorCode(err error) string {
	for _, entry := range errorCodes {
		if errors.Is(err, entry.err) {
			return entry.code
		}
	}
	return "internal"
}
