package http

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/amahmoodi1379-glitch/psynex-exambot/internal/ref"
)

// CommandKind tags the decoded interactive-control command.
type CommandKind string

const (
	CommandAnswer      CommandKind = "answer"
	CommandGroupReview CommandKind = "group-review"
	CommandCourse      CommandKind = "course"
)

// Command is the typed form of a control payload. Payloads are decoded and
// validated exactly once, here, before touching any room.
type Command struct {
	Kind          CommandKind
	RoomID        string
	QuestionIndex int
	Option        int
	CourseRef     string
	HostSuffix    string
}

// ParseCommand decodes a delimiter-joined control payload:
//
//	a:<roomId>:<questionIndex>:<optionIndex>[:<hostSuffix>]
//	gr:<roomId>[:<hostSuffix>]
//	c:<roomId>:<courseRef>[:<hostSuffix>]
func ParseCommand(data string) (Command, error) {
	if len(data) > ref.ControlDataLimit {
		return Command{}, fmt.Errorf("payload exceeds %d bytes", ref.ControlDataLimit)
	}
	parts := strings.Split(data, ref.Delimiter)
	if len(parts) < 2 || parts[1] == "" {
		return Command{}, fmt.Errorf("malformed payload %q", data)
	}
	switch parts[0] {
	case "a":
		if len(parts) < 4 {
			return Command{}, fmt.Errorf("answer payload %q missing fields", data)
		}
		index, err := strconv.Atoi(parts[2])
		if err != nil {
			return Command{}, fmt.Errorf("answer payload %q: bad question index", data)
		}
		option, err := strconv.Atoi(parts[3])
		if err != nil {
			return Command{}, fmt.Errorf("answer payload %q: bad option", data)
		}
		cmd := Command{Kind: CommandAnswer, RoomID: parts[1], QuestionIndex: index, Option: option}
		if len(parts) > 4 {
			cmd.HostSuffix = parts[4]
		}
		return cmd, nil
	case "gr":
		cmd := Command{Kind: CommandGroupReview, RoomID: parts[1]}
		if len(parts) > 2 {
			cmd.HostSuffix = parts[2]
		}
		return cmd, nil
	case "c":
		if len(parts) < 3 || parts[2] == "" {
			return Command{}, fmt.Errorf("course payload %q missing ref", data)
		}
		cmd := Command{Kind: CommandCourse, RoomID: parts[1], CourseRef: parts[2]}
		if len(parts) > 3 {
			cmd.HostSuffix = parts[3]
		}
		return cmd, nil
	}
	return Command{}, fmt.Errorf("unknown action %q", parts[0])
}
