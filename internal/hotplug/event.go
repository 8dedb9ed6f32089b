package hotplug

import "strings"

// Action is the kind of change an OS device event reports.
type Action string

const (
	ActionAdd    Action = "add"
	ActionRemove Action = "remove"
	ActionMove   Action = "move"
	ActionChange Action = "change"
	ActionOther  Action = "other"
)

// ParseAction maps a raw uevent action to an Action. Anything unrecognised is
// ActionOther.
func ParseAction(raw string) Action {
	switch Action(strings.ToLower(strings.TrimSpace(raw))) {
	case ActionAdd:
		return ActionAdd
	case ActionRemove:
		return ActionRemove
	case ActionMove:
		return ActionMove
	case ActionChange:
		return ActionChange
	default:
		return ActionOther
	}
}

// Event is one record from the OS device-event feed.
type Event struct {
	Action       Action
	Subsystem    string
	Name         string
	Driver       string
	ParentDriver string
}

// addsDevice reports whether the event goes down the device-added path.
func (e Event) addsDevice() bool {
	switch e.Action {
	case ActionAdd, ActionMove, ActionChange:
		return true
	default:
		return false
	}
}
