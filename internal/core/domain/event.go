package domain

// EventType identifies a progress event.
type EventType string

const (
	EventStart          EventType = "start"
	EventProgress       EventType = "progress"
	EventTeamCreated    EventType = "team_created"
	EventTeamFound      EventType = "team_found"
	EventPending        EventType = "pending"
	EventChannelCreated EventType = "channel_created"
	EventChannelError   EventType = "channel_error"
	EventMemberAdded    EventType = "member_added"
	EventMemberError    EventType = "member_error"
	EventFolderCreated  EventType = "folder_created"
	EventFolderError    EventType = "folder_error"
	EventIconUploaded   EventType = "icon_uploaded"
	EventComplete       EventType = "complete"
	EventError          EventType = "error"
)

// Event is a progress notification emitted while a run advances.
// It serialises as {"type": ..., "data": {...}}.
type Event struct {
	Type EventType `json:"type"`
	Data EventData `json:"data"`
}

// EventData carries the fields relevant to an event. Unused fields are omitted.
type EventData struct {
	Message          string `json:"message"`
	RunID            string `json:"runId,omitempty"`
	TeamID           string `json:"teamId,omitempty"`
	TeamName         string `json:"teamName,omitempty"`
	Name             string `json:"name,omitempty"`
	Index            int    `json:"index,omitempty"`
	Total            int    `json:"total,omitempty"`
	Attempt          int    `json:"attempt,omitempty"`
	ElapsedSeconds   int    `json:"elapsedSeconds,omitempty"`
	ChannelsCreated  int    `json:"channelsCreated,omitempty"`
	MembersAdded     int    `json:"membersAdded,omitempty"`
	FoldersCreated   int    `json:"foldersCreated,omitempty"`
	Error            string `json:"error,omitempty"`
	ErrorKind        string `json:"errorKind,omitempty"`
	RetryRecommended bool   `json:"retryRecommended,omitempty"`
	WaitSeconds      int    `json:"waitTime,omitempty"`
}

// NewEvent builds an event with a message.
func NewEvent(t EventType, message string) Event {
	return Event{Type: t, Data: EventData{Message: message}}
}

// ErrorEvent builds an error event from a failure, carrying retry guidance
// when the failure is classified.
func ErrorEvent(message string, err error) Event {
	ev := NewEvent(EventError, message)
	if err == nil {
		return ev
	}
	ev.Data.Error = err.Error()
	ev.Data.ErrorKind = string(KindOf(err))
	if e, ok := AsError(err); ok {
		ev.Data.RetryRecommended = e.RetryRecommended()
		ev.Data.WaitSeconds = int(e.RetryAfter.Seconds())
	}
	return ev
}
