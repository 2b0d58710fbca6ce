package playback

// MessageType type tag of player channel messages
type MessageType string

// client -> server
const (
	MessageTick    MessageType = "tick"
	MessageSeekAck MessageType = "seek_ack"
)

// server -> client
const (
	MessageSeek     MessageType = "seek"
	MessageHistory  MessageType = "history"
	MessageNotice   MessageType = "notice"
	MessageProgress MessageType = "progress"
)

// notice levels
const (
	NoticeInfo  = "info"
	NoticeWarn  = "warn"
	NoticeError = "error"
)

// PlayerMessage message sent by the player
type PlayerMessage struct {
	Type       MessageType `json:"type" validate:"oneof=tick seek_ack"`
	Activation uint64      `json:"activation" validate:"min=1"`
	Second     int         `json:"second" validate:"min=0"`
	Percent    float64     `json:"percent" validate:"min=0"`
}

// Event message sent to the player, only the fields of Type are set
type Event struct {
	Type MessageType `json:"type"`

	// seek
	Activation uint64 `json:"activation,omitempty"`
	LessonID   string `json:"lesson_id,omitempty"` // seek, progress
	VideoRef   string `json:"video_ref,omitempty"`
	Position   *int   `json:"position,omitempty"`

	// history
	Mode  HistoryMode `json:"mode,omitempty"`
	Query string      `json:"query,omitempty"`

	// notice
	Level   string `json:"level,omitempty"`
	Message string `json:"message,omitempty"`
}

// SeekCommand instruction for the player to start lessonID at Position
type SeekCommand struct {
	Activation uint64 `json:"activation"`
	LessonID   string `json:"lesson_id"`
	VideoRef   string `json:"video_ref"`
	Position   int    `json:"position"`
}

// Event the seek message sent to the player
func (c *SeekCommand) Event() Event {
	return Event{
		Type:       MessageSeek,
		Activation: c.Activation,
		LessonID:   c.LessonID,
		VideoRef:   c.VideoRef,
		Position:   intPtr(c.Position),
	}
}

func historyEvent(mode HistoryMode, link DeepLink) Event {
	return Event{Type: MessageHistory, Mode: mode, Query: link.Encode()}
}

func noticeEvent(level, message string) Event {
	return Event{Type: MessageNotice, Level: level, Message: message}
}

func progressEvent(lessonID string) Event {
	return Event{Type: MessageProgress, LessonID: lessonID}
}
