package playback

import (
	"net/url"
	"strconv"
)

// query parameter names
const (
	ParamTab    = "tab"
	ParamLesson = "lesson"
	ParamSeek   = "seek"
)

// DeepLink the part of "where the user is" carried by the address bar
type DeepLink struct {
	Tab      Tab    `json:"tab"`
	LessonID string `json:"lesson_id,omitempty"`
	Seek     *int   `json:"seek,omitempty"`
}

// ParseDeepLink read tab, lesson and seek from a query.
//
// A missing or unknown tab is TabPlayer, a seek that is not a non-negative
// integer is ignored.
func ParseDeepLink(q url.Values) DeepLink {
	link := DeepLink{
		Tab:      ParseTab(q.Get(ParamTab)),
		LessonID: q.Get(ParamLesson),
	}
	if raw := q.Get(ParamSeek); raw != "" {
		if seek, err := strconv.Atoi(raw); err == nil && seek >= 0 {
			link.Seek = &seek
		}
	}
	return link
}

// Query encode the link, seek is only written alongside a lesson
func (d DeepLink) Query() url.Values {
	q := make(url.Values)
	tab := d.Tab
	if tab == "" {
		tab = TabPlayer
	}
	q.Set(ParamTab, string(tab))
	if d.LessonID != "" {
		q.Set(ParamLesson, d.LessonID)
		if d.Seek != nil {
			q.Set(ParamSeek, strconv.Itoa(*d.Seek))
		}
	}
	return q
}

// Encode query string without the leading '?'
func (d DeepLink) Encode() string {
	return d.Query().Encode()
}
