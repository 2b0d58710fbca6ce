package playback

// HistoryMode how an address bar write is recorded
type HistoryMode string

const (
	// HistoryPush deliberate navigation, reachable with back
	HistoryPush HistoryMode = "push"
	// HistoryReplace clean-up of the current entry
	HistoryReplace HistoryMode = "replace"
)

// History address bar of the client, written state -> URL only
type History interface {
	Push(link DeepLink)
	Replace(link DeepLink)
}

// HistoryFunc adapts a function to History
type HistoryFunc func(mode HistoryMode, link DeepLink)

func (f HistoryFunc) Push(link DeepLink) {
	f(HistoryPush, link)
}

func (f HistoryFunc) Replace(link DeepLink) {
	f(HistoryReplace, link)
}
