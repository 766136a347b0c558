package chat

// NoticeLevel classifies a user-visible notice.
type NoticeLevel int

const (
	NoticeInfo NoticeLevel = iota
	NoticeError
)

// Notice is a dismissible, non-blocking notification surfaced to the user.
// All controller failures become notices; nothing propagates further up.
type Notice struct {
	Title       string
	Description string
	Level       NoticeLevel
}

// Notifier receives notices. The TUI renders them as a toast line.
type Notifier interface {
	Notify(Notice)
}

// NotifierFunc adapts a function to the Notifier interface.
type NotifierFunc func(Notice)

func (f NotifierFunc) Notify(n Notice) { f(n) }
