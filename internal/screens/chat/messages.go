package chat

// TranscriptUpdatedMsg is broadcast by the app whenever the controller
// mutates the conversation set, so the active screen re-renders against
// the latest store state.
type TranscriptUpdatedMsg struct{}

// turnDoneMsg is sent when a blocking controller call returns.
type turnDoneMsg struct{}
