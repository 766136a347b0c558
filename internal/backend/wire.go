package backend

import (
	"github.com/abhisek/stepwise/internal/transcript"
)

// turnMessage is one transcript entry on the wire.
type turnMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// conversationPayload is the transcript as sent to the backend. Only the
// fields the tutor needs cross the wire; local bookkeeping stays local.
type conversationPayload struct {
	ID       string        `json:"id"`
	Messages []turnMessage `json:"messages"`
	Progress int           `json:"progress"`
}

// turnRequest is the body for /chat and /recap.
type turnRequest struct {
	Message        conversationPayload `json:"message"`
	CorrectAnswer  string              `json:"correct_answer"`
	Strategy       string              `json:"strategy,omitempty"`
	StudentMistake string              `json:"student_mistake,omitempty"`
}

// checkRequest is the body for /checkResponse.
type checkRequest struct {
	Message       conversationPayload `json:"message"`
	CorrectAnswer string              `json:"correct_answer"`
}

// createSolutionRequest is the body for /createSolution.
type createSolutionRequest struct {
	Concept            string `json:"concept"`
	ProblemDescription string `json:"problem_description"`
}

func payloadFromConversation(conv *transcript.Conversation) conversationPayload {
	msgs := make([]turnMessage, len(conv.Turns))
	for i, t := range conv.Turns {
		msgs[i] = turnMessage{Role: string(t.Role), Content: t.Content}
	}
	return conversationPayload{
		ID:       conv.ID,
		Messages: msgs,
		Progress: conv.Progress,
	}
}
