package server

import "github.com/abhisek/stepwise/internal/llm"

// turnMessage is one transcript entry on the wire.
type turnMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// conversationPayload is the transcript as received from the client.
type conversationPayload struct {
	ID       string        `json:"id"`
	Messages []turnMessage `json:"messages"`
	Progress int           `json:"progress"`
}

// turnRequest is the body for /chat and /recap.
type turnRequest struct {
	Message        conversationPayload `json:"message"`
	CorrectAnswer  string              `json:"correct_answer"`
	Strategy       string              `json:"strategy"`
	StudentMistake string              `json:"student_mistake"`
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

// llmMessages converts the wire transcript to LLM conversation messages.
// Unknown roles are treated as user messages.
func llmMessages(payload conversationPayload) []llm.Message {
	out := make([]llm.Message, 0, len(payload.Messages))
	for _, m := range payload.Messages {
		role := llm.RoleUser
		if m.Role == "assistant" {
			role = llm.RoleAssistant
		}
		out = append(out, llm.Message{Role: role, Content: m.Content})
	}
	return out
}

// solutionSchema constrains /createSolution output. The step collection is
// an object keyed "Step 1", "Step 2", … with string values.
var solutionSchema = &llm.Schema{
	Name:        "tutor-solution",
	Description: "A worked solution broken into tutoring steps",
	Definition: map[string]any{
		"type":     "object",
		"required": []any{"model_reasoning", "response"},
		"properties": map[string]any{
			"model_reasoning": map[string]any{"type": "string"},
			"response": map[string]any{
				"type":                 "object",
				"minProperties":        1,
				"additionalProperties": map[string]any{"type": "string"},
			},
		},
	},
}

// verdictSchema constrains /checkResponse output.
var verdictSchema = &llm.Schema{
	Name:        "tutor-verdict",
	Description: "Correctness judgment for one step of student work",
	Definition: map[string]any{
		"type":     "object",
		"required": []any{"verdict", "strategy"},
		"properties": map[string]any{
			"verdict":  map[string]any{"type": "string", "minLength": 1},
			"strategy": map[string]any{"type": "string"},
		},
	},
}
