package transcript

import "time"

// Role is the turn sender role.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Turn is a single message in a conversation.
type Turn struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// Conversation is one problem-solving thread. ModelSolution holds the
// expected answer for each tutoring step, produced once at session creation.
// Progress starts at len(ModelSolution) and counts down to zero as steps
// are answered correctly.
type Conversation struct {
	ID             string    `json:"id"`
	Turns          []Turn    `json:"turns"`
	ModelSolution  []string  `json:"model_solution"`
	ModelReasoning string    `json:"model_reasoning"`
	Progress       int       `json:"progress"`
	Completed      bool      `json:"completed"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// Empty reports whether the conversation has no turns yet. An empty
// conversation is the "new chat" placeholder; the store keeps at most one.
func (c *Conversation) Empty() bool {
	return len(c.Turns) == 0
}

// Started reports whether grading has begun (a model solution exists).
func (c *Conversation) Started() bool {
	return len(c.ModelSolution) > 0
}

// LastTurn returns the final turn, or nil if there are none.
func (c *Conversation) LastTurn() *Turn {
	if len(c.Turns) == 0 {
		return nil
	}
	return &c.Turns[len(c.Turns)-1]
}

// Clone returns a deep copy. Readers get clones so that in-place streaming
// mutation is never observable through a previously returned value.
func (c *Conversation) Clone() *Conversation {
	out := *c
	out.Turns = make([]Turn, len(c.Turns))
	copy(out.Turns, c.Turns)
	out.ModelSolution = make([]string, len(c.ModelSolution))
	copy(out.ModelSolution, c.ModelSolution)
	return &out
}
