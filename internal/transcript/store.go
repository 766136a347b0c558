package transcript

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// Store holds the conversation set and the active conversation id.
// Every mutation is applied under the lock against the current state, so
// rapid successive updates (streaming deltas racing user actions) always
// transform the latest snapshot instead of one captured when the update
// was scheduled.
//
// Invariants maintained by the store:
//   - the active id always resolves to a member of the set
//   - at most one empty (zero-turn) conversation exists
type Store struct {
	mu     sync.Mutex
	convs  []*Conversation
	active string
}

// NewStore creates a store seeded with a single empty conversation, which
// becomes active.
func NewStore() *Store {
	first := newConversation()
	return &Store{
		convs:  []*Conversation{first},
		active: first.ID,
	}
}

func newConversation() *Conversation {
	now := time.Now()
	return &Conversation{
		ID:        uuid.NewString(),
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// List returns clones of all conversations in display order.
func (s *Store) List() []*Conversation {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]*Conversation, len(s.convs))
	for i, c := range s.convs {
		out[i] = c.Clone()
	}
	return out
}

// Get returns a clone of the conversation with the given id.
func (s *Store) Get(id string) (*Conversation, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if c := s.find(id); c != nil {
		return c.Clone(), true
	}
	return nil, false
}

// ActiveID returns the current active conversation id, healing it first.
func (s *Store) ActiveID() string {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.healActive()
	return s.active
}

// Active returns a clone of the active conversation. If the active id no
// longer resolves (deleted out from under us), the store self-heals by
// falling back to the first conversation, synthesizing an empty one when
// the set is empty.
func (s *Store) Active() *Conversation {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.healActive()
	return s.find(s.active).Clone()
}

// SetActive switches the active conversation. Unknown ids are ignored.
func (s *Store) SetActive(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.find(id) != nil {
		s.active = id
	}
}

// Append adds turns to the end of the given conversation.
func (s *Store) Append(id string, turns ...Turn) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	c := s.find(id)
	if c == nil {
		return false
	}
	c.Turns = append(c.Turns, turns...)
	c.UpdatedAt = time.Now()
	return true
}

// ReplaceLastTurnContent overwrites the content of the conversation's last
// turn with the full accumulated text. Overwriting (rather than appending)
// keeps the operation idempotent for re-renders; callers must still apply
// deltas in receipt order.
func (s *Store) ReplaceLastTurnContent(id, content string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	c := s.find(id)
	if c == nil || len(c.Turns) == 0 {
		return false
	}
	c.Turns[len(c.Turns)-1].Content = content
	c.UpdatedAt = time.Now()
	return true
}

// SetSolution installs the model solution and reasoning produced at session
// creation and initializes Progress to the step count.
func (s *Store) SetSolution(id string, steps []string, reasoning string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	c := s.find(id)
	if c == nil {
		return false
	}
	c.ModelSolution = make([]string, len(steps))
	copy(c.ModelSolution, steps)
	c.ModelReasoning = reasoning
	c.Progress = len(steps)
	c.Completed = false
	c.UpdatedAt = time.Now()
	return true
}

// SetProgress updates the remaining-step counter, clamped to
// [0, len(ModelSolution)]. Completed flips on exactly when progress
// reaches zero for a started conversation.
func (s *Store) SetProgress(id string, progress int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	c := s.find(id)
	if c == nil {
		return false
	}
	if progress < 0 {
		progress = 0
	}
	if progress > len(c.ModelSolution) {
		progress = len(c.ModelSolution)
	}
	c.Progress = progress
	if c.Started() {
		c.Completed = progress == 0
	}
	c.UpdatedAt = time.Now()
	return true
}

// SetCompleted marks the conversation's terminal state explicitly.
func (s *Store) SetCompleted(id string, completed bool) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	c := s.find(id)
	if c == nil {
		return false
	}
	c.Completed = completed
	c.UpdatedAt = time.Now()
	return true
}

// Remove deletes a conversation. When the active conversation is removed,
// the first remaining one becomes active; if none remain, a fresh empty
// conversation is synthesized and activated.
func (s *Store) Remove(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	kept := s.convs[:0]
	for _, c := range s.convs {
		if c.ID != id {
			kept = append(kept, c)
		}
	}
	s.convs = kept

	if s.active != id {
		return
	}
	if len(s.convs) > 0 {
		s.active = s.convs[0].ID
		return
	}
	fresh := newConversation()
	s.convs = []*Conversation{fresh}
	s.active = fresh.ID
}

// Create activates an empty conversation, reusing an existing one if
// present so unused placeholders don't accumulate. Returns the id of the
// now-active conversation.
func (s *Store) Create() string {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, c := range s.convs {
		if c.Empty() {
			s.active = c.ID
			return c.ID
		}
	}
	fresh := newConversation()
	s.convs = append(s.convs, fresh)
	s.active = fresh.ID
	return fresh.ID
}

// Replace installs a loaded conversation set, activating the first entry.
// Used only for the initial load from persistence; an empty argument is a
// no-op so a failed load keeps the placeholder.
func (s *Store) Replace(convs []*Conversation) {
	if len(convs) == 0 {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.convs = make([]*Conversation, len(convs))
	for i, c := range convs {
		s.convs[i] = c.Clone()
	}
	s.active = s.convs[0].ID
}

// Len returns the number of conversations.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.convs)
}

// find returns the conversation with the given id, or nil. Callers hold the lock.
func (s *Store) find(id string) *Conversation {
	for _, c := range s.convs {
		if c.ID == id {
			return c
		}
	}
	return nil
}

// healActive restores the "active id resolves" invariant. Callers hold the lock.
func (s *Store) healActive() {
	if s.find(s.active) != nil {
		return
	}
	if len(s.convs) > 0 {
		s.active = s.convs[0].ID
		return
	}
	fresh := newConversation()
	s.convs = []*Conversation{fresh}
	s.active = fresh.ID
}
