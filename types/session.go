package types

import "time"

const (
	// SessionStateIdle means no document has been processed yet; chat is disabled.
	SessionStateIdle = "idle"
	// SessionStateReady means a prompt template is compiled and chat is enabled.
	SessionStateReady = "ready"
)

// PromptTemplate is the three-segment prompt: the system segment holds the
// instructions with the escaped corpus, followed by the history and input
// placeholders.
type PromptTemplate struct {
	System     string `json:"system"`
	HistoryKey string `json:"history_key"`
	InputKey   string `json:"input_key"`
}

// Session owns one corpus, one compiled template and one history.
type Session struct {
	ID        string          `json:"id"`
	State     string          `json:"state"`
	Template  *PromptTemplate `json:"template,omitempty"`
	Documents []DocumentInfo  `json:"documents"`
	History   []Message       `json:"history"`
	CreatedAt int64           `json:"created_at"`
	UpdatedAt int64           `json:"updated_at"`
}

func NewSession(id string) *Session {
	now := time.Now().Unix()
	return &Session{
		ID:        id,
		State:     SessionStateIdle,
		Documents: []DocumentInfo{},
		History:   []Message{},
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func (s *Session) Ready() bool {
	return s.State == SessionStateReady && s.Template != nil
}

// Append adds turns to the end of the history.
func (s *Session) Append(msgs ...Message) {
	s.History = append(s.History, msgs...)
	s.UpdatedAt = time.Now().Unix()
}

// Snapshot returns a copy of the history that later appends cannot alias.
func (s *Session) Snapshot() []Message {
	out := make([]Message, len(s.History))
	copy(out, s.History)
	return out
}

// Clone returns a deep copy of the session.
func (s *Session) Clone() *Session {
	c := *s
	if s.Template != nil {
		tpl := *s.Template
		c.Template = &tpl
	}
	c.Documents = make([]DocumentInfo, len(s.Documents))
	copy(c.Documents, s.Documents)
	c.History = s.Snapshot()
	return &c
}
