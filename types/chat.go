package types

const (
	RoleHuman  = "human"
	RoleAI     = "ai"
	RoleSystem = "system"
)

// Message represents a single turn in the conversation
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

func HumanMessage(content string) Message {
	return Message{Role: RoleHuman, Content: content}
}

func AIMessage(content string) Message {
	return Message{Role: RoleAI, Content: content}
}

// ModelRequest is what a chat model receives for one turn: the system prompt
// with the embedded document, the prior history in order, and the new input.
type ModelRequest struct {
	System  string    `json:"system"`
	History []Message `json:"history"`
	Input   string    `json:"input"`
}

// StreamChunk is one fragment of a streamed model response. The last chunk of
// a stream has Done set and carries either FullText or Err.
type StreamChunk struct {
	Delta    string `json:"delta,omitempty"`
	FullText string `json:"full_text,omitempty"`
	Done     bool   `json:"done,omitempty"`
	Err      error  `json:"-"`
}

type ChatRequest struct {
	Message string `json:"message"`
}

type ChatResponse struct {
	SessionID string   `json:"session_id"`
	Message   *Message `json:"message"`
}
