package types

const (
	TypeWebsocketPing  = "ping"
	TypeWebsocketPong  = "pong"
	TypeWebsocketChat  = "chat"
	TypeWebsocketToken = "token"
	TypeWebsocketDone  = "done"
	TypeWebsocketError = "error"
)

type WebsocketRequest struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload"`
}

type WebSocketChatPayload struct {
	Message string `json:"message"`
}

type WebSocketResponse struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload"`
}

type WebSocketTokenResponse struct {
	Delta string `json:"delta"`
}

type WebSocketDoneResponse struct {
	Message string `json:"message"`
}

type WebSocketErrorResponse struct {
	Error string `json:"error"`
}

// StreamHandler receives fragments of a streamed answer as they arrive
type StreamHandler func(delta string)
