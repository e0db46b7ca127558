package types

type DataResponse struct {
	Status  bool        `json:"status"`
	Message string      `json:"message,omitempty"`
	Data    interface{} `json:"data,omitempty"`
}

type SessionResponse struct {
	SessionID string         `json:"session_id"`
	State     string         `json:"state"`
	Token     string         `json:"token,omitempty"`
	Documents []DocumentInfo `json:"documents"`
	History   []Message      `json:"history"`
}

type ProcessResponse struct {
	SessionID string         `json:"session_id"`
	State     string         `json:"state"`
	Documents []DocumentInfo `json:"documents"`
	Turns     int            `json:"turns"`
}

type ProcessingDocumentStatus struct {
	Status         string  `json:"status"`
	Message        string  `json:"message"`
	File           string  `json:"file,omitempty"`
	Progress       float64 `json:"progress"`
	TotalPages     int     `json:"total_pages"`
	ProcessedPages int     `json:"processed_pages"`
}
