package types

// UploadedFile is a PDF received from a client, kept in memory.
type UploadedFile struct {
	Name string
	Data []byte
}

// DocumentInfo describes one processed file. It is reported to clients only;
// the corpus itself keeps no file boundaries.
type DocumentInfo struct {
	Name       string `json:"name"`
	Pages      int    `json:"pages"`
	Characters int    `json:"characters"`
	StoredAs   string `json:"stored_as,omitempty"`
}

// ExtractResult is the output of document ingestion
type ExtractResult struct {
	Corpus    string         `json:"-"`
	Documents []DocumentInfo `json:"documents"`
}

// DocumentServiceConfig contains configuration options for PDF processing
type DocumentServiceConfig struct {
	PdftotextFallback bool // Retry empty pages with the pdftotext binary
}

type ProcessOptions struct {
	ResetHistory bool
	// Progress, when set, receives per-page extraction updates.
	Progress func(ProcessingDocumentStatus)
}
