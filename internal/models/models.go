package models

import "time"

// Entry represents a row in the public downloads registry
type Entry struct {
	ID           int64     `json:"id"`
	Reference    string    `json:"reference"`
	DisplayName  string    `json:"display_name"`
	MimeType     string    `json:"mime_type"`
	RelativePath string    `json:"relative_path"`
	Collection   string    `json:"collection"`
	Pending      bool      `json:"pending"`
	Size         int64     `json:"size"`
	CreatedAt    time.Time `json:"created_at"`
}

// SaveArguments is the argument bundle of a saveToDownloads call.
// Bytes travel as base64 in JSON.
type SaveArguments struct {
	Bytes    []byte `json:"bytes"`
	Filename string `json:"filename"`
}

// ChannelResponse represents a successful method channel response
type ChannelResponse struct {
	Success bool   `json:"success"`
	Result  string `json:"result"`
}

// NotImplementedResponse is returned for method names with no handler
type NotImplementedResponse struct {
	NotImplemented bool   `json:"not_implemented"`
	Method         string `json:"method"`
}

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}
