package httpserver

import (
	"time"

	"github.com/yndnr/snapfold-go/internal/core/domain"
)

// Response is the standard API response envelope.
// All JSON responses use this format (except /metrics which uses
// Prometheus format).
type Response struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	RequestID string `json:"request_id"`
	Timestamp int64  `json:"timestamp"`
	Data      any    `json:"data,omitempty"`
	Details   any    `json:"details,omitempty"`
}

// NewResponse creates a success response.
func NewResponse(requestID string, data any) *Response {
	return &Response{
		Code:      "OK",
		Message:   "Success",
		RequestID: requestID,
		Timestamp: time.Now().UnixMilli(),
		Data:      data,
	}
}

// NewErrorResponse creates an error response.
func NewErrorResponse(requestID, code, message string, details any) *Response {
	return &Response{
		Code:      code,
		Message:   message,
		RequestID: requestID,
		Timestamp: time.Now().UnixMilli(),
		Details:   details,
	}
}

// SignupRequest is the request body for POST /signup.
type SignupRequest struct {
	Passcode string `json:"passcode"`

	// AgeSeconds overrides the configured folder lifetime when positive.
	AgeSeconds int64 `json:"age_seconds,omitempty"`
}

// LoginRequest is the request body for POST /login.
type LoginRequest struct {
	Passcode string `json:"passcode"`
}

// FolderResponse is the folder summary returned by signup, login, and the
// auth probe.
type FolderResponse struct {
	Folder domain.FolderView `json:"folder"`
}

// UploadedFile describes one accepted file in an upload response.
type UploadedFile struct {
	FileID string `json:"file_id"`
	Name   string `json:"name"`
	Size   int64  `json:"size"`
}

// UploadResponse is the response body for POST /files.
type UploadResponse struct {
	Files []UploadedFile `json:"files"`
}

// clientCommand is one inbound websocket frame.
type clientCommand struct {
	Action string `json:"action"`
	Data   string `json:"data,omitempty"`
	Offset int64  `json:"offset,omitempty"`
}
