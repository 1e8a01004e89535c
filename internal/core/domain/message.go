package domain

import (
	"crypto/rand"
	"encoding/json"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
)

// MsgType discriminates the two message kinds.
type MsgType int

const (
	// MsgText is a plain text message. The payload is the text itself.
	MsgText MsgType = 0

	// MsgFile announces an uploaded file. The payload is the original
	// filename, used for display and download headers only; the stored
	// bytes are addressed by FileID.
	MsgFile MsgType = 1
)

// Message is one entry of a folder's append-only log.
type Message struct {
	// Type is the message kind (0 = text, 1 = file).
	Type MsgType `json:"type"`

	// Date is the acceptance timestamp in RFC 3339 / ISO-8601 form.
	Date string `json:"date"`

	// Data is the payload: message text, or the display filename for
	// file messages. Encrypted at rest when encryption is enabled.
	Data string `json:"data"`

	// Size is the payload size in bytes, billed against the quota.
	Size int64 `json:"size"`

	// Sender is the display label of the sending client.
	Sender string `json:"sender"`

	// FileID addresses the stored bytes of a file message. Empty for
	// text messages.
	FileID string `json:"file_id,omitempty"`
}

// NewTextMessage creates a text message stamped with the current time.
func NewTextMessage(data, sender string) *Message {
	return &Message{
		Type:   MsgText,
		Date:   time.Now().UTC().Format(time.RFC3339Nano),
		Data:   data,
		Size:   int64(len(data)),
		Sender: sender,
	}
}

// NewFileMessage creates a file message for a completed upload.
func NewFileMessage(filename string, size int64, sender, fileID string) *Message {
	return &Message{
		Type:   MsgFile,
		Date:   time.Now().UTC().Format(time.RFC3339Nano),
		Data:   filename,
		Size:   size,
		Sender: sender,
		FileID: fileID,
	}
}

// Marshal serializes the message to its persisted record form.
func (m *Message) Marshal() ([]byte, error) {
	return json.Marshal(m)
}

// UnmarshalMessage parses a persisted message record.
func UnmarshalMessage(data []byte) (*Message, error) {
	var m Message
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, ErrStorageError.WithDetails("corrupt message record").WithCause(err)
	}
	return &m, nil
}

// MessageView is the client-facing form of a message with a humanized size.
type MessageView struct {
	Type   MsgType `json:"type"`
	Date   string  `json:"date"`
	Data   string  `json:"data"`
	Size   string  `json:"size"`
	Sender string  `json:"sender"`
	FileID string  `json:"file_id,omitempty"`
}

// View returns the display form of the message.
func (m *Message) View() MessageView {
	return MessageView{
		Type:   m.Type,
		Date:   m.Date,
		Data:   m.Data,
		Size:   FormatSize(m.Size),
		Sender: m.Sender,
		FileID: m.FileID,
	}
}

// NewFileID generates an opaque file id.
//
// Uploaded files are stored under this id, never under the client-supplied
// filename. ULIDs keep ids unique per folder without a durable counter.
func NewFileID() (string, error) {
	id, err := ulid.New(ulid.Timestamp(time.Now()), ulid.Monotonic(rand.Reader, 0))
	if err != nil {
		return "", ErrInternalServer.WithCause(err)
	}
	return strings.ToLower(id.String()), nil
}
