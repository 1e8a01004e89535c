package domain

import (
	"testing"
	"time"
)

func TestNewTextMessage(t *testing.T) {
	m := NewTextMessage("hello there", "Firefox")

	if m.Type != MsgText {
		t.Errorf("Type = %d, want %d", m.Type, MsgText)
	}
	if m.Data != "hello there" {
		t.Errorf("Data = %q, want %q", m.Data, "hello there")
	}
	if m.Size != int64(len("hello there")) {
		t.Errorf("Size = %d, want %d", m.Size, len("hello there"))
	}
	if m.Sender != "Firefox" {
		t.Errorf("Sender = %q, want %q", m.Sender, "Firefox")
	}
	if m.FileID != "" {
		t.Errorf("FileID = %q, want empty", m.FileID)
	}
	if _, err := time.Parse(time.RFC3339Nano, m.Date); err != nil {
		t.Errorf("Date %q is not RFC 3339: %v", m.Date, err)
	}
}

func TestNewFileMessage(t *testing.T) {
	m := NewFileMessage("report.pdf", 2048, "Chrome", "01hq3ksveh0001am5raqvk9s7n")

	if m.Type != MsgFile {
		t.Errorf("Type = %d, want %d", m.Type, MsgFile)
	}
	if m.Data != "report.pdf" {
		t.Errorf("Data = %q, want %q", m.Data, "report.pdf")
	}
	if m.Size != 2048 {
		t.Errorf("Size = %d, want 2048", m.Size)
	}
	if m.FileID != "01hq3ksveh0001am5raqvk9s7n" {
		t.Errorf("FileID = %q, want %q", m.FileID, "01hq3ksveh0001am5raqvk9s7n")
	}
}

func TestMessageMarshalRoundTrip(t *testing.T) {
	m := NewFileMessage("notes.txt", 17, "curl", "01hq3ksveh0001am5raqvk9s7n")

	data, err := m.Marshal()
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	got, err := UnmarshalMessage(data)
	if err != nil {
		t.Fatalf("UnmarshalMessage: %v", err)
	}
	if *got != *m {
		t.Fatalf("round trip = %+v, want %+v", got, m)
	}
}

func TestUnmarshalMessage_Corrupt(t *testing.T) {
	if _, err := UnmarshalMessage([]byte("{not json")); err == nil {
		t.Fatal("UnmarshalMessage accepted corrupt record")
	}
}

func TestMessageView(t *testing.T) {
	m := NewFileMessage("big.bin", 1_500_000, "Safari", "01hq3ksveh0001am5raqvk9s7n")

	v := m.View()
	if v.Size != "1.5MB" {
		t.Errorf("View().Size = %q, want %q", v.Size, "1.5MB")
	}
	if v.Data != m.Data || v.Sender != m.Sender || v.FileID != m.FileID {
		t.Errorf("View() = %+v, want fields of %+v", v, m)
	}
}

func TestNewFileID(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 10; i++ {
		id, err := NewFileID()
		if err != nil {
			t.Fatalf("NewFileID: %v", err)
		}
		if len(id) != 26 {
			t.Fatalf("len(id) = %d, want 26", len(id))
		}
		for _, c := range id {
			if (c < '0' || c > '9') && (c < 'a' || c > 'z') {
				t.Fatalf("id %q contains %q, want lowercase base32", id, c)
			}
		}
		if seen[id] {
			t.Fatalf("duplicate id %q", id)
		}
		seen[id] = true
	}
}
