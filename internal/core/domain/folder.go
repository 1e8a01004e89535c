package domain

import (
	"encoding/json"
	"fmt"
	"math/rand"
	"path"
	"strconv"
	"time"
)

// Folder constraints and defaults.
const (
	// SaltSize is the size in bytes of the key-derivation salt stored in
	// the folder record.
	SaltSize = 16

	// SubdirRange is the range of random second-level directory names a
	// folder's storage path is placed under (1..SubdirRange).
	SubdirRange = 1 << 10
)

// Folder is the durable state of one shared folder.
//
// The JSON form is the persisted metadata record. The derived encryption
// key and the set of live connections are process-local and never part of
// this record; they live on the registry entry that wraps the Folder.
type Folder struct {
	// Identity is the one-way fingerprint of the passcode, the sole key
	// for all folder state. The raw passcode is never persisted.
	Identity string `json:"identity"`

	// CreatedTime is the creation timestamp in RFC 3339 / ISO-8601 form.
	CreatedTime string `json:"created_time"`

	// Age is the folder lifetime in seconds, counted from CreatedTime.
	Age int64 `json:"age"`

	// StorageLimit is the storage quota in bytes.
	StorageLimit int64 `json:"storage_limit"`

	// CurrentSize is the accepted payload total in bytes. It never
	// decreases until the folder is deleted.
	CurrentSize int64 `json:"current_size"`

	// Path is the storage subtree for uploaded files, relative to the
	// upload root. Unique per identity.
	Path string `json:"path"`

	// MsgCount is the length of the append-only message log. It is
	// persisted in the same atomic write as every append so the next
	// sequence number survives restarts.
	MsgCount int64 `json:"msg_count"`

	// Salt is the random key-derivation salt generated at signup. Storing
	// it here makes key derivation stable across logins.
	Salt []byte `json:"salt"`
}

// NewFolder creates a Folder for a fresh signup.
//
// The storage path is a random second-level directory joined with the
// identity, matching the on-disk layout the filestore expects.
func NewFolder(identity string, age, storageLimit int64, salt []byte) *Folder {
	return &Folder{
		Identity:     identity,
		CreatedTime:  time.Now().UTC().Format(time.RFC3339Nano),
		Age:          age,
		StorageLimit: storageLimit,
		Path:         path.Join(strconv.Itoa(rand.Intn(SubdirRange)+1), identity),
		Salt:         salt,
	}
}

// ExpireAt returns the absolute expiry time: CreatedTime + Age.
func (f *Folder) ExpireAt() time.Time {
	created, err := time.Parse(time.RFC3339Nano, f.CreatedTime)
	if err != nil {
		// An unparseable record is treated as already expired so the
		// sweep reclaims it instead of keeping it alive forever.
		return time.Time{}
	}
	return created.Add(time.Duration(f.Age) * time.Second)
}

// IsExpired reports whether the folder has passed its age.
func (f *Folder) IsExpired() bool {
	return time.Now().After(f.ExpireAt())
}

// UsagePercent returns the used share of the storage quota.
func (f *Folder) UsagePercent() float64 {
	if f.StorageLimit <= 0 {
		return 0
	}
	return 100 * float64(f.CurrentSize) / float64(f.StorageLimit)
}

// Remaining returns the unused quota in bytes, floored at zero.
func (f *Folder) Remaining() int64 {
	if f.CurrentSize >= f.StorageLimit {
		return 0
	}
	return f.StorageLimit - f.CurrentSize
}

// Validate validates the record fields.
func (f *Folder) Validate() error {
	if f.Identity == "" {
		return ErrInvalidArgument.WithDetails("identity is required")
	}
	if f.Age <= 0 {
		return ErrInvalidArgument.WithDetails("age must be positive")
	}
	if f.StorageLimit <= 0 {
		return ErrInvalidArgument.WithDetails("storage_limit must be positive")
	}
	if f.Path == "" {
		return ErrInvalidArgument.WithDetails("path is required")
	}
	return nil
}

// Clone creates a deep copy of the folder record.
func (f *Folder) Clone() *Folder {
	clone := *f
	if f.Salt != nil {
		clone.Salt = append([]byte(nil), f.Salt...)
	}
	return &clone
}

// Marshal serializes the folder to its persisted record form.
func (f *Folder) Marshal() ([]byte, error) {
	return json.Marshal(f)
}

// UnmarshalFolder parses a persisted folder record.
func UnmarshalFolder(data []byte) (*Folder, error) {
	var f Folder
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, ErrStorageError.WithDetails("corrupt folder record").WithCause(err)
	}
	return &f, nil
}

// FolderView is the client-facing summary sent in the WebSocket connect
// event. Sizes are humanized for display.
type FolderView struct {
	CreatedTime     string `json:"created_time"`
	Age             int64  `json:"age"`
	StorageLimit    string `json:"storage_limit"`
	CurrentSize     string `json:"current_size"`
	ExpireAt        string `json:"expire_at"`
	UsagePercentage string `json:"usage_percentage"`
}

// View returns the display summary of the folder.
func (f *Folder) View() FolderView {
	return FolderView{
		CreatedTime:     f.CreatedTime,
		Age:             f.Age,
		StorageLimit:    FormatSize(f.StorageLimit),
		CurrentSize:     FormatSize(f.CurrentSize),
		ExpireAt:        f.ExpireAt().Format(time.RFC3339Nano),
		UsagePercentage: fmt.Sprintf("%.1f%%", f.UsagePercent()),
	}
}

// FormatSize renders a byte count with a decimal unit suffix.
func FormatSize(n int64) string {
	num := float64(n)
	for _, unit := range []string{"", "K", "M", "G", "T", "P", "E"} {
		if num < 1000.0 && num > -1000.0 {
			return fmt.Sprintf("%.1f%sB", num, unit)
		}
		num /= 1000.0
	}
	return fmt.Sprintf("%.1fZB", num)
}
