// Package config defines the server configuration structure.
package config

import "time"

// ServerConfig is the root configuration for snapfold-server.
type ServerConfig struct {
	Server  ServerSection  `koanf:"server"`
	Storage StorageSection `koanf:"storage"`
	Folder  FolderSection  `koanf:"folder"`
	Sweep   SweepSection   `koanf:"sweep"`
	WS      WSSection      `koanf:"ws"`
	Auth    AuthSection    `koanf:"auth"`
	Log     LogSection     `koanf:"log"`
}

// ServerSection configures the HTTP endpoint.
type ServerSection struct {
	// Addr is the listen address (host:port).
	Addr string `koanf:"addr"`

	// ShutdownTimeout bounds graceful teardown.
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`

	// MaxUploadBytes caps a single upload request body. Zero means the
	// folder quota is the only limit.
	MaxUploadBytes int64 `koanf:"max_upload_bytes"`
}

// StorageSection configures persistence.
type StorageSection struct {
	// DataDir is the Badger database directory.
	DataDir string `koanf:"data_dir"`

	// UploadDir is the root of the on-disk file tree.
	UploadDir string `koanf:"upload_dir"`

	// SyncWrites forces fsync on every Badger commit.
	SyncWrites bool `koanf:"sync_writes"`

	// DeleteWorkers is the size of the file deletion pool.
	DeleteWorkers int `koanf:"delete_workers"`
}

// FolderSection configures folder lifecycle and crypto.
type FolderSection struct {
	// Age is the lifetime granted to a new folder.
	Age time.Duration `koanf:"age"`

	// StorageLimit is the per-folder byte quota.
	StorageLimit int64 `koanf:"storage_limit"`

	// KDFIterations is the PBKDF2 iteration count for key derivation.
	KDFIterations int `koanf:"kdf_iterations"`

	// Encrypt enables at-rest encryption of message and file payloads.
	Encrypt bool `koanf:"encrypt"`
}

// SweepSection configures the expiry reaper.
type SweepSection struct {
	// Interval is the target spacing between cycle starts.
	Interval time.Duration `koanf:"interval"`
}

// WSSection configures websocket behavior.
type WSSection struct {
	// Heartbeat is the ping cadence on live connections.
	Heartbeat time.Duration `koanf:"heartbeat"`

	// ReceiveTimeout closes a connection that stays silent this long.
	ReceiveTimeout time.Duration `koanf:"receive_timeout"`
}

// AuthSection configures session cookies and login throttling.
type AuthSection struct {
	// CookieSecret signs identity cookies. Generated at startup when
	// empty, which invalidates cookies across restarts.
	CookieSecret string `koanf:"cookie_secret"`

	// CookieSecure marks the identity cookie Secure.
	CookieSecure bool `koanf:"cookie_secure"`

	// LoginRate is the sustained signup/login attempts per second per
	// client address.
	LoginRate float64 `koanf:"login_rate"`

	// LoginBurst is the burst allowance on top of LoginRate.
	LoginBurst int `koanf:"login_burst"`
}

// LogSection configures logging.
type LogSection struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
}
