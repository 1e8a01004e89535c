// Package config defines the server configuration structure.
package config

import "time"

// Default configuration values.
const (
	DefaultAddr            = "127.0.0.1:8088"
	DefaultShutdownTimeout = 30 * time.Second

	DefaultDataDir       = "/var/lib/snapfold-server/data"
	DefaultUploadDir     = "/var/lib/snapfold-server/uploads"
	DefaultDeleteWorkers = 4

	DefaultFolderAge     = 24 * time.Hour
	DefaultStorageLimit  = int64(1_000_000_000)
	DefaultKDFIterations = 480_000

	DefaultSweepInterval = time.Minute

	DefaultHeartbeat      = 30 * time.Second
	DefaultReceiveTimeout = time.Hour

	DefaultLoginRate  = 1.0
	DefaultLoginBurst = 5

	DefaultLogLevel  = "info"
	DefaultLogFormat = "json"
)

// Default returns the default server configuration.
func Default() *ServerConfig {
	return &ServerConfig{
		Server: ServerSection{
			Addr:            DefaultAddr,
			ShutdownTimeout: DefaultShutdownTimeout,
		},
		Storage: StorageSection{
			DataDir:       DefaultDataDir,
			UploadDir:     DefaultUploadDir,
			SyncWrites:    false,
			DeleteWorkers: DefaultDeleteWorkers,
		},
		Folder: FolderSection{
			Age:           DefaultFolderAge,
			StorageLimit:  DefaultStorageLimit,
			KDFIterations: DefaultKDFIterations,
			Encrypt:       true,
		},
		Sweep: SweepSection{
			Interval: DefaultSweepInterval,
		},
		WS: WSSection{
			Heartbeat:      DefaultHeartbeat,
			ReceiveTimeout: DefaultReceiveTimeout,
		},
		Auth: AuthSection{
			LoginRate:  DefaultLoginRate,
			LoginBurst: DefaultLoginBurst,
		},
		Log: LogSection{
			Level:  DefaultLogLevel,
			Format: DefaultLogFormat,
		},
	}
}
