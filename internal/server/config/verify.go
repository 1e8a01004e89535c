// Package config defines the server configuration structure.
package config

import (
	"errors"
	"os"
)

// Verify validates the configuration.
func Verify(cfg *ServerConfig) error {
	if err := verifyServer(&cfg.Server); err != nil {
		return err
	}
	if err := verifyStorage(&cfg.Storage); err != nil {
		return err
	}
	if err := verifyFolder(&cfg.Folder); err != nil {
		return err
	}
	if err := verifyWS(&cfg.WS); err != nil {
		return err
	}
	return nil
}

func verifyServer(cfg *ServerSection) error {
	if cfg.Addr == "" {
		return errors.New("server.addr is required")
	}
	if cfg.MaxUploadBytes < 0 {
		return errors.New("server.max_upload_bytes must not be negative")
	}
	return nil
}

func verifyStorage(cfg *StorageSection) error {
	if cfg.DataDir == "" {
		return errors.New("storage.data_dir is required")
	}
	if cfg.UploadDir == "" {
		return errors.New("storage.upload_dir is required")
	}

	// Check if directories exist or can be created
	if err := os.MkdirAll(cfg.DataDir, 0750); err != nil {
		return errors.New("cannot create data directory: " + err.Error())
	}
	if err := os.MkdirAll(cfg.UploadDir, 0750); err != nil {
		return errors.New("cannot create upload directory: " + err.Error())
	}

	if cfg.DeleteWorkers < 1 {
		return errors.New("storage.delete_workers must be at least 1")
	}
	return nil
}

func verifyFolder(cfg *FolderSection) error {
	if cfg.Age <= 0 {
		return errors.New("folder.age must be positive")
	}
	if cfg.StorageLimit <= 0 {
		return errors.New("folder.storage_limit must be positive")
	}
	if cfg.KDFIterations < DefaultKDFIterations {
		return errors.New("folder.kdf_iterations must not be lowered below the default")
	}
	return nil
}

func verifyWS(cfg *WSSection) error {
	if cfg.Heartbeat <= 0 {
		return errors.New("ws.heartbeat must be positive")
	}
	if cfg.ReceiveTimeout <= cfg.Heartbeat {
		return errors.New("ws.receive_timeout must exceed ws.heartbeat")
	}
	return nil
}
