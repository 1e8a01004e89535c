// Package domain defines the core domain models for Snapfold.
//
// Domain models are pure value objects and entities without any
// IO dependencies or framework coupling: the Folder entity, the
// Message record, the passcode fingerprint, and the structured
// DomainError type shared by every layer.
package domain
