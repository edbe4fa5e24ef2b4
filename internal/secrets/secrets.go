// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sigil Contributors

package secrets

// ServiceName is the keyring service under which chatbot secrets live.
const ServiceName = "chatbot"

// Store provides secure secret storage operations.
type Store interface {
	// Store saves value under service/key, replacing any existing value.
	Store(service, key, value string) error

	// Retrieve returns the value for service/key, or a CodeSecretNotFound error.
	Retrieve(service, key string) (string, error)

	// Delete removes service/key, or returns a CodeSecretNotFound error.
	Delete(service, key string) error

	// List returns the key names stored under service.
	List(service string) ([]string, error)
}
