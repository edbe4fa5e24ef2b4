// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sigil Contributors

package secrets

import (
	"encoding/json"
	"errors"
	"slices"

	chatboterr "github.com/arjunrreddy/rnblawgroupchatbot/pkg/errors"
	"github.com/zalando/go-keyring"
)

// indexKey names the entry holding the JSON list of keys for a service.
// go-keyring cannot enumerate entries, so List reads this instead.
const indexKey = ".index"

// KeyringStore implements Store on the OS keyring (Keychain, Secret Service,
// Windows Credential Manager) via zalando/go-keyring.
type KeyringStore struct{}

var _ Store = (*KeyringStore)(nil)

// NewKeyringStore returns a KeyringStore.
func NewKeyringStore() *KeyringStore {
	return &KeyringStore{}
}

func (s *KeyringStore) Store(service, key, value string) error {
	if err := checkArgs("store", service, key); err != nil {
		return err
	}

	if err := keyring.Set(service, key, value); err != nil {
		return chatboterr.Wrapf(err, chatboterr.CodeSecretStoreFailure, "storing secret %s/%s", service, key)
	}

	return s.updateIndex(service, func(keys []string) []string {
		if slices.Contains(keys, key) {
			return keys
		}
		return append(keys, key)
	})
}

func (s *KeyringStore) Retrieve(service, key string) (string, error) {
	if err := checkArgs("retrieve", service, key); err != nil {
		return "", err
	}

	val, err := keyring.Get(service, key)
	if errors.Is(err, keyring.ErrNotFound) {
		return "", chatboterr.Errorf(chatboterr.CodeSecretNotFound, "secret %s/%s not found", service, key)
	}
	if err != nil {
		return "", chatboterr.Wrapf(err, chatboterr.CodeSecretStoreFailure, "retrieving secret %s/%s", service, key)
	}
	return val, nil
}

func (s *KeyringStore) Delete(service, key string) error {
	if err := checkArgs("delete", service, key); err != nil {
		return err
	}

	err := keyring.Delete(service, key)
	if errors.Is(err, keyring.ErrNotFound) {
		return chatboterr.Errorf(chatboterr.CodeSecretNotFound, "secret %s/%s not found", service, key)
	}
	if err != nil {
		return chatboterr.Wrapf(err, chatboterr.CodeSecretDeleteFailure, "deleting secret %s/%s", service, key)
	}

	return s.updateIndex(service, func(keys []string) []string {
		return slices.DeleteFunc(keys, func(k string) bool { return k == key })
	})
}

func (s *KeyringStore) List(service string) ([]string, error) {
	raw, err := keyring.Get(service, indexKey)
	if errors.Is(err, keyring.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, chatboterr.Wrapf(err, chatboterr.CodeSecretListFailure, "loading key index for %s", service)
	}

	var keys []string
	if err := json.Unmarshal([]byte(raw), &keys); err != nil {
		return nil, chatboterr.Wrapf(err, chatboterr.CodeSecretListFailure, "decoding key index for %s", service)
	}
	return keys, nil
}

func (s *KeyringStore) updateIndex(service string, fn func([]string) []string) error {
	keys, err := s.List(service)
	if err != nil {
		return err
	}
	keys = fn(keys)

	if len(keys) == 0 {
		if err := keyring.Delete(service, indexKey); err != nil && !errors.Is(err, keyring.ErrNotFound) {
			return chatboterr.Wrapf(err, chatboterr.CodeSecretListFailure, "clearing key index for %s", service)
		}
		return nil
	}

	data, err := json.Marshal(keys)
	if err != nil {
		return chatboterr.Wrapf(err, chatboterr.CodeSecretListFailure, "encoding key index for %s", service)
	}
	if err := keyring.Set(service, indexKey, string(data)); err != nil {
		return chatboterr.Wrapf(err, chatboterr.CodeSecretListFailure, "saving key index for %s", service)
	}
	return nil
}

func checkArgs(op, service, key string) error {
	if service == "" {
		return chatboterr.Errorf(chatboterr.CodeSecretInvalidInput, "secret %s: service must not be empty", op)
	}
	if key == "" || key == indexKey {
		return chatboterr.Errorf(chatboterr.CodeSecretInvalidInput, "secret %s: invalid key %q", op, key)
	}
	return nil
}
