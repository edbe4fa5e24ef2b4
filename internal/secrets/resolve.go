// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sigil Contributors

package secrets

import (
	"errors"
	"strings"

	chatboterr "github.com/arjunrreddy/rnblawgroupchatbot/pkg/errors"
	"github.com/spf13/viper"
)

const keyringScheme = "keyring://"

// SecretKeys are the config keys that may hold keyring:// references.
var SecretKeys = []string{"embedding.api_key", "answer.api_key", "storage.postgres_url"}

// IsKeyringURI reports whether value uses the keyring:// URI scheme.
func IsKeyringURI(value string) bool {
	return strings.HasPrefix(value, keyringScheme)
}

// ParseKeyringURI splits keyring://service/key into its parts.
func ParseKeyringURI(uri string) (service, key string, err error) {
	rest, ok := strings.CutPrefix(uri, keyringScheme)
	if !ok {
		return "", "", chatboterr.Errorf(chatboterr.CodeSecretInvalidInput, "not a keyring URI: %q", uri)
	}

	service, key, _ = strings.Cut(rest, "/")
	if service == "" || key == "" {
		return "", "", chatboterr.Errorf(chatboterr.CodeSecretInvalidInput,
			"invalid keyring URI %q: expected keyring://service/key", uri)
	}
	return service, key, nil
}

// Resolve returns the secret behind a keyring:// URI, or value unchanged when
// it is not a keyring URI.
func Resolve(store Store, value string) (string, error) {
	if !IsKeyringURI(value) {
		return value, nil
	}

	service, key, err := ParseKeyringURI(value)
	if err != nil {
		return "", err
	}

	secret, err := store.Retrieve(service, key)
	if err != nil {
		return "", chatboterr.Wrapf(err, chatboterr.CodeSecretResolveFailure, "resolving keyring URI %q", value)
	}
	return secret, nil
}

// ResolveViper replaces keyring:// references held under keys in v with the
// secrets they point to. Every unresolved key is reported in the returned
// error; resolved keys are applied even when others fail.
func ResolveViper(v *viper.Viper, store Store, keys ...string) error {
	var errs []error
	for _, key := range keys {
		val := v.GetString(key)
		if !IsKeyringURI(val) {
			continue
		}

		resolved, err := Resolve(store, val)
		if err != nil {
			errs = append(errs, chatboterr.Wrapf(err, chatboterr.CodeSecretResolveFailure, "config key %s (%s)", key, val))
			continue
		}
		v.Set(key, resolved)
	}
	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}
