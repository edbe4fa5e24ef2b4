// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sigil Contributors

package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/samber/oops"
)

// Code is the machine-readable identifier for an error.
type Code string

const (
	CodeIndexBuildEmptyCorpus       Code = "index.build.empty_corpus"
	CodeIndexBuildConflict          Code = "index.build.conflict"
	CodeIndexBuildInvalidInput      Code = "index.build.invalid_input"
	CodeIndexLoadNotFound           Code = "index.load.not_found"
	CodeIndexCorpusMismatch         Code = "index.corpus_mismatch.not_found"
	CodeIndexSearchInvalidInput     Code = "index.search.invalid_input"
	CodeIndexSearchDimensionInvalid Code = "index.search.dimension_mismatch.invalid_input"

	CodeStoreDatabaseFailure    Code = "store.database.failure"
	CodeStoreFilesystemFailure  Code = "store.filesystem.failure"
	CodeStoreBackendUnsupported Code = "store.backend.unsupported"
	CodeStoreArtifactInvalid    Code = "store.artifact.invalid_format"

	CodeEmbeddingRequestInvalid  Code = "embedding.request.invalid"
	CodeEmbeddingRequestTimeout  Code = "embedding.request.timeout"
	CodeEmbeddingResponseInvalid Code = "embedding.upstream_response.failure"
	CodeEmbeddingUpstreamFailure Code = "embedding.upstream.failure"

	CodeAnswerRequestInvalid  Code = "answer.request.invalid"
	CodeAnswerResponseInvalid Code = "answer.upstream_response.failure"
	CodeAnswerUpstreamFailure Code = "answer.upstream.failure"

	CodeProviderNotFound       Code = "provider.registry.not_found"
	CodeProviderConfigInvalid  Code = "provider.config.invalid"
	CodeProviderKeyInvalid     Code = "provider.key.invalid"
	CodeProviderKeyCheckFailed Code = "provider.key_check.failure"

	CodeTranscriptReadFailure  Code = "transcript.read.failure"
	CodeTranscriptParseInvalid Code = "transcript.parse.invalid_format"
	CodeTranscriptInvalidInput Code = "transcript.validate.invalid_input"
	CodeTranscriptWriteFailure Code = "transcript.write.failure"

	CodeConfigLoadReadFailure      Code = "config.load.read.failure"
	CodeConfigParseInvalidFormat   Code = "config.parse.invalid_format"
	CodeConfigValidateInvalidValue Code = "config.validate.invalid_value"
	CodeConfigAlreadyExists        Code = "config.write.conflict"

	CodeSecretInvalidInput   Code = "secret.request.invalid_input"
	CodeSecretNotFound       Code = "secret.lookup.not_found"
	CodeSecretStoreFailure   Code = "secret.store.failure"
	CodeSecretDeleteFailure  Code = "secret.delete.failure"
	CodeSecretListFailure    Code = "secret.list.failure"
	CodeSecretResolveFailure Code = "secret.resolve.failure"

	CodeServerRequestInvalid  Code = "server.request.invalid"
	CodeServerRateLimited     Code = "server.rate_limit.exceeded"
	CodeServerInternalFailure Code = "server.internal.failure"
	CodeServerConfigInvalid   Code = "server.config.invalid"
	CodeServerStartFailure    Code = "server.start.failure"
	CodeServerShutdownFailure Code = "server.shutdown.failure"

	CodeCLIServerNotRunning Code = "cli.server.not_running"
	CodeCLIRequestFailure   Code = "cli.request.failure"
	CodeCLIResponseInvalid  Code = "cli.response.invalid"
	CodeCLISetupFailure     Code = "cli.setup.failure"
	CodeCLIInputInvalid     Code = "cli.input.invalid"
)

// Attr is a structured key/value context attached to an error.
type Attr struct {
	Key   string
	Value any
}

// Field creates a structured error field.
func Field(key string, value any) Attr {
	return Attr{Key: key, Value: value}
}

func FieldBuildID(value string) Attr {
	return Field("build_id", value)
}

func FieldOrdinal(value int) Attr {
	return Field("ordinal", value)
}

func FieldProvider(value string) Attr {
	return Field("provider", value)
}

func FieldPath(value string) Attr {
	return Field("path", value)
}

func New(code Code, msg string, fields ...Attr) error {
	return oops.Code(code).With(flatten(fields)...).New(msg)
}

func Errorf(code Code, format string, args ...any) error {
	return oops.Code(code).Errorf(format, args...)
}

func Wrap(err error, code Code, msg string, fields ...Attr) error {
	if err == nil {
		return nil
	}

	return oops.Code(code).With(flatten(fields)...).Wrapf(err, "%s", msg)
}

func Wrapf(err error, code Code, format string, args ...any) error {
	if err == nil {
		return nil
	}

	return oops.Code(code).Wrapf(err, format, args...)
}

// With adds structured fields to an existing error chain.
func With(err error, fields ...Attr) error {
	if err == nil {
		return nil
	}

	code := CodeOf(err)
	if code == "" {
		code = CodeServerInternalFailure
	}

	return oops.Code(code).With(flatten(fields)...).Wrap(err)
}

// CodeOf returns the innermost code in the chain, or "" for uncoded errors.
func CodeOf(err error) Code {
	if err == nil {
		return ""
	}

	oopsErr, ok := oops.AsOops(err)
	if !ok {
		return ""
	}

	if code, ok := oopsErr.Code().(Code); ok {
		return code
	}

	if code, ok := oopsErr.Code().(string); ok {
		return Code(code)
	}

	return Code(fmt.Sprintf("%v", oopsErr.Code()))
}

func FieldsOf(err error) map[string]any {
	if err == nil {
		return nil
	}

	oopsErr, ok := oops.AsOops(err)
	if !ok {
		return nil
	}

	return oopsErr.Context()
}

func HasCode(err error, code Code) bool {
	if err == nil {
		return false
	}
	return CodeOf(err) == code
}

// IsNotFound also matches a corpus mismatch, which callers treat as a
// missing index.
func IsNotFound(err error) bool {
	return reason(CodeOf(err)) == "not_found"
}

func IsConflict(err error) bool {
	return reason(CodeOf(err)) == "conflict"
}

func IsInvalidInput(err error) bool {
	r := reason(CodeOf(err))
	return r == "invalid" || r == "invalid_input" || r == "invalid_value" || r == "invalid_format"
}

func IsTimeout(err error) bool {
	return reason(CodeOf(err)) == "timeout"
}

func IsRateLimited(err error) bool {
	return reason(CodeOf(err)) == "exceeded"
}

func IsUpstreamFailure(err error) bool {
	code := CodeOf(err)
	return strings.Contains(string(code), "upstream") && reason(code) == "failure"
}

func IsEmptyCorpus(err error) bool {
	return HasCode(err, CodeIndexBuildEmptyCorpus)
}

// IsEmbeddingFailure reports whether err came from an embedding provider.
func IsEmbeddingFailure(err error) bool {
	return strings.HasPrefix(string(CodeOf(err)), "embedding.")
}

func HTTPStatus(err error) int {
	switch {
	case IsNotFound(err):
		return http.StatusNotFound
	case IsConflict(err):
		return http.StatusConflict
	case IsEmptyCorpus(err):
		return http.StatusUnprocessableEntity
	case IsInvalidInput(err):
		return http.StatusBadRequest
	case IsRateLimited(err):
		return http.StatusTooManyRequests
	case IsTimeout(err):
		return http.StatusGatewayTimeout
	case IsUpstreamFailure(err):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func Join(errs ...error) error {
	return oops.Code(CodeServerInternalFailure).Wrap(stderrors.Join(errs...))
}

func flatten(fields []Attr) []any {
	pairs := make([]any, 0, len(fields)*2)
	for _, field := range fields {
		if field.Key == "" {
			continue
		}
		pairs = append(pairs, field.Key, field.Value)
	}
	return pairs
}

func reason(code Code) string {
	if code == "" {
		return ""
	}

	raw := string(code)
	idx := strings.LastIndex(raw, ".")
	if idx == -1 || idx == len(raw)-1 {
		return raw
	}
	return raw[idx+1:]
}
