package errx

import (
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// Kind classifies where in the audit flow an error originated.
type Kind string

const (
	KindConfig     Kind = "config"
	KindIngestion  Kind = "ingestion"
	KindRetrieval  Kind = "retrieval"
	KindGeneration Kind = "generation"
	KindStorage    Kind = "storage"
	KindWorkflow   Kind = "workflow"
)

const (
	// IngestionErrorMessage is reported when the knowledge store cannot be built.
	IngestionErrorMessage = "contract ingestion failed"
	// RetrievalErrorMessage describes similarity query failures.
	RetrievalErrorMessage = "contract retrieval failed"
	// GenerationErrorMessage describes model backend failures.
	GenerationErrorMessage = "model generation failed"
	// RedisErrorMessage describes Redis related failures.
	RedisErrorMessage = "redis operation failed"
	// StorageErrorMessage describes SQLite related failures.
	StorageErrorMessage = "knowledge storage operation failed"
	// ConfigErrorMessage describes invalid configuration.
	ConfigErrorMessage = "invalid configuration"
)

// AppError wraps an underlying error with a kind and a safe message.
type AppError struct {
	Err     error
	Kind    Kind
	Message string
}

// Error implements the error interface.
func (e *AppError) Error() string {
	if e.Err == nil {
		return e.Message
	}
	return fmt.Sprintf("%s: %v", e.Message, e.Err)
}

// Unwrap exposes the underlying error for errors.Is / errors.As support.
func (e *AppError) Unwrap() error {
	return e.Err
}

// New creates a new AppError with the provided information.
func New(err error, kind Kind, message string) *AppError {
	return &AppError{
		Err:     err,
		Kind:    kind,
		Message: message,
	}
}

// Is reports whether the target matches the underlying error or the AppError itself.
func (e *AppError) Is(target error) bool {
	return errors.Is(e.Err, target)
}

// As allows casting to AppError or the wrapped error in a chain.
func (e *AppError) As(target any) bool {
	if errors.As(e.Err, target) {
		return true
	}
	if t, ok := target.(**AppError); ok {
		*t = e
		return true
	}
	return false
}

// KindOf returns the kind of the first AppError in the chain, or "" when there is none.
func KindOf(err error) Kind {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	return ""
}

// Ingestion wraps a failure raised while building the knowledge store.
func Ingestion(err error) error {
	if err == nil {
		return nil
	}
	return New(err, KindIngestion, IngestionErrorMessage)
}

// Retrieval wraps a failure raised by a similarity query.
func Retrieval(err error) error {
	if err == nil {
		return nil
	}
	return New(err, KindRetrieval, RetrievalErrorMessage)
}

// Generation wraps a failure raised by the model backend.
func Generation(err error) error {
	if err == nil {
		return nil
	}
	return New(err, KindGeneration, GenerationErrorMessage)
}

// Config wraps a configuration validation failure.
func Config(err error) error {
	if err == nil {
		return nil
	}
	return New(err, KindConfig, ConfigErrorMessage)
}

// WrapRedis wraps a Redis error with a consistent kind and message.
func WrapRedis(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, redis.Nil) {
		return New(err, KindStorage, "redis key not found")
	}
	return New(err, KindStorage, RedisErrorMessage)
}

// WrapStorage wraps a SQL storage error.
func WrapStorage(err error) error {
	if err == nil {
		return nil
	}
	return New(err, KindStorage, StorageErrorMessage)
}
