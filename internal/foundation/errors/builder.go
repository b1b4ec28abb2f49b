package errors

import "fmt"

// ErrorBuilder provides a fluent API for creating ClassifiedError instances.
type ErrorBuilder struct {
	category ErrorCategory
	severity ErrorSeverity
	retry    RetryStrategy
	message  string
	cause    error
	context  ErrorContext
}

// NewError creates a new ErrorBuilder with the specified category and message.
func NewError(category ErrorCategory, message string) *ErrorBuilder {
	return &ErrorBuilder{
		category: category,
		severity: SeverityError,
		retry:    RetryNever,
		message:  message,
		context:  make(ErrorContext),
	}
}

// WrapError creates a new ErrorBuilder that wraps an existing error.
func WrapError(err error, category ErrorCategory, message string) *ErrorBuilder {
	b := NewError(category, message)
	b.cause = err
	return b
}

func (b *ErrorBuilder) WithSeverity(severity ErrorSeverity) *ErrorBuilder {
	b.severity = severity
	return b
}

func (b *ErrorBuilder) WithRetry(strategy RetryStrategy) *ErrorBuilder {
	b.retry = strategy
	return b
}

func (b *ErrorBuilder) WithContext(key string, value any) *ErrorBuilder {
	b.context = b.context.Set(key, value)
	return b
}

func (b *ErrorBuilder) Fatal() *ErrorBuilder { return b.WithSeverity(SeverityFatal) }

func (b *ErrorBuilder) Warning() *ErrorBuilder { return b.WithSeverity(SeverityWarning) }

func (b *ErrorBuilder) Retryable() *ErrorBuilder { return b.WithRetry(RetryBackoff) }

func (b *ErrorBuilder) UserAction() *ErrorBuilder { return b.WithRetry(RetryUserAction) }

// Build creates the final ClassifiedError.
func (b *ErrorBuilder) Build() *ClassifiedError {
	return &ClassifiedError{
		category: b.category,
		severity: b.severity,
		retry:    b.retry,
		message:  b.message,
		cause:    b.cause,
		context:  b.context,
	}
}

// ConfigError creates a configuration error.
func ConfigError(message string) *ErrorBuilder {
	return NewError(CategoryConfig, message).Fatal().UserAction()
}

// ValidationError creates a validation error.
func ValidationError(message string) *ErrorBuilder {
	return NewError(CategoryValidation, message).Fatal()
}

// FileSystemError creates a filesystem error.
func FileSystemError(message string) *ErrorBuilder {
	return NewError(CategoryFileSystem, message).Retryable()
}

// InternalError creates an internal error.
func InternalError(message string) *ErrorBuilder {
	return NewError(CategoryInternal, message).Fatal()
}

// PortUnavailable reports a dev server port that cannot be bound. It is raised
// before any build work starts and aborts the process.
func PortUnavailable(port int, cause error) *ClassifiedError {
	return WrapError(cause, CategoryNetwork, fmt.Sprintf("port %d is already in use", port)).
		Fatal().
		UserAction().
		WithContext("port", port).
		WithContext("hint", fmt.Sprintf("kill the process using: lsof -ti:%d | xargs kill", port)).
		Build()
}

// PipelineFailure wraps a content pipeline failure with the source config path.
// It fails the build that raised it; a running dev server keeps serving.
func PipelineFailure(configPath string, cause error) *ClassifiedError {
	return WrapError(cause, CategoryPipeline, fmt.Sprintf("couldn't build from configuration %s", configPath)).
		WithContext("config", configPath).
		Build()
}

// CSSGenerationFailed is returned once every critical CSS attempt has failed.
func CSSGenerationFailed(attempts int, cause error) *ClassifiedError {
	return WrapError(cause, CategoryCriticalCSS, fmt.Sprintf("critical CSS generation failed after %d attempts", attempts)).
		WithContext("attempts", attempts).
		Build()
}

// HeadReorderViolation signals that head reordering added or lost elements.
// It indicates a defect and must never be downgraded to a warning.
func HeadReorderViolation(detail string) *ClassifiedError {
	return NewError(CategoryHead, detail).Fatal().Build()
}

// FileProcessing reports a single file that could not be post-processed.
func FileProcessing(path string, cause error) *ClassifiedError {
	return WrapError(cause, CategoryFileSystem, "could not process file").
		Warning().
		WithContext("path", path).
		Build()
}
