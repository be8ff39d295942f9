// Package errors is a drop-in replacement for the standard errors package
// that adds categorised, component-tagged errors with structured context.
//
// Typical use:
//
//	return errors.New(err).
//		Component("alerting").
//		Category(errors.CategoryDatabase).
//		Context("alert_id", alert.ID).
//		Build()
package errors

import (
	stderrors "errors"
	"fmt"
	"maps"
	"sync"
)

// ErrorCategory groups errors for reporting and HTTP status mapping.
type ErrorCategory string

const (
	CategoryValidation    ErrorCategory = "validation"
	CategoryDatabase      ErrorCategory = "database"
	CategoryNetwork       ErrorCategory = "network"
	CategoryNotification  ErrorCategory = "notification"
	CategoryConfiguration ErrorCategory = "configuration"
	CategoryNotFound      ErrorCategory = "not-found"
	CategoryGeneric       ErrorCategory = "generic"
)

// EnhancedError wraps an error with its originating component, a category
// and free-form context values.
type EnhancedError struct {
	Err       error
	component string
	category  ErrorCategory
	context   map[string]any
}

func (e *EnhancedError) Error() string {
	if e.Err == nil {
		return string(e.category)
	}
	return e.Err.Error()
}

func (e *EnhancedError) Unwrap() error { return e.Err }

// GetComponent returns the component that produced the error.
func (e *EnhancedError) GetComponent() string { return e.component }

// GetCategory returns the error category.
func (e *EnhancedError) GetCategory() ErrorCategory { return e.category }

// GetContext returns a copy of the attached context.
func (e *EnhancedError) GetContext() map[string]any {
	return maps.Clone(e.context)
}

// ErrorBuilder accumulates metadata before producing an EnhancedError.
type ErrorBuilder struct {
	err       error
	component string
	category  ErrorCategory
	context   map[string]any
}

// New starts a builder around an existing error.
func New(err error) *ErrorBuilder {
	return &ErrorBuilder{err: err, category: CategoryGeneric}
}

// Newf starts a builder around a freshly formatted error.
func Newf(format string, args ...any) *ErrorBuilder {
	return New(fmt.Errorf(format, args...))
}

func (b *ErrorBuilder) Component(name string) *ErrorBuilder {
	b.component = name
	return b
}

func (b *ErrorBuilder) Category(category ErrorCategory) *ErrorBuilder {
	b.category = category
	return b
}

func (b *ErrorBuilder) Context(key string, value any) *ErrorBuilder {
	if b.context == nil {
		b.context = make(map[string]any)
	}
	b.context[key] = value
	return b
}

// Build finalises the error and hands it to the registered reporter.
func (b *ErrorBuilder) Build() *EnhancedError {
	ee := &EnhancedError{
		Err:       b.err,
		component: b.component,
		category:  b.category,
		context:   b.context,
	}
	report(ee)
	return ee
}

// Reporter receives every built error, e.g. to forward it to Sentry.
type Reporter func(*EnhancedError)

var (
	reporterMu sync.RWMutex
	reporter   Reporter
)

// SetReporter installs the global reporter. Passing nil disables reporting.
func SetReporter(r Reporter) {
	reporterMu.Lock()
	reporter = r
	reporterMu.Unlock()
}

func report(ee *EnhancedError) {
	reporterMu.RLock()
	r := reporter
	reporterMu.RUnlock()
	if r != nil {
		r(ee)
	}
}

// IsCategory reports whether any EnhancedError in err's chain has the category.
func IsCategory(err error, category ErrorCategory) bool {
	var ee *EnhancedError
	for err != nil {
		if !stderrors.As(err, &ee) {
			return false
		}
		if ee.category == category {
			return true
		}
		err = ee.Err
	}
	return false
}

// Standard library passthroughs.

func Is(err, target error) bool { return stderrors.Is(err, target) }
func As(err error, target any) bool { return stderrors.As(err, target) }
func Join(errs ...error) error    { return stderrors.Join(errs...) }
func Unwrap(err error) error      { return stderrors.Unwrap(err) }

// NewStd creates a plain sentinel error, equivalent to the standard errors.New.
func NewStd(text string) error { return stderrors.New(text) }
