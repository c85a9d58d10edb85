// Package acerr defines the error kinds shared by every acebase-core package.
package acerr

import (
	"errors"
	"fmt"
)

// Base is embedded by every kernel error kind. It carries the failing
// operation name and, where applicable, a wrapped cause.
type Base struct {
	Op  string // Operation that failed, e.g. "PathInfo.child"
	Err error  // Underlying error, if any
}

// Error implements the error interface.
func (e Base) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	}
	return e.Op
}

// Unwrap returns the underlying error.
func (e Base) Unwrap() error {
	return e.Err
}

type (
	// PathRuleError is raised by PathInfo.child and friends when a key
	// violates the key-rules invariant (control chars, length, emptiness).
	PathRuleError struct {
		Base
		Key    string
		Reason string
	}

	// WildcardError is raised when an operation that refuses wildcard or
	// variable paths is issued against one.
	WildcardError struct {
		Base
		Path string
	}

	// UndefinedValueError is raised on an attempt to store undefined.
	UndefinedValueError struct {
		Base
		Path string
	}

	// StreamClosedError is raised by Subscribe on a stream whose
	// subscribers have all stopped.
	StreamClosedError struct {
		Base
	}

	// SubscriptionCanceledError carries the storage-side denial reason
	// delivered through an activation callback.
	SubscriptionCanceledError struct {
		Base
		Reason string
	}

	// ProxyDestroyedError is raised by any proxy operation issued after
	// destroy()/stop().
	ProxyDestroyedError struct {
		Base
	}

	// TransactionConflictError is raised for overlapping transaction
	// scopes, or a commit/rollback on an already-completed transaction.
	TransactionConflictError struct {
		Base
		Scope       string
		OtherScope  string
		AlreadyDone bool
	}

	// ProxyTypeViolationError is raised for a non-integer string index on
	// an array proxy target, or a write against a non-object target.
	ProxyTypeViolationError struct {
		Base
		Target string
	}

	// SerializerFormatError is raised for an unknown V2 type tag, a
	// missing V1 "val" property, or malformed ascii85 framing.
	SerializerFormatError struct {
		Base
	}

	// CyclicReferenceError is raised when cloneObject finds a cycle.
	CyclicReferenceError struct {
		Base
	}

	// InvalidCloneError is raised when cloneObject is handed a snapshot.
	InvalidCloneError struct {
		Base
	}

	// InvalidMappingError is raised by TypeMappings.Bind for a
	// non-function creator/serializer, or a string option naming a
	// missing prototype method.
	InvalidMappingError struct {
		Base
		Pattern string
	}

	// EventAlreadyOnceError is raised by repeat Emit/EmitOnce on an
	// already-latched event.
	EventAlreadyOnceError struct {
		Base
		Event string
	}
)

func (e *PathRuleError) Error() string {
	return fmt.Sprintf("%s: invalid key %q: %s", e.Op, e.Key, e.Reason)
}
func (e *PathRuleError) Unwrap() error { return e.Base.Err }

func (e *WildcardError) Error() string {
	return fmt.Sprintf("%s: wildcard path not allowed: %s", e.Op, e.Path)
}
func (e *WildcardError) Unwrap() error { return e.Base.Err }

func (e *UndefinedValueError) Error() string {
	return fmt.Sprintf("%s: undefined value at %s", e.Op, e.Path)
}
func (e *UndefinedValueError) Unwrap() error { return e.Base.Err }

func (e *StreamClosedError) Error() string { return fmt.Sprintf("%s: stream is closed", e.Op) }
func (e *StreamClosedError) Unwrap() error { return e.Base.Err }

func (e *SubscriptionCanceledError) Error() string {
	return fmt.Sprintf("%s: subscription canceled: %s", e.Op, e.Reason)
}
func (e *SubscriptionCanceledError) Unwrap() error { return e.Base.Err }

func (e *ProxyDestroyedError) Error() string { return fmt.Sprintf("%s: proxy destroyed", e.Op) }
func (e *ProxyDestroyedError) Unwrap() error { return e.Base.Err }

func (e *TransactionConflictError) Error() string {
	if e.AlreadyDone {
		return fmt.Sprintf("%s: transaction already completed", e.Op)
	}
	return fmt.Sprintf("%s: transaction scope %q conflicts with %q", e.Op, e.Scope, e.OtherScope)
}
func (e *TransactionConflictError) Unwrap() error { return e.Base.Err }

func (e *ProxyTypeViolationError) Error() string {
	return fmt.Sprintf("%s: type violation at %s", e.Op, e.Target)
}
func (e *ProxyTypeViolationError) Unwrap() error { return e.Base.Err }

func (e *SerializerFormatError) Error() string { return e.Base.Error() }
func (e *SerializerFormatError) Unwrap() error { return e.Base.Err }

func (e *CyclicReferenceError) Error() string { return fmt.Sprintf("%s: cyclic reference", e.Op) }
func (e *CyclicReferenceError) Unwrap() error { return e.Base.Err }

func (e *InvalidCloneError) Error() string {
	return fmt.Sprintf("%s: cannot clone a snapshot", e.Op)
}
func (e *InvalidCloneError) Unwrap() error { return e.Base.Err }

func (e *InvalidMappingError) Error() string {
	return fmt.Sprintf("%s: invalid mapping for pattern %q: %v", e.Op, e.Pattern, e.Base.Err)
}
func (e *InvalidMappingError) Unwrap() error { return e.Base.Err }

func (e *EventAlreadyOnceError) Error() string {
	return fmt.Sprintf("%s: event %q already fired once", e.Op, e.Event)
}
func (e *EventAlreadyOnceError) Unwrap() error { return e.Base.Err }

// Is* helpers, mirroring the teacher's IsValidationError/IsConcurrencyError pairs.

func IsPathRuleError(err error) bool {
	var e *PathRuleError
	return errors.As(err, &e)
}

func IsWildcardError(err error) bool {
	var e *WildcardError
	return errors.As(err, &e)
}

func IsUndefinedValueError(err error) bool {
	var e *UndefinedValueError
	return errors.As(err, &e)
}

func IsStreamClosedError(err error) bool {
	var e *StreamClosedError
	return errors.As(err, &e)
}

func IsSubscriptionCanceledError(err error) bool {
	var e *SubscriptionCanceledError
	return errors.As(err, &e)
}

func IsProxyDestroyedError(err error) bool {
	var e *ProxyDestroyedError
	return errors.As(err, &e)
}

func IsTransactionConflictError(err error) bool {
	var e *TransactionConflictError
	return errors.As(err, &e)
}

func IsProxyTypeViolationError(err error) bool {
	var e *ProxyTypeViolationError
	return errors.As(err, &e)
}

func IsSerializerFormatError(err error) bool {
	var e *SerializerFormatError
	return errors.As(err, &e)
}

func IsCyclicReferenceError(err error) bool {
	var e *CyclicReferenceError
	return errors.As(err, &e)
}

func IsInvalidCloneError(err error) bool {
	var e *InvalidCloneError
	return errors.As(err, &e)
}

func IsInvalidMappingError(err error) bool {
	var e *InvalidMappingError
	return errors.As(err, &e)
}

func IsEventAlreadyOnceError(err error) bool {
	var e *EventAlreadyOnceError
	return errors.As(err, &e)
}

// As* helpers, mirroring the teacher's AsValidationError/AsConcurrencyError
// pairs: unlike Is*, these hand back the concrete error so callers can
// read its fields.

func AsPathRuleError(err error) (*PathRuleError, bool) {
	var e *PathRuleError
	return e, errors.As(err, &e)
}

func AsWildcardError(err error) (*WildcardError, bool) {
	var e *WildcardError
	return e, errors.As(err, &e)
}

func AsUndefinedValueError(err error) (*UndefinedValueError, bool) {
	var e *UndefinedValueError
	return e, errors.As(err, &e)
}

func AsStreamClosedError(err error) (*StreamClosedError, bool) {
	var e *StreamClosedError
	return e, errors.As(err, &e)
}

func AsSubscriptionCanceledError(err error) (*SubscriptionCanceledError, bool) {
	var e *SubscriptionCanceledError
	return e, errors.As(err, &e)
}

func AsProxyDestroyedError(err error) (*ProxyDestroyedError, bool) {
	var e *ProxyDestroyedError
	return e, errors.As(err, &e)
}

func AsTransactionConflictError(err error) (*TransactionConflictError, bool) {
	var e *TransactionConflictError
	return e, errors.As(err, &e)
}

func AsProxyTypeViolationError(err error) (*ProxyTypeViolationError, bool) {
	var e *ProxyTypeViolationError
	return e, errors.As(err, &e)
}

func AsSerializerFormatError(err error) (*SerializerFormatError, bool) {
	var e *SerializerFormatError
	return e, errors.As(err, &e)
}

func AsCyclicReferenceError(err error) (*CyclicReferenceError, bool) {
	var e *CyclicReferenceError
	return e, errors.As(err, &e)
}

func AsInvalidCloneError(err error) (*InvalidCloneError, bool) {
	var e *InvalidCloneError
	return e, errors.As(err, &e)
}

func AsInvalidMappingError(err error) (*InvalidMappingError, bool) {
	var e *InvalidMappingError
	return e, errors.As(err, &e)
}

func AsEventAlreadyOnceError(err error) (*EventAlreadyOnceError, bool) {
	var e *EventAlreadyOnceError
	return e, errors.As(err, &e)
}
