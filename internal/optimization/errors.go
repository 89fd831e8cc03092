package optimization

import "fmt"

// Kind identifies which rule an optimization error violated.
type Kind int

const (
	// KindUnknown is the zero Kind used by errors built without a rule.
	KindUnknown Kind = iota
	// KindInvalidRange is reported when the interval upper bound is below the lower bound.
	KindInvalidRange
	// KindInvalidStep is reported when a step size is not a fractional power of ten.
	KindInvalidStep
	// KindBitLengthOutOfRange is reported when a bit-length falls outside [1, 31].
	KindBitLengthOutOfRange
	// KindUnrepresentableRange is reported when a bit-length yields a step above 1.0.
	KindUnrepresentableRange
	// KindTooManySolutions is reported when a derived bit-length does not fit the encoding.
	KindTooManySolutions
	// KindNaNScore is reported when a neighbor's score cannot be compared.
	KindNaNScore
	// KindInvalidBinary is reported when a binary string cannot be parsed.
	KindInvalidBinary
)

var kindNames = map[Kind]string{
	KindUnknown:              "unknown",
	KindInvalidRange:         "invalid range",
	KindInvalidStep:          "step size must be a fractional power of ten",
	KindBitLengthOutOfRange:  "bit-length out of range",
	KindUnrepresentableRange: "range cannot be represented with this many bits",
	KindTooManySolutions:     "too many solutions",
	KindNaNScore:             "non-comparable score",
	KindInvalidBinary:        "invalid binary string",
}

// String returns the rule description for the kind.
func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// Sentinel errors for use with errors.Is. Two *Error values match when their
// kinds are equal, so a detailed error built by a constructor matches the
// corresponding sentinel below.
var (
	ErrInvalidRange         = &Error{Kind: KindInvalidRange, Message: KindInvalidRange.String()}
	ErrInvalidStep          = &Error{Kind: KindInvalidStep, Message: KindInvalidStep.String()}
	ErrBitLengthOutOfRange  = &Error{Kind: KindBitLengthOutOfRange, Message: KindBitLengthOutOfRange.String()}
	ErrUnrepresentableRange = &Error{Kind: KindUnrepresentableRange, Message: KindUnrepresentableRange.String()}
	ErrTooManySolutions     = &Error{Kind: KindTooManySolutions, Message: KindTooManySolutions.String()}
	ErrNaNScore             = &Error{Kind: KindNaNScore, Message: KindNaNScore.String()}
	ErrInvalidBinary        = &Error{Kind: KindInvalidBinary, Message: KindInvalidBinary.String()}
)

// Error represents an optimization error with context
// that can be wrapped with additional information.
type Error struct {
	// Kind is the rule the error reports.
	Kind Kind
	// Message describes the error that occurred.
	Message string
	// Op is the operation that caused the error.
	Op string
	// Component is the component where the error occurred.
	Component string
	// Err is the underlying error that triggered this one, if any.
	Err error
}

// Error returns the string representation of the error.
func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	var prefix string
	if e.Component != "" && e.Op != "" {
		prefix = fmt.Sprintf("%s: %s", e.Component, e.Op)
	} else if e.Component != "" {
		prefix = e.Component
	} else if e.Op != "" {
		prefix = e.Op
	}

	if e.Err != nil {
		if prefix != "" {
			return fmt.Sprintf("%s: %s: %v", prefix, e.Message, e.Err)
		}
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}

	if prefix != "" {
		return fmt.Sprintf("%s: %s", prefix, e.Message)
	}
	return e.Message
}

// Unwrap returns the underlying error, if any.
func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// Is reports whether target is an *Error of the same, known kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok || e == nil || t == nil {
		return false
	}
	return e.Kind != KindUnknown && e.Kind == t.Kind
}

// WithOperation adds operation context to the error.
func (e *Error) WithOperation(op string) *Error {
	e.Op = op
	return e
}

// WithComponent adds component context to the error.
func (e *Error) WithComponent(component string) *Error {
	e.Component = component
	return e
}

// NewError creates a new optimization error of the given kind.
func NewError(kind Kind, message string) *Error {
	return &Error{
		Kind:    kind,
		Message: message,
	}
}

// NewErrorf creates a new optimization error of the given kind with a formatted message.
func NewErrorf(kind Kind, format string, args ...interface{}) *Error {
	return &Error{
		Kind:    kind,
		Message: fmt.Sprintf(format, args...),
	}
}

// WrapError wraps an existing error with additional context.
// If err is nil, WrapError returns nil.
func WrapError(err error, kind Kind, message string) *Error {
	if err == nil {
		return nil
	}
	return &Error{
		Kind:    kind,
		Message: message,
		Err:     err,
	}
}

// IsOptimizationError checks if an error is of type Error.
// If the error is an optimization error, it returns the error and true.
// Otherwise, it returns nil and false.
func IsOptimizationError(err error) (*Error, bool) {
	if err == nil {
		return nil, false
	}
	if e, ok := err.(*Error); ok {
		return e, true
	}
	return nil, false
}

// KindOf returns the kind of the first *Error in err's chain, or KindUnknown.
func KindOf(err error) Kind {
	for err != nil {
		if e, ok := err.(*Error); ok {
			return e.Kind
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return KindUnknown
		}
		err = u.Unwrap()
	}
	return KindUnknown
}
