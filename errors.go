package tokenauth

import (
	goerrors "github.com/goliatone/go-errors"
)

// ErrorKind is the closed set of authentication and authorization failures.
// Every failure this package produces carries exactly one kind; the mapping
// to HTTP status, user-facing code, and message lives in one place (describe)
// so the taxonomy stays exhaustive.
type ErrorKind uint8

const (
	// KindInvalidToken covers signature failures, malformed tokens, and
	// refresh binding mismatches. The causes are never distinguished to the
	// caller.
	KindInvalidToken ErrorKind = iota + 1
	// KindExpired means the signature checked out but the current time is
	// outside the validity window plus leeway.
	KindExpired
	KindAccountLocked
	KindAccountExpired
	KindCredentialsExpired
	KindAccountDisabled
	// KindUnauthenticated is the catch-all 401: no token, no matching
	// principal, or an unclassified failure (fail closed).
	KindUnauthenticated
	// KindForbidden is an authorization denial after successful
	// authentication.
	KindForbidden
	// KindServiceUnavailable means token issuance failed for reasons
	// unrelated to the caller's credentials.
	KindServiceUnavailable
)

// Message display hints carried on the JSON error body.
const (
	MessageTypeAlert  = "ALERT"
	MessageTypeNotify = "NOTIFY"
	MessageTypeToast  = "TOAST"
	MessageTypeNone   = "NONE"
)

type kindDescriptor struct {
	status   int
	errCode  int
	textCode string
	message  string
	category goerrors.Category
}

// describe is the single tag -> (status, code, message) mapping for the
// failure taxonomy.
func (k ErrorKind) describe() kindDescriptor {
	switch k {
	case KindInvalidToken:
		return kindDescriptor{401, 40101, "invalid_token", "invalid token", goerrors.CategoryAuth}
	case KindExpired:
		return kindDescriptor{401, 40102, "token_expired", "token expired", goerrors.CategoryAuth}
	case KindAccountLocked:
		return kindDescriptor{401, 40103, "account_locked", "account is locked", goerrors.CategoryAuth}
	case KindAccountExpired:
		return kindDescriptor{401, 40104, "account_expired", "account has expired", goerrors.CategoryAuth}
	case KindCredentialsExpired:
		return kindDescriptor{401, 40105, "credentials_expired", "credentials have expired", goerrors.CategoryAuth}
	case KindAccountDisabled:
		return kindDescriptor{401, 40106, "account_disabled", "account is disabled", goerrors.CategoryAuth}
	case KindForbidden:
		return kindDescriptor{403, 403, "forbidden", "access denied", goerrors.CategoryAuthz}
	case KindServiceUnavailable:
		return kindDescriptor{503, 503, "service_unavailable", "authentication service unavailable", goerrors.CategoryInternal}
	default:
		return kindDescriptor{401, 401, "unauthenticated", "authentication required", goerrors.CategoryAuth}
	}
}

// Status returns the HTTP status for the kind.
func (k ErrorKind) Status() int { return k.describe().status }

// ErrCode returns the stable user-facing error code for the kind.
func (k ErrorKind) ErrCode() int { return k.describe().errCode }

// TextCode returns the machine readable text code for the kind.
func (k ErrorKind) TextCode() string { return k.describe().textCode }

// Message returns the user-facing message for the kind.
func (k ErrorKind) Message() string { return k.describe().message }

// AuthError is the failure carrier for the whole package. It optionally
// holds a partially built Authentication so request metadata (device, IP)
// stays available for audit even when authentication failed.
type AuthError struct {
	Kind ErrorKind
	// Authentication, when non-nil, is the context constructed before the
	// failure was detected (e.g. a disabled account).
	Authentication *Authentication
	// MessageType is the optional display hint rendered on the JSON body.
	MessageType string
	// Data is optional structured payload for the JSON body.
	Data any

	cause error
}

func (e *AuthError) Error() string {
	d := e.Kind.describe()
	return d.message
}

func (e *AuthError) Unwrap() error { return e.cause }

// WithAuthentication attaches a partially built Authentication and returns
// the error for chaining.
func (e *AuthError) WithAuthentication(auth *Authentication) *AuthError {
	e.Authentication = auth
	return e
}

// Rich converts the failure into the shared rich error vocabulary so callers
// that speak go-errors can branch on category and text code.
func (e *AuthError) Rich() *goerrors.Error {
	d := e.Kind.describe()
	rich := goerrors.New(d.message, d.category).
		WithCode(d.status).
		WithTextCode(d.textCode)
	if e.cause != nil {
		rich = goerrors.Wrap(e.cause, d.category, d.message).
			WithCode(d.status).
			WithTextCode(d.textCode)
	}
	return rich
}

// NewAuthError creates a bare failure of the given kind.
func NewAuthError(kind ErrorKind) *AuthError {
	return &AuthError{Kind: kind}
}

// WrapAuthError creates a failure of the given kind wrapping cause. The
// cause is kept for logs only; it never reaches the wire.
func WrapAuthError(kind ErrorKind, cause error) *AuthError {
	return &AuthError{Kind: kind, cause: cause}
}

// AsAuthError extracts an *AuthError from err if one is in the chain.
func AsAuthError(err error) (*AuthError, bool) {
	var ae *AuthError
	if goerrors.As(err, &ae) {
		return ae, true
	}
	return nil, false
}

// Classify normalizes any error into an AuthError. Unclassified failures
// become KindUnauthenticated: this layer fails closed, never open.
func Classify(err error) *AuthError {
	if err == nil {
		return nil
	}
	if ae, ok := AsAuthError(err); ok {
		return ae
	}
	return WrapAuthError(KindUnauthenticated, err)
}
