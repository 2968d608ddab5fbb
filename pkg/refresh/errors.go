package refresh

import (
	"errors"
	"strings"

	"github.com/entrhq/cc-hotswap/pkg/store"
)

var (
	// ErrNavigationTimeout means the settings page did not load in time.
	ErrNavigationTimeout = errors.New("navigation timeout")

	// ErrNavigationFailed covers every other navigation error.
	ErrNavigationFailed = errors.New("navigation failed")

	// ErrNoSessionCookie means the cookie jar had no session cookie, so
	// extraction itself failed. It does not say the session is invalid.
	ErrNoSessionCookie = errors.New("no session cookie")

	// ErrSessionExpired means the API rejected the token, or could not be
	// reached. A human has to re-run the init flow.
	ErrSessionExpired = errors.New("session expired")

	// ErrPersistenceWrite means the session verified but an artifact could
	// not be written.
	ErrPersistenceWrite = errors.New("failed to persist session")

	// ErrLoginTimeout means no valid session appeared before the init
	// deadline. Nothing was written.
	ErrLoginTimeout = errors.New("timed out waiting for login")

	// ErrInterrupted means a step failed after shutdown began. It says
	// nothing about the session and is never recorded in the status file.
	ErrInterrupted = errors.New("interrupted by shutdown")

	// ErrNoSnapshot is the caller error of refreshing an account that was
	// never initialised.
	ErrNoSnapshot = store.ErrNoSnapshot
)

// Reason is the short, stable name of a refresh outcome.
type Reason string

// Refresh outcomes.
const (
	ReasonOK                Reason = "OK"
	ReasonNavigationTimeout Reason = "NavigationTimeout"
	ReasonNavigationFailed  Reason = "NavigationFailed"
	ReasonNoSessionCookie   Reason = "NoSessionCookie"
	ReasonSessionExpired    Reason = "SessionExpired"
	ReasonPersistenceWrite  Reason = "PersistenceWriteError"
	ReasonNoSnapshot        Reason = "NoSnapshot"
	ReasonInterrupted       Reason = "Interrupted"
	ReasonUnhandled         Reason = "UnhandledFatal"
)

// Classify maps an error from Refresh to its Reason. A nil error is OK.
func Classify(err error) Reason {
	switch {
	case err == nil:
		return ReasonOK
	case errors.Is(err, ErrInterrupted):
		return ReasonInterrupted
	case errors.Is(err, ErrNavigationTimeout):
		return ReasonNavigationTimeout
	case errors.Is(err, ErrNavigationFailed):
		return ReasonNavigationFailed
	case errors.Is(err, ErrNoSessionCookie):
		return ReasonNoSessionCookie
	case errors.Is(err, ErrSessionExpired):
		return ReasonSessionExpired
	case errors.Is(err, ErrPersistenceWrite):
		return ReasonPersistenceWrite
	case errors.Is(err, ErrNoSnapshot):
		return ReasonNoSnapshot
	default:
		return ReasonUnhandled
	}
}

// Describe renders the human-readable tail of a log line for err.
func Describe(err error, cookieName string) string {
	switch Classify(err) {
	case ReasonOK:
		return "OK"
	case ReasonNavigationTimeout:
		return "Navigation timed out"
	case ReasonNoSessionCookie:
		return "No " + cookieName + " cookie found"
	case ReasonSessionExpired:
		return "Session expired, needs re-init"
	case ReasonPersistenceWrite:
		return "Verified but not saved: " + firstLine(err.Error())
	case ReasonNoSnapshot:
		return "No saved state, run --init first"
	case ReasonInterrupted:
		return "Interrupted by shutdown"
	default:
		return "Error: " + firstLine(err.Error())
	}
}

// firstLine keeps only the first line of multi-line driver errors.
func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}
