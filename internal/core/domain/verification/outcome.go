package verification

import "errors"

// Outcome is a success-shaped result of redeeming a token.
// Failure outcomes (not found, expired) are reported as errors.
type Outcome string

const (
	OutcomeVerified        Outcome = "verified"
	OutcomeAlreadyVerified Outcome = "already_verified"
)

func (o Outcome) String() string {
	return string(o)
}

// RedeemResult is returned for the success-shaped outcomes.
type RedeemResult struct {
	Outcome Outcome `json:"outcome"`
	UserID  string  `json:"userId"`
}

var (
	// ErrInvalidInput means a required field (token, userId, email) was empty.
	ErrInvalidInput = errors.New("invalid input")
	// ErrTokenNotFound covers both never-issued and already-consumed tokens.
	ErrTokenNotFound = errors.New("verification token not found")
	// ErrTokenExpired means the token exists but is past ExpiresAt.
	ErrTokenExpired = errors.New("verification token expired")
	// ErrTokenExists is returned by stores when a create would overwrite a token.
	ErrTokenExists = errors.New("verification token already exists")
	// ErrUserNotFound is returned by user stores for unknown ids.
	ErrUserNotFound = errors.New("user not found")
	// ErrStorage marks failures of the token or user store.
	ErrStorage = errors.New("storage error")
)

// OutcomeLabel maps a redeem result or error to a metrics label.
func OutcomeLabel(res *RedeemResult, err error) string {
	switch {
	case err == nil && res != nil:
		return res.Outcome.String()
	case errors.Is(err, ErrInvalidInput):
		return "invalid_input"
	case errors.Is(err, ErrTokenNotFound):
		return "not_found"
	case errors.Is(err, ErrTokenExpired):
		return "expired"
	default:
		return "error"
	}
}
