// Package apperr defines the stable error taxonomy surfaced to API callers.
// Every validation failure carries a machine-readable kind and a message
// suitable for inline display.
package apperr

import "errors"

// Error is a validation failure with a stable kind.
type Error struct {
	Kind    string
	Message string
}

func (e *Error) Error() string { return e.Message }

var (
	ErrCampaignNotEligible      = &Error{Kind: "CampaignNotEligible", Message: "this campaign is not accepting endorsements"}
	ErrInvalidIdentity          = &Error{Kind: "InvalidIdentity", Message: "a valid email address is required"}
	ErrSelfEndorsementForbidden = &Error{Kind: "SelfEndorsementForbidden", Message: "you cannot endorse your own campaign"}
	ErrDuplicateEndorsement     = &Error{Kind: "DuplicateEndorsement", Message: "you have already endorsed this campaign"}
	ErrInvalidOrExpiredToken    = &Error{Kind: "InvalidOrExpiredToken", Message: "this verification link is invalid or has expired"}
	ErrInvalidCode              = &Error{Kind: "InvalidCode", Message: "this code does not exist"}
	ErrCodeInactive             = &Error{Kind: "CodeInactive", Message: "this code is no longer active"}
	ErrCodeExpired              = &Error{Kind: "CodeExpired", Message: "this code has expired"}
	ErrCodeExhausted            = &Error{Kind: "CodeExhausted", Message: "this code has no uses left"}
	ErrMinimumNotMet            = &Error{Kind: "MinimumNotMet", Message: "the order subtotal is below this code's minimum"}
	ErrNotYourCode              = &Error{Kind: "NotYourCode", Message: "this code belongs to another account"}
	ErrNotCampaignOwner         = &Error{Kind: "NotCampaignOwner", Message: "only the campaign owner can do this"}

	// ErrCodeGenerationExhausted means repeated collisions on freshly
	// generated codes, which indicates the alphabet/length is too small
	// for the code volume. Fatal configuration error, not transient.
	ErrCodeGenerationExhausted = &Error{Kind: "CodeGenerationExhausted", Message: "unable to generate a unique code"}
)

// Storage-layer sentinels. Repositories translate driver errors into these;
// services map them onto the taxonomy above.
var (
	ErrNotFound      = errors.New("not found")
	ErrCodeTaken     = errors.New("code already exists")
	ErrOwnerConflict = errors.New("owner already has a live campaign")
)

// Kind extracts the stable kind string from err, or "" if err is not a
// taxonomy error.
func Kind(err error) string {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Kind
	}
	return ""
}
