package openid4vp

import (
	"errors"
	"fmt"
)

// Input-shape errors: the inbound request does not carry the fields its
// declared variant requires.
var (
	ErrMissingState                         = errors.New("missing state")
	ErrMissingIdToken                       = errors.New("missing id_token")
	ErrMissingVpTokenOrPresentationSubmission = errors.New("missing vp_token or presentation_submission")
	ErrInvalidFormat                        = errors.New("invalid or unsupported descriptor format")
)

// Lifecycle errors: the Presentation is not in the state an operation requires.
// NotFound/InvalidState are GetRequestObject's and GetWalletResponse's names;
// PresentationDefinitionNotFound/PresentationNotInExpectedState are
// PostWalletResponse's names for the same two conditions. Both pairs are kept
// distinct because each operation's HTTP mapping names them differently.
var (
	ErrNotFound                                = errors.New("presentation not found")
	ErrInvalidState                            = errors.New("presentation not in expected state")
	ErrPresentationDefinitionNotFound          = errors.New("presentation not found")
	ErrPresentationNotInExpectedState          = errors.New("presentation not in expected state")
	ErrExpired                                 = errors.New("presentation expired")
)

// UnexpectedResponseModeError reports a response transport mismatch: the
// Wallet posted to direct_post when direct_post.jwt was expected, or vice versa.
type UnexpectedResponseModeError struct {
	Expected ResponseMode
	Actual   ResponseMode
}

func (e *UnexpectedResponseModeError) Error() string {
	return fmt.Sprintf("unexpected response mode: expected %s, got %s", e.Expected, e.Actual)
}

// Cryptographic errors: verification of the JARM envelope or an embedded VP failed.
var (
	ErrInvalidJarm         = errors.New("invalid jarm")
	ErrIncorrectStateInJarm = errors.New("incorrect state in jarm")
	ErrInvalidSDJwt        = errors.New("invalid sd-jwt presentation")
	ErrInvalidMdoc         = errors.New("invalid mdoc presentation")
	ErrInvalidVPToken      = errors.New("invalid vp_token")
)

// ErrInvalidConfiguration is raised at startup when the configured JAR/JARM
// options are mutually inconsistent (e.g. DirectPostJwt without an encryption algorithm).
var ErrInvalidConfiguration = errors.New("invalid configuration")
