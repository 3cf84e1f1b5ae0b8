package domain

import "net/url"

// Status texts shown on the verification page.
const (
	MsgVerifying    = "Verifying your email..."
	MsgTokenMissing = "Token missing in URL."
	MsgInvalidToken = "Invalid or expired token"
	MsgUnreachable  = "Server not reachable. Try again."
	TokenQueryParam = "token"
)

// VerificationRequest is the token read from the page's query string.
type VerificationRequest struct {
	Token   string
	Present bool
}

// VerificationRequestFromQuery extracts the token parameter. An empty value
// counts as absent.
func VerificationRequestFromQuery(q url.Values) VerificationRequest {
	tok := q.Get(TokenQueryParam)
	return VerificationRequest{Token: tok, Present: tok != ""}
}

// OutcomeState is the tag of a VerificationOutcome.
type OutcomeState string

const (
	StatePending OutcomeState = "pending"
	StateSuccess OutcomeState = "success"
	StateFailure OutcomeState = "failure"
)

// FailureKind classifies a failed verification.
type FailureKind string

const (
	KindNone                  FailureKind = ""
	KindTokenMissing          FailureKind = "token_missing"
	KindTokenRejected         FailureKind = "token_rejected"
	KindTokenRejectedNoDetail FailureKind = "token_rejected_no_detail"
	KindUnreachable           FailureKind = "unreachable"
)

// Outcome is the tri-state result of a verification attempt. Message is the
// text the page displays.
type Outcome struct {
	State   OutcomeState `json:"state"`
	Message string       `json:"message"`
	Kind    FailureKind  `json:"kind,omitempty"`
}

func Pending() Outcome { return Outcome{State: StatePending, Message: MsgVerifying} }

func Success(msg string) Outcome { return Outcome{State: StateSuccess, Message: msg} }

func Failure(kind FailureKind, msg string) Outcome {
	return Outcome{State: StateFailure, Message: msg, Kind: kind}
}

// Terminal reports whether no further transition can happen for this token.
func (o Outcome) Terminal() bool { return o.State == StateSuccess || o.State == StateFailure }
