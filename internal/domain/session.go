package domain

import "time"

// AccessToken is the backend's login response.
type AccessToken struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

// Session describes a successful login as shown to the user. It lives only
// for the response that renders it.
type Session struct {
	Email     string
	ExpiresAt time.Time
	Verified  bool // signature checked against the configured secret
	Token     AccessToken
}
