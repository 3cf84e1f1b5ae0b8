package domain

// Page routes served by the routing shell.
const (
	RouteHome        = "/"
	RouteLogin       = "/login"
	RouteRegister    = "/register"
	RouteVerifyEmail = "/verify-email"
)
