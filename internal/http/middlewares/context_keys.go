package middlewares

// Context keys shared across the middleware chain. The auth keys stay
// unexported so handlers go through the FromContext helpers.
const (
	ctxUserIDKey   = "auth.userID"
	ctxUsernameKey = "auth.username"

	// CtxRequestID is read by the response helpers when building error envelopes.
	CtxRequestID = "request_id"
)
