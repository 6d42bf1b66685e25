package constants

// HTTP Header Names
const (
	HeaderContentType    = "Content-Type"
	HeaderAuthorization  = "Authorization"
	HeaderUserAgent      = "User-Agent"
	HeaderXRequestID     = "X-Request-ID"
	HeaderXTraceID       = "X-Trace-ID"
	HeaderXForwardedFor  = "X-Forwarded-For"
	HeaderXRealIP        = "X-Real-IP"
	HeaderCFConnectingIP = "CF-Connecting-IP"

	HeaderRateLimitLimit     = "X-RateLimit-Limit"
	HeaderRateLimitRemaining = "X-RateLimit-Remaining"
	HeaderRateLimitReset     = "X-RateLimit-Reset"
	HeaderRetryAfter         = "Retry-After"
)

// HTTP Content Types
const (
	ContentTypeJSON      = "application/json"
	ContentTypeForm      = "application/x-www-form-urlencoded"
	ContentTypeText      = "text/plain"
	ContentTypeMultipart = "multipart/form-data"
)

// Auth cookie
const (
	TokenCookieName = "token"
	BearerPrefix    = "Bearer "
)

// Common HTTP Error Messages
const (
	MsgUnauthorized       = "Not authorized to access this route"
	MsgForbidden          = "Access forbidden"
	MsgNotFound           = "Resource not found"
	MsgBadRequest         = "Invalid request"
	MsgInternalError      = "Server Error"
	MsgServiceUnavailable = "Service temporarily unavailable"
	MsgTooManyRequests    = "Too many requests, please try again later"
)
