package lifecycle

// Client-facing messages. Handlers and clients match on these strings.
const (
	MsgAllFieldsRequired      = "All fields are required"
	MsgAccountExists          = "User with email or username already exists"
	MsgIdentifierRequired     = "username or email is required"
	MsgPasswordRequired       = "Password is required"
	MsgInvalidCredentials     = "Invalid user credentials"
	MsgUnauthorized           = "Unauthorized request"
	MsgInvalidRefreshToken    = "Invalid refresh token"
	MsgRefreshExpiredOrUsed   = "Refresh token is expired or used"
	MsgRefreshInProgress      = "Refresh already in progress, retry"
	MsgPasswordsRequired      = "Old password and new password are required"
	MsgInvalidOldPassword     = "Invalid old password"
	MsgInvalidAccessToken     = "Invalid access token"
	MsgEmailTaken             = "Email is already in use"
	MsgPasswordTooShortPrefix = "Password must be at least"
)
