package util

const (
	DateFormat = "2006-01-02"
	TimeFormat = "2006-01-02 15:04:05"
)

const (
	AuthProviderJWT     = "jwt"
	AuthProviderCasdoor = "casdoor"
)

const (
	MailDriverSMTP     = "smtp"
	MailDriverSendGrid = "sendgrid"
	MailDriverConsole  = "console"
)

// gin 上下文中保存当前用户的键
const ContextIdentityKey = "identity"
