package mail

// Stage is a step of a single relay attempt. A failure at any stage ends the
// attempt in StageClosed.
type Stage string

const (
	StageIdle             Stage = "idle"
	StageValidatingConfig Stage = "validating_config"
	StageConnecting       Stage = "connecting"
	StageNegotiatingTLS   Stage = "negotiating_tls"
	StageAuthenticating   Stage = "authenticating"
	StageSending          Stage = "sending"
	StageClosed           Stage = "closed"
)
