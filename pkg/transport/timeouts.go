package transport

import "time"

// TimeoutConfig bounds the remote calls of a Session.
type TimeoutConfig struct {
	DialTimeout time.Duration `toml:"dial-timeout" json:"dial-timeout"`
	// ExecTimeout bounds one Execute call, dialing included.
	ExecTimeout time.Duration `toml:"exec-timeout" json:"exec-timeout"`
	// FinishTimeout bounds the COMMIT or ROLLBACK of all remote transactions.
	FinishTimeout time.Duration `toml:"finish-timeout" json:"finish-timeout"`
}

var defaultTimeoutConfig = TimeoutConfig{
	DialTimeout:   time.Second * 5,
	ExecTimeout:   time.Minute,
	FinishTimeout: time.Second * 30,
}.Adjust()

// Adjust fills zero values with defaults and validates the relations
// between the timeouts.
func (config TimeoutConfig) Adjust() TimeoutConfig {
	tc := config
	if tc.DialTimeout <= 0 {
		tc.DialTimeout = time.Second * 5
	}
	if tc.ExecTimeout <= 0 {
		tc.ExecTimeout = time.Minute
	}
	if tc.FinishTimeout <= 0 {
		tc.FinishTimeout = time.Second * 30
	}
	// exec timeout must leave room for the commands after dialing
	if tc.ExecTimeout < tc.DialTimeout+time.Second {
		tc.ExecTimeout = tc.DialTimeout + time.Second
	}
	return tc
}

func DefaultTimeoutConfig() TimeoutConfig {
	return defaultTimeoutConfig
}
