package guard

import (
	"fmt"
	"time"

	"otpgate/internal/platform/config"
)

// ExceedPolicy selects what happens when an identity runs out of
// verification attempts.
type ExceedPolicy string

const (
	// ExceedLockout arms a timed lockout; further verifies are refused
	// until it elapses.
	ExceedLockout ExceedPolicy = "lockout"
	// ExceedResetFlow wipes the attempt cycle and tells the client to
	// restart from send-otp. Sign-in uses this deliberately: forcing a
	// fresh code is considered better UX there than a silent timer.
	ExceedResetFlow ExceedPolicy = "reset_flow"
)

// FlowPolicy carries one flow's constants. The engine is generic; the
// three flows differ only through this struct.
type FlowPolicy struct {
	Flow              string
	MaxAttempts       int
	AttemptTTL        time.Duration
	LockoutWindow     time.Duration
	ResendCooldown    time.Duration
	ResendBurstLimit  int
	ResendBurstWindow time.Duration
	WrongEmailLimit   int
	WrongEmailWindow  time.Duration
	OnExceeded        ExceedPolicy
}

// Validate rejects policies that would disable a guard entirely.
func (p FlowPolicy) Validate() error {
	if p.Flow == "" {
		return fmt.Errorf("flow name is required")
	}
	if p.MaxAttempts <= 0 {
		return fmt.Errorf("flow %s: max attempts must be positive", p.Flow)
	}
	if p.AttemptTTL <= 0 || p.LockoutWindow <= 0 || p.ResendCooldown <= 0 ||
		p.ResendBurstWindow <= 0 || p.WrongEmailWindow <= 0 {
		return fmt.Errorf("flow %s: all windows must be positive", p.Flow)
	}
	if p.ResendBurstLimit <= 0 || p.WrongEmailLimit <= 0 {
		return fmt.Errorf("flow %s: all limits must be positive", p.Flow)
	}
	switch p.OnExceeded {
	case ExceedLockout, ExceedResetFlow:
	default:
		return fmt.Errorf("flow %s: unknown exceed policy %q", p.Flow, p.OnExceeded)
	}
	return nil
}

// Route names derive from the flow so windows never collide across
// flows. Window durations per route stay consistent because only the
// policy ever supplies them.

func (p FlowPolicy) sendRoute() string       { return p.Flow + "-send-otp" }
func (p FlowPolicy) cooldownRoute() string   { return p.Flow + "-send-otp-cooldown" }
func (p FlowPolicy) lockoutRoute() string    { return p.Flow + "-verify-otp-lockout" }
func (p FlowPolicy) wrongEmailRoute() string { return p.Flow + "-wrong-email" }

// attemptKey scopes the attempt ledger to the flow. The three engines
// share one ledger service; without the flow prefix, wrong guesses in
// one flow would burn another flow's attempt ceiling.
func (p FlowPolicy) attemptKey(email string) string { return p.Flow + ":attempts:" + email }

// SignInPolicy is the sign-in flow: exceeding attempts resets the flow
// instead of arming a timed lockout.
func SignInPolicy(cfg config.Guard) FlowPolicy {
	p := basePolicy("sign-in", cfg)
	p.OnExceeded = ExceedResetFlow
	return p
}

// SignUpPolicy is the sign-up flow with a timed lockout.
func SignUpPolicy(cfg config.Guard) FlowPolicy {
	return basePolicy("sign-up", cfg)
}

// ForgetPasswordPolicy is the forget-password flow with a timed
// lockout.
func ForgetPasswordPolicy(cfg config.Guard) FlowPolicy {
	return basePolicy("forget-password", cfg)
}

func basePolicy(flow string, cfg config.Guard) FlowPolicy {
	return FlowPolicy{
		Flow:              flow,
		MaxAttempts:       cfg.MaxAttempts,
		AttemptTTL:        cfg.AttemptTTL,
		LockoutWindow:     cfg.LockoutWindow,
		ResendCooldown:    cfg.ResendCooldown,
		ResendBurstLimit:  cfg.ResendBurstLimit,
		ResendBurstWindow: cfg.ResendBurstWindow,
		WrongEmailLimit:   cfg.WrongEmailLimit,
		WrongEmailWindow:  cfg.WrongEmailWindow,
		OnExceeded:        ExceedLockout,
	}
}
