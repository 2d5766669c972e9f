// Package guard implements the abuse-resistant front door for OTP
// verification. One generic engine is instantiated per flow (sign-in,
// sign-up, forget-password); the flows differ only through their
// FlowPolicy.
//
// Throttle counters fail open on store errors so a store outage cannot
// brick the login path; the lockout check fails closed because denying
// is the safer default when the lockout state is unknown.
package guard

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"time"

	"otpgate/internal/abuse/models"
	"otpgate/internal/audit"
	"otpgate/internal/otp/authority"
	"otpgate/internal/otp/guard/metrics"
	"otpgate/internal/otp/guard/tracer"
	"otpgate/internal/platform/privacy"
	dErrors "otpgate/pkg/domain-errors"
	"otpgate/pkg/requestcontext"
)

//go:generate mockgen -source=engine.go -destination=mocks/mocks.go -package=mocks RateLimiter,AttemptLedger,IdentityLookup

// unknownIdentity is the shared identity for wrong-email windows, so
// probing many emails from one IP still lands in a single bucket.
const unknownIdentity = "unknown"

// RateLimiter is the fixed-window limiter consumed by the engine.
type RateLimiter interface {
	Status(ctx context.Context, route, identity, ip string, limit int, window time.Duration) (models.Status, error)
	Record(ctx context.Context, route, identity, ip string, window time.Duration) error
	ClearForIdentity(ctx context.Context, identity string) error
}

// AttemptLedger tracks invalid attempts per identity for the current
// verification cycle.
type AttemptLedger interface {
	Attempts(ctx context.Context, identifier string) (int, error)
	RecordInvalid(ctx context.Context, identifier string) (int, error)
	Reset(ctx context.Context, identifier string) error
}

// IdentityLookup answers whether an email belongs to a registered
// account.
type IdentityLookup interface {
	Exists(ctx context.Context, email string) (bool, error)
}

// SendResult is returned on a successful code issuance.
type SendResult struct {
	CooldownSeconds int
}

type Option func(*Engine)

func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(e *Engine) {
		e.metrics = m
	}
}

func WithTracer(t tracer.Tracer) Option {
	return func(e *Engine) {
		if t != nil {
			e.tracer = t
		}
	}
}

func WithAuditPublisher(p audit.Publisher) Option {
	return func(e *Engine) {
		e.audit = p
	}
}

// Engine runs the send and verify state machines for one flow.
type Engine struct {
	policy    FlowPolicy
	limiter   RateLimiter
	ledger    AttemptLedger
	identity  IdentityLookup
	authority authority.Authority
	logger    *slog.Logger
	metrics   *metrics.Metrics
	tracer    tracer.Tracer
	audit     audit.Publisher
}

func New(policy FlowPolicy, limiter RateLimiter, ledger AttemptLedger, identity IdentityLookup, auth authority.Authority, opts ...Option) (*Engine, error) {
	if err := policy.Validate(); err != nil {
		return nil, err
	}
	if limiter == nil {
		return nil, fmt.Errorf("rate limiter is required")
	}
	if ledger == nil {
		return nil, fmt.Errorf("attempt ledger is required")
	}
	if identity == nil {
		return nil, fmt.Errorf("identity lookup is required")
	}
	if auth == nil {
		return nil, fmt.Errorf("otp authority is required")
	}

	engine := &Engine{
		policy:    policy,
		limiter:   limiter,
		ledger:    ledger,
		identity:  identity,
		authority: auth,
		logger:    slog.Default(),
		tracer:    tracer.NewNoop(),
	}
	for _, opt := range opts {
		opt(engine)
	}
	return engine, nil
}

// NormalizeEmail canonicalizes a claimed email before any lookup or
// keying: all counters for one address must share one spelling.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// SendCode issues a fresh one-time code for the email, guarded by the
// wrong-email limiter, the resend cooldown and the resend burst
// limiter. Exactly one code is issued per successful call.
func (e *Engine) SendCode(ctx context.Context, email string) (res *SendResult, err error) {
	email = NormalizeEmail(email)
	ip := requestcontext.ClientIP(ctx)

	ctx, span := e.tracer.Start(ctx, tracer.SpanSendCode,
		tracer.String(tracer.AttrFlow, e.policy.Flow),
		tracer.String(tracer.AttrEmailHash, tracer.HashEmail(email)),
	)
	outcome := "sent"
	defer func() {
		span.SetAttributes(tracer.String(tracer.AttrOutcome, outcome))
		span.End(err)
		e.countSend(outcome)
	}()

	exists, err := e.identity.Exists(ctx, email)
	if err != nil {
		outcome = "lookup_failure"
		return nil, err
	}
	if !exists {
		err = e.guardUnknownEmail(ctx, "otp_send_unknown_email", email, ip)
		if dErrors.HasCode(err, dErrors.CodeRateLimited) {
			outcome = "wrong_email_limited"
		} else {
			outcome = "unknown_email"
		}
		return nil, err
	}

	if retry, limited := e.sendThrottled(ctx, email, ip); limited {
		outcome = "throttled"
		span.SetAttributes(tracer.Int64(tracer.AttrRetryAfter, int64(retry)))
		e.emitAudit(ctx, "otp_send_throttled", email, ip, audit.DecisionDenied, "resend throttled")
		return nil, dErrors.New(dErrors.CodeRateLimited, "please wait before requesting another code").
			WithRetryAfter(retry)
	}

	// A fresh code invalidates prior guess history.
	if resetErr := e.ledger.Reset(ctx, e.policy.attemptKey(email)); resetErr != nil {
		e.logger.ErrorContext(ctx, "failed to reset attempt ledger before issue", "error", resetErr)
	}

	if issueErr := e.authority.Issue(ctx, e.policy.Flow, email); issueErr != nil {
		outcome = "provider_failure"
		e.logger.ErrorContext(ctx, "otp issuance failed",
			"flow", e.policy.Flow,
			"email", privacy.MaskEmail(email),
			"error", issueErr,
		)
		err = dErrors.Wrap(issueErr, dErrors.CodeProviderFailure, "could not issue verification code")
		return nil, err
	}

	// A successful send always costs one unit of both budgets.
	if recordErr := e.limiter.Record(ctx, e.policy.cooldownRoute(), email, ip, e.policy.ResendCooldown); recordErr != nil {
		e.logger.ErrorContext(ctx, "failed to record resend cooldown", "error", recordErr)
	}
	if recordErr := e.limiter.Record(ctx, e.policy.sendRoute(), email, ip, e.policy.ResendBurstWindow); recordErr != nil {
		e.logger.ErrorContext(ctx, "failed to record resend burst", "error", recordErr)
	}

	e.emitAudit(ctx, "otp_sent", email, ip, audit.DecisionAllowed, "")
	return &SendResult{CooldownSeconds: ceilSeconds(e.policy.ResendCooldown)}, nil
}

// VerifyCode checks a submitted code, enforcing the lockout, the
// wrong-email guard and the attempt ceiling before delegating to the
// authority. A successful verify forgives all of the identity's rate
// limits.
func (e *Engine) VerifyCode(ctx context.Context, email, code string) (err error) {
	email = NormalizeEmail(email)
	ip := requestcontext.ClientIP(ctx)

	ctx, span := e.tracer.Start(ctx, tracer.SpanVerifyCode,
		tracer.String(tracer.AttrFlow, e.policy.Flow),
		tracer.String(tracer.AttrEmailHash, tracer.HashEmail(email)),
	)
	outcome := "success"
	defer func() {
		span.SetAttributes(tracer.String(tracer.AttrOutcome, outcome))
		span.End(err)
		e.countVerify(outcome)
	}()

	lockStatus, lockErr := e.limiter.Status(ctx, e.policy.lockoutRoute(), email, ip, 1, e.policy.LockoutWindow)
	if lockErr != nil {
		// Fail closed: unknown lockout state means deny.
		outcome = "lockout_unavailable"
		e.logger.ErrorContext(ctx, "lockout status unavailable, denying", "error", lockErr)
		return dErrors.New(dErrors.CodeLockedOut, "verification temporarily unavailable, please try again later").
			WithField("code").
			WithRetryAfter(ceilSeconds(e.policy.LockoutWindow))
	}
	if lockStatus.Limited {
		outcome = "locked_out"
		retry := e.lockedRetryAfter(ctx, email, ip, lockStatus.RetryAfterSeconds)
		span.SetAttributes(tracer.Int64(tracer.AttrRetryAfter, int64(retry)))
		e.emitAudit(ctx, "otp_verify_locked", email, ip, audit.DecisionDenied, "lockout active")
		return dErrors.New(dErrors.CodeLockedOut, "too many attempts, please try again later").
			WithField("code").
			WithRetryAfter(retry)
	}

	exists, err := e.identity.Exists(ctx, email)
	if err != nil {
		outcome = "lookup_failure"
		return err
	}
	if !exists {
		err = e.guardUnknownEmail(ctx, "otp_verify_unknown_email", email, ip)
		if dErrors.HasCode(err, dErrors.CodeRateLimited) {
			outcome = "wrong_email_limited"
		} else {
			outcome = "unknown_email"
		}
		return err
	}

	attempts, attemptErr := e.ledger.Attempts(ctx, e.policy.attemptKey(email))
	if attemptErr != nil {
		e.logger.ErrorContext(ctx, "attempt ledger unavailable, proceeding", "error", attemptErr)
		attempts = 0
	}
	if attempts >= e.policy.MaxAttempts {
		return e.exceeded(ctx, span, &outcome, email, ip)
	}

	checkErr := e.authority.Check(ctx, e.policy.Flow, email, code)
	if checkErr == nil {
		if resetErr := e.ledger.Reset(ctx, e.policy.attemptKey(email)); resetErr != nil {
			e.logger.ErrorContext(ctx, "failed to reset attempt ledger after success", "error", resetErr)
		}
		if clearErr := e.limiter.ClearForIdentity(ctx, email); clearErr != nil {
			e.logger.ErrorContext(ctx, "failed to clear rate limits after success", "error", clearErr)
		}
		span.AddEvent(tracer.EventLimitsCleared)
		e.emitAudit(ctx, "otp_verified", email, ip, audit.DecisionAllowed, "")
		return nil
	}

	switch authority.Classify(checkErr) {
	case authority.KindTooManyAttempts:
		return e.exceeded(ctx, span, &outcome, email, ip)

	case authority.KindInvalidOrExpired:
		count, incErr := e.ledger.RecordInvalid(ctx, e.policy.attemptKey(email))
		if incErr != nil {
			e.logger.ErrorContext(ctx, "failed to record invalid attempt", "error", incErr)
		} else if count >= e.policy.MaxAttempts {
			return e.exceeded(ctx, span, &outcome, email, ip)
		}
		outcome = "invalid_code"
		return dErrors.New(dErrors.CodeInvalidCode, "invalid or expired code").WithField("code")

	default:
		outcome = "provider_failure"
		e.logger.ErrorContext(ctx, "otp check failed",
			"flow", e.policy.Flow,
			"email", privacy.MaskEmail(email),
			"error", checkErr,
		)
		return dErrors.Wrap(checkErr, dErrors.CodeProviderFailure, "could not verify code")
	}
}

// guardUnknownEmail applies the wrong-email burst limiter and returns
// either the guarded 404 or a 429 when the bucket is exhausted.
func (e *Engine) guardUnknownEmail(ctx context.Context, action, email, ip string) error {
	status, err := e.limiter.Status(ctx, e.policy.wrongEmailRoute(), unknownIdentity, ip,
		e.policy.WrongEmailLimit, e.policy.WrongEmailWindow)
	if err != nil {
		e.logger.ErrorContext(ctx, "wrong-email limiter unavailable, proceeding", "error", err)
	} else if status.Limited {
		e.emitAudit(ctx, action, email, ip, audit.DecisionDenied, "wrong-email limit reached")
		return dErrors.New(dErrors.CodeRateLimited, "too many attempts, please try again later").
			WithRetryAfter(status.RetryAfterSeconds)
	}

	if recordErr := e.limiter.Record(ctx, e.policy.wrongEmailRoute(), unknownIdentity, ip, e.policy.WrongEmailWindow); recordErr != nil {
		e.logger.ErrorContext(ctx, "failed to record wrong-email guess", "error", recordErr)
	}
	if e.metrics != nil {
		e.metrics.WrongEmailTotal.WithLabelValues(e.policy.Flow).Inc()
	}
	e.emitAudit(ctx, action, email, ip, audit.DecisionDenied, "unknown email")
	return dErrors.New(dErrors.CodeNotFound, "account not found").WithField("email")
}

// sendThrottled checks the cooldown and burst budgets. When either is
// tripped the retry hint is the larger of the two remaining waits.
func (e *Engine) sendThrottled(ctx context.Context, email, ip string) (retryAfter int, limited bool) {
	cooldown, err := e.limiter.Status(ctx, e.policy.cooldownRoute(), email, ip, 1, e.policy.ResendCooldown)
	if err != nil {
		e.logger.ErrorContext(ctx, "cooldown status unavailable, proceeding", "error", err)
	} else if cooldown.Limited {
		limited = true
		retryAfter = max(retryAfter, cooldown.RetryAfterSeconds)
	}

	burst, err := e.limiter.Status(ctx, e.policy.sendRoute(), email, ip, e.policy.ResendBurstLimit, e.policy.ResendBurstWindow)
	if err != nil {
		e.logger.ErrorContext(ctx, "burst status unavailable, proceeding", "error", err)
	} else if burst.Limited {
		limited = true
		retryAfter = max(retryAfter, burst.RetryAfterSeconds)
	}
	return retryAfter, limited
}

// lockedRetryAfter never reports a wait shorter than the time until a
// fresh code can actually be requested.
func (e *Engine) lockedRetryAfter(ctx context.Context, email, ip string, lockoutRemaining int) int {
	cooldown, err := e.limiter.Status(ctx, e.policy.cooldownRoute(), email, ip, 1, e.policy.ResendCooldown)
	if err != nil {
		e.logger.ErrorContext(ctx, "cooldown status unavailable while locked", "error", err)
		return lockoutRemaining
	}
	return max(lockoutRemaining, cooldown.RetryAfterSeconds)
}

// exceeded applies the flow's out-of-attempts policy.
func (e *Engine) exceeded(ctx context.Context, span tracer.Span, outcome *string, email, ip string) error {
	switch e.policy.OnExceeded {
	case ExceedResetFlow:
		*outcome = "flow_reset"
		if resetErr := e.ledger.Reset(ctx, e.policy.attemptKey(email)); resetErr != nil {
			e.logger.ErrorContext(ctx, "failed to reset attempt ledger on exceeded", "error", resetErr)
		}
		span.AddEvent(tracer.EventFlowReset)
		if e.metrics != nil {
			e.metrics.FlowResetsTotal.WithLabelValues(e.policy.Flow).Inc()
		}
		e.emitAudit(ctx, "otp_flow_reset", email, ip, audit.DecisionDenied, "attempt ceiling reached")
		return dErrors.New(dErrors.CodeRateLimited, "too many attempts, please start over").
			WithField("code").
			WithResetFlow()

	default:
		*outcome = "lockout_armed"
		if recordErr := e.limiter.Record(ctx, e.policy.lockoutRoute(), email, ip, e.policy.LockoutWindow); recordErr != nil {
			e.logger.ErrorContext(ctx, "failed to arm lockout", "error", recordErr)
		}
		retry := e.lockedRetryAfter(ctx, email, ip, ceilSeconds(e.policy.LockoutWindow))
		span.AddEvent(tracer.EventLockoutArmed)
		span.SetAttributes(tracer.Int64(tracer.AttrRetryAfter, int64(retry)))
		if e.metrics != nil {
			e.metrics.LockoutsTotal.WithLabelValues(e.policy.Flow).Inc()
		}
		e.emitAudit(ctx, "otp_lockout_armed", email, ip, audit.DecisionDenied, "attempt ceiling reached")
		return dErrors.New(dErrors.CodeLockedOut, "too many attempts, please try again later").
			WithField("code").
			WithRetryAfter(retry)
	}
}

func (e *Engine) countSend(outcome string) {
	if e.metrics != nil {
		e.metrics.SendsTotal.WithLabelValues(e.policy.Flow, outcome).Inc()
	}
}

func (e *Engine) countVerify(outcome string) {
	if e.metrics != nil {
		e.metrics.VerifiesTotal.WithLabelValues(e.policy.Flow, outcome).Inc()
	}
}

func (e *Engine) emitAudit(ctx context.Context, action, email, ip string, decision audit.Decision, reason string) {
	if e.audit == nil {
		return
	}
	event := audit.Event{
		Action:     action,
		Flow:       e.policy.Flow,
		Subject:    privacy.MaskEmail(email),
		ClientIP:   privacy.AnonymizeIP(ip),
		Decision:   decision,
		Reason:     reason,
		RequestID:  requestcontext.RequestID(ctx),
		OccurredAt: requestcontext.Now(ctx),
	}
	if err := e.audit.Emit(ctx, event); err != nil {
		e.logger.WarnContext(ctx, "failed to emit audit event", "action", action, "error", err)
	}
}

func ceilSeconds(d time.Duration) int {
	if d <= 0 {
		return 0
	}
	return int(math.Ceil(d.Seconds()))
}
