package flows

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/MrEthical07/goShop/internal/api"
	"github.com/MrEthical07/goShop/internal/audit"
	"github.com/MrEthical07/goShop/internal/metrics"
	"github.com/MrEthical07/goShop/session"
)

// State is the auth flow state.
type State int

const (
	StateForm State = iota
	StateSubmitting
	StateOTPPending
	StateVerifying
	StateAuthenticated
)

func (s State) String() string {
	switch s {
	case StateForm:
		return "FORM"
	case StateSubmitting:
		return "SUBMITTING"
	case StateOTPPending:
		return "OTP_PENDING"
	case StateVerifying:
		return "VERIFYING"
	case StateAuthenticated:
		return "AUTHENTICATED"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Mode selects sign-in or sign-up.
type Mode string

const (
	ModeSignIn Mode = "sign_in"
	ModeSignUp Mode = "sign_up"
)

func (m Mode) valid() bool {
	return m == ModeSignIn || m == ModeSignUp
}

// Channel is the auth channel: email, or country code plus phone number.
type Channel string

const (
	ChannelEmail  Channel = "email"
	ChannelMobile Channel = "mobile"
)

func (c Channel) valid() bool {
	return c == ChannelEmail || c == ChannelMobile
}

// User-visible texts.
const (
	MsgOTPSent            = "OTP sent! Please enter the OTP to verify."
	MsgOTPResent          = "OTP resent! Please check your email/phone."
	MsgSubmitFailed       = "Signup/Login failed"
	MsgInvalidCredentials = "Invalid credentials"
	MsgSignUpFailed       = "Signup failed"
	MsgVerifyFailed       = "OTP verification failed"
	MsgResendFailed       = "Resend OTP failed"
	MsgSessionNotSaved    = "Signed in, but the session could not be saved"
)

// Attempt is one credential submission. Empty Mode or Channel fall back to
// the flow's current selection.
type Attempt struct {
	Mode        Mode
	Channel     Channel
	Email       string
	CountryCode string
	PhoneNumber string
	Password    string
}

// Validate checks that the fields required by the channel are present.
func (a Attempt) Validate() error {
	if !a.Mode.valid() {
		return fmt.Errorf("%w: unknown mode %q", ErrInvalidAttempt, a.Mode)
	}
	switch a.Channel {
	case ChannelEmail:
		if strings.TrimSpace(a.Email) == "" {
			return fmt.Errorf("%w: email is required", ErrInvalidAttempt)
		}
	case ChannelMobile:
		if strings.TrimSpace(a.CountryCode) == "" || strings.TrimSpace(a.PhoneNumber) == "" {
			return fmt.Errorf("%w: country code and phone number are required", ErrInvalidAttempt)
		}
	default:
		return fmt.Errorf("%w: unknown channel %q", ErrInvalidAttempt, a.Channel)
	}
	if a.Password == "" {
		return fmt.Errorf("%w: password is required", ErrInvalidAttempt)
	}
	return nil
}

func (a Attempt) channelFields() api.ChannelFields {
	if a.Channel == ChannelEmail {
		return api.ChannelFields{Email: strings.TrimSpace(a.Email)}
	}
	return api.ChannelFields{
		CountryCode: strings.TrimSpace(a.CountryCode),
		PhoneNumber: strings.TrimSpace(a.PhoneNumber),
	}
}

// Challenge is a snapshot of the pending OTP challenge.
type Challenge struct {
	Channel     Channel
	ExpiresIn   int
	Remaining   int
	CanResend   bool
	Resending   bool
	Verifying   bool
	StartedAt   time.Time
	Email       string
	CountryCode string
	PhoneNumber string
}

// Display renders the remaining time as mm:ss, or "expired".
func (c Challenge) Display() string {
	return FormatRemaining(c.Remaining)
}

// AuthDeps captures auth flow dependencies.
type AuthDeps struct {
	API      AuthAPI
	Sessions SessionWriter
	Devices  DeviceSource
	Clock    Clock

	DefaultOTPExpiry int
	ErrorClearDelay  time.Duration
	TickInterval     time.Duration

	Observer Observer
}

// AuthFlow is the sign-in/sign-up state machine with OTP verification.
// All methods are safe for concurrent use. Network calls run without the
// lock held; the in-flight flags reject overlapping requests.
type AuthFlow struct {
	deps      AuthDeps
	obs       Observer
	countdown *Countdown

	mu        sync.Mutex
	state     State
	mode      Mode
	channel   Channel
	attempt   Attempt
	resending bool
	closed    bool
	started   time.Time

	// challengeGen changes whenever the OTP challenge is left, so a resend
	// that completes afterwards does not revive it.
	challengeGen uint64

	errMsg  string
	message string
	errGen  uint64
	errStop func() bool
}

func NewAuthFlow(deps AuthDeps) (*AuthFlow, error) {
	if deps.API == nil || deps.Sessions == nil || deps.Devices == nil {
		return nil, fmt.Errorf("%w: auth flow requires api, sessions and devices", ErrInvalidState)
	}
	if deps.Clock == nil {
		deps.Clock = SystemClock{}
	}
	if deps.DefaultOTPExpiry <= 0 {
		deps.DefaultOTPExpiry = 180
	}
	if deps.ErrorClearDelay <= 0 {
		deps.ErrorClearDelay = 4 * time.Second
	}
	if deps.TickInterval <= 0 {
		deps.TickInterval = time.Second
	}

	f := &AuthFlow{
		deps:      deps,
		obs:       deps.Observer.normalized(),
		countdown: NewCountdown(deps.Clock, deps.TickInterval),
		state:     StateForm,
		mode:      ModeSignIn,
		channel:   ChannelEmail,
	}
	if deps.Sessions.Current().Authenticated() {
		f.state = StateAuthenticated
	}
	return f, nil
}

// Submit sends the credentials. It returns the resulting state; the error is
// also surfaced through Error for display.
func (f *AuthFlow) Submit(ctx context.Context, attempt Attempt) (State, error) {
	f.mu.Lock()
	if err := f.checkOpenLocked(); err != nil {
		f.mu.Unlock()
		return f.State(), err
	}
	switch f.state {
	case StateForm:
	case StateSubmitting, StateVerifying:
		f.mu.Unlock()
		return f.State(), ErrFlowBusy
	default:
		state := f.state
		f.mu.Unlock()
		return state, fmt.Errorf("%w: submit in %s", ErrInvalidState, state)
	}

	if attempt.Mode == "" {
		attempt.Mode = f.mode
	}
	if attempt.Channel == "" {
		attempt.Channel = f.channel
	}
	f.resetMessagesLocked()
	if err := attempt.Validate(); err != nil {
		f.setErrorLocked(strings.TrimPrefix(err.Error(), ErrInvalidAttempt.Error()+": "))
		f.mu.Unlock()
		return StateForm, err
	}
	f.mode = attempt.Mode
	f.channel = attempt.Channel
	f.attempt = attempt
	f.state = StateSubmitting
	f.mu.Unlock()

	next := StateForm
	defer func() {
		f.mu.Lock()
		if f.state == StateSubmitting {
			f.state = next
		}
		f.mu.Unlock()
	}()

	identity := f.deps.Devices.Identity(ctx)
	resp, err := f.deps.API.Authenticate(ctx, api.AuthenticateRequest{
		Action:        string(attempt.Mode),
		AuthType:      string(attempt.Channel),
		Password:      attempt.Password,
		DeviceID:      identity.DeviceID,
		DeviceType:    string(identity.DeviceType),
		ChannelFields: attempt.channelFields(),
	})

	event := EventSignIn
	failure := metrics.SignInFailure
	if attempt.Mode == ModeSignUp {
		event = EventSignUp
		failure = metrics.SignUpFailure
	}

	if err != nil {
		f.obs.MetricInc(failure)
		f.emit(ctx, event, false, "", err)
		f.surfaceError(api.UserMessage(err, MsgSubmitFailed))
		return StateForm, err
	}

	var res api.AuthResult
	fallback := MsgInvalidCredentials
	if attempt.Mode == ModeSignUp {
		res = api.DecodeSignUp(resp, f.deps.DefaultOTPExpiry)
		fallback = MsgSignUpFailed
	} else {
		res = api.DecodeSignIn(resp)
	}

	switch res.Outcome {
	case api.OutcomeAuthenticated:
		if err := f.persist(ctx, res); err != nil {
			f.obs.MetricInc(failure)
			f.emit(ctx, event, false, userID(res.User), err)
			f.surfaceError(MsgSessionNotSaved)
			return StateForm, err
		}
		if attempt.Mode == ModeSignUp {
			f.obs.MetricInc(metrics.SignUpSuccess)
		} else {
			f.obs.MetricInc(metrics.SignInSuccess)
		}
		f.emit(ctx, event, true, userID(res.User), nil)
		next = StateAuthenticated
		f.mu.Lock()
		f.state = StateAuthenticated
		f.mu.Unlock()
		return StateAuthenticated, nil

	case api.OutcomeOTPRequired:
		f.obs.MetricInc(metrics.SignUpOTPRequired)
		f.emit(ctx, EventOTPRequired, true, userID(res.User), nil)
		f.mu.Lock()
		next = StateOTPPending
		f.state = StateOTPPending
		f.started = f.deps.Clock.Now()
		f.message = MsgOTPSent
		if !f.closed {
			f.countdown.Start(res.OTPExpiresIn)
		}
		f.mu.Unlock()
		return StateOTPPending, nil

	default:
		err := res.Err(string(attempt.Mode))
		f.obs.MetricInc(failure)
		f.emit(ctx, event, false, "", err)
		f.surfaceError(api.UserMessage(err, fallback))
		return StateForm, err
	}
}

// VerifyOTP submits the code for the pending challenge.
func (f *AuthFlow) VerifyOTP(ctx context.Context, code string) (State, error) {
	f.mu.Lock()
	if err := f.checkOpenLocked(); err != nil {
		f.mu.Unlock()
		return f.State(), err
	}
	switch {
	case f.state == StateVerifying || (f.state == StateOTPPending && f.resending):
		f.mu.Unlock()
		return f.State(), ErrFlowBusy
	case f.state != StateOTPPending:
		state := f.state
		f.mu.Unlock()
		return state, fmt.Errorf("%w: verify in %s", ErrInvalidState, state)
	}

	f.resetMessagesLocked()
	code = strings.TrimSpace(code)
	if code == "" {
		f.setErrorLocked("Please enter the OTP")
		f.mu.Unlock()
		return StateOTPPending, fmt.Errorf("%w: otp is required", ErrInvalidAttempt)
	}
	attempt := f.attempt
	f.state = StateVerifying
	f.mu.Unlock()

	next := StateOTPPending
	defer func() {
		f.mu.Lock()
		if f.state == StateVerifying {
			f.state = next
		}
		f.mu.Unlock()
	}()

	identity := f.deps.Devices.Identity(ctx)
	resp, err := f.deps.API.VerifyOTP(ctx, api.VerifyRequest{
		AuthType:      string(attempt.Channel),
		OTP:           code,
		DeviceID:      identity.DeviceID,
		DeviceType:    string(identity.DeviceType),
		ChannelFields: attempt.channelFields(),
	})
	if err == nil {
		res := api.DecodeVerify(resp)
		if res.Outcome == api.OutcomeAuthenticated {
			if perr := f.persist(ctx, res); perr != nil {
				f.obs.MetricInc(metrics.OTPVerifyFailure)
				f.emit(ctx, EventOTPVerify, false, userID(res.User), perr)
				f.surfaceError(MsgSessionNotSaved)
				return StateOTPPending, perr
			}
			f.obs.MetricInc(metrics.OTPVerifySuccess)
			f.emit(ctx, EventOTPVerify, true, userID(res.User), nil)
			f.mu.Lock()
			next = StateAuthenticated
			f.state = StateAuthenticated
			f.leaveChallengeLocked()
			f.mu.Unlock()
			return StateAuthenticated, nil
		}
		err = res.Err("verify_otp")
	}

	f.obs.MetricInc(metrics.OTPVerifyFailure)
	f.emit(ctx, EventOTPVerify, false, "", err)
	f.surfaceError(api.UserMessage(err, MsgVerifyFailed))
	return StateOTPPending, err
}

// ResendOTP requests a new code. It is rejected without a network call while
// the countdown is running or another OTP request is in flight.
func (f *AuthFlow) ResendOTP(ctx context.Context) error {
	f.mu.Lock()
	if err := f.checkOpenLocked(); err != nil {
		f.mu.Unlock()
		return err
	}
	switch {
	case f.state == StateVerifying || (f.state == StateOTPPending && f.resending):
		f.mu.Unlock()
		return ErrFlowBusy
	case f.state != StateOTPPending:
		state := f.state
		f.mu.Unlock()
		return fmt.Errorf("%w: resend in %s", ErrInvalidState, state)
	}
	if !f.countdown.Expired() {
		remaining := f.countdown.Remaining()
		f.mu.Unlock()
		f.obs.MetricInc(metrics.OTPResendThrottled)
		f.emit(ctx, EventResendThrottled, false, "", ErrThrottledResend)
		return fmt.Errorf("%w: %ds remaining", ErrThrottledResend, remaining)
	}

	f.resetMessagesLocked()
	f.resending = true
	attempt := f.attempt
	gen := f.challengeGen
	f.mu.Unlock()

	defer func() {
		f.mu.Lock()
		f.resending = false
		f.mu.Unlock()
	}()

	resp, err := f.deps.API.ResendOTP(ctx, api.ResendRequest{
		AuthType:      string(attempt.Channel),
		ChannelFields: attempt.channelFields(),
	})
	if err != nil {
		f.obs.MetricInc(metrics.OTPResendFailure)
		f.emit(ctx, EventOTPResend, false, "", err)
		f.surfaceError(api.UserMessage(err, MsgResendFailed))
		return err
	}

	f.obs.MetricInc(metrics.OTPResent)
	f.emit(ctx, EventOTPResend, true, "", nil)

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed || f.state != StateOTPPending || f.challengeGen != gen {
		return nil
	}
	f.started = f.deps.Clock.Now()
	f.message = MsgOTPResent
	f.countdown.Start(api.DecodeResend(resp, f.deps.DefaultOTPExpiry))
	return nil
}

// SetMode switches between sign-in and sign-up. A pending challenge is
// abandoned and messages are cleared.
func (f *AuthFlow) SetMode(m Mode) error {
	if !m.valid() {
		return fmt.Errorf("%w: unknown mode %q", ErrInvalidAttempt, m)
	}
	return f.toForm(func() { f.mode = m })
}

// SetChannel switches between the email and mobile channels. A pending
// challenge is abandoned and messages are cleared.
func (f *AuthFlow) SetChannel(c Channel) error {
	if !c.valid() {
		return fmt.Errorf("%w: unknown channel %q", ErrInvalidAttempt, c)
	}
	return f.toForm(func() { f.channel = c })
}

// Cancel abandons a pending challenge and returns to the form.
func (f *AuthFlow) Cancel() error {
	return f.toForm(func() {})
}

func (f *AuthFlow) toForm(apply func()) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := f.checkOpenLocked(); err != nil {
		return err
	}
	if f.busyLocked() {
		return ErrFlowBusy
	}
	if f.state == StateAuthenticated {
		return fmt.Errorf("%w: already authenticated", ErrInvalidState)
	}
	apply()
	f.leaveChallengeLocked()
	f.state = StateForm
	f.resetMessagesLocked()
	return nil
}

// Close stops the countdown and the error timer. Later operations fail with
// ErrFlowClosed; in-flight requests finish without scheduling timers.
func (f *AuthFlow) Close() {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return
	}
	f.closed = true
	f.countdown.Stop()
	f.stopErrorTimerLocked()
}

func (f *AuthFlow) State() State {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

func (f *AuthFlow) Mode() Mode {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.mode
}

func (f *AuthFlow) Channel() Channel {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.channel
}

// Error returns the surfaced error text, empty once auto-cleared.
func (f *AuthFlow) Error() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.errMsg
}

// Message returns the surfaced success text.
func (f *AuthFlow) Message() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.message
}

// Busy reports whether a submit, verify or resend is in flight.
func (f *AuthFlow) Busy() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.busyLocked()
}

// Challenge returns the pending OTP challenge, if any.
func (f *AuthFlow) Challenge() (Challenge, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.state != StateOTPPending && f.state != StateVerifying {
		return Challenge{}, false
	}
	return Challenge{
		Channel:     f.attempt.Channel,
		ExpiresIn:   f.countdown.Total(),
		Remaining:   f.countdown.Remaining(),
		CanResend:   f.countdown.Expired() && !f.resending && f.state == StateOTPPending,
		Resending:   f.resending,
		Verifying:   f.state == StateVerifying,
		StartedAt:   f.started,
		Email:       f.attempt.Email,
		CountryCode: f.attempt.CountryCode,
		PhoneNumber: f.attempt.PhoneNumber,
	}, true
}

func (f *AuthFlow) busyLocked() bool {
	return f.state == StateSubmitting || f.state == StateVerifying || f.resending
}

func (f *AuthFlow) checkOpenLocked() error {
	if f.closed {
		return ErrFlowClosed
	}
	return nil
}

func (f *AuthFlow) leaveChallengeLocked() {
	f.challengeGen++
	f.countdown.Stop()
}

// persist stores the refresh token, then user and access token. A failed
// SetAuth removes the refresh token again.
func (f *AuthFlow) persist(ctx context.Context, res api.AuthResult) error {
	if res.RefreshToken != "" {
		if err := f.deps.Sessions.SetRefreshToken(ctx, res.RefreshToken); err != nil {
			return fmt.Errorf("%w: %v", ErrSessionPersist, err)
		}
	}
	if err := f.deps.Sessions.SetAuth(ctx, toSessionUser(res.User), res.AccessToken); err != nil {
		if res.RefreshToken != "" {
			if cerr := f.deps.Sessions.SetRefreshToken(ctx, ""); cerr != nil {
				f.obs.Logger.Warn("refresh token cleanup failed", "error", cerr)
			}
		}
		return fmt.Errorf("%w: %v", ErrSessionPersist, err)
	}
	return nil
}

func (f *AuthFlow) surfaceError(msg string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.setErrorLocked(msg)
}

// setErrorLocked replaces the error and schedules its auto-clear. A newer
// error or a reset cancels the pending clear.
func (f *AuthFlow) setErrorLocked(msg string) {
	f.stopErrorTimerLocked()
	f.errMsg = msg
	if msg == "" || f.closed {
		return
	}
	gen := f.errGen
	f.errStop = f.deps.Clock.AfterFunc(f.deps.ErrorClearDelay, func() {
		f.mu.Lock()
		defer f.mu.Unlock()
		if f.errGen == gen {
			f.errMsg = ""
			f.errStop = nil
		}
	})
}

func (f *AuthFlow) stopErrorTimerLocked() {
	f.errGen++
	if f.errStop != nil {
		f.errStop()
		f.errStop = nil
	}
}

func (f *AuthFlow) resetMessagesLocked() {
	f.stopErrorTimerLocked()
	f.errMsg = ""
	f.message = ""
}

func (f *AuthFlow) emit(ctx context.Context, eventType string, success bool, uid string, err error) {
	f.mu.Lock()
	mode := string(f.mode)
	channel := string(f.channel)
	f.mu.Unlock()

	f.obs.Emit(ctx, audit.Event{
		EventType: eventType,
		UserID:    uid,
		Success:   success,
		Error:     errorText(err),
		Metadata: map[string]string{
			"mode":    mode,
			"channel": channel,
		},
	})
	if err != nil {
		f.obs.Logger.Debug("auth flow step failed", "event", eventType, "error", err)
	}
}

func toSessionUser(u *api.UserRecord) session.User {
	if u == nil {
		return session.User{}
	}
	return session.User{
		ID:       u.ID.String(),
		Name:     u.Name,
		Email:    u.Email,
		Avatar:   u.Avatar,
		AuthType: u.AuthType,
	}
}

func userID(u *api.UserRecord) string {
	if u == nil {
		return ""
	}
	return u.ID.String()
}
