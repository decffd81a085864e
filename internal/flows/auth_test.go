package flows

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/MrEthical07/goShop/internal/api"
	"github.com/MrEthical07/goShop/internal/metrics"
	"github.com/MrEthical07/goShop/session"
)

func TestSignInPersistsSession(t *testing.T) {
	h := newAuthHarness(t, &fakeAuthAPI{authResp: signedInResponse()})
	ctx := context.Background()

	state, err := h.flow.Submit(ctx, emailAttempt(ModeSignIn))
	if err != nil || state != StateAuthenticated {
		t.Fatalf("Submit = %v, %v", state, err)
	}

	sess := h.store.Current()
	if !sess.Authenticated() || sess.User.ID != "u-1" || sess.AccessToken != "access-1" {
		t.Fatalf("unexpected session %+v", sess)
	}
	if v, ok, _ := h.storage.Get(ctx, session.KeyRefreshToken); !ok || v != "refresh-1" {
		t.Fatalf("refresh token not persisted: %q", v)
	}

	req := h.api.authReqs[0]
	if req.Action != "sign_in" || req.AuthType != "email" || req.Email != "ada@example.com" {
		t.Fatalf("unexpected request %+v", req)
	}
	if req.DeviceID != "dev-1" || req.DeviceType != "DESKTOP" {
		t.Fatalf("device identity not attached: %+v", req)
	}
	if h.rec.metrics.Value(metrics.SignInSuccess) != 1 {
		t.Fatalf("sign-in success metric not incremented")
	}
}

func TestSignInWithoutRefreshTokenIsRejected(t *testing.T) {
	resp := signedInResponse()
	resp.RefreshToken = ""
	h := newAuthHarness(t, &fakeAuthAPI{authResp: resp})
	ctx := context.Background()

	state, err := h.flow.Submit(ctx, emailAttempt(ModeSignIn))
	if state != StateForm || !errors.Is(err, api.ErrIncompletePayload) {
		t.Fatalf("Submit = %v, %v", state, err)
	}
	if h.flow.Error() != MsgInvalidCredentials {
		t.Fatalf("error text = %q", h.flow.Error())
	}
	if h.store.Current().Authenticated() {
		t.Fatalf("partial credentials must not authenticate")
	}
	if _, ok, _ := h.storage.Get(ctx, session.KeyAccessToken); ok {
		t.Fatalf("access token must not be persisted")
	}
	if h.rec.metrics.Value(metrics.SignInFailure) != 1 {
		t.Fatalf("sign-in failure metric not incremented")
	}
}

func TestBackendMessageIsSurfaced(t *testing.T) {
	h := newAuthHarness(t, &fakeAuthAPI{
		authErr: &api.RejectedError{Op: "authenticate", Status: 401, Message: "Wrong password"},
	})

	if _, err := h.flow.Submit(context.Background(), emailAttempt(ModeSignIn)); !errors.Is(err, api.ErrBackendRejected) {
		t.Fatalf("expected backend rejection, got %v", err)
	}
	if h.flow.Error() != "Wrong password" {
		t.Fatalf("error text = %q", h.flow.Error())
	}
}

func TestTransportFailureUsesFallback(t *testing.T) {
	h := newAuthHarness(t, &fakeAuthAPI{
		authErr: &api.TransportError{Op: "authenticate", Err: errors.New("connection refused")},
	})

	if _, err := h.flow.Submit(context.Background(), emailAttempt(ModeSignUp)); !errors.Is(err, api.ErrTransport) {
		t.Fatalf("expected transport error, got %v", err)
	}
	if h.flow.Error() != MsgSubmitFailed {
		t.Fatalf("error text = %q", h.flow.Error())
	}
	if h.flow.State() != StateForm || h.flow.Busy() {
		t.Fatalf("flow must return to the idle form")
	}
}

func TestErrorAutoClears(t *testing.T) {
	h := newAuthHarness(t, &fakeAuthAPI{authErr: &api.RejectedError{Op: "authenticate", Status: 400, Message: "nope"}})
	ctx := context.Background()

	_, _ = h.flow.Submit(ctx, emailAttempt(ModeSignIn))
	h.clock.Advance(4*time.Second - time.Millisecond)
	if h.flow.Error() == "" {
		t.Fatalf("error cleared too early")
	}
	h.clock.Advance(time.Millisecond)
	if h.flow.Error() != "" {
		t.Fatalf("error not cleared after 4s: %q", h.flow.Error())
	}
}

func TestNewErrorRestartsAutoClear(t *testing.T) {
	h := newAuthHarness(t, &fakeAuthAPI{authErr: &api.RejectedError{Op: "authenticate", Status: 400, Message: "nope"}})
	ctx := context.Background()

	_, _ = h.flow.Submit(ctx, emailAttempt(ModeSignIn))
	h.clock.Advance(3 * time.Second)
	_, _ = h.flow.Submit(ctx, emailAttempt(ModeSignIn))
	h.clock.Advance(1500 * time.Millisecond)
	if h.flow.Error() == "" {
		t.Fatalf("first timer cleared the newer error")
	}
	h.clock.Advance(2500 * time.Millisecond)
	if h.flow.Error() != "" {
		t.Fatalf("second error not cleared")
	}
}

func TestInvalidAttemptMakesNoCall(t *testing.T) {
	h := newAuthHarness(t, &fakeAuthAPI{authResp: signedInResponse()})

	attempt := emailAttempt(ModeSignIn)
	attempt.Email = "  "
	if _, err := h.flow.Submit(context.Background(), attempt); !errors.Is(err, ErrInvalidAttempt) {
		t.Fatalf("expected ErrInvalidAttempt, got %v", err)
	}
	if n, _, _ := h.api.calls(); n != 0 {
		t.Fatalf("invalid attempt reached the backend")
	}
	if h.flow.Error() != "email is required" {
		t.Fatalf("error text = %q", h.flow.Error())
	}
}

func TestMobileChannelSendsPhoneFields(t *testing.T) {
	h := newAuthHarness(t, &fakeAuthAPI{authResp: signedInResponse()})
	if err := h.flow.SetChannel(ChannelMobile); err != nil {
		t.Fatalf("SetChannel: %v", err)
	}

	_, err := h.flow.Submit(context.Background(), Attempt{CountryCode: "+91", PhoneNumber: "9876543210", Password: "pw"})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	req := h.api.authReqs[0]
	if req.AuthType != "mobile" || req.CountryCode != "+91" || req.PhoneNumber != "9876543210" || req.Email != "" {
		t.Fatalf("unexpected request %+v", req)
	}
	if req.Action != "sign_in" {
		t.Fatalf("mode should default to the flow's selection, got %q", req.Action)
	}
}

func TestSignUpOTPLifecycle(t *testing.T) {
	fake := &fakeAuthAPI{
		authResp: api.AuthResponse{
			Success:      true,
			User:         &api.UserRecord{ID: "u-9", AuthType: "otp"},
			OTPExpiresIn: intPtr(60),
		},
		resendResp: api.ResendResponse{OTPExpiresIn: intPtr(30)},
		verifyResp: signedInResponse(),
	}
	h := newAuthHarness(t, fake)
	ctx := context.Background()

	state, err := h.flow.Submit(ctx, emailAttempt(ModeSignUp))
	if err != nil || state != StateOTPPending {
		t.Fatalf("Submit = %v, %v", state, err)
	}
	if h.flow.Message() != MsgOTPSent {
		t.Fatalf("message = %q", h.flow.Message())
	}
	ch, ok := h.flow.Challenge()
	if !ok || ch.ExpiresIn != 60 || ch.Remaining != 60 || ch.CanResend || ch.Display() != "01:00" {
		t.Fatalf("unexpected challenge %+v", ch)
	}

	if err := h.flow.ResendOTP(ctx); !errors.Is(err, ErrThrottledResend) {
		t.Fatalf("expected throttled resend, got %v", err)
	}
	if _, _, n := fake.calls(); n != 0 {
		t.Fatalf("throttled resend reached the backend")
	}

	h.clock.Advance(59 * time.Second)
	if ch, _ := h.flow.Challenge(); ch.Remaining != 1 || ch.CanResend {
		t.Fatalf("after 59 ticks: %+v", ch)
	}
	h.clock.Advance(time.Second)
	ch, _ = h.flow.Challenge()
	if ch.Remaining != 0 || !ch.CanResend || ch.Display() != "expired" {
		t.Fatalf("after 60 ticks: %+v", ch)
	}

	if err := h.flow.ResendOTP(ctx); err != nil {
		t.Fatalf("ResendOTP: %v", err)
	}
	if h.flow.Message() != MsgOTPResent {
		t.Fatalf("message = %q", h.flow.Message())
	}
	if ch, _ := h.flow.Challenge(); ch.Remaining != 30 || ch.CanResend {
		t.Fatalf("countdown not restarted: %+v", ch)
	}
	if fake.resendReqs[0].AuthType != "email" || fake.resendReqs[0].Email != "ada@example.com" {
		t.Fatalf("unexpected resend request %+v", fake.resendReqs[0])
	}

	state, err = h.flow.VerifyOTP(ctx, " 123456 ")
	if err != nil || state != StateAuthenticated {
		t.Fatalf("VerifyOTP = %v, %v", state, err)
	}
	vreq := fake.verifyReqs[0]
	if vreq.OTP != "123456" || vreq.DeviceID != "dev-1" || vreq.Email != "ada@example.com" {
		t.Fatalf("unexpected verify request %+v", vreq)
	}
	if !h.store.Current().Authenticated() {
		t.Fatalf("session not stored after verify")
	}
	if _, ok := h.flow.Challenge(); ok {
		t.Fatalf("challenge must end after verify")
	}
	if h.clock.Pending() != 0 {
		t.Fatalf("countdown still scheduled: %d timers", h.clock.Pending())
	}

	if h.rec.metrics.Value(metrics.SignUpOTPRequired) != 1 ||
		h.rec.metrics.Value(metrics.OTPResendThrottled) != 1 ||
		h.rec.metrics.Value(metrics.OTPResent) != 1 ||
		h.rec.metrics.Value(metrics.OTPVerifySuccess) != 1 {
		t.Fatalf("unexpected metrics %+v", h.rec.metrics.Snapshot().Counters)
	}
}

func TestSignUpWithImmediateTokensLogsIn(t *testing.T) {
	h := newAuthHarness(t, &fakeAuthAPI{authResp: signedInResponse()})
	ctx := context.Background()

	state, err := h.flow.Submit(ctx, emailAttempt(ModeSignUp))
	if err != nil || state != StateAuthenticated {
		t.Fatalf("Submit = %v, %v", state, err)
	}
	if h.flow.State() != StateAuthenticated {
		t.Fatalf("flow state = %v", h.flow.State())
	}

	sess := h.store.Current()
	if !sess.Authenticated() || sess.User.ID != "u-1" || sess.AccessToken != "access-1" {
		t.Fatalf("unexpected session %+v", sess)
	}
	if v, ok, _ := h.storage.Get(ctx, session.KeyAccessToken); !ok || v != "access-1" {
		t.Fatalf("access token not persisted: %q", v)
	}
	if v, ok, _ := h.storage.Get(ctx, session.KeyRefreshToken); !ok || v != "refresh-1" {
		t.Fatalf("refresh token not persisted: %q", v)
	}
	if _, ok := h.flow.Challenge(); ok {
		t.Fatalf("immediate tokens must not open a challenge")
	}
	if h.clock.Pending() != 0 {
		t.Fatalf("no timer expected, got %d", h.clock.Pending())
	}
	if h.api.authReqs[0].Action != "sign_up" {
		t.Fatalf("unexpected action %q", h.api.authReqs[0].Action)
	}
	if h.rec.metrics.Value(metrics.SignUpSuccess) != 1 || h.rec.metrics.Value(metrics.SignUpOTPRequired) != 0 {
		t.Fatalf("unexpected metrics %+v", h.rec.metrics.Snapshot().Counters)
	}
}

func TestResendFailureKeepsExpiredCountdown(t *testing.T) {
	fake := &fakeAuthAPI{
		authResp:   api.AuthResponse{Success: true, User: &api.UserRecord{ID: "u-9", AuthType: "otp"}, OTPExpiresIn: intPtr(10)},
		resendErr:  &api.TransportError{Op: "resend_otp", Err: errors.New("connection reset")},
		resendResp: api.ResendResponse{OTPExpiresIn: intPtr(30)},
	}
	h := newAuthHarness(t, fake)
	ctx := context.Background()

	if _, err := h.flow.Submit(ctx, emailAttempt(ModeSignUp)); err != nil {
		t.Fatalf("Submit: %v", err)
	}
	h.clock.Advance(10 * time.Second)

	if err := h.flow.ResendOTP(ctx); !errors.Is(err, api.ErrTransport) {
		t.Fatalf("expected transport error, got %v", err)
	}
	if h.flow.Error() != MsgResendFailed || h.flow.Message() != "" {
		t.Fatalf("error = %q, message = %q", h.flow.Error(), h.flow.Message())
	}
	if h.flow.State() != StateOTPPending || h.flow.Busy() {
		t.Fatalf("state = %v, busy = %v", h.flow.State(), h.flow.Busy())
	}
	ch, ok := h.flow.Challenge()
	if !ok || ch.Remaining != 0 || ch.ExpiresIn != 10 || !ch.CanResend || ch.Resending {
		t.Fatalf("countdown must stay expired: %+v", ch)
	}

	fake.mu.Lock()
	fake.resendErr = &api.RejectedError{Op: "resend_otp", Status: 429, Message: "Too many attempts"}
	fake.mu.Unlock()
	if err := h.flow.ResendOTP(ctx); !errors.Is(err, api.ErrBackendRejected) {
		t.Fatalf("expected rejection, got %v", err)
	}
	if h.flow.Error() != "Too many attempts" {
		t.Fatalf("backend message not surfaced: %q", h.flow.Error())
	}

	fake.mu.Lock()
	fake.resendErr = nil
	fake.mu.Unlock()
	if err := h.flow.ResendOTP(ctx); err != nil {
		t.Fatalf("ResendOTP after failures: %v", err)
	}
	if ch, _ := h.flow.Challenge(); ch.Remaining != 30 || ch.CanResend {
		t.Fatalf("countdown not restarted: %+v", ch)
	}
	if _, _, n := fake.calls(); n != 3 {
		t.Fatalf("resend calls = %d", n)
	}
	if h.rec.metrics.Value(metrics.OTPResendFailure) != 2 || h.rec.metrics.Value(metrics.OTPResent) != 1 {
		t.Fatalf("unexpected metrics %+v", h.rec.metrics.Snapshot().Counters)
	}
}

func TestSignUpDefaultExpiry(t *testing.T) {
	h := newAuthHarness(t, &fakeAuthAPI{authResp: api.AuthResponse{
		Success: true,
		User:    &api.UserRecord{ID: "u-9", AuthType: "otp"},
	}})

	if _, err := h.flow.Submit(context.Background(), emailAttempt(ModeSignUp)); err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if ch, _ := h.flow.Challenge(); ch.Remaining != 180 {
		t.Fatalf("default expiry not applied: %+v", ch)
	}
}

func TestVerifyFailureKeepsChallenge(t *testing.T) {
	h := newAuthHarness(t, &fakeAuthAPI{
		authResp:  api.AuthResponse{Success: true, User: &api.UserRecord{AuthType: "otp"}, OTPExpiresIn: intPtr(10)},
		verifyErr: &api.RejectedError{Op: "verify_otp", Status: 400},
	})
	ctx := context.Background()
	_, _ = h.flow.Submit(ctx, emailAttempt(ModeSignUp))

	state, err := h.flow.VerifyOTP(ctx, "000000")
	if state != StateOTPPending || !errors.Is(err, api.ErrBackendRejected) {
		t.Fatalf("VerifyOTP = %v, %v", state, err)
	}
	if h.flow.Error() != MsgVerifyFailed {
		t.Fatalf("error text = %q", h.flow.Error())
	}
	if _, err := h.flow.VerifyOTP(ctx, ""); !errors.Is(err, ErrInvalidAttempt) {
		t.Fatalf("empty otp: %v", err)
	}
	if _, ok := h.flow.Challenge(); !ok {
		t.Fatalf("challenge lost after failed verify")
	}
}

func TestOperationsRejectedOutOfState(t *testing.T) {
	h := newAuthHarness(t, &fakeAuthAPI{})
	ctx := context.Background()

	if _, err := h.flow.VerifyOTP(ctx, "1"); !errors.Is(err, ErrInvalidState) {
		t.Fatalf("verify in form: %v", err)
	}
	if err := h.flow.ResendOTP(ctx); !errors.Is(err, ErrInvalidState) {
		t.Fatalf("resend in form: %v", err)
	}

	h.api.authResp = api.AuthResponse{Success: true, User: &api.UserRecord{AuthType: "otp"}}
	_, _ = h.flow.Submit(ctx, emailAttempt(ModeSignUp))
	if _, err := h.flow.Submit(ctx, emailAttempt(ModeSignUp)); !errors.Is(err, ErrInvalidState) {
		t.Fatalf("submit while otp pending: %v", err)
	}

	if err := h.flow.Cancel(); err != nil {
		t.Fatalf("Cancel: %v", err)
	}
	if h.flow.State() != StateForm || h.clock.Pending() != 0 {
		t.Fatalf("cancel must return to the form and stop the countdown")
	}
}

func TestConcurrentSubmitIsBusy(t *testing.T) {
	fake := &fakeAuthAPI{
		authResp: signedInResponse(),
		block:    make(chan struct{}),
		entered:  make(chan struct{}, 1),
	}
	h := newAuthHarness(t, fake)
	ctx := context.Background()

	done := make(chan error, 1)
	go func() {
		_, err := h.flow.Submit(ctx, emailAttempt(ModeSignIn))
		done <- err
	}()
	<-fake.entered

	if !h.flow.Busy() {
		t.Fatalf("flow should report busy")
	}
	if _, err := h.flow.Submit(ctx, emailAttempt(ModeSignIn)); !errors.Is(err, ErrFlowBusy) {
		t.Fatalf("second submit: %v", err)
	}
	if err := h.flow.SetMode(ModeSignUp); !errors.Is(err, ErrFlowBusy) {
		t.Fatalf("SetMode while busy: %v", err)
	}

	close(fake.block)
	if err := <-done; err != nil {
		t.Fatalf("first submit: %v", err)
	}
	if n, _, _ := fake.calls(); n != 1 {
		t.Fatalf("expected one backend call, got %d", n)
	}
}

type failingSessions struct {
	*session.Store
}

func (failingSessions) SetAuth(context.Context, session.User, string) error {
	return session.ErrStorageUnavailable
}

func TestPersistFailureClearsRefreshToken(t *testing.T) {
	storage := session.NewMemoryStorage()
	sessions := failingSessions{Store: session.NewStore(storage, nil, nil)}
	h := newAuthHarnessWith(t, &fakeAuthAPI{authResp: signedInResponse()}, storage, sessions)
	ctx := context.Background()

	state, err := h.flow.Submit(ctx, emailAttempt(ModeSignIn))
	if state != StateForm || !errors.Is(err, ErrSessionPersist) {
		t.Fatalf("Submit = %v, %v", state, err)
	}
	if _, ok, _ := storage.Get(ctx, session.KeyRefreshToken); ok {
		t.Fatalf("refresh token left behind")
	}
	if h.flow.Error() != MsgSessionNotSaved {
		t.Fatalf("error text = %q", h.flow.Error())
	}
}

func TestRestoredSessionStartsAuthenticated(t *testing.T) {
	storage := session.NewMemoryStorage()
	store := session.NewStore(storage, nil, nil)
	if err := store.SetAuth(context.Background(), session.User{ID: "u-1"}, "tok"); err != nil {
		t.Fatalf("SetAuth: %v", err)
	}
	h := newAuthHarnessWith(t, &fakeAuthAPI{}, storage, store)

	if h.flow.State() != StateAuthenticated {
		t.Fatalf("state = %v", h.flow.State())
	}
	if _, err := h.flow.Submit(context.Background(), emailAttempt(ModeSignIn)); !errors.Is(err, ErrInvalidState) {
		t.Fatalf("submit while authenticated: %v", err)
	}
}

func TestCloseStopsTimers(t *testing.T) {
	h := newAuthHarness(t, &fakeAuthAPI{authResp: api.AuthResponse{
		Success:      true,
		User:         &api.UserRecord{AuthType: "otp"},
		OTPExpiresIn: intPtr(30),
	}})
	ctx := context.Background()
	_, _ = h.flow.Submit(ctx, emailAttempt(ModeSignUp))

	h.flow.Close()
	h.flow.Close()
	if h.clock.Pending() != 0 {
		t.Fatalf("timers left after Close: %d", h.clock.Pending())
	}
	if _, err := h.flow.VerifyOTP(ctx, "1"); !errors.Is(err, ErrFlowClosed) {
		t.Fatalf("verify after close: %v", err)
	}
}

func TestModeSwitchClearsMessages(t *testing.T) {
	h := newAuthHarness(t, &fakeAuthAPI{authErr: &api.RejectedError{Op: "authenticate", Status: 400, Message: "nope"}})
	_, _ = h.flow.Submit(context.Background(), emailAttempt(ModeSignIn))

	if err := h.flow.SetMode(ModeSignUp); err != nil {
		t.Fatalf("SetMode: %v", err)
	}
	if h.flow.Error() != "" || h.flow.Mode() != ModeSignUp {
		t.Fatalf("mode switch did not reset the form")
	}
	if h.clock.Pending() != 0 {
		t.Fatalf("error timer left after reset")
	}
	if err := h.flow.SetMode("admin"); !errors.Is(err, ErrInvalidAttempt) {
		t.Fatalf("unknown mode: %v", err)
	}
}
