package flows

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/MrEthical07/goShop/device"
	"github.com/MrEthical07/goShop/internal/api"
	"github.com/MrEthical07/goShop/internal/audit"
	"github.com/MrEthical07/goShop/internal/metrics"
	"github.com/MrEthical07/goShop/session"
)

var testEpoch = time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

type fakeAuthAPI struct {
	mu sync.Mutex

	authResp   api.AuthResponse
	authErr    error
	verifyResp api.AuthResponse
	verifyErr  error
	resendResp api.ResendResponse
	resendErr  error

	// block, when set, holds Authenticate until closed; entered is signalled first.
	block   chan struct{}
	entered chan struct{}

	authReqs   []api.AuthenticateRequest
	verifyReqs []api.VerifyRequest
	resendReqs []api.ResendRequest
}

func (f *fakeAuthAPI) Authenticate(ctx context.Context, req api.AuthenticateRequest) (api.AuthResponse, error) {
	f.mu.Lock()
	f.authReqs = append(f.authReqs, req)
	block, entered := f.block, f.entered
	resp, err := f.authResp, f.authErr
	f.mu.Unlock()

	if block != nil {
		if entered != nil {
			entered <- struct{}{}
		}
		<-block
	}
	return resp, err
}

func (f *fakeAuthAPI) VerifyOTP(ctx context.Context, req api.VerifyRequest) (api.AuthResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.verifyReqs = append(f.verifyReqs, req)
	return f.verifyResp, f.verifyErr
}

func (f *fakeAuthAPI) ResendOTP(ctx context.Context, req api.ResendRequest) (api.ResendResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.resendReqs = append(f.resendReqs, req)
	return f.resendResp, f.resendErr
}

func (f *fakeAuthAPI) calls() (auth, verify, resend int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.authReqs), len(f.verifyReqs), len(f.resendReqs)
}

type staticDevice struct{}

func (staticDevice) Identity(context.Context) device.Identity {
	return device.Identity{DeviceID: "dev-1", DeviceType: device.TypeDesktop}
}

type recordingObserver struct {
	metrics *metrics.Metrics
	mu      sync.Mutex
	events  []audit.Event
}

func newRecordingObserver() *recordingObserver {
	return &recordingObserver{metrics: metrics.New(metrics.Config{Enabled: true})}
}

func (r *recordingObserver) observer() Observer {
	return Observer{
		MetricInc: r.metrics.Inc,
		Emit: func(_ context.Context, e audit.Event) {
			r.mu.Lock()
			r.events = append(r.events, e)
			r.mu.Unlock()
		},
	}
}

func (r *recordingObserver) eventTypes() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.events))
	for _, e := range r.events {
		out = append(out, e.EventType)
	}
	return out
}

type authHarness struct {
	flow    *AuthFlow
	api     *fakeAuthAPI
	clock   *ManualClock
	store   *session.Store
	storage *session.MemoryStorage
	rec     *recordingObserver
}

func newAuthHarness(t *testing.T, fake *fakeAuthAPI) *authHarness {
	t.Helper()
	storage := session.NewMemoryStorage()
	return newAuthHarnessWith(t, fake, storage, session.NewStore(storage, nil, nil))
}

func newAuthHarnessWith(t *testing.T, fake *fakeAuthAPI, storage *session.MemoryStorage, sessions SessionWriter) *authHarness {
	t.Helper()
	clock := NewManualClock(testEpoch)
	rec := newRecordingObserver()
	flow, err := NewAuthFlow(AuthDeps{
		API:              fake,
		Sessions:         sessions,
		Devices:          staticDevice{},
		Clock:            clock,
		DefaultOTPExpiry: 180,
		Observer:         rec.observer(),
	})
	if err != nil {
		t.Fatalf("NewAuthFlow: %v", err)
	}
	t.Cleanup(flow.Close)

	store, _ := sessions.(*session.Store)
	return &authHarness{flow: flow, api: fake, clock: clock, store: store, storage: storage, rec: rec}
}

func intPtr(v int) *int { return &v }

func signedInResponse() api.AuthResponse {
	return api.AuthResponse{
		Success:      true,
		User:         &api.UserRecord{ID: "u-1", Name: "Ada", Email: "ada@example.com"},
		JWTToken:     "access-1",
		RefreshToken: "refresh-1",
	}
}

func emailAttempt(mode Mode) Attempt {
	return Attempt{Mode: mode, Channel: ChannelEmail, Email: "ada@example.com", Password: "pw"}
}
