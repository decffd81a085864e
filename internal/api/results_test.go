package api

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"
)

func decodeAuth(t *testing.T, body string) AuthResponse {
	t.Helper()
	var resp AuthResponse
	if err := json.Unmarshal([]byte(body), &resp); err != nil {
		t.Fatalf("decode %s: %v", body, err)
	}
	return resp
}

func TestDecodeSignIn(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		outcome Outcome
		missing []string
	}{
		{"complete", `{"success":true,"user":{"id":"1"},"jwt_token":"a","refresh_token":"r"}`, OutcomeAuthenticated, nil},
		{"missing refresh token", `{"success":true,"user":{"id":"1"},"jwt_token":"a"}`, OutcomeRejected, []string{"refresh_token"}},
		{"missing user", `{"success":true,"jwt_token":"a","refresh_token":"r"}`, OutcomeRejected, []string{"user"}},
		{"not successful", `{"success":false,"message":"Invalid password"}`, OutcomeRejected, []string{"success", "user", "jwt_token", "refresh_token"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := DecodeSignIn(decodeAuth(t, tt.body))
			if res.Outcome != tt.outcome {
				t.Fatalf("outcome = %v, want %v", res.Outcome, tt.outcome)
			}
			if len(res.Missing) != len(tt.missing) {
				t.Fatalf("missing = %v, want %v", res.Missing, tt.missing)
			}
			for i := range tt.missing {
				if res.Missing[i] != tt.missing[i] {
					t.Fatalf("missing = %v, want %v", res.Missing, tt.missing)
				}
			}
		})
	}
}

func TestRejectedSignInIsBackendRejected(t *testing.T) {
	res := DecodeSignIn(decodeAuth(t, `{"success":true,"user":{"id":"1"},"jwt_token":"a","message":"partial"}`))
	err := res.Err("sign_in")
	if !errors.Is(err, ErrBackendRejected) || !errors.Is(err, ErrIncompletePayload) {
		t.Fatalf("expected incomplete + rejected, got %v", err)
	}
	if got := UserMessage(err, "Invalid credentials"); got != "partial" {
		t.Fatalf("UserMessage = %q", got)
	}
}

func TestDecodeSignUpOutcomes(t *testing.T) {
	res := DecodeSignUp(decodeAuth(t, `{"user":{"auth_type":"otp"},"otp_expires_in":60}`), 180)
	if res.Outcome != OutcomeOTPRequired || res.OTPExpiresIn != 60 {
		t.Fatalf("unexpected %+v", res)
	}

	res = DecodeSignUp(decodeAuth(t, `{"user":{"auth_type":"otp"}}`), 180)
	if res.Outcome != OutcomeOTPRequired || res.OTPExpiresIn != 180 {
		t.Fatalf("default expiry not applied: %+v", res)
	}

	res = DecodeSignUp(decodeAuth(t, `{"user":{"auth_type":"otp"},"otp_expires_in":0}`), 180)
	if res.OTPExpiresIn != 180 {
		t.Fatalf("zero expiry must fall back: %+v", res)
	}

	res = DecodeSignUp(decodeAuth(t, `{"success":true,"user":{"id":"2"},"jwt_token":"a","refresh_token":"r"}`), 180)
	if res.Outcome != OutcomeAuthenticated || res.RefreshToken != "r" {
		t.Fatalf("immediate tokens not authenticated: %+v", res)
	}

	res = DecodeSignUp(decodeAuth(t, `{"message":"Email already registered"}`), 180)
	if res.Outcome != OutcomeRejected || res.Message != "Email already registered" {
		t.Fatalf("unexpected %+v", res)
	}
}

func TestDecodeVerifyDoesNotRequireRefresh(t *testing.T) {
	res := DecodeVerify(decodeAuth(t, `{"success":true,"user":{"id":"1"},"jwt_token":"a"}`))
	if res.Outcome != OutcomeAuthenticated {
		t.Fatalf("unexpected %+v", res)
	}
	res = DecodeVerify(decodeAuth(t, `{"success":true,"user":{"id":"1"}}`))
	if res.Outcome != OutcomeRejected {
		t.Fatalf("missing token must reject: %+v", res)
	}
}

func TestDecodeResend(t *testing.T) {
	ninety := 90
	if got := DecodeResend(ResendResponse{OTPExpiresIn: &ninety}, 180); got != 90 {
		t.Fatalf("got %d", got)
	}
	if got := DecodeResend(ResendResponse{}, 180); got != 180 {
		t.Fatalf("got %d", got)
	}
}

func TestProductHelpers(t *testing.T) {
	var p Product
	if err := json.Unmarshal([]byte(`{"id":3,"name":"Mug","price":12.5,"images":[{"url":"v.mp4","type":"video"},{"url":"m.png","type":"image"}],"variants":[{"id":"v1"},{"id":"v2"}]}`), &p); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if p.ID != "3" || p.Price.String() != "12.5" {
		t.Fatalf("unexpected %+v", p)
	}
	if p.PrimaryImage() != "m.png" {
		t.Fatalf("PrimaryImage = %q", p.PrimaryImage())
	}
	if v := p.FirstVariantID(); v == nil || *v != "v1" {
		t.Fatalf("FirstVariantID = %v", v)
	}
	if (Product{}).PrimaryImage() != PlaceholderImageURL || (Product{}).FirstVariantID() != nil {
		t.Fatalf("empty product helpers")
	}
}

func TestAmountDecodesLoosely(t *testing.T) {
	var list listResponse[Banner]
	body := `{"data":[{"id":1,"discount":""},{"id":2,"discount":"10%"},{"id":3,"discount":25},{"id":4,"discount":null},{"id":5}]}`
	if err := json.Unmarshal([]byte(body), &list); err != nil {
		t.Fatalf("decode: %v", err)
	}
	want := []Amount{"", "10%", "25", "", ""}
	if len(list.Data) != len(want) {
		t.Fatalf("got %d banners", len(list.Data))
	}
	for i, w := range want {
		if list.Data[i].Discount != w {
			t.Fatalf("banner %d discount = %q, want %q", i, list.Data[i].Discount, w)
		}
	}

	var p Product
	if err := json.Unmarshal([]byte(`{"id":1,"price":"N/A"}`), &p); err != nil {
		t.Fatalf("decode product: %v", err)
	}
	if p.Price != "N/A" || p.Price.IsNumber() {
		t.Fatalf("price = %q", p.Price)
	}
}

func TestAmountMarshal(t *testing.T) {
	tests := []struct {
		in   Amount
		want string
	}{
		{"12.5", `12.5`},
		{"-3", `-3`},
		{"N/A", `"N/A"`},
		{"", `null`},
		{"1e", `"1e"`},
	}
	for _, tt := range tests {
		out, err := json.Marshal(tt.in)
		if err != nil {
			t.Fatalf("marshal %q: %v", tt.in, err)
		}
		if string(out) != tt.want {
			t.Fatalf("marshal %q = %s, want %s", tt.in, out, tt.want)
		}
	}
}

func TestRedact(t *testing.T) {
	out := string(Redact([]byte(`{"password":"pw","nested":{"otp":"1"},"list":[{"jwt_token":"t"}],"email":"a@b"}`)))
	for _, secret := range []string{`"pw"`, `"1"`, `"t"`} {
		if strings.Contains(out, secret) {
			t.Fatalf("secret %s leaked: %s", secret, out)
		}
	}
	if !strings.Contains(out, "a@b") {
		t.Fatalf("non-sensitive field lost: %s", out)
	}
	if string(Redact([]byte("<html>"))) != `"[non-json body]"` {
		t.Fatalf("non-json marker")
	}
}
