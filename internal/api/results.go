package api

// Outcome discriminates the decoded result of an auth endpoint.
type Outcome int

const (
	OutcomeRejected Outcome = iota
	OutcomeAuthenticated
	OutcomeOTPRequired
)

func (o Outcome) String() string {
	switch o {
	case OutcomeAuthenticated:
		return "authenticated"
	case OutcomeOTPRequired:
		return "otp_required"
	default:
		return "rejected"
	}
}

// otpAuthType is the user.auth_type value that marks an OTP-gated sign-up.
const otpAuthType = "otp"

// AuthResult is an auth response decoded once at the boundary. Only the
// fields belonging to Outcome are set.
type AuthResult struct {
	Outcome      Outcome
	User         *UserRecord
	AccessToken  string
	RefreshToken string
	OTPExpiresIn int
	Message      string
	Missing      []string
}

// Err returns the rejection as an error, or nil for any other outcome.
func (r AuthResult) Err(op string) error {
	if r.Outcome != OutcomeRejected {
		return nil
	}
	return &IncompleteError{Op: op, Missing: r.Missing, Message: r.Message}
}

func rejected(resp AuthResponse, missing []string) AuthResult {
	return AuthResult{Outcome: OutcomeRejected, Message: rejectedMessage(resp), Missing: missing}
}

func missingCredentials(resp AuthResponse, needRefresh bool) []string {
	var missing []string
	if !resp.Success {
		missing = append(missing, "success")
	}
	if resp.User == nil {
		missing = append(missing, "user")
	}
	if resp.JWTToken == "" {
		missing = append(missing, "jwt_token")
	}
	if needRefresh && resp.RefreshToken == "" {
		missing = append(missing, "refresh_token")
	}
	return missing
}

func authenticated(resp AuthResponse) AuthResult {
	return AuthResult{
		Outcome:      OutcomeAuthenticated,
		User:         resp.User,
		AccessToken:  resp.JWTToken,
		RefreshToken: resp.RefreshToken,
		Message:      resp.Message,
	}
}

func rejectedMessage(resp AuthResponse) string {
	if resp.Message != "" {
		return resp.Message
	}
	return resp.Error
}

// DecodeSignIn requires success, user, jwt_token and refresh_token together.
// Anything less is a rejection carrying the backend message.
func DecodeSignIn(resp AuthResponse) AuthResult {
	if missing := missingCredentials(resp, true); len(missing) > 0 {
		return rejected(resp, missing)
	}
	return authenticated(resp)
}

// DecodeSignUp accepts immediate token issuance, an OTP challenge signalled
// by user.auth_type == "otp", or a rejection. defaultExpiry seeds the
// challenge when otp_expires_in is absent or not positive.
func DecodeSignUp(resp AuthResponse, defaultExpiry int) AuthResult {
	missing := missingCredentials(resp, true)
	if len(missing) == 0 {
		return authenticated(resp)
	}
	if resp.User != nil && resp.User.AuthType == otpAuthType {
		return AuthResult{
			Outcome:      OutcomeOTPRequired,
			User:         resp.User,
			OTPExpiresIn: expiry(resp.OTPExpiresIn, defaultExpiry),
			Message:      resp.Message,
		}
	}
	return rejected(resp, missing)
}

// DecodeVerify requires success, user and jwt_token. The refresh token is
// optional here and kept when present.
func DecodeVerify(resp AuthResponse) AuthResult {
	if missing := missingCredentials(resp, false); len(missing) > 0 {
		return rejected(resp, missing)
	}
	return authenticated(resp)
}

// DecodeResend returns the new challenge lifetime in seconds.
func DecodeResend(resp ResendResponse, defaultExpiry int) int {
	return expiry(resp.OTPExpiresIn, defaultExpiry)
}

func expiry(v *int, def int) int {
	if v == nil || *v <= 0 {
		return def
	}
	return *v
}
