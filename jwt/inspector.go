package jwt

import (
	"crypto/ed25519"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// SigningMethod names the algorithm expected when verification is enabled.
type SigningMethod string

const (
	MethodEd25519 SigningMethod = "ed25519"
	MethodHS256   SigningMethod = "hs256"
)

// ErrMalformedToken is returned for strings that are not a decodable JWT.
var ErrMalformedToken = errors.New("malformed access token")

// Config controls optional signature verification.
type Config struct {
	SigningMethod SigningMethod
	VerifyKey     []byte
	Leeway        time.Duration
}

// Inspector decodes access-token claims.
type Inspector struct {
	config Config
	method jwt.SigningMethod
	key    interface{}
}

var subjectClaims = []string{"uid", "user_id", "id"}

func NewInspector(cfg Config) (*Inspector, error) {
	if cfg.Leeway < 0 || cfg.Leeway > 2*time.Minute {
		return nil, errors.New("invalid leeway configuration")
	}
	in := &Inspector{config: cfg}
	if len(cfg.VerifyKey) == 0 {
		return in, nil
	}

	switch cfg.SigningMethod {
	case MethodEd25519:
		if len(cfg.VerifyKey) != ed25519.PublicKeySize {
			return nil, errors.New("invalid ed25519 public key size")
		}
		in.method = jwt.SigningMethodEdDSA
		in.key = ed25519.PublicKey(cfg.VerifyKey)
	case MethodHS256:
		in.method = jwt.SigningMethodHS256
		in.key = cfg.VerifyKey
	default:
		return nil, fmt.Errorf("unsupported signing method %q", cfg.SigningMethod)
	}
	return in, nil
}

// Verifying reports whether signatures are checked.
func (i *Inspector) Verifying() bool {
	return i.key != nil
}

// Claims decodes the token. Without a verification key the signature is
// not checked and an expired token still decodes.
func (i *Inspector) Claims(token string) (jwt.MapClaims, error) {
	token = strings.TrimSpace(token)
	if strings.Count(token, ".") != 2 {
		return nil, ErrMalformedToken
	}

	claims := jwt.MapClaims{}
	if i.key == nil {
		if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedToken, err)
		}
		return claims, nil
	}

	options := []jwt.ParserOption{
		jwt.WithValidMethods([]string{i.method.Alg()}),
		jwt.WithExpirationRequired(),
	}
	if i.config.Leeway > 0 {
		options = append(options, jwt.WithLeeway(i.config.Leeway))
	}
	parsed, err := jwt.NewParser(options...).ParseWithClaims(token, claims, func(*jwt.Token) (interface{}, error) {
		return i.key, nil
	})
	if err != nil {
		return nil, err
	}
	if !parsed.Valid {
		return nil, errors.New("invalid access token")
	}
	return claims, nil
}

// Inspect returns the token subject and expiry. A token without exp yields
// a zero time. The subject falls back to uid, user_id or id when sub is absent.
func (i *Inspector) Inspect(token string) (string, time.Time, error) {
	claims, err := i.Claims(token)
	if err != nil {
		return "", time.Time{}, err
	}

	subject, _ := claims.GetSubject()
	if subject == "" {
		for _, name := range subjectClaims {
			if v, ok := claims[name]; ok && v != nil {
				subject = claimString(v)
				break
			}
		}
	}

	var exp time.Time
	if nd, err := claims.GetExpirationTime(); err == nil && nd != nil {
		exp = nd.Time
	}
	return subject, exp, nil
}

// claimString renders a claim value. Numeric ids decode as float64 and are
// written without an exponent.
func claimString(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case json.Number:
		return t.String()
	default:
		return fmt.Sprint(v)
	}
}
