package auth

import (
	"crypto/rsa"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	"github.com/flight-bridge/fcb/internal/config"
)

// Supported signing algorithms.
const (
	AlgorithmHS256 = "HS256"
	AlgorithmRS256 = "RS256"
)

// ErrInvalidToken is returned for tokens that fail verification.
var ErrInvalidToken = errors.New("invalid token")

// Verifier checks JWT signatures and extracts claims.
type Verifier struct {
	algorithm string
	secret    []byte
	publicKey *rsa.PublicKey
}

// NewVerifier builds a verifier from config. HS256 uses SecretKey; RS256
// reads a PEM public key from PublicKeyFile.
func NewVerifier(cfg config.AuthConfig) (*Verifier, error) {
	v := &Verifier{algorithm: cfg.Algorithm}
	switch cfg.Algorithm {
	case AlgorithmHS256:
		if cfg.SecretKey == "" {
			return nil, fmt.Errorf("HS256 requires secret key")
		}
		v.secret = []byte(cfg.SecretKey)
	case AlgorithmRS256:
		data, err := os.ReadFile(cfg.PublicKeyFile)
		if err != nil {
			return nil, fmt.Errorf("failed to read public key: %w", err)
		}
		key, err := jwt.ParseRSAPublicKeyFromPEM(data)
		if err != nil {
			return nil, fmt.Errorf("failed to parse public key: %w", err)
		}
		v.publicKey = key
	default:
		return nil, fmt.Errorf("unsupported algorithm: %s", cfg.Algorithm)
	}
	return v, nil
}

// VerifyToken verifies a JWT token and returns the claims.
func (v *Verifier) VerifyToken(tokenString string) (*Claims, error) {
	if strings.TrimSpace(tokenString) == "" {
		return nil, fmt.Errorf("%w: token cannot be empty", ErrInvalidToken)
	}

	var mc jwt.MapClaims
	token, err := jwt.ParseWithClaims(tokenString, &mc, v.key,
		jwt.WithValidMethods([]string{v.algorithm}),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !token.Valid {
		return nil, ErrInvalidToken
	}
	return claimsFromMap(mc)
}

func (v *Verifier) key(*jwt.Token) (any, error) {
	if v.publicKey != nil {
		return v.publicKey, nil
	}
	return v.secret, nil
}

func claimsFromMap(mc jwt.MapClaims) (*Claims, error) {
	sub, err := mc.GetSubject()
	if err != nil || sub == "" {
		return nil, fmt.Errorf("%w: missing or invalid 'sub' claim", ErrInvalidToken)
	}

	scopes, err := stringSlice(mc, "scopes")
	if err != nil {
		return nil, err
	}
	if len(scopes) == 0 {
		return nil, fmt.Errorf("%w: no scopes", ErrInvalidToken)
	}
	for _, s := range scopes {
		if !validScope(s) {
			return nil, fmt.Errorf("%w: unknown scope %q", ErrInvalidToken, s)
		}
	}
	return &Claims{Subject: sub, Scopes: scopes}, nil
}

// stringSlice accepts a JSON array of strings or a space separated string.
func stringSlice(mc jwt.MapClaims, key string) ([]string, error) {
	switch val := mc[key].(type) {
	case nil:
		return nil, fmt.Errorf("%w: missing claim: %s", ErrInvalidToken, key)
	case string:
		return strings.Fields(val), nil
	case []any:
		out := make([]string, len(val))
		for i, item := range val {
			s, ok := item.(string)
			if !ok {
				return nil, fmt.Errorf("%w: invalid %s claim: not a string", ErrInvalidToken, key)
			}
			out[i] = s
		}
		return out, nil
	default:
		return nil, fmt.Errorf("%w: invalid %s claim: not a string array", ErrInvalidToken, key)
	}
}

func validScope(s string) bool {
	switch s {
	case ScopeRead, ScopeControl, ScopeTelemetry:
		return true
	}
	return false
}
