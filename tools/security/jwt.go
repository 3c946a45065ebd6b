package security

import (
	"fmt"
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"
	"github.com/pkg/errors"
)

// JWTOptions controls signing and TTL for HS256 user tokens.
type JWTOptions struct {
	Secret []byte
	TTL    time.Duration // default 2h
}

// GenerateJWT mints a token whose subject is the user id.
func GenerateJWT(opts JWTOptions, subject string) (string, time.Time, error) {
	ttl := opts.TTL
	if ttl <= 0 {
		ttl = 2 * time.Hour
	}
	now := time.Now()
	exp := now.Add(ttl)
	claims := jwtlib.MapClaims{
		"sub": subject,
		"iat": now.Unix(),
		"nbf": now.Unix(),
		"exp": exp.Unix(),
	}
	tok := jwtlib.NewWithClaims(jwtlib.SigningMethodHS256, claims)
	signed, err := tok.SignedString(opts.Secret)
	if err != nil {
		return "", time.Time{}, errors.Wrap(err, "sign token")
	}
	return signed, exp, nil
}

// VerifyJWTSubject validates the token and returns its subject.
// Only the HMAC family is accepted.
func VerifyJWTSubject(opts JWTOptions, token string) (string, error) {
	parsed, err := jwtlib.Parse(token, func(t *jwtlib.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwtlib.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected alg: %v", t.Header["alg"])
		}
		return opts.Secret, nil
	})
	if err != nil {
		return "", errors.Wrap(err, "parse token")
	}
	if !parsed.Valid {
		return "", errors.New("invalid token")
	}
	sub, err := parsed.Claims.GetSubject()
	if err != nil || sub == "" {
		return "", errors.New("token has no subject")
	}
	return sub, nil
}
