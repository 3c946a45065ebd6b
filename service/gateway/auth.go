package gateway

import (
	"crypto/subtle"
	"net/http"
	"strconv"

	"PPGateway/logger"
	security "PPGateway/tools/security"
)

// Authenticator guards the two independent trust boundaries. The control
// plane is service-to-service behind one static secret; the data plane is
// untrusted clients with per-user tokens. The two checks are never unified:
// a data-plane token must not open control routes, nor the reverse.
type Authenticator interface {
	// AuthenticateControlToken reports whether a control-plane credential
	// equals the configured shared secret.
	AuthenticateControlToken(token string) bool

	// AuthenticateWebSocket inspects the upgrade request and returns the
	// authenticated user, or nil. It fails closed on any missing parameter,
	// decrypt failure or non-positive id.
	AuthenticateWebSocket(r *http.Request) WebsocketUser
}

// SimpleAuthenticator authenticates handshakes by decrypting the `token`
// query parameter under the `publicKey` key identifier. The decrypted
// plaintext must be a positive integer user id.
type SimpleAuthenticator struct {
	controlToken string
	cryptor      *security.Cryptor
}

func NewSimpleAuthenticator(controlToken string, cryptor *security.Cryptor) *SimpleAuthenticator {
	return &SimpleAuthenticator{controlToken: controlToken, cryptor: cryptor}
}

func (a *SimpleAuthenticator) AuthenticateControlToken(token string) bool {
	return constantTimeEqual(token, a.controlToken)
}

func (a *SimpleAuthenticator) AuthenticateWebSocket(r *http.Request) WebsocketUser {
	q := r.URL.Query()
	token := q.Get("token")
	publicKey := q.Get("publicKey")
	if token == "" || publicKey == "" {
		return nil
	}

	plain, err := a.cryptor.Decrypt(token, publicKey)
	if err != nil {
		logger.Debugf("[auth] token decrypt failed: %v", err)
		return nil
	}
	id, err := strconv.ParseInt(plain, 10, 64)
	if err != nil || id <= 0 {
		return nil
	}
	return NewSimpleUser(id)
}

// JWTAuthenticator is an alternative data-plane backend: the `token` query
// parameter carries an HS256 JWT whose subject is the user id.
type JWTAuthenticator struct {
	controlToken string
	opts         security.JWTOptions
}

func NewJWTAuthenticator(controlToken string, opts security.JWTOptions) *JWTAuthenticator {
	return &JWTAuthenticator{controlToken: controlToken, opts: opts}
}

func (a *JWTAuthenticator) AuthenticateControlToken(token string) bool {
	return constantTimeEqual(token, a.controlToken)
}

func (a *JWTAuthenticator) AuthenticateWebSocket(r *http.Request) WebsocketUser {
	token := r.URL.Query().Get("token")
	if token == "" {
		return nil
	}
	sub, err := security.VerifyJWTSubject(a.opts, token)
	if err != nil {
		logger.Debugf("[auth] jwt verify failed: %v", err)
		return nil
	}
	id, err := strconv.ParseInt(sub, 10, 64)
	if err != nil || id <= 0 {
		return nil
	}
	return NewJWTUser(id, sub)
}

func constantTimeEqual(a, b string) bool {
	if b == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}
