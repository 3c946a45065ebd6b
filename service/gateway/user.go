package gateway

// WebsocketUser is the authenticated logical identity a connection acts as.
// A positive id implies the user passed the data-plane handshake; the
// registry depends only on this capability, never on the concrete variant.
type WebsocketUser interface {
	GetID() int64
}

// SimpleUser wraps the integer id recovered from a decrypted bearer token.
type SimpleUser struct {
	id int64
}

func NewSimpleUser(id int64) *SimpleUser {
	return &SimpleUser{id: id}
}

func (u *SimpleUser) GetID() int64 { return u.id }

// JWTUser is the identity recovered from a verified JWT subject. It carries
// the raw subject alongside the id for audit logging.
type JWTUser struct {
	id      int64
	subject string
}

func NewJWTUser(id int64, subject string) *JWTUser {
	return &JWTUser{id: id, subject: subject}
}

func (u *JWTUser) GetID() int64    { return u.id }
func (u *JWTUser) Subject() string { return u.subject }
