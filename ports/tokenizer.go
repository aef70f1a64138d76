package ports

import "github.com/layer-3/walletgate/core"

// Tokenizer converts between domain objects and tokens
type Tokenizer interface {
	// Login grant operations
	LoginGrantToToken(grant *core.LoginGrant) (string, error)
	TokenToLoginGrant(token string) (*core.LoginGrant, error)

	// Session tokens operations
	SessionToAccessToken(session *core.Session) (string, error)
	AccessTokenToSession(token string) (*core.Session, error)
	SessionToRefreshToken(session *core.Session) (string, error)
	RefreshTokenToSession(token string) (*core.Session, error)
}
