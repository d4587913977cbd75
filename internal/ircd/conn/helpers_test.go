package conn

import (
	"encoding/base64"

	"github.com/kroketio/chatripper-ircd/internal/ircd/model"
)

// newAccountForTest builds a persisted-looking account the way a row
// loaded from the repository at startup would, for SASL tests that need
// an account to exist before any connection authenticates against it.
func newAccountForTest(username, passwordHash string) *model.Account {
	acct := model.NewAnonymousAccount(username)
	acct.SetUsername(username)
	acct.SetPasswordHash(passwordHash)
	return acct
}

// saslBlob builds the base64 "authzid\0authcid\0password" blob SASL
// PLAIN expects as the second AUTHENTICATE line's argument.
func saslBlob(authzid, authcid, password string) string {
	raw := authzid + "\x00" + authcid + "\x00" + password
	return base64.StdEncoding.EncodeToString([]byte(raw))
}
