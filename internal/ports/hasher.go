package ports

// PasswordHasher hashes and verifies passwords for the "password"
// credential kind (spec §4.C). Pluggable so tests can swap in a cheap
// fake instead of paying bcrypt's cost factor.
type PasswordHasher interface {
	Hash(password string) (string, error)
	Compare(hash, password string) error
}

// LDAPClient binds against a federated directory to verify a user's
// credentials without the core ever seeing the directory's password store
// (spec §4.C federated credential kind).
type LDAPClient interface {
	// Bind attempts a simple bind for the given DN/password against the
	// given config, returning nil iff the bind succeeds.
	Bind(config LDAPProviderConfig, bindDN, password string) error
	// SearchUserDN resolves a username to its full DN using the config's
	// search filter and base DN.
	SearchUserDN(config LDAPProviderConfig, username string) (string, error)
}
