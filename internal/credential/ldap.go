package credential

import (
	"crypto/tls"
	"fmt"
	"strings"
	"time"

	"github.com/go-ldap/ldap/v3"

	"github.com/ferriskey/ferriskey/internal/crypto"
	"github.com/ferriskey/ferriskey/internal/ports"
)

// LDAPClient is the default ports.LDAPClient, backed by go-ldap/v3 (spec
// §4.C federated credential kind).
type LDAPClient struct{}

// NewLDAPClient builds an LDAPClient.
func NewLDAPClient() LDAPClient { return LDAPClient{} }

func (LDAPClient) dial(config ports.LDAPProviderConfig) (*ldap.Conn, error) {
	addr := fmt.Sprintf("%s:%d", config.ServerURL, config.Port)

	var conn *ldap.Conn
	var err error
	switch {
	case config.UseTLS:
		conn, err = ldap.DialURL(fmt.Sprintf("ldaps://%s", addr), ldap.DialWithTLSConfig(&tls.Config{MinVersion: tls.VersionTLS12}))
	default:
		conn, err = ldap.DialURL(fmt.Sprintf("ldap://%s", addr))
	}
	if err != nil {
		return nil, fmt.Errorf("dial ldap server: %w", err)
	}

	timeout := time.Duration(config.ConnectionTimeoutSeconds) * time.Second
	if timeout > 0 {
		conn.SetTimeout(timeout)
	}

	if config.UseStartTLS && !config.UseTLS {
		if err := conn.StartTLS(&tls.Config{MinVersion: tls.VersionTLS12}); err != nil {
			conn.Close()
			return nil, fmt.Errorf("start tls: %w", err)
		}
	}
	return conn, nil
}

// Bind attempts a simple bind for dn/password against the directory
// described by config.
func (c LDAPClient) Bind(config ports.LDAPProviderConfig, dn, password string) error {
	conn, err := c.dial(config)
	if err != nil {
		return err
	}
	defer conn.Close()

	if err := conn.Bind(dn, password); err != nil {
		return fmt.Errorf("bind: %w", err)
	}
	return nil
}

// SearchUserDN binds as the configured service account, then resolves
// username to its DN using config's search filter and base DN.
func (c LDAPClient) SearchUserDN(config ports.LDAPProviderConfig, username string) (string, error) {
	conn, err := c.dial(config)
	if err != nil {
		return "", err
	}
	defer conn.Close()

	bindPassword, err := crypto.DecryptBindSecret(config.BindPasswordEncrypted)
	if err != nil {
		return "", fmt.Errorf("decrypt service bind password: %w", err)
	}
	if err := conn.Bind(config.BindDN, bindPassword); err != nil {
		return "", fmt.Errorf("service bind: %w", err)
	}

	filter := renderFilter(config.UserSearchFilter, username)
	req := ldap.NewSearchRequest(
		config.BaseDN,
		ldap.ScopeWholeSubtree, ldap.NeverDerefAliases, 1, 0, false,
		filter,
		[]string{"dn"},
		nil,
	)

	result, err := conn.Search(req)
	if err != nil {
		return "", fmt.Errorf("search: %w", err)
	}
	if len(result.Entries) != 1 {
		return "", fmt.Errorf("search: expected exactly one entry for %q, got %d", username, len(result.Entries))
	}
	return result.Entries[0].DN, nil
}

// renderFilter substitutes "{0}" or "{username}" placeholders in the
// configured search filter (spec §6 LDAPProviderConfig.UserSearchFilter).
func renderFilter(template, username string) string {
	escaped := ldap.EscapeFilter(username)
	replacer := strings.NewReplacer("{0}", escaped, "{username}", escaped)
	return replacer.Replace(template)
}
