package postgres

import (
	"context"

	"github.com/ferriskey/ferriskey/internal/ports"
)

// FederationView backs ports.FederationRepository.
type FederationView struct{ *Store }

func (v *FederationView) GetMappingByUserID(ctx context.Context, userID string) (ports.FederationMapping, error) {
	row := v.pool.QueryRow(ctx,
		`SELECT user_id, provider_id, enabled FROM federation_mappings WHERE user_id = $1`, userID)
	var m ports.FederationMapping
	if err := row.Scan(&m.UserID, &m.ProviderID, &m.Enabled); err != nil {
		return ports.FederationMapping{}, mapErr(err)
	}
	return m, nil
}

func (v *FederationView) GetLDAPConfig(ctx context.Context, providerID string) (ports.LDAPProviderConfig, error) {
	row := v.pool.QueryRow(ctx,
		`SELECT server_url, port, use_tls, use_starttls, connection_timeout_seconds, bind_dn,
		 bind_password_encrypted, base_dn, user_search_filter, attr_username, attr_email, attr_first_name, attr_last_name
		 FROM ldap_provider_configs WHERE provider_id = $1`, providerID)

	var c ports.LDAPProviderConfig
	err := row.Scan(&c.ServerURL, &c.Port, &c.UseTLS, &c.UseStartTLS, &c.ConnectionTimeoutSeconds, &c.BindDN,
		&c.BindPasswordEncrypted, &c.BaseDN, &c.UserSearchFilter, &c.AttrUsername, &c.AttrEmail, &c.AttrFirstName, &c.AttrLastName)
	if err != nil {
		return ports.LDAPProviderConfig{}, mapErr(err)
	}
	return c, nil
}
