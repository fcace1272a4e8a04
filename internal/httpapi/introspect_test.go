package httpapi_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ferriskey/ferriskey/internal/authsession"
	"github.com/ferriskey/ferriskey/internal/credential"
	"github.com/ferriskey/ferriskey/internal/domain"
	"github.com/ferriskey/ferriskey/internal/grant"
	"github.com/ferriskey/ferriskey/internal/httpapi"
	"github.com/ferriskey/ferriskey/internal/keystore"
	"github.com/ferriskey/ferriskey/internal/ports"
	"github.com/ferriskey/ferriskey/internal/repository/memory"
	"github.com/ferriskey/ferriskey/internal/scope"
	"github.com/ferriskey/ferriskey/internal/tokenservice"
)

func readJSON(resp *http.Response, out any) error {
	defer resp.Body.Close()
	return json.NewDecoder(resp.Body).Decode(out)
}

// newIntrospectTestServer builds a full Server over an in-memory Store,
// seeding a realm, a resource-owner client, and an introspecting client
// whose service-account user optionally carries the introspect role.
func newIntrospectTestServer(t *testing.T, introspectorHasRole bool) *httptest.Server {
	t.Helper()
	ctx := context.Background()
	db := memory.NewViews()
	realm := domain.Realm{ID: "realm-1", Name: "acme"}
	require.NoError(t, db.Realms.Create(ctx, realm))

	resourceClient := domain.Client{
		ID: "client-1", RealmID: realm.ID, ClientID: "resource-app", Enabled: true,
		Secret: "resourcesecret", ClientType: domain.ClientTypeConfidential, ServiceAccountEnabled: true,
	}
	require.NoError(t, db.Clients.Create(ctx, resourceClient))
	resourceSA := domain.User{ID: "sa-resource", RealmID: realm.ID, Username: "service-account-resource-app", Enabled: true, ClientID: &resourceClient.ID}
	require.NoError(t, db.Users.Create(ctx, resourceSA))

	introspector := domain.Client{
		ID: "client-2", RealmID: realm.ID, ClientID: "introspector-app", Enabled: true,
		Secret: "introspectorsecret", ClientType: domain.ClientTypeConfidential, ServiceAccountEnabled: true,
	}
	require.NoError(t, db.Clients.Create(ctx, introspector))
	introspectorSA := domain.User{ID: "sa-introspector", RealmID: realm.ID, Username: "service-account-introspector-app", Enabled: true, ClientID: &introspector.ID}
	require.NoError(t, db.Users.Create(ctx, introspectorSA))

	if introspectorHasRole {
		role := ports.Role{ID: uuid.NewString(), RealmID: realm.ID, Name: "introspect"}
		require.NoError(t, db.Roles.Create(ctx, role))
		require.NoError(t, db.Roles.AssignToUser(ctx, role.ID, introspectorSA.ID))
	}

	keys := keystore.New(db.KeyPairs)
	tokens := tokenservice.New(keys, ports.SystemClock, db.AccessTokens, db.RefreshTokens, "https://auth.example.com")
	verifier := credential.New(db.Credentials, db.Federation, credential.NewBcryptHasher(), nil)
	sessions := authsession.New(db.AuthSessions, db.Clients, db.RedirectURIs, db.Users, verifier, tokens, scope.DefaultManager(), ports.SystemClock)
	grants := grant.New(db.Clients, db.Users, sessions, verifier, tokens, scope.DefaultManager())

	server := httpapi.NewServer(httpapi.Options{
		Realms: db.Realms, Clients: db.Clients, Users: db.Users, Roles: db.Roles,
		Keys: keys, Tokens: tokens, Sessions: sessions, Grants: grants,
		SessionCookieName: "session", IdentityCookieName: "identity",
		RateLimitRPS: 1000, RateLimitBurst: 1000,
	})
	return httptest.NewServer(server.Router)
}

func mintAccessToken(t *testing.T, ts *httptest.Server, clientID, clientSecret string) string {
	t.Helper()
	resp, err := ts.Client().PostForm(ts.URL+"/realms/acme/protocol/openid-connect/token", url.Values{
		"grant_type":    {"client_credentials"},
		"client_id":     {clientID},
		"client_secret": {clientSecret},
	})
	require.NoError(t, err)
	require.Equal(t, 200, resp.StatusCode)

	var body struct {
		AccessToken string `json:"access_token"`
	}
	require.NoError(t, readJSON(resp, &body))
	require.NotEmpty(t, body.AccessToken)
	return body.AccessToken
}

func TestIntrospect_RejectsClientWithoutIntrospectRole(t *testing.T) {
	ts := newIntrospectTestServer(t, false)
	defer ts.Close()

	accessToken := mintAccessToken(t, ts, "resource-app", "resourcesecret")

	resp, err := ts.Client().PostForm(ts.URL+"/realms/acme/protocol/openid-connect/token/introspect", url.Values{
		"token": {accessToken}, "client_id": {"introspector-app"}, "client_secret": {"introspectorsecret"},
	})
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, 403, resp.StatusCode)
}

func TestIntrospect_ActiveForAuthorizedClient(t *testing.T) {
	ts := newIntrospectTestServer(t, true)
	defer ts.Close()

	accessToken := mintAccessToken(t, ts, "resource-app", "resourcesecret")

	resp, err := ts.Client().PostForm(ts.URL+"/realms/acme/protocol/openid-connect/token/introspect", url.Values{
		"token": {accessToken}, "client_id": {"introspector-app"}, "client_secret": {"introspectorsecret"},
	})
	require.NoError(t, err)
	require.Equal(t, 200, resp.StatusCode)

	var body struct {
		Active   bool   `json:"active"`
		ClientID string `json:"client_id"`
	}
	require.NoError(t, readJSON(resp, &body))
	assert.True(t, body.Active)
	assert.Equal(t, "resource-app", body.ClientID)
}

func TestIntrospect_UnknownTokenIsInactive(t *testing.T) {
	ts := newIntrospectTestServer(t, true)
	defer ts.Close()

	resp, err := ts.Client().PostForm(ts.URL+"/realms/acme/protocol/openid-connect/token/introspect", url.Values{
		"token": {"not-a-real-token"}, "client_id": {"introspector-app"}, "client_secret": {"introspectorsecret"},
	})
	require.NoError(t, err)
	require.Equal(t, 200, resp.StatusCode)

	var body struct {
		Active bool `json:"active"`
	}
	require.NoError(t, readJSON(resp, &body))
	assert.False(t, body.Active)
}

func TestIntrospect_RefreshTokenHint(t *testing.T) {
	ts := newIntrospectTestServer(t, true)
	defer ts.Close()

	resp, err := ts.Client().PostForm(ts.URL+"/realms/acme/protocol/openid-connect/token", url.Values{
		"grant_type": {"client_credentials"}, "client_id": {"resource-app"}, "client_secret": {"resourcesecret"},
	})
	require.NoError(t, err)
	var set struct {
		RefreshToken string `json:"refresh_token"`
	}
	require.NoError(t, readJSON(resp, &set))
	require.NotEmpty(t, set.RefreshToken)

	introspectResp, err := ts.Client().PostForm(ts.URL+"/realms/acme/protocol/openid-connect/token/introspect", url.Values{
		"token": {set.RefreshToken}, "token_type_hint": {"refresh_token"},
		"client_id": {"introspector-app"}, "client_secret": {"introspectorsecret"},
	})
	require.NoError(t, err)

	var body struct {
		Active bool `json:"active"`
	}
	require.NoError(t, readJSON(introspectResp, &body))
	assert.True(t, body.Active)
}
