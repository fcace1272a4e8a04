// Package memory implements every repository port as an in-memory flat
// struct (spec §9 "Design Notes": "Test doubles are flat structs
// implementing the capability set"). It backs unit and integration tests
// and a no-dependency "dev" run mode for cmd/server.
package memory

import (
	"context"
	"sync"

	"github.com/ferriskey/ferriskey/internal/domain"
	"github.com/ferriskey/ferriskey/internal/ports"
)

// Store is a single in-process database implementing every repository
// port this module defines. All methods are safe for concurrent use.
type Store struct {
	mu sync.RWMutex

	realms       map[string]domain.Realm // by id
	realmsByName map[string]string       // name -> id

	clients         map[string]domain.Client // by id
	clientsByAlias  map[string]string        // realmID|clientID -> id
	redirectURIs    map[string][]domain.RedirectURI

	users           map[string]domain.User
	usersByUsername map[string]string // realmID|username -> id
	usersByEmail    map[string]string // realmID|email -> id

	credentials map[string][]domain.Credential // by userID

	federationMappings map[string]ports.FederationMapping // by userID
	ldapConfigs         map[string]ports.LDAPProviderConfig // by providerID

	authSessions       map[string]domain.AuthSession // by id (= session code)
	authSessionsByCode map[string]string             // code -> session id

	brokerSessions map[string]domain.BrokerAuthSession // by broker state

	identityProviders      map[string]domain.IdentityProvider // by id
	identityProvidersAlias map[string]string                  // realmID|alias -> id

	identityProviderLinks map[string]domain.IdentityProviderLink // by idpID|externalUserID

	keyPairs map[string]domain.JwtKeyPair // by realmID

	refreshTokens map[string]domain.RefreshTokenEntry // by jti
	accessTokens  map[string]domain.AccessTokenEntry  // by token hash

	roles          map[string]ports.Role // by realmID|name
	roleAssignments map[string][]string  // roleID -> []userID
}

// NewStore builds an empty Store.
func NewStore() *Store {
	return &Store{
		realms:                 map[string]domain.Realm{},
		realmsByName:           map[string]string{},
		clients:                map[string]domain.Client{},
		clientsByAlias:         map[string]string{},
		redirectURIs:           map[string][]domain.RedirectURI{},
		users:                  map[string]domain.User{},
		usersByUsername:        map[string]string{},
		usersByEmail:           map[string]string{},
		credentials:            map[string][]domain.Credential{},
		federationMappings:     map[string]ports.FederationMapping{},
		ldapConfigs:            map[string]ports.LDAPProviderConfig{},
		authSessions:           map[string]domain.AuthSession{},
		authSessionsByCode:     map[string]string{},
		brokerSessions:         map[string]domain.BrokerAuthSession{},
		identityProviders:      map[string]domain.IdentityProvider{},
		identityProvidersAlias: map[string]string{},
		identityProviderLinks:  map[string]domain.IdentityProviderLink{},
		keyPairs:               map[string]domain.JwtKeyPair{},
		refreshTokens:          map[string]domain.RefreshTokenEntry{},
		accessTokens:           map[string]domain.AccessTokenEntry{},
		roles:                  map[string]ports.Role{},
		roleAssignments:        map[string][]string{},
	}
}

// --- RealmRepository ---

func (s *Store) GetByID(ctx context.Context, id string) (domain.Realm, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.realms[id]
	if !ok {
		return domain.Realm{}, ports.ErrNotFound
	}
	return r, nil
}

func (s *Store) GetByName(ctx context.Context, name string) (domain.Realm, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.realmsByName[name]
	if !ok {
		return domain.Realm{}, ports.ErrNotFound
	}
	return s.realms[id], nil
}

func (s *Store) CreateRealm(ctx context.Context, realm domain.Realm) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.realmsByName[realm.Name]; ok {
		return ports.ErrDuplicateKey
	}
	s.realms[realm.ID] = realm
	s.realmsByName[realm.Name] = realm.ID
	return nil
}

// RealmView adapts Store to ports.RealmRepository (Create is named
// CreateRealm on Store to avoid colliding with the other entities' Create
// methods on the same receiver).
type RealmView struct{ *Store }

func (v RealmView) Create(ctx context.Context, realm domain.Realm) error { return v.CreateRealm(ctx, realm) }

// --- ClientRepository ---

func clientKey(realmID, clientID string) string { return realmID + "|" + clientID }

func (s *Store) GetClientByID(ctx context.Context, id string) (domain.Client, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.clients[id]
	if !ok {
		return domain.Client{}, ports.ErrNotFound
	}
	return c, nil
}

func (s *Store) GetByClientID(ctx context.Context, realmID, clientID string) (domain.Client, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.clientsByAlias[clientKey(realmID, clientID)]
	if !ok {
		return domain.Client{}, ports.ErrNotFound
	}
	return s.clients[id], nil
}

func (s *Store) CreateClient(ctx context.Context, client domain.Client) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := clientKey(client.RealmID, client.ClientID)
	if _, ok := s.clientsByAlias[key]; ok {
		return ports.ErrDuplicateKey
	}
	s.clients[client.ID] = client
	s.clientsByAlias[key] = client.ID
	return nil
}

// ClientView adapts Store to ports.ClientRepository.
type ClientView struct{ *Store }

func (v ClientView) GetByID(ctx context.Context, id string) (domain.Client, error) {
	return v.GetClientByID(ctx, id)
}
func (v ClientView) GetByClientID(ctx context.Context, realmID, clientID string) (domain.Client, error) {
	return v.Store.GetByClientID(ctx, realmID, clientID)
}
func (v ClientView) Create(ctx context.Context, client domain.Client) error {
	return v.CreateClient(ctx, client)
}

// --- RedirectURIRepository ---

func (s *Store) ListEnabledByClientID(ctx context.Context, clientID string) ([]domain.RedirectURI, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	all := s.redirectURIs[clientID]
	out := make([]domain.RedirectURI, 0, len(all))
	for _, u := range all {
		if u.Enabled {
			out = append(out, u)
		}
	}
	return out, nil
}

func (s *Store) CreateRedirectURI(ctx context.Context, uri domain.RedirectURI) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.redirectURIs[uri.ClientID] = append(s.redirectURIs[uri.ClientID], uri)
	return nil
}

// RedirectURIView adapts Store to ports.RedirectURIRepository.
type RedirectURIView struct{ *Store }

func (v RedirectURIView) Create(ctx context.Context, uri domain.RedirectURI) error {
	return v.CreateRedirectURI(ctx, uri)
}

// --- UserRepository ---

func userKey(realmID, value string) string { return realmID + "|" + value }

func (s *Store) GetUserByID(ctx context.Context, id string) (domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[id]
	if !ok {
		return domain.User{}, ports.ErrNotFound
	}
	return u, nil
}

func (s *Store) GetByUsername(ctx context.Context, realmID, username string) (domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.usersByUsername[userKey(realmID, username)]
	if !ok {
		return domain.User{}, ports.ErrNotFound
	}
	return s.users[id], nil
}

func (s *Store) GetByEmail(ctx context.Context, realmID, email string) (domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.usersByEmail[userKey(realmID, email)]
	if !ok {
		return domain.User{}, ports.ErrNotFound
	}
	return s.users[id], nil
}

func (s *Store) GetServiceAccountUser(ctx context.Context, clientID string) (domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, u := range s.users {
		if u.ClientID != nil && *u.ClientID == clientID {
			return u, nil
		}
	}
	return domain.User{}, ports.ErrNotFound
}

func (s *Store) CreateUser(ctx context.Context, user domain.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[user.ID] = user
	s.usersByUsername[userKey(user.RealmID, user.Username)] = user.ID
	if user.Email != "" {
		s.usersByEmail[userKey(user.RealmID, user.Email)] = user.ID
	}
	return nil
}

func (s *Store) UpdateUser(ctx context.Context, user domain.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[user.ID]; !ok {
		return ports.ErrNotFound
	}
	s.users[user.ID] = user
	s.usersByUsername[userKey(user.RealmID, user.Username)] = user.ID
	if user.Email != "" {
		s.usersByEmail[userKey(user.RealmID, user.Email)] = user.ID
	}
	return nil
}

// UserView adapts Store to ports.UserRepository.
type UserView struct{ *Store }

func (v UserView) GetByID(ctx context.Context, id string) (domain.User, error) { return v.GetUserByID(ctx, id) }
func (v UserView) GetByUsername(ctx context.Context, realmID, username string) (domain.User, error) {
	return v.Store.GetByUsername(ctx, realmID, username)
}
func (v UserView) GetByEmail(ctx context.Context, realmID, email string) (domain.User, error) {
	return v.Store.GetByEmail(ctx, realmID, email)
}
func (v UserView) GetServiceAccountUser(ctx context.Context, clientID string) (domain.User, error) {
	return v.Store.GetServiceAccountUser(ctx, clientID)
}
func (v UserView) Create(ctx context.Context, user domain.User) error { return v.CreateUser(ctx, user) }
func (v UserView) Update(ctx context.Context, user domain.User) error { return v.UpdateUser(ctx, user) }

// --- CredentialRepository ---

func (s *Store) ListByUserID(ctx context.Context, userID string) ([]domain.Credential, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]domain.Credential(nil), s.credentials[userID]...), nil
}

func (s *Store) CreateCredential(ctx context.Context, cred domain.Credential) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.credentials[cred.UserID] = append(s.credentials[cred.UserID], cred)
	return nil
}

// CredentialView adapts Store to ports.CredentialRepository.
type CredentialView struct{ *Store }

func (v CredentialView) Create(ctx context.Context, cred domain.Credential) error {
	return v.CreateCredential(ctx, cred)
}

// --- FederationRepository ---

func (s *Store) GetMappingByUserID(ctx context.Context, userID string) (ports.FederationMapping, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	m, ok := s.federationMappings[userID]
	if !ok {
		return ports.FederationMapping{}, ports.ErrNotFound
	}
	return m, nil
}

func (s *Store) GetLDAPConfig(ctx context.Context, providerID string) (ports.LDAPProviderConfig, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.ldapConfigs[providerID]
	if !ok {
		return ports.LDAPProviderConfig{}, ports.ErrNotFound
	}
	return c, nil
}

func (s *Store) SetFederationMapping(ctx context.Context, mapping ports.FederationMapping) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.federationMappings[mapping.UserID] = mapping
}

func (s *Store) SetLDAPConfig(ctx context.Context, providerID string, cfg ports.LDAPProviderConfig) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ldapConfigs[providerID] = cfg
}

// FederationView adapts Store to ports.FederationRepository.
type FederationView struct{ *Store }

// --- AuthSessionRepository ---

func (s *Store) CreateAuthSession(ctx context.Context, session domain.AuthSession) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.authSessions[session.ID] = session
	return nil
}

func (s *Store) GetBySessionCode(ctx context.Context, sessionCode string) (domain.AuthSession, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sess, ok := s.authSessions[sessionCode]
	if !ok {
		return domain.AuthSession{}, ports.ErrNotFound
	}
	return sess, nil
}

func (s *Store) GetByCode(ctx context.Context, code string) (domain.AuthSession, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.authSessionsByCode[code]
	if !ok {
		return domain.AuthSession{}, ports.ErrNotFound
	}
	return s.authSessions[id], nil
}

func (s *Store) UpdateCodeAndUserID(ctx context.Context, sessionCode, code, userID string) (domain.AuthSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.authSessions[sessionCode]
	if !ok {
		return domain.AuthSession{}, ports.ErrNotFound
	}
	sess.Code = &code
	sess.UserID = &userID
	sess.Authenticated = true
	s.authSessions[sessionCode] = sess
	s.authSessionsByCode[code] = sessionCode
	return sess, nil
}

func (s *Store) DeleteAuthSession(ctx context.Context, sessionCode string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.authSessions, sessionCode)
	return nil
}

// AuthSessionView adapts Store to ports.AuthSessionRepository.
type AuthSessionView struct{ *Store }

func (v AuthSessionView) Create(ctx context.Context, session domain.AuthSession) error {
	return v.CreateAuthSession(ctx, session)
}
func (v AuthSessionView) Delete(ctx context.Context, sessionCode string) error {
	return v.DeleteAuthSession(ctx, sessionCode)
}

// --- BrokerAuthSessionRepository ---

func (s *Store) CreateBrokerSession(ctx context.Context, session domain.BrokerAuthSession) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.brokerSessions[session.BrokerState] = session
	return nil
}

func (s *Store) GetByBrokerState(ctx context.Context, brokerState string) (domain.BrokerAuthSession, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sess, ok := s.brokerSessions[brokerState]
	if !ok {
		return domain.BrokerAuthSession{}, ports.ErrNotFound
	}
	return sess, nil
}

func (s *Store) DeleteBrokerSession(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for state, sess := range s.brokerSessions {
		if sess.ID == id {
			delete(s.brokerSessions, state)
		}
	}
	return nil
}

// BrokerAuthSessionView adapts Store to ports.BrokerAuthSessionRepository.
type BrokerAuthSessionView struct{ *Store }

func (v BrokerAuthSessionView) Create(ctx context.Context, session domain.BrokerAuthSession) error {
	return v.CreateBrokerSession(ctx, session)
}
func (v BrokerAuthSessionView) Delete(ctx context.Context, id string) error {
	return v.DeleteBrokerSession(ctx, id)
}

// --- IdentityProviderRepository ---

func idpKey(realmID, alias string) string { return realmID + "|" + alias }

func (s *Store) GetIdPByAlias(ctx context.Context, realmID, alias string) (domain.IdentityProvider, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.identityProvidersAlias[idpKey(realmID, alias)]
	if !ok {
		return domain.IdentityProvider{}, ports.ErrNotFound
	}
	return s.identityProviders[id], nil
}

func (s *Store) GetIdPByID(ctx context.Context, id string) (domain.IdentityProvider, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	idp, ok := s.identityProviders[id]
	if !ok {
		return domain.IdentityProvider{}, ports.ErrNotFound
	}
	return idp, nil
}

func (s *Store) CreateIdP(ctx context.Context, idp domain.IdentityProvider) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.identityProviders[idp.ID] = idp
	s.identityProvidersAlias[idpKey(idp.RealmID, idp.Alias)] = idp.ID
	return nil
}

// IdentityProviderView adapts Store to ports.IdentityProviderRepository.
type IdentityProviderView struct{ *Store }

func (v IdentityProviderView) GetByAlias(ctx context.Context, realmID, alias string) (domain.IdentityProvider, error) {
	return v.GetIdPByAlias(ctx, realmID, alias)
}
func (v IdentityProviderView) GetByID(ctx context.Context, id string) (domain.IdentityProvider, error) {
	return v.GetIdPByID(ctx, id)
}

// --- IdentityProviderLinkRepository ---

func linkKey(idpID, externalUserID string) string { return idpID + "|" + externalUserID }

func (s *Store) GetLinkByExternalID(ctx context.Context, idpID, externalUserID string) (domain.IdentityProviderLink, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	l, ok := s.identityProviderLinks[linkKey(idpID, externalUserID)]
	if !ok {
		return domain.IdentityProviderLink{}, ports.ErrNotFound
	}
	return l, nil
}

func (s *Store) CreateLink(ctx context.Context, link domain.IdentityProviderLink) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.identityProviderLinks[linkKey(link.IdentityProviderID, link.ExternalUserID)] = link
	return nil
}

func (s *Store) UpdateLinkToken(ctx context.Context, id, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for key, link := range s.identityProviderLinks {
		if link.ID == id {
			link.Token = token
			s.identityProviderLinks[key] = link
			return nil
		}
	}
	return ports.ErrNotFound
}

// IdentityProviderLinkView adapts Store to ports.IdentityProviderLinkRepository.
type IdentityProviderLinkView struct{ *Store }

func (v IdentityProviderLinkView) GetByExternalID(ctx context.Context, idpID, externalUserID string) (domain.IdentityProviderLink, error) {
	return v.GetLinkByExternalID(ctx, idpID, externalUserID)
}
func (v IdentityProviderLinkView) Create(ctx context.Context, link domain.IdentityProviderLink) error {
	return v.CreateLink(ctx, link)
}
func (v IdentityProviderLinkView) UpdateToken(ctx context.Context, id, token string) error {
	return v.UpdateLinkToken(ctx, id, token)
}

// --- KeyPairRepository ---

func (s *Store) GetKeyPairByRealmID(ctx context.Context, realmID string) (domain.JwtKeyPair, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	kp, ok := s.keyPairs[realmID]
	if !ok {
		return domain.JwtKeyPair{}, ports.ErrNotFound
	}
	return kp, nil
}

func (s *Store) CreateKeyPair(ctx context.Context, keyPair domain.JwtKeyPair) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.keyPairs[keyPair.RealmID]; ok {
		return ports.ErrDuplicateKey
	}
	s.keyPairs[keyPair.RealmID] = keyPair
	return nil
}

// KeyPairView adapts Store to ports.KeyPairRepository.
type KeyPairView struct{ *Store }

func (v KeyPairView) GetByRealmID(ctx context.Context, realmID string) (domain.JwtKeyPair, error) {
	return v.GetKeyPairByRealmID(ctx, realmID)
}
func (v KeyPairView) Create(ctx context.Context, keyPair domain.JwtKeyPair) error {
	return v.CreateKeyPair(ctx, keyPair)
}

// --- RefreshTokenRepository ---

func (s *Store) CreateRefreshToken(ctx context.Context, entry domain.RefreshTokenEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.refreshTokens[entry.Jti] = entry
	return nil
}

func (s *Store) GetRefreshTokenByJti(ctx context.Context, jti string) (domain.RefreshTokenEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.refreshTokens[jti]
	if !ok {
		return domain.RefreshTokenEntry{}, ports.ErrNotFound
	}
	return e, nil
}

func (s *Store) DeleteRefreshToken(ctx context.Context, jti string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.refreshTokens[jti]; !ok {
		return ports.ErrNotFound
	}
	delete(s.refreshTokens, jti)
	return nil
}

// RefreshTokenView adapts Store to ports.RefreshTokenRepository.
type RefreshTokenView struct{ *Store }

func (v RefreshTokenView) Create(ctx context.Context, entry domain.RefreshTokenEntry) error {
	return v.CreateRefreshToken(ctx, entry)
}
func (v RefreshTokenView) GetByJti(ctx context.Context, jti string) (domain.RefreshTokenEntry, error) {
	return v.GetRefreshTokenByJti(ctx, jti)
}
func (v RefreshTokenView) Delete(ctx context.Context, jti string) error {
	return v.DeleteRefreshToken(ctx, jti)
}

// --- AccessTokenRepository ---

func (s *Store) CreateAccessToken(ctx context.Context, entry domain.AccessTokenEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.accessTokens[entry.TokenHash] = entry
	return nil
}

func (s *Store) GetAccessTokenByHash(ctx context.Context, tokenHash string) (domain.AccessTokenEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.accessTokens[tokenHash]
	if !ok {
		return domain.AccessTokenEntry{}, ports.ErrNotFound
	}
	return e, nil
}

func (s *Store) RevokeAccessToken(ctx context.Context, tokenHash string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.accessTokens[tokenHash]
	if !ok {
		return ports.ErrNotFound
	}
	e.Revoked = true
	s.accessTokens[tokenHash] = e
	return nil
}

// AccessTokenView adapts Store to ports.AccessTokenRepository.
type AccessTokenView struct{ *Store }

func (v AccessTokenView) Create(ctx context.Context, entry domain.AccessTokenEntry) error {
	return v.CreateAccessToken(ctx, entry)
}
func (v AccessTokenView) GetByHash(ctx context.Context, tokenHash string) (domain.AccessTokenEntry, error) {
	return v.GetAccessTokenByHash(ctx, tokenHash)
}
func (v AccessTokenView) Revoke(ctx context.Context, tokenHash string) error {
	return v.RevokeAccessToken(ctx, tokenHash)
}

// --- RoleRepository ---

func roleKey(realmID, name string) string { return realmID + "|" + name }

func (s *Store) GetRoleByName(ctx context.Context, realmID, name string) (ports.Role, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.roles[roleKey(realmID, name)]
	if !ok {
		return ports.Role{}, ports.ErrNotFound
	}
	return r, nil
}

func (s *Store) CreateRole(ctx context.Context, role ports.Role) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.roles[roleKey(role.RealmID, role.Name)] = role
	return nil
}

func (s *Store) AssignRoleToUser(ctx context.Context, roleID, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.roleAssignments[roleID] = append(s.roleAssignments[roleID], userID)
	return nil
}

func (s *Store) UserHasRole(ctx context.Context, realmID, userID, roleName string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	role, ok := s.roles[roleKey(realmID, roleName)]
	if !ok {
		return false, nil
	}
	for _, assigned := range s.roleAssignments[role.ID] {
		if assigned == userID {
			return true, nil
		}
	}
	return false, nil
}

// RoleView adapts Store to ports.RoleRepository.
type RoleView struct{ *Store }

func (v RoleView) GetByName(ctx context.Context, realmID, name string) (ports.Role, error) {
	return v.GetRoleByName(ctx, realmID, name)
}
func (v RoleView) Create(ctx context.Context, role ports.Role) error { return v.CreateRole(ctx, role) }
func (v RoleView) AssignToUser(ctx context.Context, roleID, userID string) error {
	return v.AssignRoleToUser(ctx, roleID, userID)
}
func (v RoleView) UserHasRole(ctx context.Context, realmID, userID, roleName string) (bool, error) {
	return v.Store.UserHasRole(ctx, realmID, userID, roleName)
}

// Views bundles every port-shaped view over a single Store, for wiring
// convenience in cmd/server.
type Views struct {
	Realms               RealmView
	Clients              ClientView
	RedirectURIs         RedirectURIView
	Users                UserView
	Credentials          CredentialView
	Federation           FederationView
	AuthSessions         AuthSessionView
	BrokerAuthSessions   BrokerAuthSessionView
	IdentityProviders    IdentityProviderView
	IdentityProviderLink IdentityProviderLinkView
	KeyPairs             KeyPairView
	RefreshTokens        RefreshTokenView
	AccessTokens         AccessTokenView
	Roles                RoleView
}

// NewViews builds every view over a fresh Store.
func NewViews() Views {
	store := NewStore()
	return Views{
		Realms:               RealmView{store},
		Clients:              ClientView{store},
		RedirectURIs:         RedirectURIView{store},
		Users:                UserView{store},
		Credentials:          CredentialView{store},
		Federation:           FederationView{store},
		AuthSessions:         AuthSessionView{store},
		BrokerAuthSessions:   BrokerAuthSessionView{store},
		IdentityProviders:    IdentityProviderView{store},
		IdentityProviderLink: IdentityProviderLinkView{store},
		KeyPairs:             KeyPairView{store},
		RefreshTokens:        RefreshTokenView{store},
		AccessTokens:         AccessTokenView{store},
		Roles:                RoleView{store},
	}
}
