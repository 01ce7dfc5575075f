// Package event defines the identity lifecycle notifications the host
// raises and the event-type vocabulary used by filters.
package event

import "strings"

// Type is an identity event type name, e.g. "LOGIN".
type Type string

// Known identity event types.
const (
	Login                Type = "LOGIN"
	LoginError           Type = "LOGIN_ERROR"
	Register             Type = "REGISTER"
	RegisterError        Type = "REGISTER_ERROR"
	Logout               Type = "LOGOUT"
	LogoutError          Type = "LOGOUT_ERROR"
	CodeToToken          Type = "CODE_TO_TOKEN"
	ClientLogin          Type = "CLIENT_LOGIN"
	RefreshToken         Type = "REFRESH_TOKEN"
	UpdateProfile        Type = "UPDATE_PROFILE"
	UpdateEmail          Type = "UPDATE_EMAIL"
	UpdatePassword       Type = "UPDATE_PASSWORD"
	UpdateTOTP           Type = "UPDATE_TOTP"
	RemoveTOTP           Type = "REMOVE_TOTP"
	VerifyEmail          Type = "VERIFY_EMAIL"
	SendVerifyEmail      Type = "SEND_VERIFY_EMAIL"
	SendResetPassword    Type = "SEND_RESET_PASSWORD"
	ResetPassword        Type = "RESET_PASSWORD"
	DeleteAccount        Type = "DELETE_ACCOUNT"
	IdentityProviderLink Type = "IDENTITY_PROVIDER_LINK_ACCOUNT"
	FederatedLink        Type = "FEDERATED_IDENTITY_LINK"
	Impersonate          Type = "IMPERSONATE"
	GrantConsent         Type = "GRANT_CONSENT"
	RevokeGrant          Type = "REVOKE_GRANT"
)

var known = map[Type]struct{}{
	Login: {}, LoginError: {}, Register: {}, RegisterError: {},
	Logout: {}, LogoutError: {}, CodeToToken: {}, ClientLogin: {},
	RefreshToken: {}, UpdateProfile: {}, UpdateEmail: {}, UpdatePassword: {},
	UpdateTOTP: {}, RemoveTOTP: {}, VerifyEmail: {}, SendVerifyEmail: {},
	SendResetPassword: {}, ResetPassword: {}, DeleteAccount: {},
	IdentityProviderLink: {}, FederatedLink: {}, Impersonate: {},
	GrantConsent: {}, RevokeGrant: {},
}

// ParseType maps a case-insensitive name to a known Type.
// ok is false for blank or unrecognized names.
func ParseType(s string) (t Type, ok bool) {
	t = Type(strings.ToUpper(strings.TrimSpace(s)))
	_, ok = known[t]
	return t, ok
}

// Known reports whether t is part of the recognized vocabulary.
func (t Type) Known() bool {
	_, ok := known[t]
	return ok
}

// RawEvent is one identity event as raised by the host. It is read-only input.
type RawEvent struct {
	ID        string `json:"id"`
	Type      Type   `json:"type"`
	UserID    string `json:"userId"`
	ClientID  string `json:"clientId"`
	RealmID   string `json:"realmId"`
	IPAddress string `json:"ipAddress"`
	// Time is the event time in milliseconds since the Unix epoch.
	Time      int64  `json:"time"`
	SessionID string `json:"sessionId"`
}
