// Package payload builds the enriched record sent for each accepted
// identity event and defines the lookups it needs from the host.
//
// Wire format: a single JSON object with the top-level fields eventId,
// eventType, userId, username, email, firstName, lastName, realmId,
// realmName, clientId, ipAddress, timestamp and sessionId. Unresolved
// strings are sent as "". Configured extra attributes are nested under
// "attributes", which is omitted when no attribute resolved. The layout is
// pinned by Schema.
package payload

import (
	"context"
	"encoding/json"
	"fmt"
	"maps"
)

// SyncPayload is one event plus the resolved realm and user profile.
// It is never modified after Extract returns it.
type SyncPayload struct {
	EventID   string `json:"eventId"`
	EventType string `json:"eventType"`
	UserID    string `json:"userId"`
	Username  string `json:"username"`
	Email     string `json:"email"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	RealmID   string `json:"realmId"`
	RealmName string `json:"realmName"`
	ClientID  string `json:"clientId"`
	IPAddress string `json:"ipAddress"`
	Timestamp int64  `json:"timestamp"`
	SessionID string `json:"sessionId"`

	Attributes map[string]string `json:"attributes,omitempty"`
}

// Attribute returns the resolved extra attribute name.
func (p *SyncPayload) Attribute(name string) (string, bool) {
	v, ok := p.Attributes[name]
	return v, ok
}

// AttributeMap returns a copy of the resolved attributes.
func (p *SyncPayload) AttributeMap() map[string]string {
	return maps.Clone(p.Attributes)
}

// Encode serializes p and checks the result against Schema.
// encoding/json writes map keys in sorted order, so equal payloads always
// encode to identical bytes.
func Encode(p *SyncPayload) ([]byte, error) {
	body, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("payload: marshal: %w", err)
	}
	if err := Validate(body); err != nil {
		return nil, err
	}
	return body, nil
}

// Realm is a tenant namespace.
type Realm struct {
	ID   string
	Name string
}

// User is the profile view needed to build a payload.
type User struct {
	ID        string
	Username  string
	Email     string
	FirstName string
	LastName  string

	// Attributes holds multi-valued profile attributes.
	Attributes map[string][]string
}

// FirstAttribute returns the first value of the named attribute.
func (u *User) FirstAttribute(name string) (string, bool) {
	vals := u.Attributes[name]
	if len(vals) == 0 {
		return "", false
	}
	return vals[0], true
}

// RealmLookup resolves realms by ID. An absent realm is reported as
// (nil, nil) or an error matching ErrNotFound.
type RealmLookup interface {
	Realm(ctx context.Context, realmID string) (*Realm, error)
}

// UserLookup resolves users within a realm. An absent user is reported as
// (nil, nil) or an error matching ErrNotFound.
type UserLookup interface {
	User(ctx context.Context, realm *Realm, userID string) (*User, error)
}

// RealmLookupFunc adapts a function to RealmLookup.
type RealmLookupFunc func(ctx context.Context, realmID string) (*Realm, error)

// Realm implements RealmLookup.
func (f RealmLookupFunc) Realm(ctx context.Context, realmID string) (*Realm, error) {
	return f(ctx, realmID)
}

// UserLookupFunc adapts a function to UserLookup.
type UserLookupFunc func(ctx context.Context, realm *Realm, userID string) (*User, error)

// User implements UserLookup.
func (f UserLookupFunc) User(ctx context.Context, realm *Realm, userID string) (*User, error) {
	return f(ctx, realm, userID)
}
