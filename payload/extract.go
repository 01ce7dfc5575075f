package payload

import (
	"context"
	"errors"
	"fmt"

	"github.com/xraph/usersync/config"
	"github.com/xraph/usersync/event"
)

// Extract resolves the realm and user behind evt and builds its payload.
//
// A missing realm yields ErrRealmNotFound without consulting users; a
// missing user yields ErrUserNotFound. Any other lookup error, and any panic
// raised by a lookup, is returned as *ExtractionError. Extract has no side
// effects beyond the lookups.
func Extract(ctx context.Context, evt event.RawEvent, realms RealmLookup, users UserLookup, cfg config.Config) (p *SyncPayload, err error) {
	defer func() {
		if r := recover(); r != nil {
			p = nil
			err = &ExtractionError{EventID: evt.ID, Cause: fmt.Errorf("panic: %v", r)}
		}
	}()

	realm, err := realms.Realm(ctx, evt.RealmID)
	switch {
	case errors.Is(err, ErrNotFound), err == nil && realm == nil:
		return nil, fmt.Errorf("%w: %s", ErrRealmNotFound, evt.RealmID)
	case err != nil:
		return nil, &ExtractionError{EventID: evt.ID, Cause: err}
	}

	user, err := users.User(ctx, realm, evt.UserID)
	switch {
	case errors.Is(err, ErrNotFound), err == nil && user == nil:
		return nil, fmt.Errorf("%w: %s", ErrUserNotFound, evt.UserID)
	case err != nil:
		return nil, &ExtractionError{EventID: evt.ID, Cause: err}
	}

	p = &SyncPayload{
		EventID:   evt.ID,
		EventType: string(evt.Type),
		UserID:    user.ID,
		Username:  user.Username,
		Email:     user.Email,
		FirstName: user.FirstName,
		LastName:  user.LastName,
		RealmID:   evt.RealmID,
		RealmName: realm.Name,
		ClientID:  evt.ClientID,
		IPAddress: evt.IPAddress,
		Timestamp: evt.Time,
		SessionID: evt.SessionID,
	}

	for _, name := range cfg.ExtraAttributes {
		v, ok := user.FirstAttribute(name)
		if !ok {
			continue
		}
		if p.Attributes == nil {
			p.Attributes = make(map[string]string, len(cfg.ExtraAttributes))
		}
		p.Attributes[name] = v
	}

	return p, nil
}
