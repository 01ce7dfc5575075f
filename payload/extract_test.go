package payload

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/xraph/usersync/config"
	"github.com/xraph/usersync/event"
)

var testEvent = event.RawEvent{
	ID:        "evt-1",
	Type:      event.Login,
	UserID:    "u-1",
	ClientID:  "web",
	RealmID:   "r-1",
	IPAddress: "10.0.0.1",
	Time:      1700000000123,
	SessionID: "s-1",
}

func realmsOf(realms ...*Realm) RealmLookup {
	return RealmLookupFunc(func(_ context.Context, id string) (*Realm, error) {
		for _, r := range realms {
			if r.ID == id {
				return r, nil
			}
		}
		return nil, nil
	})
}

func usersOf(users ...*User) UserLookup {
	return UserLookupFunc(func(_ context.Context, _ *Realm, id string) (*User, error) {
		for _, u := range users {
			if u.ID == id {
				return u, nil
			}
		}
		return nil, ErrNotFound
	})
}

func TestExtract(t *testing.T) {
	realms := realmsOf(&Realm{ID: "r-1", Name: "acme"})
	users := usersOf(&User{
		ID:        "u-1",
		Username:  "jdoe",
		Email:     "jdoe@example.com",
		FirstName: "Jane",
		Attributes: map[string][]string{
			"department": {"eng", "ops"},
			"empty":      {},
		},
	})
	cfg := config.FromMap(map[string]string{
		config.KeyExtraAttributes: "department,missing,empty",
	})

	p, err := Extract(context.Background(), testEvent, realms, users, cfg)
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}

	if p.EventID != "evt-1" || p.EventType != "LOGIN" || p.UserID != "u-1" {
		t.Fatalf("unexpected identity fields: %+v", p)
	}
	if p.RealmName != "acme" || p.Username != "jdoe" || p.Email != "jdoe@example.com" {
		t.Fatalf("unexpected resolved fields: %+v", p)
	}
	if p.LastName != "" {
		t.Fatalf("missing last name should be empty, got %q", p.LastName)
	}
	if p.Timestamp != 1700000000123 || p.SessionID != "s-1" || p.IPAddress != "10.0.0.1" {
		t.Fatalf("unexpected event fields: %+v", p)
	}

	if v, ok := p.Attribute("department"); !ok || v != "eng" {
		t.Fatalf("department = %q, %v; want first value eng", v, ok)
	}
	if _, ok := p.Attribute("missing"); ok {
		t.Fatal("absent attribute must be omitted")
	}
	if _, ok := p.Attribute("empty"); ok {
		t.Fatal("attribute with no values must be omitted")
	}
	if len(p.AttributeMap()) != 1 {
		t.Fatalf("expected exactly one attribute, got %v", p.AttributeMap())
	}
}

func TestExtractNoAttributesConfigured(t *testing.T) {
	p, err := Extract(context.Background(), testEvent,
		realmsOf(&Realm{ID: "r-1"}),
		usersOf(&User{ID: "u-1", Attributes: map[string][]string{"x": {"y"}}}),
		config.Default())
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if p.Attributes != nil {
		t.Fatalf("expected nil attributes, got %v", p.Attributes)
	}
}

func TestExtractRealmNotFound(t *testing.T) {
	userCalls := 0
	users := UserLookupFunc(func(context.Context, *Realm, string) (*User, error) {
		userCalls++
		return &User{ID: "u-1"}, nil
	})

	_, err := Extract(context.Background(), testEvent, realmsOf(), users, config.Default())
	if !errors.Is(err, ErrRealmNotFound) {
		t.Fatalf("expected ErrRealmNotFound, got %v", err)
	}
	if !IsRejection(err) {
		t.Fatal("realm not found should be a rejection")
	}
	if userCalls != 0 {
		t.Fatalf("user lookup must not run for a missing realm, ran %d times", userCalls)
	}
}

func TestExtractRealmLookupNotFoundError(t *testing.T) {
	realms := RealmLookupFunc(func(context.Context, string) (*Realm, error) {
		return nil, fmt.Errorf("db: %w", ErrNotFound)
	})
	_, err := Extract(context.Background(), testEvent, realms, usersOf(), config.Default())
	if !errors.Is(err, ErrRealmNotFound) {
		t.Fatalf("expected ErrRealmNotFound, got %v", err)
	}
}

func TestExtractUserNotFound(t *testing.T) {
	_, err := Extract(context.Background(), testEvent, realmsOf(&Realm{ID: "r-1"}), usersOf(), config.Default())
	if !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
	if errors.Is(err, ErrExtractionFailed) {
		t.Fatal("user not found is not an extraction failure")
	}
}

func TestExtractLookupFailure(t *testing.T) {
	boom := errors.New("connection reset")
	realms := RealmLookupFunc(func(context.Context, string) (*Realm, error) {
		return nil, boom
	})

	_, err := Extract(context.Background(), testEvent, realms, usersOf(), config.Default())
	if !errors.Is(err, ErrExtractionFailed) {
		t.Fatalf("expected ErrExtractionFailed, got %v", err)
	}
	if !errors.Is(err, boom) {
		t.Fatal("extraction error should wrap the cause")
	}
	var ee *ExtractionError
	if !errors.As(err, &ee) || ee.EventID != "evt-1" {
		t.Fatalf("expected *ExtractionError for evt-1, got %v", err)
	}
	if IsRejection(err) {
		t.Fatal("lookup failure is not a rejection")
	}
}

func TestExtractRecoversPanic(t *testing.T) {
	users := UserLookupFunc(func(context.Context, *Realm, string) (*User, error) {
		panic("lookup exploded")
	})

	p, err := Extract(context.Background(), testEvent, realmsOf(&Realm{ID: "r-1"}), users, config.Default())
	if p != nil {
		t.Fatal("expected nil payload after panic")
	}
	if !errors.Is(err, ErrExtractionFailed) {
		t.Fatalf("expected ErrExtractionFailed, got %v", err)
	}
}
