package filter

import (
	"testing"

	"github.com/xraph/usersync/config"
	"github.com/xraph/usersync/event"
)

func cfgWith(eventTypes, clients string) config.Config {
	return config.FromMap(map[string]string{
		config.KeyEventTypes: eventTypes,
		config.KeyClientIDs:  clients,
	})
}

func TestEvaluate(t *testing.T) {
	tests := []struct {
		name   string
		types  string
		client string
		evt    event.RawEvent
		want   Reason
	}{
		// Default event types.
		{"default login", "", "", event.RawEvent{Type: event.Login, ClientID: "any"}, Accepted},
		{"default register", "", "", event.RawEvent{Type: event.Register, ClientID: "any"}, Accepted},
		{"default logout", "", "", event.RawEvent{Type: event.Logout}, EventTypeExcluded},
		{"default unknown", "", "", event.RawEvent{Type: "SOMETHING_NEW"}, EventTypeExcluded},
		{"default empty type", "", "", event.RawEvent{}, EventTypeExcluded},

		// Configured event types replace the defaults.
		{"configured match", "update_profile", "", event.RawEvent{Type: event.UpdateProfile}, Accepted},
		{"configured excludes login", "update_profile", "", event.RawEvent{Type: event.Login}, EventTypeExcluded},
		{"only bogus types behaves as default", "bogus", "", event.RawEvent{Type: event.Login}, Accepted},

		// Client filter.
		{"client listed", "", "web,mobile", event.RawEvent{Type: event.Login, ClientID: "web"}, Accepted},
		{"client not listed", "", "web,mobile", event.RawEvent{Type: event.Login, ClientID: "admin"}, ClientExcluded},
		{"client blank with filter", "", "web", event.RawEvent{Type: event.Login}, ClientExcluded},

		// Type is checked before client.
		{"both fail", "login", "web", event.RawEvent{Type: event.Logout, ClientID: "admin"}, EventTypeExcluded},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := cfgWith(tt.types, tt.client)
			got := Evaluate(tt.evt, cfg)
			if got != tt.want {
				t.Fatalf("Evaluate() = %s, want %s", got, tt.want)
			}
			if ShouldDispatch(tt.evt, cfg) != (tt.want == Accepted) {
				t.Fatal("ShouldDispatch disagrees with Evaluate")
			}
		})
	}
}

func TestShouldDispatchEveryClientWhenUnfiltered(t *testing.T) {
	cfg := config.Default()
	for _, client := range []string{"", "web", "mobile", "☃"} {
		if !ShouldDispatch(event.RawEvent{Type: event.Register, ClientID: client}, cfg) {
			t.Fatalf("client %q should pass an empty client filter", client)
		}
	}
}

func TestShouldDispatchZeroConfig(t *testing.T) {
	// A zero Config has nil maps; the filter must still be total.
	var cfg config.Config
	if !ShouldDispatch(event.RawEvent{Type: event.Login}, cfg) {
		t.Fatal("LOGIN should pass with zero config")
	}
	if ShouldDispatch(event.RawEvent{Type: event.Logout}, cfg) {
		t.Fatal("LOGOUT should not pass with zero config")
	}
}

func TestReasonString(t *testing.T) {
	if Accepted.String() != "accepted" || ClientExcluded.String() != "client_excluded" {
		t.Fatal("unexpected reason names")
	}
	if Reason(99).String() != "unknown" {
		t.Fatal("unknown reason should stringify as unknown")
	}
}
