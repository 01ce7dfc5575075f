// Package usersync forwards identity lifecycle events to an external HTTP
// endpoint.
//
// A Syncer receives one event.RawEvent per identity event raised by the
// host. Each event is checked against the realm's event-type and client
// filters, enriched with the realm name and user profile through
// host-supplied lookups, and handed to the realm's delivery engine, which
// posts it as JSON with bounded concurrency and fixed-delay retry. The
// calling goroutine never waits on the network.
//
// Realm configuration is a flat key/value map (see package config) built
// from process-wide defaults with per-realm overrides from a
// tenant.Provider laid over them.
//
// Quick start:
//
//	s, err := usersync.New(
//	    usersync.WithLookups(realms, users),
//	    usersync.WithDefaults(map[string]string{
//	        config.KeyEndpoint: "https://crm.example.com/hooks/users",
//	        config.KeyToken:    token,
//	    }),
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer s.Shutdown(context.Background())
//
//	s.OnEvent(ctx, event.RawEvent{
//	    ID:      "evt_01h...",
//	    Type:    event.Register,
//	    UserID:  "u_123",
//	    RealmID: "acme",
//	})
package usersync
