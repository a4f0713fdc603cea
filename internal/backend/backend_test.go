package backend

import (
	"context"
	"path/filepath"
	"testing"

	"caisse/internal/changefeed"
	"caisse/internal/config"
	"caisse/internal/remote"
)

func TestBackendType_IsValid(t *testing.T) {
	for _, bt := range GetBackendTypes() {
		if !bt.IsValid() {
			t.Errorf("%s should be valid", bt)
		}
	}
	if BackendType("sheets").IsValid() {
		t.Error("sheets is not a remote store")
	}
}

func TestFromAppConfig(t *testing.T) {
	if _, err := FromAppConfig(nil); err == nil {
		t.Fatal("expected error for nil config")
	}
	if _, err := FromAppConfig(&config.Config{DataBackend: "postgres"}); err == nil {
		t.Fatal("expected error for unknown backend")
	}
	cfg, err := FromAppConfig(&config.Config{
		DataBackend:      "sqlite",
		SQLiteDBPath:     "/tmp/x.db",
		AMQPURL:          "amqp://localhost/",
		AMQPExchange:     "caisse",
		AMQPDialAttempts: 3,
	})
	if err != nil {
		t.Fatal(err)
	}
	want := Config{Type: SQLiteBackend, SQLiteDBPath: "/tmp/x.db", AMQPURL: "amqp://localhost/", AMQPExchange: "caisse", AMQPDialAttempts: 3}
	if cfg != want {
		t.Fatalf("expected %+v, got %+v", want, cfg)
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		config  Config
		wantErr bool
	}{
		{"memory", Config{Type: MemoryBackend}, false},
		{"sqlite", Config{Type: SQLiteBackend, SQLiteDBPath: "x.db"}, false},
		{"sqlite without path", Config{Type: SQLiteBackend}, true},
		{"amqp without exchange", Config{Type: MemoryBackend, AMQPURL: "amqp://localhost/"}, true},
		{"unknown type", Config{Type: "redis"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.config.Validate(); (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestCreateBackend(t *testing.T) {
	ctx := context.Background()
	configs := []Config{
		{Type: MemoryBackend},
		{Type: SQLiteBackend, SQLiteDBPath: filepath.Join(t.TempDir(), "caisse.db")},
	}
	for _, cfg := range configs {
		t.Run(cfg.Type.String(), func(t *testing.T) {
			res, err := NewFactory(nil).CreateBackend(ctx, cfg)
			if err != nil {
				t.Fatalf("CreateBackend: %v", err)
			}
			defer func() {
				if err := res.Cleanup(); err != nil {
					t.Errorf("cleanup: %v", err)
				}
			}()
			if _, ok := res.Feed.(*changefeed.Local); !ok {
				t.Fatalf("expected in-process feed, got %T", res.Feed)
			}

			changed := 0
			sub, err := res.Store.Subscribe(remote.Clients, func() { changed++ })
			if err != nil {
				t.Fatal(err)
			}
			defer sub.Unsubscribe()

			rec, err := res.Store.Insert(ctx, remote.Clients, remote.Record{"name": "Chez Awa", "type": "restaurant"})
			if err != nil {
				t.Fatalf("insert: %v", err)
			}
			if rec.ID() == "" || changed != 1 {
				t.Fatalf("expected id and one notification, got %q and %d", rec.ID(), changed)
			}
		})
	}
}

func TestCreateBackend_Invalid(t *testing.T) {
	if _, err := NewFactory(nil).CreateBackend(context.Background(), Config{Type: SQLiteBackend}); err == nil {
		t.Fatal("expected error")
	}
}
