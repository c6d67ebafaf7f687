package backend

import (
	"context"
	"path/filepath"
	"testing"

	"bilancio/internal/config"
)

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		config  Config
		wantErr bool
	}{
		{"memory", Config{Type: MemoryBackend}, false},
		{"sqlite", Config{Type: SQLiteBackend, SQLiteDBPath: "data/x.db"}, false},
		{"sqlite without path", Config{Type: SQLiteBackend}, true},
		{"postgres without url", Config{Type: PostgresBackend}, true},
		{"unknown type", Config{Type: "mongo"}, true},
		{"amqp without queue", Config{Type: MemoryBackend, AMQPURL: "amqp://localhost", AMQPExchange: "bilancio"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.config.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestFromAppConfig(t *testing.T) {
	if _, err := FromAppConfig(nil); err == nil {
		t.Error("expected error for nil config")
	}
	if _, err := FromAppConfig(&config.Config{DataBackend: "mongo"}); err == nil {
		t.Error("expected error for unknown backend")
	}

	got, err := FromAppConfig(&config.Config{
		DataBackend:    "postgres",
		PostgresURL:    "postgres://localhost/bilancio",
		MarketYieldURL: "https://yields.example",
	})
	if err != nil {
		t.Fatalf("FromAppConfig() error = %v", err)
	}
	if got.Type != PostgresBackend || got.PostgresURL == "" || got.MarketYieldURL == "" {
		t.Errorf("FromAppConfig() = %+v", got)
	}
}

func TestCreateMemoryBackend(t *testing.T) {
	res, err := NewFactory(nil).CreateBackend(context.Background(), Config{Type: MemoryBackend})
	if err != nil {
		t.Fatalf("CreateBackend() error = %v", err)
	}
	defer res.Cleanup()

	if res.Store == nil {
		t.Fatal("store is nil")
	}
	if res.Events != nil || res.Yields != nil {
		t.Error("optional collaborators should be disabled")
	}
	if err := res.Store.Ping(context.Background()); err != nil {
		t.Errorf("Ping() error = %v", err)
	}
}

func TestCreateSQLiteBackendWithProvider(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "bilancio.db")
	res, err := NewFactory(nil).CreateBackend(context.Background(), Config{
		Type:           SQLiteBackend,
		SQLiteDBPath:   path,
		MarketYieldURL: "http://127.0.0.1:9",
	})
	if err != nil {
		t.Fatalf("CreateBackend() error = %v", err)
	}
	if res.Yields == nil {
		t.Error("market provider not configured")
	}
	if err := res.Cleanup(); err != nil {
		t.Errorf("Cleanup() error = %v", err)
	}
}

func TestCreateBackendRejectsBadProviderURL(t *testing.T) {
	_, err := NewFactory(nil).CreateBackend(context.Background(), Config{
		Type:           MemoryBackend,
		MarketYieldURL: "ftp://yields",
	})
	if err == nil {
		t.Error("expected error for non-http provider url")
	}
}

func TestMigrateSQLiteIsRepeatable(t *testing.T) {
	cfg := Config{Type: SQLiteBackend, SQLiteDBPath: filepath.Join(t.TempDir(), "m.db")}
	first, err := Migrate(context.Background(), cfg)
	if err != nil {
		t.Fatalf("Migrate() error = %v", err)
	}
	second, err := Migrate(context.Background(), cfg)
	if err != nil {
		t.Fatalf("second Migrate() error = %v", err)
	}
	if first == 0 || first != second {
		t.Errorf("versions = %d, %d", first, second)
	}

	if v, err := Migrate(context.Background(), Config{Type: MemoryBackend}); err != nil || v != 0 {
		t.Errorf("memory Migrate() = %d, %v", v, err)
	}
}
