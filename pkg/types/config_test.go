package types

import (
	"errors"
	"path/filepath"
	"testing"
)

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		config  Config
		wantErr error
	}{
		{
			name:    "empty backend returns ErrBackendEmpty",
			config:  Config{Backend: "", DataDir: "/tmp/data"},
			wantErr: ErrBackendEmpty,
		},
		{
			name:    "unknown backend returns ErrBackendUnknown",
			config:  Config{Backend: "postgres", DataDir: "/tmp/data"},
			wantErr: ErrBackendUnknown,
		},
		{
			name:    "valid sqlite config",
			config:  Config{Backend: "sqlite", DataDir: "/tmp/data"},
			wantErr: nil,
		},
		{
			name:    "sqlite with empty DataDir is valid and in memory",
			config:  Config{Backend: "sqlite", DataDir: ""},
			wantErr: nil,
		},
		{
			name:    "network database URL is rejected",
			config:  Config{Backend: "sqlite", DatabaseURL: "postgres://localhost/db"},
			wantErr: ErrDatabaseURLInvalid,
		},
		{
			name:    "sqlite3 URL without a path is rejected",
			config:  Config{Backend: "sqlite", DatabaseURL: "sqlite3:"},
			wantErr: ErrDatabaseURLInvalid,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.config.Validate()
			if tt.wantErr == nil {
				if err != nil {
					t.Fatalf("expected nil error, got %v", err)
				}
				return
			}
			if err == nil {
				t.Fatalf("expected error %v, got nil", tt.wantErr)
			}
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("expected error %v, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestConfigDSN(t *testing.T) {
	tests := []struct {
		name   string
		config Config
		want   string
	}{
		{"empty config is in memory", Config{}, MemoryDSN},
		{"data dir yields database file", Config{DataDir: "/var/lookup"}, filepath.Join("/var/lookup", DatabaseFileName)},
		{"sqlite3 memory URL", Config{DataDir: "/ignored", DatabaseURL: "sqlite3::memory:"}, MemoryDSN},
		{"sqlite3 path URL", Config{DatabaseURL: "sqlite3:/tmp/x.db"}, "/tmp/x.db"},
		{"sqlite URL with slashes", Config{DatabaseURL: "sqlite:///tmp/y.db"}, "/tmp/y.db"},
		{"file URI passes through", Config{DatabaseURL: "file:z.db?cache=shared"}, "file:z.db?cache=shared"},
		{"bare path", Config{DatabaseURL: "data.db"}, "data.db"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.config.DSN()
			if err != nil {
				t.Fatalf("DSN: %v", err)
			}
			if got != tt.want {
				t.Errorf("DSN() = %q, want %q", got, tt.want)
			}
		})
	}

	if !(Config{DatabaseURL: "sqlite3::memory:"}).InMemory() {
		t.Error("sqlite3::memory: should be in memory")
	}
	if (Config{DataDir: "/tmp"}).InMemory() {
		t.Error("data dir config should not be in memory")
	}
}
