package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeTempFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "watcher.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write temp config: %v", err)
	}
	return path
}

func TestLoad(t *testing.T) {
	yaml := `
instance:
  id: test-watcher
node:
  ws_url: ws://localhost:8546
subscription:
  address: "0x00000000000000000000000000000000000000aa"
  topics:
    - "0xddf252ad1be2c89b69c2b068fc378daa952ba7f163c4a11628f55a4df523b3ef"
listener:
  keepalive_interval: 30s
  probe_timeout: 5s
`
	path := writeTempFile(t, yaml)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Instance.ID != "test-watcher" {
		t.Errorf("Instance.ID = %q, want %q", cfg.Instance.ID, "test-watcher")
	}
	if cfg.Node.WSURL != "ws://localhost:8546" {
		t.Errorf("Node.WSURL = %q", cfg.Node.WSURL)
	}
	if cfg.Subscription.Address != "0x00000000000000000000000000000000000000aa" {
		t.Errorf("Subscription.Address = %q", cfg.Subscription.Address)
	}
	if len(cfg.Subscription.Topics) != 1 {
		t.Errorf("len(Topics) = %d, want 1", len(cfg.Subscription.Topics))
	}
	if cfg.Listener.KeepAliveInterval != 30*time.Second {
		t.Errorf("KeepAliveInterval = %v, want 30s", cfg.Listener.KeepAliveInterval)
	}
	if cfg.Listener.ProbeTimeout != 5*time.Second {
		t.Errorf("ProbeTimeout = %v, want 5s", cfg.Listener.ProbeTimeout)
	}
	if cfg.Database != nil {
		t.Error("Database should be nil when the block is absent")
	}
}

func TestLoadWithEnvSubstitution(t *testing.T) {
	t.Setenv("TEST_DB_PASSWORD", "secret123")

	yaml := `
instance:
  id: test-watcher
node:
  ws_url: ws://localhost:8546
database:
  host: localhost
  name: cryptit
  user: watcher
  password: ${TEST_DB_PASSWORD}
`
	path := writeTempFile(t, yaml)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Database == nil {
		t.Fatal("Database block missing")
	}
	if cfg.Database.Password != "secret123" {
		t.Errorf("Database.Password = %q, want %q", cfg.Database.Password, "secret123")
	}
}

func TestLoadWithDefaults(t *testing.T) {
	yaml := `
instance:
  id: test-watcher
node:
  ws_url: wss://mainnet.example.io/ws
database:
  host: localhost
  name: cryptit
  user: watcher
`
	path := writeTempFile(t, yaml)

	cfg, err := LoadWithDefaults(path)
	if err != nil {
		t.Fatalf("LoadWithDefaults failed: %v", err)
	}

	if cfg.Node.SubscribeMethod != DefaultSubscribeMethod {
		t.Errorf("SubscribeMethod = %q, want %q", cfg.Node.SubscribeMethod, DefaultSubscribeMethod)
	}
	if cfg.Node.LivenessMethod != DefaultLivenessMethod {
		t.Errorf("LivenessMethod = %q, want %q", cfg.Node.LivenessMethod, DefaultLivenessMethod)
	}
	if cfg.Listener.KeepAliveInterval != DefaultKeepAliveInterval {
		t.Errorf("KeepAliveInterval = %v, want %v", cfg.Listener.KeepAliveInterval, DefaultKeepAliveInterval)
	}
	if cfg.Listener.ReconnectBaseDelay != DefaultReconnectBaseDelay {
		t.Errorf("ReconnectBaseDelay = %v, want %v", cfg.Listener.ReconnectBaseDelay, DefaultReconnectBaseDelay)
	}
	if cfg.Database.Port != DefaultDBPort {
		t.Errorf("Database.Port = %d, want %d", cfg.Database.Port, DefaultDBPort)
	}
	if cfg.Database.SSLMode != DefaultDBSSLMode {
		t.Errorf("Database.SSLMode = %q, want %q", cfg.Database.SSLMode, DefaultDBSSLMode)
	}
	if cfg.Database.ConnectTimeout != DefaultDBConnectTimeout {
		t.Errorf("Database.ConnectTimeout = %d, want %d", cfg.Database.ConnectTimeout, DefaultDBConnectTimeout)
	}
	if cfg.Writer.BatchSize != DefaultBatchSize {
		t.Errorf("Writer.BatchSize = %d, want %d", cfg.Writer.BatchSize, DefaultBatchSize)
	}
}

func TestLoadAndValidate_Errors(t *testing.T) {
	tests := []struct {
		name    string
		yaml    string
		wantErr string
	}{
		{
			name:    "missing instance id",
			yaml:    "node:\n  ws_url: ws://localhost:8546\n",
			wantErr: "instance.id",
		},
		{
			name:    "missing ws url",
			yaml:    "instance:\n  id: w1\n",
			wantErr: "node.ws_url",
		},
		{
			name:    "wrong scheme",
			yaml:    "instance:\n  id: w1\nnode:\n  ws_url: https://example.io\n",
			wantErr: "ws or wss",
		},
		{
			name:    "incomplete database",
			yaml:    "instance:\n  id: w1\nnode:\n  ws_url: ws://localhost:8546\ndatabase:\n  host: localhost\n",
			wantErr: "database.name",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeTempFile(t, tt.yaml)
			_, err := LoadAndValidate(path)
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error = %v, want mention of %q", err, tt.wantErr)
			}
		})
	}
}

func TestLoad_FileMissing(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
}
