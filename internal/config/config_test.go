package config

import (
	"testing"
	"time"

	"github.com/spundev/webrtcshare/internal/protocol"
	"github.com/spundev/webrtcshare/internal/transfer"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(Options{})
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.RelayURL != DefaultRelayURL {
		t.Errorf("RelayURL = %q", cfg.RelayURL)
	}
	if cfg.ChunkSize != protocol.DefaultChunkSize {
		t.Errorf("ChunkSize = %d", cfg.ChunkSize)
	}
	if cfg.StallTimeout != transfer.DefaultStallTimeout {
		t.Errorf("StallTimeout = %v", cfg.StallTimeout)
	}
	if cfg.DownloadDir != DefaultDownloadDir {
		t.Errorf("DownloadDir = %q", cfg.DownloadDir)
	}
}

func TestLoadFlagBeatsEnv(t *testing.T) {
	t.Setenv("RELAY_URL", "wss://env.example/ws")
	t.Setenv("STUN_SERVER", "stun:env.example:3478")

	cfg, err := Load(Options{RelayURL: "wss://flag.example/ws"})
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.RelayURL != "wss://flag.example/ws" {
		t.Errorf("RelayURL = %q, flag should win", cfg.RelayURL)
	}
	if cfg.STUNServer != "stun:env.example:3478" {
		t.Errorf("STUNServer = %q, env should win over default", cfg.STUNServer)
	}
}

func TestLoadParsesEnvNumbers(t *testing.T) {
	t.Setenv("CHUNK_SIZE", "65536")
	t.Setenv("STALL_TIMEOUT", "45s")

	cfg, err := Load(Options{})
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.ChunkSize != 65536 {
		t.Errorf("ChunkSize = %d", cfg.ChunkSize)
	}
	if cfg.StallTimeout != 45*time.Second {
		t.Errorf("StallTimeout = %v", cfg.StallTimeout)
	}
}

func TestLoadRejectsBadValues(t *testing.T) {
	if _, err := Load(Options{ChunkSize: protocol.MaxChunkSize + 1}); err == nil {
		t.Error("oversized chunk accepted")
	}

	t.Setenv("CHUNK_SIZE", "not-a-number")
	if _, err := Load(Options{}); err == nil {
		t.Error("unparsable CHUNK_SIZE accepted")
	}

	t.Setenv("CHUNK_SIZE", "")
	t.Setenv("STALL_TIMEOUT", "soon")
	if _, err := Load(Options{}); err == nil {
		t.Error("unparsable STALL_TIMEOUT accepted")
	}
}
