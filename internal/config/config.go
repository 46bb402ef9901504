// Package config resolves runtime settings from flags, environment, and
// defaults, in that order.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/spundev/webrtcshare/internal/protocol"
	"github.com/spundev/webrtcshare/internal/transfer"
)

// Default configuration values
const (
	DefaultRelayURL    = "wss://share.spundev.dev/ws"
	DefaultSTUN        = "stun:stun.l.google.com:19302"
	DefaultRedisAddr   = "localhost:6379"
	DefaultDownloadDir = "downloads"
)

// Config holds application configuration
type Config struct {
	// RelayURL is the signaling relay websocket endpoint
	RelayURL string

	// STUNServer for WebRTC candidate discovery
	STUNServer string

	// RedisAddr is used by the redis signaling transport, when selected
	RedisAddr string

	// ChunkSize for outgoing file transfers, bytes
	ChunkSize int

	// StallTimeout bounds transfers that stop making progress
	StallTimeout time.Duration

	// DownloadDir receives incoming files
	DownloadDir string
}

// Options carries CLI flag overrides into Load.
type Options struct {
	RelayURL     string
	STUNServer   string
	RedisAddr    string
	ChunkSize    int
	StallTimeout time.Duration
	DownloadDir  string
}

// Load reads configuration with the following priority:
// 1. CLI flags (passed via Options) - highest priority
// 2. Environment variables
// 3. Hardcoded defaults - lowest priority
func Load(opts Options) (*Config, error) {
	relayURL := opts.RelayURL
	if relayURL == "" {
		relayURL = os.Getenv("RELAY_URL")
	}
	if relayURL == "" {
		relayURL = DefaultRelayURL
	}

	stunServer := opts.STUNServer
	if stunServer == "" {
		stunServer = os.Getenv("STUN_SERVER")
	}
	if stunServer == "" {
		stunServer = DefaultSTUN
	}

	redisAddr := opts.RedisAddr
	if redisAddr == "" {
		redisAddr = os.Getenv("REDIS_ADDR")
	}
	if redisAddr == "" {
		redisAddr = DefaultRedisAddr
	}

	chunkSize := opts.ChunkSize
	if chunkSize == 0 {
		if env := os.Getenv("CHUNK_SIZE"); env != "" {
			n, err := strconv.Atoi(env)
			if err != nil {
				return nil, fmt.Errorf("invalid CHUNK_SIZE %q: %w", env, err)
			}
			chunkSize = n
		}
	}
	if chunkSize == 0 {
		chunkSize = protocol.DefaultChunkSize
	}
	if chunkSize < 0 || chunkSize > protocol.MaxChunkSize {
		return nil, fmt.Errorf("chunk size %d out of range (1..%d)", chunkSize, protocol.MaxChunkSize)
	}

	stallTimeout := opts.StallTimeout
	if stallTimeout == 0 {
		if env := os.Getenv("STALL_TIMEOUT"); env != "" {
			d, err := time.ParseDuration(env)
			if err != nil {
				return nil, fmt.Errorf("invalid STALL_TIMEOUT %q: %w", env, err)
			}
			stallTimeout = d
		}
	}
	if stallTimeout == 0 {
		stallTimeout = transfer.DefaultStallTimeout
	}

	downloadDir := opts.DownloadDir
	if downloadDir == "" {
		downloadDir = os.Getenv("DOWNLOAD_DIR")
	}
	if downloadDir == "" {
		downloadDir = DefaultDownloadDir
	}

	return &Config{
		RelayURL:     relayURL,
		STUNServer:   stunServer,
		RedisAddr:    redisAddr,
		ChunkSize:    chunkSize,
		StallTimeout: stallTimeout,
		DownloadDir:  downloadDir,
	}, nil
}

// STUNServers returns the configured STUN URLs.
func (c *Config) STUNServers() []string {
	return []string{c.STUNServer}
}
