package main

import (
	"context"
	"os"
	"os/signal"
	"time"

	"github.com/spf13/cobra"

	"github.com/spundev/webrtcshare/internal/ui"
	"github.com/spundev/webrtcshare/internal/version"
)

var (
	flagTransport    string
	flagRelayURL     string
	flagRedisAddr    string
	flagSTUN         string
	flagChunkSize    int
	flagStallTimeout time.Duration
	flagDownloadDir  string
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:     "webrtcshare",
	Short:   "Peer-to-peer chat and file sharing over WebRTC data channels",
	Long: `webrtcshare connects two peers directly with WebRTC: a relay server
carries only the negotiation messages, then chat and files flow peer to
peer over data channels. Create a room on one machine, join it from the
other.`,
	Version: version.Version,
}

// Execute adds all child commands to the root command and sets flags
// appropriately. This is called by main.main().
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	rootCmd.SilenceErrors = true
	rootCmd.SilenceUsage = true

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		ui.PrintError(err.Error())
		os.Exit(1)
	}
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&flagTransport, "transport", "relay", "Signaling transport: relay or redis")
	pf.StringVar(&flagRelayURL, "relay-url", "", "Signaling relay websocket URL")
	pf.StringVar(&flagRedisAddr, "redis-addr", "", "Redis address for the redis transport")
	pf.StringVar(&flagSTUN, "stun", "", "Custom STUN server")
	pf.IntVar(&flagChunkSize, "chunk-size", 0, "Transfer chunk size in bytes")
	pf.DurationVar(&flagStallTimeout, "stall-timeout", 0, "Abort transfers with no progress for this long")
	pf.StringVar(&flagDownloadDir, "download-dir", "", "Directory for received files")
}
