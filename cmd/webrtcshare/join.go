package main

import (
	"github.com/spf13/cobra"

	"github.com/spundev/webrtcshare/internal/signaling"
	"github.com/spundev/webrtcshare/internal/transfer"
	"github.com/spundev/webrtcshare/internal/ui"
)

var joinCmd = &cobra.Command{
	Use:     "join <room-id>",
	Aliases: []string{"j"},
	Short:   "Join an existing room",
	Long: `Join a room created by a peer. Negotiation starts as soon as the
relay accepts the join.

Examples:
  webrtcshare join 2f9c1e4a-77b3-4b41-9c62-d10f8a6f2c3e`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return joinRoom(cmd, args[0])
	},
}

func joinRoom(cmd *cobra.Command, roomID string) error {
	ctx := cmd.Context()

	cfg, err := loadConfig()
	if err != nil {
		return transfer.NewError("load config", err)
	}

	transport, peerEvents, closeTransport, err := dialTransport(cfg)
	if err != nil {
		return err
	}
	defer closeTransport()

	// Subscribe happens inside startSession after the join, and the relay
	// replays the initiator's backlog on join, so nothing is lost.
	if err := joinTransportRoom(ctx, transport, roomID); err != nil {
		return transfer.NewError("join room", err)
	}
	ui.PrintSuccessf("joined room %s", roomID)

	session, manager, err := startSession(ctx, cfg, transport, signaling.RoleResponder, roomID)
	if err != nil {
		return err
	}
	defer session.Close()

	return chatLoop(ctx, session, manager, peerEvents)
}

func init() {
	rootCmd.AddCommand(joinCmd)
}
