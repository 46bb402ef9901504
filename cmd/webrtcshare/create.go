package main

import (
	"github.com/spf13/cobra"

	"github.com/spundev/webrtcshare/internal/signaling"
	"github.com/spundev/webrtcshare/internal/transfer"
	"github.com/spundev/webrtcshare/internal/ui"
)

var createCmd = &cobra.Command{
	Use:     "create",
	Aliases: []string{"c"},
	Short:   "Create a room and wait for a peer",
	Long: `Create a new room on the signaling relay and wait for a peer to
join. Share the printed room id with the other side.

Examples:
  webrtcshare create
  webrtcshare create --relay-url wss://relay.example.com/ws`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return createRoom(cmd)
	},
}

func createRoom(cmd *cobra.Command) error {
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

	roomID, err := transport.CreateRoom(ctx)
	if err != nil {
		return transfer.NewError("create room", err)
	}

	ui.PrintInfo("room created, share this id with your peer:")
	ui.PrintRoom(roomID)

	session, manager, err := startSession(ctx, cfg, transport, signaling.RoleInitiator, roomID)
	if err != nil {
		return err
	}
	defer session.Close()

	return chatLoop(ctx, session, manager, peerEvents)
}

func init() {
	rootCmd.AddCommand(createCmd)
}
