package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/spundev/webrtcshare/internal/rtc"
	"github.com/spundev/webrtcshare/internal/signaling"
	"github.com/spundev/webrtcshare/internal/transfer"
	"github.com/spundev/webrtcshare/internal/ui"
)

var flagLocalFile string

var localCmd = &cobra.Command{
	Use:   "local",
	Short: "Negotiate two peers inside this process (smoke test)",
	Long: `Run both sides of a session in one process over an in-memory
signaling bus. No relay or network is needed; with --file a real transfer
runs between the two loopback peers.

Examples:
  webrtcshare local
  webrtcshare local --file ./archive.zip`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runLocal(cmd)
	},
}

func runLocal(cmd *cobra.Command) error {
	ctx, cancel := context.WithTimeout(cmd.Context(), 2*time.Minute)
	defer cancel()

	cfg, err := loadConfig()
	if err != nil {
		return transfer.NewError("load config", err)
	}

	bus := signaling.NewBus()
	roomID, err := bus.CreateRoom(ctx)
	if err != nil {
		return transfer.NewError("create room", err)
	}
	ui.PrintInfof("loopback room %s", roomID)

	// The responder subscribes first so it replays nothing; the initiator's
	// offer then lands live.
	responder, respManager, err := startSession(ctx, cfg, bus, signaling.RoleResponder, roomID)
	if err != nil {
		return err
	}
	defer responder.Close()

	initiator, initManager, err := startSession(ctx, cfg, bus, signaling.RoleInitiator, roomID)
	if err != nil {
		return err
	}
	defer initiator.Close()

	if err := awaitConnected(ctx, initiator.States()); err != nil {
		return err
	}
	if err := awaitConnected(ctx, responder.States()); err != nil {
		return err
	}
	ui.PrintSuccess("both loopback peers connected")

	if err := initiator.SendText("hello from the initiator"); err != nil {
		return transfer.NewError("send text", err)
	}
	msg := awaitMessage(ctx, responder.MessageEvents())
	if msg == "" {
		return fmt.Errorf("responder never received the greeting")
	}
	ui.PrintSuccessf("responder received: %q", msg)

	if flagLocalFile == "" {
		return nil
	}

	done := make(chan transfer.Event, 1)
	go watchCompletion(ctx, respManager.Events(), done)

	if err := initManager.SendFile(ctx, flagLocalFile); err != nil {
		return err
	}

	select {
	case ev := <-done:
		if ev.Err != nil {
			return ev.Err
		}
		ui.PrintSuccessf("loopback transfer complete: %s", ev.Path)
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func awaitConnected(ctx context.Context, states <-chan bool) error {
	for {
		select {
		case connected := <-states:
			if connected {
				return nil
			}
		case <-ctx.Done():
			return fmt.Errorf("peers never connected: %w", ctx.Err())
		}
	}
}

func awaitMessage(ctx context.Context, messages <-chan rtc.ChatMessage) string {
	for {
		select {
		case msg := <-messages:
			if !msg.Outgoing {
				return msg.Value
			}
		case <-ctx.Done():
			return ""
		}
	}
}

func watchCompletion(ctx context.Context, events <-chan transfer.Event, done chan<- transfer.Event) {
	for {
		select {
		case ev := <-events:
			switch ev.Kind {
			case transfer.EventCompleted:
				if ev.Incoming {
					done <- ev
					return
				}
			case transfer.EventFailed:
				done <- ev
				return
			}
		case <-ctx.Done():
			return
		}
	}
}

func init() {
	rootCmd.AddCommand(localCmd)
	localCmd.Flags().StringVarP(&flagLocalFile, "file", "f", "", "File to transfer across the loopback pair")
}
