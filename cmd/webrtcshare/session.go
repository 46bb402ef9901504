package main

import (
	"bufio"
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/redis/go-redis/v9"

	"github.com/spundev/webrtcshare/internal/config"
	"github.com/spundev/webrtcshare/internal/relay"
	"github.com/spundev/webrtcshare/internal/rtc"
	"github.com/spundev/webrtcshare/internal/signaling"
	"github.com/spundev/webrtcshare/internal/transfer"
	"github.com/spundev/webrtcshare/internal/ui"
)

func loadConfig() (*config.Config, error) {
	return config.Load(config.Options{
		RelayURL:     flagRelayURL,
		STUNServer:   flagSTUN,
		RedisAddr:    flagRedisAddr,
		ChunkSize:    flagChunkSize,
		StallTimeout: flagStallTimeout,
		DownloadDir:  flagDownloadDir,
	})
}

// dialTransport connects the signaling transport selected by --transport.
// The peer-events channel is nil for transports without membership
// notifications; selecting on a nil channel just never fires.
func dialTransport(cfg *config.Config) (signaling.Transport, <-chan string, func(), error) {
	switch flagTransport {
	case "redis":
		client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		t := signaling.NewRedisTransport(client, slog.Default())
		return t, nil, func() { client.Close() }, nil

	case "relay", "":
		t, err := signaling.NewRelayTransport(cfg.RelayURL)
		if err != nil {
			return nil, nil, nil, transfer.NewError("connect to relay", err)
		}
		return t, t.PeerEvents(), t.Close, nil

	default:
		return nil, nil, nil, fmt.Errorf("unknown transport %q (want relay or redis)", flagTransport)
	}
}

// joinTransportRoom performs the transport-specific join step. The relay
// tracks membership server side; redis rooms are plain key prefixes, so
// knowing the room id is joining.
func joinTransportRoom(ctx context.Context, t signaling.Transport, roomID string) error {
	if rt, ok := t.(*signaling.RelayTransport); ok {
		return rt.JoinRoom(ctx, roomID)
	}
	return nil
}

// startSession assembles the engine, session, and transfer manager for one
// side of a room.
func startSession(ctx context.Context, cfg *config.Config, transport signaling.Transport, role signaling.Role, roomID string) (*rtc.Session, *transfer.Manager, error) {
	logger := slog.Default().With("room", roomID)

	engine, err := rtc.NewPionEngine(rtc.PionConfig{STUNServers: cfg.STUNServers()}, logger)
	if err != nil {
		return nil, nil, transfer.NewError("create engine", err)
	}

	session := rtc.NewSession(engine, transport, role, roomID, logger)
	if err := session.Start(ctx); err != nil {
		engine.Close()
		return nil, nil, transfer.NewError("start session", err)
	}

	manager := transfer.NewManager(session, transfer.Options{
		ChunkSize:    cfg.ChunkSize,
		StallTimeout: cfg.StallTimeout,
		Sink:         transfer.DirSink{Dir: cfg.DownloadDir},
	}, logger)
	go manager.Run(ctx)

	return session, manager, nil
}

// readLines feeds stdin lines into a channel so the chat loop can select
// over them alongside session events.
func readLines(lines chan<- string) {
	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		lines <- scanner.Text()
	}
	close(lines)
}

func printHelp() {
	ui.PrintInfo("type a message and press enter to chat")
	ui.PrintInfo("/send <path>  send a file")
	ui.PrintInfo("/quit         leave the room")
}

// chatLoop is the interactive session shared by create and join.
func chatLoop(ctx context.Context, session *rtc.Session, manager *transfer.Manager, peerEvents <-chan string) error {
	lines := make(chan string, 1)
	go readLines(lines)

	fmt.Println(ui.MutedStyle.Render(fmt.Sprintf("%s waiting for peer...", ui.IconWaiting)))
	printHelp()

	for {
		select {
		case line, ok := <-lines:
			if !ok {
				return nil
			}
			if err := handleLine(ctx, session, manager, line); err != nil {
				return err
			}
			if line == "/quit" {
				return nil
			}

		case msg := <-session.MessageEvents():
			// File announcements are rendered by the transfer events.
			if !msg.Outgoing && msg.Notice == nil {
				fmt.Printf("%s %s\n",
					ui.PeerStyle.Render("peer>"),
					msg.Value)
			}

		case connected := <-session.States():
			if connected {
				ui.PrintSuccess("peer connected, channel open")
			} else {
				ui.PrintWarning("channel closed")
			}

		case ev := <-manager.Events():
			printTransferEvent(ev)

		case kind := <-peerEvents:
			printPeerEvent(kind)

		case err := <-session.Failures():
			return err

		case <-ctx.Done():
			return nil
		}
	}
}

func handleLine(ctx context.Context, session *rtc.Session, manager *transfer.Manager, line string) error {
	line = strings.TrimSpace(line)
	switch {
	case line == "":
		return nil

	case line == "/quit":
		return nil

	case line == "/help":
		printHelp()
		return nil

	case strings.HasPrefix(line, "/send "):
		path := strings.TrimSpace(strings.TrimPrefix(line, "/send "))
		go func() {
			if err := manager.SendFile(ctx, path); err != nil {
				ui.PrintError(err.Error())
			}
		}()
		return nil

	default:
		if err := session.SendText(line); err != nil {
			if err == rtc.ErrChannelNotReady {
				ui.PrintWarning("peer not connected yet")
				return nil
			}
			return err
		}
		fmt.Printf("%s %s\n", ui.SelfStyle.Render("you>"), line)
		return nil
	}
}

func printTransferEvent(ev transfer.Event) {
	direction := ui.IconSend
	if ev.Incoming {
		direction = ui.IconReceive
	}

	switch ev.Kind {
	case transfer.EventStarted:
		fmt.Printf("%s %s %s (%s)\n", direction, ui.IconFile, ev.Filename, ui.FormatBytes(ev.Total))
	case transfer.EventProgress:
		fmt.Printf("\r%s %s %s", direction, ev.Filename, ui.FormatProgress(ev.Transferred, ev.Total))
	case transfer.EventCompleted:
		fmt.Println()
		if ev.Path != "" {
			ui.PrintSuccessf("received %s -> %s", ev.Filename, ev.Path)
		} else {
			ui.PrintSuccessf("sent %s", ev.Filename)
		}
	case transfer.EventFailed:
		fmt.Println()
		ui.PrintErrorf("transfer %s failed: %v", ev.Filename, ev.Err)
	}
}

func printPeerEvent(kind string) {
	switch kind {
	case relay.MessageTypePeerJoined:
		fmt.Printf("%s %s\n", ui.IconPeer, ui.MutedStyle.Render("peer joined the room"))
	case relay.MessageTypePeerLeft:
		fmt.Printf("%s %s\n", ui.IconPeer, ui.WarningStyle.Render("peer left the room"))
	}
}
