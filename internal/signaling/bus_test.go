package signaling

import (
	"context"
	"fmt"
	"testing"
	"time"
)

func textOffer(sdp string) Envelope {
	return NewDescriptionEnvelope(Description{Type: TypeOffer, SDP: sdp})
}

func recvEnvelope(t *testing.T, sub *Subscription) Envelope {
	t.Helper()
	select {
	case env, ok := <-sub.Envelopes():
		if !ok {
			t.Fatal("subscription closed early")
		}
		return env
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for envelope")
		return Envelope{}
	}
}

func TestBusDeliversAcrossRoles(t *testing.T) {
	ctx := context.Background()
	bus := NewBus()
	room, err := bus.CreateRoom(ctx)
	if err != nil {
		t.Fatalf("CreateRoom: %v", err)
	}

	sub, err := bus.Subscribe(ctx, RoleResponder, room)
	if err != nil {
		t.Fatalf("Subscribe: %v", err)
	}
	defer sub.Close()

	if err := bus.Send(ctx, RoleInitiator, room, textOffer("a")); err != nil {
		t.Fatalf("Send: %v", err)
	}

	env := recvEnvelope(t, sub)
	desc, ok := env.Description()
	if !ok || desc.SDP != "a" {
		t.Errorf("got %+v, want offer with sdp %q", env, "a")
	}
}

func TestBusReplaysBacklogToLateSubscriber(t *testing.T) {
	ctx := context.Background()
	bus := NewBus()
	room, _ := bus.CreateRoom(ctx)

	for i := 0; i < 5; i++ {
		if err := bus.Send(ctx, RoleInitiator, room, textOffer(fmt.Sprintf("m%d", i))); err != nil {
			t.Fatalf("Send: %v", err)
		}
	}

	sub, err := bus.Subscribe(ctx, RoleResponder, room)
	if err != nil {
		t.Fatalf("Subscribe: %v", err)
	}
	defer sub.Close()

	for i := 0; i < 5; i++ {
		desc, _ := recvEnvelope(t, sub).Description()
		want := fmt.Sprintf("m%d", i)
		if desc.SDP != want {
			t.Fatalf("backlog[%d] = %q, want %q", i, desc.SDP, want)
		}
	}
}

func TestBusBacklogThenLiveKeepsOrder(t *testing.T) {
	ctx := context.Background()
	bus := NewBus()
	room, _ := bus.CreateRoom(ctx)

	bus.Send(ctx, RoleInitiator, room, textOffer("backlog"))

	sub, _ := bus.Subscribe(ctx, RoleResponder, room)
	defer sub.Close()

	bus.Send(ctx, RoleInitiator, room, textOffer("live"))

	first, _ := recvEnvelope(t, sub).Description()
	second, _ := recvEnvelope(t, sub).Description()
	if first.SDP != "backlog" || second.SDP != "live" {
		t.Errorf("order = %q, %q; want backlog, live", first.SDP, second.SDP)
	}
}

func TestBusFiltersOwnRoleAndOtherRooms(t *testing.T) {
	ctx := context.Background()
	bus := NewBus()
	room, _ := bus.CreateRoom(ctx)
	otherRoom, _ := bus.CreateRoom(ctx)

	sub, _ := bus.Subscribe(ctx, RoleResponder, room)
	defer sub.Close()

	// Messages a responder must never see: its own sends and other rooms.
	bus.Send(ctx, RoleResponder, room, textOffer("own"))
	bus.Send(ctx, RoleInitiator, otherRoom, textOffer("elsewhere"))
	bus.Send(ctx, RoleInitiator, room, textOffer("wanted"))

	desc, _ := recvEnvelope(t, sub).Description()
	if desc.SDP != "wanted" {
		t.Errorf("received %q, want %q", desc.SDP, "wanted")
	}

	select {
	case env := <-sub.Envelopes():
		t.Errorf("unexpected extra envelope: %+v", env)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestBusSubscriptionCloseIsIdempotent(t *testing.T) {
	ctx := context.Background()
	bus := NewBus()
	room, _ := bus.CreateRoom(ctx)

	sub, _ := bus.Subscribe(ctx, RoleResponder, room)
	sub.Close()
	sub.Close()

	// Sends after close must not block or panic.
	if err := bus.Send(ctx, RoleInitiator, room, textOffer("after close")); err != nil {
		t.Fatalf("Send after close: %v", err)
	}

	select {
	case _, ok := <-sub.Envelopes():
		if ok {
			t.Error("received envelope after close")
		}
	case <-time.After(2 * time.Second):
		t.Error("envelope channel never closed")
	}
}

func TestBusConcurrentSendersKeepPerSenderOrder(t *testing.T) {
	ctx := context.Background()
	bus := NewBus()
	room, _ := bus.CreateRoom(ctx)

	subResp, _ := bus.Subscribe(ctx, RoleResponder, room)
	defer subResp.Close()
	subInit, _ := bus.Subscribe(ctx, RoleInitiator, room)
	defer subInit.Close()

	const n = 50
	go func() {
		for i := 0; i < n; i++ {
			bus.Send(ctx, RoleInitiator, room, textOffer(fmt.Sprintf("i%d", i)))
		}
	}()
	go func() {
		for i := 0; i < n; i++ {
			bus.Send(ctx, RoleResponder, room, textOffer(fmt.Sprintf("r%d", i)))
		}
	}()

	for i := 0; i < n; i++ {
		desc, _ := recvEnvelope(t, subResp).Description()
		if want := fmt.Sprintf("i%d", i); desc.SDP != want {
			t.Fatalf("responder stream[%d] = %q, want %q", i, desc.SDP, want)
		}
	}
	for i := 0; i < n; i++ {
		desc, _ := recvEnvelope(t, subInit).Description()
		if want := fmt.Sprintf("r%d", i); desc.SDP != want {
			t.Fatalf("initiator stream[%d] = %q, want %q", i, desc.SDP, want)
		}
	}
}
