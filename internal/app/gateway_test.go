package app

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/ovchar/Duet/internal/core"
)

type fakeLink struct {
	mu     sync.Mutex
	frames []core.Frame
	fail   bool
}

func (f *fakeLink) TrySend(fr core.Frame) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail {
		return errors.New("buffer full")
	}
	f.frames = append(f.frames, fr)
	return nil
}

func (f *fakeLink) Close() {}

func (f *fakeLink) received() []core.Frame {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]core.Frame, len(f.frames))
	copy(out, f.frames)
	return out
}

type fakeHistory struct {
	ch chan [2]string
}

func (f *fakeHistory) RecordSession(_ context.Context, initiator, responder string) (int64, error) {
	f.ch <- [2]string{initiator, responder}
	return 1, nil
}

func pair(t *testing.T, g *Gateway) (Session, *fakeLink, *fakeLink) {
	t.Helper()
	a, b := &fakeLink{}, &fakeLink{}
	g.Connect("conn-a", a, func() {})
	g.Connect("conn-b", b, func() {})
	s, err := g.CreateSession("conn-a", "alice")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	s, err = g.JoinSession(s.Token, "conn-b", "bob")
	if err != nil {
		t.Fatalf("join: %v", err)
	}
	return s, a, b
}

func TestGateway_NegotiationForwardedVerbatim(t *testing.T) {
	g := NewGateway(time.Hour, nil)
	s, a, b := pair(t, g)

	frame := core.Frame(`{"type":"negotiation-offer","payload":{"sdp":"v=0"}}`)
	g.Negotiate(s.Token, "conn-a", frame)

	got := b.received()
	if len(got) != 1 || string(got[0]) != string(frame) {
		t.Fatalf("responder got %v, want exactly the sent frame", got)
	}
	if len(a.received()) != 0 {
		t.Errorf("sender received %d frames, want 0", len(a.received()))
	}
}

func TestGateway_NegotiationBeforeJoin_DroppedSilently(t *testing.T) {
	g := NewGateway(time.Hour, nil)
	a := &fakeLink{}
	g.Connect("conn-a", a, func() {})
	s, err := g.CreateSession("conn-a", "alice")
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	g.Negotiate(s.Token, "conn-a", core.Frame(`{"type":"negotiation-candidate"}`))

	// Nothing delivered anywhere, and in particular no error back to the
	// sender: a missing counterpart during setup is expected.
	if n := len(a.received()); n != 0 {
		t.Errorf("sender received %d frames, want 0", n)
	}
	if _, ok := g.Store.Snapshot(s.Token); !ok {
		t.Error("session must survive a dropped negotiation frame")
	}
}

func TestGateway_BroadcastExcludesSender(t *testing.T) {
	g := NewGateway(time.Hour, nil)
	s, a, b := pair(t, g)

	frame := core.Frame(`{"type":"editor-update","content":"hello"}`)
	g.Broadcast(s.Token, "conn-a", frame)

	if got := b.received(); len(got) != 1 || string(got[0]) != string(frame) {
		t.Fatalf("responder got %v, want the broadcast frame", got)
	}
	if len(a.received()) != 0 {
		t.Errorf("sender was echoed its own broadcast")
	}
}

func TestGateway_DisconnectJoined_NotifiesPeer(t *testing.T) {
	g := NewGateway(time.Hour, nil)
	_, a, _ := pair(t, g)

	farewell := core.Frame(`{"type":"call-ended"}`)
	g.Disconnect("conn-b", farewell)

	if got := a.received(); len(got) != 1 || string(got[0]) != string(farewell) {
		t.Fatalf("initiator got %v, want the farewell frame", got)
	}
	if g.Store.Len() != 0 {
		t.Errorf("store len = %d after disconnect, want 0", g.Store.Len())
	}
	if _, ok := g.Registry.Link("conn-b"); ok {
		t.Error("disconnected connection still registered")
	}
	if _, ok := g.Registry.TokenOf("conn-a"); ok {
		t.Error("remaining member still holds the dead session token")
	}
}

func TestGateway_DisconnectUnjoined_TearsDownSession(t *testing.T) {
	g := NewGateway(time.Hour, nil)
	a := &fakeLink{}
	g.Connect("conn-a", a, func() {})
	if _, err := g.CreateSession("conn-a", "alice"); err != nil {
		t.Fatalf("create: %v", err)
	}

	g.Disconnect("conn-a", core.Frame(`{"type":"call-ended"}`))

	if g.Store.Len() != 0 {
		t.Errorf("store len = %d, want 0", g.Store.Len())
	}
}

func TestGateway_EndSession_NonMemberIgnored(t *testing.T) {
	g := NewGateway(time.Hour, nil)
	s, _, b := pair(t, g)

	stranger := &fakeLink{}
	g.Connect("conn-x", stranger, func() {})
	g.EndSession(s.Token, "conn-x", core.Frame(`{"type":"call-ended"}`))

	if g.Store.Len() != 1 {
		t.Errorf("store len = %d, want 1 (session must survive)", g.Store.Len())
	}
	if len(b.received()) != 0 {
		t.Error("member was notified by a stranger's end-call")
	}
}

func TestGateway_JoinRecordsHistory(t *testing.T) {
	hist := &fakeHistory{ch: make(chan [2]string, 1)}
	g := NewGateway(time.Hour, hist)
	pair(t, g)

	select {
	case rec := <-hist.ch:
		if rec[0] != "alice" || rec[1] != "bob" {
			t.Errorf("recorded %v, want [alice bob]", rec)
		}
	case <-time.After(time.Second):
		t.Fatal("history record never written")
	}
}

func TestGateway_SlowMemberKicked(t *testing.T) {
	g := NewGateway(time.Hour, nil)
	a := &fakeLink{}
	b := &fakeLink{fail: true}
	kicked := make(chan struct{}, 1)
	g.Connect("conn-a", a, func() {})
	g.Connect("conn-b", b, func() { kicked <- struct{}{} })

	s, err := g.CreateSession("conn-a", "alice")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := g.JoinSession(s.Token, "conn-b", "bob"); err != nil {
		t.Fatalf("join: %v", err)
	}

	g.Broadcast(s.Token, "conn-a", core.Frame(`{"type":"chat-receive"}`))

	select {
	case <-kicked:
	case <-time.After(time.Second):
		t.Fatal("slow member was not canceled")
	}
}

func TestGateway_CreateRejectsEmptyName(t *testing.T) {
	g := NewGateway(time.Hour, nil)
	g.Connect("conn-a", &fakeLink{}, func() {})
	if _, err := g.CreateSession("conn-a", ""); err == nil {
		t.Error("empty display name accepted")
	}
	if g.Store.Len() != 0 {
		t.Errorf("store len = %d, want 0", g.Store.Len())
	}
}
