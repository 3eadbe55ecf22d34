package app

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/ovchar/Duet/internal/core"
	"github.com/ovchar/Duet/internal/domain"
)

func newTestSession(token domain.Token, initiator core.ConnID) *Session {
	return &Session{
		Token:         token,
		InitiatorID:   initiator,
		InitiatorName: "alice",
		CreatedAt:     time.Now(),
	}
}

func TestStore_AdmitResponder_FillsSlotOnce(t *testing.T) {
	st := NewStore()
	st.Put(newTestSession("t1", "conn-a"))

	s, err := st.AdmitResponder("t1", "conn-b", "bob")
	if err != nil {
		t.Fatalf("first admit: %v", err)
	}
	if s.ResponderID != "conn-b" || s.ResponderName != "bob" {
		t.Errorf("responder = %q/%q, want conn-b/bob", s.ResponderID, s.ResponderName)
	}

	_, err = st.AdmitResponder("t1", "conn-c", "carol")
	if !errors.Is(err, ErrSessionFull) {
		t.Errorf("second admit err = %v, want ErrSessionFull", err)
	}

	// The slot is immutable: the loser must not have overwritten it.
	snap, ok := st.Snapshot("t1")
	if !ok || snap.ResponderID != "conn-b" {
		t.Errorf("responder after losing admit = %q, want conn-b", snap.ResponderID)
	}
}

func TestStore_AdmitResponder_UnknownToken(t *testing.T) {
	st := NewStore()
	_, err := st.AdmitResponder("nope", "conn-b", "bob")
	if !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("err = %v, want ErrSessionNotFound", err)
	}
}

func TestStore_ConcurrentAdmits_ExactlyOneWinner(t *testing.T) {
	st := NewStore()
	st.Put(newTestSession("t1", "conn-a"))

	const n = 32
	var wg sync.WaitGroup
	results := make(chan error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := st.AdmitResponder("t1", core.ConnID(string(rune('b'+i))), "peer")
			results <- err
		}(i)
	}
	wg.Wait()
	close(results)

	wins, fulls := 0, 0
	for err := range results {
		switch {
		case err == nil:
			wins++
		case errors.Is(err, ErrSessionFull):
			fulls++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if wins != 1 {
		t.Errorf("winners = %d, want 1", wins)
	}
	if fulls != n-1 {
		t.Errorf("ErrSessionFull count = %d, want %d", fulls, n-1)
	}
}

func TestStore_Counterpart(t *testing.T) {
	st := NewStore()
	st.Put(newTestSession("t1", "conn-a"))

	if _, ok := st.Counterpart("t1", "conn-a"); ok {
		t.Error("counterpart before join should not resolve")
	}

	if _, err := st.AdmitResponder("t1", "conn-b", "bob"); err != nil {
		t.Fatalf("admit: %v", err)
	}

	got, ok := st.Counterpart("t1", "conn-a")
	if !ok || got != "conn-b" {
		t.Errorf("counterpart of initiator = %q/%v, want conn-b/true", got, ok)
	}
	got, ok = st.Counterpart("t1", "conn-b")
	if !ok || got != "conn-a" {
		t.Errorf("counterpart of responder = %q/%v, want conn-a/true", got, ok)
	}
	if _, ok := st.Counterpart("t1", "conn-x"); ok {
		t.Error("non-member should not resolve a counterpart")
	}
	if _, ok := st.Counterpart("zzz", "conn-a"); ok {
		t.Error("unknown token should not resolve a counterpart")
	}
}

func TestStore_Others_ExcludesSender(t *testing.T) {
	st := NewStore()
	st.Put(newTestSession("t1", "conn-a"))
	if _, err := st.AdmitResponder("t1", "conn-b", "bob"); err != nil {
		t.Fatalf("admit: %v", err)
	}

	others := st.Others("t1", "conn-a")
	if len(others) != 1 || others[0] != "conn-b" {
		t.Errorf("others of initiator = %v, want [conn-b]", others)
	}
	others = st.Others("t1", "conn-b")
	if len(others) != 1 || others[0] != "conn-a" {
		t.Errorf("others of responder = %v, want [conn-a]", others)
	}
	if others := st.Others("t1", "conn-x"); others != nil {
		t.Errorf("others for non-member = %v, want nil", others)
	}
}

func TestStore_RemoveIfUnjoined_DoubleCheck(t *testing.T) {
	st := NewStore()
	st.Put(newTestSession("t1", "conn-a"))

	if _, err := st.AdmitResponder("t1", "conn-b", "bob"); err != nil {
		t.Fatalf("admit: %v", err)
	}
	if _, ok := st.RemoveIfUnjoined("t1"); ok {
		t.Error("expiry must lose against a completed join")
	}
	if _, ok := st.Snapshot("t1"); !ok {
		t.Error("joined session must survive a late expiry")
	}

	st.Put(newTestSession("t2", "conn-c"))
	s, ok := st.RemoveIfUnjoined("t2")
	if !ok || s.Token != "t2" {
		t.Fatalf("unjoined session should expire, got ok=%v", ok)
	}
	if _, ok := st.Snapshot("t2"); ok {
		t.Error("expired session still present")
	}
	if _, ok := st.RemoveIfUnjoined("t2"); ok {
		t.Error("second expiry of the same token must be a no-op")
	}
}

func TestStore_Remove_MembershipGuard(t *testing.T) {
	st := NewStore()
	st.Put(newTestSession("t1", "conn-a"))

	if _, ok := st.Remove("t1", "conn-x"); ok {
		t.Error("non-member must not remove a session")
	}
	if _, ok := st.Snapshot("t1"); !ok {
		t.Fatal("session vanished after guarded remove")
	}

	s, ok := st.Remove("t1", "conn-a")
	if !ok || s.Token != "t1" {
		t.Fatalf("member remove failed, ok=%v", ok)
	}
	if st.Len() != 0 {
		t.Errorf("store len = %d, want 0", st.Len())
	}
}
