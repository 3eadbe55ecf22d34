package signal

import (
	"testing"
	"time"
)

func TestJoinLimiter_BlocksOverLimit(t *testing.T) {
	rl := NewJoinLimiter(3, time.Minute)

	for i := 0; i < 3; i++ {
		if !rl.Allow("conn-a") {
			t.Fatalf("attempt %d should be allowed", i)
		}
	}
	if rl.Allow("conn-a") {
		t.Error("attempt over the limit was allowed")
	}
	if !rl.Allow("conn-b") {
		t.Error("other connections must not share the window")
	}
}

func TestJoinLimiter_ForgetEvictsConnection(t *testing.T) {
	rl := NewJoinLimiter(1, time.Minute)

	if !rl.Allow("conn-a") {
		t.Fatal("first attempt should be allowed")
	}
	if rl.Allow("conn-a") {
		t.Fatal("second attempt inside the window was allowed")
	}

	rl.Forget("conn-a")

	if len(rl.history) != 0 {
		t.Errorf("history holds %d entries after Forget, want 0", len(rl.history))
	}
	if !rl.Allow("conn-a") {
		t.Error("reconnecting client inherited the old window")
	}
}

func TestJoinLimiter_WindowSlides(t *testing.T) {
	rl := NewJoinLimiter(1, 30*time.Millisecond)

	if !rl.Allow("conn-a") {
		t.Fatal("first attempt should be allowed")
	}
	if rl.Allow("conn-a") {
		t.Fatal("second attempt inside the window was allowed")
	}
	time.Sleep(60 * time.Millisecond)
	if !rl.Allow("conn-a") {
		t.Error("attempt after the window elapsed was blocked")
	}
}
