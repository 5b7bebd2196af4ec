package universe

import (
	"errors"
	"testing"
)

func TestLocalIDPoolPrefersRecycled(t *testing.T) {
	var p localIDPool[LocalEntityID]
	none := func(LocalEntityID) bool { return false }

	for want := LocalEntityID(0); want < 3; want++ {
		if got, _ := p.generate(none); got != want {
			t.Fatalf("expected %d, got %d", want, got)
		}
	}
	if err := p.recycle(1); err != nil {
		t.Fatalf("recycle: %v", err)
	}
	if err := p.recycle(1); !errors.Is(err, ErrLocalIDAlreadyRecycled) {
		t.Fatalf("expected double recycle to fail, got %v", err)
	}
	if got, _ := p.generate(none); got != 1 {
		t.Fatalf("expected recycled id 1, got %d", got)
	}
	if got, _ := p.generate(none); got != 3 {
		t.Fatalf("expected counter to resume at 3, got %d", got)
	}
}

func TestLocalIDPoolSkipsOccupied(t *testing.T) {
	var p localIDPool[LocalChunkID]
	used := map[LocalChunkID]bool{0: true, 1: true, 5: true}
	inUse := func(l LocalChunkID) bool { return used[l] }

	if err := p.recycle(5); err != nil {
		t.Fatal(err)
	}
	got, err := p.generate(inUse)
	if err != nil || got != 2 {
		t.Fatalf("expected 2 after skipping occupied ids, got %d (%v)", got, err)
	}
	if p.recycled() != 0 {
		t.Fatalf("occupied recycled id must be discarded")
	}
}

func TestLocalIDPoolExhaustion(t *testing.T) {
	p := localIDPool[LocalChunkID]{next: 0xFFFFFFFF}
	none := func(LocalChunkID) bool { return false }
	if got, err := p.generate(none); err != nil || got != 0xFFFFFFFF {
		t.Fatalf("expected last id, got %d (%v)", got, err)
	}
	if _, err := p.generate(none); !errors.Is(err, ErrLocalIDsExhausted) {
		t.Fatalf("expected exhaustion, got %v", err)
	}
}
