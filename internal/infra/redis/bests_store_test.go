package redis

import (
	"context"
	"testing"

	miniredis "github.com/alicebob/miniredis/v2"

	"quiz-runner/internal/domain"
)

func TestBestsStoreRoundTrip(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	ctx := context.Background()
	store := NewBestsStore(newClient(mr))

	bests, err := store.LoadBest(ctx)
	if err != nil {
		t.Fatalf("load empty: %v", err)
	}
	if bests != (domain.Bests{}) {
		t.Fatalf("expected zero bests, got %+v", bests)
	}

	if err := store.SaveBest(ctx, 7, 3); err != nil {
		t.Fatalf("save: %v", err)
	}
	if v, _ := mr.Get("quiz.bestScore"); v != "7" {
		t.Fatalf("unexpected stored score %q", v)
	}
	bests, _ = store.LoadBest(ctx)
	if bests != (domain.Bests{BestScore: 7, BestStreak: 3}) {
		t.Fatalf("unexpected bests %+v", bests)
	}

	if err := store.ResetAllProgress(ctx); err != nil {
		t.Fatalf("reset: %v", err)
	}
	if err := store.ResetAllProgress(ctx); err != nil {
		t.Fatalf("reset twice: %v", err)
	}
	if mr.Exists("quiz.bestScore") || mr.Exists("quiz.bestStreak") {
		t.Fatalf("expected keys cleared")
	}
}

func TestBestsStoreTreatsGarbageAsZero(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	_ = mr.Set("quiz.bestScore", "lots")
	_ = mr.Set("quiz.bestStreak", "4")

	bests, err := NewBestsStore(newClient(mr)).LoadBest(context.Background())
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if bests != (domain.Bests{BestScore: 0, BestStreak: 4}) {
		t.Fatalf("unexpected bests %+v", bests)
	}
}
