package core

import "testing"

func TestStreamDeterminism(t *testing.T) {
	a := ChunkStream(12345, 3)
	b := ChunkStream(12345, 3)
	for i := 0; i < 1000; i++ {
		if av, bv := a.Next(), b.Next(); av != bv {
			t.Fatalf("draw %d diverged: %v vs %v", i, av, bv)
		}
	}
}

func TestStreamDistinctLabels(t *testing.T) {
	a := ChunkStream(12345, 0)
	b := ChunkStream(12345, 1)
	c := LootStream(12345)
	same := 0
	for i := 0; i < 100; i++ {
		av, bv, cv := a.Next(), b.Next(), c.Next()
		if av == bv || av == cv {
			same++
		}
	}
	if same > 0 {
		t.Fatalf("%d collisions between streams that should be independent", same)
	}
}

func TestStreamSkipTo(t *testing.T) {
	full := ChunkStream(999, 7)
	for i := 0; i < 500; i++ {
		full.Next()
	}
	want := full.Next()

	skipped := ChunkStream(999, 7)
	skipped.SkipTo(500)
	if got := skipped.Next(); got != want {
		t.Fatalf("SkipTo(500) draw = %v, sequential = %v", got, want)
	}
	if skipped.Index() != 501 {
		t.Fatalf("index = %d, want 501", skipped.Index())
	}
}

func TestStreamZeroSeed(t *testing.T) {
	s := NewStream(0)
	if v := s.Next(); v == 0 {
		t.Fatal("zero seed produced a stuck stream")
	}
}

func TestStreamBounds(t *testing.T) {
	s := NewStream(42)
	for i := 0; i < 10000; i++ {
		v := s.Next()
		if v < 0 || v >= 1 {
			t.Fatalf("draw %d out of [0,1): %v", i, v)
		}
	}
	for i := 0; i < 1000; i++ {
		if n := s.Intn(7); n < 0 || n > 6 {
			t.Fatalf("Intn(7) = %d", n)
		}
		if n := s.IntRange(3, 5); n < 3 || n > 5 {
			t.Fatalf("IntRange(3,5) = %d", n)
		}
	}
}
