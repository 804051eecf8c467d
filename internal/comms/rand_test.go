package comms

import "testing"

func TestRandDeterministic(t *testing.T) {
	a := NewRand(7)
	b := NewRand(7)
	for i := 0; i < 100; i++ {
		if a.Float64() != b.Float64() {
			t.Fatalf("sequences diverged at draw %d", i)
		}
	}
}

func TestUniform(t *testing.T) {
	r := NewRand(1)
	for i := 0; i < 100; i++ {
		v := r.Uniform(2, 5)
		if v < 2 || v >= 5 {
			t.Fatalf("Uniform(2,5) = %v out of range", v)
		}
	}
	if v := r.Uniform(3, 3); v != 3 {
		t.Errorf("Uniform(3,3) = %v, want 3", v)
	}
	if v := r.Uniform(5, 2); v != 5 {
		t.Errorf("Uniform(5,2) = %v, want lo", v)
	}
}
