package executable

import "testing"

func TestSplitmix64IsDeterministicAndBounded(t *testing.T) {
	a := splitmix64(42)
	b := splitmix64(42)
	if a != b {
		t.Fatalf("same seed produced different results: %v vs %v", a, b)
	}
	if a < 0 || a >= 1 {
		t.Errorf("result out of [0,1): %v", a)
	}
	if splitmix64(1) == splitmix64(2) {
		t.Error("distinct seeds produced the same result")
	}
}

func TestNativeRandMatchesSplitmix64(t *testing.T) {
	got, err := nativeRand([]interface{}{int64(7)})
	if err != nil {
		t.Fatalf("nativeRand returned error: %v", err)
	}
	want := splitmix64(7)
	if got.(float64) != want {
		t.Errorf("got=%v, want=%v", got, want)
	}
}
