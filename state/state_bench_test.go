package state

import (
	"fmt"
	"testing"
)

func populate(b *testing.B, tracker Tracker, n int) {
	b.Helper()
	for i := 0; i < n; i++ {
		if err := tracker.MarkProcessed(fmt.Sprintf("hash-%d", i), fmt.Sprintf("steps-%d_cleaned.html", i)); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkFileTracker_MarkProcessed(b *testing.B) {
	tracker, err := NewFileTracker(b.TempDir(), true)
	if err != nil {
		b.Fatal(err)
	}
	defer tracker.Close()

	b.ResetTimer()
	populate(b, tracker, b.N)
	b.StopTimer()

	if err := tracker.Close(); err != nil {
		b.Fatal(err)
	}
}

// BenchmarkFileTracker_Output measures the skip check the runner makes for
// every scanned archive.
func BenchmarkFileTracker_Output(b *testing.B) {
	tracker, err := NewFileTracker(b.TempDir(), false)
	if err != nil {
		b.Fatal(err)
	}
	populate(b, tracker, 1000)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, ok := tracker.Output(fmt.Sprintf("hash-%d", i%2000)); ok != (i%2000 < 1000) {
			b.Fatalf("Output(hash-%d) ok = %v", i%2000, ok)
		}
	}
}

// BenchmarkFileTracker_Remark re-marks the same archives with alternating
// output paths, as happens when a batch is converted into a different
// --out-dir. Every change appends a record; unchanged outputs do not.
func BenchmarkFileTracker_Remark(b *testing.B) {
	tracker, err := NewFileTracker(b.TempDir(), true)
	if err != nil {
		b.Fatal(err)
	}
	defer tracker.Close()
	populate(b, tracker, 100)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		output := fmt.Sprintf("out-%d/steps-%d_cleaned.html", i%2, i%100)
		if err := tracker.MarkProcessed(fmt.Sprintf("hash-%d", i%100), output); err != nil {
			b.Fatal(err)
		}
	}
	b.StopTimer()

	if err := tracker.Close(); err != nil {
		b.Fatal(err)
	}
}

func BenchmarkFileTracker_Load(b *testing.B) {
	dir := b.TempDir()

	tracker, err := NewFileTracker(dir, true)
	if err != nil {
		b.Fatal(err)
	}
	populate(b, tracker, 10000)
	if err := tracker.Close(); err != nil {
		b.Fatal(err)
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := NewFileTracker(dir, false); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkMemoryTracker_MarkProcessed(b *testing.B) {
	populate(b, NewMemoryTracker(), b.N)
}
