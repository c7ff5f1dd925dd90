package enrichment

import (
	"os"
	"path/filepath"
	"regexp"
	"sync"
	"testing"
)

func TestSaltStore_GeneratesAndPersists(t *testing.T) {
	dir := t.TempDir()
	store := NewSaltStore(dir, testLogger())

	salt, err := store.Salt("2023-10-10")
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	if !regexp.MustCompile(`^[a-zA-Z0-9]{8}$`).MatchString(salt) {
		t.Errorf("Expected 8 alphanumeric characters, got %q", salt)
	}

	data, err := os.ReadFile(filepath.Join(dir, "2023-10-10"))
	if err != nil {
		t.Fatalf("Expected persisted salt file: %v", err)
	}
	if string(data) != salt {
		t.Errorf("Persisted salt %q differs from returned %q", data, salt)
	}
}

func TestSaltStore_ReusesWithinProcess(t *testing.T) {
	store := NewSaltStore(t.TempDir(), testLogger())

	first, err := store.Salt("2023-10-10")
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	second, err := store.Salt("2023-10-10")
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	if first != second {
		t.Errorf("Expected stable salt per bucket: %q vs %q", first, second)
	}
}

func TestSaltStore_ReusesAcrossRuns(t *testing.T) {
	dir := t.TempDir()

	first, err := NewSaltStore(dir, testLogger()).Salt("2023-10-10")
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	second, err := NewSaltStore(dir, testLogger()).Salt("2023-10-10")
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	if first != second {
		t.Errorf("Expected salt to survive across store instances: %q vs %q", first, second)
	}
}

func TestSaltStore_ExistingSaltWins(t *testing.T) {
	// Simulates losing the first-use race: the file already exists, so its
	// salt is authoritative and no new one may replace it.
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "2023-10-10"), []byte("pr3setXY\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	salt, err := NewSaltStore(dir, testLogger()).Salt("2023-10-10")
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if salt != "pr3setXY" {
		t.Errorf("Expected existing salt to win, got %q", salt)
	}
}

func TestSaltStore_ConcurrentFirstUseAgrees(t *testing.T) {
	// Independent stores racing on one bucket's first use must all end up
	// with the same non-empty salt: exactly one generated salt becomes
	// durable, and losers read it back complete.
	dir := t.TempDir()

	const racers = 16
	salts := make([]string, racers)
	errs := make([]error, racers)

	var wg sync.WaitGroup
	for i := 0; i < racers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			salts[i], errs[i] = NewSaltStore(dir, testLogger()).Salt("2023-10-10")
		}(i)
	}
	wg.Wait()

	for i := 0; i < racers; i++ {
		if errs[i] != nil {
			t.Fatalf("Racer %d: unexpected error: %v", i, errs[i])
		}
		if salts[i] == "" {
			t.Fatalf("Racer %d: got empty salt", i)
		}
		if salts[i] != salts[0] {
			t.Errorf("Racer %d diverged: %q vs %q", i, salts[i], salts[0])
		}
	}

	// Only the bucket file itself may remain, no abandoned temp files.
	files, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(files) != 1 || files[0].Name() != "2023-10-10" {
		names := make([]string, 0, len(files))
		for _, f := range files {
			names = append(names, f.Name())
		}
		t.Errorf("Expected only the bucket file, got %v", names)
	}
}

func TestSaltStore_IndependentBuckets(t *testing.T) {
	store := NewSaltStore(t.TempDir(), testLogger())

	first, err := store.Salt("2023-10-10")
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	second, err := store.Salt("2023-10-11")
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	if first == second {
		t.Errorf("Expected independent salts per bucket, both were %q", first)
	}
}
