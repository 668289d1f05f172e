package registry

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
)

func readList(t *testing.T, path string) []string {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read registry: %v", err)
	}
	var list []string
	if err := json.Unmarshal(data, &list); err != nil {
		t.Fatalf("decode registry: %v", err)
	}
	return list
}

func TestLoad_MissingFileIsEmpty(t *testing.T) {
	r := Load(filepath.Join(t.TempDir(), "hashes.json"), nil)
	if r.Len() != 0 || r.Contains("abc") {
		t.Fatal("expected empty registry")
	}
}

func TestLoad_CorruptFileIsEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "hashes.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o644); err != nil {
		t.Fatal(err)
	}
	if r := Load(path, nil); r.Len() != 0 {
		t.Fatalf("len = %d, want 0", r.Len())
	}
}

func TestRegister_WriteThrough(t *testing.T) {
	path := filepath.Join(t.TempDir(), "processed", "hashes.json")
	r := Load(path, nil)

	r.Register("bbb")
	r.Register("aaa")
	r.Register("aaa")

	if got := readList(t, path); len(got) != 2 || got[0] != "aaa" || got[1] != "bbb" {
		t.Fatalf("on-disk list = %v", got)
	}

	reloaded := Load(path, nil)
	if !reloaded.Contains("aaa") || !reloaded.Contains("bbb") || reloaded.Len() != 2 {
		t.Fatalf("reloaded = %v", reloaded.Snapshot())
	}
}

func TestRegister_PersistFailureKeepsMemory(t *testing.T) {
	dir := t.TempDir()
	blocker := filepath.Join(dir, "blocker")
	if err := os.WriteFile(blocker, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	// parent of the registry path is a regular file, so every write fails
	r := Load(filepath.Join(blocker, "hashes.json"), nil)

	r.Register("abc")
	if !r.Contains("abc") {
		t.Fatal("in-memory registration must survive a persist failure")
	}
}

func TestRegister_Concurrent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "hashes.json")
	r := Load(path, nil)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			r.Register(fmt.Sprintf("h%02d", i%25))
			_ = r.Contains("h00")
		}(i)
	}
	wg.Wait()

	if r.Len() != 25 {
		t.Fatalf("len = %d, want 25", r.Len())
	}
	if got := readList(t, path); len(got) != 25 {
		t.Fatalf("on-disk len = %d, want 25", len(got))
	}
}

func TestClaim(t *testing.T) {
	r := Load(filepath.Join(t.TempDir(), "hashes.json"), nil)

	if !r.Claim("abc") {
		t.Fatal("first claim should succeed")
	}
	if r.Claim("abc") {
		t.Fatal("second claim of an in-flight hash should fail")
	}
	r.Release("abc")
	if !r.Claim("abc") {
		t.Fatal("claim after release should succeed")
	}
	r.Register("abc")
	r.Release("abc")
	if r.Claim("abc") {
		t.Fatal("registered hash must not be claimable")
	}
}

func TestClaim_ConcurrentSingleWinner(t *testing.T) {
	r := Load(filepath.Join(t.TempDir(), "hashes.json"), nil)

	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		wins int
	)
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if r.Claim("same") {
				mu.Lock()
				wins++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	if wins != 1 {
		t.Fatalf("wins = %d, want 1", wins)
	}
}
