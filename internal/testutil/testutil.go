// Package testutil provides shared test helpers for setting up vaults and indexes.
package testutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/tbrandt/othala/internal/index"
	"github.com/tbrandt/othala/internal/notestore"
	"github.com/tbrandt/othala/internal/service"
	"github.com/tbrandt/othala/internal/storage"
)

// TestVault creates a temporary vault directory with a storage.Provider.
func TestVault(t *testing.T) (string, storage.Provider) {
	t.Helper()
	vaultDir := t.TempDir()
	store, err := storage.NewFS(vaultDir)
	if err != nil {
		t.Fatal(err)
	}
	return vaultDir, store
}

// TestStore creates a note store over a temporary vault.
func TestStore(t *testing.T) (string, *notestore.Store) {
	t.Helper()
	vaultDir, provider := TestVault(t)
	return vaultDir, notestore.New(provider)
}

// TestIndex creates an index over a temporary vault, cleaned up with the test.
func TestIndex(t *testing.T) (string, *notestore.Store, *index.Index) {
	t.Helper()
	vaultDir, store := TestStore(t)
	ix, err := index.Open(store)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { ix.Close() })
	return vaultDir, store, ix
}

// TestService wires a full service over a temporary vault.
func TestService(t *testing.T) (string, *service.Service) {
	t.Helper()
	vaultDir, store, ix := TestIndex(t)
	return vaultDir, service.New("Test Vault", store, ix)
}

// WriteNote writes raw markdown into the vault at relPath, creating parent
// directories as needed. Bypasses the store so tests can plant malformed
// files.
func WriteNote(t *testing.T, vaultDir, relPath, content string) {
	t.Helper()
	full := filepath.Join(vaultDir, filepath.FromSlash(relPath))
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(full, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}
