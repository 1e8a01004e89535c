package storage

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sort"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/yndnr/snapfold-go/internal/core/domain"
)

// withStores runs the test against every LogStore implementation.
func withStores(t *testing.T, fn func(t *testing.T, store LogStore)) {
	t.Helper()

	t.Run("memory", func(t *testing.T) {
		fn(t, NewMemoryStore())
	})

	t.Run("badger", func(t *testing.T) {
		store, err := NewBadgerStore(DefaultBadgerConfig(t.TempDir()), slog.New(slog.NewTextHandler(io.Discard, nil)))
		if err != nil {
			t.Fatalf("NewBadgerStore: %v", err)
		}
		t.Cleanup(func() {
			if err := store.Close(); err != nil {
				t.Errorf("Close: %v", err)
			}
		})
		fn(t, store)
	})
}

func testFolder(identity string) *domain.Folder {
	return domain.NewFolder(identity, 86400, 1_000_000, []byte("0123456789abcdef"))
}

func TestCreateAndGetFolder(t *testing.T) {
	withStores(t, func(t *testing.T, store LogStore) {
		ctx := context.Background()
		folder := testFolder("a94a8fe5cc")

		if err := store.CreateFolder(ctx, folder); err != nil {
			t.Fatalf("CreateFolder: %v", err)
		}

		got, err := store.GetFolder(ctx, "a94a8fe5cc")
		if err != nil {
			t.Fatalf("GetFolder: %v", err)
		}
		if got.Identity != folder.Identity {
			t.Errorf("Identity = %q, want %q", got.Identity, folder.Identity)
		}
		if got.StorageLimit != folder.StorageLimit {
			t.Errorf("StorageLimit = %d, want %d", got.StorageLimit, folder.StorageLimit)
		}
		if string(got.Salt) != string(folder.Salt) {
			t.Error("Salt was not persisted")
		}
	})
}

func TestCreateFolder_Conflict(t *testing.T) {
	withStores(t, func(t *testing.T, store LogStore) {
		ctx := context.Background()

		if err := store.CreateFolder(ctx, testFolder("a94a8fe5cc")); err != nil {
			t.Fatalf("CreateFolder: %v", err)
		}
		err := store.CreateFolder(ctx, testFolder("a94a8fe5cc"))
		if !errors.Is(err, domain.ErrFolderConflict) {
			t.Fatalf("second CreateFolder = %v, want %v", err, domain.ErrFolderConflict)
		}
	})
}

func TestGetFolder_NotFound(t *testing.T) {
	withStores(t, func(t *testing.T, store LogStore) {
		_, err := store.GetFolder(context.Background(), "ffffffffff")
		if !errors.Is(err, domain.ErrFolderNotFound) {
			t.Fatalf("GetFolder = %v, want %v", err, domain.ErrFolderNotFound)
		}
	})
}

func TestAppendMessage_OrderAndBilling(t *testing.T) {
	withStores(t, func(t *testing.T, store LogStore) {
		ctx := context.Background()
		folder := testFolder("a94a8fe5cc")
		if err := store.CreateFolder(ctx, folder); err != nil {
			t.Fatalf("CreateFolder: %v", err)
		}

		texts := []string{"first", "second", "third"}
		for _, text := range texts {
			msg := domain.NewTextMessage(text, "Firefox")
			folder.CurrentSize += msg.Size
			folder.MsgCount++
			if err := store.AppendMessage(ctx, msg, folder); err != nil {
				t.Fatalf("AppendMessage(%q): %v", text, err)
			}
		}

		got, err := store.GetFolder(ctx, "a94a8fe5cc")
		if err != nil {
			t.Fatalf("GetFolder: %v", err)
		}
		if got.MsgCount != 3 {
			t.Errorf("MsgCount = %d, want 3", got.MsgCount)
		}
		wantSize := int64(len("first") + len("second") + len("third"))
		if got.CurrentSize != wantSize {
			t.Errorf("CurrentSize = %d, want %d", got.CurrentSize, wantSize)
		}

		msgs, err := store.Messages(ctx, "a94a8fe5cc", 0)
		if err != nil {
			t.Fatalf("Messages: %v", err)
		}
		if len(msgs) != 3 {
			t.Fatalf("len(msgs) = %d, want 3", len(msgs))
		}
		for i, text := range texts {
			if msgs[i].Data != text {
				t.Errorf("msgs[%d].Data = %q, want %q", i, msgs[i].Data, text)
			}
		}
	})
}

func TestMessages_Offset(t *testing.T) {
	withStores(t, func(t *testing.T, store LogStore) {
		ctx := context.Background()
		folder := testFolder("a94a8fe5cc")
		if err := store.CreateFolder(ctx, folder); err != nil {
			t.Fatalf("CreateFolder: %v", err)
		}
		for i := 0; i < 5; i++ {
			msg := domain.NewTextMessage(string(rune('a'+i)), "curl")
			folder.CurrentSize += msg.Size
			folder.MsgCount++
			if err := store.AppendMessage(ctx, msg, folder); err != nil {
				t.Fatalf("AppendMessage: %v", err)
			}
		}

		msgs, err := store.Messages(ctx, "a94a8fe5cc", 3)
		if err != nil {
			t.Fatalf("Messages(3): %v", err)
		}
		if len(msgs) != 2 || msgs[0].Data != "d" || msgs[1].Data != "e" {
			t.Fatalf("Messages(3) = %+v, want d, e", msgs)
		}

		msgs, err = store.Messages(ctx, "a94a8fe5cc", 5)
		if err != nil {
			t.Fatalf("Messages(5): %v", err)
		}
		if len(msgs) != 0 {
			t.Fatalf("Messages(5) = %d entries, want 0", len(msgs))
		}

		msgs, err = store.Messages(ctx, "ffffffffff", 0)
		if err != nil {
			t.Fatalf("Messages on absent folder: %v", err)
		}
		if len(msgs) != 0 {
			t.Fatalf("Messages on absent folder = %d entries, want 0", len(msgs))
		}

		if _, err := store.Messages(ctx, "a94a8fe5cc", -1); err == nil {
			t.Fatal("Messages(-1) did not fail")
		}
	})
}

func TestDeleteFolder(t *testing.T) {
	withStores(t, func(t *testing.T, store LogStore) {
		ctx := context.Background()
		folder := testFolder("a94a8fe5cc")
		if err := store.CreateFolder(ctx, folder); err != nil {
			t.Fatalf("CreateFolder: %v", err)
		}
		msg := domain.NewTextMessage("bye", "Wget")
		folder.CurrentSize += msg.Size
		folder.MsgCount++
		if err := store.AppendMessage(ctx, msg, folder); err != nil {
			t.Fatalf("AppendMessage: %v", err)
		}

		if err := store.DeleteFolder(ctx, "a94a8fe5cc"); err != nil {
			t.Fatalf("DeleteFolder: %v", err)
		}
		if _, err := store.GetFolder(ctx, "a94a8fe5cc"); !errors.Is(err, domain.ErrFolderNotFound) {
			t.Fatalf("GetFolder after delete = %v, want %v", err, domain.ErrFolderNotFound)
		}
		msgs, err := store.Messages(ctx, "a94a8fe5cc", 0)
		if err != nil {
			t.Fatalf("Messages after delete: %v", err)
		}
		if len(msgs) != 0 {
			t.Fatalf("log survived delete: %d entries", len(msgs))
		}

		// Idempotent: a repeat delete succeeds.
		if err := store.DeleteFolder(ctx, "a94a8fe5cc"); err != nil {
			t.Fatalf("repeat DeleteFolder: %v", err)
		}

		// The identity is reusable after deletion.
		if err := store.CreateFolder(ctx, testFolder("a94a8fe5cc")); err != nil {
			t.Fatalf("CreateFolder after delete: %v", err)
		}
	})
}

func TestFolders_Iteration(t *testing.T) {
	withStores(t, func(t *testing.T, store LogStore) {
		ctx := context.Background()
		want := []string{"1111111111", "2222222222", "3333333333"}
		for _, id := range want {
			if err := store.CreateFolder(ctx, testFolder(id)); err != nil {
				t.Fatalf("CreateFolder(%s): %v", id, err)
			}
		}

		var got []string
		if err := store.Folders(ctx, func(identity string) bool {
			got = append(got, identity)
			return true
		}); err != nil {
			t.Fatalf("Folders: %v", err)
		}
		sort.Strings(got)
		if len(got) != len(want) {
			t.Fatalf("Folders yielded %d identities, want %d", len(got), len(want))
		}
		for i := range want {
			if got[i] != want[i] {
				t.Errorf("identity[%d] = %q, want %q", i, got[i], want[i])
			}
		}

		var first []string
		if err := store.Folders(ctx, func(identity string) bool {
			first = append(first, identity)
			return false
		}); err != nil {
			t.Fatalf("Folders early stop: %v", err)
		}
		if len(first) != 1 {
			t.Fatalf("early stop visited %d identities, want 1", len(first))
		}
	})
}

func TestGetFolder_ReturnsCopy(t *testing.T) {
	withStores(t, func(t *testing.T, store LogStore) {
		ctx := context.Background()
		if err := store.CreateFolder(ctx, testFolder("a94a8fe5cc")); err != nil {
			t.Fatalf("CreateFolder: %v", err)
		}

		first, err := store.GetFolder(ctx, "a94a8fe5cc")
		if err != nil {
			t.Fatalf("GetFolder: %v", err)
		}
		first.CurrentSize = 999

		second, err := store.GetFolder(ctx, "a94a8fe5cc")
		if err != nil {
			t.Fatalf("GetFolder: %v", err)
		}
		if second.CurrentSize != 0 {
			t.Fatalf("mutation leaked into the store: CurrentSize = %d", second.CurrentSize)
		}
	})
}

func TestBadgerGCReclaimedMetric(t *testing.T) {
	store, err := NewBadgerStore(DefaultBadgerConfig(t.TempDir()), slog.New(slog.NewTextHandler(io.Discard, nil)))
	if err != nil {
		t.Fatalf("NewBadgerStore: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	reg := prometheus.NewRegistry()
	store.RegisterMetrics(reg)

	// A fresh store has nothing to rewrite; GC succeeds and reclaims 0.
	if err := store.GC(); err != nil {
		t.Fatalf("GC: %v", err)
	}

	store.gcBytesReclaimed.Add(2048)

	expected := `
# HELP snapfold_badger_gc_reclaimed_bytes_total Value log bytes reclaimed by garbage collection
# TYPE snapfold_badger_gc_reclaimed_bytes_total counter
snapfold_badger_gc_reclaimed_bytes_total 2048
`
	if err := testutil.GatherAndCompare(reg, strings.NewReader(expected),
		"snapfold_badger_gc_reclaimed_bytes_total"); err != nil {
		t.Fatalf("GatherAndCompare: %v", err)
	}
}
