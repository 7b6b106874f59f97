// Readmark - WeChat Library Reading Companion
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/readmark

package backup

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/tomtom215/readmark/internal/config"
	"github.com/tomtom215/readmark/internal/database"
	"github.com/tomtom215/readmark/internal/models"
)

// fakeDB stands in for the database layer with a plain file.
type fakeDB struct {
	path        string
	checkpoints int
}

func (f *fakeDB) Checkpoint(context.Context) error {
	f.checkpoints++
	return nil
}

func (f *fakeDB) Path() string { return f.path }

func (f *fakeDB) GetCurrentSchemaVersion(context.Context) (int, error) { return 3, nil }

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("WriteFile(%s) error = %v", path, err)
	}
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile(%s) error = %v", path, err)
	}
	return string(data)
}

// newTestManager returns a manager over a fake database file whose clock
// advances one minute per call.
func newTestManager(t *testing.T, keep int) (*Manager, *fakeDB) {
	t.Helper()
	root := t.TempDir()

	db := &fakeDB{path: filepath.Join(root, "readmark.duckdb")}
	writeFile(t, db.path, "duckdb-main-file")

	m, err := NewManager(&config.BackupConfig{
		Dir:              filepath.Join(root, "backups"),
		RetentionCount:   keep,
		CompressionLevel: 6,
		Interval:         time.Hour,
	}, db)
	if err != nil {
		t.Fatalf("NewManager() error = %v", err)
	}

	var mu sync.Mutex
	current := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	m.now = func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		current = current.Add(time.Minute)
		return current
	}
	return m, db
}

func TestNewManager_RequiresDir(t *testing.T) {
	if _, err := NewManager(&config.BackupConfig{}, nil); err == nil {
		t.Error("NewManager() with empty dir should fail")
	}
}

func TestCreate(t *testing.T) {
	m, db := newTestManager(t, 7)
	ctx := context.Background()

	b, err := m.Create(ctx, TriggerManual)
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	if db.checkpoints != 1 {
		t.Errorf("checkpoints = %d, want 1", db.checkpoints)
	}
	if b.Trigger != TriggerManual || b.SchemaVersion != 3 {
		t.Errorf("backup = %+v", b)
	}
	if !strings.HasPrefix(b.FileName, "readmark-20260301-") || !strings.HasSuffix(b.FileName, ".tar.gz") {
		t.Errorf("FileName = %q", b.FileName)
	}
	if len(b.Files) != 1 || b.Files[0].Name != entryDatabase || b.Files[0].Size != int64(len("duckdb-main-file")) {
		t.Errorf("Files = %+v, want the database file only", b.Files)
	}
	if b.Checksum == "" || b.Size == 0 {
		t.Errorf("archive checksum/size not recorded: %q/%d", b.Checksum, b.Size)
	}
	if _, err := os.Stat(filepath.Join(m.cfg.Dir, b.FileName+partialExt)); !os.IsNotExist(err) {
		t.Error("partial file left behind")
	}

	backups, err := m.List()
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(backups) != 1 || backups[0].ID != b.ID || backups[0].Checksum != b.Checksum {
		t.Errorf("List() = %+v, want the created backup", backups)
	}
}

func TestCreate_IncludesWAL(t *testing.T) {
	m, db := newTestManager(t, 7)
	writeFile(t, db.path+".wal", "pending-writes")

	b, err := m.Create(context.Background(), TriggerManual)
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if len(b.Files) != 2 || b.Files[1].Name != entryWAL {
		t.Errorf("Files = %+v, want database and WAL", b.Files)
	}
}

func TestCreate_NoDatabase(t *testing.T) {
	tests := []struct {
		name string
		db   Database
	}{
		{"nil database", nil},
		{"in-memory database", &fakeDB{path: ":memory:"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, err := NewManager(&config.BackupConfig{Dir: t.TempDir()}, tt.db)
			if err != nil {
				t.Fatalf("NewManager() error = %v", err)
			}
			if _, err := m.Create(context.Background(), TriggerManual); !errors.Is(err, ErrNoDatabase) {
				t.Errorf("Create() error = %v, want ErrNoDatabase", err)
			}
		})
	}
}

func TestCreate_NotifiesOnComplete(t *testing.T) {
	m, db := newTestManager(t, 7)

	var got []error
	m.SetOnBackupComplete(func(b *Backup, err error) { got = append(got, err) })

	if _, err := m.Create(context.Background(), TriggerManual); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	db.path = filepath.Join(filepath.Dir(db.path), "missing.duckdb")
	if _, err := m.Create(context.Background(), TriggerManual); err == nil {
		t.Fatal("Create() of a missing file should fail")
	}

	if len(got) != 2 || got[0] != nil || got[1] == nil {
		t.Errorf("callback errors = %v, want [nil, error]", got)
	}
	backups, _ := m.List()
	if len(backups) != 1 {
		t.Errorf("List() = %d backups, failed create should leave nothing", len(backups))
	}
}

func TestVerify(t *testing.T) {
	m, _ := newTestManager(t, 7)
	ctx := context.Background()

	b, err := m.Create(ctx, TriggerManual)
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if err := m.Verify(ctx, b.ID); err != nil {
		t.Errorf("Verify() error = %v", err)
	}

	if err := m.Verify(ctx, "nope"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Verify(unknown) error = %v, want ErrNotFound", err)
	}

	archive := filepath.Join(m.cfg.Dir, b.FileName)
	data := []byte(readFile(t, archive))
	data[len(data)/2] ^= 0xff
	if err := os.WriteFile(archive, data, 0o600); err != nil {
		t.Fatal(err)
	}
	if err := m.Verify(ctx, b.ID); !errors.Is(err, ErrChecksumMismatch) {
		t.Errorf("Verify(corrupt) error = %v, want ErrChecksumMismatch", err)
	}

	if err := os.Remove(archive); err != nil {
		t.Fatal(err)
	}
	if err := m.Verify(ctx, b.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("Verify(missing archive) error = %v, want ErrNotFound", err)
	}
}

func TestPrune(t *testing.T) {
	m, _ := newTestManager(t, 2)
	ctx := context.Background()

	var ids []string
	for i := 0; i < 4; i++ {
		b, err := m.Create(ctx, TriggerScheduled)
		if err != nil {
			t.Fatalf("Create() error = %v", err)
		}
		ids = append(ids, b.ID)
	}

	removed, err := m.Prune()
	if err != nil {
		t.Fatalf("Prune() error = %v", err)
	}
	if removed != 2 {
		t.Errorf("Prune() = %d, want 2", removed)
	}

	backups, _ := m.List()
	if len(backups) != 2 || backups[0].ID != ids[3] || backups[1].ID != ids[2] {
		t.Errorf("kept %+v, want the two newest", backups)
	}
	entries, _ := os.ReadDir(m.cfg.Dir)
	if len(entries) != 4 {
		t.Errorf("backup dir holds %d files, want 2 archives and 2 sidecars", len(entries))
	}

	if removed, _ := m.Prune(); removed != 0 {
		t.Errorf("second Prune() = %d, want 0", removed)
	}
}

func TestList_SkipsCorruptSidecar(t *testing.T) {
	m, _ := newTestManager(t, 7)
	if _, err := m.Create(context.Background(), TriggerManual); err != nil {
		t.Fatal(err)
	}
	writeFile(t, filepath.Join(m.cfg.Dir, "readmark-broken.json"), "{not json")
	writeFile(t, filepath.Join(m.cfg.Dir, "notes.json"), "{}")

	backups, err := m.List()
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(backups) != 1 {
		t.Errorf("List() = %d backups, want 1", len(backups))
	}
}

func TestRestore(t *testing.T) {
	m, db := newTestManager(t, 7)
	ctx := context.Background()
	writeFile(t, db.path+".wal", "wal-at-backup")

	b, err := m.Create(ctx, TriggerManual)
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	writeFile(t, db.path, "changed-after-backup")
	if err := os.Remove(db.path + ".wal"); err != nil {
		t.Fatal(err)
	}

	if err := m.Restore(ctx, b.ID, db.path); err != nil {
		t.Fatalf("Restore() error = %v", err)
	}

	if got := readFile(t, db.path); got != "duckdb-main-file" {
		t.Errorf("restored database = %q", got)
	}
	if got := readFile(t, db.path+".wal"); got != "wal-at-backup" {
		t.Errorf("restored WAL = %q", got)
	}

	matches, _ := filepath.Glob(db.path + ".pre-restore-*")
	if len(matches) != 1 || readFile(t, matches[0]) != "changed-after-backup" {
		t.Errorf("pre-restore copies = %v, want the replaced database", matches)
	}
	leftovers, _ := filepath.Glob(filepath.Join(filepath.Dir(db.path), ".readmark-restore-*"))
	if len(leftovers) != 0 {
		t.Errorf("staging directories left behind: %v", leftovers)
	}
}

func TestRestore_CorruptArchiveKeepsDatabase(t *testing.T) {
	m, db := newTestManager(t, 7)
	ctx := context.Background()

	b, err := m.Create(ctx, TriggerManual)
	if err != nil {
		t.Fatal(err)
	}
	archive := filepath.Join(m.cfg.Dir, b.FileName)
	data := []byte(readFile(t, archive))
	if err := os.WriteFile(archive, bytes.Repeat([]byte{0}, len(data)), 0o600); err != nil {
		t.Fatal(err)
	}
	writeFile(t, db.path, "current")

	if err := m.Restore(ctx, b.ID, db.path); !errors.Is(err, ErrChecksumMismatch) {
		t.Errorf("Restore() error = %v, want ErrChecksumMismatch", err)
	}
	if got := readFile(t, db.path); got != "current" {
		t.Errorf("database changed by failed restore: %q", got)
	}
}

func TestServe_StopsOnCancel(t *testing.T) {
	m, _ := newTestManager(t, 7)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- m.Serve(ctx) }()
	cancel()

	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("Serve() = %v, want context.Canceled", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Serve did not stop")
	}
	if m.String() != "backup-scheduler" {
		t.Errorf("String() = %q", m.String())
	}
}

func TestRunScheduled_CreatesAndPrunes(t *testing.T) {
	m, _ := newTestManager(t, 1)
	ctx := context.Background()

	m.runScheduled(ctx)
	m.runScheduled(ctx)

	backups, _ := m.List()
	if len(backups) != 1 || backups[0].Trigger != TriggerScheduled {
		t.Errorf("List() = %+v, want one scheduled backup", backups)
	}
}

// TestRoundTrip_DuckDB snapshots a real database file and opens the
// restored copy.
func TestRoundTrip_DuckDB(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping DuckDB round trip in short mode")
	}
	ctx := context.Background()
	root := t.TempDir()

	dbCfg := &config.DatabaseConfig{Path: filepath.Join(root, "readmark.duckdb"), MaxMemory: "256MB", Threads: 1}
	db, err := database.New(dbCfg)
	if err != nil {
		t.Fatalf("database.New() error = %v", err)
	}
	if err := db.UpsertReader(ctx, "o-1", "2020010001", models.ReaderTypeCard); err != nil {
		t.Fatalf("UpsertReader() error = %v", err)
	}

	m, err := NewManager(&config.BackupConfig{Dir: filepath.Join(root, "backups")}, db)
	if err != nil {
		t.Fatal(err)
	}
	b, err := m.Create(ctx, TriggerManual)
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if err := db.Close(); err != nil {
		t.Fatal(err)
	}

	target := filepath.Join(root, "restored.duckdb")
	if err := m.Restore(ctx, b.ID, target); err != nil {
		t.Fatalf("Restore() error = %v", err)
	}

	restored, err := database.New(&config.DatabaseConfig{Path: target, MaxMemory: "256MB", Threads: 1})
	if err != nil {
		t.Fatalf("open restored database: %v", err)
	}
	defer func() { _ = restored.Close() }()

	reader, err := restored.GetReaderByOpenID(ctx, "o-1")
	if err != nil {
		t.Fatalf("GetReaderByOpenID() error = %v", err)
	}
	if reader.ReaderCard != "2020010001" {
		t.Errorf("restored reader card = %q", reader.ReaderCard)
	}
}
