package workspace

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/dshills/exthost/internal/engine"
	"github.com/dshills/exthost/internal/engine/buffer"
	"github.com/dshills/exthost/internal/uri"
)

// Current schema version. Increment when Backup changes incompatibly.
const backupSchemaVersion uint16 = 1

// Backup is a hot-exit snapshot of the documents that would otherwise be
// lost: dirty documents and untitled documents.
type Backup struct {
	Schema  uint16
	Created time.Time
	Entries []BackupEntry
}

// BackupEntry is one document in a Backup.
type BackupEntry struct {
	URI        string
	LanguageID string
	Version    int
	EOL        string
	Text       string
}

// Snapshot captures the dirty and untitled documents of the store.
func (s *Store) Snapshot() *Backup {
	b := &Backup{Schema: backupSchemaVersion, Created: time.Now().UTC()}
	for _, doc := range s.Documents() {
		if !doc.IsDirty() && !doc.IsUntitled() {
			continue
		}
		snap, version := doc.Snapshot()
		b.Entries = append(b.Entries, BackupEntry{
			URI:        doc.URI().String(),
			LanguageID: doc.LanguageID(),
			Version:    version,
			EOL:        eolName(snap.EOL()),
			Text:       snap.Text(),
		})
	}
	return b
}

// WriteBackup encodes the store's snapshot to w and returns the number of
// documents written.
func (s *Store) WriteBackup(w io.Writer) (int, error) {
	b := s.Snapshot()
	if err := msgpack.NewEncoder(w).Encode(b); err != nil {
		return 0, fmt.Errorf("encode backup: %w", err)
	}
	return len(b.Entries), nil
}

// SaveBackup writes the snapshot to path atomically.
func (s *Store) SaveBackup(path string) (int, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return 0, err
	}
	f, err := os.CreateTemp(filepath.Dir(path), "backup-*")
	if err != nil {
		return 0, err
	}
	defer os.Remove(f.Name())

	n, err := s.WriteBackup(f)
	if err != nil {
		f.Close()
		return 0, err
	}
	if err := f.Close(); err != nil {
		return 0, err
	}
	return n, os.Rename(f.Name(), path)
}

// ReadBackup decodes a backup from r.
func ReadBackup(r io.Reader) (*Backup, error) {
	var b Backup
	if err := msgpack.NewDecoder(r).Decode(&b); err != nil {
		return nil, fmt.Errorf("decode backup: %w", err)
	}
	if b.Schema != backupSchemaVersion {
		return nil, fmt.Errorf("%w: %d", ErrBackupSchema, b.Schema)
	}
	return &b, nil
}

// Restore reopens the documents of b as dirty documents with their backed
// up content and version. Entries whose URI is already open are skipped.
// Invalid entries are collected into the returned error; the others are
// still restored.
func (s *Store) Restore(ctx context.Context, b *Backup) ([]*engine.Document, error) {
	var (
		docs []*engine.Document
		errs []error
	)
	for _, e := range b.Entries {
		if err := ctx.Err(); err != nil {
			return docs, err
		}
		u, err := uri.Parse(e.URI)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		opts := []engine.Option{engine.WithVersion(e.Version), engine.WithDirty()}
		if eol, ok := buffer.ParseEOL(e.EOL); ok {
			opts = append(opts, engine.WithEOL(eol))
		}
		doc, err := s.OpenText(u, e.LanguageID, e.Text, opts...)
		if errors.Is(err, ErrAlreadyOpen) {
			s.logger.Info("backup of %s skipped: already open", u)
			continue
		}
		if err != nil {
			errs = append(errs, err)
			continue
		}
		docs = append(docs, doc)
	}
	return docs, errors.Join(errs...)
}

// RestoreFile reads and restores a backup file. A missing file restores
// nothing.
func (s *Store) RestoreFile(ctx context.Context, path string) ([]*engine.Document, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}
	defer f.Close()

	b, err := ReadBackup(f)
	if err != nil {
		return nil, err
	}
	return s.Restore(ctx, b)
}

func eolName(eol engine.EOL) string {
	if eol == engine.EOLCRLF {
		return "crlf"
	}
	return "lf"
}
