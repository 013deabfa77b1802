package ops

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/afero"

	stackiterrors "stackit.dev/stackcore/internal/errors"
)

const (
	openStateFile = "open.json"
	redoFile      = "REDO"
)

// Store persists receipts, the open-transaction lock and the redo pointer in one directory
type Store struct {
	fs  afero.Fs
	dir string
}

// NewStore creates a store rooted at dir on fs
func NewStore(fs afero.Fs, dir string) *Store {
	return &Store{fs: fs, dir: dir}
}

// Dir returns the directory receipts are written to
func (s *Store) Dir() string {
	return s.dir
}

func (s *Store) path(name string) string {
	return filepath.Join(s.dir, name)
}

// Lock creates the open-transaction file exclusively. When another operation
// holds it, a TransactionOpenError describing that operation is returned.
func (s *Store) Lock(open *Receipt) error {
	if err := s.fs.MkdirAll(s.dir, 0750); err != nil {
		return fmt.Errorf("failed to create ops directory: %w", err)
	}

	f, err := s.fs.OpenFile(s.path(openStateFile), os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0600)
	if err != nil {
		if errors.Is(err, os.ErrExist) {
			held, loadErr := s.LoadOpen()
			if loadErr != nil {
				return &stackiterrors.TransactionOpenError{}
			}
			return &stackiterrors.TransactionOpenError{OpID: held.OpID, Kind: string(held.Kind)}
		}
		return fmt.Errorf("failed to acquire operation lock: %w", err)
	}

	data, err := json.MarshalIndent(open, "", "  ")
	if err == nil {
		_, err = f.Write(data)
	}
	if closeErr := f.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		_ = s.fs.Remove(s.path(openStateFile))
		return fmt.Errorf("failed to write operation lock: %w", err)
	}
	return nil
}

// SaveOpen rewrites the state of the open transaction
func (s *Store) SaveOpen(open *Receipt) error {
	return s.writeJSON(openStateFile, open)
}

// LoadOpen reads the open transaction, or returns ErrNoTransaction
func (s *Store) LoadOpen() (*Receipt, error) {
	var open Receipt
	if err := s.readJSON(openStateFile, &open); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, stackiterrors.ErrNoTransaction
		}
		return nil, err
	}
	return &open, nil
}

// Unlock removes the open-transaction file
func (s *Store) Unlock() error {
	if err := s.fs.Remove(s.path(openStateFile)); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to release operation lock: %w", err)
	}
	return nil
}

// SaveReceipt writes a receipt under its op id
func (s *Store) SaveReceipt(r *Receipt) error {
	return s.writeJSON(r.OpID+".json", r)
}

// LoadReceipt reads the receipt for opID
func (s *Store) LoadReceipt(opID string) (*Receipt, error) {
	var r Receipt
	if err := s.readJSON(opID+".json", &r); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", stackiterrors.ErrReceiptNotFound, opID)
		}
		return nil, err
	}
	return &r, nil
}

// ListReceipts returns every receipt, newest first
func (s *Store) ListReceipts() ([]*Receipt, error) {
	infos, err := afero.ReadDir(s.fs, s.dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to list receipts: %w", err)
	}

	var receipts []*Receipt
	for _, info := range infos {
		name := info.Name()
		if info.IsDir() || name == openStateFile || !strings.HasSuffix(name, ".json") {
			continue
		}
		r, err := s.LoadReceipt(strings.TrimSuffix(name, ".json"))
		if err != nil {
			return nil, err
		}
		receipts = append(receipts, r)
	}

	sort.SliceStable(receipts, func(i, j int) bool {
		if !receipts[i].StartedAt.Equal(receipts[j].StartedAt) {
			return receipts[i].StartedAt.After(receipts[j].StartedAt)
		}
		return receipts[i].OpID > receipts[j].OpID
	})
	return receipts, nil
}

// SetRedo records the receipt the next redo applies
func (s *Store) SetRedo(opID string) error {
	if err := s.fs.MkdirAll(s.dir, 0750); err != nil {
		return fmt.Errorf("failed to create ops directory: %w", err)
	}
	if err := afero.WriteFile(s.fs, s.path(redoFile), []byte(opID+"\n"), 0600); err != nil {
		return fmt.Errorf("failed to write redo pointer: %w", err)
	}
	return nil
}

// Redo returns the receipt id recorded by the last undo
func (s *Store) Redo() (string, bool) {
	data, err := afero.ReadFile(s.fs, s.path(redoFile))
	if err != nil {
		return "", false
	}
	id := strings.TrimSpace(string(data))
	return id, id != ""
}

// ClearRedo forgets the redo pointer
func (s *Store) ClearRedo() error {
	if err := s.fs.Remove(s.path(redoFile)); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to clear redo pointer: %w", err)
	}
	return nil
}

func (s *Store) writeJSON(name string, v any) error {
	if err := s.fs.MkdirAll(s.dir, 0750); err != nil {
		return fmt.Errorf("failed to create ops directory: %w", err)
	}
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal %s: %w", name, err)
	}
	if err := afero.WriteFile(s.fs, s.path(name), data, 0600); err != nil {
		return fmt.Errorf("failed to write %s: %w", name, err)
	}
	return nil
}

func (s *Store) readJSON(name string, v any) error {
	data, err := afero.ReadFile(s.fs, s.path(name))
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("failed to parse %s: %w", name, err)
	}
	return nil
}
