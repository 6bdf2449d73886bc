package memory

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"sync"
)

// fileDocument is the on-disk shape of a FileStore.
type fileDocument struct {
	NextSeq  int64     `json:"next_seq"`
	Messages []Message `json:"messages"`
}

// FileStore keeps the conversation in a single JSON document.
// Every write replaces the file through a temp file and rename, so a failed
// batch never leaves a partially written log behind.
type FileStore struct {
	path  string
	clock Clock
	mu    sync.Mutex
}

// OpenFile returns a FileStore backed by path. The file is created lazily.
func OpenFile(path string) (*FileStore, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, storeErr("open", err)
		}
	}
	return &FileStore{path: path}, nil
}

// WithClock overrides the timestamp source; intended for tests.
func (s *FileStore) WithClock(c Clock) *FileStore {
	s.clock = c
	return s
}

func (s *FileStore) load() (fileDocument, error) {
	b, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fileDocument{NextSeq: 1}, nil
		}
		return fileDocument{}, err
	}
	var doc fileDocument
	if err := json.Unmarshal(b, &doc); err != nil {
		return fileDocument{}, err
	}
	if doc.NextSeq <= 0 {
		doc.NextSeq = int64(len(doc.Messages)) + 1
	}
	return doc, nil
}

func (s *FileStore) save(doc fileDocument) error {
	b, err := json.MarshalIndent(doc, "", " ")
	if err != nil {
		return err
	}
	tmp, err := os.CreateTemp(filepath.Dir(s.path), filepath.Base(s.path)+".*.tmp")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(b); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), s.path)
}

// Append validates and stamps the whole batch before a single file replace.
func (s *FileStore) Append(_ context.Context, msgs ...Message) ([]Message, error) {
	if len(msgs) == 0 {
		return nil, nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.load()
	if err != nil {
		return nil, storeErr("append", err)
	}
	stamped := stamp(msgs, s.clock)
	for i := range stamped {
		if err := stamped[i].Validate(); err != nil {
			return nil, storeErr("append", err)
		}
		stamped[i].Seq = doc.NextSeq
		doc.NextSeq++
	}
	doc.Messages = append(doc.Messages, stamped...)
	if err := s.save(doc); err != nil {
		return nil, storeErr("append", err)
	}
	return stamped, nil
}

// List returns all messages ordered by created_at, then seq.
func (s *FileStore) List(_ context.Context) ([]Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.load()
	if err != nil {
		return nil, storeErr("list", err)
	}
	out := make([]Message, 0, len(doc.Messages))
	for _, m := range doc.Messages {
		if m.Annotations == nil {
			m.Annotations = []json.RawMessage{}
		}
		out = append(out, m)
	}
	sortMessages(out)
	return out, nil
}

// Reset empties the log. The sequence counter keeps counting.
func (s *FileStore) Reset(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.load()
	if err != nil {
		return storeErr("reset", err)
	}
	doc.Messages = nil
	return storeErr("reset", s.save(doc))
}

// Delete removes the messages with the given ids. Unknown ids are ignored.
func (s *FileStore) Delete(_ context.Context, ids ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.load()
	if err != nil {
		return storeErr("delete", err)
	}
	drop := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		drop[id] = struct{}{}
	}
	kept := doc.Messages[:0]
	for _, m := range doc.Messages {
		if _, ok := drop[m.ID]; !ok {
			kept = append(kept, m)
		}
	}
	doc.Messages = kept
	return storeErr("delete", s.save(doc))
}

func (s *FileStore) Close() error { return nil }
