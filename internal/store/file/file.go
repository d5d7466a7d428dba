// internal/store/file/file.go
package file

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/user/storyloom/internal/store"
	"github.com/user/storyloom/internal/types"
)

// listConcurrency bounds how many session files List reads at once.
const listConcurrency = 8

// Store is a JSON-file-backed session store. Each session lives in
// sessions/<sessionID>.json under the root directory.
type Store struct {
	root string
	mu   sync.RWMutex
}

// New creates a file-backed Store rooted at the given directory.
func New(root string) *Store {
	return &Store{root: root}
}

func (s *Store) sessionsDir() string {
	return filepath.Join(s.root, "sessions")
}

func (s *Store) sessionPath(id types.SessionID) string {
	return filepath.Join(s.sessionsDir(), string(id)+".json")
}

// Save writes the session record atomically: marshal to a temp file, then
// rename into place. A failed save leaves the committed record intact. The
// caller's session is never mutated; only a clone touches the disk.
func (s *Store) Save(ctx context.Context, session *types.StorySession) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	record := session.Clone()

	data, err := json.MarshalIndent(record, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal session %s: %w", session.ID, err)
	}
	data = append(data, '\n')

	if err := os.MkdirAll(s.sessionsDir(), 0o755); err != nil {
		return fmt.Errorf("create sessions dir: %w", err)
	}

	path := s.sessionPath(session.ID)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write temp session: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("rename temp session: %w", err)
	}
	return nil
}

// Load reads and parses the session record for the given ID. An unreadable
// or unparsable record yields a *store.CorruptError; the file is left alone.
func (s *Store) Load(_ context.Context, id types.SessionID) (*types.StorySession, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.load(id)
}

func (s *Store) load(id types.SessionID) (*types.StorySession, error) {
	data, err := os.ReadFile(s.sessionPath(id))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, store.ErrNotFound
		}
		return nil, fmt.Errorf("read session %s: %w", id, err)
	}

	var session types.StorySession
	if err := json.Unmarshal(data, &session); err != nil {
		return nil, &store.CorruptError{ID: id, Err: err}
	}
	if session.ID == "" || session.World == nil {
		return nil, &store.CorruptError{ID: id, Err: fmt.Errorf("record missing id or world")}
	}
	return &session, nil
}

// List returns summaries for every readable session, newest first. Corrupt
// records are logged and skipped; they remain on disk.
func (s *Store) List(ctx context.Context) ([]types.SessionSummary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entries, err := os.ReadDir(s.sessionsDir())
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read sessions dir: %w", err)
	}

	var ids []types.SessionID
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, ".json") {
			continue
		}
		ids = append(ids, types.SessionID(strings.TrimSuffix(name, ".json")))
	}

	summaries := make([]types.SessionSummary, len(ids))
	keep := make([]bool, len(ids))

	g, _ := errgroup.WithContext(ctx)
	g.SetLimit(listConcurrency)
	for i, id := range ids {
		i, id := i, id // per-iteration copies; required while the go directive is below 1.22
		g.Go(func() error {
			session, err := s.load(id)
			if err != nil {
				slog.Warn("skipping unreadable session", "session_id", id, "error", err)
				return nil
			}
			summaries[i] = store.Summarize(session)
			keep[i] = true
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := summaries[:0]
	for i, ok := range keep {
		if ok {
			out = append(out, summaries[i])
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].LastUpdated.After(out[j].LastUpdated)
	})
	return out, nil
}

// Delete removes the session record for the given ID.
func (s *Store) Delete(_ context.Context, id types.SessionID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	err := os.Remove(s.sessionPath(id))
	if err != nil {
		if os.IsNotExist(err) {
			return store.ErrNotFound
		}
		return fmt.Errorf("delete session %s: %w", id, err)
	}
	return nil
}
