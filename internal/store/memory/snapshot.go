package memory

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"docchat/internal/domain"
)

// snapshotVersion guards against silently misloading an incompatible layout.
const snapshotVersion = 1

type snapshot struct {
	Version    int            `json:"version"`
	Dimension  int            `json:"dimension"`
	Chunks     []domain.Chunk `json:"chunks"`
	Embeddings [][]float64    `json:"embeddings"`
}

// persistLocked writes the whole store to a temp file next to the snapshot
// path and renames it into place, so a failed write never clobbers the
// previous snapshot. Caller must hold the write lock.
func (s *Store) persistLocked() error {
	if s.path == "" {
		return nil
	}
	snap := snapshot{
		Version:    snapshotVersion,
		Dimension:  s.dimension,
		Chunks:     s.chunks,
		Embeddings: s.vectors,
	}
	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("create snapshot dir: %w", err)
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write snapshot: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("replace snapshot: %w", err)
	}
	return nil
}

// restore replaces in-memory state with the durable snapshot if one exists.
// Any failure leaves the store empty and is logged rather than returned: a
// bad snapshot must not stop the system from starting.
func (s *Store) restore() {
	if s.path == "" {
		return
	}
	data, err := os.ReadFile(s.path)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			s.log.Warn("could not read snapshot, starting empty", zap.String("path", s.path), zap.Error(err))
		}
		return
	}
	var snap snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		s.log.Warn("corrupt snapshot, starting empty", zap.String("path", s.path), zap.Error(err))
		return
	}
	if snap.Version != snapshotVersion {
		s.log.Warn("incompatible snapshot version, starting empty",
			zap.String("path", s.path), zap.Int("version", snap.Version))
		return
	}
	if len(snap.Chunks) != len(snap.Embeddings) {
		s.log.Warn("snapshot chunk/embedding misalignment, starting empty",
			zap.String("path", s.path),
			zap.Int("chunks", len(snap.Chunks)), zap.Int("embeddings", len(snap.Embeddings)))
		return
	}
	s.chunks = snap.Chunks
	s.vectors = snap.Embeddings
	s.dimension = snap.Dimension
	s.log.Info("restored chunk snapshot", zap.String("path", s.path), zap.Int("chunks", len(s.chunks)))
}
