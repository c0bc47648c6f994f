package store

import (
	"fmt"
	"perimeterd/internal/models"
	"perimeterd/internal/providers"
	"perimeterd/internal/structures"
	"sync"
)

// StoreInterface is the single source of truth for durable perimeter state.
// Reads return copies. Updates run the mutation under the store lock and
// write through to disk; when the write fails the in-memory change stays
// committed and the error is returned for logging.
type StoreInterface interface {
	State() models.State
	Binding() models.PerimeterBinding
	SetBinding(b models.PerimeterBinding) error
	Posture() models.SafetyPosture
	UpdatePosture(fn func(p *models.SafetyPosture)) error
	Media() models.MediaState
	UpdateMedia(fn func(m *models.MediaState)) error
	Snapshot() models.PanicSnapshot
	SetSnapshot(s models.PanicSnapshot) error
	ClearSnapshot() error
	RestoreMemory() models.RestoreMemory
	UpdateRestoreMemory(fn func(r *models.RestoreMemory)) error
	Protected() models.ProtectedUser
	UpdateProtected(fn func(p *models.ProtectedUser)) error
	Update(fn func(s *models.State)) error
	PostureCode() int
	Load() error
	Flush() error
}

type FileStore struct {
	mu          sync.RWMutex
	state       models.State
	path        string
	fileManager *FileManager
	logger      providers.Logger
}

func defaultState(conf *structures.Config) models.State {
	return models.State{
		Version: models.StateVersion,
		Posture: models.SafetyPosture{
			// Locked until the first bind.
			PanicLocked:      true,
			HardMode:         conf.Perimeter.HardMode,
			AutopanicEnabled: conf.Perimeter.AutopanicEnabled,
		},
		Protected: models.ProtectedUser{UserID: conf.Perimeter.ProtectedUserID},
	}
}

func NewFileStore(conf *structures.Config, fileManager *FileManager, logger providers.Logger) StoreInterface {
	return &FileStore{
		state:       defaultState(conf),
		path:        conf.Persistence.FilePath,
		fileManager: fileManager,
		logger:      logger,
	}
}

// NewMemoryStore returns a store that never touches disk.
func NewMemoryStore(conf *structures.Config) *FileStore {
	return &FileStore{state: defaultState(conf)}
}

func (s *FileStore) Load() error {
	if s.fileManager == nil || s.path == "" {
		return nil
	}
	loaded, err := s.fileManager.LoadFromFile(s.path)
	if err != nil {
		return fmt.Errorf("loading state from %s: %w", s.path, err)
	}
	if loaded == nil {
		s.logger.Infof(providers.TypeStore, "No state file at %s, starting unbound", s.path)
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	loaded.Version = models.StateVersion
	if loaded.Protected.UserID == "" {
		loaded.Protected.UserID = s.state.Protected.UserID
	}
	s.state = *loaded
	return nil
}

func (s *FileStore) Flush() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.persistLocked()
}

func (s *FileStore) persistLocked() error {
	if s.fileManager == nil || s.path == "" {
		return nil
	}
	snapshot := s.state
	return s.fileManager.SaveToFile(s.path, &snapshot)
}

func (s *FileStore) Update(fn func(st *models.State)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn(&s.state)
	if err := s.persistLocked(); err != nil {
		return fmt.Errorf("persisting state: %w", err)
	}
	return nil
}

func (s *FileStore) State() models.State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

func (s *FileStore) Binding() models.PerimeterBinding {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.Binding
}

func (s *FileStore) SetBinding(b models.PerimeterBinding) error {
	return s.Update(func(st *models.State) { st.Binding = b })
}

func (s *FileStore) Posture() models.SafetyPosture {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.Posture
}

func (s *FileStore) UpdatePosture(fn func(p *models.SafetyPosture)) error {
	return s.Update(func(st *models.State) { fn(&st.Posture) })
}

func (s *FileStore) Media() models.MediaState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.Media
}

func (s *FileStore) UpdateMedia(fn func(m *models.MediaState)) error {
	return s.Update(func(st *models.State) { fn(&st.Media) })
}

func (s *FileStore) Snapshot() models.PanicSnapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.Snapshot
}

func (s *FileStore) SetSnapshot(snap models.PanicSnapshot) error {
	return s.Update(func(st *models.State) { st.Snapshot = snap })
}

func (s *FileStore) ClearSnapshot() error {
	return s.Update(func(st *models.State) { st.Snapshot = models.PanicSnapshot{} })
}

func (s *FileStore) RestoreMemory() models.RestoreMemory {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.Restore
}

func (s *FileStore) UpdateRestoreMemory(fn func(r *models.RestoreMemory)) error {
	return s.Update(func(st *models.State) { fn(&st.Restore) })
}

func (s *FileStore) Protected() models.ProtectedUser {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.Protected
}

func (s *FileStore) UpdateProtected(fn func(p *models.ProtectedUser)) error {
	return s.Update(func(st *models.State) { fn(&st.Protected) })
}

func (s *FileStore) PostureCode() int {
	return s.Posture().State().Code()
}

// NewPostureSource exposes the store to the metrics provider.
func NewPostureSource(s StoreInterface) providers.PostureSource {
	return s
}
