package perimeter

import (
	"context"
	"perimeterd/internal/models"
	"perimeterd/internal/providers"
	"perimeterd/internal/store"
	"sync"
	"time"

	"go.uber.org/atomic"
)

const (
	SourceSnapshotExternal = "snapshot:external"
	SourceSnapshotRadio    = "snapshot:radio"
	SourceMemoryExternal   = "memory:external"
	SourceMemoryRadio      = "memory:radio"
	SourceForcedRadio      = "forced:radio"
)

type ResumeResult struct {
	OK        bool   `json:"ok"`
	Source    string `json:"source,omitempty"`
	Target    string `json:"target,omitempty"`
	Abandoned bool   `json:"abandoned,omitempty"`
}

func (r ResumeResult) Summary() string {
	switch {
	case r.Abandoned:
		return "resume abandoned: radio restore took over"
	case !r.OK:
		return "no resume targets found"
	default:
		return "resumed from " + r.Source + ": " + r.Target
	}
}

type SnapshotInterface interface {
	Capture(ctx context.Context, guildID string) models.PanicSnapshot
	Resume(ctx context.Context, guildID string) ResumeResult
	ForceRadioRestore(ctx context.Context, guildID string) (ResumeResult, error)
}

// SnapshotEngine serializes every media replay. A forced radio restore
// bumps the generation when it finishes, so a resume that was already
// waiting for the lock gives up instead of overriding the radio.
type SnapshotEngine struct {
	mu         sync.Mutex
	generation atomic.Uint64
	store      store.StoreInterface
	player     Player
	notifier   NotifierInterface
	logger     providers.Logger
	now        func() time.Time
}

// Capture records what is playing right now and stores it as the panic
// snapshot. Radio wins over external playback.
func (e *SnapshotEngine) Capture(ctx context.Context, guildID string) models.PanicSnapshot {
	media := e.store.Media()
	snap := models.PanicSnapshot{}

	switch {
	case media.RadioActive():
		snap = models.PanicSnapshot{
			Kind:        models.SnapshotRadio,
			StationName: media.StationName,
			StationURL:  media.StationURL,
		}
	default:
		query := media.ExternalQuery
		if query == "" {
			query = e.store.RestoreMemory().LastExternalQuery
		}
		active := media.ExternalActive
		if !active && query != "" {
			active = e.player.Probe(ctx, guildID).IsPlaying()
		}
		if active && query != "" {
			snap = models.PanicSnapshot{Kind: models.SnapshotExternal, Query: query}
		}
	}

	if err := e.store.SetSnapshot(snap); err != nil {
		e.logger.Errorf(providers.TypeStore, "Failed to persist panic snapshot: %v", err)
	}
	e.logger.Infof(providers.TypePosture, "Captured panic snapshot kind=%q", snap.Kind)
	return snap
}

type resumeStep struct {
	source string
	name   string
	target string
}

// Resume walks snapshot external, snapshot radio, remembered external and
// remembered radio. The first replay that succeeds sets the media state.
func (e *SnapshotEngine) Resume(ctx context.Context, guildID string) ResumeResult {
	return e.resume(ctx, guildID, e.generation.Load())
}

func (e *SnapshotEngine) resume(ctx context.Context, guildID string, gen uint64) ResumeResult {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.generation.Load() != gen {
		e.logger.Infof(providers.TypePosture, "Resume abandoned, radio restore completed first")
		return ResumeResult{Abandoned: true}
	}

	if err := e.store.UpdateMedia(func(m *models.MediaState) { m.Clear() }); err != nil {
		e.logger.Errorf(providers.TypeStore, "Failed to clear media before resume: %v", err)
	}
	e.notifier.SetActivity(ctx, "")

	for _, step := range e.resumeSteps() {
		if err := e.player.Play(ctx, guildID, step.target); err != nil {
			e.logger.Warnf(providers.TypePosture, "Resume via %s failed: %v", step.source, err)
			continue
		}
		e.commit(ctx, step)
		return ResumeResult{OK: true, Source: step.source, Target: step.target}
	}
	return ResumeResult{}
}

func (e *SnapshotEngine) resumeSteps() []resumeStep {
	snap := e.store.Snapshot()
	memory := e.store.RestoreMemory()
	steps := make([]resumeStep, 0, 4)

	if snap.Kind == models.SnapshotExternal && snap.Query != "" {
		steps = append(steps, resumeStep{source: SourceSnapshotExternal, target: snap.Query})
	}
	if snap.Kind == models.SnapshotRadio && snap.StationName != "" && snap.StationURL != "" {
		steps = append(steps, resumeStep{source: SourceSnapshotRadio, name: snap.StationName, target: snap.StationURL})
	}
	if memory.LastExternalQuery != "" {
		steps = append(steps, resumeStep{source: SourceMemoryExternal, target: memory.LastExternalQuery})
	}
	if memory.HasStation() {
		steps = append(steps, resumeStep{source: SourceMemoryRadio, name: memory.LastStationName, target: memory.LastStationURL})
	}
	return steps
}

func (e *SnapshotEngine) commit(ctx context.Context, step resumeStep) {
	var label string
	err := e.store.Update(func(s *models.State) {
		if step.name != "" {
			s.Media.SetRadio(step.name, step.target)
			s.Restore.LastStationName = step.name
			s.Restore.LastStationURL = step.target
			label = "📻 " + step.name
			return
		}
		s.Media.SetExternal(step.target, e.now())
		s.Restore.LastExternalQuery = step.target
		label = "▶️ external"
	})
	if err != nil {
		e.logger.Errorf(providers.TypeStore, "Failed to persist resumed media: %v", err)
	}
	e.notifier.SetActivity(ctx, label)
	e.logger.Infof(providers.TypePosture, "Resumed via %s", step.source)
}

// ForceRadioRestore stops whatever is playing and switches to the last
// remembered station. It always wins over a pending resume.
func (e *SnapshotEngine) ForceRadioRestore(ctx context.Context, guildID string) (ResumeResult, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	defer e.generation.Inc()

	memory := e.store.RestoreMemory()
	if !memory.HasStation() {
		return ResumeResult{}, ErrNoSavedStation
	}

	if err := e.player.Stop(ctx, guildID); err != nil {
		e.logger.Warnf(providers.TypePosture, "Stop before radio restore failed: %v", err)
	}
	if err := e.store.UpdateMedia(func(m *models.MediaState) { m.Clear() }); err != nil {
		e.logger.Errorf(providers.TypeStore, "Failed to clear media before radio restore: %v", err)
	}
	e.notifier.SetActivity(ctx, "")

	if err := e.player.Play(ctx, guildID, memory.LastStationURL); err != nil {
		return ResumeResult{}, &PlayerError{Op: "play", Err: err}
	}

	step := resumeStep{source: SourceForcedRadio, name: memory.LastStationName, target: memory.LastStationURL}
	e.commit(ctx, step)
	return ResumeResult{OK: true, Source: step.source, Target: step.target}, nil
}

func NewSnapshotEngine(
	st store.StoreInterface,
	player Player,
	notifier NotifierInterface,
	logger providers.Logger,
) SnapshotInterface {
	return &SnapshotEngine{
		store:    st,
		player:   player,
		notifier: notifier,
		logger:   logger,
		now:      time.Now,
	}
}
