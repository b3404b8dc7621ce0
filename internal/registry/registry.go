// Package registry loads the JSON configuration documents and presents an
// indexed, read-only view of the node graph, the API catalog, the agent
// roster, recording profiles, the language table and the schedule.
//
// The loaded view is an immutable Snapshot. Reloading builds and validates
// a fresh Snapshot and swaps it atomically, so in-flight calls keep the
// snapshot they started with.
package registry

import (
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/automax/ivrflow/internal/domain"
)

// Snapshot is one fully validated configuration generation.
type Snapshot struct {
	nodes      map[int]*domain.Node
	start      *domain.Node
	apis       map[int]*domain.ApiSpec
	agents     []domain.AgentEntry
	queueName  string
	recordings map[int]*domain.RecordingProfile
	languages  map[int]*domain.LanguageRow

	schedule         map[string]domain.TimeWindow
	unavailDates     map[string]struct{}
	unavailAudio     string
	sttResponseField string
}

// Node returns the node with the given id.
func (s *Snapshot) Node(id int) (*domain.Node, bool) {
	n, ok := s.nodes[id]
	return n, ok
}

// StartNode returns the unique node flagged is_start.
func (s *Snapshot) StartNode() *domain.Node {
	return s.start
}

// API returns the catalog entry with the given id.
func (s *Snapshot) API(id int) (*domain.ApiSpec, bool) {
	a, ok := s.apis[id]
	return a, ok
}

// Agents returns the roster. The slice must not be mutated.
func (s *Snapshot) Agents() []domain.AgentEntry {
	return s.agents
}

// QueueName returns the configured queue, or def when none is configured.
func (s *Snapshot) QueueName(def string) string {
	if s.queueName != "" {
		return s.queueName
	}
	return def
}

// Recording returns the recording profile with the given type id.
func (s *Snapshot) Recording(typeID int) (*domain.RecordingProfile, bool) {
	r, ok := s.recordings[typeID]
	return r, ok
}

// Language returns the language row whose code equals code.
func (s *Snapshot) Language(code int) (*domain.LanguageRow, bool) {
	l, ok := s.languages[code]
	return l, ok
}

// ScheduleWindow returns the business-hours window for a weekday key
// (SUN..SAT). A missing or empty window means the weekday is closed.
func (s *Snapshot) ScheduleWindow(weekday string) (domain.TimeWindow, bool) {
	w, ok := s.schedule[weekday]
	return w, ok
}

// HasSchedule reports whether an availability schedule was configured at
// all. Without one the gate stays open.
func (s *Snapshot) HasSchedule() bool {
	return len(s.schedule) > 0
}

// IsUnavailableDate reports whether date (MMDDYYYY) is blacked out.
func (s *Snapshot) IsUnavailableDate(date string) bool {
	_, ok := s.unavailDates[date]
	return ok
}

// UnavailabilityAudio returns the audio file played when the gate is closed.
func (s *Snapshot) UnavailabilityAudio() string {
	return s.unavailAudio
}

// STTResponseField returns the response field name carrying transcription
// text, from general setting 14.
func (s *Snapshot) STTResponseField() string {
	return s.sttResponseField
}

// NodeCount returns the number of loaded nodes.
func (s *Snapshot) NodeCount() int { return len(s.nodes) }

// Paths names the configuration documents on disk. Agents and Recordings
// are optional; the other two are required.
type Paths struct {
	Flow       string
	Catalog    string
	Agents     string
	Recordings string
}

// Registry hands out the current Snapshot and supports between-call reload.
type Registry struct {
	current atomic.Pointer[Snapshot]
	paths   Paths
	logger  *zap.Logger
}

// New loads the documents at paths and returns a ready registry. A load or
// validation failure is fatal; the process must not start without a valid
// configuration.
func New(paths Paths, logger *zap.Logger) (*Registry, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	r := &Registry{paths: paths, logger: logger}
	snap, err := load(paths, logger)
	if err != nil {
		return nil, err
	}
	r.current.Store(snap)
	logger.Info("configuration loaded",
		zap.Int("nodes", len(snap.nodes)),
		zap.Int("apis", len(snap.apis)),
		zap.Int("agents", len(snap.agents)),
		zap.Int("languages", len(snap.languages)),
	)
	return r, nil
}

// Current returns the active snapshot. Callers pin it for the lifetime of a
// call; a concurrent reload does not affect them.
func (r *Registry) Current() *Snapshot {
	return r.current.Load()
}

// Reload re-reads and re-validates the documents, then swaps the snapshot.
// On failure, the previous snapshot stays active.
func (r *Registry) Reload() error {
	snap, err := load(r.paths, r.logger)
	if err != nil {
		r.logger.Error("configuration reload rejected", zap.Error(err))
		return err
	}
	r.current.Store(snap)
	r.logger.Info("configuration reloaded",
		zap.Int("nodes", len(snap.nodes)),
		zap.Int("apis", len(snap.apis)),
	)
	return nil
}
