package monitoring

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/Masterminds/semver/v3"
	"github.com/rs/zerolog/log"
)

// LogSchemaVersion is the version stamped on exported monitoring logs
const LogSchemaVersion = "1.0.0"

// ErrInvalidLog is returned when an import payload cannot be accepted
var ErrInvalidLog = errors.New("invalid monitoring log")

// LogStore is the append-only record of signals, actions and insights
type LogStore interface {
	SignalResolver

	AppendSignals(signals ...RiskSignal)
	AppendActions(actions ...RiskAction)
	AppendInsights(insights ...LearningInsight)

	// Snapshot returns a copy of the whole log
	Snapshot() MonitoringLog

	Export() ([]byte, error)
	// Import replaces the log with the payload; on error the log is left unchanged
	Import(data []byte) error
	Reset()
}

// exportedLog is the serialized form of a MonitoringLog
type exportedLog struct {
	Version          string            `json:"version"`
	ExportedAt       time.Time         `json:"exportedAt"`
	Signals          []RiskSignal      `json:"signals"`
	Actions          []RiskAction      `json:"actions"`
	LearningInsights []LearningInsight `json:"learningInsights"`
}

// MemoryLogStore keeps the monitoring log in memory. It is safe for concurrent use.
type MemoryLogStore struct {
	mu       sync.RWMutex
	log      MonitoringLog
	signalIx map[string]int
}

// NewMemoryLogStore creates an empty in-memory log store
func NewMemoryLogStore() *MemoryLogStore {
	return &MemoryLogStore{
		log:      emptyLog(),
		signalIx: make(map[string]int),
	}
}

func emptyLog() MonitoringLog {
	return MonitoringLog{
		Signals:          []RiskSignal{},
		Actions:          []RiskAction{},
		LearningInsights: []LearningInsight{},
	}
}

// AppendSignals implements LogStore
func (s *MemoryLogStore) AppendSignals(signals ...RiskSignal) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, sig := range signals {
		s.signalIx[sig.ID] = len(s.log.Signals)
		s.log.Signals = append(s.log.Signals, sig)
	}
}

// AppendActions implements LogStore
func (s *MemoryLogStore) AppendActions(actions ...RiskAction) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.log.Actions = append(s.log.Actions, actions...)
}

// AppendInsights implements LogStore
func (s *MemoryLogStore) AppendInsights(insights ...LearningInsight) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.log.LearningInsights = append(s.log.LearningInsights, insights...)
}

// Signal implements SignalResolver
func (s *MemoryLogStore) Signal(id string) (RiskSignal, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	i, ok := s.signalIx[id]
	if !ok {
		return RiskSignal{}, false
	}
	return s.log.Signals[i], true
}

// Snapshot implements LogStore
func (s *MemoryLogStore) Snapshot() MonitoringLog {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return MonitoringLog{
		Signals:          append([]RiskSignal{}, s.log.Signals...),
		Actions:          append([]RiskAction{}, s.log.Actions...),
		LearningInsights: append([]LearningInsight{}, s.log.LearningInsights...),
	}
}

// Export implements LogStore
func (s *MemoryLogStore) Export() ([]byte, error) {
	snapshot := s.Snapshot()
	data, err := json.Marshal(exportedLog{
		Version:          LogSchemaVersion,
		ExportedAt:       time.Now().UTC(),
		Signals:          snapshot.Signals,
		Actions:          snapshot.Actions,
		LearningInsights: snapshot.LearningInsights,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal monitoring log: %w", err)
	}
	return data, nil
}

// Import implements LogStore
func (s *MemoryLogStore) Import(data []byte) error {
	parsed, err := ParseLog(data)
	if err != nil {
		return err
	}

	index := make(map[string]int, len(parsed.Signals))
	for i, sig := range parsed.Signals {
		index[sig.ID] = i
	}

	s.mu.Lock()
	s.log = parsed
	s.signalIx = index
	s.mu.Unlock()

	log.Info().
		Int("signals", len(parsed.Signals)).
		Int("actions", len(parsed.Actions)).
		Int("insights", len(parsed.LearningInsights)).
		Msg("Imported monitoring log")

	return nil
}

// Reset implements LogStore
func (s *MemoryLogStore) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.log = emptyLog()
	s.signalIx = make(map[string]int)
}

// ParseLog decodes and validates an exported monitoring log without touching any store
func ParseLog(data []byte) (MonitoringLog, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return MonitoringLog{}, fmt.Errorf("%w: %v", ErrInvalidLog, err)
	}

	for _, key := range []string{"signals", "actions", "learningInsights"} {
		v, ok := raw[key]
		if !ok || string(v) == "null" {
			return MonitoringLog{}, fmt.Errorf("%w: missing %q", ErrInvalidLog, key)
		}
	}

	if v, ok := raw["version"]; ok {
		var version string
		if err := json.Unmarshal(v, &version); err != nil {
			return MonitoringLog{}, fmt.Errorf("%w: version must be a string", ErrInvalidLog)
		}
		if err := CheckLogVersion(version); err != nil {
			return MonitoringLog{}, err
		}
	}

	parsed := emptyLog()
	if err := json.Unmarshal(raw["signals"], &parsed.Signals); err != nil {
		return MonitoringLog{}, fmt.Errorf("%w: signals: %v", ErrInvalidLog, err)
	}
	if err := json.Unmarshal(raw["actions"], &parsed.Actions); err != nil {
		return MonitoringLog{}, fmt.Errorf("%w: actions: %v", ErrInvalidLog, err)
	}
	if err := json.Unmarshal(raw["learningInsights"], &parsed.LearningInsights); err != nil {
		return MonitoringLog{}, fmt.Errorf("%w: learningInsights: %v", ErrInvalidLog, err)
	}

	for i, sig := range parsed.Signals {
		if sig.ID == "" || sig.Timestamp.IsZero() {
			return MonitoringLog{}, fmt.Errorf("%w: signal %d missing id or timestamp", ErrInvalidLog, i)
		}
	}
	for i, a := range parsed.Actions {
		if a.ID == "" || a.Timestamp.IsZero() {
			return MonitoringLog{}, fmt.Errorf("%w: action %d missing id or timestamp", ErrInvalidLog, i)
		}
	}
	for i, in := range parsed.LearningInsights {
		if in.ID == "" || in.Timestamp.IsZero() {
			return MonitoringLog{}, fmt.Errorf("%w: insight %d missing id or timestamp", ErrInvalidLog, i)
		}
	}

	return parsed, nil
}

// CheckLogVersion accepts logs written by the same major schema version that are
// not newer than this build supports
func CheckLogVersion(version string) error {
	if version == "" {
		return nil
	}

	current, err := semver.NewVersion(version)
	if err != nil {
		return fmt.Errorf("%w: invalid schema version %q", ErrInvalidLog, version)
	}
	supported := semver.MustParse(LogSchemaVersion)

	if current.Major() != supported.Major() {
		return fmt.Errorf("%w: schema version %s is incompatible with %s", ErrInvalidLog, version, LogSchemaVersion)
	}
	if current.GreaterThan(supported) {
		return fmt.Errorf("%w: schema version %s is newer than supported version %s", ErrInvalidLog, version, LogSchemaVersion)
	}
	return nil
}
