package audio

import (
	"sync"

	"LumiFM/model"
)

// MockOutput is a scriptable Output for tests.
// Events are emitted manually by the test, tagged with the generation
// of the most recent Load unless overridden.
type MockOutput struct {
	mu sync.Mutex

	events chan Event

	LoadedTrack *model.Track
	LastGen     uint64
	LoadCalls   int
	PlayCalls   int
	PauseCalls  int
	SeekCalls   []float64
	VolumeCalls []float64

	// PlayErr is returned by the next Play call (e.g. ErrPlaybackBlocked).
	PlayErr error
}

// NewMockOutput creates a mock output with a buffered event channel.
func NewMockOutput() *MockOutput {
	return &MockOutput{events: make(chan Event, 64)}
}

func (m *MockOutput) Load(track *model.Track, generation uint64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.LoadedTrack = track
	m.LastGen = generation
	m.LoadCalls++
}

func (m *MockOutput) Play() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.PlayCalls++
	return m.PlayErr
}

func (m *MockOutput) Pause() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.PauseCalls++
}

func (m *MockOutput) Seek(seconds float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.SeekCalls = append(m.SeekCalls, seconds)
}

func (m *MockOutput) SetVolume(v float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.VolumeCalls = append(m.VolumeCalls, v)
}

func (m *MockOutput) Events() <-chan Event { return m.events }

func (m *MockOutput) Close() {}

// Gen returns the generation of the most recent Load.
func (m *MockOutput) Gen() uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.LastGen
}

// Emit pushes an event tagged with the given generation.
func (m *MockOutput) Emit(ev Event) {
	m.events <- ev
}

// EmitDuration emits durationKnown for the current load.
func (m *MockOutput) EmitDuration(d float64) {
	m.Emit(Event{Kind: EventDurationKnown, Generation: m.Gen(), Duration: d})
}

// EmitStarted emits started for the current load.
func (m *MockOutput) EmitStarted() {
	m.Emit(Event{Kind: EventStarted, Generation: m.Gen()})
}

// EmitTime emits timeUpdate for the current load.
func (m *MockOutput) EmitTime(t float64) {
	m.Emit(Event{Kind: EventTimeUpdate, Generation: m.Gen(), Time: t})
}

// EmitEnded emits ended for the current load.
func (m *MockOutput) EmitEnded() {
	m.Emit(Event{Kind: EventEnded, Generation: m.Gen()})
}

// EmitError emits error for the current load.
func (m *MockOutput) EmitError(reason string) {
	m.Emit(Event{Kind: EventError, Generation: m.Gen(), Err: reason})
}
