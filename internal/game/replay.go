package game

import (
	"compress/gzip"
	"encoding/gob"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/ethduel/duel-server-go/internal/game/rules"
)

const replayVersion = 1

// ReplayFrame is the game state right after one committed action.
type ReplayFrame struct {
	Seq        uint64
	Event      rules.EventType
	Actor      string
	RecordedAt time.Time
	State      *StateView
}

func newReplayFrame(event rules.EventType, actor string, state *StateView) *ReplayFrame {
	return &ReplayFrame{
		Seq:        state.Seq,
		Event:      event,
		Actor:      actor,
		RecordedAt: time.Now(),
		State:      state,
	}
}

// Replay is the ordered list of frames of one game.
type Replay struct {
	GameID string
	Frames []*ReplayFrame
	mu     sync.RWMutex
}

// NewReplay creates an empty replay.
func NewReplay(gameID string) *Replay {
	return &Replay{
		GameID: gameID,
		Frames: make([]*ReplayFrame, 0),
	}
}

// RecordFrame appends a frame.
func (r *Replay) RecordFrame(frame *ReplayFrame) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.Frames = append(r.Frames, frame)
}

// Size returns the number of frames.
func (r *Replay) Size() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.Frames)
}

// FrameAt returns the frame at index, or nil.
func (r *Replay) FrameAt(index int) *ReplayFrame {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if index >= 0 && index < len(r.Frames) {
		return r.Frames[index]
	}
	return nil
}

// Last returns the newest frame, or nil.
func (r *Replay) Last() *ReplayFrame {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if len(r.Frames) == 0 {
		return nil
	}
	return r.Frames[len(r.Frames)-1]
}

type replayMetadata struct {
	GameID     string
	SavedAt    time.Time
	Version    int
	FrameCount int
}

// ReplayPath returns the file a replay of gameID is stored in.
func ReplayPath(directory, gameID string) string {
	return filepath.Join(directory, fmt.Sprintf("%s.replay", gameID))
}

// SaveToFile writes the replay as gzip-compressed gob.
func (r *Replay) SaveToFile(directory string) error {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if err := os.MkdirAll(directory, 0o755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	file, err := os.Create(ReplayPath(directory, r.GameID))
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer file.Close()

	gzipWriter := gzip.NewWriter(file)
	encoder := gob.NewEncoder(gzipWriter)

	metadata := replayMetadata{
		GameID:     r.GameID,
		SavedAt:    time.Now(),
		Version:    replayVersion,
		FrameCount: len(r.Frames),
	}
	if err := encoder.Encode(&metadata); err != nil {
		gzipWriter.Close()
		return fmt.Errorf("failed to encode metadata: %w", err)
	}
	for i, frame := range r.Frames {
		if err := encoder.Encode(frame); err != nil {
			gzipWriter.Close()
			return fmt.Errorf("failed to encode frame %d: %w", i, err)
		}
	}
	if err := gzipWriter.Close(); err != nil {
		return fmt.Errorf("failed to flush replay: %w", err)
	}
	return nil
}

// LoadReplay reads a replay written by SaveToFile.
func LoadReplay(directory, gameID string) (*Replay, error) {
	file, err := os.Open(ReplayPath(directory, gameID))
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()

	gzipReader, err := gzip.NewReader(file)
	if err != nil {
		return nil, fmt.Errorf("failed to create gzip reader: %w", err)
	}
	defer gzipReader.Close()

	decoder := gob.NewDecoder(gzipReader)

	var metadata replayMetadata
	if err := decoder.Decode(&metadata); err != nil {
		return nil, fmt.Errorf("failed to decode metadata: %w", err)
	}
	if metadata.Version != replayVersion {
		return nil, fmt.Errorf("unsupported replay version: %d", metadata.Version)
	}

	replay := NewReplay(metadata.GameID)
	for i := 0; i < metadata.FrameCount; i++ {
		var frame ReplayFrame
		if err := decoder.Decode(&frame); err != nil {
			return nil, fmt.Errorf("failed to decode frame %d: %w", i, err)
		}
		replay.Frames = append(replay.Frames, &frame)
	}
	return replay, nil
}
