package telemetry

import (
	"bufio"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/klauspost/compress/zstd"
)

// SnapshotVersion is incremented when the format changes.
const SnapshotVersion = 1

// ErrSnapshotSize is returned when a snapshot payload does not match its header.
var ErrSnapshotSize = errors.New("telemetry: snapshot payload does not match header")

// SnapshotHeader describes a field snapshot. It is written as one JSON line
// ahead of the raw little-endian float32 payload.
type SnapshotHeader struct {
	Version  int     `json:"version"`
	Step     uint64  `json:"step"`
	SimTime  float32 `json:"sim_time"`
	Width    int     `json:"width"`
	Height   int     `json:"height"`
	Depth    int     `json:"depth"`
	Channels int     `json:"channels"`
	Variant  string  `json:"variant"`
	Seed     int64   `json:"seed"`
}

// Values returns the number of float32 values the payload holds.
func (h SnapshotHeader) Values() int {
	return h.Width * h.Height * max(h.Depth, 1) * h.Channels
}

// SnapshotName returns the file name used for a snapshot at step.
func SnapshotName(step uint64) string {
	return fmt.Sprintf("field-%d.bin.zst", step)
}

// WriteFieldSnapshot writes a zstd-compressed field snapshot into dir and
// returns its path.
func WriteFieldSnapshot(dir string, h SnapshotHeader, data []float32) (string, error) {
	h.Version = SnapshotVersion
	if h.Values() != len(data) {
		return "", fmt.Errorf("%w: header wants %d values, have %d", ErrSnapshotSize, h.Values(), len(data))
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create snapshot dir: %w", err)
	}

	path := filepath.Join(dir, SnapshotName(h.Step))
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return "", fmt.Errorf("create snapshot: %w", err)
	}
	defer f.Close()

	enc, err := zstd.NewWriter(f, zstd.WithEncoderLevel(zstd.SpeedFastest))
	if err != nil {
		return "", err
	}
	bw := bufio.NewWriterSize(enc, 256*1024)

	hb, err := json.Marshal(h)
	if err != nil {
		enc.Close()
		return "", fmt.Errorf("marshal snapshot header: %w", err)
	}
	hb = append(hb, '\n')
	if _, err := bw.Write(hb); err != nil {
		enc.Close()
		return "", fmt.Errorf("write snapshot header: %w", err)
	}
	if err := binary.Write(bw, binary.LittleEndian, data); err != nil {
		enc.Close()
		return "", fmt.Errorf("write snapshot payload: %w", err)
	}
	if err := bw.Flush(); err != nil {
		enc.Close()
		return "", fmt.Errorf("flush snapshot: %w", err)
	}
	if err := enc.Close(); err != nil {
		return "", fmt.Errorf("close snapshot encoder: %w", err)
	}
	return path, f.Close()
}

// ReadFieldSnapshot reads a snapshot written by WriteFieldSnapshot.
func ReadFieldSnapshot(path string) (SnapshotHeader, []float32, error) {
	var h SnapshotHeader
	f, err := os.Open(path)
	if err != nil {
		return h, nil, fmt.Errorf("open snapshot: %w", err)
	}
	defer f.Close()

	dec, err := zstd.NewReader(f)
	if err != nil {
		return h, nil, err
	}
	defer dec.Close()

	br := bufio.NewReaderSize(dec, 256*1024)
	line, err := br.ReadBytes('\n')
	if err != nil {
		return h, nil, fmt.Errorf("read snapshot header: %w", err)
	}
	if err := json.Unmarshal(line, &h); err != nil {
		return h, nil, fmt.Errorf("unmarshal snapshot header: %w", err)
	}
	if h.Version != SnapshotVersion {
		return h, nil, fmt.Errorf("unsupported snapshot version %d", h.Version)
	}

	data := make([]float32, h.Values())
	if err := binary.Read(br, binary.LittleEndian, data); err != nil {
		return h, nil, fmt.Errorf("%w: %v", ErrSnapshotSize, err)
	}
	return h, data, nil
}
