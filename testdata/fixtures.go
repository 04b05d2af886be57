// Package testdata provides canned landmark frames for tests.
package testdata

import (
	"embed"
	"fmt"
	"sort"

	"github.com/ayusman/handmirror/internal/protocol"
)

//go:embed frames/*
var framesFS embed.FS

// LoadFrame loads a captured frame payload by name.
func LoadFrame(name string) (*protocol.MultiHandFrame, error) {
	data, err := framesFS.ReadFile("frames/" + name)
	if err != nil {
		return nil, fmt.Errorf("load frame %s: %w", name, err)
	}

	frame, err := protocol.Decode(data)
	if err != nil {
		return nil, fmt.Errorf("decode frame %s: %w", name, err)
	}

	return frame, nil
}

// RawFrame returns the raw payload bytes for a frame, for tests that
// exercise the wire path.
func RawFrame(name string) ([]byte, error) {
	data, err := framesFS.ReadFile("frames/" + name)
	if err != nil {
		return nil, fmt.Errorf("load frame %s: %w", name, err)
	}
	return data, nil
}

// LoadSequence loads a directory of frame payloads in filename order.
func LoadSequence(dir string) ([]*protocol.MultiHandFrame, error) {
	entries, err := framesFS.ReadDir("frames/" + dir)
	if err != nil {
		return nil, err
	}

	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		names = append(names, entry.Name())
	}
	sort.Strings(names)

	var frames []*protocol.MultiHandFrame
	for _, name := range names {
		frame, err := LoadFrame(dir + "/" + name)
		if err != nil {
			return nil, err
		}
		frames = append(frames, frame)
	}

	return frames, nil
}
