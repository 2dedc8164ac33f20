//go:build !darwin || !cgo

package clipboard

import (
	"fmt"
	"sync"

	xclipboard "golang.design/x/clipboard"
)

var (
	portableInitOnce sync.Once
	portableInitErr  error
)

// portableBackend wraps golang.design/x/clipboard. It only sees text
// and image representations; file lists, rich-text side channels and
// source applications are unavailable off macOS.
type portableBackend struct{}

func newPortableBackend() (*portableBackend, error) {
	portableInitOnce.Do(func() {
		portableInitErr = xclipboard.Init()
	})
	if portableInitErr != nil {
		return nil, fmt.Errorf("failed to initialize clipboard: %w", portableInitErr)
	}
	return &portableBackend{}, nil
}

func (b *portableBackend) Name() string { return "portable" }

func (b *portableBackend) Read() (*Snapshot, error) {
	snap := &Snapshot{}
	if img := xclipboard.Read(xclipboard.FmtImage); len(img) > 0 {
		snap.Image = img
	}
	if text := xclipboard.Read(xclipboard.FmtText); len(text) > 0 {
		snap.Text = string(text)
	}
	return snap, nil
}

func (b *portableBackend) Write(snap *Snapshot) error {
	if len(snap.Image) > 0 {
		xclipboard.Write(xclipboard.FmtImage, snap.Image)
		return nil
	}
	xclipboard.Write(xclipboard.FmtText, []byte(snap.Text))
	return nil
}

// NewSystemBackend returns the platform clipboard backend.
func NewSystemBackend() (Backend, error) {
	return newPortableBackend()
}
