// Package clipboard reads and writes the OS clipboard and runs the
// polling monitor that turns clipboard changes into history items.
package clipboard

// Snapshot is one reading of the clipboard's available
// representations. Multiple fields may be populated at once (a copied
// image often carries a text fallback); classification priority is
// the monitor's concern, not the backend's.
type Snapshot struct {
	Files     []string
	Image     []byte
	Text      string
	HTML      string
	RTF       string
	SourceApp string
}

// Empty reports whether the snapshot carries no usable payload.
func (s *Snapshot) Empty() bool {
	return s == nil || (len(s.Files) == 0 && len(s.Image) == 0 && s.Text == "")
}

// Backend abstracts the platform clipboard.
type Backend interface {
	Name() string
	Read() (*Snapshot, error)
	Write(*Snapshot) error
}

// ChangeCounter is an optional fast path a backend may provide: a
// cheap check that the clipboard changed since the last call, letting
// the monitor skip full reads on quiet ticks.
type ChangeCounter interface {
	Changed() bool
}
