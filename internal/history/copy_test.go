package history

import (
	"testing"
	"time"

	"github.com/clipvault/clipvault/internal/clipboard"
	"github.com/clipvault/clipvault/internal/clipboard/memboard"
	"github.com/clipvault/clipvault/internal/encoding"
	"github.com/clipvault/clipvault/internal/storage"
	"github.com/clipvault/clipvault/internal/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newCopyFixture(t *testing.T) (*Coordinator, *memboard.Board, *clipboard.Monitor) {
	t.Helper()
	board := memboard.New()
	monitor := clipboard.NewMonitor(clipboard.MonitorConfig{
		Backend:  board,
		Interval: time.Hour, // no background sampling during the test
	})
	c := newTestCoordinator(t, Config{Monitor: monitor})
	return c, board, monitor
}

func TestCopyToClipboardText(t *testing.T) {
	c, board, _ := newCopyFixture(t)

	item := textItem("plain words", time.Now())
	item.Text.Rich = "<b>plain words</b>"
	item.Text.RichKind = types.RichKindHTML
	id, err := c.Add(item)
	require.NoError(t, err)

	require.NoError(t, c.CopyToClipboard(id, true))

	writes := board.Writes()
	require.Len(t, writes, 1)
	assert.Equal(t, "plain words", writes[0].Text)
	assert.Equal(t, "<b>plain words</b>", writes[0].HTML)

	// Without formatting only the plain representation goes out.
	require.NoError(t, c.CopyToClipboard(id, false))
	writes = board.Writes()
	require.Len(t, writes, 2)
	assert.Empty(t, writes[1].HTML)
}

func TestCopyToClipboardRTFKeepsItsSlot(t *testing.T) {
	c, board, _ := newCopyFixture(t)

	item := textItem("formatted", time.Now())
	item.Text.Rich = `{\rtf1 formatted}`
	item.Text.RichKind = types.RichKindRTF
	id, err := c.Add(item)
	require.NoError(t, err)

	// Markup captured from the RTF side channel is written back as
	// RTF, never retyped as HTML.
	require.NoError(t, c.CopyToClipboard(id, true))
	writes := board.Writes()
	require.Len(t, writes, 1)
	assert.Equal(t, "formatted", writes[0].Text)
	assert.Equal(t, `{\rtf1 formatted}`, writes[0].RTF)
	assert.Empty(t, writes[0].HTML)
}

func TestCopyToClipboardFilesAndColor(t *testing.T) {
	c, board, _ := newCopyFixture(t)

	files := types.NewItem(types.TypeMultiFile)
	files.Files = &types.FilePayload{
		Paths:     []string{"/a/one.pdf", "/b/two.pdf"},
		FileTypes: []string{"pdf", "pdf"},
	}
	filesID, err := c.Add(files)
	require.NoError(t, err)

	color := types.NewItem(types.TypeColor)
	color.Color = &types.ColorPayload{Value: "#ff5733"}
	colorID, err := c.Add(color)
	require.NoError(t, err)

	require.NoError(t, c.CopyToClipboard(filesID, true))
	require.NoError(t, c.CopyToClipboard(colorID, true))

	writes := board.Writes()
	require.Len(t, writes, 2)
	assert.Equal(t, "/a/one.pdf\n/b/two.pdf", writes[0].Text)
	assert.Equal(t, "#ff5733", writes[1].Text)
}

func TestCopyToClipboardInlineImage(t *testing.T) {
	c, board, _ := newCopyFixture(t)
	img := testPNG(t)

	inline, err := encoding.EncodeInline(img)
	require.NoError(t, err)
	item := types.NewItem(types.TypeImage)
	item.Image = &types.ImagePayload{Inline: inline, SizeBytes: int64(len(img))}
	id, err := c.Add(item)
	require.NoError(t, err)

	require.NoError(t, c.CopyToClipboard(id, true))

	writes := board.Writes()
	require.Len(t, writes, 1)
	assert.Equal(t, img, writes[0].Image)
}

func TestCopyToClipboardPausesMonitor(t *testing.T) {
	c, _, monitor := newCopyFixture(t)

	id, err := c.Add(textItem("self write", time.Now()))
	require.NoError(t, err)

	require.NoError(t, monitor.Start())
	defer monitor.Stop()

	require.NoError(t, c.CopyToClipboard(id, true))
	assert.Equal(t, clipboard.StatePaused, monitor.State())

	// The monitor resumes on its own shortly after the write settles.
	require.Eventually(t, func() bool {
		return monitor.State() == clipboard.StateMonitoring
	}, 2*time.Second, 10*time.Millisecond)
}

func TestCopyToClipboardErrors(t *testing.T) {
	c, _, _ := newCopyFixture(t)

	err := c.CopyToClipboard("missing", true)
	assert.ErrorIs(t, err, storage.ErrNotFound)

	// No monitor configured at all.
	bare := newTestCoordinator(t, Config{})
	assert.Error(t, bare.CopyToClipboard("any", true))
}
