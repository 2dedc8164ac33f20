//go:build darwin && cgo

package clipboard

/*
#cgo CFLAGS: -x objective-c
#cgo LDFLAGS: -framework Cocoa
#import <Cocoa/Cocoa.h>
#import <stdlib.h>
#import <string.h>

static long pasteboardChangeCount() {
    return [[NSPasteboard generalPasteboard] changeCount];
}

static char* copyString(NSString *s) {
    if (s == nil) {
        return NULL;
    }
    return strdup([s UTF8String]);
}

// pasteboardFilePaths returns a newline-joined list of file paths, or
// NULL when the pasteboard holds no file URLs.
static char* pasteboardFilePaths() {
    NSPasteboard *pb = [NSPasteboard generalPasteboard];
    NSArray *urls = [pb readObjectsForClasses:@[[NSURL class]]
                                      options:@{NSPasteboardURLReadingFileURLsOnlyKey: @YES}];
    if (urls == nil || [urls count] == 0) {
        return NULL;
    }
    NSMutableArray *paths = [NSMutableArray arrayWithCapacity:[urls count]];
    for (NSURL *url in urls) {
        [paths addObject:[url path]];
    }
    return copyString([paths componentsJoinedByString:@"\n"]);
}

static void* pasteboardImage(int *length) {
    NSPasteboard *pb = [NSPasteboard generalPasteboard];
    NSData *data = [pb dataForType:NSPasteboardTypePNG];
    if (data == nil) {
        data = [pb dataForType:NSPasteboardTypeTIFF];
    }
    if (data == nil) {
        return NULL;
    }
    void *bytes = malloc([data length]);
    memcpy(bytes, [data bytes], [data length]);
    *length = (int)[data length];
    return bytes;
}

static char* pasteboardString(void) {
    return copyString([[NSPasteboard generalPasteboard] stringForType:NSPasteboardTypeString]);
}

static char* pasteboardHTML(void) {
    return copyString([[NSPasteboard generalPasteboard] stringForType:NSPasteboardTypeHTML]);
}

static char* pasteboardRTF(void) {
    NSData *data = [[NSPasteboard generalPasteboard] dataForType:NSPasteboardTypeRTF];
    if (data == nil) {
        return NULL;
    }
    NSString *s = [[NSString alloc] initWithData:data encoding:NSUTF8StringEncoding];
    return copyString(s);
}

static char* frontmostApplication(void) {
    NSRunningApplication *app = [[NSWorkspace sharedWorkspace] frontmostApplication];
    if (app == nil) {
        return NULL;
    }
    return copyString([app localizedName]);
}

static void pasteboardWriteString(const char *text) {
    NSPasteboard *pb = [NSPasteboard generalPasteboard];
    [pb clearContents];
    [pb setString:[NSString stringWithUTF8String:text] forType:NSPasteboardTypeString];
}

static void pasteboardWriteRich(const char *text, const char *html) {
    NSPasteboard *pb = [NSPasteboard generalPasteboard];
    [pb clearContents];
    [pb setString:[NSString stringWithUTF8String:html] forType:NSPasteboardTypeHTML];
    [pb setString:[NSString stringWithUTF8String:text] forType:NSPasteboardTypeString];
}

static void pasteboardWriteRTF(const void *bytes, int length, const char *text) {
    NSPasteboard *pb = [NSPasteboard generalPasteboard];
    [pb clearContents];
    NSData *data = [NSData dataWithBytes:bytes length:length];
    [pb setData:data forType:NSPasteboardTypeRTF];
    [pb setString:[NSString stringWithUTF8String:text] forType:NSPasteboardTypeString];
}

static void pasteboardWriteImage(const void *bytes, int length) {
    NSPasteboard *pb = [NSPasteboard generalPasteboard];
    [pb clearContents];
    NSData *data = [NSData dataWithBytes:bytes length:length];
    [pb setData:data forType:NSPasteboardTypePNG];
}
*/
import "C"

import (
	"strings"
	"unsafe"
)

// darwinBackend reads the general NSPasteboard directly, including
// the representations the portable backend cannot reach: file URLs,
// RTF/HTML side channels and the frontmost application name.
type darwinBackend struct {
	lastChangeCount C.long
}

func newDarwinBackend() *darwinBackend {
	return &darwinBackend{lastChangeCount: C.pasteboardChangeCount()}
}

func (b *darwinBackend) Name() string { return "macOS NSPasteboard" }

// Changed implements ChangeCounter using the pasteboard change count.
func (b *darwinBackend) Changed() bool {
	current := C.pasteboardChangeCount()
	if current != b.lastChangeCount {
		b.lastChangeCount = current
		return true
	}
	return false
}

func goStringFree(s *C.char) string {
	if s == nil {
		return ""
	}
	defer C.free(unsafe.Pointer(s))
	return C.GoString(s)
}

func (b *darwinBackend) Read() (*Snapshot, error) {
	snap := &Snapshot{SourceApp: goStringFree(C.frontmostApplication())}

	if joined := goStringFree(C.pasteboardFilePaths()); joined != "" {
		snap.Files = strings.Split(joined, "\n")
	}

	var length C.int
	if bytes := C.pasteboardImage(&length); bytes != nil {
		snap.Image = C.GoBytes(bytes, length)
		C.free(bytes)
	}

	snap.Text = goStringFree(C.pasteboardString())
	snap.HTML = goStringFree(C.pasteboardHTML())
	snap.RTF = goStringFree(C.pasteboardRTF())

	return snap, nil
}

func (b *darwinBackend) Write(snap *Snapshot) error {
	switch {
	case len(snap.Image) > 0:
		C.pasteboardWriteImage(unsafe.Pointer(&snap.Image[0]), C.int(len(snap.Image)))
	case snap.RTF != "":
		text := C.CString(snap.Text)
		rtf := []byte(snap.RTF)
		C.pasteboardWriteRTF(unsafe.Pointer(&rtf[0]), C.int(len(rtf)), text)
		C.free(unsafe.Pointer(text))
	case snap.HTML != "":
		text := C.CString(snap.Text)
		html := C.CString(snap.HTML)
		C.pasteboardWriteRich(text, html)
		C.free(unsafe.Pointer(text))
		C.free(unsafe.Pointer(html))
	default:
		text := C.CString(snap.Text)
		C.pasteboardWriteString(text)
		C.free(unsafe.Pointer(text))
	}
	// Our own write bumps the change count; swallow it so a paused
	// monitor does not see the self-triggered change on resume.
	b.lastChangeCount = C.pasteboardChangeCount()
	return nil
}

// NewSystemBackend returns the platform clipboard backend.
func NewSystemBackend() (Backend, error) {
	return newDarwinBackend(), nil
}
