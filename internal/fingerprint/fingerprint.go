// Package fingerprint derives stable content digests from clipboard
// payloads. The digest is a dedup key, not a security boundary: it
// only needs to agree for payloads the history should treat as the
// same content.
package fingerprint

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"

	"github.com/clipvault/clipvault/internal/encoding"
	"github.com/clipvault/clipvault/internal/types"
)

// imageHashPrefix bounds how much of an image participates in its
// digest. Hashing a fixed prefix keeps large captures cheap at the
// cost that two distinct images sharing identical leading bytes
// (common camera or encoder headers) collide and dedup as one.
const imageHashPrefix = 1000

func digest(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// Text hashes the plain-text representation. Rich markup is excluded
// on purpose: two copies differing only in formatting dedup together.
func Text(plain string) string {
	return digest([]byte(plain))
}

// Image hashes a bounded prefix of the raw image bytes.
func Image(data []byte) string {
	if len(data) > imageHashPrefix {
		data = data[:imageHashPrefix]
	}
	return digest(data)
}

// Files hashes the JSON encoding of the ordered path list. Order is
// significant: the same set of paths in a different order is a
// different capture.
func Files(paths []string) string {
	if paths == nil {
		paths = []string{}
	}
	encoded, err := json.Marshal(paths)
	if err != nil {
		return digest(nil)
	}
	return digest(encoded)
}

// Color hashes the canonical color string.
func Color(value string) string {
	return digest([]byte(value))
}

// ImageFile hashes the on-disk identity of a file-backed image
// payload. The raw bytes are not re-read; path plus size stand in
// for them, so two rows pointing at the same blob dedup together.
func ImageFile(path string, size int64) string {
	return digest([]byte(fmt.Sprintf("%s:%d", path, size)))
}

// ForItem computes the digest for an item's populated payload. Inline
// image bytes are decoded first so the result agrees with the hash
// the capture path assigns. An item with an empty or missing payload
// hashes to the digest of the empty string.
func ForItem(item *types.Item) string {
	switch {
	case item.Text != nil:
		return Text(item.Text.Plain)
	case item.Image != nil && item.Image.Inline != "":
		if data, err := encoding.DecodeInline(item.Image.Inline); err == nil {
			return Image(data)
		}
		return digest([]byte(item.Image.Inline))
	case item.Image != nil && item.Image.Path != "":
		return ImageFile(item.Image.Path, item.Image.SizeBytes)
	case item.Files != nil:
		return Files(item.Files.Paths)
	case item.Color != nil:
		return Color(item.Color.Value)
	}
	return digest(nil)
}
