// Package encoding handles the inline representation of image bytes
// stored directly in history rows: gzip-compressed, base64-encoded.
// Inline storage is the fallback when no blob store is configured and
// the legacy on-disk format migrated away at startup.
package encoding

import (
	"bytes"
	"compress/gzip"
	"encoding/base64"
	"fmt"
	"io"
)

// compressThreshold skips gzip for payloads too small to benefit.
const compressThreshold = 1024

const gzipPrefix = "gz:"

// EncodeInline encodes raw bytes for storage inside a row.
func EncodeInline(data []byte) (string, error) {
	if len(data) < compressThreshold {
		return base64.StdEncoding.EncodeToString(data), nil
	}

	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	if _, err := zw.Write(data); err != nil {
		return "", fmt.Errorf("failed to compress inline data: %w", err)
	}
	if err := zw.Close(); err != nil {
		return "", fmt.Errorf("failed to compress inline data: %w", err)
	}
	return gzipPrefix + base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}

// DecodeInline restores raw bytes from a row's inline representation.
func DecodeInline(encoded string) ([]byte, error) {
	compressed := false
	if len(encoded) >= len(gzipPrefix) && encoded[:len(gzipPrefix)] == gzipPrefix {
		compressed = true
		encoded = encoded[len(gzipPrefix):]
	}

	decoded, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("failed to decode inline data: %w", err)
	}
	if !compressed {
		return decoded, nil
	}

	zr, err := gzip.NewReader(bytes.NewReader(decoded))
	if err != nil {
		return nil, fmt.Errorf("failed to decompress inline data: %w", err)
	}
	defer zr.Close()

	raw, err := io.ReadAll(zr)
	if err != nil {
		return nil, fmt.Errorf("failed to decompress inline data: %w", err)
	}
	return raw, nil
}
