// ttlstore/codec.go
// Copyright(c) 2022-2025 vice contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package ttlstore

import (
	"bytes"
	"fmt"

	"github.com/klauspost/compress/zstd"
	"github.com/vmihailenco/msgpack/v5"
)

// encode mirrors util/cache.go's msgpack-over-a-stream-compressor
// pairing, with klauspost/compress's zstd in place of compress/flate.
func encode(v any) ([]byte, error) {
	var buf bytes.Buffer
	zw, err := zstd.NewWriter(&buf, zstd.WithEncoderLevel(zstd.SpeedFastest))
	if err != nil {
		return nil, fmt.Errorf("ttlstore: new zstd writer: %w", err)
	}
	if err := msgpack.NewEncoder(zw).Encode(v); err != nil {
		zw.Close()
		return nil, fmt.Errorf("ttlstore: encode: %w", err)
	}
	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("ttlstore: close zstd writer: %w", err)
	}
	return buf.Bytes(), nil
}

func decode(data []byte, dst any) error {
	zr, err := zstd.NewReader(bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("ttlstore: new zstd reader: %w", err)
	}
	defer zr.Close()

	if err := msgpack.NewDecoder(zr).Decode(dst); err != nil {
		return fmt.Errorf("ttlstore: decode: %w", err)
	}
	return nil
}
