// bus/codec.go
// Copyright(c) 2022-2025 vice contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package bus

import (
	"bytes"
	"fmt"

	"github.com/klauspost/compress/zstd"
	"github.com/vmihailenco/msgpack/v5"
)

// encode follows the same msgpack+zstd pairing as ttlstore/codec.go --
// util/cache.go's msgpack-over-a-stream-compressor idiom, applied here to
// outbound event envelopes instead of cached objects.
func encode(v any) ([]byte, error) {
	var buf bytes.Buffer
	zw, err := zstd.NewWriter(&buf, zstd.WithEncoderLevel(zstd.SpeedFastest))
	if err != nil {
		return nil, fmt.Errorf("bus: new zstd writer: %w", err)
	}
	if err := msgpack.NewEncoder(zw).Encode(v); err != nil {
		zw.Close()
		return nil, fmt.Errorf("bus: encode: %w", err)
	}
	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("bus: close zstd writer: %w", err)
	}
	return buf.Bytes(), nil
}

func decode(data []byte, dst any) error {
	zr, err := zstd.NewReader(bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("bus: new zstd reader: %w", err)
	}
	defer zr.Close()

	if err := msgpack.NewDecoder(zr).Decode(dst); err != nil {
		return fmt.Errorf("bus: decode: %w", err)
	}
	return nil
}

// envelope is the wire shape for inbound messages: an opaque data blob
// plus the batch tag the controller stream uses for warm-up gating.
type envelope struct {
	Data    msgpack.RawMessage `msgpack:"data"`
	BatchID string             `msgpack:"batchId"`
}

// DecodeData unmarshals the raw `data` field an Inbound carries (already
// unwrapped from its envelope, still in msgpack form) into dst.
func DecodeData(data []byte, dst any) error {
	if err := msgpack.Unmarshal(data, dst); err != nil {
		return fmt.Errorf("bus: decode data: %w", err)
	}
	return nil
}
