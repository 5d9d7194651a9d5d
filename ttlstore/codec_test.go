// ttlstore/codec_test.go
// Copyright(c) 2022-2025 vice contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package ttlstore

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestEncodeDecodeRoundTrip(t *testing.T) {
	type payload struct {
		CID      int
		Callsign string
	}

	in := payload{CID: 1, Callsign: "BAW1"}
	data, err := encode(in)
	require.NoError(t, err)
	require.NotEmpty(t, data)

	var out payload
	require.NoError(t, decode(data, &out))
	require.Equal(t, in, out)
}
