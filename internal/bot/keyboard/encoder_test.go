package keyboard_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Proton-105/bazaar-bot/internal/bot/keyboard"
)

func TestCallback_RoundTripsFlowIDs(t *testing.T) {
	testCases := []struct {
		unique string
		id     string
		want   string
	}{
		{keyboard.UniqueButton, "lang_ur", "btn:lang_ur"},
		{keyboard.UniqueButton, "payment_easypaisa", "btn:payment_easypaisa"},
		{keyboard.UniqueRow, "qty_10", "row:qty_10"},
	}

	for _, tc := range testCases {
		tc := tc
		t.Run(tc.want, func(t *testing.T) {
			encoded, err := keyboard.EncodeCallback(tc.unique, tc.id)
			require.NoError(t, err)
			assert.Equal(t, tc.want, encoded)

			unique, id, err := keyboard.DecodeCallback("\f" + encoded)
			require.NoError(t, err)
			assert.Equal(t, tc.unique, unique)
			assert.Equal(t, tc.id, id)
		})
	}
}

func TestEncodeCallback_Limit(t *testing.T) {
	_, err := keyboard.EncodeCallback(keyboard.UniqueButton, strings.Repeat("x", keyboard.CallbackDataLimitBytes-4))
	require.NoError(t, err, "btn: plus 60 bytes fits exactly")

	_, err = keyboard.EncodeCallback(keyboard.UniqueButton, strings.Repeat("x", keyboard.CallbackDataLimitBytes-3))
	assert.Error(t, err)

	_, err = keyboard.EncodeCallback(strings.Repeat("x", keyboard.CallbackDataLimitBytes+1), "")
	assert.Error(t, err)

	bare, err := keyboard.EncodeCallback(keyboard.UniqueRow, "")
	require.NoError(t, err)
	assert.Equal(t, "row", bare)
}

func TestDecodeCallback_Edges(t *testing.T) {
	unique, data, err := keyboard.DecodeCallback("row:addr:line:2")
	require.NoError(t, err)
	assert.Equal(t, "row", unique)
	assert.Equal(t, "addr:line:2", data, "only the first separator splits")

	unique, data, err = keyboard.DecodeCallback("legacy")
	require.NoError(t, err)
	assert.Equal(t, "legacy", unique)
	assert.Empty(t, data)

	_, _, err = keyboard.DecodeCallback("\f")
	assert.Error(t, err)
}
