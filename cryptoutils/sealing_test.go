package cryptoutils

import (
	"testing"

	"github.com/stretchr/testify/require"
)

// TestSealOpen tests the SealWithPassword and OpenWithPassword functions
func TestSealOpen(t *testing.T) {
	password := []byte("correct horse battery staple")

	testCases := []struct {
		name string
		data []byte
	}{
		{
			name: "Simple string",
			data: []byte("This is a secret message"),
		},
		{
			name: "Binary data",
			data: []byte{0x00, 0x01, 0x02, 0x03, 0xFF, 0xFE, 0xFD},
		},
		{
			name: "Empty data",
			data: []byte{},
		},
		{
			name: "Long data",
			data: make([]byte, 4096),
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			sealed, err := SealWithPassword(password, tc.data, []byte("aad"))
			require.NoError(t, err)
			require.Greater(t, len(sealed), len(tc.data))

			opened, err := OpenWithPassword(password, sealed, []byte("aad"))
			require.NoError(t, err)
			require.Equal(t, len(tc.data), len(opened))
			if len(tc.data) > 0 {
				require.Equal(t, tc.data, opened)
			}
		})
	}
}

// TestOpenFailures tests that opening fails on wrong inputs
func TestOpenFailures(t *testing.T) {
	sealed, err := SealWithPassword([]byte("password"), []byte("Top secret data"), nil)
	require.NoError(t, err)

	_, err = OpenWithPassword([]byte("wrong"), sealed, nil)
	require.ErrorIs(t, err, ErrSealOpen)

	_, err = OpenWithPassword([]byte("password"), sealed, []byte("other context"))
	require.ErrorIs(t, err, ErrSealOpen)

	tampered := append([]byte{}, sealed...)
	tampered[len(tampered)-1] ^= 0xFF
	_, err = OpenWithPassword([]byte("password"), tampered, nil)
	require.ErrorIs(t, err, ErrSealOpen)

	_, err = OpenWithPassword([]byte("password"), []byte{0x01}, nil)
	require.ErrorIs(t, err, ErrSealOpen)
}

func TestWipe(t *testing.T) {
	a := []byte("secret")
	b := []byte("another")
	Wipe(a, b, nil)
	require.Equal(t, make([]byte, 6), a)
	require.Equal(t, make([]byte, 7), b)
}
