package derive

import (
	"bytes"
	"crypto/ed25519"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/congo-pay/pdavault/internal/pubkey"
)

var testProgram = pubkey.MustParse("A9Lef4z6JBNzZoaQJT722eVuJR8GK5WqSLmgbNaJsacX")

func filledKey(b byte) pubkey.Pubkey {
	var pk pubkey.Pubkey
	copy(pk[:], bytes.Repeat([]byte{b}, pubkey.Size))
	return pk
}

func newDeriver(t *testing.T) *Deriver {
	t.Helper()
	d, err := New(testProgram, []byte("user_account"))
	require.NoError(t, err)
	return d
}

func TestFindKnownAddresses(t *testing.T) {
	d := newDeriver(t)

	cases := []struct {
		owner pubkey.Pubkey
		addr  string
		bump  uint8
	}{
		{filledKey(1), "8vMACpNtmpjcQ2f6ZkHd9pjgKTujSQ8PnDNs4G27BupV", 249},
		{filledKey(2), "FVQ3DJhA2FYmFziif7cPTuvspfvxA9QM6WGhfWVx3ggb", 252},
		{filledKey(7), "FbWnPTCRbDTKbyy5FAvCAHzRxWtUJAUts5v5A4WGVD3i", 255},
	}
	for _, tc := range cases {
		got, err := d.Find(tc.owner)
		require.NoError(t, err)
		require.Equal(t, tc.addr, got.Pubkey.String())
		require.Equal(t, tc.bump, got.Bump)
		require.False(t, got.Pubkey.IsOnCurve())
	}
}

func TestFindSkipsOnCurveBumps(t *testing.T) {
	d := newDeriver(t)
	owner := filledKey(1)

	for bump := uint8(255); bump > 249; bump-- {
		_, err := d.create(owner, bump)
		require.ErrorIs(t, err, ErrOnCurve, "bump %d", bump)
	}
}

func TestFindIsDeterministic(t *testing.T) {
	d := newDeriver(t)
	pub, _, err := ed25519.GenerateKey(nil)
	require.NoError(t, err)
	owner, err := pubkey.FromBytes(pub)
	require.NoError(t, err)

	first, err := d.Find(owner)
	require.NoError(t, err)
	second, err := d.Find(owner)
	require.NoError(t, err)
	require.Equal(t, first, second)

	other, err := d.Find(filledKey(9))
	require.NoError(t, err)
	require.NotEqual(t, first.Pubkey, other.Pubkey)
}

func TestSeedSeparatesNamespaces(t *testing.T) {
	a := newDeriver(t)
	b, err := New(testProgram, []byte("escrow"))
	require.NoError(t, err)

	fromA, err := a.Find(filledKey(1))
	require.NoError(t, err)
	fromB, err := b.Find(filledKey(1))
	require.NoError(t, err)
	require.NotEqual(t, fromA.Pubkey, fromB.Pubkey)
}

func TestVerify(t *testing.T) {
	d := newDeriver(t)
	owner := filledKey(2)
	addr, err := d.Find(owner)
	require.NoError(t, err)

	require.NoError(t, d.Verify(owner, addr.Pubkey, addr.Bump))
	require.ErrorIs(t, d.Verify(filledKey(3), addr.Pubkey, addr.Bump), ErrAddressMismatch)
	require.ErrorIs(t, d.Verify(owner, addr.Pubkey, addr.Bump-1), ErrAddressMismatch)
}

func TestCreateAddressLimits(t *testing.T) {
	_, err := CreateAddress([][]byte{bytes.Repeat([]byte{1}, MaxSeedLength+1)}, testProgram)
	require.ErrorIs(t, err, ErrMaxSeedLength)

	seeds := make([][]byte, MaxSeeds+1)
	_, err = CreateAddress(seeds, testProgram)
	require.ErrorIs(t, err, ErrMaxSeeds)
}

func TestNewValidates(t *testing.T) {
	_, err := New(pubkey.Zero, []byte("user_account"))
	require.Error(t, err)

	_, err = New(testProgram, nil)
	require.Error(t, err)

	_, err = New(testProgram, bytes.Repeat([]byte("x"), MaxSeedLength+1))
	require.ErrorIs(t, err, ErrMaxSeedLength)
}
