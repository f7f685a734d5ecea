package crypto

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsValidAddress(t *testing.T) {
	assert.True(t, IsValidAddress("0x52908400098527886E0F7030069857D2E4169EE7"))
	assert.True(t, IsValidAddress("0xde709f2102306220921060314715629080e2fb77"))
	assert.False(t, IsValidAddress("52908400098527886E0F7030069857D2E4169EE7"))
	assert.False(t, IsValidAddress("0x1234"))
	assert.False(t, IsValidAddress("0xZZ908400098527886E0F7030069857D2E4169EE7"))
	assert.False(t, IsValidAddress(""))
}

func TestHashPIN(t *testing.T) {
	h := HashPIN("1234")
	assert.Len(t, h, 64)
	assert.Equal(t, h, HashPIN("1234"))
	assert.NotEqual(t, h, HashPIN("1235"))
}

func TestGenerateMerchantCode(t *testing.T) {
	code, err := GenerateMerchantCode("Corner Shop")
	require.NoError(t, err)
	assert.Regexp(t, `^CS\d{3}$`, code)

	code, err = GenerateMerchantCode("Duka La Mama Mboga")
	require.NoError(t, err)
	assert.Regexp(t, `^DLM\d{3}$`, code, "initials cap at three")

	code, err = GenerateMerchantCode("acme")
	require.NoError(t, err)
	assert.Regexp(t, `^A\d{3}$`, code)
}

func TestGenerateOwnerKey(t *testing.T) {
	k1, err := GenerateOwnerKey()
	require.NoError(t, err)
	assert.Regexp(t, `^0x[0-9a-f]{64}$`, k1)

	k2, err := GenerateOwnerKey()
	require.NoError(t, err)
	assert.NotEqual(t, k1, k2)
}

func TestCipherRoundtrip(t *testing.T) {
	c, err := NewCipher("0123456789abcdef0123456789abcdef")
	require.NoError(t, err)

	plain := "0xdeadbeefdeadbeefdeadbeefdeadbeefdeadbeefdeadbeefdeadbeefdeadbeef"
	enc, err := c.Encrypt(plain)
	require.NoError(t, err)
	assert.NotContains(t, enc, plain)

	dec, err := c.Decrypt(enc)
	require.NoError(t, err)
	assert.Equal(t, plain, dec)

	// fresh IV per encryption
	enc2, err := c.Encrypt(plain)
	require.NoError(t, err)
	assert.NotEqual(t, enc, enc2)
}

func TestCipherRejectsShortSecret(t *testing.T) {
	_, err := NewCipher("too-short")
	assert.Error(t, err)
}

func TestDecryptRejectsGarbage(t *testing.T) {
	c, err := NewCipher("0123456789abcdef0123456789abcdef")
	require.NoError(t, err)

	_, err = c.Decrypt("not-hex")
	assert.Error(t, err)
	_, err = c.Decrypt("abcd")
	assert.Error(t, err)
}
