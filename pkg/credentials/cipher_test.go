package credentials

import (
	"encoding/hex"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-master-secret"

// Вектор получен независимо: scrypt(testSecret, appSalt) + AES-256-CBC, iv = 00..0f.
const (
	legacyJSONVector  = "000102030405060708090a0b0c0d0e0f:5f868d8e10ff1a752929f4fd82a0995c904fb58844b18d63a9b26d348b0264234154182233166b6ca4cc5a8faaac4a2e"
	legacyPlainVector = "000102030405060708090a0b0c0d0e0f:cc0be7df2b694dcd0b793a2d8cc2d20b7e94c5d47e4189cb7f79bfeb721a46cc"
)

// Тот же ключ, AES-256-GCM с 16-байтным nonce 10..1f, как писала прежняя версия сервиса.
const wideNonceVector = "101112131415161718191a1b1c1d1e1f:cdb8feac6764fd0a374a328a8dacb5bb:1a9c91148115e1fd83dfe12319b3b08ef0e6570ddd16e38f32fb2885b8b7c8caff21467ce9c0c4c5a3"


func newTestCipher(t *testing.T) *Cipher {
	t.Helper()
	c, err := New(Config{Secret: testSecret, Environment: "test"})
	require.NoError(t, err)
	return c
}

func TestEncryptDecrypt_RoundTripString(t *testing.T) {
	c := newTestCipher(t)

	for _, in := range []string{"api-key-123", "пароль с пробелами", "", "a:b:c"} {
		envelope, err := c.Encrypt(in)
		require.NoError(t, err)
		assert.Len(t, strings.Split(envelope, ":"), 3)

		out, err := c.Decrypt(envelope)
		require.NoError(t, err)
		assert.Equal(t, in, out)
	}
}

func TestEncryptDecrypt_RoundTripObject(t *testing.T) {
	c := newTestCipher(t)

	in := map[string]any{"login": "user", "password": "secret", "warehouses": []any{"1", "2"}}
	envelope, err := c.Encrypt(in)
	require.NoError(t, err)

	out, err := c.Decrypt(envelope)
	require.NoError(t, err)
	assert.Equal(t, in, out)

	var typed struct {
		Login    string `json:"login"`
		Password string `json:"password"`
	}
	require.NoError(t, c.DecryptInto(envelope, &typed))
	assert.Equal(t, "user", typed.Login)
	assert.Equal(t, "secret", typed.Password)
}

func TestEncrypt_FreshNonceEveryCall(t *testing.T) {
	c := newTestCipher(t)

	a, err := c.Encrypt("same")
	require.NoError(t, err)
	b, err := c.Encrypt("same")
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
	assert.Len(t, strings.Split(a, ":")[0], 24)
	assert.Len(t, strings.Split(a, ":")[1], 32)
}

func TestEncrypt_SerializationError(t *testing.T) {
	c := newTestCipher(t)

	_, err := c.Encrypt(map[string]any{"fn": func() {}})
	assert.ErrorIs(t, err, ErrSerialization)
}

func TestDecrypt_LegacyVectors(t *testing.T) {
	c := newTestCipher(t)

	out, err := c.Decrypt(legacyJSONVector)
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"login": "legacy", "password": "s3cret"}, out)

	out, err = c.Decrypt(legacyPlainVector)
	require.NoError(t, err)
	assert.Equal(t, "plain legacy token", out)

	upper, err := c.Decrypt(strings.ToUpper(legacyPlainVector))
	require.NoError(t, err)
	assert.Equal(t, "plain legacy token", upper)
}

func TestDecrypt_WideNonceVector(t *testing.T) {
	c := newTestCipher(t)
	assert.True(t, IsEncrypted(wideNonceVector))

	out, err := c.Decrypt(wideNonceVector)
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"login": "legacy-node", "password": "p@ss"}, out)

	segments := strings.Split(wideNonceVector, ":")
	tag := []byte(segments[1])
	if tag[0] == '0' {
		tag[0] = '1'
	} else {
		tag[0] = '0'
	}
	_, err = c.Decrypt(strings.Join([]string{segments[0], string(tag), segments[2]}, ":"))
	assert.ErrorIs(t, err, ErrDecryption)

	// новые конверты по-прежнему с 12-байтным nonce
	envelope, err := c.Encrypt("fresh")
	require.NoError(t, err)
	assert.Len(t, strings.Split(envelope, ":")[0], 2*nonceLength)
}

func TestDecrypt_TamperDetection(t *testing.T) {
	c := newTestCipher(t)

	envelope, err := c.Encrypt(map[string]string{"token": "abcdef"})
	require.NoError(t, err)
	segments := strings.Split(envelope, ":")

	for _, idx := range []int{1, 2} {
		raw, err := hex.DecodeString(segments[idx])
		require.NoError(t, err)
		for bit := 0; bit < 8; bit++ {
			tampered := append([]byte(nil), raw...)
			tampered[len(tampered)/2] ^= 1 << bit

			parts := append([]string(nil), segments...)
			parts[idx] = hex.EncodeToString(tampered)

			out, err := c.Decrypt(strings.Join(parts, ":"))
			assert.ErrorIs(t, err, ErrDecryption)
			assert.Nil(t, out)
		}
	}
}

func TestDecrypt_WrongKey(t *testing.T) {
	c := newTestCipher(t)
	other, err := New(Config{Secret: "another-secret"})
	require.NoError(t, err)

	envelope, err := c.Encrypt("value")
	require.NoError(t, err)

	_, err = other.Decrypt(envelope)
	assert.ErrorIs(t, err, ErrDecryption)
}

func TestDecrypt_InvalidFormat(t *testing.T) {
	c := newTestCipher(t)

	for _, in := range []string{"", "plain", "a:b:c:d", "zz:00", "00:zz:00", "0011:00:00", "00112233:000102030405060708090a0b0c0d0e0f:00"} {
		_, err := c.Decrypt(in)
		assert.ErrorIs(t, err, ErrInvalidFormat, in)
	}
}

func TestIsEncrypted(t *testing.T) {
	cases := map[string]bool{
		"":                     false,
		"abc":                  false,
		"00ff:aa":              true,
		"00FF:AA:bb":           true,
		"00ff:aa:bb:cc":        false,
		"00ff:xyz":             false,
		"00ff::aa":             false,
		"00ff:aa:":             false,
		`{"login":"x"}`:        false,
		legacyJSONVector:       true,
		"https://example.com/": false,
	}
	for in, want := range cases {
		assert.Equal(t, want, IsEncrypted(in), in)
	}

	c := newTestCipher(t)
	envelope, err := c.Encrypt("x")
	require.NoError(t, err)
	assert.True(t, c.IsEncrypted(envelope))
}

func TestNew_ProductionRequiresSecret(t *testing.T) {
	_, err := New(Config{Environment: "production"})
	assert.ErrorIs(t, err, ErrMissingSecret)

	dev, err := New(Config{Environment: "development"})
	require.NoError(t, err)
	again, err := New(Config{})
	require.NoError(t, err)

	envelope, err := dev.Encrypt("shared fallback")
	require.NoError(t, err)
	out, err := again.Decrypt(envelope)
	require.NoError(t, err)
	assert.Equal(t, "shared fallback", out)
}
