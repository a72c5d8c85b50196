package credentials

import (
	"bytes"
	"crypto/cipher"
	"fmt"
)

// openLegacy расшифровывает старый формат iv:ciphertext (AES-256-CBC, PKCS#7).
// Целостность не проверяется: формат читается только для уже сохранённых данных.
func (c *Cipher) openLegacy(segments []string) ([]byte, error) {
	parts, err := decodeSegments(segments)
	if err != nil {
		return nil, err
	}
	iv, ciphertext := parts[0], parts[1]
	if len(iv) != legacyIVSize {
		return nil, fmt.Errorf("%w: bad iv length %d", ErrInvalidFormat, len(iv))
	}
	if len(ciphertext) == 0 || len(ciphertext)%c.block.BlockSize() != 0 {
		return nil, fmt.Errorf("%w: ciphertext is not a multiple of the block size", ErrDecryption)
	}

	plaintext := make([]byte, len(ciphertext))
	cipher.NewCBCDecrypter(c.block, iv).CryptBlocks(plaintext, ciphertext)

	return unpad(plaintext, c.block.BlockSize())
}

func unpad(data []byte, blockSize int) ([]byte, error) {
	n := int(data[len(data)-1])
	if n == 0 || n > blockSize || n > len(data) {
		return nil, fmt.Errorf("%w: bad padding", ErrDecryption)
	}
	if !bytes.Equal(data[len(data)-n:], bytes.Repeat([]byte{byte(n)}, n)) {
		return nil, fmt.Errorf("%w: bad padding", ErrDecryption)
	}
	return data[:len(data)-n], nil
}
