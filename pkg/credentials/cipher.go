package credentials

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"regexp"
	"strings"

	"golang.org/x/crypto/scrypt"
)

const (
	// appSalt: статическая соль приложения. Один производный ключ на процесс,
	// стойкость к перебору обеспечивает scrypt, а не случайность соли.
	appSalt = "gomarketplace-hub/credentials/v1"

	// fallbackMaster используется только вне production при пустом секрете.
	fallbackMaster = "gomarketplace-hub-development-key"

	scryptN      = 16384
	scryptR      = 8
	scryptP      = 1
	keyLength    = 32
	nonceLength  = 12
	tagLength    = 16
	legacyIVSize = aes.BlockSize

	// wideNonceLength: конверты, записанные прежней версией сервиса (32 hex-символа nonce).
	wideNonceLength = 16

	separator = ":"
)

var hexSegment = regexp.MustCompile(`^[0-9a-fA-F]+$`)

// Config описывает источник мастер-ключа.
type Config struct {
	Secret      string
	Environment string
}

func (c Config) production() bool {
	return strings.EqualFold(c.Environment, "production")
}

// Cipher шифрует и расшифровывает учётные данные поставщиков и маркетплейсов.
// Создаётся один раз при старте и передаётся зависимостям явно.
type Cipher struct {
	aead     cipher.AEAD
	wideAEAD cipher.AEAD
	block    cipher.Block
	rand     io.Reader
}

// New выводит ключ из мастер-секрета и готовит AES-256-GCM.
func New(cfg Config) (*Cipher, error) {
	master := cfg.Secret
	if master == "" {
		if cfg.production() {
			return nil, ErrMissingSecret
		}
		master = fallbackMaster
	}

	key, err := deriveKey(master)
	if err != nil {
		return nil, fmt.Errorf("failed to derive credentials key: %w", err)
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("failed to init aes: %w", err)
	}
	aead, err := cipher.NewGCMWithNonceSize(block, nonceLength)
	if err != nil {
		return nil, fmt.Errorf("failed to init gcm: %w", err)
	}
	wideAEAD, err := cipher.NewGCMWithNonceSize(block, wideNonceLength)
	if err != nil {
		return nil, fmt.Errorf("failed to init gcm: %w", err)
	}

	return &Cipher{aead: aead, wideAEAD: wideAEAD, block: block, rand: rand.Reader}, nil
}

func deriveKey(master string) ([]byte, error) {
	return scrypt.Key([]byte(master), []byte(appSalt), scryptN, scryptR, scryptP, keyLength)
}

// Encrypt сериализует значение и возвращает конверт вида nonce:tag:ciphertext (hex).
// Строки шифруются как есть, остальные значения - как JSON.
func (c *Cipher) Encrypt(value any) (string, error) {
	plaintext, err := serialize(value)
	if err != nil {
		return "", err
	}

	nonce := make([]byte, nonceLength)
	if _, err := io.ReadFull(c.rand, nonce); err != nil {
		return "", fmt.Errorf("failed to generate nonce: %w", err)
	}

	sealed := c.aead.Seal(nil, nonce, plaintext, nil)
	ciphertext, tag := sealed[:len(sealed)-tagLength], sealed[len(sealed)-tagLength:]

	return strings.Join([]string{
		hex.EncodeToString(nonce),
		hex.EncodeToString(tag),
		hex.EncodeToString(ciphertext),
	}, separator), nil
}

// Decrypt расшифровывает конверт. Результат - разобранный JSON (map, slice, число...)
// или исходная строка, если открытый текст не является JSON.
func (c *Cipher) Decrypt(envelope string) (any, error) {
	raw, err := c.open(envelope)
	if err != nil {
		return nil, err
	}

	var parsed any
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return string(raw), nil
	}
	return parsed, nil
}

// DecryptInto расшифровывает конверт и декодирует JSON в dst.
func (c *Cipher) DecryptInto(envelope string, dst any) error {
	raw, err := c.open(envelope)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return fmt.Errorf("%w: payload is not valid json: %v", ErrDecryption, err)
	}
	return nil
}

// DecryptString возвращает открытый текст без попытки разбора JSON.
func (c *Cipher) DecryptString(envelope string) (string, error) {
	raw, err := c.open(envelope)
	if err != nil {
		return "", err
	}
	return string(raw), nil
}

func (c *Cipher) open(envelope string) ([]byte, error) {
	segments := strings.Split(envelope, separator)
	switch len(segments) {
	case 3:
		return c.openCurrent(segments)
	case 2:
		return c.openLegacy(segments)
	default:
		return nil, fmt.Errorf("%w: expected 2 or 3 segments, got %d", ErrInvalidFormat, len(segments))
	}
}

func (c *Cipher) openCurrent(segments []string) ([]byte, error) {
	// пустая строка шифруется в пустой третий сегмент
	if segments[2] == "" {
		segments = []string{segments[0], segments[1]}
	}
	parts, err := decodeSegments(segments)
	if err != nil {
		return nil, err
	}
	if len(parts) == 2 {
		parts = append(parts, nil)
	}
	nonce, tag, ciphertext := parts[0], parts[1], parts[2]
	if len(tag) != tagLength {
		return nil, fmt.Errorf("%w: bad tag length", ErrInvalidFormat)
	}

	// новые конверты всегда с 12-байтным nonce, 16-байтный только читаем
	aead := c.aead
	switch len(nonce) {
	case nonceLength:
	case wideNonceLength:
		aead = c.wideAEAD
	default:
		return nil, fmt.Errorf("%w: bad nonce length %d", ErrInvalidFormat, len(nonce))
	}

	sealed := make([]byte, 0, len(ciphertext)+len(tag))
	sealed = append(sealed, ciphertext...)
	sealed = append(sealed, tag...)

	plaintext, err := aead.Open(nil, nonce, sealed, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecryption, err)
	}
	return plaintext, nil
}

// IsEncrypted: структурная эвристика: 2 или 3 непустых hex-сегмента через двоеточие.
// Не гарантирует, что значение расшифруется. Конверт пустой строки (пустой третий
// сегмент) сюда не проходит, хотя Decrypt его открывает.
func IsEncrypted(value string) bool {
	if value == "" {
		return false
	}
	segments := strings.Split(value, separator)
	if len(segments) != 2 && len(segments) != 3 {
		return false
	}
	for _, s := range segments {
		if !hexSegment.MatchString(s) {
			return false
		}
	}
	return true
}

// IsEncrypted: то же, что пакетная функция; удобно там, где шифр передан как зависимость.
func (c *Cipher) IsEncrypted(value string) bool {
	return IsEncrypted(value)
}

func decodeSegments(segments []string) ([][]byte, error) {
	out := make([][]byte, len(segments))
	for i, s := range segments {
		if !hexSegment.MatchString(s) {
			return nil, fmt.Errorf("%w: segment %d is not hex", ErrInvalidFormat, i)
		}
		b, err := hex.DecodeString(s)
		if err != nil {
			return nil, fmt.Errorf("%w: segment %d: %v", ErrInvalidFormat, i, err)
		}
		out[i] = b
	}
	return out, nil
}

func serialize(value any) ([]byte, error) {
	switch v := value.(type) {
	case string:
		return []byte(v), nil
	case []byte:
		return v, nil
	}
	b, err := json.Marshal(value)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSerialization, err)
	}
	return b, nil
}
