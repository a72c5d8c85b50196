package imageproxy

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"

	"gomarketplace_hub/pkg/credentials"
)

// ErrInvalidToken: токен не расшифровывается или ведёт не на http(s). Наружу всегда 404.
var ErrInvalidToken = errors.New("invalid image token")

var httpURL = regexp.MustCompile(`(?i)^https?://`)

// Payload: содержимое токена картинки.
type Payload struct {
	URL       string `json:"u"`
	ProductID int64  `json:"p"`
	ImageID   int64  `json:"i"`
}

// Tokens выпускает и проверяет непрозрачные токены картинок.
// Конверт шифра (hex через двоеточие) безопасен как сегмент пути и используется как есть.
type Tokens struct {
	cipher *credentials.Cipher
}

func NewTokens(cipher *credentials.Cipher) *Tokens {
	return &Tokens{cipher: cipher}
}

func (t *Tokens) Token(sourceURL string, productID, imageID int64) (string, error) {
	if !httpURL.MatchString(sourceURL) {
		return "", fmt.Errorf("image url must be http(s): %q", sourceURL)
	}
	return t.cipher.Encrypt(Payload{URL: sourceURL, ProductID: productID, ImageID: imageID})
}

// Resolve сначала расшифровывает, потом проверяет схему URL.
func (t *Tokens) Resolve(token string) (*Payload, error) {
	raw, err := t.cipher.DecryptString(token)
	if err != nil {
		return nil, ErrInvalidToken
	}

	var p Payload
	if err := json.Unmarshal([]byte(raw), &p); err != nil {
		return nil, ErrInvalidToken
	}
	if !httpURL.MatchString(p.URL) {
		return nil, ErrInvalidToken
	}
	return &p, nil
}
