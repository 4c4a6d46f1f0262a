// Package ordertoken шифрует идентификатор заказа перед отправкой в метаданные
// платёжной сессии. AES-GCM даёт и конфиденциальность, и проверку целостности:
// подмена или перебор order id на стороне шлюза не пройдёт расшифровку.
package ordertoken

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"

	"github.com/google/uuid"
)

var ErrInvalidToken = errors.New("order token invalid")

type Codec struct {
	aead cipher.AEAD
}

// New принимает 32-байтовый ключ в hex (AES-256)
func New(hexKey string) (*Codec, error) {
	key, err := hex.DecodeString(hexKey)
	if err != nil {
		return nil, fmt.Errorf("order token key is not valid hex: %w", err)
	}
	if len(key) != 32 {
		return nil, fmt.Errorf("order token key must be 32 bytes, got %d", len(key))
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}
	return &Codec{aead: aead}, nil
}

func (c *Codec) Encrypt(orderID uuid.UUID) (string, error) {
	nonce := make([]byte, c.aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return "", err
	}
	sealed := c.aead.Seal(nonce, nonce, orderID[:], nil)
	return base64.RawURLEncoding.EncodeToString(sealed), nil
}

func (c *Codec) Decrypt(token string) (uuid.UUID, error) {
	raw, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil {
		return uuid.Nil, ErrInvalidToken
	}
	ns := c.aead.NonceSize()
	if len(raw) < ns {
		return uuid.Nil, ErrInvalidToken
	}
	plain, err := c.aead.Open(nil, raw[:ns], raw[ns:], nil)
	if err != nil {
		return uuid.Nil, ErrInvalidToken
	}
	id, err := uuid.FromBytes(plain)
	if err != nil {
		return uuid.Nil, ErrInvalidToken
	}
	return id, nil
}
