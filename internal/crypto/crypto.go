package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"math/big"
	"regexp"
	"strings"
	"unicode"
)

var addressRe = regexp.MustCompile(`^0x[a-fA-F0-9]{40}$`)

// IsValidAddress reports whether s matches the 0x + 40 hex digit grammar.
func IsValidAddress(s string) bool { return addressRe.MatchString(s) }

// HashPIN returns the one-way sha256 hex digest used for PIN storage.
func HashPIN(pin string) string {
	sum := sha256.Sum256([]byte(pin))
	return hex.EncodeToString(sum[:])
}

// GenerateMerchantCode builds a short shareable code from the business name
// initials (up to 3) plus 3 random digits, e.g. "Corner Shop" -> "CS042".
func GenerateMerchantCode(businessName string) (string, error) {
	var initials strings.Builder
	for _, word := range strings.Fields(businessName) {
		r := []rune(word)[0]
		initials.WriteRune(unicode.ToUpper(r))
		if initials.Len() >= 3 {
			break
		}
	}

	n, err := rand.Int(rand.Reader, big.NewInt(1000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s%03d", initials.String(), n.Int64()), nil
}

// GenerateOwnerKey returns fresh wallet owner key material: 32 random bytes,
// 0x-prefixed hex.
func GenerateOwnerKey() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return "0x" + hex.EncodeToString(b), nil
}

// Cipher encrypts and decrypts wallet key material with AES-256-CBC. The IV
// is generated per encryption and prepended to the hex output.
type Cipher struct {
	key []byte
}

// NewCipher builds a Cipher from the configured secret; the secret must be at
// least 32 bytes (only the first 32 are used).
func NewCipher(secret string) (*Cipher, error) {
	if len(secret) < 32 {
		return nil, fmt.Errorf("crypto: key secret must be at least 32 bytes, got %d", len(secret))
	}
	return &Cipher{key: []byte(secret[:32])}, nil
}

func (c *Cipher) Encrypt(plaintext string) (string, error) {
	block, err := aes.NewCipher(c.key)
	if err != nil {
		return "", err
	}

	iv := make([]byte, aes.BlockSize)
	if _, err := rand.Read(iv); err != nil {
		return "", err
	}

	padded := pad([]byte(plaintext), aes.BlockSize)
	out := make([]byte, len(padded))
	cipher.NewCBCEncrypter(block, iv).CryptBlocks(out, padded)

	return hex.EncodeToString(iv) + hex.EncodeToString(out), nil
}

func (c *Cipher) Decrypt(encrypted string) (string, error) {
	raw, err := hex.DecodeString(encrypted)
	if err != nil {
		return "", fmt.Errorf("crypto: decode ciphertext: %w", err)
	}
	if len(raw) < 2*aes.BlockSize || len(raw)%aes.BlockSize != 0 {
		return "", fmt.Errorf("crypto: ciphertext length %d invalid", len(raw))
	}

	block, err := aes.NewCipher(c.key)
	if err != nil {
		return "", err
	}

	iv, body := raw[:aes.BlockSize], raw[aes.BlockSize:]
	out := make([]byte, len(body))
	cipher.NewCBCDecrypter(block, iv).CryptBlocks(out, body)

	out, err = unpad(out, aes.BlockSize)
	if err != nil {
		return "", err
	}
	return string(out), nil
}

// PKCS#7

func pad(b []byte, size int) []byte {
	n := size - len(b)%size
	padded := make([]byte, len(b)+n)
	copy(padded, b)
	for i := len(b); i < len(padded); i++ {
		padded[i] = byte(n)
	}
	return padded
}

func unpad(b []byte, size int) ([]byte, error) {
	if len(b) == 0 || len(b)%size != 0 {
		return nil, fmt.Errorf("crypto: invalid padded length %d", len(b))
	}
	n := int(b[len(b)-1])
	if n == 0 || n > size || n > len(b) {
		return nil, fmt.Errorf("crypto: invalid padding")
	}
	for _, p := range b[len(b)-n:] {
		if int(p) != n {
			return nil, fmt.Errorf("crypto: invalid padding")
		}
	}
	return b[:len(b)-n], nil
}
