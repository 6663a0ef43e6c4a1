package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/md5"
	"errors"
	"fmt"
)

// Secret is appended to the content key before hashing.
const Secret = "F4:8E:09:CE:54:F7SeCrEtKkK"

// SegmentIV is the fixed IV used for every segment.
var SegmentIV = [aes.BlockSize]byte{15: 0x01}

// ErrCiphertextLength is returned when the ciphertext is not a whole number of blocks.
var ErrCiphertextLength = errors.New("ciphertext is not a multiple of the block size")

// DeriveKey returns MD5(contentKey + secret).
func DeriveKey(contentKey, secret string) [md5.Size]byte {
	return md5.Sum([]byte(contentKey + secret))
}

// Decrypt decrypts one segment. Padding is left in place; the FLAC framing
// in the plaintext is handled by the remuxer.
func Decrypt(ciphertext, key, iv []byte) ([]byte, error) {
	mode, err := newMode(key, iv, false)
	if err != nil {
		return nil, err
	}
	if len(ciphertext)%aes.BlockSize != 0 {
		return nil, fmt.Errorf("%w: %d bytes", ErrCiphertextLength, len(ciphertext))
	}

	plaintext := make([]byte, len(ciphertext))
	mode.CryptBlocks(plaintext, ciphertext)
	return plaintext, nil
}

// Encrypt is the inverse of Decrypt. The plaintext must already be block aligned.
func Encrypt(plaintext, key, iv []byte) ([]byte, error) {
	mode, err := newMode(key, iv, true)
	if err != nil {
		return nil, err
	}
	if len(plaintext)%aes.BlockSize != 0 {
		return nil, fmt.Errorf("%w: %d bytes", ErrCiphertextLength, len(plaintext))
	}

	ciphertext := make([]byte, len(plaintext))
	mode.CryptBlocks(ciphertext, plaintext)
	return ciphertext, nil
}

func newMode(key, iv []byte, encrypt bool) (cipher.BlockMode, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("create cipher: %w", err)
	}
	if len(iv) != aes.BlockSize {
		return nil, fmt.Errorf("invalid IV length %d", len(iv))
	}
	if encrypt {
		return cipher.NewCBCEncrypter(block, iv), nil
	}
	return cipher.NewCBCDecrypter(block, iv), nil
}
