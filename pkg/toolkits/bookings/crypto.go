package bookings

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"encoding/base64"
	"fmt"
	"strings"
)

// The vendor's account-login APIs encrypt request fields and response bodies
// with AES-128-CBC, PKCS7 padding, and the IV equal to the key. Each API
// surface carries its own fixed key.
const (
	// botKey covers the BOT login endpoint (request token and response body).
	botKey = "EMTOO1BOTT9aWsV1"

	// fieldKey encrypts individual OTP-login payload fields and the
	// useridentity header.
	fieldKey = "EMTmVUvDhT9aWsVG"

	// payloadKey encrypts the whole OTP-login JSON payload.
	payloadKey = "MT$1VU8DHQ8aWLVH"

	// responseKey decrypts OTP-login response bodies.
	responseKey = "TMTOO1vDhT9aWsV1"
)

// encryptAES encrypts plain text and returns it base64-encoded.
func encryptAES(key, plain string) (string, error) {
	block, err := aes.NewCipher([]byte(key))
	if err != nil {
		return "", fmt.Errorf("creating cipher: %w", err)
	}

	padded := pkcs7Pad([]byte(plain), aes.BlockSize)
	out := make([]byte, len(padded))
	cipher.NewCBCEncrypter(block, []byte(key)).CryptBlocks(out, padded)

	return base64.StdEncoding.EncodeToString(out), nil
}

// decryptAES decodes a base64 ciphertext and decrypts it. The vendor
// sometimes wraps ciphertext bodies in JSON string quotes; those are
// stripped before decoding.
func decryptAES(key, encoded string) (string, error) {
	encoded = strings.Trim(strings.TrimSpace(encoded), `"`)

	raw, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return "", fmt.Errorf("decoding ciphertext: %w", err)
	}
	if len(raw) == 0 || len(raw)%aes.BlockSize != 0 {
		return "", fmt.Errorf("ciphertext length %d is not a block multiple", len(raw))
	}

	block, err := aes.NewCipher([]byte(key))
	if err != nil {
		return "", fmt.Errorf("creating cipher: %w", err)
	}

	out := make([]byte, len(raw))
	cipher.NewCBCDecrypter(block, []byte(key)).CryptBlocks(out, raw)

	unpadded, err := pkcs7Unpad(out, aes.BlockSize)
	if err != nil {
		return "", err
	}
	return string(unpadded), nil
}

func pkcs7Pad(data []byte, blockSize int) []byte {
	n := blockSize - len(data)%blockSize
	return append(data, bytes.Repeat([]byte{byte(n)}, n)...)
}

func pkcs7Unpad(data []byte, blockSize int) ([]byte, error) {
	if len(data) == 0 || len(data)%blockSize != 0 {
		return nil, fmt.Errorf("invalid padded length %d", len(data))
	}
	n := int(data[len(data)-1])
	if n == 0 || n > blockSize || n > len(data) {
		return nil, fmt.Errorf("invalid padding byte %d", n)
	}
	for _, b := range data[len(data)-n:] {
		if int(b) != n {
			return nil, fmt.Errorf("inconsistent padding")
		}
	}
	return data[:len(data)-n], nil
}
