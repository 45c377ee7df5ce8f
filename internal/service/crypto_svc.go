package service

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"

	"golang.org/x/crypto/chacha20poly1305"
)

// ==================== TokenCipher Token 加解密 ====================

var (
	// ErrEmptySecret 空串既不允许加密也不允许解密
	ErrEmptySecret = errors.New("secret 不能为空")
)

// TokenCipher 负责 Token 的落库加密
// 对外契约只有两条：Encrypt/Decrypt 严格互逆；密文可安全入库
// 密钥本身由外部密钥管理下发，这里只做派生
type TokenCipher struct {
	aead aeadSealer
}

// aeadSealer 抽出接口便于测试替换，实际实现是 XChaCha20-Poly1305
type aeadSealer interface {
	Seal(dst, nonce, plaintext, additionalData []byte) []byte
	Open(dst, nonce, ciphertext, additionalData []byte) ([]byte, error)
	NonceSize() int
}

// NewTokenCipher 创建 Token 加解密器
// key 任意非空字符串，内部用 SHA-256 派生为 32 字节密钥
func NewTokenCipher(key string) (*TokenCipher, error) {
	if key == "" {
		return nil, errors.New("加密密钥不能为空")
	}
	derived := sha256.Sum256([]byte(key))
	aead, err := chacha20poly1305.NewX(derived[:])
	if err != nil {
		return nil, fmt.Errorf("初始化 AEAD 失败: %w", err)
	}
	return &TokenCipher{aead: aead}, nil
}

// Encrypt 加密明文 Token，输出 base64(nonce || ciphertext)
func (c *TokenCipher) Encrypt(plaintext string) (string, error) {
	if plaintext == "" {
		return "", ErrEmptySecret
	}

	nonce := make([]byte, c.aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return "", fmt.Errorf("生成 nonce 失败: %w", err)
	}

	sealed := c.aead.Seal(nonce, nonce, []byte(plaintext), nil)
	return base64.StdEncoding.EncodeToString(sealed), nil
}

// Decrypt 解密，输入必须是 Encrypt 的输出
func (c *TokenCipher) Decrypt(ciphertext string) (string, error) {
	if ciphertext == "" {
		return "", ErrEmptySecret
	}

	raw, err := base64.StdEncoding.DecodeString(ciphertext)
	if err != nil {
		return "", fmt.Errorf("密文解码失败: %w", err)
	}

	nonceSize := c.aead.NonceSize()
	if len(raw) <= nonceSize {
		return "", errors.New("密文长度不合法")
	}

	plain, err := c.aead.Open(nil, raw[:nonceSize], raw[nonceSize:], nil)
	if err != nil {
		return "", fmt.Errorf("解密失败: %w", err)
	}

	return string(plain), nil
}
