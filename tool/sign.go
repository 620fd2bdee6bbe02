package tool

import (
	"encoding/hex"
	"errors"
	"fmt"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcec/v2/ecdsa"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
)

// SignMessage 使用私钥对消息做 double-sha256 + ECDSA 签名，返回 DER 编码的 hex
func SignMessage(message, privateKeyHex string) (string, error) {
	privateKeyBytes, err := hex.DecodeString(privateKeyHex)
	if err != nil {
		return "", fmt.Errorf("私钥格式错误: %w", err)
	}
	if len(privateKeyBytes) != 32 {
		return "", errors.New("私钥长度错误")
	}
	privateKey, _ := btcec.PrivKeyFromBytes(privateKeyBytes)
	hash := chainhash.DoubleHashB([]byte(message))
	sig := ecdsa.Sign(privateKey, hash)
	return hex.EncodeToString(sig.Serialize()), nil
}

// VerifySign 校验签名
func VerifySign(message, signHex, publicKeyHex string) (bool, error) {
	sigBytes, err := hex.DecodeString(signHex)
	if err != nil {
		return false, fmt.Errorf("签名格式错误: %w", err)
	}
	pubBytes, err := hex.DecodeString(publicKeyHex)
	if err != nil {
		return false, fmt.Errorf("公钥格式错误: %w", err)
	}
	sig, err := ecdsa.ParseDERSignature(sigBytes)
	if err != nil {
		return false, fmt.Errorf("解析签名失败: %w", err)
	}
	publicKey, err := btcec.ParsePubKey(pubBytes)
	if err != nil {
		return false, fmt.Errorf("解析公钥失败: %w", err)
	}
	hash := chainhash.DoubleHashB([]byte(message))
	return sig.Verify(hash, publicKey), nil
}

// PublicKeyHex 由私钥推导压缩公钥
func PublicKeyHex(privateKeyHex string) (string, error) {
	privateKeyBytes, err := hex.DecodeString(privateKeyHex)
	if err != nil {
		return "", fmt.Errorf("私钥格式错误: %w", err)
	}
	privateKey, _ := btcec.PrivKeyFromBytes(privateKeyBytes)
	return hex.EncodeToString(privateKey.PubKey().SerializeCompressed()), nil
}
