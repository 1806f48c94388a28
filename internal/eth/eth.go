package eth

import (
	"crypto/ecdsa"
	"errors"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
)

var ErrInvalidSignatureLength = errors.New("signature must be 65 bytes")

// RecoverPersonal returns the address that produced an EIP-191 personal_sign
// signature over message. The recovery id may be encoded as 0/1 or 27/28.
func RecoverPersonal(message string, signature string) (common.Address, error) {
	sig, err := hexutil.Decode(signature)
	if err != nil {
		return common.Address{}, fmt.Errorf("failed to decode signature: %w", err)
	}
	if len(sig) != crypto.SignatureLength {
		return common.Address{}, ErrInvalidSignatureLength
	}
	if sig[crypto.RecoveryIDOffset] >= 27 {
		sig[crypto.RecoveryIDOffset] -= 27
	}

	pub, err := crypto.SigToPub(accounts.TextHash([]byte(message)), sig)
	if err != nil {
		return common.Address{}, fmt.Errorf("failed to recover public key: %w", err)
	}
	return crypto.PubkeyToAddress(*pub), nil
}

// VerifyPersonal reports whether signature over message was produced by address
func VerifyPersonal(message, signature string, address common.Address) (bool, error) {
	recovered, err := RecoverPersonal(message, signature)
	if err != nil {
		return false, err
	}
	return recovered == address, nil
}

// KeySigner signs personal messages with a secp256k1 private key
type KeySigner struct {
	key     *ecdsa.PrivateKey
	address common.Address
}

// NewKeySigner creates a signer from a hex encoded private key, with or without 0x prefix
func NewKeySigner(hexKey string) (*KeySigner, error) {
	key, err := crypto.HexToECDSA(strings.TrimPrefix(strings.TrimSpace(hexKey), "0x"))
	if err != nil {
		return nil, fmt.Errorf("failed to parse private key: %w", err)
	}
	return NewSignerFromKey(key), nil
}

// NewSignerFromKey signs with an already loaded key
func NewSignerFromKey(key *ecdsa.PrivateKey) *KeySigner {
	return &KeySigner{key: key, address: crypto.PubkeyToAddress(key.PublicKey)}
}

// Address returns the checksummed address of the signer
func (s *KeySigner) Address() string {
	return s.address.Hex()
}

// SignMessage returns a 0x-prefixed personal_sign signature with a 27/28 recovery id
func (s *KeySigner) SignMessage(message string) (string, error) {
	sig, err := crypto.Sign(accounts.TextHash([]byte(message)), s.key)
	if err != nil {
		return "", fmt.Errorf("failed to sign message: %w", err)
	}
	sig[crypto.RecoveryIDOffset] += 27
	return hexutil.Encode(sig), nil
}
