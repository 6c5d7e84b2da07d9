package ethereum

import (
	"crypto/ecdsa"
	"fmt"
	"math/big"
	"strings"

	"github.com/99designs/keyring"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/fd1az/transfer-dashboard/internal/apperror"
	"github.com/fd1az/transfer-dashboard/internal/config"
)

// KeySigner signs transactions with a secp256k1 key held in memory.
type KeySigner struct {
	key     *ecdsa.PrivateKey
	address common.Address
}

// NewKeySigner parses a hex private key, with or without 0x.
func NewKeySigner(hexKey string) (*KeySigner, error) {
	hexKey = strings.TrimPrefix(strings.TrimSpace(hexKey), "0x")
	if hexKey == "" {
		return nil, apperror.New(apperror.CodeSignerUnavailable,
			apperror.WithContext("no private key configured"))
	}
	key, err := crypto.HexToECDSA(hexKey)
	if err != nil {
		return nil, apperror.New(apperror.CodeSignerUnavailable,
			apperror.WithCause(err),
			apperror.WithContext("parsing private key"))
	}
	return &KeySigner{key: key, address: crypto.PubkeyToAddress(key.PublicKey)}, nil
}

// Address returns the signing account.
func (s *KeySigner) Address() common.Address {
	return s.address
}

// Sign signs tx for chainID with the London signer.
func (s *KeySigner) Sign(tx *types.Transaction, chainID *big.Int) (*types.Transaction, error) {
	signed, err := types.SignTx(tx, types.NewLondonSigner(chainID), s.key)
	if err != nil {
		return nil, fmt.Errorf("signing transaction: %w", err)
	}
	return signed, nil
}

// OpenKeyring opens the configured keyring. A KeyringDir selects the
// encrypted file backend.
func OpenKeyring(cfg config.SignerConfig) (keyring.Keyring, error) {
	kcfg := keyring.Config{
		ServiceName:              cfg.KeyringService,
		KeychainTrustApplication: true,
	}
	if cfg.KeyringDir != "" {
		password := cfg.KeyringPassword
		kcfg.AllowedBackends = []keyring.BackendType{keyring.FileBackend}
		kcfg.FileDir = cfg.KeyringDir
		kcfg.FilePasswordFunc = func(string) (string, error) { return password, nil }
	}
	ring, err := keyring.Open(kcfg)
	if err != nil {
		return nil, apperror.New(apperror.CodeSignerUnavailable,
			apperror.WithCause(err),
			apperror.WithContext("opening keyring"))
	}
	return ring, nil
}

// LoadSigner resolves the signing key from the environment or the keyring.
func LoadSigner(cfg config.SignerConfig) (*KeySigner, error) {
	switch cfg.Source {
	case "", "env":
		return NewKeySigner(cfg.PrivateKey)
	case "keyring":
		ring, err := OpenKeyring(cfg)
		if err != nil {
			return nil, err
		}
		item, err := ring.Get(cfg.KeyRef)
		if err != nil {
			return nil, apperror.New(apperror.CodeSignerUnavailable,
				apperror.WithCause(err),
				apperror.WithContext("retrieving key "+cfg.KeyRef))
		}
		return NewKeySigner(string(item.Data))
	default:
		return nil, apperror.New(apperror.CodeConfigurationError,
			apperror.WithContext("unknown signer source "+cfg.Source))
	}
}
