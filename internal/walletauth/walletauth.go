package walletauth

import (
	"crypto/ecdsa"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
)

// Scheme is the Authorization scheme carrying wallet credentials
const Scheme = "Wallet"

// DefaultMaxSkew bounds how far a signed timestamp may drift from the server clock
const DefaultMaxSkew = 5 * time.Minute

var (
	ErrMalformed         = errors.New("malformed wallet credentials")
	ErrInvalidAddress    = errors.New("invalid wallet address")
	ErrStale             = errors.New("wallet signature timestamp outside allowed window")
	ErrSignatureMismatch = errors.New("signature does not match address")
)

// Message is the text a wallet personal_signs to authenticate as address at unix
func Message(address string, unix int64) string {
	return fmt.Sprintf("ff-drug-registry login\naddress: %s\ntimestamp: %d", address, unix)
}

// Sign produces the credentials part of a Wallet Authorization header:
// <address>:<unix>:<0xsignature>
func Sign(key *ecdsa.PrivateKey, unix int64) (string, error) {
	address := crypto.PubkeyToAddress(key.PublicKey).Hex()

	sig, err := crypto.Sign(accounts.TextHash([]byte(Message(address, unix))), key)
	if err != nil {
		return "", fmt.Errorf("failed to sign message: %w", err)
	}
	// wallets report V as 27/28
	sig[crypto.RecoveryIDOffset] += 27

	return fmt.Sprintf("%s:%d:%s", address, unix, hexutil.Encode(sig)), nil
}

// Header returns the full Authorization header value for key at unix
func Header(key *ecdsa.PrivateKey, unix int64) (string, error) {
	credentials, err := Sign(key, unix)
	if err != nil {
		return "", err
	}
	return Scheme + " " + credentials, nil
}

// Verify checks wallet credentials produced by Sign and returns the signing address
func Verify(credentials string, now time.Time, maxSkew time.Duration) (common.Address, error) {
	parts := strings.Split(strings.TrimSpace(credentials), ":")
	if len(parts) != 3 {
		return common.Address{}, ErrMalformed
	}

	if !common.IsHexAddress(parts[0]) {
		return common.Address{}, ErrInvalidAddress
	}
	address := common.HexToAddress(parts[0])

	unix, err := strconv.ParseInt(parts[1], 10, 64)
	if err != nil {
		return common.Address{}, fmt.Errorf("%w: bad timestamp", ErrMalformed)
	}
	if maxSkew <= 0 {
		maxSkew = DefaultMaxSkew
	}
	skew := now.Sub(time.Unix(unix, 0))
	if skew > maxSkew || skew < -maxSkew {
		return common.Address{}, ErrStale
	}

	sig, err := hexutil.Decode(parts[2])
	if err != nil || len(sig) != crypto.SignatureLength {
		return common.Address{}, fmt.Errorf("%w: bad signature", ErrMalformed)
	}
	if sig[crypto.RecoveryIDOffset] >= 27 {
		sig[crypto.RecoveryIDOffset] -= 27
	}

	// the message embeds the checksummed address regardless of how the header spelled it
	hash := accounts.TextHash([]byte(Message(address.Hex(), unix)))
	pub, err := crypto.SigToPub(hash, sig)
	if err != nil {
		return common.Address{}, fmt.Errorf("%w: %v", ErrSignatureMismatch, err)
	}
	if crypto.PubkeyToAddress(*pub) != address {
		return common.Address{}, ErrSignatureMismatch
	}

	return address, nil
}
