package domain

import (
	"strings"

	"github.com/ethereum/go-ethereum/common"
)

// Owner is the identity of the party that registered a drug.
// Ethereum addresses are stored in their EIP-55 checksum form so that
// differently-cased spellings of the same wallet resolve to one owner.
// Any other principal (e.g. a JWT subject) is kept byte-for-byte.
type Owner string

// NormalizeOwner canonicalizes a caller identity. A blank principal names
// nobody and is rejected; "acme" and "acme " are different owners.
func NormalizeOwner(raw string) (Owner, error) {
	if strings.TrimSpace(raw) == "" {
		return "", ErrOwnerRequired
	}

	if IsEthereumAddress(raw) {
		return Owner(common.HexToAddress(raw).Hex()), nil
	}

	return Owner(raw), nil
}

// IsEthereumAddress reports whether s is a 0x-prefixed hex address
func IsEthereumAddress(s string) bool {
	return strings.HasPrefix(s, "0x") && common.IsHexAddress(s)
}

func (o Owner) String() string {
	return string(o)
}

// IsAddress reports whether the owner is a wallet address
func (o Owner) IsAddress() bool {
	return IsEthereumAddress(string(o))
}
