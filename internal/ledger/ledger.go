package ledger

import (
	"errors"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/feral-file/ff-drug-registry/internal/adapter"
	"github.com/feral-file/ff-drug-registry/internal/domain"
)

// GenesisHash is the PrevHash of the first journal entry
var GenesisHash = "0x" + strings.Repeat("0", 64)

var (
	// ErrSequenceGap is returned when an entry does not follow its predecessor
	ErrSequenceGap = errors.New("sequence gap")

	// ErrBrokenLink is returned when an entry's prev hash does not match its predecessor
	ErrBrokenLink = errors.New("prev hash does not match predecessor")

	// ErrHashMismatch is returned when an entry's content no longer matches its hash
	ErrHashMismatch = errors.New("hash does not match content")
)

// ChainError pinpoints the first entry at which verification failed
type ChainError struct {
	Sequence uint64
	Err      error
}

func (e *ChainError) Error() string {
	return fmt.Sprintf("ledger broken at sequence %d: %v", e.Sequence, e.Err)
}

func (e *ChainError) Unwrap() error {
	return e.Err
}

// body is the hashed view of an event: everything except Hash itself
type body struct {
	Sequence             uint64 `json:"sequence"`
	EventID              string `json:"event_id"`
	DrugID               string `json:"drug_id"`
	Name                 string `json:"name"`
	Owner                string `json:"owner"`
	ManufactureTimestamp int64  `json:"manufacture_timestamp"`
	ExpiryTimestamp      int64  `json:"expiry_timestamp"`
	RegisteredAt         int64  `json:"registered_at"`
	PrevHash             string `json:"prev_hash"`
}

// Ledger seals and verifies registration events.
// Hash = keccak256(prevHash || JCS(body)).
type Ledger struct {
	json adapter.JSON
	jcs  adapter.JCS
}

// New creates a ledger
func New(json adapter.JSON, jcs adapter.JCS) *Ledger {
	return &Ledger{json: json, jcs: jcs}
}

// Seal links ev to prev (nil for the first entry) and fills in
// Sequence, PrevHash and Hash.
func (l *Ledger) Seal(prev *domain.RegistrationEvent, ev *domain.RegistrationEvent) error {
	if prev == nil {
		ev.Sequence = 1
		ev.PrevHash = GenesisHash
	} else {
		ev.Sequence = prev.Sequence + 1
		ev.PrevHash = prev.Hash
	}

	hash, err := l.Hash(ev)
	if err != nil {
		return err
	}
	ev.Hash = hash

	return nil
}

// Hash computes the chain hash of an event from its content and PrevHash
func (l *Ledger) Hash(ev *domain.RegistrationEvent) (string, error) {
	raw, err := l.json.Marshal(body{
		Sequence:             ev.Sequence,
		EventID:              ev.EventID,
		DrugID:               ev.DrugID,
		Name:                 ev.Name,
		Owner:                ev.Owner.String(),
		ManufactureTimestamp: ev.ManufactureTimestamp,
		ExpiryTimestamp:      ev.ExpiryTimestamp,
		RegisteredAt:         ev.RegisteredAt,
		PrevHash:             ev.PrevHash,
	})
	if err != nil {
		return "", fmt.Errorf("failed to marshal event: %w", err)
	}

	canonical, err := l.jcs.Transform(raw)
	if err != nil {
		return "", fmt.Errorf("failed to canonicalize event: %w", err)
	}

	prev := common.HexToHash(ev.PrevHash)
	return crypto.Keccak256Hash(prev.Bytes(), canonical).Hex(), nil
}

// Verifier walks the journal in order, one entry or page at a time
type Verifier struct {
	ledger   *Ledger
	next     uint64
	headHash string
	checked  uint64
}

// NewVerifier starts verification at the genesis entry
func (l *Ledger) NewVerifier() *Verifier {
	return l.NewVerifierFrom(0, GenesisHash)
}

// NewVerifierFrom resumes verification after a trusted entry
func (l *Ledger) NewVerifierFrom(sequence uint64, hash string) *Verifier {
	return &Verifier{ledger: l, next: sequence + 1, headHash: hash}
}

// Check verifies a single entry against the current head and advances on success
func (v *Verifier) Check(ev *domain.RegistrationEvent) error {
	if ev.Sequence != v.next {
		return &ChainError{Sequence: v.next, Err: fmt.Errorf("%w: got %d", ErrSequenceGap, ev.Sequence)}
	}
	if ev.PrevHash != v.headHash {
		return &ChainError{Sequence: ev.Sequence, Err: ErrBrokenLink}
	}

	hash, err := v.ledger.Hash(ev)
	if err != nil {
		return err
	}
	if hash != ev.Hash {
		return &ChainError{Sequence: ev.Sequence, Err: ErrHashMismatch}
	}

	v.next++
	v.headHash = ev.Hash
	v.checked++
	return nil
}

// CheckAll verifies a page of consecutive entries, stopping at the first failure
func (v *Verifier) CheckAll(events []domain.RegistrationEvent) error {
	for i := range events {
		if err := v.Check(&events[i]); err != nil {
			return err
		}
	}
	return nil
}

// Head returns the sequence and hash of the last verified entry
func (v *Verifier) Head() (uint64, string) {
	return v.next - 1, v.headHash
}

// Checked returns how many entries were verified
func (v *Verifier) Checked() uint64 {
	return v.checked
}

// Verify checks a complete journal starting at genesis
func (l *Ledger) Verify(events []domain.RegistrationEvent) error {
	return l.NewVerifier().CheckAll(events)
}
