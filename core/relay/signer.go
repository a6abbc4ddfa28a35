package relay

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Signer finalizes an event before publishing: it stamps the author pubkey,
// computes the canonical id, and produces the signature. Production
// deployments plug in a schnorr signer; the engine never inspects signatures.
type Signer interface {
	// PubKey returns the pubkey events are authored as.
	PubKey() string
	// Sign stamps pubkey, id, and sig on the event in place.
	Sign(ev *Event) error
}

// LocalSigner signs events with an HMAC over the canonical id. It is
// sufficient for development relays and tests that do not verify schnorr
// signatures.
type LocalSigner struct {
	pubkey string
	secret []byte
}

// NewLocalSigner creates a LocalSigner for the given pubkey and secret.
func NewLocalSigner(pubkey, secret string) *LocalSigner {
	return &LocalSigner{pubkey: pubkey, secret: []byte(secret)}
}

// PubKey returns the signer's pubkey.
func (s *LocalSigner) PubKey() string {
	return s.pubkey
}

// Sign stamps pubkey, id, and sig on the event.
func (s *LocalSigner) Sign(ev *Event) error {
	ev.PubKey = s.pubkey

	id, err := ev.ComputeID()
	if err != nil {
		return fmt.Errorf("failed to compute event id: %w", err)
	}
	ev.ID = id

	mac := hmac.New(sha256.New, s.secret)
	mac.Write([]byte(id))
	ev.Sig = hex.EncodeToString(mac.Sum(nil))
	return nil
}
