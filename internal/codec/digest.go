package codec

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"github.com/roach88/walletstore/internal/wallet"
)

// DomainWallet separates wallet digests from any other SHA-256 use.
// The version suffix leaves room for a future algorithm change.
const DomainWallet = "walletstore/wallet/v1"

// hashWithDomain computes SHA256(domain + 0x00 + data).
// The null byte prevents domain/data boundary ambiguity.
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// Digest returns the content digest of w: a hex SHA-256 over its canonical
// encoding. Two wallets with equal content have equal digests regardless of
// the indentation or extension order of the codec that stored them.
func Digest(w wallet.Wallet) (string, error) {
	canonical, err := New(WithCanonical()).Encode(w)
	if err != nil {
		return "", fmt.Errorf("digest: %w", err)
	}
	return hashWithDomain(DomainWallet, canonical), nil
}

// DigestBytes returns the digest of an already encoded document. The bytes
// are decoded and re-encoded canonically first, so formatting differences
// do not change the result.
func DigestBytes(data []byte) (string, error) {
	doc, err := parseDocument(data)
	if err != nil {
		return "", err
	}
	w, err := fromDocument(doc)
	if err != nil {
		return "", err
	}
	return Digest(w)
}
