package frame

import (
	"encoding/binary"
	"fmt"

	"golang.org/x/crypto/chacha20poly1305"
	"lukechampine.com/frand"
)

// KeySize is the pre-shared secret length in bytes (256 bits).
const KeySize = chacha20poly1305.KeySize // 32

// nonceSize/tagSize document the shape of the 24-byte XChaCha20-Poly1305
// nonce and its 16-byte authentication tag.
const (
	nonceSize = chacha20poly1305.NonceSizeX // 24
	tagSize   = 16
)

// CryptoCodec implements the encrypted frame body variant: XChaCha20-Poly1305
// AEAD with empty associated data and a nonce built as counter||random.
// The high 128 bits are drawn once from a CSPRNG at
// construction and frozen for the connection's lifetime; the low 64 bits
// are a per-connection monotonic counter seeded from the CSPRNG so two
// connections sharing a key don't start from the same counter value.
//
// CryptoCodec is NOT safe for concurrent use on the encode side — callers
// must serialize calls to Encode the same way internal/transport serializes
// writes through a single writer goroutine. Decode records the last accepted
// counter, so calls to Decode must be serialized too; in practice only one
// reader loop per connection ever calls it. Encode and Decode touch
// separate fields and may run concurrently with each other.
type CryptoCodec struct {
	aead    interface {
		Seal(dst, nonce, plaintext, additionalData []byte) []byte
		Open(dst, nonce, ciphertext, additionalData []byte) ([]byte, error)
		NonceSize() int
		Overhead() int
	}
	randomHigh [16]byte // frozen for the life of the connection
	counter    uint64   // low 64 bits; incremented per Encode call

	lastRecvCounter uint64
	haveRecvCounter bool
}

// NewCryptoCodec builds a CryptoCodec for one end of a connection; that one
// instance encodes outbound frames and decodes inbound ones. Both
// peers of a connection construct their own CryptoCodec from the same key;
// the random high half differs per instance (it's carried in-band as part
// of each frame's nonce, not negotiated), and each instance's own counter
// only needs to be unique for nonces *it* generates.
func NewCryptoCodec(key []byte) (*CryptoCodec, error) {
	if len(key) != KeySize {
		return nil, fmt.Errorf("frame: crypto key must be %d bytes, got %d", KeySize, len(key))
	}
	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, fmt.Errorf("frame: init aead: %w", err)
	}
	c := &CryptoCodec{aead: aead}
	frand.Read(c.randomHigh[:])
	c.counter = frand.Uint64n(1 << 62)
	return c, nil
}

func (c *CryptoCodec) nextNonce() [nonceSize]byte {
	var n [nonceSize]byte
	copy(n[:16], c.randomHigh[:])
	binary.BigEndian.PutUint64(n[16:24], c.counter)
	c.counter++
	return n
}

// Encode seals plaintext under a fresh nonce and prepends that nonce to the
// returned ciphertext||tag.
func (c *CryptoCodec) Encode(plaintext []byte) ([]byte, error) {
	nonce := c.nextNonce()
	out := make([]byte, 0, nonceSize+len(plaintext)+tagSize)
	out = append(out, nonce[:]...)
	out = c.aead.Seal(out, nonce[:], plaintext, nil)
	return out, nil
}

// Decode splits the nonce prefix from an encrypted frame body, rejects
// nonce reuse (a fatal error), and opens the remainder. Reuse detection
// here only covers the trivial
// in-order case (a nonce counter that does not advance); a peer that
// replays an old frame out of order is caught by normal connection
// sequencing, since TCP/Unix sockets are ordered byte streams.
func (c *CryptoCodec) Decode(ciphertext []byte) ([]byte, error) {
	if len(ciphertext) < nonceSize+tagSize {
		return nil, &FramingError{Msg: "encrypted frame shorter than nonce+tag"}
	}
	nonce := ciphertext[:nonceSize]
	sealed := ciphertext[nonceSize:]

	recvCounter := binary.BigEndian.Uint64(nonce[16:24])
	if c.haveRecvCounter && recvCounter <= c.lastRecvCounter {
		return nil, fmt.Errorf("frame: nonce reuse detected (counter %d did not advance past %d)", recvCounter, c.lastRecvCounter)
	}

	plain, err := c.aead.Open(nil, nonce, sealed, nil)
	if err != nil {
		return nil, fmt.Errorf("frame: decrypt: %w", err)
	}
	if plain == nil {
		plain = []byte{}
	}

	c.lastRecvCounter = recvCounter
	c.haveRecvCounter = true
	return plain, nil
}
