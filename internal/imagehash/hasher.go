package imagehash

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	"time"

	"github.com/corona10/goimagehash"

	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/webp"
)

// ErrHashingFailure is returned when image bytes cannot be decoded or hashed.
// Callers must not persist a post without a valid fingerprint.
var ErrHashingFailure = errors.New("image could not be hashed")

// FingerprintLength is the hex length of every fingerprint produced by this
// package: a 16×16 perceptual hash is 256 bits, 64 hex characters.
// Fingerprints of any other length are incomparable.
const FingerprintLength = 64

const hashBits = 16 // per axis

// DefaultTimeout bounds the decode+hash step. Decoding is the only part of
// the pipeline that touches attacker-controlled binary input.
const DefaultTimeout = 10 * time.Second

// Hasher derives a fixed-length hex fingerprint from raw image bytes.
// Implementations decide how (in-memory decode, temp files, ...); callers
// only see the fingerprint contract.
type Hasher interface {
	Hash(ctx context.Context, r io.Reader) (string, error)
}

// PerceptualHasher computes a 256-bit perceptual hash fully in memory.
// Deterministic: identical input bytes always yield the identical
// fingerprint, and visually similar images yield fingerprints with small
// Hamming distance.
type PerceptualHasher struct {
	timeout time.Duration
}

// NewPerceptualHasher builds a hasher with the given timeout; zero means
// DefaultTimeout.
func NewPerceptualHasher(timeout time.Duration) *PerceptualHasher {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &PerceptualHasher{timeout: timeout}
}

func (h *PerceptualHasher) Hash(ctx context.Context, r io.Reader) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, h.timeout)
	defer cancel()

	type result struct {
		fingerprint string
		err         error
	}
	ch := make(chan result, 1)

	go func() {
		fp, err := hashImage(r)
		ch <- result{fp, err}
	}()

	select {
	case <-ctx.Done():
		return "", fmt.Errorf("%w: %v", ErrHashingFailure, ctx.Err())
	case res := <-ch:
		if res.err != nil {
			return "", fmt.Errorf("%w: %v", ErrHashingFailure, res.err)
		}
		return res.fingerprint, nil
	}
}

func hashImage(r io.Reader) (string, error) {
	img, _, err := image.Decode(r)
	if err != nil {
		return "", fmt.Errorf("decode image: %v", err)
	}

	hash, err := goimagehash.ExtPerceptionHash(img, hashBits, hashBits)
	if err != nil {
		return "", fmt.Errorf("perception hash: %v", err)
	}

	var buf bytes.Buffer
	for _, word := range hash.GetHash() {
		fmt.Fprintf(&buf, "%016x", word)
	}
	fingerprint := buf.String()
	if len(fingerprint) != FingerprintLength {
		return "", fmt.Errorf("unexpected fingerprint length %d", len(fingerprint))
	}
	return fingerprint, nil
}
