package imagehash

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testPNG renders a small gradient image so the hash has real signal.
func testPNG(t *testing.T, seed uint8) []byte {
	t.Helper()

	img := image.NewRGBA(image.Rect(0, 0, 64, 64))
	for y := 0; y < 64; y++ {
		for x := 0; x < 64; x++ {
			img.Set(x, y, color.RGBA{
				R: uint8(x*4) + seed,
				G: uint8(y * 4),
				B: seed,
				A: 255,
			})
		}
	}

	var buf bytes.Buffer
	err := png.Encode(&buf, img)
	require.NoError(t, err)
	return buf.Bytes()
}

func TestHashFingerprintFormat(t *testing.T) {
	hasher := NewPerceptualHasher(0)

	fingerprint, err := hasher.Hash(context.Background(), bytes.NewReader(testPNG(t, 0)))
	require.NoError(t, err)

	assert.Len(t, fingerprint, FingerprintLength)
	assert.Equal(t, strings.ToLower(fingerprint), fingerprint)
	for _, c := range fingerprint {
		assert.Contains(t, "0123456789abcdef", string(c))
	}
}

func TestHashDeterministic(t *testing.T) {
	hasher := NewPerceptualHasher(0)
	data := testPNG(t, 42)

	first, err := hasher.Hash(context.Background(), bytes.NewReader(data))
	require.NoError(t, err)

	second, err := hasher.Hash(context.Background(), bytes.NewReader(data))
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestHashRejectsGarbage(t *testing.T) {
	hasher := NewPerceptualHasher(0)

	tests := []struct {
		name string
		data []byte
	}{
		{name: "empty", data: nil},
		{name: "text", data: []byte("not an image at all")},
		{name: "truncated png", data: testPNG(t, 0)[:20]},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := hasher.Hash(context.Background(), bytes.NewReader(tt.data))
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrHashingFailure)
		})
	}
}

func TestHashCancelledContext(t *testing.T) {
	hasher := NewPerceptualHasher(time.Minute)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := hasher.Hash(ctx, bytes.NewReader(testPNG(t, 0)))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrHashingFailure)
}
