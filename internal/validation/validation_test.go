package validation

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"mime/multipart"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateEmail(t *testing.T) {
	tests := []struct {
		name    string
		email   string
		wantErr bool
	}{
		{"plain address", "ada@example.com", false},
		{"subdomain", "ada@mail.example.co.uk", false},
		{"plus tag", "ada+tags@example.com", false},
		{"empty", "", true},
		{"no at sign", "ada.example.com", true},
		{"no domain", "ada@", true},
		{"spaces inside", "ada lovelace@example.com", true},
		{"too long", strings.Repeat("a", 250) + "@x.io", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateEmail(tt.email)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestValidatePassword(t *testing.T) {
	tests := []struct {
		name     string
		password string
		wantErr  error
	}{
		{"letters and digits", "secret123", nil},
		{"exactly eight chars", "abcdefg1", nil},
		{"too short", "ab1", ErrPasswordTooShort},
		{"only letters", "abcdefgh", ErrPasswordTooWeak},
		{"only digits", "12345678", ErrPasswordTooWeak},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidatePassword(tt.password)
			if tt.wantErr == nil {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, tt.wantErr)
			}
		})
	}
}

func fileHeader(t *testing.T, filename string, data []byte) *multipart.FileHeader {
	t.Helper()

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	part, err := writer.CreateFormFile("file", filename)
	require.NoError(t, err)
	_, err = part.Write(data)
	require.NoError(t, err)
	require.NoError(t, writer.Close())

	reader := multipart.NewReader(&buf, writer.Boundary())
	form, err := reader.ReadForm(32 << 20)
	require.NoError(t, err)
	return form.File["file"][0]
}

func smallPNG(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 4, 4))
	img.Set(0, 0, color.RGBA{R: 255, A: 255})
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestValidateFile(t *testing.T) {
	t.Run("accepts a png", func(t *testing.T) {
		header := fileHeader(t, "photo.png", smallPNG(t))
		assert.NoError(t, ValidateFile(header, ImageConstraints))
	})

	t.Run("rejects non-image content regardless of name", func(t *testing.T) {
		header := fileHeader(t, "photo.png", []byte("<script>alert(1)</script>"))
		err := ValidateFile(header, ImageConstraints)
		assert.ErrorIs(t, err, ErrInvalidFile)
	})

	t.Run("rejects mismatched extension", func(t *testing.T) {
		header := fileHeader(t, "photo.bmp", smallPNG(t))
		err := ValidateFile(header, ImageConstraints)
		assert.ErrorIs(t, err, ErrInvalidFile)
	})

	t.Run("rejects oversized upload", func(t *testing.T) {
		header := fileHeader(t, "photo.png", smallPNG(t))
		header.Size = ImageConstraints.MaxSize + 1
		err := ValidateFile(header, ImageConstraints)
		assert.ErrorIs(t, err, ErrInvalidFile)
	})
}
