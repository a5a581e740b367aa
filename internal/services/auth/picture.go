package auth

import (
	"encoding/base64"
	"fmt"
	"strings"

	"github.com/bobmcallan/bagboard/internal/models"
)

// MaxProfilePictureBytes caps the decoded size of a profile picture.
const MaxProfilePictureBytes = 2 << 20

var pictureTypes = map[string]bool{
	"image/png":  true,
	"image/jpeg": true,
	"image/gif":  true,
	"image/webp": true,
}

// ValidateImageDataURL accepts base64 data URLs of png, jpeg, gif or webp
// images up to MaxProfilePictureBytes once decoded.
func ValidateImageDataURL(dataURL string) error {
	rest, ok := strings.CutPrefix(dataURL, "data:")
	if !ok {
		return models.Invalid("image", "must be a data URL")
	}
	header, payload, ok := strings.Cut(rest, ",")
	if !ok {
		return models.Invalid("image", "malformed data URL")
	}
	mediaType, encoding, _ := strings.Cut(header, ";")
	if !pictureTypes[strings.ToLower(mediaType)] {
		return models.Invalid("image", fmt.Sprintf("unsupported type %q", mediaType))
	}
	if encoding != "base64" {
		return models.Invalid("image", "must be base64 encoded")
	}

	// Reject before decoding anything obviously oversized
	if base64.StdEncoding.DecodedLen(len(payload)) > MaxProfilePictureBytes+3 {
		return models.Invalid("image", "larger than 2 MB")
	}
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return models.Invalid("image", "invalid base64 payload")
	}
	if len(data) == 0 {
		return models.Invalid("image", "empty image")
	}
	if len(data) > MaxProfilePictureBytes {
		return models.Invalid("image", "larger than 2 MB")
	}
	return nil
}
