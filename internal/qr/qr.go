package qr

import (
	"encoding/base64"
	"fmt"

	qrcode "github.com/skip2/go-qrcode"
)

const imageSize = 256

// DataURI renders data as a QR code PNG and returns it as a data URI
// suitable for an <img> src attribute.
func DataURI(data string) (string, error) {
	png, err := qrcode.Encode(data, qrcode.Medium, imageSize)
	if err != nil {
		return "", fmt.Errorf("encode qr: %w", err)
	}
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(png), nil
}
