package utils

import (
	"encoding/base64"

	"github.com/skip2/go-qrcode"
)

// QRCodePNG encodes content as a PNG QR code
func QRCodePNG(content string, size int) ([]byte, error) {
	if size <= 0 {
		size = 256
	}
	return qrcode.Encode(content, qrcode.Medium, size)
}

// QRCodeBase64 encodes content as a base64 PNG QR code, without data URI prefix
func QRCodeBase64(content string) (string, error) {
	png, err := QRCodePNG(content, 256)
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(png), nil
}
