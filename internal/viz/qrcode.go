package viz

import (
	"fmt"

	qrcode "github.com/skip2/go-qrcode"
)

// RenderQRCode encodes content as a 300px PNG QR code.
func RenderQRCode(content string) ([]byte, error) {
	png, err := qrcode.Encode(content, qrcode.Medium, 300)
	if err != nil {
		return nil, fmt.Errorf("render qr code: %w", err)
	}
	return png, nil
}
