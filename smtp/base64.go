package smtp

import "encoding/base64"

// The attachment pipeline encodes and decodes with the standard RFC 4648
// alphabet; both directions are lossless for any byte sequence.

func EncodeBase64(data []byte) string {
	return base64.StdEncoding.EncodeToString(data)
}

func DecodeBase64(encoded string) ([]byte, error) {
	return base64.StdEncoding.DecodeString(encoded)
}
