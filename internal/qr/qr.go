// Package qr addresses an external QR image endpoint by URL. Decoding from a
// camera feed happens client-side; clients POST the decoded text to the scan
// endpoint, so no imaging code lives in this service.
package qr

import (
	"fmt"
	"net/url"
)

// Encoder builds image URLs for arbitrary text payloads.
type Encoder struct {
	BaseURL string
	SizePx  int
}

// ImageURL returns the encode-service URL for payload at the configured
// pixel size.
func (e Encoder) ImageURL(payload string) string {
	q := url.Values{}
	q.Set("data", payload)
	q.Set("size", fmt.Sprintf("%dx%d", e.SizePx, e.SizePx))
	return e.BaseURL + "?" + q.Encode()
}
