package passkit

import (
	"fmt"

	"golang.org/x/text/encoding/ianaindex"
)

// DefaultMessageEncoding is used when a barcode is created without an
// explicit encoding.
const DefaultMessageEncoding = "iso-8859-1"

// Barcode is the machine readable part of a pass.
type Barcode struct {
	Message         string        `json:"message"`
	Format          BarcodeFormat `json:"format"`
	MessageEncoding string        `json:"messageEncoding"`
	AltText         string        `json:"altText,omitempty"`
}

// NewBarcode validates format and encoding. An empty format selects QR and
// an empty encoding selects DefaultMessageEncoding.
func NewBarcode(message string, format BarcodeFormat, encoding, altText string) (*Barcode, error) {
	if format == "" {
		format = BarcodeFormatQR
	}
	if !format.Valid() {
		return nil, invalidEnum("barcode format", format)
	}
	if encoding == "" {
		encoding = DefaultMessageEncoding
	}
	// The wallet decodes the message with this charset, so it must be an
	// IANA registered name.
	if _, err := ianaindex.IANA.Encoding(encoding); err != nil {
		return nil, fmt.Errorf("%w: message encoding %q", ErrInvalidEnumeration, encoding)
	}
	return &Barcode{
		Message:         message,
		Format:          format,
		MessageEncoding: encoding,
		AltText:         altText,
	}, nil
}
