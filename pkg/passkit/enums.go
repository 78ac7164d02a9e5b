package passkit

// TextAlignment controls how a field value is aligned when rendered.
type TextAlignment string

const (
	TextAlignmentLeft      TextAlignment = "PKTextAlignmentLeft"
	TextAlignmentCenter    TextAlignment = "PKTextAlignmentCenter"
	TextAlignmentRight     TextAlignment = "PKTextAlignmentRight"
	TextAlignmentJustified TextAlignment = "PKTextAlignmentJustified"
	TextAlignmentNatural   TextAlignment = "PKTextAlignmentNatural"
)

// Valid reports whether a is one of the recognized alignments.
func (a TextAlignment) Valid() bool {
	switch a {
	case TextAlignmentLeft, TextAlignmentCenter, TextAlignmentRight,
		TextAlignmentJustified, TextAlignmentNatural:
		return true
	}
	return false
}

// DateStyle is used for both the dateStyle and timeStyle keys of a field.
type DateStyle string

const (
	DateStyleNone   DateStyle = "PKDateStyleNone"
	DateStyleShort  DateStyle = "PKDateStyleShort"
	DateStyleMedium DateStyle = "PKDateStyleMedium"
	DateStyleLong   DateStyle = "PKDateStyleLong"
	DateStyleFull   DateStyle = "PKDateStyleFull"
)

// Valid reports whether s is one of the recognized date styles.
func (s DateStyle) Valid() bool {
	switch s {
	case DateStyleNone, DateStyleShort, DateStyleMedium, DateStyleLong, DateStyleFull:
		return true
	}
	return false
}

// NumberStyle controls number formatting of a field value.
type NumberStyle string

const (
	NumberStyleDecimal    NumberStyle = "PKNumberStyleDecimal"
	NumberStylePercent    NumberStyle = "PKNumberStylePercent"
	NumberStyleScientific NumberStyle = "PKNumberStyleScientific"
	NumberStyleSpellOut   NumberStyle = "PKNumberStyleSpellOut"
)

// Valid reports whether s is one of the recognized number styles.
func (s NumberStyle) Valid() bool {
	switch s {
	case NumberStyleDecimal, NumberStylePercent, NumberStyleScientific, NumberStyleSpellOut:
		return true
	}
	return false
}

// BarcodeFormat is the symbology of a pass barcode.
type BarcodeFormat string

const (
	BarcodeFormatQR     BarcodeFormat = "PKBarcodeFormatQR"
	BarcodeFormatPDF417 BarcodeFormat = "PKBarcodeFormatPDF417"
	BarcodeFormatAztec  BarcodeFormat = "PKBarcodeFormatAztec"
	BarcodeFormatText   BarcodeFormat = "PKBarcodeFormatText"
)

// Valid reports whether f is one of the supported symbologies.
func (f BarcodeFormat) Valid() bool {
	switch f {
	case BarcodeFormatQR, BarcodeFormatPDF417, BarcodeFormatAztec, BarcodeFormatText:
		return true
	}
	return false
}

// TransitType is the boarding pass mode of transport.
type TransitType string

const (
	TransitTypeAir     TransitType = "PKTransitTypeAir"
	TransitTypeTrain   TransitType = "PKTransitTypeTrain"
	TransitTypeBus     TransitType = "PKTransitTypeBus"
	TransitTypeBoat    TransitType = "PKTransitTypeBoat"
	TransitTypeGeneric TransitType = "PKTransitTypeGeneric"
)

// Valid reports whether t is one of the full PKTransitType constants.
func (t TransitType) Valid() bool {
	switch t {
	case TransitTypeAir, TransitTypeTrain, TransitTypeBus, TransitTypeBoat, TransitTypeGeneric:
		return true
	}
	return false
}

// ParseTransitType accepts either the full constant ("PKTransitTypeAir") or
// its short form ("Air").
func ParseTransitType(s string) (TransitType, error) {
	t := TransitType(s)
	if !t.Valid() {
		t = TransitType("PKTransitType" + s)
	}
	if !t.Valid() {
		return "", invalidEnum("transitType", s)
	}
	return t, nil
}

// ImageRole names an image slot of a pass bundle.
type ImageRole string

const (
	ImageIcon       ImageRole = "icon"
	ImageLogo       ImageRole = "logo"
	ImageThumbnail  ImageRole = "thumbnail"
	ImageStrip      ImageRole = "strip"
	ImageFooter     ImageRole = "footer"
	ImageBackground ImageRole = "background"
)

// imageRoles is the order in which images are packed.
var imageRoles = []ImageRole{ImageIcon, ImageLogo, ImageThumbnail, ImageStrip, ImageFooter, ImageBackground}

// Valid reports whether r is a known image role.
func (r ImageRole) Valid() bool {
	for _, known := range imageRoles {
		if r == known {
			return true
		}
	}
	return false
}
