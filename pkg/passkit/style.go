package passkit

// Style is the discriminant naming the visual style of a pass. It is also
// the key of the style object in pass.json.
type Style string

const (
	StyleGeneric      Style = "generic"
	StyleBoardingPass Style = "boardingPass"
	StyleStoreCard    Style = "storeCard"
	StyleEventTicket  Style = "eventTicket"
	StyleCoupon       Style = "coupon"
)

// Valid reports whether s is one of the supported pass styles.
func (s Style) Valid() bool {
	switch s {
	case StyleGeneric, StyleBoardingPass, StyleStoreCard, StyleEventTicket, StyleCoupon:
		return true
	}
	return false
}

// Attribute is a style specific key merged into the style object after the
// field arrays.
type Attribute struct {
	Key   string
	Value interface{}
}

// StylePayload carries the discriminant of a pass and any style specific
// attributes. New styles implement it without touching the base serializer.
// Attribute keys must be non-empty, distinct and must not name a field array.
type StylePayload interface {
	Style() Style
	Attributes() []Attribute
}

type plainStyle Style

func (s plainStyle) Style() Style            { return Style(s) }
func (s plainStyle) Attributes() []Attribute { return nil }

// PlainStyle returns a payload that only fixes the discriminant.
func PlainStyle(s Style) (StylePayload, error) {
	if !s.Valid() {
		return nil, invalidEnum("style", s)
	}
	if s == StyleBoardingPass {
		// boarding passes must carry a transit type
		return nil, invalidEnum("style without transitType", s)
	}
	return plainStyle(s), nil
}

// BoardingPass is the payload of a boarding pass.
type BoardingPass struct {
	transitType TransitType
}

// NewBoardingPassStyle validates the transit type. The short form ("Air")
// is accepted and stored as the full constant.
func NewBoardingPassStyle(t TransitType) (*BoardingPass, error) {
	full, err := ParseTransitType(string(t))
	if err != nil {
		return nil, err
	}
	return &BoardingPass{transitType: full}, nil
}

func (b *BoardingPass) Style() Style             { return StyleBoardingPass }
func (b *BoardingPass) TransitType() TransitType { return b.transitType }

func (b *BoardingPass) Attributes() []Attribute {
	return []Attribute{{Key: "transitType", Value: b.transitType}}
}

// NewGenericPass creates a pass of the generic style.
func NewGenericPass(passTypeIdentifier, serialNumber string) (*Pass, error) {
	return NewPass(passTypeIdentifier, serialNumber, plainStyle(StyleGeneric))
}

// NewBoardingPass creates a boarding pass for the given transit type.
func NewBoardingPass(passTypeIdentifier, serialNumber string, transitType TransitType) (*Pass, error) {
	style, err := NewBoardingPassStyle(transitType)
	if err != nil {
		return nil, err
	}
	return NewPass(passTypeIdentifier, serialNumber, style)
}

// NewStoreCard creates a store card.
func NewStoreCard(passTypeIdentifier, serialNumber string) (*Pass, error) {
	return NewPass(passTypeIdentifier, serialNumber, plainStyle(StyleStoreCard))
}

// NewEventTicket creates an event ticket.
func NewEventTicket(passTypeIdentifier, serialNumber string) (*Pass, error) {
	return NewPass(passTypeIdentifier, serialNumber, plainStyle(StyleEventTicket))
}

// NewCoupon creates a coupon.
func NewCoupon(passTypeIdentifier, serialNumber string) (*Pass, error) {
	return NewPass(passTypeIdentifier, serialNumber, plainStyle(StyleCoupon))
}
