package passkit

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// FormatVersion is the only pass format version the wallet accepts.
const FormatVersion = 1

// Pass is the aggregate describing one issued pass.
//
// A Pass must not be mutated while a Pack or Sign call is reading it.
type Pass struct {
	passTypeIdentifier string
	serialNumber       string
	organizationName   string
	teamIdentifier     string
	description        string

	authenticationToken string
	webServiceURL       string

	locations    []Location
	relevantDate time.Time

	barcode         *Barcode
	backgroundColor string
	foregroundColor string
	labelColor      string
	logoText        string

	images map[ImageRole]string

	style StylePayload

	headerFields    []*Field
	primaryFields   []*Field
	secondaryFields []*Field
	auxiliaryFields []*Field
	backFields      []*Field
}

// NewPass creates a pass with the given style payload. Use the style
// specific constructors (NewBoardingPass, NewStoreCard, ...) in most cases.
func NewPass(passTypeIdentifier, serialNumber string, style StylePayload) (*Pass, error) {
	if passTypeIdentifier == "" {
		return nil, fmt.Errorf("%w: passTypeIdentifier is required", ErrInvalidValue)
	}
	if serialNumber == "" {
		return nil, fmt.Errorf("%w: serialNumber is required", ErrInvalidValue)
	}
	if style == nil || !style.Style().Valid() {
		return nil, fmt.Errorf("%w: unknown pass style", ErrInvalidEnumeration)
	}
	return &Pass{
		passTypeIdentifier: passTypeIdentifier,
		serialNumber:       serialNumber,
		images:             make(map[ImageRole]string),
		style:              style,
	}, nil
}

// NewSerialNumber returns a random serial number.
func NewSerialNumber() string {
	return uuid.NewString()
}

// PassTypeIdentifier and the following getters expose the pass attributes.
func (p *Pass) PassTypeIdentifier() string { return p.passTypeIdentifier }
func (p *Pass) SerialNumber() string       { return p.serialNumber }
func (p *Pass) TeamIdentifier() string     { return p.teamIdentifier }
func (p *Pass) Style() Style               { return p.style.Style() }
func (p *Pass) StylePayload() StylePayload { return p.style }
func (p *Pass) Barcode() *Barcode          { return p.barcode }

// Locations returns a copy of the relevant locations.
func (p *Pass) Locations() []Location {
	return append([]Location(nil), p.locations...)
}

// SetOrganizationName and the following setters replace optional top-level
// attributes. An empty value is omitted from pass.json.
func (p *Pass) SetOrganizationName(name string) { p.organizationName = name }
func (p *Pass) SetTeamIdentifier(id string)     { p.teamIdentifier = id }
func (p *Pass) SetDescription(desc string)      { p.description = desc }
func (p *Pass) SetLogoText(text string)         { p.logoText = text }

// SetAuthenticationToken sets the web service token. It is serialized only
// together with a web service URL.
func (p *Pass) SetAuthenticationToken(token string) { p.authenticationToken = token }

// SetWebServiceURL sets the web service URL. It is serialized only together
// with an authentication token.
func (p *Pass) SetWebServiceURL(url string) { p.webServiceURL = url }

// SetWebService sets both halves of the web service binding.
func (p *Pass) SetWebService(token, url string) {
	p.authenticationToken = token
	p.webServiceURL = url
}

// SetRelevantDate sets the date the pass becomes relevant; the zero time
// clears it.
func (p *Pass) SetRelevantDate(t time.Time) { p.relevantDate = t }

// SetColors sets the background, foreground and label colors, e.g.
// "rgb(22, 55, 110)". Empty values are omitted.
func (p *Pass) SetColors(background, foreground, label string) {
	p.backgroundColor = background
	p.foregroundColor = foreground
	p.labelColor = label
}

// SetImage declares the source file for an image role. An empty path clears
// the role.
func (p *Pass) SetImage(role ImageRole, path string) error {
	if !role.Valid() {
		return invalidEnum("image role", role)
	}
	if path == "" {
		delete(p.images, role)
		return nil
	}
	p.images[role] = path
	return nil
}

// Image returns the declared source path for role.
func (p *Pass) Image(role ImageRole) string {
	return p.images[role]
}

// AddRelevantLocation appends a location. Locations are not deduplicated.
func (p *Pass) AddRelevantLocation(latitude, longitude, altitude float64, relevantText string) error {
	loc, err := NewLocation(latitude, longitude, altitude, relevantText)
	if err != nil {
		return err
	}
	p.locations = append(p.locations, loc)
	return nil
}

// SetBarcode replaces any existing barcode.
func (p *Pass) SetBarcode(message string, format BarcodeFormat, encoding, altText string) error {
	b, err := NewBarcode(message, format, encoding, altText)
	if err != nil {
		return err
	}
	p.barcode = b
	return nil
}

// AddHeaderField appends a field to the header fields. Keys must be unique
// within the collection.
func (p *Pass) AddHeaderField(key string, value interface{}, opts FieldOptions) (*Field, error) {
	return addField(&p.headerFields, key, value, opts)
}

// AddPrimaryField appends a field to the primary fields. Keys must be unique
// within the collection.
func (p *Pass) AddPrimaryField(key string, value interface{}, opts FieldOptions) (*Field, error) {
	return addField(&p.primaryFields, key, value, opts)
}

// AddSecondaryField appends a field to the secondary fields. Keys must be unique
// within the collection.
func (p *Pass) AddSecondaryField(key string, value interface{}, opts FieldOptions) (*Field, error) {
	return addField(&p.secondaryFields, key, value, opts)
}

// AddAuxiliaryField appends a field to the auxiliary fields. Keys must be unique
// within the collection.
func (p *Pass) AddAuxiliaryField(key string, value interface{}, opts FieldOptions) (*Field, error) {
	return addField(&p.auxiliaryFields, key, value, opts)
}

// AddBackField appends a field to the back fields. Keys must be unique
// within the collection.
func (p *Pass) AddBackField(key string, value interface{}, opts FieldOptions) (*Field, error) {
	return addField(&p.backFields, key, value, opts)
}

// HeaderFields and the following getters return the field collections in
// insertion order.
func (p *Pass) HeaderFields() []*Field    { return p.headerFields }
func (p *Pass) PrimaryFields() []*Field   { return p.primaryFields }
func (p *Pass) SecondaryFields() []*Field { return p.secondaryFields }
func (p *Pass) AuxiliaryFields() []*Field { return p.auxiliaryFields }
func (p *Pass) BackFields() []*Field      { return p.backFields }

// addField appends to dst. Keys are unique within one collection only.
func addField(dst *[]*Field, key string, value interface{}, opts FieldOptions) (*Field, error) {
	for _, existing := range *dst {
		if existing.key == key {
			return nil, fmt.Errorf("%w: duplicate field key %q", ErrInvalidValue, key)
		}
	}
	f, err := NewField(key, value, opts)
	if err != nil {
		return nil, err
	}
	*dst = append(*dst, f)
	return f, nil
}

// Warnings reports attributes that are set but will not be serialized.
func (p *Pass) Warnings() []string {
	var warnings []string
	if p.authenticationToken != "" && p.webServiceURL == "" {
		warnings = append(warnings, "authenticationToken is set without webServiceURL and will be omitted")
	}
	if p.webServiceURL != "" && p.authenticationToken == "" {
		warnings = append(warnings, "webServiceURL is set without authenticationToken and will be omitted")
	}
	for _, group := range []struct {
		name   string
		fields []*Field
	}{
		{"headerFields", p.headerFields},
		{"primaryFields", p.primaryFields},
		{"secondaryFields", p.secondaryFields},
		{"auxiliaryFields", p.auxiliaryFields},
		{"backFields", p.backFields},
	} {
		for _, f := range group.fields {
			if f.dateStyle != nil && !f.dateStyle.complete() {
				warnings = append(warnings, fmt.Sprintf("%s %q has an incomplete date style and it will be omitted", group.name, f.key))
			}
			if f.numberStyle != nil && !f.numberStyle.complete() {
				warnings = append(warnings, fmt.Sprintf("%s %q has an incomplete number style and it will be omitted", group.name, f.key))
			}
		}
	}
	return warnings
}

// Serialize returns the canonical pass.json document. Keys appear in a fixed
// order and unset optional keys are omitted.
func (p *Pass) Serialize() ([]byte, error) {
	doc := object{
		{"passTypeIdentifier", p.passTypeIdentifier},
		{"formatVersion", FormatVersion},
	}
	doc.addString("organizationName", p.organizationName)
	doc = append(doc, member{"serialNumber", p.serialNumber})
	doc.addString("teamIdentifier", p.teamIdentifier)
	doc.addString("description", p.description)

	if p.authenticationToken != "" && p.webServiceURL != "" {
		doc = append(doc,
			member{"authenticationToken", p.authenticationToken},
			member{"webServiceURL", p.webServiceURL},
		)
	}

	if len(p.locations) > 0 {
		doc = append(doc, member{"locations", p.locations})
	}
	if !p.relevantDate.IsZero() {
		doc = append(doc, member{"relevantDate", p.relevantDate.Format(time.RFC3339)})
	}

	if p.barcode != nil {
		doc = append(doc, member{"barcode", p.barcode})
	}
	doc.addString("backgroundColor", p.backgroundColor)
	doc.addString("foregroundColor", p.foregroundColor)
	doc.addString("labelColor", p.labelColor)
	doc.addString("logoText", p.logoText)

	var style object
	style.addFields("headerFields", p.headerFields)
	style.addFields("primaryFields", p.primaryFields)
	style.addFields("secondaryFields", p.secondaryFields)
	style.addFields("auxiliaryFields", p.auxiliaryFields)
	style.addFields("backFields", p.backFields)
	for _, attr := range p.style.Attributes() {
		if attr.Key == "" || style.has(attr.Key) {
			return nil, fmt.Errorf("%w: style attribute key %q is empty or already present", ErrInvalidValue, attr.Key)
		}
		style = append(style, member{attr.Key, attr.Value})
	}
	doc = append(doc, member{string(p.style.Style()), style})

	data, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("failed to serialize pass: %w", err)
	}
	return data, nil
}

// MarshalJSON implements json.Marshaler using Serialize.
func (p *Pass) MarshalJSON() ([]byte, error) {
	return p.Serialize()
}

type member struct {
	key   string
	value interface{}
}

// object is a JSON object that keeps its members in insertion order.
type object []member

func (o *object) addString(key, value string) {
	if value != "" {
		*o = append(*o, member{key, value})
	}
}

// has reports whether key is already a member. Keys reserved for the field
// arrays count even when the array is empty.
func (o object) has(key string) bool {
	for _, name := range fieldGroupKeys {
		if key == name {
			return true
		}
	}
	for _, m := range o {
		if m.key == key {
			return true
		}
	}
	return false
}

var fieldGroupKeys = []string{"headerFields", "primaryFields", "secondaryFields", "auxiliaryFields", "backFields"}

func (o *object) addFields(key string, fields []*Field) {
	if len(fields) > 0 {
		*o = append(*o, member{key, fields})
	}
}

func (o object) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, m := range o {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(m.key)
		if err != nil {
			return nil, err
		}
		value, err := json.Marshal(m.value)
		if err != nil {
			return nil, fmt.Errorf("key %q: %w", m.key, err)
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(value)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}
