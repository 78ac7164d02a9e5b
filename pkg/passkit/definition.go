package passkit

import (
	"bytes"
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"howett.net/plist"
)

// DefinitionFormat selects the encoding of a pass definition document.
type DefinitionFormat int

const (
	FormatJSON DefinitionFormat = iota
	FormatPlist
)

// FormatForPath picks the definition format from a file extension.
func FormatForPath(path string) DefinitionFormat {
	if strings.EqualFold(filepath.Ext(path), ".plist") {
		return FormatPlist
	}
	return FormatJSON
}

// Definition is the document form of a pass, read from JSON or a property
// list.
type Definition struct {
	Style              Style  `json:"style" plist:"style"`
	TransitType        string `json:"transitType,omitempty" plist:"transitType,omitempty"`
	PassTypeIdentifier string `json:"passTypeIdentifier" plist:"passTypeIdentifier"`
	SerialNumber       string `json:"serialNumber,omitempty" plist:"serialNumber,omitempty"`
	OrganizationName   string `json:"organizationName,omitempty" plist:"organizationName,omitempty"`
	TeamIdentifier     string `json:"teamIdentifier,omitempty" plist:"teamIdentifier,omitempty"`
	Description        string `json:"description,omitempty" plist:"description,omitempty"`

	AuthenticationToken string `json:"authenticationToken,omitempty" plist:"authenticationToken,omitempty"`
	WebServiceURL       string `json:"webServiceURL,omitempty" plist:"webServiceURL,omitempty"`

	Locations    []LocationDefinition `json:"locations,omitempty" plist:"locations,omitempty"`
	RelevantDate string               `json:"relevantDate,omitempty" plist:"relevantDate,omitempty"`

	Barcode         *BarcodeDefinition `json:"barcode,omitempty" plist:"barcode,omitempty"`
	BackgroundColor string             `json:"backgroundColor,omitempty" plist:"backgroundColor,omitempty"`
	ForegroundColor string             `json:"foregroundColor,omitempty" plist:"foregroundColor,omitempty"`
	LabelColor      string             `json:"labelColor,omitempty" plist:"labelColor,omitempty"`
	LogoText        string             `json:"logoText,omitempty" plist:"logoText,omitempty"`

	// Images maps a role ("icon", "logo", ...) to a source path.
	Images map[string]string `json:"images,omitempty" plist:"images,omitempty"`

	HeaderFields    []FieldDefinition `json:"headerFields,omitempty" plist:"headerFields,omitempty"`
	PrimaryFields   []FieldDefinition `json:"primaryFields,omitempty" plist:"primaryFields,omitempty"`
	SecondaryFields []FieldDefinition `json:"secondaryFields,omitempty" plist:"secondaryFields,omitempty"`
	AuxiliaryFields []FieldDefinition `json:"auxiliaryFields,omitempty" plist:"auxiliaryFields,omitempty"`
	BackFields      []FieldDefinition `json:"backFields,omitempty" plist:"backFields,omitempty"`
}

type LocationDefinition struct {
	Latitude     float64 `json:"latitude" plist:"latitude"`
	Longitude    float64 `json:"longitude" plist:"longitude"`
	Altitude     float64 `json:"altitude,omitempty" plist:"altitude,omitempty"`
	RelevantText string  `json:"relevantText,omitempty" plist:"relevantText,omitempty"`
}

type BarcodeDefinition struct {
	Message         string `json:"message" plist:"message"`
	Format          string `json:"format,omitempty" plist:"format,omitempty"`
	MessageEncoding string `json:"messageEncoding,omitempty" plist:"messageEncoding,omitempty"`
	AltText         string `json:"altText,omitempty" plist:"altText,omitempty"`
}

type FieldDefinition struct {
	Key           string      `json:"key" plist:"key"`
	Value         interface{} `json:"value" plist:"value"`
	Label         string      `json:"label,omitempty" plist:"label,omitempty"`
	ChangeMessage string      `json:"changeMessage,omitempty" plist:"changeMessage,omitempty"`
	TextAlignment string      `json:"textAlignment,omitempty" plist:"textAlignment,omitempty"`
	DateStyle     string      `json:"dateStyle,omitempty" plist:"dateStyle,omitempty"`
	TimeStyle     string      `json:"timeStyle,omitempty" plist:"timeStyle,omitempty"`
	IsRelative    bool        `json:"isRelative,omitempty" plist:"isRelative,omitempty"`
	CurrencyCode  string      `json:"currencyCode,omitempty" plist:"currencyCode,omitempty"`
	NumberStyle   string      `json:"numberStyle,omitempty" plist:"numberStyle,omitempty"`
}

// ParseDefinition decodes a definition document.
func ParseDefinition(data []byte, format DefinitionFormat) (*Definition, error) {
	var def Definition
	switch format {
	case FormatPlist:
		// Accepts XML, binary and OpenStep property lists
		if _, err := plist.Unmarshal(data, &def); err != nil {
			return nil, fmt.Errorf("failed to parse definition plist: %w", err)
		}
	default:
		dec := json.NewDecoder(bytes.NewReader(data))
		dec.UseNumber()
		if err := dec.Decode(&def); err != nil {
			return nil, fmt.Errorf("failed to parse definition JSON: %w", err)
		}
	}
	return &def, nil
}

// LoadDefinition decodes a definition and builds the pass. Relative image
// paths are resolved against baseDir.
func LoadDefinition(data []byte, format DefinitionFormat, baseDir string) (*Pass, error) {
	def, err := ParseDefinition(data, format)
	if err != nil {
		return nil, err
	}
	return def.Build(baseDir)
}

// Build creates a Pass from the definition. A missing serial number is
// replaced by a random one.
func (d *Definition) Build(baseDir string) (*Pass, error) {
	serial := d.SerialNumber
	if serial == "" {
		serial = NewSerialNumber()
	}

	var p *Pass
	var err error
	switch d.Style {
	case StyleBoardingPass:
		transit := TransitTypeGeneric
		if d.TransitType != "" {
			if transit, err = ParseTransitType(d.TransitType); err != nil {
				return nil, err
			}
		}
		p, err = NewBoardingPass(d.PassTypeIdentifier, serial, transit)
	case "":
		p, err = NewGenericPass(d.PassTypeIdentifier, serial)
	default:
		var style StylePayload
		if style, err = PlainStyle(d.Style); err != nil {
			return nil, err
		}
		p, err = NewPass(d.PassTypeIdentifier, serial, style)
	}
	if err != nil {
		return nil, err
	}

	p.SetOrganizationName(d.OrganizationName)
	p.SetTeamIdentifier(d.TeamIdentifier)
	p.SetDescription(d.Description)
	p.SetWebService(d.AuthenticationToken, d.WebServiceURL)
	p.SetColors(d.BackgroundColor, d.ForegroundColor, d.LabelColor)
	p.SetLogoText(d.LogoText)

	if d.RelevantDate != "" {
		t, err := time.Parse(time.RFC3339, d.RelevantDate)
		if err != nil {
			return nil, fmt.Errorf("%w: relevantDate: %v", ErrInvalidValue, err)
		}
		p.SetRelevantDate(t)
	}

	for _, loc := range d.Locations {
		if err := p.AddRelevantLocation(loc.Latitude, loc.Longitude, loc.Altitude, loc.RelevantText); err != nil {
			return nil, err
		}
	}

	if d.Barcode != nil {
		b := d.Barcode
		if err := p.SetBarcode(b.Message, BarcodeFormat(b.Format), b.MessageEncoding, b.AltText); err != nil {
			return nil, err
		}
	}

	for role, path := range d.Images {
		if path != "" && !filepath.IsAbs(path) {
			path = filepath.Join(baseDir, path)
		}
		if err := p.SetImage(ImageRole(role), path); err != nil {
			return nil, err
		}
	}

	groups := []struct {
		defs []FieldDefinition
		add  func(string, interface{}, FieldOptions) (*Field, error)
	}{
		{d.HeaderFields, p.AddHeaderField},
		{d.PrimaryFields, p.AddPrimaryField},
		{d.SecondaryFields, p.AddSecondaryField},
		{d.AuxiliaryFields, p.AddAuxiliaryField},
		{d.BackFields, p.AddBackField},
	}
	for _, group := range groups {
		for _, fd := range group.defs {
			if err := fd.addTo(group.add); err != nil {
				return nil, err
			}
		}
	}

	return p, nil
}

func (fd FieldDefinition) addTo(add func(string, interface{}, FieldOptions) (*Field, error)) error {
	f, err := add(fd.Key, fd.Value, FieldOptions{
		Label:         fd.Label,
		ChangeMessage: fd.ChangeMessage,
		TextAlignment: TextAlignment(fd.TextAlignment),
	})
	if err != nil {
		return err
	}
	if fd.DateStyle != "" || fd.TimeStyle != "" {
		if err := f.SetDateStyle(DateStyle(fd.DateStyle), DateStyle(fd.TimeStyle), fd.IsRelative); err != nil {
			return fmt.Errorf("field %q: %w", fd.Key, err)
		}
	}
	if fd.CurrencyCode != "" || fd.NumberStyle != "" {
		if err := f.SetNumberStyle(fd.CurrencyCode, NumberStyle(fd.NumberStyle)); err != nil {
			return fmt.Errorf("field %q: %w", fd.Key, err)
		}
	}
	return nil
}
