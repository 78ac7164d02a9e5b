package passkit

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"
)

func serializeToMap(t *testing.T, p *Pass) map[string]interface{} {
	t.Helper()
	data, err := p.Serialize()
	if err != nil {
		t.Fatalf("Serialize failed: %v", err)
	}
	var doc map[string]interface{}
	if err := json.Unmarshal(data, &doc); err != nil {
		t.Fatalf("Serialize produced invalid JSON: %v", err)
	}
	return doc
}

func fieldKeys(t *testing.T, style map[string]interface{}, group string) []string {
	t.Helper()
	arr, ok := style[group].([]interface{})
	if !ok {
		t.Fatalf("%s missing or not an array: %v", group, style[group])
	}
	var keys []string
	for _, item := range arr {
		keys = append(keys, item.(map[string]interface{})["key"].(string))
	}
	return keys
}

// TestBoardingPassRoundTrip checks the serialized boarding pass document
func TestBoardingPassRoundTrip(t *testing.T) {
	p := newDemoBoardingPass(t)
	doc := serializeToMap(t, p)

	style, ok := doc["boardingPass"].(map[string]interface{})
	if !ok {
		t.Fatalf("boardingPass object missing: %v", doc)
	}
	if style["transitType"] != string(TransitTypeAir) {
		t.Errorf("transitType = %v, want %s", style["transitType"], TransitTypeAir)
	}

	expected := map[string][]string{
		"primaryFields":   {"origin", "destination"},
		"secondaryFields": {"board-time"},
		"auxiliaryFields": {"seat"},
		"backFields":      {"freq-flier-num"},
	}
	for group, want := range expected {
		got := fieldKeys(t, style, group)
		if strings.Join(got, ",") != strings.Join(want, ",") {
			t.Errorf("%s = %v, want %v", group, got, want)
		}
	}
	if _, ok := style["headerFields"]; ok {
		t.Error("headerFields should be omitted when empty")
	}

	primary := style["primaryFields"].([]interface{})
	if v := primary[0].(map[string]interface{})["value"]; v != "San Francisco" {
		t.Errorf("origin value = %v", v)
	}
	if v := primary[1].(map[string]interface{})["value"]; v != "London" {
		t.Errorf("destination value = %v", v)
	}

	for _, key := range []string{"locations", "barcode", "relevantDate", "authenticationToken", "webServiceURL"} {
		if _, ok := doc[key]; ok {
			t.Errorf("%s should be absent", key)
		}
	}

	if doc["formatVersion"] != float64(1) {
		t.Errorf("formatVersion = %v, want 1", doc["formatVersion"])
	}
	if doc["passTypeIdentifier"] != testPassTypeID || doc["serialNumber"] != "123456" {
		t.Errorf("identity keys wrong: %v %v", doc["passTypeIdentifier"], doc["serialNumber"])
	}
}

func TestSerializeKeyOrder(t *testing.T) {
	p := newDemoBoardingPass(t)
	p.SetWebService("abcdefghijklmnop", "https://example.com/passes/")
	if err := p.SetBarcode("123456789", BarcodeFormatPDF417, "", ""); err != nil {
		t.Fatal(err)
	}
	p.SetColors("rgb(0, 0, 0)", "rgb(255, 255, 255)", "")

	data, err := p.Serialize()
	if err != nil {
		t.Fatal(err)
	}

	order := []string{
		`"passTypeIdentifier"`, `"formatVersion"`, `"organizationName"`, `"serialNumber"`,
		`"teamIdentifier"`, `"description"`, `"authenticationToken"`, `"webServiceURL"`,
		`"barcode"`, `"backgroundColor"`, `"foregroundColor"`, `"boardingPass"`,
	}
	last := -1
	for _, key := range order {
		idx := bytes.Index(data, []byte(key))
		if idx < 0 {
			t.Fatalf("%s missing from %s", key, data)
		}
		if idx < last {
			t.Errorf("%s out of order", key)
		}
		last = idx
	}
	if bytes.Contains(data, []byte("labelColor")) {
		t.Error("empty labelColor should be omitted")
	}
	if bytes.Contains(data, []byte("null")) {
		t.Errorf("document contains null: %s", data)
	}
}

func TestSerializeIdempotent(t *testing.T) {
	p := newDemoBoardingPass(t)
	if err := p.AddRelevantLocation(37.6189, -122.3750, 0, "SFO"); err != nil {
		t.Fatal(err)
	}
	first, err := p.Serialize()
	if err != nil {
		t.Fatal(err)
	}
	second, err := p.Serialize()
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(first, second) {
		t.Errorf("Serialize is not idempotent:\n%s\n%s", first, second)
	}

	viaMarshal, err := json.Marshal(p)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(first, viaMarshal) {
		t.Error("json.Marshal differs from Serialize")
	}
}

func TestFieldOrderPreserved(t *testing.T) {
	p, err := NewGenericPass(testPassTypeID, "1")
	if err != nil {
		t.Fatal(err)
	}
	for _, key := range []string{"c", "a", "b"} {
		mustField(t)(p.AddPrimaryField(key, key, FieldOptions{}))
	}
	doc := serializeToMap(t, p)
	got := fieldKeys(t, doc["generic"].(map[string]interface{}), "primaryFields")
	if strings.Join(got, ",") != "c,a,b" {
		t.Errorf("primaryFields order = %v, want [c a b]", got)
	}
}

func TestDuplicateFieldKey(t *testing.T) {
	p, _ := NewGenericPass(testPassTypeID, "1")
	mustField(t)(p.AddPrimaryField("k", "v", FieldOptions{}))
	if _, err := p.AddPrimaryField("k", "v2", FieldOptions{}); !errors.Is(err, ErrInvalidValue) {
		t.Errorf("duplicate key in same group: err = %v", err)
	}
	// Keys are only unique within their own collection
	if _, err := p.AddBackField("k", "v", FieldOptions{}); err != nil {
		t.Errorf("same key in another group: %v", err)
	}
}

func TestNewPassRequiresIdentifiers(t *testing.T) {
	if _, err := NewGenericPass("", "1"); !errors.Is(err, ErrInvalidValue) {
		t.Errorf("empty passTypeIdentifier: err = %v", err)
	}
	if _, err := NewStoreCard(testPassTypeID, ""); !errors.Is(err, ErrInvalidValue) {
		t.Errorf("empty serialNumber: err = %v", err)
	}
	if _, err := NewPass(testPassTypeID, "1", nil); !errors.Is(err, ErrInvalidEnumeration) {
		t.Errorf("nil style: err = %v", err)
	}
}

func TestStyles(t *testing.T) {
	tests := []struct {
		name  string
		ctor  func(string, string) (*Pass, error)
		style Style
	}{
		{"generic", NewGenericPass, StyleGeneric},
		{"storeCard", NewStoreCard, StyleStoreCard},
		{"eventTicket", NewEventTicket, StyleEventTicket},
		{"coupon", NewCoupon, StyleCoupon},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := tt.ctor(testPassTypeID, "1")
			if err != nil {
				t.Fatal(err)
			}
			if p.Style() != tt.style {
				t.Errorf("Style() = %s, want %s", p.Style(), tt.style)
			}
			doc := serializeToMap(t, p)
			style, ok := doc[string(tt.style)].(map[string]interface{})
			if !ok {
				t.Fatalf("style object %s missing", tt.style)
			}
			if len(style) != 0 {
				t.Errorf("empty pass style object = %v", style)
			}
			if _, ok := style["transitType"]; ok {
				t.Error("transitType only belongs to boarding passes")
			}
		})
	}
}

func TestBoardingPassTransitType(t *testing.T) {
	for _, tt := range []TransitType{TransitTypeAir, TransitTypeTrain, TransitTypeBus, TransitTypeBoat, TransitTypeGeneric} {
		p, err := NewBoardingPass(testPassTypeID, "1", tt)
		if err != nil {
			t.Fatalf("%s: %v", tt, err)
		}
		style := serializeToMap(t, p)["boardingPass"].(map[string]interface{})
		if style["transitType"] != string(tt) {
			t.Errorf("transitType = %v, want %s", style["transitType"], tt)
		}
	}

	// the short form is accepted and stored as the full constant
	p, err := NewBoardingPass(testPassTypeID, "1", "Air")
	if err != nil {
		t.Fatalf("short transit type: %v", err)
	}
	if got := serializeToMap(t, p)["boardingPass"].(map[string]interface{})["transitType"]; got != string(TransitTypeAir) {
		t.Errorf("transitType = %v, want %s", got, TransitTypeAir)
	}

	p, err = NewBoardingPass(testPassTypeID, "1", "PKTransitTypeRocket")
	if !errors.Is(err, ErrInvalidEnumeration) || p != nil {
		t.Errorf("invalid transit type: pass = %v, err = %v", p, err)
	}
	if _, err := PlainStyle(StyleBoardingPass); !errors.Is(err, ErrInvalidEnumeration) {
		t.Errorf("PlainStyle(boardingPass) err = %v", err)
	}
}

func TestParseTransitType(t *testing.T) {
	got, err := ParseTransitType("Air")
	if err != nil || got != TransitTypeAir {
		t.Errorf("ParseTransitType(Air) = %s, %v", got, err)
	}
	got, err = ParseTransitType("PKTransitTypeBoat")
	if err != nil || got != TransitTypeBoat {
		t.Errorf("ParseTransitType(PKTransitTypeBoat) = %s, %v", got, err)
	}
	if _, err := ParseTransitType("Zeppelin"); !errors.Is(err, ErrInvalidEnumeration) {
		t.Errorf("ParseTransitType(Zeppelin) err = %v", err)
	}
}

func TestWebServiceBothOrNeither(t *testing.T) {
	p, _ := NewGenericPass(testPassTypeID, "1")
	p.SetAuthenticationToken("abcdefghijklmnop")

	doc := serializeToMap(t, p)
	if _, ok := doc["authenticationToken"]; ok {
		t.Error("token without URL should be omitted")
	}
	if w := p.Warnings(); len(w) != 1 || !strings.Contains(w[0], "webServiceURL") {
		t.Errorf("Warnings() = %v", w)
	}

	p.SetWebServiceURL("https://example.com/")
	doc = serializeToMap(t, p)
	if doc["authenticationToken"] != "abcdefghijklmnop" || doc["webServiceURL"] != "https://example.com/" {
		t.Errorf("web service keys = %v, %v", doc["authenticationToken"], doc["webServiceURL"])
	}
	if w := p.Warnings(); len(w) != 0 {
		t.Errorf("Warnings() = %v, want none", w)
	}
}

func TestBarcode(t *testing.T) {
	p, _ := NewGenericPass(testPassTypeID, "1")
	if err := p.SetBarcode("msg", BarcodeFormatQR, "", "alt"); err != nil {
		t.Fatal(err)
	}
	// Replaces the previous barcode
	if err := p.SetBarcode("msg2", BarcodeFormatAztec, "utf-8", ""); err != nil {
		t.Fatal(err)
	}
	barcode := serializeToMap(t, p)["barcode"].(map[string]interface{})
	if barcode["message"] != "msg2" || barcode["format"] != string(BarcodeFormatAztec) || barcode["messageEncoding"] != "utf-8" {
		t.Errorf("barcode = %v", barcode)
	}
	if _, ok := barcode["altText"]; ok {
		t.Error("empty altText should be omitted")
	}

	b, err := NewBarcode("m", "", "", "")
	if err != nil {
		t.Fatal(err)
	}
	if b.Format != BarcodeFormatQR || b.MessageEncoding != DefaultMessageEncoding {
		t.Errorf("defaults = %s, %s", b.Format, b.MessageEncoding)
	}

	if err := p.SetBarcode("m", "PKBarcodeFormatCode128X", "", ""); !errors.Is(err, ErrInvalidEnumeration) {
		t.Errorf("invalid format: err = %v", err)
	}
	if err := p.SetBarcode("m", BarcodeFormatQR, "not-a-charset", ""); !errors.Is(err, ErrInvalidEnumeration) {
		t.Errorf("invalid encoding: err = %v", err)
	}
	if p.Barcode().Message != "msg2" {
		t.Error("failed SetBarcode must keep the previous barcode")
	}
}

func TestLocations(t *testing.T) {
	p, _ := NewGenericPass(testPassTypeID, "1")
	if err := p.AddRelevantLocation(51.47, -0.45, 0, ""); err != nil {
		t.Fatal(err)
	}
	if err := p.AddRelevantLocation(51.47, -0.45, 25, "LHR"); err != nil {
		t.Fatal(err)
	}
	if err := p.AddRelevantLocation(91, 0, 0, ""); !errors.Is(err, ErrInvalidValue) {
		t.Errorf("latitude 91: err = %v", err)
	}

	locs := serializeToMap(t, p)["locations"].([]interface{})
	if len(locs) != 2 {
		t.Fatalf("got %d locations, want 2 (no dedup)", len(locs))
	}
	first := locs[0].(map[string]interface{})
	if _, ok := first["altitude"]; ok {
		t.Error("zero altitude should be omitted")
	}
	if _, ok := first["relevantText"]; ok {
		t.Error("empty relevantText should be omitted")
	}
	second := locs[1].(map[string]interface{})
	if second["altitude"] != float64(25) || second["relevantText"] != "LHR" {
		t.Errorf("second location = %v", second)
	}
}

func TestRelevantDate(t *testing.T) {
	p, _ := NewGenericPass(testPassTypeID, "1")
	p.SetRelevantDate(time.Date(2012, 4, 1, 7, 0, 0, 0, time.FixedZone("PST", -8*3600)))
	doc := serializeToMap(t, p)
	if doc["relevantDate"] != "2012-04-01T07:00:00-08:00" {
		t.Errorf("relevantDate = %v", doc["relevantDate"])
	}
}

func TestSetImage(t *testing.T) {
	p, _ := NewGenericPass(testPassTypeID, "1")
	if err := p.SetImage("hologram", "x.png"); !errors.Is(err, ErrInvalidEnumeration) {
		t.Errorf("unknown role: err = %v", err)
	}
	if err := p.SetImage(ImageIcon, "icon.png"); err != nil {
		t.Fatal(err)
	}
	if p.Image(ImageIcon) != "icon.png" {
		t.Errorf("Image(icon) = %q", p.Image(ImageIcon))
	}
	if err := p.SetImage(ImageIcon, ""); err != nil || p.Image(ImageIcon) != "" {
		t.Errorf("clearing icon failed: %v", err)
	}
}

type attributeStyle []Attribute

func (a attributeStyle) Style() Style            { return StyleCoupon }
func (a attributeStyle) Attributes() []Attribute { return a }

func TestStyleAttributeKeyCollision(t *testing.T) {
	tests := []struct {
		name  string
		attrs attributeStyle
	}{
		{"field array with fields", attributeStyle{{Key: "primaryFields", Value: "x"}}},
		{"field array without fields", attributeStyle{{Key: "backFields", Value: "x"}}},
		{"repeated attribute", attributeStyle{{Key: "tier", Value: 1}, {Key: "tier", Value: 2}}},
		{"empty key", attributeStyle{{Key: "", Value: 1}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := NewPass(testPassTypeID, "1", tt.attrs)
			if err != nil {
				t.Fatal(err)
			}
			mustField(t)(p.AddPrimaryField("offer", "Free coffee", FieldOptions{}))
			if data, err := p.Serialize(); !errors.Is(err, ErrInvalidValue) {
				t.Errorf("Serialize = %s, %v; want ErrInvalidValue", data, err)
			}
		})
	}

	p, _ := NewPass(testPassTypeID, "1", attributeStyle{{Key: "tier", Value: "gold"}})
	mustField(t)(p.AddPrimaryField("offer", "Free coffee", FieldOptions{}))
	data, err := p.Serialize()
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasSuffix(string(data), `"coupon":{"primaryFields":[{"key":"offer","value":"Free coffee"}],"tier":"gold"}}`) {
		t.Errorf("style object = %s", data)
	}
}
