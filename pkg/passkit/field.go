package passkit

import (
	"encoding/json"
	"fmt"
	"math"
	"reflect"

	"golang.org/x/text/currency"
)

// FieldOptions holds the optional attributes of a new field.
// A zero TextAlignment leaves the alignment unset; the wallet renders
// unset alignment as TextAlignmentNatural.
type FieldOptions struct {
	Label         string
	ChangeMessage string // e.g. "Gate changed to %@."
	TextAlignment TextAlignment
}

// DateStyleAnnex groups the date formatting attributes of a field.
// It is serialized only when both styles are set.
type DateStyleAnnex struct {
	DateStyle  DateStyle `json:"dateStyle"`
	TimeStyle  DateStyle `json:"timeStyle"`
	IsRelative bool      `json:"isRelative"`
}

func (a *DateStyleAnnex) complete() bool {
	return a != nil && a.DateStyle != "" && a.TimeStyle != ""
}

// NumberStyleAnnex groups the number formatting attributes of a field.
// It is serialized only when both attributes are set.
type NumberStyleAnnex struct {
	CurrencyCode string      `json:"currencyCode"`
	NumberStyle  NumberStyle `json:"numberStyle"`
}

func (a *NumberStyleAnnex) complete() bool {
	return a != nil && a.CurrencyCode != "" && a.NumberStyle != ""
}

// Balance is the payload of a balance field on a store card.
type Balance struct {
	Amount       float64 `json:"amount"`
	CurrencyCode string  `json:"currencyCode"`
}

// Field is a single key/value entry rendered on the front or back of a pass.
type Field struct {
	key           string
	value         interface{}
	label         string
	changeMessage string
	textAlignment TextAlignment

	dateStyle   *DateStyleAnnex
	numberStyle *NumberStyleAnnex
	balance     *Balance
}

// NewField validates the value and alignment and returns a Field.
func NewField(key string, value interface{}, opts FieldOptions) (*Field, error) {
	if key == "" {
		return nil, fmt.Errorf("%w: field key is required", ErrInvalidValue)
	}
	if err := checkScalar(value); err != nil {
		return nil, fmt.Errorf("field %q: %w", key, err)
	}
	f := &Field{
		key:           key,
		value:         value,
		label:         opts.Label,
		changeMessage: opts.ChangeMessage,
	}
	if err := f.SetTextAlignment(opts.TextAlignment); err != nil {
		return nil, err
	}
	return f, nil
}

// Key returns the field key, unique within its collection.
func (f *Field) Key() string { return f.key }

// Value returns the scalar field value.
func (f *Field) Value() interface{} { return f.value }

// Label returns the field label, empty when unset.
func (f *Field) Label() string { return f.label }

// ChangeMessage returns the change message template, empty when unset.
func (f *Field) ChangeMessage() string { return f.changeMessage }

// TextAlignment returns the alignment, TextAlignmentNatural when unset.
func (f *Field) TextAlignment() TextAlignment {
	if f.textAlignment == "" {
		return TextAlignmentNatural
	}
	return f.textAlignment
}

// DateStyle returns the date annex or nil.
func (f *Field) DateStyle() *DateStyleAnnex { return f.dateStyle }

// NumberStyle returns the number annex or nil.
func (f *Field) NumberStyle() *NumberStyleAnnex { return f.numberStyle }

// Balance returns the balance payload or nil.
func (f *Field) Balance() *Balance { return f.balance }

// SetLabel replaces the field label.
func (f *Field) SetLabel(label string) { f.label = label }

// SetChangeMessage replaces the change message template.
func (f *Field) SetChangeMessage(msg string) { f.changeMessage = msg }

// SetTextAlignment validates and sets the alignment. Empty clears it, and
// an unset alignment is not serialized.
func (f *Field) SetTextAlignment(a TextAlignment) error {
	if a != "" && !a.Valid() {
		return invalidEnum("textAlignment", a)
	}
	f.textAlignment = a
	return nil
}

// SetDateStyle sets both date formatting styles at once. An empty style is
// left unset, in which case the annex is not serialized.
func (f *Field) SetDateStyle(dateStyle, timeStyle DateStyle, isRelative bool) error {
	if dateStyle != "" && !dateStyle.Valid() {
		return invalidEnum("dateStyle", dateStyle)
	}
	if timeStyle != "" && !timeStyle.Valid() {
		return invalidEnum("timeStyle", timeStyle)
	}
	f.dateStyle = &DateStyleAnnex{
		DateStyle:  dateStyle,
		TimeStyle:  timeStyle,
		IsRelative: isRelative,
	}
	return nil
}

// SetNumberStyle sets the currency code and number style. The currency code
// must be an ISO 4217 code when non-empty.
func (f *Field) SetNumberStyle(currencyCode string, style NumberStyle) error {
	if currencyCode != "" {
		if err := checkCurrency(currencyCode); err != nil {
			return err
		}
	}
	if style != "" && !style.Valid() {
		return invalidEnum("numberStyle", style)
	}
	f.numberStyle = &NumberStyleAnnex{
		CurrencyCode: currencyCode,
		NumberStyle:  style,
	}
	return nil
}

// SetBalance attaches a balance payload to the field.
func (f *Field) SetBalance(amount float64, currencyCode string) error {
	if math.IsNaN(amount) || math.IsInf(amount, 0) {
		return fmt.Errorf("%w: balance amount %v", ErrInvalidValue, amount)
	}
	if err := checkCurrency(currencyCode); err != nil {
		return err
	}
	f.balance = &Balance{Amount: amount, CurrencyCode: currencyCode}
	return nil
}

type fieldJSON struct {
	Key           string        `json:"key"`
	Value         interface{}   `json:"value"`
	Label         string        `json:"label,omitempty"`
	ChangeMessage string        `json:"changeMessage,omitempty"`
	TextAlignment TextAlignment `json:"textAlignment,omitempty"`
	*DateStyleAnnex
	*NumberStyleAnnex
	Balance *Balance `json:"balance,omitempty"`
}

// MarshalJSON writes the field with its annexes only when they are complete.
func (f *Field) MarshalJSON() ([]byte, error) {
	doc := fieldJSON{
		Key:           f.key,
		Value:         f.value,
		Label:         f.label,
		ChangeMessage: f.changeMessage,
		TextAlignment: f.textAlignment,
		Balance:       f.balance,
	}
	if f.dateStyle.complete() {
		doc.DateStyleAnnex = f.dateStyle
	}
	if f.numberStyle.complete() {
		doc.NumberStyleAnnex = f.numberStyle
	}
	return json.Marshal(doc)
}

func checkCurrency(code string) error {
	if _, err := currency.ParseISO(code); err != nil {
		return fmt.Errorf("%w: currency code %q", ErrInvalidEnumeration, code)
	}
	return nil
}

func checkScalar(v interface{}) error {
	switch x := v.(type) {
	case nil:
		return fmt.Errorf("%w: value is required", ErrInvalidValue)
	case string, bool, json.Number:
		return nil
	case float64:
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return fmt.Errorf("%w: non-finite value %v", ErrInvalidValue, x)
		}
		return nil
	}
	switch rv := reflect.ValueOf(v); rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return nil
	case reflect.Float32:
		f := rv.Float()
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return fmt.Errorf("%w: non-finite value %v", ErrInvalidValue, f)
		}
		return nil
	case reflect.String, reflect.Bool:
		return nil
	}
	return fmt.Errorf("%w: value of type %T is not a JSON scalar", ErrInvalidValue, v)
}
