package model

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/shopspring/decimal"
)

// ErrInvalidPayload wraps every validation failure produced while turning
// a request body into a typed record.
var ErrInvalidPayload = errors.New("invalid payload")

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidPayload, fmt.Sprintf(format, args...))
}

// DecodeCreate validates payload against the creatable fields of t and
// returns the matching typed record.  Unknown fields are rejected and
// required fields must be present and non-null.
func DecodeCreate(t Table, payload []byte) (CreateRecord, error) {
	s := SchemaFor(t)
	raw, err := decodeObject(payload)
	if err != nil {
		return nil, err
	}
	if err := checkKnown(raw, s.Creatable, s); err != nil {
		return nil, err
	}
	for _, k := range sortedKeys(s.Creatable) {
		if s.Creatable[k] && isNull(raw[k]) {
			return nil, invalid("missing required field %q for %s", k, s.Name)
		}
	}

	switch t {
	case TableUsers:
		var r UserCreate
		if err := strict(payload, &r); err != nil {
			return nil, err
		}
		r.Name = strings.TrimSpace(r.Name)
		if r.Name == "" {
			return nil, invalid("name must not be empty")
		}
		if r.Email, err = cleanEmail(r.Email); err != nil {
			return nil, err
		}
		if r.Password != nil && *r.Password == "" {
			return nil, invalid("password must not be empty")
		}
		if r.CreatedAt != nil && *r.CreatedAt < 0 {
			return nil, invalid("created_at must not be negative")
		}
		return r, nil
	case TableProducts:
		var r ProductCreate
		if err := strict(payload, &r); err != nil {
			return nil, err
		}
		r.Name = strings.TrimSpace(r.Name)
		if r.Name == "" {
			return nil, invalid("name must not be empty")
		}
		if err := checkPrice(r.Price); err != nil {
			return nil, err
		}
		return r, nil
	case TableOrders:
		var r OrderCreate
		if err := strict(payload, &r); err != nil {
			return nil, err
		}
		r.OrderStatus = strings.TrimSpace(r.OrderStatus)
		if r.OrderStatus == "" {
			return nil, invalid("order_status must not be empty")
		}
		if err := checkProducts(r.Products); err != nil {
			return nil, err
		}
		if r.OrderPublicID != nil && strings.TrimSpace(*r.OrderPublicID) == "" {
			return nil, invalid("order_public_id must not be empty")
		}
		if r.UserID != nil && *r.UserID <= 0 {
			return nil, invalid("user_id must be positive")
		}
		if r.CreatedAt != nil && *r.CreatedAt < 0 {
			return nil, invalid("created_at must not be negative")
		}
		return r, nil
	}
	return nil, invalid("unsupported table %v", t)
}

// DecodeUpdate validates payload against the updatable fields of t plus the
// primary key, which must be present.  Null fields count as absent.
func DecodeUpdate(t Table, payload []byte) (UpdateRecord, error) {
	s := SchemaFor(t)
	raw, err := decodeObject(payload)
	if err != nil {
		return nil, err
	}
	allowed := map[string]bool{s.PrimaryKey: true}
	for k := range s.Updatable {
		allowed[k] = true
	}
	if err := checkKnown(raw, allowed, s); err != nil {
		return nil, err
	}
	if _, err := decodeKey(raw, s); err != nil {
		return nil, err
	}

	switch t {
	case TableUsers:
		var r UserUpdate
		if err := strict(payload, &r); err != nil {
			return nil, err
		}
		if r.Name, err = cleanOptional("name", r.Name); err != nil {
			return nil, err
		}
		if r.Email, err = cleanEmail(r.Email); err != nil {
			return nil, err
		}
		if r.Password != nil && *r.Password == "" {
			return nil, invalid("password must not be empty")
		}
		return r, nil
	case TableProducts:
		var r ProductUpdate
		if err := strict(payload, &r); err != nil {
			return nil, err
		}
		if r.Name, err = cleanOptional("name", r.Name); err != nil {
			return nil, err
		}
		if r.Price != nil {
			if err := checkPrice(*r.Price); err != nil {
				return nil, err
			}
		}
		return r, nil
	case TableOrders:
		var r OrderUpdate
		if err := strict(payload, &r); err != nil {
			return nil, err
		}
		if r.OrderStatus, err = cleanOptional("order_status", r.OrderStatus); err != nil {
			return nil, err
		}
		if r.Products != nil {
			if err := checkProducts(r.Products); err != nil {
				return nil, err
			}
		}
		if r.UserID != nil && *r.UserID <= 0 {
			return nil, invalid("user_id must be positive")
		}
		return r, nil
	}
	return nil, invalid("unsupported table %v", t)
}

// DecodeKey extracts the primary-key value of t from payload.  Other fields
// are ignored so that clients may send the whole row they want deleted.
func DecodeKey(t Table, payload []byte) (int64, error) {
	raw, err := decodeObject(payload)
	if err != nil {
		return 0, err
	}
	return decodeKey(raw, SchemaFor(t))
}

func decodeKey(raw map[string]json.RawMessage, s Schema) (int64, error) {
	v := raw[s.PrimaryKey]
	if isNull(v) {
		return 0, invalid("primary key %q is required", s.PrimaryKey)
	}
	var id int64
	if err := json.Unmarshal(v, &id); err != nil || id <= 0 {
		return 0, invalid("primary key %q must be a positive integer", s.PrimaryKey)
	}
	return id, nil
}

func decodeObject(payload []byte) (map[string]json.RawMessage, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(payload, &raw); err != nil || raw == nil {
		return nil, invalid("body must be a JSON object")
	}
	return raw, nil
}

func checkKnown(raw map[string]json.RawMessage, allowed map[string]bool, s Schema) error {
	keys := make([]string, 0, len(raw))
	for k := range raw {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if _, ok := allowed[k]; !ok {
			return invalid("unknown field %q for %s", k, s.Name)
		}
	}
	return nil
}

func strict(payload []byte, v any) error {
	dec := json.NewDecoder(bytes.NewReader(payload))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &typeErr) {
			return invalid("field %q has the wrong type", typeErr.Field)
		}
		return invalid("%v", err)
	}
	return nil
}

func isNull(v json.RawMessage) bool {
	v = bytes.TrimSpace(v)
	return len(v) == 0 || bytes.Equal(v, []byte("null"))
}

func sortedKeys(m map[string]bool) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func cleanOptional(field string, v *string) (*string, error) {
	if v == nil {
		return nil, nil
	}
	s := strings.TrimSpace(*v)
	if s == "" {
		return nil, invalid("%s must not be empty", field)
	}
	return &s, nil
}

func cleanEmail(v *string) (*string, error) {
	if v == nil {
		return nil, nil
	}
	s := strings.ToLower(strings.TrimSpace(*v))
	if s == "" || !strings.Contains(s, "@") {
		return nil, invalid("email is not valid")
	}
	return &s, nil
}

func checkProducts(ids []int64) error {
	if len(ids) == 0 {
		return invalid("products must contain at least one product id")
	}
	for _, id := range ids {
		if id <= 0 {
			return invalid("product id %d is not valid", id)
		}
	}
	return nil
}

// maxPrice is the first value a DECIMAL(10,2) column cannot hold.
var maxPrice = decimal.New(1, 8)

// checkPrice accepts what the price column stores exactly: non-negative,
// at most two decimal places and below maxPrice.
func checkPrice(p decimal.Decimal) error {
	switch {
	case p.IsNegative():
		return invalid("price must not be negative")
	case !p.Equal(p.Round(2)):
		return invalid("price must have at most 2 decimal places")
	case p.GreaterThanOrEqual(maxPrice):
		return invalid("price must be below %s", maxPrice)
	}
	return nil
}
