package document

import (
	"fmt"
	"sort"
	"strconv"

	json "github.com/goccy/go-json"
)

// FieldChanges is a partial update. Nil fields are left untouched; only the
// editable bibliographic fields can be changed this way.
type FieldChanges struct {
	Title           *string
	Year            *int
	Category        *string
	StorageLocation *string
	Copies          *int
}

// Editable field names as they appear in snapshots and request bodies.
const (
	FieldTitle           = "title"
	FieldYear            = "year"
	FieldCategory        = "category"
	FieldStorageLocation = "storageLocation"
	FieldCopies          = "copies"
)

var editable = map[string]bool{
	FieldTitle:           true,
	FieldYear:            true,
	FieldCategory:        true,
	FieldStorageLocation: true,
	FieldCopies:          true,
}

// Empty reports whether no field is set.
func (c FieldChanges) Empty() bool {
	return len(c.Names()) == 0
}

// Names lists the fields present in the change set.
func (c FieldChanges) Names() []string {
	var names []string
	if c.Title != nil {
		names = append(names, FieldTitle)
	}
	if c.Year != nil {
		names = append(names, FieldYear)
	}
	if c.Category != nil {
		names = append(names, FieldCategory)
	}
	if c.StorageLocation != nil {
		names = append(names, FieldStorageLocation)
	}
	if c.Copies != nil {
		names = append(names, FieldCopies)
	}
	return names
}

// Apply copies the set fields onto d.
func (c FieldChanges) Apply(d *Document) {
	if c.Title != nil {
		d.Title = *c.Title
	}
	if c.Year != nil {
		d.Year = *c.Year
	}
	if c.Category != nil {
		d.Category = *c.Category
	}
	if c.StorageLocation != nil {
		d.StorageLocation = *c.StorageLocation
	}
	if c.Copies != nil {
		d.Copies = *c.Copies
	}
}

// DecodeChanges reads a JSON object of field changes. Names outside the
// editable set fail with ErrUnknownField, badly typed values with
// ErrInvalidDocument.
func DecodeChanges(data []byte) (FieldChanges, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return FieldChanges{}, fmt.Errorf("%w: %v", ErrInvalidDocument, err)
	}
	if err := checkNames(raw); err != nil {
		return FieldChanges{}, err
	}

	var c FieldChanges
	for name, value := range raw {
		var err error
		switch name {
		case FieldTitle:
			c.Title, err = decodeValue[string](value)
		case FieldYear:
			c.Year, err = decodeValue[int](value)
		case FieldCategory:
			c.Category, err = decodeValue[string](value)
		case FieldStorageLocation:
			c.StorageLocation, err = decodeValue[string](value)
		case FieldCopies:
			c.Copies, err = decodeValue[int](value)
		}
		if err != nil {
			return FieldChanges{}, fmt.Errorf("%w: %s: %v", ErrInvalidDocument, name, err)
		}
	}
	return c, nil
}

// ParseChanges builds a change set from name=value text pairs, as typed on
// a command line.
func ParseChanges(pairs map[string]string) (FieldChanges, error) {
	if err := checkNames(pairs); err != nil {
		return FieldChanges{}, err
	}

	var c FieldChanges
	for name, value := range pairs {
		v := value
		switch name {
		case FieldTitle:
			c.Title = &v
		case FieldCategory:
			c.Category = &v
		case FieldStorageLocation:
			c.StorageLocation = &v
		case FieldYear, FieldCopies:
			n, err := strconv.Atoi(v)
			if err != nil {
				return FieldChanges{}, fmt.Errorf("%w: %s must be an integer, got %q", ErrInvalidDocument, name, v)
			}
			if name == FieldYear {
				c.Year = &n
			} else {
				c.Copies = &n
			}
		}
	}
	return c, nil
}

func checkNames[V any](m map[string]V) error {
	var unknown []string
	for name := range m {
		if !editable[name] {
			unknown = append(unknown, name)
		}
	}
	if len(unknown) > 0 {
		sort.Strings(unknown)
		return fmt.Errorf("%w: %v", ErrUnknownField, unknown)
	}
	return nil
}

func decodeValue[T any](raw json.RawMessage) (*T, error) {
	var v *T
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil, err
	}
	if v == nil {
		return nil, fmt.Errorf("null is not allowed")
	}
	return v, nil
}
