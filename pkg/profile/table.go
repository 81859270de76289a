package profile

import (
	"fmt"
	"reflect"
	"strings"
)

// Table maps variants to their profile definitions.
//
// A Table is filled once, before any reader uses it, and is read-only afterwards.
// It carries no lock.
type Table struct {
	defs  map[Variant]*DeviceProfile
	order []Variant
}

// NewTable returns an empty table.
func NewTable() *Table {
	return &Table{defs: make(map[Variant]*DeviceProfile)}
}

// Define registers p under v. Defining the same profile twice is a no-op; defining
// a different profile under an existing variant fails with a
// *ConflictingDefinitionError naming the fields that disagree.
func (t *Table) Define(v Variant, p *DeviceProfile) error {
	if v == "" {
		return fmt.Errorf("%w: empty variant name", ErrUnknownVariant)
	}
	if p == nil {
		return fmt.Errorf("%w: %s has no profile", ErrMissingSection, v)
	}
	if prev, ok := t.defs[v]; ok {
		if fields := Diff(prev, p); len(fields) > 0 {
			return &ConflictingDefinitionError{Variant: v, Fields: fields}
		}
		return nil
	}
	t.defs[v] = p.Clone()
	t.order = append(t.order, v)
	return nil
}

func (t *Table) mustDefine(v Variant, p *DeviceProfile) {
	if err := t.Define(v, p); err != nil {
		panic(err)
	}
}

// Load returns a copy of the profile defined for v.
func (t *Table) Load(v Variant) (*DeviceProfile, error) {
	p, ok := t.defs[v]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownVariant, v)
	}
	return p.Clone(), nil
}

// Variants returns the defined variants in definition order.
func (t *Table) Variants() []Variant {
	return append([]Variant(nil), t.order...)
}

// Validate validates every profile in the table.
func (t *Table) Validate() error {
	for _, v := range t.order {
		if err := t.defs[v].Validate(); err != nil {
			return fmt.Errorf("profile %s: %w", v, err)
		}
	}
	return nil
}

// Diff lists the yaml paths of the fields that differ between a and b.
// Nil and empty slices compare equal; feature flags compare as sets.
func Diff(a, b *DeviceProfile) []string {
	var out []string
	diffValue("", reflect.ValueOf(a), reflect.ValueOf(b), &out)
	return out
}

var featuresType = reflect.TypeOf(Features(nil))

func diffValue(path string, a, b reflect.Value, out *[]string) {
	if a.Type() == featuresType {
		if !a.Interface().(Features).Equal(b.Interface().(Features)) {
			*out = append(*out, path)
		}
		return
	}
	switch a.Kind() {
	case reflect.Pointer:
		if a.IsNil() || b.IsNil() {
			if a.IsNil() != b.IsNil() {
				*out = append(*out, path)
			}
			return
		}
		diffValue(path, a.Elem(), b.Elem(), out)
	case reflect.Struct:
		for i := 0; i < a.NumField(); i++ {
			diffValue(join(path, fieldName(a.Type().Field(i))), a.Field(i), b.Field(i), out)
		}
	case reflect.Slice:
		if a.Len() != b.Len() {
			*out = append(*out, path)
			return
		}
		for i := 0; i < a.Len(); i++ {
			if !reflect.DeepEqual(a.Index(i).Interface(), b.Index(i).Interface()) {
				*out = append(*out, path)
				return
			}
		}
	default:
		if !reflect.DeepEqual(a.Interface(), b.Interface()) {
			*out = append(*out, path)
		}
	}
}

func fieldName(f reflect.StructField) string {
	name, _, _ := strings.Cut(f.Tag.Get("yaml"), ",")
	if name == "" {
		return strings.ToLower(f.Name)
	}
	return name
}

func join(prefix, name string) string {
	if prefix == "" {
		return name
	}
	return prefix + "." + name
}
