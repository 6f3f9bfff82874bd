package memo

import (
	"errors"
	"fmt"
	"reflect"
	"sort"
	"strconv"
	"strings"
)

// ErrUncacheable is returned for values without a deterministic
// representation: funcs, channels, unsafe pointers and cyclic values.
var ErrUncacheable = errors.New("memo: uncacheable value")

// Canonicalize returns a string that is equal for two values exactly when
// they have the same dynamic type and are structurally equal. Map entries
// are sorted by the canonical form of their keys so iteration order never
// leaks into the result.
func Canonicalize(v any) (string, error) {
	c := canonicalizer{seen: map[uintptr]struct{}{}}
	var b strings.Builder
	if err := c.writeTyped(&b, reflect.ValueOf(v)); err != nil {
		return "", err
	}
	return b.String(), nil
}

type canonicalizer struct {
	seen map[uintptr]struct{}
}

// writeTyped records the type of values whose type isn't implied by their
// container: the top level value and the contents of interfaces.
func (c *canonicalizer) writeTyped(b *strings.Builder, v reflect.Value) error {
	if !v.IsValid() {
		b.WriteString("nil")
		return nil
	}
	b.WriteString(v.Type().String())
	b.WriteByte('(')
	if err := c.write(b, v); err != nil {
		return err
	}
	b.WriteByte(')')
	return nil
}

func (c *canonicalizer) write(b *strings.Builder, v reflect.Value) error {
	if !v.IsValid() {
		b.WriteString("nil")
		return nil
	}
	switch v.Kind() {
	case reflect.Bool:
		b.WriteString(strconv.FormatBool(v.Bool()))
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		b.WriteString(strconv.FormatInt(v.Int(), 10))
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		b.WriteString(strconv.FormatUint(v.Uint(), 10))
	case reflect.Float32, reflect.Float64:
		b.WriteString(strconv.FormatFloat(v.Float(), 'g', -1, 64))
	case reflect.Complex64, reflect.Complex128:
		b.WriteString(strconv.FormatComplex(v.Complex(), 'g', -1, 128))
	case reflect.String:
		b.WriteString(strconv.Quote(v.String()))
	case reflect.Interface:
		if v.IsNil() {
			b.WriteString("nil")
			return nil
		}
		return c.writeTyped(b, v.Elem())
	case reflect.Ptr:
		if v.IsNil() {
			b.WriteString("nil")
			return nil
		}
		ptr := v.Pointer()
		if _, ok := c.seen[ptr]; ok {
			return fmt.Errorf("%w: cyclic %s", ErrUncacheable, v.Type())
		}
		c.seen[ptr] = struct{}{}
		defer delete(c.seen, ptr)
		b.WriteByte('&')
		return c.write(b, v.Elem())
	case reflect.Array, reflect.Slice:
		if v.Kind() == reflect.Slice {
			if v.IsNil() {
				b.WriteString("nil")
				return nil
			}
			ptr := v.Pointer()
			if _, ok := c.seen[ptr]; ok && v.Len() > 0 {
				return fmt.Errorf("%w: cyclic %s", ErrUncacheable, v.Type())
			}
			if v.Len() > 0 {
				c.seen[ptr] = struct{}{}
				defer delete(c.seen, ptr)
			}
		}
		b.WriteByte('[')
		for i := 0; i < v.Len(); i++ {
			if i > 0 {
				b.WriteByte(',')
			}
			if err := c.write(b, v.Index(i)); err != nil {
				return err
			}
		}
		b.WriteByte(']')
	case reflect.Map:
		if v.IsNil() {
			b.WriteString("nil")
			return nil
		}
		ptr := v.Pointer()
		if _, ok := c.seen[ptr]; ok {
			return fmt.Errorf("%w: cyclic %s", ErrUncacheable, v.Type())
		}
		c.seen[ptr] = struct{}{}
		defer delete(c.seen, ptr)
		return c.writeMap(b, v)
	case reflect.Struct:
		b.WriteByte('{')
		t := v.Type()
		for i := 0; i < v.NumField(); i++ {
			if i > 0 {
				b.WriteByte(',')
			}
			b.WriteString(t.Field(i).Name)
			b.WriteByte(':')
			if err := c.write(b, v.Field(i)); err != nil {
				return err
			}
		}
		b.WriteByte('}')
	default:
		// Func, Chan and UnsafePointer compare by identity only.
		return fmt.Errorf("%w: %s", ErrUncacheable, v.Kind())
	}
	return nil
}

func (c *canonicalizer) writeMap(b *strings.Builder, v reflect.Value) error {
	type entry struct {
		key, value string
	}
	entries := make([]entry, 0, v.Len())
	iter := v.MapRange()
	for iter.Next() {
		var kb, vb strings.Builder
		if err := c.write(&kb, iter.Key()); err != nil {
			return err
		}
		if err := c.write(&vb, iter.Value()); err != nil {
			return err
		}
		entries = append(entries, entry{key: kb.String(), value: vb.String()})
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].key < entries[j].key
	})
	b.WriteByte('{')
	for i, e := range entries {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(e.key)
		b.WriteByte(':')
		b.WriteString(e.value)
	}
	b.WriteByte('}')
	return nil
}
