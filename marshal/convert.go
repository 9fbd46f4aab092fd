package marshal

import (
	"bytes"
	"database/sql"
	"fmt"
	"math"
	"reflect"
	"strconv"
	"strings"
	"time"
)

// timeLayouts are tried in order when a time column arrives as text.
var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999999-07:00",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04:05.999999999",
	time.DateOnly,
}

// assign stores the driver value src in dst. A nil src zeroes dst.
func assign(dst reflect.Value, src any) error {
	if dst.CanAddr() {
		if s, ok := dst.Addr().Interface().(sql.Scanner); ok {
			return s.Scan(src)
		}
	}
	if src == nil {
		dst.SetZero()
		return nil
	}
	if dst.Kind() == reflect.Pointer {
		v := reflect.New(dst.Type().Elem())
		if err := assign(v.Elem(), src); err != nil {
			return err
		}
		dst.Set(v)
		return nil
	}
	// Driver owned buffers are only valid until the next scan.
	if b, ok := src.([]byte); ok {
		switch {
		case dst.Kind() == reflect.Interface:
			dst.Set(reflect.ValueOf(string(b)))
			return nil
		case dst.Kind() == reflect.Slice && dst.Type().Elem().Kind() == reflect.Uint8:
			dst.SetBytes(bytes.Clone(b))
			return nil
		}
	}
	sv := reflect.ValueOf(src)
	if sv.Type().AssignableTo(dst.Type()) {
		dst.Set(sv)
		return nil
	}
	switch dst.Kind() {
	case reflect.String:
		s, err := asString(sv)
		if err != nil {
			return err
		}
		dst.SetString(s)
		return nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		i, err := asInt(sv)
		if err != nil {
			return err
		}
		if dst.OverflowInt(i) {
			return fmt.Errorf("value %d overflows %s", i, dst.Type())
		}
		dst.SetInt(i)
		return nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		i, err := asInt(sv)
		if err != nil {
			return err
		}
		if i < 0 || dst.OverflowUint(uint64(i)) {
			return fmt.Errorf("value %d overflows %s", i, dst.Type())
		}
		dst.SetUint(uint64(i))
		return nil
	case reflect.Float32, reflect.Float64:
		f, err := asFloat(sv)
		if err != nil {
			return err
		}
		dst.SetFloat(f)
		return nil
	case reflect.Bool:
		b, err := asBool(sv)
		if err != nil {
			return err
		}
		dst.SetBool(b)
		return nil
	case reflect.Slice:
		if dst.Type().Elem().Kind() == reflect.Uint8 && sv.Kind() == reflect.String {
			dst.SetBytes([]byte(sv.String()))
			return nil
		}
	case reflect.Struct:
		if dst.Type() == timeType {
			t, err := asTime(sv)
			if err != nil {
				return err
			}
			dst.Set(reflect.ValueOf(t))
			return nil
		}
	}
	if sv.Kind() == dst.Kind() && sv.Type().ConvertibleTo(dst.Type()) {
		dst.Set(sv.Convert(dst.Type()))
		return nil
	}
	return fmt.Errorf("cannot convert %T to %s", src, dst.Type())
}

func text(sv reflect.Value) (string, bool) {
	switch {
	case sv.Kind() == reflect.String:
		return sv.String(), true
	case sv.Kind() == reflect.Slice && sv.Type().Elem().Kind() == reflect.Uint8:
		return string(sv.Bytes()), true
	}
	return "", false
}

func asString(sv reflect.Value) (string, error) {
	if s, ok := text(sv); ok {
		return s, nil
	}
	switch sv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return strconv.FormatInt(sv.Int(), 10), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return strconv.FormatUint(sv.Uint(), 10), nil
	case reflect.Float32, reflect.Float64:
		return strconv.FormatFloat(sv.Float(), 'g', -1, 64), nil
	case reflect.Bool:
		return strconv.FormatBool(sv.Bool()), nil
	}
	if t, ok := sv.Interface().(time.Time); ok {
		return t.Format(time.RFC3339Nano), nil
	}
	return "", fmt.Errorf("cannot convert %s to string", sv.Type())
}

func asInt(sv reflect.Value) (int64, error) {
	switch sv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return sv.Int(), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		if sv.Uint() > math.MaxInt64 {
			return 0, fmt.Errorf("value %d overflows int64", sv.Uint())
		}
		return int64(sv.Uint()), nil
	case reflect.Float32, reflect.Float64:
		f := sv.Float()
		if f != math.Trunc(f) || f >= math.MaxInt64 || f < math.MinInt64 {
			return 0, fmt.Errorf("value %v is not an integer", f)
		}
		return int64(f), nil
	case reflect.Bool:
		if sv.Bool() {
			return 1, nil
		}
		return 0, nil
	}
	if s, ok := text(sv); ok {
		return strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	}
	return 0, fmt.Errorf("cannot convert %s to an integer", sv.Type())
}

func asFloat(sv reflect.Value) (float64, error) {
	switch sv.Kind() {
	case reflect.Float32, reflect.Float64:
		return sv.Float(), nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return float64(sv.Int()), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return float64(sv.Uint()), nil
	}
	if s, ok := text(sv); ok {
		return strconv.ParseFloat(strings.TrimSpace(s), 64)
	}
	return 0, fmt.Errorf("cannot convert %s to a float", sv.Type())
}

func asBool(sv reflect.Value) (bool, error) {
	switch sv.Kind() {
	case reflect.Bool:
		return sv.Bool(), nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return sv.Int() != 0, nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return sv.Uint() != 0, nil
	}
	if s, ok := text(sv); ok {
		return strconv.ParseBool(strings.TrimSpace(s))
	}
	return false, fmt.Errorf("cannot convert %s to a bool", sv.Type())
}

func asTime(sv reflect.Value) (time.Time, error) {
	s, ok := text(sv)
	if !ok {
		return time.Time{}, fmt.Errorf("cannot convert %s to time.Time", sv.Type())
	}
	s = strings.TrimSpace(s)
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("cannot parse %q as time", s)
}
