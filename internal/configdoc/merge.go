package configdoc

import (
	"fmt"
	"reflect"
)

// Merge combines lower and higher values of the same record type:
// fields tagged additive concatenate with higher's elements first,
// SetInfo fields take higher when its IsSet flag is true else lower,
// and nested records recurse. A field that is none of additive,
// SetInfo, or a nested struct is a program error — the binder only
// admits plain scalars elsewhere, and those have no defined merge
// rule, so mislabeling one is a bug in the caller's schema, not
// something Merge should paper over.
func Merge[T any](lower, higher T) (T, error) {
	var out T
	lv := reflect.ValueOf(lower)
	hv := reflect.ValueOf(higher)
	ov := reflect.ValueOf(&out).Elem()
	if err := mergeStruct(ov, lv, hv); err != nil {
		var zero T
		return zero, err
	}
	return out, nil
}

func mergeStruct(ov, lv, hv reflect.Value) error {
	t := ov.Type()
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		if !ov.Field(i).CanSet() {
			continue
		}
		ft := parseFieldTag(f.Tag.Get("cfg"), f.Name)
		if ft.skip {
			continue
		}

		lf, hf, of := lv.Field(i), hv.Field(i), ov.Field(i)

		switch {
		case ft.additive:
			if err := mergeAdditive(of, lf, hf); err != nil {
				return fmt.Errorf("field %q: %w", f.Name, err)
			}
		case isSetInfoType(f.Type):
			if hf.FieldByName("IsSet").Bool() {
				of.Set(hf)
			} else {
				of.Set(lf)
			}
		case f.Type.Kind() == reflect.Struct:
			if err := mergeStruct(of, lf, hf); err != nil {
				return err
			}
		default:
			return fmt.Errorf("field %q: not additive, SetInfo, or a nested record; Merge has no rule for it", f.Name)
		}
	}
	return nil
}

func mergeAdditive(of, lf, hf reflect.Value) error {
	switch of.Kind() {
	case reflect.Slice:
		combined := reflect.MakeSlice(of.Type(), 0, hf.Len()+lf.Len())
		combined = reflect.AppendSlice(combined, hf)
		combined = reflect.AppendSlice(combined, lf)
		of.Set(combined)
		return nil
	case reflect.Map:
		out := reflect.MakeMapWithSize(of.Type(), lf.Len()+hf.Len())
		for _, k := range lf.MapKeys() {
			out.SetMapIndex(k, lf.MapIndex(k))
		}
		for _, k := range hf.MapKeys() {
			out.SetMapIndex(k, hf.MapIndex(k))
		}
		of.Set(out)
		return nil
	default:
		return fmt.Errorf("additive field must be a slice or map, got %s", of.Kind())
	}
}
