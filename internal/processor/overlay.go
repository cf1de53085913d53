package processor

import "reflect"

// Overlay copies every non-nil pointer field of patch onto the
// same-named, same-typed field of base and returns the result. Patch
// fields with no matching base field are ignored, which lets override
// structs carry extra knobs of their own.
func Overlay[C any](base C, patch any) C {
	bv := reflect.ValueOf(&base).Elem()
	pv := reflect.ValueOf(patch)
	for pv.Kind() == reflect.Pointer {
		if pv.IsNil() {
			return base
		}
		pv = pv.Elem()
	}
	if pv.Kind() != reflect.Struct || bv.Kind() != reflect.Struct {
		return base
	}
	pt := pv.Type()
	for i := 0; i < pt.NumField(); i++ {
		f := pv.Field(i)
		if f.Kind() != reflect.Pointer || f.IsNil() {
			continue
		}
		target := bv.FieldByName(pt.Field(i).Name)
		if !target.IsValid() || !target.CanSet() {
			continue
		}
		if target.Type() != f.Type().Elem() {
			continue
		}
		target.Set(f.Elem())
	}
	return base
}
