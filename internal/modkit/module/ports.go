package module

import "reflect"

// PortsOf pulls T out of a module's Ports() bundle
// the bundle itself or any exported struct field may satisfy T
func PortsOf[T any](m Module) (t T, ok bool) {
	p := m.Ports()
	if p == nil {
		return t, false
	}
	if v, ok2 := p.(T); ok2 {
		return v, true
	}
	rv := reflect.ValueOf(p)
	rt := rv.Type()
	if rt.Kind() == reflect.Pointer && !rv.IsNil() {
		rv = rv.Elem()
		rt = rv.Type()
	}
	if rt.Kind() == reflect.Struct {
		for i := range rt.NumField() {
			f := rv.Field(i)
			if !f.CanInterface() {
				continue
			}
			if v, ok2 := f.Interface().(T); ok2 {
				return v, true
			}
		}
	}
	return t, false
}

// MustPortsOf is PortsOf for composition roots; it panics naming the module
func MustPortsOf[T any](m Module) T {
	if v, ok := PortsOf[T](m); ok {
		return v
	}
	panic("module: requested port not found on module " + m.Name())
}
