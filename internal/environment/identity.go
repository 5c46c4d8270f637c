package environment

import "reflect"

// identityOf returns the registry key for service type T. The key depends
// only on the type: pointer indirection is stripped and the package path is
// kept, so every instantiation of the same service type maps to the same
// identity and same-named types from different packages do not collide.
//
// Services are registered as pointer types, which makes stripping safe: *T
// and T never both appear in one environment.
func identityOf[T any]() string {
	t := reflect.TypeOf((*T)(nil)).Elem()
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t.PkgPath() == "" {
		return t.String()
	}
	return t.PkgPath() + "." + t.Name()
}

// recoverAs reinterprets a stored, type-erased instance as its concrete
// type. Identity uniquely determines the concrete type by construction, so
// a failed assertion means the identity-to-instance mapping is corrupt.
func recoverAs[T any](identity string, stored any) T {
	v, ok := stored.(T)
	if !ok {
		fatalf("service %s stored as %T, cannot recover as %s",
			identity, stored, reflect.TypeOf((*T)(nil)).Elem())
	}
	return v
}
