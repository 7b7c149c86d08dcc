//go:build debug_mem_utils

package memutils

// DebugValidate calls Validate and panics on failure. Builds without the debug_mem_utils tag
// compile it to a no-op.
func DebugValidate(validatable Validatable) {
	err := validatable.Validate()
	if err != nil {
		panic(err)
	}
}
