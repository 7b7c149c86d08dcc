//go:build !debug_mem_utils

package memutils

// DebugValidate does nothing unless the debug_mem_utils build tag is present
func DebugValidate(validatable Validatable) {
}
