package memutils

// Validatable is anything DebugValidate can check: block metadata, chunks and managers all
// report inconsistent bookkeeping through Validate
type Validatable interface {
	Validate() error
}
