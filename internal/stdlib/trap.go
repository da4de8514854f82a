package stdlib

// TrapError is returned by a pure Impl to signal a runtime trap. The
// evaluator and WASM backend both translate Kind into their own trap
// representation; this package stays free of any evaluator import.
type TrapError struct {
	Kind    string
	Message string
}

func (e *TrapError) Error() string { return e.Message }

// Trap builds a TrapError of the given kind.
func Trap(kind, message string) *TrapError {
	return &TrapError{Kind: kind, Message: message}
}
