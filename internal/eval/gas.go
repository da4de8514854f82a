package eval

import "pepl/internal/gas"

// DefaultGasBudget is used when an Evaluator is built without WithGasBudget.
// Aliases gas.Default so a reference run and a wasm.Generate run of the
// same program start with identical fuel.
const DefaultGasBudget = gas.Default

// chargeGas is called once per loop-iteration entry, per function/action/
// view call, and once per update(dt) tick. Reaching zero traps
// gas_exhausted immediately, mid-expression, exactly like any other trap.
func (e *Evaluator) chargeGas(n int64) {
	e.gas -= n
	if e.gas < 0 {
		raise(trapGasExhausted, "gas exhausted")
	}
}
