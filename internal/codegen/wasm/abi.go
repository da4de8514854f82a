package wasm

// Capability IDs: the fixed cap_id argument to env.host_call.
// capStdlib is not a real host capability; it addresses the same
// import to bridge every non-inlined stdlib module call (math beyond
// the arithmetic core, core.*, list.* beyond the compiled higher-order
// functions, record.*, string.*, color.*, time.* other than time.now,
// which reads env.get_timestamp directly) back into the
// exact Go Impl closures internal/eval already runs, which is what
// makes eval/codegen parity hold by construction
// instead of by two independently-written implementations agreeing.
const (
	capStdlib        int32 = 0
	capHTTP          int32 = 1
	capStorage       int32 = 2
	capLocation      int32 = 3
	capNotifications int32 = 4
	capCredentials   int32 = 5
)

// Runtime trap codes, passed to env.trap.
const (
	trapDivisionByZero    int32 = 0
	trapNaNResult         int32 = 1
	trapNilAccess         int32 = 2
	trapAssertionFailed   int32 = 3
	trapInvariantViolated int32 = 4
	trapResultUnwrapOnErr int32 = 5
	trapGasExhausted      int32 = 6
	trapUnmockedCapCall   int32 = 7
)

// abi wires the fixed imports and remembers their function
// indices for later `call` instructions.
type abi struct {
	hostCall     uint32
	log          uint32
	trapFn       uint32
	getTimestamp uint32
	gasLimit     uint32
}

func wireImports(m *module) abi {
	var a abi
	a.hostCall = m.addImport("env", "host_call",
		funcType{params: []byte{valI32, valI32, valI32}, results: []byte{valI64}})
	a.log = m.addImport("env", "log",
		funcType{params: []byte{valI32, valI32}})
	a.trapFn = m.addImport("env", "trap",
		funcType{params: []byte{valI32}})
	a.getTimestamp = m.addImport("env", "get_timestamp",
		funcType{results: []byte{valI64}})
	a.gasLimit = m.addImport("env", "gas_limit",
		funcType{results: []byte{valI64}})
	return a
}

func (f *funcBuilder) trapCall(a abi, code int32) {
	f.i32Const(code)
	f.call(a.trapFn)
	f.emit(opUnreachable)
}
