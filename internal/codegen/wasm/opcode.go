package wasm

// Value types.
const (
	valI32 byte = 0x7F
	valI64 byte = 0x7E
	valF64 byte = 0x7C
)

// Section IDs, in the fixed order the binary format requires.
const (
	secCustom byte = iota
	secType
	secImport
	secFunction
	secTable
	secMemory
	secGlobal
	secExport
	secStart
	secElement
	secCode
	secData
)

// A subset of WASM MVP opcodes, enough to lower PEPL's expression and
// statement forms plus the runtime helper functions (bump allocator,
// structural equality, nested-record update).
const (
	opUnreachable byte = 0x00
	opNop         byte = 0x01
	opBlock       byte = 0x02
	opLoop        byte = 0x03
	opIf          byte = 0x04
	opElse        byte = 0x05
	opEnd         byte = 0x0B
	opBr          byte = 0x0C
	opBrIf        byte = 0x0D
	opBrTable     byte = 0x0E
	opReturn      byte = 0x0F
	opCall        byte = 0x10
	opCallIndir   byte = 0x11
	opDrop        byte = 0x1A
	opSelect      byte = 0x1B

	opLocalGet  byte = 0x20
	opLocalSet  byte = 0x21
	opLocalTee  byte = 0x22
	opGlobalGet byte = 0x23
	opGlobalSet byte = 0x24

	opI32Load byte = 0x28
	opI64Load byte = 0x29
	opF64Load byte = 0x2B
	opI32Load8U byte = 0x2D
	opI32Store byte = 0x36
	opI64Store byte = 0x37
	opF64Store byte = 0x39
	opI32Store8 byte = 0x3A

	opMemoryGrow byte = 0x40
	opMemorySize byte = 0x3F

	opI32Const byte = 0x41
	opI64Const byte = 0x42
	opF64Const byte = 0x44

	opI32Eqz  byte = 0x45
	opI32Eq   byte = 0x46
	opI32Ne   byte = 0x47
	opI32LtS  byte = 0x48
	opI32GtS  byte = 0x4A
	opI32LeS  byte = 0x4C
	opI32GeS  byte = 0x4E

	opI64Eqz byte = 0x50
	opI64Eq  byte = 0x51
	opI64LtS byte = 0x53
	opI64Ne  byte = 0x52

	opF64Eq byte = 0x61
	opF64Ne byte = 0x62
	opF64Lt byte = 0x63
	opF64Gt byte = 0x64
	opF64Le byte = 0x65
	opF64Ge byte = 0x66

	opI32Add byte = 0x6A
	opI32Sub byte = 0x6B
	opI32Mul byte = 0x6C
	opI32And byte = 0x71
	opI32Or  byte = 0x72
	opI32Xor byte = 0x73

	opI64Add byte = 0x7C
	opI64Sub byte = 0x7D

	opF64Abs     byte = 0x99
	opF64Neg     byte = 0x9A
	opF64Ceil    byte = 0x9B
	opF64Floor   byte = 0x9C
	opF64Trunc   byte = 0x9D
	opF64Nearest byte = 0x9E
	opF64Sqrt    byte = 0x9F
	opF64Add     byte = 0xA0
	opF64Sub     byte = 0xA1
	opF64Mul     byte = 0xA2
	opF64Div     byte = 0xA3
	opF64Min     byte = 0xA4
	opF64Max     byte = 0xA5

	opI32Shl  byte = 0x74
	opI32ShrU byte = 0x76

	opI32WrapI64      byte = 0xA7
	opI64ExtendI32S   byte = 0xAC
	opF64ConvertI32S  byte = 0xB7
	opI32TruncF64S    byte = 0xAA
	opI32ReinterpretF byte = 0xBC

	blockVoid byte = 0x40
)
