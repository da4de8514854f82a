package wasm

// Runtime value tags for the 16-byte header layout:
//   { tag: u8, _pad: u8, len_or_variant: u16, payload: i32, aux: i32 }
// These mirror internal/value's tagged union one-for-one so the host
// bridge (see abi.go, capStdlib) can decode a header the same way the
// reference evaluator interprets a value.Value.
const (
	tagNil byte = iota
	tagNumber
	tagBool
	tagString
	tagList
	tagRecord
	tagVariant
	tagResult
	tagColor
	tagFunction
)

// headerSize is the fixed size in bytes of one value header. Number and
// Bool values store their 8-byte scalar in the header's last 8 bytes, at
// +8. String, List and Record values keep their contents inline right
// after the header, with the count in len_or_variant; Result, Variant
// and Function values store a pointer in payload (+4).
const headerSize = 16

// Fixed memory layout: the first reservedZeroPage bytes are never
// allocated, so pointer 0 can mean "null": its first word is zero, so
// its tag reads as tagNil. The bump tip and the state and derived root
// pointers live in globals, not in linear memory; get_state/get_derived
// read the two roots and restore_state writes them back. The tip is
// never rewound.
const reservedZeroPage = 8
