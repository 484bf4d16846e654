package vm

import (
	"encoding/binary"
	"fmt"
	"strings"
)

// ---------------------------------------------------------------------------
// Opcode definitions
// ---------------------------------------------------------------------------

// Opcode represents a single bytecode instruction.
type Opcode byte

// Stack Operations
const (
	OpNOP Opcode = 0x00 // no operation
	OpPOP Opcode = 0x01 // discard top of stack
	OpDUP Opcode = 0x02 // duplicate top of stack
)

// Push Constants
const (
	OpPushNil     Opcode = 0x10 // push nil
	OpPushTrue    Opcode = 0x11 // push true
	OpPushFalse   Opcode = 0x12 // push false
	OpPushSelf    Opcode = 0x13 // push self
	OpPushInt8    Opcode = 0x14 // push 8-bit signed integer
	OpPushLiteral Opcode = 0x16 // push literal from literal frame (16-bit index)
)

// Variable Operations
const (
	OpPushTemp       Opcode = 0x20 // push temporary/argument (8-bit index)
	OpPushIvar       Opcode = 0x21 // push instance variable (8-bit index)
	OpPushGlobal     Opcode = 0x22 // push global/class (16-bit literal index)
	OpStoreTemp      Opcode = 0x23 // store into temporary (8-bit index)
	OpStoreIvar      Opcode = 0x24 // store into instance variable (8-bit index)
	OpPushOuterTemp  Opcode = 0x26 // push temp of an enclosing frame (8-bit depth, 8-bit index)
	OpStoreOuterTemp Opcode = 0x27 // store into temp of an enclosing frame (8-bit depth, 8-bit index)
)

// Message Sends
const (
	OpSend      Opcode = 0x30 // send message (16-bit selector, 8-bit argc)
	OpSendSuper Opcode = 0x31 // send to super (16-bit selector, 8-bit argc)
)

// Returns
const (
	OpReturnTop   Opcode = 0x70 // return top of stack; from a block this returns from the home method
	OpReturnSelf  Opcode = 0x71 // return self
	OpBlockReturn Opcode = 0x73 // return top of stack from the block to its caller
)

// Blocks and arrays
const (
	OpCreateBlock Opcode = 0x80 // create block closure (16-bit block index)
	OpCreateArray Opcode = 0x90 // create array from stack (8-bit size)
)

// ---------------------------------------------------------------------------
// Opcode metadata
// ---------------------------------------------------------------------------

// OpcodeInfo holds metadata about an opcode.
type OpcodeInfo struct {
	Name         string // human-readable name
	OperandBytes int    // number of operand bytes
}

var opcodeTable = map[Opcode]OpcodeInfo{
	OpNOP: {"NOP", 0},
	OpPOP: {"POP", 0},
	OpDUP: {"DUP", 0},

	OpPushNil:     {"PUSH_NIL", 0},
	OpPushTrue:    {"PUSH_TRUE", 0},
	OpPushFalse:   {"PUSH_FALSE", 0},
	OpPushSelf:    {"PUSH_SELF", 0},
	OpPushInt8:    {"PUSH_INT8", 1},
	OpPushLiteral: {"PUSH_LITERAL", 2},

	OpPushTemp:       {"PUSH_TEMP", 1},
	OpPushIvar:       {"PUSH_IVAR", 1},
	OpPushGlobal:     {"PUSH_GLOBAL", 2},
	OpStoreTemp:      {"STORE_TEMP", 1},
	OpStoreIvar:      {"STORE_IVAR", 1},
	OpPushOuterTemp:  {"PUSH_OUTER_TEMP", 2},
	OpStoreOuterTemp: {"STORE_OUTER_TEMP", 2},

	OpSend:      {"SEND", 3},
	OpSendSuper: {"SEND_SUPER", 3},

	OpReturnTop:   {"RETURN_TOP", 0},
	OpReturnSelf:  {"RETURN_SELF", 0},
	OpBlockReturn: {"BLOCK_RETURN", 0},

	OpCreateBlock: {"CREATE_BLOCK", 2},
	OpCreateArray: {"CREATE_ARRAY", 1},
}

// Info returns the metadata for an opcode.
func (op Opcode) Info() OpcodeInfo {
	if info, ok := opcodeTable[op]; ok {
		return info
	}
	return OpcodeInfo{Name: fmt.Sprintf("UNKNOWN_%02X", byte(op))}
}

// Valid reports whether op is a known opcode.
func (op Opcode) Valid() bool {
	_, ok := opcodeTable[op]
	return ok
}

// String implements the Stringer interface.
func (op Opcode) String() string {
	return op.Info().Name
}

// ---------------------------------------------------------------------------
// BytecodeBuilder
// ---------------------------------------------------------------------------

// BytecodeBuilder helps construct bytecode sequences.
type BytecodeBuilder struct {
	bytes []byte
}

// NewBytecodeBuilder creates a new bytecode builder.
func NewBytecodeBuilder() *BytecodeBuilder {
	return &BytecodeBuilder{bytes: make([]byte, 0, 64)}
}

// Bytes returns the constructed bytecode.
func (b *BytecodeBuilder) Bytes() []byte {
	return b.bytes
}

// Len returns the current length.
func (b *BytecodeBuilder) Len() int {
	return len(b.bytes)
}

// Emit appends an opcode with no operands.
func (b *BytecodeBuilder) Emit(op Opcode) {
	b.bytes = append(b.bytes, byte(op))
}

// EmitByte appends an opcode with a single byte operand.
func (b *BytecodeBuilder) EmitByte(op Opcode, operand byte) {
	b.bytes = append(b.bytes, byte(op), operand)
}

// EmitInt8 appends an opcode with a signed 8-bit operand.
func (b *BytecodeBuilder) EmitInt8(op Opcode, operand int8) {
	b.bytes = append(b.bytes, byte(op), byte(operand))
}

// EmitUint16 appends an opcode with a 16-bit operand (little-endian).
func (b *BytecodeBuilder) EmitUint16(op Opcode, operand uint16) {
	b.bytes = append(b.bytes, byte(op), byte(operand), byte(operand>>8))
}

// EmitOuter appends a PUSH_OUTER_TEMP or STORE_OUTER_TEMP instruction.
func (b *BytecodeBuilder) EmitOuter(op Opcode, depth, index uint8) {
	b.bytes = append(b.bytes, byte(op), depth, index)
}

// EmitSend appends a SEND or SEND_SUPER instruction.
func (b *BytecodeBuilder) EmitSend(op Opcode, selector uint16, argc uint8) {
	b.bytes = append(b.bytes, byte(op), byte(selector), byte(selector>>8), argc)
}

// ---------------------------------------------------------------------------
// BytecodeReader
// ---------------------------------------------------------------------------

// BytecodeReader reads bytecode for interpretation or disassembly.
type BytecodeReader struct {
	bytes []byte
	pos   int
}

// NewBytecodeReader creates a reader for bytecode.
func NewBytecodeReader(bc []byte) *BytecodeReader {
	return &BytecodeReader{bytes: bc}
}

// Position returns the current read position.
func (r *BytecodeReader) Position() int {
	return r.pos
}

// HasMore returns true if there are more bytes to read.
func (r *BytecodeReader) HasMore() bool {
	return r.pos < len(r.bytes)
}

// ReadOpcode reads and returns the next opcode.
func (r *BytecodeReader) ReadOpcode() Opcode {
	return Opcode(r.ReadByte())
}

// ReadByte reads a single byte operand.
func (r *BytecodeReader) ReadByte() byte {
	if r.pos >= len(r.bytes) {
		panic(errBytecodeUnderflow)
	}
	b := r.bytes[r.pos]
	r.pos++
	return b
}

// ReadInt8 reads a signed 8-bit operand.
func (r *BytecodeReader) ReadInt8() int8 {
	return int8(r.ReadByte())
}

// ReadUint16 reads a 16-bit operand (little-endian).
func (r *BytecodeReader) ReadUint16() uint16 {
	if r.pos+2 > len(r.bytes) {
		panic(errBytecodeUnderflow)
	}
	v := binary.LittleEndian.Uint16(r.bytes[r.pos:])
	r.pos += 2
	return v
}

// ---------------------------------------------------------------------------
// Verification and disassembly
// ---------------------------------------------------------------------------

// Verify checks that bc decodes into whole instructions with known opcodes.
// DefineClass runs it on every method so the interpreter never decodes a
// truncated instruction from a foreign artifact.
func Verify(bc []byte) error {
	for pos := 0; pos < len(bc); {
		op := Opcode(bc[pos])
		if !op.Valid() {
			return fmt.Errorf("unknown opcode 0x%02X at %d", byte(op), pos)
		}
		next := pos + 1 + op.Info().OperandBytes
		if next > len(bc) {
			return fmt.Errorf("truncated %s at %d", op, pos)
		}
		pos = next
	}
	return nil
}

// DisassembleInstruction disassembles a single instruction at the reader's
// position and advances the reader.
func DisassembleInstruction(r *BytecodeReader) string {
	pos := r.Position()
	op := r.ReadOpcode()
	name := op.Info().Name

	switch op {
	case OpPushInt8:
		return fmt.Sprintf("%04d  %s %d", pos, name, r.ReadInt8())
	case OpPushTemp, OpPushIvar, OpStoreTemp, OpStoreIvar, OpCreateArray:
		return fmt.Sprintf("%04d  %s %d", pos, name, r.ReadByte())
	case OpPushLiteral, OpPushGlobal, OpCreateBlock:
		return fmt.Sprintf("%04d  %s %d", pos, name, r.ReadUint16())
	case OpPushOuterTemp, OpStoreOuterTemp:
		depth := r.ReadByte()
		idx := r.ReadByte()
		return fmt.Sprintf("%04d  %s depth=%d index=%d", pos, name, depth, idx)
	case OpSend, OpSendSuper:
		selector := r.ReadUint16()
		argc := r.ReadByte()
		return fmt.Sprintf("%04d  %s selector=%d argc=%d", pos, name, selector, argc)
	}
	return fmt.Sprintf("%04d  %s", pos, name)
}

// Disassemble returns a full disassembly of bytecode.
func Disassemble(bc []byte) string {
	r := NewBytecodeReader(bc)
	var sb strings.Builder
	for r.HasMore() {
		if sb.Len() > 0 {
			sb.WriteByte('\n')
		}
		sb.WriteString(DisassembleInstruction(r))
	}
	return sb.String()
}
