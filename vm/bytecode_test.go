package vm

import (
	"strings"
	"testing"
)

// ---------------------------------------------------------------------------
// Opcode metadata tests
// ---------------------------------------------------------------------------

func TestOpcodeInfo(t *testing.T) {
	tests := []struct {
		op           Opcode
		name         string
		operandBytes int
	}{
		{OpNOP, "NOP", 0},
		{OpPOP, "POP", 0},
		{OpDUP, "DUP", 0},
		{OpPushNil, "PUSH_NIL", 0},
		{OpPushSelf, "PUSH_SELF", 0},
		{OpPushInt8, "PUSH_INT8", 1},
		{OpPushLiteral, "PUSH_LITERAL", 2},
		{OpPushTemp, "PUSH_TEMP", 1},
		{OpPushIvar, "PUSH_IVAR", 1},
		{OpPushGlobal, "PUSH_GLOBAL", 2},
		{OpPushOuterTemp, "PUSH_OUTER_TEMP", 2},
		{OpStoreOuterTemp, "STORE_OUTER_TEMP", 2},
		{OpSend, "SEND", 3},
		{OpSendSuper, "SEND_SUPER", 3},
		{OpReturnTop, "RETURN_TOP", 0},
		{OpBlockReturn, "BLOCK_RETURN", 0},
		{OpCreateBlock, "CREATE_BLOCK", 2},
		{OpCreateArray, "CREATE_ARRAY", 1},
	}

	for _, tt := range tests {
		info := tt.op.Info()
		if info.Name != tt.name {
			t.Errorf("%02X: name = %q, want %q", byte(tt.op), info.Name, tt.name)
		}
		if info.OperandBytes != tt.operandBytes {
			t.Errorf("%s: operand bytes = %d, want %d", tt.name, info.OperandBytes, tt.operandBytes)
		}
	}
}

func TestUnknownOpcode(t *testing.T) {
	op := Opcode(0xEE)
	if op.Valid() {
		t.Fatal("0xEE should not be valid")
	}
	if got := op.String(); got != "UNKNOWN_EE" {
		t.Errorf("String() = %q", got)
	}
}

// ---------------------------------------------------------------------------
// Builder and reader
// ---------------------------------------------------------------------------

func TestBytecodeBuilderRoundTrip(t *testing.T) {
	b := NewBytecodeBuilder()
	b.EmitInt8(OpPushInt8, -5)
	b.EmitUint16(OpPushLiteral, 300)
	b.EmitOuter(OpPushOuterTemp, 2, 3)
	b.EmitSend(OpSend, 7, 2)
	b.Emit(OpReturnTop)

	r := NewBytecodeReader(b.Bytes())
	if op := r.ReadOpcode(); op != OpPushInt8 {
		t.Fatalf("op = %s", op)
	}
	if v := r.ReadInt8(); v != -5 {
		t.Errorf("int8 = %d, want -5", v)
	}
	if op := r.ReadOpcode(); op != OpPushLiteral {
		t.Fatalf("op = %s", op)
	}
	if v := r.ReadUint16(); v != 300 {
		t.Errorf("uint16 = %d, want 300", v)
	}
	if op := r.ReadOpcode(); op != OpPushOuterTemp {
		t.Fatalf("op = %s", op)
	}
	if d, i := r.ReadByte(), r.ReadByte(); d != 2 || i != 3 {
		t.Errorf("outer = %d,%d, want 2,3", d, i)
	}
	if op := r.ReadOpcode(); op != OpSend {
		t.Fatalf("op = %s", op)
	}
	if sel, argc := r.ReadUint16(), r.ReadByte(); sel != 7 || argc != 2 {
		t.Errorf("send = %d/%d, want 7/2", sel, argc)
	}
	if op := r.ReadOpcode(); op != OpReturnTop {
		t.Fatalf("op = %s", op)
	}
	if r.HasMore() {
		t.Error("reader should be exhausted")
	}
}

func TestVerify(t *testing.T) {
	tests := []struct {
		name    string
		code    []byte
		wantErr string
	}{
		{"empty", nil, ""},
		{"valid", []byte{byte(OpPushInt8), 1, byte(OpReturnTop)}, ""},
		{"unknown opcode", []byte{0xEE}, "unknown opcode"},
		{"truncated operand", []byte{byte(OpSend), 0, 0}, "truncated SEND"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Verify(tt.code)
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("Verify: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("Verify error = %v, want %q", err, tt.wantErr)
			}
		})
	}
}

func TestDisassemble(t *testing.T) {
	b := NewBytecodeBuilder()
	b.Emit(OpPushSelf)
	b.EmitSend(OpSend, 0, 0)
	b.Emit(OpReturnTop)

	want := strings.Join([]string{
		"0000  PUSH_SELF",
		"0001  SEND selector=0 argc=0",
		"0005  RETURN_TOP",
	}, "\n")
	if got := Disassemble(b.Bytes()); got != want {
		t.Errorf("Disassemble =\n%s\nwant\n%s", got, want)
	}
}
