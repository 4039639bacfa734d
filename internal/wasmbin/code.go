package wasmbin

// Opcodes used by Code.
const (
	opUnreachable byte = 0x00
	opBlock       byte = 0x02
	opLoop        byte = 0x03
	opIf          byte = 0x04
	opElse        byte = 0x05
	opEnd         byte = 0x0b
	opBr          byte = 0x0c
	opBrIf        byte = 0x0d
	opReturn      byte = 0x0f
	opCall        byte = 0x10
	opDrop        byte = 0x1a
	opLocalGet    byte = 0x20
	opLocalSet    byte = 0x21
	opLocalTee    byte = 0x22
	opI32Load     byte = 0x28
	opI32Const    byte = 0x41
	opI32Eqz      byte = 0x45
	opI32Eq       byte = 0x46
	opI32Ne       byte = 0x47
	opI32Add      byte = 0x6a
	opI32Sub      byte = 0x6b

	blockEmpty byte = 0x40
)

// Code assembles a function body. The final end is added by Module.Encode.
type Code struct {
	buf []byte
}

// NewCode returns an empty function body.
func NewCode() *Code { return &Code{} }

func (c *Code) op(b ...byte) *Code {
	c.buf = append(c.buf, b...)
	return c
}

func (c *Code) Unreachable() *Code { return c.op(opUnreachable) }
func (c *Code) Block() *Code       { return c.op(opBlock, blockEmpty) }
func (c *Code) Loop() *Code        { return c.op(opLoop, blockEmpty) }
func (c *Code) If() *Code          { return c.op(opIf, blockEmpty) }
func (c *Code) Else() *Code        { return c.op(opElse) }
func (c *Code) End() *Code         { return c.op(opEnd) }
func (c *Code) Return() *Code      { return c.op(opReturn) }
func (c *Code) Drop() *Code        { return c.op(opDrop) }
func (c *Code) I32Eqz() *Code      { return c.op(opI32Eqz) }
func (c *Code) I32Eq() *Code       { return c.op(opI32Eq) }
func (c *Code) I32Ne() *Code       { return c.op(opI32Ne) }
func (c *Code) I32Add() *Code      { return c.op(opI32Add) }
func (c *Code) I32Sub() *Code      { return c.op(opI32Sub) }

func (c *Code) Br(depth uint32) *Code {
	c.buf = appendU32(append(c.buf, opBr), depth)
	return c
}

func (c *Code) BrIf(depth uint32) *Code {
	c.buf = appendU32(append(c.buf, opBrIf), depth)
	return c
}

func (c *Code) Call(fn uint32) *Code {
	c.buf = appendU32(append(c.buf, opCall), fn)
	return c
}

func (c *Code) LocalGet(i uint32) *Code {
	c.buf = appendU32(append(c.buf, opLocalGet), i)
	return c
}

func (c *Code) LocalSet(i uint32) *Code {
	c.buf = appendU32(append(c.buf, opLocalSet), i)
	return c
}

func (c *Code) LocalTee(i uint32) *Code {
	c.buf = appendU32(append(c.buf, opLocalTee), i)
	return c
}

func (c *Code) I32Const(v int32) *Code {
	c.buf = appendS32(append(c.buf, opI32Const), v)
	return c
}

// I32Load loads an i32 from the address on the stack plus offset.
func (c *Code) I32Load(offset uint32) *Code {
	c.buf = append(c.buf, opI32Load)
	c.buf = appendU32(c.buf, 2) // align 4
	c.buf = appendU32(c.buf, offset)
	return c
}

// Bytes returns the assembled instructions.
func (c *Code) Bytes() []byte { return c.buf }
