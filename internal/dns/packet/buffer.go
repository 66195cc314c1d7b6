package packet

import (
	"errors"
	"strings"
)

// BytePacketBuffer simplifies reading and writing DNS wire messages.
type BytePacketBuffer struct {
	Buf []byte
	Pos int
	Len int // bytes of valid data when reading
}

const MaxPacketSize = 65535

var (
	ErrEndOfBuffer = errors.New("end of buffer")
	ErrJumpLimit   = errors.New("limit of jumps exceeded")
	ErrLabelLength = errors.New("label too long")
)

func NewBytePacketBuffer() *BytePacketBuffer {
	return &BytePacketBuffer{
		Buf: make([]byte, MaxPacketSize),
		Len: MaxPacketSize,
	}
}

// Load copies a received message into the buffer and rewinds it.
func (b *BytePacketBuffer) Load(data []byte) {
	n := copy(b.Buf, data)
	b.Len = n
	b.Pos = 0
}

// Bytes returns what has been written so far.
func (b *BytePacketBuffer) Bytes() []byte {
	return b.Buf[:b.Pos]
}

func (b *BytePacketBuffer) Position() int {
	return b.Pos
}

func (b *BytePacketBuffer) Step(steps int) error {
	if b.Pos+steps > b.Len {
		return ErrEndOfBuffer
	}
	b.Pos += steps
	return nil
}

func (b *BytePacketBuffer) Seek(pos int) {
	b.Pos = pos
}

func (b *BytePacketBuffer) Read() (byte, error) {
	if b.Pos >= b.Len {
		return 0, ErrEndOfBuffer
	}
	res := b.Buf[b.Pos]
	b.Pos++
	return res, nil
}

// ReadRange copies length bytes starting at start without moving the cursor.
func (b *BytePacketBuffer) ReadRange(start int, length int) ([]byte, error) {
	if start < 0 || length < 0 || start+length > b.Len {
		return nil, ErrEndOfBuffer
	}
	res := make([]byte, length)
	copy(res, b.Buf[start:start+length])
	return res, nil
}

// Readu16 reads 2 bytes as uint16 (Big Endian)
func (b *BytePacketBuffer) Readu16() (uint16, error) {
	if b.Pos+2 > b.Len {
		return 0, ErrEndOfBuffer
	}
	v := uint16(b.Buf[b.Pos])<<8 | uint16(b.Buf[b.Pos+1])
	b.Pos += 2
	return v, nil
}

// Readu32 reads 4 bytes as uint32 (Big Endian)
func (b *BytePacketBuffer) Readu32() (uint32, error) {
	if b.Pos+4 > b.Len {
		return 0, ErrEndOfBuffer
	}
	v := uint32(b.Buf[b.Pos])<<24 | uint32(b.Buf[b.Pos+1])<<16 | uint32(b.Buf[b.Pos+2])<<8 | uint32(b.Buf[b.Pos+3])
	b.Pos += 4
	return v, nil
}

// ReadName reads a domain name, following compression pointers.
func (b *BytePacketBuffer) ReadName() (string, error) {
	pos := b.Pos
	jumped := false
	maxJumps := 5
	jumpsPerformed := 0

	delimiter := ""
	var out strings.Builder

	for {
		if jumpsPerformed > maxJumps {
			return "", ErrJumpLimit
		}

		lenByte, err := b.Get(pos)
		if err != nil {
			return "", err
		}

		if lenByte == 0 {
			pos++
			if !jumped {
				b.Seek(pos)
			}
			return out.String(), nil
		}

		// Compression pointer (11xxxxxx)
		if (lenByte & 0xC0) == 0xC0 {
			if !jumped {
				b.Seek(pos + 2)
			}
			b2, err := b.Get(pos + 1)
			if err != nil {
				return "", err
			}
			offset := ((uint16(lenByte) ^ 0xC0) << 8) | uint16(b2)
			pos = int(offset)
			jumped = true
			jumpsPerformed++
			continue
		}

		pos++
		lenInt := int(lenByte)

		out.WriteString(delimiter)
		label, err := b.ReadRange(pos, lenInt)
		if err != nil {
			return "", err
		}
		out.WriteString(strings.ToLower(string(label)))

		delimiter = "."
		pos += lenInt
	}
}

// Get reads a byte at a specific position without moving the cursor.
func (b *BytePacketBuffer) Get(pos int) (byte, error) {
	if pos >= b.Len {
		return 0, ErrEndOfBuffer
	}
	return b.Buf[pos], nil
}

func (b *BytePacketBuffer) Write(val byte) error {
	if b.Pos >= MaxPacketSize {
		return ErrEndOfBuffer
	}
	b.Buf[b.Pos] = val
	b.Pos++
	return nil
}

func (b *BytePacketBuffer) WriteBytes(data []byte) error {
	if b.Pos+len(data) > MaxPacketSize {
		return ErrEndOfBuffer
	}
	copy(b.Buf[b.Pos:], data)
	b.Pos += len(data)
	return nil
}

func (b *BytePacketBuffer) Writeu16(val uint16) error {
	if err := b.Write(byte(val >> 8)); err != nil {
		return err
	}
	return b.Write(byte(val & 0xFF))
}

func (b *BytePacketBuffer) Writeu32(val uint32) error {
	if err := b.Writeu16(uint16(val >> 16)); err != nil {
		return err
	}
	return b.Writeu16(uint16(val & 0xFFFF))
}

// WriteName writes a domain name without compression.
func (b *BytePacketBuffer) WriteName(name string) error {
	for _, part := range strings.Split(name, ".") {
		if len(part) > 63 {
			return ErrLabelLength
		}
		if len(part) == 0 {
			continue
		}
		if err := b.Write(byte(len(part))); err != nil {
			return err
		}
		if err := b.WriteBytes([]byte(part)); err != nil {
			return err
		}
	}
	return b.Write(0)
}
