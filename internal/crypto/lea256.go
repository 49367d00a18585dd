package crypto

import (
	"encoding/binary"
	"math/bits"
)

const leaBlock = 16

// leaKeySchedule expands a 32-byte key into 192 uint32 round keys for LEA-256.
func leaKeySchedule(key [32]byte) [192]uint32 {
	var T [8]uint32
	for i := 0; i < 8; i++ {
		T[i] = binary.LittleEndian.Uint32(key[i*4:])
	}

	var rk [192]uint32
	shifts := [6]uint{1, 3, 6, 11, 13, 17}

	for i := uint32(0); i < 32; i++ {
		d := LEAKeyDelta[i&7]
		s := (i * 6) & 7

		for j := uint32(0); j < 6; j++ {
			idx := (s + j) & 7
			T[idx] = bits.RotateLeft32(T[idx]+bits.RotateLeft32(d, int(i+j)), int(shifts[j]))
		}
		for j := uint32(0); j < 6; j++ {
			rk[i*6+j] = T[(s+j)&7]
		}
	}
	return rk
}

// DecryptLEA decrypts data in 16-byte blocks using LEA-256 ECB mode.
// A trailing partial block is copied through unchanged.
func DecryptLEA(data []byte, key [32]byte) []byte {
	rk := leaKeySchedule(key)
	out := make([]byte, len(data))

	off := 0
	for ; off+leaBlock <= len(data); off += leaBlock {
		block := data[off : off+leaBlock]
		s0 := binary.LittleEndian.Uint32(block[0:])
		s1 := binary.LittleEndian.Uint32(block[4:])
		s2 := binary.LittleEndian.Uint32(block[8:])
		s3 := binary.LittleEndian.Uint32(block[12:])

		for r := 31; r >= 0; r-- {
			k := rk[r*6 : r*6+6]
			t0 := s3
			t1 := bits.RotateLeft32(s0, -9) - (t0 ^ k[0]) ^ k[1]
			t2 := bits.RotateLeft32(s1, 5) - (t1 ^ k[2]) ^ k[3]
			t3 := bits.RotateLeft32(s2, 3) - (t2 ^ k[4]) ^ k[5]
			s0, s1, s2, s3 = t0, t1, t2, t3
		}

		binary.LittleEndian.PutUint32(out[off+0:], s0)
		binary.LittleEndian.PutUint32(out[off+4:], s1)
		binary.LittleEndian.PutUint32(out[off+8:], s2)
		binary.LittleEndian.PutUint32(out[off+12:], s3)
	}
	copy(out[off:], data[off:])
	return out
}

// EncryptLEA is the forward cipher matching DecryptLEA.
func EncryptLEA(data []byte, key [32]byte) []byte {
	rk := leaKeySchedule(key)
	out := make([]byte, len(data))

	off := 0
	for ; off+leaBlock <= len(data); off += leaBlock {
		block := data[off : off+leaBlock]
		x0 := binary.LittleEndian.Uint32(block[0:])
		x1 := binary.LittleEndian.Uint32(block[4:])
		x2 := binary.LittleEndian.Uint32(block[8:])
		x3 := binary.LittleEndian.Uint32(block[12:])

		for r := 0; r < 32; r++ {
			k := rk[r*6 : r*6+6]
			n0 := bits.RotateLeft32((x0^k[0])+(x1^k[1]), 9)
			n1 := bits.RotateLeft32((x1^k[2])+(x2^k[3]), -5)
			n2 := bits.RotateLeft32((x2^k[4])+(x3^k[5]), -3)
			x0, x1, x2, x3 = n0, n1, n2, x0
		}

		binary.LittleEndian.PutUint32(out[off+0:], x0)
		binary.LittleEndian.PutUint32(out[off+4:], x1)
		binary.LittleEndian.PutUint32(out[off+8:], x2)
		binary.LittleEndian.PutUint32(out[off+12:], x3)
	}
	copy(out[off:], data[off:])
	return out
}
