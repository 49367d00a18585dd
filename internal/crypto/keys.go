// Package crypto decrypts the payload of encrypted BMD files: chained XOR for
// version 12 and LEA-256 ECB for version 15.
package crypto

// XORKey is the 16-byte key of the v12 chained XOR.
var XORKey = [16]byte{
	0xD1, 0x73, 0x52, 0xF6, 0xD2, 0x9A, 0xCB, 0x27,
	0x3E, 0xAF, 0x59, 0x31, 0x37, 0xB3, 0xE7, 0xA2,
}

// LEAKey is the 256-bit key of the v15 payload.
var LEAKey = [32]byte{
	0xcc, 0x50, 0x45, 0x13, 0xc2, 0xa6, 0x57, 0x4e,
	0xd6, 0x9a, 0x45, 0x89, 0xbf, 0x2f, 0xbc, 0xd9,
	0x39, 0xb3, 0xb3, 0xbd, 0x50, 0xbd, 0xcc, 0xb6,
	0x85, 0x46, 0xd1, 0xd6, 0x16, 0x54, 0xe0, 0x87,
}

// LEAKeyDelta are the key schedule constants of LEA.
var LEAKeyDelta = [8]uint32{
	0xc3efe9db, 0x44626b02, 0x79e27c8a, 0x78df30ec,
	0x715ea49e, 0xc785da0a, 0xe04ef22a, 0xe5c40957,
}
