package crypto

import (
	"bytes"
	"testing"
)

func payload(n int) []byte {
	b := make([]byte, n)
	for i := range b {
		b[i] = byte(i*37 + 11)
	}
	return b
}

func TestXORRoundTrip(t *testing.T) {
	for _, n := range []int{0, 1, 15, 16, 17, 300} {
		plain := payload(n)
		enc := EncryptXOR(plain)
		if n > 0 && bytes.Equal(enc, plain) {
			t.Fatalf("n=%d: ciphertext equals plaintext", n)
		}
		if got := DecryptXOR(enc); !bytes.Equal(got, plain) {
			t.Fatalf("n=%d: round trip mismatch", n)
		}
	}
}

func TestXORFirstByte(t *testing.T) {
	// out[0] = (in[0] ^ key[0]) - 0x5E
	got := DecryptXOR([]byte{XORKey[0] ^ (0x10 + 0x5E)})
	if got[0] != 0x10 {
		t.Fatalf("got %#x", got[0])
	}
}

func TestLEARoundTrip(t *testing.T) {
	for _, n := range []int{16, 64, 70} {
		plain := payload(n)
		enc := EncryptLEA(plain, LEAKey)
		if bytes.Equal(enc[:16], plain[:16]) {
			t.Fatalf("n=%d: first block unchanged", n)
		}
		if got := DecryptLEA(enc, LEAKey); !bytes.Equal(got, plain) {
			t.Fatalf("n=%d: round trip mismatch", n)
		}
	}
}

func TestLEATailPassesThrough(t *testing.T) {
	plain := payload(20)
	enc := EncryptLEA(plain, LEAKey)
	if !bytes.Equal(enc[16:], plain[16:]) {
		t.Fatal("partial block was transformed")
	}
}

func TestLEAKeyMatters(t *testing.T) {
	plain := payload(32)
	other := LEAKey
	other[0] ^= 1
	if bytes.Equal(EncryptLEA(plain, LEAKey), EncryptLEA(plain, other)) {
		t.Fatal("different keys gave the same ciphertext")
	}
}
