package bmd

import (
	"bytes"
	"encoding/binary"
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"mu-rig-motion/internal/crypto"
)

type writer struct{ bytes.Buffer }

func (w *writer) put(v any) {
	if err := binary.Write(&w.Buffer, binary.LittleEndian, v); err != nil {
		panic(err)
	}
}

func (w *writer) name(s string) {
	var b [nameSize]byte
	copy(b[:], s)
	w.Write(b[:])
}

// tinyRig is a one-mesh, two-action, three-bone model whose second bone is a
// dummy and whose second action is empty.
func tinyRig() []byte {
	var w writer
	w.name("Caf\xe9")
	w.put(uint16(1)) // meshes
	w.put(uint16(3)) // bones
	w.put(uint16(2)) // actions

	w.put([5]int16{1, 1, 1, 1, 0})
	w.Write(make([]byte, vertexSize+normalSize+texCoordSize+triangleSize))
	w.name(`data\tex.jpg`)

	w.put(int16(2))
	w.put(byte(1))
	w.put([2][3]float32{{1, 2, 3}, {4, 5, 6}})
	w.put(int16(0))
	w.put(byte(0))

	w.put(byte(0))
	w.name("Bip01")
	w.put(int16(-1))
	w.put([2][3]float32{{0, 0, 10}, {0, 0, 20}})
	w.put([2][3]float32{{0, 0, 0}, {0, 0, 1.5}})

	w.put(byte(1))

	w.put(byte(0))
	w.name("Bip01 Spine")
	w.put(int16(0))
	w.put([2][3]float32{{5, 0, 0}, {5, 0, 0}})
	w.put([2][3]float32{{0.5, 0, 0}, {0.25, 0, 0}})
	return w.Bytes()
}

func wrap(version byte, payload []byte) []byte {
	out := []byte{'B', 'M', 'D', version}
	switch version {
	case 12:
		out = binary.LittleEndian.AppendUint32(out, uint32(len(payload)))
		return append(out, crypto.EncryptXOR(payload)...)
	case 15:
		out = binary.LittleEndian.AppendUint32(out, uint32(len(payload)))
		return append(out, crypto.EncryptLEA(payload, crypto.LEAKey)...)
	}
	return append(out, payload...)
}

func checkTiny(t *testing.T, m *Model) {
	t.Helper()
	if m.Name != "Café" {
		t.Fatalf("name %q", m.Name)
	}
	if len(m.Meshes) != 1 || m.Meshes[0].Vertices != 1 || m.Meshes[0].TexPath != "data/tex.jpg" {
		t.Fatalf("meshes %+v", m.Meshes)
	}
	if len(m.Actions) != 2 || m.Actions[0].Keys != 2 || !m.Actions[0].LockPositions || m.Actions[1].Keys != 0 {
		t.Fatalf("actions %+v", m.Actions)
	}
	if m.Actions[0].Locked[1] != [3]float32{4, 5, 6} {
		t.Fatalf("locked %v", m.Actions[0].Locked)
	}
	if len(m.Bones) != 3 {
		t.Fatalf("%d bones", len(m.Bones))
	}
	if !m.Bones[1].IsDummy || m.Bones[1].Parent != -1 {
		t.Fatalf("dummy bone %+v", m.Bones[1])
	}
	spine := m.Bones[2]
	if spine.Name != "Bip01 Spine" || spine.Parent != 0 {
		t.Fatalf("spine %+v", spine)
	}
	if got := spine.Keys[0].Rotations[1]; got != [3]float32{0.25, 0, 0} {
		t.Fatalf("spine key 1 rotation %v", got)
	}
	if len(spine.Keys[1].Positions) != 0 {
		t.Fatal("empty action has keys")
	}
	if got := m.Bones[0].BindPosition(); got != [3]float64{0, 0, 10} {
		t.Fatalf("root bind position %v", got)
	}
	if got := m.Bones[1].BindRotation(); got != [3]float64{} {
		t.Fatalf("dummy bind rotation %v", got)
	}
}

func TestParseBytesVersions(t *testing.T) {
	for _, v := range []byte{10, 12, 15} {
		m, err := ParseBytes(wrap(v, tinyRig()))
		if err != nil {
			t.Fatalf("v%d: %v", v, err)
		}
		if m.Version != v {
			t.Fatalf("version %d, want %d", m.Version, v)
		}
		checkTiny(t, m)
	}
}

func TestParseFile(t *testing.T) {
	p := filepath.Join(t.TempDir(), "tiny.bmd")
	if err := os.WriteFile(p, wrap(12, tinyRig()), 0644); err != nil {
		t.Fatal(err)
	}
	m, err := Parse(p)
	if err != nil {
		t.Fatal(err)
	}
	checkTiny(t, m)

	if _, err := Parse(filepath.Join(t.TempDir(), "missing.bmd")); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("got %v", err)
	}
}

func TestParseErrors(t *testing.T) {
	full := tinyRig()
	tests := []struct {
		name string
		raw  []byte
		want error
	}{
		{"bad magic", []byte("XYZ\x0a"), ErrHeader},
		{"short", []byte("BM"), ErrHeader},
		{"truncated body", wrap(10, full[:len(full)-5]), ErrTruncated},
		{"v12 size past end", []byte{'B', 'M', 'D', 12, 0xff, 0, 0, 0, 1, 2}, ErrTruncated},
		{"v15 no size", []byte{'B', 'M', 'D', 15, 1}, ErrTruncated},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := ParseBytes(tt.raw); !errors.Is(err, tt.want) {
				t.Fatalf("got %v, want %v", err, tt.want)
			}
		})
	}

	var w writer
	w.name("x")
	w.put([3]uint16{500, 0, 0})
	if _, err := ParseBytes(wrap(10, w.Bytes())); !errors.Is(err, ErrCount) {
		t.Fatalf("mesh count: got %v", err)
	}
}

// hugeActions declares n actions of maxKeys keys each and one bone, then
// ends before any key data.
func hugeActions(n int) []byte {
	var w writer
	w.name("huge")
	w.put([3]uint16{0, 1, uint16(n)})
	for i := 0; i < n; i++ {
		w.put(int16(maxKeys))
		w.put(byte(0))
	}
	w.put(byte(0))
	w.name("Bip01")
	w.put(int16(-1))
	return w.Bytes()
}

func TestParseTruncatedKeysStayBounded(t *testing.T) {
	raw := wrap(10, hugeActions(maxActions))

	var before, after runtime.MemStats
	runtime.GC()
	runtime.ReadMemStats(&before)
	_, err := ParseBytes(raw)
	runtime.ReadMemStats(&after)

	if !errors.Is(err, ErrTruncated) {
		t.Fatalf("got %v", err)
	}
	if grew := after.TotalAlloc - before.TotalAlloc; grew > 16<<20 {
		t.Fatalf("allocated %d bytes for a %d byte file", grew, len(raw))
	}

	if _, err := ParseBytes(wrap(10, hugeActions(maxActions+1))); !errors.Is(err, ErrCount) {
		t.Fatalf("action count: got %v", err)
	}
}
