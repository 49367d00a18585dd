// Package bmd reads the skeleton and actions of MU Online BMD model files.
package bmd

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"os"
	"strings"

	"golang.org/x/text/encoding/charmap"

	"mu-rig-motion/internal/crypto"
)

var (
	ErrHeader    = errors.New("bmd: invalid header")
	ErrTruncated = errors.New("bmd: truncated data")
	ErrCount     = errors.New("bmd: implausible count")
)

const (
	maxMeshes  = 100
	maxBones   = 1000
	maxActions = 1000
	maxKeys    = 10000

	vertexSize   = 16
	normalSize   = 20
	texCoordSize = 8
	triangleSize = 64
	nameSize     = 32
)

// Parse reads a BMD file.
// Supports versions 10 (unencrypted), 12 (XOR), and 15 (LEA-256 ECB).
func Parse(filepath string) (*Model, error) {
	raw, err := os.ReadFile(filepath)
	if err != nil {
		return nil, fmt.Errorf("bmd: read %s: %w", filepath, err)
	}
	m, err := ParseBytes(raw)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", filepath, err)
	}
	return m, nil
}

// ParseBytes decodes a BMD image held in memory.
func ParseBytes(raw []byte) (*Model, error) {
	if len(raw) < 4 || string(raw[:3]) != "BMD" {
		return nil, ErrHeader
	}

	version := raw[3]
	var data []byte

	switch version {
	case 12, 15:
		if len(raw) < 8 {
			return nil, fmt.Errorf("v%d header: %w", version, ErrTruncated)
		}
		size := binary.LittleEndian.Uint32(raw[4:8])
		if 8+int(size) > len(raw) {
			return nil, fmt.Errorf("v%d data: %w", version, ErrTruncated)
		}
		if version == 15 {
			data = crypto.DecryptLEA(raw[8:8+size], crypto.LEAKey)
		} else {
			data = crypto.DecryptXOR(raw[8 : 8+size])
		}
	default:
		data = raw[4:]
	}

	r := &reader{data: data}
	m, err := r.parse()
	if err != nil {
		return nil, err
	}
	m.Version = version
	return m, nil
}

// reader returns zero values past the end and remembers that it did.
type reader struct {
	data  []byte
	off   int
	short bool
}

func (r *reader) take(n int) []byte {
	if n < 0 || r.off+n > len(r.data) {
		r.off = len(r.data)
		r.short = true
		return nil
	}
	b := r.data[r.off : r.off+n]
	r.off += n
	return b
}

func (r *reader) skip(n int) {
	r.take(n)
}

// readStr reads a fixed-width, NUL-terminated Windows-1252 string.
func (r *reader) readStr(n int) string {
	s := r.take(n)
	idx := 0
	for idx < len(s) && s[idx] != 0 {
		idx++
	}
	decoded, err := charmap.Windows1252.NewDecoder().Bytes(s[:idx])
	if err != nil {
		return strings.TrimSpace(string(s[:idx]))
	}
	return strings.TrimSpace(string(decoded))
}

func (r *reader) readI16() int16 {
	b := r.take(2)
	if b == nil {
		return 0
	}
	return int16(binary.LittleEndian.Uint16(b))
}

func (r *reader) readU16() uint16 {
	b := r.take(2)
	if b == nil {
		return 0
	}
	return binary.LittleEndian.Uint16(b)
}

func (r *reader) readF32() float32 {
	b := r.take(4)
	if b == nil {
		return 0
	}
	return math.Float32frombits(binary.LittleEndian.Uint32(b))
}

func (r *reader) readByte() byte {
	b := r.take(1)
	if b == nil {
		return 0
	}
	return b[0]
}

func (r *reader) readVec3() [3]float32 {
	return [3]float32{r.readF32(), r.readF32(), r.readF32()}
}

// readVec3s never allocates more than the remaining data can fill.
func (r *reader) readVec3s(n int) [][3]float32 {
	if n < 0 || n*12 > len(r.data)-r.off {
		r.take(-1)
		return nil
	}
	out := make([][3]float32, n)
	for i := range out {
		out[i] = r.readVec3()
	}
	return out
}

func (r *reader) parse() (*Model, error) {
	m := &Model{Name: r.readStr(nameSize)}
	meshCount := int(r.readU16())
	boneCount := int(r.readU16())
	actionCount := int(r.readU16())

	if meshCount > maxMeshes {
		return nil, fmt.Errorf("%w: %d meshes", ErrCount, meshCount)
	}
	if boneCount > maxBones {
		return nil, fmt.Errorf("%w: %d bones", ErrCount, boneCount)
	}
	if actionCount > maxActions {
		return nil, fmt.Errorf("%w: %d actions", ErrCount, actionCount)
	}

	m.Meshes = make([]MeshInfo, 0, meshCount)
	for i := 0; i < meshCount; i++ {
		mi := MeshInfo{
			Vertices:  int(r.readI16()),
			Normals:   int(r.readI16()),
			TexCoords: int(r.readI16()),
			Triangles: int(r.readI16()),
			Texture:   int(r.readI16()),
		}
		if mi.Vertices < 0 || mi.Normals < 0 || mi.TexCoords < 0 || mi.Triangles < 0 {
			return nil, fmt.Errorf("%w: mesh %d has negative element count", ErrCount, i)
		}
		r.skip(mi.Vertices*vertexSize + mi.Normals*normalSize + mi.TexCoords*texCoordSize + mi.Triangles*triangleSize)
		mi.TexPath = strings.ReplaceAll(r.readStr(nameSize), "\\", "/")
		m.Meshes = append(m.Meshes, mi)
	}

	m.Actions = make([]Action, actionCount)
	for a := range m.Actions {
		act := &m.Actions[a]
		act.Keys = int(r.readI16())
		if act.Keys < 0 || act.Keys > maxKeys {
			return nil, fmt.Errorf("%w: action %d has %d keys", ErrCount, a, act.Keys)
		}
		act.LockPositions = r.readByte() > 0
		if act.LockPositions {
			act.Locked = r.readVec3s(act.Keys)
		}
		if r.short {
			break
		}
	}

	m.Bones = make([]Bone, 0, boneCount)
	for b := 0; b < boneCount && !r.short; b++ {
		if r.readByte() > 0 {
			m.Bones = append(m.Bones, Bone{Parent: -1, IsDummy: true})
			continue
		}

		bone := Bone{
			Name:   r.readStr(nameSize),
			Parent: int(r.readI16()),
			Keys:   make([]BoneKeys, actionCount),
		}
		for a, act := range m.Actions {
			if act.Keys == 0 {
				continue
			}
			bone.Keys[a].Positions = r.readVec3s(act.Keys)
			bone.Keys[a].Rotations = r.readVec3s(act.Keys)
			if r.short {
				break
			}
		}
		m.Bones = append(m.Bones, bone)
	}

	if r.short {
		return nil, fmt.Errorf("%w: %d bytes, ran past end", ErrTruncated, len(r.data))
	}
	return m, nil
}
