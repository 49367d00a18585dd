package bmd

// Model is the rig part of a BMD file. Mesh geometry is skipped; only the
// per-mesh counts and texture references are kept.
type Model struct {
	Name    string
	Version byte
	Meshes  []MeshInfo
	Actions []Action
	Bones   []Bone
}

// MeshInfo summarises one sub-mesh.
type MeshInfo struct {
	Vertices  int
	Normals   int
	TexCoords int
	Triangles int
	Texture   int
	TexPath   string // texture reference from BMD (e.g. "sword04.jpg")
}

// Action is one animation clip header. When LockPositions is set the file
// carries a per-key root offset in Locked.
type Action struct {
	Keys          int
	LockPositions bool
	Locked        [][3]float32
}

// Bone holds the keyframes of one bone. Keys[a] is empty for actions without
// keys. Dummy bones carry no name, parent or keys.
type Bone struct {
	Name    string
	Parent  int
	IsDummy bool
	Keys    []BoneKeys
}

// BoneKeys are the per-key local position and Euler XYZ rotation (radians)
// of a bone within one action.
type BoneKeys struct {
	Positions [][3]float32
	Rotations [][3]float32
}

// BindPosition is the first key of the first action, which MU uses as the
// rest pose.
func (b Bone) BindPosition() [3]float64 {
	if len(b.Keys) == 0 || len(b.Keys[0].Positions) == 0 {
		return [3]float64{}
	}
	p := b.Keys[0].Positions[0]
	return [3]float64{float64(p[0]), float64(p[1]), float64(p[2])}
}

// BindRotation is the Euler XYZ rotation paired with BindPosition.
func (b Bone) BindRotation() [3]float64 {
	if len(b.Keys) == 0 || len(b.Keys[0].Rotations) == 0 {
		return [3]float64{}
	}
	r := b.Keys[0].Rotations[0]
	return [3]float64{float64(r[0]), float64(r[1]), float64(r[2])}
}
