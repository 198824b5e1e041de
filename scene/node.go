package scene

import (
	"github.com/go-gl/mathgl/mgl64"

	"github.com/mogaika/fbxdoc/utils"
)

type Transform struct {
	Translation mgl64.Vec3
	Rotation    mgl64.Quat
	Scale       mgl64.Vec3
}

func IdentityTransform() Transform {
	return Transform{
		Rotation: mgl64.QuatIdent(),
		Scale:    mgl64.Vec3{1, 1, 1},
	}
}

type Node struct {
	Element

	Parent    *Node
	Children  []*Node
	Mesh      *Mesh
	Materials []*Material

	LocalTransform Transform
	// Euler order of "Lcl Rotation" in the source file. Animated
	// rotation curves are converted with it too.
	RotationOrder utils.RotationOrder
	PreRotation   mgl64.Quat
	PostRotation  mgl64.Quat
	hasPrePost    bool

	scene *Scene
}

func (n *Node) IsRoot() bool {
	return n.scene != nil && n.scene.Root() == n
}

// SetParent moves n under parent. A nil parent means the root.
func (n *Node) SetParent(parent *Node) {
	if parent == nil && n.scene != nil {
		parent = n.scene.Root()
	}
	if parent == n || n.IsRoot() {
		return
	}
	if n.Parent != nil {
		siblings := n.Parent.Children
		for i, c := range siblings {
			if c == n {
				n.Parent.Children = append(siblings[:i:i], siblings[i+1:]...)
				break
			}
		}
	}
	n.Parent = parent
	if parent != nil {
		parent.Children = append(parent.Children, n)
	}
}

// SetMesh makes m the node's render attribute.
func (n *Node) SetMesh(m *Mesh) {
	if n.Mesh == m {
		return
	}
	if n.Mesh != nil {
		n.Mesh.Instances = removeNode(n.Mesh.Instances, n)
	}
	n.Mesh = m
	if m != nil {
		m.Instances = append(m.Instances, n)
	}
}

func (n *Node) AddMaterial(m *Material) {
	for _, existing := range n.Materials {
		if existing == m {
			return
		}
	}
	n.Materials = append(n.Materials, m)
}

func (n *Node) SetTranslation(v mgl64.Vec3) { n.LocalTransform.Translation = v }
func (n *Node) SetScale(v mgl64.Vec3)       { n.LocalTransform.Scale = v }

// SetRotation sets the local rotation. Zero length quaternions reset it
// to identity.
func (n *Node) SetRotation(q mgl64.Quat) {
	if q.Len() < 1e-12 {
		q = mgl64.QuatIdent()
	}
	n.LocalTransform.Rotation = q.Normalize()
}

// rotationFromEuler applies the node's pre and post rotations around an
// euler rotation given in degrees.
func (n *Node) rotationFromEuler(euler mgl64.Vec3) mgl64.Quat {
	q := utils.EulerToQuat(euler, n.RotationOrder)
	if n.hasPrePost {
		q = n.PreRotation.Mul(q).Mul(n.PostRotation.Conjugate())
	}
	return q.Normalize()
}

func removeNode(list []*Node, n *Node) []*Node {
	for i, c := range list {
		if c == n {
			return append(list[:i:i], list[i+1:]...)
		}
	}
	return list
}
