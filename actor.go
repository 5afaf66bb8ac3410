package datasmith

import (
	"github.com/flywave/go3d/quaternion"
	"github.com/flywave/go3d/vec3"
)

// ActorMesh places a static mesh in the scene.
type ActorMesh struct {
	Name        string
	Label       string
	Mesh        string
	Translation vec3.T
	Rotation    quaternion.T
	Scale       vec3.T
	Children    []*ActorMesh
}

func NewActorMesh(name, mesh string) *ActorMesh {
	return &ActorMesh{
		Name:     name,
		Label:    name,
		Mesh:     mesh,
		Rotation: quaternion.Ident,
		Scale:    vec3.T{1, 1, 1},
	}
}

func (a *ActorMesh) Node() *Node {
	n := NewNode("ActorMesh", Attr{"name", a.Name}, Attr{"label", a.Label})
	t := NewNode("Transform")
	for _, kv := range []struct {
		key string
		v   float32
	}{
		{"tx", a.Translation[0]}, {"ty", a.Translation[1]}, {"tz", a.Translation[2]},
		{"sx", a.Scale[0]}, {"sy", a.Scale[1]}, {"sz", a.Scale[2]},
		{"qx", a.Rotation[0]}, {"qy", a.Rotation[1]}, {"qz", a.Rotation[2]}, {"qw", a.Rotation[3]},
	} {
		t.Set(kv.key, formatFloat(float64(kv.v)))
	}
	n.Push(t)
	if a.Mesh != "" {
		n.Push(NewNode("mesh", Attr{"name", a.Mesh}))
	}
	if len(a.Children) > 0 {
		c := NewNode("children", Attr{"visible", "true"})
		for _, ch := range a.Children {
			c.Push(ch.Node())
		}
		n.Push(c)
	}
	return n
}
