package datasmith

import (
	"fmt"

	"github.com/flywave/go3d/vec4"
)

type PropertyType string

const (
	PROPERTY_COLOR   PropertyType = "Color"
	PROPERTY_FLOAT   PropertyType = "Float"
	PROPERTY_TEXTURE PropertyType = "Texture"
	PROPERTY_BOOL    PropertyType = "Bool"
)

const MASTER_MATERIAL_OPAQUE = "1"

type Property struct {
	Name  string
	Type  PropertyType
	Value string
}

// Material is a master material whose parameters are key/value properties.
type Material struct {
	Name       string
	Label      string
	Properties []Property
}

func NewMaterial(name string) *Material {
	return &Material{Name: name, Label: name}
}

func (m *Material) set(name string, ty PropertyType, value string) {
	for i := range m.Properties {
		if m.Properties[i].Name == name {
			m.Properties[i] = Property{name, ty, value}
			return
		}
	}
	m.Properties = append(m.Properties, Property{name, ty, value})
}

// SetColor stores a linear RGBA color.
func (m *Material) SetColor(name string, c vec4.T) {
	m.set(name, PROPERTY_COLOR, fmt.Sprintf("(R=%s,G=%s,B=%s,A=%s)",
		formatFloat(float64(c[0])), formatFloat(float64(c[1])), formatFloat(float64(c[2])), formatFloat(float64(c[3]))))
}

func (m *Material) SetFloat(name string, v float32) {
	m.set(name, PROPERTY_FLOAT, formatFloat(float64(v)))
}

func (m *Material) SetTexture(name string, tex *Texture) {
	m.set(name, PROPERTY_TEXTURE, tex.Name)
}

func (m *Material) SetBool(name string, v bool) {
	if v {
		m.set(name, PROPERTY_BOOL, "true")
	} else {
		m.set(name, PROPERTY_BOOL, "false")
	}
}

func (m *Material) Node() *Node {
	n := NewNode("MasterMaterial",
		Attr{"name", m.Name},
		Attr{"label", m.Label},
		Attr{"Type", MASTER_MATERIAL_OPAQUE})
	for _, p := range m.Properties {
		n.Push(NewNode("KeyValueProperty",
			Attr{"name", p.Name},
			Attr{"type", string(p.Type)},
			Attr{"val", p.Value}))
	}
	return n
}
