package datasmith

import "errors"

const MESH_EXT string = ".udsmesh"
const SCENE_EXT string = ".udatasmith"

const MAX_UV_CHANNELS = 8

const (
	RAW_MESH_VERSION     uint32 = 1
	RAW_MESH_LIC_VERSION uint32 = 0
)

var (
	// format/version tag at offset 0
	meshHeader = []byte{0x01, 0x00, 0x00, 0x00, 0xfd, 0x04, 0x00, 0x00}
	// follows the mesh name
	meshNameTrailer = []byte{0x00, 0x01, 0x00, 0x00, 0x00}
	// 125 and four nulls, right after the two size fields
	rawMeshTag = []byte{0x7d, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00}
)

const (
	SOURCE_MODELS               = "SourceModels"
	STRUCT_PROPERTY             = "StructProperty"
	DATASMITH_MESH_SOURCE_MODEL = "DatasmithMeshSourceModel"
)

const (
	TEXTURE_MODE_DIFFUSE          = "0"
	TEXTURE_MODE_SPECULAR         = "1"
	TEXTURE_MODE_NORMAL           = "2"
	TEXTURE_MODE_NORMAL_GREEN_INV = "3"
	TEXTURE_MODE_DISPLACE         = "4"
	TEXTURE_MODE_OTHER            = "5"
	TEXTURE_MODE_BUMP             = "6"
)

var (
	ErrInvalidMesh       = errors.New("datasmith: invalid mesh")
	ErrTooManyUVChannels = errors.New("datasmith: too many uv channels")
	ErrShapeMismatch     = errors.New("datasmith: record shape mismatch")
	ErrBadContainer      = errors.New("datasmith: malformed mesh container")
	ErrAlreadySaved      = errors.New("datasmith: already saved")
)
