package datasmith

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"golang.org/x/sync/errgroup"
)

const xmlHeader = "<?xml version=\"1.0\" encoding=\"utf-8\"?>\n"

// Scene gathers everything written by one export pass.
type Scene struct {
	Name      string
	Meshes    []*Mesh
	Materials []*Material
	Textures  []*Texture
	Actors    []*ActorMesh
}

func NewScene(name string) *Scene {
	return &Scene{Name: name}
}

func (s *Scene) AddMesh(m *Mesh) *Mesh {
	s.Meshes = append(s.Meshes, m)
	return m
}

func (s *Scene) AddMaterial(m *Material) *Material {
	s.Materials = append(s.Materials, m)
	return m
}

func (s *Scene) AddTexture(t *Texture) *Texture {
	s.Textures = append(s.Textures, t)
	return t
}

func (s *Scene) AddActor(a *ActorMesh) *ActorMesh {
	s.Actors = append(s.Actors, a)
	return a
}

// AssetsFolder is the folder, relative to the export root, holding meshes
// and textures.
func (s *Scene) AssetsFolder(opts Options) string {
	return s.Name + opts.AssetsSuffix
}

// Node builds the scene document tree from the current state of the scene.
func (s *Scene) Node(opts Options) *Node {
	root := NewNode(opts.RootTag)
	root.Push(TextNode("Version", opts.Version))
	root.Push(TextNode("SDKVersion", opts.SDKVersion))
	root.Push(TextNode("Host", opts.Host))

	folder := s.AssetsFolder(opts)
	for _, t := range s.Textures {
		root.Push(t.Node(folder, opts.ExperimentalTextureMode))
	}
	for _, m := range s.Materials {
		root.Push(m.Node())
	}
	for _, m := range s.Meshes {
		root.Push(m.Node())
	}
	for _, a := range s.Actors {
		root.Push(a.Node())
	}
	return root
}

func (s *Scene) checkNames() error {
	seen := make(map[string]string)
	claim := func(file, owner string) error {
		if prev, ok := seen[file]; ok {
			return fmt.Errorf("%w: %s and %s both write %s", ErrInvalidMesh, prev, owner, file)
		}
		seen[file] = owner
		return nil
	}
	for _, m := range s.Meshes {
		if err := claim(m.FileName(), "mesh "+m.Name); err != nil {
			return err
		}
	}
	for _, t := range s.Textures {
		if err := claim(t.FileName(), "texture "+t.Name); err != nil {
			return err
		}
	}
	return nil
}

// Export writes every texture and mesh into the assets folder under basedir,
// then the scene document. Assets are written concurrently, at most
// opts.Workers at a time; the first failure cancels the rest and the scene
// document is not written. Meshes already saved to the same place by an
// earlier Export are kept as they are, so a failed export can be retried.
func (s *Scene) Export(ctx context.Context, basedir string, opts Options) error {
	if err := opts.normalize(); err != nil {
		return err
	}
	if err := s.checkNames(); err != nil {
		return err
	}
	folder := s.AssetsFolder(opts)
	if err := os.MkdirAll(filepath.Join(basedir, folder), os.ModePerm); err != nil {
		return err
	}
	Logger().Info("exporting scene", "name", s.Name, "meshes", len(s.Meshes), "textures", len(s.Textures))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(opts.Workers)
	for _, t := range s.Textures {
		t := t
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			return t.saveWith(basedir, folder, opts.Hash)
		})
	}
	for _, m := range s.Meshes {
		if m.savedUnder(basedir, folder) {
			Logger().Debug("mesh already saved", "name", m.Name, "path", m.RelativePath)
			continue
		}
		m := m
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			return m.saveWith(basedir, folder, opts.Hash)
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	doc := filepath.Join(basedir, s.Name+SCENE_EXT)
	root := s.Node(opts)
	if err := writeAtomic(doc, func(f io.WriteSeeker) error {
		if _, err := io.WriteString(f, xmlHeader); err != nil {
			return err
		}
		_, err := root.WriteTo(f)
		return err
	}); err != nil {
		return fmt.Errorf("write scene %q: %w", s.Name, err)
	}
	Logger().Info("scene written", "path", doc)
	return nil
}
