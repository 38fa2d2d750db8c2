package memstore

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/sharecache/sharecache/pkg/types"
)

// Fixture is the YAML description of a repository.
type Fixture struct {
	Workspaces []WorkspaceFixture `yaml:"workspaces"`
}

// WorkspaceFixture describes one workspace. Nodes are created in order, so
// a parent must be listed before its children.
type WorkspaceFixture struct {
	Name   string         `yaml:"name"`
	Nodes  []NodeFixture  `yaml:"nodes"`
	Shares []ShareFixture `yaml:"shares"`
}

// NodeFixture describes one node by its path.
type NodeFixture struct {
	Path string `yaml:"path"`

	// ID defaults to the path with slashes turned into dots ("/a/b" → "a.b").
	ID string `yaml:"id"`

	Shareable bool `yaml:"shareable"`
}

// ShareFixture links an existing shareable node under another parent.
type ShareFixture struct {
	// Node is the id of a node in the enclosing workspace, or a full
	// "workspace:id" key.
	Node string `yaml:"node"`

	// Parent is the path of the new parent.
	Parent string `yaml:"parent"`

	// Workspace holds the parent; defaults to the enclosing workspace.
	Workspace string `yaml:"workspace"`

	// Name under the new parent; defaults to the node's primary name.
	Name string `yaml:"name"`
}

// LoadFixtureFile reads a YAML fixture from path.
func LoadFixtureFile(path string) (*Repository, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("memstore: read fixture: %w", err)
	}
	return LoadFixture(bytes.NewReader(data))
}

// LoadFixture builds a Repository from a YAML fixture. Shares are applied
// after every workspace has its nodes, so they may point across workspaces.
func LoadFixture(r io.Reader) (*Repository, error) {
	var fx Fixture
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&fx); err != nil && err != io.EOF {
		return nil, fmt.Errorf("memstore: parse fixture: %w", err)
	}
	return fx.Build()
}

// Build creates the repository described by fx.
func (fx Fixture) Build() (*Repository, error) {
	repo := NewRepository()
	for _, ws := range fx.Workspaces {
		if ws.Name == "" {
			return nil, fmt.Errorf("memstore: fixture: workspace name is required")
		}
		repo.CreateWorkspace(ws.Name)
	}

	for _, ws := range fx.Workspaces {
		for i, nf := range ws.Nodes {
			p := types.NewPath(nf.Path)
			if p.IsRoot() {
				return nil, fmt.Errorf("memstore: fixture %s: nodes[%d]: path is required", ws.Name, i)
			}
			parent, err := repo.NodeAt(ws.Name, p.Parent())
			if err != nil {
				return nil, fmt.Errorf("memstore: fixture %s: nodes[%d] %s: %w", ws.Name, i, p, err)
			}
			id := nf.ID
			if id == "" {
				id = strings.ReplaceAll(strings.TrimPrefix(string(p), "/"), "/", ".")
			}
			if _, err := repo.AddNode(parent, p.Name(), id, nf.Shareable); err != nil {
				return nil, fmt.Errorf("memstore: fixture %s: nodes[%d]: %w", ws.Name, i, err)
			}
		}
	}

	for _, ws := range fx.Workspaces {
		for i, sf := range ws.Shares {
			key := types.NewNodeKey(ws.Name, sf.Node)
			if strings.Contains(sf.Node, ":") {
				k, err := types.ParseNodeKey(sf.Node)
				if err != nil {
					return nil, fmt.Errorf("memstore: fixture %s: shares[%d]: %w", ws.Name, i, err)
				}
				key = k
			}
			target := sf.Workspace
			if target == "" {
				target = ws.Name
			}
			parent, err := repo.NodeAt(target, types.NewPath(sf.Parent))
			if err != nil {
				return nil, fmt.Errorf("memstore: fixture %s: shares[%d]: %w", ws.Name, i, err)
			}
			if err := repo.Share(key, parent, sf.Name); err != nil {
				return nil, fmt.Errorf("memstore: fixture %s: shares[%d]: %w", ws.Name, i, err)
			}
		}
	}
	return repo, nil
}
