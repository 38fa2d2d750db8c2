package memstore

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sharecache/sharecache/internal/shared"
	"github.com/sharecache/sharecache/pkg/types"
)

// testRepo holds main:/a/doc (shareable) linked under /b and other:/inbox.
type testRepo struct {
	repo             *Repository
	root, a, b, doc  types.NodeKey
	otherRoot, inbox types.NodeKey
}

func newTestRepo(t *testing.T) *testRepo {
	t.Helper()
	r := &testRepo{repo: NewRepository()}
	r.root = r.repo.CreateWorkspace("main")
	r.otherRoot = r.repo.CreateWorkspace("other")

	var err error
	r.a, err = r.repo.AddNode(r.root, "a", "a", false)
	require.NoError(t, err)
	r.b, err = r.repo.AddNode(r.root, "b", "b", false)
	require.NoError(t, err)
	r.doc, err = r.repo.AddNode(r.a, "doc", "doc", true)
	require.NoError(t, err)
	r.inbox, err = r.repo.AddNode(r.otherRoot, "inbox", "inbox", false)
	require.NoError(t, err)

	require.NoError(t, r.repo.Share(r.doc, r.b, ""))
	require.NoError(t, r.repo.Share(r.doc, r.inbox, ""))
	return r
}

func TestRepository_Workspaces(t *testing.T) {
	r := newTestRepo(t)
	assert.Equal(t, []string{"main", "other"}, r.repo.Workspaces())

	// Creating an existing workspace keeps its content.
	r.repo.CreateWorkspace("main")
	assert.True(t, r.repo.Exists(r.doc))
}

func TestRepository_AddNodeConflicts(t *testing.T) {
	r := newTestRepo(t)

	_, err := r.repo.AddNode(r.root, "other-name", "a", false)
	assert.ErrorIs(t, err, ErrExists, "duplicate id")

	_, err = r.repo.AddNode(r.root, "a", "a2", false)
	assert.ErrorIs(t, err, ErrExists, "duplicate name")

	_, err = r.repo.AddNode(types.NewNodeKey("main", "missing"), "x", "x", false)
	assert.ErrorIs(t, err, shared.ErrNotFound)

	_, err = r.repo.AddNode(r.root, "", "x", false)
	assert.Error(t, err)
}

func TestRepository_Lookup(t *testing.T) {
	r := newTestRepo(t)

	got, ok := r.repo.Lookup(r.doc)
	require.True(t, ok)
	want := Info{
		Key:        r.doc,
		Name:       "doc",
		Parent:     r.a,
		Shareable:  true,
		Additional: []types.NodeKey{r.b, r.inbox},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Lookup mismatch (-want +got):\n%s", diff)
	}

	_, ok = r.repo.Lookup(types.NewNodeKey("main", "missing"))
	assert.False(t, ok)
}

func TestRepository_ShareRules(t *testing.T) {
	r := newTestRepo(t)

	assert.ErrorIs(t, r.repo.Share(r.a, r.b, ""), ErrNotShareable)
	assert.ErrorIs(t, r.repo.Share(r.doc, r.b, "again"), ErrExists, "already linked under b")
	assert.ErrorIs(t, r.repo.Share(types.NewNodeKey("main", "nope"), r.b, ""), shared.ErrNotFound)

	folder, err := r.repo.AddNode(r.root, "shelf", "shelf", true)
	require.NoError(t, err)
	inner, err := r.repo.AddNode(folder, "inner", "inner", false)
	require.NoError(t, err)
	assert.ErrorIs(t, r.repo.Share(folder, inner, ""), ErrCycle)

	_, err = r.repo.AddNode(r.b, "taken", "taken", false)
	require.NoError(t, err)
	assert.ErrorIs(t, r.repo.Share(folder, r.b, "taken"), ErrExists, "name clash")
}

func TestRepository_Paths(t *testing.T) {
	r := newTestRepo(t)

	p, err := r.repo.PathOf(r.doc)
	require.NoError(t, err)
	assert.Equal(t, types.Path("/a/doc"), p)

	p, err = r.repo.ChildPath(r.b, r.doc)
	require.NoError(t, err)
	assert.Equal(t, types.Path("/b/doc"), p)

	p, err = r.repo.ChildPath(r.inbox, r.doc)
	require.NoError(t, err)
	assert.Equal(t, types.Path("/inbox/doc"), p)

	_, err = r.repo.ChildPath(r.root, r.doc)
	assert.ErrorIs(t, err, shared.ErrNotFound)

	_, err = r.repo.ChildPath(r.a, types.NewNodeKey("main", "gone"))
	assert.ErrorIs(t, err, shared.ErrInvalidState)
}

func TestRepository_NodeAtFollowsSharedLinks(t *testing.T) {
	r := newTestRepo(t)

	tests := []struct {
		ws   string
		path string
		want types.NodeKey
	}{
		{"main", "/", r.root},
		{"main", "/a/doc", r.doc},
		{"main", "/b/doc", r.doc},
		{"other", "/inbox/doc", r.doc},
		{"other", "/inbox", r.inbox},
	}
	for _, tt := range tests {
		t.Run(tt.ws+tt.path, func(t *testing.T) {
			got, err := r.repo.NodeAt(tt.ws, types.NewPath(tt.path))
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := r.repo.NodeAt("main", types.NewPath("/a/missing"))
	assert.ErrorIs(t, err, shared.ErrNotFound)
	_, err = r.repo.NodeAt("nope", types.Root)
	assert.ErrorIs(t, err, shared.ErrNotFound)
}

func TestRepository_UnlinkAdditional(t *testing.T) {
	r := newTestRepo(t)

	ch, err := r.repo.Unlink(r.doc, r.b)
	require.NoError(t, err)
	assert.Empty(t, ch.Destroyed)
	assert.Empty(t, ch.Reparented)

	parents, err := r.repo.AdditionalParents(r.doc)
	require.NoError(t, err)
	assert.Equal(t, []types.NodeKey{r.inbox}, parents)

	children, err := r.repo.Children(r.b)
	require.NoError(t, err)
	assert.Empty(t, children)
}

func TestRepository_UnlinkPrimaryPromotes(t *testing.T) {
	r := newTestRepo(t)

	ch, err := r.repo.Unlink(r.doc, r.a)
	require.NoError(t, err)
	assert.Equal(t, []types.NodeKey{r.doc}, ch.Reparented)
	assert.Empty(t, ch.Destroyed)

	info, ok := r.repo.Lookup(r.doc)
	require.True(t, ok)
	assert.Equal(t, r.b, info.Parent)
	assert.Equal(t, []types.NodeKey{r.inbox}, info.Additional)

	p, err := r.repo.PathOf(r.doc)
	require.NoError(t, err)
	assert.Equal(t, types.Path("/b/doc"), p)
}

func TestRepository_UnlinkSkipsForeignPromotion(t *testing.T) {
	r := newTestRepo(t)

	_, err := r.repo.Unlink(r.doc, r.b)
	require.NoError(t, err)

	// Only other:inbox is left and it cannot become primary.
	ch, err := r.repo.Unlink(r.doc, r.a)
	require.NoError(t, err)
	assert.Equal(t, []types.NodeKey{r.doc}, ch.Destroyed)
	assert.False(t, r.repo.Exists(r.doc))

	children, err := r.repo.Children(r.inbox)
	require.NoError(t, err)
	assert.Empty(t, children)
}

func TestRepository_UnlinkErrors(t *testing.T) {
	r := newTestRepo(t)

	_, err := r.repo.Unlink(r.doc, r.root)
	assert.ErrorIs(t, err, shared.ErrNotFound)
	_, err = r.repo.Unlink(r.root, types.NodeKey{})
	assert.Error(t, err)
	_, err = r.repo.Unlink(types.NewNodeKey("main", "nope"), r.root)
	assert.ErrorIs(t, err, shared.ErrNotFound)
}

func TestRepository_DestroySubtree(t *testing.T) {
	r := newTestRepo(t)
	x, err := r.repo.AddNode(r.a, "x", "x", false)
	require.NoError(t, err)
	y, err := r.repo.AddNode(x, "y", "y", false)
	require.NoError(t, err)

	ch, err := r.repo.Destroy(r.a)
	require.NoError(t, err)
	assert.ElementsMatch(t, []types.NodeKey{r.a, x, y}, ch.Destroyed)
	assert.Equal(t, []types.NodeKey{r.doc}, ch.Reparented, "doc survives under b")

	for _, k := range []types.NodeKey{r.a, x, y} {
		assert.False(t, r.repo.Exists(k), k.String())
	}
	p, err := r.repo.PathOf(r.doc)
	require.NoError(t, err)
	assert.Equal(t, types.Path("/b/doc"), p)

	_, err = r.repo.Destroy(r.root)
	assert.Error(t, err)
	_, err = r.repo.Destroy(r.a)
	assert.ErrorIs(t, err, shared.ErrNotFound)
}
