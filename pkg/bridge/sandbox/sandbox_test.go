package sandbox

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/macrokit/macrokit/pkg/bridge"
)

func newTestBridge(t *testing.T, denyPatterns []string) *Bridge {
	t.Helper()
	b, err := New(t.TempDir(), denyPatterns)
	require.NoError(t, err)
	return b
}

func TestBridge_WriteReadDelete(t *testing.T) {
	b := newTestBridge(t, nil)
	ctx := context.Background()

	resp := b.Send(ctx, bridge.FileOp{Kind: bridge.OpFileWrite, Name: "out.csv", Data: "a,b\n"})
	require.True(t, resp.OK, resp.Err)

	resp = b.Send(ctx, bridge.FileOp{Kind: bridge.OpFileRead, Name: "out.csv"})
	require.True(t, resp.OK, resp.Err)
	assert.Equal(t, "a,b\n", resp.Data)

	resp = b.Send(ctx, bridge.FileOp{Kind: bridge.OpFileDelete, Name: "out.csv"})
	require.True(t, resp.OK, resp.Err)

	_, err := os.Stat(filepath.Join(b.Root(), "out.csv"))
	assert.True(t, os.IsNotExist(err))
}

func TestBridge_AppendAccumulates(t *testing.T) {
	b := newTestBridge(t, nil)
	ctx := context.Background()

	require.True(t, b.Send(ctx, bridge.FileOp{Kind: bridge.OpFileAppend, Name: "log.txt", Data: "one\n"}).OK)
	require.True(t, b.Send(ctx, bridge.FileOp{Kind: bridge.OpFileAppend, Name: "log.txt", Data: "two\n"}).OK)

	resp := b.Send(ctx, bridge.FileOp{Kind: bridge.OpFileRead, Name: "log.txt"})
	require.True(t, resp.OK)
	assert.Equal(t, "one\ntwo\n", resp.Data)
}

func TestBridge_WriteCreatesSubdirectories(t *testing.T) {
	b := newTestBridge(t, nil)

	resp := b.Send(context.Background(), bridge.FileOp{Kind: bridge.OpFileWrite, Name: "reports/latest.csv", Data: "x"})
	require.True(t, resp.OK, resp.Err)

	data, err := os.ReadFile(filepath.Join(b.Root(), "reports", "latest.csv"))
	require.NoError(t, err)
	assert.Equal(t, "x", string(data))
}

func TestBridge_DeleteMissingReportsNotFound(t *testing.T) {
	b := newTestBridge(t, nil)

	resp := b.Send(context.Background(), bridge.FileOp{Kind: bridge.OpFileDelete, Name: "ghost.csv"})
	require.False(t, resp.OK)
	assert.NotEmpty(t, resp.Err)
}

func TestBridge_RejectsTraversal(t *testing.T) {
	b := newTestBridge(t, nil)

	for _, name := range []string{"../escape.txt", "a/../../escape.txt", "/etc/passwd"} {
		resp := b.Send(context.Background(), bridge.FileOp{Kind: bridge.OpFileRead, Name: name})
		assert.False(t, resp.OK, "expected %q to be rejected", name)
		assert.Contains(t, resp.Err, "outside the macros root")
	}
}

func TestBridge_DenyPatterns(t *testing.T) {
	b := newTestBridge(t, []string{"*.key", "secrets/**"})
	ctx := context.Background()

	resp := b.Send(ctx, bridge.FileOp{Kind: bridge.OpFileWrite, Name: "server.key", Data: "k"})
	require.False(t, resp.OK)
	assert.Contains(t, resp.Err, "denied by policy")

	resp = b.Send(ctx, bridge.FileOp{Kind: bridge.OpFileWrite, Name: "secrets/token.txt", Data: "t"})
	require.False(t, resp.OK)
	assert.Contains(t, resp.Err, "denied by policy")

	resp = b.Send(ctx, bridge.FileOp{Kind: bridge.OpFileWrite, Name: "public.txt", Data: "p"})
	assert.True(t, resp.OK, resp.Err)
}

func TestBridge_EmptyName(t *testing.T) {
	b := newTestBridge(t, nil)
	resp := b.Send(context.Background(), bridge.FileOp{Kind: bridge.OpFileRead, Name: ""})
	assert.False(t, resp.OK)
}

func TestNew_BadDenyPattern(t *testing.T) {
	_, err := New(t.TempDir(), []string{"[unclosed"})
	assert.Error(t, err)
}
