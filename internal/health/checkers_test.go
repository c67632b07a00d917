//go:build unix

package health

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/felixgeelhaar/auditd/internal/site"
)

// fakeInterpreter writes an executable that answers --version.
func fakeInterpreter(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "fake-node")
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\n"+body+"\n"), 0o755))
	return path
}

func TestCommandChecker(t *testing.T) {
	workspace := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(workspace, "scripts"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(workspace, "scripts", "publish.mjs"), nil, 0o644))

	good := fakeInterpreter(t, "echo v20.11.1")
	broken := fakeInterpreter(t, "exit 1")

	tests := []struct {
		name      string
		command   string
		script    string
		workspace string
		want      Status
	}{
		{"available", good, "scripts/publish.mjs", workspace, StatusHealthy},
		{"no script configured", good, "", "", StatusHealthy},
		{"missing command", "auditd-no-such-node", "", "", StatusUnhealthy},
		{"missing workspace", good, "", filepath.Join(workspace, "gone"), StatusUnhealthy},
		{"missing script", good, "scripts/other.mjs", workspace, StatusUnhealthy},
		{"version fails", broken, "", "", StatusDegraded},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := NewCommandChecker(tt.command, tt.script, tt.workspace)
			assert.Equal(t, "audit-command", c.Name())

			r := c.Check(context.Background())
			assert.Equal(t, tt.want, r.Status, r.Message)
		})
	}

	r := NewCommandChecker(good, "", "").Check(context.Background())
	assert.Equal(t, "v20.11.1", r.Details["version"])
}

func TestSitesChecker(t *testing.T) {
	content := t.TempDir()
	acme := site.Descriptor{Slug: "acme", Name: "Acme", URL: "https://acme.example", ContentDir: content}
	blog := site.Descriptor{Slug: "blog", Name: "Blog", URL: "https://blog.example"}

	tests := []struct {
		name  string
		sites []site.Descriptor
		want  Status
	}{
		{"none registered", nil, StatusUnhealthy},
		{"all available", []site.Descriptor{acme}, StatusHealthy},
		{"some missing", []site.Descriptor{acme, blog}, StatusDegraded},
		{"all missing", []site.Descriptor{blog}, StatusUnhealthy},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reg, err := site.NewRegistry(tt.sites)
			require.NoError(t, err)

			r := NewSitesChecker(reg).Check(context.Background())
			assert.Equal(t, tt.want, r.Status, r.Message)
		})
	}

	reg, err := site.NewRegistry([]site.Descriptor{acme, blog})
	require.NoError(t, err)
	r := NewSitesChecker(reg).Check(context.Background())
	assert.Equal(t, "1 of 2 sites available", r.Message)
	assert.Equal(t, []string{"blog"}, r.Details["unavailable"])
}
