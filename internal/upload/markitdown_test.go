// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package upload

import (
	"context"
	"errors"
	"io"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRuntime struct {
	imageErr error
	output   string
	runErr   error
	gotInput string
}

func (f *fakeRuntime) Name() string                   { return "docker" }
func (f *fakeRuntime) Available(context.Context) bool { return true }
func (f *fakeRuntime) ImageExists(context.Context, string) error {
	return f.imageErr
}

func (f *fakeRuntime) Run(_ context.Context, _ string, stdin io.Reader, stdout io.Writer) error {
	data, _ := io.ReadAll(stdin)
	f.gotInput = string(data)
	if f.runErr != nil {
		return f.runErr
	}
	_, err := io.WriteString(stdout, f.output)
	return err
}

func TestNewMarkitdownConverterMissingImage(t *testing.T) {
	_, err := NewMarkitdownConverter(context.Background(), &fakeRuntime{imageErr: errors.New("no such image")})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "markitdown image not available in docker")
}

func TestMarkitdownConvert(t *testing.T) {
	path := writeFile(t, t.TempDir(), "p.pdf", "%PDF-1.7 bytes")
	rt := &fakeRuntime{output: "# Title\nbody"}
	c, err := NewMarkitdownConverter(context.Background(), rt)
	require.NoError(t, err)

	text, err := c.Convert(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, "# Title\nbody", text)
	assert.Equal(t, "%PDF-1.7 bytes", rt.gotInput)
}

func TestMarkitdownConvertErrors(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "p.pdf", "%PDF")

	c := &MarkitdownConverter{runtime: &fakeRuntime{}, image: MarkitdownImage}
	_, err := c.Convert(context.Background(), path)
	assert.ErrorContains(t, err, "empty output")

	c = &MarkitdownConverter{runtime: &fakeRuntime{runErr: errors.New("exit status 1")}, image: MarkitdownImage}
	_, err = c.Convert(context.Background(), path)
	assert.ErrorContains(t, err, "exit status 1")

	_, err = c.Convert(context.Background(), filepath.Join(dir, "absent.pdf"))
	assert.ErrorContains(t, err, "opening PDF")
}
