package archive

import (
	"archive/tar"
	"compress/gzip"
	"bytes"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuild_RoundTrips(t *testing.T) {
	files := []File{
		NewFile("package.conf", []byte("echo hi\n")),
		NewExecutable("run.sh", []byte("#!/bin/sh\necho hi\n")),
	}

	out, err := Build(files)
	require.NoError(t, err)

	gz, err := gzip.NewReader(bytes.NewReader(out))
	require.NoError(t, err)
	defer gz.Close()

	tr := tar.NewReader(gz)

	var got []File
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			break
		}
		require.NoError(t, err)

		assert.Equal(t, 0, hdr.Uid)
		assert.Equal(t, 0, hdr.Gid)
		assert.Equal(t, byte(tar.TypeReg), hdr.Typeflag)

		contents, err := io.ReadAll(tr)
		require.NoError(t, err)

		got = append(got, File{Path: hdr.Name, Bytes: contents, Mode: hdr.Mode})
	}

	require.Len(t, got, 2)

	assert.Equal(t, "package.conf", got[0].Path)
	assert.Equal(t, int64(0644), got[0].Mode)
	assert.Equal(t, files[0].Bytes, got[0].Bytes)

	assert.Equal(t, "run.sh", got[1].Path)
	assert.Equal(t, int64(0755), got[1].Mode)
	assert.Equal(t, files[1].Bytes, got[1].Bytes)
}

func TestBuild_NoDirectoryEntries(t *testing.T) {
	out, err := Build([]File{NewFile("a/b/c.txt", []byte("x"))})
	require.NoError(t, err)

	gz, err := gzip.NewReader(bytes.NewReader(out))
	require.NoError(t, err)
	defer gz.Close()

	tr := tar.NewReader(gz)
	n := 0
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			break
		}
		require.NoError(t, err)
		assert.NotEqual(t, byte(tar.TypeDir), hdr.Typeflag)
		n++
	}
	assert.Equal(t, 1, n)
}

func TestBuild_EmptyFileListProducesValidStream(t *testing.T) {
	out, err := Build(nil)
	require.NoError(t, err)

	gz, err := gzip.NewReader(bytes.NewReader(out))
	require.NoError(t, err)
	defer gz.Close()

	tr := tar.NewReader(gz)
	_, err = tr.Next()
	assert.ErrorIs(t, err, io.EOF)
}
