package shellpkg

import (
	"archive/tar"
	"bytes"
	"compress/gzip"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trunnion/axctl/pkg/mutualtls"
)

func untar(t *testing.T, eap []byte) map[string]string {
	t.Helper()

	gz, err := gzip.NewReader(bytes.NewReader(eap))
	require.NoError(t, err)
	defer gz.Close()

	tr := tar.NewReader(gz)
	files := map[string]string{}
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			break
		}
		require.NoError(t, err)
		contents, err := io.ReadAll(tr)
		require.NoError(t, err)
		files[hdr.Name] = string(contents)
	}
	return files
}

func TestStartPackage_Contents(t *testing.T) {
	id := SessionID("abc-123")
	pair, err := mutualtls.NewPair("trunnion shell " + string(id))
	require.NoError(t, err)

	eap, err := BuildStartPackage(id, 40000, pair.Server)
	require.NoError(t, err)

	files := untar(t, eap)
	assert.Contains(t, files, "package.conf")
	assert.Contains(t, files, "run.abc-123.sh")
	assert.Contains(t, files, "stunnel.conf")
	assert.Contains(t, files, "server.pem")
	assert.Contains(t, files, "client_ca.pem")

	assert.Contains(t, files["package.conf"], "run.abc-123.sh")
	assert.Contains(t, files["package.conf"], "trunnion shell abc-123")

	assert.Contains(t, files["run.abc-123.sh"], "/tmp/trunnion-shell.abc-123")
	assert.Contains(t, files["run.abc-123.sh"], "ssl_port=40000")

	assert.Contains(t, files["stunnel.conf"], "accept   = 40000")
	assert.Contains(t, files["stunnel.conf"], "/tmp/trunnion-shell.abc-123/server.pem")

	assert.True(t, strings.Contains(files["server.pem"], "PRIVATE KEY"))
	assert.True(t, strings.Contains(files["server.pem"], "CERTIFICATE"))
	assert.True(t, strings.Contains(files["client_ca.pem"], "CERTIFICATE"))
}

func TestEndPackage_Contents(t *testing.T) {
	id := SessionID("abc-123")

	eap, err := BuildEndPackage(id)
	require.NoError(t, err)

	files := untar(t, eap)
	require.Contains(t, files, "package.conf")

	conf := files["package.conf"]
	assert.Contains(t, conf, "/tmp/trunnion-shell.abc-123")
	assert.Contains(t, conf, "openssl.pid")
	assert.Contains(t, conf, "stunnel.pid")
	assert.Contains(t, conf, "trunnion shell abc-123")
}

func TestStartAndEndPackages_ShareWorkdirAndLoggerTag(t *testing.T) {
	id := SessionID("shared-session")
	pair, err := mutualtls.NewPair("trunnion shell " + string(id))
	require.NoError(t, err)

	startEAP, err := BuildStartPackage(id, 12345, pair.Server)
	require.NoError(t, err)
	endEAP, err := BuildEndPackage(id)
	require.NoError(t, err)

	startFiles := untar(t, startEAP)
	endFiles := untar(t, endEAP)

	workdir := id.WorkDir()
	tag := id.LoggerTag()

	assert.Contains(t, startFiles["run.shared-session.sh"], workdir)
	assert.Contains(t, endFiles["package.conf"], workdir)

	assert.Contains(t, startFiles["package.conf"], tag)
	assert.Contains(t, endFiles["package.conf"], tag)
}
