// Package shellpkg assembles the two on-device archives of one shell
// session: the start package, which launches a TLS-gated `sh -i` listener,
// and the end package, which kills it and cleans up. Both are grounded on
// the original Rust implementation's package.conf / run.sh templates
// (spec.md §4.3, §4.4); this package only changes how the bytes are
// produced (Go string formatting over archive.Build), never what they say.
package shellpkg

import (
	"fmt"

	"github.com/trunnion/axctl/pkg/archive"
	"github.com/trunnion/axctl/pkg/mutualtls"
)

// SessionID identifies one shell session end to end: it is embedded in the
// appliance working-directory path, the run-script filename, and every
// logger tag the payload scripts emit.
type SessionID string

// WorkDir returns the session-scoped path on the appliance that holds
// certificates, configs, and PID files.
func (id SessionID) WorkDir() string {
	return fmt.Sprintf("/tmp/trunnion-shell.%s", id)
}

// RunScriptName returns the filename package.conf searches for under /tmp
// to find the unpacked run script.
func (id SessionID) RunScriptName() string {
	return fmt.Sprintf("run.%s.sh", id)
}

// LoggerTag returns the `logger -t` tag every payload script line uses.
func (id SessionID) LoggerTag() string {
	return fmt.Sprintf("trunnion shell %s", id)
}

// BuildStartPackage returns the gzip(tar) archive that, once installed and
// run on the appliance, launches a mutually-authenticated TLS listener for
// `sh -i` on port.
func BuildStartPackage(id SessionID, port uint16, server mutualtls.Endpoint) ([]byte, error) {
	serverPEM := append(append([]byte{}, server.KeyPEM()...), server.CertificatePEM()...)
	clientCAPEM := server.PeerCAPEM()

	files := []archive.File{
		archive.NewFile("package.conf", startPackageConf(id)),
		archive.NewExecutable(id.RunScriptName(), runScript(id, port)),
		archive.NewFile("stunnel.conf", stunnelConf(id, port)),
		archive.NewFile("server.pem", serverPEM),
		archive.NewFile("client_ca.pem", clientCAPEM),
	}

	return archive.Build(files)
}

// BuildEndPackage returns the gzip(tar) archive that kills the listener
// launched by the start package (by PID file) and removes its working
// directory.
func BuildEndPackage(id SessionID) ([]byte, error) {
	files := []archive.File{
		archive.NewFile("package.conf", endPackageConf(id)),
	}
	return archive.Build(files)
}

func startPackageConf(id SessionID) []byte {
	return []byte(fmt.Sprintf(`
echo 'starting' | logger -t '%[1]s'
run=`+"`"+`find /tmp/ -name %[2]s | head -n1`+"`"+`
if [ -z "$run" ]
then
    echo 'fatal: unable to identify unpack directory' | logger -t '%[1]s'
else
    (
        exec $run </dev/null 2>&1
    ) &
    echo "$run is running as PID $!" | logger -t '%[1]s'
fi
sleep 3

false
`, id.LoggerTag(), id.RunScriptName()))
}

func runScript(id SessionID, port uint16) []byte {
	return []byte(fmt.Sprintf(`#!/bin/sh
# trunnion shell invocation
id=%[1]s
workdir=%[2]s
ssl_port=%[3]d

cd `+"`"+`dirname $0`+"`"+`

mkdir $workdir
mv server.pem client_ca.pem stunnel.conf $workdir/

export HOME=/root
export PATH=$PATH:/usr/sbin
export PS1=`+"`"+`hostname`+"`"+`'# '
cd

if command -v stunnel >/dev/null
then
  echo 'starting sh-over-SSL via `+"`"+`stunnel`+"`"+` on port '$ssl_port
  stunnel $workdir/stunnel.conf

elif command -v openssl >/dev/null 2>&1
then
  echo 'starting sh-over-SSL via `+"`"+`openssl`+"`"+` on port '$ssl_port

  mkfifo $workdir/c2s
  sh -i <$workdir/c2s 2>&1 | \
      openssl s_server -quiet \
      -port $ssl_port \
      -cert $workdir/server.pem \
      -key $workdir/server.pem \
      -CAfile $workdir/client_ca.pem \
      -Verify 1 \
      -verify_return_error \
      >$workdir/c2s &
  echo $! >$workdir/openssl.pid
else
  echo 'fatal: `+"`"+`stunnel`+"`"+` and `+"`"+`openssl`+"`"+` are not available'
fi

sleep 10
rm -r $workdir

false
`, id, id.WorkDir(), port))
}

func stunnelConf(id SessionID, port uint16) []byte {
	workdir := id.WorkDir()
	return []byte(fmt.Sprintf(`
pid      = %[2]s/stunnel.pid

[sh]
accept   = %[1]d
exec     = /bin/sh
execArgs = sh -i
cert     = %[2]s/server.pem
CAfile   = %[2]s/client_ca.pem
verifyChain = yes
`, port, workdir))
}

func endPackageConf(id SessionID) []byte {
	workdir := id.WorkDir()
	return []byte(fmt.Sprintf(`(
    workdir=%s
    [ -f $workdir/openssl.pid ] && kill `+"`"+`cat $workdir/openssl.pid`+"`"+`
    [ -f $workdir/stunnel.pid ] && kill `+"`"+`cat $workdir/stunnel.pid`+"`"+`
    [ -d $workdir ] && rm -r $workdir
    echo "terminated"
) | logger -t '%s' &

false
`, workdir, id.LoggerTag()))
}
