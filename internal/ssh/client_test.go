package ssh

import (
	"bytes"
	"crypto/ed25519"
	"crypto/rand"
	"encoding/pem"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/knownhosts"
)

// testServer is a minimal SSH server that answers "exec" requests by echoing
// the command back
type testServer struct {
	addr    string
	hostKey ssh.PublicKey
}

func startTestServer(t *testing.T, authorized ssh.PublicKey) *testServer {
	t.Helper()

	_, hostPriv, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)
	hostSigner, err := ssh.NewSignerFromKey(hostPriv)
	require.NoError(t, err)

	config := &ssh.ServerConfig{
		PublicKeyCallback: func(conn ssh.ConnMetadata, key ssh.PublicKey) (*ssh.Permissions, error) {
			if bytes.Equal(key.Marshal(), authorized.Marshal()) {
				return nil, nil
			}
			return nil, fmt.Errorf("unknown key for %s", conn.User())
		},
	}
	config.AddHostKey(hostSigner)

	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { _ = listener.Close() })

	go func() {
		for {
			conn, err := listener.Accept()
			if err != nil {
				return
			}
			go serveConn(conn, config)
		}
	}()

	return &testServer{addr: listener.Addr().String(), hostKey: hostSigner.PublicKey()}
}

func serveConn(conn net.Conn, config *ssh.ServerConfig) {
	_, chans, reqs, err := ssh.NewServerConn(conn, config)
	if err != nil {
		_ = conn.Close()
		return
	}
	go ssh.DiscardRequests(reqs)

	for newChannel := range chans {
		if newChannel.ChannelType() != "session" {
			_ = newChannel.Reject(ssh.UnknownChannelType, "unsupported")
			continue
		}
		channel, requests, err := newChannel.Accept()
		if err != nil {
			continue
		}
		go func() {
			defer func() { _ = channel.Close() }()
			for req := range requests {
				if req.Type != "exec" {
					_ = req.Reply(false, nil)
					continue
				}
				var payload struct{ Command string }
				_ = ssh.Unmarshal(req.Payload, &payload)
				_ = req.Reply(true, nil)

				_, _ = fmt.Fprintf(channel, "ran: %s\n", payload.Command)
				_, _ = channel.SendRequest("exit-status", false, ssh.Marshal(struct{ Status uint32 }{0}))
				return
			}
		}()
	}
}

func writeClientKey(t *testing.T, dir string) (string, ssh.PublicKey) {
	t.Helper()
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)

	block, err := ssh.MarshalPrivateKey(priv, "")
	require.NoError(t, err)

	path := filepath.Join(dir, "id_ed25519")
	require.NoError(t, os.WriteFile(path, pem.EncodeToMemory(block), 0600))

	sshPub, err := ssh.NewPublicKey(pub)
	require.NoError(t, err)
	return path, sshPub
}

func splitAddr(t *testing.T, addr string) (string, int) {
	t.Helper()
	host, portStr, err := net.SplitHostPort(addr)
	require.NoError(t, err)
	var port int
	_, err = fmt.Sscanf(portStr, "%d", &port)
	require.NoError(t, err)
	return host, port
}

func TestExecuteAgainstKnownHost(t *testing.T) {
	dir := t.TempDir()
	keyPath, clientPub := writeClientKey(t, dir)
	server := startTestServer(t, clientPub)
	host, port := splitAddr(t, server.addr)

	knownHostsPath := filepath.Join(dir, "known_hosts")
	line := knownhosts.Line([]string{knownhosts.Normalize(server.addr)}, server.hostKey)
	require.NoError(t, os.WriteFile(knownHostsPath, []byte(line+"\n"), 0600))

	client, err := NewClient(Options{
		User:           "fleet",
		Host:           host,
		Port:           port,
		KeyPath:        keyPath,
		KnownHostsPath: knownHostsPath,
	})
	require.NoError(t, err)
	defer func() { _ = client.Close() }()

	var stdout, stderr bytes.Buffer
	require.NoError(t, client.ExecuteInteractive("uptime", &stdout, &stderr))
	assert.Equal(t, "ran: uptime\n", stdout.String())

	// sessions are per command; the connection is reused
	stdout.Reset()
	require.NoError(t, client.ExecuteInteractive("hostname", &stdout, &stderr))
	assert.Equal(t, "ran: hostname\n", stdout.String())
}

func TestUnknownHostIsRejected(t *testing.T) {
	dir := t.TempDir()
	keyPath, clientPub := writeClientKey(t, dir)
	server := startTestServer(t, clientPub)
	host, port := splitAddr(t, server.addr)

	knownHostsPath := filepath.Join(dir, "known_hosts")
	require.NoError(t, os.WriteFile(knownHostsPath, nil, 0600))

	_, err := NewClient(Options{
		User: "fleet", Host: host, Port: port,
		KeyPath: keyPath, KnownHostsPath: knownHostsPath,
	})
	assert.Error(t, err)

	client, err := NewClient(Options{
		User: "fleet", Host: host, Port: port,
		KeyPath: keyPath, InsecureIgnoreHostKey: true,
	})
	require.NoError(t, err)
	assert.NoError(t, client.Close())
}

func TestNewClientValidation(t *testing.T) {
	_, err := NewClient(Options{User: "u"})
	assert.ErrorContains(t, err, "host is required")

	_, err = NewClient(Options{Host: "h"})
	assert.ErrorContains(t, err, "user is required")

	_, err = NewClient(Options{User: "u", Host: "h", KeyPath: filepath.Join(t.TempDir(), "missing")})
	assert.ErrorContains(t, err, "failed to read SSH key")
}

func TestMissingKnownHostsFile(t *testing.T) {
	_, err := hostKeyCallback(Options{KnownHostsPath: filepath.Join(t.TempDir(), "nope")})
	assert.ErrorContains(t, err, "--insecure")
}
