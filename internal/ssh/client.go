package ssh

import (
	"fmt"
	"io"
	"net"
	"os"
	"path/filepath"
	"strconv"

	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/knownhosts"
)

// Options describes how to reach an agent host
type Options struct {
	User string
	Host string
	Port int
	// KeyPath defaults to ~/.ssh/id_ed25519, then ~/.ssh/id_rsa
	KeyPath string
	// KnownHostsPath defaults to ~/.ssh/known_hosts
	KnownHostsPath string
	// InsecureIgnoreHostKey skips host key verification
	InsecureIgnoreHostKey bool
}

// Client represents an SSH client
type Client struct {
	Host   string
	User   string
	client *ssh.Client
}

// NewClient connects to an agent host
func NewClient(opts Options) (*Client, error) {
	if opts.Host == "" {
		return nil, fmt.Errorf("host is required")
	}
	if opts.User == "" {
		return nil, fmt.Errorf("user is required")
	}
	port := opts.Port
	if port == 0 {
		port = 22
	}

	key, err := readKey(opts.KeyPath)
	if err != nil {
		return nil, err
	}

	// Parse private key
	signer, err := ssh.ParsePrivateKey(key)
	if err != nil {
		return nil, fmt.Errorf("failed to parse private key: %w", err)
	}

	hostKeyCallback, err := hostKeyCallback(opts)
	if err != nil {
		return nil, err
	}

	config := &ssh.ClientConfig{
		User: opts.User,
		Auth: []ssh.AuthMethod{
			ssh.PublicKeys(signer),
		},
		HostKeyCallback: hostKeyCallback,
	}

	addr := net.JoinHostPort(opts.Host, strconv.Itoa(port))
	client, err := ssh.Dial("tcp", addr, config)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s@%s: %w", opts.User, addr, err)
	}

	return &Client{
		Host:   opts.Host,
		User:   opts.User,
		client: client,
	}, nil
}

// readKey loads the private key at path, or the first default key found
func readKey(path string) ([]byte, error) {
	if path != "" {
		key, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read SSH key: %w", err)
		}
		return key, nil
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("failed to get home directory: %w", err)
	}

	var lastErr error
	for _, name := range []string{"id_ed25519", "id_rsa"} {
		key, err := os.ReadFile(filepath.Join(home, ".ssh", name))
		if err == nil {
			return key, nil
		}
		lastErr = err
	}
	return nil, fmt.Errorf("failed to read SSH key: %w", lastErr)
}

func hostKeyCallback(opts Options) (ssh.HostKeyCallback, error) {
	if opts.InsecureIgnoreHostKey {
		return ssh.InsecureIgnoreHostKey(), nil
	}

	path := opts.KnownHostsPath
	if path == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to get home directory: %w", err)
		}
		path = filepath.Join(home, ".ssh", "known_hosts")
	}

	callback, err := knownhosts.New(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load known hosts (use --insecure to skip verification): %w", err)
	}
	return callback, nil
}

// Close closes the SSH connection
func (c *Client) Close() error {
	if c.client != nil {
		return c.client.Close()
	}
	return nil
}

// ExecuteInteractive runs a command and streams output to the given writers
func (c *Client) ExecuteInteractive(command string, stdout, stderr io.Writer) error {
	session, err := c.client.NewSession()
	if err != nil {
		return fmt.Errorf("failed to create session: %w", err)
	}
	defer func() { _ = session.Close() }()

	session.Stdout = stdout
	session.Stderr = stderr

	if err := session.Run(command); err != nil {
		return fmt.Errorf("command failed: %w", err)
	}

	return nil
}
