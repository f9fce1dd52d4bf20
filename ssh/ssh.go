package ssh

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/agent"
)

const (
	defaultPort = "22"
	dialTimeout = 10 * time.Second

	// sshd comes up some time after the public dns name is assigned
	backoffModifier = 5 * time.Second
	maxTries        = 6
)

type Client struct {
	addr   string
	config *ssh.ClientConfig
}

// NewClient authenticates with the private key at keyPath, or through the
// running ssh-agent when keyPath is empty.
func NewClient(username, host, keyPath string) (*Client, error) {
	var auth ssh.AuthMethod
	var err error
	if keyPath != "" {
		auth, err = privateKey(keyPath)
	} else {
		auth, err = sshAgent()
	}
	if err != nil {
		return nil, err
	}

	return &Client{
		addr: net.JoinHostPort(host, defaultPort),
		config: &ssh.ClientConfig{
			User: username,
			Auth: []ssh.AuthMethod{
				auth,
			},
			// fresh spot instances have unknown host keys
			HostKeyCallback: ssh.InsecureIgnoreHostKey(),
			Timeout:         dialTimeout,
		},
	}, nil
}

type Session struct {
	*ssh.Session
	conn *ssh.Client
}

func (s *Session) Close() error {
	s.Session.Close()
	return s.conn.Close()
}

func (c *Client) Session() (*Session, error) {
	conn, err := ssh.Dial("tcp", c.addr, c.config)
	if err != nil {
		return nil, err
	}

	session, err := conn.NewSession()
	if err != nil {
		conn.Close()
		return nil, err
	}
	return &Session{Session: session, conn: conn}, nil
}

// Ping opens and closes a session.
func (c *Client) Ping() error {
	s, err := c.Session()
	if err != nil {
		return err
	}
	return s.Close()
}

// WaitForReachable checks the instance for SSH readiness with exponential backoff.
func WaitForReachable(ctx context.Context, c *Client, logger *zerolog.Logger) error {
	return waitForReachable(ctx, c.Ping, c.addr, backoffModifier, logger)
}

func waitForReachable(ctx context.Context, ping func() error, addr string, modifier time.Duration, logger *zerolog.Logger) error {
	var err error
	for i := 0.0; i < maxTries; i++ {
		if err = ping(); err == nil {
			return nil
		}
		backoff := time.Duration(math.Pow(2.0, i)) * modifier
		logger.Info().Err(err).Str("addr", addr).Msgf("not yet reachable, trying again in %s", backoff)
		select {
		case <-time.After(backoff): // 5s to 160s
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return errors.Join(errors.New("not reachable after configured timeout"), err)
}

func expandHome(path string) (string, error) {
	if !strings.HasPrefix(path, "~/") {
		return path, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, path[2:]), nil
}

func privateKey(keyPath string) (ssh.AuthMethod, error) {
	path, err := expandHome(keyPath)
	if err != nil {
		return nil, err
	}

	pem, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("could not read key file: %w", err)
	}

	signer, err := ssh.ParsePrivateKey(pem)
	if err != nil {
		return nil, fmt.Errorf("could not parse key file %s: %w", path, err)
	}
	return ssh.PublicKeys(signer), nil
}

func sshAgent() (ssh.AuthMethod, error) {
	sshAgent, err := net.Dial("unix", os.Getenv("SSH_AUTH_SOCK"))
	if err != nil {
		return nil, fmt.Errorf("failed to dial SSH_AUTH_SOCKET %w", err)
	}

	c := agent.NewClient(sshAgent)
	auth := ssh.PublicKeysCallback(c.Signers)

	return auth, nil
}
