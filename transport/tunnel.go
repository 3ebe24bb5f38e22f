// Package transport establishes the SSH tunnel between dev and exec and
// wraps the forwarded TCP connection with the request codec, matching
// spec.md §4.6.
package transport

import (
	"fmt"
	"io"
	"net"
	"os/user"
	"time"

	"github.com/pkg/errors"
	sshagent "github.com/xanzy/ssh-agent"
	"golang.org/x/crypto/ssh"

	"github.com/tangb/remotedev/internal/rdlog"
)

// ExecPort is the fixed TCP port the exec supervisor listens on, forwarded
// to over the tunnel (spec.md §4.6, §6).
const ExecPort = 52666

// dialTimeout bounds the initial SSH handshake.
const dialTimeout = 10 * time.Second

// TunnelConfig names the remote host the dev side connects to.
type TunnelConfig struct {
	Host     string
	Port     int // SSH port, defaults to 22
	Username string
	Password string // cleartext; callers reveal it before building this
}

// Tunnel is an SSH connection plus a local TCP listener forwarding to
// 127.0.0.1:ExecPort on the remote host.
type Tunnel struct {
	client   *ssh.Client
	listener net.Listener
}

// Open dials cfg.Host over SSH and starts forwarding an ephemeral local
// port to 127.0.0.1:ExecPort on the remote, the way the teacher's
// backend/sftp assembles an *ssh.ClientConfig: password auth when a
// password is configured, ssh-agent signers otherwise.
func Open(cfg TunnelConfig) (*Tunnel, error) {
	sshConfig, err := buildSSHConfig(cfg)
	if err != nil {
		return nil, err
	}

	port := cfg.Port
	if port == 0 {
		port = 22
	}
	addr := fmt.Sprintf("%s:%d", cfg.Host, port)

	client, err := ssh.Dial("tcp", addr, sshConfig)
	if err != nil {
		return nil, errors.Wrap(err, "ssh dial")
	}
	rdlog.Infof("transport.Tunnel", "connected to %s", addr)

	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		_ = client.Close()
		return nil, errors.Wrap(err, "local listener")
	}

	t := &Tunnel{client: client, listener: listener}
	go t.forward()
	return t, nil
}

// LocalAddr is the local address the socket layer should dial.
func (t *Tunnel) LocalAddr() string { return t.listener.Addr().String() }

// Close tears down the listener and the SSH client.
func (t *Tunnel) Close() error {
	_ = t.listener.Close()
	return t.client.Close()
}

// forward accepts local connections and pipes each to a fresh remote
// channel opened on the SSH connection, targeting 127.0.0.1:ExecPort.
func (t *Tunnel) forward() {
	remoteAddr := fmt.Sprintf("127.0.0.1:%d", ExecPort)
	for {
		local, err := t.listener.Accept()
		if err != nil {
			return
		}
		remote, err := t.client.Dial("tcp", remoteAddr)
		if err != nil {
			rdlog.Errorf("transport.Tunnel", "dial remote %s: %v", remoteAddr, err)
			_ = local.Close()
			continue
		}
		go pipe(local, remote)
	}
}

func pipe(a, b net.Conn) {
	done := make(chan struct{}, 2)
	go func() { _, _ = io.Copy(a, b); done <- struct{}{} }()
	go func() { _, _ = io.Copy(b, a); done <- struct{}{} }()
	<-done
	_ = a.Close()
	_ = b.Close()
}

func buildSSHConfig(cfg TunnelConfig) (*ssh.ClientConfig, error) {
	username := cfg.Username
	if username == "" {
		if u, err := user.Current(); err == nil {
			username = u.Username
		}
	}

	sshConfig := &ssh.ClientConfig{
		User:            username,
		Auth:            []ssh.AuthMethod{},
		HostKeyCallback: ssh.InsecureIgnoreHostKey(),
		Timeout:         dialTimeout,
	}

	if cfg.Password != "" {
		sshConfig.Auth = append(sshConfig.Auth, ssh.Password(cfg.Password))
		return sshConfig, nil
	}

	agentClient, _, err := sshagent.New()
	if err != nil {
		return nil, errors.Wrap(err, "couldn't connect to ssh-agent")
	}
	signers, err := agentClient.Signers()
	if err != nil {
		return nil, errors.Wrap(err, "couldn't read ssh-agent signers")
	}
	sshConfig.Auth = append(sshConfig.Auth, ssh.PublicKeys(signers...))
	return sshConfig, nil
}
