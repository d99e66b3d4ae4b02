package client

import (
	"fmt"
	"net"

	"golang.org/x/sys/unix"

	"github.com/adred-codev/redisbench/internal/config"
)

// dial opens a nonblocking socket to the configured endpoint and issues a
// nonblocking connect. Completion (or failure) is observed on the first
// writable event, matching the classic nonblocking-connect pattern: the
// raw file descriptor is handed straight to the readiness loop instead of
// going through net.Conn, since net's own background poller would
// otherwise race this package's single-threaded one.
func dial(cfg *config.Config) (int, error) {
	if cfg.HostSocket != "" {
		return dialUnix(cfg.HostSocket)
	}
	return dialTCP(cfg.Host, cfg.Port)
}

func dialUnix(path string) (int, error) {
	fd, err := unix.Socket(unix.AF_UNIX, unix.SOCK_STREAM, 0)
	if err != nil {
		return -1, fmt.Errorf("socket: %w", err)
	}
	if err := unix.SetNonblock(fd, true); err != nil {
		unix.Close(fd)
		return -1, fmt.Errorf("set nonblock: %w", err)
	}
	sa := &unix.SockaddrUnix{Name: path}
	if err := unix.Connect(fd, sa); err != nil && err != unix.EINPROGRESS {
		unix.Close(fd)
		return -1, fmt.Errorf("connect %s: %w", path, err)
	}
	return fd, nil
}

func dialTCP(host string, port int) (int, error) {
	ips, err := net.LookupIP(host)
	if err != nil || len(ips) == 0 {
		return -1, fmt.Errorf("resolve %s: %w", host, err)
	}
	ip4 := ips[0].To4()
	domain := unix.AF_INET
	if ip4 == nil {
		domain = unix.AF_INET6
	}

	fd, err := unix.Socket(domain, unix.SOCK_STREAM, 0)
	if err != nil {
		return -1, fmt.Errorf("socket: %w", err)
	}
	if err := unix.SetNonblock(fd, true); err != nil {
		unix.Close(fd)
		return -1, fmt.Errorf("set nonblock: %w", err)
	}

	var sa unix.Sockaddr
	if ip4 != nil {
		var addr [4]byte
		copy(addr[:], ip4)
		sa = &unix.SockaddrInet4{Port: port, Addr: addr}
	} else {
		var addr [16]byte
		copy(addr[:], ips[0].To16())
		sa = &unix.SockaddrInet6{Port: port, Addr: addr}
	}

	if err := unix.Connect(fd, sa); err != nil && err != unix.EINPROGRESS {
		unix.Close(fd)
		return -1, fmt.Errorf("connect %s:%d: %w", host, port, err)
	}
	return fd, nil
}
