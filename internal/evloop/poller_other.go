//go:build !linux

package evloop

import (
	"time"

	"golang.org/x/sys/unix"
)

// pollPoller is the portable fallback backend for non-Linux builds. It
// rebuilds the pollfd set from registered state on every wait instead of
// holding kernel-side registration, which costs more per call than epoll
// but needs nothing beyond POSIX poll(2).
type pollPoller struct {
	masks map[int]Mask
}

func newPoller() (poller, error) {
	return &pollPoller{masks: make(map[int]Mask)}, nil
}

func (p *pollPoller) add(fd int, mask Mask) error {
	p.masks[fd] = mask
	return nil
}

func (p *pollPoller) modify(fd int, mask Mask) error {
	p.masks[fd] = mask
	return nil
}

func (p *pollPoller) remove(fd int) error {
	delete(p.masks, fd)
	return nil
}

func (p *pollPoller) wait(timeout time.Duration) ([]event, error) {
	if len(p.masks) == 0 {
		time.Sleep(timeout)
		return nil, nil
	}
	fds := make([]unix.PollFd, 0, len(p.masks))
	order := make([]int, 0, len(p.masks))
	for fd, mask := range p.masks {
		var ev int16
		if mask&Readable != 0 {
			ev |= unix.POLLIN
		}
		if mask&Writable != 0 {
			ev |= unix.POLLOUT
		}
		fds = append(fds, unix.PollFd{Fd: int32(fd), Events: ev})
		order = append(order, fd)
	}
	ms := int(timeout / time.Millisecond)
	if ms <= 0 {
		ms = 1
	}
	n, err := unix.Poll(fds, ms)
	if err != nil {
		if err == unix.EINTR {
			return nil, nil
		}
		return nil, err
	}
	if n == 0 {
		return nil, nil
	}
	out := make([]event, 0, n)
	for i, pfd := range fds {
		if pfd.Revents == 0 {
			continue
		}
		var mask Mask
		if pfd.Revents&(unix.POLLIN|unix.POLLHUP|unix.POLLERR) != 0 {
			mask |= Readable
		}
		if pfd.Revents&unix.POLLOUT != 0 {
			mask |= Writable
		}
		out = append(out, event{fd: order[i], mask: mask})
	}
	return out, nil
}

func (p *pollPoller) close() error {
	return nil
}
