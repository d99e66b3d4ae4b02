//go:build linux

package evloop

import (
	"time"

	"golang.org/x/sys/unix"
)

// epollPoller is the Linux readiness backend, grounded on the raw-syscall
// completion-loop discipline used for io_uring submission/completion
// queues: one kernel-backed descriptor, level-triggered registration held
// in epoll itself rather than shadowed in Go state.
type epollPoller struct {
	epfd   int
	events []unix.EpollEvent
}

func newPoller() (poller, error) {
	fd, err := unix.EpollCreate1(unix.EPOLL_CLOEXEC)
	if err != nil {
		return nil, err
	}
	return &epollPoller{epfd: fd, events: make([]unix.EpollEvent, 256)}, nil
}

func toEpollEvents(mask Mask) uint32 {
	var ev uint32
	if mask&Readable != 0 {
		ev |= unix.EPOLLIN
	}
	if mask&Writable != 0 {
		ev |= unix.EPOLLOUT
	}
	return ev
}

func (p *epollPoller) add(fd int, mask Mask) error {
	ev := unix.EpollEvent{Events: toEpollEvents(mask), Fd: int32(fd)}
	return unix.EpollCtl(p.epfd, unix.EPOLL_CTL_ADD, fd, &ev)
}

func (p *epollPoller) modify(fd int, mask Mask) error {
	ev := unix.EpollEvent{Events: toEpollEvents(mask), Fd: int32(fd)}
	return unix.EpollCtl(p.epfd, unix.EPOLL_CTL_MOD, fd, &ev)
}

func (p *epollPoller) remove(fd int) error {
	return unix.EpollCtl(p.epfd, unix.EPOLL_CTL_DEL, fd, nil)
}

func (p *epollPoller) wait(timeout time.Duration) ([]event, error) {
	ms := int(timeout / time.Millisecond)
	if ms <= 0 {
		ms = 1
	}
	n, err := unix.EpollWait(p.epfd, p.events, ms)
	if err != nil {
		if err == unix.EINTR {
			return nil, nil
		}
		return nil, err
	}
	out := make([]event, 0, n)
	for i := 0; i < n; i++ {
		ev := p.events[i]
		var mask Mask
		if ev.Events&(unix.EPOLLIN|unix.EPOLLHUP|unix.EPOLLERR) != 0 {
			mask |= Readable
		}
		if ev.Events&unix.EPOLLOUT != 0 {
			mask |= Writable
		}
		out = append(out, event{fd: int(ev.Fd), mask: mask})
	}
	return out, nil
}

func (p *epollPoller) close() error {
	return unix.Close(p.epfd)
}
