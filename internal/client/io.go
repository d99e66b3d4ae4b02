package client

import (
	"fmt"

	"golang.org/x/sys/unix"

	"github.com/adred-codev/redisbench/internal/evloop"
	"github.com/adred-codev/redisbench/internal/resp"
)

// onWritable is the write path: confirm a pending nonblocking connect,
// start a new pipeline when nothing has been written yet, then flush as
// much of obuf as the socket accepts.
func (c *Client) onWritable(l *evloop.Loop, fd int, _ evloop.Mask) {
	if !c.connected {
		errno, err := unix.GetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_ERROR)
		if err != nil || errno != 0 {
			c.owner.Fatal(fmt.Errorf("connect failed: errno=%d err=%w", errno, err))
			c.Destroy()
			return
		}
		c.connected = true
	}

	if c.written == 0 {
		if !c.owner.BeginRequest() {
			c.Destroy()
			return
		}
		if c.cfg.RandomKeys {
			c.Randomize()
		}
		c.startUs = nowUs()
		c.latencyUs = -1
	}

	if c.written >= len(c.obuf) {
		return
	}

	n, err := unix.Write(fd, c.obuf[c.written:])
	if err != nil {
		if err == unix.EAGAIN {
			return
		}
		if err != unix.EPIPE {
			c.owner.Fatal(fmt.Errorf("write: %w", err))
		}
		c.Destroy()
		return
	}
	c.written += n
	if c.written == len(c.obuf) {
		l.DeleteFileEvent(fd, evloop.Writable)
		_ = l.CreateFileEvent(fd, evloop.Readable, func(l *evloop.Loop, fd int, mask evloop.Mask) {
			c.onReadable(l, fd, mask)
		})
	}
}

// onReadable is the read path: freeze pipeline latency on the first byte
// observed, then drain every complete reply
// the parser yields, handling prefix-command discard and latency
// recording before handing off to the lifecycle controller.
func (c *Client) onReadable(_ *evloop.Loop, fd int, _ evloop.Mask) {
	if c.latencyUs < 0 {
		c.latencyUs = nowUs() - c.startUs
	}

	n, err := unix.Read(fd, c.rbuf)
	if err != nil {
		if err == unix.EAGAIN {
			return
		}
		c.owner.Fatal(fmt.Errorf("read: %w", err))
		c.Destroy()
		return
	}
	if n == 0 {
		c.owner.Fatal(fmt.Errorf("connection closed by peer"))
		c.Destroy()
		return
	}
	c.parser.Feed(c.rbuf[:n])

	for c.pending > 0 {
		reply, ok, err := c.parser.Next()
		if err != nil {
			c.owner.Fatal(fmt.Errorf("protocol error: %w", err))
			c.Destroy()
			return
		}
		if !ok {
			break
		}
		if reply.Kind == resp.KindError {
			c.owner.ReportServerError(reply.Str)
		}

		if c.prefixPending > 0 {
			c.prefixPending--
			c.pending--
			if c.prefixPending == 0 && c.prefixLen > 0 {
				c.obuf = append(c.obuf[:0:0], c.obuf[c.prefixLen:]...)
				for i := range c.randptr {
					c.randptr[i] -= c.prefixLen
				}
				c.prefixLen = 0
			}
			continue
		}

		c.owner.RecordLatency(c.latencyUs)
		c.pending--
		if c.pending == 0 {
			c.owner.Retire(c)
			return
		}
	}
}
