//go:build js && wasm

package main

import (
	"io"
	"sync"
	"syscall/js"
)

// wsConn is a browser WebSocket delivering whole binary messages.
type wsConn struct {
	ws js.Value

	mu     sync.Mutex // the js onclose event can preempt send
	closed bool

	readCh chan []byte
	openCh chan struct{} // closed when connected
	err    error
}

func dialWS(url string) *wsConn {
	ws := js.Global().Get("WebSocket").New(url)
	c := &wsConn{
		ws:     ws,
		readCh: make(chan []byte, 256),
		openCh: make(chan struct{}),
	}

	ws.Set("binaryType", "arraybuffer")

	ws.Set("onopen", js.FuncOf(func(js.Value, []js.Value) any {
		close(c.openCh)
		return nil
	}))

	ws.Set("onerror", js.FuncOf(func(js.Value, []js.Value) any {
		c.mu.Lock()
		defer c.mu.Unlock()
		c.err = io.ErrUnexpectedEOF
		select {
		case <-c.openCh:
		default:
			close(c.openCh)
		}
		return nil
	}))

	ws.Set("onmessage", js.FuncOf(func(this js.Value, args []js.Value) any {
		data := args[0].Get("data")
		if !data.InstanceOf(js.Global().Get("ArrayBuffer")) {
			logScreenf("ignoring a text message")
			return nil
		}
		u8 := js.Global().Get("Uint8Array").New(data)
		b := make([]byte, u8.Get("byteLength").Int())
		js.CopyBytesToGo(b, u8)
		c.mu.Lock()
		closed := c.closed
		c.mu.Unlock()
		if !closed {
			c.readCh <- b
		}
		return nil
	}))

	ws.Set("onclose", js.FuncOf(func(js.Value, []js.Value) any {
		logScreenf("websocket closed")
		c.mu.Lock()
		defer c.mu.Unlock()
		if !c.closed {
			c.closed = true
			close(c.readCh)
		}
		return nil
	}))

	return c
}

// read returns the next message, io.EOF once the socket is closed.
func (c *wsConn) read() ([]byte, error) {
	msg, ok := <-c.readCh
	if !ok {
		return nil, io.EOF
	}
	return msg, nil
}

func (c *wsConn) write(p []byte) error {
	<-c.openCh

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.err != nil {
		return c.err
	}
	if c.closed {
		return io.ErrClosedPipe
	}

	u8 := js.Global().Get("Uint8Array").New(len(p))
	js.CopyBytesToJS(u8, p)
	c.ws.Call("send", u8)
	return nil
}
