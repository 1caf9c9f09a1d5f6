//go:build js && wasm

// Command webclient is the browser client of the render server. It draws
// the tiles the server streams onto a canvas. A click zooms in about the
// clicked pixel, shift-click zooms out, the arrow keys pan and r restarts.
package main

import (
	"fmt"
	"image"
	"image/color"
	"log"
	"syscall/js"

	"github.com/marben/fractscan/internal/wire"
)

// panStep is how many pixels an arrow key moves the view.
const panStep = 64

func main() {
	logScreenf("Starting WASM web client...")

	// Step 1: Determine server address for WebSocket connection
	loc := js.Global().Get("window").Get("location")
	proto := "ws"
	if loc.Get("protocol").String() == "https:" {
		proto = "wss"
	}
	websocketUrl := proto + "://" + loc.Get("host").String() + "/ws"

	// Step 2: Connect to server via WebSocket
	logScreenf("Connecting to render server at %s...", websocketUrl)
	conn := dialWS(websocketUrl)

	// Step 3: Forward clicks and keys as commands
	listen(conn)

	// Step 4: Draw what the server streams
	if err := drawLoop(conn); err != nil {
		logFatalf("drawLoop: %v", err)
	}
	logScreenf("Connection closed.")
	select {}
}

func drawLoop(conn *wsConn) error {
	var (
		pal  color.Palette
		w, h int
	)
	for {
		b, err := conn.read()
		if err != nil {
			return nil
		}
		m, err := wire.Unmarshal(b)
		if err != nil {
			return err
		}
		switch m := m.(type) {
		case *wire.Hello:
			pal, w, h = m.Palette, m.Width, m.Height
			initCanvas(w, h, "#3a3a6e")
			hudSet("region", fmt.Sprintf("[%g, %g] x [%g, %g]", m.Region[0], m.Region[1], m.Region[2], m.Region[3]))
			hudSet("status", "computing")
		case *wire.Tile:
			if !m.Rect.In(image.Rect(0, 0, w, h)) {
				return fmt.Errorf("tile %v outside the %dx%d image", m.Rect, w, h)
			}
			drawTile(m.Rect, m.Pix, pal)
		case *wire.Progress:
			hudSet("pixels", fmt.Sprint(m.Pixels))
		case *wire.Done:
			hudSet("pixels", fmt.Sprint(m.Pixels))
			hudSet("status", "complete")
		}
	}
}

// listen sends a command for clicks on the canvas and for key presses.
func listen(conn *wsConn) {
	send := func(m wire.Message) {
		b, err := wire.Marshal(m)
		if err != nil {
			logScreenf("encode %v: %v", m.Type(), err)
			return
		}
		// write waits for the socket to open; the event loop must not
		go func() {
			if err := conn.write(b); err != nil {
				logScreenf("send %v: %v", m.Type(), err)
			}
		}()
	}

	canvas().Set("onclick", js.FuncOf(func(_ js.Value, args []js.Value) any {
		ev := args[0]
		factor := 2.0
		if ev.Get("shiftKey").Bool() {
			factor = 0.5
		}
		send(&wire.Zoom{Factor: factor, Col: ev.Get("offsetX").Int(), Row: ev.Get("offsetY").Int()})
		return nil
	}))

	js.Global().Get("document").Set("onkeydown", js.FuncOf(func(_ js.Value, args []js.Value) any {
		switch args[0].Get("key").String() {
		case "ArrowLeft":
			send(&wire.Pan{Cols: -panStep})
		case "ArrowRight":
			send(&wire.Pan{Cols: panStep})
		case "ArrowUp":
			send(&wire.Pan{Rows: -panStep})
		case "ArrowDown":
			send(&wire.Pan{Rows: panStep})
		case "r":
			send(&wire.Restart{})
		}
		return nil
	}))
}

// logScreenf appends a formatted message to the log element in the DOM.
func logScreenf(format string, a ...any) {
	msg := fmt.Sprintf(format, a...)

	doc := js.Global().Get("document")
	logElem := doc.Call("getElementById", "log")
	logElem.Set("textContent", logElem.Get("textContent").String()+msg+"\n")
}

// logFatalf logs a fatal error to the log window and terminates the program.
func logFatalf(format string, a ...any) {
	logScreenf("FATAL: "+format, a...)
	log.Fatalf(format, a...)
}

// hudSet shows value in the HUD element with the given id.
func hudSet(id, value string) {
	js.Global().Get("document").Call("getElementById", id).Set("textContent", value)
}
