package main

import (
	"context"
	"errors"
	"fmt"
	"image"
	"log"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/coder/websocket"

	"github.com/marben/fractscan/internal/framebuffer"
	"github.com/marben/fractscan/internal/wire"
)

// webServer serves the files in static, the websocket endpoint streaming
// the calculation and the current image.
func webServer(ctx context.Context, port int, static string, iws *imgWorkScheduler) *http.Server {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", websocketHandler(ctx, iws))
	mux.HandleFunc("/image.png", imageHandler(iws))
	mux.HandleFunc("/preview.png", previewHandler(iws))
	mux.Handle("/", http.FileServer(http.Dir(static)))

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
		BaseContext:       func(_ net.Listener) context.Context { return ctx },
	}

	log.Printf("listening on http://localhost:%d", port)
	return srv
}

// websocketHandler streams the calculation to one client and forwards its
// commands to the scheduler.
func websocketHandler(ctx context.Context, iws *imgWorkScheduler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
			OriginPatterns: []string{"*"},
		})
		if err != nil {
			log.Println(err)
			return
		}
		c := newClient(conn)
		iws.subscribe(c)
		defer iws.hub.remove(c)
		log.Printf("client %s connected (%d clients)", r.RemoteAddr, iws.hub.len())

		ctx, cancel := context.WithCancel(ctx)
		defer cancel()
		go func() {
			defer cancel()
			if err := c.writeLoop(ctx); err != nil && !errors.Is(err, context.Canceled) {
				log.Printf("client %s: write: %v", r.RemoteAddr, err)
			}
		}()

		for {
			typ, b, err := conn.Read(ctx)
			if err != nil {
				if websocket.CloseStatus(err) != websocket.StatusNormalClosure && ctx.Err() == nil {
					log.Printf("client %s: read: %v", r.RemoteAddr, err)
				}
				break
			}
			if typ != websocket.MessageBinary {
				continue
			}
			m, err := wire.Unmarshal(b)
			if err != nil {
				log.Printf("client %s: %v", r.RemoteAddr, err)
				continue
			}
			iws.command(m)
		}
		conn.Close(websocket.StatusNormalClosure, "")
		log.Printf("client %s disconnected", r.RemoteAddr)
	}
}

// imageHandler serves the image computed so far; with ?wait=1 it waits for
// the calculation to complete.
func imageHandler(iws *imgWorkScheduler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		buf, _ := iws.snapshot()
		if r.URL.Query().Get("wait") == "1" {
			img, err := iws.GetImage()
			if err != nil {
				http.Error(w, err.Error(), http.StatusInternalServerError)
				return
			}
			writeImage(w, &img)
			return
		}
		writeImage(w, buf.Snapshot())
	}
}

// previewHandler serves a thumbnail no larger than ?size= pixels a side.
func previewHandler(iws *imgWorkScheduler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		size := 256
		if s := r.URL.Query().Get("size"); s != "" {
			n, err := strconv.Atoi(s)
			if err != nil || n <= 0 || n > 4096 {
				http.Error(w, "bad size", http.StatusBadRequest)
				return
			}
			size = n
		}
		buf, _ := iws.snapshot()
		writeImage(w, buf.Preview(size))
	}
}

func writeImage(w http.ResponseWriter, img image.Image) {
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-store")
	if err := framebuffer.Encode(w, img, framebuffer.PNG); err != nil {
		log.Printf("serve image: %v", err)
	}
}
