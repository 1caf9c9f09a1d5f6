// Command server renders a fractal in-process and streams the image to
// websocket clients as it is computed. Clients can pan, zoom and restart
// the view. On shutdown the calculation is saved and continued on the next
// start.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	mandel "github.com/marben/fractscan"
	"github.com/marben/fractscan/internal/checkpoint"
	"github.com/marben/fractscan/internal/engine"
	"github.com/marben/fractscan/internal/framebuffer"
)

var printer = message.NewPrinter(language.English)

func main() {
	if err := run(); err != nil {
		log.Fatalf("run: %+v", err)
	}
}

func run() error {
	var (
		port    = flag.Int("port", 8080, "http port")
		static  = flag.String("static", "./static", "directory with index.html and main.wasm")
		width   = flag.Int("w", 1920, "image width")
		height  = flag.Int("h", 1080, "image height")
		params  = flag.String("params", "", "JSON parameter file")
		region  = flag.String("region", "seahorse", "named region: "+fmt.Sprint(mandel.RegionNames()))
		palette = flag.String("palette", "rainbow", "rainbow or gray")
		ckpt    = flag.String("checkpoint", "server.fsc", "file the calculation is saved to on shutdown; empty disables")
		verbose = flag.Bool("v", false, "log calculation events")
	)
	flag.Parse()
	if *verbose {
		mandel.SetLogger(slog.Default())
	}

	cfg := engine.DefaultConfig()
	if *params != "" {
		var err error
		if cfg, err = engine.LoadConfig(*params); err != nil {
			return err
		}
	}
	if cfg.Region == (mandel.Region{}) && *region != "" {
		r, err := mandel.RegionByName(*region)
		if err != nil {
			return err
		}
		cfg.Region = r.Fit(*width, *height)
	}
	pal, ok := framebuffer.PaletteByName(*palette, cfg.Iterate.Colors)
	if !ok {
		return fmt.Errorf("unknown palette %q", *palette)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	iws := newImgWorkScheduler(cfg, pal, newHub())
	var saved *checkpoint.State
	if *ckpt != "" {
		st, err := checkpoint.Load(*ckpt)
		switch {
		case err == nil:
			log.Printf("continuing the calculation saved in %q", *ckpt)
			saved = &st
		case errors.Is(err, fs.ErrNotExist):
		default:
			return err
		}
	}
	if err := iws.start(*width, *height, saved); err != nil {
		return fmt.Errorf("start calculation: %w", err)
	}

	// httpServer provides index.html and main.wasm along with the websocket endpoint
	httpServer := webServer(ctx, *port, *static, iws)
	go func() {
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("httpServer: %v", err)
		}
	}()
	go iws.stream(ctx)

	st, err := iws.loop(ctx)
	if err != nil {
		return fmt.Errorf("calculation: %w", err)
	}
	log.Printf("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Printf("http shutdown: %v", err)
	}

	if *ckpt == "" {
		return nil
	}
	if err := checkpoint.Save(*ckpt, st); err != nil {
		return err
	}
	log.Print(printer.Sprintf("calculation saved to %q (%d bytes of queue state)", *ckpt, len(st.Engine)))
	return nil
}
