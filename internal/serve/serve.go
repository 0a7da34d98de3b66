// Package serve exposes a grid index GeoPackage over HTTP: rendered previews
// of its layers, a JSON view of the recorded runs, and the tsweb debug pages
// with a tailsql console bound to the file.
package serve

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net"
	"net/http"
	"net/url"
	"time"

	"github.com/tailscale/tailsql/server/tailsql"
	"tailscale.com/tsweb"

	"github.com/banshee-data/gridindex/internal/extent"
	"github.com/banshee-data/gridindex/internal/gpkg"
	"github.com/banshee-data/gridindex/internal/grid"
	"github.com/banshee-data/gridindex/internal/httputil"
	"github.com/banshee-data/gridindex/internal/preview"
)

// Options configure the handler.
type Options struct {
	// Layer is shown when a request does not name one with ?layer=.
	// Empty means the first feature table.
	Layer string
	// LogRequests logs every request path.
	LogRequests bool
}

type handler struct {
	store *gpkg.Store
	opts  Options
}

// NewHandler returns the routes for store. The store must stay open for
// the lifetime of the handler.
func NewHandler(store *gpkg.Store, opts Options) (http.Handler, error) {
	h := &handler{store: store, opts: opts}

	mux := http.NewServeMux()
	mux.Handle("/api/layers", httputil.GETOnly(http.HandlerFunc(h.handleLayers)))
	mux.Handle("/api/runs", httputil.GETOnly(http.HandlerFunc(h.handleRuns)))
	mux.Handle("/grid", httputil.GETOnly(http.HandlerFunc(h.handleHTML)))
	mux.Handle("/grid.png", httputil.GETOnly(http.HandlerFunc(h.handlePNG)))
	mux.Handle("/{$}", http.RedirectHandler("/grid", http.StatusFound))

	if err := attachDebug(mux, store); err != nil {
		return nil, err
	}

	if !opts.LogRequests {
		return mux, nil
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		log.Printf("got request %q", r.URL.Path)
		mux.ServeHTTP(w, r)
	}), nil
}

func attachDebug(mux *http.ServeMux, store *gpkg.Store) error {
	debug := tsweb.Debugger(mux)
	tsql, err := tailsql.NewServer(tailsql.Options{
		RoutePrefix: "/debug/tailsql/",
	})
	if err != nil {
		return fmt.Errorf("create tailsql server: %w", err)
	}
	tsql.SetDB("sqlite://"+store.Path(), store.DB, &tailsql.DBOptions{
		Label: "Grid index",
	})
	debug.Handle("tailsql/", "SQL live debugging", tsql.NewMux())
	return nil
}

// layer returns the requested layer. A malformed query, such as one with an
// unescaped ';', is an error rather than a silent fall back to the default.
func (h *handler) layer(r *http.Request) (string, error) {
	q, err := url.ParseQuery(r.URL.RawQuery)
	if err != nil {
		return "", err
	}
	if l := q.Get("layer"); l != "" {
		return l, nil
	}
	return h.opts.Layer, nil
}

func (h *handler) handleLayers(w http.ResponseWriter, r *http.Request) {
	names, err := h.store.Layers(r.Context())
	if err != nil {
		httputil.InternalServerError(w, err.Error())
		return
	}
	if names == nil {
		names = []string{}
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]interface{}{"layers": names})
}

func (h *handler) handleRuns(w http.ResponseWriter, r *http.Request) {
	runs, err := h.store.Runs(r.Context())
	if err != nil {
		httputil.InternalServerError(w, err.Error())
		return
	}
	if runs == nil {
		runs = []gpkg.Run{}
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]interface{}{"runs": runs})
}

func (h *handler) handleHTML(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, "text/html; charset=utf-8", preview.RenderHTML)
}

func (h *handler) handlePNG(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, "image/png", preview.RenderPNG)
}

type renderFunc func(w io.Writer, title string, ext extent.Extent, cells []grid.Cell) error

func (h *handler) render(w http.ResponseWriter, r *http.Request, contentType string, fn renderFunc) {
	layer, err := h.layer(r)
	if err != nil {
		httputil.WriteJSONError(w, http.StatusBadRequest, fmt.Sprintf("invalid query: %v", err))
		return
	}
	cells, err := h.store.LoadCells(r.Context(), layer)
	switch {
	case errors.Is(err, gpkg.ErrNoLayer), errors.Is(err, gpkg.ErrBadName):
		httputil.NotFound(w, err.Error())
		return
	case err != nil:
		httputil.InternalServerError(w, err.Error())
		return
	}

	bounds := make([]extent.Extent, len(cells))
	for i, c := range cells {
		bounds[i] = c.Bounds
	}
	ext, err := extent.UnionAll(bounds)
	if err != nil {
		httputil.NotFound(w, fmt.Sprintf("layer %q has no cells", layer))
		return
	}

	title := layer
	if title == "" {
		title = "grid index"
	}
	var buf bytes.Buffer
	if err := fn(&buf, title, ext, cells); err != nil {
		httputil.InternalServerError(w, err.Error())
		return
	}
	httputil.WriteBody(w, contentType, buf.Bytes())
}

// ListenAndServe serves h on addr until ctx is cancelled.
func ListenAndServe(ctx context.Context, addr string, h http.Handler) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", addr, err)
	}
	return Serve(ctx, ln, h)
}

// Serve serves h on ln until ctx is cancelled, then shuts the server down
// and waits for it to stop. ln is closed on return.
func Serve(ctx context.Context, ln net.Listener, h http.Handler) error {
	server := &http.Server{
		Handler:           h,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		log.Printf("Starting HTTP server on %s", ln.Addr())
		errc <- server.Serve(ln)
	}()

	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}
	log.Println("shutting down HTTP server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 1*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("HTTP server shutdown error: %v", err)
		if err := server.Close(); err != nil {
			log.Printf("HTTP server force close error: %v", err)
		}
	}
	<-errc

	log.Printf("HTTP server routine stopped")
	return nil
}
