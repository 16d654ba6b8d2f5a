package handler

import (
	"bytes"
	"embed"
	"html/template"
	"io/fs"
	"net/http"
	"os"

	"github.com/rs/zerolog"

	"github.com/hedgehog-panel/hedgehog/internal/auth"
)

//go:embed templates/*.html
var templateFS embed.FS

//go:embed static
var staticFS embed.FS

// ViewHandler serves the HTML shell pages and their static assets.
type ViewHandler struct {
	templates *template.Template
	assets    fs.FS
	logger    zerolog.Logger
}

// NewViewHandler creates a new ViewHandler. When staticDir is set, assets are
// served from it instead of the embedded copy.
func NewViewHandler(staticDir string, logger zerolog.Logger) (*ViewHandler, error) {
	tmpl, err := template.ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, err
	}

	var assets fs.FS
	if staticDir != "" {
		assets = os.DirFS(staticDir)
	} else {
		assets, err = fs.Sub(staticFS, "static")
		if err != nil {
			return nil, err
		}
	}

	return &ViewHandler{
		templates: tmpl,
		assets:    assets,
		logger:    logger.With().Str("handler", "view").Logger(),
	}, nil
}

// PageData contains common page data.
type PageData struct {
	Title       string
	Username    string
	DisplayName string
	IsAdmin     bool
}

func newPageData(title string, id *auth.Identity) PageData {
	data := PageData{Title: title + " - Hedgehog Panel"}
	if id != nil {
		data.Username = id.Username
		data.DisplayName = id.DisplayName
		data.IsAdmin = id.IsAdmin
	}
	return data
}

// Assets returns the handler for /html/ static files.
func (h *ViewHandler) Assets() http.Handler {
	return http.StripPrefix("/html/", http.FileServer(http.FS(h.assets)))
}

// Home handles GET /.
func (h *ViewHandler) Home(w http.ResponseWriter, r *http.Request) {
	h.render(w, "index.html", newPageData("Home", auth.FromContext(r.Context())))
}

// Login handles GET /login.
func (h *ViewHandler) Login(w http.ResponseWriter, r *http.Request) {
	h.render(w, "login.html", newPageData("Login", nil))
}

// Admin handles GET /admin.
func (h *ViewHandler) Admin(w http.ResponseWriter, r *http.Request) {
	h.render(w, "admin.html", newPageData("Administration", auth.FromContext(r.Context())))
}

// NotFound answers view paths that match no page.
func (h *ViewHandler) NotFound(w http.ResponseWriter, r *http.Request) {
	http.Error(w, "Not Found", http.StatusNotFound)
}

func (h *ViewHandler) render(w http.ResponseWriter, name string, data interface{}) {
	var buf bytes.Buffer
	if err := h.templates.ExecuteTemplate(&buf, name, data); err != nil {
		h.logger.Error().Err(err).Str("template", name).Msg("failed to render template")
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	_, _ = buf.WriteTo(w)
}
