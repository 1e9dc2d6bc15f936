package web

import (
	"context"
	"embed"
	"errors"
	"html/template"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"portalkit/internal/model"
	"portalkit/internal/portal"

	"github.com/CAFxX/httpcompression"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

//go:embed templates/*.html static/*.css
var assetsFS embed.FS

// DefaultDatastarSrc is the datastar client loaded by rendered pages.
const DefaultDatastarSrc = "https://cdn.jsdelivr.net/gh/starfederation/datastar@v1.0.0-RC.5/bundles/datastar.js"

type Config struct {
	Addr   string
	Prefix string

	Compress bool

	// DatastarSrc overrides the datastar client URL. "-" disables the script; pages then work
	// through plain links and redirects.
	DatastarSrc string

	// TrustRemoteUser accepts the user name from the X-Remote-User header, as set by an
	// authenticating proxy.
	TrustRemoteUser bool

	// AuthMode is AuthNone (default) or AuthDev. Only dev mode serves POST /login, which signs
	// in any posted name.
	AuthMode string

	// Secret signs session cookies. A random key is used when empty.
	Secret []byte
}

const (
	AuthNone = "none"
	AuthDev  = "dev"
)

// Containers resolves container ids taken from request paths.
type Containers interface {
	Container(id string) model.Container
}

type Server struct {
	cfg        Config
	mgr        *portal.Manager
	perms      portal.Permissions
	containers Containers
	log        *zap.Logger
	tmpl       *template.Template
	secret     []byte
}

func NewServer(cfg Config, mgr *portal.Manager, perms portal.Permissions, containers Containers, log *zap.Logger) (*Server, error) {
	cfg.Addr = strings.TrimSpace(cfg.Addr)
	cfg.Prefix = "/" + strings.Trim(strings.TrimSpace(cfg.Prefix), "/")
	if cfg.Prefix == "/" {
		cfg.Prefix = "/portal"
	}
	if cfg.DatastarSrc == "" {
		cfg.DatastarSrc = DefaultDatastarSrc
	}
	if cfg.DatastarSrc == "-" {
		cfg.DatastarSrc = ""
	}
	cfg.AuthMode = strings.ToLower(strings.TrimSpace(cfg.AuthMode))
	switch cfg.AuthMode {
	case "":
		cfg.AuthMode = AuthNone
	case AuthNone, AuthDev:
	default:
		return nil, errors.New("web: invalid auth mode (expected none|dev)")
	}
	if mgr == nil {
		return nil, errors.New("web: manager is nil")
	}
	if perms == nil {
		return nil, errors.New("web: permissions are nil")
	}
	if containers == nil {
		return nil, errors.New("web: container resolver is nil")
	}
	if log == nil {
		log = zap.NewNop()
	}

	tmpl, err := template.New("base").Funcs(template.FuncMap{
		"trim": strings.TrimSpace,
	}).ParseFS(assetsFS, "templates/*.html")
	if err != nil {
		return nil, err
	}

	secret := cfg.Secret
	if len(secret) == 0 {
		if secret, err = randomSecret(); err != nil {
			return nil, err
		}
	}

	return &Server{
		cfg:        cfg,
		mgr:        mgr,
		perms:      perms,
		containers: containers,
		log:        log,
		tmpl:       tmpl,
		secret:     secret,
	}, nil
}

func (s *Server) Addr() string { return s.cfg.Addr }

func (s *Server) Prefix() string { return s.cfg.Prefix }

func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(s.requestID, s.recoverer, s.viewStack, s.identify)

	r.Get("/health", s.handleHealth)
	r.Get("/static/portal.css", s.handlePortalCSS)
	if s.cfg.AuthMode == AuthDev {
		r.Post("/login", s.handleLogin)
	}
	r.Post("/logout", s.handleLogout)
	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, s.cfg.Prefix+"/home", http.StatusSeeOther)
	})

	r.Route(s.cfg.Prefix+"/{container}", func(c chi.Router) {
		c.Get("/", s.handlePage)
		c.Route("/{page}", func(p chi.Router) {
			p.Get("/", s.handlePage)
			p.Get("/parts", s.handlePartsList)
			p.With(s.requireCustomize).Post("/parts", s.handlePartAdd)
			p.With(s.requireCustomize).Post("/parts/add", s.handlePartAdd)
			p.Get("/parts/{rowID}", s.handlePartView)
			p.With(s.requireCustomize).Post("/parts/{rowID}/move", s.handlePartMove)
			p.With(s.requireCustomize).Post("/parts/{rowID}/remove", s.handlePartRemove)
			p.With(s.requireCustomize).Get("/parts/{rowID}/customize", s.handleCustomizeGet)
			p.With(s.requireCustomize).Post("/parts/{rowID}/customize", s.handleCustomizePost)
			p.With(s.requireCustomize).Get("/menu/{rowID}", s.handlePartMenu)
		})
	})

	if !s.cfg.Compress {
		return r
	}
	compress, err := httpcompression.DefaultAdapter()
	if err != nil {
		s.log.Warn("response compression disabled", zap.Error(err))
		return r
	}
	return compress(r)
}

// ListenAndServe serves until ctx is done, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context, ln net.Listener) error {
	if ln == nil {
		var err error
		if ln, err = net.Listen("tcp", s.cfg.Addr); err != nil {
			return err
		}
	}
	hs := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	errc := make(chan error, 1)
	go func() { errc <- hs.Serve(ln) }()

	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := hs.Shutdown(shutdownCtx); err != nil {
			return err
		}
		if err := <-errc; err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}
}

func redirectBack(w http.ResponseWriter, r *http.Request, fallback string) {
	ref := strings.TrimSpace(r.Header.Get("Referer"))
	if ref != "" {
		http.Redirect(w, r, ref, http.StatusSeeOther)
		return
	}
	http.Redirect(w, r, fallback, http.StatusSeeOther)
}

func (s *Server) handlePortalCSS(w http.ResponseWriter, r *http.Request) {
	b, err := assetsFS.ReadFile("static/portal.css")
	if err != nil || len(b) == 0 {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "text/css; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(b)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok\n"))
}

func (s *Server) renderTemplate(name string, data any) (string, error) {
	var b strings.Builder
	if err := s.tmpl.ExecuteTemplate(&b, name, data); err != nil {
		return "", err
	}
	return b.String(), nil
}

func (s *Server) writeHTMLTemplate(w http.ResponseWriter, name string, data any) {
	html, err := s.renderTemplate(name, data)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = io.WriteString(w, html)
}
