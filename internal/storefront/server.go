// Package storefront is a local stand-in for the retail demo site. It serves
// the same routes, test ids and messages as the real site so scenarios can run
// hermetically against an httptest server.
package storefront

import (
	_ "embed"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/kuitang/storefront-e2e/internal/errs"
	"github.com/kuitang/storefront-e2e/internal/locator"
	"github.com/kuitang/storefront-e2e/internal/logutil"
	"github.com/kuitang/storefront-e2e/internal/obs"
)

// SessionCookie carries the login session.
const SessionCookie = "session-username"

// brokenImage is served to accounts with broken images; it always 404s.
const brokenImage = "/static/img/sl-404.jpg"

//go:embed static/app.js
var appJS []byte

// Options tune the fixture.
type Options struct {
	// GlitchDelay is added to every login by the glitch account.
	GlitchDelay time.Duration
	// BcryptCost hashes the demo password. Zero uses bcrypt.DefaultCost.
	BcryptCost int
}

// Server serves the storefront.
type Server struct {
	opts     Options
	catalog  *Catalog
	accounts *Accounts
	renderer *Renderer
	log      *slog.Logger

	mu       sync.Mutex
	sessions map[string]Account
}

// New loads the catalog, hashes the demo accounts, and parses templates.
func New(opts Options) (*Server, error) {
	catalog, err := LoadCatalog()
	if err != nil {
		return nil, err
	}
	accounts, err := NewAccounts(opts.BcryptCost)
	if err != nil {
		return nil, err
	}
	renderer, err := NewRenderer()
	if err != nil {
		return nil, err
	}
	return &Server{
		opts:     opts,
		catalog:  catalog,
		accounts: accounts,
		renderer: renderer,
		log:      obs.Pkg("storefront"),
		sessions: make(map[string]Account),
	}, nil
}

// Catalog returns the loaded catalog.
func (s *Server) Catalog() *Catalog {
	return s.catalog
}

// Handler returns the routed handler wrapped in request logging.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", s.handleLoginPage)
	mux.HandleFunc("POST /{$}", s.handleLogin)
	mux.HandleFunc("GET "+locator.RouteInventory, s.requireSession(s.handleInventory))
	mux.HandleFunc("GET "+locator.RouteCart, s.requireSession(s.handleCart))
	mux.HandleFunc("GET "+locator.RouteDetail, s.requireSession(s.handleDetail))
	mux.HandleFunc("GET /logout", s.handleLogout)
	mux.HandleFunc("GET /static/app.js", s.handleAppJS)
	mux.HandleFunc("GET /static/img/{file}", s.handleImage)
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	return obs.AccessLog("storefront", mux)
}

// productView is a product as one account sees it.
type productView struct {
	Product
	ImageSrc string
}

type pageData struct {
	Title         string
	LoggedIn      bool
	Behaviour     Behaviour
	Error         string
	UsernameValue string
	Usernames     []string
	Sort          string
	Products      []productView
	Product       *productView
}

func (s *Server) view(acct Account, p Product) productView {
	v := productView{Product: p, ImageSrc: p.ImagePath()}
	if acct.Behaviour == BehaviourBrokenImages {
		v.ImageSrc = brokenImage
	}
	return v
}

func (s *Server) render(w http.ResponseWriter, r *http.Request, code int, name string, data pageData) {
	if err := s.renderer.Render(w, code, name, data); err != nil {
		obs.From(r.Context()).Error("storefront_render_failed", "template", name, "error", err)
	}
}

func (s *Server) handleLoginPage(w http.ResponseWriter, r *http.Request) {
	data := pageData{Usernames: s.accounts.Usernames()}
	if from := r.URL.Query().Get("from"); from != "" {
		data.Error = fmt.Sprintf(MsgLoginRequired, from)
	}
	s.render(w, r, http.StatusOK, "login.html", data)
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "bad form", errs.HTTPStatus(errs.InvalidArgument))
		return
	}
	username := r.PostForm.Get("user-name")
	password := r.PostForm.Get("password")
	obs.From(r.Context()).Info("storefront_login", "form", logutil.FormatFormForLog(r.PostForm))

	acct, err := s.accounts.Authenticate(username, password)
	if err != nil {
		s.render(w, r, http.StatusOK, "login.html", pageData{
			Error:         errs.MessageOf(err),
			UsernameValue: username,
			Usernames:     s.accounts.Usernames(),
		})
		return
	}

	if acct.Behaviour == BehaviourGlitch && s.opts.GlitchDelay > 0 {
		select {
		case <-time.After(s.opts.GlitchDelay):
		case <-r.Context().Done():
			return
		}
	}

	token := uuid.NewString()
	s.mu.Lock()
	s.sessions[token] = acct
	s.mu.Unlock()

	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookie,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	http.Redirect(w, r, locator.RouteInventory, http.StatusSeeOther)
}

func (s *Server) account(r *http.Request) (Account, bool) {
	c, err := r.Cookie(SessionCookie)
	if err != nil || c.Value == "" {
		return Account{}, false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	acct, ok := s.sessions[c.Value]
	return acct, ok
}

// requireSession sends logged-out visitors to the login page with the
// "only when logged in" banner.
func (s *Server) requireSession(next func(http.ResponseWriter, *http.Request, Account)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		acct, ok := s.account(r)
		if !ok {
			http.Redirect(w, r, "/?from="+url.QueryEscape(r.URL.Path), http.StatusSeeOther)
			return
		}
		next(w, r, acct)
	}
}

func (s *Server) handleInventory(w http.ResponseWriter, r *http.Request, acct Account) {
	products := s.catalog.Sorted("az")
	views := make([]productView, len(products))
	for i, p := range products {
		views[i] = s.view(acct, p)
	}
	s.render(w, r, http.StatusOK, "inventory.html", pageData{
		Title:     "Products",
		LoggedIn:  true,
		Behaviour: acct.Behaviour,
		Sort:      "az",
		Products:  views,
	})
}

func (s *Server) handleCart(w http.ResponseWriter, r *http.Request, acct Account) {
	products := s.catalog.Sorted("az")
	views := make([]productView, len(products))
	for i, p := range products {
		views[i] = s.view(acct, p)
	}
	s.render(w, r, http.StatusOK, "cart.html", pageData{
		Title:     "Your Cart",
		LoggedIn:  true,
		Behaviour: acct.Behaviour,
		Products:  views,
	})
}

func (s *Server) handleDetail(w http.ResponseWriter, r *http.Request, acct Account) {
	id, err := strconv.Atoi(r.URL.Query().Get("id"))
	product, ok := s.catalog.ByID(id)
	if err != nil || !ok {
		s.render(w, r, errs.HTTPStatus(errs.LocatorNotFound), "notfound.html", pageData{
			LoggedIn: true,
			Error:    "We're sorry, but your call could not be completed as dialed.",
		})
		return
	}
	v := s.view(acct, product)
	s.render(w, r, http.StatusOK, "item.html", pageData{
		LoggedIn:  true,
		Behaviour: acct.Behaviour,
		Product:   &v,
	})
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	if c, err := r.Cookie(SessionCookie); err == nil {
		s.mu.Lock()
		delete(s.sessions, c.Value)
		s.mu.Unlock()
	}
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
	})
	http.Redirect(w, r, locator.RouteLogin, http.StatusSeeOther)
}

func (s *Server) handleAppJS(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/javascript; charset=utf-8")
	w.Header().Set("Cache-Control", "no-cache")
	_, _ = w.Write(appJS)
}

// handleImage draws a placeholder for catalog images so they load with real
// dimensions. Anything else is a 404, which is how broken images break.
func (s *Server) handleImage(w http.ResponseWriter, r *http.Request) {
	product, ok := s.catalog.HasImage(r.PathValue("file"))
	if !ok {
		http.NotFound(w, r)
		return
	}
	initials := initialsOf(product.Name)
	w.Header().Set("Content-Type", "image/svg+xml")
	w.Header().Set("Cache-Control", "public, max-age=3600")
	fmt.Fprintf(w, `<svg xmlns="http://www.w3.org/2000/svg" width="100" height="100" viewBox="0 0 100 100">`+
		`<rect width="100" height="100" fill="#e8e8e8"/>`+
		`<text x="50" y="58" font-size="28" text-anchor="middle" fill="#132322">%s</text></svg>`, initials)
}

func initialsOf(name string) string {
	var b strings.Builder
	for _, word := range strings.Fields(name) {
		r := word[0]
		if (r >= 'A' && r <= 'Z') || (r >= 'a' && r <= 'z') {
			b.WriteByte(r)
		}
		if b.Len() == 3 {
			break
		}
	}
	return strings.ToUpper(b.String())
}
