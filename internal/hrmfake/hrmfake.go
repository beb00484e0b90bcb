// Package hrmfake serves a minimal stand-in for the OrangeHRM login flow:
// login form, credential validation, dashboard and logout. Its markup uses
// the same class names and input names as OrangeHRM 5 so page objects can
// be exercised without network access.
package hrmfake

import (
	"html/template"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"

	"github.com/google/uuid"

	"github.com/kuitang/hrm-ui-suite/internal/constants"
	"github.com/kuitang/hrm-ui-suite/internal/obs"
)

const (
	sessionCookie = "orangehrm"
	validatePath  = "/web/index.php/auth/validate"

	DefaultUsername = "Admin"
	DefaultPassword = "admin123"
)

// Server is a fake OrangeHRM instance.
type Server struct {
	username string
	password string

	mu       sync.Mutex
	sessions map[string]string
	logins   int
}

// New returns a fake accepting exactly username/password (case sensitive).
func New(username, password string) *Server {
	return &Server{
		username: username,
		password: password,
		sessions: make(map[string]string),
	}
}

// Handler returns the HTTP handler for the fake application.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, constants.LoginPath, http.StatusFound)
	})
	mux.HandleFunc("GET "+constants.LoginPath, s.handleLogin)
	mux.HandleFunc("POST "+validatePath, s.handleValidate)
	mux.HandleFunc("GET "+constants.DashboardPath, s.handleDashboard)
	mux.HandleFunc("GET "+constants.LogoutPath, s.handleLogout)
	return obs.AccessLogMiddleware("hrmfake", mux)
}

// Start serves the fake on a local test server. Callers close it.
func Start(username, password string) (*Server, *httptest.Server) {
	s := New(username, password)
	return s, httptest.NewServer(s.Handler())
}

// SuccessfulLogins returns how many logins succeeded.
func (s *Server) SuccessfulLogins() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.logins
}

// ActiveSessions returns the number of live sessions.
func (s *Server) ActiveSessions() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

func (s *Server) currentUser(r *http.Request) (string, bool) {
	c, err := r.Cookie(sessionCookie)
	if err != nil {
		return "", false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	user, ok := s.sessions[c.Value]
	return user, ok
}

type loginView struct {
	Username        string
	Alert           string
	UsernameMissing bool
	PasswordMissing bool
	RequiredText    string
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	if _, ok := s.currentUser(r); ok {
		http.Redirect(w, r, constants.DashboardPath, http.StatusFound)
		return
	}
	view := loginView{RequiredText: constants.RequiredMessage}
	if r.URL.Query().Get("error") == "invalid" {
		view.Alert = constants.InvalidCredentialsMessage
	}
	render(w, loginTemplate, view)
}

func (s *Server) handleValidate(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "bad form", http.StatusBadRequest)
		return
	}
	username := r.PostForm.Get("username")
	password := r.PostForm.Get("password")

	if username == "" || password == "" {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.WriteHeader(http.StatusUnprocessableEntity)
		render(w, loginTemplate, loginView{
			Username:        username,
			UsernameMissing: username == "",
			PasswordMissing: password == "",
			RequiredText:    constants.RequiredMessage,
		})
		return
	}

	if username != s.username || password != s.password {
		q := url.Values{"error": {"invalid"}}
		http.Redirect(w, r, constants.LoginPath+"?"+q.Encode(), http.StatusFound)
		return
	}

	token := uuid.NewString()
	s.mu.Lock()
	s.sessions[token] = username
	s.logins++
	s.mu.Unlock()

	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	http.Redirect(w, r, constants.DashboardPath, http.StatusFound)
}

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	user, ok := s.currentUser(r)
	if !ok {
		http.Redirect(w, r, constants.LoginPath, http.StatusFound)
		return
	}
	render(w, dashboardTemplate, struct{ User, Title string }{User: user, Title: constants.DashboardTitle})
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	if c, err := r.Cookie(sessionCookie); err == nil {
		s.mu.Lock()
		delete(s.sessions, c.Value)
		s.mu.Unlock()
	}
	http.SetCookie(w, &http.Cookie{Name: sessionCookie, Value: "", Path: "/", MaxAge: -1})
	http.Redirect(w, r, constants.LoginPath, http.StatusFound)
}

func render(w http.ResponseWriter, tmpl *template.Template, data any) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := tmpl.Execute(w, data); err != nil {
		obs.Pkg("hrmfake").Error("render failed", "error", err)
	}
}

var loginTemplate = template.Must(template.New("login").Parse(`<!DOCTYPE html>
<html lang="en">
<head><meta charset="utf-8"><title>OrangeHRM</title></head>
<body>
<div class="orangehrm-login-container">
  <h5 class="orangehrm-login-title">Login</h5>
  {{if .Alert}}<div class="oxd-alert oxd-alert--error" role="alert"><p class="oxd-text oxd-alert-content-text">{{.Alert}}</p></div>{{end}}
  <form class="oxd-form" method="post" action="` + validatePath + `" novalidate>
    <div class="oxd-input-group">
      <label>Username</label>
      <input class="oxd-input" name="username" placeholder="Username" value="{{.Username}}">
      {{if .UsernameMissing}}<span class="oxd-text oxd-input-field-error-message">{{.RequiredText}}</span>{{end}}
    </div>
    <div class="oxd-input-group">
      <label>Password</label>
      <input class="oxd-input" type="password" name="password" placeholder="Password">
      {{if .PasswordMissing}}<span class="oxd-text oxd-input-field-error-message">{{.RequiredText}}</span>{{end}}
    </div>
    <button type="submit" class="oxd-button orangehrm-login-button">Login</button>
  </form>
</div>
</body>
</html>
`))

var dashboardTemplate = template.Must(template.New("dashboard").Parse(`<!DOCTYPE html>
<html lang="en">
<head><meta charset="utf-8"><title>OrangeHRM</title></head>
<body>
<header class="oxd-topbar">
  <div class="oxd-topbar-header-breadcrumb"><h6 class="oxd-text">{{.Title}}</h6></div>
  <div class="oxd-topbar-header-userarea">
    <span class="oxd-userdropdown-tab" onclick="document.getElementById('user-menu').hidden=false">
      <p class="oxd-userdropdown-name">{{.User}}</p>
    </span>
    <ul id="user-menu" class="oxd-dropdown-menu" hidden>
      <li><a class="oxd-userdropdown-link" href="` + constants.LogoutPath + `">Logout</a></li>
    </ul>
  </div>
</header>
</body>
</html>
`))
