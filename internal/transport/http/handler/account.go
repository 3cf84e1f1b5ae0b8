package handler

import (
	"net/http"

	"github.com/crm-web/internal/application/account"
	"github.com/crm-web/internal/domain"
)

// AccountHandler serves the register and login forms.
type AccountHandler struct {
	svc   account.Service
	pages *Pages
}

func NewAccountHandler(svc account.Service, pages *Pages) *AccountHandler {
	return &AccountHandler{svc: svc, pages: pages}
}

type registerPage struct {
	Title  string
	Notice string
	Form   domain.RegisterRequest
}

type loginPage struct {
	Title   string
	Notice  string
	Session *domain.Session
	Form    domain.LoginRequest
}

func (h *AccountHandler) RegisterForm(w http.ResponseWriter, _ *http.Request) {
	h.pages.render(w, http.StatusOK, pageRegister, registerPage{Title: "Register"})
}

func (h *AccountHandler) Register(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		h.pages.render(w, http.StatusBadRequest, pageRegister, registerPage{Title: "Register", Notice: "invalid form"})
		return
	}
	req := domain.RegisterRequest{
		Name:     r.PostForm.Get("name"),
		Email:    r.PostForm.Get("email"),
		Password: r.PostForm.Get("password"),
	}
	page := registerPage{Title: "Register", Form: domain.RegisterRequest{Name: req.Name, Email: req.Email}}

	u, err := h.svc.Register(r.Context(), req)
	if err != nil {
		page.Notice = userMessage(err)
		h.pages.render(w, statusFor(err), pageRegister, page)
		return
	}
	page.Notice = "Registered " + u.Email + ". Check your inbox to verify your email."
	page.Form = domain.RegisterRequest{}
	h.pages.render(w, http.StatusCreated, pageRegister, page)
}

func (h *AccountHandler) LoginForm(w http.ResponseWriter, _ *http.Request) {
	h.pages.render(w, http.StatusOK, pageLogin, loginPage{Title: "Login"})
}

func (h *AccountHandler) Login(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		h.pages.render(w, http.StatusBadRequest, pageLogin, loginPage{Title: "Login", Notice: "invalid form"})
		return
	}
	req := domain.LoginRequest{
		Email:    r.PostForm.Get("email"),
		Password: r.PostForm.Get("password"),
	}
	page := loginPage{Title: "Login", Form: domain.LoginRequest{Email: req.Email}}

	sess, err := h.svc.Login(r.Context(), req)
	if err != nil {
		page.Notice = userMessage(err)
		h.pages.render(w, statusFor(err), pageLogin, page)
		return
	}
	page.Session = sess
	h.pages.render(w, http.StatusOK, pageLogin, page)
}
