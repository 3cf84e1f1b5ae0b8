package handler

import "net/http"

type HomeHandler struct {
	pages *Pages
}

func NewHomeHandler(pages *Pages) *HomeHandler { return &HomeHandler{pages: pages} }

func (h *HomeHandler) Home(w http.ResponseWriter, _ *http.Request) {
	h.pages.render(w, http.StatusOK, pageHome, struct{ Title string }{Title: "Home"})
}
