package handler

import (
	"net/http"

	"github.com/crm-web/internal/domain"
)

// VerifyHandler serves the verification page shell. The page opens a socket
// at SocketPath with the same query string; that socket hosts the view's flow.
type VerifyHandler struct {
	pages      *Pages
	socketPath string
}

func NewVerifyHandler(pages *Pages, socketPath string) *VerifyHandler {
	return &VerifyHandler{pages: pages, socketPath: socketPath}
}

type verifyPage struct {
	Title           string
	Status          string
	SocketPath      string
	UnreachableText string
}

func (h *VerifyHandler) Page(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Cache-Control", "no-store")
	h.pages.render(w, http.StatusOK, pageVerify, verifyPage{
		Title:           "Verify email",
		Status:          domain.MsgVerifying,
		SocketPath:      h.socketPath,
		UnreachableText: domain.MsgUnreachable,
	})
}
