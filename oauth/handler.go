package oauth

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
)

// Handler exposes the authorization server over HTTP:
//
//	GET  /oauth/authorize
//	POST /oauth/token
//	GET  /oauth/client-info
//
// It is mounted by the HTTP gateway adapter and shares the process-wide
// signing configuration with tool authentication.
type Handler struct {
	server *Server
	mux    *http.ServeMux
	log    *slog.Logger
}

var _ http.Handler = (*Handler)(nil)

// NewHandler builds the /oauth/* route set.
func NewHandler(server *Server, log *slog.Logger) *Handler {
	if log == nil {
		log = slog.Default()
	}
	h := &Handler{server: server, log: log}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /oauth/authorize", h.handleAuthorize)
	mux.HandleFunc("POST /oauth/token", h.handleToken)
	mux.HandleFunc("GET /oauth/client-info", h.handleClientInfo)
	h.mux = mux

	return h
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mux.ServeHTTP(w, r)
}

func (h *Handler) handleAuthorize(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	req := &AuthorizeRequest{
		ClientID:            q.Get("client_id"),
		RedirectURI:         q.Get("redirect_uri"),
		ResponseType:        q.Get("response_type"),
		Scope:               q.Get("scope"),
		State:               q.Get("state"),
		CodeChallenge:       q.Get("code_challenge"),
		CodeChallengeMethod: q.Get("code_challenge_method"),
	}

	redirect, oerr := h.server.Authorize(r.Context(), req)
	if oerr != nil {
		h.writeError(w, oerr)
		return
	}

	http.Redirect(w, r, redirect, http.StatusFound)
}

func (h *Handler) handleToken(w http.ResponseWriter, r *http.Request) {
	req, oerr := parseTokenRequest(r)
	if oerr != nil {
		h.writeError(w, oerr)
		return
	}

	resp, oerr := h.server.Token(r.Context(), req)
	if oerr != nil {
		h.writeError(w, oerr)
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) handleClientInfo(w http.ResponseWriter, r *http.Request) {
	var (
		info *ClientInfo
		oerr *Error
	)
	if clientID := r.URL.Query().Get("client_id"); clientID != "" {
		info, oerr = h.server.ClientInfoFor(clientID)
	} else {
		info, oerr = h.server.DefaultClientInfo()
	}
	if oerr != nil {
		h.writeError(w, oerr)
		return
	}
	writeJSON(w, http.StatusOK, info)
}

// parseTokenRequest accepts both application/x-www-form-urlencoded (the
// RFC 6749 shape) and application/json bodies.
func parseTokenRequest(r *http.Request) (*TokenRequest, *Error) {
	ct := r.Header.Get("Content-Type")
	if strings.HasPrefix(ct, "application/json") {
		var body struct {
			GrantType    string `json:"grant_type"`
			Code         string `json:"code"`
			RedirectURI  string `json:"redirect_uri"`
			ClientID     string `json:"client_id"`
			ClientSecret string `json:"client_secret"`
			CodeVerifier string `json:"code_verifier"`
			RefreshToken string `json:"refresh_token"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			return nil, ErrInvalidRequest("request body is not valid JSON")
		}
		return &TokenRequest{
			GrantType:    body.GrantType,
			Code:         body.Code,
			RedirectURI:  body.RedirectURI,
			ClientID:     body.ClientID,
			ClientSecret: body.ClientSecret,
			CodeVerifier: body.CodeVerifier,
			RefreshToken: body.RefreshToken,
		}, nil
	}

	if err := r.ParseForm(); err != nil {
		return nil, ErrInvalidRequest("request body is not a valid form")
	}
	return &TokenRequest{
		GrantType:    r.PostFormValue("grant_type"),
		Code:         r.PostFormValue("code"),
		RedirectURI:  r.PostFormValue("redirect_uri"),
		ClientID:     r.PostFormValue("client_id"),
		ClientSecret: r.PostFormValue("client_secret"),
		CodeVerifier: r.PostFormValue("code_verifier"),
		RefreshToken: r.PostFormValue("refresh_token"),
	}, nil
}

func (h *Handler) writeError(w http.ResponseWriter, oerr *Error) {
	writeJSON(w, oerr.Status, ErrorResponse{
		Error:            oerr.Code,
		ErrorDescription: oerr.Description,
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
