package httpapi

import (
	"encoding/json"
	"net/http"

	"github.com/andreasstove999/ecommerce-system/services/storefront-service-go/internal/account"
)

type authResponse struct {
	Message     string           `json:"message"`
	Token       string           `json:"token"`
	Account     *account.Account `json:"account"`
	MergedLines int              `json:"mergedLines"`
}

func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	in := account.RegisterInput{
		FirstName: r.FormValue("first_name"),
		LastName:  r.FormValue("last_name"),
		Username:  r.FormValue("username"),
		Email:     r.FormValue("email"),
		Password1: r.FormValue("password1"),
		Password2: r.FormValue("password2"),
	}

	ctx, cancel := h.requestContext(r)
	defer cancel()

	a, err := h.accounts.Register(ctx, in)
	if err != nil {
		in.Password1, in.Password2 = "", ""
		h.writeError(w, r, err, in)
		return
	}
	h.signIn(w, r, a, http.StatusCreated, a.Username+", you have successfully registered and logged in")
}

func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	username := r.FormValue("username")

	ctx, cancel := h.requestContext(r)
	defer cancel()

	a, err := h.accounts.Authenticate(ctx, username, r.FormValue("password"))
	if err != nil {
		h.writeError(w, r, err, map[string]string{"username": username})
		return
	}
	h.signIn(w, r, a, http.StatusOK, username+", you are logged in")
}

// signIn moves the anonymous session cart into the account before the token is
// handed out, then rotates the session key. The account may already be
// committed at this point, so a failed merge does not fail the sign-in; the
// session key is kept and the next login retries the merge.
func (h *Handler) signIn(w http.ResponseWriter, r *http.Request, a *account.Account, status int, message string) {
	ctx, cancel := h.requestContext(r)
	defer cancel()

	merged, mergeErr := h.carts.MergeSession(ctx, sessionKey(r.Context()), a.ID)
	if mergeErr != nil {
		h.logger.Printf("signin: merge session cart into account %d: %v", a.ID, mergeErr)
	}

	token, err := h.tokens.Issue(a.ID)
	if err != nil {
		h.writeError(w, r, err, nil)
		return
	}
	http.SetCookie(w, &http.Cookie{
		Name:     authCookie,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		Secure:   h.secureCookies,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   int(h.tokens.TTL().Seconds()),
	})
	if mergeErr == nil {
		h.setSessionCookie(w)
	}

	writeJSON(w, status, authResponse{Message: message, Token: token, Account: a, MergedLines: merged})
}

func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	h.clearAuthCookie(w)
	h.setSessionCookie(w)
	writeJSON(w, http.StatusOK, map[string]string{"message": "You have logged out"})
}

func (h *Handler) clearAuthCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     authCookie,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		Secure:   h.secureCookies,
		MaxAge:   -1,
	})
}

func (h *Handler) GetProfile(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := h.requestContext(r)
	defer cancel()

	id := accountID(r.Context())
	a, err := h.accounts.Profile(ctx, id)
	if err != nil {
		h.writeError(w, r, err, nil)
		return
	}
	orders, err := h.orders.List(ctx, id)
	if err != nil {
		h.writeError(w, r, err, nil)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"account": a,
		"orders":  newOrderViews(orders),
	})
}

func (h *Handler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	var in account.ProfileInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		badRequest(w, "invalid json body")
		return
	}

	ctx, cancel := h.requestContext(r)
	defer cancel()

	a, err := h.accounts.UpdateProfile(ctx, accountID(r.Context()), in)
	if err != nil {
		h.writeError(w, r, err, in)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"message": "Profile updated", "account": a})
}
