package web

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"html/template"
	"log/slog"
	"maps"
	"net/http"
	"runtime/debug"
	"strconv"

	"github.com/gorilla/csrf"
	"github.com/gorilla/sessions"
	"github.com/inkpress/inkpress/auth"
	authcontext "github.com/inkpress/inkpress/auth/context"
	"github.com/inkpress/inkpress/contents"
	"github.com/inkpress/inkpress/discuss"
)

//go:embed templates/*.gohtml
var templatesFS embed.FS

const (
	defaultSiteTitle   = "Inkpress"
	recentPostsLimit   = 5
	defaultListLimit   = 0 // unbounded, the full listing
	maxRequestBodySize = 1 << 20
)

type Handler struct {
	mux         *http.ServeMux
	handler     http.Handler
	tpl         *template.Template
	authSvc     *auth.Service
	contentsSvc *contents.Service
	discussSvc  *discuss.Service
	cookieStore *sessions.CookieStore
	sessionName string
}

var _ http.Handler = (*Handler)(nil)

func NewHandler(
	authSvc *auth.Service,
	contentsSvc *contents.Service,
	discussSvc *discuss.Service,
	cookieStore *sessions.CookieStore,
	sessionName string,
	csrfAuthKey []byte,
	csrfSecure bool,
	csrfTrustedOrigins []string,
) (*Handler, error) {
	h := &Handler{
		authSvc:     authSvc,
		contentsSvc: contentsSvc,
		discussSvc:  discussSvc,
		cookieStore: cookieStore,
		sessionName: sessionName,
	}

	tpl, err := template.ParseFS(templatesFS, "templates/*.gohtml")
	if err != nil {
		return nil, fmt.Errorf("failed to parse templates: %w", err)
	}

	h.tpl = tpl

	h.mux = &http.ServeMux{}
	h.handler = h.mux

	h.registerRoutes()

	h.handler = h.authMiddleware(h.handler)

	csrfMiddleware := csrf.Protect(
		csrfAuthKey,
		csrf.Secure(csrfSecure),
		csrf.TrustedOrigins(csrfTrustedOrigins),
	)

	h.handler = csrfMiddleware(h.handler)

	if !csrfSecure {
		// gorilla/csrf v1.7.3 only skips its Referer origin checks for
		// requests explicitly marked as served over plaintext HTTP.
		next := h.handler
		h.handler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			next.ServeHTTP(w, csrf.PlaintextHTTPRequest(r))
		})
	}

	h.handler = recoverMiddleware(h.handler)

	return h, nil
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)

	h.handler.ServeHTTP(w, r)
}

func (h *Handler) registerRoutes() {
	h.mux.HandleFunc("GET /{$}", h.HandleHomePage)
	h.mux.HandleFunc("GET /posts", h.HandlePostListPage)
	h.mux.HandleFunc("GET /posts/{postId}", h.HandlePostDetailPage)

	h.mux.Handle("GET /users/signup", h.HandleSignupPage())
	h.mux.Handle("POST /users/signup", h.HandleSignup())
	h.mux.Handle("GET /users/login", h.HandleLoginPage())
	h.mux.Handle("POST /users/login", h.HandleLogin())
	h.mux.Handle("GET /users/logout", h.HandleLogoutPage())
	h.mux.Handle("POST /users/logout", h.HandleLogout())

	h.mux.Handle("POST /posts/{postId}/comments", h.HandleCreateComment())
}

func recoverMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func(ctx context.Context) {
			if err := recover(); err != nil {
				slog.ErrorContext(ctx, "recovered from panic", "error", err, "stack", string(debug.Stack()))

				http.Error(w, "internal error occurred", http.StatusInternalServerError)
			}
		}(r.Context())

		next.ServeHTTP(w, r)
	})
}

func (h *Handler) renderTemplate(w http.ResponseWriter, r *http.Request, name string, extraData map[string]any) {
	var currentUser *auth.User

	if isAuthenticated(r) {
		var err error

		currentUser, err = h.authSvc.GetCurrentUser(r.Context())
		if err != nil {
			slog.ErrorContext(r.Context(), "failed to get current user", "error", err)
			http.Error(w, "Failed to get current user", http.StatusInternalServerError)

			return
		}
	}

	data := map[string]any{
		"CurrentPath":     r.URL.Path,
		"Lang":            "en",
		"Dir":             "ltr",
		"IsAuthenticated": isAuthenticated(r),
		"CurrentUser":     currentUser,
	}

	maps.Copy(data, extraData)

	data["SiteTitle"] = defaultSiteTitle

	if extraData["SiteTitle"] != nil {
		data["SiteTitle"] = fmt.Sprintf("%s | %s", extraData["SiteTitle"], data["SiteTitle"])
	}

	err := h.tpl.ExecuteTemplate(w, name, data)
	if err != nil {
		slog.ErrorContext(r.Context(), "failed to render template", "name", name, "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)

		return
	}
}

// PostSummary is a post row on the home and listing pages.
type PostSummary struct {
	contents.Post

	CommentsCount int
}

func (h *Handler) summarizePosts(ctx context.Context, posts []*contents.Post) ([]*PostSummary, error) {
	postIDs := make([]int64, 0, len(posts))
	for _, post := range posts {
		postIDs = append(postIDs, post.ID)
	}

	counts, err := h.discussSvc.CountComments(ctx, postIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to count comments: %w", err)
	}

	result := make([]*PostSummary, 0, len(posts))
	for _, post := range posts {
		result = append(result, &PostSummary{Post: *post, CommentsCount: counts[post.ID]})
	}

	return result, nil
}

func (h *Handler) HandleHomePage(w http.ResponseWriter, r *http.Request) {
	posts, err := h.contentsSvc.RecentPosts(r.Context(), recentPostsLimit)
	if err != nil {
		slog.ErrorContext(r.Context(), "failed to list recent posts", "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)

		return
	}

	summaries, err := h.summarizePosts(r.Context(), posts)
	if err != nil {
		slog.ErrorContext(r.Context(), "failed to summarize posts", "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)

		return
	}

	data := map[string]any{
		"Posts": summaries,
	}

	h.renderTemplate(w, r, "home-page.gohtml", data)
}

func (h *Handler) HandlePostListPage(w http.ResponseWriter, r *http.Request) {
	params := contents.ListPostsParams{Limit: defaultListLimit}

	if v := r.URL.Query().Get("offset"); v != "" {
		offset, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			http.Error(w, "Bad Request", http.StatusBadRequest)

			return
		}

		params.Offset = offset
	}

	if v := r.URL.Query().Get("limit"); v != "" {
		limit, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			http.Error(w, "Bad Request", http.StatusBadRequest)

			return
		}

		params.Limit = limit
	}

	posts, err := h.contentsSvc.ListPosts(r.Context(), params)
	if err != nil {
		slog.ErrorContext(r.Context(), "failed to list posts", "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)

		return
	}

	summaries, err := h.summarizePosts(r.Context(), posts)
	if err != nil {
		slog.ErrorContext(r.Context(), "failed to summarize posts", "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)

		return
	}

	data := map[string]any{
		"Posts":     summaries,
		"SiteTitle": "Posts",
	}

	h.renderTemplate(w, r, "post-list-page.gohtml", data)
}

func (h *Handler) HandlePostDetailPage(w http.ResponseWriter, r *http.Request) {
	postID, err := strconv.ParseInt(r.PathValue("postId"), 10, 64)
	if err != nil {
		http.NotFound(w, r)

		return
	}

	post, err := h.contentsSvc.GetPost(r.Context(), postID)
	if err != nil {
		var postNotFoundErr *contents.PostNotFoundError
		if errors.As(err, &postNotFoundErr) {
			http.NotFound(w, r)

			return
		}

		slog.ErrorContext(r.Context(), "failed to get post", "postId", postID, "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)

		return
	}

	comments, err := h.discussSvc.ListComments(r.Context(), post.ID)
	if err != nil {
		slog.ErrorContext(r.Context(), "failed to list comments", "postId", post.ID, "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)

		return
	}

	data := map[string]any{
		"Post":           post,
		"Comments":       comments,
		"SiteTitle":      post.Title,
		csrf.TemplateTag: csrf.TemplateField(r),
	}

	h.renderTemplate(w, r, "post-detail-page.gohtml", data)
}

func (h *Handler) HandleSignupPage() http.Handler {
	hf := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		data := map[string]any{
			csrf.TemplateTag: csrf.TemplateField(r),
			"SiteTitle":      "Sign Up",
		}

		h.renderTemplate(w, r, "signup-page.gohtml", data)
	})

	return h.GuestOnly(hf)
}

func (h *Handler) HandleSignup() http.Handler {
	hf := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		err := r.ParseForm()
		if err != nil {
			slog.ErrorContext(r.Context(), "failed to parse form", "error", err)
			http.Error(w, "Bad Request", http.StatusBadRequest)

			return
		}

		username := r.FormValue("username")
		email := r.FormValue("email")
		password := r.FormValue("password")

		session, err := h.authSvc.Register(r.Context(), username, email, password)
		if err != nil {
			var (
				validationErr        *auth.ValidationError
				userAlreadyExistsErr *auth.UserAlreadyExistsError
				emailTakenErr        *auth.EmailAlreadyExistsError
			)

			switch {
			case errors.As(err, &validationErr):
				http.Error(w, validationErr.Error(), http.StatusBadRequest)
			case errors.As(err, &userAlreadyExistsErr):
				http.Error(w, "Username already exists", http.StatusConflict)
			case errors.As(err, &emailTakenErr):
				http.Error(w, "Email already in use", http.StatusConflict)
			default:
				slog.ErrorContext(r.Context(), "failed to register user", "error", err)
				http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			}

			return
		}

		// signup opens a session right away, no separate login step
		err = h.setSessionValue(w, r, sessionIDKey, session.ID)
		if err != nil {
			slog.ErrorContext(r.Context(), "failed to set session ID", "error", err)
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)

			return
		}

		http.Redirect(w, r, "/", http.StatusSeeOther)
	})

	return h.GuestOnly(hf)
}

func (h *Handler) HandleLoginPage() http.Handler {
	hf := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		data := map[string]any{
			csrf.TemplateTag: csrf.TemplateField(r),
			"SiteTitle":      "Login",
		}

		h.renderTemplate(w, r, "login-page.gohtml", data)
	})

	return h.GuestOnly(hf)
}

func (h *Handler) HandleLogin() http.Handler {
	hf := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		err := r.ParseForm()
		if err != nil {
			slog.ErrorContext(r.Context(), "failed to parse form", "error", err)
			http.Error(w, "Bad Request", http.StatusBadRequest)

			return
		}

		username := r.FormValue("username")
		password := r.FormValue("password")

		session, err := h.authSvc.Login(r.Context(), username, password)
		if err != nil {
			switch {
			case errors.Is(err, auth.ErrInvalidCredentials):
				// one message for both unknown username and wrong password
				http.Error(w, "Invalid username or password", http.StatusUnauthorized)
			default:
				slog.ErrorContext(r.Context(), "failed to login user", "error", err)
				http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			}

			return
		}

		err = h.setSessionValue(w, r, sessionIDKey, session.ID)
		if err != nil {
			slog.ErrorContext(r.Context(), "failed to set session ID", "error", err)
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)

			return
		}

		http.Redirect(w, r, "/", http.StatusSeeOther)
	})

	return h.GuestOnly(hf)
}

func (h *Handler) HandleLogoutPage() http.Handler {
	hf := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		data := map[string]any{
			csrf.TemplateTag: csrf.TemplateField(r),
			"SiteTitle":      "Logout",
		}

		h.renderTemplate(w, r, "logout-page.gohtml", data)
	})

	return h.AuthenticatedOnly(hf)
}

func (h *Handler) HandleLogout() http.Handler {
	hf := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sessionID, ok := authcontext.SessionIDFromContext(r.Context())
		if ok {
			err := h.authSvc.Logout(r.Context(), sessionID)
			if err != nil {
				slog.ErrorContext(r.Context(), "error on logout", "sessionId", sessionID, "error", err)
				http.Error(w, "error on logout", http.StatusInternalServerError)

				return
			}
		}

		err := h.deleteSessionValue(w, r, sessionIDKey)
		if err != nil {
			slog.ErrorContext(r.Context(), "error on deleting session value", "key", sessionIDKey, "error", err)
			http.Error(w, "error on deleting session value", http.StatusInternalServerError)

			return
		}

		http.Redirect(w, r, "/", http.StatusSeeOther)
	})

	return h.AuthenticatedOnly(hf)
}

func (h *Handler) HandleCreateComment() http.Handler {
	hf := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		postID, err := strconv.ParseInt(r.PathValue("postId"), 10, 64)
		if err != nil {
			http.NotFound(w, r)

			return
		}

		err = r.ParseForm()
		if err != nil {
			slog.ErrorContext(r.Context(), "failed to parse form", "error", err)
			http.Error(w, "Bad Request", http.StatusBadRequest)

			return
		}

		content := r.FormValue("content")

		currentUser, err := h.authSvc.GetCurrentUser(r.Context())
		if err != nil {
			slog.ErrorContext(r.Context(), "failed to get current user", "error", err)
			http.Error(w, "Failed to get current user", http.StatusInternalServerError)

			return
		}

		_, err = h.discussSvc.CreateComment(r.Context(), discuss.CreateCommentRequest{
			PostID:   postID,
			AuthorID: currentUser.ID,
			Content:  content,
		})
		if err != nil {
			var (
				validationErr   *discuss.ValidationError
				postNotFoundErr *contents.PostNotFoundError
			)

			switch {
			case errors.As(err, &validationErr):
				http.Error(w, validationErr.Error(), http.StatusBadRequest)
			case errors.As(err, &postNotFoundErr):
				http.NotFound(w, r)
			default:
				slog.ErrorContext(r.Context(), "failed to create comment", "error", err)
				http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			}

			return
		}

		http.Redirect(w, r, fmt.Sprintf("/posts/%d", postID), http.StatusSeeOther)
	})

	return h.AuthenticatedOnly(hf)
}
