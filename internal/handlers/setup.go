package handlers

import (
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"sagechat-backend/internal/directory"
	"sagechat-backend/internal/hub"
	"sagechat-backend/internal/jwt"
	"sagechat-backend/internal/keyValue"
	"sagechat-backend/internal/membership"
	"sagechat-backend/internal/models"
	"sagechat-backend/internal/store"
)

// API carries everything the handlers need; there are no package-level
// singletons.
type API struct {
	sugar    *zap.SugaredLogger
	store    *store.SQL
	policy   *membership.Policy
	dir      *directory.Directory
	hub      *hub.Hub
	kv       *keyValue.KV
	tokens   *jwt.Tokens
	validate *validator.Validate
	isHttps  bool
}

func NewAPI(sugar *zap.SugaredLogger, st *store.SQL, policy *membership.Policy, dir *directory.Directory, h *hub.Hub, kv *keyValue.KV, tokens *jwt.Tokens, isHttps bool) *API {
	return &API{
		sugar:    sugar,
		store:    st,
		policy:   policy,
		dir:      dir,
		hub:      h,
		kv:       kv,
		tokens:   tokens,
		validate: validator.New(),
		isHttps:  isHttps,
	}
}

func (a *API) Router(cfg *models.ConfigFile) chi.Router {
	r := chi.NewRouter()

	if cfg.PrintHttpRequests {
		r.Use(middleware.Logger)
	}

	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	r.Route("/api", func(api chi.Router) {
		api.Route("/auth", func(r chi.Router) {
			r.Post("/login", a.Login)
			r.Post("/register", a.Register)
			r.With(a.UserVerifier).Post("/logout", a.Logout)
			r.With(a.UserVerifier).Get("/newSession", a.NewSession)
			r.With(a.UserVerifier).Get("/isLoggedIn", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })
		})

		api.Route("/user", func(r chi.Router) {
			r.Use(a.UserVerifier)
			r.Get("/fetch", a.GetUserInfo)
			r.Post("/update", a.UpdateUserInfo)
		})

		api.Route("/channel", func(r chi.Router) {
			r.Use(a.UserVerifier)
			r.Post("/create", a.CreateChannel)
			r.Post("/dm", a.OpenDM)
			r.Get("/fetch", a.GetChannelList)
			r.Get("/search", a.SearchChannels)
			r.Post("/join", a.JoinChannel)
			r.Post("/leave", a.LeaveChannel)
			r.Post("/delete", a.DeleteChannel)
		})

		api.Route("/message", func(r chi.Router) {
			r.Use(a.UserVerifier)
			r.Post("/create", a.CreateMessage)
			r.With(a.SessionVerifier).Get("/fetch", a.GetMessageList)
			r.Post("/edit", a.EditMessage)
			r.Post("/delete", a.DeleteMessage)
		})

		api.Route("/members", func(r chi.Router) {
			r.Use(a.UserVerifier)
			r.Get("/fetch", a.GetMemberList)
		})
	})

	var websocketPath string

	if cfg.BehindNginx {
		websocketPath = "/ws/"
	} else {
		websocketPath = "/ws"
		r.Handle("/*", http.FileServer(http.Dir("./public/static")))
	}

	r.With(a.UserVerifier).Get(websocketPath, a.HandleWebSocket)

	return r
}

// Setup builds the router and blocks serving it.
func (a *API) Setup(cfg *models.ConfigFile) error {
	r := a.Router(cfg)

	address := fmt.Sprintf("%s:%s", cfg.Address, cfg.Port)

	if a.isHttps {
		return http.ListenAndServeTLS(address, cfg.TlsCert, cfg.TlsKey, r)
	}
	return http.ListenAndServe(address, r)
}
