package api

import (
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"sync"
	"time"

	"github.com/Borislavv/refptr/pkg/config"
	"github.com/Borislavv/refptr/pkg/storage"
	"github.com/fasthttp/router"
	"github.com/rs/zerolog/log"
	"github.com/valyala/fasthttp"
)

const tokenTTL = 5 * time.Minute

// Clearable is the part of a store the controller needs.
type Clearable interface {
	Clear() int
	Sweep() int
	Stats() storage.Stats
}

type StoreController struct {
	cfg     *config.Config
	store   Clearable
	mu      sync.Mutex
	token   string
	expires time.Time
}

func NewStoreController(cfg *config.Config, store Clearable) *StoreController {
	return &StoreController{cfg: cfg, store: store}
}

type tokenResponse struct {
	Token     string `json:"token"`
	ExpiresAt int64  `json:"expiresAt"`
}

type clearStatusResponse struct {
	Cleared  bool   `json:"cleared,omitempty"`
	Released int    `json:"released,omitempty"`
	Error    string `json:"error,omitempty"`
}

// Stats handles GET /store/stats. Expired weak entries are swept first.
func (c *StoreController) Stats(ctx *fasthttp.RequestCtx) {
	c.store.Sweep()
	ctx.SetStatusCode(fasthttp.StatusOK)
	ctx.SetContentType("application/json")
	_ = json.NewEncoder(ctx).Encode(c.store.Stats())
}

// HandleClear is mounted at GET /store/clear.
// Without ?token, returns a valid token (5min TTL).
// With ?token, validates it, clears the store and returns status.
func (c *StoreController) HandleClear(ctx *fasthttp.RequestCtx) {
	now := time.Now()
	raw := string(ctx.QueryArgs().Peek("token"))
	ctx.SetContentType("application/json")

	if raw == "" {
		c.mu.Lock()
		if c.token != "" && now.Before(c.expires) {
			tok, exp := c.token, c.expires
			c.mu.Unlock()
			ctx.SetStatusCode(fasthttp.StatusOK)
			_ = json.NewEncoder(ctx).Encode(tokenResponse{tok, exp.UnixMilli()})
			return
		}
		c.mu.Unlock()

		b := make([]byte, 16)
		if _, err := rand.Read(b); err != nil {
			log.Error().Err(err).Msg("[store] token generation failed")
			ctx.Error("internal error", fasthttp.StatusInternalServerError)
			return
		}
		tok, exp := hex.EncodeToString(b), now.Add(tokenTTL)

		c.mu.Lock()
		c.token, c.expires = tok, exp
		c.mu.Unlock()

		ctx.SetStatusCode(fasthttp.StatusOK)
		_ = json.NewEncoder(ctx).Encode(tokenResponse{tok, exp.UnixMilli()})
		return
	}

	c.mu.Lock()
	valid := raw == c.token && now.Before(c.expires)
	c.token = ""
	c.expires = time.Time{}
	c.mu.Unlock()

	if !valid {
		ctx.SetStatusCode(fasthttp.StatusForbidden)
		_ = json.NewEncoder(ctx).Encode(clearStatusResponse{Error: "invalid or expired token"})
		return
	}

	released := c.store.Clear()

	logEvent := log.Info()
	if c.cfg.IsProd() {
		logEvent.
			Str("ip", ctx.RemoteAddr().String()).
			Str("user_agent", string(ctx.UserAgent())).
			Int("released", released)
	}
	logEvent.Msg("[store] cleared through api")

	ctx.SetStatusCode(fasthttp.StatusOK)
	_ = json.NewEncoder(ctx).Encode(clearStatusResponse{Cleared: true, Released: released})
}

func (c *StoreController) AddRoute(r *router.Router) {
	r.GET("/store/stats", c.Stats)
	r.GET("/store/clear", c.HandleClear)
}
