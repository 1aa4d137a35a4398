package xhttp

import (
	"os"
	"os/signal"
	"slices"
	"syscall"
	"time"

	"github.com/valyala/fasthttp"

	"github.com/abdurrahmanaziz/eksporyuk-sub039/pkg/logger"
)

type Server = fasthttp.Server

type ServerOption struct {
	Name               string
	ReadTimeout        time.Duration
	WriteTimeout       time.Duration
	IdleTimeout        time.Duration
	MaxRequestBodySize int
	Concurrency        int
	ReadBufferSize     int
	WriteBufferSize    int
}

var DefaultServerOption = ServerOption{
	ReadTimeout:        time.Millisecond * 2500,
	WriteTimeout:       time.Millisecond * 2500,
	IdleTimeout:        time.Second * 10,
	MaxRequestBodySize: 4 * 1024 * 1024, // 4MB
	Concurrency:        30_000,
	ReadBufferSize:     1024 * 4,
	WriteBufferSize:    1024 * 4,
}

// Engine couples a fasthttp server with a router and a middleware
// chain. Middleware registered via Use wraps the whole router.
type Engine struct {
	*Router
	*Server
	option ServerOption
	middle []MiddlewareFunc
}

func NewServer(opt ServerOption) *Engine {
	return &Engine{
		Server: &fasthttp.Server{
			Name:                          opt.Name,
			ReadTimeout:                   opt.ReadTimeout,
			WriteTimeout:                  opt.WriteTimeout,
			IdleTimeout:                   opt.IdleTimeout,
			MaxRequestBodySize:            opt.MaxRequestBodySize,
			Concurrency:                   opt.Concurrency,
			ReadBufferSize:                opt.ReadBufferSize,
			WriteBufferSize:               opt.WriteBufferSize,
			NoDefaultServerHeader:         true,
			NoDefaultDate:                 true,
			NoDefaultContentType:          true,
			CloseOnShutdown:               true,
			DisablePreParseMultipartForm:  true,
			DisableHeaderNamesNormalizing: false,
		},
		Router: CreateDefaultRouter(),
		option: opt,
	}
}

// Use appends middleware; the first registered runs outermost.
func (e *Engine) Use(m MiddlewareFunc) {
	e.middle = append(e.middle, m)
}

func (e *Engine) doRouting() {
	for method, routes := range e.Router.List() {
		for _, r := range routes {
			logger.Debug("[xhttp] route registered", "method", method, "path", r)
		}
	}
	e.Server.Handler = e.Router.Handler

	// reverse so the first Use() is the outermost wrapper
	reversed := slices.Clone(e.middle)
	slices.Reverse(reversed)
	for _, m := range reversed {
		e.Server.Handler = m(e.Server.Handler)
	}
}

func (e *Engine) ListenAndServe(addr string) error {
	e.doRouting()
	logger.Info("[xhttp] server listening", "addr", addr)
	return e.Server.ListenAndServe(addr)
}

// CloseOnSignal shuts the server down on SIGINT/SIGTERM/SIGQUIT.
func (e *Engine) CloseOnSignal() {
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)
	go func() {
		<-sig
		e.Shutdown()
	}()
}

func (e *Engine) Shutdown() {
	logger.Info("[xhttp] server shutting down", "pid", os.Getpid())
	if err := e.Server.Shutdown(); err != nil {
		logger.Error("[xhttp] error while shutting down", "error", err)
	}
}
