package controller

import "github.com/fasthttp/router"

// HttpController registers its routes on the diagnostics router.
type HttpController interface {
	AddRoute(router *router.Router)
}
