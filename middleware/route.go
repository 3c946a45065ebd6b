package middleware

import (
	"github.com/gin-gonic/gin"
)

type RouteOpt struct {
	IsAuth  bool
	Checker ControlTokenChecker
}

func POST(r gin.IRoutes, path string, handler gin.HandlerFunc, opt RouteOpt) {
	if opt.IsAuth {
		r.POST(path, ControlAuth(opt.Checker), handler)
	} else {
		r.POST(path, handler)
	}
}

func GET(r gin.IRoutes, path string, handler gin.HandlerFunc, opt RouteOpt) {
	if opt.IsAuth {
		r.GET(path, ControlAuth(opt.Checker), handler)
	} else {
		r.GET(path, handler)
	}
}
