package rest

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
)

// endpoint versioned api root
type endpoint struct {
	apiVersion  string
	middlewares []echo.MiddlewareFunc
	groups      []*apiGroup
}

type apiGroup struct {
	prefix      string
	middlewares []echo.MiddlewareFunc
	routes      []*route
}

type route struct {
	method      string
	path        string
	handler     echo.HandlerFunc
	middlewares []echo.MiddlewareFunc
}

func createEndpoint(app *echo.Echo, def *endpoint) {
	root := app.Group("/"+strings.TrimPrefix(def.apiVersion, "/"), def.middlewares...)

	for _, group := range def.groups {
		echoGroup := root.Group(group.prefix, group.middlewares...)
		for _, api := range group.routes {
			switch api.method {
			case http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch,
				http.MethodDelete, http.MethodHead:
				echoGroup.Add(api.method, api.path, api.handler, api.middlewares...)
			default:
				panic(fmt.Errorf("createEndpoint: unsupported method %s for %s%s", api.method, group.prefix, api.path))
			}
		}
	}
}
