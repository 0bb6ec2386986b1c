// Package router assembles the gin engine and its route groups.
package router

import (
	"net/http"
	"path"

	"github.com/gin-gonic/gin"
)

// Group is a prefixed set of routes sharing middleware. Groups are built
// up front and attached to the engine by Mount.
type Group struct {
	prefix     string
	middleware []gin.HandlerFunc
	routes     []route
}

type route struct {
	method   string
	path     string
	handlers []gin.HandlerFunc
}

// NewGroup creates a group mounted at prefix below the API root
func NewGroup(prefix string, middleware ...gin.HandlerFunc) *Group {
	return &Group{prefix: prefix, middleware: middleware}
}

// GET adds a GET route
func (g *Group) GET(p string, handlers ...gin.HandlerFunc) *Group {
	return g.add(http.MethodGet, p, handlers)
}

// POST adds a POST route
func (g *Group) POST(p string, handlers ...gin.HandlerFunc) *Group {
	return g.add(http.MethodPost, p, handlers)
}

func (g *Group) add(method, p string, handlers []gin.HandlerFunc) *Group {
	g.routes = append(g.routes, route{method: method, path: p, handlers: handlers})
	return g
}

// Routes lists "METHOD /prefix/path" for every route of the group
func (g *Group) Routes() []string {
	out := make([]string, len(g.routes))
	for i, r := range g.routes {
		out[i] = r.method + " " + path.Join(g.prefix, r.path)
	}
	return out
}

func (g *Group) mount(rg *gin.RouterGroup) {
	group := rg.Group(g.prefix, g.middleware...)
	for _, r := range g.routes {
		group.Handle(r.method, r.path, r.handlers...)
	}
}

// Mount attaches groups under /api/<version> and returns the API root
func Mount(engine *gin.Engine, version string, groups ...*Group) *gin.RouterGroup {
	api := engine.Group("/api/" + version)
	for _, g := range groups {
		g.mount(api)
	}
	return api
}
