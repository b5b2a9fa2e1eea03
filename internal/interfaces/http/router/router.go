// Package router mounts the ledger's route groups under a versioned API prefix.
package router

import (
	"net/http"
	"path"

	"github.com/gin-gonic/gin"
)

// Router mounts DomainGroups on a gin engine under /api/<version>
type Router struct {
	engine     *gin.Engine
	apiVersion string
	groups     []*DomainGroup
}

// RouterOption configures a Router
type RouterOption func(*Router)

// WithAPIVersion replaces the default "v1" prefix segment
func WithAPIVersion(version string) RouterOption {
	return func(r *Router) { r.apiVersion = version }
}

// NewRouter returns a Router for engine
func NewRouter(engine *gin.Engine, opts ...RouterOption) *Router {
	r := &Router{engine: engine, apiVersion: "v1"}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Register queues groups for Setup
func (r *Router) Register(groups ...*DomainGroup) *Router {
	r.groups = append(r.groups, groups...)
	return r
}

// BasePath is the prefix every group is mounted under
func (r *Router) BasePath() string {
	return "/api/" + r.apiVersion
}

// Setup mounts the registered groups and returns the resulting routes
func (r *Router) Setup() []RouteInfo {
	api := r.engine.Group(r.BasePath())
	var mounted []RouteInfo
	for _, g := range r.groups {
		g.RegisterRoutes(api)
		mounted = append(mounted, g.Routes(r.BasePath())...)
	}
	return mounted
}

// RouteInfo describes one mounted route
type RouteInfo struct {
	Group  string
	Method string
	Path   string
}

type route struct {
	method   string
	path     string
	handlers []gin.HandlerFunc
}

// DomainGroup collects the routes of one resource. Middleware added with Use
// applies to the group and its subgroups only.
type DomainGroup struct {
	name       string
	prefix     string
	middleware []gin.HandlerFunc
	routes     []route
	subgroups  []*DomainGroup
}

// NewDomainGroup starts an empty group mounted at prefix
func NewDomainGroup(name, prefix string) *DomainGroup {
	return &DomainGroup{name: name, prefix: prefix}
}

// Use adds group-scoped middleware
func (dg *DomainGroup) Use(middleware ...gin.HandlerFunc) *DomainGroup {
	dg.middleware = append(dg.middleware, middleware...)
	return dg
}

// Handle adds a route relative to the group prefix
func (dg *DomainGroup) Handle(method, relativePath string, handlers ...gin.HandlerFunc) *DomainGroup {
	dg.routes = append(dg.routes, route{method: method, path: relativePath, handlers: handlers})
	return dg
}

func (dg *DomainGroup) GET(p string, h ...gin.HandlerFunc) *DomainGroup    { return dg.Handle(http.MethodGet, p, h...) }
func (dg *DomainGroup) POST(p string, h ...gin.HandlerFunc) *DomainGroup   { return dg.Handle(http.MethodPost, p, h...) }
func (dg *DomainGroup) PUT(p string, h ...gin.HandlerFunc) *DomainGroup    { return dg.Handle(http.MethodPut, p, h...) }
func (dg *DomainGroup) PATCH(p string, h ...gin.HandlerFunc) *DomainGroup  { return dg.Handle(http.MethodPatch, p, h...) }
func (dg *DomainGroup) DELETE(p string, h ...gin.HandlerFunc) *DomainGroup { return dg.Handle(http.MethodDelete, p, h...) }

// Group nests a new group under this one and returns it
func (dg *DomainGroup) Group(name, prefix string) *DomainGroup {
	sub := NewDomainGroup(name, prefix)
	dg.subgroups = append(dg.subgroups, sub)
	return sub
}

// RegisterRoutes mounts the group, subgroups included, on rg
func (dg *DomainGroup) RegisterRoutes(rg *gin.RouterGroup) {
	g := rg.Group(dg.prefix, dg.middleware...)
	for _, rt := range dg.routes {
		g.Handle(rt.method, rt.path, rt.handlers...)
	}
	for _, sub := range dg.subgroups {
		sub.RegisterRoutes(g)
	}
}

// Routes lists the group's routes, subgroups included, as mounted under base
func (dg *DomainGroup) Routes(base string) []RouteInfo {
	prefix := path.Join(base, dg.prefix)
	out := make([]RouteInfo, 0, len(dg.routes))
	for _, rt := range dg.routes {
		full := prefix
		if rt.path != "" && rt.path != "/" {
			full = path.Join(prefix, rt.path)
		}
		out = append(out, RouteInfo{Group: dg.name, Method: rt.method, Path: full})
	}
	for _, sub := range dg.subgroups {
		out = append(out, sub.Routes(prefix)...)
	}
	return out
}
