/*
Package server exposes the rule store over HTTP, for the popup and options
pages and for scripting.

    GET    /api/rules               ?kind=&domain=&active=
    POST   /api/rules               {kind, className, domain, label, cssRules}
    PATCH  /api/rules               {kind, className, domain, newClassName, label, cssRules}
    DELETE /api/rules               ?kind=&className=&domain=
    POST   /api/rules/toggle        {kind, className, domain}
    DELETE /api/rules/all           ?kind=
    GET    /api/groups              ?kind=
    POST   /api/domains/:domain/toggle  ?kind=
    GET    /api/settings
    PUT    /api/settings            {isEnabled, isStyleEnabled, theme}
    GET    /api/css/:domain         ?format=json
    GET    /api/export
    POST   /api/import              ?overwrite=true
    POST   /api/messages/:target    message JSON

Errors are answered as {success: false, error: "…"} with a status code
derived from the error class.

License

Governed by a 3-Clause BSD license. License file may be found in the root
folder of this module.

Copyright © 2022 Norbert Pillmayer <norbert@pillmayer.com>
*/
package server

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/npillmayer/blocker/dom/style/cssom"
	"github.com/npillmayer/blocker/dom/style/cssom/douceuradapter"
	"github.com/npillmayer/blocker/maybe"
	"github.com/npillmayer/blocker/messaging"
	"github.com/npillmayer/blocker/rule"
	"github.com/npillmayer/blocker/store"
	"github.com/npillmayer/blocker/stylesheet"
	"github.com/npillmayer/blocker/transfer"
	"github.com/npillmayer/schuko/tracing"
)

// tracer traces with key 'blocker.server'.
func tracer() tracing.Trace {
	return tracing.Select("blocker.server")
}

// Server serves the API for one rule store.
type Server struct {
	store *store.Store
	bus   messaging.Port
	http  *http.Server
}

// New creates a server. bus may be nil, then message dispatch answers 503.
func New(st *store.Store, bus messaging.Port) *Server {
	return &Server{store: st, bus: bus}
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())
	api := r.Group("/api")
	api.GET("/rules", s.listRules)
	api.POST("/rules", s.addRule)
	api.PATCH("/rules", s.updateRule)
	api.DELETE("/rules", s.removeRule)
	api.POST("/rules/toggle", s.toggleRule)
	api.DELETE("/rules/all", s.clearRules)
	api.GET("/groups", s.groups)
	api.POST("/domains/:domain/toggle", s.toggleDomain)
	api.GET("/settings", s.getSettings)
	api.PUT("/settings", s.putSettings)
	api.GET("/css/:domain", s.css)
	api.GET("/export", s.export)
	api.POST("/import", s.importFile)
	api.POST("/messages/:target", s.message)
	return r
}

// ListenAndServe serves on addr until ctx is done.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	s.http = &http.Server{Addr: addr, Handler: s.Handler()}
	errc := make(chan error, 1)
	go func() { errc <- s.http.ListenAndServe() }()
	tracer().Infof("server: listening on %s", addr)
	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
		shutdown, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return s.http.Shutdown(shutdown)
	}
}

// --- helpers ---------------------------------------------------------------

type ruleRequest struct {
	Kind         string  `json:"kind"`
	ClassName    string  `json:"className"`
	Domain       *string `json:"domain"`
	NewClassName *string `json:"newClassName"`
	Label        *string `json:"label"`
	CSSRules     *string `json:"cssRules"`
}

func (q ruleRequest) kind() (rule.Kind, error) {
	if q.Kind == "" {
		return rule.Blocking, nil
	}
	return rule.ParseKind(q.Kind)
}

func (q ruleRequest) domain() string {
	if q.Domain == nil {
		return rule.Global
	}
	return *q.Domain
}

func kindParam(c *gin.Context) (rule.Kind, error) {
	k := c.Query("kind")
	if k == "" {
		return rule.Blocking, nil
	}
	return rule.ParseKind(k)
}

func status(err error) int {
	switch {
	case errors.Is(err, rule.ErrDuplicate):
		return http.StatusConflict
	case errors.Is(err, rule.ErrInvalidSpec), errors.Is(err, rule.ErrImportFormat):
		return http.StatusBadRequest
	case errors.Is(err, rule.ErrNotFound), errors.Is(err, store.ErrNothingToToggle):
		return http.StatusNotFound
	case errors.Is(err, rule.ErrMessagingUnavailable):
		return http.StatusServiceUnavailable
	case errors.Is(err, rule.ErrPersistence):
		return http.StatusBadGateway
	}
	return http.StatusBadRequest
}

func fail(c *gin.Context, err error) {
	code := status(err)
	if code >= 500 {
		tracer().Errorf("server: %s %s: %v", c.Request.Method, c.Request.URL.Path, err)
	}
	c.JSON(code, messaging.Failed(err))
}

func ok(c *gin.Context) {
	c.JSON(http.StatusOK, messaging.OK())
}

// --- handlers --------------------------------------------------------------

func (s *Server) listRules(c *gin.Context) {
	f := store.Filter{OnlyActive: c.Query("active") == "true"}
	if k := c.Query("kind"); k != "" {
		kind, err := rule.ParseKind(k)
		if err != nil {
			fail(c, err)
			return
		}
		f.Kind = maybe.Just(kind)
	}
	if d, has := c.GetQuery("domain"); has {
		f.Domain = maybe.Just(d)
	}
	c.JSON(http.StatusOK, s.store.Query(f))
}

func (s *Server) addRule(c *gin.Context) {
	var q ruleRequest
	if err := c.ShouldBindJSON(&q); err != nil {
		fail(c, err)
		return
	}
	kind, err := q.kind()
	if err != nil {
		fail(c, err)
		return
	}
	label := maybe.FromPointer(q.Label)
	if kind == rule.Styling {
		css := maybe.FromPointer(q.CSSRules).WithDefault("")
		err = s.store.AddStyling(c.Request.Context(), q.ClassName, q.domain(), css, label)
	} else {
		err = s.store.Add(c.Request.Context(), q.ClassName, q.domain(), kind, label)
	}
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, messaging.OK())
}

func (s *Server) updateRule(c *gin.Context) {
	var q ruleRequest
	if err := c.ShouldBindJSON(&q); err != nil {
		fail(c, err)
		return
	}
	kind, err := q.kind()
	if err != nil {
		fail(c, err)
		return
	}
	p := store.Patch{
		Spec:     maybe.FromPointer(q.NewClassName),
		Label:    maybe.FromPointer(q.Label),
		CSSRules: maybe.FromPointer(q.CSSRules),
	}
	if err := s.store.Update(c.Request.Context(), q.ClassName, q.domain(), kind, p); err != nil {
		fail(c, err)
		return
	}
	ok(c)
}

func (s *Server) removeRule(c *gin.Context) {
	kind, err := kindParam(c)
	if err != nil {
		fail(c, err)
		return
	}
	if err := s.store.Remove(c.Request.Context(), c.Query("className"), c.Query("domain"), kind); err != nil {
		fail(c, err)
		return
	}
	ok(c)
}

func (s *Server) toggleRule(c *gin.Context) {
	var q ruleRequest
	if err := c.ShouldBindJSON(&q); err != nil {
		fail(c, err)
		return
	}
	kind, err := q.kind()
	if err != nil {
		fail(c, err)
		return
	}
	if err := s.store.Toggle(c.Request.Context(), q.ClassName, q.domain(), kind); err != nil {
		fail(c, err)
		return
	}
	ok(c)
}

func (s *Server) clearRules(c *gin.Context) {
	kind, err := kindParam(c)
	if err != nil {
		fail(c, err)
		return
	}
	if err := s.store.ClearAll(c.Request.Context(), kind); err != nil {
		fail(c, err)
		return
	}
	ok(c)
}

func (s *Server) groups(c *gin.Context) {
	kind, err := kindParam(c)
	if err != nil {
		fail(c, err)
		return
	}
	g := s.store.GroupByDomain(kind)
	if c.Query("format") == "tree" {
		c.String(http.StatusOK, g.Tree())
		return
	}
	c.JSON(http.StatusOK, gin.H{"keys": g.Keys, "groups": g.Groups})
}

func (s *Server) toggleDomain(c *gin.Context) {
	kind, err := kindParam(c)
	if err != nil {
		fail(c, err)
		return
	}
	state, err := s.store.ToggleDomain(c.Request.Context(), c.Param("domain"), kind)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, messaging.Toggled(state))
}

type settingsBody struct {
	IsEnabled      *bool   `json:"isEnabled"`
	IsStyleEnabled *bool   `json:"isStyleEnabled"`
	Theme          *string `json:"theme"`
}

func (s *Server) getSettings(c *gin.Context) {
	st := s.store.Settings()
	theme := string(st.Theme)
	c.JSON(http.StatusOK, settingsBody{IsEnabled: &st.Enabled, IsStyleEnabled: &st.StyleEnabled, Theme: &theme})
}

func (s *Server) putSettings(c *gin.Context) {
	var body settingsBody
	if err := c.ShouldBindJSON(&body); err != nil {
		fail(c, err)
		return
	}
	ctx := c.Request.Context()
	if body.Theme != nil {
		if err := s.store.SetTheme(ctx, store.Theme(*body.Theme)); err != nil {
			fail(c, err)
			return
		}
	}
	if body.IsEnabled != nil {
		if err := s.store.SetEnabled(ctx, rule.Blocking, *body.IsEnabled); err != nil {
			fail(c, err)
			return
		}
	}
	if body.IsStyleEnabled != nil {
		if err := s.store.SetEnabled(ctx, rule.Styling, *body.IsStyleEnabled); err != nil {
			fail(c, err)
			return
		}
	}
	s.getSettings(c)
}

func (s *Server) css(c *gin.Context) {
	domain := c.Param("domain")
	blocking := stylesheet.Compile(s.store.Rules(rule.Blocking), domain, s.store.Enabled(rule.Blocking))
	styling := stylesheet.Compile(s.store.Rules(rule.Styling), domain, s.store.Enabled(rule.Styling))
	css := blocking
	if css != "" && styling != "" {
		css += "\n"
	}
	css += styling
	if c.Query("format") != "json" {
		c.Data(http.StatusOK, "text/css; charset=utf-8", []byte(css))
		return
	}
	sheet, err := douceuradapter.Parse(css)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, cssRules(sheet))
}

type cssDeclaration struct {
	Property  string `json:"property"`
	Value     string `json:"value"`
	Important bool   `json:"important"`
}

type cssRule struct {
	Selectors    []string         `json:"selectors"`
	Declarations []cssDeclaration `json:"declarations"`
}

func cssRules(sheet cssom.StyleSheet) []cssRule {
	rs := []cssRule{}
	for _, r := range sheet.Rules() {
		out := cssRule{Selectors: cssom.Selectors(r), Declarations: []cssDeclaration{}}
		for _, p := range r.Properties() {
			out.Declarations = append(out.Declarations, cssDeclaration{
				Property:  p,
				Value:     r.Value(p).String(),
				Important: r.IsImportant(p),
			})
		}
		rs = append(rs, out)
	}
	return rs
}

func (s *Server) export(c *gin.Context) {
	f := transfer.Export(s.store, time.Now())
	c.Header("Content-Disposition", `attachment; filename="element-blocker-config-`+
		time.Now().UTC().Format("2006-01-02")+`.json"`)
	c.JSON(http.StatusOK, f)
}

func (s *Server) importFile(c *gin.Context) {
	data, err := io.ReadAll(c.Request.Body)
	if err != nil {
		fail(c, err)
		return
	}
	overwrite, _ := strconv.ParseBool(c.DefaultQuery("overwrite", "false"))
	sum, err := transfer.Import(c.Request.Context(), s.store, data, overwrite)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "added": sum.Added, "total": sum.Total})
}

func (s *Server) message(c *gin.Context) {
	if s.bus == nil {
		fail(c, &rule.MessagingUnavailableError{Target: c.Param("target")})
		return
	}
	var msg messaging.Message
	if err := c.ShouldBindJSON(&msg); err != nil {
		fail(c, err)
		return
	}
	resp, err := s.bus.Send(c.Request.Context(), c.Param("target"), msg).Get()
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}
