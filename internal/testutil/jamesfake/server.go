// Package jamesfake runs an in-memory stand-in for the James webadmin API.
// It keeps aliases, domain contacts and domains in maps, records every
// request and can be told to answer a given route with an error status.
package jamesfake

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"sync"
	"testing"

	"github.com/gin-gonic/gin"
)

const (
	Username = "admin@open-paas.org"
	Password = "secret"
)

// Request is a recorded call
type Request struct {
	Method string
	Path   string
	Body   string
}

type contact struct {
	ID           string  `json:"id"`
	EmailAddress string  `json:"emailAddress"`
	Firstname    *string `json:"firstname"`
	Surname      *string `json:"surname"`
}

type failure struct {
	status int
	body   string
}

// Server is a fake webadmin endpoint
type Server struct {
	*httptest.Server

	mu            sync.Mutex
	aliases       map[string][]string
	contacts      map[string]contact
	domains       map[string]bool
	failures      map[string]failure
	requests      []Request
	strictDomains bool
	nextID        int
}

// Option configures the fake
type Option func(*Server)

// WithStrictDomains rejects alias sources whose domain was not declared
func WithStrictDomains() Option {
	return func(s *Server) {
		s.strictDomains = true
	}
}

// New starts a fake server and registers its shutdown on t
func New(t testing.TB, opts ...Option) *Server {
	t.Helper()
	gin.SetMode(gin.TestMode)

	s := &Server{
		aliases:  make(map[string][]string),
		contacts: make(map[string]contact),
		domains:  make(map[string]bool),
		failures: make(map[string]failure),
	}
	for _, opt := range opts {
		opt(s)
	}

	s.Server = httptest.NewServer(s.router())
	t.Cleanup(s.Close)
	return s
}

func (s *Server) router() *gin.Engine {
	r := gin.New()
	r.Use(s.record(), s.authenticate(), s.injectFailures())

	r.GET("/address/aliases", s.listAliasUsers)
	r.GET("/address/aliases/:user", s.listAliases)
	r.DELETE("/address/aliases/:user", s.deleteAliasUser)
	r.PUT("/address/aliases/:user/sources/:source", s.putAlias)
	r.DELETE("/address/aliases/:user/sources/:source", s.deleteAlias)

	r.GET("/domains/contacts/all", s.listContacts)
	r.POST("/domains/:domain/contacts", s.createContact)
	r.GET("/domains/:domain/contacts/:address", s.getContact)
	r.PUT("/domains/:domain/contacts/:address", s.updateContact)
	r.DELETE("/domains/:domain/contacts/:address", s.deleteContact)

	r.PUT("/domains/:domain", s.putDomain)
	r.GET("/domains/:domain", s.getDomain)
	return r
}

// ---------------------------------------------------------------------------
// Test helpers
// ---------------------------------------------------------------------------

// Fail makes every method call on path answer status with body
func (s *Server) Fail(method, path string, status int, body string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures[method+" "+path] = failure{status: status, body: body}
}

// Requests returns a copy of the recorded requests
func (s *Server) Requests() []Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Request(nil), s.requests...)
}

// RequestCount returns how many requests hit the server
func (s *Server) RequestCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.requests)
}

// ResetRequests clears the request log
func (s *Server) ResetRequests() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.requests = nil
}

// AddAlias seeds an alias
func (s *Server) AddAlias(user, source string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.addAliasLocked(user, source)
}

// Aliases returns the sources of user
func (s *Server) Aliases(user string) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.aliases[user]...)
}

// AddDomain seeds a domain
func (s *Server) AddDomain(domain string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.domains[domain] = true
}

// AddContact seeds a contact
func (s *Server) AddContact(address, firstname, surname string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c := contact{EmailAddress: address}
	if firstname != "" {
		c.Firstname = &firstname
	}
	if surname != "" {
		c.Surname = &surname
	}
	s.putContactLocked(c)
}

// Contact returns a seeded or created contact
func (s *Server) Contact(address string) (firstname, surname string, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.contacts[address]
	if !ok {
		return "", "", false
	}
	if c.Firstname != nil {
		firstname = *c.Firstname
	}
	if c.Surname != nil {
		surname = *c.Surname
	}
	return firstname, surname, true
}

// ---------------------------------------------------------------------------
// Middleware
// ---------------------------------------------------------------------------

func (s *Server) record() gin.HandlerFunc {
	return func(c *gin.Context) {
		var body string
		if c.Request.Body != nil {
			data, _ := c.GetRawData()
			body = string(data)
			c.Request.Body = io.NopCloser(bytes.NewReader(data))
		}
		s.mu.Lock()
		s.requests = append(s.requests, Request{Method: c.Request.Method, Path: c.Request.URL.Path, Body: body})
		s.mu.Unlock()
		c.Next()
	}
}

func (s *Server) authenticate() gin.HandlerFunc {
	return gin.BasicAuth(gin.Accounts{Username: Password})
}

func (s *Server) injectFailures() gin.HandlerFunc {
	return func(c *gin.Context) {
		s.mu.Lock()
		f, ok := s.failures[c.Request.Method+" "+c.Request.URL.Path]
		s.mu.Unlock()
		if ok {
			c.String(f.status, f.body)
			c.Abort()
			return
		}
		c.Next()
	}
}

// ---------------------------------------------------------------------------
// Aliases
// ---------------------------------------------------------------------------

func (s *Server) listAliasUsers(c *gin.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	users := make([]string, 0, len(s.aliases))
	for u := range s.aliases {
		users = append(users, u)
	}
	sort.Strings(users)
	c.JSON(http.StatusOK, users)
}

func (s *Server) listAliases(c *gin.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]gin.H, 0)
	for _, src := range s.aliases[c.Param("user")] {
		out = append(out, gin.H{"source": src})
	}
	c.JSON(http.StatusOK, out)
}

func (s *Server) putAlias(c *gin.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	source := c.Param("source")
	if s.strictDomains && !s.domains[domainOf(source)] {
		c.JSON(http.StatusBadRequest, apiError(http.StatusBadRequest, "InvalidArgument",
			"Domain in source is not managed by the DomainList"))
		return
	}
	s.addAliasLocked(c.Param("user"), source)
	c.Status(http.StatusNoContent)
}

func (s *Server) deleteAlias(c *gin.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	user, source := c.Param("user"), c.Param("source")
	kept := s.aliases[user][:0]
	for _, src := range s.aliases[user] {
		if src != source {
			kept = append(kept, src)
		}
	}
	if len(kept) == 0 {
		delete(s.aliases, user)
	} else {
		s.aliases[user] = kept
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) deleteAliasUser(c *gin.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.aliases, c.Param("user"))
	c.Status(http.StatusNoContent)
}

func (s *Server) addAliasLocked(user, source string) {
	for _, src := range s.aliases[user] {
		if src == source {
			return
		}
	}
	s.aliases[user] = append(s.aliases[user], source)
}

// ---------------------------------------------------------------------------
// Contacts
// ---------------------------------------------------------------------------

func (s *Server) listContacts(c *gin.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.contacts))
	for addr := range s.contacts {
		out = append(out, addr)
	}
	sort.Strings(out)
	c.JSON(http.StatusOK, out)
}

func (s *Server) createContact(c *gin.Context) {
	var body contact
	if err := c.ShouldBindJSON(&body); err != nil || body.EmailAddress == "" {
		c.JSON(http.StatusBadRequest, apiError(http.StatusBadRequest, "InvalidArgument", "JSON payload of the request is not valid"))
		return
	}
	if domainOf(body.EmailAddress) != c.Param("domain") {
		c.JSON(http.StatusBadRequest, apiError(http.StatusBadRequest, "InvalidArgument", "The domain does not match the contact address"))
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.contacts[body.EmailAddress]; exists {
		c.JSON(http.StatusConflict, apiError(http.StatusConflict, "InvalidArgument", "The contact already exists"))
		return
	}
	s.putContactLocked(body)
	c.Status(http.StatusCreated)
}

func (s *Server) getContact(c *gin.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ct, ok := s.contacts[c.Param("address")]
	if !ok {
		c.JSON(http.StatusNotFound, apiError(http.StatusNotFound, "notFound", "The contact does not exist"))
		return
	}
	c.JSON(http.StatusOK, ct)
}

func (s *Server) updateContact(c *gin.Context) {
	var body contact
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, apiError(http.StatusBadRequest, "InvalidArgument", "JSON payload of the request is not valid"))
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	ct, ok := s.contacts[c.Param("address")]
	if !ok {
		c.JSON(http.StatusNotFound, apiError(http.StatusNotFound, "notFound", "The contact does not exist"))
		return
	}
	ct.Firstname, ct.Surname = body.Firstname, body.Surname
	s.contacts[ct.EmailAddress] = ct
	c.Status(http.StatusNoContent)
}

func (s *Server) deleteContact(c *gin.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.contacts, c.Param("address"))
	c.Status(http.StatusNoContent)
}

func (s *Server) putContactLocked(ct contact) {
	s.nextID++
	ct.ID = fmt.Sprintf("%d", s.nextID)
	s.contacts[ct.EmailAddress] = ct
}

// ---------------------------------------------------------------------------
// Domains
// ---------------------------------------------------------------------------

func (s *Server) putDomain(c *gin.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.domains[c.Param("domain")] = true
	c.Status(http.StatusNoContent)
}

func (s *Server) getDomain(c *gin.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.domains[c.Param("domain")] {
		c.JSON(http.StatusNotFound, apiError(http.StatusNotFound, "notFound", "The domain does not exist"))
		return
	}
	c.Status(http.StatusNoContent)
}

func apiError(status int, kind, message string) gin.H {
	return gin.H{"statusCode": status, "type": kind, "message": message}
}

func domainOf(address string) string {
	if at := strings.LastIndex(address, "@"); at >= 0 {
		return address[at+1:]
	}
	return ""
}
