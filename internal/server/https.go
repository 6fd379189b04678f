// internal/server/https.go
package server

import (
	"crypto/tls"
	"fmt"
	"net"
	"net/http"
	"strings"

	"golang.org/x/crypto/acme/autocert"
)

// ValidateDomain rejects domains Let's Encrypt cannot issue for:
// localhost, bare IPs, and malformed names.
func ValidateDomain(domain string) error {
	if domain == "" {
		return fmt.Errorf("domain required for HTTPS")
	}
	if strings.ToLower(domain) == "localhost" {
		return fmt.Errorf("Let's Encrypt requires a public domain, not localhost")
	}
	if net.ParseIP(domain) != nil {
		return fmt.Errorf("Let's Encrypt requires a domain name, not an IP address")
	}
	if strings.HasPrefix(domain, "[") && strings.HasSuffix(domain, "]") {
		return fmt.Errorf("Let's Encrypt requires a domain name, not an IP address")
	}
	if strings.HasPrefix(domain, ".") || strings.HasSuffix(domain, ".") ||
		strings.HasPrefix(domain, "-") || strings.HasSuffix(domain, "-") ||
		strings.Contains(domain, "..") {
		return fmt.Errorf("invalid domain format: %s", domain)
	}
	return nil
}

// ListenAndServeTLS runs the server on httpsAddr with automatic
// certificates for domain, plus an HTTP listener on httpAddr that
// answers ACME challenges and redirects everything else.
func (s *Server) ListenAndServeTLS(domain, certDir, httpsAddr, httpAddr string) error {
	if err := ValidateDomain(domain); err != nil {
		return err
	}

	s.autocertMgr = &autocert.Manager{
		Prompt:     autocert.AcceptTOS,
		HostPolicy: autocert.HostWhitelist(domain),
		Cache:      autocert.DirCache(certDir),
	}

	s.httpRedirect = &http.Server{
		Addr: httpAddr,
		Handler: s.autocertMgr.HTTPHandler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Redirect(w, r, "https://"+domain+r.URL.RequestURI(), http.StatusMovedPermanently)
		})),
	}
	go s.httpRedirect.ListenAndServe()

	s.httpsServer = &http.Server{
		Addr:    httpsAddr,
		Handler: s.router,
		TLSConfig: &tls.Config{
			GetCertificate: s.autocertMgr.GetCertificate,
			NextProtos:     []string{"h2", "http/1.1"},
		},
	}
	return s.httpsServer.ListenAndServeTLS("", "")
}
