// internal/realtime/realtime.go
package realtime

// Service owns the hub and the emitter. It is constructed once at startup
// and injected into the HTTP handlers that need to broadcast; there is no
// package-level registry.
type Service struct {
	hub     *Hub
	emitter *Emitter
}

// NewService creates a new realtime service.
func NewService(jwtSecret string) *Service {
	hub := NewHub(jwtSecret)
	return &Service{
		hub:     hub,
		emitter: NewEmitter(hub),
	}
}

// Hub returns the connection hub.
func (s *Service) Hub() *Hub {
	return s.hub
}

// Emitter returns the mutation broadcast emitter.
func (s *Service) Emitter() *Emitter {
	return s.emitter
}

// Stats returns realtime statistics.
func (s *Service) Stats() HubStats {
	return s.hub.Stats()
}
