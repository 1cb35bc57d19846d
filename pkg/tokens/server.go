package tokens

import (
	"time"
)

// Server implements both Issuer and Verifier. It holds the codec and the
// fixed token lifetimes. Create one with InitServer or NewServer.
type Server struct {
	codec           *Codec
	accessLifetime  time.Duration
	refreshLifetime time.Duration
	now             func() time.Time
}

var (
	_ Issuer   = (*Server)(nil)
	_ Verifier = (*Server)(nil)
)

func NewServer(cfg Config) (*Server, error) {
	cfg = cfg.withDefaults()
	codec, err := NewCodec(cfg)
	if err != nil {
		return nil, err
	}
	return &Server{
		codec:           codec,
		accessLifetime:  cfg.AccessLifetime,
		refreshLifetime: cfg.RefreshLifetime,
		now:             cfg.Now,
	}, nil
}

func (server *Server) Codec() *Codec                  { return server.codec }
func (server *Server) AccessLifetime() time.Duration  { return server.accessLifetime }
func (server *Server) RefreshLifetime() time.Duration { return server.refreshLifetime }
