package server

import "crypto/subtle"

// authorizeAdmin checks that sess may copy entities and switch power.
func (s *Server) authorizeAdmin(sess *Session) error {
	if !s.config.Admin {
		return ErrAdminDisabled
	}
	if s.config.AdminToken == "" {
		return nil
	}
	if subtle.ConstantTimeCompare([]byte(sess.token), []byte(s.config.AdminToken)) != 1 {
		return ErrUnauthorized
	}
	return nil
}
