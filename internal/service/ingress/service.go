// Package ingress authenticates WCTP submissions and routes them to a
// carrier.
package ingress

import (
	"context"
	"crypto/subtle"

	"github.com/jmehdipour/wctp-gateway/internal/logger"
	"github.com/jmehdipour/wctp-gateway/internal/metrics"
	"github.com/jmehdipour/wctp-gateway/internal/model"
	"github.com/jmehdipour/wctp-gateway/internal/repository"
	"github.com/jmehdipour/wctp-gateway/internal/vault"
	"github.com/jmehdipour/wctp-gateway/internal/wctp"
	"go.uber.org/zap"
)

type Router interface {
	Route(ctx context.Context, host model.EnterpriseHost, sub wctp.Submission) *wctp.Fault
}

type Service struct {
	hosts  repository.HostsRepository
	vault  vault.Decrypter
	router Router
	log    *zap.Logger
}

func New(hosts repository.HostsRepository, dec vault.Decrypter, router Router) *Service {
	return &Service{hosts: hosts, vault: dec, router: router, log: logger.Named("ingress")}
}

// Submit handles one raw wctp-Operation document. A nil fault means the
// message was queued for delivery.
func (s *Service) Submit(ctx context.Context, body []byte) *wctp.Fault {
	f := s.submit(ctx, body)
	code := wctp.SuccessCode
	if f != nil {
		code = f.Code
	}
	metrics.SubmissionsTotal.WithLabelValues(code).Inc()
	return f
}

func (s *Service) submit(ctx context.Context, body []byte) *wctp.Fault {
	sub, err := wctp.ParseSubmission(body)
	if err != nil {
		s.log.Debug("unparsable submission", zap.Error(err))
		return wctp.FaultInvalidXML
	}

	if f := wctp.Validate(sub); f != nil {
		return f
	}

	host, err := s.hosts.GetBySenderID(ctx, sub.SenderID)
	if err != nil {
		s.log.Error("host lookup failed", zap.String("sender_id", sub.SenderID), zap.Error(err))
		return wctp.FaultAuthUnavailable
	}
	if host == nil {
		return wctp.FaultUnknownSender
	}

	stored, err := s.vault.Decrypt(host.SecurityCode)
	if err != nil {
		s.log.Error("security code unreadable", zap.Int64("host_id", host.ID), zap.Error(err))
		return wctp.FaultSecurityDecrypt
	}
	if subtle.ConstantTimeCompare([]byte(stored), []byte(sub.SecurityCode)) != 1 {
		s.log.Info("security code mismatch", zap.String("sender_id", sub.SenderID))
		return wctp.FaultSecurityMismatch
	}

	return s.router.Route(ctx, *host, sub)
}
