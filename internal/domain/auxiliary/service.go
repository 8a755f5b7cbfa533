package auxiliary

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/ehr/auxcare/internal/platform/derived"
	"github.com/ehr/auxcare/internal/platform/resource"
)

const ResourceLogin = "login"

// TokenSetter receives the bearer token of the current session.
type TokenSetter interface {
	SetToken(token string)
}

// Service runs the login round-trip and holds the resulting session in
// memory for the lifetime of the process.
type Service struct {
	repo   Repository
	orch   *resource.Orchestrator
	tokens TokenSetter
	logger zerolog.Logger

	login   *resource.Store[Session]
	session *derived.Value[Session]
}

func NewService(repo Repository, orch *resource.Orchestrator, tokens TokenSetter, logger zerolog.Logger) *Service {
	return &Service{
		repo:    repo,
		orch:    orch,
		tokens:  tokens,
		logger:  logger.With().Str("component", "auxiliary").Logger(),
		login:   resource.NewStore[Session](ResourceLogin, resource.StartIdle(), resource.Accepts(resource.InvalidCredentials)),
		session: derived.NewValue[Session](),
	}
}

func (s *Service) Login() *resource.Store[Session] { return s.login }

// Session is the logged-in auxiliary, absent until a login succeeds.
func (s *Service) Session() *derived.Value[Session] { return s.session }

// SignIn authenticates the auxiliary. A rejected credential ends in
// InvalidCredentials; a later SignIn may still succeed.
func (s *Service) SignIn(ctx context.Context, id int, password string) resource.State[Session] {
	return resource.Fetch(ctx, s.orch, s.login,
		func(ctx context.Context) (Session, error) {
			if id <= 0 {
				return Session{}, fmt.Errorf("auxiliary id must be positive, got %d", id)
			}
			sess, err := s.repo.Login(ctx, id, password)
			if err != nil {
				return Session{}, err
			}
			return *sess, nil
		},
		resource.Propagate[Session](derived.Chain[Session](
			derived.Forward(s.session, derived.Identity[Session]),
			s.applyToken,
		)),
	)
}

func (s *Service) applyToken(sess Session) {
	if s.tokens != nil {
		s.tokens.SetToken(sess.Token)
	}
	s.logger.Info().Int("auxiliary_id", sess.Auxiliary.ID).Time("expires_at", sess.ExpiresAt).Msg("signed in")
}

// SignOut forgets the session and returns the login store to Idle.
func (s *Service) SignOut() {
	if s.tokens != nil {
		s.tokens.SetToken("")
	}
	s.session.Clear()
	s.login.Reset(resource.Idle)
}

func (s *Service) Close() {
	s.login.Close()
	s.session.Clear()
}
