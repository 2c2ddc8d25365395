package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"golang.org/x/crypto/bcrypt"

	"github.com/bracketforge/tournament-engine/models"
	"github.com/bracketforge/tournament-engine/repositories"
)

const tokenTTL = 24 * time.Hour

type LoginInput struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type AuthService interface {
	// RegisterOrganizer creates an organizer account and returns it with
	// a signed token.
	RegisterOrganizer(ctx context.Context, email, password string) (*models.Organizer, string, error)
	Login(ctx context.Context, input LoginInput) (*models.Organizer, string, error)
}

type authService struct {
	txManager     repositories.TxManager
	db            repositories.SQLExecutor
	organizerRepo repositories.OrganizerRepository
	jwtSecret     []byte
}

func NewAuthService(txManager repositories.TxManager, db repositories.SQLExecutor, organizerRepo repositories.OrganizerRepository, jwtSecret string) AuthService {
	return &authService{
		txManager:     txManager,
		db:            db,
		organizerRepo: organizerRepo,
		jwtSecret:     []byte(jwtSecret),
	}
}

func (s *authService) RegisterOrganizer(ctx context.Context, email, password string) (*models.Organizer, string, error) {
	if email == "" || len(password) < 8 {
		return nil, "", fmt.Errorf("%w: email and a password of at least 8 characters are required", ErrValidation)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, "", fmt.Errorf("failed to hash password: %w", err)
	}

	organizer := &models.Organizer{Email: email, PasswordHash: string(hash)}
	err = s.txManager.WithinTx(ctx, func(tx repositories.SQLExecutor) error {
		if err := s.organizerRepo.Create(ctx, tx, organizer); err != nil {
			if errors.Is(err, repositories.ErrOrganizerEmailConflict) {
				return fmt.Errorf("%w: email is already in use", ErrConflict)
			}
			return err
		}
		return nil
	})
	if err != nil {
		return nil, "", err
	}

	token, err := s.issueToken(organizer)
	if err != nil {
		return nil, "", err
	}
	return organizer, token, nil
}

func (s *authService) Login(ctx context.Context, input LoginInput) (*models.Organizer, string, error) {
	organizer, err := s.organizerRepo.GetByEmail(ctx, s.db, input.Email)
	if err != nil {
		if errors.Is(err, repositories.ErrOrganizerNotFound) {
			return nil, "", ErrInvalidCredentials
		}
		return nil, "", err
	}
	if bcrypt.CompareHashAndPassword([]byte(organizer.PasswordHash), []byte(input.Password)) != nil {
		return nil, "", ErrInvalidCredentials
	}

	token, err := s.issueToken(organizer)
	if err != nil {
		return nil, "", err
	}
	return organizer, token, nil
}

func (s *authService) issueToken(organizer *models.Organizer) (string, error) {
	claims := jwt.MapClaims{
		"organizer_id": organizer.ID,
		"email":        organizer.Email,
		"exp":          time.Now().Add(tokenTTL).Unix(),
		"iat":          time.Now().Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.jwtSecret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}
