package account

import (
	"context"
	"errors"
	"fmt"
	"log"
	"regexp"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

const (
	MinPasswordLen = 8
	maxUsernameLen = 150
	maxPhoneLen    = 12
)

var (
	emailRegex    = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)
	usernameRegex = regexp.MustCompile(`^[\w.@+\-]+$`)
	phoneRegex    = regexp.MustCompile(`^\+?\d+$`)
)

type Service struct {
	repo       Repository
	logger     *log.Logger
	bcryptCost int
}

func NewService(repo Repository, logger *log.Logger) *Service {
	if logger == nil {
		logger = log.Default()
	}
	return &Service{repo: repo, logger: logger, bcryptCost: bcrypt.DefaultCost}
}

func (s *Service) Register(ctx context.Context, in RegisterInput) (*Account, error) {
	in.Username = strings.TrimSpace(in.Username)
	in.Email = strings.TrimSpace(in.Email)
	in.FirstName = strings.TrimSpace(in.FirstName)
	in.LastName = strings.TrimSpace(in.LastName)

	fields := map[string]string{}
	validateNames(fields, in.FirstName, in.LastName, in.Username)
	validateEmail(fields, in.Email)
	switch {
	case len(in.Password1) < MinPasswordLen:
		fields["password1"] = fmt.Sprintf("password must be at least %d characters", MinPasswordLen)
	case in.Password1 != in.Password2:
		fields["password2"] = "passwords do not match"
	}
	if len(fields) > 0 {
		return nil, &ValidationError{Fields: fields}
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password1), s.bcryptCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	a := &Account{
		Username:     in.Username,
		Email:        in.Email,
		FirstName:    in.FirstName,
		LastName:     in.LastName,
		PasswordHash: string(hash),
	}
	if err := s.repo.Create(ctx, a); err != nil {
		return nil, err
	}
	s.logger.Printf("account: registered %q as %d", a.Username, a.ID)
	return a, nil
}

// Authenticate does not reveal whether the username exists.
func (s *Service) Authenticate(ctx context.Context, username, password string) (*Account, error) {
	a, err := s.repo.GetByUsername(ctx, strings.TrimSpace(username))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(a.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}
	return a, nil
}

func (s *Service) Profile(ctx context.Context, id int64) (*Account, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *Service) UpdateProfile(ctx context.Context, id int64, in ProfileInput) (*Account, error) {
	a, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	in.Username = strings.TrimSpace(in.Username)
	in.Email = strings.TrimSpace(in.Email)
	in.FirstName = strings.TrimSpace(in.FirstName)
	in.LastName = strings.TrimSpace(in.LastName)
	in.PhoneNumber = strings.TrimSpace(in.PhoneNumber)

	fields := map[string]string{}
	validateNames(fields, in.FirstName, in.LastName, in.Username)
	validateEmail(fields, in.Email)
	if in.PhoneNumber != "" && (len(in.PhoneNumber) > maxPhoneLen || !phoneRegex.MatchString(in.PhoneNumber)) {
		fields["phone_number"] = "enter a valid phone number"
	}
	if len(fields) > 0 {
		return nil, &ValidationError{Fields: fields}
	}

	a.Username, a.Email = in.Username, in.Email
	a.FirstName, a.LastName = in.FirstName, in.LastName
	a.PhoneNumber = in.PhoneNumber
	if err := s.repo.UpdateProfile(ctx, a); err != nil {
		return nil, err
	}
	return a, nil
}

func validateNames(fields map[string]string, first, last, username string) {
	if first == "" {
		fields["first_name"] = "this field is required"
	}
	if last == "" {
		fields["last_name"] = "this field is required"
	}
	switch {
	case username == "":
		fields["username"] = "this field is required"
	case len(username) > maxUsernameLen || !usernameRegex.MatchString(username):
		fields["username"] = "letters, digits and @/./+/-/_ only"
	}
}

func validateEmail(fields map[string]string, email string) {
	if email == "" {
		fields["email"] = "this field is required"
	} else if !emailRegex.MatchString(email) {
		fields["email"] = "invalid email format"
	}
}
