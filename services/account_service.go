package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sahilchouksey/course-review-api/model"
	"github.com/sahilchouksey/course-review-api/utils/auth"
	"github.com/sahilchouksey/course-review-api/utils/logger"
	"github.com/sahilchouksey/course-review-api/utils/validation"
)

// ErrInvalidCredentials is returned for an unknown email or a wrong password
var ErrInvalidCredentials = errors.New("invalid email or password")

// AccountStore persists user accounts
type AccountStore interface {
	GetByID(ctx context.Context, id uint) (*model.User, error)
	GetByEmail(ctx context.Context, email string) (*model.User, error)
	Create(ctx context.Context, user *model.User) error
	Save(ctx context.Context, user *model.User) error
	SetEmailVerified(ctx context.Context, id uint, verified bool) error
	TouchLastLogin(ctx context.Context, id uint, at time.Time) error
	RecordActivity(ctx context.Context, activity *model.UserActivity) error
}

// RegisterInput is the sign-up payload
type RegisterInput struct {
	Username    string           `json:"username" validate:"required,min=3,max=30"`
	Email       string           `json:"email" validate:"required,email,max=254"`
	Password    string           `json:"password" validate:"required,min=8,max=72"`
	Profile     ProfileInput     `json:"profile"`
	Preferences PreferencesInput `json:"preferences"`
}

// ProfileInput holds the client editable profile fields
type ProfileInput struct {
	FirstName  string `json:"first_name" validate:"max=100"`
	LastName   string `json:"last_name" validate:"max=100"`
	Branch     string `json:"branch" validate:"max=100"`
	Year       int    `json:"year" validate:"omitempty,min=1,max=6"`
	RollNumber string `json:"roll_number" validate:"max=50"`
	Avatar     string `json:"avatar" validate:"omitempty,url,max=500"`
}

// PreferencesInput holds what a student is looking for in an elective
type PreferencesInput struct {
	StudyStyle string `json:"study_style" validate:"omitempty,oneof=intensive moderate light"`
	GoalType   string `json:"goal_type" validate:"omitempty,oneof=high_grades easy_pass skill_building interest"`
}

// ProfileUpdate is a partial update of the editable user fields. Role,
// verification and activity counters are deliberately absent.
type ProfileUpdate struct {
	Profile     *ProfileInput     `json:"profile"`
	Preferences *PreferencesInput `json:"preferences"`
}

// AccountService registers users and checks their credentials
type AccountService struct {
	store     AccountStore
	validator *validation.Validator
	log       *logger.Logger
	now       func() time.Time
}

// NewAccountService creates an account service
func NewAccountService(store AccountStore, log *logger.Logger) *AccountService {
	if log == nil {
		log = logger.NewNop()
	}
	return &AccountService{
		store:     store,
		validator: validation.NewValidator(),
		log:       log,
		now:       time.Now,
	}
}

// Register creates a student account. New accounts are unverified.
func (s *AccountService) Register(ctx context.Context, in RegisterInput) (*model.User, error) {
	return s.Provision(ctx, in, model.RoleStudent, false)
}

// Provision creates an account with a given role and verification state. It
// backs Register and the seed and import tools.
func (s *AccountService) Provision(ctx context.Context, in RegisterInput, role string, verified bool) (*model.User, error) {
	switch role {
	case model.RoleStudent, model.RoleModerator, model.RoleAdmin:
	default:
		return nil, NewValidationError("role", "unknown role %q", role)
	}
	in.Username = validation.SanitizeString(in.Username)
	in.Email = strings.ToLower(validation.SanitizeString(in.Email))
	sanitizeProfile(&in.Profile)

	if err := s.check(in); err != nil {
		return nil, err
	}
	if ok, msg := validation.ValidateUsername(in.Username); !ok {
		return nil, NewValidationError("username", "%s", msg)
	}

	hash, err := auth.HashPassword(in.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user := &model.User{
		Username:        in.Username,
		Email:           in.Email,
		PasswordHash:    hash,
		Role:            role,
		IsEmailVerified: verified,
	}
	applyProfile(user, in.Profile)
	applyPreferences(user, in.Preferences)
	if user.Preferences.StudyStyle == "" {
		user.Preferences.StudyStyle = "moderate"
	}
	if user.Preferences.GoalType == "" {
		user.Preferences.GoalType = "high_grades"
	}

	if err := s.store.Create(ctx, user); err != nil {
		if errors.Is(err, ErrDuplicate) {
			return nil, &ConflictError{Resource: "user", Message: "username or email already registered"}
		}
		return nil, fmt.Errorf("create user: %w", err)
	}

	s.log.Info("User registered", "user_id", user.ID, "username", user.Username, "role", role)
	return user, nil
}

// Authenticate checks an email and password pair. Unknown emails and wrong
// passwords are indistinguishable to the caller.
func (s *AccountService) Authenticate(ctx context.Context, email, password string, meta ActivityContext) (*model.User, error) {
	email = strings.ToLower(validation.SanitizeString(email))
	if email == "" || password == "" {
		return nil, ErrInvalidCredentials
	}

	user, err := s.store.GetByEmail(ctx, email)
	if err != nil {
		if IsNotFoundError(err) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("load user: %w", err)
	}
	if err := auth.VerifyPassword(user.PasswordHash, password); err != nil {
		if errors.Is(err, auth.ErrPasswordMismatch) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("verify password: %w", err)
	}

	now := s.now()
	if err := s.store.TouchLastLogin(ctx, user.ID, now); err != nil {
		s.log.Warn("Failed to record last login", "user_id", user.ID, "error", err)
	} else {
		user.Activity.LastLogin = &now
	}
	s.recordActivity(ctx, user.ID, model.ActivityTypeLogin, meta)
	return user, nil
}

// Get returns a user by id
func (s *AccountService) Get(ctx context.Context, id uint) (*model.User, error) {
	user, err := s.store.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("load user %d: %w", id, err)
	}
	return user, nil
}

// GetByEmail returns the user registered with email
func (s *AccountService) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	return s.store.GetByEmail(ctx, strings.ToLower(validation.SanitizeString(email)))
}

// UpdateProfile applies the profile and preference sections present in the update
func (s *AccountService) UpdateProfile(ctx context.Context, id uint, in ProfileUpdate) (*model.User, error) {
	if in.Profile != nil {
		sanitizeProfile(in.Profile)
	}
	if err := s.check(in); err != nil {
		return nil, err
	}

	user, err := s.store.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("load user %d: %w", id, err)
	}
	if in.Profile != nil {
		applyProfile(user, *in.Profile)
	}
	if in.Preferences != nil {
		applyPreferences(user, *in.Preferences)
	}

	if err := s.store.Save(ctx, user); err != nil {
		return nil, fmt.Errorf("save user %d: %w", id, err)
	}
	return user, nil
}

// SetEmailVerified marks a user verified or unverified. Verification feeds
// the moderation gate, so only moderators and admins may call it.
func (s *AccountService) SetEmailVerified(ctx context.Context, actor *model.User, userID uint, verified bool) (*model.User, error) {
	if actor == nil || !actor.CanModerate() {
		return nil, fmt.Errorf("verify user %d: %w", userID, ErrForbidden)
	}
	if err := s.store.SetEmailVerified(ctx, userID, verified); err != nil {
		return nil, fmt.Errorf("verify user %d: %w", userID, err)
	}
	s.log.Info("User verification changed", "user_id", userID, "verified", verified, "moderator_id", actor.ID)
	return s.Get(ctx, userID)
}

// RecordLogout stores a logout in the activity log
func (s *AccountService) RecordLogout(ctx context.Context, userID uint, meta ActivityContext) {
	s.recordActivity(ctx, userID, model.ActivityTypeLogout, meta)
}

func (s *AccountService) recordActivity(ctx context.Context, userID uint, kind model.ActivityType, meta ActivityContext) {
	activity := &model.UserActivity{
		UserID:       userID,
		ActivityType: kind,
		ResourceType: "user",
		ResourceID:   userID,
		IPAddress:    meta.IPAddress,
		UserAgent:    meta.UserAgent,
	}
	if err := s.store.RecordActivity(ctx, activity); err != nil {
		s.log.Warn("Failed to record activity", "user_id", userID, "activity", string(kind), "error", err)
	}
}

func (s *AccountService) check(in interface{}) error {
	if err := s.validator.ValidateStruct(in); err != nil {
		return structValidationError(err, "user")
	}
	return nil
}

func sanitizeProfile(p *ProfileInput) {
	p.FirstName = validation.SanitizeString(p.FirstName)
	p.LastName = validation.SanitizeString(p.LastName)
	p.Branch = validation.SanitizeString(p.Branch)
	p.RollNumber = validation.SanitizeString(p.RollNumber)
	p.Avatar = validation.SanitizeString(p.Avatar)
}

func applyProfile(user *model.User, p ProfileInput) {
	user.Profile = model.UserProfile{
		FirstName:  p.FirstName,
		LastName:   p.LastName,
		Branch:     p.Branch,
		Year:       p.Year,
		RollNumber: p.RollNumber,
		Avatar:     p.Avatar,
	}
}

func applyPreferences(user *model.User, p PreferencesInput) {
	if p.StudyStyle != "" {
		user.Preferences.StudyStyle = p.StudyStyle
	}
	if p.GoalType != "" {
		user.Preferences.GoalType = p.GoalType
	}
}
