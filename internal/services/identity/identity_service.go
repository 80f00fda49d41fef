package identity

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/Windi-Fikriyansyah/fundiconnect_be/internal/apperr"
	"github.com/Windi-Fikriyansyah/fundiconnect_be/internal/models"
	"github.com/Windi-Fikriyansyah/fundiconnect_be/internal/services/notify"
	"github.com/Windi-Fikriyansyah/fundiconnect_be/internal/utils"
)

// maxOTPAttempts wrong guesses invalidate the outstanding code.
const maxOTPAttempts = 5

// CodeSender delivers a verification code out of band (email). It must not
// store the code anywhere the account can read it.
type CodeSender interface {
	SendCode(ctx context.Context, to *models.User, code string) error
}

type IdentityService struct {
	DB       *gorm.DB
	RDB      *redis.Client
	Notify   notify.Notifier
	Codes    CodeSender
	Log      *zap.Logger
	Cooldown time.Duration
	OTPTTL   time.Duration
}

func NewIdentityService(db *gorm.DB, rdb *redis.Client, n notify.Notifier, codes CodeSender, log *zap.Logger, cooldown, otpTTL time.Duration) *IdentityService {
	if cooldown <= 0 {
		cooldown = time.Minute
	}
	if otpTTL <= 0 {
		otpTTL = 10 * time.Minute
	}
	return &IdentityService{DB: db, RDB: rdb, Notify: n, Codes: codes, Log: log, Cooldown: cooldown, OTPTTL: otpTTL}
}

func cooldownKey(userID uuid.UUID) string {
	return "user_role_switch_cooldown:" + userID.String()
}

func otpKey(userID uuid.UUID) string {
	return "otp:" + userID.String()
}

func otpAttemptsKey(userID uuid.UUID) string {
	return "otp_attempts:" + userID.String()
}

func (s *IdentityService) Get(ctx context.Context, userID uuid.UUID) (*models.User, error) {
	var u models.User
	err := s.DB.WithContext(ctx).Preload("FundiProfile.PortfolioImages").First(&u, "id = ?", userID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.NotFound("user not found")
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

type RegisterInput struct {
	Name     string
	Email    string
	Phone    string
	Password string
	Role     models.Role
}

// Register creates an account holding exactly the chosen role. Accounts start
// unverified; the customer context stays locked until VerifyOTP.
func (s *IdentityService) Register(ctx context.Context, in RegisterInput) (*models.User, error) {
	email := strings.ToLower(strings.TrimSpace(in.Email))
	if in.Role == "" {
		in.Role = models.RoleCustomer
	}
	if !in.Role.Valid() {
		return nil, apperr.Validation("unknown role")
	}

	var count int64
	if err := s.DB.WithContext(ctx).Model(&models.User{}).Where("email = ?", email).Count(&count).Error; err != nil {
		return nil, err
	}
	if count > 0 {
		return nil, apperr.Validation("email already registered")
	}

	pw, err := utils.HashPassword(in.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	u := &models.User{
		Name:       strings.TrimSpace(in.Name),
		Email:      email,
		Phone:      strings.TrimSpace(in.Phone),
		Password:   pw,
		Roles:      []models.Role{in.Role},
		ActiveRole: in.Role,
		IsActive:   true,
	}
	if err := s.DB.WithContext(ctx).Create(u).Error; err != nil {
		return nil, err
	}
	s.Log.Info("user registered", zap.Stringer("user_id", u.ID), zap.String("role", string(in.Role)))
	return u, nil
}

func (s *IdentityService) Login(ctx context.Context, email, password string) (*models.User, error) {
	var u models.User
	err := s.DB.WithContext(ctx).Where("email = ?", strings.ToLower(strings.TrimSpace(email))).First(&u).Error
	if err != nil || !utils.CheckPassword(u.Password, password) {
		return nil, apperr.New(apperr.KindUnauthorized, "invalid email or password")
	}
	if !u.IsActive {
		return nil, apperr.New(apperr.KindUnauthorized, "account is inactive")
	}
	return &u, nil
}

// SignInExternal finds or creates the account for an identity asserted by an
// external provider. New accounts are customers.
func (s *IdentityService) SignInExternal(ctx context.Context, email, name string, emailVerified bool) (*models.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return nil, apperr.Validation("email missing")
	}

	var u models.User
	err := s.DB.WithContext(ctx).Where("email = ?", email).First(&u).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		pw, herr := utils.HashPassword(uuid.NewString())
		if herr != nil {
			return nil, herr
		}
		u = models.User{
			Name:       strings.TrimSpace(name),
			Email:      email,
			Password:   pw,
			Roles:      []models.Role{models.RoleCustomer},
			ActiveRole: models.RoleCustomer,
			IsActive:   true,
			IsVerified: emailVerified,
		}
		if err := s.DB.WithContext(ctx).Create(&u).Error; err != nil {
			return nil, err
		}
	case err != nil:
		return nil, err
	default:
		updates := map[string]interface{}{}
		if name != "" && u.Name != name {
			updates["name"] = name
		}
		if emailVerified && !u.IsVerified {
			updates["is_verified"] = true
		}
		if len(updates) > 0 {
			if err := s.DB.WithContext(ctx).Model(&u).Updates(updates).Error; err != nil {
				return nil, err
			}
		}
	}

	if !u.IsActive {
		return nil, apperr.New(apperr.KindUnauthorized, "account is inactive")
	}
	return &u, nil
}

type SwitchResult struct {
	User       *models.User
	ActiveRole models.Role
	Redirect   string
}

// SwitchRole changes the active role. At most one switch per account is
// accepted per cooldown window; the window is claimed before any other check
// and released again when the switch fails for another reason.
func (s *IdentityService) SwitchRole(ctx context.Context, userID uuid.UUID, target models.Role) (*SwitchResult, error) {
	if !target.Valid() {
		return nil, apperr.Validation("unknown role")
	}

	key := cooldownKey(userID)
	ok, err := s.RDB.SetNX(ctx, key, time.Now().Unix(), s.Cooldown).Result()
	if err != nil {
		return nil, fmt.Errorf("claim role switch cooldown: %w", err)
	}
	if !ok {
		wait, err := s.RDB.TTL(ctx, key).Result()
		if err != nil || wait < 0 {
			wait = s.Cooldown
		}
		return nil, &apperr.Error{
			Kind:       apperr.KindRateLimited,
			Message:    fmt.Sprintf("please wait %d seconds before switching roles again", int(wait.Round(time.Second).Seconds())),
			RetryAfter: wait,
		}
	}

	res, err := s.switchRole(ctx, userID, target)
	if err != nil {
		if derr := s.RDB.Del(ctx, key).Err(); derr != nil {
			s.Log.Warn("release role switch cooldown", zap.Stringer("user_id", userID), zap.Error(derr))
		}
		return nil, err
	}
	return res, nil
}

func (s *IdentityService) switchRole(ctx context.Context, userID uuid.UUID, target models.Role) (*SwitchResult, error) {
	var u models.User
	if err := s.DB.WithContext(ctx).First(&u, "id = ?", userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound("user not found")
		}
		return nil, err
	}

	if !u.HasRole(target) {
		if target == models.RoleCustomer {
			return nil, apperr.New(apperr.KindUnauthorized, "you do not hold the customer role")
		}
		u.GrantRole(target)
	}
	u.ActiveRole = target

	err := s.DB.WithContext(ctx).Model(&models.User{}).
		Where("id = ?", u.ID).
		Updates(map[string]interface{}{
			"roles":       u.Roles,
			"active_role": u.ActiveRole,
		}).Error
	if err != nil {
		return nil, err
	}

	s.Log.Info("role switched", zap.Stringer("user_id", u.ID), zap.String("active_role", string(target)))
	return &SwitchResult{User: &u, ActiveRole: target, Redirect: Landing(&u)}, nil
}

// CooldownRemaining reports how long until userID may switch roles again.
func (s *IdentityService) CooldownRemaining(ctx context.Context, userID uuid.UUID) (time.Duration, error) {
	d, err := s.RDB.TTL(ctx, cooldownKey(userID)).Result()
	if err != nil {
		return 0, err
	}
	if d < 0 {
		return 0, nil
	}
	return d, nil
}

type OnboardingInput struct {
	Location        string
	PhotoURL        string
	IDDocumentURL   string
	Skills          []string
	ExperienceYears int
	HourlyRate      decimal.NullDecimal
	Description     string
	Latitude        *float64
	Longitude       *float64
	Portfolio       []PortfolioInput
}

type PortfolioInput struct {
	ImageURL    string
	Title       string
	Description string
}

func cleanSkills(in []string) []string {
	out := make([]string, 0, len(in))
	seen := map[string]bool{}
	for _, s := range in {
		s = strings.TrimSpace(s)
		if s == "" || seen[strings.ToLower(s)] {
			continue
		}
		seen[strings.ToLower(s)] = true
		out = append(out, s)
	}
	return out
}

// CompleteOnboarding records the fundi profile and flips the onboarding flag.
// It succeeds once per account.
func (s *IdentityService) CompleteOnboarding(ctx context.Context, userID uuid.UUID, in OnboardingInput) (*models.FundiProfile, error) {
	u, err := s.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	if !u.HasRole(models.RoleFundi) || u.ActiveRole != models.RoleFundi {
		return nil, &apperr.Error{Kind: apperr.KindRoleError, Message: "switch to fundi to continue", Redirect: RedirectDashboard}
	}
	if u.OnboardingComplete {
		return nil, apperr.AlreadyProcessed("onboarding already completed")
	}

	skills := cleanSkills(in.Skills)
	if len(skills) == 0 {
		return nil, apperr.Validation("at least one skill is required")
	}
	if strings.TrimSpace(in.Location) == "" {
		return nil, apperr.Validation("location is required")
	}
	if in.ExperienceYears < 0 {
		return nil, apperr.Validation("experience years cannot be negative")
	}

	var profile models.FundiProfile
	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.User{}).
			Where("id = ? AND onboarding_complete = ?", userID, false).
			Updates(map[string]interface{}{
				"onboarding_complete": true,
				"location":            strings.TrimSpace(in.Location),
				"latitude":            in.Latitude,
				"longitude":           in.Longitude,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return apperr.AlreadyProcessed("onboarding already completed")
		}

		err := tx.Where("user_id = ?", userID).First(&profile).Error
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}
		profile.UserID = userID
		profile.Skills = skills
		profile.Description = in.Description
		profile.ExperienceYears = in.ExperienceYears
		profile.HourlyRate = in.HourlyRate
		profile.Availability = true
		profile.Latitude = in.Latitude
		profile.Longitude = in.Longitude
		profile.PhotoURL = in.PhotoURL
		profile.IDDocumentURL = in.IDDocumentURL
		profile.VerificationStatus = models.VerificationPending
		if err := tx.Save(&profile).Error; err != nil {
			return err
		}

		for _, p := range in.Portfolio {
			if strings.TrimSpace(p.ImageURL) == "" {
				continue
			}
			img := models.PortfolioImage{
				FundiProfileID: profile.ID,
				ImageURL:       p.ImageURL,
				Title:          p.Title,
				Description:    p.Description,
			}
			if err := tx.Create(&img).Error; err != nil {
				return err
			}
			profile.PortfolioImages = append(profile.PortfolioImages, img)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.Log.Info("fundi onboarded", zap.Stringer("user_id", userID), zap.Strings("skills", skills))
	return &profile, nil
}

type ProfileUpdate struct {
	Skills       []string
	Description  *string
	HourlyRate   *decimal.NullDecimal
	Availability *bool
	Location     *string
	Latitude     *float64
	Longitude    *float64
}

func (s *IdentityService) UpdateProfile(ctx context.Context, userID uuid.UUID, in ProfileUpdate) (*models.FundiProfile, error) {
	u, err := s.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	if err := Authorize(u, models.RoleFundi); err != nil {
		return nil, err
	}
	if u.FundiProfile == nil {
		return nil, &apperr.Error{Kind: apperr.KindOnboardingIncomplete, Message: "complete your fundi profile first", Redirect: RedirectOnboarding}
	}

	profile := u.FundiProfile
	updates := map[string]interface{}{}
	if in.Skills != nil {
		skills := cleanSkills(in.Skills)
		if len(skills) == 0 {
			return nil, apperr.Validation("at least one skill is required")
		}
		profile.Skills = skills
		updates["skills"] = profile.Skills
	}
	if in.Description != nil {
		profile.Description = *in.Description
		updates["description"] = profile.Description
	}
	if in.HourlyRate != nil {
		profile.HourlyRate = *in.HourlyRate
		updates["hourly_rate"] = profile.HourlyRate
	}
	if in.Availability != nil {
		profile.Availability = *in.Availability
		updates["availability"] = profile.Availability
	}
	if in.Latitude != nil && in.Longitude != nil {
		profile.Latitude, profile.Longitude = in.Latitude, in.Longitude
		updates["latitude"] = in.Latitude
		updates["longitude"] = in.Longitude
	}

	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if len(updates) > 0 {
			if err := tx.Model(&models.FundiProfile{}).Where("id = ?", profile.ID).Updates(updates).Error; err != nil {
				return err
			}
		}
		userUpdates := map[string]interface{}{}
		if in.Location != nil {
			userUpdates["location"] = strings.TrimSpace(*in.Location)
		}
		if in.Latitude != nil && in.Longitude != nil {
			userUpdates["latitude"] = in.Latitude
			userUpdates["longitude"] = in.Longitude
		}
		if len(userUpdates) > 0 {
			return tx.Model(&models.User{}).Where("id = ?", userID).Updates(userUpdates).Error
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return profile, nil
}

func generateCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1000000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%06d", n.Int64()), nil
}

// RequestOTP stores a fresh six digit code, resets the attempt counter and
// emails the code to the account.
func (s *IdentityService) RequestOTP(ctx context.Context, userID uuid.UUID) error {
	u, err := s.Get(ctx, userID)
	if err != nil {
		return err
	}
	if u.IsVerified {
		return apperr.AlreadyProcessed("account already verified")
	}

	code, err := generateCode()
	if err != nil {
		return err
	}
	_, err = s.RDB.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, otpKey(userID), code, s.OTPTTL)
		pipe.Del(ctx, otpAttemptsKey(userID))
		return nil
	})
	if err != nil {
		return fmt.Errorf("store otp: %w", err)
	}

	if err := s.Codes.SendCode(ctx, u, code); err != nil {
		s.clearOTP(ctx, userID)
		return apperr.Wrap(apperr.KindGatewayError, "could not send the verification code", err)
	}
	s.Notify.Send(ctx, userID, "We sent a verification code to your email.", "/auth/otp")
	return nil
}

// VerifyOTP marks the account verified when code matches. After
// maxOTPAttempts wrong codes the outstanding code is discarded.
func (s *IdentityService) VerifyOTP(ctx context.Context, userID uuid.UUID, code string) error {
	stored, err := s.RDB.Get(ctx, otpKey(userID)).Result()
	if errors.Is(err, redis.Nil) {
		return apperr.Validation("code expired, request a new one")
	}
	if err != nil {
		return err
	}

	if stored != strings.TrimSpace(code) {
		attempts, err := s.RDB.Incr(ctx, otpAttemptsKey(userID)).Result()
		if err != nil {
			return err
		}
		if attempts == 1 {
			s.RDB.Expire(ctx, otpAttemptsKey(userID), s.OTPTTL)
		}
		if attempts >= maxOTPAttempts {
			s.clearOTP(ctx, userID)
			s.Log.Warn("otp invalidated after failed attempts", zap.Stringer("user_id", userID), zap.Int64("attempts", attempts))
			return apperr.Validation("too many wrong codes, request a new one")
		}
		return apperr.Validation("invalid code")
	}

	if err := s.DB.WithContext(ctx).Model(&models.User{}).Where("id = ?", userID).Update("is_verified", true).Error; err != nil {
		return err
	}
	s.clearOTP(ctx, userID)
	return nil
}

func (s *IdentityService) clearOTP(ctx context.Context, userID uuid.UUID) {
	if err := s.RDB.Del(ctx, otpKey(userID), otpAttemptsKey(userID)).Err(); err != nil {
		s.Log.Warn("delete otp", zap.Stringer("user_id", userID), zap.Error(err))
	}
}
