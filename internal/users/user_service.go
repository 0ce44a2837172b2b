package users

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/davesrecords/davesrecords/internal/common"
	"github.com/davesrecords/davesrecords/model"
	"github.com/go-sql-driver/mysql"
	"gorm.io/gorm"
)

var slugPattern = regexp.MustCompile(`^[a-z0-9][a-z0-9-]{2,31}$`)

const (
	maxDisplayNameLength = 64
	maxBioLength         = 1024
	maxSlugAttempts      = 100
)

// DiscogsAccount is the result of a completed Discogs authorization.
type DiscogsAccount struct {
	DiscogsUserID uint64
	Username      string
	AvatarURL     string
	AccessToken   string
	AccessSecret  string
}

// UserSettings holds the editable profile fields. Nil fields are left unchanged.
type UserSettings struct {
	DisplayName       *string
	Bio               *string
	PublicSlug        *string
	CollectionPrivate *bool
}

type UserService struct {
	db             *gorm.DB
	userRepo       UserRepository
	connRepo       ConnectionRepository
	sealer         *common.Sealer
	adminUsernames map[string]bool
}

func isDuplicateKey(err error) bool {
	var mysqlErr *mysql.MySQLError
	if errors.As(err, &mysqlErr) && mysqlErr.Number == 1062 {
		return true
	}
	return errors.Is(err, gorm.ErrDuplicatedKey)
}

func notFound(err error, target error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return target
	}
	return err
}

func (s *UserService) GetUserByID(ctx context.Context, userID uint) (*model.User, error) {
	user, err := s.userRepo.FirstPreload(ctx, "id = ?", userID)
	return user, notFound(err, ErrUserNotFound)
}

func (s *UserService) GetUserBySlug(ctx context.Context, slug string) (*model.User, error) {
	user, err := s.userRepo.FirstPreload(ctx, "public_slug = ?", strings.ToLower(slug))
	return user, notFound(err, ErrUserNotFound)
}

func (s *UserService) GetConnections(ctx context.Context, userID uint) ([]*model.DiscogsConnection, error) {
	return s.connRepo.FindByUser(ctx, userID)
}

// OpenConnectionTokens decrypts the stored access token pair of conn.
func (s *UserService) OpenConnectionTokens(conn *model.DiscogsConnection) (token, secret string, err error) {
	if token, err = s.sealer.Open(conn.AccessToken); err != nil {
		return "", "", fmt.Errorf("open access token of connection %d: %w", conn.ID, err)
	}
	if secret, err = s.sealer.Open(conn.AccessSecret); err != nil {
		return "", "", fmt.Errorf("open access secret of connection %d: %w", conn.ID, err)
	}
	return token, secret, nil
}

func (s *UserService) sealTokens(account DiscogsAccount) (token, secret string, err error) {
	if token, err = s.sealer.Seal(account.AccessToken); err != nil {
		return "", "", err
	}
	if secret, err = s.sealer.Seal(account.AccessSecret); err != nil {
		return "", "", err
	}
	return token, secret, nil
}

func (s *UserService) isBootstrapAdmin(username string) bool {
	return s.adminUsernames[strings.ToLower(username)]
}

// Slugify derives a slug candidate from a Discogs username.
func Slugify(username string) string {
	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(username) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
			dash = false
		} else if !dash && b.Len() > 0 {
			b.WriteByte('-')
			dash = true
		}
	}
	slug := strings.Trim(b.String(), "-")
	if len(slug) > 28 {
		slug = strings.TrimRight(slug[:28], "-")
	}
	if len(slug) < 3 {
		slug = strings.TrimRight("crate-"+slug, "-")
	}
	return slug
}

func (s *UserService) uniqueSlug(ctx context.Context, repo UserRepository, username string) (string, error) {
	base := Slugify(username)
	slug := base
	for i := 2; i <= maxSlugAttempts; i++ {
		taken, err := repo.Exists(ctx, "public_slug = ?", slug)
		if err != nil {
			return "", err
		}
		if !taken {
			return slug, nil
		}
		slug = fmt.Sprintf("%s-%d", base, i)
	}
	return "", ErrSlugTaken
}

// SignInWithDiscogs returns the user owning the Discogs account, creating the user
// and its primary connection on first sign in.
func (s *UserService) SignInWithDiscogs(ctx context.Context, account DiscogsAccount) (user *model.User, created bool, err error) {
	sealedToken, sealedSecret, err := s.sealTokens(account)
	if err != nil {
		return nil, false, err
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		userRepo := s.userRepo.WithTx(tx)
		connRepo := s.connRepo.WithTx(tx)

		conn, err := connRepo.First(ctx, "discogs_user_id = ?", account.DiscogsUserID)
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}
		if conn != nil {
			updates := map[string]interface{}{
				"username":      account.Username,
				"avatar_url":    account.AvatarURL,
				"access_token":  sealedToken,
				"access_secret": sealedSecret,
			}
			if err := connRepo.Updates(ctx, conn.ID, updates); err != nil {
				return err
			}
			if s.isBootstrapAdmin(account.Username) {
				if _, err := userRepo.Updates(ctx, conn.UserID, map[string]interface{}{"role": model.RoleAdmin}); err != nil {
					return err
				}
			}
			user, err = userRepo.FirstPreload(ctx, "id = ?", conn.UserID)
			return notFound(err, ErrUserNotFound)
		}

		slug, err := s.uniqueSlug(ctx, userRepo, account.Username)
		if err != nil {
			return err
		}
		user = &model.User{
			PublicSlug: slug,
			Picture:    account.AvatarURL,
			Role:       model.RoleUser,
			Status:     model.StatusActive,
			Connections: []model.DiscogsConnection{{
				DiscogsUserID: account.DiscogsUserID,
				Username:      account.Username,
				AvatarURL:     account.AvatarURL,
				IsPrimary:     true,
				AccessToken:   sealedToken,
				AccessSecret:  sealedSecret,
			}},
		}
		if s.isBootstrapAdmin(account.Username) {
			user.Role = model.RoleAdmin
		}
		if err := userRepo.Create(ctx, user); err != nil {
			if isDuplicateKey(err) {
				return ErrSlugTaken
			}
			return err
		}
		created = true
		return nil
	})
	if err != nil {
		return nil, false, err
	}
	return user, created, nil
}

// LinkDiscogsConnection attaches another Discogs account to userID. Relinking an
// account the user already owns refreshes its tokens.
func (s *UserService) LinkDiscogsConnection(ctx context.Context, userID uint, account DiscogsAccount) (*model.DiscogsConnection, error) {
	sealedToken, sealedSecret, err := s.sealTokens(account)
	if err != nil {
		return nil, err
	}

	var conn *model.DiscogsConnection
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		connRepo := s.connRepo.WithTx(tx)
		existing, err := connRepo.First(ctx, "discogs_user_id = ?", account.DiscogsUserID)
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}
		if existing != nil {
			if existing.UserID != userID {
				return ErrConnectionLinked
			}
			updates := map[string]interface{}{
				"username":      account.Username,
				"avatar_url":    account.AvatarURL,
				"access_token":  sealedToken,
				"access_secret": sealedSecret,
			}
			conn = existing
			return connRepo.Updates(ctx, existing.ID, updates)
		}

		conns, err := connRepo.FindByUser(ctx, userID)
		if err != nil {
			return err
		}
		conn = &model.DiscogsConnection{
			UserID:        userID,
			DiscogsUserID: account.DiscogsUserID,
			Username:      account.Username,
			AvatarURL:     account.AvatarURL,
			IsPrimary:     len(conns) == 0,
			AccessToken:   sealedToken,
			AccessSecret:  sealedSecret,
		}
		if err := connRepo.Create(ctx, conn); err != nil {
			if isDuplicateKey(err) {
				return ErrConnectionLinked
			}
			return err
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return conn, nil
}

func (s *UserService) SetPrimaryConnection(ctx context.Context, userID, connID uint) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		connRepo := s.connRepo.WithTx(tx)
		if _, err := connRepo.First(ctx, "id = ? AND user_id = ?", connID, userID); err != nil {
			return notFound(err, ErrConnectionNotFound)
		}
		return connRepo.SetPrimary(ctx, userID, connID)
	})
}

func (s *UserService) validateSettings(settings UserSettings) error {
	if settings.DisplayName != nil && utf8.RuneCountInString(*settings.DisplayName) > maxDisplayNameLength {
		return ErrDisplayNameTooLong
	}
	if settings.Bio != nil && utf8.RuneCountInString(*settings.Bio) > maxBioLength {
		return ErrBioTooLong
	}
	if settings.PublicSlug != nil && !slugPattern.MatchString(*settings.PublicSlug) {
		return ErrInvalidSlug
	}
	return nil
}

// UpdateSettings applies settings and returns the user before and after the change.
func (s *UserService) UpdateSettings(ctx context.Context, userID uint, settings UserSettings) (before, after *model.User, err error) {
	if err := s.validateSettings(settings); err != nil {
		return nil, nil, err
	}

	before, err = s.GetUserByID(ctx, userID)
	if err != nil {
		return nil, nil, err
	}

	updates := map[string]interface{}{}
	if settings.DisplayName != nil {
		updates["display_name"] = strings.TrimSpace(*settings.DisplayName)
	}
	if settings.Bio != nil {
		updates["bio"] = strings.TrimSpace(*settings.Bio)
	}
	if settings.PublicSlug != nil && *settings.PublicSlug != before.PublicSlug {
		taken, err := s.userRepo.Exists(ctx, "public_slug = ? AND id <> ?", *settings.PublicSlug, userID)
		if err != nil {
			return nil, nil, err
		}
		if taken {
			return nil, nil, ErrSlugTaken
		}
		updates["public_slug"] = *settings.PublicSlug
	}
	if settings.CollectionPrivate != nil {
		updates["collection_private"] = *settings.CollectionPrivate
	}

	if len(updates) > 0 {
		if _, err := s.userRepo.Updates(ctx, userID, updates); err != nil {
			if isDuplicateKey(err) {
				return nil, nil, ErrSlugTaken
			}
			return nil, nil, err
		}
	}
	after, err = s.GetUserByID(ctx, userID)
	if err != nil {
		return nil, nil, err
	}
	return before, after, nil
}

func (s *UserService) SetStatus(ctx context.Context, userID uint, status model.UserStatus) (*model.User, error) {
	if status != model.StatusActive && status != model.StatusBanned {
		return nil, ErrInvalidStatus
	}
	if _, err := s.userRepo.Updates(ctx, userID, map[string]interface{}{"status": status}); err != nil {
		return nil, err
	}
	return s.GetUserByID(ctx, userID)
}

func (s *UserService) SetRole(ctx context.Context, userID uint, role model.UserRole) (*model.User, error) {
	if role != model.RoleUser && role != model.RoleAdmin {
		return nil, ErrInvalidRole
	}
	if _, err := s.userRepo.Updates(ctx, userID, map[string]interface{}{"role": role}); err != nil {
		return nil, err
	}
	return s.GetUserByID(ctx, userID)
}

func (s *UserService) ListUsers(ctx context.Context, offset, limit int) ([]*model.User, int64, error) {
	return s.userRepo.Find(ctx, offset, limit)
}

func NewUserService(db *gorm.DB, userRepo UserRepository, connRepo ConnectionRepository, sealer *common.Sealer, adminUsernames []string) *UserService {
	admins := make(map[string]bool, len(adminUsernames))
	for _, name := range adminUsernames {
		admins[strings.ToLower(strings.TrimSpace(name))] = true
	}
	return &UserService{
		db:             db,
		userRepo:       userRepo,
		connRepo:       connRepo,
		sealer:         sealer,
		adminUsernames: admins,
	}
}
