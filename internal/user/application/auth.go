package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/mail"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/dmehra2102/food-storefront/internal/realtime"
	"github.com/dmehra2102/food-storefront/internal/user/domain"
)

const CredentialsPath = "credentials"

const minPasswordLength = 6

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrEmailTaken         = errors.New("email already registered")
	ErrInvalidEmail       = errors.New("invalid email")
	ErrWeakPassword       = errors.New("password must be at least 6 characters")
	ErrInvalidToken       = errors.New("invalid token")
)

type AuthConfig struct {
	Secret              []byte
	TokenTTL            time.Duration
	BootstrapAdminEmail string
	Issuer              string
}

type Claims struct {
	Email string `json:"email"`
	jwt.RegisteredClaims
}

type Session struct {
	User      domain.User `json:"user"`
	Token     string      `json:"token"`
	ExpiresAt time.Time   `json:"expiresAt"`
}

type AuthObserver func(*domain.User)

// Auth signs users in against credentials kept in the realtime store and
// issues HS256 bearer tokens. It also tracks the most recent signed-in user
// for observers.
type Auth struct {
	log   *slog.Logger
	store DataStore
	users *Service
	cfg   AuthConfig
	now   func() time.Time

	signupMu sync.Mutex

	mu        sync.RWMutex
	current   *domain.User
	observers map[int]AuthObserver
	nextObs   int
}

func NewAuth(log *slog.Logger, store DataStore, users *Service, cfg AuthConfig) *Auth {
	if cfg.TokenTTL <= 0 {
		cfg.TokenTTL = 24 * time.Hour
	}
	if cfg.Issuer == "" {
		cfg.Issuer = "food-storefront"
	}
	cfg.BootstrapAdminEmail = domain.NormalizeEmail(cfg.BootstrapAdminEmail)
	return &Auth{
		log:       log,
		store:     store,
		users:     users,
		cfg:       cfg,
		now:       time.Now,
		observers: map[int]AuthObserver{},
	}
}

func (a *Auth) SignUp(ctx context.Context, email, password string) (Session, error) {
	email = domain.NormalizeEmail(email)
	if _, err := mail.ParseAddress(email); err != nil {
		return Session{}, fmt.Errorf("%w: %s", ErrInvalidEmail, email)
	}
	if len(password) < minPasswordLength {
		return Session{}, ErrWeakPassword
	}

	a.signupMu.Lock()
	defer a.signupMu.Unlock()

	if _, _, found, err := a.findCredential(ctx, email); err != nil {
		return Session{}, err
	} else if found {
		return Session{}, ErrEmailTaken
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return Session{}, fmt.Errorf("failed to hash password: %w", err)
	}
	uid := uuid.NewString()
	cred := domain.Credential{Email: email, PasswordHash: string(hash)}
	if err := a.store.Set(ctx, realtime.Join(CredentialsPath, uid), cred); err != nil {
		return Session{}, fmt.Errorf("store credentials: %w", err)
	}
	if err := a.users.SetUserRoles(ctx, uid, domain.Profile{Email: email}); err != nil {
		return Session{}, err
	}
	a.log.Info("user signed up", "uid", uid)

	user := domain.User{UID: uid, Email: email}
	return a.startSession(user)
}

func (a *Auth) SignIn(ctx context.Context, email, password string) (Session, error) {
	email = domain.NormalizeEmail(email)
	uid, cred, found, err := a.findCredential(ctx, email)
	if err != nil {
		return Session{}, err
	}
	if !found {
		return Session{}, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(cred.PasswordHash), []byte(password)); err != nil {
		a.log.Warn("sign in rejected", "uid", uid)
		return Session{}, ErrInvalidCredentials
	}

	user := domain.User{UID: uid, Email: cred.Email}
	u, ok, err := a.users.GetUser(ctx, uid)
	if err != nil {
		a.log.Error("sign in profile read failed", "uid", uid, "err", err)
		return Session{}, fmt.Errorf("sign in: %w", err)
	}
	if ok {
		user.Roles = u.Roles
	}
	a.log.Info("user signed in", "uid", uid)
	return a.startSession(user)
}

func (a *Auth) SignOut(ctx context.Context) error {
	a.mu.Lock()
	prev := a.current
	a.current = nil
	a.mu.Unlock()
	if prev != nil {
		a.log.Info("user signed out", "uid", prev.UID)
	}
	a.notify(nil)
	return nil
}

// OnAuthStateChanged calls cb with the current user right away and again on
// every sign in or sign out.
func (a *Auth) OnAuthStateChanged(cb AuthObserver) func() {
	a.mu.Lock()
	id := a.nextObs
	a.nextObs++
	a.observers[id] = cb
	cur := a.current
	a.mu.Unlock()

	cb(cur)
	return func() {
		a.mu.Lock()
		delete(a.observers, id)
		a.mu.Unlock()
	}
}

func (a *Auth) CurrentUser() *domain.User {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if a.current == nil {
		return nil
	}
	u := *a.current
	return &u
}

// GetUserRoles resolves the roles of user. The configured bootstrap email is
// always an administrator.
func (a *Auth) GetUserRoles(ctx context.Context, user domain.User) ([]domain.Role, error) {
	if a.cfg.BootstrapAdminEmail != "" && domain.NormalizeEmail(user.Email) == a.cfg.BootstrapAdminEmail {
		a.log.Warn("bootstrap admin email granted admin role", "uid", user.UID)
		return []domain.Role{domain.RoleAdmin}, nil
	}
	return a.users.Roles(ctx, user.UID)
}

func (a *Auth) IssueToken(user domain.User) (string, time.Time, error) {
	now := a.now()
	exp := now.Add(a.cfg.TokenTTL)
	claims := Claims{
		Email: user.Email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.UID,
			Issuer:    a.cfg.Issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(a.cfg.Secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to generate token: %w", err)
	}
	return token, exp, nil
}

func (a *Auth) VerifyToken(token string) (domain.User, error) {
	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return a.cfg.Secret, nil
	}, jwt.WithIssuer(a.cfg.Issuer), jwt.WithTimeFunc(a.now))
	if err != nil || !parsed.Valid || claims.Subject == "" {
		return domain.User{}, ErrInvalidToken
	}
	return domain.User{UID: claims.Subject, Email: claims.Email}, nil
}

func (a *Auth) startSession(user domain.User) (Session, error) {
	token, exp, err := a.IssueToken(user)
	if err != nil {
		return Session{}, err
	}
	a.mu.Lock()
	u := user
	a.current = &u
	a.mu.Unlock()
	a.notify(&user)
	return Session{User: user, Token: token, ExpiresAt: exp}, nil
}

func (a *Auth) notify(user *domain.User) {
	a.mu.RLock()
	observers := make([]AuthObserver, 0, len(a.observers))
	for _, o := range a.observers {
		observers = append(observers, o)
	}
	a.mu.RUnlock()
	for _, o := range observers {
		o(user)
	}
}

func (a *Auth) findCredential(ctx context.Context, email string) (string, domain.Credential, bool, error) {
	snap, err := a.store.Get(ctx, CredentialsPath)
	if err != nil {
		return "", domain.Credential{}, false, fmt.Errorf("read credentials: %w", err)
	}
	for uid, raw := range snap.Children() {
		var c domain.Credential
		if err := (realtime.Snapshot{Value: raw}).Decode(&c); err != nil {
			continue
		}
		if c.Email == email {
			return uid, c, true, nil
		}
	}
	return "", domain.Credential{}, false, nil
}
