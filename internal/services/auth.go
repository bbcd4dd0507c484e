package services

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"strconv"
	"strings"
	"sync"
	"time"

	"daycare-backend-go/internal/db"
	"daycare-backend-go/internal/models"
	"daycare-backend-go/internal/session"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/bcrypt"
)

var errInvalidToken = errors.New("invalid token")

type TokenService struct {
	Secret    []byte
	Issuer    string
	AccessTTL time.Duration
	Revoked   *RevocationList
}

func (t TokenService) HashPassword(raw string) (string, error) {
	return hashArgon2id(raw)
}

// VerifyPassword accepts argon2id, bcrypt and legacy unsalted SHA-256 hex
// hashes.
func (t TokenService) VerifyPassword(raw, hashed string) bool {
	switch {
	case strings.HasPrefix(hashed, "$argon2"):
		return verifyArgon2id(raw, hashed)
	case strings.HasPrefix(hashed, "$2"):
		return bcrypt.CompareHashAndPassword([]byte(hashed), []byte(raw)) == nil
	default:
		sum := sha256.Sum256([]byte(raw))
		return subtleCompare([]byte(hex.EncodeToString(sum[:])), []byte(strings.ToLower(hashed)))
	}
}

// CreateSessionToken signs an authenticated session. Without AccessTTL the
// token carries no expiry and lives until logout.
func (t TokenService) CreateSessionToken(s session.Session) (string, error) {
	if !s.Authenticated() {
		return "", errInvalidToken
	}
	now := time.Now().UTC()
	claims := jwt.MapClaims{
		"iss":      t.Issuer,
		"sub":      strconv.FormatInt(s.UserID, 10),
		"username": s.Username,
		"role":     s.Role,
		"page":     string(s.Page),
		"ver":      s.Version,
		"jti":      uuid.NewString(),
		"iat":      now.Unix(),
	}
	if t.AccessTTL > 0 {
		claims["exp"] = now.Add(t.AccessTTL).Unix()
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(t.Secret)
}

// ParseSessionToken verifies the signature, issuer and revocation state and
// rebuilds the session. The second value is the token id.
func (t TokenService) ParseSessionToken(tokenStr string) (session.Session, string, error) {
	claims := jwt.MapClaims{}
	token, err := jwt.ParseWithClaims(tokenStr, claims, func(token *jwt.Token) (interface{}, error) {
		return t.Secret, nil
	}, jwt.WithIssuer(t.Issuer), jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil || !token.Valid {
		return session.Anonymous(), "", errInvalidToken
	}
	jti, _ := claims["jti"].(string)
	if jti == "" || t.Revoked.Contains(jti) {
		return session.Anonymous(), "", errInvalidToken
	}
	sub, _ := claims["sub"].(string)
	userID, err := strconv.ParseInt(sub, 10, 64)
	if err != nil {
		return session.Anonymous(), "", errInvalidToken
	}
	username, _ := claims["username"].(string)
	role, _ := claims["role"].(string)
	page, _ := claims["page"].(string)
	version, _ := claims["ver"].(float64)
	s := session.Anonymous().Authenticate(session.Identity{UserID: userID, Username: username, Role: role, Version: int64(version)})
	if page != "" {
		s.Page = session.Page(page)
	}
	return s, jti, nil
}

// ResolveSession verifies the token and rebuilds the session from the stored
// account: username and role come from the users table, only the page comes
// from the token. A deleted account or a stale token version is rejected.
func (t TokenService) ResolveSession(ctx context.Context, q db.Querier, tokenStr string) (session.Session, string, error) {
	claimed, jti, err := t.ParseSessionToken(tokenStr)
	if err != nil {
		return session.Anonymous(), "", err
	}
	identity, err := LoadIdentity(ctx, q, claimed.UserID)
	if errors.Is(err, errAccountGone) {
		return session.Anonymous(), "", errInvalidToken
	}
	if err != nil {
		return session.Anonymous(), "", err
	}
	if identity.Version != claimed.Version {
		return session.Anonymous(), "", errInvalidToken
	}
	s := session.Anonymous().Authenticate(identity)
	if session.CanView(identity.Role, claimed.Page) {
		s.Page = claimed.Page
	}
	return s, jti, nil
}

// IsInvalidToken reports whether err rejects the presented token rather than
// failing to check it.
func IsInvalidToken(err error) bool {
	return errors.Is(err, errInvalidToken)
}

var errAccountGone = errors.New("account not found")

// LoadIdentity reads the current role and token version of an account.
func LoadIdentity(ctx context.Context, q db.Querier, userID int64) (session.Identity, error) {
	var user models.User
	err := q.Get(ctx, &user, `SELECT id, username, role, token_version FROM users WHERE id = ?`, userID)
	if db.IsNotFound(err) {
		return session.Identity{}, errAccountGone
	}
	if err != nil {
		return session.Identity{}, err
	}
	return session.Identity{UserID: user.ID, Username: user.Username, Role: user.Role, Version: user.TokenVersion}, nil
}

// EndSessions bumps the account's token version so every token issued before
// stops verifying, across restarts.
func EndSessions(ctx context.Context, store *db.Store, userID int64) error {
	_, err := store.Exec(ctx, `UPDATE users SET token_version = token_version + 1 WHERE id = ?`, userID)
	return err
}

// Revoke invalidates a token id for the rest of the process lifetime.
func (t TokenService) Revoke(jti string) {
	t.Revoked.Add(jti)
}

type RevocationList struct {
	mu  sync.RWMutex
	ids map[string]struct{}
}

func NewRevocationList() *RevocationList {
	return &RevocationList{ids: map[string]struct{}{}}
}

func (l *RevocationList) Add(jti string) {
	if l == nil || jti == "" {
		return
	}
	l.mu.Lock()
	l.ids[jti] = struct{}{}
	l.mu.Unlock()
}

func (l *RevocationList) Contains(jti string) bool {
	if l == nil {
		return false
	}
	l.mu.RLock()
	defer l.mu.RUnlock()
	_, ok := l.ids[jti]
	return ok
}

// Authenticate succeeds only for exactly one username match whose stored hash
// verifies. Every failure is ErrInvalidCredentials.
func Authenticate(ctx context.Context, q db.Querier, tokens TokenService, username, password string) (session.Identity, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return session.Identity{}, ErrInvalidCredentials
	}
	rows := []models.User{}
	if err := q.Select(ctx, &rows, `SELECT id, username, password_hash, role, token_version FROM users WHERE username = ?`, username); err != nil {
		return session.Identity{}, err
	}
	if len(rows) != 1 || !tokens.VerifyPassword(password, rows[0].PasswordHash) {
		return session.Identity{}, ErrInvalidCredentials
	}
	return session.Identity{UserID: rows[0].ID, Username: rows[0].Username, Role: rows[0].Role, Version: rows[0].TokenVersion}, nil
}

type argon2Params struct {
	memory      uint32
	iterations  uint32
	parallelism uint8
	saltLength  int
	keyLength   int
}

func hashArgon2id(raw string) (string, error) {
	params := argon2Params{
		memory:      65536,
		iterations:  3,
		parallelism: 1,
		saltLength:  16,
		keyLength:   32,
	}
	salt := make([]byte, params.saltLength)
	if _, err := rand.Read(salt); err != nil {
		return "", err
	}
	key := argon2.IDKey([]byte(raw), salt, params.iterations, params.memory, params.parallelism, uint32(params.keyLength))
	b64Salt := base64.RawStdEncoding.EncodeToString(salt)
	b64Key := base64.RawStdEncoding.EncodeToString(key)
	return "$argon2id$v=19$m=" + strconv.FormatUint(uint64(params.memory), 10) +
		",t=" + strconv.FormatUint(uint64(params.iterations), 10) +
		",p=" + strconv.FormatUint(uint64(params.parallelism), 10) +
		"$" + b64Salt + "$" + b64Key, nil
}

func verifyArgon2id(raw, encoded string) bool {
	params, salt, hash, err := decodeArgon2id(encoded)
	if err != nil {
		return false
	}
	key := argon2.IDKey([]byte(raw), salt, params.iterations, params.memory, params.parallelism, uint32(params.keyLength))
	return subtleCompare(hash, key)
}

func decodeArgon2id(encoded string) (argon2Params, []byte, []byte, error) {
	parts := strings.Split(encoded, "$")
	if len(parts) != 6 {
		return argon2Params{}, nil, nil, errors.New("invalid hash format")
	}
	var params argon2Params
	if parts[1] != "argon2id" {
		return argon2Params{}, nil, nil, errors.New("invalid hash type")
	}
	for _, kv := range strings.Split(parts[3], ",") {
		pair := strings.SplitN(kv, "=", 2)
		if len(pair) != 2 {
			continue
		}
		switch pair[0] {
		case "m":
			value, _ := strconv.ParseUint(pair[1], 10, 32)
			params.memory = uint32(value)
		case "t":
			value, _ := strconv.ParseUint(pair[1], 10, 32)
			params.iterations = uint32(value)
		case "p":
			value, _ := strconv.ParseUint(pair[1], 10, 8)
			params.parallelism = uint8(value)
		}
	}
	if params.iterations == 0 || params.parallelism == 0 {
		return argon2Params{}, nil, nil, errors.New("invalid hash parameters")
	}
	salt, err := base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil {
		return argon2Params{}, nil, nil, err
	}
	hash, err := base64.RawStdEncoding.DecodeString(parts[5])
	if err != nil {
		return argon2Params{}, nil, nil, err
	}
	params.saltLength = len(salt)
	params.keyLength = len(hash)
	return params, salt, hash, nil
}

func subtleCompare(a, b []byte) bool {
	if len(a) != len(b) {
		return false
	}
	var diff byte
	for i := range a {
		diff |= a[i] ^ b[i]
	}
	return diff == 0
}
