package models

import (
	"crypto/rand"
	"encoding/binary"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/golang-jwt/jwt/v5"
	bolt "go.etcd.io/bbolt"
	"golang.org/x/crypto/bcrypt"
	"golang.org/x/crypto/sha3"

	"github.com/Xczer/docsee-gui/internal/db"
)

const (
	bcryptCost        = 10
	shake256Length    = 16 // bytes → 32 hex chars
	jwtExpiration     = 30 * 24 * time.Hour
	secretAlphabet    = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"
	secretLength      = 64
	MinPasswordLength = 6
)

var (
	ErrAlreadySetUp   = errors.New("docsee has already been set up")
	ErrWeakPassword   = fmt.Errorf("password is too weak, it must be at least %d characters", MinPasswordLength)
	ErrBadCredentials = errors.New("incorrect username or password")
	ErrInvalidToken   = errors.New("invalid or expired token")
)

type User struct {
	ID       int    `json:"id"`
	Username string `json:"username"`
	Password string `json:"password"` // bcrypt hash
	Active   bool   `json:"active"`
}

// JWTClaims binds a token to the password it was minted under through H,
// so changing the password invalidates older tokens.
type JWTClaims struct {
	Username string `json:"username"`
	H        string `json:"h"`
	jwt.RegisteredClaims
}

type UserStore struct {
	db *bolt.DB
}

func NewUserStore(database *bolt.DB) *UserStore {
	return &UserStore{db: database}
}

// itob converts a uint64 to an 8-byte big-endian bbolt key.
func itob(v uint64) []byte {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, v)
	return b
}

// FindByUsername returns the active user or nil if there is none.
func (s *UserStore) FindByUsername(username string) (*User, error) {
	var u *User
	err := s.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket(db.BucketUsers).Get([]byte(username))
		if v == nil {
			return nil
		}
		u = &User{}
		if err := json.Unmarshal(v, u); err != nil {
			return fmt.Errorf("unmarshal user: %w", err)
		}
		if !u.Active {
			u = nil
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("find user: %w", err)
	}
	return u, nil
}

// FindByID returns the user or nil if not found.
func (s *UserStore) FindByID(id int) (*User, error) {
	var u *User
	err := s.db.View(func(tx *bolt.Tx) error {
		username := tx.Bucket(db.BucketUsersByID).Get(itob(uint64(id)))
		if username == nil {
			return nil
		}
		v := tx.Bucket(db.BucketUsers).Get(username)
		if v == nil {
			return nil
		}
		u = &User{}
		return json.Unmarshal(v, u)
	})
	if err != nil {
		return nil, fmt.Errorf("find user by id: %w", err)
	}
	return u, nil
}

// Count returns the number of stored users.
func (s *UserStore) Count() (int, error) {
	var count int
	err := s.db.View(func(tx *bolt.Tx) error {
		count = tx.Bucket(db.BucketUsers).Stats().KeyN
		return nil
	})
	return count, err
}

// CreateOwner creates the single local user. It fails with ErrAlreadySetUp
// once any user exists; the check and insert share one transaction.
func (s *UserStore) CreateOwner(username, password string) (*User, error) {
	if username == "" {
		return nil, ErrBadCredentials
	}
	if len(password) < MinPasswordLength {
		return nil, ErrWeakPassword
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcryptCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	var u *User
	err = s.db.Update(func(tx *bolt.Tx) error {
		users := tx.Bucket(db.BucketUsers)
		if users.Stats().KeyN > 0 {
			return ErrAlreadySetUp
		}

		idBucket := tx.Bucket(db.BucketUsersByID)
		seq, err := idBucket.NextSequence()
		if err != nil {
			return fmt.Errorf("next sequence: %w", err)
		}

		u = &User{ID: int(seq), Username: username, Password: string(hash), Active: true}
		data, err := json.Marshal(u)
		if err != nil {
			return fmt.Errorf("marshal user: %w", err)
		}
		if err := users.Put([]byte(username), data); err != nil {
			return err
		}
		return idBucket.Put(itob(seq), []byte(username))
	})
	if err != nil {
		return nil, fmt.Errorf("create user: %w", err)
	}
	return u, nil
}

// Authenticate returns the user when the password matches, ErrBadCredentials
// otherwise.
func (s *UserStore) Authenticate(username, password string) (*User, error) {
	if username == "" || password == "" {
		return nil, ErrBadCredentials
	}
	u, err := s.FindByUsername(username)
	if err != nil {
		return nil, err
	}
	if u == nil || !VerifyPassword(password, u.Password) {
		return nil, ErrBadCredentials
	}
	return u, nil
}

// ChangePassword verifies the current password and stores a new hash.
// Tokens minted before the change stop verifying.
func (s *UserStore) ChangePassword(userID int, currentPassword, newPassword string) error {
	if len(newPassword) < MinPasswordLength {
		return ErrWeakPassword
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcryptCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}

	return s.db.Update(func(tx *bolt.Tx) error {
		username := tx.Bucket(db.BucketUsersByID).Get(itob(uint64(userID)))
		if username == nil {
			return fmt.Errorf("user id %d not found", userID)
		}

		bucket := tx.Bucket(db.BucketUsers)
		v := bucket.Get(username)
		if v == nil {
			return fmt.Errorf("user %q not found", string(username))
		}

		var u User
		if err := json.Unmarshal(v, &u); err != nil {
			return fmt.Errorf("unmarshal user: %w", err)
		}
		if !VerifyPassword(currentPassword, u.Password) {
			return ErrBadCredentials
		}

		u.Password = string(hash)
		data, err := json.Marshal(&u)
		if err != nil {
			return fmt.Errorf("marshal user: %w", err)
		}
		return bucket.Put(username, data)
	})
}

// UserForToken verifies a session token and returns its user. Tokens whose
// password binding no longer matches are rejected with ErrInvalidToken.
func (s *UserStore) UserForToken(token, secret string) (*User, error) {
	claims, err := VerifyJWT(token, secret)
	if err != nil {
		return nil, err
	}
	u, err := s.FindByUsername(claims.Username)
	if err != nil {
		return nil, err
	}
	if u == nil || claims.H != Shake256Hex(u.Password, shake256Length) {
		return nil, ErrInvalidToken
	}
	return u, nil
}

// VerifyPassword checks a plaintext password against a bcrypt hash.
func VerifyPassword(password, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

// CreateJWT creates an HS256 session token for the user.
func CreateJWT(user *User, secret string) (string, error) {
	now := time.Now()
	claims := JWTClaims{
		Username: user.Username,
		H:        Shake256Hex(user.Password, shake256Length),
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(jwtExpiration)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}

// VerifyJWT parses and validates a session token. Tokens without an expiry
// are rejected.
func VerifyJWT(tokenString, secret string) (*JWTClaims, error) {
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
	)
	token, err := parser.ParseWithClaims(tokenString, &JWTClaims{}, func(*jwt.Token) (any, error) {
		return []byte(secret), nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}

	claims, ok := token.Claims.(*JWTClaims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// Shake256Hex returns the first length bytes of SHAKE256(data) as hex.
func Shake256Hex(data string, length int) string {
	if data == "" {
		return ""
	}
	h := sha3.NewShake256()
	h.Write([]byte(data))
	out := make([]byte, length)
	h.Read(out)
	return hex.EncodeToString(out)
}

// GenSecret generates a cryptographically random alphanumeric string.
func GenSecret(length int) (string, error) {
	b := make([]byte, length)
	for i := range b {
		n, err := rand.Int(rand.Reader, big.NewInt(int64(len(secretAlphabet))))
		if err != nil {
			return "", err
		}
		b[i] = secretAlphabet[n.Int64()]
	}
	return string(b), nil
}
