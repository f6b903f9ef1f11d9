package auth

import (
	"sync"

	"github.com/pkg/errors"
	"golang.org/x/crypto/bcrypt"

	"github.com/evgeny-myasishchev/bank-ledger/pkg/types"
)

// MaxPasswordLength is a max length of a password in bytes, bcrypt
// refuses to hash longer input
const MaxPasswordLength = 72

// ValidatePassword fails with types.ErrInvalidAccount if password
// can not be hashed
func ValidatePassword(password string) error {
	if password == "" {
		return errors.Wrap(types.ErrInvalidAccount, "Password is required")
	}
	if len(password) > MaxPasswordLength {
		return errors.Wrapf(types.ErrInvalidAccount, "Password is longer than %v bytes", MaxPasswordLength)
	}
	return nil
}

// PasswordHasher produces salted one way password hashes
type PasswordHasher interface {
	Hash(password string) (string, error)

	// Verify compares password with the hash in constant time
	Verify(hash string, password string) bool
}

type bcryptHasher struct {
	cost int

	dummyOnce sync.Once
	dummyHash string
}

func (h *bcryptHasher) Hash(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), h.cost)
	if err != nil {
		if errors.Is(err, bcrypt.ErrPasswordTooLong) {
			return "", errors.Wrap(types.ErrInvalidAccount, err.Error())
		}
		return "", errors.Wrap(err, "Failed to hash password")
	}
	return string(hash), nil
}

func (h *bcryptHasher) Verify(hash string, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

// dummy returns a hash of the same cost that is verified for unknown
// accounts so they take as long as known ones
func (h *bcryptHasher) dummy() string {
	h.dummyOnce.Do(func() {
		hash, err := bcrypt.GenerateFromPassword([]byte("not-a-password"), h.cost)
		if err != nil {
			panic(err)
		}
		h.dummyHash = string(hash)
	})
	return h.dummyHash
}

// NewBcryptHasher returns a bcrypt based hasher. Cost outside
// of bcrypt bounds is replaced with bcrypt.DefaultCost
func NewBcryptHasher(cost int) PasswordHasher {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	return &bcryptHasher{cost: cost}
}

// dummyHashOf returns a hash to verify against when account is not known
func dummyHashOf(hasher PasswordHasher) string {
	if h, ok := hasher.(*bcryptHasher); ok {
		return h.dummy()
	}
	hash, err := hasher.Hash("not-a-password")
	if err != nil {
		return ""
	}
	return hash
}
