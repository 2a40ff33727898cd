package users

import (
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/karloscodes/cartridge/crypto"
	"github.com/karloscodes/cartridge/sqlite"
	"gorm.io/gorm"
)

type User struct {
	ID                uint   `gorm:"primaryKey"`
	Email             string `gorm:"uniqueIndex"`
	EncryptedPassword string
	CreatedAt         time.Time `gorm:"autoCreateTime"`
	UpdatedAt         time.Time `gorm:"autoUpdateTime"`
}

// ErrUserExists is returned when attempting to create a user that already exists.
var ErrUserExists = errors.New("user already exists")

// ErrUserNotFound is returned when a user lookup fails.
var ErrUserNotFound = gorm.ErrRecordNotFound

// FindByEmail retrieves a user by email.
func FindByEmail(db *gorm.DB, email string) (*User, error) {
	var user User
	if err := db.Where("email = ?", email).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// FindByID retrieves a user by ID.
func FindByID(db *gorm.DB, id uint) (*User, error) {
	var user User
	if err := db.Where("id = ?", id).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// CreateUser creates a user with the supplied credentials. It returns ErrUserExists if the email is taken.
func CreateUser(dbConn *gorm.DB, email, password string) (*User, error) {
	if email == "" {
		return nil, errors.New("email cannot be empty")
	}
	if password == "" {
		return nil, errors.New("password cannot be empty")
	}

	if _, err := FindByEmail(dbConn, email); err == nil {
		return nil, ErrUserExists
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	hashedPassword, err := crypto.GeneratePasswordHash(password)
	if err != nil {
		return nil, err
	}

	newUser := User{
		Email:             email,
		EncryptedPassword: string(hashedPassword),
	}

	err = sqlite.PerformWrite(slog.Default(), dbConn, func(tx *gorm.DB) error {
		return tx.Create(&newUser).Error
	})
	if err != nil {
		return nil, err
	}
	return &newUser, nil
}

// CreateAdminUser creates a user and grants it the admin role in one step.
func CreateAdminUser(dbConn *gorm.DB, email, password string) (*User, error) {
	user, err := CreateUser(dbConn, email, password)
	if err != nil {
		return nil, err
	}
	if err := GrantRole(dbConn, user.ID, RoleAdmin); err != nil {
		return nil, err
	}
	return user, nil
}

// ChangePassword updates a user's password given their email.
func ChangePassword(dbConn *gorm.DB, email, password string) error {
	if password == "" {
		return errors.New("password cannot be empty")
	}

	user, err := FindByEmail(dbConn, email)
	if err != nil {
		return err
	}

	hashedPassword, err := crypto.GeneratePasswordHash(password)
	if err != nil {
		return err
	}

	return sqlite.PerformWrite(slog.Default(), dbConn, func(tx *gorm.DB) error {
		return tx.Model(user).Update("encrypted_password", string(hashedPassword)).Error
	})
}

// Authenticate returns the user for email when password matches.
// A dummy comparison runs for unknown emails so timing does not reveal which emails exist.
func Authenticate(dbConn *gorm.DB, email, password string) (*User, bool) {
	user, err := FindByEmail(dbConn, email)
	if err != nil {
		crypto.VerifyPassword(dummyHash(), password)
		return nil, false
	}
	if !crypto.VerifyPassword(user.EncryptedPassword, password) {
		return nil, false
	}
	return user, true
}

var dummyHash = sync.OnceValue(func() string {
	hash, err := crypto.GeneratePasswordHash("vitrine-dummy-password")
	if err != nil {
		return ""
	}
	return string(hash)
})
