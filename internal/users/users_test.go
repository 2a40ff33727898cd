package users_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"vitrine/internal/testsupport"
	"vitrine/internal/users"
)

func TestFindByEmail(t *testing.T) {
	dbManager, _ := testsupport.SetupTestDBManager(t)
	db := dbManager.GetConnection()

	t.Run("finds existing user", func(t *testing.T) {
		testUser := testsupport.CreateTestUserForAuth(t, db, "test@example.com", "password123")

		foundUser, err := users.FindByEmail(db, "test@example.com")

		require.NoError(t, err)
		assert.Equal(t, testUser.ID, foundUser.ID)
	})

	t.Run("returns error for non-existent user", func(t *testing.T) {
		foundUser, err := users.FindByEmail(db, "nonexistent@example.com")

		assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
		assert.Nil(t, foundUser)
	})
}

func TestCreateAdminUser(t *testing.T) {
	dbManager, _ := testsupport.SetupTestDBManager(t)
	db := dbManager.GetConnection()

	t.Run("creates user holding the admin role", func(t *testing.T) {
		user, err := users.CreateAdminUser(db, "newadmin@example.com", "securepassword123")
		require.NoError(t, err)
		assert.NotEmpty(t, user.EncryptedPassword)

		isAdmin, err := users.HasRole(db, user.ID, users.RoleAdmin)
		require.NoError(t, err)
		assert.True(t, isAdmin)
	})

	t.Run("returns error when user already exists", func(t *testing.T) {
		_, err := users.CreateAdminUser(db, "existing@example.com", "password123")
		require.NoError(t, err)

		_, err = users.CreateAdminUser(db, "existing@example.com", "password123")
		assert.ErrorIs(t, err, users.ErrUserExists)
	})

	t.Run("returns error for empty credentials", func(t *testing.T) {
		_, err := users.CreateAdminUser(db, "", "password123")
		assert.Error(t, err)

		_, err = users.CreateAdminUser(db, "test@example.com", "")
		assert.Error(t, err)
	})
}

func TestChangePassword(t *testing.T) {
	dbManager, _ := testsupport.SetupTestDBManager(t)
	db := dbManager.GetConnection()

	t.Run("changes password successfully", func(t *testing.T) {
		email := "changepass@example.com"
		_, err := users.CreateUser(db, email, "oldpassword123")
		require.NoError(t, err)

		require.NoError(t, users.ChangePassword(db, email, "newpassword456"))

		_, ok := users.Authenticate(db, email, "newpassword456")
		assert.True(t, ok)
		_, ok = users.Authenticate(db, email, "oldpassword123")
		assert.False(t, ok)
	})

	t.Run("returns error for non-existent user", func(t *testing.T) {
		err := users.ChangePassword(db, "nonexistent@example.com", "newpassword")
		assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
	})

	t.Run("returns error for empty password", func(t *testing.T) {
		assert.Error(t, users.ChangePassword(db, "changepass@example.com", ""))
	})
}

func TestAuthenticate(t *testing.T) {
	dbManager, _ := testsupport.SetupTestDBManager(t)
	db := dbManager.GetConnection()
	testsupport.CreateTestUserForAuth(t, db, "auth@example.com", "s3cret")

	user, ok := users.Authenticate(db, "auth@example.com", "s3cret")
	require.True(t, ok)
	assert.Equal(t, "auth@example.com", user.Email)

	_, ok = users.Authenticate(db, "auth@example.com", "wrong")
	assert.False(t, ok)

	_, ok = users.Authenticate(db, "ghost@example.com", "s3cret")
	assert.False(t, ok)
}

func TestRoles(t *testing.T) {
	dbManager, _ := testsupport.SetupTestDBManager(t)
	db := dbManager.GetConnection()
	user := testsupport.CreateTestUserForAuth(t, db, "editor@example.com", "password")

	isAdmin, err := users.HasRole(db, user.ID, users.RoleAdmin)
	require.NoError(t, err)
	assert.False(t, isAdmin, "users start without roles")

	require.NoError(t, users.GrantRole(db, user.ID, users.RoleAdmin))
	require.NoError(t, users.GrantRole(db, user.ID, users.RoleAdmin), "granting twice is allowed")

	isAdmin, err = users.HasRole(db, user.ID, users.RoleAdmin)
	require.NoError(t, err)
	assert.True(t, isAdmin)

	require.NoError(t, users.RevokeRole(db, user.ID, users.RoleAdmin))
	isAdmin, err = users.HasRole(db, user.ID, users.RoleAdmin)
	require.NoError(t, err)
	assert.False(t, isAdmin)
}
