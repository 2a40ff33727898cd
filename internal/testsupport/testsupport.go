package testsupport

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/karloscodes/cartridge"
	ctestsupport "github.com/karloscodes/cartridge/testsupport"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"vitrine/internal/config"
	"vitrine/internal/database"
	"vitrine/internal/events"
	"vitrine/internal/users"
)

func init() {
	// Packages importing testsupport always run against the test environment.
	if os.Getenv("VITRINE_ENV") == "" {
		os.Setenv("VITRINE_ENV", config.Test)
	}
}

// testDBCache caches test databases by test name to allow multiple calls
// within the same test to share the same database
var testDBCache = make(map[string]*gorm.DB)
var testDBCacheMu sync.Mutex

// TestDBManager wraps cartridge's TestDBManager with vitrine's interface
type TestDBManager struct {
	*ctestsupport.TestDBManager
}

// NewTestDBManager creates a TestDBManager that implements cartridge.DBManager
func NewTestDBManager(db *gorm.DB) *TestDBManager {
	return &TestDBManager{
		TestDBManager: ctestsupport.NewTestDBManager(db),
	}
}

// Ensure TestDBManager implements cartridge.DBManager
var _ cartridge.DBManager = (*TestDBManager)(nil)

// SetupTestDB creates a test database with all models migrated.
// Uses a named in-memory database with cache=shared to allow multiple connections
// to share the same database within a test. Caches the database by test name
// so multiple calls within the same test return the same database.
func SetupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	testName := t.Name()

	// Subtests share the root test's database
	rootName := testName
	if idx := strings.Index(testName, "/"); idx > 0 {
		rootName = testName[:idx]
	}

	testDBCacheMu.Lock()
	if db, exists := testDBCache[rootName]; exists {
		testDBCacheMu.Unlock()
		return db
	}
	testDBCacheMu.Unlock()

	sanitizedName := strings.ReplaceAll(rootName, "/", "_")
	dsn := fmt.Sprintf("file:test_%s_%d?mode=memory&cache=shared", sanitizedName, time.Now().UnixNano())

	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("testsupport: failed to open test database: %v", err)
	}

	db.Exec("PRAGMA foreign_keys = ON")

	if err := database.Migrate(db); err != nil {
		t.Fatalf("testsupport: failed to migrate models: %v", err)
	}

	testDBCacheMu.Lock()
	testDBCache[rootName] = db
	testDBCacheMu.Unlock()

	t.Cleanup(func() {
		testDBCacheMu.Lock()
		delete(testDBCache, rootName)
		testDBCacheMu.Unlock()
		sqlDB, err := db.DB()
		if err == nil {
			sqlDB.Close()
		}
	})

	return db
}

// SetupTestDBManager creates a test DB manager using cartridge's testsupport
func SetupTestDBManager(t *testing.T) (*TestDBManager, *slog.Logger) {
	cfg := config.GetConfig()

	if cfg.Environment != config.Test {
		t.Fatalf("CRITICAL: Tests must run in test environment! Current: %s. Set VITRINE_ENV=test", cfg.Environment)
	}

	db := SetupTestDB(t)
	return NewTestDBManager(db), GetLogger()
}

// CleanTables empties the given tables.
func CleanTables(db *gorm.DB, tables ...string) {
	db.Transaction(func(tx *gorm.DB) error {
		for _, table := range tables {
			tx.Exec("DELETE FROM " + table)
			tx.Exec("DELETE FROM sqlite_sequence WHERE name=?", table)
		}
		return nil
	})
}

// CreatePageView inserts a page view with an explicit timestamp.
func CreatePageView(t *testing.T, db *gorm.DB, path, visitorID, sessionID string, at time.Time) events.PageView {
	t.Helper()
	pv := events.PageView{
		Path:      path,
		VisitorID: visitorID,
		SessionID: sessionID,
		CreatedAt: at.UTC(),
	}
	require.NoError(t, db.Create(&pv).Error)
	return pv
}

// CreatePageViewWithAgent inserts a page view carrying a user agent.
func CreatePageViewWithAgent(t *testing.T, db *gorm.DB, path, sessionID, userAgent string, at time.Time) events.PageView {
	t.Helper()
	pv := events.PageView{
		Path:      path,
		VisitorID: "visitor-" + sessionID,
		SessionID: sessionID,
		UserAgent: &userAgent,
		CreatedAt: at.UTC(),
	}
	require.NoError(t, db.Create(&pv).Error)
	return pv
}

// CreateWhatsAppClick inserts a click with an explicit source and timestamp.
func CreateWhatsAppClick(t *testing.T, db *gorm.DB, source string, at time.Time) events.WhatsAppClick {
	t.Helper()
	click := events.WhatsAppClick{
		Source:    source,
		CreatedAt: at.UTC(),
	}
	require.NoError(t, db.Create(&click).Error)
	return click
}

// CountRows returns the number of rows in model's table.
func CountRows(t *testing.T, db *gorm.DB, model any) int64 {
	t.Helper()
	var count int64
	require.NoError(t, db.Model(model).Count(&count).Error)
	return count
}

// CreateTestUserForAuth creates a user with properly hashed password for auth testing
func CreateTestUserForAuth(t *testing.T, db *gorm.DB, email, password string) *users.User {
	t.Helper()

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)

	user := &users.User{
		Email:             email,
		EncryptedPassword: string(hashedPassword),
		CreatedAt:         time.Now().UTC(),
		UpdatedAt:         time.Now().UTC(),
	}
	require.NoError(t, db.Create(user).Error)
	return user
}

// CreateTestAdmin creates a user holding the admin role.
func CreateTestAdmin(t *testing.T, db *gorm.DB, email, password string) *users.User {
	t.Helper()
	user := CreateTestUserForAuth(t, db, email, password)
	require.NoError(t, users.GrantRole(db, user.ID, users.RoleAdmin))
	return user
}

// GetLogger returns a test logger
func GetLogger() *slog.Logger {
	handler := slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError})
	return slog.New(handler)
}

// NewTestServer builds a cartridge server wired to db, without any routes.
func NewTestServer(t *testing.T, db *gorm.DB) *cartridge.Server {
	t.Helper()

	appConfig := config.GetConfig()
	appConfig.Environment = config.Test

	cfg := cartridge.DefaultServerConfig()
	cfg.Config = appConfig
	cfg.Logger = GetLogger()
	cfg.DBManager = NewTestDBManager(db)
	cfg.StaticDirectory = appConfig.PublicDirectory
	cfg.StaticPrefix = appConfig.PublicAssetsUrlPrefix
	cfg.TemplatesDirectory = appConfig.PublicDirectory

	srv, err := cartridge.NewServer(cfg)
	require.NoError(t, err)
	return srv
}

// CreateTestApp mounts routes on a fresh test server and returns its Fiber app.
func CreateTestApp(t *testing.T, db *gorm.DB, mount func(*cartridge.Server)) *fiber.App {
	t.Helper()
	srv := NewTestServer(t, db)
	mount(srv)
	return srv.App()
}
