// Package seeder fills a database with plausible sample traffic for local development.
package seeder

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"time"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/google/uuid"
	"github.com/karloscodes/cartridge"
	"github.com/karloscodes/cartridge/sqlite"
	"gorm.io/gorm"

	"vitrine/internal/events"
	"vitrine/internal/leads"
	"vitrine/internal/users"
)

const (
	defaultAdminEmail    = "admin@vitrine.local"
	defaultAdminPassword = "password123"
	batchSize            = 500
	seedDays             = 90
	clickChance          = 0.15
	leadChance           = 0.04
)

var journeyTemplates = [][]string{
	{"/"},
	{"/", "/servicos"},
	{"/", "/servicos", "/servicos/branding", "/contato"},
	{"/", "/portfolio", "/portfolio/cafe-aurora"},
	{"/blog", "/blog/como-escolher-uma-agencia"},
	{"/", "/sobre", "/equipe"},
	{"/portfolio", "/portfolio/loja-verde", "/contato"},
	{"/servicos/sites", "/orcamento"},
}

var clickSources = []string{"hero", "floating_button", "footer", "contact_page", "portfolio"}

var userAgents = []string{
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.1 Safari/605.1.15",
	"Mozilla/5.0 (iPhone; CPU iPhone OS 17_1 like Mac OS X) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.1 Mobile/15E148 Safari/604.1",
	"Mozilla/5.0 (Linux; Android 14; Pixel 8) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Mobile Safari/537.36",
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64; rv:121.0) Gecko/20100101 Firefox/121.0",
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36 Edg/120.0.0.0",
}

var referrers = []string{
	"",
	"",
	"https://www.google.com/",
	"https://www.instagram.com/",
	"https://www.facebook.com/",
	"https://www.linkedin.com/",
	"https://duckduckgo.com/",
}

var services = []string{"Branding", "Sites", "Social media", "Tráfego pago", "Fotografia"}

// Seeder generates sessions, WhatsApp clicks and leads.
type Seeder struct {
	DBManager cartridge.DBManager
	Logger    *slog.Logger
	Sessions  int
	Now       func() time.Time
}

// NewSeeder creates a new seeder instance
func NewSeeder(dbManager cartridge.DBManager, logger *slog.Logger, sessions int) *Seeder {
	if logger == nil {
		logger = slog.Default()
	}
	return &Seeder{
		DBManager: dbManager,
		Logger:    logger,
		Sessions:  sessions,
		Now:       time.Now,
	}
}

// Stats counts the rows created by Run.
type Stats struct {
	PageViews      int
	WhatsAppClicks int
	Leads          int
}

// Run creates the development admin user and the sample traffic.
func (s *Seeder) Run(ctx context.Context) (Stats, error) {
	start := time.Now()
	s.Logger.Info("Seeding database...", slog.Int("sessions", s.Sessions))

	db := s.DBManager.GetConnection()

	if err := s.seedUser(db); err != nil {
		return Stats{}, err
	}

	pageViews, clicks, leadRows := s.generate()
	stats := Stats{PageViews: len(pageViews), WhatsAppClicks: len(clicks), Leads: len(leadRows)}

	err := sqlite.PerformWrite(s.Logger, db.WithContext(ctx), func(tx *gorm.DB) error {
		if len(pageViews) > 0 {
			if err := tx.CreateInBatches(pageViews, batchSize).Error; err != nil {
				return fmt.Errorf("failed to insert page views: %w", err)
			}
		}
		if len(clicks) > 0 {
			if err := tx.CreateInBatches(clicks, batchSize).Error; err != nil {
				return fmt.Errorf("failed to insert whatsapp clicks: %w", err)
			}
		}
		if len(leadRows) > 0 {
			if err := tx.CreateInBatches(leadRows, batchSize).Error; err != nil {
				return fmt.Errorf("failed to insert leads: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return Stats{}, err
	}

	s.Logger.Info("Seeding completed",
		slog.Int("page_views", stats.PageViews),
		slog.Int("whatsapp_clicks", stats.WhatsAppClicks),
		slog.Int("leads", stats.Leads),
		slog.Duration("elapsed", time.Since(start)))
	return stats, nil
}

func (s *Seeder) seedUser(db *gorm.DB) error {
	_, err := users.CreateAdminUser(db, defaultAdminEmail, defaultAdminPassword)
	if errors.Is(err, users.ErrUserExists) {
		s.Logger.Info("Admin user already exists", slog.String("email", defaultAdminEmail))
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to create admin user: %w", err)
	}
	s.Logger.Info("Created admin user", slog.String("email", defaultAdminEmail))
	return nil
}

// generate builds the rows for every session without touching the database.
// A session walks one journey; visitors return for a second session now and then.
func (s *Seeder) generate() ([]events.PageView, []events.WhatsAppClick, []leads.Lead) {
	now := s.Now().UTC()
	var (
		pageViews []events.PageView
		clicks    []events.WhatsAppClick
		leadRows  []leads.Lead
		visitors  []string
	)

	for i := 0; i < s.Sessions; i++ {
		visitorID := uuid.NewString()
		if len(visitors) > 0 && rand.IntN(4) == 0 {
			visitorID = visitors[rand.IntN(len(visitors))]
		} else {
			visitors = append(visitors, visitorID)
		}
		sessionID := uuid.NewString()

		journey := journeyTemplates[rand.IntN(len(journeyTemplates))]
		userAgent := userAgents[rand.IntN(len(userAgents))]
		referrer := referrers[rand.IntN(len(referrers))]
		at := now.Add(-time.Duration(rand.IntN(seedDays*24*60*60)) * time.Second)

		for step, path := range journey {
			pv := events.PageView{
				Path:      path,
				UserAgent: &userAgent,
				VisitorID: visitorID,
				SessionID: sessionID,
				CreatedAt: at,
			}
			if step == 0 && referrer != "" {
				ref := referrer
				pv.Referrer = &ref
			}
			pageViews = append(pageViews, pv)
			at = at.Add(time.Duration(rand.IntN(110)+10) * time.Second)
		}

		if rand.Float64() < clickChance {
			pagePath := journey[len(journey)-1]
			vid, sid := visitorID, sessionID
			clicks = append(clicks, events.WhatsAppClick{
				Source:    clickSources[rand.IntN(len(clickSources))],
				VisitorID: &vid,
				SessionID: &sid,
				PagePath:  &pagePath,
				CreatedAt: at,
			})
		}

		if rand.Float64() < leadChance {
			leadRows = append(leadRows, fakeLead(at))
		}
	}

	return pageViews, clicks, leadRows
}

func fakeLead(at time.Time) leads.Lead {
	phone := gofakeit.Phone()
	organization := gofakeit.Company()
	service := services[rand.IntN(len(services))]
	message := gofakeit.Sentence(12)

	return leads.Lead{
		Name:         gofakeit.Name(),
		Email:        gofakeit.Email(),
		Phone:        &phone,
		Organization: &organization,
		Service:      &service,
		Message:      &message,
		Status:       leads.StatusNew,
		CreatedAt:    at,
		UpdatedAt:    at,
	}
}
