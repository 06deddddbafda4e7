// Package sites manages deployed sites: subdomain allocation, per-tier
// deploy caps, and the badge and PWA flags.
package sites

import (
	"context"
	"regexp"
	"strings"

	"github.com/zapcodes-dev/zapcodes/internal/guard"
	"github.com/zapcodes-dev/zapcodes/internal/models"
	"github.com/zapcodes-dev/zapcodes/internal/tier"

	"gorm.io/gorm"
)

// subdomainPattern accepts lowercase letters, digits, and interior hyphens.
var subdomainPattern = regexp.MustCompile(`^[a-z0-9]([a-z0-9-]*[a-z0-9])?$`)

// reservedSubdomains can never be claimed by users.
var reservedSubdomains = map[string]bool{
	"www": true, "api": true, "admin": true, "app": true, "mail": true,
	"ftp": true, "blog": true, "docs": true, "status": true, "cdn": true,
	"static": true, "assets": true, "help": true, "support": true,
	"billing": true, "dashboard": true, "zapcodes": true,
}

const (
	minSubdomainLen = 3
	maxSubdomainLen = 63
)

// Service manages sites.
type Service struct {
	db    *gorm.DB
	guard *guard.Service
}

// NewService constructs a sites Service.
func NewService(db *gorm.DB, guardSvc *guard.Service) *Service {
	return &Service{db: db, guard: guardSvc}
}

// ValidateSubdomain normalizes and validates a requested subdomain.
func ValidateSubdomain(raw string) (string, error) {
	subdomain := strings.ToLower(strings.TrimSpace(raw))
	switch {
	case len(subdomain) < minSubdomainLen:
		return "", &InvalidSubdomainError{Subdomain: subdomain, Reason: "too short"}
	case len(subdomain) > maxSubdomainLen:
		return "", &InvalidSubdomainError{Subdomain: subdomain, Reason: "too long"}
	case !subdomainPattern.MatchString(subdomain):
		return "", &InvalidSubdomainError{Subdomain: subdomain, Reason: "only lowercase letters, digits, and interior hyphens are allowed"}
	case reservedSubdomains[subdomain]:
		return "", &InvalidSubdomainError{Subdomain: subdomain, Reason: "reserved"}
	}
	return subdomain, nil
}

// Deploy creates a site on a fresh subdomain, enforcing the plan's site cap.
func (s *Service) Deploy(ctx context.Context, user *models.User, rawSubdomain, title string) (*models.Site, error) {
	subdomain, errValidate := ValidateSubdomain(rawSubdomain)
	if errValidate != nil {
		return nil, errValidate
	}
	title = strings.TrimSpace(title)
	if title == "" {
		title = subdomain
	}

	site := &models.Site{UserID: user.ID, Subdomain: subdomain, Title: title, ShowBadge: true}
	errTx := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var taken int64
		if errCount := tx.Model(&models.Site{}).Where("subdomain = ?", subdomain).Count(&taken).Error; errCount != nil {
			return errCount
		}
		if taken > 0 {
			return &SubdomainTakenError{Subdomain: subdomain}
		}

		if !user.Role.BypassesLimits() {
			caps := tier.Resolve(user.Plan)
			var owned int64
			if errCount := tx.Model(&models.Site{}).Where("user_id = ?", user.ID).Count(&owned).Error; errCount != nil {
				return errCount
			}
			if !caps.MaxSites.Allows(int(owned)) {
				return &SiteLimitReachedError{Cap: caps.MaxSites, Used: int(owned)}
			}
		}

		return tx.Create(site).Error
	})
	if errTx != nil {
		return nil, errTx
	}
	return site, nil
}

// List returns the user's sites, newest first.
func (s *Service) List(ctx context.Context, userID uint64) ([]models.Site, error) {
	var rows []models.Site
	errFind := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("id DESC").
		Find(&rows).Error
	if errFind != nil {
		return nil, errFind
	}
	return rows, nil
}

// Get returns one site owned by the user.
func (s *Service) Get(ctx context.Context, userID, siteID uint64) (*models.Site, error) {
	var site models.Site
	errFind := s.db.WithContext(ctx).
		Where("id = ? AND user_id = ?", siteID, userID).
		First(&site).Error
	if errFind != nil {
		if errFind == gorm.ErrRecordNotFound {
			return nil, ErrNotFound
		}
		return nil, errFind
	}
	return &site, nil
}

// HideBadge hides the hosted badge on a site. The removal is a paid,
// tier-gated action; restoring the badge is free.
func (s *Service) HideBadge(ctx context.Context, user *models.User, siteID uint64) (*models.Site, guard.Outcome, error) {
	site, errGet := s.Get(ctx, user.ID, siteID)
	if errGet != nil {
		return nil, guard.Outcome{}, errGet
	}
	if !site.ShowBadge {
		return site, guard.Outcome{}, nil
	}
	if errFeature := guard.RequireFeature(user, guard.FeatureBadgeRemoval); errFeature != nil {
		return nil, guard.Outcome{}, errFeature
	}

	outcome, errRun := s.guard.Run(ctx, user, tier.ActionBadgeRemoval, func(ctx context.Context) error {
		return s.db.WithContext(ctx).Model(site).Update("show_badge", false).Error
	})
	if errRun != nil {
		return nil, guard.Outcome{}, errRun
	}
	site.ShowBadge = false
	return site, outcome, nil
}

// ShowBadge restores the hosted badge on a site.
func (s *Service) ShowBadge(ctx context.Context, user *models.User, siteID uint64) (*models.Site, error) {
	site, errGet := s.Get(ctx, user.ID, siteID)
	if errGet != nil {
		return nil, errGet
	}
	if site.ShowBadge {
		return site, nil
	}
	if errUpdate := s.db.WithContext(ctx).Model(site).Update("show_badge", true).Error; errUpdate != nil {
		return nil, errUpdate
	}
	site.ShowBadge = true
	return site, nil
}

// EnablePWA rebuilds a site as an installable PWA. Paid and tier-gated.
func (s *Service) EnablePWA(ctx context.Context, user *models.User, siteID uint64) (*models.Site, guard.Outcome, error) {
	site, errGet := s.Get(ctx, user.ID, siteID)
	if errGet != nil {
		return nil, guard.Outcome{}, errGet
	}
	if site.PWA {
		return site, guard.Outcome{}, nil
	}
	if errFeature := guard.RequireFeature(user, guard.FeaturePWA); errFeature != nil {
		return nil, guard.Outcome{}, errFeature
	}

	outcome, errRun := s.guard.Run(ctx, user, tier.ActionPWABuild, func(ctx context.Context) error {
		return s.db.WithContext(ctx).Model(site).Update("pwa", true).Error
	})
	if errRun != nil {
		return nil, guard.Outcome{}, errRun
	}
	site.PWA = true
	return site, outcome, nil
}

// Delete removes a site owned by the user.
func (s *Service) Delete(ctx context.Context, userID, siteID uint64) error {
	result := s.db.WithContext(ctx).
		Where("id = ? AND user_id = ?", siteID, userID).
		Delete(&models.Site{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
