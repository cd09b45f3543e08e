// Package seed bootstraps reference data: the role catalog and, when
// configured, a default country. Seeding is idempotent and safe to run on
// every startup.
package seed

import (
	"context"
	"errors"
	"strings"

	"github.com/bwmarrin/snowflake"
	tenantdomain "github.com/smallbiznis/fieldtrack/internal/tenant/domain"
	"gorm.io/gorm"
)

var catalog = []tenantdomain.RoleName{
	tenantdomain.RoleCountryManager,
	tenantdomain.RoleProjectCoordinator,
	tenantdomain.RoleTeamLead,
	tenantdomain.RoleFieldTeam,
	tenantdomain.RoleEmployee,
}

// EnsureRoleCatalog creates any missing catalog roles.
func EnsureRoleCatalog(db *gorm.DB, node *snowflake.Node) error {
	if db == nil {
		return errors.New("seed database handle is required")
	}

	ctx := context.Background()
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, name := range catalog {
			var existing tenantdomain.Role
			err := tx.First(&existing, "name = ?", name).Error
			if err == nil {
				continue
			}
			if !errors.Is(err, gorm.ErrRecordNotFound) {
				return err
			}
			role := tenantdomain.Role{ID: node.Generate(), Name: name}
			if err := tx.Create(&role).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

// EnsureCountry creates the country if no row with its code exists.
func EnsureCountry(db *gorm.DB, node *snowflake.Node, code, name string) error {
	if db == nil {
		return errors.New("seed database handle is required")
	}
	code = strings.ToUpper(strings.TrimSpace(code))
	if code == "" || strings.TrimSpace(name) == "" {
		return errors.New("seed country requires code and name")
	}

	ctx := context.Background()
	var existing tenantdomain.Country
	err := db.WithContext(ctx).First(&existing, "code = ?", code).Error
	if err == nil {
		return nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}

	country := tenantdomain.Country{
		ID:       node.Generate(),
		Name:     strings.TrimSpace(name),
		Code:     code,
		IsActive: true,
	}
	return db.WithContext(ctx).Create(&country).Error
}
