package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

type Company struct {
	ID        snowflake.ID `gorm:"primaryKey" json:"id"`
	Name      string       `gorm:"not null" json:"name"`
	CreatedAt time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
}

type Team struct {
	ID            snowflake.ID `gorm:"primaryKey" json:"id"`
	CompanyID     snowflake.ID `gorm:"not null;index;uniqueIndex:ux_teams_company_name" json:"company_id"`
	Name          string       `gorm:"not null;uniqueIndex:ux_teams_company_name" json:"name"`
	IsCompanyWide bool         `gorm:"not null;default:false" json:"is_company_wide"`
	CreatedAt     time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
}

// HierarchyLevel ranks members of a team. Lower level_number means more
// senior: 1 is the top of the tree.
type HierarchyLevel struct {
	ID          snowflake.ID `gorm:"primaryKey" json:"id"`
	CompanyID   snowflake.ID `gorm:"not null;index;uniqueIndex:ux_hierarchy_levels_team_level" json:"company_id"`
	TeamID      snowflake.ID `gorm:"not null;index;uniqueIndex:ux_hierarchy_levels_team_level" json:"team_id"`
	LevelNumber int          `gorm:"not null;uniqueIndex:ux_hierarchy_levels_team_level" json:"level_number"`
	LevelName   string       `gorm:"not null" json:"level_name"`
}

type User struct {
	ID               snowflake.ID `gorm:"primaryKey" json:"id"`
	CompanyID        snowflake.ID `gorm:"not null;index;uniqueIndex:ux_users_company_email" json:"company_id"`
	TeamID           snowflake.ID `gorm:"not null;index" json:"team_id"`
	Email            string       `gorm:"not null;uniqueIndex:ux_users_company_email" json:"email"`
	Name             string       `gorm:"not null" json:"name"`
	HierarchyLevelID snowflake.ID `gorm:"not null;index" json:"hierarchy_level_id"`
	Active           bool         `gorm:"not null;default:true" json:"active"`
	CreatedAt        time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
}
