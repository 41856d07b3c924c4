package models

import (
	"context"
	"time"

	"bitbucket.org/mmdatafocus/revenue_backend/config"
	"bitbucket.org/mmdatafocus/revenue_backend/utils"
	"gorm.io/gorm"
)

// RevenueAdminAction is the append-only audit row for every privileged
// mutation in the engine. Automated jobs write under the reserved "system"
// actor through the same schema, so audit consumers never branch on origin.
// Metadata is a schema-less JSON document for forensic inspection only; no
// business logic parses it.
type RevenueAdminAction struct {
	ID          int             `gorm:"primary_key" json:"id"`
	AdminId     string          `gorm:"size:64;not null;index" json:"admin_id"`
	AdminName   string          `gorm:"size:100" json:"admin_name"`
	ActionType  AdminActionType `gorm:"size:30;not null;index" json:"action_type"`
	Description string          `gorm:"type:text;not null" json:"description"`
	Metadata    string          `gorm:"type:text" json:"metadata"`
	CreatedAt   time.Time       `gorm:"autoCreateTime;index" json:"created_at"`
}

// RecordAdminAction appends one audit row inside the caller's transaction.
// Actor identity comes from context; automated callers fall back to the
// system actor.
func RecordAdminAction(tx *gorm.DB, actionType AdminActionType, description string, metadata interface{}) error {
	ctx := tx.Statement.Context

	actor := utils.ActorFromContext(ctx)
	actorName := ""
	if ctx != nil {
		if name, ok := utils.GetAdminNameFromContext(ctx); ok {
			actorName = name
		}
	}

	meta := ""
	if metadata != nil {
		s, err := utils.MarshalToJSON(metadata)
		if err != nil {
			return err
		}
		meta = s
	}

	action := RevenueAdminAction{
		AdminId:     actor,
		AdminName:   actorName,
		ActionType:  actionType,
		Description: description,
		Metadata:    meta,
	}
	return tx.Create(&action).Error
}

func GetAdminActions(ctx context.Context, limit int) ([]*RevenueAdminAction, error) {
	db := config.GetDB()
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	var actions []*RevenueAdminAction
	err := db.WithContext(ctx).
		Order("created_at DESC, id DESC").
		Limit(limit).
		Find(&actions).Error
	if err != nil {
		return nil, err
	}
	return actions, nil
}
