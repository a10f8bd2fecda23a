package grouporder

import (
	"encoding/json"
	"time"

	"gorm.io/datatypes"
)

// Record is the persisted row: a versioned JSON document keyed by session id.
// Status and version are lifted into columns so guards can run in SQL.
type Record struct {
	SessionID    string         `gorm:"column:session_id;type:varchar(64);primaryKey" json:"session_id"`
	RestaurantID string         `gorm:"column:restaurant_id;type:varchar(64);not null;index" json:"restaurant_id"`
	CreatedBy    string         `gorm:"column:created_by;type:varchar(64);not null;index" json:"created_by"`
	Status       string         `gorm:"column:status;type:varchar(16);not null;index" json:"status"`
	Version      int            `gorm:"column:version;not null;default:0" json:"version"`
	Document     datatypes.JSON `gorm:"column:document;type:jsonb;not null" json:"document"`
	CreatedAt    time.Time      `gorm:"not null;default:current_timestamp" json:"created_at"`
	UpdatedAt    time.Time      `gorm:"not null;default:current_timestamp" json:"updated_at"`
}

func (Record) TableName() string { return "group_order" }

// ToRecord serializes the aggregate into its row form.
func ToRecord(o *GroupOrder) (*Record, error) {
	doc, err := json.Marshal(o)
	if err != nil {
		return nil, err
	}
	return &Record{
		SessionID:    o.SessionID,
		RestaurantID: o.RestaurantID,
		CreatedBy:    o.CreatedBy,
		Status:       string(o.Status),
		Version:      o.Version,
		Document:     datatypes.JSON(doc),
		CreatedAt:    o.CreatedAt,
		UpdatedAt:    o.UpdatedAt,
	}, nil
}

// FromRecord decodes the document. Column values win over the document for
// status and version.
func FromRecord(r *Record) (*GroupOrder, error) {
	var o GroupOrder
	if len(r.Document) > 0 {
		if err := json.Unmarshal(r.Document, &o); err != nil {
			return nil, err
		}
	}
	o.SessionID = r.SessionID
	o.RestaurantID = r.RestaurantID
	o.CreatedBy = r.CreatedBy
	o.Status = Status(r.Status)
	o.Version = r.Version
	o.CreatedAt = r.CreatedAt
	o.UpdatedAt = r.UpdatedAt
	return &o, nil
}
