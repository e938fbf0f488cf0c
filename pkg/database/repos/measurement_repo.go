package repos

import (
	"github.com/tauraamui/framegrab/pkg/database/dbconn"
	"github.com/tauraamui/framegrab/pkg/database/models"
	"github.com/tauraamui/xerror"
)

type MeasurementRepository struct {
	DB dbconn.GormWrapper
}

func (r *MeasurementRepository) Create(m *models.Measurement) error {
	return r.DB.Create(m).Error()
}

func (r *MeasurementRepository) FindByUUID(uuid string) (models.Measurement, error) {
	m := models.Measurement{}
	if err := r.DB.Where("uuid = ?", uuid).First(&m).Error(); err != nil {
		return m, xerror.Errorf("measurement of uuid %s not found", uuid)
	}

	return m, nil
}

// FindBySession returns a session's measurements in frame order.
func (r *MeasurementRepository) FindBySession(sessionUUID string) ([]models.Measurement, error) {
	measurements := []models.Measurement{}
	if err := r.DB.Where("session_uuid = ?", sessionUUID).Order("frame_id").Find(&measurements).Error(); err != nil {
		return nil, xerror.Errorf("unable to find measurements of session %s: %w", sessionUUID, err)
	}

	return measurements, nil
}
