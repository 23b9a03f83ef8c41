package services

import (
	"fmt"
	"strings"

	"gorm.io/gorm"

	"case_track_app_go/models"
)

// DeviceService maintains the append-only device registry. Tokens are never
// removed or replaced on this path; cleanup of stale tokens is a separate
// policy decision.
type DeviceService struct {
	DB *gorm.DB
}

func NewDeviceService(db *gorm.DB) *DeviceService {
	return &DeviceService{DB: db}
}

// RegisterAttorneyDevice records a push endpoint token for an attorney.
// The row is created lazily on first registration; re-registering a known
// token is a no-op.
func (s *DeviceService) RegisterAttorneyDevice(userID, deviceID string) error {
	deviceID = strings.TrimSpace(deviceID)
	if deviceID == "" {
		return &ValidationError{Field: "device_id", Message: "is required"}
	}

	var record models.AttorneyDevice
	err := s.DB.Where("user_id = ?", userID).First(&record).Error
	if err == gorm.ErrRecordNotFound {
		record = models.AttorneyDevice{UserID: userID, DeviceIDs: models.DeviceIDList{deviceID}}
		if err := s.DB.Create(&record).Error; err != nil {
			return fmt.Errorf("failed to create attorney device record: %w", err)
		}
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to load attorney device record: %w", err)
	}

	if record.DeviceIDs.Has(deviceID) {
		return nil
	}
	record.DeviceIDs = append(record.DeviceIDs, deviceID)
	if err := s.DB.Model(&record).Update("device_ids", record.DeviceIDs).Error; err != nil {
		return fmt.Errorf("failed to append attorney device token: %w", err)
	}
	return nil
}

// RegisterClientDevice records a push endpoint token under a client access
// code, with the same lazy-create and set semantics.
func (s *DeviceService) RegisterClientDevice(clientCode, deviceID string) error {
	clientCode = strings.TrimSpace(clientCode)
	deviceID = strings.TrimSpace(deviceID)
	if clientCode == "" {
		return &ValidationError{Field: "client_code", Message: "is required"}
	}
	if deviceID == "" {
		return &ValidationError{Field: "device_id", Message: "is required"}
	}

	var record models.ClientDevice
	err := s.DB.Where("client_code = ?", clientCode).First(&record).Error
	if err == gorm.ErrRecordNotFound {
		record = models.ClientDevice{ClientCode: clientCode, DeviceIDs: models.DeviceIDList{deviceID}}
		if err := s.DB.Create(&record).Error; err != nil {
			return fmt.Errorf("failed to create client device record: %w", err)
		}
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to load client device record: %w", err)
	}

	if record.DeviceIDs.Has(deviceID) {
		return nil
	}
	record.DeviceIDs = append(record.DeviceIDs, deviceID)
	if err := s.DB.Model(&record).Update("device_ids", record.DeviceIDs).Error; err != nil {
		return fmt.Errorf("failed to append client device token: %w", err)
	}
	return nil
}
