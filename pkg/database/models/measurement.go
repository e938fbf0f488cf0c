package models

import (
	"encoding/hex"

	"github.com/google/uuid"
	"golang.org/x/crypto/blake2b"
	"gorm.io/gorm"
)

func init() {
	registerForAutomigration(&Measurement{})
}

// Measurement is one analysed frame of an acquisition session.
type Measurement struct {
	gorm.Model
	UUID          string
	SessionUUID   string `gorm:"index"`
	CameraID      string
	FrameID       uint64
	Status        string
	Width         int
	Height        int
	PixelFormat   string
	Sum           float64
	Average       float64
	OpticalPower  float64
	ExposureTime  float64
	Gain          float64
	PayloadDigest string
}

func (m *Measurement) BeforeCreate(tx *gorm.DB) error {
	if len(m.UUID) == 0 {
		m.UUID = uuid.NewString()
	}
	return nil
}

// Digest hashes a frame payload so repeated frames can be spotted.
func Digest(payload []byte) string {
	sum := blake2b.Sum256(payload)
	return hex.EncodeToString(sum[:])
}
