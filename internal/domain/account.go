package domain

import (
	"github.com/google/uuid" // UUID primary keys
	"gorm.io/gorm"           // GORM ORM library
)

// DoctorRef is one roster entry embedded in a practice owner's Account.
// It is only actionable when both Email and DrsID are present.
type DoctorRef struct {
	FirstName string `json:"firstName"` // Doctor first name
	LastName  string `json:"lastName"`  // Doctor last name
	DrsID     string `json:"drsId"`     // External doctor identifier
	Email     string `json:"email"`     // Doctor email
}

// DeviceSelection is one configured medical device. The device id is
// minted once at first save and stable afterwards.
type DeviceSelection struct {
	Manufacturer string `json:"manufacturer"` // Device manufacturer
	Device       string `json:"device"`       // Device model
	DeviceID     string `json:"deviceId"`     // Generated identifier, stable once set
	Format       string `json:"format"`       // Data format tag, defaults to GDT
}

// EmrProviderConfig describes one external EMR integration endpoint.
type EmrProviderConfig struct {
	Name           string `json:"name"`           // Provider name
	IncomingFormat string `json:"incomingFormat"` // Format of inbound data
	OutgoingFormat string `json:"outgoingFormat"` // Format of outbound data
	InputFolder    string `json:"inputFolder"`    // Inbound folder path
	OutputFolder   string `json:"outputFolder"`   // Outbound folder path
}

// Account Model. One login-capable identity: a practice owner
// (Admin set) or an associated doctor account.
type Account struct {
	ID              string              `gorm:"type:char(36);primaryKey" json:"id"`          // Primary key
	Username        string              `gorm:"uniqueIndex;not null" json:"username"`        // Unique username
	Email           string              `gorm:"uniqueIndex;not null" json:"email"`           // Unique email
	Password        string              `gorm:"not null" json:"-"`                           // Hashed password, never serialized
	DrsID           string              `gorm:"column:drs_id;uniqueIndex;not null" json:"drsId"` // Unique external doctor identifier
	Practice        string              `gorm:"not null" json:"practice"`                    // Practice name
	Address         string              `gorm:"default:''" json:"address"`                   // Street address
	Town            string              `gorm:"default:''" json:"town"`                      // Town
	Country         string              `gorm:"default:''" json:"country"`                   // Country
	CountryCode     string              `gorm:"default:''" json:"countryCode"`               // Phone country code
	Phone           string              `gorm:"default:''" json:"phone"`                     // Phone number
	FirstName       string              `gorm:"default:''" json:"firstName"`                 // First name
	LastName        string              `gorm:"default:''" json:"lastName"`                  // Last name
	JobTitle        string              `gorm:"default:''" json:"jobTitle"`                  // Job title
	Admin           bool                `gorm:"not null;default:false" json:"admin"`         // Practice-owner flag
	Current         bool                `gorm:"not null;default:false" json:"current"`       // Subscription-active flag
	FirstTime       bool                `gorm:"not null;default:true" json:"firstTime"`      // First-login flag
	Doctors         []DoctorRef         `gorm:"serializer:json" json:"doctors"`              // Practice roster
	SelectedDevices []DeviceSelection   `gorm:"serializer:json" json:"selectedDevices"`      // Configured devices
	EmrProviders    []EmrProviderConfig `gorm:"serializer:json" json:"emrProviders"`         // EMR integrations
}

// BeforeCreate assigns a UUID primary key when none was supplied
func (a *Account) BeforeCreate(tx *gorm.DB) error {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	return nil
}

// AfterFind normalizes absent embedded lists to empty slices so API
// responses always carry arrays, never null
func (a *Account) AfterFind(tx *gorm.DB) error {
	if a.Doctors == nil {
		a.Doctors = []DoctorRef{}
	}
	if a.SelectedDevices == nil {
		a.SelectedDevices = []DeviceSelection{}
	}
	if a.EmrProviders == nil {
		a.EmrProviders = []EmrProviderConfig{}
	}
	return nil
}
