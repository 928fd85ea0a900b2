package reconcile

import (
	"practice_system/internal/domain"
	"practice_system/internal/utils"
)

// Patch is the allow-listed profile update an owner submits. Scalar
// fields are pointers so that an omitted field is left untouched while
// an explicitly sent zero value ("" or false) still overwrites. List
// fields follow one rule: nil means unchanged, empty slice means
// clear.
//
// Email, drsId, the admin flag and the password hash are deliberately
// not patchable through this path.
type Patch struct {
	Username    *string `json:"username"`
	Practice    *string `json:"practice"`
	Address     *string `json:"address"`
	Town        *string `json:"town"`
	Country     *string `json:"country"`
	CountryCode *string `json:"countryCode"`
	Phone       *string `json:"phone"`
	FirstName   *string `json:"firstName"`
	LastName    *string `json:"lastName"`
	JobTitle    *string `json:"jobTitle"`
	Current     *bool   `json:"current"`
	FirstTime   *bool   `json:"firstTime"`

	Doctors         []domain.DoctorRef         `json:"doctors"`
	SelectedDevices []domain.DeviceSelection   `json:"selectedDevices"`
	EmrProviders    []domain.EmrProviderConfig `json:"emrProviders"`
}

// applyScalars copies every present scalar field onto the owner.
func (p *Patch) applyScalars(owner *domain.Account) {
	if p.Username != nil {
		owner.Username = *p.Username
	}
	if p.Practice != nil {
		owner.Practice = *p.Practice
	}
	if p.Address != nil {
		owner.Address = *p.Address
	}
	if p.Town != nil {
		owner.Town = *p.Town
	}
	if p.Country != nil {
		owner.Country = *p.Country
	}
	if p.CountryCode != nil {
		owner.CountryCode = *p.CountryCode
	}
	if p.Phone != nil {
		owner.Phone = *p.Phone
	}
	if p.FirstName != nil {
		owner.FirstName = *p.FirstName
	}
	if p.LastName != nil {
		owner.LastName = *p.LastName
	}
	if p.JobTitle != nil {
		owner.JobTitle = *p.JobTitle
	}
	if p.Current != nil {
		owner.Current = *p.Current
	}
	if p.FirstTime != nil {
		owner.FirstTime = *p.FirstTime
	}
}

// normalizeDevices builds the replacement device list. A device
// arriving without an id inherits the one already stored for the same
// manufacturer and model, so minted ids survive callers that resend
// devices without them; only a genuinely new device gets an id minted
// as <manufacturer>-<device>-<RANDOM8>. Format defaults to GDT.
func normalizeDevices(devices, existing []domain.DeviceSelection) []domain.DeviceSelection {
	out := make([]domain.DeviceSelection, len(devices))
	for i, d := range devices {
		if d.DeviceID == "" {
			d.DeviceID = storedDeviceID(existing, d)
		}
		if d.DeviceID == "" {
			d.DeviceID = d.Manufacturer + "-" + d.Device + "-" + utils.DeviceIDSuffix()
		}
		if d.Format == "" {
			d.Format = "GDT"
		}
		out[i] = d
	}
	return out
}

func storedDeviceID(existing []domain.DeviceSelection, d domain.DeviceSelection) string {
	for _, e := range existing {
		if e.Manufacturer == d.Manufacturer && e.Device == d.Device {
			return e.DeviceID
		}
	}
	return ""
}

// normalizeProviders builds the replacement EMR provider list with
// Unknown defaults for the name and format fields. Folder paths stay
// empty when unset.
func normalizeProviders(providers []domain.EmrProviderConfig) []domain.EmrProviderConfig {
	out := make([]domain.EmrProviderConfig, len(providers))
	for i, p := range providers {
		if p.Name == "" {
			p.Name = "Unknown"
		}
		if p.IncomingFormat == "" {
			p.IncomingFormat = "Unknown"
		}
		if p.OutgoingFormat == "" {
			p.OutgoingFormat = "Unknown"
		}
		out[i] = p
	}
	return out
}

// filterRoster keeps only entries that can back a standalone doctor
// account: both drsId and email must be present. Everything else is
// dropped from the stored roster and never reaches provisioning.
func filterRoster(doctors []domain.DoctorRef) []domain.DoctorRef {
	out := make([]domain.DoctorRef, 0, len(doctors))
	for _, d := range doctors {
		if d.DrsID == "" || d.Email == "" {
			continue
		}
		out = append(out, d)
	}
	return out
}
