package reconcile

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"practice_system/internal/domain"
	"practice_system/internal/utils"
)

// Reconciler applies a roster patch to a practice owner and provisions
// one standalone account per roster entry. Collaborators are injected
// so tests can substitute doubles.
type Reconciler struct {
	store   AccountStore
	creds   CredentialIssuer
	timeout time.Duration
}

// New builds a Reconciler. A non-positive timeout disables the
// deadline on Reconcile calls.
func New(store AccountStore, creds CredentialIssuer, timeout time.Duration) *Reconciler {
	return &Reconciler{store: store, creds: creds, timeout: timeout}
}

// Reconcile loads the owner, merges the patch, saves the owner, then
// upserts one doctor account per filtered roster entry as a concurrent
// fan-out.
//
// The owner save and the fan-out are not atomic: a failure mid-fan-out
// leaves the roster saved and is reported, never rolled back. On
// partial failure Reconcile returns the saved owner together with a
// *PartialProvisionError enumerating the doctors that failed; a second
// call with the same payload is the recovery path and will not re-mint
// credentials for doctors that were already provisioned.
func (r *Reconciler) Reconcile(ctx context.Context, ownerID string, patch Patch) (*domain.Account, error) {
	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	owner, err := r.store.FindByID(ctx, ownerID)
	if err != nil {
		return nil, err
	}

	patch.applyScalars(owner)

	// One list rule for all three: nil leaves the stored value alone,
	// an empty slice clears it.
	if patch.SelectedDevices != nil {
		owner.SelectedDevices = normalizeDevices(patch.SelectedDevices, owner.SelectedDevices)
	}
	if patch.EmrProviders != nil {
		owner.EmrProviders = normalizeProviders(patch.EmrProviders)
	}

	rosterChanged := patch.Doctors != nil
	if rosterChanged {
		owner.Doctors = filterRoster(patch.Doctors)
	}

	if err := r.store.Save(ctx, owner); err != nil {
		return nil, err
	}

	if !rosterChanged {
		return owner, nil
	}

	failures := r.provisionRoster(ctx, owner)
	if len(failures) > 0 {
		return owner, &PartialProvisionError{Failures: failures}
	}
	return owner, nil
}

// provisionRoster upserts a doctor account for every entry of the
// owner's just-saved roster. Each upsert is independent: one failure
// neither aborts its siblings nor touches the saved owner.
func (r *Reconciler) provisionRoster(ctx context.Context, owner *domain.Account) []ProvisionFailure {
	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		failures []ProvisionFailure
	)
	for _, doc := range owner.Doctors {
		wg.Add(1)
		go func(doc domain.DoctorRef) {
			defer wg.Done()
			if err := r.provisionDoctor(ctx, owner, doc); err != nil {
				logrus.WithFields(logrus.Fields{
					"owner_id": owner.ID,
					"email":    doc.Email,
					"drs_id":   doc.DrsID,
					"error":    err.Error(),
				}).Error("Doctor provisioning failed")
				mu.Lock()
				failures = append(failures, ProvisionFailure{Email: doc.Email, DrsID: doc.DrsID, Err: err})
				mu.Unlock()
			}
		}(doc)
	}
	wg.Wait()
	return failures
}

// provisionDoctor builds the upsert payload for one roster entry and
// writes it by email. Credential policy: an existing hash is reused
// unchanged; only a doctor without one gets a freshly minted temporary
// credential, so repeating a reconcile never re-mails an already
// provisioned doctor.
func (r *Reconciler) provisionDoctor(ctx context.Context, owner *domain.Account, doc domain.DoctorRef) error {
	existing, err := r.store.FindByEmail(ctx, doc.Email)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return err
	}

	payload := domain.Account{
		Email:     doc.Email,
		DrsID:     doc.DrsID,
		FirstName: orUnknown(doc.FirstName),
		LastName:  orUnknown(doc.LastName),
		// Doctor accounts mirror the owner's practice data rather than
		// keeping their own.
		Practice:        owner.Practice,
		Doctors:         owner.Doctors,
		SelectedDevices: owner.SelectedDevices,
		EmrProviders:    owner.EmrProviders,
		Address:         owner.Address,
		Town:            owner.Town,
		Country:         owner.Country,
		CountryCode:     owner.CountryCode,
		Phone:           owner.Phone,
		JobTitle:        owner.JobTitle,
		Current:         true,
	}

	if existing != nil {
		payload.ID = existing.ID
		payload.Username = existing.Username
		payload.Password = existing.Password
		payload.Admin = existing.Admin
		payload.FirstTime = existing.FirstTime
	} else {
		payload.Username = localPart(doc.Email) + utils.UsernameSuffix()
		payload.Admin = false
		payload.FirstTime = true
	}

	if payload.Password == "" {
		hash, err := r.creds.IssueTemporaryCredential(ctx, doc.Email, payload.LastName, doc.DrsID)
		if err != nil {
			return err
		}
		payload.Password = hash
	}

	return r.store.UpsertByEmail(ctx, &payload)
}

func orUnknown(s string) string {
	if s == "" {
		return "Unknown"
	}
	return s
}

func localPart(email string) string {
	if at := strings.Index(email, "@"); at > 0 {
		return email[:at]
	}
	return email
}
