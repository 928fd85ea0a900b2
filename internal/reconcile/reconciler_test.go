package reconcile

import (
	"context"
	"errors"
	"regexp"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"practice_system/internal/domain"
)

func testOwner() *domain.Account {
	return &domain.Account{
		ID:        "owner-1",
		Username:  "drowner",
		Email:     "o@x.com",
		Password:  "owner-hash",
		DrsID:     "D-OWNER",
		Practice:  "Main Street Practice",
		Address:   "1 Main St",
		Town:      "Ghent",
		Country:   "Belgium",
		Phone:     "123456",
		Admin:     true,
		Current:   true,
		FirstTime: false,
	}
}

func strPtr(s string) *string { return &s }
func boolPtr(b bool) *bool    { return &b }

func TestReconcileOwnerNotFound(t *testing.T) {
	store := NewMemoryAccountStore()
	rec := New(store, &MockCredentialIssuer{}, time.Second)

	_, err := rec.Reconcile(context.Background(), "missing", Patch{})

	assert.ErrorIs(t, err, ErrNotFound)
	assert.EqualValues(t, 0, store.SaveCallCount, "no partial effects on missing owner")
}

func TestReconcileProvisionsNewDoctor(t *testing.T) {
	store := NewMemoryAccountStore(testOwner())
	issuer := &MockCredentialIssuer{}
	rec := New(store, issuer, time.Second)

	owner, err := rec.Reconcile(context.Background(), "owner-1", Patch{
		Doctors: []domain.DoctorRef{
			{FirstName: "A", LastName: "B", DrsID: "D1", Email: "a@x.com"},
		},
	})

	assert.NoError(t, err)
	assert.Equal(t, []domain.DoctorRef{{FirstName: "A", LastName: "B", DrsID: "D1", Email: "a@x.com"}}, owner.Doctors)

	doc := store.AccountByEmail("a@x.com")
	if assert.NotNil(t, doc, "doctor account must be created") {
		assert.False(t, doc.Admin)
		assert.True(t, doc.FirstTime)
		assert.True(t, doc.Current)
		assert.NotEmpty(t, doc.Password)
		assert.Equal(t, "D1", doc.DrsID)
		assert.Equal(t, owner.Practice, doc.Practice)
		assert.Regexp(t, regexp.MustCompile(`^a\d{9}$`), doc.Username, "username is local part plus 9 digits")
	}
	assert.EqualValues(t, 1, issuer.IssueCallCount)
}

func TestReconcileIdempotent(t *testing.T) {
	store := NewMemoryAccountStore(testOwner())
	issuer := &MockCredentialIssuer{}
	rec := New(store, issuer, time.Second)

	patch := Patch{
		Doctors: []domain.DoctorRef{
			{FirstName: "A", LastName: "B", DrsID: "D1", Email: "a@x.com"},
		},
	}

	first, err := rec.Reconcile(context.Background(), "owner-1", patch)
	assert.NoError(t, err)
	hashAfterFirst := store.AccountByEmail("a@x.com").Password
	usernameAfterFirst := store.AccountByEmail("a@x.com").Username

	second, err := rec.Reconcile(context.Background(), "owner-1", patch)
	assert.NoError(t, err)

	assert.Equal(t, first.Doctors, second.Doctors)
	assert.EqualValues(t, 1, issuer.IssueCallCount, "no credential re-issued on the second call")
	assert.Equal(t, hashAfterFirst, store.AccountByEmail("a@x.com").Password, "existing hash reused unchanged")
	assert.Equal(t, usernameAfterFirst, store.AccountByEmail("a@x.com").Username, "synthesized username preserved")
}

func TestReconcileFiltersIncompleteEntries(t *testing.T) {
	store := NewMemoryAccountStore(testOwner())
	issuer := &MockCredentialIssuer{}
	rec := New(store, issuer, time.Second)

	owner, err := rec.Reconcile(context.Background(), "owner-1", Patch{
		Doctors: []domain.DoctorRef{
			{FirstName: "NoMail", LastName: "X", DrsID: "D2"},
			{FirstName: "NoID", LastName: "Y", Email: "y@x.com"},
			{FirstName: "OK", LastName: "Z", DrsID: "D3", Email: "z@x.com"},
		},
	})

	assert.NoError(t, err)
	assert.Len(t, owner.Doctors, 1, "incomplete entries dropped from the roster")
	assert.Equal(t, "D3", owner.Doctors[0].DrsID)
	assert.Nil(t, store.AccountByEmail("y@x.com"), "entry without drsId never provisioned")
	assert.EqualValues(t, 1, issuer.IssueCallCount, "only the complete entry reaches the fan-out")
}

func TestReconcileEmptyRosterClearsWithoutDeletingAccounts(t *testing.T) {
	store := NewMemoryAccountStore(testOwner())
	rec := New(store, &MockCredentialIssuer{}, time.Second)

	_, err := rec.Reconcile(context.Background(), "owner-1", Patch{
		Doctors: []domain.DoctorRef{{FirstName: "A", LastName: "B", DrsID: "D1", Email: "a@x.com"}},
	})
	assert.NoError(t, err)
	assert.NotNil(t, store.AccountByEmail("a@x.com"))

	owner, err := rec.Reconcile(context.Background(), "owner-1", Patch{
		Doctors: []domain.DoctorRef{},
	})

	assert.NoError(t, err)
	assert.Empty(t, owner.Doctors, "empty slice clears the roster")
	assert.NotNil(t, store.AccountByEmail("a@x.com"), "provisioned account survives roster removal")
}

func TestReconcileNilListsLeaveStoredValues(t *testing.T) {
	seed := testOwner()
	seed.Doctors = []domain.DoctorRef{{FirstName: "A", LastName: "B", DrsID: "D1", Email: "a@x.com"}}
	seed.SelectedDevices = []domain.DeviceSelection{{Manufacturer: "Acme", Device: "X1", DeviceID: "Acme-X1-AAAA1111", Format: "GDT"}}
	seed.EmrProviders = []domain.EmrProviderConfig{{Name: "MediSoft", IncomingFormat: "GDT", OutgoingFormat: "GDT"}}
	store := NewMemoryAccountStore(seed)
	issuer := &MockCredentialIssuer{}
	rec := New(store, issuer, time.Second)

	owner, err := rec.Reconcile(context.Background(), "owner-1", Patch{
		Phone: strPtr("999"),
	})

	assert.NoError(t, err)
	assert.Equal(t, "999", owner.Phone)
	assert.Equal(t, seed.Doctors, owner.Doctors)
	assert.Equal(t, seed.SelectedDevices, owner.SelectedDevices)
	assert.Equal(t, seed.EmrProviders, owner.EmrProviders)
	assert.EqualValues(t, 0, issuer.IssueCallCount, "untouched roster triggers no provisioning")
}

func TestReconcileScalarPresenceSemantics(t *testing.T) {
	store := NewMemoryAccountStore(testOwner())
	rec := New(store, &MockCredentialIssuer{}, time.Second)

	owner, err := rec.Reconcile(context.Background(), "owner-1", Patch{
		Phone:   strPtr(""),     // explicitly sent empty value clears
		Current: boolPtr(false), // explicitly sent false overwrites
	})

	assert.NoError(t, err)
	assert.Equal(t, "", owner.Phone, "sent falsy value must not be dropped")
	assert.False(t, owner.Current)
	assert.Equal(t, "Ghent", owner.Town, "omitted field left untouched")
}

func TestReconcileDeviceIDMintedAndStable(t *testing.T) {
	store := NewMemoryAccountStore(testOwner())
	rec := New(store, &MockCredentialIssuer{}, time.Second)

	owner, err := rec.Reconcile(context.Background(), "owner-1", Patch{
		SelectedDevices: []domain.DeviceSelection{{Manufacturer: "Acme", Device: "X1"}},
	})
	assert.NoError(t, err)

	if assert.Len(t, owner.SelectedDevices, 1) {
		dev := owner.SelectedDevices[0]
		assert.Regexp(t, regexp.MustCompile(`^Acme-X1-[A-Z0-9]{8}$`), dev.DeviceID)
		assert.Equal(t, "GDT", dev.Format)

		// Resending the same device without an id keeps the minted id
		again, err := rec.Reconcile(context.Background(), "owner-1", Patch{
			SelectedDevices: []domain.DeviceSelection{{Manufacturer: "Acme", Device: "X1"}},
		})
		assert.NoError(t, err)
		assert.Equal(t, dev.DeviceID, again.SelectedDevices[0].DeviceID)
	}
}

func TestReconcileProviderDefaults(t *testing.T) {
	store := NewMemoryAccountStore(testOwner())
	rec := New(store, &MockCredentialIssuer{}, time.Second)

	owner, err := rec.Reconcile(context.Background(), "owner-1", Patch{
		EmrProviders: []domain.EmrProviderConfig{{InputFolder: "/in"}},
	})

	assert.NoError(t, err)
	if assert.Len(t, owner.EmrProviders, 1) {
		p := owner.EmrProviders[0]
		assert.Equal(t, "Unknown", p.Name)
		assert.Equal(t, "Unknown", p.IncomingFormat)
		assert.Equal(t, "Unknown", p.OutgoingFormat)
		assert.Equal(t, "/in", p.InputFolder)
		assert.Equal(t, "", p.OutputFolder)
	}
}

func TestReconcileDoctorsMirrorOwnerData(t *testing.T) {
	store := NewMemoryAccountStore(testOwner())
	rec := New(store, &MockCredentialIssuer{}, time.Second)

	_, err := rec.Reconcile(context.Background(), "owner-1", Patch{
		Practice: strPtr("Renamed Practice"),
		SelectedDevices: []domain.DeviceSelection{
			{Manufacturer: "Acme", Device: "X1", DeviceID: "Acme-X1-FIXED111", Format: "HL7"},
		},
		Doctors: []domain.DoctorRef{{DrsID: "D1", Email: "a@x.com"}},
	})

	assert.NoError(t, err)
	doc := store.AccountByEmail("a@x.com")
	if assert.NotNil(t, doc) {
		assert.Equal(t, "Renamed Practice", doc.Practice)
		assert.Equal(t, "Acme-X1-FIXED111", doc.SelectedDevices[0].DeviceID)
		assert.Equal(t, "Unknown", doc.FirstName, "blank names default to Unknown")
		assert.Equal(t, "Unknown", doc.LastName)
	}
}

func TestReconcilePartialFailureAggregated(t *testing.T) {
	store := NewMemoryAccountStore(testOwner())
	issuer := &MockCredentialIssuer{
		IssueFunc: func(ctx context.Context, email, lastName, drsID string) (string, error) {
			if email == "down@x.com" {
				return "", errors.New("smtp relay unavailable")
			}
			return "hash-" + email, nil
		},
	}
	rec := New(store, issuer, time.Second)

	owner, err := rec.Reconcile(context.Background(), "owner-1", Patch{
		Doctors: []domain.DoctorRef{
			{FirstName: "A", LastName: "B", DrsID: "D1", Email: "a@x.com"},
			{FirstName: "C", LastName: "D", DrsID: "D2", Email: "down@x.com"},
		},
	})

	var partial *PartialProvisionError
	if assert.ErrorAs(t, err, &partial) {
		assert.Len(t, partial.Failures, 1)
		assert.Equal(t, "down@x.com", partial.Failures[0].Email)
		assert.Equal(t, "D2", partial.Failures[0].DrsID)
		assert.Contains(t, partial.Failures[0].Reason(), "smtp relay unavailable")
	}
	assert.NotNil(t, owner, "saved owner returned alongside the partial error")
	assert.Len(t, owner.Doctors, 2, "owner roster keeps both valid entries")
	assert.NotNil(t, store.AccountByEmail("a@x.com"), "sibling upsert unaffected by the failure")
	assert.Nil(t, store.AccountByEmail("down@x.com"))
}

func TestReconcileOwnerSaveFailureAbortsFanOut(t *testing.T) {
	store := NewMemoryAccountStore(testOwner())
	store.SaveFunc = func(ctx context.Context, account *domain.Account) error {
		return &PersistenceError{Op: "save account", Err: errors.New("connection lost")}
	}
	issuer := &MockCredentialIssuer{}
	rec := New(store, issuer, time.Second)

	_, err := rec.Reconcile(context.Background(), "owner-1", Patch{
		Doctors: []domain.DoctorRef{{DrsID: "D1", Email: "a@x.com"}},
	})

	var pe *PersistenceError
	assert.ErrorAs(t, err, &pe)
	assert.EqualValues(t, 0, issuer.IssueCallCount, "no doctor touched after a failed owner save")
	assert.EqualValues(t, 0, store.UpsertCallCount)
}

func TestReconcileTimeoutSurfacesAsDoctorFailure(t *testing.T) {
	store := NewMemoryAccountStore(testOwner())
	issuer := &MockCredentialIssuer{
		IssueFunc: func(ctx context.Context, email, lastName, drsID string) (string, error) {
			select {
			case <-ctx.Done():
				return "", ctx.Err()
			case <-time.After(5 * time.Second):
				return "too-late", nil
			}
		},
	}
	rec := New(store, issuer, 50*time.Millisecond)

	_, err := rec.Reconcile(context.Background(), "owner-1", Patch{
		Doctors: []domain.DoctorRef{{DrsID: "D1", Email: "slow@x.com"}},
	})

	var partial *PartialProvisionError
	if assert.ErrorAs(t, err, &partial) {
		assert.Len(t, partial.Failures, 1)
		assert.ErrorIs(t, partial.Failures[0].Err, context.DeadlineExceeded)
	}
}

func TestReconcileFanOutRunsConcurrently(t *testing.T) {
	store := NewMemoryAccountStore(testOwner())
	var inFlight, peak int32
	issuer := &MockCredentialIssuer{
		IssueFunc: func(ctx context.Context, email, lastName, drsID string) (string, error) {
			n := atomic.AddInt32(&inFlight, 1)
			for {
				old := atomic.LoadInt32(&peak)
				if n <= old || atomic.CompareAndSwapInt32(&peak, old, n) {
					break
				}
			}
			time.Sleep(20 * time.Millisecond)
			atomic.AddInt32(&inFlight, -1)
			return "hash-" + email, nil
		},
	}
	rec := New(store, issuer, 5*time.Second)

	_, err := rec.Reconcile(context.Background(), "owner-1", Patch{
		Doctors: []domain.DoctorRef{
			{DrsID: "D1", Email: "a@x.com"},
			{DrsID: "D2", Email: "b@x.com"},
			{DrsID: "D3", Email: "c@x.com"},
		},
	})

	assert.NoError(t, err)
	assert.Greater(t, atomic.LoadInt32(&peak), int32(1), "doctor upserts overlap in time")
}
