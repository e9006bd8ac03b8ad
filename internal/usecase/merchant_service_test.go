package usecase

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"groupbuy-backend/internal/domain"
	"groupbuy-backend/internal/infrastructure/repo"
)

func newMerchantFixture(t *testing.T) (*MerchantService, *repo.MemoryRepo, *recordedEvents) {
	t.Helper()
	r := repo.NewMemoryRepo()
	ev := &recordedEvents{}
	ctx := context.Background()
	require.NoError(t, r.CreateUser(ctx, &domain.User{ID: "u1", Phone: "0411222333", Email: "lin@example.com", Role: domain.RoleUser}))
	require.NoError(t, r.CreateUser(ctx, &domain.User{ID: "boss", Phone: "0400000000", Role: domain.RoleAdmin}))
	return &MerchantService{
		Merchants: r,
		Users:     r,
		Packages:  &PackageService{Packages: r},
		Catalog:   r,
		Assets:    &memAssets{},
		Events:    ev,
	}, r, ev
}

func TestOnboardCreatesMerchantOnce(t *testing.T) {
	s, r, ev := newMerchantFixture(t)
	ctx := context.Background()

	_, _, err := s.Onboard(ctx, "u1", MerchantProfileInput{Name: "  "})
	assert.IsType(t, ErrBadRequest(""), err)

	m, u, err := s.Onboard(ctx, "u1", MerchantProfileInput{Name: "Lin's <i>Kitchen</i>", OpenHours: "9-5"})
	require.NoError(t, err)
	assert.Equal(t, "Lin's Kitchen", m.Name)
	assert.Equal(t, "0411222333", *m.Phone)
	assert.Equal(t, "lin@example.com", *m.Email)
	assert.Equal(t, "9-5", *m.OpenHours)
	assert.Nil(t, m.Address)
	assert.True(t, m.Active)
	require.NotNil(t, m.DashboardKey)
	assert.Len(t, *m.DashboardKey, 32)
	assert.NotContains(t, *m.DashboardKey, "u1")
	assert.Equal(t, domain.RoleMerchant, u.Role)

	stored, _, err := r.GetUser(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, domain.RoleMerchant, stored.Role)

	again, _, err := s.Onboard(ctx, "u1", MerchantProfileInput{Name: "Other"})
	require.NoError(t, err)
	assert.Equal(t, m.ID, again.ID)
	assert.Equal(t, "Lin's Kitchen", again.Name)
	assert.Equal(t, []string{"merchant.onboarded"}, ev.types())
}

func TestOnboardRejectsAdmins(t *testing.T) {
	s, _, _ := newMerchantFixture(t)
	_, _, err := s.Onboard(context.Background(), "boss", MerchantProfileInput{Name: "Admin Shop"})
	assert.IsType(t, ErrForbidden(""), err)

	_, _, err = s.Onboard(context.Background(), "ghost", MerchantProfileInput{Name: "x"})
	assert.IsType(t, ErrUnauthorized(""), err)
}

func TestUpdateProfile(t *testing.T) {
	s, _, _ := newMerchantFixture(t)
	ctx := context.Background()
	_, _, err := s.Onboard(ctx, "u1", MerchantProfileInput{Name: "Kitchen", Address: "1 King St"})
	require.NoError(t, err)

	m, err := s.UpdateProfile(ctx, "u1", MerchantProfileInput{WeChat: "linwx", ImageURL: "https://img.test/a.png"})
	require.NoError(t, err)
	assert.Equal(t, "Kitchen", m.Name, "blank name keeps the old one")
	assert.Nil(t, m.Address, "blank fields are cleared")
	assert.Equal(t, "linwx", *m.WeChat)
	assert.Equal(t, "https://img.test/a.png", *m.ImageURL)

	m, err = s.UpdateProfile(ctx, "u1", MerchantProfileInput{Name: "Kitchen Two", Image: &domain.Upload{Filename: "shop.png"}})
	require.NoError(t, err)
	assert.Equal(t, "Kitchen Two", m.Name)
	assert.Equal(t, "https://cdn.test/uploads/shop.png", *m.ImageURL)

	m, err = s.UpdateProfile(ctx, "u1", MerchantProfileInput{Name: "Kitchen Two"})
	require.NoError(t, err)
	assert.Equal(t, "https://cdn.test/uploads/shop.png", *m.ImageURL, "image survives an update without one")

	_, err = s.UpdateProfile(ctx, "boss", MerchantProfileInput{Name: "x"})
	assert.IsType(t, ErrForbidden(""), err)
}

func TestMerchantOwnsPackagesAndServices(t *testing.T) {
	s, r, _ := newMerchantFixture(t)
	ctx := context.Background()
	m, _, err := s.Onboard(ctx, "u1", MerchantProfileInput{Name: "Kitchen"})
	require.NoError(t, err)
	other := "someone-else"
	require.NoError(t, r.PutPackage(ctx, &domain.Package{ID: "foreign", MerchantID: &other, Active: true}))

	in := validPackage()
	in.MerchantID = &other
	p, err := s.CreatePackage(ctx, "u1", in)
	require.NoError(t, err)
	assert.Equal(t, m.ID, *p.MerchantID, "merchant id comes from the caller")

	sv, err := s.CreateService(ctx, "u1", ServiceInput{
		Name:         strp("Haircut"),
		Price:        strp("35"),
		DurationMins: intp(45),
		TimeSlots:    []string{" Sat 10:00 ", ""},
	})
	require.NoError(t, err)
	assert.Equal(t, "35.00", *sv.Price)
	assert.Equal(t, []string{"Sat 10:00"}, sv.TimeSlots)
	assert.True(t, sv.Active)

	_, err = s.CreateService(ctx, "u1", ServiceInput{Name: strp("Bad"), DurationMins: intp(0)})
	assert.IsType(t, ErrBadRequest(""), err)
	_, err = s.CreateService(ctx, "u1", ServiceInput{})
	assert.IsType(t, ErrBadRequest(""), err)

	home, err := s.Mine(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, home.Packages, 1)
	require.Len(t, home.Services, 1)

	assert.IsType(t, ErrNotFound(""), s.DeletePackage(ctx, "u1", "foreign"))
	require.NoError(t, s.DeletePackage(ctx, "u1", p.ID))
	assert.IsType(t, ErrNotFound(""), s.DeletePackage(ctx, "u1", p.ID))
	require.NoError(t, s.DeleteService(ctx, "u1", sv.ID))

	_, ok, err := r.GetPackage(ctx, "foreign")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestInactiveMerchantCannotPublish(t *testing.T) {
	s, r, _ := newMerchantFixture(t)
	ctx := context.Background()
	m, _, err := s.Onboard(ctx, "u1", MerchantProfileInput{Name: "Kitchen"})
	require.NoError(t, err)
	m.Active = false
	require.NoError(t, r.PutMerchant(ctx, m))

	_, err = s.CreatePackage(ctx, "u1", validPackage())
	assert.IsType(t, ErrForbidden(""), err)
	_, err = s.CreateService(ctx, "u1", ServiceInput{Name: strp("Haircut")})
	assert.IsType(t, ErrForbidden(""), err)

	_, err = s.Detail(ctx, m.ID)
	assert.IsType(t, ErrNotFound(""), err)
}

func TestMerchantSearchAndDetail(t *testing.T) {
	s, r, _ := newMerchantFixture(t)
	ctx := context.Background()
	now := time.Now()
	mid := "m1"
	require.NoError(t, r.PutMerchant(ctx, &domain.Merchant{ID: mid, Name: "Dumpling House", Active: true, UpdatedAt: now}))
	require.NoError(t, r.PutPackage(ctx, &domain.Package{ID: "on", MerchantID: &mid, Active: true}))
	require.NoError(t, r.PutPackage(ctx, &domain.Package{ID: "off", MerchantID: &mid, Active: false}))
	require.NoError(t, r.PutService(ctx, &domain.Service{ID: "svc", MerchantID: &mid, Active: true}))

	dir, err := s.Search(ctx, "  dumpling  ", 0, 500)
	require.NoError(t, err)
	assert.Equal(t, "dumpling", dir.Q)
	assert.Equal(t, 1, dir.Page)
	assert.Equal(t, 50, dir.Limit)
	assert.Equal(t, 1, dir.TotalPages)
	require.Len(t, dir.Merchants, 1)
	assert.Equal(t, 2, dir.Merchants[0].PackageCount)

	empty, err := s.Search(ctx, "nothing matches", 1, 0)
	require.NoError(t, err)
	assert.Equal(t, 12, empty.Limit)
	assert.Equal(t, 1, empty.TotalPages)
	assert.Empty(t, empty.Merchants)

	d, err := s.Detail(ctx, mid)
	require.NoError(t, err)
	require.Len(t, d.Packages, 1)
	assert.Equal(t, "on", d.Packages[0].ID)
	require.Len(t, d.Services, 1)

	_, err = s.Detail(ctx, "missing")
	assert.IsType(t, ErrNotFound(""), err)
}

func intp(n int) *int { return &n }
