package core

import (
	"context"
	"encoding/base64"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/example/resumehub/internal/cache"
	"github.com/example/resumehub/internal/db/memory"
	"github.com/example/resumehub/internal/db/mocks"
	"github.com/example/resumehub/internal/live"
	"github.com/example/resumehub/internal/models"
	"github.com/example/resumehub/internal/session"
)

var (
	alice = session.Principal{UserID: "u1", Email: "alice@example.com", Name: "Alice", Role: models.RoleUser}
	bob   = session.Principal{UserID: "u2", Email: "bob@example.com", Name: "Bob", Role: models.RoleUser}
	admin = session.Principal{UserID: "a1", Email: "admin@example.com", Name: "Admin", Role: models.RoleAdmin}
)

func receive[T any](t *testing.T, sub *live.Subscription[T]) T {
	t.Helper()
	select {
	case snap, ok := <-sub.Updates():
		require.True(t, ok, "subscription closed early")
		require.NoError(t, snap.Err)
		return snap.Value
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for delivery")
	}
	var zero T
	return zero
}

type clock struct{ t time.Time }

func (c *clock) now() time.Time { return c.t }

func (c *clock) advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestResumeService(t *testing.T, users *memory.UserStore) (*resumeService, *memory.ResumeStore, *clock) {
	t.Helper()
	store := memory.NewResumeStore()
	if users == nil {
		users = memory.NewUserStore()
	}
	v := NewResumeValidator(64)
	us := NewUserService(users, nil, cache.NewMemoryCache(), time.Minute, v, zap.NewNop())
	svc := NewResumeService(store, us, v, zap.NewNop()).(*resumeService)
	c := &clock{t: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)}
	svc.now = c.now
	return svc, store, c
}

func validResume(id, owner, name string) *models.Resume {
	email := strings.ReplaceAll(strings.ToLower(name), " ", ".") + "@example.com"
	r := models.NewResume(owner, "Engineer", name, email)
	r.ID = id
	return r
}

func TestSave_StampsCopyAndLeavesInputUntouched(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newTestResumeService(t, nil)
	svc.now = time.Now

	in := validResume("r1", "u1", "Alice")
	in.UpdatedAt = time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC)
	before := time.Now()

	saved, err := svc.Save(ctx, in)
	require.NoError(t, err)
	assert.False(t, saved.UpdatedAt.Before(before))
	assert.Equal(t, 2000, in.UpdatedAt.Year(), "caller value must not change")

	got, err := svc.GetByID(ctx, "r1")
	require.NoError(t, err)
	assert.Equal(t, saved, got)
}

func TestSave_TwiceKeepsSameContent(t *testing.T) {
	ctx := context.Background()
	svc, _, c := newTestResumeService(t, nil)

	in := validResume("r1", "u1", "Alice")
	first, err := svc.Save(ctx, in)
	require.NoError(t, err)
	c.advance(time.Second)
	second, err := svc.Save(ctx, in)
	require.NoError(t, err)

	assert.True(t, second.UpdatedAt.After(first.UpdatedAt))
	second.UpdatedAt = first.UpdatedAt
	assert.Equal(t, first, second)
}

func TestSave_ValidationRejectsBeforeWrite(t *testing.T) {
	ctx := context.Background()
	svc, store, _ := newTestResumeService(t, nil)

	in := validResume("r1", "u1", "Alice")
	in.PersonalInfo.FullName = ""
	in.PersonalInfo.Email = "not-an-email"

	_, err := svc.Save(ctx, in)
	require.ErrorIs(t, err, ErrValidation)
	var fields ValidationErrors
	require.True(t, errors.As(err, &fields))
	assert.Len(t, fields, 2)

	n, _ := store.Count(ctx)
	assert.Zero(t, n)
}

func TestSave_RejectsOversizedImage(t *testing.T) {
	ctx := context.Background()
	svc, store, _ := newTestResumeService(t, nil)

	in := validResume("r1", "u1", "Alice")
	payload := base64.StdEncoding.EncodeToString(make([]byte, 65))
	in.Training = []models.Training{{Name: "Go", Issuer: "Acme", Image: "data:image/png;base64," + payload}}

	_, err := svc.Save(ctx, in)
	assert.ErrorIs(t, err, ErrImageTooLarge)
	ok, _ := store.Exists(ctx, "r1")
	assert.False(t, ok)

	in.Training[0].Image = "data:image/png;base64," + base64.StdEncoding.EncodeToString(make([]byte, 64))
	_, err = svc.Save(ctx, in)
	assert.NoError(t, err)
}

func TestSave_StoresTextVerbatim(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newTestResumeService(t, nil)

	in := validResume("r1", "u1", "Alice")
	in.Title = "C++ <Templates> & STL"
	in.PersonalInfo.Summary = "Proved x<y and y>z for all inputs"
	in.Skills = []string{"<b>Go</b>", "a < b"}
	in.Experience = []models.Experience{{Title: "Dev", Company: "R&D <Labs>", Description: "<script>alert(1)</script>"}}

	_, err := svc.Save(ctx, in)
	require.NoError(t, err)

	got, err := svc.GetByID(ctx, "r1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "C++ <Templates> & STL", got.Title)
	assert.Equal(t, "Proved x<y and y>z for all inputs", got.PersonalInfo.Summary)
	assert.Equal(t, []string{"<b>Go</b>", "a < b"}, got.Skills)
	require.Len(t, got.Experience, 1)
	assert.Equal(t, "R&D <Labs>", got.Experience[0].Company)
	assert.Equal(t, "<script>alert(1)</script>", got.Experience[0].Description)
}

func TestDelete_ThenAbsent(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newTestResumeService(t, nil)

	_, err := svc.Save(ctx, validResume("r1", "u1", "Alice"))
	require.NoError(t, err)
	require.NoError(t, svc.Delete(ctx, "r1"))

	got, err := svc.GetByID(ctx, "r1")
	require.NoError(t, err)
	assert.Nil(t, got)
	assert.NoError(t, svc.Delete(ctx, "r1"))
}

func TestSubscribeByOwner_SortedAndRedelivered(t *testing.T) {
	ctx := context.Background()
	svc, store, c := newTestResumeService(t, nil)

	_, err := svc.Save(ctx, validResume("old", "u1", "Alice"))
	require.NoError(t, err)
	c.advance(time.Minute)
	_, err = svc.Save(ctx, validResume("new", "u1", "Alice"))
	require.NoError(t, err)
	_, err = svc.Save(ctx, validResume("other", "u2", "Bob"))
	require.NoError(t, err)

	sub, err := svc.SubscribeByOwner(ctx, "u1")
	require.NoError(t, err)

	first := receive(t, sub)
	require.Len(t, first, 2)
	assert.Equal(t, "new", first[0].ID)
	assert.Equal(t, "old", first[1].ID)

	c.advance(time.Minute)
	_, err = svc.Save(ctx, validResume("old", "u1", "Alice"))
	require.NoError(t, err)

	second := receive(t, sub)
	require.Len(t, second, 2)
	assert.Equal(t, "old", second[0].ID)

	sub.Close()
	sub.Close()
	assert.Eventually(t, func() bool { return store.Listeners() == 0 }, time.Second, 10*time.Millisecond)
}

func TestSubscribeByID_DeliversAbsence(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newTestResumeService(t, nil)

	sub, err := svc.SubscribeByID(ctx, "r1")
	require.NoError(t, err)
	defer sub.Close()

	assert.Nil(t, receive(t, sub))

	_, err = svc.Save(ctx, validResume("r1", "u1", "Alice"))
	require.NoError(t, err)
	got := receive(t, sub)
	require.NotNil(t, got)
	assert.Equal(t, "r1", got.ID)

	require.NoError(t, svc.Delete(ctx, "r1"))
	assert.Nil(t, receive(t, sub))
}

func TestSubscribeForViewer_HidesPrivateResume(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newTestResumeService(t, nil)

	_, err := svc.Save(ctx, validResume("r1", "u1", "Alice"))
	require.NoError(t, err)

	sub, err := svc.SubscribeForViewer(ctx, bob, "r1")
	require.NoError(t, err)
	defer sub.Close()
	assert.Nil(t, receive(t, sub))

	own, err := svc.SubscribeForViewer(ctx, alice, "r1")
	require.NoError(t, err)
	defer own.Close()
	assert.NotNil(t, receive(t, own))
}

func TestSearch_BlankTermSkipsStore(t *testing.T) {
	repo := new(mocks.MockResumeRepository)
	svc := NewResumeService(repo, nil, NewResumeValidator(1024), zap.NewNop())

	for _, term := range []string{"", "   ", "\t"} {
		got, err := svc.Search(context.Background(), term)
		require.NoError(t, err)
		assert.Empty(t, got)
		assert.NotNil(t, got)
	}
	repo.AssertNotCalled(t, "ListPublic", mock.Anything)
}

func TestSearch_PropagatesStoreError(t *testing.T) {
	repo := new(mocks.MockResumeRepository)
	repo.On("ListPublic", mock.Anything).Return(nil, errors.New("unavailable"))
	svc := NewResumeService(repo, nil, NewResumeValidator(1024), zap.NewNop())

	_, err := svc.Search(context.Background(), "go")
	assert.Error(t, err)
	repo.AssertExpectations(t)
}

func TestSearch_CaseInsensitivePublicOnly(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newTestResumeService(t, nil)

	pub := validResume("r1", "u1", "Alice Smith")
	pub.IsPublic = true
	pub.Skills = []string{"Golang", "SQL"}
	hidden := validResume("r2", "u2", "Gordon Private")
	hidden.Skills = []string{"Go"}
	for _, r := range []*models.Resume{pub, hidden} {
		_, err := svc.Save(ctx, r)
		require.NoError(t, err)
	}

	for _, term := range []string{"GOLANG", "alice", "SMITH@example", "engineer"} {
		got, err := svc.Search(ctx, term)
		require.NoError(t, err)
		require.Len(t, got, 1, term)
		assert.Equal(t, "r1", got[0].ID)
	}

	got, err := svc.Search(ctx, "gordon")
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestSearchProfiles_AvatarIsBestEffort(t *testing.T) {
	ctx := context.Background()
	users := memory.NewUserStore(models.User{ID: "u1", Name: "Alice", Avatar: "https://img.example.com/a.png"})
	svc, _, _ := newTestResumeService(t, users)

	for _, r := range []*models.Resume{validResume("r1", "u1", "Alice"), validResume("r2", "ghost", "Alina")} {
		r.IsPublic = true
		_, err := svc.Save(ctx, r)
		require.NoError(t, err)
	}

	profiles, err := svc.SearchProfiles(ctx, "ali")
	require.NoError(t, err)
	require.Len(t, profiles, 2)

	byID := map[string]models.ProfileSummary{}
	for _, p := range profiles {
		byID[p.ResumeID] = p
	}
	assert.Equal(t, "https://img.example.com/a.png", byID["r1"].Avatar)
	assert.Empty(t, byID["r2"].Avatar)
	assert.NotNil(t, byID["r2"].Skills)
}

func TestGetForViewer(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newTestResumeService(t, nil)
	_, err := svc.Save(ctx, validResume("r1", "u1", "Alice"))
	require.NoError(t, err)

	_, err = svc.GetForViewer(ctx, bob, "r1")
	assert.ErrorIs(t, err, ErrForbiddenAccess)

	_, err = svc.GetForViewer(ctx, bob, "missing")
	assert.ErrorIs(t, err, ErrResumeNotFound)

	got, err := svc.GetForViewer(ctx, admin, "r1")
	require.NoError(t, err)
	assert.Equal(t, "u1", got.UserID)
}

func TestUpdate_KeepsOwnerAndChecksAccess(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newTestResumeService(t, nil)
	_, err := svc.Save(ctx, validResume("r1", "u1", "Alice"))
	require.NoError(t, err)

	edit := validResume("r1", "someone-else", "Alice")
	edit.Title = "Staff Engineer"
	saved, err := svc.Update(ctx, alice, edit)
	require.NoError(t, err)
	assert.Equal(t, "u1", saved.UserID)
	assert.Equal(t, "Staff Engineer", saved.Title)

	_, err = svc.Update(ctx, bob, edit)
	assert.ErrorIs(t, err, ErrForbiddenAccess)

	created, err := svc.Update(ctx, bob, validResume("r2", "", "Bob"))
	require.NoError(t, err)
	assert.Equal(t, "u2", created.UserID)
}

func TestRemove(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newTestResumeService(t, nil)
	_, err := svc.Save(ctx, validResume("r1", "u1", "Alice"))
	require.NoError(t, err)

	assert.ErrorIs(t, svc.Remove(ctx, bob, "r1"), ErrForbiddenAccess)
	assert.NoError(t, svc.Remove(ctx, alice, "r1"))
	assert.NoError(t, svc.Remove(ctx, alice, "r1"))
}

func TestCreate_UsesDefaults(t *testing.T) {
	svc, _, _ := newTestResumeService(t, nil)
	r, err := svc.Create(context.Background(), alice, "")
	require.NoError(t, err)
	assert.Equal(t, models.DefaultResumeTitle, r.Title)
	assert.Equal(t, "u1", r.UserID)
	assert.Equal(t, "Alice", r.PersonalInfo.FullName)
	assert.NotEmpty(t, r.ID)
	assert.NotNil(t, r.Training)
}
