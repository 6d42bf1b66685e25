package service

import (
	"context"
	"errors"
	"net/url"
	"sync"
	"time"

	apperrors "github.com/Payphone-Digital/devcamper/internal/errors"
	"github.com/Payphone-Digital/devcamper/internal/model"
	"github.com/Payphone-Digital/devcamper/pkg/advquery"
	"github.com/Payphone-Digital/devcamper/pkg/geocoder"
	"github.com/Payphone-Digital/devcamper/pkg/mailer"
)

type fakeUsers struct {
	mu     sync.Mutex
	byID   map[uint]*model.User
	nextID uint
}

func newFakeUsers(users ...*model.User) *fakeUsers {
	f := &fakeUsers{byID: map[uint]*model.User{}, nextID: 1}
	for _, u := range users {
		_ = f.Create(context.Background(), u)
	}
	return f
}

func (f *fakeUsers) List(context.Context, url.Values) (*advquery.Envelope, error) {
	return &advquery.Envelope{Success: true}, nil
}

func (f *fakeUsers) GetByID(_ context.Context, id uint) (*model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.byID[id]
	if !ok {
		return nil, apperrors.ErrUserNotFound
	}
	cp := *u
	return &cp, nil
}

func (f *fakeUsers) GetByEmail(_ context.Context, email string) (*model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.byID {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, apperrors.ErrUserNotFound
}

func (f *fakeUsers) GetByResetToken(_ context.Context, hash string, now time.Time) (*model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.byID {
		if u.ResetPasswordToken != nil && *u.ResetPasswordToken == hash &&
			u.ResetPasswordExpire != nil && u.ResetPasswordExpire.After(now) {
			cp := *u
			return &cp, nil
		}
	}
	return nil, apperrors.ErrInvalidResetToken
}

func (f *fakeUsers) Create(_ context.Context, user *model.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	user.ID = f.nextID
	f.nextID++
	cp := *user
	f.byID[user.ID] = &cp
	return nil
}

func (f *fakeUsers) UpdateFields(_ context.Context, id uint, fields map[string]interface{}) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.byID[id]
	if !ok {
		return apperrors.ErrUserNotFound
	}
	for k, v := range fields {
		switch k {
		case "name":
			u.Name = v.(string)
		case "email":
			u.Email = v.(string)
		case "role":
			u.Role = v.(string)
		case "password":
			u.Password = v.(string)
		case "token_version":
			u.TokenVersion = v.(int)
		case "reset_password_token":
			u.ResetPasswordToken, _ = v.(*string)
		case "reset_password_expire":
			u.ResetPasswordExpire, _ = v.(*time.Time)
		case "last_login":
			at := v.(time.Time)
			u.LastLogin = &at
		}
	}
	return nil
}

func (f *fakeUsers) SetResetToken(ctx context.Context, id uint, hash *string, expire *time.Time) error {
	return f.UpdateFields(ctx, id, map[string]interface{}{
		"reset_password_token":  hash,
		"reset_password_expire": expire,
	})
}

func (f *fakeUsers) UpdateLastLogin(ctx context.Context, id uint, at time.Time) error {
	return f.UpdateFields(ctx, id, map[string]interface{}{"last_login": at})
}

func (f *fakeUsers) BumpTokenVersion(_ context.Context, id uint) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.byID[id]
	if !ok {
		return apperrors.ErrUserNotFound
	}
	u.TokenVersion++
	return nil
}

func (f *fakeUsers) Delete(_ context.Context, id uint) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.byID[id]; !ok {
		return apperrors.ErrUserNotFound
	}
	delete(f.byID, id)
	return nil
}

type fakeBootcamps struct {
	byID   map[uint]*model.Bootcamp
	nextID uint
	photos map[uint]string
}

func newFakeBootcamps(bootcamps ...*model.Bootcamp) *fakeBootcamps {
	f := &fakeBootcamps{byID: map[uint]*model.Bootcamp{}, nextID: 1, photos: map[uint]string{}}
	for _, b := range bootcamps {
		_ = f.Create(context.Background(), b)
	}
	return f
}

func (f *fakeBootcamps) List(context.Context, url.Values) (*advquery.Envelope, error) {
	return &advquery.Envelope{Success: true}, nil
}

func (f *fakeBootcamps) GetByID(_ context.Context, id uint) (*model.Bootcamp, error) {
	b, ok := f.byID[id]
	if !ok {
		return nil, apperrors.ErrBootcampNotFound
	}
	cp := *b
	return &cp, nil
}

func (f *fakeBootcamps) CountByUser(_ context.Context, userID uint) (int64, error) {
	var n int64
	for _, b := range f.byID {
		if b.UserID == userID {
			n++
		}
	}
	return n, nil
}

func (f *fakeBootcamps) Create(_ context.Context, b *model.Bootcamp) error {
	b.ID = f.nextID
	f.nextID++
	cp := *b
	f.byID[b.ID] = &cp
	return nil
}

func (f *fakeBootcamps) Save(_ context.Context, b *model.Bootcamp) error {
	cp := *b
	f.byID[b.ID] = &cp
	return nil
}

func (f *fakeBootcamps) UpdatePhoto(_ context.Context, id uint, photo string) error {
	f.photos[id] = photo
	return nil
}

func (f *fakeBootcamps) Delete(_ context.Context, id uint) error {
	delete(f.byID, id)
	return nil
}

func (f *fakeBootcamps) WithinRadius(context.Context, float64, float64, float64) ([]model.Bootcamp, error) {
	return []model.Bootcamp{}, nil
}

type fakeCourses struct {
	saved   []*model.Course
	byID    map[uint]*model.Course
	deleted []uint
}

func (f *fakeCourses) List(context.Context, url.Values) (*advquery.Envelope, error) {
	return &advquery.Envelope{Success: true}, nil
}

func (f *fakeCourses) ListByBootcamp(_ context.Context, bootcampID uint) ([]model.Course, error) {
	out := []model.Course{}
	for _, c := range f.byID {
		if c.BootcampID == bootcampID {
			out = append(out, *c)
		}
	}
	return out, nil
}

func (f *fakeCourses) GetByID(_ context.Context, id uint) (*model.Course, error) {
	c, ok := f.byID[id]
	if !ok {
		return nil, apperrors.ErrCourseNotFound
	}
	cp := *c
	return &cp, nil
}

func (f *fakeCourses) Create(_ context.Context, c *model.Course) error {
	c.ID = uint(len(f.saved) + 100)
	f.saved = append(f.saved, c)
	return nil
}

func (f *fakeCourses) Save(_ context.Context, c *model.Course) error {
	f.saved = append(f.saved, c)
	return nil
}

func (f *fakeCourses) Delete(_ context.Context, c *model.Course) error {
	f.deleted = append(f.deleted, c.ID)
	return nil
}

type recordingMailer struct {
	sent []mailer.Message
	err  error
}

func (m *recordingMailer) Send(_ context.Context, msg mailer.Message) error {
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, msg)
	return nil
}

type stubGeocoder struct {
	loc *geocoder.Location
	err error
}

func (g stubGeocoder) Geocode(context.Context, string) (*geocoder.Location, error) {
	return g.loc, g.err
}

type fakeReviews struct {
	byID   map[uint]*model.Review
	nextID uint
}

func newFakeReviews(reviews ...*model.Review) *fakeReviews {
	f := &fakeReviews{byID: map[uint]*model.Review{}, nextID: 1}
	for _, r := range reviews {
		_ = f.Create(context.Background(), r)
	}
	return f
}

func (f *fakeReviews) List(context.Context, url.Values) (*advquery.Envelope, error) {
	return &advquery.Envelope{Success: true}, nil
}

func (f *fakeReviews) ListByBootcamp(_ context.Context, bootcampID uint) ([]model.Review, error) {
	out := []model.Review{}
	for _, r := range f.byID {
		if r.BootcampID == bootcampID {
			out = append(out, *r)
		}
	}
	return out, nil
}

func (f *fakeReviews) GetByID(_ context.Context, id uint) (*model.Review, error) {
	r, ok := f.byID[id]
	if !ok {
		return nil, apperrors.ErrReviewNotFound
	}
	cp := *r
	return &cp, nil
}

// Create enforces one review per user and bootcamp like the unique index.
func (f *fakeReviews) Create(_ context.Context, r *model.Review) error {
	for _, existing := range f.byID {
		if existing.UserID == r.UserID && existing.BootcampID == r.BootcampID {
			return apperrors.WrapError(apperrors.ErrDuplicateField, errors.New("duplicate key"))
		}
	}
	r.ID = f.nextID
	f.nextID++
	cp := *r
	f.byID[r.ID] = &cp
	return nil
}

func (f *fakeReviews) Save(_ context.Context, r *model.Review) error {
	cp := *r
	f.byID[r.ID] = &cp
	return nil
}

func (f *fakeReviews) Delete(_ context.Context, r *model.Review) error {
	delete(f.byID, r.ID)
	return nil
}
