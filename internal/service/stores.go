package service

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/Payphone-Digital/devcamper/internal/constants"
	apperrors "github.com/Payphone-Digital/devcamper/internal/errors"
	"github.com/Payphone-Digital/devcamper/internal/model"
	"github.com/Payphone-Digital/devcamper/pkg/advquery"
	ctxutil "github.com/Payphone-Digital/devcamper/pkg/context"
)

const module = "service"

// Lister serves a paginated, filterable collection.
type Lister interface {
	List(ctx context.Context, query url.Values) (*advquery.Envelope, error)
}

type UserStore interface {
	Lister
	GetByID(ctx context.Context, id uint) (*model.User, error)
	GetByEmail(ctx context.Context, email string) (*model.User, error)
	GetByResetToken(ctx context.Context, tokenHash string, now time.Time) (*model.User, error)
	Create(ctx context.Context, user *model.User) error
	UpdateFields(ctx context.Context, id uint, fields map[string]interface{}) error
	SetResetToken(ctx context.Context, id uint, tokenHash *string, expire *time.Time) error
	UpdateLastLogin(ctx context.Context, id uint, at time.Time) error
	BumpTokenVersion(ctx context.Context, id uint) error
	Delete(ctx context.Context, id uint) error
}

type BootcampStore interface {
	Lister
	GetByID(ctx context.Context, id uint) (*model.Bootcamp, error)
	CountByUser(ctx context.Context, userID uint) (int64, error)
	Create(ctx context.Context, bootcamp *model.Bootcamp) error
	Save(ctx context.Context, bootcamp *model.Bootcamp) error
	UpdatePhoto(ctx context.Context, id uint, photo string) error
	Delete(ctx context.Context, id uint) error
	WithinRadius(ctx context.Context, lat, lng, miles float64) ([]model.Bootcamp, error)
}

type CourseStore interface {
	Lister
	ListByBootcamp(ctx context.Context, bootcampID uint) ([]model.Course, error)
	GetByID(ctx context.Context, id uint) (*model.Course, error)
	Create(ctx context.Context, course *model.Course) error
	Save(ctx context.Context, course *model.Course) error
	Delete(ctx context.Context, course *model.Course) error
}

type ReviewStore interface {
	Lister
	ListByBootcamp(ctx context.Context, bootcampID uint) ([]model.Review, error)
	GetByID(ctx context.Context, id uint) (*model.Review, error)
	Create(ctx context.Context, review *model.Review) error
	Save(ctx context.Context, review *model.Review) error
	Delete(ctx context.Context, review *model.Review) error
}

// BootcampGetter is what course and review services need from bootcamps.
type BootcampGetter interface {
	GetByID(ctx context.Context, id uint) (*model.Bootcamp, error)
}

// Actor is the authenticated user performing a request.
type Actor struct {
	ID   uint
	Role string
}

func (a Actor) IsAdmin() bool {
	return a.Role == constants.RoleAdmin
}

// mayModify reports whether the actor owns the resource or is an admin.
func (a Actor) mayModify(ownerID uint) bool {
	return a.IsAdmin() || a.ID == ownerID
}

func forbidden(a Actor, action string) error {
	return apperrors.WithMessage(apperrors.ErrForbidden,
		fmt.Sprintf("User %d is not authorized to %s", a.ID, action))
}

func withFunction(ctx context.Context, function string) context.Context {
	return ctxutil.WithFunction(ctx, module, function)
}
