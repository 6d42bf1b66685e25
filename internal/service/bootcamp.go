package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"unicode"

	"github.com/Payphone-Digital/devcamper/config"
	"github.com/Payphone-Digital/devcamper/internal/dto"
	apperrors "github.com/Payphone-Digital/devcamper/internal/errors"
	"github.com/Payphone-Digital/devcamper/internal/model"
	"github.com/Payphone-Digital/devcamper/pkg/advquery"
	"github.com/Payphone-Digital/devcamper/pkg/geocoder"
	"github.com/Payphone-Digital/devcamper/pkg/logger"
	"gorm.io/datatypes"
)

type BootcampService struct {
	bootcamps BootcampStore
	geocoder  geocoder.Geocoder
	upload    config.UploadConfig
}

func NewBootcampService(bootcamps BootcampStore, g geocoder.Geocoder, upload config.UploadConfig) *BootcampService {
	if g == nil {
		g = geocoder.Disabled{}
	}
	return &BootcampService{bootcamps: bootcamps, geocoder: g, upload: upload}
}

// Slugify lowercases name and joins its alphanumeric runs with dashes.
func Slugify(name string) string {
	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(name) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
			dash = false
			continue
		}
		if !dash && b.Len() > 0 {
			b.WriteByte('-')
			dash = true
		}
	}
	return strings.TrimSuffix(b.String(), "-")
}

func (s *BootcampService) List(ctx context.Context, query url.Values) (*advquery.Envelope, error) {
	return s.bootcamps.List(withFunction(ctx, "ListBootcamps"), query)
}

func (s *BootcampService) Get(ctx context.Context, id uint) (*model.Bootcamp, error) {
	return s.bootcamps.GetByID(withFunction(ctx, "GetBootcamp"), id)
}

// Create enforces that a publisher owns at most one bootcamp. Admins are exempt.
func (s *BootcampService) Create(ctx context.Context, actor Actor, req *dto.CreateBootcampRequest) (*model.Bootcamp, error) {
	ctx = withFunction(ctx, "CreateBootcamp")

	if !actor.IsAdmin() {
		n, err := s.bootcamps.CountByUser(ctx, actor.ID)
		if err != nil {
			return nil, err
		}
		if n > 0 {
			return nil, apperrors.WithMessage(apperrors.ErrAlreadyPublished,
				fmt.Sprintf("The user with ID %d has already published a bootcamp", actor.ID))
		}
	}

	name := strings.TrimSpace(req.Name)
	bootcamp := &model.Bootcamp{
		Name:          name,
		Slug:          Slugify(name),
		Description:   req.Description,
		Website:       req.Website,
		Phone:         req.Phone,
		Email:         req.Email,
		Address:       req.Address,
		Latitude:      req.Latitude,
		Longitude:     req.Longitude,
		Careers:       datatypes.JSONSlice[string](req.Careers),
		Housing:       req.Housing,
		JobAssistance: req.JobAssistance,
		JobGuarantee:  req.JobGuarantee,
		AcceptGI:      req.AcceptGI,
		UserID:        actor.ID,
	}
	if err := s.locate(ctx, bootcamp); err != nil {
		return nil, err
	}
	if err := s.bootcamps.Create(ctx, bootcamp); err != nil {
		return nil, err
	}
	return bootcamp, nil
}

func (s *BootcampService) owned(ctx context.Context, actor Actor, id uint, action string) (*model.Bootcamp, error) {
	bootcamp, err := s.bootcamps.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !actor.mayModify(bootcamp.UserID) {
		logger.WarnWithContext(ctx, "Bootcamp access denied").
			Uint("bootcamp_id", id).
			Uint("owner_id", bootcamp.UserID).
			Log()
		return nil, forbidden(actor, action)
	}
	return bootcamp, nil
}

func (s *BootcampService) Update(ctx context.Context, actor Actor, id uint, req *dto.UpdateBootcampRequest) (*model.Bootcamp, error) {
	ctx = withFunction(ctx, "UpdateBootcamp")

	bootcamp, err := s.owned(ctx, actor, id, "update this bootcamp")
	if err != nil {
		return nil, err
	}

	if req.Name != nil {
		bootcamp.Name = strings.TrimSpace(*req.Name)
		bootcamp.Slug = Slugify(bootcamp.Name)
	}
	if req.Description != nil {
		bootcamp.Description = *req.Description
	}
	if req.Website != nil {
		bootcamp.Website = *req.Website
	}
	if req.Phone != nil {
		bootcamp.Phone = *req.Phone
	}
	if req.Email != nil {
		bootcamp.Email = *req.Email
	}
	if req.Careers != nil {
		bootcamp.Careers = datatypes.JSONSlice[string](req.Careers)
	}
	if req.Housing != nil {
		bootcamp.Housing = *req.Housing
	}
	if req.JobAssistance != nil {
		bootcamp.JobAssistance = *req.JobAssistance
	}
	if req.JobGuarantee != nil {
		bootcamp.JobGuarantee = *req.JobGuarantee
	}
	if req.AcceptGI != nil {
		bootcamp.AcceptGI = *req.AcceptGI
	}

	switch {
	case req.Latitude != nil || req.Longitude != nil:
		if req.Latitude != nil {
			bootcamp.Latitude = req.Latitude
		}
		if req.Longitude != nil {
			bootcamp.Longitude = req.Longitude
		}
		if req.Address != nil {
			bootcamp.Address = *req.Address
		}
	case req.Address != nil && *req.Address != bootcamp.Address:
		bootcamp.Address = *req.Address
		bootcamp.Latitude, bootcamp.Longitude, bootcamp.FormattedAddress = nil, nil, ""
		if err := s.locate(ctx, bootcamp); err != nil {
			return nil, err
		}
	}

	if err := s.bootcamps.Save(ctx, bootcamp); err != nil {
		return nil, err
	}
	return bootcamp, nil
}

// locate fills in coordinates from the address when none were given.
// An address the geocoder cannot match is rejected; an unavailable geocoder
// leaves the bootcamp without a location.
func (s *BootcampService) locate(ctx context.Context, bootcamp *model.Bootcamp) error {
	if bootcamp.HasLocation() || strings.TrimSpace(bootcamp.Address) == "" {
		return nil
	}

	loc, err := s.geocoder.Geocode(ctx, bootcamp.Address)
	switch {
	case err == nil:
		bootcamp.Latitude = &loc.Latitude
		bootcamp.Longitude = &loc.Longitude
		bootcamp.FormattedAddress = loc.FormattedAddress
		return nil
	case errors.Is(err, geocoder.ErrDisabled):
		return nil
	case errors.Is(err, geocoder.ErrNoMatch):
		return apperrors.WrapError(apperrors.ErrGeocodeUnresolved, err)
	case errors.Is(err, context.Canceled):
		return err
	}

	logger.WarnWithContext(ctx, "Geocoding unavailable, saving without location").
		String("address", bootcamp.Address).
		Err(err).
		Log()
	return nil
}

func (s *BootcampService) Delete(ctx context.Context, actor Actor, id uint) error {
	ctx = withFunction(ctx, "DeleteBootcamp")
	if _, err := s.owned(ctx, actor, id, "delete this bootcamp"); err != nil {
		return err
	}
	return s.bootcamps.Delete(ctx, id)
}

func (s *BootcampService) WithinRadius(ctx context.Context, q *dto.RadiusQuery) ([]model.Bootcamp, error) {
	return s.bootcamps.WithinRadius(withFunction(ctx, "WithinRadius"), q.Latitude, q.Longitude, q.Distance)
}

// UploadPhoto stores an image as photo_<id><ext> under the upload directory
// and records the file name on the bootcamp.
func (s *BootcampService) UploadPhoto(ctx context.Context, actor Actor, id uint, file *multipart.FileHeader) (string, error) {
	ctx = withFunction(ctx, "UploadPhoto")

	if _, err := s.owned(ctx, actor, id, "update this bootcamp"); err != nil {
		return "", err
	}
	if file == nil {
		return "", apperrors.WithMessage(apperrors.ErrInvalidUpload, "Please upload a file")
	}
	if !strings.HasPrefix(file.Header.Get("Content-Type"), "image/") {
		return "", apperrors.ErrInvalidUpload
	}
	if file.Size > s.upload.MaxFileSize {
		return "", apperrors.WithMessage(apperrors.ErrUploadTooLarge,
			fmt.Sprintf("Please upload an image less than %d bytes", s.upload.MaxFileSize))
	}

	name := fmt.Sprintf("photo_%d%s", id, strings.ToLower(filepath.Ext(file.Filename)))
	if err := saveUpload(file, filepath.Join(s.upload.Path, name)); err != nil {
		logger.ErrorWithContext(ctx, "Failed to store upload").
			String("file", name).
			Err(err).
			Log()
		return "", apperrors.WrapError(apperrors.ErrInternal, err)
	}
	if err := s.bootcamps.UpdatePhoto(ctx, id, name); err != nil {
		return "", err
	}

	logger.InfoWithContext(ctx, "Bootcamp photo uploaded").
		Uint("bootcamp_id", id).
		String("file", name).
		Int64("size", file.Size).
		Log()
	return name, nil
}

func saveUpload(file *multipart.FileHeader, dst string) error {
	src, err := file.Open()
	if err != nil {
		return err
	}
	defer src.Close()

	if err := os.MkdirAll(filepath.Dir(dst), 0o750); err != nil {
		return err
	}
	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, src); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
