package service

import (
	"context"
	"errors"
	"net/http"
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Payphone-Digital/devcamper/internal/dto"
	apperrors "github.com/Payphone-Digital/devcamper/internal/errors"
	"github.com/Payphone-Digital/devcamper/internal/model"
)

func newAuth(t *testing.T, users *fakeUsers, m *recordingMailer) *AuthService {
	t.Helper()
	return NewAuthService(users, NewJWTService("secret", time.Hour), m)
}

func seededUser(t *testing.T, password string) *model.User {
	t.Helper()
	hashed, err := hashPassword(password)
	require.NoError(t, err)
	return &model.User{Name: "John Doe", Email: "john@gmail.com", Role: "user", Password: hashed, TokenVersion: 1}
}

func TestRegisterDefaultsRole(t *testing.T) {
	users := newFakeUsers()
	auth := newAuth(t, users, &recordingMailer{})

	res, err := auth.Register(context.Background(), &dto.RegisterRequest{
		Name: " Jane ", Email: "Jane@Example.com", Password: "123456",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, res.Token)

	u, err := users.GetByEmail(context.Background(), "jane@example.com")
	require.NoError(t, err)
	assert.Equal(t, "Jane", u.Name)
	assert.Equal(t, "user", u.Role)
	assert.NotEqual(t, "123456", u.Password)
}

func TestRegisterRejectsTakenEmail(t *testing.T) {
	users := newFakeUsers(seededUser(t, "123456"))
	auth := newAuth(t, users, &recordingMailer{})

	_, err := auth.Register(context.Background(), &dto.RegisterRequest{
		Name: "Other", Email: "john@gmail.com", Password: "123456", Role: "publisher",
	})

	assert.ErrorIs(t, err, apperrors.ErrEmailExists)
}

func TestLoginFailuresAreIndistinguishable(t *testing.T) {
	users := newFakeUsers(seededUser(t, "123456"))
	auth := newAuth(t, users, &recordingMailer{})

	_, unknown := auth.Login(context.Background(), &dto.LoginRequest{Email: "nobody@gmail.com", Password: "123456"})
	_, wrong := auth.Login(context.Background(), &dto.LoginRequest{Email: "john@gmail.com", Password: "654321"})

	require.Error(t, unknown)
	require.Error(t, wrong)
	assert.Equal(t, apperrors.GetErrorMessage(unknown), apperrors.GetErrorMessage(wrong))
	assert.Equal(t, http.StatusUnauthorized, apperrors.ToHTTPStatus(unknown))
	assert.Equal(t, http.StatusUnauthorized, apperrors.ToHTTPStatus(wrong))
}

func TestLoginRecordsLastLogin(t *testing.T) {
	users := newFakeUsers(seededUser(t, "123456"))
	auth := newAuth(t, users, &recordingMailer{})

	res, err := auth.Login(context.Background(), &dto.LoginRequest{Email: "JOHN@gmail.com", Password: "123456"})
	require.NoError(t, err)
	assert.NotEmpty(t, res.Token)

	u, _ := users.GetByID(context.Background(), 1)
	assert.NotNil(t, u.LastLogin)
}

func TestUpdatePasswordChecksCurrent(t *testing.T) {
	users := newFakeUsers(seededUser(t, "123456"))
	auth := newAuth(t, users, &recordingMailer{})

	_, err := auth.UpdatePassword(context.Background(), 1, &dto.UpdatePasswordRequest{CurrentPassword: "nope", NewPassword: "abcdef"})
	assert.ErrorIs(t, err, apperrors.ErrIncorrectPassword)

	_, err = auth.UpdatePassword(context.Background(), 1, &dto.UpdatePasswordRequest{CurrentPassword: "123456", NewPassword: "abcdef"})
	require.NoError(t, err)

	u, _ := users.GetByID(context.Background(), 1)
	assert.True(t, checkPassword(u.Password, "abcdef"))
	assert.Equal(t, 2, u.TokenVersion)
}

func TestUpdateDetailsRejectsOtherUsersEmail(t *testing.T) {
	other := seededUser(t, "123456")
	other.Email = "taken@gmail.com"
	users := newFakeUsers(seededUser(t, "123456"), other)
	auth := newAuth(t, users, &recordingMailer{})

	_, err := auth.UpdateDetails(context.Background(), 1, &dto.UpdateDetailsRequest{Email: "taken@gmail.com"})
	assert.ErrorIs(t, err, apperrors.ErrEmailExists)

	u, err := auth.UpdateDetails(context.Background(), 1, &dto.UpdateDetailsRequest{Name: "Johnny", Email: "john@gmail.com"})
	require.NoError(t, err)
	assert.Equal(t, "Johnny", u.Name)
}

var tokenInURL = regexp.MustCompile(`/api/v1/auth/resetpassword/([0-9a-f]+)`)

func TestForgotAndResetPassword(t *testing.T) {
	users := newFakeUsers(seededUser(t, "123456"))
	m := &recordingMailer{}
	auth := newAuth(t, users, m)

	err := auth.ForgotPassword(context.Background(), &dto.ForgotPasswordRequest{Email: "john@gmail.com"}, "http://localhost:5000/")
	require.NoError(t, err)
	require.Len(t, m.sent, 1)
	assert.Equal(t, "john@gmail.com", m.sent[0].To)

	match := tokenInURL.FindStringSubmatch(m.sent[0].Body)
	require.Len(t, match, 2)
	token := match[1]
	assert.Len(t, token, 40)

	stored, _ := users.GetByID(context.Background(), 1)
	require.NotNil(t, stored.ResetPasswordToken)
	assert.Equal(t, hashResetToken(token), *stored.ResetPasswordToken)
	assert.NotEqual(t, token, *stored.ResetPasswordToken)

	res, err := auth.ResetPassword(context.Background(), token, &dto.ResetPasswordRequest{Password: "newpass"})
	require.NoError(t, err)
	assert.NotEmpty(t, res.Token)

	after, _ := users.GetByID(context.Background(), 1)
	assert.Nil(t, after.ResetPasswordToken)
	assert.Nil(t, after.ResetPasswordExpire)
	assert.True(t, checkPassword(after.Password, "newpass"))

	_, err = auth.ResetPassword(context.Background(), token, &dto.ResetPasswordRequest{Password: "again1"})
	assert.ErrorIs(t, err, apperrors.ErrInvalidResetToken)
	assert.Equal(t, http.StatusBadRequest, apperrors.ToHTTPStatus(err))
}

func TestResetTokenExpires(t *testing.T) {
	users := newFakeUsers(seededUser(t, "123456"))
	m := &recordingMailer{}
	auth := newAuth(t, users, m)

	require.NoError(t, auth.ForgotPassword(context.Background(), &dto.ForgotPasswordRequest{Email: "john@gmail.com"}, "http://x"))
	token := tokenInURL.FindStringSubmatch(m.sent[0].Body)[1]

	auth.now = func() time.Time { return time.Now().Add(11 * time.Minute) }
	_, err := auth.ResetPassword(context.Background(), token, &dto.ResetPasswordRequest{Password: "newpass"})

	assert.ErrorIs(t, err, apperrors.ErrInvalidResetToken)
}

func TestForgotPasswordMailFailureClearsToken(t *testing.T) {
	users := newFakeUsers(seededUser(t, "123456"))
	auth := newAuth(t, users, &recordingMailer{err: errors.New("smtp down")})

	err := auth.ForgotPassword(context.Background(), &dto.ForgotPasswordRequest{Email: "john@gmail.com"}, "http://x")

	assert.ErrorIs(t, err, apperrors.ErrEmailNotSent)
	assert.Equal(t, http.StatusInternalServerError, apperrors.ToHTTPStatus(err))
	u, _ := users.GetByID(context.Background(), 1)
	assert.Nil(t, u.ResetPasswordToken)
	assert.Nil(t, u.ResetPasswordExpire)
}

func TestForgotPasswordUnknownEmail(t *testing.T) {
	auth := newAuth(t, newFakeUsers(), &recordingMailer{})

	err := auth.ForgotPassword(context.Background(), &dto.ForgotPasswordRequest{Email: "ghost@gmail.com"}, "http://x")

	assert.Equal(t, http.StatusNotFound, apperrors.ToHTTPStatus(err))
	assert.Equal(t, "There is no user with that email", apperrors.GetErrorMessage(err))
}

func TestLogoutBumpsTokenVersion(t *testing.T) {
	users := newFakeUsers(seededUser(t, "123456"))
	auth := newAuth(t, users, &recordingMailer{})

	require.NoError(t, auth.Logout(context.Background(), 1))

	u, _ := users.GetByID(context.Background(), 1)
	assert.Equal(t, 2, u.TokenVersion)
}

func TestUserServiceDeleteSelf(t *testing.T) {
	users := newFakeUsers(seededUser(t, "123456"))
	svc := NewUserService(users)

	err := svc.Delete(context.Background(), Actor{ID: 1, Role: "admin"}, 1)

	assert.ErrorIs(t, err, apperrors.ErrSelfDeletion)
}

func TestUserServiceRoleChangeRevokesTokens(t *testing.T) {
	users := newFakeUsers(seededUser(t, "123456"))
	svc := NewUserService(users)

	u, err := svc.Update(context.Background(), 1, &dto.UpdateUserRequest{Role: "publisher"})

	require.NoError(t, err)
	assert.Equal(t, "publisher", u.Role)
	assert.Equal(t, 2, u.TokenVersion)
}
