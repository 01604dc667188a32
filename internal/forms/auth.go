package forms

import (
	"context"
	"net/http"
	"regexp"
	"strings"
	"unicode/utf8"

	"yatube/internal/models"
	"yatube/internal/utils"
)

const (
	maxUsernameLength = 150
	minPasswordLength = 8
)

var usernamePattern = regexp.MustCompile(`^[\p{L}\p{N}_.@+-]+$`)

// UserLookup finds accounts by username.
type UserLookup interface {
	GetUserByUsername(ctx context.Context, username string) (*models.User, error)
}

// SignupForm registers a new account.
type SignupForm struct {
	FirstName string
	LastName  string
	Username  string
	Password1 string
	Password2 string
	Errors    FieldErrors

	users UserLookup
}

var _ Form[*models.User] = (*SignupForm)(nil)

func NewSignupForm(users UserLookup) *SignupForm {
	return &SignupForm{Errors: FieldErrors{}, users: users}
}

func (f *SignupForm) Bind(r *http.Request) error {
	if err := r.ParseForm(); err != nil {
		return err
	}
	f.FirstName = strings.TrimSpace(r.PostFormValue("first_name"))
	f.LastName = strings.TrimSpace(r.PostFormValue("last_name"))
	f.Username = strings.TrimSpace(r.PostFormValue("username"))
	f.Password1 = r.PostFormValue("password1")
	f.Password2 = r.PostFormValue("password2")
	return nil
}

// Validate returns an unsaved user with a hashed password.
func (f *SignupForm) Validate(ctx context.Context) (*models.User, error) {
	f.Errors = FieldErrors{}

	switch {
	case f.Username == "":
		f.Errors.Add("username", msgRequired)
	case utf8.RuneCountInString(f.Username) > maxUsernameLength:
		f.Errors.Add("username", "Ensure this value has at most 150 characters.")
	case !usernamePattern.MatchString(f.Username):
		f.Errors.Add("username", "Enter a valid username. This value may contain only letters, numbers, and @/./+/-/_ characters.")
	default:
		_, err := f.users.GetUserByUsername(ctx, f.Username)
		switch {
		case err == nil:
			f.Errors.Add("username", "A user with that username already exists.")
		case !utils.IsNotFound(err):
			return nil, err
		}
	}

	switch {
	case f.Password1 == "":
		f.Errors.Add("password1", msgRequired)
	case utf8.RuneCountInString(f.Password1) < minPasswordLength:
		f.Errors.Add("password1", "This password is too short. It must contain at least 8 characters.")
	}
	if f.Password2 == "" {
		f.Errors.Add("password2", msgRequired)
	} else if f.Password1 != f.Password2 {
		f.Errors.Add("password2", "The two password fields didn't match.")
	}

	if err := f.Errors.err(); err != nil {
		return nil, err
	}

	user := &models.User{
		Username:  f.Username,
		FirstName: f.FirstName,
		LastName:  f.LastName,
	}
	if err := user.SetPassword(f.Password1); err != nil {
		return nil, err
	}
	return user, nil
}

// LoginForm authenticates an existing account.
type LoginForm struct {
	Username string
	Password string
	Next     string
	Errors   FieldErrors

	users UserLookup
}

var _ Form[*models.User] = (*LoginForm)(nil)

func NewLoginForm(users UserLookup) *LoginForm {
	return &LoginForm{Errors: FieldErrors{}, users: users}
}

func (f *LoginForm) Bind(r *http.Request) error {
	if err := r.ParseForm(); err != nil {
		return err
	}
	f.Username = strings.TrimSpace(r.PostFormValue("username"))
	f.Password = r.PostFormValue("password")
	if next := r.PostFormValue("next"); next != "" {
		f.Next = next
	}
	return nil
}

func (f *LoginForm) Validate(ctx context.Context) (*models.User, error) {
	f.Errors = FieldErrors{}

	if f.Username == "" {
		f.Errors.Add("username", msgRequired)
	}
	if f.Password == "" {
		f.Errors.Add("password", msgRequired)
	}
	if err := f.Errors.err(); err != nil {
		return nil, err
	}

	user, err := f.users.GetUserByUsername(ctx, f.Username)
	if err != nil && !utils.IsNotFound(err) {
		return nil, err
	}
	if user == nil || !user.CheckPassword(f.Password) {
		f.Errors.Add(NonFieldErrors, "Please enter a correct username and password. Note that both fields may be case-sensitive.")
		return nil, f.Errors
	}
	return user, nil
}
